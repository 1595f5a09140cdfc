// Command scraper crawls the MCP registry site, validates each listing
// and writes the catalog file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/fatih/color"

	"github.com/andrew/mcp-finder-rag/pkg/catalog"
	"github.com/andrew/mcp-finder-rag/pkg/config"
	"github.com/andrew/mcp-finder-rag/pkg/scrape"
)

func main() {
	registryURL := flag.String("registry-url", "", "Registry site to crawl (overrides MCP_REGISTRY_URL)")
	listingPath := flag.String("listing-path", "/servers", "Path of the listing page on the registry site")
	outPath := flag.String("out", "", "Catalog file to write (overrides CATALOG_PATH)")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "scraper",
	})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("loading configuration", "err", err)
	}
	if *registryURL != "" {
		cfg.RegistryURL = *registryURL
	}
	if *outPath != "" {
		cfg.CatalogPath = *outPath
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		fmt.Println("\nInterrupted, stopping crawl...")
		cancel()
	}()

	scraper := scrape.NewScraper(cfg.RegistryURL, nil, logger)

	color.Cyan("Crawling %s%s", cfg.RegistryURL, *listingPath)
	listings, err := scraper.Run(ctx, *listingPath)
	if err != nil {
		logger.Fatal("crawl failed", "err", err)
	}
	color.Green("Collected %d verified listings", len(listings))

	store := catalog.NewStore(cfg.CatalogPath)
	if err := store.Save(listings); err != nil {
		logger.Fatal("writing catalog", "path", cfg.CatalogPath, "err", err)
	}
	color.Green("Catalog written to %s", cfg.CatalogPath)
}
