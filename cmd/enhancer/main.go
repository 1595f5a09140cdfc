// Command enhancer rewrites every catalog description through the
// configured LLM provider and writes the catalog back in place.
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
	"github.com/andrew/mcp-finder-rag/pkg/enhance"
	"github.com/andrew/mcp-finder-rag/pkg/llm"
)

func main() {
	catalogPath := flag.String("catalog", "", "Catalog file to enhance (overrides CATALOG_PATH)")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "enhancer",
	})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("loading configuration", "err", err)
	}
	if err := cfg.RequireProviderKey(); err != nil {
		logger.Fatal("missing credentials", "err", err)
	}
	if *catalogPath != "" {
		cfg.CatalogPath = *catalogPath
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		fmt.Println("\nInterrupted, stopping after current batch...")
		cancel()
	}()

	store := catalog.NewStore(cfg.CatalogPath)
	listings, err := store.Load()
	if err != nil {
		logger.Fatal("loading catalog", "path", cfg.CatalogPath, "err", err)
	}
	color.Cyan("Enhancing %d listings via %s", len(listings), cfg.Provider)

	gen := newGenerator(cfg)
	enhancer := enhance.NewEnhancer(gen, cfg.BatchSize, cfg.EnhanceDelay, logger)

	updated, outcomes := enhancer.Run(ctx, listings)

	var kept, skipped int
	for _, o := range outcomes {
		switch o.Status {
		case enhance.StatusKept:
			kept++
		case enhance.StatusSkipped:
			skipped++
		}
	}

	if err := store.Save(updated); err != nil {
		logger.Fatal("writing catalog", "path", cfg.CatalogPath, "err", err)
	}

	color.Green("Rewrote %d descriptions (%d kept unchanged, %d skipped)",
		len(updated)-kept-skipped, kept, skipped)
}

func newGenerator(cfg config.Config) llm.Generator {
	switch cfg.Provider {
	case config.ProviderGroq:
		return llm.NewGroqClient(cfg.GroqAPIKey, cfg.GroqModel, "")
	default:
		return llm.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, "")
	}
}
