// Command indexer embeds the catalog and upserts it into Qdrant.
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
	"github.com/andrew/mcp-finder-rag/pkg/llm"
	"github.com/andrew/mcp-finder-rag/pkg/vector"
)

func main() {
	catalogPath := flag.String("catalog", "", "Catalog file to index (overrides CATALOG_PATH)")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "indexer",
	})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("loading configuration", "err", err)
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
		fmt.Println("\nInterrupted, stopping...")
		cancel()
	}()

	store := catalog.NewStore(cfg.CatalogPath)
	listings, err := store.Load()
	if err != nil {
		logger.Fatal("loading catalog", "path", cfg.CatalogPath, "err", err)
	}
	color.Cyan("Indexing %d listings into collection %q", len(listings), cfg.CollectionName)

	embedder, err := llm.NewOllamaEmbedder(cfg.OllamaHost, cfg.EmbedModel)
	if err != nil {
		logger.Fatal("configuring embedder", "err", err)
	}

	index, conn, err := vector.Connect(cfg.QdrantAddr(), cfg.CollectionName, logger)
	if err != nil {
		logger.Fatal("connecting to qdrant", "addr", cfg.QdrantAddr(), "err", err)
	}
	defer conn.Close()

	ingestor := &vector.Ingestor{
		Embed:  embedder.Embed,
		Index:  index,
		Logger: logger,
	}

	report, err := ingestor.Run(ctx, listings)
	if err != nil {
		logger.Fatal("indexing failed", "err", err)
	}

	if failed := report.Failed(); len(failed) > 0 {
		for _, b := range failed {
			logger.Error("batch failed", "start", b.Start, "count", b.Count, "err", b.Err)
		}
		color.Yellow("Indexed %d points, %d batches failed", report.Upserted(), len(failed))
		os.Exit(1)
	}

	color.Green("Indexed %d points into %q", report.Upserted(), cfg.CollectionName)
}
