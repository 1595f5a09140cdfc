// Command mcp-server serves the catalog lookup over the Model Context
// Protocol (SSE) and a JSON /rag_query endpoint.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fatih/color"

	"github.com/andrew/mcp-finder-rag/pkg/config"
	"github.com/andrew/mcp-finder-rag/pkg/llm"
	"github.com/andrew/mcp-finder-rag/pkg/mcpserver"
	"github.com/andrew/mcp-finder-rag/pkg/retrieval"
	"github.com/andrew/mcp-finder-rag/pkg/vector"
)

func main() {
	port := flag.Int("port", 0, "Port to listen on (overrides PORT)")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "mcp-server",
	})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("loading configuration", "err", err)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if cfg.QueryMode == config.ModeSelfQuery {
		if err := cfg.RequireProviderKey(); err != nil {
			logger.Fatal("missing credentials", "err", err)
		}
	}

	embedder, err := llm.NewOllamaEmbedder(cfg.OllamaHost, cfg.EmbedModel)
	if err != nil {
		logger.Fatal("configuring embedder", "err", err)
	}

	index, conn, err := vector.Connect(cfg.QdrantAddr(), cfg.CollectionName, logger)
	if err != nil {
		logger.Fatal("connecting to qdrant", "addr", cfg.QdrantAddr(), "err", err)
	}
	defer conn.Close()

	engine := newEngine(cfg, embedder, index, logger)

	srv, err := mcpserver.NewServer(mcpserver.Config{
		Engine:       engine,
		Logger:       logger,
		AllowOrigin:  cfg.AllowOrigin,
		ExecEnabled:  cfg.ExecEnabled,
		WorkspaceDir: cfg.WorkspaceDir,
	})
	if err != nil {
		logger.Fatal("building server", "err", err)
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: srv.Handler(),
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		fmt.Println("\nShutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", "err", err)
		}
	}()

	color.Green("Listening on :%d (mode=%s, sse=/sse, query=/rag_query)", cfg.Port, cfg.QueryMode)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server failed", "err", err)
	}
}

func newEngine(cfg config.Config, embedder *llm.OllamaEmbedder, index vector.Index, logger *log.Logger) retrieval.Engine {
	if cfg.QueryMode == config.ModeSelfQuery {
		return retrieval.NewSelfQueryEngine(newPlanner(cfg), embedder.Embed, index, logger)
	}
	return retrieval.NewPlainEngine(embedder.Embed, index, logger)
}

func newPlanner(cfg config.Config) llm.QueryPlanner {
	switch cfg.Provider {
	case config.ProviderGroq:
		return llm.NewGroqClient(cfg.GroqAPIKey, cfg.GroqModel, "")
	default:
		return llm.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, "")
	}
}
