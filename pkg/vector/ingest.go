package vector

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/andrew/mcp-finder-rag/pkg/catalog"
)

// EmbedFunc converts text into a vector. It matches llm.Embedder's Embed
// method, kept as a function type here so this package does not depend
// on any particular provider.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// Ingestor drives one indexing run: catalog in, documents embedded and
// upserted. A listing whose embedding fails is skipped and logged; the
// rest of the run continues.
type Ingestor struct {
	Embed  EmbedFunc
	Index  Index
	Logger *log.Logger
}

// Run ensures the collection exists and upserts one document per
// listing. An empty catalog is a no-op after Ensure.
func (in *Ingestor) Run(ctx context.Context, listings []catalog.Listing) (UpsertReport, error) {
	if err := in.Index.Ensure(ctx); err != nil {
		return UpsertReport{}, err
	}

	if len(listings) == 0 {
		in.Logger.Info("catalog is empty, nothing to index")
		return UpsertReport{}, nil
	}

	docs := make([]Document, 0, len(listings))
	for _, l := range listings {
		doc := DocumentFromListing(l)

		vec, err := in.Embed(ctx, doc.Content)
		if err != nil {
			in.Logger.Warn("embedding failed, listing skipped", "title", l.Title, "err", err)
			continue
		}
		doc.Vector = vec

		docs = append(docs, doc)
	}

	report := in.Index.Upsert(ctx, docs)
	in.Logger.Info("indexing run complete",
		"listings", len(listings),
		"embedded", len(docs),
		"upserted", report.Upserted(),
		"failed_batches", len(report.Failed()),
	)

	return report, nil
}
