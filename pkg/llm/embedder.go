package llm

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
)

const (
	// maxEmbedInput bounds the text sent to the embedding model; longer
	// descriptions are truncated rather than rejected.
	maxEmbedInput = 2048

	embedMaxRetries = 3
	embedBaseDelay  = 1 * time.Second
)

// OllamaEmbedder produces similarity embeddings through a local Ollama
// server. The default model (nomic-embed-text) emits 768-dimension
// vectors, matching the index's configured dimensionality.
type OllamaEmbedder struct {
	client    *api.Client
	modelName string
}

// NewOllamaEmbedder builds an embedder against the given Ollama host URL.
func NewOllamaEmbedder(host, modelName string) (*OllamaEmbedder, error) {
	parsed, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host URL: %w", err)
	}

	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}

	return &OllamaEmbedder{
		client:    api.NewClient(parsed, httpClient),
		modelName: modelName,
	}, nil
}

// Embed converts text into a vector, retrying transient failures with
// exponential backoff. Input beyond maxEmbedInput bytes is truncated.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if len(text) > maxEmbedInput {
		text = text[:maxEmbedInput]
	}

	req := &api.EmbeddingRequest{
		Model:  e.modelName,
		Prompt: text,
	}

	var lastErr error
	for attempt := 0; attempt < embedMaxRetries; attempt++ {
		reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		resp, err := e.client.Embeddings(reqCtx, req)
		cancel()

		if err == nil {
			vector := make([]float32, len(resp.Embedding))
			for i, val := range resp.Embedding {
				vector[i] = float32(val)
			}
			return vector, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if attempt < embedMaxRetries-1 {
			time.Sleep(time.Duration(math.Pow(2, float64(attempt))) * embedBaseDelay)
		}
	}

	return nil, fmt.Errorf("embedding failed after %d attempts: %w", embedMaxRetries, lastErr)
}
