package llm

import "context"

// Generator is the interface for the description rewrite service. Both
// supported providers (Gemini, Groq) implement it behind the same
// contract: raw description in, rewritten description out.
type Generator interface {
	// RewriteDescription sends the enhancement prompt plus the current
	// description and returns the model's rewritten version.
	RewriteDescription(ctx context.Context, description string) (string, error)
}

// QueryPlanner turns a natural-language question into a semantic search
// string plus optional structured metadata filters.
type QueryPlanner interface {
	PlanQuery(ctx context.Context, question string) (QueryPlan, error)
}

// Embedder converts text into a fixed-length vector for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// QueryPlan is the structured output of a QueryPlanner. Zero values mean
// "no filter on this field".
type QueryPlan struct {
	Search     string   `json:"search"`
	Language   string   `json:"language,omitempty"`
	CreatedBy  string   `json:"created_by,omitempty"`
	Categories []string `json:"categories,omitempty"`
	MinStars   int64    `json:"min_stars,omitempty"`
}

// descriptionResponse is the required shape of a rewrite response.
type descriptionResponse struct {
	Description string `json:"description"`
}
