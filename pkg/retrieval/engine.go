// Package retrieval answers natural-language questions about the
// catalog by embedding the query and searching the vector index.
package retrieval

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/andrew/mcp-finder-rag/pkg/llm"
	"github.com/andrew/mcp-finder-rag/pkg/vector"
)

// NotFoundMessage is returned verbatim when no listing matches.
const NotFoundMessage = "Sorry 🥲 we didn't find any suitable MCP for your need"

// DefaultLimit is how many candidates a search requests from the index.
const DefaultLimit = 4

// Result is a retrieval answer. Found distinguishes "no match" from an
// actual hit so callers do not have to compare against the sentinel.
type Result struct {
	Found    bool             `json:"found"`
	Content  string           `json:"content,omitempty"`
	Metadata *vector.Metadata `json:"metadata,omitempty"`
	Message  string           `json:"message,omitempty"`
}

// Text renders the result the way the MCP tool reports it.
func (r Result) Text() string {
	if !r.Found {
		return r.Message
	}
	return fmt.Sprintf("Response about MCP server %s and here is metadata about the response %+v",
		r.Content, *r.Metadata)
}

// Engine answers free-text queries about the indexed catalog.
type Engine interface {
	Query(ctx context.Context, question string) (Result, error)
}

// PlainEngine embeds the question as-is and returns the best hit.
type PlainEngine struct {
	embed  vector.EmbedFunc
	index  vector.Index
	limit  uint64
	logger *log.Logger
}

// NewPlainEngine builds the similarity-only engine.
func NewPlainEngine(embed vector.EmbedFunc, index vector.Index, logger *log.Logger) *PlainEngine {
	return &PlainEngine{embed: embed, index: index, limit: DefaultLimit, logger: logger}
}

func (e *PlainEngine) Query(ctx context.Context, question string) (Result, error) {
	vec, err := e.embed(ctx, question)
	if err != nil {
		return Result{}, fmt.Errorf("embedding query: %w", err)
	}

	hits, err := e.index.Search(ctx, vec, e.limit)
	if err != nil {
		return Result{}, fmt.Errorf("searching index: %w", err)
	}

	return resultFromHits(hits), nil
}

// SelfQueryEngine asks a planner to split the question into a semantic
// search string plus metadata constraints, then runs a filtered search.
// A plan the planner cannot produce degrades to a plain search rather
// than failing the query.
type SelfQueryEngine struct {
	planner llm.QueryPlanner
	embed   vector.EmbedFunc
	index   vector.Index
	limit   uint64
	logger  *log.Logger
}

// NewSelfQueryEngine builds the planner-backed engine.
func NewSelfQueryEngine(planner llm.QueryPlanner, embed vector.EmbedFunc, index vector.Index, logger *log.Logger) *SelfQueryEngine {
	return &SelfQueryEngine{planner: planner, embed: embed, index: index, limit: DefaultLimit, logger: logger}
}

func (e *SelfQueryEngine) Query(ctx context.Context, question string) (Result, error) {
	plan, err := e.planner.PlanQuery(ctx, question)
	if err != nil {
		e.logger.Warn("query planning failed, falling back to plain search", "err", err)
		plan = llm.QueryPlan{Search: question}
	}
	if plan.Search == "" {
		plan.Search = question
	}

	vec, err := e.embed(ctx, plan.Search)
	if err != nil {
		return Result{}, fmt.Errorf("embedding query: %w", err)
	}

	filter := vector.Filter{
		Language:   plan.Language,
		CreatedBy:  plan.CreatedBy,
		Categories: plan.Categories,
		MinStars:   plan.MinStars,
	}

	hits, err := e.index.FilteredSearch(ctx, vec, filter, e.limit)
	if err != nil {
		return Result{}, fmt.Errorf("searching index: %w", err)
	}

	return resultFromHits(hits), nil
}

func resultFromHits(hits []vector.Hit) Result {
	if len(hits) == 0 {
		return Result{Found: false, Message: NotFoundMessage}
	}

	top := hits[0]
	meta := top.Metadata
	return Result{Found: true, Content: top.Content, Metadata: &meta}
}
