// Package enhance rewrites catalog descriptions through a generative
// provider in bounded concurrent batches. It is a maintenance stage run
// before (re)indexing, never on the serving path.
package enhance

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/andrew/mcp-finder-rag/pkg/catalog"
	"github.com/andrew/mcp-finder-rag/pkg/llm"
)

const (
	// DefaultBatchSize caps concurrent generation calls per batch.
	DefaultBatchSize = 15

	// DefaultDelay is the pause between batches, a coarse backpressure
	// against provider rate limits.
	DefaultDelay = 30 * time.Second
)

// Status classifies what happened to one listing during a run.
type Status string

const (
	// StatusRewritten means the provider returned a usable rewrite.
	StatusRewritten Status = "rewritten"
	// StatusKept means the rewrite failed and the prior description was
	// preserved.
	StatusKept Status = "kept"
	// StatusSkipped means the run was cancelled before the item's batch
	// started; its description is untouched.
	StatusSkipped Status = "skipped"
)

// Outcome is the per-listing result of a run, collected so callers and
// tests can assert on outcomes instead of log output.
type Outcome struct {
	Index  int
	Title  string
	Status Status
	Err    error
}

// Enhancer drives the batched rewrite. All provider failures are
// per-item: a failed item keeps its prior description and the run
// continues.
type Enhancer struct {
	gen       llm.Generator
	batchSize int
	delay     time.Duration
	logger    *log.Logger

	sleep func(ctx context.Context, d time.Duration) // swapped out in tests
}

// NewEnhancer builds an enhancer. Non-positive batchSize or negative
// delay fall back to the defaults.
func NewEnhancer(gen llm.Generator, batchSize int, delay time.Duration, logger *log.Logger) *Enhancer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if delay < 0 {
		delay = DefaultDelay
	}

	return &Enhancer{
		gen:       gen,
		batchSize: batchSize,
		delay:     delay,
		logger:    logger,
		sleep:     cancellableSleep,
	}
}

func cancellableSleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Run rewrites every listing's description in place and returns the
// updated listings plus one outcome per input. At most batchSize
// generation calls are in flight at once, and the configured delay is
// observed between batches but not after the last one. Cancelling ctx
// stops the run at the next batch boundary; unprocessed items come back
// StatusSkipped with their descriptions untouched.
func (e *Enhancer) Run(ctx context.Context, listings []catalog.Listing) ([]catalog.Listing, []Outcome) {
	out := make([]catalog.Listing, len(listings))
	copy(out, listings)

	outcomes := make([]Outcome, len(listings))

	for start := 0; start < len(out); start += e.batchSize {
		if err := ctx.Err(); err != nil {
			e.logger.Warn("run cancelled, skipping remaining listings",
				"remaining", len(out)-start)
			for i := start; i < len(out); i++ {
				outcomes[i] = Outcome{Index: i, Title: out[i].Title, Status: StatusSkipped, Err: err}
			}
			break
		}

		end := start + e.batchSize
		if end > len(out) {
			end = len(out)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				outcomes[i] = e.enhanceOne(ctx, &out[i], i)
			}(i)
		}
		wg.Wait()

		if end < len(out) {
			e.logger.Info("batch complete, pausing before next",
				"batch", start/e.batchSize+1, "delay", e.delay)
			e.sleep(ctx, e.delay)
		}
	}

	return out, outcomes
}

// enhanceOne rewrites a single listing, falling back to the original
// description on any failure.
func (e *Enhancer) enhanceOne(ctx context.Context, l *catalog.Listing, idx int) Outcome {
	rewritten, err := e.gen.RewriteDescription(ctx, l.Description)
	if err != nil {
		e.logger.Warn("rewrite failed, keeping original description",
			"title", l.Title, "err", err)
		return Outcome{Index: idx, Title: l.Title, Status: StatusKept, Err: err}
	}

	if strings.TrimSpace(rewritten) == "" {
		e.logger.Warn("rewrite returned empty description, keeping original", "title", l.Title)
		return Outcome{Index: idx, Title: l.Title, Status: StatusKept}
	}

	l.Description = rewritten
	return Outcome{Index: idx, Title: l.Title, Status: StatusRewritten}
}
