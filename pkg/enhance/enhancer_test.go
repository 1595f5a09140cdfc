package enhance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrew/mcp-finder-rag/pkg/catalog"
)

type fakeGenerator struct {
	mu       sync.Mutex
	inflight int
	peak     int
	failOn   map[string]error
	calls    int
}

func (g *fakeGenerator) RewriteDescription(ctx context.Context, desc string) (string, error) {
	g.mu.Lock()
	g.inflight++
	if g.inflight > g.peak {
		g.peak = g.inflight
	}
	g.calls++
	err := g.failOn[desc]
	g.mu.Unlock()

	time.Sleep(2 * time.Millisecond)

	g.mu.Lock()
	g.inflight--
	g.mu.Unlock()

	if err != nil {
		return "", err
	}
	return "enhanced: " + desc, nil
}

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func makeListings(n int) []catalog.Listing {
	listings := make([]catalog.Listing, n)
	for i := range listings {
		listings[i] = catalog.Listing{
			Title:       fmt.Sprintf("server-%d", i),
			Description: fmt.Sprintf("desc-%d", i),
		}
	}
	return listings
}

func TestEnhancerRewritesAll(t *testing.T) {
	gen := &fakeGenerator{}
	e := NewEnhancer(gen, 5, 0, testLogger())
	e.sleep = func(context.Context, time.Duration) {}

	out, outcomes := e.Run(context.Background(), makeListings(12))
	require.Len(t, out, 12)
	require.Len(t, outcomes, 12)

	for i, l := range out {
		assert.Equal(t, fmt.Sprintf("enhanced: desc-%d", i), l.Description)
		assert.Equal(t, StatusRewritten, outcomes[i].Status)
	}
	assert.Equal(t, 12, gen.calls)
}

func TestEnhancerKeepsOriginalOnFailure(t *testing.T) {
	boom := errors.New("provider unavailable")
	gen := &fakeGenerator{failOn: map[string]error{"desc-7": boom}}
	e := NewEnhancer(gen, DefaultBatchSize, 0, testLogger())
	e.sleep = func(context.Context, time.Duration) {}

	out, outcomes := e.Run(context.Background(), makeListings(15))
	require.Len(t, out, 15)

	assert.Equal(t, "desc-7", out[7].Description)
	assert.Equal(t, StatusKept, outcomes[7].Status)
	assert.ErrorIs(t, outcomes[7].Err, boom)

	for i := range out {
		if i == 7 {
			continue
		}
		assert.Equal(t, fmt.Sprintf("enhanced: desc-%d", i), out[i].Description)
		assert.Equal(t, StatusRewritten, outcomes[i].Status)
	}
}

func TestEnhancerBoundsConcurrency(t *testing.T) {
	gen := &fakeGenerator{}
	e := NewEnhancer(gen, 4, 0, testLogger())
	e.sleep = func(context.Context, time.Duration) {}

	e.Run(context.Background(), makeListings(20))
	assert.LessOrEqual(t, gen.peak, 4)
	assert.Equal(t, 20, gen.calls)
}

func TestEnhancerDelaysBetweenBatchesOnly(t *testing.T) {
	gen := &fakeGenerator{}
	e := NewEnhancer(gen, 5, 30*time.Second, testLogger())

	var sleeps []time.Duration
	e.sleep = func(_ context.Context, d time.Duration) { sleeps = append(sleeps, d) }

	e.Run(context.Background(), makeListings(13))

	// 3 batches, pauses after the first two only.
	require.Len(t, sleeps, 2)
	assert.Equal(t, 30*time.Second, sleeps[0])
}

func TestEnhancerEmptyRewriteKept(t *testing.T) {
	gen := &emptyGenerator{}
	e := NewEnhancer(gen, 5, 0, testLogger())
	e.sleep = func(context.Context, time.Duration) {}

	out, outcomes := e.Run(context.Background(), makeListings(1))
	assert.Equal(t, "desc-0", out[0].Description)
	assert.Equal(t, StatusKept, outcomes[0].Status)
	assert.NoError(t, outcomes[0].Err)
}

func TestEnhancerDoesNotMutateInput(t *testing.T) {
	gen := &fakeGenerator{}
	e := NewEnhancer(gen, 5, 0, testLogger())
	e.sleep = func(context.Context, time.Duration) {}

	in := makeListings(3)
	e.Run(context.Background(), in)
	assert.Equal(t, "desc-0", in[0].Description)
}

type emptyGenerator struct{}

func (emptyGenerator) RewriteDescription(context.Context, string) (string, error) {
	return "   ", nil
}

func TestEnhancerStopsOnCancelledContext(t *testing.T) {
	gen := &fakeGenerator{}
	e := NewEnhancer(gen, 5, 30*time.Second, testLogger())

	var sleeps int
	e.sleep = func(context.Context, time.Duration) { sleeps++ }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, outcomes := e.Run(ctx, makeListings(15))
	require.Len(t, out, 15)
	require.Len(t, outcomes, 15)

	assert.Zero(t, gen.calls)
	assert.Zero(t, sleeps)
	for i := range outcomes {
		assert.Equal(t, StatusSkipped, outcomes[i].Status)
		assert.ErrorIs(t, outcomes[i].Err, context.Canceled)
		assert.Equal(t, fmt.Sprintf("desc-%d", i), out[i].Description)
	}
}

func TestEnhancerCancelMidRunSkipsRemainingBatches(t *testing.T) {
	gen := &fakeGenerator{}
	e := NewEnhancer(gen, 5, 30*time.Second, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	e.sleep = func(context.Context, time.Duration) { cancel() }

	out, outcomes := e.Run(ctx, makeListings(15))
	require.Len(t, out, 15)

	// First batch ran, the cancel during the pause stops the rest.
	assert.Equal(t, 5, gen.calls)
	for i := 0; i < 5; i++ {
		assert.Equal(t, StatusRewritten, outcomes[i].Status)
	}
	for i := 5; i < 15; i++ {
		assert.Equal(t, StatusSkipped, outcomes[i].Status)
		assert.Equal(t, fmt.Sprintf("desc-%d", i), out[i].Description)
	}
}

func TestEnhancerSleepReturnsEarlyOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	cancellableSleep(ctx, time.Minute)
	assert.Less(t, time.Since(start), time.Second)
}
