package mcpserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrew/mcp-finder-rag/pkg/retrieval"
	"github.com/andrew/mcp-finder-rag/pkg/vector"
)

type fakeEngine struct {
	result    retrieval.Result
	err       error
	lastQuery string
}

func (f *fakeEngine) Query(_ context.Context, q string) (retrieval.Result, error) {
	f.lastQuery = q
	return f.result, f.err
}

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func newTestServer(t *testing.T, engine retrieval.Engine) *Server {
	t.Helper()
	s, err := NewServer(Config{Engine: engine, Logger: testLogger()})
	require.NoError(t, err)
	return s
}

func TestNewServerRequiresEngine(t *testing.T) {
	_, err := NewServer(Config{Logger: testLogger()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine")
}

func TestRAGQueryReturnsHit(t *testing.T) {
	engine := &fakeEngine{result: retrieval.Result{
		Found:    true,
		Content:  "GitHub automation server",
		Metadata: &vector.Metadata{Title: "github-mcp", Stars: 1200},
	}}
	s := newTestServer(t, engine)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/rag_query",
		strings.NewReader(`{"query":"automate repos"}`))
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "automate repos", engine.lastQuery)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "github-mcp")
	assert.Contains(t, rec.Body.String(), `"found":true`)
}

func TestRAGQueryNoMatchIsStillOK(t *testing.T) {
	engine := &fakeEngine{result: retrieval.Result{
		Found:   false,
		Message: retrieval.NotFoundMessage,
	}}
	s := newTestServer(t, engine)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/rag_query",
		strings.NewReader(`{"query":"nothing matches this"}`))
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "didn't find any suitable MCP")
}

func TestRAGQueryMalformedBody(t *testing.T) {
	s := newTestServer(t, &fakeEngine{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/rag_query", strings.NewReader("{not json"))
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRAGQueryMissingQuery(t *testing.T) {
	s := newTestServer(t, &fakeEngine{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/rag_query", strings.NewReader(`{}`))
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRAGQueryEngineFailure(t *testing.T) {
	engine := &fakeEngine{err: errors.New("qdrant unreachable")}
	s := newTestServer(t, engine)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/rag_query",
		strings.NewReader(`{"query":"anything"}`))
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestRAGQueryCORSPreflight(t *testing.T) {
	s, err := NewServer(Config{
		Engine:      &fakeEngine{},
		Logger:      testLogger(),
		AllowOrigin: "http://app.example.com",
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/rag_query", nil)
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRAGQueryRejectsGet(t *testing.T) {
	s := newTestServer(t, &fakeEngine{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/rag_query", nil)
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
