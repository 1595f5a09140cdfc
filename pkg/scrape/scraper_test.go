package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrew/mcp-finder-rag/pkg/catalog"
)

const listingPage = `<html><body>
<div class="p-6">
  <a class="text-xl" href="/servers/terhechte/cursor-rust-tools">cursor-rust-tools</a>
  <p class="text-sm text-muted-foreground truncate">by terhechte</p>
  <p class="text-muted-foreground mb-4 line-clamp-2">Access Rust Analyzer from Cursor.</p>
  <span class="flex items-center mr-3">600</span>
</div>
<div class="p-6">
  <a class="text-xl" href="/servers/gone/missing">missing-server</a>
  <p class="text-sm text-muted-foreground truncate">by nobody</p>
  <p class="text-muted-foreground mb-4 line-clamp-2">This one is gone.</p>
  <span class="flex items-center mr-3">3</span>
</div>
<div class="p-6">
  <a class="text-xl" href="/servers/a/minimal">minimal</a>
  <p class="text-sm text-muted-foreground truncate">by a</p>
  <p class="text-muted-foreground mb-4 line-clamp-2">does one thing</p>
</div>
</body></html>`

const richDetailPage = `<html><body>
<div class="flex flex-wrap"><span>mcp</span><span>rust</span><span> </span></div>
<div class="flex items-center"><h3>Language:</h3><p>Rust</p></div>
<div class="flex items-center"><h3>Stars:</h3><p>616</p></div>
<a href="https://github.com/terhechte/cursor-rust-tools">View on Github</a>
<div class="prose">A MCP server to allow the LLM in Cursor to access Rust Analyzer, Crate Docs and Cargo Commands.</div>
</body></html>`

const bareDetailPage = `<html><body><p>nothing structured here</p></body></html>`

func testServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/servers", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, listingPage)
	})
	mux.HandleFunc("/servers/terhechte/cursor-rust-tools", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, richDetailPage)
	})
	mux.HandleFunc("/servers/a/minimal", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, bareDetailPage)
	})
	mux.HandleFunc("/servers/gone/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func runScraper(t *testing.T, srv *httptest.Server) []catalog.Listing {
	t.Helper()

	s := NewScraper(srv.URL, srv.Client(), testLogger())
	listings, err := s.Run(context.Background(), "/servers")
	require.NoError(t, err)

	sort.Slice(listings, func(i, j int) bool { return listings[i].Title < listings[j].Title })
	return listings
}

func TestScraperRun(t *testing.T) {
	listings := runScraper(t, testServer(t))

	// The card whose detail link 404s is excluded entirely.
	require.Len(t, listings, 2)

	rich := listings[0]
	assert.Equal(t, "cursor-rust-tools", rich.Title)
	assert.Equal(t, "by terhechte", rich.CreatedBy)
	assert.Equal(t, []string{"mcp", "rust"}, rich.Categories)
	assert.Equal(t, "Rust", rich.Language)
	assert.Equal(t, "https://github.com/terhechte/cursor-rust-tools", rich.GithubLink)
	assert.Equal(t, "616", rich.Stars, "detail page stars win over the baseline")
	assert.Contains(t, rich.Description, "Access Rust Analyzer from Cursor.")
	assert.Contains(t, rich.Description, descriptionJoiner)
	assert.Contains(t, rich.Description, "Crate Docs and Cargo Commands")

	bare := listings[1]
	assert.Equal(t, "minimal", bare.Title)
	assert.Equal(t, catalog.ZeroStars, bare.Stars, "missing stars fall back to sentinel")
	assert.Equal(t, []string{}, bare.Categories)
	assert.Equal(t, catalog.UnknownLanguage, bare.Language)
	assert.Equal(t, catalog.UnknownGithub, bare.GithubLink)
	assert.Equal(t, "does one thing", bare.Description, "no detail body means no joiner")
}

func TestScraperLinksAreUniqueAndVerified(t *testing.T) {
	listings := runScraper(t, testServer(t))

	seen := map[string]bool{}
	for _, l := range listings {
		assert.False(t, seen[l.Link], "duplicate link %s", l.Link)
		seen[l.Link] = true

		resp, err := http.Head(l.Link)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
}

func TestScraperBaselineStarsFallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/servers", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html><body><div class="p-6">
			<a class="text-xl" href="/servers/x/y">y</a>
			<p class="text-sm text-muted-foreground truncate">by x</p>
			<p class="text-muted-foreground mb-4 line-clamp-2">desc</p>
			<span class="flex items-center mr-3">42</span>
		</div></body></html>`)
	})
	mux.HandleFunc("/servers/x/y", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, bareDetailPage)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := NewScraper(srv.URL, srv.Client(), testLogger())
	listings, err := s.Run(context.Background(), "/servers")
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "42", listings[0].Stars)
}

func TestScraperListingPageError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewScraper(srv.URL, srv.Client(), testLogger())
	_, err := s.Run(context.Background(), "/servers")
	assert.Error(t, err)
}

func TestScraperEmptyListingPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body></body></html>")
	}))
	defer srv.Close()

	s := NewScraper(srv.URL, srv.Client(), testLogger())
	listings, err := s.Run(context.Background(), "/servers")
	require.NoError(t, err)
	assert.Empty(t, listings)
}
