package vector

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/andrew/mcp-finder-rag/pkg/catalog"
)

// Metadata carries the non-description listing fields attached to every
// indexed document, coerced to indexable primitives: strings stay
// strings, stars becomes a number, categories stays a list of strings.
type Metadata struct {
	Title      string   `json:"title"`
	Link       string   `json:"link"`
	CreatedBy  string   `json:"created_by"`
	Stars      int64    `json:"stars"`
	Categories []string `json:"categories"`
	Language   string   `json:"language"`
	GithubLink string   `json:"github_link"`
}

// Document is the derived, read-only view of a Listing handed to the
// index: content is the description, metadata is everything else.
// Documents are never persisted on their own; they are recomputed from
// the catalog on every indexing run.
type Document struct {
	ID       string
	Content  string
	Vector   []float32
	Metadata Metadata
}

// Hit is a scored document returned from a similarity search.
type Hit struct {
	Content  string
	Metadata Metadata
	Score    float32
}

// DocumentFromListing builds the embeddable document for one listing.
// Every metadata field is defaulted, never left unset, so the index
// never sees a missing-field document. The ID is derived from the
// listing's link, so re-indexing an unchanged catalog replaces points
// in place instead of accumulating duplicates.
func DocumentFromListing(l catalog.Listing) Document {
	l.Normalize()

	return Document{
		ID:      uuid.NewSHA1(uuid.NameSpaceURL, []byte(l.Link)).String(),
		Content: l.Description,
		Metadata: Metadata{
			Title:      l.Title,
			Link:       l.Link,
			CreatedBy:  l.CreatedBy,
			Stars:      parseStars(l.Stars),
			Categories: l.Categories,
			Language:   l.Language,
			GithubLink: l.GithubLink,
		},
	}
}

// DocumentsFromListings maps a whole catalog.
func DocumentsFromListings(listings []catalog.Listing) []Document {
	docs := make([]Document, 0, len(listings))
	for _, l := range listings {
		docs = append(docs, DocumentFromListing(l))
	}
	return docs
}

// parseStars coerces the scraped star text ("616", "1,200", "0") to a
// number; anything unparseable counts as zero.
func parseStars(s string) int64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
