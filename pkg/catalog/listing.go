package catalog

// Listing is the catalog's unit of record: one scraped MCP server entry
// from the directory site. Only Description is mutated after creation,
// when the enhancer rewrites it.
type Listing struct {
	Title       string   `json:"title"`
	Link        string   `json:"link"`
	CreatedBy   string   `json:"created_by"`
	Description string   `json:"description"`
	Stars       string   `json:"stars"`
	Categories  []string `json:"categories"`
	Language    string   `json:"language"`
	GithubLink  string   `json:"github_link"`
}

// Empty-field sentinels. Downstream indexing relies on every field being
// set, so optional fields default to these instead of staying unset.
const (
	UnknownLanguage = ""
	UnknownGithub   = ""
	ZeroStars       = "0"
)

// Normalize fills in the documented empty sentinels for any field the
// scraper could not populate.
func (l *Listing) Normalize() {
	if l.Stars == "" {
		l.Stars = ZeroStars
	}
	if l.Categories == nil {
		l.Categories = []string{}
	}
	if l.Language == "" {
		l.Language = UnknownLanguage
	}
	if l.GithubLink == "" {
		l.GithubLink = UnknownGithub
	}
}
