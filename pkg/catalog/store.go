package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultFileName is the catalog file the pipeline stages share.
const DefaultFileName = "all_mcp_server.json"

// Store persists the catalog as a single JSON array in a UTF-16 encoded
// file. Writes are full-replace: there is no merge and no delete, a
// re-scrape overwrites the whole set. The file format (UTF-16LE with BOM)
// matches the pre-existing data files this service inherits.
type Store struct {
	path string
}

// NewStore returns a store bound to the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads and decodes the whole catalog. A missing file surfaces as a
// wrapped os.IsNotExist error so callers can distinguish "never scraped"
// from a corrupt file.
func (s *Store) Load() ([]Listing, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	utf16 := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	decoded, _, err := transform.Bytes(utf16.NewDecoder(), raw)
	if err != nil {
		return nil, fmt.Errorf("decode catalog file: %w", err)
	}

	var listings []Listing
	if err := json.Unmarshal(decoded, &listings); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}

	for i := range listings {
		listings[i].Normalize()
	}

	return listings, nil
}

// Save encodes and writes the whole catalog, replacing any previous
// content. A nil slice is written as an empty array. Normalization
// happens on a copy; the caller's listings are left untouched.
func (s *Store) Save(listings []Listing) error {
	normalized := make([]Listing, len(listings))
	copy(normalized, listings)
	for i := range normalized {
		normalized[i].Normalize()
	}

	data, err := json.Marshal(normalized)
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}

	utf16 := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	encoded, _, err := transform.Bytes(utf16.NewEncoder(), data)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create catalog dir: %w", err)
		}
	}

	if err := os.WriteFile(s.path, encoded, 0o644); err != nil {
		return fmt.Errorf("write catalog file: %w", err)
	}

	return nil
}
