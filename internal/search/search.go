// Package search builds a client-side search index from rendered page
// outlines. Each record is one section (or a slice of a long section) with
// its heading breadcrumb.
package search

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/dgallion1/docsite/internal/render"
)

// Config controls how section text is split into records.
type Config struct {
	MaxWords     int // Target record size in words
	OverlapWords int // Words repeated at the start of the next slice
	MinWords     int // Records shorter than this are dropped
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{MaxWords: 300, OverlapWords: 30, MinWords: 3}
}

// Record is one searchable slice of a page.
type Record struct {
	Route      string   `json:"route"`
	URL        string   `json:"url"`
	Title      string   `json:"title"`
	Breadcrumb []string `json:"breadcrumb,omitempty"`
	Text       string   `json:"text"`
}

// Index accumulates records for one content set.
type Index struct {
	cfg     Config
	Records []Record `json:"records"`
}

// NewIndex returns an empty index.
func NewIndex(cfg Config) *Index {
	def := DefaultConfig()
	if cfg.MaxWords <= 0 {
		cfg.MaxWords = def.MaxWords
	}
	if cfg.OverlapWords < 0 || cfg.OverlapWords >= cfg.MaxWords {
		cfg.OverlapWords = 0
	}
	if cfg.MinWords <= 0 {
		cfg.MinWords = def.MinWords
	}
	return &Index{cfg: cfg, Records: []Record{}}
}

// AddPage appends the records for one rendered page. url is the page URL;
// section anchors are appended as fragments.
func (ix *Index) AddPage(route, url, title string, outline []*render.Section) {
	for _, s := range outline {
		ix.walk(s, []string{title}, route, url, title)
	}
}

func (ix *Index) walk(s *render.Section, breadcrumb []string, route, url, title string) {
	bc := append([]string(nil), breadcrumb...)
	if s.Title != "" && s.Title != title {
		bc = append(bc, s.Title)
	}

	if s.Text != "" {
		target := url
		if s.ID != "" {
			target = url + "#" + s.ID
		}
		for _, part := range splitText(s.Text, ix.cfg.MaxWords, ix.cfg.OverlapWords) {
			if wordCount(part) < ix.cfg.MinWords {
				continue
			}
			ix.Records = append(ix.Records, Record{
				Route:      route,
				URL:        target,
				Title:      title,
				Breadcrumb: bc,
				Text:       part,
			})
		}
	}

	for _, child := range s.Children {
		ix.walk(child, bc, route, url, title)
	}
}

// WriteJSON encodes the index.
func (ix *Index) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(ix)
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}
