// Package render turns resolved document bodies into HTML plus a section
// outline. It is the rendering adapter for the content pipeline; the resolver
// never imports it.
package render

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Page is a rendered document body.
type Page struct {
	HTML    string     // Rendered body markup
	Title   string     // First top-level heading, if any
	Outline []*Section // Heading hierarchy
}

// Section is a heading and the text that follows it up to the next heading of
// the same or higher level.
type Section struct {
	Title    string     `json:"title"`
	ID       string     `json:"id,omitempty"`
	Level    int        `json:"level"`
	Text     string     `json:"text,omitempty"`
	Children []*Section `json:"children,omitempty"`
}

// Renderer converts raw body content into a Page.
type Renderer interface {
	Render(src []byte) (*Page, error)
}

// SupportedExtensions lists source extensions with a renderer.
var SupportedExtensions = map[string]bool{
	".md":       true,
	".mdx":      true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".txt":      true,
	".csv":      true,
}

// ForPath returns the renderer for a source file.
func ForPath(path string, opts Options) (Renderer, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".md", ".mdx", ".markdown":
		return NewMarkdown(opts), nil
	case ".html", ".htm":
		return &HTMLRenderer{}, nil
	case ".txt":
		return &TextRenderer{}, nil
	case ".csv":
		return &CSVRenderer{}, nil
	default:
		return nil, fmt.Errorf("unsupported source extension: %q", ext)
	}
}

// IsSupported checks if a source file has a renderer.
func IsSupported(path string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// outlineBuilder nests sections by heading level using a stack, collecting
// the text between headings into the innermost open section.
type outlineBuilder struct {
	root  *Section
	stack []*Section
	text  strings.Builder
}

func newOutlineBuilder() *outlineBuilder {
	root := &Section{}
	return &outlineBuilder{root: root, stack: []*Section{root}}
}

func (b *outlineBuilder) heading(level int, title, id string) {
	b.flush()
	s := &Section{Title: title, ID: id, Level: level}
	for len(b.stack) > 1 && b.stack[len(b.stack)-1].Level >= level {
		b.stack = b.stack[:len(b.stack)-1]
	}
	parent := b.stack[len(b.stack)-1]
	parent.Children = append(parent.Children, s)
	b.stack = append(b.stack, s)
}

func (b *outlineBuilder) paragraph(t string) {
	if t == "" {
		return
	}
	if b.text.Len() > 0 {
		b.text.WriteString("\n\n")
	}
	b.text.WriteString(t)
}

func (b *outlineBuilder) flush() {
	t := strings.TrimSpace(b.text.String())
	if t != "" {
		top := b.stack[len(b.stack)-1]
		if top.Text != "" {
			top.Text += "\n\n" + t
		} else {
			top.Text = t
		}
	}
	b.text.Reset()
}

// done returns the top-level sections. Text with no heading at all becomes a
// single untitled section.
func (b *outlineBuilder) done() []*Section {
	b.flush()
	if len(b.root.Children) == 0 && b.root.Text != "" {
		return []*Section{{Text: b.root.Text}}
	}
	return b.root.Children
}

func firstTitle(sections []*Section) string {
	for _, s := range sections {
		if s.Level == 1 && s.Title != "" {
			return s.Title
		}
	}
	return ""
}
