package render

import (
	"bytes"
	"fmt"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

// Options configures the Markdown engine.
type Options struct {
	Extensions []string // Names from the extension registry; empty means GFM defaults
	HardWraps  bool
	SafeMode   bool // Drop raw HTML instead of passing it through
}

// MarkdownRenderer renders Markdown with goldmark. It is stateless after
// construction and safe for concurrent use.
type MarkdownRenderer struct {
	md goldmark.Markdown
}

// NewMarkdown builds a goldmark engine for opts.
func NewMarkdown(opts Options) *MarkdownRenderer {
	rendererOptions := []renderer.Option{}
	if opts.HardWraps {
		rendererOptions = append(rendererOptions, html.WithHardWraps())
	}
	if !opts.SafeMode {
		rendererOptions = append(rendererOptions, html.WithUnsafe())
	}

	engineOptions := []goldmark.Option{
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(rendererOptions...),
	}
	if exts := collectExtensions(opts.Extensions); len(exts) > 0 {
		engineOptions = append(engineOptions, goldmark.WithExtensions(exts...))
	}

	return &MarkdownRenderer{md: goldmark.New(engineOptions...)}
}

func (r *MarkdownRenderer) Render(src []byte) (*Page, error) {
	doc := r.md.Parser().Parse(text.NewReader(src))

	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, src, doc); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	outline := markdownOutline(doc, src)
	return &Page{
		HTML:    buf.String(),
		Title:   firstTitle(outline),
		Outline: outline,
	}, nil
}

// markdownOutline walks the top-level blocks of a parsed document and nests
// them under their headings.
func markdownOutline(doc ast.Node, src []byte) []*Section {
	b := newOutlineBuilder()
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			id, _ := node.AttributeString("id")
			idStr := ""
			if v, ok := id.([]byte); ok {
				idStr = string(v)
			}
			b.heading(node.Level, extractText(node, src), idStr)
		default:
			b.paragraph(extractText(n, src))
		}
	}
	return b.done()
}

// extractText gets the text content of a goldmark AST node. Blocks with
// inline children are read through the children; leaf blocks such as code
// blocks are read from their source lines.
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock && !n.HasChildren() {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch v := c.(type) {
		case *ast.Text:
			buf.Write(v.Value(src))
			if v.HardLineBreak() || v.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(v.Value)
		default:
			if c.Type() == ast.TypeBlock && buf.Len() > 0 {
				buf.WriteString("\n\n")
			}
			buf.WriteString(extractText(c, src))
		}
	}
	return strings.TrimSpace(buf.String())
}

var extensionRegistry = map[string]goldmark.Extender{
	"gfm":           extension.GFM,
	"table":         extension.Table,
	"strikethrough": extension.Strikethrough,
	"linkify":       extension.Linkify,
	"tasklist":      extension.TaskList,
	"definition":    extension.DefinitionList,
	"footnote":      extension.Footnote,
	"typographer":   extension.Typographer,
	"highlight":     codeHighlighting,
}

// codeHighlighting colours fenced code with chroma. Classes keep the markup
// small; the page stylesheet owns the colours.
var codeHighlighting = highlighting.NewHighlighting(
	highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
)

func collectExtensions(names []string) []goldmark.Extender {
	if len(names) == 0 {
		return []goldmark.Extender{extension.GFM, extension.Footnote, codeHighlighting}
	}

	var extenders []goldmark.Extender
	seen := map[string]struct{}{}
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, ok := seen[key]; ok {
			continue
		}
		if ext, ok := extensionRegistry[key]; ok {
			extenders = append(extenders, ext)
			seen[key] = struct{}{}
		}
	}
	return extenders
}
