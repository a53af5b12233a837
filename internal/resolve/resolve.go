// Package resolve turns a requested route into the raw content and metadata
// of its source document.
package resolve

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"time"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"

	"github.com/dgallion1/docsite/internal/doctree"
	"github.com/dgallion1/docsite/internal/metrics"
	"github.com/dgallion1/docsite/internal/staticpaths"
)

// Document is the result of one resolution. Content is the unparsed body;
// rendering it is the caller's concern.
type Document struct {
	Route       string         `json:"route"`
	Content     string         `json:"content"`
	FrontMatter map[string]any `json:"frontMatter"`
	Tree        *doctree.Tree  `json:"document"`
}

// Title returns the front-matter title, falling back to the entry title.
func (d *Document) Title() string {
	if t, ok := d.FrontMatter["title"].(string); ok && t != "" {
		return t
	}
	if e, ok := d.Tree.Entry(d.Route); ok {
		return e.Title
	}
	return d.Route
}

var yamlFormat = frontmatter.NewFormat("---", "---", yaml.Unmarshal)

var utf8BOM = []byte("\ufeff")

// Resolver reads source documents from a filesystem rooted at the content
// root. It holds no per-request state and is safe for concurrent use.
type Resolver struct {
	fsys fs.FS
	set  string
	log  *slog.Logger
	rec  metrics.Recorder
}

// New returns a Resolver for the content set named set.
func New(fsys fs.FS, set string, log *slog.Logger, rec metrics.Recorder) *Resolver {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Resolver{
		fsys: fsys,
		set:  set,
		log:  log.With("set", set),
		rec:  metrics.OrNoop(rec),
	}
}

// Resolve looks up the route addressed by segments and loads its source.
// Nil or all-empty segments request the tree's default route. A nil tree is
// treated as having no routes.
func (r *Resolver) Resolve(tree *doctree.Tree, segments []string) (*Document, error) {
	start := time.Now()
	doc, err := r.resolve(tree, segments)
	r.rec.ObserveResolve(r.set, outcomeOf(err), time.Since(start))
	return doc, err
}

func (r *Resolver) resolve(tree *doctree.Tree, segments []string) (*Document, error) {
	route, ok := staticpaths.Join(segments)
	if !ok {
		route, ok = tree.DefaultRoute()
		if !ok {
			r.log.Warn("no default route", "segments", segments)
			return nil, fmt.Errorf("%w: no default route", ErrUnknownRoute)
		}
	}

	src, ok := tree.Lookup(route)
	if !ok {
		r.log.Debug("route not found", "route", route)
		return nil, fmt.Errorf("%w: %q", ErrUnknownRoute, route)
	}

	data, err := r.read(src)
	if err != nil {
		r.log.Error("source read failed", "route", route, "path", src, "error", err)
		return nil, &SourceError{Route: route, Path: src, Err: err}
	}

	meta, body, err := Split(data)
	if err != nil {
		r.log.Error("front matter split failed", "route", route, "path", src, "error", err)
		return nil, &SourceError{Route: route, Path: src, Err: err}
	}

	return &Document{
		Route:       route,
		Content:     string(body),
		FrontMatter: meta,
		Tree:        tree,
	}, nil
}

// read opens, fully reads and closes the source file.
func (r *Resolver) read(src string) ([]byte, error) {
	name := path.Clean(filepath.ToSlash(src))
	f, err := r.fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// Split separates a `---` delimited YAML header from the body. Content without
// a header yields an empty map and the whole input as body. A leading UTF-8
// byte-order mark is dropped first.
func Split(data []byte) (map[string]any, []byte, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	meta := map[string]any{}
	body, err := frontmatter.Parse(bytes.NewReader(data), &meta, yamlFormat)
	if err != nil {
		return nil, nil, fmt.Errorf("parse front matter: %w", err)
	}
	if meta == nil {
		meta = map[string]any{}
	}
	return meta, body, nil
}

func outcomeOf(err error) metrics.Outcome {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case IsUnknownRoute(err):
		return metrics.OutcomeUnknownRoute
	default:
		return metrics.OutcomeSourceUnreadable
	}
}
