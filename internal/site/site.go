// Package site holds the content sets served and exported by docsite. Each
// set owns the current document tree for its index; a reload builds a whole
// new tree and swaps it in.
package site

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/dgallion1/docsite/internal/config"
	"github.com/dgallion1/docsite/internal/doctree"
	"github.com/dgallion1/docsite/internal/metrics"
	"github.com/dgallion1/docsite/internal/render"
	"github.com/dgallion1/docsite/internal/resolve"
	"github.com/dgallion1/docsite/internal/staticpaths"
)

// SearchFile is the per-set search index served and exported at the mount
// root. No route may take its name.
const SearchFile = "search.json"

var (
	// ErrIndexLoad means the set's index could not be loaded.
	ErrIndexLoad = errors.New("index load failed")
	// ErrDuplicateRoutes means strict mode rejected a tree with duplicates.
	ErrDuplicateRoutes = errors.New("duplicate routes")
)

// Set is one mounted content set.
type Set struct {
	Name  string
	Mount string
	Dir   string

	src      doctree.Source
	strict   bool
	render   render.Options
	resolver *resolve.Resolver
	log      *slog.Logger
	rec      metrics.Recorder

	tree    atomic.Pointer[doctree.Tree]
	loadErr atomic.Pointer[error]
}

// Tree returns the current tree, or nil before the first successful load.
func (s *Set) Tree() *doctree.Tree {
	return s.tree.Load()
}

// Err returns the error of the most recent load, if it failed.
func (s *Set) Err() error {
	if p := s.loadErr.Load(); p != nil {
		return *p
	}
	return nil
}

// Reload rebuilds the tree from the index. On failure the previous tree, if
// any, stays in place and the error is recorded.
func (s *Set) Reload() error {
	tree := doctree.Load(s.src, s.log)
	if tree == nil {
		return s.fail(fmt.Errorf("set %q: %w", s.Name, ErrIndexLoad))
	}
	s.dropReserved(tree)
	s.rec.SetDuplicateRoutes(s.Name, len(tree.Duplicates))
	if s.strict && len(tree.Duplicates) > 0 {
		return s.fail(fmt.Errorf("set %q: %w: %v", s.Name, ErrDuplicateRoutes, tree.Duplicates))
	}

	s.tree.Store(tree)
	s.loadErr.Store(nil)
	s.rec.IncTreeLoad(s.Name, true)
	s.log.Info("document tree loaded",
		"groups", len(tree.Groups),
		"routes", len(tree.Routes),
		"duplicates", len(tree.Duplicates),
	)
	return nil
}

// dropReserved removes entries whose pages would land on the search index.
// The tree is fresh from the index and not yet shared.
func (s *Set) dropReserved(tree *doctree.Tree) {
	reserved := func(route string) bool {
		return strings.Trim(staticpaths.StripExtension(route), staticpaths.Separator) == SearchFile
	}
	for route, src := range tree.Routes {
		if reserved(route) {
			s.log.Warn("route is reserved, entry dropped", "route", route, "path", src)
			delete(tree.Routes, route)
		}
	}
	tree.Duplicates = slices.DeleteFunc(tree.Duplicates, reserved)

	groups := tree.Groups[:0]
	for _, g := range tree.Groups {
		n := len(g.Entries)
		g.Entries = slices.DeleteFunc(g.Entries, func(e doctree.Entry) bool { return reserved(e.Route) })
		if n == 0 || len(g.Entries) > 0 {
			groups = append(groups, g)
		}
	}
	tree.Groups = groups
}

func (s *Set) fail(err error) error {
	s.loadErr.Store(&err)
	s.rec.IncTreeLoad(s.Name, false)
	s.log.Error("document tree not published", "error", err)
	return err
}

// Resolve resolves segments against the current tree.
func (s *Set) Resolve(segments []string) (*resolve.Document, error) {
	return s.resolver.Resolve(s.Tree(), segments)
}

// ResolveIn resolves segments against a tree the caller already holds, so a
// long-running export sees one tree even if the index is reloaded meanwhile.
func (s *Set) ResolveIn(tree *doctree.Tree, segments []string) (*resolve.Document, error) {
	return s.resolver.Resolve(tree, segments)
}

// Paths enumerates the static paths of the current tree.
func (s *Set) Paths() staticpaths.Result {
	return staticpaths.Enumerate(s.Tree())
}

// IndexPath is the index file location relative to the content root.
func (s *Set) IndexPath() string {
	return path.Join(s.Dir, doctree.IndexFile)
}

// URL returns the public URL of a route inside this set.
func (s *Set) URL(route string) string {
	if route == "" {
		return "/" + s.Mount + "/"
	}
	return "/" + s.Mount + "/" + route + "/"
}

// Render renders a resolved document with the renderer for its source file.
func (s *Set) Render(doc *resolve.Document) (*render.Page, error) {
	src, _ := doc.Tree.Lookup(doc.Route)
	r, err := render.ForPath(src, s.render)
	if err != nil {
		return nil, err
	}
	return r.Render([]byte(doc.Content))
}

// Site is the collection of content sets read from one content root.
type Site struct {
	sets    []*Set
	byName  map[string]*Set
	byMount map[string]*Set
	log     *slog.Logger
}

// New builds the sets described by cfg. Trees are not loaded until LoadAll.
func New(cfg config.Config, fsys fs.FS, log *slog.Logger, rec metrics.Recorder) *Site {
	rec = metrics.OrNoop(rec)
	st := &Site{
		byName:  map[string]*Set{},
		byMount: map[string]*Set{},
		log:     log,
	}
	for _, cs := range cfg.ContentSets {
		setLog := log.With("set", cs.Name)
		s := &Set{
			Name:     cs.Name,
			Mount:    cs.Mount,
			Dir:      cs.Dir,
			src:      doctree.Folder(fsys, cs.Dir),
			strict:   cfg.StrictRoutes,
			render: render.Options{
				Extensions: cfg.MarkdownExtensions,
				SafeMode:   cfg.SafeMarkdown,
			},
			resolver: resolve.New(fsys, cs.Name, log, rec),
			log:      setLog,
			rec:      rec,
		}
		st.add(s)
	}
	return st
}

// NewStatic builds a single set from an index declared in code.
func NewStatic(name, mount string, ix doctree.Index, fsys fs.FS, log *slog.Logger, rec metrics.Recorder) *Site {
	rec = metrics.OrNoop(rec)
	st := &Site{byName: map[string]*Set{}, byMount: map[string]*Set{}, log: log}
	st.add(&Set{
		Name:     name,
		Mount:    mount,
		src:      doctree.Static(ix),
		resolver: resolve.New(fsys, name, log, rec),
		log:      log.With("set", name),
		rec:      rec,
	})
	return st
}

func (st *Site) add(s *Set) {
	st.sets = append(st.sets, s)
	st.byName[s.Name] = s
	st.byMount[s.Mount] = s
}

// LoadAll loads every set, returning the joined errors of those that failed.
func (st *Site) LoadAll() error {
	var errs []error
	for _, s := range st.sets {
		if err := s.Reload(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Sets returns the sets in configuration order.
func (st *Site) Sets() []*Set {
	return st.sets
}

// Set returns the set with the given name.
func (st *Site) Set(name string) (*Set, bool) {
	s, ok := st.byName[name]
	return s, ok
}

// ByMount returns the set mounted at mount.
func (st *Site) ByMount(mount string) (*Set, bool) {
	s, ok := st.byMount[mount]
	return s, ok
}

// Unhealthy lists the sets whose last load failed or that have no tree.
func (st *Site) Unhealthy() map[string]string {
	out := map[string]string{}
	for _, s := range st.sets {
		if err := s.Err(); err != nil {
			out[s.Name] = err.Error()
		} else if s.Tree() == nil {
			out[s.Name] = "not loaded"
		}
	}
	return out
}
