package api

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/dgallion1/docsite/internal/resolve"
	"github.com/dgallion1/docsite/internal/search"
	"github.com/dgallion1/docsite/internal/site"
	"github.com/dgallion1/docsite/internal/staticpaths"
)

// handlePage serves configured redirects and rendered pages for every
// mounted set. Mounts may contain slashes; the longest match wins.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	key := trimSlash(r.URL.Path)
	if to, ok := s.redirects[key]; ok {
		http.Redirect(w, r, to, http.StatusMovedPermanently)
		return
	}

	if key == "" {
		sets := s.site.Sets()
		if len(sets) == 0 {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, sets[0].URL(""), http.StatusFound)
		return
	}

	set, rest := s.matchMount(key)
	if set == nil {
		http.NotFound(w, r)
		return
	}
	if rest == site.SearchFile {
		s.handleSearch(w, set)
		return
	}

	doc, err := set.Resolve(staticpaths.Segments(rest))
	if err != nil {
		switch {
		case resolve.IsUnknownRoute(err):
			http.NotFound(w, r)
		default:
			s.log.Error("page not resolved", "set", set.Name, "path", r.URL.Path, "error", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	page, err := set.Render(doc)
	if err != nil {
		s.log.Error("page not rendered", "set", set.Name, "route", doc.Route, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := site.WritePage(&buf, set.PageData(doc, page)); err != nil {
		s.log.Error("page template failed", "set", set.Name, "route", doc.Route, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// handleSearch builds the search index of the current tree on request. The
// static export writes the same file ahead of time.
func (s *Server) handleSearch(w http.ResponseWriter, set *site.Set) {
	tree := set.Tree()
	if tree == nil {
		jsonError(w, "content set not loaded", http.StatusServiceUnavailable)
		return
	}

	idx := search.NewIndex(s.searchCfg)
	for _, segs := range staticpaths.Enumerate(tree).Paths {
		if staticpaths.IsDefault(segs) {
			continue
		}
		doc, err := set.ResolveIn(tree, segs)
		if err != nil {
			continue
		}
		page, err := set.Render(doc)
		if err != nil {
			continue
		}
		idx.AddPage(doc.Route, set.URL(doc.Route), set.PageData(doc, page).Title, page.Outline)
	}

	w.Header().Set("Content-Type", "application/json")
	idx.WriteJSON(w)
}

// matchMount returns the set whose mount is the longest prefix of key and
// the remainder of key below it.
func (s *Server) matchMount(key string) (*site.Set, string) {
	var best *site.Set
	rest := ""
	for _, set := range s.site.Sets() {
		m := set.Mount
		if best != nil && len(m) <= len(best.Mount) {
			continue
		}
		switch {
		case key == m:
			best, rest = set, ""
		case strings.HasPrefix(key, m+"/"):
			best, rest = set, key[len(m)+1:]
		}
	}
	return best, rest
}

func trimSlash(p string) string {
	return strings.Trim(p, "/")
}
