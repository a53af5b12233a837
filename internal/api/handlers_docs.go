package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dgallion1/docsite/internal/resolve"
	"github.com/dgallion1/docsite/internal/site"
	"github.com/dgallion1/docsite/internal/staticpaths"
	"github.com/go-chi/chi/v5"
)

type setInfo struct {
	Name       string   `json:"name"`
	Mount      string   `json:"mount"`
	URL        string   `json:"url"`
	Loaded     bool     `json:"loaded"`
	Routes     int      `json:"routes"`
	Duplicates []string `json:"duplicates,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// handleListSets lists the content sets and the state of their trees.
func (s *Server) handleListSets(w http.ResponseWriter, r *http.Request) {
	sets := make([]setInfo, 0, len(s.site.Sets()))
	for _, set := range s.site.Sets() {
		info := setInfo{Name: set.Name, Mount: set.Mount, URL: set.URL("")}
		if tree := set.Tree(); tree != nil {
			info.Loaded = true
			info.Routes = len(tree.Routes)
			info.Duplicates = tree.Duplicates
		}
		if err := set.Err(); err != nil {
			info.Error = err.Error()
		}
		sets = append(sets, info)
	}
	writeJSON(w, http.StatusOK, map[string]any{"sets": sets})
}

// handlePaths returns the static paths of a set.
func (s *Server) handlePaths(w http.ResponseWriter, r *http.Request) {
	set, ok := s.lookupSet(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, set.Paths())
}

// handleDocument resolves the route under /docs/ and returns the document.
func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	set, ok := s.lookupSet(w, r)
	if !ok {
		return
	}
	segments := staticpaths.Segments(strings.Trim(chi.URLParam(r, "*"), "/"))
	doc, err := set.Resolve(segments)
	if err != nil {
		s.resolveError(w, set, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) lookupSet(w http.ResponseWriter, r *http.Request) (*site.Set, bool) {
	name := chi.URLParam(r, "set")
	set, ok := s.site.Set(name)
	if !ok {
		jsonError(w, "unknown content set: "+name, http.StatusNotFound)
		return nil, false
	}
	return set, true
}

func (s *Server) resolveError(w http.ResponseWriter, set *site.Set, err error) {
	switch {
	case resolve.IsUnknownRoute(err):
		jsonError(w, err.Error(), http.StatusNotFound)
	case resolve.IsSourceUnreadable(err):
		s.log.Error("source unreadable", "set", set.Name, "error", err)
		jsonError(w, err.Error(), http.StatusInternalServerError)
	default:
		s.log.Error("resolve failed", "set", set.Name, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
