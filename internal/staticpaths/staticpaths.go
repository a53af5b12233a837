// Package staticpaths enumerates every requestable route of a content set for
// ahead-of-time page generation.
package staticpaths

import (
	"regexp"
	"sort"
	"strings"

	"github.com/dgallion1/docsite/internal/doctree"
)

// Separator delimits route segments.
const Separator = "/"

var markupExt = regexp.MustCompile(`\.mdx?$`)

// Result is the static path set handed to the build orchestrator.
type Result struct {
	Paths [][]string `json:"paths"`
	// Fallback reports whether routes outside Paths may fall through to
	// on-demand resolution. It is always false: unknown routes fail.
	Fallback bool `json:"fallback"`
}

// Enumerate lists the segments of every route in the tree, followed by the
// default route [""]. A nil tree yields only the default route.
func Enumerate(tree *doctree.Tree) Result {
	var routes []string
	if tree != nil {
		routes = make([]string, 0, len(tree.Routes))
		for r := range tree.Routes {
			routes = append(routes, r)
		}
		sort.Strings(routes)
	}

	paths := make([][]string, 0, len(routes)+1)
	for _, r := range routes {
		paths = append(paths, Segments(StripExtension(r)))
	}
	paths = append(paths, []string{""})

	return Result{Paths: paths, Fallback: false}
}

// StripExtension removes a trailing .md or .mdx suffix from a route.
func StripExtension(route string) string {
	return markupExt.ReplaceAllString(route, "")
}

// Segments splits a route on the separator. The empty route yields a single
// empty segment.
func Segments(route string) []string {
	return strings.Split(route, Separator)
}

// Join turns segments back into a lookup route, the exact inverse of
// Segments. It reports false when no segment is non-empty, meaning no
// explicit route was requested.
func Join(segments []string) (string, bool) {
	explicit := false
	for _, s := range segments {
		if s != "" {
			explicit = true
			break
		}
	}
	if !explicit {
		return "", false
	}
	return strings.Join(segments, Separator), true
}

// IsDefault reports whether segments address the default route.
func IsDefault(segments []string) bool {
	_, ok := Join(segments)
	return !ok
}
