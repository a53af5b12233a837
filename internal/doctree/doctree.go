package doctree

// Index is the declarative description of a content set, as written in
// index.yaml or declared in code.
type Index struct {
	Name   string  `yaml:"name" json:"name,omitempty"`
	Logo   string  `yaml:"logo" json:"logo,omitempty"`
	Groups []Group `yaml:"groups" json:"groups"`
}

// Group is a titled, ordered collection of entries. Its position in the
// index decides sidebar order and the default route.
type Group struct {
	Title   string  `yaml:"title" json:"title"`
	Entries []Entry `yaml:"items" json:"items"`
}

// Entry is one addressable document.
type Entry struct {
	Title string `yaml:"title" json:"title"`
	Route string `yaml:"route" json:"route"` // Slash-delimited, unique across the tree
	Path  string `yaml:"path" json:"path"`   // Source file, relative to the content root
}

// Tree is the built document set for one build. It is never modified after
// Build returns; a changed index means a new Tree.
type Tree struct {
	Name   string            `json:"name,omitempty"`
	Logo   string            `json:"logo,omitempty"`
	Groups []Group           `json:"groups"`
	Routes map[string]string `json:"routes"` // route -> source path

	// Duplicates lists every route that overrode an earlier binding, once per
	// override, in traversal order.
	Duplicates []string `json:"duplicates,omitempty"`
}

// DefaultRoute returns the route of the first entry of the first group.
func (t *Tree) DefaultRoute() (string, bool) {
	if t == nil || len(t.Groups) == 0 || len(t.Groups[0].Entries) == 0 {
		return "", false
	}
	return t.Groups[0].Entries[0].Route, true
}

// Lookup returns the source path bound to route.
func (t *Tree) Lookup(route string) (string, bool) {
	if t == nil || t.Routes == nil {
		return "", false
	}
	p, ok := t.Routes[route]
	return p, ok
}

// Entry returns the entry that owns route. When a route is declared more than
// once the last declaration is returned, matching the route map binding.
func (t *Tree) Entry(route string) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	var found Entry
	ok := false
	for _, g := range t.Groups {
		for _, e := range g.Entries {
			if e.Route == route {
				found, ok = e, true
			}
		}
	}
	return found, ok
}

// EntryCount returns the number of entries across all groups.
func (t *Tree) EntryCount() int {
	if t == nil {
		return 0
	}
	n := 0
	for _, g := range t.Groups {
		n += len(g.Entries)
	}
	return n
}
