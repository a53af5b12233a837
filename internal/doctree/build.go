package doctree

import "log/slog"

// Build flattens the index into a Tree, binding every entry's route to its
// source path in group order, then item order. A repeated route is logged and
// the later entry wins. Build performs no I/O.
func Build(ix Index, log *slog.Logger) *Tree {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	tree := &Tree{
		Name:   ix.Name,
		Logo:   ix.Logo,
		Groups: cloneGroups(ix.Groups),
		Routes: make(map[string]string),
	}

	for _, g := range tree.Groups {
		for _, e := range g.Entries {
			if prev, ok := tree.Routes[e.Route]; ok {
				log.Warn("route is overridden",
					"route", e.Route,
					"previous_path", prev,
					"path", e.Path,
				)
				tree.Duplicates = append(tree.Duplicates, e.Route)
			}
			tree.Routes[e.Route] = e.Path
		}
	}

	return tree
}

func cloneGroups(groups []Group) []Group {
	if groups == nil {
		return []Group{}
	}
	out := make([]Group, len(groups))
	for i, g := range groups {
		out[i] = Group{
			Title:   g.Title,
			Entries: append([]Entry(nil), g.Entries...),
		}
	}
	return out
}
