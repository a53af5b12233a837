package resolve

import (
	"errors"
	"io/fs"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/dgallion1/docsite/internal/doctree"
	"github.com/dgallion1/docsite/internal/staticpaths"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture() (fstest.MapFS, *doctree.Tree) {
	fsys := fstest.MapFS{
		"content/docs/A/setup.mdx": {Data: []byte("---\ntitle: X\n---\nBody")},
		"content/docs/A/plain.md":  {Data: []byte("# No header\n\nJust text.\n")},
		"content/docs/B/nested.md": {Data: []byte("---\ntitle: Nested\ntags: [a, b]\nextra:\n  order: 2\n---\n\nHello\n")},
		"content/docs/B/broken.md": {Data: []byte("---\ntitle: [unclosed\n---\nBody\n")},
	}
	tree := doctree.Build(doctree.Index{
		Name: "docs",
		Groups: []doctree.Group{
			{Title: "Getting Started", Entries: []doctree.Entry{
				{Title: "setup", Route: "getting-started/setup", Path: "content/docs/A/setup.mdx"},
				{Title: "Plain", Route: "getting-started/plain", Path: "content/docs/A/plain.md"},
			}},
			{Title: "Concepts", Entries: []doctree.Entry{
				{Title: "Nested", Route: "b/nested", Path: "content/docs/B/nested.md"},
				{Title: "Broken", Route: "b/broken", Path: "content/docs/B/broken.md"},
				{Title: "Missing", Route: "b/missing", Path: "content/docs/B/missing.md"},
			}},
		},
	}, nil)
	return fsys, tree
}

func TestResolve_DefaultRoute(t *testing.T) {
	fsys, tree := fixture()
	r := New(fsys, "docs", nil, nil)

	for _, segs := range [][]string{nil, {}, {""}} {
		doc, err := r.Resolve(tree, segs)
		require.NoError(t, err, "%q", segs)
		assert.Equal(t, "getting-started/setup", doc.Route)
	}
}

func TestResolve_ExactFrontMatterSplit(t *testing.T) {
	fsys, tree := fixture()
	doc, err := New(fsys, "docs", nil, nil).Resolve(tree, []string{"getting-started", "setup"})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"title": "X"}, doc.FrontMatter)
	assert.Equal(t, "Body", doc.Content)
	assert.Same(t, tree, doc.Tree)
	assert.Equal(t, "X", doc.Title())
}

func TestResolve_NoHeader(t *testing.T) {
	fsys, tree := fixture()
	doc, err := New(fsys, "docs", nil, nil).Resolve(tree, []string{"getting-started", "plain"})
	require.NoError(t, err)

	assert.Empty(t, doc.FrontMatter)
	assert.NotNil(t, doc.FrontMatter)
	assert.Equal(t, "# No header\n\nJust text.\n", doc.Content)
	assert.Equal(t, "Plain", doc.Title())
}

func TestResolve_StructuredFrontMatter(t *testing.T) {
	fsys, tree := fixture()
	doc, err := New(fsys, "docs", nil, nil).Resolve(tree, []string{"b", "nested"})
	require.NoError(t, err)

	assert.Equal(t, "Nested", doc.FrontMatter["title"])
	assert.Equal(t, []any{"a", "b"}, doc.FrontMatter["tags"])
	assert.Equal(t, map[string]any{"order": 2}, doc.FrontMatter["extra"])
	assert.Equal(t, "\nHello\n", doc.Content)
}

func TestResolve_UnknownRoute(t *testing.T) {
	fsys, tree := fixture()
	r := New(fsys, "docs", nil, nil)

	doc, err := r.Resolve(tree, []string{"docs", "unknown-page"})
	assert.Nil(t, doc)
	require.Error(t, err)
	assert.True(t, IsUnknownRoute(err))
	assert.False(t, IsSourceUnreadable(err))
	assert.Contains(t, err.Error(), `"docs/unknown-page"`)
}

func TestResolve_NilOrEmptyTreeIsUnknownRoute(t *testing.T) {
	fsys, _ := fixture()
	r := New(fsys, "docs", nil, nil)

	_, err := r.Resolve(nil, []string{"getting-started", "setup"})
	assert.ErrorIs(t, err, ErrUnknownRoute)

	_, err = r.Resolve(nil, nil)
	assert.ErrorIs(t, err, ErrUnknownRoute)

	_, err = r.Resolve(doctree.Build(doctree.Index{}, nil), nil)
	assert.ErrorIs(t, err, ErrUnknownRoute)
}

func TestResolve_EveryEnumeratedPathResolves(t *testing.T) {
	fsys, _ := fixture()
	src := "content/docs/A/plain.md"
	tree := doctree.Build(doctree.Index{Groups: []doctree.Group{{Entries: []doctree.Entry{
		{Title: "Setup", Route: "getting-started/setup", Path: src},
		{Title: "Trailing", Route: "a/", Path: src},
		{Title: "Leading", Route: "/abs", Path: src},
		{Title: "Doubled", Route: "a//b", Path: src},
	}}}}, nil)
	r := New(fsys, "docs", nil, nil)

	for _, segs := range staticpaths.Enumerate(tree).Paths {
		doc, err := r.Resolve(tree, segs)
		require.NoError(t, err, "%q", segs)
		if !staticpaths.IsDefault(segs) {
			want, _ := staticpaths.Join(segs)
			assert.Equal(t, want, doc.Route)
		}
	}
}

func TestResolve_SourceUnreadable(t *testing.T) {
	fsys, tree := fixture()
	r := New(fsys, "docs", nil, nil)

	tests := []struct {
		name  string
		segs  []string
		cause error
	}{
		{"missing file", []string{"b", "missing"}, fs.ErrNotExist},
		{"malformed header", []string{"b", "broken"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := r.Resolve(tree, tt.segs)
			assert.Nil(t, doc)
			require.Error(t, err)
			assert.True(t, IsSourceUnreadable(err))
			assert.False(t, IsUnknownRoute(err))

			var se *SourceError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.segs[0]+"/"+tt.segs[1], se.Route)
			if tt.cause != nil {
				assert.ErrorIs(t, err, tt.cause)
			}
		})
	}
}

func TestResolve_ConcurrentCallsShareTree(t *testing.T) {
	fsys, tree := fixture()
	r := New(fsys, "docs", nil, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			segs := []string{"getting-started", "setup"}
			if i%2 == 1 {
				segs = []string{"b", "nested"}
			}
			if _, err := r.Resolve(tree, segs); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSplit(t *testing.T) {
	meta, body, err := Split([]byte("---\ntitle: X\n---\nBody"))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"title": "X"}, meta)
	assert.Equal(t, "Body", string(body))

	meta, body, err = Split([]byte("---\n---\nOnly body"))
	require.NoError(t, err)
	assert.Empty(t, meta)
	assert.Equal(t, "Only body", string(body))

	meta, body, err = Split([]byte("\ufeff---\ntitle: X\n---\nBody"))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"title": "X"}, meta, "a leading byte-order mark is dropped")
	assert.Equal(t, "Body", string(body))
}
