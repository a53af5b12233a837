package doctree

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"

	"gopkg.in/yaml.v3"
)

// IndexFile is the name of the index description inside a content folder.
const IndexFile = "index.yaml"

// ErrEmptyIndex is returned when an index file decodes to nothing.
var ErrEmptyIndex = errors.New("index is empty")

// Source produces the index for a content set.
type Source interface {
	Index() (Index, error)
	String() string
}

// Static returns a Source for an index declared in code.
func Static(ix Index) Source {
	return staticSource{ix: ix}
}

type staticSource struct {
	ix Index
}

func (s staticSource) Index() (Index, error) { return s.ix, nil }
func (s staticSource) String() string        { return "static:" + s.ix.Name }

// Folder returns a Source that reads index.yaml from dir inside fsys. Entry
// paths in the file are relative to the root of fsys, not to dir.
func Folder(fsys fs.FS, dir string) Source {
	return folderSource{fsys: fsys, dir: dir}
}

type folderSource struct {
	fsys fs.FS
	dir  string
}

func (s folderSource) String() string { return "folder:" + s.dir }

func (s folderSource) Index() (Index, error) {
	name := path.Join(s.dir, IndexFile)
	data, err := fs.ReadFile(s.fsys, name)
	if err != nil {
		return Index{}, fmt.Errorf("read %s: %w", name, err)
	}
	return ParseIndex(data)
}

// ParseIndex decodes a YAML index description.
func ParseIndex(data []byte) (Index, error) {
	var ix Index
	if err := yaml.Unmarshal(data, &ix); err != nil {
		return Index{}, fmt.Errorf("decode index: %w", err)
	}
	if ix.Name == "" && ix.Logo == "" && len(ix.Groups) == 0 {
		return Index{}, ErrEmptyIndex
	}
	return ix, nil
}

// Load reads the index from src and builds its Tree. A source that cannot be
// read or decoded is logged and yields nil; callers must report a nil tree
// as a configuration error.
func Load(src Source, log *slog.Logger) *Tree {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	ix, err := src.Index()
	if err != nil {
		log.Error("index load failed", "source", src.String(), "error", err)
		return nil
	}
	return Build(ix, log.With("source", src.String()))
}
