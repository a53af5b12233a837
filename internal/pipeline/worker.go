package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dgallion1/docsite/internal/doctree"
	"github.com/dgallion1/docsite/internal/metrics"
	"github.com/dgallion1/docsite/internal/render"
	"github.com/dgallion1/docsite/internal/search"
	"github.com/dgallion1/docsite/internal/site"
	"github.com/dgallion1/docsite/internal/staticpaths"
)

// SearchFile is the per-set search index written next to the pages.
const SearchFile = site.SearchFile

// Worker exports content sets to static HTML.
type Worker struct {
	site      *site.Site
	log       *slog.Logger
	rec       metrics.Recorder
	searchCfg search.Config

	maxConcurrentRender int
}

func NewWorker(st *site.Site, log *slog.Logger, rec metrics.Recorder, searchCfg search.Config, maxRender int) *Worker {
	if maxRender < 1 {
		maxRender = 1
	}
	return &Worker{
		site:                st,
		log:                 log,
		rec:                 metrics.OrNoop(rec),
		searchCfg:           searchCfg,
		maxConcurrentRender: maxRender,
	}
}

// Process runs the full export for a job. Page failures are recorded on the
// job and do not stop the export; the final status reflects them.
func (w *Worker) Process(ctx context.Context, job *Job) {
	start := time.Now()
	log := w.log.With("job_id", job.ID)

	job.SetStatus(StatusLoading, "loading")
	sets, err := w.selectSets(job.Sets)
	if err != nil {
		log.Error("export rejected", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "loading")
		w.rec.ObserveBuild(string(StatusFailed), time.Since(start))
		return
	}

	for _, s := range sets {
		if ctx.Err() != nil {
			break
		}
		w.exportSet(ctx, job, s, log.With("set", s.Name))
	}

	status := job.Finish()
	if err := ctx.Err(); err != nil {
		job.AddError(fmt.Sprintf("export interrupted: %s", err))
		job.SetStatus(StatusFailed, "cancelled")
		status = StatusFailed
	}

	snap := job.Snapshot()
	log.Info("export finished",
		"status", status,
		"pages_written", snap.Progress.PagesWritten,
		"pages_unchanged", snap.Progress.PagesUnchanged,
		"pages_failed", snap.Progress.PagesFailed,
		"duration", time.Since(start),
	)
	w.rec.ObserveBuild(string(status), time.Since(start))
}

func (w *Worker) selectSets(names []string) ([]*site.Set, error) {
	if len(names) == 0 {
		return w.site.Sets(), nil
	}
	out := make([]*site.Set, 0, len(names))
	for _, name := range names {
		s, ok := w.site.Set(name)
		if !ok {
			return nil, fmt.Errorf("unknown content set %q", name)
		}
		out = append(out, s)
	}
	return out, nil
}

type pageResult struct {
	route     string
	url       string
	title     string
	outline   []*render.Section
	unchanged bool
	err       error
}

// exportSet renders every static path of one set against a single tree
// snapshot, then writes the set's search index.
func (w *Worker) exportSet(ctx context.Context, job *Job, s *site.Set, log *slog.Logger) {
	tree := s.Tree()
	if tree == nil {
		msg := fmt.Sprintf("set %s: no document tree", s.Name)
		if err := s.Err(); err != nil {
			msg = fmt.Sprintf("set %s: %s", s.Name, err)
		}
		log.Error("set skipped", "error", msg)
		job.AddError(msg)
		return
	}

	job.SetStatus(StatusRendering, "rendering "+s.Name)
	paths := staticpaths.Enumerate(tree)
	job.AddTotalPages(len(paths.Paths))
	log.Info("exporting set", "pages", len(paths.Paths))

	results := make([]pageResult, len(paths.Paths))
	sem := make(chan struct{}, w.maxConcurrentRender)
	var wg sync.WaitGroup

dispatch:
	for i, segs := range paths.Paths {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break dispatch
		}
		wg.Add(1)
		go func(i int, segs []string) {
			defer wg.Done()
			defer func() { <-sem }()

			r := w.exportPage(job.OutputDir, s, tree, segs)
			results[i] = r
			if r.err != nil {
				log.Warn("page failed", "path", strings.Join(segs, "/"), "error", r.err)
				job.AddError(fmt.Sprintf("set %s: %s", s.Name, r.err))
				job.RecordPage(false, false, true)
				return
			}
			job.RecordPage(!r.unchanged, r.unchanged, false)
			if !r.unchanged {
				w.rec.IncPagesWritten(s.Name)
			}
		}(i, segs)
	}
	wg.Wait()

	if ctx.Err() != nil {
		return
	}

	job.SetStatus(StatusIndexing, "indexing "+s.Name)
	idx := search.NewIndex(w.searchCfg)
	for i, r := range results {
		// The default path repeats the first entry's page.
		if r.err != nil || staticpaths.IsDefault(paths.Paths[i]) {
			continue
		}
		idx.AddPage(r.route, r.url, r.title, r.outline)
	}

	var buf bytes.Buffer
	if err := idx.WriteJSON(&buf); err != nil {
		job.AddError(fmt.Sprintf("set %s: search index: %s", s.Name, err))
		return
	}
	target, err := outputPath(job.OutputDir, s.Mount, "", SearchFile)
	if err == nil {
		_, err = writeIfChanged(target, buf.Bytes())
	}
	if err != nil {
		log.Error("search index not written", "error", err)
		job.AddError(fmt.Sprintf("set %s: search index: %s", s.Name, err))
		return
	}
	log.Info("search index written", "records", len(idx.Records))
}

func (w *Worker) exportPage(outDir string, s *site.Set, tree *doctree.Tree, segs []string) pageResult {
	doc, err := s.ResolveIn(tree, segs)
	if err != nil {
		return pageResult{err: err}
	}
	page, err := s.Render(doc)
	if err != nil {
		return pageResult{err: fmt.Errorf("render %q: %w", doc.Route, err)}
	}

	data := s.PageData(doc, page)
	var buf bytes.Buffer
	if err := site.WritePage(&buf, data); err != nil {
		return pageResult{err: fmt.Errorf("template %q: %w", doc.Route, err)}
	}

	dir, _ := staticpaths.Join(segs)
	target, err := outputPath(outDir, s.Mount, dir, "index.html")
	if err != nil {
		return pageResult{err: err}
	}
	unchanged, err := writeIfChanged(target, buf.Bytes())
	if err != nil {
		return pageResult{err: fmt.Errorf("write %q: %w", doc.Route, err)}
	}
	return pageResult{
		route:     doc.Route,
		url:       s.URL(doc.Route),
		title:     data.Title,
		outline:   page.Outline,
		unchanged: unchanged,
	}
}

// outputPath maps a mount and route directory to a file under outDir,
// refusing routes that would escape it.
func outputPath(outDir, mount, route, name string) (string, error) {
	target := filepath.Join(outDir, filepath.FromSlash(mount), filepath.FromSlash(route), name)
	rel, err := filepath.Rel(outDir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("route %q escapes the output directory", route)
	}
	return target, nil
}

// writeIfChanged writes data to target unless the file already holds the
// same bytes. It reports whether the write was skipped.
func writeIfChanged(target string, data []byte) (bool, error) {
	if existing, err := os.ReadFile(target); err == nil && ContentHashHex(existing) == ContentHashHex(data) {
		return true, nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return false, err
	}
	return false, os.WriteFile(target, data, 0o644)
}
