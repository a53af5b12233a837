package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dgallion1/docsite/internal/api"
	"github.com/dgallion1/docsite/internal/pipeline"
	"github.com/dgallion1/docsite/internal/site"
	"github.com/dgallion1/docsite/internal/watch"
)

// ServeCmd runs the preview server.
type ServeCmd struct {
	Port string `help:"Listen port, overriding PORT"`
}

func (s *ServeCmd) Run(cli *CLI) error {
	a, err := cli.setup()
	if err != nil {
		return err
	}
	if a.loadErr != nil {
		// Broken sets are reported by /health; the rest are still served.
		a.log.Warn("some content sets failed to load", "error", a.loadErr)
	}
	port := a.cfg.Port
	if s.Port != "" {
		port = s.Port
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orch := pipeline.NewOrchestrator(a.cfg, a.site, a.log, a.rec)
	orch.Start(ctx)

	var sched *pipeline.Scheduler
	if a.cfg.BuildInterval > 0 {
		sched, err = pipeline.NewScheduler(orch, a.cfg.OutputDir, a.log)
		if err == nil {
			_, err = sched.Every(a.cfg.BuildInterval)
		}
		if err != nil {
			orch.Stop()
			return err
		}
		sched.Start()
	}

	watchDone := make(chan struct{})
	if a.cfg.WatchIndex {
		w, err := watch.New(watchTargets(a.cfg.ContentRoot, a.site), a.cfg.WatchDebounce, a.log)
		if err != nil {
			if sched != nil {
				sched.Stop()
			}
			orch.Stop()
			return err
		}
		go func() {
			defer close(watchDone)
			w.Run(ctx)
		}()
	} else {
		close(watchDone)
	}

	srv := api.NewServer(a.site, orch, a.rec.Handler(), a.log, a.cfg)
	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		<-ctx.Done()
		a.log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	a.log.Info("starting docsite", "port", port, "sets", len(a.site.Sets()))
	err = httpServer.ListenAndServe()
	stop()
	// The scheduler submits into the orchestrator queue, so it stops first.
	if sched != nil {
		if serr := sched.Stop(); serr != nil {
			a.log.Warn("scheduler shutdown", "error", serr)
		}
	}
	orch.Stop()
	<-watchDone
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func watchTargets(root string, st *site.Site) []watch.Target {
	targets := make([]watch.Target, 0, len(st.Sets()))
	for _, s := range st.Sets() {
		targets = append(targets, watch.Target{
			Name:      s.Name,
			IndexPath: filepath.Join(root, filepath.FromSlash(s.IndexPath())),
			Set:       s,
		})
	}
	return targets
}

// BuildCmd runs a static export in the foreground.
type BuildCmd struct {
	Output string   `short:"o" help:"Output directory, overriding OUTPUT_DIR"`
	Set    []string `help:"Content sets to export (default all)"`
}

func (b *BuildCmd) Run(cli *CLI, out io.Writer) error {
	a, err := cli.setup()
	if err != nil {
		return err
	}
	if a.loadErr != nil {
		return fmt.Errorf("content sets not loaded: %w", a.loadErr)
	}
	outDir := a.cfg.OutputDir
	if b.Output != "" {
		outDir = b.Output
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	job := pipeline.NewJob(b.Set, outDir)
	orch := pipeline.NewOrchestrator(a.cfg, a.site, a.log, a.rec)
	orch.NewWorker().Process(ctx, job)

	snap := job.Snapshot()
	fmt.Fprintf(out, "%s: %d written, %d unchanged, %d failed of %d pages in %s\n",
		snap.Status,
		snap.Progress.PagesWritten,
		snap.Progress.PagesUnchanged,
		snap.Progress.PagesFailed,
		snap.Progress.TotalPages,
		outDir,
	)
	for _, e := range snap.Progress.Errors {
		fmt.Fprintf(out, "  %s\n", e)
	}
	if snap.Status != pipeline.StatusCompleted {
		return fmt.Errorf("build %s", snap.Status)
	}
	return nil
}

// PathsCmd prints the static path result of one set.
type PathsCmd struct {
	Set string `required:"" help:"Content set name"`
}

func (p *PathsCmd) Run(cli *CLI, out io.Writer) error {
	a, err := cli.setup()
	if err != nil {
		return err
	}
	s, err := loadedSet(a, p.Set)
	if err != nil {
		return err
	}
	return printJSON(out, s.Paths())
}

// ResolveCmd resolves segments in one set and prints the document.
type ResolveCmd struct {
	Set      string   `required:"" help:"Content set name"`
	Segments []string `arg:"" optional:"" help:"Route segments; none resolves the default route"`
}

func (r *ResolveCmd) Run(cli *CLI, out io.Writer) error {
	a, err := cli.setup()
	if err != nil {
		return err
	}
	s, err := loadedSet(a, r.Set)
	if err != nil {
		return err
	}
	segments := r.Segments
	if len(segments) == 0 {
		segments = []string{""}
	}
	doc, err := s.Resolve(segments)
	if err != nil {
		return err
	}
	return printJSON(out, doc)
}

func loadedSet(a *app, name string) (*site.Set, error) {
	s, ok := a.site.Set(name)
	if !ok {
		return nil, fmt.Errorf("unknown content set %q", name)
	}
	if s.Tree() == nil {
		return nil, fmt.Errorf("content set %q has no document tree: %w", name, s.Err())
	}
	return s, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
