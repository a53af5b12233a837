package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/dgallion1/docsite/internal/config"
	"github.com/dgallion1/docsite/internal/metrics"
	"github.com/dgallion1/docsite/internal/site"
	"go.uber.org/automaxprocs/maxprocs"
)

// Version is set at build time via ldflags.
var Version = "dev"

// CLI is the root command line.
type CLI struct {
	EnvFile string           `name:"env-file" help:"Dotenv file loaded before the environment is read" default:".env"`
	Verbose bool             `short:"v" help:"Enable debug logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Serve   ServeCmd   `cmd:"" help:"Serve rendered pages and the JSON API"`
	Build   BuildCmd   `cmd:"" help:"Export every content set to static HTML"`
	Paths   PathsCmd   `cmd:"" help:"Print the static paths of a content set"`
	Resolve ResolveCmd `cmd:"" help:"Resolve route segments and print the document"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("docsite"),
		kong.Description("Documentation site content pipeline."),
		kong.UsageOnError(),
		kong.Vars{"version": Version},
		kong.BindTo(io.Writer(os.Stdout), (*io.Writer)(nil)),
	)

	// maxprocs.Set only fails on an invalid GOMAXPROCS, in which case the
	// runtime default stands.
	_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...any) {}))

	ctx.FatalIfErrorf(ctx.Run(&cli))
}

// app is the state shared by every command.
type app struct {
	cfg  config.Config
	log  *slog.Logger
	rec  *metrics.PrometheusRecorder
	site *site.Site

	// loadErr holds the joined errors of sets whose index failed to load.
	loadErr error
}

// setup loads configuration, builds the logger and loads every content set.
func (c *CLI) setup() (*app, error) {
	cfg, err := config.Load(c.EnvFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Verbose {
		cfg.LogLevel = slog.LevelDebug
	}

	log := newLogger(cfg, os.Stderr)
	slog.SetDefault(log)

	rec := metrics.NewPrometheusRecorder(nil)
	st := site.New(cfg, os.DirFS(cfg.ContentRoot), log, rec)
	a := &app{cfg: cfg, log: log, rec: rec, site: st}
	a.loadErr = st.LoadAll()
	return a, nil
}

func newLogger(cfg config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
