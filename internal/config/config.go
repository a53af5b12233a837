package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ContentSet names one index-driven folder and the URL prefix it is served at.
type ContentSet struct {
	Name  string // Short identifier used in API paths
	Mount string // URL prefix without slashes, e.g. "docs" or "docs/microgl"
	Dir   string // Folder holding index.yaml, relative to ContentRoot
}

// Redirect maps a URL path to another.
type Redirect struct {
	From string
	To   string
}

type Config struct {
	Port string

	// Content
	ContentRoot  string // Entry paths in index files are relative to this directory
	ContentSets  []ContentSet
	StrictRoutes bool // Refuse trees with duplicate routes
	Redirects    []Redirect

	// Auth for build triggers; empty disables the check
	DocsiteAPIKey string

	// Static export
	OutputDir           string
	WorkerCount         int
	MaxQueueSize        int
	MaxConcurrentRender int
	JobTTL              time.Duration
	SearchSectionWords  int
	BuildInterval       time.Duration // Periodic export while serving; zero disables

	// Rendering
	MarkdownExtensions []string // goldmark extension names; empty means defaults
	SafeMarkdown       bool     // Drop raw HTML from Markdown sources

	// Index watching
	WatchIndex    bool
	WatchDebounce time.Duration

	// Logging
	LogLevel  slog.Level
	LogFormat string // "json" or "text"
}

// Load reads configuration from the environment. Files listed in envFiles
// are loaded first; missing files are skipped, existing variables are never
// overwritten and a file that does not parse is an error.
func Load(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Config{}, fmt.Errorf("load env file %s: %w", f, err)
		}
	}

	cfg := Config{
		Port: envOr("PORT", "8090"),

		ContentRoot:  envOr("CONTENT_ROOT", "."),
		StrictRoutes: envBool("STRICT_ROUTES", false),

		DocsiteAPIKey: os.Getenv("DOCSITE_API_KEY"),

		OutputDir:           envOr("OUTPUT_DIR", "out"),
		WorkerCount:         envInt("WORKER_COUNT", 2),
		MaxQueueSize:        envInt("MAX_QUEUE_SIZE", 16),
		MaxConcurrentRender: envInt("MAX_CONCURRENT_RENDER", 8),
		JobTTL:              envDuration("JOB_TTL", 1*time.Hour),
		SearchSectionWords:  envInt("SEARCH_SECTION_SIZE", 300),
		BuildInterval:       envDuration("BUILD_INTERVAL", 0),

		MarkdownExtensions: envList("MARKDOWN_EXTENSIONS"),
		SafeMarkdown:       envBool("SAFE_MARKDOWN", false),

		WatchIndex:    envBool("WATCH_INDEX", true),
		WatchDebounce: envDuration("WATCH_DEBOUNCE", 500*time.Millisecond),

		LogLevel:  envLevel("LOG_LEVEL", slog.LevelInfo),
		LogFormat: envOr("LOG_FORMAT", "json"),
	}

	cfg.ContentSets = ParseContentSets(envOr("CONTENT_SETS", "docs=content/docs"))
	cfg.Redirects = ParseRedirects(os.Getenv("REDIRECTS"))

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 16
	}
	if cfg.MaxConcurrentRender <= 0 {
		cfg.MaxConcurrentRender = 8
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.SearchSectionWords <= 0 {
		cfg.SearchSectionWords = 300
	}
	if cfg.WatchDebounce <= 0 {
		cfg.WatchDebounce = 500 * time.Millisecond
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if len(c.ContentSets) == 0 {
		return errors.New("CONTENT_SETS must name at least one content set")
	}
	names := map[string]bool{}
	mounts := map[string]bool{}
	for _, s := range c.ContentSets {
		if s.Name == "" || s.Mount == "" || s.Dir == "" {
			return fmt.Errorf("CONTENT_SETS entry %q is incomplete", s.Mount+"="+s.Dir)
		}
		if names[s.Name] {
			return fmt.Errorf("CONTENT_SETS: duplicate set name %q", s.Name)
		}
		if mounts[s.Mount] {
			return fmt.Errorf("CONTENT_SETS: duplicate mount %q", s.Mount)
		}
		names[s.Name] = true
		mounts[s.Mount] = true
	}
	for _, r := range c.Redirects {
		if !strings.HasPrefix(r.From, "/") || r.To == "" {
			return fmt.Errorf("REDIRECTS entry %q=%q is invalid", r.From, r.To)
		}
	}
	if c.BuildInterval < 0 {
		return fmt.Errorf("BUILD_INTERVAL must not be negative, got %s", c.BuildInterval)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}
	return nil
}

// Set returns the content set with the given name.
func (c Config) Set(name string) (ContentSet, bool) {
	for _, s := range c.ContentSets {
		if s.Name == name {
			return s, true
		}
	}
	return ContentSet{}, false
}

// ParseContentSets parses "mount=dir" pairs separated by commas. A pair may
// carry an explicit name as "name:mount=dir"; otherwise the name is the last
// element of the mount.
func ParseContentSets(v string) []ContentSet {
	var sets []ContentSet
	for _, pair := range strings.Split(v, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		lhs, dir, _ := strings.Cut(pair, "=")
		name, mount, named := strings.Cut(lhs, ":")
		if !named {
			mount = name
		}
		mount = strings.Trim(strings.TrimSpace(mount), "/")
		if !named {
			name = path.Base(mount)
		}
		sets = append(sets, ContentSet{
			Name:  strings.TrimSpace(name),
			Mount: mount,
			Dir:   strings.TrimSpace(dir),
		})
	}
	return sets
}

// ParseRedirects parses "/from=/to" pairs separated by commas.
func ParseRedirects(v string) []Redirect {
	var out []Redirect
	for _, pair := range strings.Split(v, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		from, to, _ := strings.Cut(pair, "=")
		out = append(out, Redirect{From: strings.TrimSpace(from), To: strings.TrimSpace(to)})
	}
	return out
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func envLevel(key string, fallback slog.Level) slog.Level {
	if v := os.Getenv(key); v != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(v)); err == nil {
			return lvl
		}
	}
	return fallback
}
