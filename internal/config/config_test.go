package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "CONTENT_SETS", "WORKER_COUNT", "LOG_LEVEL", "WATCH_INDEX", "REDIRECTS", "BUILD_INTERVAL", "MARKDOWN_EXTENSIONS"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, []ContentSet{{Name: "docs", Mount: "docs", Dir: "content/docs"}}, cfg.ContentSets)
	assert.Equal(t, 2, cfg.WorkerCount)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.True(t, cfg.WatchIndex)
	assert.Empty(t, cfg.Redirects)
	assert.Zero(t, cfg.BuildInterval)
	assert.Empty(t, cfg.MarkdownExtensions)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("CONTENT_SETS", "docs=content/docs, docs/microgl=content/docs/microgl")
	t.Setenv("WORKER_COUNT", "-1")
	t.Setenv("WATCH_DEBOUNCE", "2s")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STRICT_ROUTES", "true")
	t.Setenv("REDIRECTS", "/a=/docs/getting-started/features")
	t.Setenv("BUILD_INTERVAL", "15m")
	t.Setenv("MARKDOWN_EXTENSIONS", "gfm, highlight,")
	t.Setenv("SAFE_MARKDOWN", "1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, 2, cfg.WorkerCount, "non-positive values fall back to defaults")
	assert.Equal(t, 2*time.Second, cfg.WatchDebounce)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.True(t, cfg.StrictRoutes)
	assert.Equal(t, 15*time.Minute, cfg.BuildInterval)
	assert.Equal(t, []string{"gfm", "highlight"}, cfg.MarkdownExtensions)
	assert.True(t, cfg.SafeMarkdown)
	assert.Equal(t, []Redirect{{From: "/a", To: "/docs/getting-started/features"}}, cfg.Redirects)

	require.Len(t, cfg.ContentSets, 2)
	assert.Equal(t, ContentSet{Name: "microgl", Mount: "docs/microgl", Dir: "content/docs/microgl"}, cfg.ContentSets[1])

	s, ok := cfg.Set("microgl")
	require.True(t, ok)
	assert.Equal(t, "docs/microgl", s.Mount)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("OUTPUT_DIR=public\n"), 0o644))
	// godotenv never overrides a variable that is set, even to "".
	t.Setenv("OUTPUT_DIR", "")
	require.NoError(t, os.Unsetenv("OUTPUT_DIR"))

	cfg, err := Load(envFile, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "public", cfg.OutputDir)
}

func TestLoad_MalformedEnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("BAD-KEY=x\n"), 0o644))

	_, err := Load(envFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), envFile)
}

func TestParseContentSets_ExplicitName(t *testing.T) {
	sets := ParseContentSets("gl:/docs/microgl/=content/gl,,")
	assert.Equal(t, []ContentSet{{Name: "gl", Mount: "docs/microgl", Dir: "content/gl"}}, sets)
}

func TestValidate(t *testing.T) {
	base := Config{
		ContentSets: []ContentSet{{Name: "docs", Mount: "docs", Dir: "content/docs"}},
		LogFormat:   "json",
	}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"no sets", func(c *Config) { c.ContentSets = nil }},
		{"missing dir", func(c *Config) { c.ContentSets = []ContentSet{{Name: "docs", Mount: "docs"}} }},
		{"duplicate name", func(c *Config) {
			c.ContentSets = append(c.ContentSets, ContentSet{Name: "docs", Mount: "other", Dir: "x"})
		}},
		{"duplicate mount", func(c *Config) {
			c.ContentSets = append(c.ContentSets, ContentSet{Name: "other", Mount: "docs", Dir: "x"})
		}},
		{"relative redirect", func(c *Config) { c.Redirects = []Redirect{{From: "a", To: "/b"}} }},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }},
		{"negative build interval", func(c *Config) { c.BuildInterval = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			c.ContentSets = append([]ContentSet(nil), base.ContentSets...)
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
