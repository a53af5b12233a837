package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/dgallion1/docsite/internal/config"
	"github.com/dgallion1/docsite/internal/metrics"
	"github.com/dgallion1/docsite/internal/pipeline"
	"github.com/dgallion1/docsite/internal/site"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIndex = `name: Docs
groups:
  - title: Guide
    items:
      - title: Setup
        route: guide/setup
        path: content/docs/setup.md
      - title: Broken
        route: guide/broken
        path: content/docs/missing.md
`

const microglIndex = `name: microgl
groups:
  - title: Concepts
    items:
      - title: Canvas
        route: canvas
        path: content/microgl/canvas.md
`

func testConfig() config.Config {
	return config.Config{
		ContentSets: []config.ContentSet{
			{Name: "docs", Mount: "docs", Dir: "content/docs"},
			{Name: "microgl", Mount: "docs/microgl", Dir: "content/microgl"},
		},
		Redirects:           []config.Redirect{{From: "/old", To: "/docs/guide/setup/"}},
		OutputDir:           "unused",
		WorkerCount:         1,
		MaxQueueSize:        2,
		MaxConcurrentRender: 1,
		JobTTL:              time.Hour,
	}
}

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"content/docs/index.yaml":    {Data: []byte(testIndex)},
		"content/docs/setup.md":      {Data: []byte("---\ntitle: Setup\ntags: [intro]\n---\n# Setup\n\nInstall the tool with one command.\n")},
		"content/microgl/index.yaml": {Data: []byte(microglIndex)},
		"content/microgl/canvas.md":  {Data: []byte("# Canvas\n\nPixels live here.\n")},
	}
}

func newTestServer(t *testing.T, cfg config.Config, fsys fstest.MapFS) *Server {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	rec := metrics.NewPrometheusRecorder(nil)
	st := site.New(cfg, fsys, log, rec)
	_ = st.LoadAll()
	orch := pipeline.NewOrchestrator(cfg, st, log, rec)
	return NewServer(st, orch, rec.Handler(), log, cfg)
}

func do(t *testing.T, h http.Handler, method, target string, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, testConfig(), testFS())
	rr := do(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	fsys := testFS()
	fsys["content/microgl/index.yaml"] = &fstest.MapFile{Data: []byte("groups: [oops\n")}
	srv = newTestServer(t, testConfig(), fsys)
	rr = do(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), `"microgl"`)
}

func TestListSets(t *testing.T) {
	srv := newTestServer(t, testConfig(), testFS())
	rr := do(t, srv, http.MethodGet, "/api/sets", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Sets []setInfo `json:"sets"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Sets, 2)
	assert.Equal(t, "docs", body.Sets[0].Name)
	assert.Equal(t, "/docs/", body.Sets[0].URL)
	assert.True(t, body.Sets[0].Loaded)
	assert.Equal(t, 2, body.Sets[0].Routes)
}

func TestPaths(t *testing.T) {
	srv := newTestServer(t, testConfig(), testFS())
	rr := do(t, srv, http.MethodGet, "/api/sets/docs/paths", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"paths":[["guide","broken"],["guide","setup"],[""]],"fallback":false}`, rr.Body.String())

	rr = do(t, srv, http.MethodGet, "/api/sets/nope/paths", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDocument(t *testing.T) {
	srv := newTestServer(t, testConfig(), testFS())

	tests := []struct {
		name   string
		target string
		code   int
		route  string
	}{
		{"explicit route", "/api/sets/docs/docs/guide/setup", http.StatusOK, "guide/setup"},
		{"default route", "/api/sets/docs/docs", http.StatusOK, "guide/setup"},
		{"default route with slash", "/api/sets/docs/docs/", http.StatusOK, "guide/setup"},
		{"unknown route", "/api/sets/docs/docs/guide/unknown-page", http.StatusNotFound, ""},
		{"unreadable source", "/api/sets/docs/docs/guide/broken", http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodGet, tt.target, "")
			require.Equal(t, tt.code, rr.Code, rr.Body.String())
			if tt.route == "" {
				return
			}
			var doc map[string]any
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &doc))
			assert.Equal(t, tt.route, doc["route"])
			assert.Equal(t, "# Setup\n\nInstall the tool with one command.\n", doc["content"])
			assert.Equal(t, "Setup", doc["frontMatter"].(map[string]any)["title"])
			assert.Contains(t, doc, "document")
		})
	}
}

func TestPages(t *testing.T) {
	srv := newTestServer(t, testConfig(), testFS())

	rr := do(t, srv, http.MethodGet, "/docs/guide/setup/", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rr.Body.String(), "<title>Setup · Docs</title>")

	rr = do(t, srv, http.MethodGet, "/docs", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Install the tool")

	// The nested mount wins over the shorter one.
	rr = do(t, srv, http.MethodGet, "/docs/microgl/canvas", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Pixels live here.")

	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/docs/guide/unknown-page", "").Code)
	assert.Equal(t, http.StatusInternalServerError, do(t, srv, http.MethodGet, "/docs/guide/broken", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/elsewhere", "").Code)
}

func TestRedirects(t *testing.T) {
	srv := newTestServer(t, testConfig(), testFS())

	rr := do(t, srv, http.MethodGet, "/old/", "")
	assert.Equal(t, http.StatusMovedPermanently, rr.Code)
	assert.Equal(t, "/docs/guide/setup/", rr.Header().Get("Location"))

	rr = do(t, srv, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/docs/", rr.Header().Get("Location"))
}

func TestSearchIndex(t *testing.T) {
	srv := newTestServer(t, testConfig(), testFS())
	rr := do(t, srv, http.MethodGet, "/docs/search.json", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Records []struct {
			Route string `json:"route"`
			URL   string `json:"url"`
		} `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Records, 1)
	assert.Equal(t, "guide/setup", body.Records[0].Route)
	assert.Equal(t, "/docs/guide/setup/#setup", body.Records[0].URL)
}

func TestBuilds(t *testing.T) {
	cfg := testConfig()
	cfg.DocsiteAPIKey = "secret"
	srv := newTestServer(t, cfg, testFS())

	rr := do(t, srv, http.MethodPost, "/api/builds", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(t, srv, http.MethodPost, "/api/builds", `{"sets":["nope"]}`, "Authorization", "Bearer secret")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// The orchestrator is not started, so the job stays queued.
	rr = do(t, srv, http.MethodPost, "/api/builds", `{"sets":["docs"]}`, "Authorization", "Bearer secret")
	require.Equal(t, http.StatusAccepted, rr.Code)
	var queued map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &queued))
	require.NotEmpty(t, queued["job_id"])
	assert.Equal(t, "/api/builds/"+queued["job_id"]+"/status", queued["poll_url"])

	rr = do(t, srv, http.MethodGet, queued["poll_url"], "", "Authorization", "Bearer secret")
	require.Equal(t, http.StatusOK, rr.Code)
	var snap pipeline.JobSnapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	assert.Equal(t, pipeline.StatusQueued, snap.Status)
	assert.Equal(t, []string{"docs"}, snap.Sets)

	rr = do(t, srv, http.MethodGet, "/api/builds/missing/status", "", "Authorization", "Bearer secret")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, testConfig(), testFS())
	do(t, srv, http.MethodGet, "/docs/guide/unknown-page", "")

	rr := do(t, srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "docsite_resolve_results_total")
	assert.Contains(t, rr.Body.String(), `outcome="unknown_route"`)
}
