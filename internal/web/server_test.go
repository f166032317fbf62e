package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/kozaktomas/doppelganger/internal/analyzer"
	"github.com/kozaktomas/doppelganger/internal/catalog"
	"github.com/kozaktomas/doppelganger/internal/config"
	"github.com/kozaktomas/doppelganger/internal/detector"
	"github.com/kozaktomas/doppelganger/internal/entropy"
	"github.com/kozaktomas/doppelganger/internal/matching"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type noPose struct{}

func (noPose) DetectPose(context.Context, []byte) (*detector.PoseResult, error) {
	return &detector.PoseResult{Debug: detector.PoseDebug{Error: "No pose detected"}}, nil
}

func newTestServer(t *testing.T, imagesDir string) *Server {
	t.Helper()
	cat := catalog.New([]catalog.Entry{
		{ID: "monkey1", Image: "/monkeys/monkey1.jpg", Species: "Macaque"},
	})
	engine := entropy.NewEngine(entropy.NewMemoryStore())
	m := matching.NewMatcher(cat, engine, matching.DefaultTables())

	cfg := &config.Config{Web: config.WebConfig{ImagesDir: imagesDir}}
	return NewServer(cfg, Deps{
		Analyzer: analyzer.New(m, noPose{}, nil),
		Catalog:  cat,
		Index:    catalog.NewPoseIndex(),
		Version:  "test",
	}, 0, "127.0.0.1", zap.NewNop())
}

func serve(s *Server, method, path string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, httptest.NewRequest(method, path, nil))
	return recorder
}

func TestRoutes(t *testing.T) {
	s := newTestServer(t, "")

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodPost, "/session", http.StatusOK},
		{http.MethodGet, "/session/abc12345", http.StatusOK},
		{http.MethodPost, "/reset/abc12345", http.StatusOK},
		{http.MethodGet, "/monkeys", http.StatusOK},
		{http.MethodGet, "/config", http.StatusOK},
		{http.MethodGet, "/stats", http.StatusOK},
		{http.MethodPost, "/analyze", http.StatusBadRequest},
		{http.MethodGet, "/analyze", http.StatusMethodNotAllowed},
		{http.MethodGet, "/monkeys/monkey1.jpg", http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			assert.Equal(t, tc.status, serve(s, tc.method, tc.path).Code)
		})
	}
}

func TestRoutes_SessionLifecycle(t *testing.T) {
	s := newTestServer(t, "")

	rec := serve(s, http.MethodPost, "/session")
	var created struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Len(t, created.SessionID, 8)

	rec = serve(s, http.MethodGet, "/session/"+created.SessionID)
	var stats entropy.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, created.SessionID, stats.SessionID)
	assert.Equal(t, entropy.LevelStable, stats.EntropyLevel)
}

func TestRoutes_CORSPreflight(t *testing.T) {
	s := newTestServer(t, "")

	req := httptest.NewRequest(http.MethodOptions, "/analyze", nil)
	req.Header.Set("Origin", "https://frontend.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://frontend.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "X-Session-ID")
}

func TestRoutes_Images(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "monkey1.jpg"), []byte("jpeg"), 0o644))
	s := newTestServer(t, dir)

	rec := serve(s, http.MethodGet, "/monkeys/monkey1.jpg")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jpeg", rec.Body.String())

	// The catalog listing still wins over the image route.
	rec = serve(s, http.MethodGet, "/monkeys")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
