package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dashcli/internal/config"
	"dashcli/internal/retry"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Store.DataDir = t.TempDir()
	cfg.Security.RateLimit.Enabled = false
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestApp(t *testing.T, cfg *config.Config) *Application {
	t.Helper()
	a, err := New(cfg, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.closeStore() })
	return a
}

func serve(a *Application, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	return rec
}

func TestNewWiresServices(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	require.NotNil(t, a.Services)
	assert.NotNil(t, a.Services.Dashboard)
	assert.NotNil(t, a.Services.Health)
	assert.Equal(t, 10, a.Services.Cache.Stats().MaxSize)
	assert.IsType(t, &retry.MemoryStore{}, a.retryStore)
	assert.Equal(t, ":0", a.Server.Addr)
}

func TestRoutes(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"health", http.MethodGet, "/api/health", "", http.StatusOK},
		{"ready", http.MethodGet, "/api/health/ready", "", http.StatusOK},
		{"live", http.MethodGet, "/api/health/live", "", http.StatusOK},
		{"version", http.MethodGet, "/api/version", "", http.StatusOK},
		{"files", http.MethodGet, "/api/files", "", http.StatusOK},
		{"datasets", http.MethodGet, "/api/datasets", "", http.StatusOK},
		{"register", http.MethodPut, "/api/datasets/sales", `{"rows":[{"date":"2025-03-01","amount":5}]}`, http.StatusOK},
		{"cache stats", http.MethodGet, "/api/analytics/cache", "", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", "", http.StatusOK},
		{"unknown route", http.MethodGet, "/api/nope", "", http.StatusNotFound},
		{"wrong method", http.MethodPatch, "/api/analytics/histogram", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(a, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
			assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		})
	}
}

func TestAnalyticsEndToEnd(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	rec := serve(a, http.MethodPut, "/api/datasets/sales",
		`{"rows":[{"date":"2025-01-06","amount":10},{"date":"2025-01-07","amount":20},{"date":"2025-04-01","amount":5}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	query := `{"dataset":"sales","date_column":"date","value_columns":["amount"],"period":"quarterly"}`
	for i, wantCached := range []bool{false, true} {
		rec = serve(a, http.MethodPost, "/api/analytics/timeseries", query)
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)

		var resp struct {
			Cached bool `json:"cached"`
			Result []struct {
				Key   string             `json:"key"`
				Sums  map[string]float64 `json:"sums"`
				Count int                `json:"count"`
			} `json:"result"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, wantCached, resp.Cached)
		require.Len(t, resp.Result, 2)
		assert.Equal(t, "2025-Q1", resp.Result[0].Key)
		assert.Equal(t, 30.0, resp.Result[0].Sums["amount"])
		assert.Equal(t, "2025-Q2", resp.Result[1].Key)
	}

	// Cache counters reach the Prometheus exporter
	rec = serve(a, http.MethodGet, "/metrics", "")
	assert.Contains(t, rec.Body.String(), "dashcli_cache_hits")
}

func TestRateLimitEnabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Security.RateLimit.Enabled = true
	cfg.Security.RateLimit.RPS = 0.001
	cfg.Security.RateLimit.Burst = 1
	a := newTestApp(t, cfg)

	assert.Equal(t, http.StatusOK, serve(a, http.MethodGet, "/api/health/live", "").Code)
	rec := serve(a, http.MethodGet, "/api/health/live", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestMetricsDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Telemetry.MetricsEnabled = false
	a := newTestApp(t, cfg)

	assert.Equal(t, http.StatusNotFound, serve(a, http.MethodGet, "/metrics", "").Code)
}

func TestSQLiteStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Driver = "sqlite"
	cfg.Store.Path = filepath.Join(t.TempDir(), "retry.db")
	a := newTestApp(t, cfg)

	assert.IsType(t, &retry.SQLiteStore{}, a.retryStore)
	assert.Equal(t, http.StatusOK, serve(a, http.MethodGet, "/api/health/ready", "").Code)
	require.NoError(t, a.Stop(context.Background()))
}

func TestStartStop(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Port = 0
	a := newTestApp(t, cfg)

	require.NoError(t, a.Start(context.Background()))
	addr := a.Addr()
	assert.NotEqual(t, ":0", addr)

	resp, err := http.Get(fmt.Sprintf("http://%s/api/health/live", addr))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, a.Stop(context.Background()))

	select {
	case err, ok := <-a.Done():
		assert.False(t, ok, "unexpected serve error: %v", err)
	case <-time.After(time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
