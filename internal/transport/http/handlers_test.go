package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dashcli/internal/cache"
	apierrors "dashcli/internal/errors"
	"dashcli/internal/middleware"
	"dashcli/internal/retry"
	"dashcli/internal/services"
)

type testServer struct {
	router  http.Handler
	service *services.DashboardService
	dataDir string
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := quietLogger()
	errorHandler := apierrors.NewErrorHandler(logger, false)
	validator := middleware.NewValidator(logger)
	dataDir := t.TempDir()

	svc := services.NewDashboardService(services.DashboardOptions{
		Cache:  cache.New[any](cache.WithMaxSize(10)),
		Retry:  retry.DefaultConfig(),
		Logger: logger,
	})
	health := services.NewHealthService("test", "", svc, retry.NewMemoryStore(), logger)

	r := chi.NewRouter()
	r.NotFound(errorHandler.NotFound)
	dh := NewDatasetHandler(svc, validator, dataDir, logger, errorHandler)
	r.Mount("/datasets", dh.Routes())
	r.Get("/files", dh.ListFiles)
	r.Mount("/analytics", NewAnalyticsHandler(svc, validator, logger, errorHandler).Routes())
	hh := NewHealthHandler(health, logger)
	r.Mount("/health", hh.Routes())
	r.Get("/version", hh.Version)

	return &testServer{router: r, service: svc, dataDir: dataDir}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

const salesBody = `{"rows":[
	{"date":"2025-01-05","region":"north","amount":100},
	{"date":"20250115","region":"south","amount":"250"},
	{"date":"31.01.2025","region":"north","amount":150},
	{"date":"not a date","region":"east","amount":300},
	{"date":"02/10/2025","amount":"200"}
]}`

func (s *testServer) seed(t *testing.T) {
	t.Helper()
	rec := s.do(t, http.MethodPut, "/datasets/sales", salesBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestDatasetRoutes(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPut, "/datasets/sales", salesBody)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "sales", body["name"])
	assert.Equal(t, float64(5), body["rows"])

	rec = s.do(t, http.MethodGet, "/datasets", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)

	rec = s.do(t, http.MethodGet, "/datasets/sales", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPut, "/datasets/empty", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "rows are required")

	rec = s.do(t, http.MethodDelete, "/datasets/sales", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodDelete, "/datasets/sales", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeBody(t, rec)["error_code"])
}

func TestLoadDatasetRoute(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.dataDir, "a.json"),
		[]byte(`[{"date":"2025-01-01","amount":1}]`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(s.dataDir, "b.csv"),
		[]byte("date,amount\n2025-02-01,2\n2025-03-01,3\n"), 0644))

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantRows   float64
	}{
		{name: "single file", body: `{"paths":["a.json"]}`, wantStatus: http.StatusOK, wantRows: 1},
		{name: "chunks", body: `{"paths":["a.json","b.csv"],"concurrency":2}`, wantStatus: http.StatusOK, wantRows: 3},
		{name: "escaping data dir", body: `{"paths":["../secret.json"]}`, wantStatus: http.StatusBadRequest},
		{name: "absolute path", body: `{"paths":["/etc/passwd"]}`, wantStatus: http.StatusBadRequest},
		{name: "no paths", body: `{"paths":[]}`, wantStatus: http.StatusBadRequest},
		{name: "missing file", body: `{"paths":["nope.json"]}`, wantStatus: http.StatusNotFound},
		{name: "pattern", body: `{"pattern":"*"}`, wantStatus: http.StatusOK, wantRows: 3},
		{name: "path and pattern", body: `{"paths":["a.json"],"pattern":"*.csv"}`, wantStatus: http.StatusOK, wantRows: 3},
		{name: "pattern without matches", body: `{"pattern":"*.jsonl"}`, wantStatus: http.StatusNotFound},
		{name: "pattern escaping data dir", body: `{"pattern":"../*"}`, wantStatus: http.StatusBadRequest},
		{name: "empty body", body: `{}`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/datasets/loaded/load", tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantRows, decodeBody(t, rec)["rows"])
			}
		})
	}

	rec := s.do(t, http.MethodGet, "/datasets/loaded/retry", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(0), body["retry_count"])
	assert.Equal(t, true, body["can_retry"])

	rec = s.do(t, http.MethodDelete, "/datasets/loaded/retry", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestListFilesRoute(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/files", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	for _, name := range []string{"sales_20250203.csv", "sales_20250106.json", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(s.dataDir, name), []byte("[]"), 0644))
	}

	rec = s.do(t, http.MethodGet, "/files?pattern=sales_*", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 2)
	assert.Equal(t, "sales_20250106.json", listed[0]["path"])
	assert.Equal(t, "json", listed[0]["format"])
	assert.Equal(t, "2025-01-06T00:00:00Z", listed[0]["date"])

	rec = s.do(t, http.MethodGet, "/files?pattern=../*", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyticsRoutes(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantCode   string
		check      func(t *testing.T, result interface{})
	}{
		{
			name:       "monthly time series",
			path:       "/analytics/timeseries",
			body:       `{"dataset":"sales","date_column":"date","value_columns":["amount"],"period":"monthly"}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, result interface{}) {
				buckets := result.([]interface{})
				require.Len(t, buckets, 2)
				first := buckets[0].(map[string]interface{})
				assert.Equal(t, "2025-01", first["key"])
				assert.Equal(t, float64(3), first["count"])
				assert.Equal(t, 500.0, first["sums"].(map[string]interface{})["amount"])
			},
		},
		{
			name:       "all periods",
			path:       "/analytics/timeseries",
			body:       `{"dataset":"sales","date_column":"date"}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, result interface{}) {
				assert.Contains(t, result, "weekly")
				assert.Contains(t, result, "yearly")
			},
		},
		{
			name:       "missing date column",
			path:       "/analytics/timeseries",
			body:       `{"dataset":"sales"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "unknown period",
			path:       "/analytics/timeseries",
			body:       `{"dataset":"sales","date_column":"date","period":"daily"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "unknown dataset",
			path:       "/analytics/timeseries",
			body:       `{"dataset":"nope","date_column":"date"}`,
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name:       "distribution with pareto",
			path:       "/analytics/distribution",
			body:       `{"dataset":"sales","category_column":"region","value_column":"amount","top_n":2,"pareto":true}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, result interface{}) {
				m := result.(map[string]interface{})
				entries := m["entries"].([]interface{})
				require.Len(t, entries, 2)
				assert.Equal(t, "east", entries[0].(map[string]interface{})["category"])
				assert.Len(t, m["pareto"], 4)
			},
		},
		{
			name:       "histogram",
			path:       "/analytics/histogram",
			body:       `{"dataset":"sales","column":"amount","bins":4}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, result interface{}) {
				assert.Len(t, result.(map[string]interface{})["bins"], 4)
			},
		},
		{
			name:       "invalid bin count",
			path:       "/analytics/histogram",
			body:       `{"dataset":"sales","column":"amount","bins":-3}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_PARAMETER",
		},
		{
			name:       "zero bin count",
			path:       "/analytics/histogram",
			body:       `{"dataset":"sales","column":"amount","bins":0}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_PARAMETER",
		},
		{
			name:       "bin count omitted",
			path:       "/analytics/histogram",
			body:       `{"dataset":"sales","column":"amount"}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, result interface{}) {
				assert.Len(t, result.(map[string]interface{})["bins"], services.DefaultHistogramBins)
			},
		},
		{
			name:       "ranges",
			path:       "/analytics/ranges",
			body:       `{"dataset":"sales","column":"amount","edges":[0,200]}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, result interface{}) {
				buckets := result.([]interface{})
				require.Len(t, buckets, 2)
				assert.Nil(t, buckets[1].(map[string]interface{})["upper"])
			},
		},
		{
			name:       "descending edges",
			path:       "/analytics/ranges",
			body:       `{"dataset":"sales","column":"amount","edges":[10,5]}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_PARAMETER",
		},
		{
			name:       "statistics of numeric columns",
			path:       "/analytics/statistics",
			body:       `{"dataset":"sales"}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, result interface{}) {
				stats := result.([]interface{})
				require.Len(t, stats, 1)
				first := stats[0].(map[string]interface{})
				assert.Equal(t, "amount", first["key"])
				assert.Equal(t, 1000.0, first["sum"])
			},
		},
		{
			name:       "statistics column without key",
			path:       "/analytics/statistics",
			body:       `{"dataset":"sales","columns":[{"label":"x"}]}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, tt.path, tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			body := decodeBody(t, rec)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, body["error_code"])
				return
			}
			if tt.check != nil {
				tt.check(t, body["result"])
			}
		})
	}
}

func TestRepeatedQueryHitsCache(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)

	body := `{"dataset":"sales","column":"amount","bins":3}`
	first := decodeBody(t, s.do(t, http.MethodPost, "/analytics/histogram", body))
	second := decodeBody(t, s.do(t, http.MethodPost, "/analytics/histogram", body))

	assert.Equal(t, false, first["cached"])
	assert.Equal(t, true, second["cached"])
	assert.Equal(t, first["result"], second["result"])

	rec := s.do(t, http.MethodGet, "/analytics/cache", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decodeBody(t, rec)
	assert.Equal(t, float64(1), stats["hits"])
	assert.Equal(t, float64(1), stats["misses"])
	assert.Equal(t, 50.0, stats["hit_rate_percentage"])

	rec = s.do(t, http.MethodDelete, "/analytics/cache", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, s.service.CacheStats().Size)

	third := decodeBody(t, s.do(t, http.MethodPost, "/analytics/histogram", body))
	assert.Equal(t, false, third["cached"])
}

func TestHealthRoutes(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/health", "/health/ready", "/health/live", "/health/system", "/version"} {
		t.Run(path, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, path, "")
			assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		})
	}
}

func TestMetricsHandler(t *testing.T) {
	eh := apierrors.NewErrorHandler(quietLogger(), false)

	rec := httptest.NewRecorder()
	NewMetricsHandler(nil, eh).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	exporter := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# HELP up\n"))
	})
	rec = httptest.NewRecorder()
	NewMetricsHandler(exporter, eh).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# HELP up")
}
