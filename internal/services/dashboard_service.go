package services

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"

	"dashcli/internal/analytics"
	"dashcli/internal/cache"
	apperrors "dashcli/internal/errors"
	"dashcli/internal/infrastructure"
	"dashcli/internal/loader"
	"dashcli/internal/retry"
)

// Operation names used for cache keys, metrics and spans.
const (
	OpTimeSeries   = "timeseries"
	OpDistribution = "distribution"
	OpHistogram    = "histogram"
	OpRanges       = "ranges"
	OpStatistics   = "statistics"
)

// DefaultHistogramBins is the bin count callers use when none was requested.
const DefaultHistogramBins = 10

type dataset struct {
	name     string
	rows     []analytics.Row
	version  uint64
	loadedAt time.Time
}

// DatasetInfo describes a registered dataset.
type DatasetInfo struct {
	Name     string    `json:"name"`
	Rows     int       `json:"rows"`
	Version  uint64    `json:"version"`
	LoadedAt time.Time `json:"loaded_at"`
	Columns  []string  `json:"columns"`
}

// datasetRef identifies a dataset snapshot inside cache keys. Rows are
// immutable once registered so name and version identify the content.
type datasetRef struct {
	Name    string `json:"name"`
	Version uint64 `json:"version"`
}

// TimeSeriesQuery selects the date source and value columns to bucket. In
// filename mode DateColumn names the column holding the source file name.
type TimeSeriesQuery struct {
	Dataset      string
	DateColumn   string
	Mode         analytics.DateMode
	ValueColumns []string
}

// DistributionQuery groups ValueColumn by CategoryColumn, or counts rows
// when ValueColumn is empty. TopN > 0 keeps only the largest categories;
// Pareto adds the cumulative curve over all categories.
type DistributionQuery struct {
	Dataset        string
	CategoryColumn string
	ValueColumn    string
	TopN           int
	Pareto         bool
}

// DistributionResult is the answer to a DistributionQuery.
type DistributionResult struct {
	Entries []analytics.CategoryEntry `json:"entries"`
	Pareto  []analytics.ParetoPoint   `json:"pareto,omitempty"`
	Total   float64                   `json:"total"`
}

// HistogramQuery bins the numeric values of Column.
type HistogramQuery struct {
	Dataset string
	Column  string
	Bins    int
}

// RangesQuery counts Column values into buckets delimited by Edges.
type RangesQuery struct {
	Dataset string
	Column  string
	Edges   []float64
}

// StatisticsQuery computes descriptive statistics. An empty Columns list
// means every numeric column of the dataset.
type StatisticsQuery struct {
	Dataset string
	Columns []analytics.ColumnRef
}

// DashboardOptions carries the collaborators of a DashboardService.
// Zero values are replaced by in-memory defaults.
type DashboardOptions struct {
	Cache      *cache.ResultCache[any]
	RetryStore retry.Store
	Retry      retry.Config
	Metrics    *infrastructure.AnalyticsMetrics
	Logger     *slog.Logger
}

// DashboardService owns the dataset registry and answers analytics
// queries through the shared result cache.
type DashboardService struct {
	mu       sync.RWMutex
	datasets map[string]*dataset
	versions uint64

	retryMu  sync.Mutex
	managers map[string]*retry.Manager

	cache      *cache.ResultCache[any]
	retryStore retry.Store
	retryCfg   retry.Config
	metrics    *infrastructure.AnalyticsMetrics
	logger     *slog.Logger
}

// NewDashboardService creates a dashboard service
func NewDashboardService(opts DashboardOptions) *DashboardService {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Cache == nil {
		opts.Cache = cache.New[any](cache.WithName("analytics"))
	}
	if opts.RetryStore == nil {
		opts.RetryStore = retry.NewMemoryStore()
	}
	if opts.Retry.BaseDelay == 0 && opts.Retry.MaxRetries == 0 {
		opts.Retry = retry.DefaultConfig()
	}

	logger := infrastructure.ComponentLogger(opts.Logger, "dashboard")
	logger.Info("DashboardService initialized",
		slog.Int("cache_max_size", opts.Cache.Stats().MaxSize),
		slog.Int("max_retries", opts.Retry.MaxRetries))

	return &DashboardService{
		datasets:   make(map[string]*dataset),
		managers:   make(map[string]*retry.Manager),
		cache:      opts.Cache,
		retryStore: opts.RetryStore,
		retryCfg:   opts.Retry,
		metrics:    opts.Metrics,
		logger:     logger,
	}
}

// RegisterDataset stores rows under name, replacing any previous dataset
// with that name. Cached results of the old version become unreachable.
func (s *DashboardService) RegisterDataset(name string, rows []analytics.Row) (DatasetInfo, error) {
	if name == "" {
		return DatasetInfo{}, apperrors.NewInvalidParameterError("name", "dataset name is required")
	}
	if rows == nil {
		rows = []analytics.Row{}
	}

	s.mu.Lock()
	s.versions++
	ds := &dataset{name: name, rows: rows, version: s.versions, loadedAt: time.Now().UTC()}
	s.datasets[name] = ds
	s.mu.Unlock()

	s.logger.Info("dataset registered",
		slog.String("dataset", name),
		slog.Int("rows", len(rows)),
		slog.Uint64("version", ds.version))
	return ds.info(), nil
}

// LoadDataset loads rows from source and registers them under name. Loads
// are guarded by a retry manager keyed by dataset: transient failures
// count against the retry budget and a successful load resets it.
func (s *DashboardService) LoadDataset(ctx context.Context, name string, source loader.Source) (DatasetInfo, error) {
	if name == "" {
		return DatasetInfo{}, apperrors.NewInvalidParameterError("name", "dataset name is required")
	}
	if source == nil {
		return DatasetInfo{}, apperrors.NewInvalidParameterError("source", "a source is required")
	}

	ctx, span := infrastructure.StartSpan(infrastructure.WithDataset(ctx, name), "dashboard.load", attribute.String("dataset", name))
	defer span.End()

	m := s.retryManager(name)
	rows, err := retry.Retry(ctx, m, source.Load)
	s.metrics.RecordLoad(ctx, name, len(rows), err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Type == apperrors.ErrTypeTransientLoad {
			appErr.WithContext("retry_after_ms", m.RetryDelay(ctx).Milliseconds())
		}
		s.logger.WarnContext(ctx, "dataset load failed",
			slog.String("dataset", name),
			slog.String("error_type", string(apperrors.TypeOf(err))),
			slog.String("error", err.Error()))
		return DatasetInfo{}, err
	}
	return s.RegisterDataset(name, rows)
}

// RemoveDataset drops a dataset. It reports whether the dataset existed.
func (s *DashboardService) RemoveDataset(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.datasets[name]
	delete(s.datasets, name)
	return ok
}

// ListDatasets returns the registered datasets sorted by name.
func (s *DashboardService) ListDatasets() []DatasetInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := lo.Keys(s.datasets)
	sort.Strings(names)
	return lo.Map(names, func(name string, _ int) DatasetInfo {
		return s.datasets[name].info()
	})
}

// Dataset returns the info of one dataset.
func (s *DashboardService) Dataset(name string) (DatasetInfo, error) {
	ds, err := s.lookup(name)
	if err != nil {
		return DatasetInfo{}, err
	}
	return ds.info(), nil
}

// TimeSeries aggregates the dataset into weekly, monthly, quarterly and
// yearly buckets.
func (s *DashboardService) TimeSeries(ctx context.Context, q TimeSeriesQuery) (analytics.TimeSeries, bool, error) {
	if q.Mode == "" {
		q.Mode = analytics.DateModeColumn
	}
	if q.Mode != analytics.DateModeColumn && q.Mode != analytics.DateModeFilename {
		return analytics.TimeSeries{}, false, apperrors.NewInvalidParameterError("mode", "mode must be column or filename")
	}
	if q.DateColumn == "" {
		return analytics.TimeSeries{}, false, apperrors.NewInvalidParameterError("date_column", "date column is required")
	}
	opts := analytics.AggregateOptions{
		DateColumn:   q.DateColumn,
		Mode:         q.Mode,
		ValueColumns: lo.Uniq(q.ValueColumns),
	}
	return compute(ctx, s, OpTimeSeries, q.Dataset, opts, func(_ context.Context, rows []analytics.Row) (analytics.TimeSeries, error) {
		return analytics.Aggregate(rows, opts), nil
	})
}

// Distribution groups a value column by category.
func (s *DashboardService) Distribution(ctx context.Context, q DistributionQuery) (DistributionResult, bool, error) {
	if q.CategoryColumn == "" {
		return DistributionResult{}, false, apperrors.NewInvalidParameterError("category_column", "category column is required")
	}
	if q.TopN < 0 {
		return DistributionResult{}, false, apperrors.NewInvalidParameterError("top_n", "top_n must not be negative")
	}
	params := map[string]any{
		"category": q.CategoryColumn,
		"value":    q.ValueColumn,
		"top_n":    q.TopN,
		"pareto":   q.Pareto,
	}
	return compute(ctx, s, OpDistribution, q.Dataset, params, func(_ context.Context, rows []analytics.Row) (DistributionResult, error) {
		entries := analytics.DistributionByCategory(rows, q.CategoryColumn, q.ValueColumn)
		result := DistributionResult{
			Total: lo.SumBy(entries, func(e analytics.CategoryEntry) float64 { return e.Value }),
		}
		if q.Pareto {
			result.Pareto = analytics.Pareto(entries)
		}
		if q.TopN > 0 {
			entries = analytics.TopItems(entries, q.TopN)
		}
		result.Entries = entries
		return result, nil
	})
}

// Histogram bins the numeric values of a column.
func (s *DashboardService) Histogram(ctx context.Context, q HistogramQuery) (analytics.HistogramResult, bool, error) {
	if q.Column == "" {
		return analytics.HistogramResult{}, false, apperrors.NewInvalidParameterError("column", "column is required")
	}
	params := map[string]any{"column": q.Column, "bins": q.Bins}
	return compute(ctx, s, OpHistogram, q.Dataset, params, func(_ context.Context, rows []analytics.Row) (analytics.HistogramResult, error) {
		return analytics.HistogramFromRows(rows, q.Column, q.Bins)
	})
}

// Ranges counts the values of a column into caller-defined buckets.
func (s *DashboardService) Ranges(ctx context.Context, q RangesQuery) ([]analytics.RangeBucket, bool, error) {
	if q.Column == "" {
		return nil, false, apperrors.NewInvalidParameterError("column", "column is required")
	}
	params := map[string]any{"column": q.Column, "edges": q.Edges}
	return compute(ctx, s, OpRanges, q.Dataset, params, func(_ context.Context, rows []analytics.Row) ([]analytics.RangeBucket, error) {
		return analytics.RangeBuckets(analytics.ColumnValues(rows, q.Column), q.Edges)
	})
}

// Statistics computes descriptive statistics for the requested columns, or
// for every numeric column when none are given.
func (s *DashboardService) Statistics(ctx context.Context, q StatisticsQuery) ([]analytics.ColumnStatistics, bool, error) {
	for _, c := range q.Columns {
		if c.Key == "" {
			return nil, false, apperrors.NewInvalidParameterError("columns", "column key is required")
		}
	}
	params := map[string]any{"columns": q.Columns}
	return compute(ctx, s, OpStatistics, q.Dataset, params, func(ctx context.Context, rows []analytics.Row) ([]analytics.ColumnStatistics, error) {
		columns := q.Columns
		if len(columns) == 0 {
			columns = lo.Map(analytics.NumericColumns(rows), func(key string, _ int) analytics.ColumnRef {
				return analytics.ColumnRef{Key: key, Label: key}
			})
		}
		return analytics.StatisticsForColumns(ctx, rows, columns)
	})
}

// CacheStats reports the result cache counters.
func (s *DashboardService) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// ClearCache drops every cached result and resets the counters.
func (s *DashboardService) ClearCache() {
	s.cache.Clear()
	s.logger.Info("result cache cleared")
}

// RetryStatus reports how many failed loads count against a dataset.
func (s *DashboardService) RetryStatus(ctx context.Context, name string) (count int, canRetry bool) {
	m := s.retryManager(name)
	return m.RetryCount(ctx), m.CanRetry(ctx)
}

// ResetRetry clears the retry budget of a dataset.
func (s *DashboardService) ResetRetry(ctx context.Context, name string) {
	s.retryManager(name).Reset(ctx)
}

func (s *DashboardService) retryManager(name string) *retry.Manager {
	s.retryMu.Lock()
	defer s.retryMu.Unlock()
	if m, ok := s.managers[name]; ok {
		return m
	}
	m := retry.NewManager("load:"+name, s.retryStore, s.retryCfg, s.logger)
	s.managers[name] = m
	return m
}

func (s *DashboardService) lookup(name string) (*dataset, error) {
	if name == "" {
		return nil, apperrors.NewInvalidParameterError("dataset", "dataset name is required")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ds, ok := s.datasets[name]
	if !ok {
		return nil, apperrors.NewNotFoundError("dataset " + name)
	}
	return ds, nil
}

// compute runs fn over a dataset snapshot through the result cache and
// records the outcome. The boolean result reports a cache hit.
func compute[T any](ctx context.Context, s *DashboardService, op, name string, params any, fn func(context.Context, []analytics.Row) (T, error)) (T, bool, error) {
	var zero T
	ds, err := s.lookup(name)
	if err != nil {
		return zero, false, err
	}

	ctx, span := infrastructure.StartSpan(infrastructure.WithDataset(ctx, name), "dashboard."+op, attribute.String("dataset", name))
	defer span.End()

	start := time.Now()
	ref := datasetRef{Name: ds.name, Version: ds.version}
	v, cached, err := cache.Memoize(s.cache, op, ref, params, func() (any, error) {
		return fn(ctx, ds.rows)
	})
	s.metrics.RecordComputation(ctx, op, time.Since(start), cached, err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		s.logger.DebugContext(ctx, "computation failed",
			slog.String("operation", op),
			slog.String("dataset", name),
			slog.String("error", err.Error()))
		return zero, false, err
	}

	result, ok := v.(T)
	if !ok {
		return zero, false, apperrors.NewAppError(apperrors.ErrTypeStorage, "cached result has unexpected type", nil)
	}
	return result, cached, nil
}

func (d *dataset) info() DatasetInfo {
	columns := lo.Uniq(lo.FlatMap(d.rows, func(row analytics.Row, _ int) []string {
		return lo.Keys(row)
	}))
	sort.Strings(columns)
	return DatasetInfo{
		Name:     d.name,
		Rows:     len(d.rows),
		Version:  d.version,
		LoadedAt: d.loadedAt,
		Columns:  columns,
	}
}
