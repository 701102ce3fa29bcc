package http

import (
	"context"

	"dashcli/internal/analytics"
	"dashcli/internal/cache"
	"dashcli/internal/loader"
	"dashcli/internal/services"
)

// DashboardServiceInterface defines the dashboard operations the HTTP layer uses
type DashboardServiceInterface interface {
	RegisterDataset(name string, rows []analytics.Row) (services.DatasetInfo, error)
	LoadDataset(ctx context.Context, name string, source loader.Source) (services.DatasetInfo, error)
	RemoveDataset(name string) bool
	ListDatasets() []services.DatasetInfo
	Dataset(name string) (services.DatasetInfo, error)

	TimeSeries(ctx context.Context, q services.TimeSeriesQuery) (analytics.TimeSeries, bool, error)
	Distribution(ctx context.Context, q services.DistributionQuery) (services.DistributionResult, bool, error)
	Histogram(ctx context.Context, q services.HistogramQuery) (analytics.HistogramResult, bool, error)
	Ranges(ctx context.Context, q services.RangesQuery) ([]analytics.RangeBucket, bool, error)
	Statistics(ctx context.Context, q services.StatisticsQuery) ([]analytics.ColumnStatistics, bool, error)

	CacheStats() cache.Stats
	ClearCache()
	RetryStatus(ctx context.Context, name string) (int, bool)
	ResetRetry(ctx context.Context, name string)
}

var _ DashboardServiceInterface = (*services.DashboardService)(nil)
