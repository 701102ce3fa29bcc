// Package api contains API contract definitions for the dashboard analytics
// service. Version v1 represents the current stable API version.
package api

// Dataset API Requests

// RegisterDatasetRequest replaces a dataset with the given rows
type RegisterDatasetRequest struct {
	Rows []map[string]interface{} `json:"rows" validate:"required"`
}

// LoadDatasetRequest loads a dataset from one or more JSON or CSV files.
// Several paths are loaded as chunks and concatenated in order. Files
// matching Pattern follow the explicit paths in embedded-date order.
type LoadDatasetRequest struct {
	Paths       []string `json:"paths,omitempty" validate:"omitempty,dive,required"`
	Pattern     string   `json:"pattern,omitempty"`
	Concurrency int      `json:"concurrency,omitempty" validate:"omitempty,min=1,max=32"`
}

// Analytics API Requests

// TimeSeriesRequest buckets a dataset by date. Period limits the response
// to one granularity; empty returns all four.
type TimeSeriesRequest struct {
	Dataset      string   `json:"dataset" validate:"required"`
	DateColumn   string   `json:"date_column" validate:"required"`
	Mode         string   `json:"mode,omitempty" validate:"omitempty,oneof=column filename"`
	ValueColumns []string `json:"value_columns,omitempty" validate:"omitempty,dive,required"`
	Period       string   `json:"period,omitempty" validate:"omitempty,oneof=weekly monthly quarterly yearly"`
}

// DistributionRequest groups a value column by category
type DistributionRequest struct {
	Dataset        string `json:"dataset" validate:"required"`
	CategoryColumn string `json:"category_column" validate:"required"`
	ValueColumn    string `json:"value_column,omitempty"`
	TopN           int    `json:"top_n,omitempty" validate:"min=0"`
	Pareto         bool   `json:"pareto,omitempty"`
}

// HistogramRequest bins the numeric values of a column. An omitted Bins
// means the default count; an explicit non-positive count is rejected.
type HistogramRequest struct {
	Dataset string `json:"dataset" validate:"required"`
	Column  string `json:"column" validate:"required"`
	Bins    *int   `json:"bins,omitempty" validate:"omitempty,max=1000"`
}

// RangesRequest counts values into buckets delimited by ascending edges
type RangesRequest struct {
	Dataset string    `json:"dataset" validate:"required"`
	Column  string    `json:"column" validate:"required"`
	Edges   []float64 `json:"edges" validate:"required,min=1"`
}

// ColumnRequest names a column and its display label
type ColumnRequest struct {
	Key   string `json:"key" validate:"required"`
	Label string `json:"label,omitempty"`
}

// StatisticsRequest computes descriptive statistics. Without columns every
// numeric column of the dataset is described.
type StatisticsRequest struct {
	Dataset string          `json:"dataset" validate:"required"`
	Columns []ColumnRequest `json:"columns,omitempty" validate:"omitempty,dive"`
}
