package analytics

import (
	"context"
	"math"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// ColumnStatistics holds the descriptive statistics of one numeric column.
type ColumnStatistics struct {
	Key               string  `json:"key"`
	Label             string  `json:"label"`
	Sum               float64 `json:"sum"`
	Average           float64 `json:"average"`
	Min               float64 `json:"min"`
	Max               float64 `json:"max"`
	Median            float64 `json:"median"`
	StandardDeviation float64 `json:"standard_deviation"`
	P25               float64 `json:"p25"`
	P75               float64 `json:"p75"`
	P90               float64 `json:"p90"`
	P95               float64 `json:"p95"`
	Count             int     `json:"count"`
}

// CalculateColumnStatistics computes statistics over the finite numeric
// values of columnKey. A column without numeric values yields a zeroed
// result with Count 0.
func CalculateColumnStatistics(rows []Row, columnKey, columnLabel string) ColumnStatistics {
	stats := ColumnStatistics{Key: columnKey, Label: columnLabel}

	values := ColumnValues(rows, columnKey)
	if len(values) == 0 {
		return stats
	}

	sorted := sortedCopy(values)
	n := float64(len(sorted))
	total := sum(sorted)
	mean := total / n

	stats.Count = len(sorted)
	stats.Sum = total
	stats.Average = mean
	stats.Min = sorted[0]
	stats.Max = sorted[len(sorted)-1]
	stats.Median = median(sorted)
	stats.StandardDeviation = populationStdDev(sorted, mean)
	stats.P25 = Percentile(sorted, 25)
	stats.P75 = Percentile(sorted, 75)
	stats.P90 = Percentile(sorted, 90)
	stats.P95 = Percentile(sorted, 95)
	return stats
}

// StatisticsForColumns computes statistics for several columns concurrently.
// Results follow the order of columns.
func StatisticsForColumns(ctx context.Context, rows []Row, columns []ColumnRef) ([]ColumnStatistics, error) {
	results := make([]ColumnStatistics, len(columns))

	g, ctx := errgroup.WithContext(ctx)
	for i, col := range columns {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = CalculateColumnStatistics(rows, col.Key, col.Label)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// NumericColumns lists the columns whose present values all parse as
// numbers. Columns are ordered by the first row that carries them, then by
// name. Columns that are absent everywhere are skipped.
func NumericColumns(rows []Row) []string {
	order := make([]string, 0)
	numeric := make(map[string]bool)
	present := make(map[string]bool)

	for _, row := range rows {
		for _, key := range sortedKeys(row) {
			if _, seen := numeric[key]; !seen {
				numeric[key] = true
				order = append(order, key)
			}
			v := row[key]
			if isBlank(v) {
				continue
			}
			present[key] = true
			if _, ok := ParseNumeric(v); !ok {
				numeric[key] = false
			}
		}
	}

	out := make([]string, 0, len(order))
	for _, key := range order {
		if numeric[key] && present[key] {
			out = append(out, key)
		}
	}
	return out
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

func sortedKeys(row Row) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Percentile interpolates linearly between the two nearest ranks of an
// ascending slice. p is clamped to [0, 100]; a NaN p yields 0.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 || math.IsNaN(p) {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	p = math.Max(0, math.Min(100, p))

	index := (p / 100) * float64(n-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	weight := index - float64(lower)

	return sorted[lower] + weight*(sorted[upper]-sorted[lower])
}

// ColumnValues returns the numeric values of column in row order, skipping
// cells that are absent or not numeric.
func ColumnValues(rows []Row, column string) []float64 {
	values := make([]float64, 0, len(rows))
	for _, row := range rows {
		if v, ok := ParseNumeric(row[column]); ok {
			values = append(values, v)
		}
	}
	return values
}

func sortedCopy(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	sort.Float64s(out)
	return out
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

// mean averages values, dividing before summing when the plain sum
// overflows.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	n := float64(len(values))
	if total := sum(values); !math.IsInf(total, 0) {
		return total / n
	}
	var m float64
	for _, v := range values {
		m += v / n
	}
	return m
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

func populationStdDev(values []float64, mean float64) float64 {
	var squared float64
	for _, v := range values {
		d := v - mean
		squared += d * d
	}
	return math.Sqrt(squared / float64(len(values)))
}
