package exporter

import (
	"sort"
	"strconv"

	"github.com/samber/lo"

	"dashcli/internal/analytics"
)

// Table is a rendered result: one header row and string records
type Table struct {
	Name    string
	Headers []string
	Records [][]string
}

// TimeSeriesTable renders buckets with one sum column per value column.
// Value columns are the sorted union over all buckets.
func TimeSeriesTable(name string, buckets []analytics.Bucket) Table {
	columns := lo.Uniq(lo.FlatMap(buckets, func(b analytics.Bucket, _ int) []string {
		return lo.Keys(b.Sums)
	}))
	sort.Strings(columns)

	headers := append([]string{"period", "key", "label", "anchor", "count", "latest_date"}, columns...)
	records := make([][]string, 0, len(buckets))
	for _, b := range buckets {
		record := []string{
			string(b.Period),
			b.Key,
			b.Label,
			formatDate(b.Anchor),
			strconv.Itoa(b.Count),
			formatDate(b.LatestDate),
		}
		for _, col := range columns {
			record = append(record, formatFloat(b.Sums[col]))
		}
		records = append(records, record)
	}
	return Table{Name: name, Headers: headers, Records: records}
}

// DistributionTable renders category entries in their given order
func DistributionTable(name string, entries []analytics.CategoryEntry) Table {
	return Table{
		Name:    name,
		Headers: []string{"category", "value", "count", "percentage"},
		Records: lo.Map(entries, func(e analytics.CategoryEntry, _ int) []string {
			return []string{e.Category, formatFloat(e.Value), strconv.Itoa(e.Count), formatFloat(e.Percentage)}
		}),
	}
}

// HistogramTable renders the bins of a histogram
func HistogramTable(name string, h analytics.HistogramResult) Table {
	return Table{
		Name:    name,
		Headers: []string{"label", "lower", "upper", "count"},
		Records: lo.Map(h.Bins, func(b analytics.HistogramBin, _ int) []string {
			return []string{b.Label, formatFloat(b.Lower), formatFloat(b.Upper), strconv.Itoa(b.Count)}
		}),
	}
}

// RangesTable renders range buckets; the open-ended bucket has no upper bound
func RangesTable(name string, buckets []analytics.RangeBucket) Table {
	return Table{
		Name:    name,
		Headers: []string{"label", "lower", "upper", "count", "amount", "percentage"},
		Records: lo.Map(buckets, func(b analytics.RangeBucket, _ int) []string {
			upper := ""
			if b.Upper != nil {
				upper = formatFloat(*b.Upper)
			}
			return []string{b.Label, formatFloat(b.Lower), upper, strconv.Itoa(b.Count),
				formatFloat(b.Amount), formatFloat(b.Percentage)}
		}),
	}
}

// StatisticsTable renders one row per column
func StatisticsTable(name string, stats []analytics.ColumnStatistics) Table {
	return Table{
		Name: name,
		Headers: []string{"key", "label", "count", "sum", "average", "min", "max", "median",
			"standard_deviation", "p25", "p75", "p90", "p95"},
		Records: lo.Map(stats, func(s analytics.ColumnStatistics, _ int) []string {
			return []string{
				s.Key, s.Label, formatInt(int64(s.Count)),
				formatFloat(s.Sum), formatFloat(s.Average), formatFloat(s.Min), formatFloat(s.Max),
				formatFloat(s.Median), formatFloat(s.StandardDeviation),
				formatFloat(s.P25), formatFloat(s.P75), formatFloat(s.P90), formatFloat(s.P95),
			}
		}),
	}
}

// ParetoTable renders the cumulative share of each category
func ParetoTable(name string, points []analytics.ParetoPoint) Table {
	return Table{
		Name:    name,
		Headers: []string{"category", "value", "cumulative_value", "cumulative_percentage"},
		Records: lo.Map(points, func(p analytics.ParetoPoint, _ int) []string {
			return []string{p.Category, formatFloat(p.Value), formatFloat(p.CumulativeValue), formatFloat(p.CumulativePercentage)}
		}),
	}
}
