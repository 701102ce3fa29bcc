package analytics

import (
	"fmt"
	"math"
	"sort"

	"github.com/samber/lo"

	apperrors "dashcli/internal/errors"
)

// UnknownCategory labels rows whose category cell is absent or blank.
const UnknownCategory = "Unknown"

// CategoryEntry is one category's share of a distribution.
type CategoryEntry struct {
	Category   string  `json:"category"`
	Value      float64 `json:"value"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// HistogramBin is an equal-width value interval. Lower is inclusive; Upper
// is exclusive except for the last bin.
type HistogramBin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
	Label string  `json:"label"`
}

// HistogramResult carries the bins and summary statistics of a histogram.
type HistogramResult struct {
	Bins   []HistogramBin `json:"bins"`
	Mean   float64        `json:"mean"`
	Median float64        `json:"median"`
	Min    float64        `json:"min"`
	Max    float64        `json:"max"`
}

// ParetoPoint is one step of a cumulative Pareto curve.
type ParetoPoint struct {
	Category             string  `json:"category"`
	Value                float64 `json:"value"`
	CumulativeValue      float64 `json:"cumulative_value"`
	CumulativePercentage float64 `json:"cumulative_percentage"`
}

// RangeBucket counts and sums the values falling in a fixed interval.
// A nil Upper means the bucket is open-ended.
type RangeBucket struct {
	Label      string   `json:"label"`
	Lower      float64  `json:"lower"`
	Upper      *float64 `json:"upper"`
	Count      int      `json:"count"`
	Amount     float64  `json:"amount"`
	Percentage float64  `json:"percentage"`
}

// DistributionByCategory groups rows by categoryColumn. When valueColumn is
// empty each group's value is its row count, otherwise the sum of
// valueColumn. Entries are ordered by value descending; ties keep the order
// in which categories were first seen.
func DistributionByCategory(rows []Row, categoryColumn, valueColumn string) []CategoryEntry {
	index := make(map[string]int)
	entries := make([]CategoryEntry, 0)

	for _, row := range rows {
		label, ok := labelOf(row[categoryColumn])
		if !ok {
			label = UnknownCategory
		}

		i, seen := index[label]
		if !seen {
			i = len(entries)
			index[label] = i
			entries = append(entries, CategoryEntry{Category: label})
		}

		entries[i].Count++
		if valueColumn == "" {
			entries[i].Value++
		} else if v, ok := ParseNumeric(row[valueColumn]); ok {
			entries[i].Value += v
		}
	}

	total := lo.SumBy(entries, func(e CategoryEntry) float64 { return e.Value })
	for i := range entries {
		entries[i].Percentage = percentOf(entries[i].Value, total)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Value > entries[j].Value
	})
	return entries
}

// TopItems returns the first n entries of a distribution already sorted by
// value. It never re-sorts.
func TopItems(dist []CategoryEntry, n int) []CategoryEntry {
	if n <= 0 {
		return []CategoryEntry{}
	}
	if n > len(dist) {
		n = len(dist)
	}
	return dist[:n]
}

// Histogram bins the finite values into binCount equal-width bins.
// binCount must be positive.
func Histogram(values []float64, binCount int) (HistogramResult, error) {
	if binCount <= 0 {
		return HistogramResult{}, apperrors.NewInvalidParameterError("bin_count",
			fmt.Sprintf("bin count must be positive, got %d", binCount))
	}

	finite := lo.Filter(values, func(v float64, _ int) bool { return isFinite(v) })
	if len(finite) == 0 {
		return HistogramResult{Bins: []HistogramBin{}}, nil
	}

	sorted := sortedCopy(finite)
	minV, maxV := sorted[0], sorted[len(sorted)-1]

	bins := make([]HistogramBin, binCount)
	for i := range bins {
		lower := binEdge(minV, maxV, i, binCount)
		upper := binEdge(minV, maxV, i+1, binCount)
		bins[i] = HistogramBin{
			Lower: lower,
			Upper: upper,
			Label: fmt.Sprintf("%s-%s", formatNumber(lower), formatNumber(upper)),
		}
	}

	for _, v := range sorted {
		bins[binIndex(bins, v, minV, maxV)].Count++
	}

	return HistogramResult{
		Bins:   bins,
		Mean:   mean(sorted),
		Median: median(sorted),
		Min:    minV,
		Max:    maxV,
	}, nil
}

// HistogramFromRows builds a histogram of one column's numeric values.
func HistogramFromRows(rows []Row, column string, binCount int) (HistogramResult, error) {
	return Histogram(ColumnValues(rows, column), binCount)
}

// binEdge is the i-th of n+1 edges between minV and maxV. When maxV-minV
// overflows the edge is interpolated so no step multiplies by +Inf.
func binEdge(minV, maxV float64, i, n int) float64 {
	switch i {
	case 0:
		return minV
	case n:
		return maxV
	}
	if span := maxV - minV; !math.IsInf(span, 0) {
		return minV + float64(i)*(span/float64(n))
	}
	f := float64(i) / float64(n)
	return minV*(1-f) + maxV*f
}

// binIndex locates v among the bins. Values equal to maxV, or every value
// when the range is empty, go to the last bin.
func binIndex(bins []HistogramBin, v, minV, maxV float64) int {
	last := len(bins) - 1
	if v >= maxV || minV == maxV {
		return last
	}
	// halves keep the span finite
	frac := (v/2 - minV/2) / (maxV/2 - minV/2)
	idx := int(math.Floor(frac * float64(len(bins))))
	if idx < 0 {
		idx = 0
	}
	if idx > last {
		idx = last
	}
	for idx > 0 && v < bins[idx].Lower {
		idx--
	}
	for idx < last && v >= bins[idx+1].Lower {
		idx++
	}
	return idx
}

// Pareto converts a distribution sorted by value descending into a
// cumulative curve. The grand total is the final cumulative value.
func Pareto(dist []CategoryEntry) []ParetoPoint {
	points := make([]ParetoPoint, len(dist))
	if len(dist) == 0 {
		return points
	}

	var running float64
	for i, e := range dist {
		running += e.Value
		points[i] = ParetoPoint{Category: e.Category, Value: e.Value, CumulativeValue: running}
	}

	total := points[len(points)-1].CumulativeValue
	for i := range points {
		points[i].CumulativePercentage = percentOf(points[i].CumulativeValue, total)
	}
	return points
}

// RangeBuckets counts values into caller-defined buckets. k strictly
// ascending edges give k buckets [e0,e1) ... [e(k-2),e(k-1)) and an
// open-ended [e(k-1), +inf). Values below e0 are not counted.
func RangeBuckets(values []float64, edges []float64) ([]RangeBucket, error) {
	if len(edges) == 0 {
		return nil, apperrors.NewInvalidParameterError("edges", "at least one edge is required")
	}
	for i := 1; i < len(edges); i++ {
		if !(edges[i] > edges[i-1]) {
			return nil, apperrors.NewInvalidParameterError("edges",
				fmt.Sprintf("edges must be strictly ascending, edge %d (%v) <= %v", i, edges[i], edges[i-1]))
		}
	}
	for _, e := range edges {
		if !isFinite(e) {
			return nil, apperrors.NewInvalidParameterError("edges", "edges must be finite")
		}
	}

	buckets := make([]RangeBucket, len(edges))
	for i, lower := range edges {
		buckets[i] = RangeBucket{Lower: lower}
		if i+1 < len(edges) {
			upper := edges[i+1]
			buckets[i].Upper = &upper
			buckets[i].Label = fmt.Sprintf("%s-%s", formatNumber(lower), formatNumber(upper))
		} else {
			buckets[i].Label = formatNumber(lower) + "+"
		}
	}

	var total float64
	for _, v := range values {
		if !isFinite(v) || v < edges[0] {
			continue
		}
		// First edge strictly greater than v closes v's bucket.
		i := sort.SearchFloat64s(edges, math.Nextafter(v, math.Inf(1))) - 1
		buckets[i].Count++
		buckets[i].Amount += v
		total += v
	}

	for i := range buckets {
		buckets[i].Percentage = percentOf(buckets[i].Amount, total)
	}
	return buckets, nil
}

func percentOf(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return part / total * 100
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
