package analytics

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"even length median", []float64{1, 2, 3, 4}, 50, 2.5},
		{"odd length median", []float64{1, 2, 3}, 50, 2},
		{"p25 interpolates", []float64{10, 20, 30, 40, 50}, 25, 20},
		{"p90 interpolates", []float64{1, 2, 3, 4}, 90, 3.7},
		{"p0 is min", []float64{3, 8}, 0, 3},
		{"p100 is max", []float64{3, 8}, 100, 8},
		{"clamped above", []float64{1, 2, 3, 4}, 150, 4},
		{"clamped below", []float64{1, 2, 3, 4}, -10, 1},
		{"single value", []float64{42}, 75, 42},
		{"empty", nil, 50, 0},
		{"nan rank", []float64{1, 2, 3}, math.NaN(), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Percentile(tt.sorted, tt.p), 1e-9)
		})
	}
}

func TestPercentileMatchesMedian(t *testing.T) {
	for _, values := range [][]float64{{5}, {1, 9}, {1, 4, 9}, {2, 3, 5, 7, 11, 13}} {
		assert.Equal(t, median(values), Percentile(values, 50))
	}
}

func TestCalculateColumnStatistics(t *testing.T) {
	rows := []Row{
		{"price": 2}, {"price": "4"}, {"price": 4.0}, {"price": " 4 "},
		{"price": 5}, {"price": 5}, {"price": "7"}, {"price": 9},
		{"price": "n/a"}, {"price": nil}, {"other": 1},
	}

	s := CalculateColumnStatistics(rows, "price", "Price")
	assert.Equal(t, "price", s.Key)
	assert.Equal(t, "Price", s.Label)
	assert.Equal(t, 8, s.Count)
	assert.Equal(t, 40.0, s.Sum)
	assert.Equal(t, 5.0, s.Average)
	assert.Equal(t, 2.0, s.Min)
	assert.Equal(t, 9.0, s.Max)
	assert.Equal(t, 4.5, s.Median)
	assert.InDelta(t, 2.0, s.StandardDeviation, 1e-9)
	assert.InDelta(t, 4.0, s.P25, 1e-9)
	assert.InDelta(t, 5.5, s.P75, 1e-9)
	assert.InDelta(t, 7.6, s.P90, 1e-9)
	assert.InDelta(t, 8.3, s.P95, 1e-9)
}

func TestCalculateColumnStatisticsNoValues(t *testing.T) {
	s := CalculateColumnStatistics([]Row{{"price": "x"}}, "price", "Price")
	assert.Equal(t, ColumnStatistics{Key: "price", Label: "Price"}, s)
}

func TestStatisticsForColumns(t *testing.T) {
	rows := []Row{
		{"open": 10, "close": 12, "volume": "1,000"},
		{"open": 11, "close": 10, "volume": "3,000"},
	}
	columns := []ColumnRef{
		{Key: "volume", Label: "Volume"},
		{Key: "open", Label: "Open"},
		{Key: "close", Label: "Close"},
	}

	stats, err := StatisticsForColumns(context.Background(), rows, columns)
	require.NoError(t, err)
	require.Len(t, stats, 3)
	assert.Equal(t, "volume", stats[0].Key)
	assert.Equal(t, 2000.0, stats[0].Average)
	assert.Equal(t, "open", stats[1].Key)
	assert.Equal(t, 21.0, stats[1].Sum)
	assert.Equal(t, "close", stats[2].Key)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = StatisticsForColumns(ctx, rows, columns)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNumericColumns(t *testing.T) {
	rows := []Row{
		{"name": "x", "amount": 1, "qty": "3"},
		{"name": "y", "amount": "2,000", "qty": nil, "extra": 5},
		{"name": "z", "amount": "", "note": nil},
	}
	assert.Equal(t, []string{"amount", "qty", "extra"}, NumericColumns(rows))
	assert.Empty(t, NumericColumns(nil))
}
