package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Period is a time bucketing granularity.
type Period string

const (
	PeriodWeekly    Period = "weekly"
	PeriodMonthly   Period = "monthly"
	PeriodQuarterly Period = "quarterly"
	PeriodYearly    Period = "yearly"
)

// Periods lists every period in display order.
var Periods = []Period{PeriodWeekly, PeriodMonthly, PeriodQuarterly, PeriodYearly}

// ParsePeriod converts a period name into a Period.
func ParsePeriod(s string) (Period, bool) {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Periods {
		if p == known {
			return p, true
		}
	}
	return "", false
}

// DateMode selects where a row's date comes from.
type DateMode string

const (
	// DateModeColumn resolves the date column's value with Resolve.
	DateModeColumn DateMode = "column"
	// DateModeFilename treats the date column as a file name and extracts
	// its embedded YYYYMMDD run.
	DateModeFilename DateMode = "filename"
)

// AggregateOptions selects the date source and the columns to sum.
type AggregateOptions struct {
	DateColumn   string
	Mode         DateMode
	ValueColumns []string
}

// Bucket is one time period's aggregate.
type Bucket struct {
	Key        string             `json:"key"`
	Period     Period             `json:"period"`
	Anchor     time.Time          `json:"anchor"`
	Label      string             `json:"label"`
	Count      int                `json:"count"`
	Sums       map[string]float64 `json:"sums"`
	LatestDate time.Time          `json:"latest_date"`
}

// TimeSeries holds the buckets of every period, each sorted by anchor date.
type TimeSeries struct {
	Weekly    []Bucket `json:"weekly"`
	Monthly   []Bucket `json:"monthly"`
	Quarterly []Bucket `json:"quarterly"`
	Yearly    []Bucket `json:"yearly"`
}

// ByPeriod returns the buckets of period p.
func (ts TimeSeries) ByPeriod(p Period) []Bucket {
	switch p {
	case PeriodWeekly:
		return ts.Weekly
	case PeriodMonthly:
		return ts.Monthly
	case PeriodQuarterly:
		return ts.Quarterly
	case PeriodYearly:
		return ts.Yearly
	default:
		return nil
	}
}

// Aggregate groups rows into weekly, monthly, quarterly and yearly buckets
// and sums each value column per bucket. Rows whose date cannot be resolved
// are skipped for every period. Non-numeric values add 0.
func Aggregate(rows []Row, opts AggregateOptions) TimeSeries {
	acc := map[Period]*bucketSet{}
	for _, p := range Periods {
		acc[p] = newBucketSet(p)
	}

	for _, row := range rows {
		date, ok := rowDate(row, opts)
		if !ok {
			continue
		}
		date = utcMidnight(date)

		values := make(map[string]float64, len(opts.ValueColumns))
		for _, col := range opts.ValueColumns {
			if v, ok := ParseNumeric(row[col]); ok {
				values[col] = v
			}
		}

		for _, p := range Periods {
			acc[p].add(date, values, opts.ValueColumns)
		}
	}

	return TimeSeries{
		Weekly:    acc[PeriodWeekly].sorted(),
		Monthly:   acc[PeriodMonthly].sorted(),
		Quarterly: acc[PeriodQuarterly].sorted(),
		Yearly:    acc[PeriodYearly].sorted(),
	}
}

// SeriesValues extracts one column's sums from buckets, in bucket order.
func SeriesValues(buckets []Bucket, column string) []float64 {
	out := make([]float64, len(buckets))
	for i, b := range buckets {
		out[i] = b.Sums[column]
	}
	return out
}

func rowDate(row Row, opts AggregateOptions) (time.Time, bool) {
	v, ok := row[opts.DateColumn]
	if !ok {
		return time.Time{}, false
	}
	if opts.Mode == DateModeFilename {
		name, ok := v.(string)
		if !ok {
			return time.Time{}, false
		}
		return ResolveFromFilename(name)
	}
	return Resolve(v)
}

// PeriodKey returns the bucket key and anchor date of date for period p.
func PeriodKey(p Period, date time.Time) (string, time.Time) {
	date = utcMidnight(date)
	y, m := date.Year(), date.Month()

	switch p {
	case PeriodWeekly:
		w := ISOWeek(date)
		return w.Key(), w.Monday
	case PeriodMonthly:
		return fmt.Sprintf("%04d-%02d", y, int(m)), time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	case PeriodQuarterly:
		q := (int(m)-1)/3 + 1
		return fmt.Sprintf("%04d-Q%d", y, q), time.Date(y, time.Month((q-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
	default:
		return fmt.Sprintf("%04d", y), time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
}

type bucketSet struct {
	period  Period
	buckets map[string]*Bucket
}

func newBucketSet(p Period) *bucketSet {
	return &bucketSet{period: p, buckets: make(map[string]*Bucket)}
}

func (s *bucketSet) add(date time.Time, values map[string]float64, columns []string) {
	key, anchor := PeriodKey(s.period, date)

	b, ok := s.buckets[key]
	if !ok {
		b = &Bucket{
			Key:    key,
			Period: s.period,
			Anchor: anchor,
			Sums:   make(map[string]float64, len(columns)),
		}
		for _, col := range columns {
			b.Sums[col] = 0
		}
		s.buckets[key] = b
	}

	b.Count++
	for col, v := range values {
		b.Sums[col] += v
	}
	if date.After(b.LatestDate) {
		b.LatestDate = date
	}
}

func (s *bucketSet) sorted() []Bucket {
	out := make([]Bucket, 0, len(s.buckets))
	for _, b := range s.buckets {
		b.Label = bucketLabel(*b)
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Anchor.Equal(out[j].Anchor) {
			return out[i].Anchor.Before(out[j].Anchor)
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// bucketLabel is a display hint only. Weekly labels name the latest
// contributing date, e.g. "W03 (Jan 13)".
func bucketLabel(b Bucket) string {
	if b.Period != PeriodWeekly {
		return b.Key
	}
	w := ISOWeek(b.Anchor)
	return fmt.Sprintf("W%02d (%s)", w.WeekNumber, b.LatestDate.Format("Jan 2"))
}
