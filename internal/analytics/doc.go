// Package analytics turns flat collections of heterogeneous rows into the
// series, distributions and statistics that back the dashboard views.
//
// # Components
//
// The package is organized leaf-first:
//
//  1. Date resolution: dates.go resolves scalars and file names into calendar dates
//  2. ISO weeks: isoweek.go computes ISO-8601 week-year, week number and Monday anchor
//  3. Time buckets: timebucket.go groups rows into weekly/monthly/quarterly/yearly sums
//  4. Distributions: distribution.go builds category shares, histograms, Pareto curves and range buckets
//  5. Statistics: statistics.go computes per-column descriptive statistics and percentiles
//
// # Usage
//
//	series := analytics.Aggregate(rows, analytics.AggregateOptions{
//	    DateColumn:   "date",
//	    ValueColumns: []string{"amount"},
//	})
//	for _, b := range series.Monthly {
//	    fmt.Println(b.Key, b.Count, b.Sums["amount"])
//	}
//
//	dist := analytics.DistributionByCategory(rows, "region", "amount")
//	curve := analytics.Pareto(dist)
//
//	stats := analytics.CalculateColumnStatistics(rows, "amount", "Amount")
//
// # Error Handling
//
// Bad data is never fatal. A date or number that cannot be coerced excludes
// the row or value from the affected aggregation and processing continues.
// Invalid parameters, such as a non-positive histogram bin count, are
// programming errors and are returned as INVALID_PARAMETER errors.
//
// # Concurrency
//
// Every function in this package is pure. Inputs are never mutated and no
// state survives between calls, so results are safe to share and memoize.
package analytics
