package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dashcli/internal/analytics"
	"dashcli/internal/exporter"
	"dashcli/internal/services"
)

func newTimeSeriesCmd(root *rootOptions) *cobra.Command {
	var (
		dateColumn string
		mode       string
		values     []string
		period     string
	)

	cmd := &cobra.Command{
		Use:   "timeseries",
		Short: "Bucket rows by ISO week, month, quarter and year",
		RunE: func(cmd *cobra.Command, args []string) error {
			var selected analytics.Period
			if period != "" {
				p, ok := analytics.ParsePeriod(period)
				if !ok {
					return fmt.Errorf("unknown period %q (weekly, monthly, quarterly, yearly)", period)
				}
				selected = p
			}

			s, err := root.open(cmd)
			if err != nil {
				return err
			}
			ts, _, err := s.svc.TimeSeries(commandContext(cmd), services.TimeSeriesQuery{
				Dataset:      datasetName,
				DateColumn:   dateColumn,
				Mode:         analytics.DateMode(mode),
				ValueColumns: values,
			})
			if err != nil {
				return err
			}

			if selected != "" {
				buckets := ts.ByPeriod(selected)
				return s.emit(buckets, exporter.TimeSeriesTable(string(selected), buckets))
			}
			tables := make([]exporter.Table, 0, len(analytics.Periods))
			for _, p := range analytics.Periods {
				tables = append(tables, exporter.TimeSeriesTable(string(p), ts.ByPeriod(p)))
			}
			return s.emit(ts, tables...)
		},
	}

	cmd.Flags().StringVar(&dateColumn, "date-column", "", "column holding the date (or the file name in filename mode)")
	cmd.Flags().StringVar(&mode, "mode", string(analytics.DateModeColumn), "date source: column or filename")
	cmd.Flags().StringSliceVar(&values, "values", nil, "numeric columns to sum per bucket")
	cmd.Flags().StringVar(&period, "period", "", "print a single period (weekly, monthly, quarterly, yearly)")
	_ = cmd.MarkFlagRequired("date-column")
	return cmd
}

func newDistributionCmd(root *rootOptions) *cobra.Command {
	var (
		category string
		value    string
		top      int
		pareto   bool
	)

	cmd := &cobra.Command{
		Use:   "distribution",
		Short: "Total a value column (or count rows) per category",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := root.open(cmd)
			if err != nil {
				return err
			}
			result, _, err := s.svc.Distribution(commandContext(cmd), services.DistributionQuery{
				Dataset:        datasetName,
				CategoryColumn: category,
				ValueColumn:    value,
				TopN:           top,
				Pareto:         pareto,
			})
			if err != nil {
				return err
			}

			tables := []exporter.Table{exporter.DistributionTable("distribution", result.Entries)}
			if pareto {
				tables = append(tables, exporter.ParetoTable("pareto", result.Pareto))
			}
			return s.emit(result, tables...)
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "category column")
	cmd.Flags().StringVar(&value, "value", "", "value column to total; rows are counted when empty")
	cmd.Flags().IntVar(&top, "top", 0, "keep only the N largest categories (0 keeps all)")
	cmd.Flags().BoolVar(&pareto, "pareto", false, "include the cumulative Pareto curve")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func newHistogramCmd(root *rootOptions) *cobra.Command {
	var (
		column string
		bins   int
	)

	cmd := &cobra.Command{
		Use:   "histogram",
		Short: "Split a numeric column into equal-width bins",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := root.open(cmd)
			if err != nil {
				return err
			}
			result, _, err := s.svc.Histogram(commandContext(cmd), services.HistogramQuery{
				Dataset: datasetName,
				Column:  column,
				Bins:    bins,
			})
			if err != nil {
				return err
			}
			return s.emit(result, exporter.HistogramTable("histogram", result))
		},
	}

	cmd.Flags().StringVar(&column, "column", "", "numeric column")
	cmd.Flags().IntVar(&bins, "bins", services.DefaultHistogramBins, "number of bins")
	_ = cmd.MarkFlagRequired("column")
	return cmd
}

func newRangesCmd(root *rootOptions) *cobra.Command {
	var (
		column string
		edges  []float64
	)

	cmd := &cobra.Command{
		Use:   "ranges",
		Short: "Count a numeric column into buckets between ascending edges",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := root.open(cmd)
			if err != nil {
				return err
			}
			result, _, err := s.svc.Ranges(commandContext(cmd), services.RangesQuery{
				Dataset: datasetName,
				Column:  column,
				Edges:   edges,
			})
			if err != nil {
				return err
			}
			return s.emit(result, exporter.RangesTable("ranges", result))
		},
	}

	cmd.Flags().StringVar(&column, "column", "", "numeric column")
	cmd.Flags().Float64SliceVar(&edges, "edges", nil, "strictly ascending bucket edges; the last bucket is open-ended")
	_ = cmd.MarkFlagRequired("column")
	_ = cmd.MarkFlagRequired("edges")
	return cmd
}

func newStatsCmd(root *rootOptions) *cobra.Command {
	var columns []string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Descriptive statistics for numeric columns",
		Example: `  dashboard stats -d sales.csv --columns "amount=Sale amount,qty"
  dashboard stats -d sales.json   # every numeric column`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := root.open(cmd)
			if err != nil {
				return err
			}
			result, _, err := s.svc.Statistics(commandContext(cmd), services.StatisticsQuery{
				Dataset: datasetName,
				Columns: parseColumns(columns),
			})
			if err != nil {
				return err
			}
			return s.emit(result, exporter.StatisticsTable("statistics", result))
		},
	}

	cmd.Flags().StringSliceVar(&columns, "columns", nil, "columns as key or key=Label; all numeric columns when omitted")
	return cmd
}
