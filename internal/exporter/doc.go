// Package exporter renders analytics results as tables and writes them as
// CSV files or multi-sheet Excel workbooks.
//
// Tables are built with TimeSeriesTable, DistributionTable, HistogramTable,
// RangesTable and StatisticsTable. Numbers are rounded to six decimal places
// with trailing zeros dropped.
//
//	w := exporter.NewCSVWriter("reports", logger)
//	err := w.WriteDistributionCSV("regions.csv", entries)
//
//	err = exporter.WriteWorkbook("dashboard.xlsx",
//	    exporter.TimeSeriesTable("monthly", ts.Monthly),
//	    exporter.StatisticsTable("statistics", stats))
package exporter
