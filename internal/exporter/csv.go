package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"dashcli/internal/analytics"
)

// CSVWriter writes result tables as CSV files under a base directory
type CSVWriter struct {
	baseDir string
	logger  *slog.Logger
}

// NewCSVWriter creates a CSV writer. Relative paths resolve against baseDir.
func NewCSVWriter(baseDir string, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{baseDir: baseDir, logger: logger}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Append    bool
	BOMPrefix bool // UTF-8 BOM so spreadsheet tools detect the encoding
}

// WriteTable writes table to filePath
func (w *CSVWriter) WriteTable(filePath string, table Table, options WriteOptions) error {
	fullPath := w.resolvePath(filePath)

	w.logger.Info("Writing CSV file",
		slog.String("table", table.Name),
		slog.String("full_path", fullPath),
		slog.Int("record_count", len(table.Records)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY
	if options.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := os.OpenFile(fullPath, flags, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if options.BOMPrefix && !options.Append {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	if options.Append {
		table.Headers = nil
	}
	return WriteCSV(file, table)
}

// WriteCSV encodes table to out, headers first
func WriteCSV(out io.Writer, table Table) error {
	writer := csv.NewWriter(out)

	if len(table.Headers) > 0 {
		if err := writer.Write(table.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range table.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// resolvePath keeps absolute paths and anchors relative ones at baseDir
func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) || w.baseDir == "" {
		return filePath
	}
	return filepath.Join(w.baseDir, filePath)
}

// WriteTimeSeriesCSV writes time buckets to filePath
func (w *CSVWriter) WriteTimeSeriesCSV(filePath string, buckets []analytics.Bucket) error {
	return w.WriteTable(filePath, TimeSeriesTable("timeseries", buckets), WriteOptions{BOMPrefix: true})
}

// WriteDistributionCSV writes category entries to filePath
func (w *CSVWriter) WriteDistributionCSV(filePath string, entries []analytics.CategoryEntry) error {
	return w.WriteTable(filePath, DistributionTable("distribution", entries), WriteOptions{BOMPrefix: true})
}

// WriteStatisticsCSV writes column statistics to filePath
func (w *CSVWriter) WriteStatisticsCSV(filePath string, stats []analytics.ColumnStatistics) error {
	return w.WriteTable(filePath, StatisticsTable("statistics", stats), WriteOptions{BOMPrefix: true})
}
