package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"dashcli/internal/analytics"
	"dashcli/internal/config"
	apperrors "dashcli/internal/errors"
	"dashcli/internal/exporter"
	"dashcli/internal/files"
	"dashcli/internal/infrastructure"
	"dashcli/internal/loader"
	"dashcli/internal/services"
	"dashcli/pkg/contracts"
)

// datasetName is the registry name rows are loaded under
const datasetName = "input"

// rootOptions are the flags shared by every subcommand
type rootOptions struct {
	data        []string
	dir         string
	pattern     string
	concurrency int
	csvOut      string
	xlsxOut     string
	logLevel    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "dashboard",
		Short: "Dashboard analytics over JSON, JSON-lines and CSV row files",
		Long: `dashboard loads rows from one or more files and computes time series,
category distributions, histograms, value ranges and column statistics.
Results are printed as JSON and can be exported with --csv or --xlsx.`,
		Version:      contracts.VersionString(),
		SilenceUsage: true,
	}

	f := root.PersistentFlags()
	f.StringSliceVarP(&opts.data, "data", "d", nil, "row file(s) to load; several files are loaded concurrently")
	f.StringVar(&opts.dir, "dir", "", "directory to discover row files in, loaded in file-name date order")
	f.StringVar(&opts.pattern, "pattern", "*", "glob selecting files under --dir")
	f.IntVar(&opts.concurrency, "concurrency", 4, "maximum files loaded at once")
	f.StringVar(&opts.csvOut, "csv", "", "also write the result to this CSV file")
	f.StringVar(&opts.xlsxOut, "xlsx", "", "also write the result to this Excel workbook")
	f.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		newTimeSeriesCmd(opts),
		newDistributionCmd(opts),
		newHistogramCmd(opts),
		newRangesCmd(opts),
		newStatsCmd(opts),
	)
	return root
}

// session is a dashboard service with the input rows registered
type session struct {
	svc    *services.DashboardService
	logger *slog.Logger
	out    io.Writer
	opts   *rootOptions
}

func (o *rootOptions) open(cmd *cobra.Command) (*session, error) {
	logger := infrastructure.NewLogger(config.LoggingConfig{Level: o.logLevel}, cmd.ErrOrStderr())
	svc := services.NewDashboardService(services.DashboardOptions{Logger: logger})

	paths, err := o.paths(logger)
	if err != nil {
		return nil, err
	}

	var source loader.Source
	if len(paths) == 1 {
		source = loader.NewFileSource(paths[0])
	} else {
		chunked := loader.NewChunkedSource(paths...)
		chunked.Concurrency = o.concurrency
		source = chunked
	}

	ctx := commandContext(cmd)
	info, err := svc.LoadDataset(ctx, datasetName, source)
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "rows loaded",
		slog.Int("rows", info.Rows),
		slog.Any("columns", info.Columns))

	return &session{svc: svc, logger: logger, out: cmd.OutOrStdout(), opts: o}, nil
}

// paths returns the --data files followed by the files discovered in --dir
func (o *rootOptions) paths(logger *slog.Logger) ([]string, error) {
	paths := append([]string(nil), o.data...)
	if o.dir != "" {
		found, err := files.NewDiscovery(o.dir).FindDataFiles(o.pattern)
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("data files matching %s in %s", o.pattern, o.dir))
		}
		logger.Debug("data files discovered", slog.String("dir", o.dir), slog.Int("files", len(found)))
		paths = append(paths, files.Paths(o.dir, found)...)
	}
	if len(paths) == 0 {
		return nil, errors.New("no input: pass --data or --dir")
	}
	return paths, nil
}

// emit prints result as indented JSON and writes the requested exports.
// The CSV file receives the first table only.
func (s *session) emit(result interface{}, tables ...exporter.Table) error {
	enc := json.NewEncoder(s.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	if s.opts.csvOut != "" && len(tables) > 0 {
		w := exporter.NewCSVWriter("", s.logger)
		if err := w.WriteTable(s.opts.csvOut, tables[0], exporter.WriteOptions{BOMPrefix: true}); err != nil {
			return err
		}
	}
	if s.opts.xlsxOut != "" && len(tables) > 0 {
		if err := exporter.WriteWorkbook(s.opts.xlsxOut, tables...); err != nil {
			return err
		}
	}
	return nil
}

// parseColumns turns "key" or "key=Label" flags into column references
func parseColumns(flags []string) []analytics.ColumnRef {
	refs := make([]analytics.ColumnRef, 0, len(flags))
	for _, flag := range flags {
		key, label, found := strings.Cut(flag, "=")
		key = strings.TrimSpace(key)
		if !found || strings.TrimSpace(label) == "" {
			label = key
		}
		refs = append(refs, analytics.ColumnRef{Key: key, Label: strings.TrimSpace(label)})
	}
	return refs
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
