// Package loader reads dataset rows from files. Failures are classified so
// the retry manager can tell a transient read error from bad input.
package loader

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"dashcli/internal/analytics"
	apperrors "dashcli/internal/errors"
)

// Source produces the rows of a dataset.
type Source interface {
	Load(ctx context.Context) ([]analytics.Row, error)
}

// FileSource reads a JSON array of objects, JSON lines, or a CSV file with a
// header row (selected by the .csv extension).
type FileSource struct {
	Path string
}

// NewFileSource returns a source for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Load reads the file. A missing file is NOT_FOUND, any other read failure
// is TRANSIENT_LOAD and malformed content is UNPARSEABLE.
func (s *FileSource) Load(ctx context.Context) ([]analytics.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("dataset file %s", s.Path))
		}
		return nil, apperrors.NewTransientLoadError(fmt.Sprintf("failed to read %s", s.Path), err)
	}

	if strings.EqualFold(filepath.Ext(s.Path), ".csv") {
		return decodeCSV(s.Path, data)
	}
	return decodeJSON(s.Path, data)
}

func decodeJSON(path string, data []byte) ([]analytics.Row, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []analytics.Row{}, nil
	}

	if trimmed[0] == '[' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		var rows []analytics.Row
		if err := dec.Decode(&rows); err != nil {
			return nil, apperrors.NewUnparseableError(fmt.Sprintf("invalid JSON array in %s", path), err)
		}
		if rows == nil {
			rows = []analytics.Row{}
		}
		return rows, nil
	}

	rows := make([]analytics.Row, 0)
	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(text))
		dec.UseNumber()
		var row analytics.Row
		if err := dec.Decode(&row); err != nil {
			return nil, apperrors.NewUnparseableError(fmt.Sprintf("invalid JSON on line %d of %s", line, path), err)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.NewUnparseableError(fmt.Sprintf("failed to scan %s", path), err)
	}
	return rows, nil
}

func decodeCSV(path string, data []byte) ([]analytics.Row, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return []analytics.Row{}, nil
	}
	if err != nil {
		return nil, apperrors.NewUnparseableError(fmt.Sprintf("invalid CSV header in %s", path), err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	rows := make([]analytics.Row, 0)
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.NewUnparseableError(fmt.Sprintf("invalid CSV record in %s", path), err)
		}
		row := make(analytics.Row, len(header))
		for i, col := range header {
			if record[i] == "" {
				row[col] = nil
				continue
			}
			row[col] = record[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ChunkedSource loads several sources concurrently and concatenates their
// rows in source order. Any failing chunk fails the whole load with that
// chunk's error.
type ChunkedSource struct {
	Sources     []Source
	Concurrency int
}

// NewChunkedSource builds a chunked source over file paths.
func NewChunkedSource(paths ...string) *ChunkedSource {
	sources := make([]Source, len(paths))
	for i, p := range paths {
		sources[i] = NewFileSource(p)
	}
	return &ChunkedSource{Sources: sources, Concurrency: 4}
}

func (s *ChunkedSource) Load(ctx context.Context) ([]analytics.Row, error) {
	chunks := make([][]analytics.Row, len(s.Sources))

	g, ctx := errgroup.WithContext(ctx)
	if s.Concurrency > 0 {
		g.SetLimit(s.Concurrency)
	}
	for i, src := range s.Sources {
		g.Go(func() error {
			rows, err := src.Load(ctx)
			if err != nil {
				return err
			}
			chunks[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	rows := make([]analytics.Row, 0, total)
	for _, c := range chunks {
		rows = append(rows, c...)
	}
	return rows, nil
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]analytics.Row, error)

func (f SourceFunc) Load(ctx context.Context) ([]analytics.Row, error) { return f(ctx) }
