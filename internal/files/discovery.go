package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"dashcli/internal/analytics"
	apperrors "dashcli/internal/errors"
)

// Format is the row encoding of a data file
type Format string

const (
	FormatJSON      Format = "json"
	FormatJSONLines Format = "jsonl"
	FormatCSV       Format = "csv"
)

var formatsByExt = map[string]Format{
	".json":   FormatJSON,
	".jsonl":  FormatJSONLines,
	".ndjson": FormatJSONLines,
	".csv":    FormatCSV,
}

// FileInfo represents a discovered data file. Path is relative to the
// discovery base directory.
type FileInfo struct {
	Path    string     `json:"path"`
	Name    string     `json:"name"`
	Size    int64      `json:"size"`
	ModTime time.Time  `json:"mod_time"`
	Format  Format     `json:"format"`
	Date    *time.Time `json:"date,omitempty"`
}

// Discovery provides file discovery operations
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// DetectFormat returns the format selected by the file extension
func DetectFormat(name string) (Format, bool) {
	f, ok := formatsByExt[strings.ToLower(filepath.Ext(name))]
	return f, ok
}

// FindDataFiles returns the data files matching pattern, relative to the
// base directory. An empty pattern matches every file in the base directory.
// Files with an embedded date come first in date order; the rest follow by
// name.
func (d *Discovery) FindDataFiles(pattern string) ([]FileInfo, error) {
	if pattern == "" {
		pattern = "*"
	}
	if !filepath.IsLocal(pattern) {
		return nil, apperrors.NewInvalidParameterError("pattern", "must be relative to the data directory")
	}

	matches, err := filepath.Glob(filepath.Join(d.basePath, pattern))
	if err != nil {
		return nil, apperrors.NewInvalidParameterError("pattern", err.Error())
	}

	var found []FileInfo
	for _, match := range matches {
		format, ok := DetectFormat(match)
		if !ok {
			continue
		}
		info, err := os.Stat(match)
		if err != nil || info.IsDir() {
			continue
		}
		rel, err := filepath.Rel(d.basePath, match)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", match, err)
		}

		fi := FileInfo{
			Path:    filepath.ToSlash(rel),
			Name:    info.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Format:  format,
		}
		if date, ok := analytics.ResolveFromFilename(info.Name()); ok {
			fi.Date = &date
		}
		found = append(found, fi)
	}

	SortByDate(found)
	return found, nil
}

// SortByDate orders dated files chronologically ahead of undated ones.
// Ties break on name.
func SortByDate(files []FileInfo) {
	sort.SliceStable(files, func(i, j int) bool {
		a, b := files[i].Date, files[j].Date
		switch {
		case a != nil && b != nil && !a.Equal(*b):
			return a.Before(*b)
		case (a == nil) != (b == nil):
			return a != nil
		}
		return files[i].Name < files[j].Name
	})
}

// Paths returns the file paths joined onto base
func Paths(base string, files []FileInfo) []string {
	return lo.Map(files, func(f FileInfo, _ int) string {
		return filepath.Join(base, filepath.FromSlash(f.Path))
	})
}

// FilterByDateRange keeps dated files within [from, to]. Undated files are
// dropped. A zero bound is open.
func FilterByDateRange(files []FileInfo, from, to time.Time) []FileInfo {
	return lo.Filter(files, func(f FileInfo, _ int) bool {
		if f.Date == nil {
			return false
		}
		if !from.IsZero() && f.Date.Before(from) {
			return false
		}
		return to.IsZero() || !f.Date.After(to)
	})
}

// Latest returns the file with the most recent embedded date
func Latest(files []FileInfo) (FileInfo, bool) {
	dated := lo.Filter(files, func(f FileInfo, _ int) bool { return f.Date != nil })
	if len(dated) == 0 {
		return FileInfo{}, false
	}
	return lo.MaxBy(dated, func(a, b FileInfo) bool { return a.Date.After(*b.Date) }), true
}
