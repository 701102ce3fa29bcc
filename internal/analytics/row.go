package analytics

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Row is a single input record keyed by column name. Values are numbers,
// strings, time.Time dates, booleans or nil for absent cells.
type Row map[string]any

// ColumnRef identifies a column together with its display label.
type ColumnRef struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// ParseNumeric coerces a cell value into a finite float64. Strings may carry
// surrounding whitespace and thousands separators. Booleans, dates and absent
// values are not numeric.
func ParseNumeric(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		return parseNumericString(n.String())
	case decimal.Decimal:
		f = n.InexactFloat64()
	case string:
		return parseNumericString(n)
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseNumericString(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	f := d.InexactFloat64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// labelOf renders a cell value as a category label. Absent and blank values
// map to ok=false.
func labelOf(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case time.Time:
		return t.Format("2006-01-02"), true
	case float64:
		return formatNumber(t), true
	case json.Number:
		return t.String(), true
	default:
		return fmt.Sprint(t), true
	}
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
