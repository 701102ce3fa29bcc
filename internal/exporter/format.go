package exporter

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// formatFloat renders f rounded to six decimal places without trailing zeros
func formatFloat(f float64) string {
	return decimal.NewFromFloat(f).Round(6).String()
}

// formatInt formats an int64 value for CSV output
func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

// formatDate renders a calendar date, empty for the zero time
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
