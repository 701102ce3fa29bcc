package analytics

import (
	"fmt"
	"math"
	"time"
)

const day = 24 * time.Hour

// WeekInfo describes the ISO-8601 week containing a date.
type WeekInfo struct {
	WeekYear   int       `json:"week_year"`
	WeekNumber int       `json:"week_number"`
	Monday     time.Time `json:"monday"`
}

// Key renders the week as "YYYY-Www".
func (w WeekInfo) Key() string {
	return fmt.Sprintf("%04d-W%02d", w.WeekYear, w.WeekNumber)
}

// ISOWeek returns the ISO week-year, week number and Monday of the week
// containing t. Only the calendar date of t is used, and Monday is UTC
// midnight of that week's first day. Monday <= date < Monday+7 days holds for
// calendar dates; an instant with a non-UTC offset may precede its Monday.
func ISOWeek(t time.Time) WeekInfo {
	date := utcMidnight(t)
	offset := mondayOffset(date)

	// The ISO week-year is the year of the week's Thursday.
	thursday := date.AddDate(0, 0, -offset+3)
	weekYear := thursday.Year()

	jan4 := time.Date(weekYear, time.January, 4, 0, 0, 0, 0, time.UTC)
	week1Monday := jan4.AddDate(0, 0, -mondayOffset(jan4))

	weeks := float64(thursday.Sub(week1Monday)) / float64(7*day)

	return WeekInfo{
		WeekYear:   weekYear,
		WeekNumber: 1 + int(math.Round(weeks)),
		Monday:     date.AddDate(0, 0, -offset),
	}
}

// mondayOffset is the number of days since the most recent Monday.
func mondayOffset(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func utcMidnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
