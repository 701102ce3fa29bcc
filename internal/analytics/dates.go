package analytics

import (
	"path/filepath"
	"regexp"
	"strconv"
	"time"
)

// DateMatcher tries to extract a calendar date from a string. It reports
// false when its pattern is absent or describes an impossible date.
type DateMatcher struct {
	Name  string
	Match func(s string) (time.Time, bool)
}

var (
	embeddedDigitsRe = regexp.MustCompile(`(\d{4})(\d{2})(\d{2})`)
	isoDateRe        = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	dottedDateRe     = regexp.MustCompile(`^(\d{2})\.(\d{2})\.(\d{4})$`)
	slashedDateRe    = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{4})$`)
)

// Matchers in precedence order. The first matcher that fires wins.
var (
	// EmbeddedDigitsMatcher finds a YYYYMMDD run anywhere in the string,
	// e.g. "20250105" or "data_20250105.csv".
	EmbeddedDigitsMatcher = DateMatcher{Name: "embedded_yyyymmdd", Match: matchEmbeddedDigits}
	// ISODateMatcher accepts exactly YYYY-MM-DD.
	ISODateMatcher = DateMatcher{Name: "iso", Match: func(s string) (time.Time, bool) {
		return matchYMD(isoDateRe, s, 1, 2, 3)
	}}
	// DottedDateMatcher accepts exactly DD.MM.YYYY.
	DottedDateMatcher = DateMatcher{Name: "dotted_dmy", Match: func(s string) (time.Time, bool) {
		return matchYMD(dottedDateRe, s, 3, 2, 1)
	}}
	// SlashedDateMatcher accepts exactly MM/DD/YYYY.
	SlashedDateMatcher = DateMatcher{Name: "slashed_mdy", Match: func(s string) (time.Time, bool) {
		return matchYMD(slashedDateRe, s, 3, 1, 2)
	}}
)

// DefaultMatchers returns the resolver's matcher chain in precedence order.
func DefaultMatchers() []DateMatcher {
	return []DateMatcher{
		EmbeddedDigitsMatcher,
		ISODateMatcher,
		DottedDateMatcher,
		SlashedDateMatcher,
	}
}

// Resolve turns a scalar into a calendar date. time.Time values are returned
// unchanged, except the zero time which counts as a missing date. Strings go
// through DefaultMatchers. Anything else is unresolvable.
func Resolve(v any) (time.Time, bool) {
	return ResolveWith(v, DefaultMatchers())
}

// ResolveWith is Resolve with a caller supplied matcher chain.
func ResolveWith(v any, matchers []DateMatcher) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return time.Time{}, false
		}
		return t, true
	case *time.Time:
		if t == nil || t.IsZero() {
			return time.Time{}, false
		}
		return *t, true
	case string:
		for _, m := range matchers {
			if d, ok := m.Match(t); ok {
				return d, true
			}
		}
	}
	return time.Time{}, false
}

// ResolveFromFilename extracts the embedded YYYYMMDD date of a file name.
// Directory components are ignored.
func ResolveFromFilename(name string) (time.Time, bool) {
	return matchEmbeddedDigits(filepath.Base(name))
}

// HasEmbeddedDate reports whether name contains an 8-digit run.
func HasEmbeddedDate(name string) bool {
	return embeddedDigitsRe.MatchString(filepath.Base(name))
}

func matchEmbeddedDigits(s string) (time.Time, bool) {
	for _, m := range embeddedDigitsRe.FindAllStringSubmatch(s, -1) {
		if d, ok := buildDate(m[1], m[2], m[3]); ok {
			return d, true
		}
	}
	return time.Time{}, false
}

func matchYMD(re *regexp.Regexp, s string, yi, mi, di int) (time.Time, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	return buildDate(m[yi], m[mi], m[di])
}

// buildDate rejects dates that time.Date would normalize, such as 2025-02-30.
func buildDate(ys, ms, ds string) (time.Time, bool) {
	y, err1 := strconv.Atoi(ys)
	m, err2 := strconv.Atoi(ms)
	d, err3 := strconv.Atoi(ds)
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}

	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}
