package santa

import (
	"fmt"
	"strings"
	"time"
)

const DefaultDateLayout = "02.01.2006"

// Dates are civil calendar days stored as midnight UTC so that comparisons
// don't depend on the server zone.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Today returns the calendar day of now as observed in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := now.In(loc).Date()
	return Date(y, m, d)
}

// ParseDate parses a user-entered date in layout.
func ParseDate(text, layout string) (time.Time, error) {
	if layout == "" {
		layout = DefaultDateLayout
	}
	t, err := time.Parse(layout, strings.TrimSpace(text))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrDateParse, text)
	}
	y, m, d := t.Date()
	return Date(y, m, d), nil
}

func FormatDate(t time.Time, layout string) string {
	if layout == "" {
		layout = DefaultDateLayout
	}
	return t.Format(layout)
}

// DaysBetween counts whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return int(Date(by, bm, bd).Sub(Date(ay, am, ad)).Hours() / 24)
}

// GapRule bounds the distance between two consecutive event dates.
type GapRule struct {
	MinDays int
	MaxDays int
}

func DefaultGapRule() GapRule {
	return GapRule{MinDays: 2, MaxDays: 31}
}

// Check fails with ErrDateRange when next is not within [MinDays, MaxDays]
// days after prev.
func (g GapRule) Check(prev, next time.Time) error {
	gap := DaysBetween(prev, next)
	if gap < g.MinDays || gap > g.MaxDays {
		return fmt.Errorf("%w: gap of %d days, want %d..%d", ErrDateRange, gap, g.MinDays, g.MaxDays)
	}
	return nil
}
