// Package period resolves logical date filters into concrete start/end
// instants. Resolution is pure: the reference "now" is always supplied
// by the caller, never read from the clock.
package period

import (
	"fmt"
	"time"
)

// Filter selects a logical date range.
type Filter string

const (
	ThisMonth     Filter = "thisMonth"
	LastMonth     Filter = "lastMonth"
	Last3Months   Filter = "last3Months"
	Last6Months   Filter = "last6Months"
	ThisYear      Filter = "thisYear"
	LastYear      Filter = "lastYear"
	SpecificMonth Filter = "specificMonth"
)

// Range is a resolved date range, inclusive on both ends at day
// granularity: Start is the first instant of its day, End the last
// whole second of its day.
type Range struct {
	Start time.Time
	End   time.Time
}

// ParseFilter maps a wire-level filter name to a Filter.
func ParseFilter(s string) (Filter, error) {
	switch Filter(s) {
	case ThisMonth, LastMonth, Last3Months, Last6Months, ThisYear, LastYear, SpecificMonth:
		return Filter(s), nil
	}
	return "", fmt.Errorf("unknown date filter %q", s)
}

// Resolve maps a filter to a concrete range anchored on now. For
// SpecificMonth the month containing ref is used; other filters ignore
// ref. Time-of-day components are normalized here so callers never
// deal with day boundaries.
//
// LastYear is a rolling 1-year window while ThisYear is anchored to
// January 1st. The asymmetry is intentional and kept as the product
// defines it.
func Resolve(f Filter, now time.Time, ref time.Time) Range {
	switch f {
	case ThisMonth:
		return MonthOf(now)
	case LastMonth:
		return MonthOf(AddMonths(now, -1))
	case Last3Months:
		return Range{Start: startOfDay(AddMonths(now, -3)), End: endOfDay(now)}
	case Last6Months:
		return Range{Start: startOfDay(AddMonths(now, -6)), End: endOfDay(now)}
	case ThisYear:
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
		return Range{Start: start, End: endOfDay(now)}
	case LastYear:
		return Range{Start: startOfDay(AddMonths(now, -12)), End: endOfDay(now)}
	case SpecificMonth:
		return MonthOf(ref)
	}
	return MonthOf(now)
}

// MonthOf returns the calendar-month range containing t.
func MonthOf(t time.Time) Range {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	end := start.AddDate(0, 1, -1)
	return Range{Start: start, End: endOfDay(end)}
}

// AddMonths shifts t by n calendar months, clamping the day to the
// target month's length (Mar 31 minus one month is Feb 28/29, not an
// overflow into March as time.AddDate would produce).
func AddMonths(t time.Time, n int) time.Time {
	year, month := t.Year(), int(t.Month())
	month += n
	for month < 1 {
		month += 12
		year--
	}
	for month > 12 {
		month -= 12
		year++
	}
	day := t.Day()
	if max := daysIn(year, time.Month(month)); day > max {
		day = max
	}
	return time.Date(year, time.Month(month), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// endOfDay truncates to the last whole second of the day, matching the
// second-granularity the store persists dates at.
func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}
