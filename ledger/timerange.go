/*
timerange.go - Range-key resolution and local-date arithmetic

PURPOSE:
  Turns a human-facing range selector ("7D", "MTD", ...) into a concrete
  closed interval [start, end] anchored to "now", and owns every piece of
  date/clock parsing in the engine. Date math here is the easiest place to
  silently corrupt a financial report: a one-day boundary error or a UTC
  parse of a local calendar date moves records between reporting windows.

RANGE SEMANTICS:
  end      always "now" at the end of its calendar day (23:59:59.999 local)
  7D/14D/30D  start = end's day minus (N-1) days at local midnight, so the
           window covers exactly N calendar days INCLUDING today
  MTD      start = first of the current month, local midnight
  YTD      start = January 1 of the current year, local midnight
  ALL      unbounded (nil start, nil end)

LOCAL DATES:
  "YYYY-MM-DD" strings are parsed in the reference location, never UTC.
  Parsing them as UTC shifts the date by a day for any user west of
  Greenwich, which is exactly the bug this file exists to prevent.

SEE ALSO:
  - aggregate.go: Filters canonical loops with DateRange.Contains
*/
package ledger

import (
	"time"
)

// =============================================================================
// RANGE KEYS - User-facing vocabulary (stable API contract)
// =============================================================================

// RangeKey selects a reporting time window. The string values are part of
// the contract with the UI layer and must not be renamed.
type RangeKey string

const (
	Range7D  RangeKey = "7D"
	Range14D RangeKey = "14D"
	Range30D RangeKey = "30D"
	RangeMTD RangeKey = "MTD"
	RangeYTD RangeKey = "YTD"
	RangeAll RangeKey = "ALL"
)

// RangeKeys lists the full vocabulary in display order.
var RangeKeys = []RangeKey{Range7D, Range14D, Range30D, RangeMTD, RangeYTD, RangeAll}

// =============================================================================
// DATE RANGE - Closed interval [Start, End]
// =============================================================================

// DateRange is a closed calendar-local interval. Nil bounds mean unbounded;
// RangeAll resolves to both bounds nil.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// Unbounded reports whether the range has no bounds at all (the ALL view).
func (dr DateRange) Unbounded() bool { return dr.Start == nil && dr.End == nil }

// Contains reports whether a record's date string falls in the range.
// An unbounded range contains every record, dated or not. A bounded range
// never contains a record whose date fails to parse.
func (dr DateRange) Contains(dateStr string) bool {
	if dr.Unbounded() {
		return true
	}
	loc := time.Local
	if dr.Start != nil {
		loc = dr.Start.Location()
	} else if dr.End != nil {
		loc = dr.End.Location()
	}
	d, ok := ParseLocalDate(dateStr, loc)
	if !ok {
		return false
	}
	if dr.Start != nil && d.Before(*dr.Start) {
		return false
	}
	if dr.End != nil && d.After(*dr.End) {
		return false
	}
	return true
}

// =============================================================================
// RESOLUTION
// =============================================================================

// Resolve turns a range key and a reference instant into concrete bounds.
// The zero value of now means "the caller's current time".
func Resolve(key RangeKey, now time.Time) (DateRange, error) {
	if now.IsZero() {
		now = time.Now()
	}
	end := endOfDay(now)

	var start time.Time
	switch key {
	case Range7D:
		start = startOfDay(now.AddDate(0, 0, -6))
	case Range14D:
		start = startOfDay(now.AddDate(0, 0, -13))
	case Range30D:
		start = startOfDay(now.AddDate(0, 0, -29))
	case RangeMTD:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	case RangeYTD:
		start = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	case RangeAll:
		return DateRange{}, nil
	default:
		return DateRange{}, ErrUnknownRangeKey
	}
	return DateRange{Start: &start, End: &end}, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// =============================================================================
// DATE PARSING - Calendar dates are LOCAL, not UTC
// =============================================================================

// ParseLocalDate parses a record's date string as a calendar date in loc.
// Plain "YYYY-MM-DD" strings are interpreted directly in loc to avoid the
// UTC day-boundary shift; fuller timestamps fall back to generic parsing
// and are converted into loc.
func ParseLocalDate(s string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "01/02/2006"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.In(loc), true
		}
	}
	return time.Time{}, false
}

// canonicalDate reformats a parsable date string to "YYYY-MM-DD"; a string
// that cannot be parsed is kept verbatim so the record is never discarded.
func canonicalDate(s string) string {
	if s == "" {
		return ""
	}
	if t, ok := ParseLocalDate(s, time.Local); ok {
		return t.Format("2006-01-02")
	}
	return s
}

// =============================================================================
// CLOCK TIMES
// =============================================================================

// ParseClock parses an "HH:MM" clock time into minutes since midnight.
// A single-digit hour ("9:30") is tolerated.
func ParseClock(s string) (int, bool) {
	if t, err := time.Parse("15:04", s); err == nil {
		return t.Hour()*60 + t.Minute(), true
	}
	if t, err := time.Parse("3:04", s); err == nil {
		return t.Hour()*60 + t.Minute(), true
	}
	return 0, false
}
