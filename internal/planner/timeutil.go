package planner

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseError reports a timestamp or wall-clock value the planner could not
// parse. Callers must not silently coerce malformed input.
type ParseError struct {
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %q: %v", e.Value, e.Err)
	}
	return fmt.Sprintf("parse %q", e.Value)
}

func (e *ParseError) Unwrap() error { return e.Err }

var instantLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseInstant parses an ISO-8601 timestamp into a UTC instant. Offsets and
// the trailing Z designator are honored; naive timestamps are taken as UTC.
func ParseInstant(value string) (time.Time, error) {
	raw := strings.TrimSpace(value)
	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, &ParseError{Value: value, Err: fmt.Errorf("unsupported timestamp format")}
}

// FormatInstant renders a UTC ISO-8601 string with an explicit Z designator.
// Round-trips exactly with ParseInstant.
func FormatInstant(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// clockTime is a wall-clock time of day, independent of any date or zone.
type clockTime struct {
	hour   int
	minute int
}

func parseClockTime(value string) (clockTime, error) {
	parts := strings.SplitN(strings.TrimSpace(value), ":", 2)
	if len(parts) != 2 {
		return clockTime{}, &ParseError{Value: value, Err: fmt.Errorf("expected HH:MM")}
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return clockTime{}, &ParseError{Value: value, Err: err}
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return clockTime{}, &ParseError{Value: value, Err: err}
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return clockTime{}, &ParseError{Value: value, Err: fmt.Errorf("out of range")}
	}
	return clockTime{hour: hour, minute: minute}, nil
}

// ValidateClockTime checks an HH:MM wall-clock value without exposing the
// parsed representation.
func ValidateClockTime(value string) error {
	_, err := parseClockTime(value)
	return err
}

// at anchors the clock on a calendar day in loc and returns the UTC instant.
// Going through time.Date keeps the conversion correct across DST changes.
func (c clockTime) at(day time.Time, loc *time.Location) time.Time {
	year, month, dom := day.In(loc).Date()
	return time.Date(year, month, dom, c.hour, c.minute, 0, 0, loc).UTC()
}

// LocalDayBounds converts a user's local day-start and day-end wall-clock
// times on the given calendar day into UTC instants.
func LocalDayBounds(day time.Time, dayStart, dayEnd string, loc *time.Location) (time.Time, time.Time, error) {
	startClock, err := parseClockTime(dayStart)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	endClock, err := parseClockTime(dayEnd)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return startClock.at(day, loc), endClock.at(day, loc), nil
}

// localMidnight returns the calendar day of t as local midnight in loc.
func localMidnight(t time.Time, loc *time.Location) time.Time {
	year, month, dom := t.In(loc).Date()
	return time.Date(year, month, dom, 0, 0, 0, 0, loc)
}

// sameLocalDay reports whether t falls on the calendar day identified by day
// (a local midnight) in loc.
func sameLocalDay(t time.Time, day time.Time, loc *time.Location) bool {
	y1, m1, d1 := t.In(loc).Date()
	y2, m2, d2 := day.In(loc).Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
