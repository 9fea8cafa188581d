package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format used on the wire.
const DateLayout = "2006-01-02"

const day = 24 * time.Hour

// ErrInvalidDate is returned when a date string cannot be parsed.
var ErrInvalidDate = errors.New("invalid date")

// ParseDate accepts "2006-01-02" or an RFC3339 timestamp and returns the
// calendar date at UTC midnight. Timestamps keep their own calendar day.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return DateOf(t), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// DateOf strips the clock from t, keeping the calendar day of t's location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns whole days from a to b (negative if b is before a).
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)) / day)
}

// AddDays shifts a calendar date by n days.
func AddDays(t time.Time, n int) time.Time {
	return DateOf(t).AddDate(0, 0, n)
}

// MonthKey formats the calendar month of t as "2006-01".
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// WeekIndex numbers ISO weeks consecutively so that adjacent weeks differ by
// exactly one, across year boundaries.
func WeekIndex(t time.Time) int {
	t = DateOf(t)
	// Monday of t's ISO week.
	offset := (int(t.Weekday()) + 6) % 7
	monday := t.AddDate(0, 0, -offset)
	return int(monday.Unix() / int64(7*day/time.Second))
}
