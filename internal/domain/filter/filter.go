// Package filter narrows an event list by location scope and time window
// before aggregation.
package filter

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/okian/paxstats/internal/domain/model"
)

var (
	// ErrUnknownRegion is returned when a region name is not configured.
	ErrUnknownRegion = errors.New("unknown region")
	// ErrInvalidWindow is returned when a window string cannot be parsed.
	ErrInvalidWindow = errors.New("invalid window")
)

// Window selects events by date. The zero Window matches everything.
type Window struct {
	// Days keeps events with today - date <= Days.
	Days int
	// Year keeps events in one calendar year.
	Year int
	// From and To bound events inclusively. Either may be zero.
	From time.Time
	To   time.Time
}

// All is the window that matches every event.
var All = Window{}

// ParseWindow accepts "", "all", "<N>d", "year:<YYYY>" and "<from>..<to>"
// with either side optional.
func ParseWindow(s string) (Window, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch {
	case s == "" || s == "all":
		return All, nil
	case strings.HasPrefix(s, "year:"):
		y, err := strconv.Atoi(strings.TrimPrefix(s, "year:"))
		if err != nil || y < 1 {
			return Window{}, fmt.Errorf("%w: %q", ErrInvalidWindow, s)
		}
		return Window{Year: y}, nil
	case strings.Contains(s, ".."):
		from, to, _ := strings.Cut(s, "..")
		return Range(from, to)
	case strings.HasSuffix(s, "d"):
		n, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil || n < 1 {
			return Window{}, fmt.Errorf("%w: %q", ErrInvalidWindow, s)
		}
		return Window{Days: n}, nil
	}
	return Window{}, fmt.Errorf("%w: %q", ErrInvalidWindow, s)
}

// Range builds an explicit window from two optional dates.
func Range(from, to string) (Window, error) {
	var w Window
	var err error
	if from = strings.TrimSpace(from); from != "" {
		if w.From, err = model.ParseDate(from); err != nil {
			return Window{}, fmt.Errorf("%w: %w", ErrInvalidWindow, err)
		}
	}
	if to = strings.TrimSpace(to); to != "" {
		if w.To, err = model.ParseDate(to); err != nil {
			return Window{}, fmt.Errorf("%w: %w", ErrInvalidWindow, err)
		}
	}
	if !w.From.IsZero() && !w.To.IsZero() && w.To.Before(w.From) {
		return Window{}, fmt.Errorf("%w: %s is before %s", ErrInvalidWindow, to, from)
	}
	return w, nil
}

// Contains reports whether an event dated date qualifies on today.
func (w Window) Contains(date, today time.Time) bool {
	if w.Days > 0 && model.DaysBetween(date, today) > w.Days {
		return false
	}
	if w.Year > 0 && date.Year() != w.Year {
		return false
	}
	if !w.From.IsZero() && date.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && date.After(w.To) {
		return false
	}
	return true
}

// IsAll reports whether w matches every event.
func (w Window) IsAll() bool { return w == All }

func (w Window) String() string {
	switch {
	case w.IsAll():
		return "all"
	case w.Days > 0:
		return strconv.Itoa(w.Days) + "d"
	case w.Year > 0:
		return "year:" + strconv.Itoa(w.Year)
	}
	var from, to string
	if !w.From.IsZero() {
		from = w.From.Format(model.DateLayout)
	}
	if !w.To.IsZero() {
		to = w.To.Format(model.DateLayout)
	}
	return from + ".." + to
}

// Scope is a set of locations. A nil Scope means everywhere; an empty
// non-nil Scope matches nothing.
type Scope map[model.LocationID]struct{}

// NewScope builds a scope from location IDs.
func NewScope(locs ...model.LocationID) Scope {
	s := make(Scope, len(locs))
	for _, l := range locs {
		s[l] = struct{}{}
	}
	return s
}

// Contains reports whether loc is in scope.
func (s Scope) Contains(loc model.LocationID) bool {
	if s == nil {
		return true
	}
	_, ok := s[loc]
	return ok
}

// Everywhere reports whether s places no restriction.
func (s Scope) Everywhere() bool { return s == nil }

// Locations returns the scope's members sorted.
func (s Scope) Locations() []model.LocationID {
	out := make([]model.LocationID, 0, len(s))
	for l := range s {
		out = append(out, l)
	}
	slices.Sort(out)
	return out
}

// Apply returns the events inside scope and window, keeping input order.
func Apply(events []model.Backblast, scope Scope, window Window, today time.Time) []model.Backblast {
	if scope.Everywhere() && window.IsAll() {
		return events
	}
	out := make([]model.Backblast, 0, len(events))
	for i := range events {
		e := &events[i]
		if scope.Contains(e.Location) && window.Contains(e.Date, today) {
			out = append(out, *e)
		}
	}
	return out
}
