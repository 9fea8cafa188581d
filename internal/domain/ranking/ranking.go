// Package ranking defines the orderings used by leaderboards and reports.
//
// Every comparator ends on the person ID, so each one is a total order and
// sorting is deterministic regardless of input order.
package ranking

import (
	"cmp"
	"slices"
	"strings"

	"github.com/okian/paxstats/internal/domain/model"
	"github.com/okian/paxstats/internal/domain/types"
)

// Compare orders two PersonStats. Negative means a sorts first.
type Compare func(a, b types.PersonStats) int

// ByAttendance is the main leaderboard: total events desc, events per week
// desc, then name.
func ByAttendance(a, b types.PersonStats) int {
	if c := cmp.Compare(b.TotalEvents, a.TotalEvents); c != 0 {
		return c
	}
	if c := cmp.Compare(b.EventsPerWeek, a.EventsPerWeek); c != 0 {
		return c
	}
	return byID(a.ID, b.ID)
}

// ByLeaderRateDesc ranks the most frequent Qs first.
func ByLeaderRateDesc(a, b types.PersonStats) int {
	if c := cmp.Compare(b.LeaderRate, a.LeaderRate); c != 0 {
		return c
	}
	if c := cmp.Compare(b.TotalLeaderEvents, a.TotalLeaderEvents); c != 0 {
		return c
	}
	return byID(a.ID, b.ID)
}

// ByLeaderRateAsc ranks the least frequent Qs first. Among equal rates the
// more active PAX come first.
func ByLeaderRateAsc(a, b types.PersonStats) int {
	if c := cmp.Compare(a.LeaderRate, b.LeaderRate); c != 0 {
		return c
	}
	if c := cmp.Compare(b.TotalEvents, a.TotalEvents); c != 0 {
		return c
	}
	return byID(a.ID, b.ID)
}

// ByTotalEvents orders by total events desc, then name.
func ByTotalEvents(a, b types.PersonStats) int {
	if c := cmp.Compare(b.TotalEvents, a.TotalEvents); c != 0 {
		return c
	}
	return byID(a.ID, b.ID)
}

// Rank sorts stats with c and numbers the result from 1. A positive limit
// truncates the output.
func Rank(stats []types.PersonStats, c Compare, limit int) []types.LeaderboardEntry {
	sorted := slices.Clone(stats)
	slices.SortFunc(sorted, c)
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	out := make([]types.LeaderboardEntry, len(sorted))
	for i, s := range sorted {
		out[i] = types.LeaderboardEntry{Rank: i + 1, PersonStats: s}
	}
	return out
}

// IsSorted reports whether entries respect c. Used by the verifier.
func IsSorted(entries []types.LeaderboardEntry, c Compare) bool {
	return slices.IsSortedFunc(entries, func(a, b types.LeaderboardEntry) int {
		return c(a.PersonStats, b.PersonStats)
	})
}

// Kotter sort modes.
const (
	KotterRecent = "recent"
	KotterTotal  = "total"
)

// KotterOrder returns the comparator for a Kotter sort mode. Unknown modes
// fall back to KotterRecent.
func KotterOrder(mode string) func(a, b types.KotterEntry) int {
	if mode == KotterTotal {
		return func(a, b types.KotterEntry) int {
			if c := cmp.Compare(b.TotalEvents, a.TotalEvents); c != 0 {
				return c
			}
			return byID(a.ID, b.ID)
		}
	}
	return func(a, b types.KotterEntry) int {
		if c := cmp.Compare(a.DaysSinceLast, b.DaysSinceLast); c != 0 {
			return c
		}
		return byID(a.ID, b.ID)
	}
}

// ValidKotterOrder reports whether mode is a known Kotter sort mode.
func ValidKotterOrder(mode string) bool {
	return mode == KotterRecent || mode == KotterTotal
}

func byID(a, b model.PersonID) int {
	return strings.Compare(string(a), string(b))
}
