// Package stats is the aggregation engine. Every function here is pure: it
// reads a slice of events and returns freshly built views. Empty input gives
// zero counts and empty slices, never an error.
package stats

import (
	"cmp"
	"slices"

	"github.com/samber/lo"

	"github.com/okian/paxstats/internal/domain/model"
	"github.com/okian/paxstats/internal/domain/types"
)

// LocationStats rolls up events into one record.
func LocationStats(events []model.Backblast) types.LocationStats {
	var out types.LocationStats
	pax := make(map[model.PersonID]struct{})
	qs := make(map[model.PersonID]struct{})
	for i := range events {
		e := &events[i]
		out.TotalEvents++
		out.TotalPosts += e.Posts()
		for _, p := range e.Participants {
			pax[p] = struct{}{}
		}
		for _, q := range e.Leaders {
			qs[q] = struct{}{}
		}
	}
	out.UniqueParticipants = len(pax)
	out.UniqueLeaders = len(qs)
	if out.TotalEvents > 0 {
		out.AverageAttendance = float64(out.TotalPosts) / float64(out.TotalEvents)
	}
	return out
}

// LocationBreakdown returns one record per location, busiest first.
func LocationBreakdown(events []model.Backblast, opts ...Option) []types.LocationStats {
	o := buildOptions(opts)
	byLoc := lo.GroupBy(events, func(e model.Backblast) model.LocationID { return e.Location })

	out := make([]types.LocationStats, 0, len(byLoc))
	for loc, evs := range byLoc {
		s := LocationStats(evs)
		s.Location = o.names.LocationName(loc)
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b types.LocationStats) int {
		if c := cmp.Compare(b.TotalEvents, a.TotalEvents); c != 0 {
			return c
		}
		return cmp.Compare(a.Location, b.Location)
	})
	return out
}
