package stats

import (
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/okian/paxstats/internal/domain/model"
	"github.com/okian/paxstats/internal/domain/ranking"
	"github.com/okian/paxstats/internal/domain/types"
)

type personAcc struct {
	stats   types.PersonStats
	locs    map[model.LocationID]struct{}
	buddies map[model.PersonID]struct{}
	dates   []time.Time
}

// PersonStats computes per-PAX stats over events. Only people who posted at
// one of the events appear.
func PersonStats(events []model.Backblast, today time.Time, opts ...Option) map[model.PersonID]types.PersonStats {
	o := buildOptions(opts)
	acc := make(map[model.PersonID]*personAcc)

	for i := range events {
		e := &events[i]
		for _, p := range e.Participants {
			a, ok := acc[p]
			if !ok {
				a = &personAcc{
					stats:   types.PersonStats{ID: p, Name: o.names.Name(p), FirstEventDate: e.Date, LastEventDate: e.Date},
					locs:    make(map[model.LocationID]struct{}),
					buddies: make(map[model.PersonID]struct{}),
				}
				acc[p] = a
			}
			s := &a.stats
			s.TotalEvents++
			if e.Date.Before(s.FirstEventDate) {
				s.FirstEventDate = e.Date
			}
			if e.Date.After(s.LastEventDate) {
				s.LastEventDate = e.Date
			}
			a.locs[e.Location] = struct{}{}
			a.dates = append(a.dates, e.Date)
			for _, b := range e.Participants {
				if b != p {
					a.buddies[b] = struct{}{}
				}
			}
		}
		for _, q := range e.Leaders {
			a, ok := acc[q]
			if !ok {
				continue
			}
			s := &a.stats
			s.TotalLeaderEvents++
			d := e.Date
			if s.FirstLeaderDate == nil || d.Before(*s.FirstLeaderDate) {
				s.FirstLeaderDate = &d
			}
			if s.LastLeaderDate == nil || d.After(*s.LastLeaderDate) {
				s.LastLeaderDate = &d
			}
		}
	}

	out := make(map[model.PersonID]types.PersonStats, len(acc))
	for id, a := range acc {
		s := a.stats
		s.LeaderRate = float64(s.TotalLeaderEvents) / float64(s.TotalEvents)
		s.EventsPerWeek = EventsPerWeek(s.TotalEvents, s.FirstEventDate, s.LastEventDate)
		s.VisitedLocations = lo.Keys(a.locs)
		slices.Sort(s.VisitedLocations)
		s.BuddyCount = len(a.buddies)
		streak := Streaks(a.dates, today)
		s.CurrentStreak, s.LongestStreak = streak.Current, streak.Longest
		out[id] = s
	}
	return out
}

// EventsPerWeek divides total by the span in weeks, clamped to at least one
// week. A PAX with a single post reads 1 per week. Spans of one to six days
// therefore read total per week rather than total/days*7; see the
// events-per-week entry in DESIGN.md.
func EventsPerWeek(total int, first, last time.Time) float64 {
	if total == 0 {
		return 0
	}
	weeks := max(1, float64(model.DaysBetween(first, last))/7)
	return float64(total) / weeks
}

// Leaderboards ranks stats into the four leaderboard views.
func Leaderboards(stats map[model.PersonID]types.PersonStats, opts ...Option) types.Leaderboards {
	o := buildOptions(opts)
	all := lo.Values(stats)
	led := lo.Filter(all, func(s types.PersonStats, _ int) bool { return s.TotalLeaderEvents > 0 })
	neverLed := lo.Filter(all, func(s types.PersonStats, _ int) bool { return s.TotalLeaderEvents == 0 })
	return types.Leaderboards{
		Leaderboard:   ranking.Rank(all, ranking.ByAttendance, o.limit),
		TopLeaders:    ranking.Rank(led, ranking.ByLeaderRateDesc, o.limit),
		BottomLeaders: ranking.Rank(led, ranking.ByLeaderRateAsc, o.limit),
		NeverLed:      ranking.Rank(neverLed, ranking.ByTotalEvents, o.limit),
	}
}

// Person builds the detail view for one PAX. ok is false when id never
// posted at any of events. Top buddies come from the buddy window before the
// PAX's last post, as in Kotter; BuddyCount stays all-time.
func Person(events []model.Backblast, id model.PersonID, today time.Time, opts ...Option) (types.PersonDetail, bool) {
	o := buildOptions(opts)
	mine := lo.Filter(events, func(e model.Backblast, _ int) bool { return e.HasParticipant(id) })
	if len(mine) == 0 {
		return types.PersonDetail{}, false
	}
	s := PersonStats(mine, today, opts...)[id]

	// Events are newest first, so ties go to the most recent buddy.
	buddies := newBuddyCounter()
	for i := range mine {
		if model.DaysBetween(mine[i].Date, s.LastEventDate) > o.buddyWindow {
			continue
		}
		buddies.addEvent(&mine[i], id)
	}
	return types.PersonDetail{
		PersonStats: s,
		Buddies:     buddies.top(o.topBuddies, o.names),
		Invitees:    []string{},
	}, true
}
