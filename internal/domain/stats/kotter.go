package stats

import (
	"slices"
	"time"

	"github.com/okian/paxstats/internal/domain/model"
	"github.com/okian/paxstats/internal/domain/ranking"
	"github.com/okian/paxstats/internal/domain/types"
)

type kotterAcc struct {
	last    *model.Backblast
	total   int
	inScope bool
	buddies *buddyCounter
}

// Kotter lists PAX whose last post is at least the threshold old. events
// should be the full history; a scope keeps only PAX who posted in it during
// their buddy window.
func Kotter(events []model.Backblast, today time.Time, opts ...Option) []types.KotterEntry {
	o := buildOptions(opts)
	if !slices.IsSortedFunc(events, newestFirst) {
		events = slices.Clone(events)
		model.SortNewestFirst(events)
	}

	acc := make(map[model.PersonID]*kotterAcc)
	for i := range events {
		e := &events[i]
		for _, p := range e.Participants {
			a, ok := acc[p]
			if !ok {
				// Newest first: the first event seen is the person's last.
				a = &kotterAcc{last: e, buddies: newBuddyCounter()}
				acc[p] = a
			}
			a.total++
			if model.DaysBetween(e.Date, a.last.Date) > o.buddyWindow {
				continue
			}
			a.buddies.addEvent(e, p)
			if o.scope.Contains(e.Location) {
				a.inScope = true
			}
		}
	}

	out := make([]types.KotterEntry, 0)
	for id, a := range acc {
		days := model.DaysBetween(a.last.Date, today)
		if days < o.threshold || !a.inScope {
			continue
		}
		if o.maxDays > 0 && days > o.maxDays {
			continue
		}
		out = append(out, types.KotterEntry{
			ID:            id,
			Name:          o.names.Name(id),
			DaysSinceLast: days,
			LastEventDate: a.last.Date,
			LastLocation:  o.names.LocationName(a.last.Location),
			TotalEvents:   a.total,
			Buddies:       a.buddies.top(o.topBuddies, o.names),
		})
	}
	slices.SortFunc(out, ranking.KotterOrder(o.sortMode))
	return out
}

func newestFirst(a, b model.Backblast) int {
	return b.Date.Compare(a.Date)
}
