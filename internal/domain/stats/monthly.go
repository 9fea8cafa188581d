package stats

import (
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/okian/paxstats/internal/domain/filter"
	"github.com/okian/paxstats/internal/domain/model"
	"github.com/okian/paxstats/internal/domain/types"
)

type monthAcc struct {
	events     int
	posts      int
	pax        map[model.PersonID]struct{}
	leaders    map[model.PersonID]struct{}
	fngs       map[model.PersonID]struct{}
	milestones []types.Milestone
}

func newMonthAcc() *monthAcc {
	return &monthAcc{
		pax:     make(map[model.PersonID]struct{}),
		leaders: make(map[model.PersonID]struct{}),
		fngs:    make(map[model.PersonID]struct{}),
	}
}

// Monthly builds one summary per calendar month of the events in scope.
// events must be the full history: first posts and lifetime counts are
// global, only attribution to months is scoped.
func Monthly(events []model.Backblast, scope filter.Scope, opts ...Option) []types.MonthSummary {
	o := buildOptions(opts)
	asc := oldestFirst(events)

	// firstMonth is the month of each person's first post anywhere. A
	// person is an FNG in the scoped month matching it, even when that first
	// post was out of scope.
	firstMonth := make(map[model.PersonID]string)
	lifetime := make(map[model.PersonID]int)
	months := make(map[string]*monthAcc)
	var first, last time.Time

	for i := range asc {
		e := &asc[i]
		in := scope.Contains(e.Location)
		key := model.MonthKey(e.Date)
		var m *monthAcc
		if in {
			if m = months[key]; m == nil {
				m = newMonthAcc()
				months[key] = m
			}
			if first.IsZero() {
				first = e.Date
			}
			last = e.Date
			m.events++
			m.posts += e.Posts()
			for _, q := range e.Leaders {
				m.leaders[q] = struct{}{}
			}
		}
		for _, p := range e.Participants {
			before := lifetime[p]
			lifetime[p]++
			if _, ok := firstMonth[p]; !ok {
				firstMonth[p] = key
			}
			if !in {
				continue
			}
			m.pax[p] = struct{}{}
			if firstMonth[p] == key {
				m.fngs[p] = struct{}{}
			}
			if after := before + 1; after/o.milestoneStep > before/o.milestoneStep {
				m.milestones = append(m.milestones, types.Milestone{
					Name:  o.names.Name(p),
					Count: after / o.milestoneStep * o.milestoneStep,
				})
			}
		}
	}

	out := make([]types.MonthSummary, 0)
	if first.IsZero() {
		return out
	}
	var prev map[model.PersonID]struct{}
	for d := monthStart(first); !d.After(last); d = d.AddDate(0, 1, 0) {
		key := model.MonthKey(d)
		m := months[key]
		if m == nil {
			m = newMonthAcc()
		}
		sum := types.MonthSummary{
			Month:              key,
			Events:             m.events,
			Posts:              m.posts,
			UniqueParticipants: len(m.pax),
			Leaders:            len(m.leaders),
			FNGs:               o.sortedNames(lo.Keys(m.fngs)),
			Missing:            []string{},
			Returned:           []string{},
			Milestones:         m.milestones,
		}
		if sum.Milestones == nil {
			sum.Milestones = []types.Milestone{}
		}
		if prev != nil {
			var missing, returned []model.PersonID
			for p := range prev {
				if _, ok := m.pax[p]; !ok {
					missing = append(missing, p)
				}
			}
			for p := range m.pax {
				_, was := prev[p]
				_, fng := m.fngs[p]
				if !was && !fng {
					returned = append(returned, p)
				}
			}
			sum.Missing = o.sortedNames(missing)
			sum.Returned = o.sortedNames(returned)
		}
		out = append(out, sum)
		prev = m.pax
	}
	return out
}

func (o *options) sortedNames(ids []model.PersonID) []string {
	slices.Sort(ids)
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = o.names.Name(id)
	}
	return out
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// oldestFirst returns events in ascending date order without touching the
// input.
func oldestFirst(events []model.Backblast) []model.Backblast {
	if slices.IsSortedFunc(events, newestFirst) {
		return model.OldestFirst(events)
	}
	out := slices.Clone(events)
	model.SortNewestFirst(out)
	slices.Reverse(out)
	return out
}
