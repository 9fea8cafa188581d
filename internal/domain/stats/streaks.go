package stats

import (
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/okian/paxstats/internal/domain/model"
	"github.com/okian/paxstats/internal/domain/types"
)

// Streaks measures runs of consecutive ISO weeks with at least one post.
// The current streak survives until a full week is missed: a run ending last
// week still counts on today.
func Streaks(dates []time.Time, today time.Time) types.Streak {
	if len(dates) == 0 {
		return types.Streak{}
	}
	weeks := lo.Uniq(lo.Map(dates, func(d time.Time, _ int) int { return model.WeekIndex(d) }))
	slices.Sort(weeks)

	var s types.Streak
	run := 0
	for i, w := range weeks {
		if i > 0 && w == weeks[i-1]+1 {
			run++
		} else {
			run = 1
		}
		s.Longest = max(s.Longest, run)
	}
	if last := weeks[len(weeks)-1]; last >= model.WeekIndex(today)-1 {
		s.Current = run
	}
	return s
}
