package stats

import (
	"cmp"
	"time"

	"github.com/samber/lo"

	"github.com/okian/paxstats/internal/domain/model"
	"github.com/okian/paxstats/internal/domain/types"
)

// Wrapped summarizes one PAX's calendar year. A PAX with no posts that year
// gets a zero summary with Rank 0.
func Wrapped(events []model.Backblast, id model.PersonID, year int, opts ...Option) types.Wrapped {
	o := buildOptions(opts)
	w := types.Wrapped{ID: id, Name: o.names.Name(id), Year: year, Buddies: []types.Buddy{}}

	inYear := lo.Filter(events, func(e model.Backblast, _ int) bool { return e.Date.Year() == year })
	posts := make(map[model.PersonID]int)
	for i := range inYear {
		for _, p := range inYear[i].Participants {
			posts[p]++
		}
	}

	buddies := newBuddyCounter()
	byLoc := make(map[model.LocationID]int)
	byMonth := make(map[string]int)
	var dates []time.Time
	for _, e := range oldestFirst(inYear) {
		if !e.HasParticipant(id) {
			continue
		}
		w.Posts++
		if e.IsLeader(id) {
			w.Qs++
		}
		byLoc[e.Location]++
		byMonth[model.MonthKey(e.Date)]++
		dates = append(dates, e.Date)
		buddies.addEvent(&e, id)
		d := e.Date
		if w.FirstPost == nil {
			w.FirstPost = &d
		}
		w.LastPost = &d
	}
	if w.Posts == 0 {
		return w
	}

	w.Locations = len(byLoc)
	for loc, n := range byLoc {
		name := o.names.LocationName(loc)
		if n > w.FavoriteLocationPosts || (n == w.FavoriteLocationPosts && cmp.Less(name, w.FavoriteLocation)) {
			w.FavoriteLocationPosts, w.FavoriteLocation = n, name
		}
	}
	for month, n := range byMonth {
		if n > w.BusiestMonthPosts || (n == w.BusiestMonthPosts && month < w.BusiestMonth) {
			w.BusiestMonth, w.BusiestMonthPosts = month, n
		}
	}
	w.Buddies = buddies.top(o.topBuddies, o.names)
	w.LongestStreak = Streaks(dates, time.Time{}).Longest

	w.RankOf = len(posts)
	w.Rank = 1
	for _, n := range posts {
		if n > w.Posts {
			w.Rank++
		}
	}
	return w
}
