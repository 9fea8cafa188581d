package stats_test

import (
	"fmt"
	"testing"
	"time"

	filter "github.com/okian/paxstats/internal/domain/filter"
	model "github.com/okian/paxstats/internal/domain/model"
	ranking "github.com/okian/paxstats/internal/domain/ranking"
	stats "github.com/okian/paxstats/internal/domain/stats"
	types "github.com/okian/paxstats/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func day(s string) time.Time {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func ev(id, loc, date string, pax []string, qs ...string) model.Backblast {
	e := model.Backblast{ID: id, Location: model.LocationID(loc), Date: day(date)}
	for _, p := range pax {
		e.Participants = append(e.Participants, model.PersonID(p))
	}
	for _, q := range qs {
		e.Leaders = append(e.Leaders, model.PersonID(q))
	}
	return e
}

func newest(events ...model.Backblast) []model.Backblast {
	model.SortNewestFirst(events)
	return events
}

func buddyNames(bs []types.Buddy) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = fmt.Sprintf("%s:%d", b.Name, b.Count)
	}
	return out
}

func TestLocationStats(t *testing.T) {
	Convey("Given events at two locations", t, func() {
		events := newest(
			ev("1", "a", "2024-01-01", []string{"x", "y", "z"}, "x"),
			ev("2", "a", "2024-01-08", []string{"x"}),
			ev("3", "b", "2024-01-09", []string{"y", "z"}, "z"),
		)

		Convey("When rolled up", func() {
			s := stats.LocationStats(events)

			Convey("Then posts sum the participant counts", func() {
				sum := 0
				for _, e := range events {
					sum += len(e.Participants)
				}
				So(s.TotalPosts, ShouldEqual, sum)
				So(s.TotalEvents, ShouldEqual, 3)
				So(s.UniqueParticipants, ShouldEqual, 3)
				So(s.UniqueLeaders, ShouldEqual, 2)
				So(s.AverageAttendance, ShouldEqual, 2.0)
			})
		})

		Convey("When broken down by location", func() {
			rows := stats.LocationBreakdown(events)

			Convey("Then the busiest location comes first and the totals add up", func() {
				So(len(rows), ShouldEqual, 2)
				So(rows[0].Location, ShouldEqual, "a")
				So(rows[0].TotalPosts, ShouldEqual, 4)
				So(rows[1].Location, ShouldEqual, "b")
				So(rows[0].TotalPosts+rows[1].TotalPosts, ShouldEqual, stats.LocationStats(events).TotalPosts)
			})
		})
	})

	Convey("Given no events", t, func() {
		s := stats.LocationStats(nil)

		Convey("Then the result is all zeros", func() {
			So(s, ShouldResemble, types.LocationStats{})
			So(stats.LocationBreakdown(nil), ShouldBeEmpty)
		})
	})
}

func TestPersonStats(t *testing.T) {
	today := day("2024-01-10")

	Convey("Given the two event example", t, func() {
		events := newest(
			ev("1", "A", "2024-01-01", []string{"x", "y"}, "x"),
			ev("2", "A", "2024-01-08", []string{"x"}),
		)
		ps := stats.PersonStats(events, today)

		Convey("Then x posted twice and led once", func() {
			x := ps["x"]
			So(x.TotalEvents, ShouldEqual, 2)
			So(x.TotalLeaderEvents, ShouldEqual, 1)
			So(x.LeaderRate, ShouldEqual, 0.5)
			So(x.FirstEventDate, ShouldEqual, day("2024-01-01"))
			So(x.LastEventDate, ShouldEqual, day("2024-01-08"))
			So(*x.FirstLeaderDate, ShouldEqual, day("2024-01-01"))
			So(x.EventsPerWeek, ShouldEqual, 2.0)
			So(x.VisitedLocations, ShouldResemble, []model.LocationID{"A"})
			So(x.BuddyCount, ShouldEqual, 1)
		})

		Convey("Then y posted once and never led", func() {
			y := ps["y"]
			So(y.TotalEvents, ShouldEqual, 1)
			So(y.TotalLeaderEvents, ShouldEqual, 0)
			So(y.LeaderRate, ShouldEqual, 0)
			So(y.FirstLeaderDate, ShouldBeNil)
			So(y.EventsPerWeek, ShouldEqual, 1.0)
		})

		Convey("Then people without qualifying events are absent", func() {
			later := filter.Apply(events, nil, filter.Window{From: day("2024-01-05")}, today)
			ps := stats.PersonStats(later, today)
			_, ok := ps["y"]
			So(ok, ShouldBeFalse)
			So(len(ps), ShouldEqual, 1)
		})
	})

	Convey("Given a long span", t, func() {
		So(stats.EventsPerWeek(10, day("2024-01-01"), day("2024-01-15")), ShouldEqual, 5.0)
		So(stats.EventsPerWeek(3, day("2024-01-01"), day("2024-01-03")), ShouldEqual, 3.0)
		So(stats.EventsPerWeek(0, time.Time{}, time.Time{}), ShouldEqual, 0)
	})
}

func TestLeaderboards(t *testing.T) {
	today := day("2024-02-01")

	Convey("Given a month of events", t, func() {
		events := newest(
			ev("1", "a", "2024-01-01", []string{"abe", "bo", "cy", "dee"}, "abe"),
			ev("2", "a", "2024-01-08", []string{"abe", "bo", "cy"}, "bo"),
			ev("3", "a", "2024-01-15", []string{"abe", "bo"}, "abe"),
			ev("4", "b", "2024-01-16", []string{"cy", "dee"}, "cy"),
			ev("5", "b", "2024-01-20", []string{"eve"}),
		)
		boards := stats.Leaderboards(stats.PersonStats(events, today))

		Convey("Then the leaderboard is a total order", func() {
			So(ranking.IsSorted(boards.Leaderboard, ranking.ByAttendance), ShouldBeTrue)
			So(boards.Leaderboard[0].Name, ShouldEqual, "abe")
			for i := 1; i < len(boards.Leaderboard); i++ {
				prev, cur := boards.Leaderboard[i-1], boards.Leaderboard[i]
				So(ranking.ByAttendance(prev.PersonStats, cur.PersonStats), ShouldBeLessThan, 0)
				if prev.TotalEvents == cur.TotalEvents {
					So(prev.EventsPerWeek, ShouldBeGreaterThanOrEqualTo, cur.EventsPerWeek)
				}
			}
		})

		Convey("Then Q views and NeverLed partition everyone", func() {
			So(len(boards.TopLeaders)+len(boards.NeverLed), ShouldEqual, len(boards.Leaderboard))
			So(len(boards.BottomLeaders), ShouldEqual, len(boards.TopLeaders))
			for _, e := range boards.TopLeaders {
				So(e.TotalLeaderEvents, ShouldBeGreaterThan, 0)
			}
			for _, e := range boards.NeverLed {
				So(e.TotalLeaderEvents, ShouldEqual, 0)
			}
		})

		Convey("Then the leader rate views run in opposite directions", func() {
			So(boards.TopLeaders[0].Name, ShouldEqual, "abe")
			So(boards.BottomLeaders[0].Name, ShouldEqual, "bo")
			So(boards.NeverLed[0].Name, ShouldEqual, "dee")
			So(boards.NeverLed[1].Name, ShouldEqual, "eve")
		})

		Convey("When limited", func() {
			limited := stats.Leaderboards(stats.PersonStats(events, today), stats.WithLimit(2))
			So(len(limited.Leaderboard), ShouldEqual, 2)
			So(len(limited.NeverLed), ShouldEqual, 2)
		})
	})

	Convey("Given no events", t, func() {
		boards := stats.Leaderboards(stats.PersonStats(nil, today))
		So(boards.Leaderboard, ShouldBeEmpty)
		So(boards.TopLeaders, ShouldBeEmpty)
		So(boards.NeverLed, ShouldBeEmpty)
	})
}

func TestPerson(t *testing.T) {
	Convey("Given events with a regular", t, func() {
		events := newest(
			ev("1", "a", "2024-01-01", []string{"abe", "bo", "cy"}, "abe"),
			ev("2", "a", "2024-01-08", []string{"abe", "cy"}),
			ev("3", "b", "2024-01-09", []string{"dee"}),
		)

		Convey("When a participant is looked up", func() {
			d, ok := stats.Person(events, "abe", day("2024-01-10"))

			Convey("Then the detail carries stats and buddies", func() {
				So(ok, ShouldBeTrue)
				So(d.TotalEvents, ShouldEqual, 2)
				So(d.BuddyCount, ShouldEqual, 2)
				So(buddyNames(d.Buddies), ShouldResemble, []string{"cy:2", "bo:1"})
				So(d.CurrentStreak, ShouldEqual, 2)
			})
		})

		Convey("When an unknown person is looked up", func() {
			_, ok := stats.Person(events, "zed", day("2024-01-10"))
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given a buddy from long before the last post", t, func() {
		events := newest(
			ev("1", "a", "2023-01-01", []string{"abe", "old"}),
			ev("2", "a", "2023-01-08", []string{"abe", "old"}),
			ev("3", "a", "2024-01-01", []string{"abe", "new"}),
		)

		Convey("When looked up with the default window", func() {
			d, _ := stats.Person(events, "abe", day("2024-01-10"))

			Convey("Then only buddies inside the window are listed", func() {
				So(buddyNames(d.Buddies), ShouldResemble, []string{"new:1"})
				So(d.BuddyCount, ShouldEqual, 2)
			})
		})

		Convey("When looked up with a window covering the history", func() {
			d, _ := stats.Person(events, "abe", day("2024-01-10"), stats.WithBuddyWindow(400))

			Convey("Then older buddies count again", func() {
				So(buddyNames(d.Buddies), ShouldResemble, []string{"old:2", "new:1"})
			})
		})
	})
}

func TestKotter(t *testing.T) {
	today := day("2024-03-01")
	events := newest(
		ev("1", "a", "2024-02-25", []string{"abe", "bo"}),
		ev("2", "a", "2024-02-01", []string{"cy", "abe"}),
		ev("3", "b", "2024-01-20", []string{"cy", "dee", "bo"}),
		ev("4", "b", "2023-01-01", []string{"cy", "eve"}),
		ev("5", "b", "2023-12-01", []string{"eve"}),
	)

	Convey("Given the full history", t, func() {
		Convey("When sorted by recency", func() {
			got := stats.Kotter(events, today)

			Convey("Then only PAX at least 14 days out appear, most recent first", func() {
				So(len(got), ShouldEqual, 3)
				So(got[0].Name, ShouldEqual, "cy")
				So(got[0].DaysSinceLast, ShouldEqual, 29)
				So(got[0].TotalEvents, ShouldEqual, 3)
				So(got[0].LastLocation, ShouldEqual, "a")
				So(got[1].Name, ShouldEqual, "dee")
				So(got[1].DaysSinceLast, ShouldEqual, 41)
				So(got[2].Name, ShouldEqual, "eve")
				So(got[2].DaysSinceLast, ShouldEqual, 91)
				for _, e := range got {
					So(e.DaysSinceLast, ShouldBeGreaterThanOrEqualTo, 14)
				}
			})

			Convey("Then buddies come from the window before each PAX's last post", func() {
				So(buddyNames(got[0].Buddies), ShouldResemble, []string{"abe:1", "dee:1", "bo:1"})
				So(buddyNames(got[1].Buddies), ShouldResemble, []string{"cy:1", "bo:1"})
				So(got[2].Buddies, ShouldBeEmpty)
			})
		})

		Convey("When sorted by total", func() {
			got := stats.Kotter(events, today, stats.WithSort(ranking.KotterTotal))
			So(got[0].Name, ShouldEqual, "cy")
			So(got[1].Name, ShouldEqual, "eve")
			So(got[2].Name, ShouldEqual, "dee")
		})

		Convey("When scoped to a location", func() {
			got := stats.Kotter(events, today, stats.WithScope(filter.NewScope("a")))
			So(len(got), ShouldEqual, 1)
			So(got[0].Name, ShouldEqual, "cy")
		})

		Convey("When capped by a max age", func() {
			got := stats.Kotter(events, today, stats.WithMaxDays(60))
			So(len(got), ShouldEqual, 2)
		})

		Convey("When the threshold is raised", func() {
			got := stats.Kotter(events, today, stats.WithThreshold(30))
			So(len(got), ShouldEqual, 2)
			So(got[0].Name, ShouldEqual, "dee")
		})

		Convey("When the input is oldest first", func() {
			asc := model.OldestFirst(events)
			So(stats.Kotter(asc, today), ShouldResemble, stats.Kotter(events, today))
		})
	})

	Convey("Given no events", t, func() {
		So(stats.Kotter(nil, today), ShouldBeEmpty)
	})
}

func TestMonthly(t *testing.T) {
	events := newest(
		ev("1", "a", "2024-01-05", []string{"x", "y"}, "x"),
		ev("2", "a", "2024-02-05", []string{"x", "z"}, "z"),
		ev("3", "b", "2024-03-03", []string{"w"}),
		ev("4", "a", "2024-04-02", []string{"y", "w", "x"}),
	)

	Convey("Given a scoped history with a gap month", t, func() {
		months := stats.Monthly(events, filter.NewScope("a"))

		Convey("Then months are contiguous", func() {
			So(len(months), ShouldEqual, 4)
			So(months[0].Month, ShouldEqual, "2024-01")
			So(months[2].Month, ShouldEqual, "2024-03")
			So(months[2].Events, ShouldEqual, 0)
		})

		Convey("Then FNGs, missing and returned follow month-over-month diffs", func() {
			So(months[0].FNGs, ShouldResemble, []string{"x", "y"})
			So(months[0].Leaders, ShouldEqual, 1)
			So(months[1].FNGs, ShouldResemble, []string{"z"})
			So(months[1].Missing, ShouldResemble, []string{"y"})
			So(months[1].Returned, ShouldBeEmpty)
			So(months[2].Missing, ShouldResemble, []string{"x", "z"})
			So(months[3].FNGs, ShouldBeEmpty)
			So(months[3].Returned, ShouldResemble, []string{"w", "x", "y"})
		})

		Convey("Then missing, returned and FNGs never overlap", func() {
			for _, m := range months {
				for _, r := range m.Returned {
					So(m.Missing, ShouldNotContain, r)
					So(m.FNGs, ShouldNotContain, r)
				}
			}
		})
	})

	Convey("Given a newcomer whose first post is outside the scope in the same month", t, func() {
		months := stats.Monthly(newest(
			ev("1", "a", "2024-01-05", []string{"x"}),
			ev("2", "a", "2024-02-05", []string{"x"}),
			ev("3", "b", "2024-02-03", []string{"n"}),
			ev("4", "a", "2024-02-10", []string{"n"}),
		), filter.NewScope("a"))

		Convey("Then they count as an FNG, not as returned", func() {
			So(len(months), ShouldEqual, 2)
			So(months[1].FNGs, ShouldResemble, []string{"n"})
			So(months[1].Returned, ShouldBeEmpty)
		})
	})

	Convey("Given the same history unscoped", t, func() {
		months := stats.Monthly(events, nil)

		Convey("Then the first post anywhere makes an FNG", func() {
			So(months[2].FNGs, ShouldResemble, []string{"w"})
			So(months[3].FNGs, ShouldBeEmpty)
		})
	})

	Convey("Given a PAX reaching 100 posts in the second month", t, func() {
		var many []model.Backblast
		for i := 0; i < 100; i++ {
			d := day("2024-01-01").AddDate(0, 0, i/2)
			many = append(many, ev(fmt.Sprintf("e%03d", i), "a", d.Format(model.DateLayout), []string{"x"}))
		}
		months := stats.Monthly(newest(many...), nil)

		Convey("Then the milestone lands in the month of the 100th post", func() {
			So(months[0].Month, ShouldEqual, "2024-01")
			So(months[0].Milestones, ShouldBeEmpty)
			last := months[len(months)-1]
			So(last.Month, ShouldEqual, "2024-02")
			So(last.Milestones, ShouldResemble, []types.Milestone{{Name: "x", Count: 100}})
		})
	})

	Convey("Given a small milestone step", t, func() {
		months := stats.Monthly(events, nil, stats.WithMilestoneStep(2))

		Convey("Then each crossing is credited once", func() {
			So(months[1].Milestones, ShouldResemble, []types.Milestone{{Name: "x", Count: 2}})
			So(months[3].Milestones, ShouldResemble, []types.Milestone{
				{Name: "y", Count: 2},
				{Name: "w", Count: 2},
			})
		})
	})

	Convey("Given no events", t, func() {
		So(stats.Monthly(nil, nil), ShouldBeEmpty)
	})
}

func person(id, inviter string) model.Person {
	return model.Person{ID: model.PersonID(id), Name: id, InvitedBy: model.PersonID(inviter)}
}

func TestFamilyTree(t *testing.T) {
	Convey("Given people with chains, strays and a cycle", t, func() {
		people := []model.Person{
			person("a", ""),
			person("b", "a"),
			person("c", "b"),
			person("d", "zzz"),
			person("e", "e"),
			person("f", "g"),
			person("g", "h"),
			person("h", "f"),
			person("i", "g"),
		}
		tree := stats.FamilyTree(people)

		Convey("Then every person appears exactly once", func() {
			count := map[string]int{}
			tree.Root.Walk(func(n *types.FamilyTreeNode) {
				if n.Name != types.RootName {
					count[n.Name]++
				}
			})
			So(len(count), ShouldEqual, len(people))
			for _, p := range people {
				So(count[string(p.ID)], ShouldEqual, 1)
			}
			So(tree.Size(), ShouldEqual, len(people))
		})

		Convey("Then roots are the uninvited, strays and the cycle breaker", func() {
			var roots []string
			for _, c := range tree.Root.Children {
				roots = append(roots, c.Name)
			}
			So(roots, ShouldResemble, []string{"a", "d", "e", "f"})
			f := tree.Root.Children[3]
			So(f.Children[0].Name, ShouldEqual, "h")
			So(f.Children[0].Children[0].Name, ShouldEqual, "g")
			So(f.Descendants, ShouldEqual, 3)
		})

		Convey("Then each problem is reported", func() {
			kinds := map[string][]string{}
			for _, d := range tree.Diagnostics {
				kinds[d.Kind] = d.People
			}
			So(kinds[types.DiagnosticCycle], ShouldResemble, []string{"f", "g", "h"})
			So(kinds[types.DiagnosticSelfInvite], ShouldResemble, []string{"e"})
			So(kinds[types.DiagnosticUnknownInviter], ShouldResemble, []string{"d", "zzz"})
		})
	})

	Convey("Given acyclic data in any order", t, func() {
		people := []model.Person{person("c", "b"), person("b", "a"), person("a", "")}
		tree := stats.FamilyTree(people)

		Convey("Then the chain nests fully with no diagnostics", func() {
			So(tree.Diagnostics, ShouldBeEmpty)
			So(len(tree.Root.Children), ShouldEqual, 1)
			So(tree.Root.Children[0].Children[0].Children[0].Name, ShouldEqual, "c")
		})
	})

	Convey("Given no people", t, func() {
		tree := stats.FamilyTree(nil)
		So(tree.Root.Name, ShouldEqual, types.RootName)
		So(tree.Root.Children, ShouldBeEmpty)
	})
}

func TestQGrid(t *testing.T) {
	Convey("Given a week of events", t, func() {
		events := newest(
			ev("1", "a", "2024-01-01", []string{"x", "y"}, "x"),
			ev("2", "b", "2024-01-01", []string{"z"}),
			ev("3", "a", "2024-01-02", []string{"y"}, "y"),
			ev("4", "a", "2024-02-02", []string{"y"}, "y"),
		)
		grid := stats.QGrid(events, filter.NewScope("a", "b", "c"), day("2024-01-01"), day("2024-01-31"))

		Convey("Then every scoped location is a column", func() {
			So(grid.Locations, ShouldResemble, []string{"a", "b", "c"})
		})

		Convey("Then rows are dates in range with leaders per cell", func() {
			So(len(grid.Rows), ShouldEqual, 2)
			So(grid.Rows[0].Date, ShouldEqual, day("2024-01-01"))
			So(grid.Rows[0].Cells[0], ShouldResemble, types.QGridCell{EventID: "1", Leaders: []string{"x"}})
			So(grid.Rows[0].Cells[1], ShouldResemble, types.QGridCell{EventID: "2", Leaders: []string{}})
			So(grid.Rows[0].Cells[2], ShouldResemble, types.QGridCell{Leaders: []string{}})
			So(grid.Rows[1].Cells[0].Leaders, ShouldResemble, []string{"y"})
		})
	})
}

func TestWrapped(t *testing.T) {
	Convey("Given a year of posts", t, func() {
		events := newest(
			ev("0", "a", "2023-12-31", []string{"x", "y"}),
			ev("1", "a", "2024-01-01", []string{"x", "y"}, "x"),
			ev("2", "b", "2024-01-08", []string{"x", "y", "z"}),
			ev("3", "b", "2024-01-16", []string{"x", "z"}),
			ev("4", "b", "2024-03-01", []string{"x", "y"}),
			ev("5", "a", "2024-03-02", []string{"y"}),
			ev("6", "a", "2024-03-03", []string{"y"}),
		)
		w := stats.Wrapped(events, "x", 2024)

		Convey("Then the year is summarized", func() {
			So(w.Posts, ShouldEqual, 4)
			So(w.Qs, ShouldEqual, 1)
			So(w.Locations, ShouldEqual, 2)
			So(w.FavoriteLocation, ShouldEqual, "b")
			So(w.FavoriteLocationPosts, ShouldEqual, 3)
			So(buddyNames(w.Buddies), ShouldResemble, []string{"y:3", "z:2"})
			So(w.LongestStreak, ShouldEqual, 3)
			So(w.BusiestMonth, ShouldEqual, "2024-01")
			So(w.BusiestMonthPosts, ShouldEqual, 3)
			So(*w.FirstPost, ShouldEqual, day("2024-01-01"))
			So(*w.LastPost, ShouldEqual, day("2024-03-01"))
		})

		Convey("Then the rank counts who posted more", func() {
			So(w.Rank, ShouldEqual, 2)
			So(w.RankOf, ShouldEqual, 3)
		})

		Convey("Then a quiet year is empty", func() {
			quiet := stats.Wrapped(events, "x", 2022)
			So(quiet.Posts, ShouldEqual, 0)
			So(quiet.Rank, ShouldEqual, 0)
			So(quiet.Buddies, ShouldBeEmpty)
		})
	})
}

func TestStreaks(t *testing.T) {
	Convey("Given posts over several ISO weeks", t, func() {
		dates := []time.Time{
			day("2024-01-01"), day("2024-01-03"), day("2024-01-09"), day("2024-01-17"),
			day("2024-02-05"), day("2024-02-12"),
		}

		Convey("Then the longest run is counted in weeks", func() {
			So(stats.Streaks(dates, day("2024-02-14")), ShouldResemble, types.Streak{Current: 2, Longest: 3})
		})

		Convey("Then the current run survives one quiet week", func() {
			So(stats.Streaks(dates, day("2024-02-20")).Current, ShouldEqual, 2)
			So(stats.Streaks(dates, day("2024-02-27")).Current, ShouldEqual, 0)
		})

		Convey("Then a year boundary does not break a run", func() {
			s := stats.Streaks([]time.Time{day("2023-12-28"), day("2024-01-02")}, day("2024-01-03"))
			So(s, ShouldResemble, types.Streak{Current: 2, Longest: 2})
		})

		Convey("Then no dates means no streak", func() {
			So(stats.Streaks(nil, day("2024-01-01")), ShouldResemble, types.Streak{})
		})
	})
}
