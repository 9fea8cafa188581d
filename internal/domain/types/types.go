// Package types contains the aggregated views returned by the stats engine
// and served by the HTTP layer.
package types

import (
	"time"

	"github.com/okian/paxstats/internal/domain/model"
)

// LocationStats rolls up attendance for one location or a set of locations.
type LocationStats struct {
	Location           string  `json:"location,omitempty"`
	TotalEvents        int     `json:"total_events"`
	TotalPosts         int     `json:"total_posts"`
	UniqueParticipants int     `json:"unique_participants"`
	UniqueLeaders      int     `json:"unique_leaders"`
	AverageAttendance  float64 `json:"average_attendance"`
}

// PersonStats is the per-PAX rollup over a set of events.
type PersonStats struct {
	ID                model.PersonID     `json:"id"`
	Name              string             `json:"name"`
	TotalEvents       int                `json:"total_events"`
	TotalLeaderEvents int                `json:"total_leader_events"`
	LeaderRate        float64            `json:"leader_rate"`
	FirstEventDate    time.Time          `json:"first_event_date"`
	LastEventDate     time.Time          `json:"last_event_date"`
	FirstLeaderDate   *time.Time         `json:"first_leader_date,omitempty"`
	LastLeaderDate    *time.Time         `json:"last_leader_date,omitempty"`
	EventsPerWeek     float64            `json:"events_per_week"`
	VisitedLocations  []model.LocationID `json:"visited_locations"`
	// BuddyCount is the number of distinct co-participants.
	BuddyCount    int `json:"buddy_count"`
	CurrentStreak int `json:"current_streak"`
	LongestStreak int `json:"longest_streak"`
}

// LeaderboardEntry is PersonStats with its 1-based position in a view.
type LeaderboardEntry struct {
	Rank int `json:"rank"`
	PersonStats
}

// Leaderboards holds the four ranked views over the same PersonStats.
type Leaderboards struct {
	Leaderboard   []LeaderboardEntry `json:"leaderboard"`
	TopLeaders    []LeaderboardEntry `json:"top_leaders"`
	BottomLeaders []LeaderboardEntry `json:"bottom_leaders"`
	NeverLed      []LeaderboardEntry `json:"never_led"`
}

// Buddy is a co-participant and how often they posted together.
type Buddy struct {
	ID    model.PersonID `json:"id"`
	Name  string         `json:"name"`
	Count int            `json:"count"`
}

// KotterEntry is one PAX who has not posted for a while.
type KotterEntry struct {
	ID            model.PersonID `json:"id"`
	Name          string         `json:"name"`
	DaysSinceLast int            `json:"days_since_last"`
	LastEventDate time.Time      `json:"last_event_date"`
	LastLocation  string         `json:"last_location"`
	TotalEvents   int            `json:"total_events"`
	Buddies       []Buddy        `json:"buddies"`
}

// Milestone marks a PAX crossing a lifetime post count.
type Milestone struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// MonthSummary is one calendar month of a monthly rollup.
type MonthSummary struct {
	Month              string      `json:"month"`
	Events             int         `json:"events"`
	Posts              int         `json:"posts"`
	UniqueParticipants int         `json:"unique_participants"`
	Leaders            int         `json:"leaders"`
	FNGs               []string    `json:"fngs"`
	Missing            []string    `json:"missing"`
	Returned           []string    `json:"returned"`
	Milestones         []Milestone `json:"milestones"`
}

// RootName is the name of the synthetic family tree root.
const RootName = "F3"

// FamilyTreeNode is one PAX and the people they brought out.
type FamilyTreeNode struct {
	ID       model.PersonID   `json:"id,omitempty"`
	Name     string           `json:"name"`
	Children []FamilyTreeNode `json:"children"`
	// Descendants counts everyone below this node.
	Descendants int `json:"descendants"`
}

// Walk visits n and its subtree depth first.
func (n *FamilyTreeNode) Walk(fn func(*FamilyTreeNode)) {
	fn(n)
	for i := range n.Children {
		n.Children[i].Walk(fn)
	}
}

// Tree diagnostic kinds.
const (
	DiagnosticUnknownInviter = "unknown_inviter"
	DiagnosticSelfInvite     = "self_invite"
	DiagnosticCycle          = "cycle"
)

// TreeDiagnostic reports invite data that could not be used as given.
type TreeDiagnostic struct {
	Kind   string   `json:"kind"`
	People []string `json:"people"`
}

// FamilyTree is the invite forest under a synthetic root.
type FamilyTree struct {
	Root        FamilyTreeNode   `json:"root"`
	Diagnostics []TreeDiagnostic `json:"diagnostics"`
}

// Size counts the people in the tree, excluding the root.
func (t *FamilyTree) Size() int { return t.Root.Descendants }

// QGridCell is one location on one date. Leaders is empty when nobody took
// the Q; EventID is empty when no event was recorded.
type QGridCell struct {
	EventID string   `json:"event_id,omitempty"`
	Leaders []string `json:"leaders"`
}

// QGridRow is one date of the Q lineup.
type QGridRow struct {
	Date  time.Time   `json:"date"`
	Cells []QGridCell `json:"cells"`
}

// QGrid is the Q lineup: dates by locations.
type QGrid struct {
	Locations []string   `json:"locations"`
	Rows      []QGridRow `json:"rows"`
}

// Streak counts consecutive ISO weeks with at least one post.
type Streak struct {
	Current int `json:"current"`
	Longest int `json:"longest"`
}

// Wrapped is one PAX's year in review.
type Wrapped struct {
	ID                    model.PersonID `json:"id"`
	Name                  string         `json:"name"`
	Year                  int            `json:"year"`
	Posts                 int            `json:"posts"`
	Qs                    int            `json:"qs"`
	Locations             int            `json:"locations"`
	FavoriteLocation      string         `json:"favorite_location,omitempty"`
	FavoriteLocationPosts int            `json:"favorite_location_posts"`
	Buddies               []Buddy        `json:"buddies"`
	LongestStreak         int            `json:"longest_streak"`
	BusiestMonth          string         `json:"busiest_month,omitempty"`
	BusiestMonthPosts     int            `json:"busiest_month_posts"`
	FirstPost             *time.Time     `json:"first_post,omitempty"`
	LastPost              *time.Time     `json:"last_post,omitempty"`
	// Rank is the 1-based position by posts among everyone who posted that
	// year; RankOf is how many did.
	Rank   int `json:"rank"`
	RankOf int `json:"rank_of"`
}

// PersonDetail is the single PAX page.
type PersonDetail struct {
	PersonStats
	Buddies   []Buddy  `json:"buddies"`
	InvitedBy string   `json:"invited_by,omitempty"`
	Invitees  []string `json:"invitees"`
	Email     string   `json:"email,omitempty"`
	PhotoURL  string   `json:"photo_url,omitempty"`
}

// Region is a named set of locations.
type Region struct {
	Name      string   `json:"name"`
	Locations []string `json:"locations"`
}

// LocationReport is the scope summary together with its per-location split.
type LocationReport struct {
	Summary   LocationStats   `json:"summary"`
	Locations []LocationStats `json:"locations"`
}

// RefreshTicket acknowledges a queued refresh.
type RefreshTicket struct {
	ID          string    `json:"id"`
	RequestedAt time.Time `json:"requested_at"`
}
