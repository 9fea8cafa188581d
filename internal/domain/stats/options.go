package stats

import (
	"github.com/okian/paxstats/internal/domain/filter"
	"github.com/okian/paxstats/internal/domain/model"
	"github.com/okian/paxstats/internal/domain/ranking"
)

// Default engine parameters.
const (
	DefaultKotterThreshold = 14
	DefaultBuddyWindow     = 183
	DefaultMilestoneStep   = 100
	DefaultTopBuddies      = 3
)

// Names resolves display spellings. *model.Snapshot implements it.
type Names interface {
	Name(id model.PersonID) string
	LocationName(id model.LocationID) string
}

type rawNames struct{}

func (rawNames) Name(id model.PersonID) string           { return string(id) }
func (rawNames) LocationName(id model.LocationID) string { return string(id) }

type options struct {
	names         Names
	scope         filter.Scope
	threshold     int
	maxDays       int
	buddyWindow   int
	sortMode      string
	milestoneStep int
	limit         int
	topBuddies    int
}

func buildOptions(opts []Option) options {
	o := options{
		names:         rawNames{},
		threshold:     DefaultKotterThreshold,
		buddyWindow:   DefaultBuddyWindow,
		sortMode:      ranking.KotterRecent,
		milestoneStep: DefaultMilestoneStep,
		topBuddies:    DefaultTopBuddies,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option tunes an aggregation. Each view reads only the options it needs.
type Option func(*options)

// WithNames sets the display name lookup. Without it IDs are shown as-is.
func WithNames(n Names) Option {
	return func(o *options) {
		if n != nil {
			o.names = n
		}
	}
}

// WithScope restricts Kotter to PAX who posted in a set of locations.
func WithScope(s filter.Scope) Option {
	return func(o *options) { o.scope = s }
}

// WithThreshold sets the Kotter inactivity threshold in days.
func WithThreshold(days int) Option {
	return func(o *options) {
		if days > 0 {
			o.threshold = days
		}
	}
}

// WithMaxDays drops Kotter entries inactive for longer than days. Zero keeps
// everyone.
func WithMaxDays(days int) Option {
	return func(o *options) {
		if days >= 0 {
			o.maxDays = days
		}
	}
}

// WithBuddyWindow sets how many days before a PAX's last post count towards
// their buddies.
func WithBuddyWindow(days int) Option {
	return func(o *options) {
		if days > 0 {
			o.buddyWindow = days
		}
	}
}

// WithSort selects the Kotter order, ranking.KotterRecent or
// ranking.KotterTotal.
func WithSort(mode string) Option {
	return func(o *options) {
		if ranking.ValidKotterOrder(mode) {
			o.sortMode = mode
		}
	}
}

// WithMilestoneStep sets the lifetime post count between milestones.
func WithMilestoneStep(step int) Option {
	return func(o *options) {
		if step > 0 {
			o.milestoneStep = step
		}
	}
}

// WithLimit truncates leaderboard views. Zero means no limit.
func WithLimit(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.limit = n
		}
	}
}
