package ingest

import (
	"time"

	"github.com/okian/paxstats/internal/domain/dedupe"
)

// Leader policies.
const (
	// LeaderPolicyRepair adds leaders missing from the participant list.
	LeaderPolicyRepair = "repair"
	// LeaderPolicySkip quarantines the whole event.
	LeaderPolicySkip = "skip"
)

const defaultQuarantineLimit = 100

type options struct {
	leaderPolicy    string
	deduper         dedupe.Deduper
	quarantineLimit int
	now             func() time.Time
}

func defaultOptions() options {
	return options{
		leaderPolicy:    LeaderPolicyRepair,
		quarantineLimit: defaultQuarantineLimit,
		now:             time.Now,
	}
}

// Option configures Ingest.
type Option func(*options)

// WithLeaderPolicy selects how events with leaders outside the participant
// list are handled. Unknown values keep the default.
func WithLeaderPolicy(policy string) Option {
	return func(o *options) {
		if policy == LeaderPolicyRepair || policy == LeaderPolicySkip {
			o.leaderPolicy = policy
		}
	}
}

// WithDeduper supplies the ID tracker. It is reset at the start of every
// run. A fresh unbounded one is used otherwise.
func WithDeduper(d dedupe.Deduper) Option {
	return func(o *options) {
		if d != nil {
			o.deduper = d
		}
	}
}

// WithQuarantineLimit caps how many rejected records are kept for inspection.
// Counts in Report.Skipped are never capped.
func WithQuarantineLimit(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.quarantineLimit = n
		}
	}
}

// WithClock overrides the clock stamped into Snapshot.FetchedAt.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
