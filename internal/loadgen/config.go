// Package loadgen generates synthetic backblast datasets and verifies the
// views a running paxstats instance serves over them.
package loadgen

import (
	"time"

	"github.com/okian/paxstats/internal/domain/model"
)

// GenerateConfig sizes a synthetic dataset.
type GenerateConfig struct {
	Seed      int64
	People    int
	Locations int
	Events    int
	// Days is how far back from End events are spread.
	Days int
	End  time.Time
	// MaxPax caps the participants of one event.
	MaxPax int
	// InviteRate is the share of PAX (after the first) who name an inviter.
	InviteRate float64
}

// VerifyConfig points the verifier at a running service.
type VerifyConfig struct {
	BaseURL string
	Timeout time.Duration
	// Refresh asks the service to reload before checking, and waits up to
	// RefreshWait for the new snapshot.
	Refresh     bool
	RefreshWait time.Duration
	TopN        int
	Window      string
	// KotterThreshold is sent as ?threshold=; 0 uses the service default.
	KotterThreshold int
}

// Dataset is what the generator writes: the two files a file source reads.
type Dataset struct {
	Events []model.RawEvent
	People []model.RawPerson
}

// Check is one verification result.
type Check struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// Report summarizes a verification run.
type Report struct {
	BaseURL   string        `json:"base_url"`
	Version   string        `json:"version,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Checks    []Check       `json:"checks"`
}

// Passed reports whether every check passed.
func (r *Report) Passed() bool {
	for _, c := range r.Checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// Failed returns the failing checks.
func (r *Report) Failed() []Check {
	var out []Check
	for _, c := range r.Checks {
		if !c.Passed {
			out = append(out, c)
		}
	}
	return out
}

func (r *Report) add(name string, passed bool, detail string) {
	r.Checks = append(r.Checks, Check{Name: name, Passed: passed, Detail: detail})
}
