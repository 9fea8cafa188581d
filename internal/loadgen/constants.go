package loadgen

import "time"

// Generator defaults.
const (
	DefaultPeople     = 200
	DefaultLocations  = 6
	DefaultEvents     = 2000
	DefaultDays       = 365
	DefaultMaxPax     = 25
	DefaultInviteRate = 0.8

	// Share of events with a second Q.
	coLeaderRate = 0.1
)

// Verifier defaults.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultRefreshWait = 2 * time.Minute
	DefaultTopN        = 50

	refreshPollInterval = 500 * time.Millisecond
	maxResponseBytes    = 64 << 20
	filePermission      = 0o600
	dirPermission       = 0o750
)
