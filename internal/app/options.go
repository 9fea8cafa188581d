package service

import (
	"time"

	"github.com/okian/paxstats/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of refresh workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets how many refresh requests may wait.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithRegions sets the region name to AO names mapping.
func WithRegions(regions map[string][]string) Option {
	return func(s *Service) {
		s.regionCfg = regions
	}
}

// WithTimezone sets the zone that decides what "today" is.
func WithTimezone(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithKotter sets the default inactivity threshold and the cutoff past which
// PAX drop off the report. A zero maxDays keeps everyone.
func WithKotter(thresholdDays, maxDays int) Option {
	return func(s *Service) {
		if thresholdDays > 0 {
			s.kotterThreshold = thresholdDays
		}
		if maxDays >= 0 {
			s.kotterMaxDays = maxDays
		}
	}
}

// WithBuddyWindow sets how far back buddies are counted.
func WithBuddyWindow(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.buddyWindow = days
		}
	}
}

// WithMilestoneStep sets the lifetime post interval between milestones.
func WithMilestoneStep(step int) Option {
	return func(s *Service) {
		if step > 0 {
			s.milestoneStep = step
		}
	}
}

// WithMaxLeaderboardLimit caps leaderboard sizes.
func WithMaxLeaderboardLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(lg logger.Logger) Option {
	return func(s *Service) {
		if lg != nil {
			s.logger = lg
		}
	}
}
