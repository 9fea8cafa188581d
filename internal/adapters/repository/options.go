package repository

import (
	"time"

	"github.com/okian/paxstats/internal/domain/ingest"
	"github.com/okian/paxstats/pkg/logger"
)

// Option applies a configuration option to the Loader.
type Option func(*Loader)

// WithStore sets where snapshots are kept. Defaults to a MemoryStore.
func WithStore(s Store) Option {
	return func(l *Loader) {
		if s != nil {
			l.store = s
		}
	}
}

// WithIngestOptions passes options through to ingest.Ingest.
func WithIngestOptions(opts ...ingest.Option) Option {
	return func(l *Loader) {
		l.ingestOpts = append(l.ingestOpts, opts...)
	}
}

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(l *Loader) {
		if interval > 0 {
			l.metricsUpdateInterval = interval
		}
	}
}

// WithLogger sets the logger.
func WithLogger(lg logger.Logger) Option {
	return func(l *Loader) {
		if lg != nil {
			l.logger = lg
		}
	}
}
