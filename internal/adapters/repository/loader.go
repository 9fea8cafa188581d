package repository

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/okian/paxstats/internal/adapters/source"
	"github.com/okian/paxstats/internal/domain/ingest"
	"github.com/okian/paxstats/internal/domain/model"
	"github.com/okian/paxstats/pkg/logger"
	"github.com/okian/paxstats/pkg/metrics"
)

// Snapshot origins reported in metrics.
const (
	OriginSource = "source"
	OriginStore  = "store"
)

const (
	keyLoad  = "load"
	keyFetch = "fetch"

	defaultMetricsUpdateInterval = 5 * time.Second
)

// Loader hands out the current snapshot. The first caller triggers a fetch
// and concurrent callers wait on the same one. Once loaded, the snapshot is
// only replaced by a successful Refresh.
type Loader struct {
	src        source.Source
	store      Store
	ingestOpts []ingest.Option
	logger     logger.Logger

	group   singleflight.Group
	current atomic.Pointer[model.Snapshot]

	metricsUpdateInterval time.Duration
	wg                    sync.WaitGroup
	stopChan              chan struct{}
	closeOnce             sync.Once
}

// NewLoader creates a loader reading from src. It starts a background
// goroutine publishing snapshot gauges until ctx ends or Close is called.
func NewLoader(ctx context.Context, src source.Source, opts ...Option) *Loader {
	l := &Loader{
		src:                   src,
		store:                 NewMemoryStore(),
		metricsUpdateInterval: defaultMetricsUpdateInterval,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = logger.Get().Named("loader")
	}
	l.startMetricsUpdater(ctx)
	return l
}

// Snapshot returns the current snapshot, loading it on first use: from the
// store when it holds one, otherwise from the source.
func (l *Loader) Snapshot(ctx context.Context) (*model.Snapshot, error) {
	if s := l.current.Load(); s != nil {
		return s, nil
	}
	v, err, shared := l.group.Do(keyLoad, func() (any, error) {
		if s := l.current.Load(); s != nil {
			return s, nil
		}
		snap, ok, err := l.store.Load(ctx)
		switch {
		case err != nil:
			l.logger.Warn(ctx, "snapshot store unreadable, fetching from source", logger.Error(err))
		case ok:
			l.publish(&snap, OriginStore)
			return &snap, nil
		}
		return l.fetch(ctx)
	})
	if shared {
		metrics.RecordFetchCoalesced()
	}
	if err != nil {
		return nil, err
	}
	return v.(*model.Snapshot), nil
}

// Refresh fetches from the source and replaces the snapshot. On failure the
// previous snapshot keeps serving.
func (l *Loader) Refresh(ctx context.Context) (*model.Snapshot, error) {
	return l.fetch(ctx)
}

// Current returns the loaded snapshot without triggering a fetch.
func (l *Loader) Current() (*model.Snapshot, bool) {
	s := l.current.Load()
	return s, s != nil
}

func (l *Loader) fetch(ctx context.Context) (*model.Snapshot, error) {
	v, err, shared := l.group.Do(keyFetch, func() (any, error) {
		// Waiters share this fetch, so one caller going away must not
		// cancel it for the rest.
		return l.fetchOnce(context.WithoutCancel(ctx))
	})
	if shared {
		metrics.RecordFetchCoalesced()
	}
	if err != nil {
		return nil, err
	}
	return v.(*model.Snapshot), nil
}

func (l *Loader) fetchOnce(ctx context.Context) (*model.Snapshot, error) {
	start := time.Now()

	var (
		events []model.RawEvent
		people []model.RawPerson
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		events, err = l.src.Events(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		people, err = l.src.People(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		l.logger.Error(ctx, "fetch failed", logger.Error(err))
		metrics.RecordErrorByComponent("loader", "fetch")
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	snap := ingest.Ingest(ctx, events, people, l.ingestOpts...)
	for reason, n := range snap.Report.Skipped {
		metrics.RecordSkipped(reason, n)
	}
	for reason, n := range snap.Report.Repaired {
		metrics.RecordRepaired(reason, n)
	}

	if err := l.store.Save(ctx, snap); err != nil {
		l.logger.Warn(ctx, "failed to persist snapshot", logger.Error(err))
		metrics.RecordErrorByComponent("loader", "store")
	}
	l.publish(&snap, OriginSource)

	l.logger.Info(ctx, "snapshot loaded",
		logger.String("version", snap.Version),
		logger.Int("events", snap.Report.EventsKept),
		logger.Int("people", snap.Report.PeopleKept),
		logger.Int("skipped", snap.Report.SkippedTotal()),
		logger.Duration("took", time.Since(start)))
	return &snap, nil
}

func (l *Loader) publish(snap *model.Snapshot, origin string) {
	l.current.Store(snap)
	metrics.RecordSnapshotLoad(origin)
	metrics.UpdateSnapshot(len(snap.Events), len(snap.People), snap.FetchedAt)
}

func (l *Loader) startMetricsUpdater(ctx context.Context) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ticker := time.NewTicker(l.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-l.stopChan:
				return
			case <-ticker.C:
				if s := l.current.Load(); s != nil {
					metrics.UpdateSnapshot(len(s.Events), len(s.People), s.FetchedAt)
				}
			}
		}
	}()
}

// Close stops the background goroutine.
func (l *Loader) Close() error {
	l.closeOnce.Do(func() { close(l.stopChan) })
	l.wg.Wait()
	return nil
}
