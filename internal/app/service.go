// Package service wires the snapshot loader, the refresh pipeline and the
// stats engine into the operations served over HTTP.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	eventqueue "github.com/okian/paxstats/internal/adapters/mq/queue"
	workerpool "github.com/okian/paxstats/internal/adapters/mq/worker"
	"github.com/okian/paxstats/internal/domain/filter"
	"github.com/okian/paxstats/internal/domain/model"
	"github.com/okian/paxstats/internal/domain/stats"
	"github.com/okian/paxstats/internal/domain/types"
	"github.com/okian/paxstats/pkg/logger"
	"github.com/okian/paxstats/pkg/metrics"
)

var tracer = otel.Tracer("paxstats/service")

// Loader supplies snapshots. *repository.Loader implements it.
type Loader interface {
	Snapshot(ctx context.Context) (*model.Snapshot, error)
	Refresh(ctx context.Context) (*model.Snapshot, error)
	Current() (*model.Snapshot, bool)
}

// Service implements the API dependencies for the stats engine.
type Service struct {
	mu sync.RWMutex

	loader     Loader
	regions    *filter.Regions
	queue      eventqueue.Queue
	workerPool *workerpool.Pool

	workerCount     int
	queueSize       int
	regionCfg       map[string][]string
	loc             *time.Location
	now             func() time.Time
	kotterThreshold int
	kotterMaxDays   int
	buddyWindow     int
	milestoneStep   int
	maxLimit        int

	started bool

	logger logger.Logger
}

// New constructs a Service reading snapshots from loader.
func New(loader Loader, opts ...Option) *Service {
	s := &Service{
		loader:          loader,
		workerCount:     1,
		queueSize:       16,
		loc:             time.UTC,
		now:             time.Now,
		kotterThreshold: stats.DefaultKotterThreshold,
		buddyWindow:     stats.DefaultBuddyWindow,
		milestoneStep:   stats.DefaultMilestoneStep,
		maxLimit:        500,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.regions = filter.NewRegions(s.regionCfg)
	return s
}

// Start creates the refresh queue and starts its workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.workerPool = workerpool.NewPool(s.workerCount, s.queue, s.loader)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "stats service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("regions", len(s.regions.List())),
	)
	return nil
}

// Stop drains the refresh workers.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	if err := s.workerPool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}
	s.started = false
	s.logger.Info(ctx, "stats service stopped")
}

// RequestRefresh queues a re-fetch of the dataset.
func (s *Service) RequestRefresh(ctx context.Context, reason string) (types.RefreshTicket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return types.RefreshTicket{}, ErrNotStarted
	}
	req := model.RefreshRequest{ID: uuid.NewString(), Reason: reason, RequestedAt: time.Now()}
	if !s.queue.Enqueue(ctx, req) {
		return types.RefreshTicket{}, ErrBusy
	}
	s.logger.Info(ctx, "refresh queued",
		logger.String("request_id", req.ID),
		logger.String("reason", reason))
	return types.RefreshTicket{ID: req.ID, RequestedAt: req.RequestedAt}, nil
}

// Version identifies what the next read is computed from: the snapshot
// version plus the service's current date, since windows, streaks and Kotter
// all count days back from today. The snapshot is loaded if needed.
func (s *Service) Version(ctx context.Context) (string, error) {
	snap, err := s.loader.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	return snap.Version + "-" + s.today().Format(model.DateLayout), nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
	}
	if s.started {
		out["queueLength"] = s.queue.Len(context.Background())
	}
	if snap, ok := s.loader.Current(); ok {
		out["snapshot"] = map[string]any{
			"version":   snap.Version,
			"fetchedAt": snap.FetchedAt,
			"events":    len(snap.Events),
			"people":    len(snap.People),
			"skipped":   snap.Report.Skipped,
			"repaired":  snap.Report.Repaired,
		}
	}
	return out
}

func (s *Service) today() time.Time {
	return model.DateOf(s.now().In(s.loc))
}

// view loads the snapshot and runs fn inside a span named after the view,
// recording its latency.
func (s *Service) view(ctx context.Context, name string, fn func(ctx context.Context, snap *model.Snapshot) error) error {
	ctx, span := tracer.Start(ctx, "service."+name)
	defer span.End()

	snap, err := s.loader.Snapshot(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordAggregationError(name)
		return err
	}
	span.SetAttributes(attribute.String("snapshot.version", snap.Version))

	start := time.Now()
	err = fn(ctx, snap)
	metrics.RecordAggregationLatency(name, float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordAggregationError(name)
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
