package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/meshfront/meshfront/internal/deadcache"
	"github.com/meshfront/meshfront/internal/discovery"
	"github.com/meshfront/meshfront/internal/endpoint"
	"github.com/meshfront/meshfront/internal/metrics"
	"github.com/meshfront/meshfront/internal/reconciler"
)

// Prober is the health-probing step of a cycle.
type Prober interface {
	Probe(ctx context.Context, candidates []endpoint.Endpoint) endpoint.Set
}

// Scheduler owns the reconciliation cycle. It never starts cycle N+1
// before cycle N finishes.
type Scheduler struct {
	source    discovery.Source
	prober    Prober
	engine    *reconciler.Engine
	cache     *deadcache.Cache
	collector *metrics.Collector
	port      int
	interval  time.Duration
	logger    *slog.Logger
}

// New creates a Scheduler. port is attached to every discovered hostname to
// form probe candidates.
func New(
	source discovery.Source,
	prober Prober,
	engine *reconciler.Engine,
	cache *deadcache.Cache,
	collector *metrics.Collector,
	port int,
	interval time.Duration,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		source:    source,
		prober:    prober,
		engine:    engine,
		cache:     cache,
		collector: collector,
		port:      port,
		interval:  interval,
		logger:    logger,
	}
}

// Run blocks until ctx is cancelled. The bootstrap phase retries full
// cycles at the steady interval until the first configuration is applied;
// the steady phase then runs one cycle per tick and swallows failures, so
// a transient discovery or probe outage never terminates the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("Starting reconciliation loop",
		slog.Duration("interval", s.interval))

	bootstrap := backoff.WithContext(backoff.NewConstantBackOff(s.interval), ctx)
	err := backoff.Retry(func() error {
		return s.runCycle(ctx)
	}, bootstrap)
	if err != nil {
		// Only context cancellation ends the bootstrap retry loop.
		return err
	}

	s.logger.Info("Bootstrap complete, entering steady phase")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Reconciliation loop stopped")
			return nil

		case <-ticker.C:
			if err := s.runCycle(ctx); err != nil {
				s.logger.Warn("Reconciliation cycle failed",
					slog.Any("err", err))
			}
		}
	}
}

// runCycle performs one full sweep → discover → probe → reconcile pass.
func (s *Scheduler) runCycle(ctx context.Context) error {
	if swept := s.cache.Sweep(); swept > 0 {
		s.logger.Debug("Swept expired dead-cache entries",
			slog.Int("removed", swept))
	}

	healthy := endpoint.NewSet()

	names, err := s.source.Discover(ctx)
	if err != nil {
		// Discovery failure reconciles like an empty healthy set: the
		// engine keeps the previous configuration and asks for a retry.
		s.logger.Warn("Endpoint discovery failed", slog.Any("err", err))
	} else {
		candidates := make([]endpoint.Endpoint, 0, len(names))
		for _, name := range names {
			candidates = append(candidates, endpoint.New(name, s.port))
		}

		healthy = s.prober.Probe(ctx, candidates)
		s.emit(metrics.MetricEvent{
			Type:       metrics.EventProbeCompleted,
			Timestamp:  time.Now(),
			Candidates: len(candidates),
			Healthy:    healthy.Len(),
		})
	}

	outcome, err := s.engine.Reconcile(ctx, healthy)
	s.emit(metrics.MetricEvent{
		Type:      metrics.EventCycleCompleted,
		Timestamp: time.Now(),
		Outcome:   outcome.String(),
		Failed:    err != nil,
	})

	return err
}

func (s *Scheduler) emit(event metrics.MetricEvent) {
	if s.collector == nil {
		return
	}
	s.collector.Emit(event)
}
