package reconciler

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/meshfront/meshfront/internal/endpoint"
)

// ErrEmptyHealthySet marks a cycle whose healthy set came back empty. An
// ingress with zero backends must never be configured, so the cycle fails
// and the last good configuration keeps serving.
var ErrEmptyHealthySet = errors.New("no healthy endpoints")

// Outcome reports what a reconciliation cycle did.
type Outcome int

const (
	OutcomeUnchanged Outcome = iota // healthy set matches the active snapshot
	OutcomeApplied                  // new configuration validated and applied
	OutcomeRetry                    // cycle failed; retry on the next tick
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnchanged:
		return "UNCHANGED"
	case OutcomeApplied:
		return "APPLIED"
	case OutcomeRetry:
		return "RETRY"
	default:
		return "UNKNOWN"
	}
}

// Applier swaps a configuration for the given set into the running proxy.
type Applier interface {
	Apply(ctx context.Context, healthy endpoint.Set) error
}

// Recorder receives endpoint-set snapshots after each successful apply.
type Recorder interface {
	Record(set endpoint.Set)
}

// Engine compares each cycle's healthy set against the active snapshot.
// Before the first successful apply the engine is in bootstrap; afterwards
// it is steady. The scheduler serializes cycles; the mutex only covers the
// snapshot so the admin surface can read it concurrently.
type Engine struct {
	applier  Applier
	recorder Recorder
	logger   *slog.Logger

	mutex  sync.RWMutex
	active *endpoint.Set
}

// New creates an Engine in the bootstrap state.
func New(applier Applier, recorder Recorder, logger *slog.Logger) *Engine {
	return &Engine{
		applier:  applier,
		recorder: recorder,
		logger:   logger,
	}
}

// Bootstrapped reports whether a configuration has ever been applied.
func (e *Engine) Bootstrapped() bool {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.active != nil
}

// Active returns the active snapshot, or nil during bootstrap.
func (e *Engine) Active() *endpoint.Set {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.active
}

// Reconcile runs the diff-and-apply step for one cycle. The active
// snapshot is updated only when the full apply protocol succeeded; on any
// failure the prior snapshot and the live configuration are untouched.
func (e *Engine) Reconcile(ctx context.Context, healthy endpoint.Set) (Outcome, error) {
	if healthy.Len() == 0 {
		e.logger.Warn("Cycle produced no healthy endpoints, keeping previous configuration",
			slog.Bool("bootstrapped", e.Bootstrapped()))
		return OutcomeRetry, ErrEmptyHealthySet
	}

	if active := e.Active(); active != nil && active.Equal(healthy) {
		e.logger.Debug("Healthy set unchanged",
			slog.Int("endpoints", healthy.Len()))
		return OutcomeUnchanged, nil
	}

	if err := e.applier.Apply(ctx, healthy); err != nil {
		return OutcomeRetry, err
	}

	e.mutex.Lock()
	e.active = &healthy
	e.mutex.Unlock()

	if e.recorder != nil {
		e.recorder.Record(healthy)
	}

	e.logger.Info("Backend set reconciled",
		slog.Any("endpoints", healthy.Keys()))
	return OutcomeApplied, nil
}
