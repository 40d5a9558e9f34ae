// Package metrics collects counters about the reconciliation loop.
//
// It uses a channel-based event pipeline: the scheduler emits events with
// non-blocking semantics, a dedicated goroutine folds them into counters,
// and the admin server exposes a JSON snapshot. Events are drained on
// shutdown so late cycle results are not lost.
package metrics
