// Package rpcdispatch implements the Cross-worker RPC boundary from
// spec §6: validated call dispatch between the host and each worker,
// queued onto a bounded pool of reusable goroutines rather than invoked
// inline, so a burst of spawn/remove calls can't starve the calling
// goroutine or block it on worker-internal contention.
//
// Grounded on engine/scene/scene.go's computePool
// (worker.DynamicWorkerPool), which batches per-frame animator prep work
// onto a small set of persistent workers instead of spawning a goroutine
// per animator; this module reuses that same pool type as the transport
// for host→worker RPCs instead of per-frame compute tasks.
package rpcdispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/avidal-labs/fixedstep/simerr"
)

// Boundary validates and dispatches RPC calls onto a worker.DynamicWorkerPool.
type Boundary struct {
	pool   worker.DynamicWorkerPool
	nextID int
}

// New creates a Boundary backed by a pool of workerCount persistent
// goroutines, a task queue of queueDepth, and idleTimeout before an idle
// worker exits — the same three parameters scene.go passes to
// worker.NewDynamicWorkerPool.
//
// Parameters:
//   - workerCount: number of persistent goroutines in the pool
//   - queueDepth: bounded task queue depth
//   - idleTimeout: how long an idle worker waits before exiting
//
// Returns:
//   - *Boundary: the new RPC boundary
func New(workerCount, queueDepth int, idleTimeout time.Duration) *Boundary {
	return &Boundary{
		pool: worker.NewDynamicWorkerPool(workerCount, queueDepth, idleTimeout),
	}
}

// Result is the outcome of a dispatched call.
type Result struct {
	Value any
	Err   error
}

// validateEntityID enforces spec §6's "every entity-id parameter is
// rejected if ≤ 0".
func validateEntityID(id int64) error {
	if id <= 0 {
		return fmt.Errorf("rpcdispatch: entity id %d: %w", id, simerr.ErrInvalidArgument)
	}
	return nil
}

// validateTypeTag enforces spec §6's "type strings rejected if empty".
func validateTypeTag(typeTag string) error {
	if typeTag == "" {
		return fmt.Errorf("rpcdispatch: empty type tag: %w", simerr.ErrInvalidArgument)
	}
	return nil
}

// Call validates entityID and typeTag (either may be skipped by passing
// 0/"" when the call has no such parameter), then dispatches fn onto the
// worker pool and blocks until it completes or ctx is done (spec §6:
// "each call is an RPC; all complete or fail").
//
// Parameters:
//   - ctx: bounds how long the caller waits for fn to run
//   - entityID: the call's entity-id parameter, or 0 if none
//   - typeTag: the call's type-tag parameter, or "" if none
//   - fn: the work to run on a pool worker
//
// Returns:
//   - any: fn's result value
//   - error: a validation error, ctx's error, or fn's own error
func (b *Boundary) Call(ctx context.Context, entityID int64, typeTag string, fn func() (any, error)) (any, error) {
	if entityID != 0 {
		if err := validateEntityID(entityID); err != nil {
			return nil, err
		}
	}
	if typeTag != "" {
		if err := validateTypeTag(typeTag); err != nil {
			return nil, err
		}
	}

	done := make(chan Result, 1)
	id := b.nextID
	b.nextID++

	b.pool.SubmitTask(worker.Task{
		ID: id,
		Do: func() (any, error) {
			value, err := fn()
			done <- Result{Value: value, Err: err}
			return value, err
		},
	})

	select {
	case r := <-done:
		return r.Value, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CallAsync validates and dispatches fn as Call does, but returns
// immediately with a channel the caller may select on, matching spec
// §6's `spawn_entity(...) → async` render-side call.
//
// Parameters:
//   - entityID: the call's entity-id parameter, or 0 if none
//   - typeTag: the call's type-tag parameter, or "" if none
//   - fn: the work to run on a pool worker
//
// Returns:
//   - <-chan Result: receives exactly one Result, then is never written again
//   - error: a validation error if entityID/typeTag is invalid; fn is not dispatched in this case
func (b *Boundary) CallAsync(entityID int64, typeTag string, fn func() (any, error)) (<-chan Result, error) {
	if entityID != 0 {
		if err := validateEntityID(entityID); err != nil {
			return nil, err
		}
	}
	if typeTag != "" {
		if err := validateTypeTag(typeTag); err != nil {
			return nil, err
		}
	}

	done := make(chan Result, 1)
	id := b.nextID
	b.nextID++

	b.pool.SubmitTask(worker.Task{
		ID: id,
		Do: func() (any, error) {
			value, err := fn()
			done <- Result{Value: value, Err: err}
			return value, err
		},
	})

	return done, nil
}
