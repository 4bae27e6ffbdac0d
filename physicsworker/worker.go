// Package physicsworker implements the Host -> Physics API from spec §6:
// the host-facing orchestrator wrapping a physics.Stepper behind the
// rpcdispatch RPC boundary, so every lifecycle call is validated and
// queued rather than invoked directly against the stepper's own mutex.
//
// Grounded on engine/scene/scene.go's role as the thing a host-level
// caller drives indirectly through a narrow API, generalized from
// "scene mutation methods called inline" to "RPC calls dispatched
// through rpcdispatch.Boundary" per SPEC_FULL.md §0.
package physicsworker

import (
	"context"
	"time"

	"github.com/avidal-labs/fixedstep/physics"
	"github.com/avidal-labs/fixedstep/rpcdispatch"
	"github.com/avidal-labs/fixedstep/sharedbuf"
	"github.com/avidal-labs/fixedstep/simtypes"
)

// defaultCallTimeout bounds how long a host caller waits for a dispatched
// RPC to complete before treating the pool as stuck.
const defaultCallTimeout = 2 * time.Second

// Worker is the Host → Physics API (spec §6).
type Worker struct {
	stepper  *physics.Stepper
	boundary *rpcdispatch.Boundary
}

// New creates a Worker wrapping a fresh physics.Stepper, with calls
// dispatched through a new rpcdispatch.Boundary backed by workerCount
// persistent goroutines.
//
// Parameters:
//   - workerCount: size of the RPC dispatch pool
//   - stepperOpts: forwarded to physics.NewStepper
//
// Returns:
//   - *Worker: the new physics worker
func New(workerCount int, stepperOpts ...physics.StepperOption) *Worker {
	return &Worker{
		stepper:  physics.NewStepper(stepperOpts...),
		boundary: rpcdispatch.New(workerCount, 256, time.Second),
	}
}

// Init dispatches physics.Stepper.Init (spec §6 `init(gravity, buffers)`).
func (w *Worker) Init(gravity simtypes.Vec3, buf *sharedbuf.Buffer) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultCallTimeout)
	defer cancel()
	_, err := w.boundary.Call(ctx, 0, "", func() (any, error) {
		return nil, w.stepper.Init(gravity, buf)
	})
	return err
}

// SpawnEntity dispatches physics.Stepper.SpawnEntity (spec §6 `spawn_entity`).
func (w *Worker) SpawnEntity(id simtypes.EntityID, transform simtypes.Transform, config simtypes.PhysicsBodyConfig) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultCallTimeout)
	defer cancel()
	_, err := w.boundary.Call(ctx, int64(id), "spawn_entity", func() (any, error) {
		return nil, w.stepper.SpawnEntity(id, transform, config)
	})
	return err
}

// SpawnPlayer dispatches physics.Stepper.SpawnPlayer (spec §6 `spawn_player`).
func (w *Worker) SpawnPlayer(id simtypes.EntityID, transform simtypes.Transform, controllerConfig simtypes.CharacterControllerConfig) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultCallTimeout)
	defer cancel()
	_, err := w.boundary.Call(ctx, int64(id), "spawn_player", func() (any, error) {
		return nil, w.stepper.SpawnPlayer(id, transform, controllerConfig)
	})
	return err
}

// RemoveEntity dispatches physics.Stepper.RemoveEntity (spec §6 `remove_entity`).
func (w *Worker) RemoveEntity(id simtypes.EntityID) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultCallTimeout)
	defer cancel()
	_, err := w.boundary.Call(ctx, int64(id), "remove_entity", func() (any, error) {
		return nil, w.stepper.RemoveEntity(id)
	})
	return err
}

// SetPlayerInput dispatches physics.Stepper.SetPlayerInput (spec §6
// `set_player_input`). This call carries no entity-id/type-tag parameter
// to validate, since it addresses whichever entity is currently the
// spawned player.
func (w *Worker) SetPlayerInput(input simtypes.MovementInput) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultCallTimeout)
	defer cancel()
	_, err := w.boundary.Call(ctx, 0, "", func() (any, error) {
		w.stepper.SetPlayerInput(input)
		return nil, nil
	})
	return err
}

// Start dispatches physics.Stepper.Start (spec §6 `start()`).
func (w *Worker) Start() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultCallTimeout)
	defer cancel()
	_, err := w.boundary.Call(ctx, 0, "", func() (any, error) {
		return nil, w.stepper.Start()
	})
	return err
}

// Pause dispatches physics.Stepper.Pause (spec §6 `pause()`).
func (w *Worker) Pause() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultCallTimeout)
	defer cancel()
	_, err := w.boundary.Call(ctx, 0, "", func() (any, error) {
		return nil, w.stepper.Pause()
	})
	return err
}

// Resume dispatches physics.Stepper.Resume (spec §6 `resume()`).
func (w *Worker) Resume() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultCallTimeout)
	defer cancel()
	_, err := w.boundary.Call(ctx, 0, "", func() (any, error) {
		return nil, w.stepper.Resume()
	})
	return err
}

// Dispose dispatches physics.Stepper.Dispose (spec §6 `dispose()`).
func (w *Worker) Dispose() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultCallTimeout)
	defer cancel()
	_, err := w.boundary.Call(ctx, 0, "", func() (any, error) {
		w.stepper.Dispose()
		return nil, nil
	})
	return err
}

// PlayerEntityID returns the currently spawned player's entity id, or 0
// if none, bypassing the dispatch pool since it is a plain mutex-guarded
// read with no side effects to serialize.
func (w *Worker) PlayerEntityID() simtypes.EntityID {
	return w.stepper.PlayerEntityID()
}

// State returns the stepper's current lifecycle state, bypassing the
// dispatch pool for the same reason as PlayerEntityID.
func (w *Worker) State() physics.State {
	return w.stepper.State()
}
