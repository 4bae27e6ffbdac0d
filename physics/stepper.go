// Package physics implements the Physics Stepper from spec §4.3: a
// fixed-interval simulator that advances a rigid-body world, drives the
// kinematic character controller, and publishes per-frame transforms to the
// shared transform buffer.
//
// The step loop's goroutine/channel shape is grounded on the teacher's
// engine/engine.go handleEngine(), which runs a fixed-rate time.Ticker loop
// guarded by a quitChannel/sync.Once shutdown — generalized here from "call
// a tick callback" to "step a rigid-body world and publish to sharedbuf"
// (SPEC_FULL.md §0). Unlike the teacher's Ticker (which can queue a tick
// while the previous one is still running), this stepper reschedules the
// next step only after the current one completes, matching spec §4.3's
// "scheduler is single-threaded cooperative... steps never overlap".
package physics

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/avidal-labs/fixedstep/charcontroller"
	"github.com/avidal-labs/fixedstep/entityindex"
	"github.com/avidal-labs/fixedstep/sharedbuf"
	"github.com/avidal-labs/fixedstep/simerr"
	"github.com/avidal-labs/fixedstep/simtypes"
	"github.com/avidal-labs/fixedstep/solver"
)

// maxDeltaSeconds is the "spiral of death" clamp from spec §4.3 step 1.
const maxDeltaSeconds = 0.1

// entityBody tracks the bookkeeping the stepper needs per spawned entity.
type entityBody struct {
	handle solver.BodyHandle
}

// Stepper is the physics worker's orchestrator. Its exported methods are
// intended to be called both from the physics worker's own step loop and,
// for lifecycle operations (spawn/remove/input/start/pause/resume/dispose),
// from the host via the RPC boundary — so all exported state is guarded by
// mu, which the private step() also holds for the whole step except the
// final PublishFrame call.
type Stepper struct {
	mu    sync.Mutex
	state State

	worldFactory WorldFactory
	intervalMs   float64

	world   solver.RigidBodyWorld
	collide solver.CollideAndSlideEngine
	buf     *sharedbuf.Buffer

	registry *entityindex.Registry
	bodies   map[simtypes.EntityID]*entityBody

	playerID         simtypes.EntityID
	playerController *charcontroller.Controller
	input            simtypes.MovementInput

	lastStepTime time.Time

	loopDone  chan struct{}
	pauseCh   chan struct{}
	resumeCh  chan struct{}
	disposeCh chan struct{}
	wg        sync.WaitGroup
}

// NewStepper creates a Stepper in the Uninit state.
//
// Parameters:
//   - opts: functional options (WithWorldFactory, WithIntervalMs)
//
// Returns:
//   - *Stepper: the new, uninitialized stepper
func NewStepper(opts ...StepperOption) *Stepper {
	s := &Stepper{
		state:        StateUninit,
		worldFactory: defaultWorldFactory,
		intervalMs:   defaultIntervalMs,
		registry:     entityindex.New(),
		bodies:       make(map[simtypes.EntityID]*entityBody),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init constructs the solver and binds the shared buffer handle (spec §4.3).
// Idempotent: calling Init again disposes the previous solver state first.
//
// Parameters:
//   - gravity: the world's gravity vector
//   - buf: the shared transform buffer to publish into
//
// Returns:
//   - error: wraps simerr.ErrSolverInitFailure if the world factory fails
func (s *Stepper) Init(gravity simtypes.Vec3, buf *sharedbuf.Buffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateRunning || s.state == StatePaused {
		s.stopLoopLocked()
	}

	world, collide, err := s.worldFactory(gravity)
	if err != nil {
		return fmt.Errorf("physics: init: %w: %v", simerr.ErrSolverInitFailure, err)
	}

	s.world = world
	s.collide = collide
	s.buf = buf
	s.registry = entityindex.New()
	s.bodies = make(map[simtypes.EntityID]*entityBody)
	s.playerID = 0
	s.playerController = nil
	s.input = simtypes.MovementInput{}
	s.lastStepTime = time.Time{}
	s.state = StateInitialized
	return nil
}

// SpawnEntity creates a rigid body and collider, and registers its shared
// buffer slot (spec §4.3).
//
// Parameters:
//   - id: the entity's stable id (must be > 0)
//   - transform: the initial transform
//   - config: the body's kind/shape/material configuration
//
// Returns:
//   - error: simerr.ErrInvalidArgument for id <= 0, simerr.ErrNotInitialized
//     before Init, or simerr.ErrCapacityExceeded if the shared buffer is full
func (s *Stepper) SpawnEntity(id simtypes.EntityID, transform simtypes.Transform, config simtypes.PhysicsBodyConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spawnLocked(id, transform, config, nil)
}

// SpawnPlayer creates a kinematic body with a cuboid collider offset so the
// body's position represents the feet (spec §4.3, §9), and instantiates a
// Character Controller bound to that body.
//
// Parameters:
//   - id: the player entity's stable id (must be > 0)
//   - transform: the initial feet transform
//   - controllerConfig: the character controller's configuration
//
// Returns:
//   - error: see SpawnEntity
func (s *Stepper) SpawnPlayer(id simtypes.EntityID, transform simtypes.Transform, controllerConfig simtypes.CharacterControllerConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bodyConfig := simtypes.PhysicsBodyConfig{
		Kind: simtypes.BodyKinematicPositionBased,
		Shape: simtypes.Cuboid(
			controllerConfig.HalfWidth,
			controllerConfig.HalfHeight,
			controllerConfig.HalfLength,
		),
	}

	return s.spawnLocked(id, transform, bodyConfig, &controllerConfig)
}

func (s *Stepper) spawnLocked(id simtypes.EntityID, transform simtypes.Transform, config simtypes.PhysicsBodyConfig, controllerConfig *simtypes.CharacterControllerConfig) error {
	if simerr.InvalidEntityID(int32(id)) {
		return fmt.Errorf("physics: spawn: %w: entity id must be positive", simerr.ErrInvalidArgument)
	}
	if s.state == StateUninit || s.state == StateDisposed {
		return fmt.Errorf("physics: spawn: %w", simerr.ErrNotInitialized)
	}

	handle, err := s.world.CreateBody(transform, config)
	if err != nil {
		return fmt.Errorf("physics: spawn: %w", err)
	}

	if _, err := s.buf.Register(); err != nil {
		s.world.RemoveBody(handle)
		return fmt.Errorf("physics: spawn: %w", err)
	}
	s.registry.Insert(id)

	s.bodies[id] = &entityBody{handle: handle}

	if controllerConfig != nil {
		s.playerID = id
		s.playerController = charcontroller.New(handle, s.collide, *controllerConfig)
	}

	return nil
}

// RemoveEntity releases the entity's body and compacts its shared-buffer
// slot (spec §4.3).
//
// Parameters:
//   - id: the entity to remove
//
// Returns:
//   - error: simerr.ErrInvalidArgument for id <= 0, simerr.ErrNotInitialized
//     before Init
func (s *Stepper) RemoveEntity(id simtypes.EntityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if simerr.InvalidEntityID(int32(id)) {
		return fmt.Errorf("physics: remove: %w: entity id must be positive", simerr.ErrInvalidArgument)
	}
	if s.state == StateUninit || s.state == StateDisposed {
		return fmt.Errorf("physics: remove: %w", simerr.ErrNotInitialized)
	}

	eb, ok := s.bodies[id]
	if !ok {
		return nil
	}

	movedID, oldSlot, newSlot, _ := s.registry.Remove(id)
	if movedID != 0 {
		s.buf.CopySlot(newSlot, oldSlot)
	}
	s.buf.Unregister()

	s.world.RemoveBody(eb.handle)
	delete(s.bodies, id)

	if id == s.playerID {
		s.playerID = 0
		s.playerController = nil
	}

	return nil
}

// SetPlayerInput replaces the current movement input snapshot (spec §4.3).
//
// Parameters:
//   - input: the new input snapshot
func (s *Stepper) SetPlayerInput(input simtypes.MovementInput) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = input
}

// PlayerEntityID returns the currently spawned player's entity id, or 0 if
// no player has been spawned.
func (s *Stepper) PlayerEntityID() simtypes.EntityID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playerID
}

// State returns the stepper's current lifecycle state.
func (s *Stepper) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start transitions Initialized → Running and launches the step loop
// goroutine (spec §4.3, §5).
//
// Returns:
//   - error: simerr.ErrNotInitialized if called before Init
func (s *Stepper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInitialized {
		return fmt.Errorf("physics: start: %w", simerr.ErrNotInitialized)
	}

	s.state = StateRunning
	s.lastStepTime = defaultNow()
	s.loopDone = make(chan struct{})
	s.pauseCh = make(chan struct{}, 1)
	s.resumeCh = make(chan struct{}, 1)
	s.disposeCh = make(chan struct{})

	s.wg.Add(1)
	go s.runLoop(s.loopDone, s.pauseCh, s.resumeCh, s.disposeCh)
	return nil
}

// Pause transitions Running → Paused; the step loop stops scheduling new
// steps until Resume is called.
func (s *Stepper) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRunning {
		return fmt.Errorf("physics: pause: %w", simerr.ErrNotInitialized)
	}
	s.state = StatePaused
	select {
	case s.pauseCh <- struct{}{}:
	default:
	}
	return nil
}

// Resume transitions Paused → Running and resets the delta-time clock so
// the paused interval is not counted as elapsed simulation time.
func (s *Stepper) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePaused {
		return fmt.Errorf("physics: resume: %w", simerr.ErrNotInitialized)
	}
	s.state = StateRunning
	s.lastStepTime = defaultNow()
	select {
	case s.resumeCh <- struct{}{}:
	default:
	}
	return nil
}

// Dispose stops the step loop and transitions to Disposed. Safe to call
// multiple times.
func (s *Stepper) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLoopLocked()
	s.state = StateDisposed
}

func (s *Stepper) stopLoopLocked() {
	if s.disposeCh == nil {
		return
	}
	select {
	case <-s.disposeCh:
		// already closed
	default:
		close(s.disposeCh)
	}
	done := s.loopDone
	s.mu.Unlock()
	if done != nil {
		<-done
	}
	s.mu.Lock()
	s.disposeCh = nil
	s.loopDone = nil
}

// runLoop is the step loop's goroutine body. It reschedules the next step
// only after the previous one has fully completed (spec §4.3's
// "single-threaded cooperative" scheduler), and observes pause/resume/
// dispose signals between steps.
func (s *Stepper) runLoop(done chan struct{}, pauseCh, resumeCh, disposeCh chan struct{}) {
	defer s.wg.Done()
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("physics: step loop recovered from panic: %v", r)
		}
	}()

	for {
		select {
		case <-disposeCh:
			return
		case <-pauseCh:
			select {
			case <-disposeCh:
				return
			case <-resumeCh:
			}
			continue
		default:
		}

		s.step()

		intervalMs := s.currentIntervalMs()
		timer := time.NewTimer(time.Duration(intervalMs * float64(time.Millisecond)))
		select {
		case <-disposeCh:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (s *Stepper) currentIntervalMs() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intervalMs
}

// step runs exactly one physics step (spec §4.3 steps 1-5). Holds mu from
// the delta computation through the shared-buffer transform writes and
// releases it before PublishFrame, matching the "steps never overlap"
// cooperative scheduling contract.
func (s *Stepper) step() {
	s.mu.Lock()

	now := defaultNow()
	deltaSeconds := now.Sub(s.lastStepTime).Seconds()
	if deltaSeconds > maxDeltaSeconds {
		deltaSeconds = maxDeltaSeconds
	}
	s.lastStepTime = now

	if s.playerController != nil {
		current := s.world.BodyTransform(s.bodies[s.playerID].handle)
		nextPos, nextRot := s.playerController.Step(s.input, float32(deltaSeconds), current.Position)
		s.world.SetNextKinematicTranslation(s.bodies[s.playerID].handle, nextPos)
		s.world.SetNextKinematicRotation(s.bodies[s.playerID].handle, nextRot)
	}

	s.world.Step(deltaSeconds)

	for id, eb := range s.bodies {
		slot, ok := s.registry.Slot(id)
		if !ok {
			continue
		}
		transform := s.world.BodyTransform(eb.handle)
		s.buf.WriteTransform(slot, transform.Position, transform.Rotation)

		if id == s.playerID && s.playerController != nil {
			s.buf.SetFlag(slot, sharedbuf.GroundedBit, s.playerController.Grounded())
		}
	}

	nowMs := float64(now.UnixMilli())
	intervalMs := s.intervalMs
	buf := s.buf

	s.mu.Unlock()

	buf.PublishFrame(nowMs, intervalMs)
}
