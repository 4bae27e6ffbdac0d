// Package host implements the host process from spec §2: it boots the
// shared transform buffer, spawns the physics and render workers as
// goroutines, and forwards window input into both.
//
// Grounded on engine/engine.go's quitChannel/sync.Once shutdown and
// wg.Add(3); go handleEngine/handleRender/handleQuit shape, generalized
// from "engine tick + render + quit" to "physics worker + render loop +
// quit", and on engine/window/window_glfw.go's key/mouse callback wiring
// for handle_input forwarding (SPEC_FULL.md §2).
package host

import (
	"log"
	"sync"
	"time"

	"github.com/avidal-labs/fixedstep/common"
	"github.com/avidal-labs/fixedstep/engine/window"
	"github.com/avidal-labs/fixedstep/physicsworker"
	"github.com/avidal-labs/fixedstep/rendercomp"
	"github.com/avidal-labs/fixedstep/renderworker"
	"github.com/avidal-labs/fixedstep/sharedbuf"
	"github.com/avidal-labs/fixedstep/simtypes"
	"github.com/avidal-labs/fixedstep/transformsync"
)

// Option configures a Host at construction.
type Option func(*Host)

// WithWindow supplies the glfw-backed window used for input capture.
// Without this option, Host runs headless (no input forwarding).
func WithWindow(w window.Window) Option {
	return func(h *Host) { h.window = w }
}

// WithBufferCapacity sets the shared transform buffer's entity capacity
// (spec §4.1). Defaults to 256.
func WithBufferCapacity(capacity int) Option {
	return func(h *Host) {
		if capacity > 0 {
			h.bufferCapacity = capacity
		}
	}
}

// WithPhysicsWorkerCount sets the physicsworker RPC dispatch pool size.
func WithPhysicsWorkerCount(n int) Option {
	return func(h *Host) {
		if n > 0 {
			h.physicsWorkers = n
		}
	}
}

// WithRenderWorkerCount sets the renderworker RPC dispatch pool size.
func WithRenderWorkerCount(n int) Option {
	return func(h *Host) {
		if n > 0 {
			h.renderWorkers = n
		}
	}
}

// Host owns the shared memory region and both workers, and runs a
// render-side loop goroutine (spec §5: "the two workers run in parallel
// on the host, communicating exclusively through the shared memory
// region and an RPC boundary for lifecycle events").
type Host struct {
	window window.Window

	bufferCapacity int
	physicsWorkers int
	renderWorkers  int

	buf      *sharedbuf.Buffer
	Physics  *physicsworker.Worker
	Render   *renderworker.Worker

	input simtypes.MovementInput

	quitChannel chan struct{}
	quitOnce    sync.Once
	wg          sync.WaitGroup

	frameLimit time.Duration // 0 = uncapped
}

// New creates a Host with the shared buffer and both workers constructed,
// but not yet initialized (Init must be called before Run).
//
// Parameters:
//   - options: functional options configuring buffer capacity, worker
//     pool sizes, and the input-capture window
//
// Returns:
//   - *Host: the new host
func New(options ...Option) *Host {
	h := &Host{
		bufferCapacity: 256,
		physicsWorkers: 2,
		renderWorkers:  2,
		quitChannel:    make(chan struct{}),
	}
	for _, opt := range options {
		opt(h)
	}

	h.buf = sharedbuf.New(h.bufferCapacity)
	h.Physics = physicsworker.New(h.physicsWorkers)
	h.Render = renderworker.New(h.renderWorkers)

	if h.window != nil {
		h.wireWindowCallbacks()
	}

	return h
}

// wireWindowCallbacks translates glfw key/mouse callbacks into
// MovementInput and renderworker.InputEvent values, matching
// engine/window/window_glfw.go's callback registration shape.
func (h *Host) wireWindowCallbacks() {
	h.window.SetKeyDownCallback(func(keyCode uint32) {
		h.applyKey(keyCode, true)
		h.Render.HandleInput(renderworker.InputEvent{Kind: renderworker.InputKeyDown, KeyCode: keyCode})
	})
	h.window.SetKeyUpCallback(func(keyCode uint32) {
		h.applyKey(keyCode, false)
		h.Render.HandleInput(renderworker.InputEvent{Kind: renderworker.InputKeyUp, KeyCode: keyCode})
	})
	h.window.SetMouseMoveCallback(func(x, y int32) {
		h.Render.HandleInput(renderworker.InputEvent{Kind: renderworker.InputMouseMove, X: x, Y: y})
	})
	h.window.SetResizeCallback(func(width, height int) {
		h.Render.Resize(renderworker.Viewport{Width: width, Height: height, PixelRatio: 1})
	})
}

// applyKey updates the host's movement input snapshot from a key event,
// using the teacher's common.Key* constants (WASD + shift to sprint,
// space to jump).
func (h *Host) applyKey(keyCode uint32, down bool) {
	switch keyCode {
	case common.KeyW:
		h.input.Forward = down
	case common.KeyS:
		h.input.Backward = down
	case common.KeyA:
		h.input.Left = down
	case common.KeyD:
		h.input.Right = down
	case common.KeySpace:
		h.input.Jump = down
	case common.KeyLeftShift, common.KeyRightShift:
		h.input.Sprint = down
	default:
		return
	}
	if err := h.Physics.SetPlayerInput(h.input); err != nil {
		log.Printf("host: set_player_input: %v", err)
	}
}

// Init boots the physics and render workers against the shared buffer
// (spec §6 `init`).
//
// Parameters:
//   - gravity: the world's gravity vector
//   - viewport: the render surface's initial size
//   - debug: whether debug colliders/overlays are requested
//
// Returns:
//   - error: the first worker init error encountered, if any
func (h *Host) Init(gravity simtypes.Vec3, viewport renderworker.Viewport, debug bool) error {
	if err := h.Physics.Init(gravity, h.buf); err != nil {
		return err
	}
	if err := h.Render.Init(viewport, debug, h.buf, renderworker.Callbacks{}); err != nil {
		return err
	}
	return nil
}

// SpawnPlayer spawns the player on the physics side and its render
// component, then records the resulting entity id on the render worker
// for GetPlayerEntityID.
//
// Parameters:
//   - id: the player entity id
//   - transform: the initial feet transform
//   - controllerConfig: the character controller configuration
//   - playerData: render component construction data
//
// Returns:
//   - error: the first failure from either side
func (h *Host) SpawnPlayer(id simtypes.EntityID, transform simtypes.Transform, controllerConfig simtypes.CharacterControllerConfig, playerData rendercomp.PlayerData) error {
	if err := h.Physics.SpawnPlayer(id, transform, controllerConfig); err != nil {
		return err
	}
	done, err := h.Render.SpawnEntity(id, rendercomp.TypeTagPlayer, playerData)
	if err != nil {
		return err
	}
	result := <-done
	if result.Err != nil {
		return result.Err
	}
	h.Render.SetPlayerEntityID(id)
	return nil
}

// SpawnEntity spawns a non-player entity on both sides in the same call
// order, so the two entityindex.Registry instances converge (spec §4.2).
//
// Parameters:
//   - id: the entity id
//   - transform: the initial transform
//   - bodyConfig: the physics body configuration
//   - typeTag: the render component's type tag
//   - data: render component construction data
//
// Returns:
//   - error: the first failure from either side
func (h *Host) SpawnEntity(id simtypes.EntityID, transform simtypes.Transform, bodyConfig simtypes.PhysicsBodyConfig, typeTag string, data any) error {
	if err := h.Physics.SpawnEntity(id, transform, bodyConfig); err != nil {
		return err
	}
	done, err := h.Render.SpawnEntity(id, typeTag, data)
	if err != nil {
		return err
	}
	result := <-done
	return result.Err
}

// RemoveEntity removes id from both sides in the same order it was
// spawned, preserving registry convergence.
func (h *Host) RemoveEntity(id simtypes.EntityID) error {
	if err := h.Physics.RemoveEntity(id); err != nil {
		return err
	}
	return h.Render.RemoveEntity(id)
}

// Run starts the physics worker's self-scheduling loop and launches the
// host's own render-side loop goroutine, then blocks (spec §5): with a
// window, until the window's ProcessMessages returns; without one, until
// Dispose is called.
func (h *Host) Run() error {
	if err := h.Physics.Start(); err != nil {
		return err
	}
	h.wg.Add(1)
	go h.runRenderLoop()
	if h.window != nil {
		h.window.ProcessMessages()
	} else {
		<-h.quitChannel
	}
	return nil
}

// runRenderLoop is the render-side loop goroutine, grounded on
// engine/engine.go's handleRender uncapped `for { select quit: default: ... }`
// shape. Each iteration measures the frame delta and, when a frame limit
// is set, sleeps for it; the loop does not read the shared buffer and does
// not dispatch OnPhysicsFrame/OnTransformUpdate/OnRenderFrame hooks to any
// component.
func (h *Host) runRenderLoop() {
	defer h.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("host: render loop recovered from panic: %v", r)
			h.signalQuit()
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-h.quitChannel:
			return
		default:
		}

		now := time.Now()
		deltaMs := float32(now.Sub(lastRender).Milliseconds())
		lastRender = now

		if h.frameLimit > 0 {
			time.Sleep(h.frameLimit)
		}
		_ = deltaMs
	}
}

// Dispose stops the physics worker, render loop, and window, and
// releases both workers (spec §6 `dispose()`).
func (h *Host) Dispose() {
	h.signalQuit()
	h.wg.Wait()
	h.Physics.Dispose()
	h.Render.Dispose()
	if h.window != nil {
		_ = h.window.Close()
	}
}

func (h *Host) signalQuit() {
	h.quitOnce.Do(func() {
		close(h.quitChannel)
	})
}

// SyncReader returns a transformsync.Sync bound to the host's shared
// buffer, for callers (e.g. a custom render backend) that drive their own
// interpolation loop; runRenderLoop does not interpolate transforms.
func (h *Host) SyncReader() *transformsync.Sync {
	return transformsync.New(h.buf)
}
