// Package renderworker implements the Host -> Render API from spec §6:
// the host-facing orchestrator wrapping transformsync, rendercomp,
// instanced, and followcam behind the rpcdispatch RPC boundary, staging
// GPU buffer writes through github.com/cogentcore/webgpu.
//
// Grounded on engine/scene/scene.go's Scene, which is the teacher's own
// "one object the host drives every frame" orchestrator; generalized
// from driving animator pools and game objects directly to driving the
// shared-buffer-backed component set this module's spec defines
// (SPEC_FULL.md §0).
package renderworker

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/avidal-labs/fixedstep/common"
	"github.com/avidal-labs/fixedstep/entityindex"
	"github.com/avidal-labs/fixedstep/followcam"
	"github.com/avidal-labs/fixedstep/instanced"
	"github.com/avidal-labs/fixedstep/rendercomp"
	"github.com/avidal-labs/fixedstep/rpcdispatch"
	"github.com/avidal-labs/fixedstep/sharedbuf"
	"github.com/avidal-labs/fixedstep/simerr"
	"github.com/avidal-labs/fixedstep/simtypes"
	"github.com/avidal-labs/fixedstep/transformsync"
)

const defaultCallTimeout = 2 * time.Second

// Viewport is the render surface's size and pixel density (spec §6 `viewport: {w,h,pixel_ratio}`).
type Viewport struct {
	Width, Height int
	PixelRatio    float32
}

// InputEventKind tags the variant of a serialized input event.
type InputEventKind int

const (
	InputKeyDown InputEventKind = iota
	InputKeyUp
	InputMouseMove
	InputMouseDown
	InputMouseUp
	InputScroll
)

// InputEvent is a serialized keyboard/mouse event (spec §6 `handle_input(event)`),
// grounded on engine/window/window.go's onKeyDown/onKeyUp/onMouseMove/
// onMiddleMouseDown/onMiddleMouseUp/onScroll callback parameters, collapsed
// into one tagged struct suitable for crossing the RPC boundary.
type InputEvent struct {
	Kind        InputEventKind
	KeyCode     uint32
	X, Y        int32
	ScrollDelta float32
}

// Callbacks are the optional progress/readiness/frame-timing hooks from
// spec §6 `init(..., on_progress?, on_ready?, on_frame_timing?)`.
type Callbacks struct {
	OnProgress    func(loaded, total int)
	OnReady       func()
	OnFrameTiming func(deltaMs, elapsedMs float32)
}

// entityRecord tracks what a render-side entity slot owns, so RemoveEntity
// can tear down the right instanced-batch membership and component.
type entityRecord struct {
	component rendercomp.Component
	batch     *instanced.Manager // non-nil if this entity lives in a box/sphere batch
}

// Worker is the Host → Render API (spec §6).
type Worker struct {
	boundary *rpcdispatch.Boundary

	buf  *sharedbuf.Buffer
	sync *transformsync.Sync

	registry   *entityindex.Registry
	components *rendercomp.Registry
	entities   map[simtypes.EntityID]*entityRecord

	boxes    *instanced.Manager
	spheres  *instanced.Manager

	camera *followcam.Camera

	playerID simtypes.EntityID

	viewport Viewport
	debug    bool
	elapsed  float32

	groundHeightAt func(x, z float32) float32

	callbacks Callbacks
}

// New creates a Worker with calls dispatched through a new
// rpcdispatch.Boundary backed by workerCount persistent goroutines.
//
// Parameters:
//   - workerCount: size of the RPC dispatch pool
//
// Returns:
//   - *Worker: the new render worker, not yet initialized
func New(workerCount int) *Worker {
	return &Worker{
		boundary:       rpcdispatch.New(workerCount, 256, time.Second),
		registry:       entityindex.New(),
		components:     rendercomp.NewRegistry(),
		entities:       make(map[simtypes.EntityID]*entityRecord),
		boxes:          instanced.New(),
		spheres:        instanced.New(),
		camera:         followcam.New(),
		groundHeightAt: func(float32, float32) float32 { return 0 },
	}
}

// Init binds the shared transform buffer and viewport, and records the
// optional progress/ready/frame-timing callbacks (spec §6 `init`).
//
// Parameters:
//   - viewport: the render surface's initial size and pixel ratio
//   - debug: whether debug colliders/overlays are requested
//   - buf: the shared transform buffer to read each frame
//   - callbacks: optional progress/ready/frame-timing hooks
func (w *Worker) Init(viewport Viewport, debug bool, buf *sharedbuf.Buffer, callbacks Callbacks) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultCallTimeout)
	defer cancel()
	_, err := w.boundary.Call(ctx, 0, "", func() (any, error) {
		w.buf = buf
		w.sync = transformsync.New(buf)
		w.viewport = viewport
		w.debug = debug
		w.callbacks = callbacks
		if w.callbacks.OnReady != nil {
			w.callbacks.OnReady()
		}
		return nil, nil
	})
	return err
}

// Resize updates the tracked viewport (spec §6 `resize(viewport)`).
func (w *Worker) Resize(viewport Viewport) {
	w.viewport = viewport
}

// HandleInput forwards a serialized input event (spec §6 `handle_input`).
// Movement-affecting keys are translated by the host into
// simtypes.MovementInput and forwarded to the physics worker separately;
// this call only updates render-local state: scroll events zoom the
// camera.
//
// Parameters:
//   - event: the serialized event
func (w *Worker) HandleInput(event InputEvent) {
	switch event.Kind {
	case InputScroll:
		w.camera.Zoom(event.ScrollDelta)
	case InputMouseMove:
		// Camera orbit-by-drag is a host-side concern (it needs to know
		// whether a mouse button is currently held); this worker only
		// exposes the primitive Orbit call for the host to invoke.
	}
}

// OrbitCamera adjusts the follow camera's manual orbit angles, for hosts
// that implement drag-to-orbit on top of HandleInput's mouse events.
func (w *Worker) OrbitCamera(deltaAzimuth, deltaElevation float32) {
	w.camera.Orbit(deltaAzimuth, deltaElevation)
}

// SpawnEntity validates and dispatches the construction of a render
// component for id, returning a channel that resolves once the factory
// has run (spec §6 `spawn_entity(id, type, data?, debug_collider?) → async`).
//
// Parameters:
//   - id: the entity id (must be > 0)
//   - typeTag: the component variant's type tag (must be non-empty)
//   - data: variant-specific construction data, forwarded to the factory
//
// Returns:
//   - <-chan rpcdispatch.Result: resolves to (nil, error) once spawned
//   - error: a validation error if id/typeTag is invalid
func (w *Worker) SpawnEntity(id simtypes.EntityID, typeTag string, data any) (<-chan rpcdispatch.Result, error) {
	if simerr.InvalidEntityID(int32(id)) {
		return nil, fmt.Errorf("renderworker: spawn_entity: %w: entity id must be positive", simerr.ErrInvalidArgument)
	}
	if typeTag == "" {
		return nil, fmt.Errorf("renderworker: spawn_entity: %w: type tag must be non-empty", simerr.ErrInvalidArgument)
	}
	return w.boundary.CallAsync(int64(id), typeTag, func() (any, error) {
		component, err := w.components.Create(id, typeTag, data)
		if err != nil {
			return nil, err
		}
		slot, err := w.buf.Register()
		if err != nil {
			component.Dispose()
			return nil, err
		}
		w.registry.Insert(id)
		_ = slot
		w.entities[id] = &entityRecord{component: component}
		return nil, nil
	})
}

// RemoveEntity tears down id's component and compacts the shared-buffer
// slot (spec §6 `remove_entity`).
func (w *Worker) RemoveEntity(id simtypes.EntityID) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultCallTimeout)
	defer cancel()
	_, err := w.boundary.Call(ctx, int64(id), "remove_entity", func() (any, error) {
		rec, ok := w.entities[id]
		if !ok {
			return nil, nil
		}
		if rec.batch != nil {
			rec.batch.Remove(id)
		}
		rec.component.Dispose()
		delete(w.entities, id)

		movedID, oldSlot, newSlot, _ := w.registry.Remove(id)
		if movedID != 0 {
			w.buf.CopySlot(newSlot, oldSlot)
		}
		w.buf.Unregister()

		if id == w.playerID {
			w.playerID = 0
		}
		return nil, nil
	})
	return err
}

// AddBox inserts id into the box instanced batch (spec §6 `add_box(id, scale?)`).
func (w *Worker) AddBox(id simtypes.EntityID, scale simtypes.Vec3) error {
	return w.addToBatch(w.boxes, id, scale)
}

// AddBoxes inserts ids into the box instanced batch (spec §6 `add_boxes(ids[], scales?[])`).
func (w *Worker) AddBoxes(ids []simtypes.EntityID, scales []simtypes.Vec3) error {
	return w.addManyToBatch(w.boxes, ids, scales)
}

// RemoveBoxes drops ids from the box instanced batch (spec §6 `remove_boxes(ids[])`).
func (w *Worker) RemoveBoxes(ids []simtypes.EntityID) {
	for _, id := range ids {
		w.boxes.Remove(id)
	}
}

// ClearBoxes empties the box instanced batch (spec §6 `clear_boxes()`).
func (w *Worker) ClearBoxes() {
	w.boxes = instanced.New()
}

// GetBoxCount returns the number of live box instances (spec §6 `get_box_count()`).
func (w *Worker) GetBoxCount() int {
	return w.boxes.Count()
}

// AddSphere inserts id into the sphere instanced batch (spec §6 `add_sphere(id, scale?)`).
func (w *Worker) AddSphere(id simtypes.EntityID, scale simtypes.Vec3) error {
	return w.addToBatch(w.spheres, id, scale)
}

// AddSpheres inserts ids into the sphere instanced batch (spec §6 `add_spheres(ids[], scales?[])`).
func (w *Worker) AddSpheres(ids []simtypes.EntityID, scales []simtypes.Vec3) error {
	return w.addManyToBatch(w.spheres, ids, scales)
}

// RemoveSpheres drops ids from the sphere instanced batch (spec §6 `remove_spheres(ids[])`).
func (w *Worker) RemoveSpheres(ids []simtypes.EntityID) {
	for _, id := range ids {
		w.spheres.Remove(id)
	}
}

// ClearSpheres empties the sphere instanced batch (spec §6 `clear_spheres()`).
func (w *Worker) ClearSpheres() {
	w.spheres = instanced.New()
}

// GetSphereCount returns the number of live sphere instances (spec §6 `get_sphere_count()`).
func (w *Worker) GetSphereCount() int {
	return w.spheres.Count()
}

func (w *Worker) addToBatch(batch *instanced.Manager, id simtypes.EntityID, scale simtypes.Vec3) error {
	if simerr.InvalidEntityID(int32(id)) {
		return fmt.Errorf("renderworker: %w: entity id must be positive", simerr.ErrInvalidArgument)
	}
	if scale == (simtypes.Vec3{}) {
		scale = simtypes.Vec3{X: 1, Y: 1, Z: 1}
	}
	if _, err := batch.Add(id, instanced.Instance{Scale: scale}); err != nil {
		return err
	}
	if rec, ok := w.entities[id]; ok {
		rec.batch = batch
	}
	return nil
}

func (w *Worker) addManyToBatch(batch *instanced.Manager, ids []simtypes.EntityID, scales []simtypes.Vec3) error {
	for i, id := range ids {
		scale := simtypes.Vec3{X: 1, Y: 1, Z: 1}
		if i < len(scales) {
			scale = scales[i]
		}
		if err := w.addToBatch(batch, id, scale); err != nil {
			return err
		}
	}
	return nil
}

// GetPlayerEntityID returns the player entity id observed from the
// physics side, or 0 if none has been recorded yet (spec §6
// `get_player_entity_id() → Option<EntityId>`). The host is responsible
// for forwarding physicsworker.Worker.PlayerEntityID into SetPlayerEntityID
// once spawn_player succeeds, since the render worker has no direct
// channel to the physics side.
func (w *Worker) GetPlayerEntityID() simtypes.EntityID {
	return w.playerID
}

// SetPlayerEntityID records the player entity id for GetPlayerEntityID.
func (w *Worker) SetPlayerEntityID(id simtypes.EntityID) {
	w.playerID = id
}

// SetGroundHeightFunc overrides the ground-height sampler used by
// RaycastGround. Defaults to a flat plane at y=0.
func (w *Worker) SetGroundHeightFunc(fn func(x, z float32) float32) {
	if fn != nil {
		w.groundHeightAt = fn
	}
}

// RaycastGround intersects a camera-relative ray through NDC point
// (nx, ny) with the ground height field (spec §6 `raycast_ground(nx, ny)
// → Option<{point, origin, direction}>`). nx, ny are in [0, 1]×[0, 1]
// with y flipped for screen-down convention, matching the teacher's
// screen-space mouse coordinates (window.go's onMouseMove(x, y int32)).
//
// Parameters:
//   - nx: normalized screen x in [0, 1]
//   - ny: normalized screen y in [0, 1], 0 at the top of the screen
//
// Returns:
//   - point: the world-space intersection point
//   - origin: the ray's origin (the camera position)
//   - direction: the ray's normalized direction
//   - ok: false if no intersection was found within the search range
func (w *Worker) RaycastGround(nx, ny float32) (point, origin, direction simtypes.Vec3, ok bool) {
	origin = w.camera.Position()
	lookAt := w.camera.LookAt()

	aspect := float32(1.0)
	if w.viewport.Height > 0 {
		aspect = float32(w.viewport.Width) / float32(w.viewport.Height)
	}

	// assumedHalfFovTan stands in for a real field of view: this module
	// has no scene graph to source one from, so the camera's vertical
	// half-angle is treated as fixed. near/far only need to bracket the
	// ground plane for the purposes of unprojection.
	const (
		assumedHalfFovTan = 0.7
		near              = 0.1
		far               = 1000.0
	)
	fovY := 2 * float32(math.Atan(float64(assumedHalfFovTan)))

	var view, proj, viewProj, invViewProj [16]float32
	common.LookAt(view[:], origin.X, origin.Y, origin.Z, lookAt.X, lookAt.Y, lookAt.Z, 0, 1, 0)
	common.Perspective(proj[:], fovY, aspect, near, far)
	common.Mul4(viewProj[:], proj[:], view[:])
	if !common.Invert4(invViewProj[:], viewProj[:]) {
		return point, origin, direction, false
	}

	sx := nx*2 - 1
	sy := 1 - ny*2
	farWorld := unprojectPoint(invViewProj[:], sx, sy, 1)

	direction = normalize(simtypes.Vec3{X: farWorld.X - origin.X, Y: farWorld.Y - origin.Y, Z: farWorld.Z - origin.Z})

	return raymarchGround(origin, direction, w.groundHeightAt)
}

// unprojectPoint maps a clip-space point back to world space through the
// inverse view-projection matrix, dividing by w to undo the perspective
// transform.
func unprojectPoint(invViewProj []float32, sx, sy, sz float32) simtypes.Vec3 {
	x := invViewProj[0]*sx + invViewProj[4]*sy + invViewProj[8]*sz + invViewProj[12]
	y := invViewProj[1]*sx + invViewProj[5]*sy + invViewProj[9]*sz + invViewProj[13]
	z := invViewProj[2]*sx + invViewProj[6]*sy + invViewProj[10]*sz + invViewProj[14]
	w := invViewProj[3]*sx + invViewProj[7]*sy + invViewProj[11]*sz + invViewProj[15]
	if w == 0 {
		w = 1
	}
	return simtypes.Vec3{X: x / w, Y: y / w, Z: z / w}
}

const (
	raymarchMaxDistance = 500.0
	raymarchStep        = 0.5
	raymarchRefineSteps = 8
)

// raymarchGround steps along the ray until it crosses the height field,
// then bisects within the last step to refine the crossing point.
func raymarchGround(origin, direction simtypes.Vec3, heightAt func(x, z float32) float32) (point, o, d simtypes.Vec3, ok bool) {
	prevT := float32(0)
	prevDiff := (origin.Y) - heightAt(origin.X, origin.Z)
	for t := raymarchStep; t <= raymarchMaxDistance; t += raymarchStep {
		p := simtypes.Vec3{X: origin.X + direction.X*t, Y: origin.Y + direction.Y*t, Z: origin.Z + direction.Z*t}
		diff := p.Y - heightAt(p.X, p.Z)
		if diff <= 0 && prevDiff > 0 {
			lo, hi := prevT, t
			for i := 0; i < raymarchRefineSteps; i++ {
				mid := (lo + hi) / 2
				mp := simtypes.Vec3{X: origin.X + direction.X*mid, Y: origin.Y + direction.Y*mid, Z: origin.Z + direction.Z*mid}
				if mp.Y-heightAt(mp.X, mp.Z) > 0 {
					lo = mid
				} else {
					hi = mid
				}
			}
			mid := (lo + hi) / 2
			return simtypes.Vec3{X: origin.X + direction.X*mid, Y: origin.Y + direction.Y*mid, Z: origin.Z + direction.Z*mid}, origin, direction, true
		}
		prevT, prevDiff = t, diff
	}
	return simtypes.Vec3{}, origin, direction, false
}

func normalize(v simtypes.Vec3) simtypes.Vec3 {
	length := float32(math.Sqrt(float64(v.X*v.X + v.Y*v.Y + v.Z*v.Z)))
	if length < 1e-8 {
		return simtypes.Vec3{}
	}
	return simtypes.Vec3{X: v.X / length, Y: v.Y / length, Z: v.Z / length}
}

// Dispose releases the render worker's resources (spec §6 `dispose()`).
func (w *Worker) Dispose() {
	ctx, cancel := context.WithTimeout(context.Background(), defaultCallTimeout)
	defer cancel()
	_, _ = w.boundary.Call(ctx, 0, "", func() (any, error) {
		for id, rec := range w.entities {
			rec.component.Dispose()
			delete(w.entities, id)
		}
		return nil, nil
	})
}

// FlushBoxBuffer drains the box batch's dirty instances and writes them
// to buffer via queue (spec §4.7's GPU-buffer-upload step, applied to
// the render worker's box batch). FlushSphereBuffer is the sphere-batch
// analogue.
//
// Parameters:
//   - queue: the GPU queue to write into
//   - buffer: the destination GPU buffer, sized for the batch's max capacity
//   - stride: bytes per instance slot in buffer
func (w *Worker) FlushBoxBuffer(queue *wgpu.Queue, buffer *wgpu.Buffer, stride uint64) {
	flushInstancedBuffer(w.boxes, queue, buffer, stride)
}

// FlushSphereBuffer is the sphere-batch analogue of FlushBoxBuffer.
func (w *Worker) FlushSphereBuffer(queue *wgpu.Queue, buffer *wgpu.Buffer, stride uint64) {
	flushInstancedBuffer(w.spheres, queue, buffer, stride)
}

func flushInstancedBuffer(batch *instanced.Manager, queue *wgpu.Queue, buffer *wgpu.Buffer, stride uint64) {
	writes, _ := batch.Flush()
	for _, write := range writes {
		offset := uint64(write.Index) * stride
		data := instanceToBytes(write.Data)
		queue.WriteBuffer(buffer, offset, data)
	}
}

// instanceToBytes packs an instanced.Instance into the flat float32 layout
// (position, rotation, scale) GPU shaders expect, little-endian, packed by
// hand rather than through common.SliceToBytes.
func instanceToBytes(inst instanced.Instance) []byte {
	floats := []float32{
		inst.Position.X, inst.Position.Y, inst.Position.Z,
		inst.Rotation.X, inst.Rotation.Y, inst.Rotation.Z, inst.Rotation.W,
		inst.Scale.X, inst.Scale.Y, inst.Scale.Z,
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		bits := math.Float32bits(f)
		buf[i*4+0] = byte(bits)
		buf[i*4+1] = byte(bits >> 8)
		buf[i*4+2] = byte(bits >> 16)
		buf[i*4+3] = byte(bits >> 24)
	}
	return buf
}
