package solver

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/avidal-labs/fixedstep/simerr"
	"github.com/avidal-labs/fixedstep/simtypes"
)

// body is the reference world's internal bookkeeping for one rigid body.
type body struct {
	kind      simtypes.BodyKind
	shape     simtypes.ColliderShape
	transform simtypes.Transform
	velocityY float32

	hasNextPos bool
	nextPos    simtypes.Vec3
	hasNextRot bool
	nextRot    simtypes.Quat
}

// ReferenceWorld is a minimal, single-process rigid-body world used to make
// this module compile and test end-to-end without the real (out-of-scope)
// WASM solver. It supports static height-field ground bodies, simple
// gravity integration for dynamic bodies, and pass-through kinematic
// positioning for the character controller. It performs no dynamic-body
// collision resolution — callers needing that must bind the real engine.
type ReferenceWorld struct {
	mu         sync.Mutex
	gravity    simtypes.Vec3
	bodies     map[BodyHandle]*body
	nextHandle uint32
	groundID   *BodyHandle
}

// NewReferenceWorld creates a ReferenceWorld with the given gravity vector.
//
// Parameters:
//   - gravity: the constant gravitational acceleration applied to dynamic bodies
//
// Returns:
//   - *ReferenceWorld: the new world
func NewReferenceWorld(gravity simtypes.Vec3) *ReferenceWorld {
	return &ReferenceWorld{
		gravity: gravity,
		bodies:  make(map[BodyHandle]*body),
	}
}

var _ RigidBodyWorld = (*ReferenceWorld)(nil)
var _ CollideAndSlideEngine = (*ReferenceWorld)(nil)

// CreateBody implements RigidBodyWorld.
func (w *ReferenceWorld) CreateBody(transform simtypes.Transform, config simtypes.PhysicsBodyConfig) (BodyHandle, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if config.Shape.Kind == simtypes.ShapeHeightField && config.Shape.Rows < 0 {
		return 0, fmt.Errorf("solver: invalid heightfield rows: %w", simerr.ErrSolverInitFailure)
	}

	w.nextHandle++
	h := BodyHandle(w.nextHandle)
	w.bodies[h] = &body{
		kind:      config.Kind,
		shape:     config.Shape,
		transform: transform,
	}

	if config.Shape.Kind == simtypes.ShapeHeightField && config.Kind == simtypes.BodyStatic {
		handle := h
		w.groundID = &handle
	}

	return h, nil
}

// RemoveBody implements RigidBodyWorld.
func (w *ReferenceWorld) RemoveBody(handle BodyHandle) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.bodies, handle)
	if w.groundID != nil && *w.groundID == handle {
		w.groundID = nil
	}
}

// SetNextKinematicTranslation implements RigidBodyWorld.
func (w *ReferenceWorld) SetNextKinematicTranslation(handle BodyHandle, pos simtypes.Vec3) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.bodies[handle]
	if !ok {
		return
	}
	b.hasNextPos = true
	b.nextPos = pos
}

// SetNextKinematicRotation implements RigidBodyWorld.
func (w *ReferenceWorld) SetNextKinematicRotation(handle BodyHandle, rot simtypes.Quat) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.bodies[handle]
	if !ok {
		return
	}
	b.hasNextRot = true
	b.nextRot = rot
}

// Step implements RigidBodyWorld. Kinematic bodies adopt their queued next
// transform verbatim; dynamic bodies fall under gravity and rest on the
// registered ground height field, if any.
func (w *ReferenceWorld) Step(deltaSeconds float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	dt := float32(deltaSeconds)

	for _, b := range w.bodies {
		switch b.kind {
		case simtypes.BodyKinematicPositionBased:
			if b.hasNextPos {
				b.transform.Position = b.nextPos
				b.hasNextPos = false
			}
			if b.hasNextRot {
				b.transform.Rotation = b.nextRot
				b.hasNextRot = false
			}
		case simtypes.BodyDynamic:
			b.velocityY += w.gravity.Y * dt
			b.transform.Position.Y += b.velocityY * dt
			if ground := w.groundBodyLocked(); ground != nil {
				floor := w.heightAtLocked(ground, b.transform.Position.X, b.transform.Position.Z)
				if b.transform.Position.Y < floor {
					b.transform.Position.Y = floor
					b.velocityY = 0
				}
			}
		case simtypes.BodyStatic:
			// static bodies never move
		}
	}
}

// BodyTransform implements RigidBodyWorld.
func (w *ReferenceWorld) BodyTransform(handle BodyHandle) simtypes.Transform {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.bodies[handle]
	if !ok {
		return simtypes.Transform{}
	}
	return b.transform
}

// Gravity implements RigidBodyWorld.
func (w *ReferenceWorld) Gravity() simtypes.Vec3 {
	return w.gravity
}

// Resolve implements CollideAndSlideEngine (spec §4.4). Horizontal movement
// always passes through unobstructed (this reference world has no dynamic
// obstacles); vertical movement is clamped against the registered ground
// height field using the configured step-up and snap-to-ground distances,
// gated by the configured max slope climb / min slope slide angles.
func (w *ReferenceWorld) Resolve(handle BodyHandle, desired simtypes.Vec3, config simtypes.CharacterControllerConfig) (corrected simtypes.Vec3, grounded bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	b, ok := w.bodies[handle]
	if !ok {
		return desired, false
	}

	corrected = desired

	ground := w.groundBodyLocked()
	if ground == nil {
		return corrected, false
	}

	candidateX := b.transform.Position.X + desired.X
	candidateZ := b.transform.Position.Z + desired.Z
	groundY := w.heightAtLocked(ground, candidateX, candidateZ)
	slope := w.slopeAngleLocked(ground, candidateX, candidateZ)

	maxClimb := degToRadClamped(config.MaxSlopeClimbDeg)
	minSlide := degToRadClamped(config.MinSlopeSlideDeg)

	currentFeetY := b.transform.Position.Y
	targetFeetY := currentFeetY + desired.Y

	switch {
	case targetFeetY < groundY:
		climb := groundY - currentFeetY
		if climb <= config.StepHeight && slope <= maxClimb {
			corrected.Y = climb
			grounded = true
		} else {
			corrected.Y = 0
			grounded = false
		}
	case targetFeetY-groundY <= config.SnapToGroundDist:
		if slope > 0 && slope >= minSlide {
			// Ground is too steep to stand on: let the desired vertical
			// displacement (gravity) pass through instead of snapping.
			corrected.Y = desired.Y
			grounded = false
		} else {
			corrected.Y = groundY - currentFeetY
			grounded = true
		}
	default:
		corrected.Y = desired.Y
		grounded = false
	}

	return corrected, grounded
}

// slopeSampleOffset is the finite-difference step used to estimate the
// ground height field's local gradient at a candidate point.
const slopeSampleOffset = 0.1

// slopeAngleLocked estimates the ground height field's slope angle, in
// radians, at world (x, z) via central finite differences. Caller must
// hold w.mu.
func (w *ReferenceWorld) slopeAngleLocked(ground *body, x, z float32) float32 {
	hx0 := w.heightAtLocked(ground, x-slopeSampleOffset, z)
	hx1 := w.heightAtLocked(ground, x+slopeSampleOffset, z)
	hz0 := w.heightAtLocked(ground, x, z-slopeSampleOffset)
	hz1 := w.heightAtLocked(ground, x, z+slopeSampleOffset)

	dhdx := (hx1 - hx0) / (2 * slopeSampleOffset)
	dhdz := (hz1 - hz0) / (2 * slopeSampleOffset)
	grade := float32(math.Sqrt(float64(dhdx*dhdx + dhdz*dhdz)))
	return float32(math.Atan(float64(grade)))
}

// degToRadClamped converts a configured slope angle in degrees to radians,
// clamping to [0, pi/2] with gonum/floats' Max/Min reductions so a
// misconfigured negative or over-vertical angle can't corrupt the slope
// comparison in Resolve.
func degToRadClamped(deg float32) float32 {
	rad := float64(deg) * math.Pi / 180
	rad = floats.Max([]float64{rad, 0})
	rad = floats.Min([]float64{rad, math.Pi / 2})
	return float32(rad)
}

func (w *ReferenceWorld) groundBodyLocked() *body {
	if w.groundID == nil {
		return nil
	}
	return w.bodies[*w.groundID]
}

// heightAtLocked samples the ground body's height field at world (x, z)
// using bilinear interpolation over the grid. A field with fewer than two
// rows or columns (or no heights) is treated as a flat plane at the ground
// body's own position Y, matching the "heightfield 0" flat-ground fixture in spec §8 scenario 1.
func (w *ReferenceWorld) heightAtLocked(b *body, x, z float32) float32 {
	hf := b.shape
	if hf.Rows <= 1 || hf.Cols <= 1 || len(hf.Heights) == 0 {
		return b.transform.Position.Y
	}

	sx, sz := hf.Scale[0], hf.Scale[2]
	if sx == 0 {
		sx = 1
	}
	if sz == 0 {
		sz = 1
	}

	gx := x/sx + float32(hf.Cols-1)/2
	gz := z/sz + float32(hf.Rows-1)/2

	gx = clampf(gx, 0, float32(hf.Cols-1))
	gz = clampf(gz, 0, float32(hf.Rows-1))

	c0 := int(math.Floor(float64(gx)))
	r0 := int(math.Floor(float64(gz)))
	c1 := min(c0+1, hf.Cols-1)
	r1 := min(r0+1, hf.Rows-1)

	tx := gx - float32(c0)
	tz := gz - float32(r0)

	h00 := hf.Heights[r0*hf.Cols+c0]
	h10 := hf.Heights[r0*hf.Cols+c1]
	h01 := hf.Heights[r1*hf.Cols+c0]
	h11 := hf.Heights[r1*hf.Cols+c1]

	top := h00 + (h10-h00)*tx
	bottom := h01 + (h11-h01)*tx
	height := top + (bottom-top)*tz

	return b.transform.Position.Y + height*hf.Scale[1]
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
