// Package followcam implements the Follow Camera from spec §4.8: a
// damped third-person orbit camera that tracks a moving target, snapping
// to it instantly the first time a target is set and smoothly
// interpolating toward it on every subsequent update.
//
// Grounded on engine/camera/camera_controller_impl.go's spherical-
// coordinate orbit camera (radius/azimuth/elevation around a target,
// recomputed into a Cartesian position by updatePosition), generalized
// from "the target orbited is operator-driven and doesn't move under
// its own power" to the spec's "the target is a moving tracked entity,
// and the camera's followed point must damp toward it rather than
// teleport".
package followcam

import (
	"math"
	"sync"

	"github.com/avidal-labs/fixedstep/simtypes"
)

// Option configures a Camera at construction, following the same
// functional-options shape as the teacher's CameraControllerOption.
type Option func(*Camera)

// WithRadius sets the orbit distance from the damped follow point.
func WithRadius(radius float32) Option {
	return func(c *Camera) {
		if radius > 0 {
			c.radius = radius
		}
	}
}

// WithAzimuth sets the initial horizontal orbit angle, in radians.
func WithAzimuth(azimuth float32) Option {
	return func(c *Camera) { c.azimuth = azimuth }
}

// WithElevation sets the initial vertical orbit angle, in radians.
func WithElevation(elevation float32) Option {
	return func(c *Camera) { c.elevation = elevation }
}

// WithHeightOffset sets a fixed vertical offset added to the target
// before damping and orbiting, so the camera looks at e.g. a character's
// chest rather than its feet.
func WithHeightOffset(offset float32) Option {
	return func(c *Camera) { c.heightOffset = offset }
}

// WithDampingRate sets the exponential damping rate, in 1/seconds, used
// to smooth the followed point toward the target each update. Higher
// values track more tightly; the teacher's orbit camera has no damping
// at all (it snaps directly to operator input), so this is a pure
// spec addition (spec §4.8).
func WithDampingRate(rate float32) Option {
	return func(c *Camera) {
		if rate > 0 {
			c.dampingRate = rate
		}
	}
}

// Camera is a damped third-person orbit camera (spec §4.8).
type Camera struct {
	mu sync.Mutex

	followed     simtypes.Vec3
	hasTarget    bool
	heightOffset float32
	dampingRate  float32

	radius    float32
	azimuth   float32
	elevation float32

	minElevation, maxElevation float32

	position simtypes.Vec3
}

// New creates a Camera with spec-default orbit parameters, overridden by
// options.
//
// Parameters:
//   - options: functional options configuring radius/azimuth/elevation/damping
//
// Returns:
//   - *Camera: the new follow camera
func New(options ...Option) *Camera {
	c := &Camera{
		radius:       6.0,
		azimuth:      0,
		elevation:    float32(math.Pi / 8),
		minElevation: 0.05,
		maxElevation: float32(math.Pi/2 - 0.1),
		heightOffset: 1.6,
		dampingRate:  8.0,
	}
	for _, option := range options {
		option(c)
	}
	c.updatePosition()
	return c
}

// Update advances the camera's followed point toward target by one
// frame's worth of exponential damping, then recomputes the orbit
// position (spec §4.8). The very first call snaps directly to target
// with no damping, since there is no prior followed point to smooth
// from.
//
// Parameters:
//   - target: the tracked entity's current interpolated world position
//   - deltaSeconds: elapsed wall-clock time since the previous Update call
func (c *Camera) Update(target simtypes.Vec3, deltaSeconds float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	targetWithOffset := simtypes.Vec3{X: target.X, Y: target.Y + c.heightOffset, Z: target.Z}

	if !c.hasTarget {
		c.followed = targetWithOffset
		c.hasTarget = true
	} else {
		t := dampingWeight(c.dampingRate, deltaSeconds)
		c.followed.X += (targetWithOffset.X - c.followed.X) * t
		c.followed.Y += (targetWithOffset.Y - c.followed.Y) * t
		c.followed.Z += (targetWithOffset.Z - c.followed.Z) * t
	}

	c.updatePosition()
}

// dampingWeight converts an exponential damping rate and elapsed time
// into a per-frame lerp weight in [0, 1], framerate-independent.
func dampingWeight(rate, deltaSeconds float32) float32 {
	if deltaSeconds <= 0 {
		return 0
	}
	w := 1 - float32(math.Exp(-float64(rate*deltaSeconds)))
	if w < 0 {
		return 0
	}
	if w > 1 {
		return 1
	}
	return w
}

// updatePosition recomputes the camera's Cartesian position from the
// followed point and spherical orbit coordinates. Caller must hold mu.
func (c *Camera) updatePosition() {
	cosElev := float32(math.Cos(float64(c.elevation)))
	sinElev := float32(math.Sin(float64(c.elevation)))
	cosAzim := float32(math.Cos(float64(c.azimuth)))
	sinAzim := float32(math.Sin(float64(c.azimuth)))

	c.position = simtypes.Vec3{
		X: c.followed.X + c.radius*cosElev*sinAzim,
		Y: c.followed.Y + c.radius*sinElev,
		Z: c.followed.Z + c.radius*cosElev*cosAzim,
	}
}

// Position returns the camera's current world position.
func (c *Camera) Position() simtypes.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

// LookAt returns the point the camera should aim at: the current damped
// followed point.
func (c *Camera) LookAt() simtypes.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.followed
}

// Orbit adjusts azimuth and elevation by the given deltas, clamping
// elevation to [minElevation, maxElevation] (spec §4.8 allows manual
// orbit input alongside target tracking, per the teacher's OrbitLeft/
// OrbitRight/OrbitUp/OrbitDown).
//
// Parameters:
//   - deltaAzimuth: radians to add to the horizontal orbit angle
//   - deltaElevation: radians to add to the vertical orbit angle
func (c *Camera) Orbit(deltaAzimuth, deltaElevation float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.azimuth += deltaAzimuth
	c.elevation += deltaElevation
	if c.elevation < c.minElevation {
		c.elevation = c.minElevation
	}
	if c.elevation > c.maxElevation {
		c.elevation = c.maxElevation
	}
	c.updatePosition()
}

// Zoom adjusts the orbit radius by delta, with no clamping beyond
// staying positive.
func (c *Camera) Zoom(delta float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.radius -= delta
	if c.radius < 0.1 {
		c.radius = 0.1
	}
	c.updatePosition()
}
