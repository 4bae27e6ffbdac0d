// Package transformsync implements the Transform Sync / interpolator from
// spec §4.5: the render-side reader that computes an interpolation alpha
// from wall-clock time and blends previous→current snapshots for every
// entity, including GPU-instanced batches.
package transformsync

import (
	"time"

	"github.com/avidal-labs/fixedstep/common"
	"github.com/avidal-labs/fixedstep/sharedbuf"
	"github.com/avidal-labs/fixedstep/simtypes"
)

// timeNowFunc is the wall-clock source backing Now's default implementation.
var timeNowFunc = time.Now

// Now returns the current wall-clock time in milliseconds. It is a package
// variable so tests can substitute a deterministic clock.
var Now = defaultNowMs

// Sync reads a sharedbuf.Buffer once per render frame, tracking the last
// observed frame counter so callers can fire physics-frame hooks exactly
// once per newly published physics frame (spec §4.5 step 7).
type Sync struct {
	buf      *sharedbuf.Buffer
	lastSeen uint32
	seenOnce bool
}

// New creates a Sync reading from buf.
//
// Parameters:
//   - buf: the shared transform buffer to read
//
// Returns:
//   - *Sync: the new sync reader
func New(buf *sharedbuf.Buffer) *Sync {
	return &Sync{buf: buf}
}

// Frame is the result of interpolating a single slot within a render tick.
type Frame struct {
	Position simtypes.Vec3
	Rotation simtypes.Quat
	Alpha    float32
	NewFrame bool
}

// TickCounter advances the sync's frame-change tracking and returns the
// current alpha, to be shared across every entity updated this render
// frame (spec §4.5 steps 1-3). Call this once per render frame, before
// Interpolate for each entity.
//
// Returns:
//   - counter: the shared buffer's current frame counter
//   - newFrame: true if counter differs from the last-seen value (spec §4.5 step 1)
//   - alpha: the clamped interpolation weight in [0, 1] (spec §4.5 steps 2-3)
func (s *Sync) TickCounter() (counter uint32, newFrame bool, alpha float32) {
	now := Now()
	counter = s.buf.ObserveFrame()
	newFrame = !s.seenOnce || counter != s.lastSeen

	currentTimeMs, intervalMs := s.buf.Timing()
	if intervalMs <= 0 {
		intervalMs = sharedbuf.DefaultIntervalMs
	}

	raw := (now - currentTimeMs) / intervalMs
	alpha = common.Clamp01(float32(raw))

	if newFrame {
		s.lastSeen = counter
		s.seenOnce = true
	}

	return counter, newFrame, alpha
}

// Interpolate reads slot's previous/current snapshots and blends them at
// alpha: position by component-wise lerp, rotation by short-path slerp
// (spec §4.5 step 4).
//
// Parameters:
//   - slot: the entity's shared-buffer slot
//   - alpha: the interpolation weight, expected in [0, 1]
//
// Returns:
//   - pos: the interpolated position
//   - rot: the interpolated, unit-length rotation
func (s *Sync) Interpolate(slot int, alpha float32) (pos simtypes.Vec3, rot simtypes.Quat) {
	previous, current := s.buf.ReadTransform(slot)

	x, y, z := common.LerpVec3(
		previous.Position.X, previous.Position.Y, previous.Position.Z,
		current.Position.X, current.Position.Y, current.Position.Z,
		alpha,
	)
	pos = simtypes.Vec3{X: x, Y: y, Z: z}

	rx, ry, rz, rw := common.SlerpQuat(
		previous.Rotation.X, previous.Rotation.Y, previous.Rotation.Z, previous.Rotation.W,
		current.Rotation.X, current.Rotation.Y, current.Rotation.Z, current.Rotation.W,
		alpha,
	)
	rot = simtypes.Quat{X: rx, Y: ry, Z: rz, W: rw}

	return pos, rot
}

func defaultNowMs() float64 {
	return float64(nowUnixMilli())
}

// nowUnixMilli is split out from defaultNowMs so tests can see the exact
// integer-millisecond wall-clock source used by the default Now function.
func nowUnixMilli() int64 {
	return timeNowFunc().UnixMilli()
}
