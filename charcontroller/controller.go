// Package charcontroller implements the kinematic Character Controller from
// spec §4.4: a velocity-free controller that computes a desired
// displacement per step and submits it to a collide-and-slide engine for
// correction, using the cuboid-at-feet body convention (spec §9).
//
// The yaw/forward-vector bookkeeping is grounded on the kinematic-body
// handling in gazed-vu/move/move.go's Mover; the final quaternion
// composition reuses common.YawToQuat in the same flat-array style as
// common/math.go's BuildModelMatrix.
package charcontroller

import (
	"math"

	"github.com/avidal-labs/fixedstep/common"
	"github.com/avidal-labs/fixedstep/simtypes"
	"github.com/avidal-labs/fixedstep/solver"
)

// Controller drives a single kinematic body according to MovementInput.
// Not safe for concurrent use; owned exclusively by the physics stepper's
// single-threaded step loop (spec §4.3, §5).
type Controller struct {
	handle  solver.BodyHandle
	engine  solver.CollideAndSlideEngine
	config  simtypes.CharacterControllerConfig
	yaw     float32
	grounded bool
}

// New creates a Controller bound to handle, submitting collide-and-slide
// requests to engine.
//
// Parameters:
//   - handle: the kinematic body this controller drives
//   - engine: the collide-and-slide collaborator (spec §6)
//   - config: the controller's shape/slope/speed configuration
//
// Returns:
//   - *Controller: the new controller, yaw initialized to zero
func New(handle solver.BodyHandle, engine solver.CollideAndSlideEngine, config simtypes.CharacterControllerConfig) *Controller {
	return &Controller{
		handle: handle,
		engine: engine,
		config: config,
	}
}

// Grounded reports whether the last Step detected a ground contact within
// the configured snap-to-ground distance (spec §4.4 glossary "Grounded").
func (c *Controller) Grounded() bool {
	return c.grounded
}

// Yaw returns the controller's current yaw angle in radians.
func (c *Controller) Yaw() float32 {
	return c.yaw
}

// Step advances the controller by deltaSeconds given the current input and
// the body's current feet position, returning the body's next position and
// orientation to apply via RigidBodyWorld.SetNextKinematicTranslation /
// SetNextKinematicRotation (spec §4.4 steps 1-5).
//
// Parameters:
//   - input: the current movement input snapshot
//   - deltaSeconds: elapsed simulation time this step
//   - currentPos: the body's feet position before this step
//
// Returns:
//   - nextPos: the corrected position to apply this step
//   - nextRot: the quaternion representing the updated yaw
func (c *Controller) Step(input simtypes.MovementInput, deltaSeconds float32, currentPos simtypes.Vec3) (nextPos simtypes.Vec3, nextRot simtypes.Quat) {
	turnSpeed := c.config.TurnSpeed
	if input.Left {
		c.yaw += turnSpeed * deltaSeconds
	}
	if input.Right {
		c.yaw -= turnSpeed * deltaSeconds
	}

	forwardX := float32(math.Sin(float64(c.yaw)))
	forwardZ := float32(math.Cos(float64(c.yaw)))

	speed := c.config.MoveSpeed
	if input.Sprint {
		speed *= c.config.SprintMult
	}

	var moveSign float32
	if input.Forward {
		moveSign += 1
	}
	if input.Backward {
		moveSign -= 1
	}

	planarDist := speed * deltaSeconds * moveSign
	desired := simtypes.Vec3{
		X: forwardX * planarDist,
		Y: clampGravityStep(c.config.Gravity * deltaSeconds),
		Z: forwardZ * planarDist,
	}

	corrected, grounded := c.engine.Resolve(c.handle, desired, c.config)
	c.grounded = grounded

	nextPos = simtypes.Vec3{
		X: currentPos.X + corrected.X,
		Y: currentPos.Y + corrected.Y,
		Z: currentPos.Z + corrected.Z,
	}

	rx, ry, rz, rw := common.YawToQuat(c.yaw)
	nextRot = simtypes.Quat{X: rx, Y: ry, Z: rz, W: rw}
	return nextPos, nextRot
}

// maxGravityStepMagnitude bounds the per-step vertical displacement,
// guarding against a degenerate (NaN/Inf) gravity configuration reaching
// the collide-and-slide engine.
const maxGravityStepMagnitude = 1e6

// clampGravityStep keeps the per-step vertical displacement within
// [-maxGravityStepMagnitude, maxGravityStepMagnitude] (spec §4.4:
// "gravity·dt applied as velocity-times-dt").
func clampGravityStep(v float32) float32 {
	if math.IsNaN(float64(v)) {
		return 0
	}
	if v < -maxGravityStepMagnitude {
		return -maxGravityStepMagnitude
	}
	if v > maxGravityStepMagnitude {
		return maxGravityStepMagnitude
	}
	return v
}
