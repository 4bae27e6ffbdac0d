package charcontroller

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/avidal-labs/fixedstep/common"
	"github.com/avidal-labs/fixedstep/simtypes"
	"github.com/avidal-labs/fixedstep/solver"
)

// passthroughEngine returns the desired displacement verbatim and reports
// grounded as configured, letting tests isolate the controller's own
// yaw/speed/gravity bookkeeping from collision resolution.
type passthroughEngine struct {
	grounded bool
	lastDesired simtypes.Vec3
}

func (e *passthroughEngine) Resolve(handle solver.BodyHandle, desired simtypes.Vec3, config simtypes.CharacterControllerConfig) (simtypes.Vec3, bool) {
	e.lastDesired = desired
	return desired, e.grounded
}

func Test_Controller_ForwardInputMovesAlongYaw(t *testing.T) {
	engine := &passthroughEngine{grounded: true}
	config := simtypes.CharacterControllerConfig{MoveSpeed: 4}
	c := New(1, engine, config)

	next, _ := c.Step(simtypes.MovementInput{Forward: true}, 1.0, simtypes.Vec3{})

	assert.InDelta(t, 0.0, float64(next.X), 1e-4)
	assert.InDelta(t, 4.0, float64(next.Z), 1e-4)
}

func Test_Controller_SprintMultipliesSpeed(t *testing.T) {
	engine := &passthroughEngine{grounded: true}
	config := simtypes.CharacterControllerConfig{MoveSpeed: 4, SprintMult: 2}
	c := New(1, engine, config)

	next, _ := c.Step(simtypes.MovementInput{Forward: true, Sprint: true}, 1.0, simtypes.Vec3{})

	assert.InDelta(t, 8.0, float64(next.Z), 1e-4)
}

func Test_Controller_LeftAndRightTurnOppositeDirections(t *testing.T) {
	engine := &passthroughEngine{grounded: true}
	config := simtypes.CharacterControllerConfig{TurnSpeed: 1}
	c := New(1, engine, config)

	c.Step(simtypes.MovementInput{Left: true}, 1.0, simtypes.Vec3{})
	leftYaw := c.Yaw()

	c2 := New(1, engine, config)
	c2.Step(simtypes.MovementInput{Right: true}, 1.0, simtypes.Vec3{})
	rightYaw := c2.Yaw()

	assert.Equal(t, leftYaw, -rightYaw)
}

func Test_Controller_ForwardAndBackwardCancel(t *testing.T) {
	engine := &passthroughEngine{grounded: true}
	config := simtypes.CharacterControllerConfig{MoveSpeed: 4}
	c := New(1, engine, config)

	next, _ := c.Step(simtypes.MovementInput{Forward: true, Backward: true}, 1.0, simtypes.Vec3{X: 1, Y: 1, Z: 1})

	assert.InDelta(t, 1.0, float64(next.X), 1e-4)
	assert.InDelta(t, 1.0, float64(next.Z), 1e-4)
}

func Test_Controller_GroundedReflectsEngineResult(t *testing.T) {
	engine := &passthroughEngine{grounded: false}
	c := New(1, engine, simtypes.CharacterControllerConfig{})

	c.Step(simtypes.MovementInput{}, 1.0, simtypes.Vec3{})
	assert.False(t, c.Grounded())

	engine.grounded = true
	c.Step(simtypes.MovementInput{}, 1.0, simtypes.Vec3{})
	assert.True(t, c.Grounded())
}

func Test_Controller_Step_ReturnsQuatMatchingYaw(t *testing.T) {
	engine := &passthroughEngine{grounded: true}
	config := simtypes.CharacterControllerConfig{TurnSpeed: 1}
	c := New(1, engine, config)

	_, rot := c.Step(simtypes.MovementInput{Left: true}, math.Pi/2, simtypes.Vec3{})

	yaw := common.QuatToYaw(rot.X, rot.Y, rot.Z, rot.W)
	assert.InDelta(t, float64(c.Yaw()), float64(yaw), 1e-4)
}

func Test_ClampGravityStep_BoundsExtremeValues(t *testing.T) {
	assert.Equal(t, float32(maxGravityStepMagnitude), clampGravityStep(1e12))
	assert.Equal(t, float32(-maxGravityStepMagnitude), clampGravityStep(-1e12))
	assert.Equal(t, float32(3), clampGravityStep(3))
}
