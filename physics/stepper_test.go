package physics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avidal-labs/fixedstep/sharedbuf"
	"github.com/avidal-labs/fixedstep/simerr"
	"github.com/avidal-labs/fixedstep/simtypes"
)

func Test_Stepper_StartsUninit(t *testing.T) {
	s := NewStepper()
	assert.Equal(t, StateUninit, s.State())
}

func Test_Stepper_SpawnBeforeInitFails(t *testing.T) {
	s := NewStepper()
	err := s.SpawnEntity(1, simtypes.Transform{}, simtypes.PhysicsBodyConfig{Shape: simtypes.Ball(1)})
	assert.ErrorIs(t, err, simerr.ErrNotInitialized)
}

func Test_Stepper_SpawnRejectsNonPositiveID(t *testing.T) {
	s := NewStepper()
	buf := sharedbuf.New(4)
	require.NoError(t, s.Init(simtypes.Vec3{}, buf))

	err := s.SpawnEntity(0, simtypes.Transform{}, simtypes.PhysicsBodyConfig{Shape: simtypes.Ball(1)})
	assert.ErrorIs(t, err, simerr.ErrInvalidArgument)
}

func Test_Stepper_InitTransitionsToInitialized(t *testing.T) {
	s := NewStepper()
	buf := sharedbuf.New(4)
	require.NoError(t, s.Init(simtypes.Vec3{}, buf))
	assert.Equal(t, StateInitialized, s.State())
}

func Test_Stepper_SpawnEntityRegistersSharedBufferSlot(t *testing.T) {
	s := NewStepper()
	buf := sharedbuf.New(4)
	require.NoError(t, s.Init(simtypes.Vec3{}, buf))

	require.NoError(t, s.SpawnEntity(1, simtypes.Transform{Position: simtypes.Vec3{X: 1}}, simtypes.PhysicsBodyConfig{
		Kind:  simtypes.BodyStatic,
		Shape: simtypes.Ball(1),
	}))

	assert.Equal(t, 1, buf.RegisteredCount())
}

func Test_Stepper_RemoveEntityUnregistersSlot(t *testing.T) {
	s := NewStepper()
	buf := sharedbuf.New(4)
	require.NoError(t, s.Init(simtypes.Vec3{}, buf))
	require.NoError(t, s.SpawnEntity(1, simtypes.Transform{}, simtypes.PhysicsBodyConfig{Shape: simtypes.Ball(1)}))

	require.NoError(t, s.RemoveEntity(1))
	assert.Equal(t, 0, buf.RegisteredCount())
}

func Test_Stepper_StartRequiresInitialized(t *testing.T) {
	s := NewStepper()
	err := s.Start()
	assert.ErrorIs(t, err, simerr.ErrNotInitialized)
}

func Test_Stepper_PauseRequiresRunning(t *testing.T) {
	s := NewStepper()
	buf := sharedbuf.New(4)
	require.NoError(t, s.Init(simtypes.Vec3{}, buf))

	err := s.Pause()
	assert.ErrorIs(t, err, simerr.ErrNotInitialized)
}

func Test_Stepper_FullLifecycle_RunsAndPublishesFrames(t *testing.T) {
	s := NewStepper(WithIntervalMs(2))
	buf := sharedbuf.New(4)
	require.NoError(t, s.Init(simtypes.Vec3{}, buf))
	require.NoError(t, s.SpawnEntity(1, simtypes.Transform{}, simtypes.PhysicsBodyConfig{
		Kind:  simtypes.BodyStatic,
		Shape: simtypes.Ball(1),
	}))

	require.NoError(t, s.Start())
	assert.Equal(t, StateRunning, s.State())

	require.Eventually(t, func() bool {
		return buf.ObserveFrame() > 0
	}, time.Second, time.Millisecond)

	require.NoError(t, s.Pause())
	assert.Equal(t, StatePaused, s.State())

	require.NoError(t, s.Resume())
	assert.Equal(t, StateRunning, s.State())

	s.Dispose()
	assert.Equal(t, StateDisposed, s.State())
}

func Test_Stepper_SetPlayerInput_DrivesPlayerPosition(t *testing.T) {
	s := NewStepper(WithIntervalMs(2))
	buf := sharedbuf.New(4)
	require.NoError(t, s.Init(simtypes.Vec3{}, buf))

	config := simtypes.CharacterControllerConfig{MoveSpeed: 4, HalfWidth: 0.3, HalfHeight: 0.9, HalfLength: 0.3}
	require.NoError(t, s.SpawnPlayer(1, simtypes.Transform{Rotation: simtypes.Quat{W: 1}}, config))
	assert.Equal(t, simtypes.EntityID(1), s.PlayerEntityID())

	s.SetPlayerInput(simtypes.MovementInput{Forward: true})
	require.NoError(t, s.Start())
	defer s.Dispose()

	require.Eventually(t, func() bool {
		_, current := buf.ReadTransform(0)
		return current.Position.Z != 0
	}, time.Second, time.Millisecond)
}
