package rendercomp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avidal-labs/fixedstep/simtypes"
)

type fakeNode struct {
	position simtypes.Vec3
	rotation simtypes.Quat
	calls    int
}

func (n *fakeNode) SetTransform(pos simtypes.Vec3, rot simtypes.Quat) {
	n.position = pos
	n.rotation = rot
	n.calls++
}

type fakeMixer struct {
	lastState string
	fadeCount int
}

func (m *fakeMixer) CrossFadeTo(name string, duration float32) {
	m.lastState = name
	m.fadeCount++
}

func Test_Registry_CreatePlayer(t *testing.T) {
	r := NewRegistry()
	node := &fakeNode{}

	comp, err := r.Create(1, TypeTagPlayer, PlayerData{Node: node})
	require.NoError(t, err)
	assert.Equal(t, TypeTagPlayer, comp.TypeTag())
	assert.Equal(t, simtypes.EntityID(1), comp.ID())
	assert.Same(t, SceneNode(node), comp.Node())
}

func Test_Registry_UnknownTagFallsBackToStaticMesh(t *testing.T) {
	r := NewRegistry()

	comp, err := r.Create(2, "nonexistent", StaticMeshData{})
	require.NoError(t, err)
	assert.Equal(t, TypeTagStaticMesh, comp.TypeTag())
}

func Test_Registry_RegisterOverridesExisting(t *testing.T) {
	r := NewRegistry()
	called := false
	r.Register(TypeTagGround, func(id simtypes.EntityID, data any) (Component, error) {
		called = true
		return &Ground{id: id}, nil
	})

	_, err := r.Create(3, TypeTagGround, nil)
	require.NoError(t, err)
	assert.True(t, called)
}

func Test_Ground_HasNoVisualNode(t *testing.T) {
	r := NewRegistry()
	comp, err := r.Create(1, TypeTagGround, nil)
	require.NoError(t, err)
	assert.Nil(t, comp.Node())
}

func Test_Player_SelectsJumpingWhenNotGrounded(t *testing.T) {
	mixer := &fakeMixer{}
	p, err := newPlayerComponent(1, PlayerData{Mixer: mixer})
	require.NoError(t, err)
	player := p.(*Player)

	player.OnPhysicsFrame(PhysicsFrameEvent{Grounded: false})
	assert.Equal(t, animJumping, mixer.lastState)
}

func Test_Player_SelectsIdleWhenGroundedAndStill(t *testing.T) {
	mixer := &fakeMixer{}
	p, _ := newPlayerComponent(1, PlayerData{Mixer: mixer})
	player := p.(*Player)

	player.OnPhysicsFrame(PhysicsFrameEvent{Grounded: true})
	assert.Equal(t, animIdle, mixer.lastState)
}

func Test_Player_SelectsRunningWhenSprintingWhileMoving(t *testing.T) {
	mixer := &fakeMixer{}
	p, _ := newPlayerComponent(1, PlayerData{Mixer: mixer})
	player := p.(*Player)

	player.OnPhysicsFrame(PhysicsFrameEvent{
		Grounded: true,
		Input:    simtypes.MovementInput{Forward: true, Sprint: true},
	})
	assert.Equal(t, animRunning, mixer.lastState)
}

func Test_Player_SelectsWalkingWhenMovingWithoutSprint(t *testing.T) {
	mixer := &fakeMixer{}
	p, _ := newPlayerComponent(1, PlayerData{Mixer: mixer})
	player := p.(*Player)

	player.OnPhysicsFrame(PhysicsFrameEvent{
		Grounded: true,
		Input:    simtypes.MovementInput{Left: true},
	})
	assert.Equal(t, animWalking, mixer.lastState)
}

func Test_Player_StateUnchangedDoesNotRefade(t *testing.T) {
	mixer := &fakeMixer{}
	p, _ := newPlayerComponent(1, PlayerData{Mixer: mixer})
	player := p.(*Player)

	player.OnPhysicsFrame(PhysicsFrameEvent{Grounded: true})
	assert.Equal(t, 1, mixer.fadeCount)

	player.OnPhysicsFrame(PhysicsFrameEvent{Grounded: true})
	assert.Equal(t, 1, mixer.fadeCount, "no crossfade should be triggered when the animation state does not change")
}

func Test_Player_FootstepFiresOnWalkingCadence(t *testing.T) {
	var footstepCount int
	p, _ := newPlayerComponent(1, PlayerData{OnFootstep: func(id simtypes.EntityID) { footstepCount++ }})
	player := p.(*Player)

	player.OnPhysicsFrame(PhysicsFrameEvent{Grounded: true, Input: simtypes.MovementInput{Forward: true}})
	player.OnRenderFrame(walkFootstepIntervalMs*2.5, 0)

	assert.Equal(t, 2, footstepCount)
}

func Test_Player_NoFootstepsWhileIdle(t *testing.T) {
	var footstepCount int
	p, _ := newPlayerComponent(1, PlayerData{OnFootstep: func(id simtypes.EntityID) { footstepCount++ }})
	player := p.(*Player)

	player.OnPhysicsFrame(PhysicsFrameEvent{Grounded: true})
	player.OnRenderFrame(5000, 0)

	assert.Equal(t, 0, footstepCount)
}

func Test_Player_OnTransformUpdateForwardsToNode(t *testing.T) {
	node := &fakeNode{}
	p, _ := newPlayerComponent(1, PlayerData{Node: node})
	player := p.(*Player)

	event := TransformUpdateEvent{Position: simtypes.Vec3{X: 1, Y: 2, Z: 3}, Rotation: simtypes.Quat{W: 1}}
	player.OnTransformUpdate(event)

	assert.Equal(t, event.Position, node.position)
	assert.Equal(t, 1, node.calls)
}

func Test_DynamicBox_DisposeInvokesCallback(t *testing.T) {
	var disposedID simtypes.EntityID
	comp, err := newDynamicBoxComponent(7, DynamicBoxData{OnDispose: func(id simtypes.EntityID) { disposedID = id }})
	require.NoError(t, err)

	comp.Dispose()
	assert.Equal(t, simtypes.EntityID(7), disposedID)
}

func Test_StaticMesh_OnTransformUpdateForwardsToNode(t *testing.T) {
	node := &fakeNode{}
	comp, err := newStaticMeshComponent(1, StaticMeshData{Node: node})
	require.NoError(t, err)

	mesh := comp.(*StaticMesh)
	mesh.OnTransformUpdate(TransformUpdateEvent{Position: simtypes.Vec3{X: 5}, Rotation: simtypes.Quat{W: 1}})
	assert.Equal(t, simtypes.Vec3{X: 5}, node.position)
}
