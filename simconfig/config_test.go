package simconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avidal-labs/fixedstep/simtypes"
)

func writeScenario(t *testing.T, yamlText string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlText), 0o644))
	return path
}

func Test_Load_ParsesScenarioFields(t *testing.T) {
	path := writeScenario(t, `
name: test scenario
gravity: {x: 0, y: -9.8, z: 0}
player_spawn: {x: 1, y: 2, z: 3}
player_controller:
  move_speed: 4
spawns:
  - id: 1
    position: {x: 5, y: 0, z: 0}
    type: static_mesh
`)

	scenario, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test scenario", scenario.Name)
	assert.Equal(t, simtypes.Vec3{X: 0, Y: -9.8, Z: 0}, scenario.GravityVec())
	assert.Equal(t, simtypes.Vec3{X: 1, Y: 2, Z: 3}, scenario.PlayerSpawnVec())
	require.Len(t, scenario.Spawns, 1)
	assert.Equal(t, "static_mesh", scenario.Spawns[0].TypeTag)
}

func Test_Load_DefaultsIntervalMsWhenUnset(t *testing.T) {
	path := writeScenario(t, `name: no interval`)

	scenario, err := Load(path)
	require.NoError(t, err)
	assert.InDelta(t, 1000.0/60.0, scenario.IntervalMs, 1e-9)
}

func Test_Load_MissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func Test_Load_InvalidYAMLReturnsError(t *testing.T) {
	path := writeScenario(t, "not: [valid: yaml")
	_, err := Load(path)
	assert.Error(t, err)
}

func Test_BodyConfig_ToSim_DefaultsToCuboidAndStatic(t *testing.T) {
	c := BodyConfig{HalfX: 1, HalfY: 2, HalfZ: 3}
	body, err := c.ToSim()
	require.NoError(t, err)
	assert.Equal(t, simtypes.BodyStatic, body.Kind)
	assert.Equal(t, simtypes.Cuboid(1, 2, 3), body.Shape)
}

func Test_BodyConfig_ToSim_Ball(t *testing.T) {
	c := BodyConfig{Kind: "dynamic", ShapeKind: "ball", Radius: 2}
	body, err := c.ToSim()
	require.NoError(t, err)
	assert.Equal(t, simtypes.BodyDynamic, body.Kind)
	assert.Equal(t, simtypes.Ball(2), body.Shape)
}

func Test_BodyConfig_ToSim_Capsule(t *testing.T) {
	c := BodyConfig{ShapeKind: "capsule", HalfHeight: 1, Radius: 0.5}
	body, err := c.ToSim()
	require.NoError(t, err)
	assert.Equal(t, simtypes.Capsule(1, 0.5), body.Shape)
}

func Test_BodyConfig_ToSim_UnknownKindErrors(t *testing.T) {
	c := BodyConfig{Kind: "ghost"}
	_, err := c.ToSim()
	assert.Error(t, err)
}

func Test_BodyConfig_ToSim_UnknownShapeErrors(t *testing.T) {
	c := BodyConfig{ShapeKind: "dodecahedron"}
	_, err := c.ToSim()
	assert.Error(t, err)
}

func Test_ControllerConfig_ToSim_CopiesAllFields(t *testing.T) {
	c := ControllerConfig{
		HalfWidth: 0.3, HalfHeight: 0.9, HalfLength: 0.3,
		StepHeight: 0.4, SnapToGroundDist: 0.1,
		MaxSlopeClimbDeg: 45, MinSlopeSlideDeg: 50,
		MoveSpeed: 4, SprintMult: 2, TurnSpeed: 3, Gravity: -9.8,
	}
	got := c.ToSim()
	assert.Equal(t, simtypes.CharacterControllerConfig{
		HalfWidth: 0.3, HalfHeight: 0.9, HalfLength: 0.3,
		StepHeight: 0.4, SnapToGroundDist: 0.1,
		MaxSlopeClimbDeg: 45, MinSlopeSlideDeg: 50,
		MoveSpeed: 4, SprintMult: 2, TurnSpeed: 3, Gravity: -9.8,
	}, got)
}
