// Package simconfig implements the YAML scenario configuration named in
// SPEC_FULL.md §2's domain stack: loadable PhysicsBodyConfig and
// CharacterControllerConfig defaults for scenario files such as the
// cmd/fixedstepd example's, via gopkg.in/yaml.v3.
//
// The teacher configures every subsystem through functional-options
// builders, never from a file (engine/engine_builder.go,
// engine/camera/camera_controller_builder.go); this package supplements
// that with a thin YAML-to-Vec3/-Config bridge for
// scenario authoring, since a fixed-timestep scenario (gravity, spawn
// list, player config) benefits from being data rather than code.
package simconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/avidal-labs/fixedstep/simtypes"
)

// Vec3 mirrors simtypes.Vec3 with yaml tags, since simtypes.Vec3 has no
// struct tags of its own and the teacher's types never needed to survive
// a config-file round trip.
type Vec3 struct {
	X float32 `yaml:"x"`
	Y float32 `yaml:"y"`
	Z float32 `yaml:"z"`
}

func (v Vec3) toSim() simtypes.Vec3 {
	return simtypes.Vec3{X: v.X, Y: v.Y, Z: v.Z}
}

// BodyConfig is the YAML shape for a spawned entity's physics body.
type BodyConfig struct {
	Kind string `yaml:"kind"` // "static", "dynamic", "kinematic"

	ShapeKind string `yaml:"shape"` // "cuboid", "ball", "capsule"
	HalfX     float32 `yaml:"half_x,omitempty"`
	HalfY     float32 `yaml:"half_y,omitempty"`
	HalfZ     float32 `yaml:"half_z,omitempty"`
	Radius    float32 `yaml:"radius,omitempty"`
	HalfHeight float32 `yaml:"half_height,omitempty"`
}

// ToSim converts a BodyConfig into simtypes.PhysicsBodyConfig.
//
// Returns:
//   - simtypes.PhysicsBodyConfig: the resolved config
//   - error: non-nil if Kind or ShapeKind names an unrecognized value
func (c BodyConfig) ToSim() (simtypes.PhysicsBodyConfig, error) {
	var kind simtypes.BodyKind
	switch c.Kind {
	case "static", "":
		kind = simtypes.BodyStatic
	case "dynamic":
		kind = simtypes.BodyDynamic
	case "kinematic":
		kind = simtypes.BodyKinematicPositionBased
	default:
		return simtypes.PhysicsBodyConfig{}, fmt.Errorf("simconfig: unknown body kind %q", c.Kind)
	}

	var shape simtypes.ColliderShape
	switch c.ShapeKind {
	case "cuboid", "":
		shape = simtypes.Cuboid(c.HalfX, c.HalfY, c.HalfZ)
	case "ball":
		shape = simtypes.Ball(c.Radius)
	case "capsule":
		shape = simtypes.Capsule(c.HalfHeight, c.Radius)
	default:
		return simtypes.PhysicsBodyConfig{}, fmt.Errorf("simconfig: unknown collider shape %q", c.ShapeKind)
	}

	return simtypes.PhysicsBodyConfig{Kind: kind, Shape: shape}, nil
}

// ControllerConfig is the YAML shape for CharacterControllerConfig.
type ControllerConfig struct {
	HalfWidth  float32 `yaml:"half_width"`
	HalfHeight float32 `yaml:"half_height"`
	HalfLength float32 `yaml:"half_length"`

	StepHeight       float32 `yaml:"step_height"`
	SnapToGroundDist float32 `yaml:"snap_to_ground_dist"`

	MaxSlopeClimbDeg float32 `yaml:"max_slope_climb_deg"`
	MinSlopeSlideDeg float32 `yaml:"min_slope_slide_deg"`

	MoveSpeed  float32 `yaml:"move_speed"`
	SprintMult float32 `yaml:"sprint_mult"`
	TurnSpeed  float32 `yaml:"turn_speed"`
	Gravity    float32 `yaml:"gravity"`
}

// ToSim converts a ControllerConfig into simtypes.CharacterControllerConfig.
func (c ControllerConfig) ToSim() simtypes.CharacterControllerConfig {
	return simtypes.CharacterControllerConfig{
		HalfWidth:        c.HalfWidth,
		HalfHeight:       c.HalfHeight,
		HalfLength:       c.HalfLength,
		StepHeight:       c.StepHeight,
		SnapToGroundDist: c.SnapToGroundDist,
		MaxSlopeClimbDeg: c.MaxSlopeClimbDeg,
		MinSlopeSlideDeg: c.MinSlopeSlideDeg,
		MoveSpeed:        c.MoveSpeed,
		SprintMult:       c.SprintMult,
		TurnSpeed:        c.TurnSpeed,
		Gravity:          c.Gravity,
	}
}

// SpawnConfig is one entry in a Scenario's spawn list.
type SpawnConfig struct {
	ID        uint32  `yaml:"id"`
	Position  Vec3    `yaml:"position"`
	TypeTag   string  `yaml:"type"`
	Body      *BodyConfig `yaml:"body,omitempty"`
}

// Scenario is a full end-to-end test fixture's configuration (spec §8's
// scenario 1-6 test properties): gravity, the fixed-step interval, the
// player's spawn point and controller config, and a list of static
// world entities.
type Scenario struct {
	Name       string        `yaml:"name"`
	Gravity    Vec3          `yaml:"gravity"`
	IntervalMs float64       `yaml:"interval_ms"`

	PlayerSpawn     Vec3             `yaml:"player_spawn"`
	PlayerController ControllerConfig `yaml:"player_controller"`

	Spawns []SpawnConfig `yaml:"spawns"`
}

// Load reads and parses a Scenario from a YAML file at path.
//
// Parameters:
//   - path: the scenario file's path
//
// Returns:
//   - *Scenario: the parsed scenario
//   - error: non-nil if the file can't be read or doesn't parse
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("simconfig: read %q: %w", path, err)
	}
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("simconfig: parse %q: %w", path, err)
	}
	if scenario.IntervalMs <= 0 {
		scenario.IntervalMs = 1000.0 / 60.0
	}
	return &scenario, nil
}

// GravityVec returns the scenario's gravity as a simtypes.Vec3.
func (s *Scenario) GravityVec() simtypes.Vec3 {
	return s.Gravity.toSim()
}

// PlayerSpawnVec returns the scenario's player spawn point as a simtypes.Vec3.
func (s *Scenario) PlayerSpawnVec() simtypes.Vec3 {
	return s.PlayerSpawn.toSim()
}
