package physics

import (
	"time"

	"github.com/avidal-labs/fixedstep/simtypes"
	"github.com/avidal-labs/fixedstep/solver"
)

// WorldFactory constructs a fresh RigidBodyWorld/CollideAndSlideEngine pair
// for a given gravity vector. Stepper.Init calls it on every (re-)init so
// idempotent re-init disposes the previous solver state (spec §4.3).
type WorldFactory func(gravity simtypes.Vec3) (solver.RigidBodyWorld, solver.CollideAndSlideEngine, error)

// StepperOption configures a Stepper at construction, following the same
// functional-options shape as the teacher's EngineBuilderOption
// (engine/engine_builder.go).
type StepperOption func(*Stepper)

// WithWorldFactory sets the factory used to construct the rigid-body world
// on Init. Defaults to a factory producing solver.NewReferenceWorld.
//
// Parameters:
//   - factory: the world-construction function
func WithWorldFactory(factory WorldFactory) StepperOption {
	return func(s *Stepper) {
		s.worldFactory = factory
	}
}

// WithIntervalMs sets the fixed step interval in milliseconds. Defaults to
// 16.667ms (≈60Hz), per spec §4.3.
//
// Parameters:
//   - intervalMs: the fixed step interval
func WithIntervalMs(intervalMs float64) StepperOption {
	return func(s *Stepper) {
		if intervalMs > 0 {
			s.intervalMs = intervalMs
		}
	}
}

// defaultIntervalMs is 1000/60, the spec §4.3 default cadence.
const defaultIntervalMs = 1000.0 / 60.0

func defaultWorldFactory(gravity simtypes.Vec3) (solver.RigidBodyWorld, solver.CollideAndSlideEngine, error) {
	world := solver.NewReferenceWorld(gravity)
	return world, world, nil
}

// defaultNow is the Stepper's wall-clock source, overridable only in tests.
var defaultNow = time.Now
