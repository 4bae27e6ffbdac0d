// Package solver defines the interfaces for the two external collaborators
// spec §1/§6 explicitly place out of scope: the WebAssembly rigid-body
// solver and the collide-and-slide engine it exposes to the character
// controller. Both are treated as substitutable black boxes; this package
// also ships one reference, non-authoritative implementation (a height-field
// ground body; bodies are not tested for overlap against each other) so the
// rest of the module compiles and its tests can run end-to-end without the
// real engine.
//
// The reference world's shape is grounded on gazed-vu/move's
// Mover.Step(bodies, timestep) signature, rewritten against this module's
// BodyKind/ColliderShape tagged-union types.
package solver

import (
	"github.com/avidal-labs/fixedstep/simtypes"
)

// BodyHandle is an opaque, world-owned reference to a created rigid body.
// The character controller and physics stepper hold only this handle plus
// the entity's stable id — never a pointer into the world's internals
// (spec §9: "single-owner arena... controller holds only the body's stable
// id and a non-owning handle").
type BodyHandle uint32

// RigidBodyWorld is the external rigid-body solver collaborator (spec §6).
// A real binding would marshal these calls across a WebAssembly boundary;
// the reference implementation in this package runs them in-process.
type RigidBodyWorld interface {
	// CreateBody creates a rigid body and collider from config at transform.
	//
	// Returns:
	//   - BodyHandle: a handle to the new body
	//   - error: simerr.ErrSolverInitFailure-wrapped error if creation fails
	CreateBody(transform simtypes.Transform, config simtypes.PhysicsBodyConfig) (BodyHandle, error)

	// RemoveBody releases a previously created body.
	RemoveBody(handle BodyHandle)

	// SetNextKinematicTranslation queues the next position for a kinematic
	// body, applied on the following Step.
	SetNextKinematicTranslation(handle BodyHandle, pos simtypes.Vec3)

	// SetNextKinematicRotation queues the next rotation for a kinematic body,
	// applied on the following Step.
	SetNextKinematicRotation(handle BodyHandle, rot simtypes.Quat)

	// Step advances the world by deltaSeconds.
	Step(deltaSeconds float64)

	// BodyTransform returns a body's current transform after the last Step.
	BodyTransform(handle BodyHandle) simtypes.Transform

	// Gravity returns the world's configured gravity vector.
	Gravity() simtypes.Vec3
}

// CollideAndSlideEngine is the external collision-resolution collaborator
// the character controller submits desired displacements to (spec §4.4).
type CollideAndSlideEngine interface {
	// Resolve takes a desired displacement for the body at handle and
	// returns the corrected displacement that respects surrounding
	// geometry, plus whether the body is grounded after the move.
	//
	// Parameters:
	//   - handle: the kinematic body's handle
	//   - desired: the desired displacement this step
	//   - config: the character controller's shape/slope configuration
	//
	// Returns:
	//   - corrected: the displacement safe to apply this step
	//   - grounded: true if a ground contact was detected within SnapToGroundDist
	Resolve(handle BodyHandle, desired simtypes.Vec3, config simtypes.CharacterControllerConfig) (corrected simtypes.Vec3, grounded bool)
}
