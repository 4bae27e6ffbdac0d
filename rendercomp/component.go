// Package rendercomp implements the Render Components and Factory from
// spec §4.6: a polymorphic capability-set value per entity, with variants
// Player, Ground, StaticMesh, and DynamicBox, created through a
// type-tag-keyed factory registry.
//
// Grounded on engine/game_object/game_object.go's GameObject interface
// (which exposes an optional Animator and derives its transform from it),
// generalized from a single fixed interface to the spec's explicit
// optional-hook capability set (SPEC_FULL.md §0): a Component implements
// only the hooks it needs, discovered by the caller via type assertion —
// the idiomatic Go analogue of the teacher's duck-typed debug-UI binding
// (spec §9 REDESIGN FLAGS) and of stdlib patterns like io.Closer/http.Flusher.
package rendercomp

import (
	"github.com/avidal-labs/fixedstep/simtypes"
)

// SceneNode is the external 3D-graphics-library collaborator a Component
// drives each frame (spec §1: scene-graph machinery is out of scope). A
// real binding wraps a scene-graph transform node; nil is a valid "no
// visual representation" node (used by Ground).
type SceneNode interface {
	// SetTransform applies the interpolated world transform to the node.
	SetTransform(pos simtypes.Vec3, rot simtypes.Quat)
}

// AnimationMixer is the external animation-blending collaborator (spec
// §4.6 "animation_mixer"), also out of scope per §1.
type AnimationMixer interface {
	// CrossFadeTo blends from the current clip to name over duration seconds.
	CrossFadeTo(name string, duration float32)
}

// Component is the capability set every render component exposes (spec §4.6).
type Component interface {
	// ID returns the entity id this component represents.
	ID() simtypes.EntityID

	// TypeTag returns the component's type tag, as registered in a Registry.
	TypeTag() string

	// Node returns the component's root transformable scene-graph object,
	// or nil if the component has no visual representation (e.g. Ground).
	Node() SceneNode

	// Dispose releases the component's resources.
	Dispose()
}

// TransformUpdateEvent carries the transformsync.Frame data a component
// needs after its interpolated transform has been applied to Node().
type TransformUpdateEvent struct {
	Position simtypes.Vec3
	Rotation simtypes.Quat
}

// TransformUpdateHandler is the optional "on_transform_update" hook (spec §4.6).
type TransformUpdateHandler interface {
	OnTransformUpdate(event TransformUpdateEvent)
}

// PhysicsFrameEvent carries the input snapshot and grounded flag a
// physics-frame hook needs; the spec's Player variant needs both ("reads
// the grounded flag and input"), so this module bundles them into one
// event rather than the bare input_snapshot spec §4.6 names for the
// generic hook signature.
type PhysicsFrameEvent struct {
	Input    simtypes.MovementInput
	Grounded bool
}

// PhysicsFrameHandler is the optional "on_physics_frame" hook (spec §4.6),
// invoked exactly once per newly observed physics frame.
type PhysicsFrameHandler interface {
	OnPhysicsFrame(event PhysicsFrameEvent)
}

// RenderFrameHandler is the optional "on_render_frame" hook (spec §4.6),
// invoked every render frame regardless of whether a new physics frame
// was observed.
type RenderFrameHandler interface {
	OnRenderFrame(deltaMs, elapsedMs float32)
}
