package rendercomp

import (
	"github.com/avidal-labs/fixedstep/simtypes"
)

// TypeTagStaticMesh is the StaticMesh component's registry type tag, and
// the Registry's fallback for unrecognized type tags (spec §4.6).
const TypeTagStaticMesh = "static_mesh"

// StaticMeshData configures a StaticMesh component at construction time.
type StaticMeshData struct {
	Node SceneNode
}

// StaticMesh is the render-side component for world scenery that follows
// its physics body's transform but has no animation or input handling
// (spec §4.6): props, crates, decorative geometry.
type StaticMesh struct {
	id   simtypes.EntityID
	node SceneNode
}

func newStaticMeshComponent(id simtypes.EntityID, data any) (Component, error) {
	d, _ := data.(StaticMeshData)
	return &StaticMesh{id: id, node: d.Node}, nil
}

// ID implements Component.
func (m *StaticMesh) ID() simtypes.EntityID { return m.id }

// TypeTag implements Component.
func (m *StaticMesh) TypeTag() string { return TypeTagStaticMesh }

// Node implements Component.
func (m *StaticMesh) Node() SceneNode { return m.node }

// Dispose implements Component.
func (m *StaticMesh) Dispose() {}

// OnTransformUpdate implements TransformUpdateHandler.
func (m *StaticMesh) OnTransformUpdate(event TransformUpdateEvent) {
	if m.node != nil {
		m.node.SetTransform(event.Position, event.Rotation)
	}
}
