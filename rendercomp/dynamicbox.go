package rendercomp

import (
	"github.com/avidal-labs/fixedstep/simtypes"
)

// TypeTagDynamicBox is the DynamicBox component's registry type tag.
const TypeTagDynamicBox = "dynamic_box"

// DynamicBoxData configures a DynamicBox component at construction time.
type DynamicBoxData struct {
	Node SceneNode

	// OnDispose, if set, is invoked when the box's Dispose is called,
	// giving the caller (typically an instanced.Manager batch) a chance
	// to remove the box's instance before its entity slot is reused.
	OnDispose func(id simtypes.EntityID)
}

// DynamicBox is the render-side component for a freely tumbling,
// individually simulated physics prop (spec §4.6): unlike StaticMesh it
// carries a dispose callback so an instanced batch can drop its slot
// when the entity despawns.
type DynamicBox struct {
	id        simtypes.EntityID
	node      SceneNode
	onDispose func(id simtypes.EntityID)
}

func newDynamicBoxComponent(id simtypes.EntityID, data any) (Component, error) {
	d, _ := data.(DynamicBoxData)
	return &DynamicBox{id: id, node: d.Node, onDispose: d.OnDispose}, nil
}

// ID implements Component.
func (b *DynamicBox) ID() simtypes.EntityID { return b.id }

// TypeTag implements Component.
func (b *DynamicBox) TypeTag() string { return TypeTagDynamicBox }

// Node implements Component.
func (b *DynamicBox) Node() SceneNode { return b.node }

// Dispose implements Component.
func (b *DynamicBox) Dispose() {
	if b.onDispose != nil {
		b.onDispose(b.id)
	}
}

// OnTransformUpdate implements TransformUpdateHandler.
func (b *DynamicBox) OnTransformUpdate(event TransformUpdateEvent) {
	if b.node != nil {
		b.node.SetTransform(event.Position, event.Rotation)
	}
}
