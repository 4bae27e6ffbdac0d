package rendercomp

import (
	"github.com/avidal-labs/fixedstep/simtypes"
)

// TypeTagGround is the Ground component's registry type tag.
const TypeTagGround = "ground"

// Ground is the render-side component for the static ground collider
// (spec §4.6): it has no visual representation of its own and ignores
// every per-frame hook, since the ground plane is typically baked into
// the level's static scenery rather than driven by the shared buffer.
type Ground struct {
	id simtypes.EntityID
}

func newGroundComponent(id simtypes.EntityID, _ any) (Component, error) {
	return &Ground{id: id}, nil
}

// ID implements Component.
func (g *Ground) ID() simtypes.EntityID { return g.id }

// TypeTag implements Component.
func (g *Ground) TypeTag() string { return TypeTagGround }

// Node implements Component. Ground has no visual node.
func (g *Ground) Node() SceneNode { return nil }

// Dispose implements Component.
func (g *Ground) Dispose() {}
