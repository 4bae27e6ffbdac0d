package rendercomp

import (
	"fmt"
	"log"

	"github.com/avidal-labs/fixedstep/simtypes"
)

// Factory builds a Component for one entity from variant-specific data.
// Grounded on engine/engine_builder.go's functional-option constructors,
// generalized from "build one engine" to "build one component of a
// registered type tag".
type Factory func(id simtypes.EntityID, data any) (Component, error)

// Registry maps type tags to the Factory that builds that variant (spec
// §4.6: "a type_tag → factory registry"). The zero value is not usable;
// construct with NewRegistry.
type Registry struct {
	factories map[string]Factory
	fallback  string
}

// NewRegistry creates a Registry pre-populated with the built-in variants
// Player, Ground, StaticMesh, and DynamicBox, falling back to StaticMesh
// for unrecognized type tags (spec §4.6).
//
// Returns:
//   - *Registry: the new registry
func NewRegistry() *Registry {
	r := &Registry{
		factories: make(map[string]Factory),
		fallback:  TypeTagStaticMesh,
	}
	r.Register(TypeTagPlayer, newPlayerComponent)
	r.Register(TypeTagGround, newGroundComponent)
	r.Register(TypeTagStaticMesh, newStaticMeshComponent)
	r.Register(TypeTagDynamicBox, newDynamicBoxComponent)
	return r
}

// Register binds typeTag to factory, overwriting any prior binding.
//
// Parameters:
//   - typeTag: the component variant's type tag
//   - factory: the constructor invoked by Create for that tag
func (r *Registry) Register(typeTag string, factory Factory) {
	r.factories[typeTag] = factory
}

// Create builds a Component for id of the variant named by typeTag. An
// unrecognized typeTag falls back to the StaticMesh variant and logs a
// warning rather than failing the spawn outright (spec §4.6), since a
// render component lagging behind the physics side's type catalog should
// degrade rather than block the entity's transform sync.
//
// Parameters:
//   - id: the entity id the component represents
//   - typeTag: the registered component variant name
//   - data: variant-specific construction data
//
// Returns:
//   - Component: the constructed component
//   - error: non-nil if the fallback factory itself fails
func (r *Registry) Create(id simtypes.EntityID, typeTag string, data any) (Component, error) {
	factory, ok := r.factories[typeTag]
	if !ok {
		log.Printf("rendercomp: unknown type tag %q for entity %d, falling back to %q", typeTag, id, r.fallback)
		factory, ok = r.factories[r.fallback]
		if !ok {
			return nil, fmt.Errorf("rendercomp: no fallback factory registered for %q", r.fallback)
		}
	}
	return factory(id, data)
}
