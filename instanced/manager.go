// Package instanced implements the Instanced-Mesh Manager from spec §4.7:
// a dense, single-draw-call batch of per-instance transform+scale data
// with swap-remove slot reuse and sparse dirty tracking for GPU buffer
// uploads.
//
// Grounded on engine/renderer/animator/simple_animator_backend.go's
// AddInstance/RemoveInstance/enqueueDirty/Flush mechanics, generalized
// from "one animated skinned-mesh batch with bone/clip state" down to
// the spec's narrower "position, rotation, and per-instance scale" batch
// used by the render worker's box and sphere batches.
package instanced

import (
	"fmt"
	"log"
	"sort"

	"github.com/avidal-labs/fixedstep/simerr"
	"github.com/avidal-labs/fixedstep/simtypes"
)

// DefaultCapacity is the slot count a Manager is given when New is called
// without WithCapacity, matching the 1000-instance batch in spec §8.
const DefaultCapacity = 1000

// Instance is one batch slot's CPU-side transform data.
type Instance struct {
	Position simtypes.Vec3
	Rotation simtypes.Quat
	Scale    simtypes.Vec3
}

// BufferWrite describes one instance slot's data ready for upload,
// mirroring the teacher's bind_group_provider.BufferWrite staging unit.
type BufferWrite struct {
	Index int
	Data  Instance
}

// Manager owns one instanced-draw batch: a dense CPU-side array of
// Instance data, a swap-remove free-slot strategy, and sparse dirty
// tracking so Flush only stages the instances that actually changed
// since the last call (spec §4.7).
type Manager struct {
	instances []Instance
	// slotOf maps an entity id to its dense slot index.
	slotOf map[simtypes.EntityID]int
	// idOf maps a dense slot index back to its owning entity id, so a
	// swap-remove can report which entity moved.
	idOf []simtypes.EntityID

	dirty       map[int]struct{}
	staged      []BufferWrite
	drawCount   uint32

	capacity int
}

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithCapacity overrides the batch's maximum slot count.
func WithCapacity(capacity int) Option {
	return func(m *Manager) {
		m.capacity = capacity
	}
}

// New creates an empty Manager, capped at DefaultCapacity slots unless
// overridden with WithCapacity.
//
// Returns:
//   - *Manager: the new instance batch
func New(options ...Option) *Manager {
	m := &Manager{
		slotOf:   make(map[simtypes.EntityID]int),
		dirty:    make(map[int]struct{}),
		capacity: DefaultCapacity,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Count returns the number of active instances in the batch.
func (m *Manager) Count() int {
	return len(m.instances)
}

// Add appends a new instance for id, returning its dense slot index.
// Adding an id already present is an error: callers must Remove before
// re-Add, matching the spec's one-slot-per-entity invariant.
//
// Parameters:
//   - id: the owning entity id
//   - data: the instance's initial transform and scale
//
// Returns:
//   - int: the dense slot index assigned to id
//   - error: non-nil if id is already present, or the batch is at capacity
func (m *Manager) Add(id simtypes.EntityID, data Instance) (int, error) {
	if _, exists := m.slotOf[id]; exists {
		return 0, fmt.Errorf("instanced: entity %d already has an instance slot", id)
	}
	if len(m.instances) >= m.capacity {
		log.Printf("instanced: batch at capacity %d, rejecting entity %d", m.capacity, id)
		return 0, fmt.Errorf("instanced: %w", simerr.ErrCapacityExceeded)
	}
	slot := len(m.instances)
	m.instances = append(m.instances, data)
	m.idOf = append(m.idOf, id)
	m.slotOf[id] = slot
	m.markDirty(slot)
	m.drawCount = uint32(len(m.instances))
	return slot, nil
}

// Remove drops id's instance from the batch, swap-moving the last slot
// into the removed one to keep the array dense (spec §4.7). It returns
// the entity id that occupied the last slot, if a swap happened, so the
// caller can update that entity's cached slot index.
//
// Parameters:
//   - id: the entity id to remove
//
// Returns:
//   - movedID: the id swapped into the removed slot
//   - swapped: true if movedID is valid and must be remapped by the caller
func (m *Manager) Remove(id simtypes.EntityID) (movedID simtypes.EntityID, swapped bool) {
	slot, exists := m.slotOf[id]
	if !exists {
		return 0, false
	}
	last := len(m.instances) - 1
	swapped = slot != last

	if swapped {
		lastID := m.idOf[last]
		m.instances[slot] = m.instances[last]
		m.idOf[slot] = lastID
		m.slotOf[lastID] = slot
		m.markDirty(slot)
		movedID = lastID
	}

	m.instances = m.instances[:last]
	m.idOf = m.idOf[:last]
	delete(m.slotOf, id)
	delete(m.dirty, last)
	m.drawCount = uint32(len(m.instances))
	return movedID, swapped
}

// SetTransform updates id's position and rotation, leaving scale
// unchanged, and marks the slot dirty.
//
// Parameters:
//   - id: the entity id whose instance to update
//   - pos: the new position
//   - rot: the new rotation
//
// Returns:
//   - error: non-nil if id has no slot
func (m *Manager) SetTransform(id simtypes.EntityID, pos simtypes.Vec3, rot simtypes.Quat) error {
	slot, exists := m.slotOf[id]
	if !exists {
		return fmt.Errorf("instanced: entity %d has no instance slot", id)
	}
	m.instances[slot].Position = pos
	m.instances[slot].Rotation = rot
	m.markDirty(slot)
	return nil
}

// SetScale updates id's per-instance scale and marks the slot dirty.
//
// Parameters:
//   - id: the entity id whose instance to update
//   - scale: the new per-axis scale
//
// Returns:
//   - error: non-nil if id has no slot
func (m *Manager) SetScale(id simtypes.EntityID, scale simtypes.Vec3) error {
	slot, exists := m.slotOf[id]
	if !exists {
		return fmt.Errorf("instanced: entity %d has no instance slot", id)
	}
	m.instances[slot].Scale = scale
	m.markDirty(slot)
	return nil
}

func (m *Manager) markDirty(slot int) {
	m.dirty[slot] = struct{}{}
}

// Flush drains the dirty set into a slice of BufferWrite ready for GPU
// upload, in ascending slot order, and clears the dirty set (spec §4.7:
// "dirty-tracking for GPU buffer uploads"). The caller is responsible
// for actually writing the returned data to a GPU buffer (e.g. via
// wgpu.Queue.WriteBuffer).
//
// Returns:
//   - []BufferWrite: the staged writes, empty if nothing changed
//   - drawCount: the current number of live instances, for the draw call
func (m *Manager) Flush() (writes []BufferWrite, drawCount uint32) {
	if len(m.dirty) == 0 {
		return nil, m.drawCount
	}

	m.staged = m.staged[:0]
	for slot := range m.dirty {
		if slot < len(m.instances) {
			m.staged = append(m.staged, BufferWrite{Index: slot, Data: m.instances[slot]})
		}
	}
	for slot := range m.dirty {
		delete(m.dirty, slot)
	}
	sort.Slice(m.staged, func(i, j int) bool { return m.staged[i].Index < m.staged[j].Index })
	return m.staged, m.drawCount
}
