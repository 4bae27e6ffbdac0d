// Package sharedbuf implements the Shared Transform Buffer from spec §3/§4.1:
// the lock-free, dual-snapshot transform region that lets the render worker
// interpolate physics state without locks or message passing.
//
// The original design is a byte-addressed shared-memory region split into
// four aligned sub-regions (control, transform, timing, flags). This module
// runs both workers as goroutines in one process (spec SPEC_FULL.md §0), so
// the region is modeled as a struct shared by reference rather than raw
// bytes — but every field that crosses the physics→render boundary is still
// stored behind sync/atomic so the protocol's ordering contract holds
// without a mutex, matching the spec's "lock-free" requirement.
package sharedbuf

import (
	"math"
	"sync/atomic"

	"github.com/avidal-labs/fixedstep/simerr"
	"github.com/avidal-labs/fixedstep/simtypes"
)

// floatsPerSnapshot is the per-slot snapshot width: pos.x, pos.y, pos.z,
// rot.x, rot.y, rot.z, rot.w (spec §3).
const floatsPerSnapshot = 7

// snapshotsPerSlot is "previous" and "current" (spec §3).
const snapshotsPerSlot = 2

// GroundedBit is flag bit 0: set when the character controller reports a
// ground contact this frame (spec §3, §4.1).
const GroundedBit uint32 = 1 << 0

// DefaultIntervalMs is used by readers whenever the timing region reports a
// non-positive interval (spec §4.5 step 2).
const DefaultIntervalMs = 1000.0 / 60.0

// Vec3, Quat, and Transform are re-exported for caller convenience; the
// canonical definitions live in simtypes so every package shares one type.
type (
	Vec3      = simtypes.Vec3
	Quat      = simtypes.Quat
	Transform = simtypes.Transform
)

// Buffer is the shared transform buffer. Capacity is fixed at construction
// and never changes (spec §4.1). The zero value is not usable; use New.
type Buffer struct {
	capacity int

	// control region
	frameCounter    atomic.Uint32
	mapVersion      atomic.Uint32
	registeredCount atomic.Uint32

	// transform region: capacity * snapshotsPerSlot * floatsPerSnapshot,
	// stored as raw bits behind atomics so individual float writes/reads
	// are never a data race, even though cross-field tearing across a
	// single snapshot is explicitly tolerated (spec §4.1).
	transforms []atomic.Uint32

	// timing region
	currentTimeMsBits atomic.Uint64
	intervalMsBits    atomic.Uint64

	// flags region
	flags []atomic.Uint32
}

// New creates a Buffer with the given fixed slot capacity.
//
// Parameters:
//   - capacity: the maximum number of simultaneously registered entities
//
// Returns:
//   - *Buffer: the new, empty buffer
func New(capacity int) *Buffer {
	if capacity <= 0 {
		panic("sharedbuf: capacity must be positive")
	}
	return &Buffer{
		capacity:   capacity,
		transforms: make([]atomic.Uint32, capacity*snapshotsPerSlot*floatsPerSnapshot),
		flags:      make([]atomic.Uint32, capacity),
	}
}

// Capacity returns the buffer's fixed slot capacity.
func (b *Buffer) Capacity() int {
	return b.capacity
}

// Register assigns the next free slot and bumps the registration count and
// map version. Fails with simerr.ErrCapacityExceeded when the buffer is full.
//
// Returns:
//   - int: the assigned slot index
//   - error: simerr.ErrCapacityExceeded if the buffer has no free slots
func (b *Buffer) Register() (int, error) {
	count := int(b.registeredCount.Load())
	if count >= b.capacity {
		return 0, simerr.ErrCapacityExceeded
	}
	slot := count
	b.registeredCount.Add(1)
	b.mapVersion.Add(1)
	b.clearSlot(slot)
	return slot, nil
}

// Unregister decrements the registration count and bumps the map version.
// The caller is responsible for compacting the transform slab beforehand
// via CopySlot when the removed slot was not the last registered slot
// (spec §4.1: "compaction of the transform slab is the caller's
// responsibility").
func (b *Buffer) Unregister() {
	if b.registeredCount.Load() == 0 {
		panic("sharedbuf: unregister with no registered slots")
	}
	b.registeredCount.Add(^uint32(0)) // -1
	b.mapVersion.Add(1)
}

// CopySlot copies the previous/current transform snapshots and the flag
// word from src to dst. Used by callers compacting the transform slab
// during swap-remove (spec §4.1, §4.2).
//
// Parameters:
//   - dst: the destination slot (typically the freed slot)
//   - src: the source slot (typically the last registered slot)
func (b *Buffer) CopySlot(dst, src int) {
	b.checkSlot(dst)
	b.checkSlot(src)
	if dst == src {
		return
	}
	dstBase := dst * snapshotsPerSlot * floatsPerSnapshot
	srcBase := src * snapshotsPerSlot * floatsPerSnapshot
	for i := 0; i < snapshotsPerSlot*floatsPerSnapshot; i++ {
		b.transforms[dstBase+i].Store(b.transforms[srcBase+i].Load())
	}
	b.flags[dst].Store(b.flags[src].Load())
}

// clearSlot zeroes a slot's transform snapshots and flags, used when a slot
// is freshly registered so stale data from a previous occupant never leaks
// (spec §8 round-trip law for instanced re-add applies equally here).
func (b *Buffer) clearSlot(slot int) {
	base := slot * snapshotsPerSlot * floatsPerSnapshot
	for i := 0; i < snapshotsPerSlot*floatsPerSnapshot; i++ {
		b.transforms[base+i].Store(0)
	}
	b.flags[slot].Store(0)
}

// WriteTransform atomically swaps the slot's current snapshot into previous,
// then writes the new current. This ordering is essential: a reader
// sampling between the two steps sees a previous equal to the latest
// published state, a valid interpolation source (spec §4.1).
//
// Parameters:
//   - slot: the slot index to write
//   - pos: the new position
//   - rot: the new rotation (not required to be normalized)
func (b *Buffer) WriteTransform(slot int, pos Vec3, rot Quat) {
	b.checkSlot(slot)
	base := slot * snapshotsPerSlot * floatsPerSnapshot
	prevBase := base
	curBase := base + floatsPerSnapshot

	for i := 0; i < floatsPerSnapshot; i++ {
		b.transforms[prevBase+i].Store(b.transforms[curBase+i].Load())
	}

	values := [floatsPerSnapshot]float32{pos.X, pos.Y, pos.Z, rot.X, rot.Y, rot.Z, rot.W}
	for i, v := range values {
		b.transforms[curBase+i].Store(math.Float32bits(v))
	}
}

// ReadTransform reads the previous and current snapshots for slot.
//
// Parameters:
//   - slot: the slot index to read
//
// Returns:
//   - previous: the previous snapshot
//   - current: the current snapshot
func (b *Buffer) ReadTransform(slot int) (previous, current Transform) {
	b.checkSlot(slot)
	base := slot * snapshotsPerSlot * floatsPerSnapshot
	previous = b.readSnapshot(base)
	current = b.readSnapshot(base + floatsPerSnapshot)
	return previous, current
}

func (b *Buffer) readSnapshot(base int) Transform {
	var v [floatsPerSnapshot]float32
	for i := range v {
		v[i] = math.Float32frombits(b.transforms[base+i].Load())
	}
	return Transform{
		Position: Vec3{X: v[0], Y: v[1], Z: v[2]},
		Rotation: Quat{X: v[3], Y: v[4], Z: v[5], W: v[6]},
	}
}

// PublishFrame writes the timing region, then atomically increments the
// frame counter. The counter increment is the release point of the
// publish protocol: physics stores transforms → flags → timing →
// counter++ (spec §4.1, §5).
//
// Parameters:
//   - nowMs: the current wall-clock time in milliseconds
//   - intervalMs: the fixed step interval in milliseconds
func (b *Buffer) PublishFrame(nowMs, intervalMs float64) {
	b.currentTimeMsBits.Store(math.Float64bits(nowMs))
	b.intervalMsBits.Store(math.Float64bits(intervalMs))
	b.frameCounter.Add(1)
}

// ObserveFrame returns the current frame counter value via an atomic load,
// the acquire point of the publish protocol (spec §4.1, §5). The counter
// monotonically increases; wraparound at 2^32-1 is permitted, so callers
// must compare by inequality (counter != lastSeen), never by ordering.
//
// Returns:
//   - uint32: the current frame counter
func (b *Buffer) ObserveFrame() uint32 {
	return b.frameCounter.Load()
}

// Timing returns the current timing-region values written by the most
// recent PublishFrame.
//
// Returns:
//   - currentTimeMs: the physics-side wall-clock time at last publish
//   - intervalMs: the fixed step interval in milliseconds
func (b *Buffer) Timing() (currentTimeMs, intervalMs float64) {
	currentTimeMs = math.Float64frombits(b.currentTimeMsBits.Load())
	intervalMs = math.Float64frombits(b.intervalMsBits.Load())
	return currentTimeMs, intervalMs
}

// SetFlag sets or clears a bit in a slot's flag word.
//
// Parameters:
//   - slot: the slot index
//   - bit: the bit mask to set or clear (e.g. GroundedBit)
//   - value: true to set the bit, false to clear it
func (b *Buffer) SetFlag(slot int, bit uint32, value bool) {
	b.checkSlot(slot)
	for {
		old := b.flags[slot].Load()
		var next uint32
		if value {
			next = old | bit
		} else {
			next = old &^ bit
		}
		if old == next || b.flags[slot].CompareAndSwap(old, next) {
			return
		}
	}
}

// Flag reports whether bit is set in a slot's flag word.
//
// Parameters:
//   - slot: the slot index
//   - bit: the bit mask to test (e.g. GroundedBit)
//
// Returns:
//   - bool: true if the bit is set
func (b *Buffer) Flag(slot int, bit uint32) bool {
	b.checkSlot(slot)
	return b.flags[slot].Load()&bit != 0
}

// RegisteredCount returns the number of currently registered slots.
func (b *Buffer) RegisteredCount() int {
	return int(b.registeredCount.Load())
}

// MapVersion returns the entity-map version counter, incremented on every
// Register/Unregister call.
func (b *Buffer) MapVersion() uint32 {
	return b.mapVersion.Load()
}

func (b *Buffer) checkSlot(slot int) {
	if slot < 0 || slot >= b.capacity {
		panic("sharedbuf: slot index out of range")
	}
}
