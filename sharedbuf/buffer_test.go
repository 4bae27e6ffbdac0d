package sharedbuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avidal-labs/fixedstep/simerr"
)

func Test_New_PanicsOnNonPositiveCapacity(t *testing.T) {
	assert.Panics(t, func() { New(0) })
	assert.Panics(t, func() { New(-1) })
}

func Test_Register_AssignsSequentialSlotsUntilCapacity(t *testing.T) {
	b := New(2)

	slot0, err := b.Register()
	require.NoError(t, err)
	assert.Equal(t, 0, slot0)

	slot1, err := b.Register()
	require.NoError(t, err)
	assert.Equal(t, 1, slot1)

	_, err = b.Register()
	assert.ErrorIs(t, err, simerr.ErrCapacityExceeded)
}

func Test_Unregister_PanicsWhenEmpty(t *testing.T) {
	b := New(1)
	assert.Panics(t, func() { b.Unregister() })
}

func Test_Unregister_DecrementsCount(t *testing.T) {
	b := New(2)
	b.Register()
	b.Register()

	b.Unregister()
	assert.Equal(t, 1, b.RegisteredCount())
}

func Test_WriteTransform_ThenReadReturnsCurrentAndAdvancesPrevious(t *testing.T) {
	b := New(1)
	slot, err := b.Register()
	require.NoError(t, err)

	first := Transform{Position: Vec3{X: 1, Y: 2, Z: 3}, Rotation: Quat{W: 1}}
	b.WriteTransform(slot, first.Position, first.Rotation)

	previous, current := b.ReadTransform(slot)
	assert.Equal(t, Vec3{}, previous.Position, "previous should start zeroed from clearSlot")
	assert.Equal(t, first.Position, current.Position)

	second := Transform{Position: Vec3{X: 4, Y: 5, Z: 6}, Rotation: Quat{W: 1}}
	b.WriteTransform(slot, second.Position, second.Rotation)

	previous, current = b.ReadTransform(slot)
	assert.Equal(t, first.Position, previous.Position, "previous snapshot should now hold the prior current")
	assert.Equal(t, second.Position, current.Position)
}

func Test_CopySlot_DuplicatesTransformsAndFlags(t *testing.T) {
	b := New(2)
	src, _ := b.Register()
	dst, _ := b.Register()

	b.WriteTransform(src, Vec3{X: 9, Y: 8, Z: 7}, Quat{W: 1})
	b.SetFlag(src, GroundedBit, true)

	b.CopySlot(dst, src)

	_, current := b.ReadTransform(dst)
	assert.Equal(t, Vec3{X: 9, Y: 8, Z: 7}, current.Position)
	assert.True(t, b.Flag(dst, GroundedBit))
}

func Test_CopySlot_SameSlotIsNoop(t *testing.T) {
	b := New(1)
	slot, _ := b.Register()
	b.WriteTransform(slot, Vec3{X: 1, Y: 1, Z: 1}, Quat{W: 1})

	assert.NotPanics(t, func() { b.CopySlot(slot, slot) })
}

func Test_PublishFrame_IncrementsCounterAndStoresTiming(t *testing.T) {
	b := New(1)
	assert.Equal(t, uint32(0), b.ObserveFrame())

	b.PublishFrame(1234.5, 16.6)

	assert.Equal(t, uint32(1), b.ObserveFrame())
	currentTimeMs, intervalMs := b.Timing()
	assert.Equal(t, 1234.5, currentTimeMs)
	assert.Equal(t, 16.6, intervalMs)

	b.PublishFrame(2000, 16.6)
	assert.Equal(t, uint32(2), b.ObserveFrame())
}

func Test_SetFlag_SetsAndClearsIndependently(t *testing.T) {
	b := New(1)
	slot, _ := b.Register()

	assert.False(t, b.Flag(slot, GroundedBit))

	b.SetFlag(slot, GroundedBit, true)
	assert.True(t, b.Flag(slot, GroundedBit))

	b.SetFlag(slot, GroundedBit, false)
	assert.False(t, b.Flag(slot, GroundedBit))
}

func Test_CheckSlot_PanicsOutOfRange(t *testing.T) {
	b := New(1)
	assert.Panics(t, func() { b.ReadTransform(1) })
	assert.Panics(t, func() { b.ReadTransform(-1) })
}

func Test_MapVersion_IncrementsOnRegisterAndUnregister(t *testing.T) {
	b := New(2)
	before := b.MapVersion()

	b.Register()
	afterRegister := b.MapVersion()
	assert.Greater(t, afterRegister, before)

	b.Unregister()
	afterUnregister := b.MapVersion()
	assert.Greater(t, afterUnregister, afterRegister)
}
