package instanced

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avidal-labs/fixedstep/simerr"
	"github.com/avidal-labs/fixedstep/simtypes"
)

func Test_Manager_AddAssignsDenseSlots(t *testing.T) {
	m := New()

	slot0, err := m.Add(10, Instance{Position: simtypes.Vec3{X: 1}})
	require.NoError(t, err)
	slot1, err := m.Add(20, Instance{Position: simtypes.Vec3{X: 2}})
	require.NoError(t, err)

	assert.Equal(t, 0, slot0)
	assert.Equal(t, 1, slot1)
	assert.Equal(t, 2, m.Count())
}

func Test_Manager_AddDuplicateErrors(t *testing.T) {
	m := New()
	m.Add(10, Instance{})

	_, err := m.Add(10, Instance{})
	assert.Error(t, err)
}

func Test_Manager_Remove_LastSlotNoSwap(t *testing.T) {
	m := New()
	m.Add(10, Instance{})
	m.Add(20, Instance{})

	movedID, swapped := m.Remove(20)
	assert.False(t, swapped)
	assert.Equal(t, simtypes.EntityID(0), movedID)
	assert.Equal(t, 1, m.Count())
}

func Test_Manager_Remove_MiddleSlotSwapsLastIn(t *testing.T) {
	m := New()
	m.Add(10, Instance{Position: simtypes.Vec3{X: 1}})
	m.Add(20, Instance{Position: simtypes.Vec3{X: 2}})
	m.Add(30, Instance{Position: simtypes.Vec3{X: 3}})

	movedID, swapped := m.Remove(10)
	assert.True(t, swapped)
	assert.Equal(t, simtypes.EntityID(30), movedID)
	assert.Equal(t, 2, m.Count())
}

func Test_Manager_Remove_UnknownReturnsFalse(t *testing.T) {
	m := New()
	movedID, swapped := m.Remove(999)
	assert.False(t, swapped)
	assert.Equal(t, simtypes.EntityID(0), movedID)
}

func Test_Manager_SetTransform_UpdatesPositionAndRotation(t *testing.T) {
	m := New()
	m.Add(10, Instance{Scale: simtypes.Vec3{X: 1, Y: 1, Z: 1}})

	err := m.SetTransform(10, simtypes.Vec3{X: 5}, simtypes.Quat{W: 1})
	require.NoError(t, err)

	writes, _ := m.Flush()
	require.Len(t, writes, 1)
	assert.Equal(t, simtypes.Vec3{X: 5}, writes[0].Data.Position)
	assert.Equal(t, simtypes.Vec3{X: 1, Y: 1, Z: 1}, writes[0].Data.Scale, "SetTransform must not disturb scale")
}

func Test_Manager_SetTransform_UnknownEntityErrors(t *testing.T) {
	m := New()
	err := m.SetTransform(999, simtypes.Vec3{}, simtypes.Quat{})
	assert.Error(t, err)
}

func Test_Manager_SetScale_UnknownEntityErrors(t *testing.T) {
	m := New()
	err := m.SetScale(999, simtypes.Vec3{})
	assert.Error(t, err)
}

func Test_Manager_Flush_OnlyReturnsDirtySlotsAndClearsDirtySet(t *testing.T) {
	m := New()
	m.Add(10, Instance{})
	m.Add(20, Instance{})

	writes, drawCount := m.Flush()
	assert.Len(t, writes, 2, "both newly added slots should be dirty")
	assert.Equal(t, uint32(2), drawCount)

	writes, _ = m.Flush()
	assert.Empty(t, writes, "flush should clear the dirty set")
}

func Test_Manager_Flush_EmptyBatchReturnsNoWrites(t *testing.T) {
	m := New()
	writes, drawCount := m.Flush()
	assert.Empty(t, writes)
	assert.Equal(t, uint32(0), drawCount)
}

func Test_Manager_Add_RejectsBeyondCapacity(t *testing.T) {
	m := New(WithCapacity(2))

	_, err := m.Add(10, Instance{})
	require.NoError(t, err)
	_, err = m.Add(20, Instance{})
	require.NoError(t, err)

	_, err = m.Add(30, Instance{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, simerr.ErrCapacityExceeded))
	assert.Equal(t, 2, m.Count())

	movedID, swapped := m.Remove(10)
	assert.True(t, swapped)
	assert.Equal(t, simtypes.EntityID(20), movedID)

	slot, err := m.Add(30, Instance{})
	require.NoError(t, err)
	assert.Equal(t, 1, slot)
	assert.Equal(t, 2, m.Count())
}
