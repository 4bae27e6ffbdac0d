package rpcdispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avidal-labs/fixedstep/simerr"
)

func Test_Boundary_Call_RejectsNonPositiveEntityID(t *testing.T) {
	b := New(1, 4, time.Second)
	_, err := b.Call(context.Background(), -1, "", func() (any, error) { return nil, nil })
	assert.ErrorIs(t, err, simerr.ErrInvalidArgument)
}

func Test_Boundary_Call_SkipsTypeTagValidationWhenEmpty(t *testing.T) {
	b := New(1, 4, time.Second)
	// typeTag == "" skips validation per Call's contract (no type-tag parameter for this call).
	_, err := b.Call(context.Background(), 0, "", func() (any, error) { return 42, nil })
	require.NoError(t, err)
}

func Test_Boundary_Call_DispatchesAndReturnsValue(t *testing.T) {
	b := New(2, 8, time.Second)
	value, err := b.Call(context.Background(), 1, "player", func() (any, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", value)
}

func Test_Boundary_Call_PropagatesFnError(t *testing.T) {
	b := New(1, 4, time.Second)
	wantErr := assert.AnError
	_, err := b.Call(context.Background(), 0, "", func() (any, error) { return nil, wantErr })
	assert.ErrorIs(t, err, wantErr)
}

func Test_Boundary_Call_RespectsContextDeadline(t *testing.T) {
	b := New(1, 1, time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()

	release := make(chan struct{})
	_, err := b.Call(ctx, 0, "", func() (any, error) {
		<-release
		return nil, nil
	})
	close(release)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func Test_Boundary_CallAsync_RejectsInvalidEntityIDWithoutDispatch(t *testing.T) {
	b := New(1, 4, time.Second)
	ch, err := b.CallAsync(-5, "", func() (any, error) { return nil, nil })
	assert.Nil(t, ch)
	assert.ErrorIs(t, err, simerr.ErrInvalidArgument)
}

func Test_Boundary_CallAsync_ReturnsChannelWithResult(t *testing.T) {
	b := New(1, 4, time.Second)
	ch, err := b.CallAsync(1, "box", func() (any, error) { return 7, nil })
	require.NoError(t, err)

	select {
	case r := <-ch:
		require.NoError(t, r.Err)
		assert.Equal(t, 7, r.Value)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for async result")
	}
}
