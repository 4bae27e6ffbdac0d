package simerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_InvalidEntityID(t *testing.T) {
	assert.True(t, InvalidEntityID(0))
	assert.True(t, InvalidEntityID(-1))
	assert.False(t, InvalidEntityID(1))
	assert.False(t, InvalidEntityID(2147483647))
}

func Test_Sentinels_WrapAndUnwrap(t *testing.T) {
	sentinels := []error{
		ErrNotInitialized,
		ErrInvalidArgument,
		ErrCapacityExceeded,
		ErrResourceLoadFailure,
		ErrResourceLoadTimeout,
		ErrSolverInitFailure,
	}
	for _, sentinel := range sentinels {
		wrapped := fmt.Errorf("caller context: %w", sentinel)
		assert.True(t, errors.Is(wrapped, sentinel))
	}
}

func Test_Sentinels_AreDistinct(t *testing.T) {
	assert.False(t, errors.Is(ErrInvalidArgument, ErrNotInitialized))
	assert.False(t, errors.Is(ErrResourceLoadFailure, ErrResourceLoadTimeout))
}
