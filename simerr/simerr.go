// Package simerr defines the error taxonomy shared by the physics and render
// workers (spec §7). Validation and recoverable-resource errors are plain
// wrapped errors checked with errors.Is; invariants that cannot occur by
// construction (ordering-protocol violations) are not represented here at
// all — they panic at the point of violation instead, matching the
// teacher's own panic-on-programmer-error convention.
package simerr

import "errors"

// Sentinel error kinds. Wrap with fmt.Errorf("%w: ...", Kind) at the call
// site to attach context; compare with errors.Is(err, simerr.Kind).
var (
	// ErrNotInitialized is returned when a call arrives before init().
	ErrNotInitialized = errors.New("simerr: not initialized")

	// ErrInvalidArgument is returned for an entity id <= 0 or an empty type string.
	ErrInvalidArgument = errors.New("simerr: invalid argument")

	// ErrCapacityExceeded is returned when an instanced batch is at max capacity.
	ErrCapacityExceeded = errors.New("simerr: capacity exceeded")

	// ErrResourceLoadFailure is returned when an individual asset failed to load.
	ErrResourceLoadFailure = errors.New("simerr: resource load failure")

	// ErrResourceLoadTimeout is returned when overall asset loading exceeded its timeout.
	ErrResourceLoadTimeout = errors.New("simerr: resource load timeout")

	// ErrSolverInitFailure is returned when the underlying physics engine fails to initialize.
	ErrSolverInitFailure = errors.New("simerr: solver init failure")
)

// InvalidEntityID reports whether id violates the "positive 32-bit integer"
// EntityId invariant from §3 (0 is reserved for "none", negative is invalid).
//
// Parameters:
//   - id: the candidate entity id
//
// Returns:
//   - bool: true if id is <= 0 and therefore invalid
func InvalidEntityID(id int32) bool {
	return id <= 0
}
