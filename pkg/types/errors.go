package types

import "errors"

// Persistence errors.
var (
	// ErrConfiguration reports entity metadata that cannot be derived: a
	// missing key or table, an unknown column type, or a statement name
	// with no definition.
	ErrConfiguration = errors.New("dbo configuration error")

	// ErrInvalidArgument reports malformed input to a public operation.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidState reports an operation on an entity in the wrong
	// lifecycle state.
	ErrInvalidState = errors.New("invalid entity state")

	// ErrNotFound reports that no row matched a load.
	ErrNotFound = errors.New("entity not found")

	// ErrInvariantViolation reports identity map corruption: two different
	// instances claiming one cache key. It is a programming error.
	ErrInvariantViolation = errors.New("identity map invariant violated")
)
