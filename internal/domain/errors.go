package domain

import "errors"

var (
	// ErrInvalidSettings marks a protocol definition that cannot be stored.
	ErrInvalidSettings = errors.New("invalid protocol settings")
	// ErrInvalidPeriod is returned for a routine period other than am or pm.
	ErrInvalidPeriod = errors.New("invalid routine period")
	// ErrInvalidSkinCondition is returned for a condition outside the known set.
	ErrInvalidSkinCondition = errors.New("invalid skin condition")
	// ErrIncompleteSteps is returned when a period is marked done before every step is checked.
	ErrIncompleteSteps = errors.New("not every step is checked")
	// ErrInvalidOrdinal is returned for a cycle position outside the effective cycle.
	ErrInvalidOrdinal = errors.New("cycle ordinal out of range")
)
