// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrUnauthorized is returned when an operation is not permitted.
	ErrUnauthorized = errors.New("unauthorized operation")
)

// Progression errors. Callers match them with errors.Is; services and stores
// wrap them with context.
var (
	// ErrProviderUnavailable is returned by external lookups that failed or
	// timed out. It is never fatal: callers degrade to a fallback value.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrIneligibleTransition is returned when an evolution or fusion is
	// attempted without meeting its preconditions. The entry is left unchanged.
	ErrIneligibleTransition = errors.New("ineligible transition")

	// ErrNoFusionCandidates is returned when fusion is attempted without any
	// other stage-3 entry of the same family.
	ErrNoFusionCandidates = errors.New("no fusion candidates")

	// ErrStoreWriteFailure is returned when the persistence layer rejected a
	// write. Nothing was committed.
	ErrStoreWriteFailure = errors.New("store write failure")

	// ErrMatchNotFound is returned when no opponent could be found.
	ErrMatchNotFound = errors.New("match not found")

	// ErrInvalidTeam is returned when a battle team is too large, contains
	// god-tier entries, or references entries the user does not own.
	ErrInvalidTeam = errors.New("invalid team")
)
