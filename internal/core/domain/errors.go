package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	// Stores return it when a (source, external id) pair is already bound.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrHasDependents indicates a record cannot be deleted while children reference it.
	ErrHasDependents = errors.New("record has dependent highlights")

	// Sync Errors.

	// ErrUnknownSource indicates a source name outside the fixed set.
	ErrUnknownSource = errors.New("unknown source")

	// ErrSourceNotConfigured indicates a known source without credentials or location.
	ErrSourceNotConfigured = errors.New("source not configured")

	// ErrMalformedItem indicates a source record is missing required fields.
	ErrMalformedItem = errors.New("malformed source item")

	// ErrUnterminatedCursor indicates a source returned a cursor it already returned.
	ErrUnterminatedCursor = errors.New("source returned a repeated cursor")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrAuthInvalid indicates the source rejected the configured credentials.
	ErrAuthInvalid = errors.New("authentication invalid")

	// Merge Errors.

	// ErrNoPrimary indicates primary selection produced no candidate for a duplicate group.
	ErrNoPrimary = errors.New("no merge primary")
)
