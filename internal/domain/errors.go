package domain

import "errors"

var (
	// ErrNotFound indicates there is no live snippet for an id, either
	// because it never existed or because it expired.
	ErrNotFound = errors.New("snippet not found or expired")

	// ErrInvalidID indicates an id outside of [A-Za-z0-9-]+.
	ErrInvalidID = errors.New("invalid snippet id")

	// ErrMalformedInput indicates a write request with a missing content
	// field or an expiry that is not a valid number of minutes.
	ErrMalformedInput = errors.New("malformed input")
)
