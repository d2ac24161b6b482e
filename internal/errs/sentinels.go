// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoConnection indicates a household has no bank connection yet.
	ErrNoConnection = errors.New("no bank connection found for this household, run setup first")

	// ErrNoDefaultCategory indicates no usable default subcategory exists for a direction.
	ErrNoDefaultCategory = errors.New("no default subcategory")

	// ErrUnauthorized indicates a failed trigger-token check.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAlreadyExists indicates a unique constraint violation.
	ErrAlreadyExists = errors.New("already exists")
)
