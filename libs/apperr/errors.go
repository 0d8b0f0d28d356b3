// Package apperr holds the sentinel errors shared by services.
package apperr

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates the write collided with existing data.
var ErrConflict = errors.New("conflict")

// ErrValidation indicates the caller supplied incomplete or malformed input.
var ErrValidation = errors.New("validation failed")
