// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrValidation indicates the request is malformed and must be fixed by the caller.
var ErrValidation = errors.New("validation")

// ErrConflict indicates the entity was modified concurrently by another request.
var ErrConflict = errors.New("conflict")

// ErrTerminal indicates a state transition was attempted on an entity that
// has already reached a terminal state.
var ErrTerminal = errors.New("entity is in a terminal state")
