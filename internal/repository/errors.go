// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrForbidden indicates that the current user is not
// authorized to perform an operation, while ErrBoxUnavailable signals
// that a conditional open lost the race because the box door is
// already open.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation
// they are not authorized for, such as unlocking a box they have no
// access to. Handlers should translate this into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an operation cannot proceed because of
// conflicting state, such as cancelling an order that has already
// finished. Handlers should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrBoxUnavailable is returned when the conditional availability
// update matched no row, i.e. the box is already open. This is the
// expected outcome for every loser of a concurrent unlock race and
// maps to HTTP 409.
var ErrBoxUnavailable = errors.New("box not available")

// ErrUsernameExists and ErrEmailExists report unique-key violations
// during registration.
var (
    ErrUsernameExists = errors.New("username already exists")
    ErrEmailExists    = errors.New("email already exists")
)

// ErrAlreadyAuthorized is returned when granting box access to a user
// who is already in the box's access list.
var ErrAlreadyAuthorized = errors.New("user already authorized for this box")
