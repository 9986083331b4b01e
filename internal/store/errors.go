package store

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateUser is returned when a username is already taken.
var ErrDuplicateUser = errors.New("username already exists")

// ErrInvalidID is returned when an identifier is not a valid ObjectID hex.
var ErrInvalidID = errors.New("invalid id format")
