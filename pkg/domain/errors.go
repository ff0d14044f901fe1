package domain

import "errors"

// ErrSessionNotFound is returned when a named session cannot be found in the
// session store.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionExists is returned when a rename would overwrite an existing
// named session. It is a recoverable user error, not a failure.
var ErrSessionExists = errors.New("session already exists")

// ErrFileNotFound is returned by storage backends when the requested path
// does not exist.
var ErrFileNotFound = errors.New("file not found")
