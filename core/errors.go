package core

import "errors"

// Error kinds the action layer attaches to failures so callers can branch
// with errors.Is instead of matching message strings.
var (
	// ErrNotFound means the backend has no room with the given ID.
	ErrNotFound = errors.New("room not found")

	// ErrAccessDenied means the requesting user is not in the room's access
	// map.
	ErrAccessDenied = errors.New("access denied")

	// ErrSelfRemoval means the room's creator tried to remove their own
	// access entry.
	ErrSelfRemoval = errors.New("cannot remove yourself from the document")

	// ErrBackend covers remote-call failures that are none of the above.
	ErrBackend = errors.New("collaboration backend error")
)
