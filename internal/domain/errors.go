package domain

import "errors"

// Sentinel errors for the whole service, checked with errors.Is. For plain
// node access a missing grant is reported as ErrNotFound so that callers
// cannot probe the tree for nodes they are not allowed to see; ErrForbidden
// is reserved for operations where existence is already known to the caller
// (write on a readable node, share management).
var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("not found")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrConflict         = errors.New("conflict")
)
