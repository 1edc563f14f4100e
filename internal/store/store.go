package store

import "errors"

// ErrNotFound is returned by all stores when the requested row does not
// exist.
var ErrNotFound = errors.New("not found")
