package storage

import "errors"

// ErrNotFound is returned by every store implementation when a referenced
// record does not exist.
var ErrNotFound = errors.New("record not found")
