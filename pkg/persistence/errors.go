package persistence

import "errors"

// ErrEntityNotFound is returned by lookups that match no stored record.
var ErrEntityNotFound = errors.New("entity not found")
