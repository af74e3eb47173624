// Package store provides the key-value persistence layer backing conversation
// state. Values are opaque byte strings; callers own the serialization.
package store

import "errors"

// ErrKeyNotFound is returned by Get when no value exists under the key.
var ErrKeyNotFound = errors.New("key not found")

// Store is a minimal key-value abstraction so the same repository logic can
// target an embedded database, a plain directory, or memory in tests.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Close() error
}
