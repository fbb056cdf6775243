package store

import (
	"github.com/go-faster/errors"
)

var (
	// ErrDBClosed is returned when trying to operate on a closed store
	ErrDBClosed = errors.New("store is closed")

	// ErrKeyNotFound is returned when a key doesn't exist in the store
	ErrKeyNotFound = errors.New("key not found")

	// ErrTxDone is returned when a transaction is used after Commit or Discard
	ErrTxDone = errors.New("transaction already committed or discarded")

	// ErrUnknownBackend is returned by Open for an unsupported backend name
	ErrUnknownBackend = errors.New("unknown store backend")
)

// IsNotFound reports whether err signals a missing key.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}
