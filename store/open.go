package store

import (
	"io"

	"github.com/go-faster/errors"
)

// Backend names accepted by Open.
const (
	BackendMemory  = "memory"
	BackendPebble  = "pebble"
	BackendLevelDB = "leveldb"
)

// Database is a KV that owns resources and must be closed.
type Database interface {
	KV
	io.Closer
}

// Open returns the backend named by backend rooted at path.
// The memory backend ignores path.
func Open(backend, path string) (Database, error) {
	switch backend {
	case BackendMemory:
		return NewMemory(), nil
	case BackendPebble:
		db, err := OpenPebble(path)
		if err != nil {
			return nil, err
		}
		return db, nil
	case BackendLevelDB:
		db, err := OpenLevelDB(path)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, errors.Wrapf(ErrUnknownBackend, "%q", backend)
	}
}
