package store

import (
	"bytes"
	"context"

	"github.com/cockroachdb/pebble"
	"github.com/go-faster/errors"
)

// Pebble is a KV backed by a pebble database on disk.
type Pebble struct {
	db *pebble.DB
}

// OpenPebble opens (or creates) a pebble database at path.
func OpenPebble(path string) (*Pebble, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "open pebble at %s", path)
	}
	return &Pebble{db: db}, nil
}

func (p *Pebble) Read(_ context.Context, key []byte) ([]byte, error) {
	if p.db == nil {
		return nil, ErrDBClosed
	}

	val, closer, err := p.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	defer closer.Close()

	// Copy the value out, it is only valid until closer is closed
	return bytes.Clone(val), nil
}

func (p *Pebble) Write(_ context.Context, key, value []byte) error {
	if p.db == nil {
		return ErrDBClosed
	}
	return p.db.Set(key, value, pebble.Sync)
}

func (p *Pebble) Delete(_ context.Context, key []byte) error {
	if p.db == nil {
		return ErrDBClosed
	}
	return p.db.Delete(key, pebble.Sync)
}

func (p *Pebble) Batch(_ context.Context, ops []BatchOperation) error {
	if p.db == nil {
		return ErrDBClosed
	}

	batch := p.db.NewBatch()
	defer batch.Close()

	for _, op := range ops {
		switch op.Type {
		case BatchPut:
			if err := batch.Set(op.Key, op.Value, nil); err != nil {
				return err
			}
		case BatchDelete:
			if err := batch.Delete(op.Key, nil); err != nil {
				return err
			}
		default:
			return errors.Errorf("unknown batch operation type: %d", op.Type)
		}
	}

	return batch.Commit(pebble.Sync)
}

func (p *Pebble) Iterator(_ context.Context, start, end []byte) (Iterator, error) {
	if p.db == nil {
		return nil, ErrDBClosed
	}

	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: start,
		UpperBound: end,
	})
	if err != nil {
		return nil, errors.Wrap(err, "new pebble iterator")
	}
	return &pebbleIterator{iter: iter}, nil
}

func (p *Pebble) Close() error {
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}

type pebbleIterator struct {
	iter    *pebble.Iterator
	started bool
	key     []byte
	value   []byte
}

func (it *pebbleIterator) Next() bool {
	if !it.started {
		it.started = true
		it.iter.First()
	} else {
		it.iter.Next()
	}

	if !it.iter.Valid() {
		it.key, it.value = nil, nil
		return false
	}

	it.key = bytes.Clone(it.iter.Key())
	it.value = bytes.Clone(it.iter.Value())
	return true
}

func (it *pebbleIterator) Key() []byte { return it.key }

func (it *pebbleIterator) Value() []byte { return it.value }

func (it *pebbleIterator) Error() error { return it.iter.Error() }

func (it *pebbleIterator) Close() error { return it.iter.Close() }
