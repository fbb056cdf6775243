package store

import (
	"bytes"
	"context"
	"sort"

	"github.com/go-faster/errors"
)

// Tx buffers writes over a base KV. Reads see the buffered writes; nothing
// reaches the base until Commit, which applies everything as one Batch.
// A Tx is not safe for concurrent use.
type Tx struct {
	base KV
	// pending maps key -> value; a nil value marks a delete.
	pending map[string][]byte
	done    bool
}

// Begin starts a transaction over base.
func Begin(base KV) *Tx {
	return &Tx{
		base:    base,
		pending: make(map[string][]byte),
	}
}

func (tx *Tx) Read(ctx context.Context, key []byte) ([]byte, error) {
	if tx.done {
		return nil, ErrTxDone
	}
	if value, ok := tx.pending[string(key)]; ok {
		if value == nil {
			return nil, ErrKeyNotFound
		}
		return bytes.Clone(value), nil
	}
	return tx.base.Read(ctx, key)
}

func (tx *Tx) Write(_ context.Context, key []byte, value []byte) error {
	if tx.done {
		return ErrTxDone
	}
	if value == nil {
		value = []byte{}
	}
	tx.pending[string(key)] = bytes.Clone(value)
	return nil
}

func (tx *Tx) Delete(_ context.Context, key []byte) error {
	if tx.done {
		return ErrTxDone
	}
	tx.pending[string(key)] = nil
	return nil
}

// Batch stages ops in the transaction; they commit with it.
func (tx *Tx) Batch(ctx context.Context, ops []BatchOperation) error {
	for _, op := range ops {
		var err error
		switch op.Type {
		case BatchPut:
			err = tx.Write(ctx, op.Key, op.Value)
		case BatchDelete:
			err = tx.Delete(ctx, op.Key)
		default:
			err = errors.Errorf("unknown batch operation type: %d", op.Type)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Iterator merges the base range with the pending writes.
func (tx *Tx) Iterator(ctx context.Context, start, end []byte) (Iterator, error) {
	if tx.done {
		return nil, ErrTxDone
	}

	merged := make(map[string][]byte)

	baseIter, err := tx.base.Iterator(ctx, start, end)
	if err != nil {
		return nil, errors.Wrap(err, "open base iterator")
	}
	for baseIter.Next() {
		merged[string(baseIter.Key())] = bytes.Clone(baseIter.Value())
	}
	if err := baseIter.Error(); err != nil {
		_ = baseIter.Close()
		return nil, errors.Wrap(err, "iterate base")
	}
	if err := baseIter.Close(); err != nil {
		return nil, errors.Wrap(err, "close base iterator")
	}

	for k, v := range tx.pending {
		if !inRange([]byte(k), start, end) {
			continue
		}
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = bytes.Clone(v)
	}

	entries := make([]entry, 0, len(merged))
	for k, v := range merged {
		entries = append(entries, entry{key: []byte(k), value: v})
	}
	sortEntries(entries)

	return &sliceIterator{entries: entries, pos: -1}, nil
}

// Operations returns the pending writes as batch operations in key order.
func (tx *Tx) Operations() []BatchOperation {
	keys := make([]string, 0, len(tx.pending))
	for k := range tx.pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ops := make([]BatchOperation, 0, len(keys))
	for _, k := range keys {
		v := tx.pending[k]
		if v == nil {
			ops = append(ops, BatchOperation{Type: BatchDelete, Key: []byte(k)})
			continue
		}
		ops = append(ops, BatchOperation{Type: BatchPut, Key: []byte(k), Value: v})
	}
	return ops
}

// Commit writes all pending operations to the base in one batch.
func (tx *Tx) Commit(ctx context.Context) error {
	if tx.done {
		return ErrTxDone
	}
	tx.done = true

	ops := tx.Operations()
	if len(ops) == 0 {
		return nil
	}
	if err := tx.base.Batch(ctx, ops); err != nil {
		return errors.Wrap(err, "commit batch")
	}
	return nil
}

// Discard drops every pending write. Safe to call after Commit.
func (tx *Tx) Discard() {
	tx.done = true
	tx.pending = nil
}
