package store

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/go-faster/errors"
)

// Memory is a KV held entirely in process memory.
type Memory struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Read(_ context.Context, key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrDBClosed
	}
	value, ok := m.data[string(key)]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return bytes.Clone(value), nil
}

func (m *Memory) Write(_ context.Context, key []byte, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrDBClosed
	}
	m.data[string(key)] = bytes.Clone(value)
	return nil
}

func (m *Memory) Delete(_ context.Context, key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrDBClosed
	}
	delete(m.data, string(key))
	return nil
}

func (m *Memory) Batch(_ context.Context, ops []BatchOperation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrDBClosed
	}

	// Validate first so a bad op leaves the map untouched
	for _, op := range ops {
		if op.Type != BatchPut && op.Type != BatchDelete {
			return errors.Errorf("unknown batch operation type: %d", op.Type)
		}
	}

	for _, op := range ops {
		switch op.Type {
		case BatchPut:
			m.data[string(op.Key)] = bytes.Clone(op.Value)
		case BatchDelete:
			delete(m.data, string(op.Key))
		}
	}
	return nil
}

func (m *Memory) Iterator(_ context.Context, start, end []byte) (Iterator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrDBClosed
	}

	entries := make([]entry, 0)
	for k, v := range m.data {
		if inRange([]byte(k), start, end) {
			entries = append(entries, entry{key: []byte(k), value: bytes.Clone(v)})
		}
	}
	sortEntries(entries)

	return &sliceIterator{entries: entries, pos: -1}, nil
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.data = nil
	return nil
}

type entry struct {
	key, value []byte
}

func sortEntries(entries []entry) {
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].key, entries[j].key) < 0
	})
}

func inRange(key, start, end []byte) bool {
	if start != nil && bytes.Compare(key, start) < 0 {
		return false
	}
	if end != nil && bytes.Compare(key, end) >= 0 {
		return false
	}
	return true
}

// sliceIterator iterates over a pre-sorted snapshot.
type sliceIterator struct {
	entries []entry
	pos     int
}

func (it *sliceIterator) Next() bool {
	if it.pos+1 >= len(it.entries) {
		it.pos = len(it.entries)
		return false
	}
	it.pos++
	return true
}

func (it *sliceIterator) Key() []byte {
	if it.pos < 0 || it.pos >= len(it.entries) {
		return nil
	}
	return it.entries[it.pos].key
}

func (it *sliceIterator) Value() []byte {
	if it.pos < 0 || it.pos >= len(it.entries) {
		return nil
	}
	return it.entries[it.pos].value
}

func (it *sliceIterator) Error() error { return nil }

func (it *sliceIterator) Close() error { return nil }
