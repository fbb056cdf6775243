package store

import (
	"bytes"
	"context"
)

// Prefixed is a view of a KV where every key is transparently prefixed.
type Prefixed struct {
	kv     KV
	prefix []byte
}

// NewPrefixed namespaces kv under prefix.
func NewPrefixed(kv KV, prefix []byte) *Prefixed {
	return &Prefixed{kv: kv, prefix: bytes.Clone(prefix)}
}

func (p *Prefixed) key(k []byte) []byte {
	out := make([]byte, 0, len(p.prefix)+len(k))
	out = append(out, p.prefix...)
	return append(out, k...)
}

func (p *Prefixed) Read(ctx context.Context, key []byte) ([]byte, error) {
	return p.kv.Read(ctx, p.key(key))
}

func (p *Prefixed) Write(ctx context.Context, key []byte, value []byte) error {
	return p.kv.Write(ctx, p.key(key), value)
}

func (p *Prefixed) Delete(ctx context.Context, key []byte) error {
	return p.kv.Delete(ctx, p.key(key))
}

func (p *Prefixed) Batch(ctx context.Context, ops []BatchOperation) error {
	prefixed := make([]BatchOperation, len(ops))
	for i, op := range ops {
		prefixed[i] = BatchOperation{Type: op.Type, Key: p.key(op.Key), Value: op.Value}
	}
	return p.kv.Batch(ctx, prefixed)
}

func (p *Prefixed) Iterator(ctx context.Context, start, end []byte) (Iterator, error) {
	lower := p.key(start)
	var upper []byte
	if end != nil {
		upper = p.key(end)
	} else {
		upper = PrefixEnd(p.prefix)
	}

	iter, err := p.kv.Iterator(ctx, lower, upper)
	if err != nil {
		return nil, err
	}
	return &prefixedIterator{Iterator: iter, n: len(p.prefix)}, nil
}

type prefixedIterator struct {
	Iterator
	n int
}

func (it *prefixedIterator) Key() []byte {
	key := it.Iterator.Key()
	if len(key) < it.n {
		return nil
	}
	return key[it.n:]
}
