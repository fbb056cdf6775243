package store

import (
	"bytes"
	"context"

	"github.com/go-faster/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDB is a KV backed by a goleveldb database on disk.
type LevelDB struct {
	db *leveldb.DB
	wo *opt.WriteOptions
}

// OpenLevelDB opens (or creates) a leveldb database at path.
func OpenLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "open leveldb at %s", path)
	}
	return &LevelDB{db: db, wo: &opt.WriteOptions{Sync: true}}, nil
}

func (l *LevelDB) Read(_ context.Context, key []byte) ([]byte, error) {
	if l.db == nil {
		return nil, ErrDBClosed
	}
	val, err := l.db.Get(key, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return val, nil
}

func (l *LevelDB) Write(_ context.Context, key, value []byte) error {
	if l.db == nil {
		return ErrDBClosed
	}
	return l.db.Put(key, value, l.wo)
}

func (l *LevelDB) Delete(_ context.Context, key []byte) error {
	if l.db == nil {
		return ErrDBClosed
	}
	return l.db.Delete(key, l.wo)
}

func (l *LevelDB) Batch(_ context.Context, ops []BatchOperation) error {
	if l.db == nil {
		return ErrDBClosed
	}

	batch := new(leveldb.Batch)
	for _, op := range ops {
		switch op.Type {
		case BatchPut:
			batch.Put(op.Key, op.Value)
		case BatchDelete:
			batch.Delete(op.Key)
		default:
			return errors.Errorf("unknown batch operation type: %d", op.Type)
		}
	}
	return l.db.Write(batch, l.wo)
}

func (l *LevelDB) Iterator(_ context.Context, start, end []byte) (Iterator, error) {
	if l.db == nil {
		return nil, ErrDBClosed
	}
	iter := l.db.NewIterator(&util.Range{Start: start, Limit: end}, nil)
	return &levelIterator{iter: iter}, nil
}

func (l *LevelDB) Close() error {
	if l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}

type levelIterator struct {
	iter interface {
		Next() bool
		Key() []byte
		Value() []byte
		Error() error
		Release()
	}
	key, value []byte
}

func (it *levelIterator) Next() bool {
	if !it.iter.Next() {
		it.key, it.value = nil, nil
		return false
	}
	it.key = bytes.Clone(it.iter.Key())
	it.value = bytes.Clone(it.iter.Value())
	return true
}

func (it *levelIterator) Key() []byte { return it.key }

func (it *levelIterator) Value() []byte { return it.value }

func (it *levelIterator) Error() error { return it.iter.Error() }

func (it *levelIterator) Close() error {
	it.iter.Release()
	return nil
}
