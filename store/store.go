// Package store is the embedded key/value layer the index writer
// commits records to (spec §4.3 "Embedded Store"). Its Database/Batch/
// Iterator/Table interfaces and the badger-backed engine are adapted
// from klaytn's storage/database package (db_manager.go,
// badger_database.go), generalized from klaytn's Ethereum-style chain
// data to this chain's per-entity column families.
package store

import "errors"

// ErrNotFound is returned by Get when the key has no entry. Engines
// (badger, memory) map their own not-found sentinel to this one so
// callers have a single error to check.
var ErrNotFound = errors.New("store: key not found")

// Database is the minimal key/value contract every engine (badger,
// the in-memory test double) implements.
type Database interface {
	Put(key, value []byte) error
	Has(key []byte) (bool, error)
	Get(key []byte) ([]byte, error)
	Delete(key []byte) error

	NewBatch() Batch
	NewIterator(prefix []byte) Iterator

	Close()
}

// Batch buffers writes for a single atomic commit (spec §4.3 "batched,
// per-family writes").
type Batch interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	Write() error
	ValueSize() int
	Reset()
}

// Iterator walks keys sharing a prefix in ascending byte order.
// Callers must call Release when done.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Error() error
	Release()
}

// Table namespaces a Database under a fixed key prefix, giving each
// logical column family (blocks, transactions, addr_index, ...) its
// own slice of one physical engine, the same pattern as klaytn's
// badgerTable (spec §4 "per-family writes").
type Table interface {
	Database
}

// NewTable wraps db so every key is implicitly prefixed with name,
// the way klaytn derives child-chain and index-section tables
// from one underlying badgerDB.
func NewTable(db Database, name string) Table {
	return &table{db: db, prefix: []byte(name)}
}

type table struct {
	db     Database
	prefix []byte
}

func (t *table) prefixed(key []byte) []byte {
	out := make([]byte, 0, len(t.prefix)+len(key))
	out = append(out, t.prefix...)
	out = append(out, key...)
	return out
}

func (t *table) Put(key, value []byte) error { return t.db.Put(t.prefixed(key), value) }
func (t *table) Has(key []byte) (bool, error) { return t.db.Has(t.prefixed(key)) }
func (t *table) Get(key []byte) ([]byte, error) { return t.db.Get(t.prefixed(key)) }
func (t *table) Delete(key []byte) error { return t.db.Delete(t.prefixed(key)) }
func (t *table) Close()                  {}

func (t *table) NewBatch() Batch {
	return &tableBatch{batch: t.db.NewBatch(), prefix: t.prefix}
}

func (t *table) NewIterator(prefix []byte) Iterator {
	return t.db.NewIterator(t.prefixed(prefix))
}

type tableBatch struct {
	batch  Batch
	prefix []byte
}

func (tb *tableBatch) prefixed(key []byte) []byte {
	out := make([]byte, 0, len(tb.prefix)+len(key))
	out = append(out, tb.prefix...)
	out = append(out, key...)
	return out
}

func (tb *tableBatch) Put(key, value []byte) error { return tb.batch.Put(tb.prefixed(key), value) }
func (tb *tableBatch) Delete(key []byte) error      { return tb.batch.Delete(tb.prefixed(key)) }
func (tb *tableBatch) Write() error                 { return tb.batch.Write() }
func (tb *tableBatch) ValueSize() int               { return tb.batch.ValueSize() }
func (tb *tableBatch) Reset()                       { tb.batch.Reset() }
