package store

import (
	"bytes"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Database used by package tests in place
// of a real badger instance, the role klaytn's NewMemDatabase
// plays for storage/database's own test suite (referenced from
// db_manager.go's NewMemoryDBManager, though that file's
// implementation wasn't part of the retrieved source — this is a
// fresh implementation of the same role).
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Put(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	m.data[string(key)] = cp
	return nil
}

func (m *MemoryStore) Has(key []byte) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[string(key)]
	return ok, nil
}

func (m *MemoryStore) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

func (m *MemoryStore) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, string(key))
	return nil
}

func (m *MemoryStore) NewBatch() Batch {
	return &memoryBatch{store: m}
}

func (m *MemoryStore) NewIterator(prefix []byte) Iterator {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for k := range m.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	entries := make([]memEntry, len(keys))
	for i, k := range keys {
		entries[i] = memEntry{key: []byte(k), value: m.data[k]}
	}
	return &memoryIterator{entries: entries, idx: -1}
}

func (m *MemoryStore) Close() {}

type memEntry struct {
	key   []byte
	value []byte
}

type memoryIterator struct {
	entries []memEntry
	idx     int
}

func (it *memoryIterator) Next() bool {
	it.idx++
	return it.idx < len(it.entries)
}

func (it *memoryIterator) Key() []byte   { return it.entries[it.idx].key }
func (it *memoryIterator) Value() []byte { return it.entries[it.idx].value }
func (it *memoryIterator) Error() error  { return nil }
func (it *memoryIterator) Release()      {}

type memoryOp struct {
	key    []byte
	value  []byte
	delete bool
}

type memoryBatch struct {
	store *MemoryStore
	ops   []memoryOp
	size  int
}

func (b *memoryBatch) Put(key, value []byte) error {
	b.ops = append(b.ops, memoryOp{key: key, value: value})
	b.size += len(key) + len(value)
	return nil
}

func (b *memoryBatch) Delete(key []byte) error {
	b.ops = append(b.ops, memoryOp{key: key, delete: true})
	b.size += len(key)
	return nil
}

func (b *memoryBatch) Write() error {
	for _, op := range b.ops {
		if op.delete {
			if err := b.store.Delete(op.key); err != nil {
				return err
			}
			continue
		}
		if err := b.store.Put(op.key, op.value); err != nil {
			return err
		}
	}
	return nil
}

func (b *memoryBatch) ValueSize() int { return b.size }

func (b *memoryBatch) Reset() {
	b.ops = nil
	b.size = 0
}
