package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_PutGetDelete(t *testing.T) {
	db := NewMemoryStore()

	_, err := db.Get([]byte("k"))
	assert.Equal(t, ErrNotFound, err)

	require.NoError(t, db.Put([]byte("k"), []byte("v")))
	v, err := db.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	has, err := db.Has([]byte("k"))
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, db.Delete([]byte("k")))
	has, err = db.Has([]byte("k"))
	require.NoError(t, err)
	assert.False(t, has)
}

func TestMemoryStore_Batch(t *testing.T) {
	db := NewMemoryStore()
	batch := db.NewBatch()
	require.NoError(t, batch.Put([]byte("a"), []byte("1")))
	require.NoError(t, batch.Put([]byte("b"), []byte("2")))
	require.NoError(t, batch.Write())

	v, err := db.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)
}

func TestMemoryStore_IteratorOrderAndPrefix(t *testing.T) {
	db := NewMemoryStore()
	require.NoError(t, db.Put([]byte("addr:b"), []byte("2")))
	require.NoError(t, db.Put([]byte("addr:a"), []byte("1")))
	require.NoError(t, db.Put([]byte("other:x"), []byte("9")))

	it := db.NewIterator([]byte("addr:"))
	defer it.Release()

	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	assert.Equal(t, []string{"addr:a", "addr:b"}, keys)
}

func TestTable_PrefixesKeys(t *testing.T) {
	db := NewMemoryStore()
	blocks := NewTable(db, "block:")
	txs := NewTable(db, "tx:")

	require.NoError(t, blocks.Put([]byte("1"), []byte("block-one")))
	require.NoError(t, txs.Put([]byte("1"), []byte("tx-one")))

	v, err := db.Get([]byte("block:1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("block-one"), v)

	v, err = db.Get([]byte("tx:1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("tx-one"), v)

	got, err := blocks.Get([]byte("1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("block-one"), got)
}

func TestTableBatch_PrefixesKeys(t *testing.T) {
	db := NewMemoryStore()
	blocks := NewTable(db, "block:")

	batch := blocks.NewBatch()
	require.NoError(t, batch.Put([]byte("7"), []byte("seven")))
	require.NoError(t, batch.Write())

	v, err := db.Get([]byte("block:7"))
	require.NoError(t, err)
	assert.Equal(t, []byte("seven"), v)
}
