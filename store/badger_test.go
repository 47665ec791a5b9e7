package store

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgerStore_PutGetDelete(t *testing.T) {
	dir, err := ioutil.TempDir("", "pivx-indexer-store-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Get([]byte("k"))
	assert.Equal(t, ErrNotFound, err)

	require.NoError(t, s.Put([]byte("k"), []byte("v")))
	v, err := s.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	require.NoError(t, s.Delete([]byte("k")))
	has, err := s.Has([]byte("k"))
	require.NoError(t, err)
	assert.False(t, has)
}

func TestBadgerStore_BatchCommit(t *testing.T) {
	dir, err := ioutil.TempDir("", "pivx-indexer-store-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	batch := s.NewBatch()
	require.NoError(t, batch.Put([]byte("chain:1"), []byte("h1")))
	require.NoError(t, batch.Put([]byte("chain:2"), []byte("h2")))
	require.NoError(t, batch.Write())

	v, err := s.Get([]byte("chain:2"))
	require.NoError(t, err)
	assert.Equal(t, []byte("h2"), v)
}

func TestBadgerStore_IteratorRespectsPrefix(t *testing.T) {
	dir, err := ioutil.TempDir("", "pivx-indexer-store-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put([]byte("addr:a"), []byte("1")))
	require.NoError(t, s.Put([]byte("addr:b"), []byte("2")))
	require.NoError(t, s.Put([]byte("other:x"), []byte("9")))

	it := s.NewIterator([]byte("addr:"))
	defer it.Release()

	count := 0
	for it.Next() {
		count++
	}
	assert.Equal(t, 2, count)
}
