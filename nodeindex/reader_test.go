package nodeindex

import (
	"bytes"
	"io/ioutil"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/pivx-project/pivx-indexer/common"
	"github.com/pivx-project/pivx-indexer/primitives"
)

func encodeRecordValue(t *testing.T, prev common.Hash, heightHint uint64, file, offset, length, bits, status uint64) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(prev.Bytes())
	require.NoError(t, primitives.WriteVarInt(&buf, heightHint))
	require.NoError(t, primitives.WriteVarInt(&buf, file))
	require.NoError(t, primitives.WriteVarInt(&buf, offset))
	require.NoError(t, primitives.WriteVarInt(&buf, length))
	require.NoError(t, primitives.WriteVarInt(&buf, bits))
	require.NoError(t, primitives.WriteVarInt(&buf, status))
	return buf.Bytes()
}

func TestReadSnapshot_CopiesAndReadsRecords(t *testing.T) {
	src, err := ioutil.TempDir("", "pivx-indexer-nodeindex-src")
	require.NoError(t, err)
	defer os.RemoveAll(src)

	db, err := leveldb.OpenFile(src, nil)
	require.NoError(t, err)

	genesis := h(1)
	child := h(2)

	require.NoError(t, db.Put(recordKey(genesis),
		encodeRecordValue(t, common.Hash{}, 0, 0, 0, 80, 0x1e0ffff0, statusHaveData), nil))
	require.NoError(t, db.Put(recordKey(child),
		encodeRecordValue(t, genesis, 1, 0, 80, 500, 0x1e0ffff0, statusHaveData), nil))
	require.NoError(t, db.Close())

	records, err := ReadSnapshot(src)
	require.NoError(t, err)
	require.Len(t, records, 2)

	byHash := make(map[common.Hash]*Record, len(records))
	for _, r := range records {
		byHash[r.Hash] = r
	}

	g := byHash[genesis]
	require.NotNil(t, g)
	assert.True(t, g.Prev.IsZero())
	assert.True(t, g.HasData())

	c := byHash[child]
	require.NotNil(t, c)
	assert.Equal(t, genesis, c.Prev)
	assert.Equal(t, uint32(500), c.Length)
}
