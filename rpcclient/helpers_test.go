package rpcclient

import (
	"bytes"
	"encoding/binary"

	"github.com/pivx-project/pivx-indexer/primitives"
)

// encodeCoinbaseTx builds a minimal coinbase transaction's wire bytes,
// mirroring the fixture used in package blockfile's tests.
func encodeCoinbaseTx() []byte {
	var buf bytes.Buffer
	var v [4]byte
	binary.LittleEndian.PutUint32(v[:], 1)
	buf.Write(v[:])

	primitives.WriteVarInt(&buf, 1)
	buf.Write(make([]byte, 32))
	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], 0xFFFFFFFF)
	buf.Write(idx[:])
	primitives.WriteVarBytes(&buf, []byte{0x01, 0x01})
	var seq [4]byte
	binary.LittleEndian.PutUint32(seq[:], 0xFFFFFFFF)
	buf.Write(seq[:])

	primitives.WriteVarInt(&buf, 1)
	var val [8]byte
	binary.LittleEndian.PutUint64(val[:], 5000)
	buf.Write(val[:])
	primitives.WriteVarBytes(&buf, []byte{})

	var lt [4]byte
	buf.Write(lt[:])
	return buf.Bytes()
}

func encodeBlock(header *primitives.Header, txs [][]byte) []byte {
	var buf bytes.Buffer
	buf.Write(header.Encode())
	primitives.WriteVarInt(&buf, uint64(len(txs)))
	for _, tx := range txs {
		buf.Write(tx)
	}
	return buf.Bytes()
}
