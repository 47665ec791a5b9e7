package indexwriter

import (
	"bytes"
	"encoding/binary"

	"github.com/pivx-project/pivx-indexer/common"
	"github.com/pivx-project/pivx-indexer/primitives"
)

// encodeTx serializes a transaction to its wire form, the way a node's
// block file would, so DecodeTransaction can populate Raw()/TxID()
// exactly as the real pipeline does.
func encodeTx(t testTx) []byte {
	var buf bytes.Buffer
	var v [4]byte
	binary.LittleEndian.PutUint32(v[:], uint32(t.version))
	buf.Write(v[:])

	primitives.WriteVarInt(&buf, uint64(len(t.inputs)))
	for _, in := range t.inputs {
		buf.Write(in.prevHash.Bytes())
		var idx [4]byte
		binary.LittleEndian.PutUint32(idx[:], in.prevIndex)
		buf.Write(idx[:])
		primitives.WriteVarBytes(&buf, in.script)
		var seq [4]byte
		binary.LittleEndian.PutUint32(seq[:], 0xFFFFFFFF)
		buf.Write(seq[:])
	}

	primitives.WriteVarInt(&buf, uint64(len(t.outputs)))
	for _, out := range t.outputs {
		var val [8]byte
		binary.LittleEndian.PutUint64(val[:], uint64(out.value))
		buf.Write(val[:])
		primitives.WriteVarBytes(&buf, out.script)
	}

	var lt [4]byte
	buf.Write(lt[:])
	return buf.Bytes()
}

type testTxIn struct {
	prevHash  common.Hash
	prevIndex uint32
	script    []byte
}

type testTxOut struct {
	value  int64
	script []byte
}

type testTx struct {
	version int32
	inputs  []testTxIn
	outputs []testTxOut
}

func coinbaseInput() testTxIn {
	return testTxIn{prevHash: common.Hash{}, prevIndex: 0xFFFFFFFF, script: []byte{0x01, 0x01}}
}

func decodeTx(raw []byte) *primitives.Transaction {
	tx, err := primitives.DecodeTransaction(bytes.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return tx
}

func buildBlock(header *primitives.Header, txs ...testTx) *primitives.Block {
	decoded := make([]*primitives.Transaction, len(txs))
	for i, tx := range txs {
		decoded[i] = decodeTx(encodeTx(tx))
	}
	return &primitives.Block{Header: header, Transactions: decoded}
}

func testHeader(prev common.Hash, nonce uint32) *primitives.Header {
	return &primitives.Header{
		Version:    1,
		PrevBlock:  prev,
		MerkleRoot: common.Hash{},
		Time:       1,
		Bits:       0x1e0ffff0,
		Nonce:      nonce,
	}
}
