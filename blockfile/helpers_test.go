package blockfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/pivx-project/pivx-indexer/common"
	"github.com/pivx-project/pivx-indexer/primitives"
)

var testMagic = [4]byte{0xE9, 0xFD, 0xC4, 0xD9}

// encodeCoinbaseTx builds a minimal single-input single-output
// transaction's wire bytes, the way a node's block file would.
func encodeCoinbaseTx() []byte {
	var buf bytes.Buffer
	var v [4]byte
	binary.LittleEndian.PutUint32(v[:], 1)
	buf.Write(v[:])

	primitives.WriteVarInt(&buf, 1) // one input
	buf.Write(make([]byte, 32))     // null prev hash
	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], 0xFFFFFFFF)
	buf.Write(idx[:])
	primitives.WriteVarBytes(&buf, []byte{0x01, 0x01})
	var seq [4]byte
	binary.LittleEndian.PutUint32(seq[:], 0xFFFFFFFF)
	buf.Write(seq[:])

	primitives.WriteVarInt(&buf, 1) // one output
	var val [8]byte
	binary.LittleEndian.PutUint64(val[:], 5000)
	buf.Write(val[:])
	primitives.WriteVarBytes(&buf, []byte{})

	var lt [4]byte
	buf.Write(lt[:])
	return buf.Bytes()
}

// encodeBlock serializes a full block body: header, varint tx count, txs.
func encodeBlock(header *primitives.Header, txs [][]byte) []byte {
	var buf bytes.Buffer
	buf.Write(header.Encode())
	primitives.WriteVarInt(&buf, uint64(len(txs)))
	for _, tx := range txs {
		buf.Write(tx)
	}
	return buf.Bytes()
}

// writeBlkFile writes a sequence of block bodies as magic-delimited
// records into path, returning each record's (offset, length).
func writeBlkFile(path string, bodies [][]byte) ([]uint64, []uint32, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	offsets := make([]uint64, len(bodies))
	lengths := make([]uint32, len(bodies))
	var pos uint64
	for i, body := range bodies {
		if _, err := f.Write(testMagic[:]); err != nil {
			return nil, nil, err
		}
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(body)))
		if _, err := f.Write(lenBuf[:]); err != nil {
			return nil, nil, err
		}
		pos += 8
		offsets[i] = pos
		lengths[i] = uint32(len(body))
		if _, err := f.Write(body); err != nil {
			return nil, nil, err
		}
		pos += uint64(len(body))
	}
	return offsets, lengths, nil
}

func tempBlkDir() (string, error) {
	return ioutil.TempDir("", "blockfile-test")
}

func blkPath(dir string, file uint16) string {
	return filepath.Join(dir, fmt.Sprintf("blk%05d.dat", file))
}

func headerHash(prev common.Hash, merkle common.Hash, tm uint32, nonce uint32) *primitives.Header {
	return &primitives.Header{
		Version:    1,
		PrevBlock:  prev,
		MerkleRoot: merkle,
		Time:       tm,
		Bits:       0x1e0ffff0,
		Nonce:      nonce,
	}
}
