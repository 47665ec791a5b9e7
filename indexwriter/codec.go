package indexwriter

import (
	"encoding/binary"
	"fmt"

	"github.com/pivx-project/pivx-indexer/common"
)

// TxRecord is the value stored at transactions['t'‖txid] (spec §3):
// {version, height, raw}. Height is -1 for mempool/unresolved
// transactions; the core only ever writes height >= 0.
type TxRecord struct {
	Version int32
	Height  int32
	Raw     []byte
}

func encodeTxRecord(r TxRecord) []byte {
	buf := make([]byte, 8+len(r.Raw))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(r.Version))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(r.Height))
	copy(buf[8:], r.Raw)
	return buf
}

func decodeTxRecord(b []byte) (TxRecord, error) {
	if len(b) < 8 {
		return TxRecord{}, fmt.Errorf("indexwriter: short tx record (%d bytes)", len(b))
	}
	return TxRecord{
		Version: int32(binary.LittleEndian.Uint32(b[0:4])),
		Height:  int32(binary.LittleEndian.Uint32(b[4:8])),
		Raw:     append([]byte(nil), b[8:]...),
	}, nil
}

// OutputKind tags the maturity rule an addr_index entry is subject to
// (spec §4.3 "Maturity tagging").
type OutputKind uint8

const (
	OutputRegular OutputKind = iota
	OutputCoinbase
	OutputCoinstake
)

// AddrEntry is the value stored at addr_index['a'‖address‖vout_key]
// (spec §3): the credited (txid, vout) pair plus its maturity kind.
type AddrEntry struct {
	TxID  common.Hash
	Vout  uint32
	Kind  OutputKind
	Value int64
}

func encodeAddrEntry(e AddrEntry) []byte {
	buf := make([]byte, common.HashLength+4+1+8)
	copy(buf, e.TxID.Bytes())
	binary.BigEndian.PutUint32(buf[common.HashLength:], e.Vout)
	buf[common.HashLength+4] = byte(e.Kind)
	binary.LittleEndian.PutUint64(buf[common.HashLength+5:], uint64(e.Value))
	return buf
}

// decodeBlockTxValue recovers the txid stored as a block_txs value.
func decodeBlockTxValue(b []byte) (common.Hash, error) {
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("indexwriter: block_txs value has %d bytes, want %d", len(b), common.HashLength)
	}
	return common.BytesToHash(b), nil
}

func decodeAddrEntry(b []byte) (AddrEntry, error) {
	want := common.HashLength + 4 + 1 + 8
	if len(b) != want {
		return AddrEntry{}, fmt.Errorf("indexwriter: addr entry has %d bytes, want %d", len(b), want)
	}
	return AddrEntry{
		TxID:  common.BytesToHash(b[0:common.HashLength]),
		Vout:  binary.BigEndian.Uint32(b[common.HashLength : common.HashLength+4]),
		Kind:  OutputKind(b[common.HashLength+4]),
		Value: int64(binary.LittleEndian.Uint64(b[common.HashLength+5:])),
	}, nil
}
