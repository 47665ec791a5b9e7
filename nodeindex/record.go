// Package nodeindex implements the Header Resolver: it reads a
// read-only copy of the node's block-index store, reconstructs the
// active chain by chainwork, and emits a canonical plan the block
// pipeline consumes. Its leveldb-backed reader is adapted from
// storage/database/leveldb_database.go; the resolution algorithm
// itself follows spec §4.1, which has no klaytn analogue (its
// FindCommonAncestor walks a single canonical chain, it never needs
// to pick one among competing branches by aggregate work).
package nodeindex

import (
	"bytes"
	"io"

	"github.com/pivx-project/pivx-indexer/common"
	"github.com/pivx-project/pivx-indexer/primitives"
)

// recordPrefix tags a block-index entry's key, mirroring the 'b' key
// prefix a Bitcoin-family node's own leveldb block index uses.
const recordPrefix = 'b'

// statusHaveData marks a record as the node having fully downloaded
// the block bytes described by File/Offset/Length.
const statusHaveData = 1 << 0

// Record is one entry from the node's block-index store (spec §4.1
// "Input"): {hash, prev_hash, height_hint, file, offset, length, bits,
// status_flags}.
type Record struct {
	Hash       common.Hash
	Prev       common.Hash
	HeightHint uint32
	File       uint16
	Offset     uint64
	Length     uint32
	Bits       uint32
	Status     uint32
}

// HasData reports whether the node has the block bytes this record
// describes on disk.
func (r *Record) HasData() bool { return r.Status&statusHaveData != 0 }

// recordKey builds the leveldb key for hash.
func recordKey(hash common.Hash) []byte {
	key := make([]byte, 1+common.HashLength)
	key[0] = recordPrefix
	copy(key[1:], hash.Bytes())
	return key
}

// decodeRecord parses a record's value bytes. The layout is this
// indexer's own — a varint-encoded tuple mirroring the compact-size
// conventions already used for block-file parsing (primitives.ReadVarInt),
// rather than a literal reproduction of any single node implementation's
// private on-disk format.
func decodeRecord(hash common.Hash, value []byte) (*Record, error) {
	r := bytes.NewReader(value)

	var prevBuf [common.HashLength]byte
	if _, err := io.ReadFull(r, prevBuf[:]); err != nil {
		return nil, err
	}

	heightHint, err := primitives.ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	file, err := primitives.ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	offset, err := primitives.ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	length, err := primitives.ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	bits, err := primitives.ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	status, err := primitives.ReadVarInt(r)
	if err != nil {
		return nil, err
	}

	return &Record{
		Hash:       hash,
		Prev:       common.BytesToHash(prevBuf[:]),
		HeightHint: uint32(heightHint),
		File:       uint16(file),
		Offset:     offset,
		Length:     uint32(length),
		Bits:       uint32(bits),
		Status:     uint32(status),
	}, nil
}

