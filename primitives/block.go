package primitives

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pivx-project/pivx-indexer/common"
)

// Block is a fully parsed header plus its transactions (spec §3, §4.2).
type Block struct {
	Header       *Header
	Transactions []*Transaction
}

// Hash returns the block's identity hash (its header hash).
func (b *Block) Hash() common.Hash { return b.Header.Hash() }

// Coinbase returns the block's coinbase transaction, or nil if the
// block (a malformed one) has none — callers must check.
func (b *Block) Coinbase() *Transaction {
	if len(b.Transactions) == 0 {
		return nil
	}
	if tx := b.Transactions[0]; tx.IsCoinbase() {
		return tx
	}
	return nil
}

// Coinstake returns the block's proof-of-stake reward transaction,
// conventionally the second transaction on this chain, or nil if absent.
func (b *Block) Coinstake() *Transaction {
	if len(b.Transactions) < 2 {
		return nil
	}
	if tx := b.Transactions[1]; tx.IsCoinstake() {
		return tx
	}
	return nil
}

// DecodeBlock reads one block body (header followed by a varint
// transaction count and that many transactions) from r (spec §4.2).
func DecodeBlock(r io.Reader) (*Block, error) {
	header, err := DecodeHeader(r)
	if err != nil {
		return nil, fmt.Errorf("primitives: decode header: %w", err)
	}

	txCount, err := ReadVarInt(r)
	if err != nil {
		return nil, fmt.Errorf("primitives: decode tx count: %w", err)
	}

	txs := make([]*Transaction, txCount)
	for i := range txs {
		tx, err := DecodeTransaction(r)
		if err != nil {
			return nil, fmt.Errorf("primitives: decode tx %d: %w", i, err)
		}
		txs[i] = tx
	}

	return &Block{Header: header, Transactions: txs}, nil
}

// ReadRecord reads one magic-delimited record from a blk*.dat stream
// (spec §4.2): a 4-byte magic, a 4-byte little-endian length, and that
// many bytes of block payload. It returns io.EOF cleanly at a clean
// end of file, and a non-nil wrapped error for a truncated trailing
// record (spec §8 "truncated trailing record"): io.ErrUnexpectedEOF
// when a field is cut part-way, io.EOF when the cut falls exactly after
// the magic or the length field.
func ReadRecord(r *bufio.Reader, magic [4]byte) ([]byte, error) {
	var magicBuf [4]byte
	if _, err := io.ReadFull(r, magicBuf[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("primitives: read magic: %w", err)
	}
	if magicBuf != magic {
		return nil, fmt.Errorf("primitives: unexpected magic %x, want %x", magicBuf, magic)
	}

	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("primitives: read record length: %w", err)
	}
	size := binary.LittleEndian.Uint32(lenBuf[:])

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("primitives: read record payload (%d bytes): %w", size, err)
	}
	return payload, nil
}
