package indexwriter

import (
	"bytes"

	"github.com/pivx-project/pivx-indexer/primitives"
	"github.com/pivx-project/pivx-indexer/store"
)

// LoadBlock reconstructs the full block committed at height from its
// stored header, block_txs ordering, and transaction records. The
// reorg controller needs this to call RevertBlock, which takes a
// *primitives.Block rather than a height alone (spec §4.4 step 3).
func (w *Writer) LoadBlock(height uint32) (*primitives.Block, error) {
	hash, ok, err := w.HashAtHeight(height)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, store.ErrNotFound
	}

	headerBytes, err := w.db.Get(familyKey(tableBlocks, blockKey(hash)))
	if err != nil {
		return nil, err
	}
	header, err := primitives.DecodeHeader(bytes.NewReader(headerBytes))
	if err != nil {
		return nil, err
	}

	var txs []*primitives.Transaction
	it := w.db.NewIterator(familyKey(tableBlockTxs, blockTxPrefix(height)))
	for it.Next() {
		txid, err := decodeBlockTxValue(it.Value())
		if err != nil {
			it.Release()
			return nil, err
		}
		recBytes, err := w.db.Get(familyKey(tableTransactions, txKey(txid)))
		if err != nil {
			it.Release()
			return nil, err
		}
		rec, err := decodeTxRecord(recBytes)
		if err != nil {
			it.Release()
			return nil, err
		}
		tx, err := primitives.DecodeTransaction(bytes.NewReader(rec.Raw))
		if err != nil {
			it.Release()
			return nil, err
		}
		txs = append(txs, tx)
	}
	if err := it.Error(); err != nil {
		it.Release()
		return nil, err
	}
	it.Release()

	return &primitives.Block{Header: header, Transactions: txs}, nil
}
