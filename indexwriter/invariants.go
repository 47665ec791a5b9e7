package indexwriter

import (
	"bytes"

	"github.com/pivx-project/pivx-indexer/errs"
	"github.com/pivx-project/pivx-indexer/primitives"
)

// CheckInvariants re-derives INV-1..INV-4 over [0, syncHeight] and
// returns an *errs.InvariantViolation (via errs.NewInvariantViolation)
// on the first failure (spec §8). It is O(chain length) and meant for
// periodic background auditing, not the per-block hot path.
func (w *Writer) CheckInvariants(syncHeight uint32) error {
	if err := w.checkINV1(syncHeight); err != nil {
		return err
	}
	if err := w.checkINV2AndINV3(syncHeight); err != nil {
		return err
	}
	return w.checkINV4(syncHeight)
}

// checkINV1 verifies chain[h] and chain['h'+hash] agree both ways.
func (w *Writer) checkINV1(syncHeight uint32) error {
	for h := uint32(0); h <= syncHeight; h++ {
		hash, ok, err := w.HashAtHeight(h)
		if err != nil {
			return err
		}
		if !ok {
			return errs.NewInvariantViolation("INV-1", "missing chain[height] entry")
		}
		back, ok, err := w.HeightOfHash(hash)
		if err != nil {
			return err
		}
		if !ok || back != h {
			return errs.NewInvariantViolation("INV-1", "chain height/hash mapping is not reciprocal")
		}
	}
	return nil
}

// checkINV2AndINV3 walks block_txs over [0, syncHeight] and, for every
// txid listed there, verifies that a transactions record exists, that
// its height is not -1, and that its raw bytes re-encode unchanged. It
// does not compare the record's height with the height block_txs lists
// it under, and does not visit transactions records that no block_txs
// entry references.
func (w *Writer) checkINV2AndINV3(syncHeight uint32) error {
	return w.forEachBlockTx(syncHeight, func(tx *primitives.Transaction, _ int) error {
		recBytes, err := w.db.Get(familyKey(tableTransactions, txKey(tx.TxID())))
		if err != nil {
			return errs.NewInvariantViolation("INV-2", "tx referenced by block_txs missing from transactions")
		}
		rec, err := decodeTxRecord(recBytes)
		if err != nil {
			return err
		}
		if rec.Height < 0 {
			return errs.NewInvariantViolation("INV-2", "tx committed to a block has height -1")
		}
		if !bytes.Equal(rec.Raw, tx.Raw()) {
			return errs.NewInvariantViolation("INV-3", "block_txs and transactions disagree on tx bytes")
		}
		return nil
	})
}

// checkINV4 verifies every addr_index entry references an existing
// transaction, an in-range vout, and an output that no input in
// [0, syncHeight] spends. It does not re-check which address the
// output credits.
func (w *Writer) checkINV4(syncHeight uint32) error {
	spent, err := w.computeSpentSet(syncHeight)
	if err != nil {
		return err
	}

	it := w.db.NewIterator([]byte(tableAddrIndex))
	defer it.Release()
	for it.Next() {
		entry, err := decodeAddrEntry(it.Value())
		if err != nil {
			return err
		}
		if spent[outpointKey(entry.TxID, entry.Vout)] {
			return errs.NewInvariantViolation("INV-4", "addr_index entry references a spent output")
		}
		recBytes, err := w.db.Get(familyKey(tableTransactions, txKey(entry.TxID)))
		if err != nil {
			return errs.NewInvariantViolation("INV-4", "addr_index entry references a nonexistent transaction")
		}
		rec, err := decodeTxRecord(recBytes)
		if err != nil {
			return err
		}
		tx, err := primitives.DecodeTransaction(bytes.NewReader(rec.Raw))
		if err != nil {
			return err
		}
		if int(entry.Vout) >= len(tx.Outputs) {
			return errs.NewInvariantViolation("INV-4", "addr_index entry references an out-of-range vout")
		}
	}
	return it.Error()
}
