package indexwriter

import (
	"bytes"
	"encoding/binary"

	"github.com/pivx-project/pivx-indexer/chainparams"
	"github.com/pivx-project/pivx-indexer/common"
	"github.com/pivx-project/pivx-indexer/errs"
	"github.com/pivx-project/pivx-indexer/log"
	"github.com/pivx-project/pivx-indexer/primitives"
	"github.com/pivx-project/pivx-indexer/store"
)

var logger = log.NewModuleLogger(log.IndexWriter)

// Writer applies parsed blocks to the embedded store (spec §4.3).
type Writer struct {
	db     store.Database
	params chainparams.Params
}

// New returns a Writer committing to db under params's address rules.
func New(db store.Database, params chainparams.Params) *Writer {
	return &Writer{db: db, params: params}
}

// ApplyBlock performs the full per-block write set (spec §4.3 steps
// 1-5) as one atomic batch. Outputs spent by an input within this same
// block never gain an addr_index entry, and the entries of earlier
// outputs that this block's inputs spend are deleted (step 5),
// preserving INV-4.
func (w *Writer) ApplyBlock(block *primitives.Block, height uint32) error {
	batch := w.db.NewBatch()
	hash := block.Hash()

	// Step 1: blocks[hash] <- header bytes.
	if err := batch.Put(familyKey(tableBlocks, blockKey(hash)), block.Header.Encode()); err != nil {
		return err
	}

	// Step 2: chain[height] <- hash, chain['h'+hash] <- height.
	if err := batch.Put(familyKey(tableChain, heightKey(height)), hash.Bytes()); err != nil {
		return err
	}
	if err := batch.Put(familyKey(tableChain, hashKey(hash)), encodeHeight(height)); err != nil {
		return err
	}

	// chain_state is updated in the same batch so a reader never
	// observes a committed block whose tip/height haven't moved yet.
	if err := batch.Put(familyKey(tableChainState, keySyncHeight), encodeHeight(height)); err != nil {
		return err
	}
	if err := batch.Put(familyKey(tableChainState, keyTipHash), hash.Bytes()); err != nil {
		return err
	}

	spent := spentOutpoints(block)

	for i, tx := range block.Transactions {
		txid := tx.TxID()

		// Step 3: transactions['t'+txid], block_txs['B'+h+i].
		rec := TxRecord{Version: tx.Version, Height: int32(height), Raw: tx.Raw()}
		if err := batch.Put(familyKey(tableTransactions, txKey(txid)), encodeTxRecord(rec)); err != nil {
			return err
		}
		if err := batch.Put(familyKey(tableBlockTxs, blockTxKey(height, uint32(i))), txid.Bytes()); err != nil {
			return err
		}

		kind := outputKind(tx, i)

		// Step 4: insert unspent outputs into addr_index.
		for vout, out := range tx.Outputs {
			info := primitives.ClassifyScript(out.Script, w.params)
			addr := creditedAddress(info)
			if addr == "" {
				continue
			}
			if spent[outpointKey(txid, uint32(vout))] {
				continue
			}
			entry := AddrEntry{TxID: txid, Vout: uint32(vout), Kind: kind, Value: out.Value}
			key := familyKey(tableAddrIndex, addrIndexKey(addr, txid, uint32(vout)))
			if err := batch.Put(key, encodeAddrEntry(entry)); err != nil {
				return err
			}
		}

		// Step 5: remove addr_index entries the block's own inputs spend.
		if !tx.IsCoinbase() {
			for _, in := range tx.Inputs {
				if err := w.removeSpentEntry(batch, in.PrevOut); err != nil {
					return err
				}
			}
		}
	}

	return batch.Write()
}

// RevertBlock reverses ApplyBlock's write set for height/hash, used by
// the reorg controller to roll back past the common ancestor (spec
// §4.4 step 3). prevOutputs supplies the (address, value, kind) each
// reverted input used to credit, since that information is no longer
// derivable once the spending transaction being rolled back has itself
// removed it.
func (w *Writer) RevertBlock(block *primitives.Block, height uint32, prevOutputs map[primitives.Outpoint]PrevOutputEntry) error {
	batch := w.db.NewBatch()
	hash := block.Hash()

	if err := batch.Delete(familyKey(tableBlocks, blockKey(hash))); err != nil {
		return err
	}
	if err := batch.Delete(familyKey(tableChain, heightKey(height))); err != nil {
		return err
	}
	if err := batch.Delete(familyKey(tableChain, hashKey(hash))); err != nil {
		return err
	}

	// sync_height moves down in the same batch as the deletes above, so
	// every committed batch is internally consistent: no reader ever
	// sees sync_height still at the old height once this height's
	// blocks[]/chain[] entries are gone.
	if err := batch.Put(familyKey(tableChainState, keySyncHeight), encodeHeight(height-1)); err != nil {
		return err
	}

	for i, tx := range block.Transactions {
		txid := tx.TxID()
		if err := batch.Delete(familyKey(tableTransactions, txKey(txid))); err != nil {
			return err
		}
		if err := batch.Delete(familyKey(tableBlockTxs, blockTxKey(height, uint32(i)))); err != nil {
			return err
		}
		for vout, out := range tx.Outputs {
			info := primitives.ClassifyScript(out.Script, w.params)
			addr := creditedAddress(info)
			if addr == "" {
				continue
			}
			key := familyKey(tableAddrIndex, addrIndexKey(addr, txid, uint32(vout)))
			if err := batch.Delete(key); err != nil {
				return err
			}
		}
		if !tx.IsCoinbase() {
			for _, in := range tx.Inputs {
				entry, ok := prevOutputs[in.PrevOut]
				if !ok {
					continue
				}
				addr := entry.address
				key := familyKey(tableAddrIndex, addrIndexKey(addr, in.PrevOut.Hash, in.PrevOut.Index))
				if err := batch.Put(key, encodeAddrEntry(entry.AddrEntry)); err != nil {
					return err
				}
			}
		}
	}

	return batch.Write()
}

// PrevOutputsForBlock resolves, for every non-coinbase input in block,
// the address/value/kind its spent output was indexed under. Call this
// before RevertBlock while the spent transactions' own records are
// still intact, then pass the result to RevertBlock so it can restore
// those addr_index entries (spec §4.4 step 3).
func (w *Writer) PrevOutputsForBlock(block *primitives.Block) (map[primitives.Outpoint]PrevOutputEntry, error) {
	out := make(map[primitives.Outpoint]PrevOutputEntry)
	for _, tx := range block.Transactions {
		if tx.IsCoinbase() {
			continue
		}
		for _, in := range tx.Inputs {
			if _, ok := out[in.PrevOut]; ok {
				continue
			}
			entry, ok, err := w.PrevOutputEntryFor(in.PrevOut)
			if err != nil {
				return nil, err
			}
			if ok {
				out[in.PrevOut] = entry
			}
		}
	}
	return out, nil
}

// PrevOutputEntryFor resolves the address a spent output was credited
// to and reads its AddrEntry straight out of addr_index — it is still
// present at this point since the caller runs this before RevertBlock
// deletes it — rather than re-deriving Kind from the raw transaction,
// which would require knowing the referenced tx's position within its
// own block (not recoverable from the transaction alone).
func (w *Writer) PrevOutputEntryFor(prevOut primitives.Outpoint) (PrevOutputEntry, bool, error) {
	recBytes, err := w.db.Get(familyKey(tableTransactions, txKey(prevOut.Hash)))
	if err == store.ErrNotFound {
		return PrevOutputEntry{}, false, nil
	}
	if err != nil {
		return PrevOutputEntry{}, false, err
	}
	rec, err := decodeTxRecord(recBytes)
	if err != nil {
		return PrevOutputEntry{}, false, err
	}
	tx, err := primitives.DecodeTransaction(bytes.NewReader(rec.Raw))
	if err != nil {
		return PrevOutputEntry{}, false, err
	}
	if int(prevOut.Index) >= len(tx.Outputs) {
		return PrevOutputEntry{}, false, errs.NewInvariantViolation("INV-4", "input references out-of-range vout")
	}
	info := primitives.ClassifyScript(tx.Outputs[prevOut.Index].Script, w.params)
	addr := creditedAddress(info)
	if addr == "" {
		return PrevOutputEntry{}, false, nil
	}
	entryBytes, err := w.db.Get(familyKey(tableAddrIndex, addrIndexKey(addr, prevOut.Hash, prevOut.Index)))
	if err == store.ErrNotFound {
		// Already removed (e.g. a within-block spend never inserted it).
		return PrevOutputEntry{}, false, nil
	}
	if err != nil {
		return PrevOutputEntry{}, false, err
	}
	addrEntry, err := decodeAddrEntry(entryBytes)
	if err != nil {
		return PrevOutputEntry{}, false, err
	}
	return PrevOutputEntry{AddrEntry: addrEntry, address: addr}, true, nil
}

// removeSpentEntry deletes the addr_index entry an input consumes, if
// one exists. The credited address isn't known from the input alone,
// so this loads the referenced transaction's record and re-classifies
// the output's script.
func (w *Writer) removeSpentEntry(batch store.Batch, prevOut primitives.Outpoint) error {
	recBytes, err := w.db.Get(familyKey(tableTransactions, txKey(prevOut.Hash)))
	if err == store.ErrNotFound {
		return nil // spending an output this store never indexed (e.g. pre-genesis)
	}
	if err != nil {
		return err
	}
	rec, err := decodeTxRecord(recBytes)
	if err != nil {
		return err
	}
	tx, err := primitives.DecodeTransaction(bytes.NewReader(rec.Raw))
	if err != nil {
		return err
	}
	if int(prevOut.Index) >= len(tx.Outputs) {
		return errs.NewInvariantViolation("INV-4", "input references out-of-range vout")
	}
	info := primitives.ClassifyScript(tx.Outputs[prevOut.Index].Script, w.params)
	addr := creditedAddress(info)
	if addr == "" {
		return nil
	}
	key := familyKey(tableAddrIndex, addrIndexKey(addr, prevOut.Hash, prevOut.Index))
	return batch.Delete(key)
}

// creditedAddress returns the address an output's script credits,
// applying the cold-staking owner-index decision (spec Open Question 3).
func creditedAddress(info primitives.ScriptInfo) string {
	switch info.Kind {
	case primitives.ScriptColdStake:
		return info.Addresses[primitives.ColdStakeOwnerIndex]
	case primitives.ScriptP2PKH, primitives.ScriptP2SH:
		return info.Addresses[0]
	default:
		return ""
	}
}

// outputKind tags every output of tx with the maturity rule its
// transaction type implies (spec §4.3 "Maturity tagging").
func outputKind(tx *primitives.Transaction, txIndex int) OutputKind {
	switch {
	case tx.IsCoinbase():
		return OutputCoinbase
	case txIndex == 1 && tx.IsCoinstake():
		return OutputCoinstake
	default:
		return OutputRegular
	}
}

// spentOutpoints computes, for a single block, which (txid,vout) pairs
// are spent by some input within that same block — the within-block
// half of INV-4's spent-awareness (spec §4.3 "within-block spends see
// their own outputs").
func spentOutpoints(block *primitives.Block) map[outpoint]bool {
	spent := make(map[outpoint]bool)
	for _, tx := range block.Transactions {
		if tx.IsCoinbase() {
			continue
		}
		for _, in := range tx.Inputs {
			spent[outpointKey(in.PrevOut.Hash, in.PrevOut.Index)] = true
		}
	}
	return spent
}

type outpoint struct {
	hash common.Hash
	vout uint32
}

func outpointKey(hash common.Hash, vout uint32) outpoint { return outpoint{hash: hash, vout: vout} }

func encodeHeight(h uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, h)
	return buf
}

// PrevOutputEntry pairs an AddrEntry with the address it was credited
// to, since RevertBlock's restore path needs the key, not just the value.
type PrevOutputEntry struct {
	AddrEntry
	address string
}
