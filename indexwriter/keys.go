// Package indexwriter commits parsed blocks to the embedded store and
// maintains the spent-aware address index (spec §4.3). Its batched,
// per-family write discipline is adapted from
// accessors-style write helpers in storage/database/db_manager.go
// (WriteCanonicalHash, WriteHeader, PutBodyToBatch and friends),
// generalized from klaytn's header/body/receipt families to this
// chain's blocks/chain/transactions/block_txs/addr_index families.
package indexwriter

import (
	"encoding/binary"

	"github.com/pivx-project/pivx-indexer/common"
)

// Column family name prefixes (spec §3 "Index entities"). A single
// physical store.Database backs every family; these prefixes are what
// give each family its own key slice, mirroring
// badgerTable prefixing in storage/database/badger_database.go.
const (
	tableBlocks       = "blocks:"
	tableChain        = "chain:"
	tableTransactions = "transactions:"
	tableBlockTxs     = "block_txs:"
	tableAddrIndex    = "addr_index:"
	tableChainState   = "chain_state:"
	tableQuarantine   = "quarantine:"
)

// familyKey prepends a column family's prefix to its local key, used
// by the Writer to build full store keys that all share one atomic
// batch regardless of family (spec §4.3 "a single batched write,
// committed per-family").
func familyKey(family string, key []byte) []byte {
	buf := make([]byte, len(family)+len(key))
	n := copy(buf, family)
	copy(buf[n:], key)
	return buf
}

// blockKey is the key into the blocks family: blocks[hash].
func blockKey(hash common.Hash) []byte { return hash.Bytes() }

// heightKey is chain[height].
func heightKey(height uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, height)
	return buf
}

// hashKey is chain['h'‖hash].
func hashKey(hash common.Hash) []byte {
	buf := make([]byte, 1+common.HashLength)
	buf[0] = 'h'
	copy(buf[1:], hash.Bytes())
	return buf
}

// txKey is transactions['t'‖txid].
func txKey(txid common.Hash) []byte {
	buf := make([]byte, 1+common.HashLength)
	buf[0] = 't'
	copy(buf[1:], txid.Bytes())
	return buf
}

// blockTxKey is block_txs['B'‖height:be_u32‖index:be_u32].
func blockTxKey(height, index uint32) []byte {
	buf := make([]byte, 1+4+4)
	buf[0] = 'B'
	binary.BigEndian.PutUint32(buf[1:5], height)
	binary.BigEndian.PutUint32(buf[5:9], index)
	return buf
}

// blockTxPrefix is the prefix identifying every block_txs entry for height.
func blockTxPrefix(height uint32) []byte {
	buf := make([]byte, 1+4)
	buf[0] = 'B'
	binary.BigEndian.PutUint32(buf[1:5], height)
	return buf
}

// voutKey identifies one output within a transaction: (txid, vout_index).
func voutKey(txid common.Hash, vout uint32) []byte {
	buf := make([]byte, common.HashLength+4)
	copy(buf, txid.Bytes())
	binary.BigEndian.PutUint32(buf[common.HashLength:], vout)
	return buf
}

// addrIndexKey is addr_index['a'‖address‖vout_key].
func addrIndexKey(address string, txid common.Hash, vout uint32) []byte {
	vk := voutKey(txid, vout)
	buf := make([]byte, 1+len(address)+len(vk))
	buf[0] = 'a'
	n := copy(buf[1:], address)
	copy(buf[1+n:], vk)
	return buf
}

// addrIndexPrefix identifies every addr_index entry for address.
func addrIndexPrefix(address string) []byte {
	buf := make([]byte, 1+len(address))
	buf[0] = 'a'
	copy(buf[1:], address)
	return buf
}

// quarantineKey is quarantine[height], one entry per quarantined plan
// entry (spec §4.2 "the writer must not advance sync_height past a
// quarantined block").
func quarantineKey(height uint32) []byte { return heightKey(height) }

// Chain-state singleton keys.
var (
	keySyncHeight      = []byte("sync_height")
	keyNetworkHeight   = []byte("network_height")
	keyTipHash         = []byte("tip_hash")
	keyAddrIndexReady  = []byte("addr_index_ready")
	keyEnrichmentDone  = []byte("enrichment_done")
	keyReorgCheckpoint = []byte("reorg_checkpoint")
)
