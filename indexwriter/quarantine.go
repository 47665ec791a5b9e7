package indexwriter

import (
	"encoding/binary"

	"github.com/pivx-project/pivx-indexer/common"
)

// QuarantineEntry is one persisted record of a plan entry the block
// pipeline could not turn into a committed block.
type QuarantineEntry struct {
	Height uint32
	Hash   common.Hash
	Reason string
}

// PutQuarantine records a plan entry the pipeline quarantined, giving
// the `quarantine` command something to list — the pipeline itself
// only streams Quarantined values transiently, it never persists them.
func (w *Writer) PutQuarantine(height uint32, hash common.Hash, reason string) error {
	v := make([]byte, common.HashLength+len(reason))
	copy(v, hash.Bytes())
	copy(v[common.HashLength:], reason)
	return w.db.Put(familyKey(tableQuarantine, quarantineKey(height)), v)
}

// ListQuarantine returns every quarantined entry in ascending height order.
func (w *Writer) ListQuarantine() ([]QuarantineEntry, error) {
	it := w.db.NewIterator([]byte(tableQuarantine))
	defer it.Release()

	var entries []QuarantineEntry
	prefixLen := len(tableQuarantine)
	for it.Next() {
		key := it.Key()
		if len(key) < prefixLen+4 {
			continue
		}
		height := binary.BigEndian.Uint32(key[prefixLen : prefixLen+4])
		v := it.Value()
		if len(v) < common.HashLength {
			continue
		}
		entries = append(entries, QuarantineEntry{
			Height: height,
			Hash:   common.BytesToHash(v[:common.HashLength]),
			Reason: string(v[common.HashLength:]),
		})
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	return entries, nil
}
