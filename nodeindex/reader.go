package nodeindex

import (
	"fmt"
	"io/ioutil"
	"os"

	copydir "github.com/otiai10/copy"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/pivx-project/pivx-indexer/common"
	"github.com/pivx-project/pivx-indexer/log"
)

var logger = log.NewModuleLogger(log.NodeIndex)

// ReadSnapshot copies the node's block-index directory to a temporary
// location (spec §4.1 "Input": "obtained by copy-on-open to avoid
// locking the live node") and returns every record found in it. The
// snapshot is removed before returning, whether or not reading
// succeeded — callers get records, never a lingering directory.
func ReadSnapshot(nodeIndexDir string) ([]*Record, error) {
	tmp, err := ioutil.TempDir("", "pivx-indexer-nodeindex-snapshot")
	if err != nil {
		return nil, fmt.Errorf("nodeindex: create snapshot dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	if err := copydir.Copy(nodeIndexDir, tmp); err != nil {
		return nil, fmt.Errorf("nodeindex: copy %s: %w", nodeIndexDir, err)
	}

	db, err := leveldb.OpenFile(tmp, &opt.Options{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("nodeindex: open snapshot: %w", err)
	}
	defer db.Close()

	return readRecords(db)
}

func readRecords(db *leveldb.DB) ([]*Record, error) {
	iter := db.NewIterator(util.BytesPrefix([]byte{recordPrefix}), nil)
	defer iter.Release()

	var records []*Record
	for iter.Next() {
		key := iter.Key()
		if len(key) != 1+len(common.Hash{}) {
			logger.Warn("skipping malformed node-index key", "len", len(key))
			continue
		}
		hash := common.BytesToHash(key[1:])

		value := make([]byte, len(iter.Value()))
		copy(value, iter.Value())

		rec, err := decodeRecord(hash, value)
		if err != nil {
			logger.Warn("skipping malformed node-index record", "hash", hash, "err", err)
			continue
		}
		records = append(records, rec)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("nodeindex: iterate snapshot: %w", err)
	}
	return records, nil
}
