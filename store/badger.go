package store

import (
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger"

	"github.com/pivx-project/pivx-indexer/log"
)

var logger = log.NewModuleLogger(log.Store)

// gcThreshold and sizeGCTickerTime govern the background value-log
// compaction loop, unchanged from klaytn's badger_database.go.
const gcThreshold = int64(1 << 30)
const sizeGCTickerTime = 1 * time.Minute

// BadgerStore is the production engine backing the embedded store.
type BadgerStore struct {
	dir string
	db  *badger.DB

	gcTicker *time.Ticker
	logger   log.Logger
	done     chan struct{}
}

// Open creates the data directory if needed and opens a badger
// instance rooted there, then starts the background value-log GC loop
// (spec §6 "paths.db_path").
func Open(dir string) (*BadgerStore, error) {
	localLogger := logger.NewWith("dir", dir)

	if fi, err := os.Stat(dir); err == nil {
		if !fi.IsDir() {
			return nil, fmt.Errorf("store: %s is not a directory", dir)
		}
	} else if os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("store: mkdir %s: %w", dir, err)
		}
	} else {
		return nil, fmt.Errorf("store: stat %s: %w", dir, err)
	}

	opts := badger.DefaultOptions
	opts.Dir = dir
	opts.ValueDir = dir

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: open badger at %s: %w", dir, err)
	}

	s := &BadgerStore{
		dir:      dir,
		db:       db,
		logger:   localLogger,
		gcTicker: time.NewTicker(sizeGCTickerTime),
		done:     make(chan struct{}),
	}
	go s.runValueLogGC()
	return s, nil
}

func (s *BadgerStore) runValueLogGC() {
	_, lastSize := s.db.Size()
	for {
		select {
		case <-s.done:
			return
		case <-s.gcTicker.C:
			_, currSize := s.db.Size()
			if currSize-lastSize < gcThreshold {
				continue
			}
			if err := s.db.RunValueLogGC(0.5); err != nil {
				s.logger.Error("value log gc failed", "err", err)
				continue
			}
			_, lastSize = s.db.Size()
		}
	}
}

func (s *BadgerStore) Path() string { return s.dir }

func (s *BadgerStore) Put(key, value []byte) error {
	txn := s.db.NewTransaction(true)
	defer txn.Discard()
	if err := txn.Set(key, value); err != nil {
		return err
	}
	return txn.Commit(nil)
}

func (s *BadgerStore) Has(key []byte) (bool, error) {
	txn := s.db.NewTransaction(false)
	defer txn.Discard()
	_, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *BadgerStore) Get(key []byte) ([]byte, error) {
	txn := s.db.NewTransaction(false)
	defer txn.Discard()
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (s *BadgerStore) Delete(key []byte) error {
	txn := s.db.NewTransaction(true)
	defer txn.Discard()
	if err := txn.Delete(key); err != nil {
		return err
	}
	return txn.Commit(nil)
}

func (s *BadgerStore) NewBatch() Batch {
	return &badgerBatch{db: s.db, txn: s.db.NewTransaction(true)}
}

func (s *BadgerStore) NewIterator(prefix []byte) Iterator {
	txn := s.db.NewTransaction(false)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	it.Seek(prefix)
	return &badgerIterator{txn: txn, it: it, prefix: prefix, started: false}
}

func (s *BadgerStore) Close() {
	close(s.done)
	s.gcTicker.Stop()
	if err := s.db.Close(); err != nil {
		s.logger.Error("failed to close store", "err", err)
		return
	}
	s.logger.Info("store closed")
}

type badgerBatch struct {
	db   *badger.DB
	txn  *badger.Txn
	size int
}

func (b *badgerBatch) Put(key, value []byte) error {
	if err := b.txn.Set(key, value); err != nil {
		// badger caps a single transaction's size; retry with a fresh
		// one and replay this write, mirroring klaytn's
		// size-aware batch usage in work/worker.go.
		if err := b.commitAndRestart(); err != nil {
			return err
		}
		if err := b.txn.Set(key, value); err != nil {
			return err
		}
	}
	b.size += len(key) + len(value)
	return nil
}

func (b *badgerBatch) commitAndRestart() error {
	if err := b.txn.Commit(nil); err != nil {
		return err
	}
	b.txn = b.db.NewTransaction(true)
	return nil
}

func (b *badgerBatch) Delete(key []byte) error {
	err := b.txn.Delete(key)
	b.size += len(key)
	return err
}

func (b *badgerBatch) Write() error {
	return b.txn.Commit(nil)
}

func (b *badgerBatch) ValueSize() int { return b.size }

func (b *badgerBatch) Reset() {
	b.txn.Discard()
	b.txn = b.db.NewTransaction(true)
	b.size = 0
}

type badgerIterator struct {
	txn     *badger.Txn
	it      *badger.Iterator
	prefix  []byte
	started bool
}

func (it *badgerIterator) Next() bool {
	if !it.started {
		it.started = true
	} else {
		it.it.Next()
	}
	return it.it.ValidForPrefix(it.prefix)
}

func (it *badgerIterator) Key() []byte {
	return it.it.Item().KeyCopy(nil)
}

func (it *badgerIterator) Value() []byte {
	v, err := it.it.Item().ValueCopy(nil)
	if err != nil {
		return nil
	}
	return v
}

func (it *badgerIterator) Error() error { return nil }

func (it *badgerIterator) Release() {
	it.it.Close()
	it.txn.Discard()
}
