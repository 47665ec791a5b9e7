package common

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/pivx-project/pivx-indexer/log"
)

var logger = log.NewModuleLogger(log.Common)

// BlockCache is a fixed-size LRU cache keyed by hash, adapted from
// klaytn's common/cache.go lruCache wrapper around hashicorp/golang-lru.
// No other package in this module constructs one.
type BlockCache struct {
	lru *lru.Cache
}

// NewBlockCache returns a cache holding up to size entries.
func NewBlockCache(size int) *BlockCache {
	c, err := lru.New(size)
	if err != nil {
		logger.Crit("failed to allocate block cache", "size", size, "err", err)
	}
	return &BlockCache{lru: c}
}

func (c *BlockCache) Add(key Hash, value interface{}) (evicted bool) {
	return c.lru.Add(key, value)
}

func (c *BlockCache) Get(key Hash) (value interface{}, ok bool) {
	return c.lru.Get(key)
}

func (c *BlockCache) Contains(key Hash) bool {
	return c.lru.Contains(key)
}

func (c *BlockCache) Remove(key Hash) {
	c.lru.Remove(key)
}

func (c *BlockCache) Purge() {
	c.lru.Purge()
}

func (c *BlockCache) Len() int {
	return c.lru.Len()
}
