// Package blockfile turns a canonical plan (spec §4.1's Resolve output)
// into parsed, validated blocks (spec §4.2 "Block Pipeline"). Reads are
// grouped by file and fanned out across a small worker pool, each
// worker keeping its own LRU of memory-mapped file handles — the same
// per-worker-cache shape klaytn applies to trie node caching in
// common/cache.go, generalized here from node hashes to open blk files.
package blockfile

import (
	"fmt"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru"
	"github.com/edsrzf/mmap-go"

	"github.com/pivx-project/pivx-indexer/log"
)

var logger = log.NewModuleLogger(log.BlockFile)

// fileHandle pairs an open file with its read-only memory mapping.
type fileHandle struct {
	f    *os.File
	data mmap.MMap
}

// FileCache memory-maps blk*.dat files on demand and keeps the most
// recently used ones open, evicting (and unmapping) the rest. One
// FileCache is owned per pipeline worker (spec §4.2 "each worker owns
// its file handles").
type FileCache struct {
	dir   string
	cache *lru.Cache
}

// NewFileCache returns a FileCache over dir holding at most size open
// files at once.
func NewFileCache(dir string, size int) (*FileCache, error) {
	fc := &FileCache{dir: dir}
	cache, err := lru.NewWithEvict(size, fc.onEvict)
	if err != nil {
		return nil, err
	}
	fc.cache = cache
	return fc, nil
}

func (fc *FileCache) onEvict(_ interface{}, value interface{}) {
	fh := value.(*fileHandle)
	if err := fh.data.Unmap(); err != nil {
		logger.Warn("unmap blk file failed", "err", err)
	}
	if err := fh.f.Close(); err != nil {
		logger.Warn("close blk file failed", "err", err)
	}
}

// Read returns a copy of the length bytes at offset within blk{file}.dat.
func (fc *FileCache) Read(file uint16, offset uint64, length uint32) ([]byte, error) {
	fh, err := fc.open(file)
	if err != nil {
		return nil, err
	}
	end := offset + uint64(length)
	if end > uint64(len(fh.data)) {
		return nil, &OutOfBoundsError{File: file, Offset: offset, Length: length, FileSize: len(fh.data)}
	}
	out := make([]byte, length)
	copy(out, fh.data[offset:end])
	return out, nil
}

func (fc *FileCache) open(file uint16) (*fileHandle, error) {
	if v, ok := fc.cache.Get(file); ok {
		return v.(*fileHandle), nil
	}
	path := filepath.Join(fc.dir, fmt.Sprintf("blk%05d.dat", file))
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	fh := &fileHandle{f: f, data: data}
	fc.cache.Add(file, fh)
	return fh, nil
}

// Close evicts and unmaps every cached file.
func (fc *FileCache) Close() { fc.cache.Purge() }

// OutOfBoundsError signals a plan entry whose (offset, length) runs
// past the end of its blk file — a corrupt index entry, not a
// transient I/O condition, so callers must not retry it.
type OutOfBoundsError struct {
	File     uint16
	Offset   uint64
	Length   uint32
	FileSize int
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("blockfile: record at blk%05d.dat offset %d length %d exceeds file size %d",
		e.File, e.Offset, e.Length, e.FileSize)
}
