package blockfile

import (
	"bytes"
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pivx-project/pivx-indexer/common"
	"github.com/pivx-project/pivx-indexer/errs"
	"github.com/pivx-project/pivx-indexer/nodeindex"
	"github.com/pivx-project/pivx-indexer/primitives"
)

// Config tunes the pipeline's concurrency and resilience knobs (spec §4.2, §5).
type Config struct {
	Workers            int
	ClockSkewTolerance time.Duration
	MaxRetries         int
}

// DefaultConfig matches the spec's stated defaults.
func DefaultConfig() Config {
	return Config{Workers: 8, ClockSkewTolerance: DefaultClockSkewTolerance, MaxRetries: 5}
}

// ParsedBlock is one pipeline output: a validated block ready for the
// index writer, delivered in strictly ascending height order.
type ParsedBlock struct {
	Height uint32
	Block  *primitives.Block
}

// Quarantined describes a plan entry the pipeline could not turn into
// a committed block (spec §4.2 "the pipeline continues; the writer
// must not advance sync_height past a quarantined block").
type Quarantined struct {
	Height uint32
	Hash   common.Hash
	Reason string
}

// Pipeline reads plan entries from a directory of blk*.dat files,
// parses and validates each, and emits them to the writer in order.
type Pipeline struct {
	cfg   Config
	magic [4]byte
	dir   string
}

// New returns a Pipeline reading blk*.dat files from dir, each framed
// with the given magic (spec §4.2, §3 chain params).
func New(dir string, magic [4]byte, cfg Config) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if cfg.ClockSkewTolerance <= 0 {
		cfg.ClockSkewTolerance = DefaultClockSkewTolerance
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultConfig().MaxRetries
	}
	return &Pipeline{cfg: cfg, magic: magic, dir: dir}
}

type workResult struct {
	block *primitives.Block
	err   error
}

// Run processes plan (already in ascending-height order, per
// nodeindex.Resolve) and returns two channels: parsed blocks in the
// same ascending order, and quarantined entries as they occur. Both
// channels are closed once every plan entry has been accounted for, or
// ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context, plan []nodeindex.PlanEntry) (<-chan ParsedBlock, <-chan Quarantined) {
	out := make(chan ParsedBlock, p.cfg.Workers*4)
	quarantine := make(chan Quarantined, p.cfg.Workers*4)

	groups := groupByFile(plan)
	results := make([]chan workResult, len(plan))
	for i := range results {
		results[i] = make(chan workResult, 1)
	}

	g, gctx := errgroup.WithContext(ctx)
	groupCh := make(chan []int)

	for w := 0; w < p.cfg.Workers; w++ {
		g.Go(func() error {
			cache, err := NewFileCache(p.dir, 4)
			if err != nil {
				return err
			}
			defer cache.Close()
			for group := range groupCh {
				for _, idx := range group {
					block, err := p.readAndParse(gctx, cache, plan[idx])
					results[idx] <- workResult{block: block, err: err}
					if gctx.Err() != nil {
						return gctx.Err()
					}
				}
			}
			return nil
		})
	}

	go func() {
		for _, group := range groups {
			select {
			case groupCh <- group:
			case <-gctx.Done():
				close(groupCh)
				return
			}
		}
		close(groupCh)
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(out)
		defer close(quarantine)

		var prevBlock *primitives.Block
		for i, entry := range plan {
			var res workResult
			select {
			case <-ctx.Done():
				return
			case res = <-results[i]:
			}
			if res.err != nil {
				quarantine <- Quarantined{Height: entry.Height, Hash: entry.Hash, Reason: res.err.Error()}
				continue
			}
			if err := ValidateBlock(res.block, entry.Hash, prevBlock, p.cfg.ClockSkewTolerance); err != nil {
				quarantine <- Quarantined{Height: entry.Height, Hash: entry.Hash, Reason: err.Error()}
				continue
			}
			select {
			case out <- ParsedBlock{Height: entry.Height, Block: res.block}:
			case <-ctx.Done():
				return
			}
			prevBlock = res.block
		}
	}()

	go func() {
		if err := g.Wait(); err != nil && gctx.Err() == nil {
			logger.Error("block pipeline worker failed", "err", err)
		}
		wg.Wait()
	}()

	return out, quarantine
}

// readAndParse reads one plan entry's record and decodes it, retrying
// transient I/O up to cfg.MaxRetries with exponential backoff (spec
// §4.2 "Failure semantics"). Parse errors are not retried — they are
// fatal for that block only.
func (p *Pipeline) readAndParse(ctx context.Context, cache *FileCache, entry nodeindex.PlanEntry) (*primitives.Block, error) {
	var raw []byte
	var err error
	backoff := 10 * time.Millisecond

	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		raw, err = cache.Read(entry.File, entry.Offset, entry.Length)
		if err == nil {
			break
		}
		if _, fatal := err.(*OutOfBoundsError); fatal {
			return nil, errs.NewIoError(errs.IoFatal, "read block record", err)
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
	}
	if err != nil {
		return nil, errs.NewIoError(errs.IoTransient, "read block record", err)
	}

	block, perr := primitives.DecodeBlock(bytes.NewReader(raw))
	if perr != nil {
		return nil, errs.NewParseError("block", entry.Hash.String(), perr)
	}
	return block, nil
}

// groupByFile partitions plan indices by File while preserving each
// group's ascending-height relative order, so a single worker's
// sequential reads stay sequential within that file (spec §4.2
// "maximize sequential I/O").
func groupByFile(plan []nodeindex.PlanEntry) [][]int {
	byFile := make(map[uint16][]int)
	var order []uint16
	for i, e := range plan {
		if _, ok := byFile[e.File]; !ok {
			order = append(order, e.File)
		}
		byFile[e.File] = append(byFile[e.File], i)
	}
	groups := make([][]int, len(order))
	for i, f := range order {
		groups[i] = byFile[f]
	}
	return groups
}
