// Package livesync keeps the index aligned with the node's live tip
// (spec §4.4 "Live Controller"): poll, detect reorgs, repair them, and
// publish change notifications. It never touches blk*.dat files or the
// node's block-index store directly — those belong to the cold-start
// path in packages blockfile/nodeindex — livesync's only window onto
// the chain is package rpcclient.
package livesync

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/pivx-project/pivx-indexer/common"
	"github.com/pivx-project/pivx-indexer/errs"
	"github.com/pivx-project/pivx-indexer/indexwriter"
	"github.com/pivx-project/pivx-indexer/log"
	"github.com/pivx-project/pivx-indexer/notify"
	"github.com/pivx-project/pivx-indexer/primitives"
)

var logger = log.NewModuleLogger(log.LiveSync)

// DefaultPollInterval is T (spec §4.4 "default 2s").
const DefaultPollInterval = 2 * time.Second

// DefaultSmallBatch is B_small (spec §4.4 "default 50").
const DefaultSmallBatch = 50

// DefaultLargeBatch is B_batch (spec §4.4 "default 50").
const DefaultLargeBatch = 50

// DefaultConcurrency bounds parallel fetch groups during batched catchup.
const DefaultConcurrency = 8

// DefaultReorgMaxDepth is D_max (spec §4.4 "default 100").
const DefaultReorgMaxDepth = 100

// MinBatchSize is the back-pressure floor (spec §5 "floor 8").
const MinBatchSize = 8

// blockSource is the RPC surface the controller needs (spec §6). A
// narrow interface so tests can supply a fake node instead of a live
// *rpcclient.Client.
type blockSource interface {
	GetBlockCount(ctx context.Context) (uint32, error)
	GetBlockHash(ctx context.Context, height uint32) (common.Hash, error)
	GetBlock(ctx context.Context, hash common.Hash) (*primitives.Block, error)
}

// index is the embedded-store surface the controller needs, all of it
// already provided by *indexwriter.Writer.
type index interface {
	SyncHeight() (uint32, bool, error)
	HashAtHeight(height uint32) (common.Hash, bool, error)
	SetSyncHeight(height uint32, tip common.Hash) error
	ApplyBlock(block *primitives.Block, height uint32) error
	RevertBlock(block *primitives.Block, height uint32, prevOutputs map[primitives.Outpoint]indexwriter.PrevOutputEntry) error
	PrevOutputsForBlock(block *primitives.Block) (map[primitives.Outpoint]indexwriter.PrevOutputEntry, error)
	LoadBlock(height uint32) (*primitives.Block, error)

	PutReorgCheckpoint(forkHeight uint32) error
	ReorgCheckpoint() (uint32, bool, error)
	DeleteReorgCheckpoint() error
}

// Config tunes the controller's polling, batching, and reorg behavior.
type Config struct {
	PollInterval  time.Duration
	SmallBatch    uint32
	LargeBatch    uint32
	Concurrency   int
	ReorgMaxDepth uint32
	BlkDir        string // watched as a secondary wake signal if non-empty
}

// DefaultConfig returns every documented default (spec §4.4, §5, §6).
func DefaultConfig() Config {
	return Config{
		PollInterval:  DefaultPollInterval,
		SmallBatch:    DefaultSmallBatch,
		LargeBatch:    DefaultLargeBatch,
		Concurrency:   DefaultConcurrency,
		ReorgMaxDepth: DefaultReorgMaxDepth,
	}
}

// Controller runs the poll loop described at spec §4.4.
type Controller struct {
	cfg Config
	rpc blockSource
	idx index
	pub *notify.Publisher

	curBatch   uint32 // live-adjusted LargeBatch, shrinks under back-pressure
	slowStreak int    // consecutive slow ApplyBlock calls, drives back-pressure
}

// New returns a Controller. pub may be nil if no notifications are wanted.
func New(rpc blockSource, idx index, pub *notify.Publisher, cfg Config) *Controller {
	def := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.SmallBatch == 0 {
		cfg.SmallBatch = def.SmallBatch
	}
	if cfg.LargeBatch == 0 {
		cfg.LargeBatch = def.LargeBatch
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.ReorgMaxDepth == 0 {
		cfg.ReorgMaxDepth = def.ReorgMaxDepth
	}
	return &Controller{cfg: cfg, rpc: rpc, idx: idx, pub: pub, curBatch: cfg.LargeBatch}
}

// Run executes the poll loop until ctx is cancelled (spec §4.4
// "Cancellation" — checked at each poll and between per-block
// commits). A secondary wake signal from a blk-directory watch, when
// configured, triggers an out-of-cycle poll so a freshly-written block
// is picked up before the next scheduled tick.
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	var wake <-chan struct{}
	var stopWatch func()
	if c.cfg.BlkDir != "" {
		w, stop, err := watchDir(c.cfg.BlkDir)
		if err != nil {
			logger.Warn("blk directory watch unavailable, polling only", "dir", c.cfg.BlkDir, "err", err)
		} else {
			wake = w
			stopWatch = stop
		}
	}
	if stopWatch != nil {
		defer stopWatch()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-wake:
		}

		if err := c.poll(ctx); err != nil {
			var deepReorg *errs.DeepReorg
			if stderrors.As(err, &deepReorg) {
				logger.Error("deep reorg detected, live sync paused for operator action", "err", err)
				return err
			}
			logger.Error("poll failed", "err", err)
		}
	}
}

// poll runs one cycle: resume any interrupted repair, reorg check,
// then catch-up (spec §4.4 "Poll loop").
func (c *Controller) poll(ctx context.Context) error {
	if err := c.resumeReorgIfNeeded(ctx); err != nil {
		return err
	}

	syncHeight, hasSync, err := c.idx.SyncHeight()
	if err != nil {
		return err
	}
	if !hasSync {
		return nil // cold sync hasn't run yet; nothing for live sync to do
	}

	if err := c.checkReorg(ctx, syncHeight); err != nil {
		return err
	}
	// A reorg repair may have moved sync_height; re-read before catching up.
	syncHeight, _, err = c.idx.SyncHeight()
	if err != nil {
		return err
	}

	networkHeight, err := c.rpc.GetBlockCount(ctx)
	if err != nil {
		return err
	}
	if networkHeight <= syncHeight {
		return nil
	}

	advance := networkHeight - syncHeight
	if advance <= c.cfg.SmallBatch {
		return c.ingestSequential(ctx, syncHeight+1, networkHeight)
	}
	return c.ingestBatched(ctx, syncHeight+1, networkHeight)
}

// ingestSequential fetches and applies one block at a time (spec §4.4
// "tip advances by <= B_small").
func (c *Controller) ingestSequential(ctx context.Context, from, to uint32) error {
	for h := from; h <= to; h++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := c.fetchAndApply(ctx, h); err != nil {
			return err
		}
	}
	return nil
}

// fetchAndApply fetches, applies, and publishes notification for one height.
func (c *Controller) fetchAndApply(ctx context.Context, height uint32) error {
	hash, err := c.rpc.GetBlockHash(ctx, height)
	if err != nil {
		return err
	}
	block, err := c.rpc.GetBlock(ctx, hash)
	if err != nil {
		return err
	}
	start := time.Now()
	if err := c.idx.ApplyBlock(block, height); err != nil {
		return err
	}
	c.recordApplyLatency(time.Since(start))
	if c.pub != nil {
		c.pub.Publish(notify.NewBlock{Height: height, Hash: hash})
	}
	return nil
}
