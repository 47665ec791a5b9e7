package livesync

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pivx-project/pivx-indexer/common"
	"github.com/pivx-project/pivx-indexer/notify"
	"github.com/pivx-project/pivx-indexer/primitives"
)

// slowApplyThreshold marks an ApplyBlock call as contributing to
// sustained back-pressure (spec §5 "sustained flush rate above
// threshold").
const slowApplyThreshold = 250 * time.Millisecond

// slowApplyStreak is how many consecutive slow applies trigger a halving.
const slowApplyStreak = 5

type fetched struct {
	height uint32
	hash   common.Hash
	block  *primitives.Block
	err    error
}

// ingestBatched fetches in parallel groups of c.curBatch (up to
// cfg.Concurrency at a time) but always applies in ascending height
// order, matching the ordering guarantee the pipeline/writer path
// already upholds (spec §4.4 "batch-fetch in parallel groups of
// B_batch").
func (c *Controller) ingestBatched(ctx context.Context, from, to uint32) error {
	for start := from; start <= to; start += c.currentBatch() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		end := start + c.currentBatch() - 1
		if end > to {
			end = to
		}
		if err := c.fetchAndApplyGroup(ctx, start, end); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) fetchAndApplyGroup(ctx context.Context, from, to uint32) error {
	n := int(to-from) + 1
	results := make([]fetched, n)

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, c.cfg.Concurrency)
	for i := 0; i < n; i++ {
		i := i
		height := from + uint32(i)
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()

			hash, err := c.rpc.GetBlockHash(gctx, height)
			if err != nil {
				results[i] = fetched{height: height, err: err}
				return nil
			}
			block, err := c.rpc.GetBlock(gctx, hash)
			results[i] = fetched{height: height, hash: hash, block: block, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, r := range results {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if r.err != nil {
			return r.err
		}
		start := time.Now()
		if err := c.idx.ApplyBlock(r.block, r.height); err != nil {
			return err
		}
		c.recordApplyLatency(time.Since(start))
		if c.pub != nil {
			c.pub.Publish(notify.NewBlock{Height: r.height, Hash: r.hash})
		}
	}
	return nil
}

// currentBatch returns the live-adjusted batch size. Halving in
// recordApplyLatency never sets it below MinBatchSize (spec §5
// "floor 8"); a configured LargeBatch smaller than that is returned
// as is until the first halving.
func (c *Controller) currentBatch() uint32 {
	if c.curBatch == 0 {
		return c.cfg.LargeBatch
	}
	return c.curBatch
}

func (c *Controller) recordApplyLatency(d time.Duration) {
	if d < slowApplyThreshold {
		c.slowStreak = 0
		return
	}
	c.slowStreak++
	if c.slowStreak >= slowApplyStreak {
		next := c.currentBatch() / 2
		if next < MinBatchSize {
			next = MinBatchSize
		}
		if next != c.curBatch {
			logger.Warn("store writes running slow, halving live-fetch batch size", "from", c.currentBatch(), "to", next)
		}
		c.curBatch = next
		c.slowStreak = 0
	}
}
