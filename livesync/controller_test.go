package livesync

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pivx-project/pivx-indexer/common"
	"github.com/pivx-project/pivx-indexer/errs"
	"github.com/pivx-project/pivx-indexer/indexwriter"
	"github.com/pivx-project/pivx-indexer/notify"
	"github.com/pivx-project/pivx-indexer/primitives"
)

// fakeNode is an in-memory blockSource: blocks[i] is the block at
// height i, blocks[0] the genesis.
type fakeNode struct {
	blocks []*primitives.Block
}

func (n *fakeNode) GetBlockCount(ctx context.Context) (uint32, error) {
	return uint32(len(n.blocks) - 1), nil
}

func (n *fakeNode) GetBlockHash(ctx context.Context, height uint32) (common.Hash, error) {
	if int(height) >= len(n.blocks) {
		return common.Hash{}, fmt.Errorf("fakeNode: height %d out of range", height)
	}
	return n.blocks[height].Hash(), nil
}

func (n *fakeNode) GetBlock(ctx context.Context, hash common.Hash) (*primitives.Block, error) {
	for _, b := range n.blocks {
		if b.Hash() == hash {
			return b, nil
		}
	}
	return nil, fmt.Errorf("fakeNode: block %s not found", hash)
}

// fakeIndex is an in-memory index: a plain map of applied blocks plus
// the chain_state scalar fields, mirroring indexwriter.Writer's
// observable surface without any real storage underneath.
type fakeIndex struct {
	blocks        map[uint32]*primitives.Block
	syncHeight    uint32
	hasSync       bool
	checkpoint    uint32
	hasCheckpoint bool
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{blocks: make(map[uint32]*primitives.Block)}
}

func (f *fakeIndex) SyncHeight() (uint32, bool, error) { return f.syncHeight, f.hasSync, nil }

func (f *fakeIndex) HashAtHeight(height uint32) (common.Hash, bool, error) {
	b, ok := f.blocks[height]
	if !ok {
		return common.Hash{}, false, nil
	}
	return b.Hash(), true, nil
}

func (f *fakeIndex) SetSyncHeight(height uint32, tip common.Hash) error {
	f.syncHeight = height
	f.hasSync = true
	return nil
}

func (f *fakeIndex) ApplyBlock(block *primitives.Block, height uint32) error {
	f.blocks[height] = block
	if !f.hasSync || height > f.syncHeight {
		f.syncHeight = height
		f.hasSync = true
	}
	return nil
}

func (f *fakeIndex) RevertBlock(block *primitives.Block, height uint32, prevOutputs map[primitives.Outpoint]indexwriter.PrevOutputEntry) error {
	delete(f.blocks, height)
	if height > 0 {
		f.syncHeight = height - 1
	}
	f.hasSync = true
	return nil
}

func (f *fakeIndex) PrevOutputsForBlock(block *primitives.Block) (map[primitives.Outpoint]indexwriter.PrevOutputEntry, error) {
	return map[primitives.Outpoint]indexwriter.PrevOutputEntry{}, nil
}

func (f *fakeIndex) LoadBlock(height uint32) (*primitives.Block, error) {
	b, ok := f.blocks[height]
	if !ok {
		return nil, fmt.Errorf("fakeIndex: no block at height %d", height)
	}
	return b, nil
}

func (f *fakeIndex) PutReorgCheckpoint(forkHeight uint32) error {
	f.checkpoint = forkHeight
	f.hasCheckpoint = true
	return nil
}

func (f *fakeIndex) ReorgCheckpoint() (uint32, bool, error) {
	return f.checkpoint, f.hasCheckpoint, nil
}

func (f *fakeIndex) DeleteReorgCheckpoint() error {
	f.hasCheckpoint = false
	return nil
}

// buildChain returns n+1 blocks (heights 0..n) on a simple header
// chain distinguished by branch so two chains built with different
// branch values never collide on hash. genesisPrev seeds the genesis
// block's PrevBlock link; forkChain is what forks off an existing
// chain at a given ancestor.
func buildChain(n int, branch byte, genesisPrev common.Hash) []*primitives.Block {
	blocks := make([]*primitives.Block, n+1)
	prev := genesisPrev
	for h := 0; h <= n; h++ {
		header := &primitives.Header{
			Version:   int32(branch),
			PrevBlock: prev,
			Time:      uint32(h),
			Nonce:     uint32(branch)*1_000_000 + uint32(h),
		}
		blocks[h] = &primitives.Block{Header: header}
		prev = header.Hash()
	}
	return blocks
}

// forkChain shares base[0..at] verbatim then builds new blocks from
// at+1 through to on a distinct branch, simulating a chain that
// diverges from base at height at.
func forkChain(base []*primitives.Block, at, to int, branch byte) []*primitives.Block {
	chain := make([]*primitives.Block, to+1)
	copy(chain, base[:at+1])
	prev := base[at].Hash()
	for h := at + 1; h <= to; h++ {
		header := &primitives.Header{
			Version:   int32(branch),
			PrevBlock: prev,
			Time:      uint32(h),
			Nonce:     uint32(branch)*1_000_000 + uint32(h),
		}
		chain[h] = &primitives.Block{Header: header}
		prev = header.Hash()
	}
	return chain
}

func syncIndexTo(idx *fakeIndex, blocks []*primitives.Block, upTo int) {
	for h := 0; h <= upTo; h++ {
		idx.blocks[uint32(h)] = blocks[h]
	}
	idx.syncHeight = uint32(upTo)
	idx.hasSync = true
}

func TestController_SequentialCatchup(t *testing.T) {
	chain := buildChain(5, 1, common.Hash{})
	node := &fakeNode{blocks: chain}
	idx := newFakeIndex()
	syncIndexTo(idx, chain, 2)

	pub := notify.NewPublisher(8)
	events, unsub := pub.Subscribe()
	defer unsub()

	c := New(node, idx, pub, Config{SmallBatch: 50})
	require.NoError(t, c.poll(context.Background()))

	assert.Equal(t, uint32(5), idx.syncHeight)
	for h := 3; h <= 5; h++ {
		assert.Equal(t, chain[h].Hash(), idx.blocks[uint32(h)].Hash())
	}

	seen := map[uint32]bool{}
	for i := 0; i < 3; i++ {
		select {
		case ev := <-events:
			nb, ok := ev.(notify.NewBlock)
			require.True(t, ok)
			seen[nb.Height] = true
		default:
			t.Fatalf("expected a NewBlock event, got none at i=%d", i)
		}
	}
	assert.True(t, seen[3] && seen[4] && seen[5])
}

func TestController_BatchedCatchup(t *testing.T) {
	chain := buildChain(20, 1, common.Hash{})
	node := &fakeNode{blocks: chain}
	idx := newFakeIndex()
	syncIndexTo(idx, chain, 0)

	c := New(node, idx, nil, Config{SmallBatch: 2, LargeBatch: 3, Concurrency: 4})
	require.NoError(t, c.poll(context.Background()))

	assert.Equal(t, uint32(20), idx.syncHeight)
	for h := 0; h <= 20; h++ {
		require.Contains(t, idx.blocks, uint32(h))
		assert.Equal(t, chain[h].Hash(), idx.blocks[uint32(h)].Hash())
	}
}

func TestController_ReorgDetectedAndRepaired(t *testing.T) {
	oldChain := buildChain(5, 1, common.Hash{})
	idx := newFakeIndex()
	syncIndexTo(idx, oldChain, 5)

	// Fork at height 2: new chain replaces heights 3..5 and extends to 7.
	newChain := forkChain(oldChain, 2, 7, 2)
	node := &fakeNode{blocks: newChain}

	pub := notify.NewPublisher(8)
	events, unsub := pub.Subscribe()
	defer unsub()

	c := New(node, idx, pub, Config{SmallBatch: 50, ReorgMaxDepth: 10})
	require.NoError(t, c.poll(context.Background()))

	assert.Equal(t, uint32(7), idx.syncHeight)
	for h := 3; h <= 7; h++ {
		assert.Equal(t, newChain[h].Hash(), idx.blocks[uint32(h)].Hash(), "height %d should be on the new chain", h)
	}

	var gotReorg bool
	for {
		select {
		case ev := <-events:
			if rd, ok := ev.(notify.ReorgDetected); ok {
				gotReorg = true
				assert.Equal(t, uint64(3), rd.Depth)
				assert.Equal(t, oldChain[5].Hash(), rd.Old)
				assert.Equal(t, newChain[7].Hash(), rd.New)
			}
		default:
			goto done
		}
	}
done:
	assert.True(t, gotReorg, "expected a ReorgDetected notification")
}

func TestController_ResumesInterruptedRepairFromCheckpoint(t *testing.T) {
	oldChain := buildChain(5, 1, common.Hash{})
	idx := newFakeIndex()
	syncIndexTo(idx, oldChain, 5)

	newChain := forkChain(oldChain, 2, 7, 2)
	node := &fakeNode{blocks: newChain}

	// Simulate a crash mid-repair: the checkpoint was written but no
	// revert/replay happened yet, so the index is still fully on the
	// old chain.
	idx.checkpoint = 2
	idx.hasCheckpoint = true

	c := New(node, idx, nil, Config{SmallBatch: 50, ReorgMaxDepth: 10})
	require.NoError(t, c.poll(context.Background()))

	assert.False(t, idx.hasCheckpoint)
	assert.Equal(t, uint32(7), idx.syncHeight)
	for h := 3; h <= 7; h++ {
		assert.Equal(t, newChain[h].Hash(), idx.blocks[uint32(h)].Hash())
	}
}

func TestController_DeepReorgPausesSync(t *testing.T) {
	oldChain := buildChain(10, 1, common.Hash{})
	idx := newFakeIndex()
	syncIndexTo(idx, oldChain, 10)

	// Fork right after genesis: every height from 1..10 diverges, depth 10.
	newChain := forkChain(oldChain, 0, 10, 2)
	node := &fakeNode{blocks: newChain}

	c := New(node, idx, nil, Config{SmallBatch: 50, ReorgMaxDepth: 3})
	err := c.poll(context.Background())
	require.Error(t, err)

	var deepReorg *errs.DeepReorg
	assert.True(t, stderrors.As(err, &deepReorg))
	if deepReorg != nil {
		assert.Equal(t, uint64(3), deepReorg.Max)
	}
	// sync_height is untouched; the operator must intervene.
	assert.Equal(t, uint32(10), idx.syncHeight)
}

func TestController_RunStopsOnDeepReorg(t *testing.T) {
	oldChain := buildChain(3, 1, common.Hash{})
	idx := newFakeIndex()
	syncIndexTo(idx, oldChain, 3)

	newChain := forkChain(oldChain, 0, 3, 2)
	node := &fakeNode{blocks: newChain}

	c := New(node, idx, nil, Config{PollInterval: 5 * time.Millisecond, ReorgMaxDepth: 0})
	c.cfg.ReorgMaxDepth = 1

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := c.Run(ctx)
	require.Error(t, err)
	var deepReorg *errs.DeepReorg
	assert.True(t, stderrors.As(err, &deepReorg))
}

func TestController_RunRespectsCancellation(t *testing.T) {
	node := &fakeNode{blocks: buildChain(0, 1, common.Hash{})}
	idx := newFakeIndex()
	syncIndexTo(idx, node.blocks, 0)

	c := New(node, idx, nil, Config{PollInterval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestController_BackPressureHalvesBatchOnSustainedSlowApply(t *testing.T) {
	c := &Controller{cfg: Config{LargeBatch: 100}, curBatch: 100}
	for i := 0; i < slowApplyStreak; i++ {
		c.recordApplyLatency(slowApplyThreshold + time.Millisecond)
	}
	assert.Equal(t, uint32(50), c.curBatch)

	for i := 0; i < slowApplyStreak*10; i++ {
		c.recordApplyLatency(slowApplyThreshold + time.Millisecond)
	}
	assert.Equal(t, uint32(MinBatchSize), c.curBatch)
}

func TestController_BackPressureResetsOnFastApply(t *testing.T) {
	c := &Controller{cfg: Config{LargeBatch: 100}, curBatch: 100}
	for i := 0; i < slowApplyStreak-1; i++ {
		c.recordApplyLatency(slowApplyThreshold + time.Millisecond)
	}
	c.recordApplyLatency(time.Millisecond)
	assert.Equal(t, uint32(100), c.curBatch)
	assert.Equal(t, 0, c.slowStreak)
}
