package nodeindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pivx-project/pivx-indexer/common"
)

func h(b byte) common.Hash { return common.BytesToHash([]byte{b}) }

func TestResolve_LinearChain(t *testing.T) {
	genesis := h(1)
	records := []*Record{
		{Hash: genesis, Prev: common.Hash{}, Bits: 0x1e0ffff0},
		{Hash: h(2), Prev: genesis, Bits: 0x1e0ffff0},
		{Hash: h(3), Prev: h(2), Bits: 0x1e0ffff0},
	}

	result, err := Resolve(records, genesis)
	require.NoError(t, err)
	require.Len(t, result.Plan, 3)
	assert.Equal(t, uint32(0), result.Plan[0].Height)
	assert.Equal(t, genesis, result.Plan[0].Hash)
	assert.Equal(t, uint32(2), result.Plan[2].Height)
	assert.Equal(t, h(3), result.Plan[2].Hash)
	assert.Empty(t, result.Orphans)
}

func TestResolve_PrefersHigherChainworkBranch(t *testing.T) {
	genesis := h(1)
	records := []*Record{
		{Hash: genesis, Prev: common.Hash{}, Bits: 0x1e0ffff0},
		{Hash: h(2), Prev: genesis, Bits: 0x1e0ffff0},
		// Competing branch off genesis with two blocks of harder
		// difficulty (smaller bits exponent/mantissa => more work).
		{Hash: h(10), Prev: genesis, Bits: 0x1c00ffff},
		{Hash: h(11), Prev: h(10), Bits: 0x1c00ffff},
	}

	result, err := Resolve(records, genesis)
	require.NoError(t, err)
	require.Len(t, result.Plan, 3)
	assert.Equal(t, h(11), result.Plan[2].Hash)
	require.Len(t, result.Orphans, 1)
	assert.Equal(t, h(2), result.Orphans[0])
}

func TestResolve_TieBreaksOnSmallerHash(t *testing.T) {
	genesis := h(1)
	records := []*Record{
		{Hash: genesis, Prev: common.Hash{}, Bits: 0x1e0ffff0},
		{Hash: h(0xFF), Prev: genesis, Bits: 0x1e0ffff0},
		{Hash: h(0x02), Prev: genesis, Bits: 0x1e0ffff0},
	}

	result, err := Resolve(records, genesis)
	require.NoError(t, err)
	require.Len(t, result.Plan, 2)
	assert.Equal(t, h(0x02), result.Plan[1].Hash)
}

func TestResolve_MissingGenesisIsCorruptIndex(t *testing.T) {
	records := []*Record{{Hash: h(2), Prev: h(1), Bits: 0x1e0ffff0}}
	_, err := Resolve(records, h(1))
	assert.Error(t, err)
}

func TestResolve_DanglingPrevIsCorruptIndex(t *testing.T) {
	genesis := h(1)
	records := []*Record{
		{Hash: genesis, Prev: common.Hash{}, Bits: 0x1e0ffff0},
		{Hash: h(2), Prev: genesis, Bits: 0x1e0ffff0},
		// h(5) references a prev that's absent from the snapshot
		// entirely, rather than merely unreached from genesis.
		{Hash: h(5), Prev: h(99), Bits: 0x1e0ffff0},
	}
	_, err := Resolve(records, genesis)
	assert.Error(t, err)
}
