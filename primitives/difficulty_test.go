package primitives

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTargetFromBits(t *testing.T) {
	// 0x1d00ffff is Bitcoin's well-known genesis difficulty encoding;
	// used here only as a known-good vector for the compact-bits math,
	// not as a claim about this chain's genesis.
	target := TargetFromBits(0x1d00ffff)
	assert.Equal(t, "ffff0000000000000000000000000000000000000000000000000000", target.Text(16))
}

func TestTargetFromBits_NegativeEncodingIsZero(t *testing.T) {
	target := TargetFromBits(0x01800001)
	assert.Equal(t, int64(0), target.Int64())
}

func TestWorkFromBits_HigherDifficultyMeansMoreWork(t *testing.T) {
	easy := WorkFromBits(0x1d00ffff)
	hard := WorkFromBits(0x1c00ffff)
	assert.True(t, hard.Cmp(easy) > 0, "a lower target (harder) must contribute more work")
}

func TestWorkFromBits_ZeroTarget(t *testing.T) {
	work := WorkFromBits(0x01800001)
	assert.Equal(t, int64(0), work.Int64())
}
