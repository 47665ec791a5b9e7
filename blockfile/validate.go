package blockfile

import (
	"fmt"
	"time"

	"github.com/pivx-project/pivx-indexer/common"
	"github.com/pivx-project/pivx-indexer/primitives"
)

// DefaultClockSkewTolerance is the slack allowed when checking a
// block's timestamp against its predecessor's (spec §4.2 "2h").
const DefaultClockSkewTolerance = 2 * time.Hour

// ValidateBlock applies spec §4.2's per-block checks. prev is the
// previously validated block on the plan, or nil for the first entry
// (genesis never has a predecessor to check against).
func ValidateBlock(block *primitives.Block, wantHash common.Hash, prev *primitives.Block, clockSkew time.Duration) error {
	if len(block.Transactions) < 1 {
		return fmt.Errorf("blockfile: block %s has no transactions", wantHash)
	}
	if block.Hash() != wantHash {
		return fmt.Errorf("blockfile: block hash %s does not match plan hash %s", block.Hash(), wantHash)
	}
	if prev == nil {
		return nil
	}
	if block.Header.PrevBlock != prev.Hash() {
		return fmt.Errorf("blockfile: block %s does not chain from %s", wantHash, prev.Hash())
	}
	floor := int64(prev.Header.Time) - int64(clockSkew/time.Second)
	if int64(block.Header.Time) <= floor {
		return fmt.Errorf("blockfile: block %s time %d is not after %d (prev %d minus skew tolerance)",
			wantHash, block.Header.Time, floor, prev.Header.Time)
	}
	return nil
}
