package nodeindex

import (
	"math/big"

	"github.com/pborman/uuid"

	"github.com/pivx-project/pivx-indexer/common"
	"github.com/pivx-project/pivx-indexer/errs"
	"github.com/pivx-project/pivx-indexer/primitives"
)

// HeaderNode is one vertex of the in-memory header DAG (spec §4.1
// step 1).
type HeaderNode struct {
	Hash   common.Hash
	Prev   common.Hash
	Bits   uint32
	File   uint16
	Offset uint64
	Length uint32

	chainwork *big.Int
	visited   bool
	visiting  bool
}

// PlanEntry is one row of the canonical plan (spec §3 "Canonical plan
// entry").
type PlanEntry struct {
	Height uint32
	Hash   common.Hash
	Work   *big.Int
	File   uint16
	Offset uint64
	Length uint32
}

// Result is everything a Resolve call produces: the canonical plan in
// ascending height order, and the set of hashes present in the node's
// index but not on the winning branch, including any not reachable
// from genesis at all (spec §4.1 "Guarantees": "orphans...
// informational; not persisted").
type Result struct {
	RunID   string
	Plan    []PlanEntry
	Orphans []common.Hash
}

// Resolve runs the Header Resolver algorithm (spec §4.1 steps 1-5)
// over records already read from the node's index snapshot.
func Resolve(records []*Record, genesis common.Hash) (*Result, error) {
	runID := uuid.New()
	log := logger.NewWith("run", runID)

	nodes := make(map[common.Hash]*HeaderNode, len(records))
	for _, r := range records {
		nodes[r.Hash] = &HeaderNode{
			Hash: r.Hash, Prev: r.Prev, Bits: r.Bits,
			File: r.File, Offset: r.Offset, Length: r.Length,
		}
	}

	genesisNode, ok := nodes[genesis]
	if !ok {
		return nil, errs.NewCorruptIndex("genesis hash absent from node index")
	}

	if err := assignChainwork(genesisNode, nodes); err != nil {
		return nil, err
	}

	tip := selectTip(nodes)
	if tip == nil {
		return nil, errs.NewCorruptIndex("no reachable node carries chainwork")
	}

	plan, err := walkPlan(tip, genesis, nodes)
	if err != nil {
		return nil, err
	}

	onPlan := make(map[common.Hash]bool, len(plan))
	for _, e := range plan {
		onPlan[e.Hash] = true
	}
	var orphans []common.Hash
	for hash := range nodes {
		if !onPlan[hash] {
			orphans = append(orphans, hash)
		}
	}

	log.Info("resolved canonical plan", "height", len(plan)-1, "orphans", len(orphans))
	return &Result{RunID: runID, Plan: plan, Orphans: orphans}, nil
}

// assignChainwork computes chainwork for every node reachable from
// genesis, detecting missing parents and cycles along the way (spec
// §4.1 steps 2-3, "Failure").
func assignChainwork(genesisNode *HeaderNode, nodes map[common.Hash]*HeaderNode) error {
	genesisNode.chainwork = primitives.WorkFromBits(genesisNode.Bits)
	genesisNode.visited = true

	// Build the children index (prev -> direct children) so genesis-
	// rooted chainwork can be propagated forward without recursion
	// depth limits on very long chains.
	children := make(map[common.Hash][]*HeaderNode)
	for _, n := range nodes {
		if n.Hash == genesisNode.Hash {
			continue
		}
		children[n.Prev] = append(children[n.Prev], n)
	}

	queue := []*HeaderNode{genesisNode}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, child := range children[cur.Hash] {
			if child.visited {
				return errs.NewCorruptIndex("cycle detected reaching hash " + child.Hash.String())
			}
			child.chainwork = new(big.Int).Add(cur.chainwork, primitives.WorkFromBits(child.Bits))
			child.visited = true
			queue = append(queue, child)
		}
	}

	for _, n := range nodes {
		if n.visited {
			continue
		}
		if _, ok := nodes[n.Prev]; !ok && n.Hash != genesisNode.Hash {
			return errs.NewCorruptIndex("missing prev for hash " + n.Hash.String())
		}
	}
	return nil
}

// selectTip returns the visited node with maximum chainwork, breaking
// ties by numerically smaller hash (spec §4.1 step 4).
func selectTip(nodes map[common.Hash]*HeaderNode) *HeaderNode {
	var tip *HeaderNode
	for _, n := range nodes {
		if !n.visited {
			continue
		}
		if tip == nil {
			tip = n
			continue
		}
		cmp := n.chainwork.Cmp(tip.chainwork)
		if cmp > 0 || (cmp == 0 && n.Hash.Less(tip.Hash)) {
			tip = n
		}
	}
	return tip
}

// walkPlan walks back from tip via Prev until it reaches genesis, then
// reverses into ascending height order (spec §4.1 step 5).
func walkPlan(tip *HeaderNode, genesis common.Hash, nodes map[common.Hash]*HeaderNode) ([]PlanEntry, error) {
	var reversed []PlanEntry
	cur := tip
	for {
		reversed = append(reversed, PlanEntry{
			Hash: cur.Hash, Work: cur.chainwork,
			File: cur.File, Offset: cur.Offset, Length: cur.Length,
		})
		if cur.Hash == genesis {
			break
		}
		prev, ok := nodes[cur.Prev]
		if !ok {
			return nil, errs.NewCorruptIndex("missing prev while walking plan from " + cur.Hash.String())
		}
		cur = prev
	}

	plan := make([]PlanEntry, len(reversed))
	for i, e := range reversed {
		e.Height = uint32(len(reversed) - 1 - i)
		plan[len(reversed)-1-i] = e
	}
	return plan, nil
}
