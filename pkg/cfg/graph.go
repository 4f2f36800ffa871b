package cfg

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// ControlFlowGraph is the CFG of a single function: its resolved name (or
// empty if unresolved), entry offset, and its basic blocks sorted
// ascending by Offset. Hash fingerprints the concatenation of every
// block's Hash in block order; the similarity kernel treats two graphs
// with equal Hash as identical without further comparison.
type ControlFlowGraph struct {
	Name   string
	Offset uint64
	Blocks []BasicBlock
	Hash   uint64
}

// NewControlFlowGraph builds a graph from its already-edge-resolved,
// offset-sorted blocks, computing the graph fingerprint eagerly so that by
// the time a ControlFlowGraph escapes into the orchestrator its Hash is
// already canonical.
func NewControlFlowGraph(name string, offset uint64, blocks []BasicBlock) ControlFlowGraph {
	return ControlFlowGraph{
		Name:   name,
		Offset: offset,
		Blocks: blocks,
		Hash:   hashBlocks(blocks),
	}
}

func (g ControlFlowGraph) String() string {
	return fmt.Sprintf("%s@%#x[%d blocks]", g.Name, g.Offset, len(g.Blocks))
}

func hashBlocks(blocks []BasicBlock) uint64 {
	h := xxhash.NewWithSeed(FingerprintSeed)
	var buf [8]byte
	for _, b := range blocks {
		binary.NativeEndian.PutUint64(buf[:], b.Hash)
		h.Write(buf[:])
	}
	return h.Sum64()
}
