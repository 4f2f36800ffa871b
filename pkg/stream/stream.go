// Package stream provides a lazy, allocation-free view over a sequence of
// basic blocks, used by the similarity kernel to flatten a block (or a
// block's neighbourhood) into an instruction-by-instruction walk without
// copying anything.
package stream

import "github.com/volexity/gographer/pkg/cfg"

// Instructions is a cursor-style view over blocks[indices[0]],
// blocks[indices[1]], ... in order. It borrows both slices and never
// copies an instruction.
type Instructions struct {
	blocks  []cfg.BasicBlock
	indices []int
}

// New creates a view over the given blocks, visiting only those listed in
// indices, in the order given.
func New(blocks []cfg.BasicBlock, indices []int) Instructions {
	return Instructions{blocks: blocks, indices: indices}
}

// Len returns the total instruction count across every listed block.
func (s Instructions) Len() int {
	n := 0
	for _, i := range s.indices {
		n += len(s.blocks[i].Instructions)
	}
	return n
}

// Each calls fn for every instruction in block order then instruction
// order, stopping early if fn returns false.
func (s Instructions) Each(fn func(ins cfg.Instruction) bool) {
	for _, i := range s.indices {
		for _, ins := range s.blocks[i].Instructions {
			if !fn(ins) {
				return
			}
		}
	}
}
