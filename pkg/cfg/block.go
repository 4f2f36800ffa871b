package cfg

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// FingerprintSeed is the seed used for every block- and graph-level
// fingerprint. It has no security meaning; it only needs to be fixed so
// that two builds of the same binary hash identically.
const FingerprintSeed = 0x1337

// BasicBlock is a maximal straight-line run of instructions with a single
// entry and a single exit. Offset is the address relative to the code
// segment. InRefs/OutRefs are indices into the enclosing ControlFlowGraph's
// Blocks slice and are mutual duals: j is in i.OutRefs iff i is in
// j.InRefs.
type BasicBlock struct {
	Offset       uint64
	Instructions []Instruction
	InRefs       []int
	OutRefs      []int
	Hash         uint64
}

// NewBasicBlock builds a block from its offset and instructions, computing
// its fingerprint eagerly. Edges (InRefs/OutRefs) are filled in by the
// caller once the full block vector (and therefore block indices) is
// known — see pkg/disasm.
func NewBasicBlock(offset uint64, instructions []Instruction) BasicBlock {
	return BasicBlock{
		Offset:       offset,
		Instructions: instructions,
		Hash:         hashInstructions(instructions),
	}
}

func (b BasicBlock) String() string {
	return fmt.Sprintf("block@%#x[%d instrs, %d in, %d out]", b.Offset, len(b.Instructions), len(b.InRefs), len(b.OutRefs))
}

func hashInstructions(instructions []Instruction) uint64 {
	h := xxhash.NewWithSeed(FingerprintSeed)
	for _, ins := range instructions {
		h.Write(ins.Bytes)
	}
	return h.Sum64()
}
