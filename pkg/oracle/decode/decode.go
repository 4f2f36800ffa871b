// Package decode is the default decoder oracle: a linear-sweep x86-64
// disassembler paired with leader-based basic-block recovery, grounded on
// the pack's x86asm usage pattern and its leader/partition/successor CFG
// algorithm (see DESIGN.md).
package decode

import (
	"sort"

	"golang.org/x/arch/x86/x86asm"

	"github.com/volexity/gographer/pkg/cfg"
	"github.com/volexity/gographer/pkg/disasm"
)

// TextProvider supplies the raw executable-section bytes a binary
// carries, alongside the virtual address its first byte loads at. The
// default object-file oracle implements this in addition to
// disasm.SymbolTable.
type TextProvider interface {
	Text(raw []byte) (base uint64, data []byte, err error)
}

// Objects is what Oracle needs from the object-file layer: symbol
// addresses (to seed function boundaries) and the text section to sweep.
type Objects interface {
	disasm.SymbolTable
	TextProvider
}

// Oracle is the default disasm.Decoder: x86-64 only, function boundaries
// seeded from symbol-table entries, basic blocks recovered by the
// 3-pass leader algorithm.
type Oracle struct {
	objects Objects
}

func New(objects Objects) Oracle {
	return Oracle{objects: objects}
}

func (o Oracle) Disassemble(_ string, raw []byte) (map[uint64]disasm.Function, error) {
	base, text, err := o.objects.Text(raw)
	if err != nil {
		return nil, err
	}
	if len(text) == 0 {
		return map[uint64]disasm.Function{}, nil
	}

	symbols, err := o.objects.Symbols(raw)
	if err != nil {
		return nil, err
	}

	starts := make([]uint64, 0, len(symbols))
	for addr := range symbols {
		if addr >= base && addr < base+uint64(len(text)) {
			starts = append(starts, addr)
		}
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })

	end := base + uint64(len(text))
	functions := make(map[uint64]disasm.Function, len(starts))
	for i, start := range starts {
		funcEnd := end
		if i+1 < len(starts) {
			funcEnd = starts[i+1]
		}
		functions[start] = disassembleFunction(text, base, start, funcEnd)
	}

	return functions, nil
}

type decodedInst struct {
	addr uint64
	raw  []byte
	inst x86asm.Inst
	ok   bool
}

func disassembleFunction(text []byte, base, start, end uint64) disasm.Function {
	var insts []decodedInst
	for pc := start; pc < end; {
		off := pc - base
		inst, err := x86asm.Decode(text[off:min(uint64(len(text)), end-base)], 64)
		size := inst.Len
		ok := err == nil && size > 0
		if !ok {
			size = 1
		}
		insts = append(insts, decodedInst{addr: pc, raw: text[off : off+uint64(size)], inst: inst, ok: ok})
		pc += uint64(size)
	}

	return buildCFG(insts)
}

// buildCFG implements the leader/partition/successor 3-pass algorithm:
// find block leaders (entry, branch targets, post-terminator
// instructions), partition the instruction stream by leader index, then
// resolve each block's out-edges from its last instruction.
func buildCFG(insts []decodedInst) disasm.Function {
	fn := disasm.Function{
		Blocks: map[uint64][]cfg.Instruction{},
		Edges:  map[uint64][]uint64{},
	}
	if len(insts) == 0 {
		return fn
	}

	addrToIdx := make(map[uint64]int, len(insts))
	for i, in := range insts {
		addrToIdx[in.addr] = i
	}

	leaders := map[int]bool{0: true}
	for i, in := range insts {
		br := classify(in)
		if br == nil {
			continue
		}
		if i+1 < len(insts) {
			leaders[i+1] = true
		}
		if !br.isRet && !br.indirect {
			if idx, ok := addrToIdx[br.target]; ok {
				leaders[idx] = true
			}
		}
	}

	sorted := make([]int, 0, len(leaders))
	for idx := range leaders {
		sorted = append(sorted, idx)
	}
	sort.Ints(sorted)

	leaderToOffset := make(map[int]uint64, len(sorted))
	for i, idx := range sorted {
		blockEnd := len(insts)
		if i+1 < len(sorted) {
			blockEnd = sorted[i+1]
		}
		offset := insts[idx].addr
		leaderToOffset[idx] = offset

		block := make([]cfg.Instruction, 0, blockEnd-idx)
		for _, in := range insts[idx:blockEnd] {
			block = append(block, cfg.Instruction{Bytes: in.raw})
		}
		fn.Blocks[offset] = block
	}

	for i, idx := range sorted {
		blockEnd := len(insts)
		if i+1 < len(sorted) {
			blockEnd = sorted[i+1]
		}
		if blockEnd <= idx {
			continue
		}
		last := insts[blockEnd-1]
		srcOffset := leaderToOffset[idx]

		br := classify(last)
		if br == nil {
			if nextIdx, ok := indexOf(sorted, blockEnd); ok {
				fn.Edges[srcOffset] = append(fn.Edges[srcOffset], leaderToOffset[sorted[nextIdx]])
			}
			continue
		}
		if br.isRet {
			continue
		}

		if !br.indirect {
			if targetIdx, ok := addrToIdx[br.target]; ok {
				if leaderIdx, ok := indexOf(sorted, targetIdx); ok {
					fn.Edges[srcOffset] = append(fn.Edges[srcOffset], leaderToOffset[sorted[leaderIdx]])
				}
			}
		}
		if br.conditional {
			if nextIdx, ok := indexOf(sorted, blockEnd); ok {
				fn.Edges[srcOffset] = append(fn.Edges[srcOffset], leaderToOffset[sorted[nextIdx]])
			}
		}
	}

	return fn
}

func indexOf(sorted []int, v int) (int, bool) {
	i := sort.SearchInts(sorted, v)
	if i < len(sorted) && sorted[i] == v {
		return i, true
	}
	return 0, false
}

type branch struct {
	target      uint64
	isRet       bool
	conditional bool
	indirect    bool
}

func classify(in decodedInst) *branch {
	if !in.ok {
		return nil
	}
	switch in.inst.Op {
	case x86asm.RET, x86asm.LRET:
		return &branch{isRet: true}
	case x86asm.JMP:
		return branchTarget(in, false)
	case x86asm.CALL:
		return nil
	case x86asm.JA, x86asm.JAE, x86asm.JB, x86asm.JBE, x86asm.JCXZ, x86asm.JE,
		x86asm.JECXZ, x86asm.JG, x86asm.JGE, x86asm.JL, x86asm.JLE, x86asm.JNE,
		x86asm.JNO, x86asm.JNP, x86asm.JNS, x86asm.JO, x86asm.JP, x86asm.JRCXZ,
		x86asm.JS, x86asm.LOOP, x86asm.LOOPE, x86asm.LOOPNE, x86asm.XBEGIN:
		return branchTarget(in, true)
	default:
		return nil
	}
}

func branchTarget(in decodedInst, conditional bool) *branch {
	if in.inst.Args[0] == nil {
		return &branch{conditional: conditional, indirect: true}
	}
	rel, ok := in.inst.Args[0].(x86asm.Rel)
	if !ok {
		return &branch{conditional: conditional, indirect: true}
	}
	target := uint64(int64(in.addr) + int64(in.inst.Len) + int64(rel))
	return &branch{target: target, conditional: conditional}
}
