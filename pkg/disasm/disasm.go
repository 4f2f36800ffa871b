// Package disasm builds a Disassembly — the set of named control-flow
// graphs recovered from one binary — by combining a decoder oracle and a
// symbol-table oracle. It also implements Disassembly.FilterSymbol and
// Disassembly.Subset.
package disasm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/volexity/gographer/pkg/cfg"
)

// ErrUnsupportedBinaryFormat is returned when the decoder oracle cannot
// recognise the input container format. It is the one recoverable error
// in the pipeline; every other oracle failure is a programmer-contract
// violation and panics (spec.md §7).
var ErrUnsupportedBinaryFormat = errors.New("unsupported binary format")

// UnsupportedFormatError wraps ErrUnsupportedBinaryFormat with the sample
// path that failed, so callers can report it and `errors.Is` still works.
type UnsupportedFormatError struct {
	Sample string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported binary format for sample %q", e.Sample)
}

func (e *UnsupportedFormatError) Unwrap() error { return ErrUnsupportedBinaryFormat }

// Function is the decoder oracle's view of one discovered function: its
// basic blocks keyed by offset, and the out-edges between block offsets.
type Function struct {
	Blocks map[uint64][]cfg.Instruction
	Edges  map[uint64][]uint64
}

// Decoder is the decoder oracle (spec.md §6): given a path (for
// diagnostics) and the raw file bytes, it returns every function it
// discovered, keyed by entry offset, or ErrUnsupportedBinaryFormat if the
// container isn't recognised. Any other error is treated as fatal by
// callers.
type Decoder interface {
	Disassemble(path string, raw []byte) (map[uint64]Function, error)
}

// SymbolTable is the object-file oracle (spec.md §6): it maps function
// entry addresses to resolved symbol names.
type SymbolTable interface {
	Symbols(raw []byte) (map[uint64]string, error)
}

// Disassembly is the full set of control-flow graphs recovered from one
// binary, sorted ascending by offset.
type Disassembly struct {
	Name   string
	Path   string
	Graphs []cfg.ControlFlowGraph
}

func (d Disassembly) String() string {
	return fmt.Sprintf("%s[%d graphs]", d.Name, len(d.Graphs))
}

// New disassembles the file at path using the given oracles. On an
// unsupported format it returns an *UnsupportedFormatError. On any other
// oracle failure — a malformed edge table, an unreadable file, or a
// symbol-extraction failure — it panics: these
// indicate a broken oracle contract, not a user error (spec.md §7).
func New(path string, decoder Decoder, symbols SymbolTable) (Disassembly, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		panic(fmt.Sprintf("disasm: could not read %q: %v", path, err))
	}

	symbolTable, err := symbols.Symbols(raw)
	if err != nil {
		if errors.Is(err, ErrUnsupportedBinaryFormat) {
			return Disassembly{}, &UnsupportedFormatError{Sample: path}
		}
		panic(fmt.Sprintf("disasm: symbol extraction failed for %q: %v", path, err))
	}

	functions, err := decoder.Disassemble(path, raw)
	if err != nil {
		if errors.Is(err, ErrUnsupportedBinaryFormat) {
			return Disassembly{}, &UnsupportedFormatError{Sample: path}
		}
		panic(fmt.Sprintf("disasm: decoder failed for %q: %v", path, err))
	}

	graphs := make([]cfg.ControlFlowGraph, 0, len(functions))
	for entry, fn := range functions {
		graphs = append(graphs, buildGraph(symbolTable[entry], entry, fn))
	}
	sort.Slice(graphs, func(i, j int) bool { return graphs[i].Offset < graphs[j].Offset })

	return Disassembly{
		Name:   filepath.Base(path),
		Path:   path,
		Graphs: graphs,
	}, nil
}

func buildGraph(name string, entry uint64, fn Function) cfg.ControlFlowGraph {
	blocks := make([]cfg.BasicBlock, 0, len(fn.Blocks))
	for offset, instructions := range fn.Blocks {
		blocks = append(blocks, cfg.NewBasicBlock(offset, instructions))
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Offset < blocks[j].Offset })

	blockIndex := make(map[uint64]int, len(blocks))
	for i, b := range blocks {
		blockIndex[b.Offset] = i
	}

	for srcOffset, dstOffsets := range fn.Edges {
		srcIndex, ok := blockIndex[srcOffset]
		if !ok {
			panic(fmt.Sprintf("disasm: decoder/core disagreement: edge source offset %#x not among blocks", srcOffset))
		}
		for _, dstOffset := range dstOffsets {
			dstIndex, ok := blockIndex[dstOffset]
			if !ok {
				panic(fmt.Sprintf("disasm: decoder/core disagreement: edge target offset %#x not among blocks", dstOffset))
			}
			blocks[srcIndex].OutRefs = append(blocks[srcIndex].OutRefs, dstIndex)
			blocks[dstIndex].InRefs = append(blocks[dstIndex].InRefs, srcIndex)
		}
	}

	return cfg.NewControlFlowGraph(name, entry, blocks)
}
