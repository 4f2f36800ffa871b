package grapher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/volexity/gographer/pkg/cfg"
	"github.com/volexity/gographer/pkg/disasm"
)

type stubDecoder struct {
	functions map[string]map[uint64]disasm.Function
	err       error
}

func (d stubDecoder) Disassemble(path string, _ []byte) (map[uint64]disasm.Function, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.functions[filepath.Base(path)], nil
}

type stubSymbols struct{}

func (stubSymbols) Symbols([]byte) (map[uint64]string, error) { return map[uint64]string{}, nil }

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func singleBlockFunc(bytes ...byte) disasm.Function {
	instrs := make([]cfg.Instruction, len(bytes))
	for i, b := range bytes {
		instrs[i] = cfg.Instruction{Bytes: []byte{b}}
	}
	return disasm.Function{
		Blocks: map[uint64][]cfg.Instruction{0: instrs},
		Edges:  map[uint64][]uint64{},
	}
}

func TestGenerateGraphsAppliesLabels(t *testing.T) {
	dir := t.TempDir()
	aPath := writeFile(t, dir, "a.bin")
	bPath := writeFile(t, dir, "b.bin")

	decoder := stubDecoder{functions: map[string]map[uint64]disasm.Function{
		"a.bin": {0: singleBlockFunc(0x01)},
		"b.bin": {0: singleBlockFunc(0x02)},
	}}

	g := Grapher{Threshold: 0, Decoder: decoder, Symbols: stubSymbols{}}
	results, err := g.GenerateGraphs(context.Background(), []Labeled{
		{Label: "alpha", Path: aPath},
		{Label: "beta", Path: bPath},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 disassemblies, got %d", len(results))
	}

	byLabel := map[string]disasm.Disassembly{}
	for _, d := range results {
		byLabel[d.Name] = d
	}
	if _, ok := byLabel["alpha"]; !ok {
		t.Fatalf("expected a disassembly labeled alpha, got %+v", byLabel)
	}
	if _, ok := byLabel["beta"]; !ok {
		t.Fatalf("expected a disassembly labeled beta, got %+v", byLabel)
	}
}

func TestGenerateGraphsPropagatesUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.bin")

	decoder := stubDecoder{err: disasm.ErrUnsupportedBinaryFormat}
	g := Grapher{Threshold: 0, Decoder: decoder, Symbols: stubSymbols{}}

	_, err := g.GenerateGraphs(context.Background(), []Labeled{{Label: "a", Path: path}})
	if err == nil {
		t.Fatal("expected an error")
	}
	var unsupported *disasm.UnsupportedFormatError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedFormatError, got %v (%T)", err, err)
	}
}

func TestCompareIncludesSelfMatchBaseline(t *testing.T) {
	sample := disasm.Disassembly{Name: "sample", Graphs: []cfg.ControlFlowGraph{
		cfg.NewControlFlowGraph("f", 0, []cfg.BasicBlock{cfg.NewBasicBlock(0, []cfg.Instruction{{Bytes: []byte{0x01}}})}),
	}}

	g := Grapher{Threshold: 0}
	r, err := g.Compare(context.Background(), sample, []disasm.Disassembly{sample})
	if err != nil {
		t.Fatal(err)
	}
	if r.SampleName != "sample" {
		t.Fatalf("expected sample_name 'sample', got %q", r.SampleName)
	}
	if len(r.Matches) != 1 {
		t.Fatalf("expected 1 binary match, got %d", len(r.Matches))
	}
	if r.Matches[0].Similarity != 1.0 {
		t.Fatalf("expected self-match similarity 1.0, got %v", r.Matches[0].Similarity)
	}
}

func TestCompareHonoursThreshold(t *testing.T) {
	sample := disasm.Disassembly{Name: "sample", Graphs: []cfg.ControlFlowGraph{
		cfg.NewControlFlowGraph("f", 0, []cfg.BasicBlock{cfg.NewBasicBlock(0, []cfg.Instruction{{Bytes: []byte{0x01}}})}),
	}}
	unrelated := disasm.Disassembly{Name: "unrelated", Graphs: []cfg.ControlFlowGraph{
		cfg.NewControlFlowGraph("g", 0, []cfg.BasicBlock{cfg.NewBasicBlock(0, []cfg.Instruction{{Bytes: []byte{0xFF}}})}),
	}}

	g := Grapher{Threshold: 0.99}
	r, err := g.Compare(context.Background(), sample, []disasm.Disassembly{unrelated})
	if err != nil {
		t.Fatal(err)
	}
	if !r.Matches[0].IsEmpty() {
		t.Fatalf("expected no matches above threshold, got %+v", r.Matches[0])
	}
}
