package disasm

import (
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/volexity/gographer/pkg/cfg"
)

type fakeDecoder struct {
	functions map[uint64]Function
	err       error
}

func (f fakeDecoder) Disassemble(string, []byte) (map[uint64]Function, error) {
	return f.functions, f.err
}

type fakeSymbols struct {
	names map[uint64]string
	err   error
}

func (f fakeSymbols) Symbols([]byte) (map[uint64]string, error) {
	return f.names, f.err
}

func writeTempFile(t *testing.T, contents []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.bin")
	if err := os.WriteFile(path, contents, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewBuildsSortedGraphsAndResolvesNames(t *testing.T) {
	path := writeTempFile(t, []byte("ignored"))

	decoder := fakeDecoder{functions: map[uint64]Function{
		0x20: {
			Blocks: map[uint64][]cfg.Instruction{0x20: {{Bytes: []byte{0x90}}}},
			Edges:  map[uint64][]uint64{},
		},
		0x10: {
			Blocks: map[uint64][]cfg.Instruction{
				0x10: {{Bytes: []byte{0xC3}}},
				0x12: {{Bytes: []byte{0xC3}}},
			},
			Edges: map[uint64][]uint64{0x10: {0x12}},
		},
	}}
	symbols := fakeSymbols{names: map[uint64]string{0x10: "main.f"}}

	d, err := New(path, decoder, symbols)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(d.Graphs) != 2 {
		t.Fatalf("expected 2 graphs, got %d", len(d.Graphs))
	}
	if d.Graphs[0].Offset != 0x10 || d.Graphs[1].Offset != 0x20 {
		t.Fatalf("graphs not offset-sorted: %+v", d.Graphs)
	}
	if d.Graphs[0].Name != "main.f" {
		t.Fatalf("expected resolved name, got %q", d.Graphs[0].Name)
	}
	if d.Graphs[1].Name != "" {
		t.Fatalf("expected empty name for unresolved symbol, got %q", d.Graphs[1].Name)
	}

	b0, b1 := d.Graphs[0].Blocks[0], d.Graphs[0].Blocks[1]
	if len(b0.OutRefs) != 1 || b0.OutRefs[0] != 1 {
		t.Fatalf("expected block 0 -> block 1 out-ref, got %+v", b0.OutRefs)
	}
	if len(b1.InRefs) != 1 || b1.InRefs[0] != 0 {
		t.Fatalf("expected block 1 in-ref from block 0, got %+v", b1.InRefs)
	}
}

func TestNewSurfacesUnsupportedFormat(t *testing.T) {
	path := writeTempFile(t, []byte("ignored"))
	decoder := fakeDecoder{err: ErrUnsupportedBinaryFormat}
	symbols := fakeSymbols{names: map[uint64]string{}}

	_, err := New(path, decoder, symbols)
	if err == nil {
		t.Fatal("expected an error")
	}
	var unsupported *UnsupportedFormatError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedFormatError, got %v (%T)", err, err)
	}
	if !errors.Is(err, ErrUnsupportedBinaryFormat) {
		t.Fatalf("expected errors.Is to unwrap to ErrUnsupportedBinaryFormat")
	}
}

func TestNewSurfacesUnsupportedFormatFromSymbolTable(t *testing.T) {
	path := writeTempFile(t, []byte("ignored"))
	decoder := fakeDecoder{functions: map[uint64]Function{}}
	symbols := fakeSymbols{err: ErrUnsupportedBinaryFormat}

	_, err := New(path, decoder, symbols)
	if err == nil {
		t.Fatal("expected an error")
	}
	var unsupported *UnsupportedFormatError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedFormatError, got %v (%T)", err, err)
	}
	if !errors.Is(err, ErrUnsupportedBinaryFormat) {
		t.Fatalf("expected errors.Is to unwrap to ErrUnsupportedBinaryFormat")
	}
}

func TestFilterSymbol(t *testing.T) {
	d := Disassembly{Graphs: []cfg.ControlFlowGraph{
		{Name: "main.a"},
		{Name: "runtime.b"},
		{Name: "main.c"},
	}}

	got, err := d.FilterSymbol(`^main\.`)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Graphs) != 2 || got.Graphs[0].Name != "main.a" || got.Graphs[1].Name != "main.c" {
		t.Fatalf("unexpected filter result: %+v", got.Graphs)
	}
}

func TestSubsetBound(t *testing.T) {
	graphs := make([]cfg.ControlFlowGraph, 10)
	for i := range graphs {
		graphs[i] = cfg.ControlFlowGraph{Offset: uint64(i)}
	}
	d := Disassembly{Graphs: graphs}

	rng := rand.New(rand.NewPCG(1, 2))
	got := d.Subset(0.3, rng)
	if len(got.Graphs) != 3 {
		t.Fatalf("expected 3 graphs (floor(10*0.3)), got %d", len(got.Graphs))
	}

	seen := make(map[uint64]bool, len(graphs))
	for _, g := range graphs {
		seen[g.Offset] = true
	}
	for _, g := range got.Graphs {
		if !seen[g.Offset] {
			t.Fatalf("subset member %+v not in original set", g)
		}
	}
}

func TestSubsetClampsRatio(t *testing.T) {
	graphs := make([]cfg.ControlFlowGraph, 4)
	d := Disassembly{Graphs: graphs}

	if got := d.Subset(-1, nil); len(got.Graphs) != 0 {
		t.Fatalf("expected 0 graphs for negative ratio, got %d", len(got.Graphs))
	}
	if got := d.Subset(2, nil); len(got.Graphs) != 4 {
		t.Fatalf("expected all graphs for ratio > 1, got %d", len(got.Graphs))
	}
}
