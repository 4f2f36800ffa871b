// Package grapher orchestrates disassembly generation and comparison
// across many binaries concurrently, aggregating into a CompareReport.
package grapher

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/schollz/progressbar/v3"

	"github.com/volexity/gographer/pkg/cfg"
	"github.com/volexity/gographer/pkg/disasm"
	"github.com/volexity/gographer/pkg/matcher"
	"github.com/volexity/gographer/pkg/report"
)

// Labeled is one input to GenerateGraphs: a path to disassemble and the
// label its resulting Disassembly.Name should carry, overriding whatever
// name New derives from the file path.
type Labeled struct {
	Label string
	Path  string
}

// Grapher holds the tunables shared across a run: the match threshold and
// the oracles used to build disassemblies.
type Grapher struct {
	Threshold    float32
	Decoder      disasm.Decoder
	Symbols      disasm.SymbolTable
	ShowProgress bool
}

// GenerateGraphs builds a Disassembly for each item in parallel. On the
// first ErrUnsupportedBinaryFormat the whole batch is aborted and that
// error returned; any other decoder failure panics inside disasm.New and
// propagates as an errgroup panic (spec.md §4.F, §7). Output ordering is
// arbitrary — callers must look entries up by Name, never by position.
func (g Grapher) GenerateGraphs(ctx context.Context, items []Labeled) ([]disasm.Disassembly, error) {
	group, ctx := errgroup.WithContext(ctx)

	var bar *progressbar.ProgressBar
	if g.ShowProgress {
		bar = progressbar.Default(int64(len(items)), "disassembling")
	}

	results := make([]disasm.Disassembly, len(items))
	for i, item := range items {
		i, item := i, item
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			d, err := disasm.New(item.Path, g.Decoder, g.Symbols)
			if err != nil {
				return err
			}
			d.Name = item.Label
			results[i] = d

			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Compare builds a CompareReport comparing sample against every binary in
// references (conventionally including the sample itself, as a self-match
// sanity baseline — spec.md §4.F).
func (g Grapher) Compare(ctx context.Context, sample disasm.Disassembly, references []disasm.Disassembly) (report.CompareReport, error) {
	start := time.Now()

	group, ctx := errgroup.WithContext(ctx)
	matches := make([]report.BinaryMatch, len(references))

	var bar *progressbar.ProgressBar
	if g.ShowProgress {
		bar = progressbar.Default(int64(len(references)), "comparing")
	}

	for i, ref := range references {
		i, ref := i, ref
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			matches[i] = g.compareGraphSets(sample, ref)
			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return report.CompareReport{}, err
	}

	return report.NewCompareReport(sample.Name, matches, time.Since(start)), nil
}

// compareGraphSets runs the matcher over every graph of reference in
// parallel, collecting the non-empty matches into one BinaryMatch. Each
// goroutine appends to its own local slice; slices are concatenated once
// after the barrier, so no shared mutex guards the hot path (spec.md §5's
// "preferred" alternative to a single contended mutex).
func (g Grapher) compareGraphSets(sample disasm.Disassembly, reference disasm.Disassembly) report.BinaryMatch {
	const fanout = 8

	chunks := splitGraphs(reference.Graphs, fanout)
	perChunk := make([][]report.MethodMatch, len(chunks))

	var group errgroup.Group
	for i, chunk := range chunks {
		i, chunk := i, chunk
		group.Go(func() error {
			local := make([]report.MethodMatch, 0, len(chunk))
			for _, refGraph := range chunk {
				if m, ok := matcher.CompareAgainstGraphs(refGraph, sample, g.Threshold); ok {
					local = append(local, m)
				}
			}
			perChunk[i] = local
			return nil
		})
	}
	_ = group.Wait() // compareGraphSets never returns an error from its workers

	total := 0
	for _, c := range perChunk {
		total += len(c)
	}
	matches := make([]report.MethodMatch, 0, total)
	for _, c := range perChunk {
		matches = append(matches, c...)
	}

	return report.NewBinaryMatch(sample.Name, reference.Name, matches)
}

func splitGraphs(graphs []cfg.ControlFlowGraph, fanout int) [][]cfg.ControlFlowGraph {
	if len(graphs) == 0 {
		return nil
	}
	if fanout > len(graphs) {
		fanout = len(graphs)
	}
	chunkSize := (len(graphs) + fanout - 1) / fanout

	chunks := make([][]cfg.ControlFlowGraph, 0, fanout)
	for start := 0; start < len(graphs); start += chunkSize {
		end := start + chunkSize
		if end > len(graphs) {
			end = len(graphs)
		}
		chunks = append(chunks, graphs[start:end])
	}
	return chunks
}
