package disasm

import (
	"math/rand/v2"
	"regexp"

	"github.com/volexity/gographer/pkg/cfg"
)

// FilterSymbol returns a new Disassembly containing only the graphs whose
// Name matches searchExpression, in original order.
func (d Disassembly) FilterSymbol(searchExpression string) (Disassembly, error) {
	re, err := regexp.Compile(searchExpression)
	if err != nil {
		return Disassembly{}, err
	}

	filtered := make([]cfg.ControlFlowGraph, 0, len(d.Graphs))
	for _, g := range d.Graphs {
		if re.MatchString(g.Name) {
			filtered = append(filtered, g)
		}
	}

	return Disassembly{Name: d.Name, Path: d.Path, Graphs: filtered}, nil
}

// Subset returns a new Disassembly with floor(len(Graphs) * clamp(ratio,
// 0, 1)) graphs, chosen uniformly at random without replacement. rng may
// be nil, in which case a process-global source is used; pass a seeded
// *rand.Rand for reproducible tests (spec.md §9: sampling is explicitly
// randomised and reproducibility is a caller responsibility).
func (d Disassembly) Subset(ratio float32, rng *rand.Rand) Disassembly {
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}

	n := int(float32(len(d.Graphs)) * ratio)

	indices := make([]int, len(d.Graphs))
	for i := range indices {
		indices[i] = i
	}

	shuffle := rand.Shuffle
	if rng != nil {
		shuffle = rng.Shuffle
	}
	shuffle(len(indices), func(i, j int) { indices[i], indices[j] = indices[j], indices[i] })

	chosen := make([]cfg.ControlFlowGraph, n)
	for i := 0; i < n; i++ {
		chosen[i] = d.Graphs[indices[i]]
	}

	return Disassembly{Name: d.Name, Path: d.Path, Graphs: chosen}
}
