// Package matcher implements the per-function matcher: given one reference
// function and a sample binary's disassembly, find the sample function
// that best matches, subject to a similarity threshold (spec.md §4.E).
package matcher

import (
	"github.com/volexity/gographer/pkg/cfg"
	"github.com/volexity/gographer/pkg/disasm"
	"github.com/volexity/gographer/pkg/report"
	"github.com/volexity/gographer/pkg/similarity"
)

// CompareAgainstGraphs scans sample's graphs in stored (offset-sorted)
// order looking for the best match against reference. Graphs scoring
// below threshold are skipped; a graph scoring exactly 1.0 is recorded
// and the scan stops immediately, since no later graph can score higher.
// Otherwise the running best is replaced only by a strictly greater
// score, so the first of any tied graphs wins. Returns false if nothing
// cleared the threshold.
func CompareAgainstGraphs(reference cfg.ControlFlowGraph, sample disasm.Disassembly, threshold float32) (report.MethodMatch, bool) {
	var best report.MethodMatch
	var bestSim float32
	found := false

	for _, g := range sample.Graphs {
		s := similarity.Graphs(reference, g)
		if s < threshold {
			continue
		}

		if !found || s > bestSim {
			best = report.NewMethodMatch(g, reference, s)
			bestSim = s
			found = true
		}

		if s == 1.0 {
			break
		}
	}

	return best, found
}
