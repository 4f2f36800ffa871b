// Package similarity implements the three-level structural/instruction
// similarity kernel: instruction-set similarity (bag-Jaccard), block
// similarity (content + neighbourhood), and graph similarity (best-match
// per source block, trimmed to the smaller graph's size).
package similarity

import (
	"sort"

	"github.com/volexity/gographer/pkg/cfg"
	"github.com/volexity/gographer/pkg/stream"
)

// Instructions computes the bag-Jaccard similarity between two
// instruction streams, treating duplicate byte-strings as distinct
// elements (unlike a set-Jaccard, which would collapse them). Returns 1.0
// when both streams are empty.
func Instructions(lhs, rhs stream.Instructions) float32 {
	x, y := lhs, rhs
	if y.Len() > x.Len() {
		x, y = y, x
	}

	other := make([][]byte, 0, y.Len())
	y.Each(func(ins cfg.Instruction) bool {
		other = append(other, ins.Bytes)
		return true
	})

	var intersection, union int
	x.Each(func(ins cfg.Instruction) bool {
		union++
		for i, o := range other {
			if ins.Equal(cfg.Instruction{Bytes: o}) {
				intersection++
				other[i] = other[len(other)-1]
				other = other[:len(other)-1]
				break
			}
		}
		return true
	})
	union += len(other)

	if union == 0 {
		return 1.0
	}
	return float32(intersection) / float32(union)
}

// Blocks computes the similarity between block lBlocks[lIndex] and
// rBlocks[rIndex]: local content similarity (hash-equal short-circuits to
// 1.0) weighted twice, averaged with predecessor- and successor-
// neighbourhood similarity.
func Blocks(lBlocks []cfg.BasicBlock, lIndex int, rBlocks []cfg.BasicBlock, rIndex int) float32 {
	l := lBlocks[lIndex]
	r := rBlocks[rIndex]

	var localSim float32
	if l.Hash == r.Hash {
		localSim = 1.0
	} else {
		localSim = Instructions(
			stream.New(lBlocks, []int{lIndex}),
			stream.New(rBlocks, []int{rIndex}),
		)
	}

	prevSim := Instructions(stream.New(lBlocks, l.InRefs), stream.New(rBlocks, r.InRefs))
	nextSim := Instructions(stream.New(lBlocks, l.OutRefs), stream.New(rBlocks, r.OutRefs))

	return (2*localSim + prevSim + nextSim) / 4
}

// Graphs computes the similarity between two control-flow graphs: 1.0 if
// their whole-graph hashes match (a probabilistic equality assumption
// accepted as a design trade-off), otherwise the mean of
// the top-k best-per-source-block similarities, k = min(|source blocks|,
// |target blocks|).
func Graphs(source, target cfg.ControlFlowGraph) float32 {
	if source.Hash == target.Hash {
		return 1.0
	}

	lBlocks := source.Blocks
	rBlocks := target.Blocks

	topSims := make([]float32, len(lBlocks))
	for lIndex := range lBlocks {
		var best float32
		for rIndex := range rBlocks {
			if sim := Blocks(lBlocks, lIndex, rBlocks, rIndex); sim > best {
				best = sim
			}
		}
		topSims[lIndex] = best
	}
	sort.Slice(topSims, func(i, j int) bool { return topSims[i] > topSims[j] })

	k := len(lBlocks)
	if len(rBlocks) < k {
		k = len(rBlocks)
	}

	var sum float32
	for _, s := range topSims[:k] {
		sum += s
	}
	return sum / float32(k)
}
