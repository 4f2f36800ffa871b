// Package report holds the result data model — MethodMatch, BinaryMatch,
// CompareReport — and its JSON codec (spec.md §3, §6).
package report

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/volexity/gographer/pkg/cfg"
)

// MethodMatch is the similarity between one sample function and the
// reference function it matched best. The asymmetry is intentional:
// OldName/MalwareOffset describe the sample graph, ResolvedName/
// CleanOffset the reference graph (spec.md §4.E).
type MethodMatch struct {
	OldName       string  `json:"old_name"`
	ResolvedName  string  `json:"resolved_name"`
	MalwareOffset uint64  `json:"malware_offset"`
	CleanOffset   uint64  `json:"clean_offset"`
	Similarity    float32 `json:"similarity"`
}

// NewMethodMatch builds a MethodMatch from the sample and reference graphs
// that produced the given similarity score.
func NewMethodMatch(sample, reference cfg.ControlFlowGraph, similarity float32) MethodMatch {
	return MethodMatch{
		OldName:       sample.Name,
		ResolvedName:  reference.Name,
		MalwareOffset: sample.Offset,
		CleanOffset:   reference.Offset,
		Similarity:    similarity,
	}
}

func (m MethodMatch) String() string {
	return fmt.Sprintf("%s -> %s (%.3f)", m.OldName, m.ResolvedName, m.Similarity)
}

// BinaryMatch is the aggregate similarity between a sample binary and one
// reference binary: every per-method match plus the arithmetic mean of
// their similarities.
type BinaryMatch struct {
	Similarity float32       `json:"similarity"`
	Source     string        `json:"source"`
	Dest       string        `json:"dest"`
	Matches    []MethodMatch `json:"matches"`
}

// NewBinaryMatch builds a BinaryMatch, deriving Similarity as the mean of
// matches' similarities. An empty matches slice yields NaN, per spec.md
// §3 — callers that need to special-case this should use IsEmpty.
func NewBinaryMatch(source, dest string, matches []MethodMatch) BinaryMatch {
	var sum float32
	for _, m := range matches {
		sum += m.Similarity
	}

	similarity := sum / float32(len(matches))
	return BinaryMatch{
		Similarity: similarity,
		Source:     source,
		Dest:       dest,
		Matches:    matches,
	}
}

// IsEmpty reports whether this BinaryMatch has no method matches, i.e.
// whether Similarity is the NaN sentinel rather than a real mean.
func (b BinaryMatch) IsEmpty() bool {
	return len(b.Matches) == 0
}

func (b BinaryMatch) String() string {
	return fmt.Sprintf("%s -> %s (%.3f, %d matches)", b.Source, b.Dest, b.Similarity, len(b.Matches))
}

// binaryMatchWire mirrors BinaryMatch except Similarity is a pointer, so
// the NaN that NewBinaryMatch produces for an empty Matches slice
// round-trips through JSON as null rather than failing to encode:
// encoding/json rejects NaN outright for float32/float64.
type binaryMatchWire struct {
	Similarity *float32      `json:"similarity"`
	Source     string        `json:"source"`
	Dest       string        `json:"dest"`
	Matches    []MethodMatch `json:"matches"`
}

func (b BinaryMatch) MarshalJSON() ([]byte, error) {
	wire := binaryMatchWire{
		Source:  b.Source,
		Dest:    b.Dest,
		Matches: b.Matches,
	}
	if !math.IsNaN(float64(b.Similarity)) {
		s := b.Similarity
		wire.Similarity = &s
	}
	return json.Marshal(wire)
}

func (b *BinaryMatch) UnmarshalJSON(data []byte) error {
	var wire binaryMatchWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	similarity := float32(math.NaN())
	if wire.Similarity != nil {
		similarity = *wire.Similarity
	}
	*b = BinaryMatch{
		Similarity: similarity,
		Source:     wire.Source,
		Dest:       wire.Dest,
		Matches:    wire.Matches,
	}
	return nil
}

// CompareReport is the top-level result of comparing one sample against a
// set of reference binaries (conventionally including the sample itself,
// as a self-match sanity baseline).
type CompareReport struct {
	SampleName  string        `json:"sample_name"`
	Matches     []BinaryMatch `json:"matches"`
	ComputeTime time.Duration `json:"compute_time"`
}

// compareReportWire is the JSON wire shape: compute_time as an explicit
// int64 count of nanoseconds, so the field round-trips exactly and stays
// a plain number on the wire.
type compareReportWire struct {
	SampleName  string        `json:"sample_name"`
	Matches     []BinaryMatch `json:"matches"`
	ComputeTime int64         `json:"compute_time"`
}

func NewCompareReport(sampleName string, matches []BinaryMatch, computeTime time.Duration) CompareReport {
	return CompareReport{
		SampleName:  sampleName,
		Matches:     matches,
		ComputeTime: computeTime,
	}
}

func (r CompareReport) String() string {
	return fmt.Sprintf("%s[%d binary matches in %s]", r.SampleName, len(r.Matches), r.ComputeTime)
}

// ToJSON renders the report as pretty-printed JSON.
func (r CompareReport) ToJSON() ([]byte, error) {
	wire := compareReportWire{
		SampleName:  r.SampleName,
		Matches:     r.Matches,
		ComputeTime: r.ComputeTime.Nanoseconds(),
	}
	return json.MarshalIndent(wire, "", "  ")
}

// FromJSON parses a report previously produced by ToJSON.
func FromJSON(data []byte) (CompareReport, error) {
	var wire compareReportWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return CompareReport{}, err
	}
	return CompareReport{
		SampleName:  wire.SampleName,
		Matches:     wire.Matches,
		ComputeTime: time.Duration(wire.ComputeTime),
	}, nil
}
