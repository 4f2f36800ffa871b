// Package cfg holds the immutable control-flow-graph data model: a
// function's basic blocks, their edges, and the seeded fingerprints used
// by the similarity kernel's hash short-circuit.
package cfg

import (
	"bytes"
	"fmt"
)

// Instruction is a single decoded machine instruction. Bytes is the raw
// encoding and is the sole equality key used throughout the similarity
// kernel — two instructions are equal iff their Bytes are equal.
type Instruction struct {
	Bytes []byte
}

// Equal reports whether two instructions carry the same encoding.
func (i Instruction) Equal(o Instruction) bool {
	return bytes.Equal(i.Bytes, o.Bytes)
}

func (i Instruction) String() string {
	return fmt.Sprintf("% x", i.Bytes)
}
