// Package ir implements the compiler's intermediate representation: an
// arena-owned graph of tagged-variant nodes (§4.B, §4.C) plus the
// node-type-aware "fix graph" repair loop (§4.C common contract, §9).
//
// Cyclic references (an edge has both a source and a destination node)
// are avoided the way the design notes prescribe: NodeId/EdgeId are
// newtype integers indexing into the Graph's own slices; no back-pointers
// from edges to the Graph exist.
package ir

import "fmt"

// NodeId is a stable arena index. The zero value never denotes a real
// node (the arena is 1-indexed) so a NodeId zero value reliably means
// "absent".
type NodeId uint32

func (id NodeId) String() string { return fmt.Sprintf("n%d", uint32(id)) }

// EdgeId is a stable arena index, analogous to NodeId.
type EdgeId uint32

func (id EdgeId) String() string { return fmt.Sprintf("e%d", uint32(id)) }

const invalidID = 0
