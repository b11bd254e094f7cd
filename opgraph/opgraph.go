// Package opgraph implements the newer, parallel low-level Plan model
// (§4.G): Ops (DMA, MCE, PLE) and Buffers (DRAM/SRAM/PleInputSram) wired
// by two producer/consumer maps, with a Plan wrapping one OpGraph plus
// its input/output mappings so the cascading combiner can glue
// neighbouring plans together without a DRAM round trip.
package opgraph

import (
	"github.com/npucc/npucc/caps"
	"github.com/npucc/npucc/ir"
	"github.com/npucc/npucc/tensor"
)

// BufferId and OpId are arena indices into an OpGraph, mirroring ir's
// NodeId/EdgeId newtype-index pattern to avoid back-pointers.
type BufferId uint32
type OpId uint32

// BufferLocation mirrors ir.BufferLocation plus the PLE-input-SRAM
// location specific to the OpGraph model.
type BufferLocation int

const (
	LocDram BufferLocation = iota
	LocSram
	LocPleInputSram
)

// Buffer is one operand location in the OpGraph: DRAM buffers carry no
// stripe metadata, SRAM buffers carry the full per-stripe tile record.
type Buffer struct {
	ID       BufferId
	Location BufferLocation
	Shape    tensor.Shape
	DType    tensor.DType
	Format   tensor.Format

	// SRAM-only fields; zero value for DRAM buffers.
	StripeShape    tensor.Shape
	NumStripes     int
	NumLoads       int
	PackedBoundary bool
	TileSizeBytes  int
}

// OpKind tags which Op variant a node represents.
type OpKind int

const (
	OpDma OpKind = iota
	OpMce
	OpPle
)

// DmaParams carries a DmaOp's format conversion (§4.G: "DmaOp{format}").
type DmaParams struct {
	Format tensor.Format
}

// MceParams carries an MceOp's full parameter set (§4.G: "MceOp{op,
// algo, block_config, stride, pad, clamp, upsample,
// uninterleaved_shape}").
type MceParams struct {
	Op                ir.OpKind
	Algo              ir.Algorithm
	BlockConfig       caps.BlockConfig
	StrideX, StrideY  int
	PadTop, PadLeft   int
	PadBottom, PadRight int
	ClampLo, ClampHi  int32
	Upsample          ir.UpsampleType
	UninterleavedShape tensor.Shape
}

// PleParams carries a PleOp's kernel id, block config, and its (possibly
// two) inputs plus output descriptor (§4.G: "PleOp{kernel, block_config,
// inputs, output, output_type, is_identity}").
type PleParams struct {
	Kernel      ir.PleKernel
	BlockConfig caps.BlockConfig
	Inputs      []BufferId
	Output      BufferId
	OutputType  tensor.DType
	IsIdentity  bool
}

// Op is one node of the OpGraph; exactly one of Dma/Mce/Ple is valid,
// selected by Kind (a sum type, per the ir package's own taxonomy
// pattern).
type Op struct {
	ID   OpId
	Kind OpKind
	Dma  DmaParams
	Mce  MceParams
	Ple  PleParams
}

// slot identifies one input position a buffer feeds on a consuming Op.
type slot struct {
	op   OpId
	slot int
}

// OpGraph is always a DAG with exactly one producer per buffer (§4.G).
// Producers/consumers are stored as two maps rather than edges embedded
// in Buffer/Op, following the ir package's arena-and-index discipline.
type OpGraph struct {
	ops     []*Op
	buffers []*Buffer

	producer  map[BufferId]OpId   // Buffer -> its single producing Op
	consumers map[BufferId][]slot // Buffer -> [Op, slot] pairs reading it
	inputs    map[OpId][]BufferId // Op -> ordered input buffers
}

// New returns an empty OpGraph.
func New() *OpGraph {
	return &OpGraph{
		ops:       []*Op{nil},
		buffers:   []*Buffer{nil},
		producer:  make(map[BufferId]OpId),
		consumers: make(map[BufferId][]slot),
		inputs:    make(map[OpId][]BufferId),
	}
}

// AddBuffer appends a buffer with no producer yet.
func (og *OpGraph) AddBuffer(b *Buffer) BufferId {
	id := BufferId(len(og.buffers))
	b.ID = id
	og.buffers = append(og.buffers, b)
	return id
}

// Buffer returns the buffer for id, or nil.
func (og *OpGraph) Buffer(id BufferId) *Buffer {
	if int(id) <= 0 || int(id) >= len(og.buffers) {
		return nil
	}
	return og.buffers[id]
}

// AddOp appends op, wires its declared inputs as consumers, and records
// it as the sole producer of output (failing the one-producer-per-buffer
// invariant is a programming error in the caller, not a runtime
// condition this package guards against, mirroring ir.Graph.Connect's
// narrower DuplicateInput check rather than a broader validation pass).
func (og *OpGraph) AddOp(op *Op, inputs []BufferId, output BufferId) OpId {
	id := OpId(len(og.ops))
	op.ID = id
	og.ops = append(og.ops, op)
	og.inputs[id] = inputs
	for i, b := range inputs {
		og.consumers[b] = append(og.consumers[b], slot{op: id, slot: i})
	}
	og.producer[output] = id
	return id
}

// Op returns the op for id, or nil.
func (og *OpGraph) Op(id OpId) *Op {
	if int(id) <= 0 || int(id) >= len(og.ops) {
		return nil
	}
	return og.ops[id]
}

// Ops returns every op in insertion order.
func (og *OpGraph) Ops() []*Op {
	out := make([]*Op, 0, len(og.ops)-1)
	for _, op := range og.ops[1:] {
		if op != nil {
			out = append(out, op)
		}
	}
	return out
}

// Producer returns the Op that produces buffer, if any.
func (og *OpGraph) Producer(buffer BufferId) (OpId, bool) {
	id, ok := og.producer[buffer]
	return id, ok
}

// Inputs returns the ordered input buffers of op.
func (og *OpGraph) Inputs(op OpId) []BufferId {
	return og.inputs[op]
}

// Consumers returns every (op, slot) pair reading buffer.
func (og *OpGraph) Consumers(buffer BufferId) []struct {
	Op   OpId
	Slot int
} {
	var out []struct {
		Op   OpId
		Slot int
	}
	for _, s := range og.consumers[buffer] {
		out = append(out, struct {
			Op   OpId
			Slot int
		}{Op: s.op, Slot: s.slot})
	}
	return out
}

// PartInputMapping maps a Part-level input index to the OpGraph buffer
// that receives it (§4.G: "Plan wraps one OpGraph plus
// PartInputMapping/PartOutputMapping").
type PartInputMapping map[int]BufferId

// PartOutputMapping maps a Part-level output index to the OpGraph buffer
// that produces it.
type PartOutputMapping map[int]BufferId

// Plan wraps one OpGraph plus the mappings the cascading combiner needs
// to glue it to neighbouring plans.
type Plan struct {
	Graph   *OpGraph
	Inputs  PartInputMapping
	Outputs PartOutputMapping
}

// NewPlan wraps g with empty mappings, ready for the builder to populate.
func NewPlan(g *OpGraph) *Plan {
	return &Plan{Graph: g, Inputs: make(PartInputMapping), Outputs: make(PartOutputMapping)}
}
