package ir

import "github.com/npucc/npucc/tensor"

// BufferLocation is where a node's output currently/eventually resides.
type BufferLocation int

const (
	LocationNone BufferLocation = iota
	LocationDram
	LocationSram
	LocationPleInputSram
)

func (l BufferLocation) String() string {
	switch l {
	case LocationDram:
		return "Dram"
	case LocationSram:
		return "Sram"
	case LocationPleInputSram:
		return "PleInputSram"
	default:
		return "None"
	}
}

// CompressionHint records whether a node's output must/must-not be
// compressed once placed, used by fix_graph repairs (e.g. Reinterpret and
// Concat both require an uncompressed source).
type CompressionHint int

const (
	CompressionEither CompressionHint = iota
	RequiredUncompressed
	RequiredCompressed
)

// PassId identifies the Pass a node has been assigned to; the zero value
// means "not yet placed in a Pass".
type PassId uint32

// Kind tags which taxonomy variant a Node is.
type Kind int

const (
	KindInput Kind = iota
	KindOutput
	KindConstant
	KindMceOperation
	KindMcePostProcess
	KindFuseOnlyPle
	KindStandalonePle
	KindFormatConversion
	KindReinterpret
	KindConcat
	KindExtractSubtensor
	KindCopy
	KindRequantize
	KindEstimateOnly
)

func (k Kind) String() string {
	names := [...]string{
		"Input", "Output", "Constant", "MceOperation", "McePostProcess",
		"FuseOnlyPle", "StandalonePle", "FormatConversion", "Reinterpret",
		"Concat", "ExtractSubtensor", "Copy", "Requantize", "EstimateOnly",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "Unknown"
}

// Data is the per-variant payload every Kind must provide; it is a sum
// type implemented as an interface with one concrete type per Kind
// (replacing the deep Node/Op/Buffer class hierarchies the design notes
// call out). Dispatch happens via a type switch in fixgraph.go / the
// planner, not virtual calls.
type Data interface {
	Kind() Kind
}

// Node is the common struct shared by every taxonomy variant: stable id,
// corresponding-operation ids, output shape/dtype/quant, compiler data
// format, buffer placement, and the variant-specific Data payload.
type Node struct {
	ID NodeId

	// OperationIDs are the ids of the original Network operator records
	// this IR node corresponds to (a node may fuse several operators).
	OperationIDs []int

	OutputShape tensor.Shape
	OutputDType tensor.DType
	OutputQuant tensor.QuantInfo
	Format      tensor.Format

	Location        BufferLocation
	CompressionHint CompressionHint

	// Pass is the id of the Pass this node has been assigned to, or zero
	// if it has not yet been placed.
	Pass PassId

	Data Data
}

// Kind returns this node's taxonomy tag.
func (n *Node) Kind() Kind { return n.Data.Kind() }

// IsPlaced reports whether this node has been assigned to a Pass.
func (n *Node) IsPlaced() bool { return n.Pass != 0 }
