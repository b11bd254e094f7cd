// Package cascading implements the Part/Plan combiner for the
// opgraph-based planner generation (§4.F Cascading, behind
// options.UseCascading): it glues neighbouring opgraph.Plans into
// Sections without inserting a DRAM round trip, mirroring the legacy
// planner package's own Section model but operating over opgraph.Plan
// instead of ir-level Passes.
package cascading

import (
	"github.com/npucc/npucc/caps"
	"github.com/npucc/npucc/errs"
	"github.com/npucc/npucc/ir"
	"github.com/npucc/npucc/opgraph"
	"github.com/npucc/npucc/tensor"
)

// PartKind enumerates the Part variants the cascading combiner can glue
// together. Reformat is a pure-DMA sibling of the Mce/FullyConnected
// parts: a format conversion with no compute op, needed so a
// FormatConversion node has somewhere to go in the opgraph world without
// forcing every cascading chain through a compute Part (§4 SUPPLEMENTED
// FEATURES: ReformatPart-equivalent).
type PartKind int

const (
	PartMce PartKind = iota
	PartFullyConnected
	PartReformat
)

// Part is one cascading-combiner unit: a Plan plus the metadata the
// combiner needs to decide whether it can fuse with its neighbours.
type Part struct {
	Kind PartKind
	Plan *opgraph.Plan

	// SourceNode is the ir.NodeId this Part was derived from, used to
	// look up location/format when deciding whether two Parts can fuse
	// without a DRAM round trip.
	SourceNode ir.NodeId
}

// NewReformatPart builds a Reformat Part: a single DmaOp converting
// from->to, with no MCE or PLE op, grounded on ReformatPart.cpp's
// pure-format-conversion role in the original driver stack.
func NewReformatPart(sourceNode ir.NodeId, shape tensor.Shape, dtype tensor.DType, from, to tensor.Format, c caps.Capabilities) (*Part, error) {
	if (from == tensor.NCHW || to == tensor.NCHW) && !c.SupportsNCHW {
		return nil, errs.NotSupported("NCHW format conversion requires hardware NCHW support")
	}

	g := opgraph.New()
	in := g.AddBuffer(&opgraph.Buffer{Location: opgraph.LocDram, Shape: shape, DType: dtype, Format: from})
	out := g.AddBuffer(&opgraph.Buffer{Location: opgraph.LocDram, Shape: shape, DType: dtype, Format: to})
	g.AddOp(&opgraph.Op{Kind: opgraph.OpDma, Dma: opgraph.DmaParams{Format: to}}, []opgraph.BufferId{in}, out)

	plan := opgraph.NewPlan(g)
	plan.Inputs[0] = in
	plan.Outputs[0] = out

	return &Part{Kind: PartReformat, Plan: plan, SourceNode: sourceNode}, nil
}

// Section mirrors planner.Section for the opgraph/cascading path: a
// chain of Parts fused without a DRAM round trip, classified SISO/MISO
// by the head Part's input count (§4.F Cascading).
type Section struct {
	Kind  SectionKind
	Parts []*Part
}

// SectionKind mirrors planner.SectionKind; kept as its own type (rather
// than imported) since the two planner generations are independent per
// the "keep both planner generations" decision.
type SectionKind int

const (
	SectionSISO SectionKind = iota
	SectionMISO
)

// canFuse reports whether producer's sole output buffer can feed
// consumer directly without a DRAM round trip: the buffer producer's
// Plan exposes as its single output must be SRAM-resident, and consumer
// must read nothing else from DRAM at that slot.
func canFuse(producer, consumer *Part) bool {
	if len(producer.Plan.Outputs) != 1 {
		return false
	}
	var outBuf opgraph.BufferId
	for _, b := range producer.Plan.Outputs {
		outBuf = b
	}
	buf := producer.Plan.Graph.Buffer(outBuf)
	if buf == nil || buf.Location == opgraph.LocDram {
		return false
	}
	for _, in := range consumer.Plan.Inputs {
		if in == outBuf {
			return true
		}
	}
	return false
}

// BuildSections groups an ordered list of Parts into Sections, fusing
// consecutive Parts whenever canFuse holds between them and the later
// Part has exactly one input.
func BuildSections(parts []*Part) []*Section {
	var sections []*Section
	var current *Section

	for _, p := range parts {
		numInputs := len(p.Plan.Inputs)

		if current != nil && canFuse(current.Parts[len(current.Parts)-1], p) && numInputs == 1 {
			current.Parts = append(current.Parts, p)
			continue
		}

		if current != nil {
			sections = append(sections, current)
		}
		kind := SectionSISO
		if numInputs > 1 {
			kind = SectionMISO
		}
		current = &Section{Kind: kind, Parts: []*Part{p}}
	}
	if current != nil {
		sections = append(sections, current)
	}
	return sections
}
