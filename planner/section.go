package planner

import "github.com/npucc/npucc/ir"

// SectionKind classifies a cascaded Section by its head Pass's input
// count (§4.F Cascading).
type SectionKind int

const (
	SectionSISO SectionKind = iota // single input, single output
	SectionMISO                    // multiple inputs, single output
)

func (k SectionKind) String() string {
	if k == SectionMISO {
		return "MISO"
	}
	return "SISO"
}

// Section is a chain of Passes fused together because every pass after
// the first consumes its predecessor's output without a DRAM round trip
// (§3 Data Model, §4.F Cascading).
type Section struct {
	Kind  SectionKind
	Passes []*Pass
}

// BuildSections groups an ordered (topologically sorted) list of Passes
// into Sections: consecutive passes are fused into the same Section
// whenever the later pass's sole input is the earlier pass's output and
// that output never touches DRAM; a pass whose head reads more than one
// input never joins the previous section and starts a MISO section, onto
// which later single-input passes can still chain.
func BuildSections(g *ir.Graph, passes []*Pass) []*Section {
	var sections []*Section
	var current *Section

	outputOf := make(map[ir.NodeId]*Pass, len(passes))
	for _, p := range passes {
		outputOf[p.endNode()] = p
	}

	for _, p := range passes {
		head := p.Head
		numInputs := len(g.InEdges(head))
		chainsFromPrevious := false
		if current != nil {
			tailOfPrev := current.Passes[len(current.Passes)-1].endNode()
			for _, e := range g.InEdges(head) {
				if e.Src == tailOfPrev {
					src := g.Node(tailOfPrev)
					if src != nil && src.Location != ir.LocationDram {
						chainsFromPrevious = true
					}
				}
			}
		}

		if chainsFromPrevious && numInputs == 1 {
			current.Passes = append(current.Passes, p)
			continue
		}

		if current != nil {
			sections = append(sections, current)
		}
		kind := SectionSISO
		if numInputs > 1 {
			kind = SectionMISO
		}
		current = &Section{Kind: kind, Passes: []*Pass{p}}
	}
	if current != nil {
		sections = append(sections, current)
	}
	return sections
}

// endNode returns the node whose output the Pass exposes downstream: the
// fused tail if there is one, otherwise the head.
func (p *Pass) endNode() ir.NodeId {
	if p.Tail != 0 {
		return p.Tail
	}
	return p.Head
}
