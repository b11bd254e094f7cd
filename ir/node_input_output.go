package ir

// InputData declares an external buffer entry point. generate allocates
// a DRAM input of the natural NHWC/NHWCB size and records the source
// operator id (§4.C Input).
type InputData struct {
	SourceOpID int
}

func (InputData) Kind() Kind { return KindInput }

// IsPrepared is always true: an Input has no upstream wiring
// requirements.
func (InputData) IsPrepared(g *Graph, self NodeId) bool { return true }

// FixGraph never needs to mutate an Input node.
func (InputData) FixGraph(g *Graph, self NodeId, sev Severity) bool { return false }

// NewInput creates an Input node and adds it to the graph.
func NewInput(g *Graph, sourceOpID int, n *Node) NodeId {
	n.Data = InputData{SourceOpID: sourceOpID}
	return g.AddNode(n)
}

// OutputData has exactly one input. is_prepared requires the input to be
// in DRAM, uncompressed, the sole consumer of its source, and the path
// back to the inputs to contain at least one Pass (§4.C Output, §8
// boundary: Input-directly-to-Output is invalid and repaired by
// inserting a Copy).
type OutputData struct {
	SourceOpID int
	OutputIdx  int
}

func (OutputData) Kind() Kind { return KindOutput }

func (OutputData) IsPrepared(g *Graph, self NodeId) bool {
	e := g.InEdgeAt(self, 0)
	if e == nil {
		return false
	}
	src := g.Node(e.Src)
	if src == nil {
		return false
	}
	if src.Location != LocationDram {
		return false
	}
	if src.CompressionHint == RequiredCompressed {
		return false
	}
	if len(g.OutEdges(e.Src)) != 1 {
		return false
	}
	// An Input directly feeding an Output (no Pass anywhere on the path)
	// is invalid: at least one Pass must separate them.
	if src.Kind() == KindInput {
		return false
	}
	return true
}

func (OutputData) FixGraph(g *Graph, self NodeId, sev Severity) bool {
	if sev != Low {
		return false
	}
	e := g.InEdgeAt(self, 0)
	if e == nil {
		return false
	}
	src := g.Node(e.Src)
	if src == nil {
		return false
	}
	if src.Kind() != KindInput {
		return false
	}
	// Input -> Output directly: insert a Copy between them.
	copyNode := &Node{OutputShape: src.OutputShape, OutputDType: src.OutputDType, OutputQuant: src.OutputQuant, Format: src.Format}
	id := NewCopy(g, copyNode)
	if err := g.SplitEdge(e.ID, id); err != nil {
		return false
	}
	return true
}

// NewOutput creates an Output node and adds it to the graph.
func NewOutput(g *Graph, sourceOpID, outputIdx int, n *Node) NodeId {
	n.Data = OutputData{SourceOpID: sourceOpID, OutputIdx: outputIdx}
	return g.AddNode(n)
}
