package ir

// ConcatData requires all inputs in DRAM and uncompressed; inputs must
// share the buffer id (they have been laid out into one supertensor by
// earlier ExtractSubtensor/Concat). Records the concat axis (§4.C
// Concat). Buffer-id sharing is the BufferManager's concern (§4.I); at
// the IR level, is_prepared checks location and compression only.
type ConcatData struct {
	Axis int
}

func (ConcatData) Kind() Kind { return KindConcat }

func (d ConcatData) IsPrepared(g *Graph, self NodeId) bool {
	ins := g.InEdges(self)
	if len(ins) == 0 {
		return false
	}
	for _, e := range ins {
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
	}
	return true
}

func (d ConcatData) FixGraph(g *Graph, self NodeId, sev Severity) bool {
	if sev != Medium {
		return false
	}
	mutated := false
	for _, e := range g.InEdges(self) {
		src := g.Node(e.Src)
		if src == nil {
			continue
		}
		if src.Location != LocationDram {
			src.Location = LocationDram
			mutated = true
		}
		if src.CompressionHint != RequiredUncompressed {
			src.CompressionHint = RequiredUncompressed
			mutated = true
		}
	}
	return mutated
}

// NewConcat creates a Concat node and adds it to the graph.
func NewConcat(g *Graph, axis int, n *Node) NodeId {
	n.Data = ConcatData{Axis: axis}
	return g.AddNode(n)
}

// ExtractSubtensorData carries a supertensor offset; not prepared unless
// the single successor is an MCE or an identity MCE can be inserted
// after it (§4.C ExtractSubtensor).
type ExtractSubtensorData struct {
	SupertensorOffset [4]int
}

func (ExtractSubtensorData) Kind() Kind { return KindExtractSubtensor }

func (d ExtractSubtensorData) IsPrepared(g *Graph, self NodeId) bool {
	outs := g.OutEdges(self)
	if len(outs) != 1 {
		return false
	}
	dst := g.Node(outs[0].Dst)
	return dst != nil && dst.Kind() == KindMceOperation
}

func (d ExtractSubtensorData) FixGraph(g *Graph, self NodeId, sev Severity) bool {
	if sev != Low {
		return false
	}
	outs := g.OutEdges(self)
	if len(outs) != 1 {
		return false
	}
	dst := g.Node(outs[0].Dst)
	if dst != nil && dst.Kind() == KindMceOperation {
		return false
	}
	id := g.AddNode(newIdentityMce(g.Node(self)))
	return g.InsertAfter(self, id) == nil
}

// NewExtractSubtensor creates an ExtractSubtensor node and adds it to the graph.
func NewExtractSubtensor(g *Graph, offset [4]int, n *Node) NodeId {
	n.Data = ExtractSubtensorData{SupertensorOffset: offset}
	return g.AddNode(n)
}
