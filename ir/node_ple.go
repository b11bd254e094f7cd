package ir

// McePostProcessData carries an activation clamp [lo, hi]. apply
// tightens the clamps of the preceding MCE. Not prepared unless fused
// into a Pass with a preceding MCE; fix_graph inserts an identity
// depthwise MCE if none exists or the source has fan-out > 1 (§4.C
// McePostProcess).
type McePostProcessData struct {
	Lo, Hi int32
}

func (McePostProcessData) Kind() Kind { return KindMcePostProcess }

func (McePostProcessData) IsPrepared(g *Graph, self NodeId) bool {
	e := g.InEdgeAt(self, 0)
	if e == nil {
		return false
	}
	src := g.Node(e.Src)
	if src == nil || src.Kind() != KindMceOperation {
		return false
	}
	return len(g.OutEdges(e.Src)) == 1
}

func (d McePostProcessData) FixGraph(g *Graph, self NodeId, sev Severity) bool {
	if sev != Low {
		return false
	}
	e := g.InEdgeAt(self, 0)
	if e == nil {
		return false
	}
	src := g.Node(e.Src)
	needsIdentity := src == nil || src.Kind() != KindMceOperation
	if !needsIdentity && len(g.OutEdges(e.Src)) > 1 {
		needsIdentity = true
	}
	if !needsIdentity {
		return false
	}
	id := g.AddNode(newIdentityMce(g.Node(self)))
	return g.InsertBefore(self, id) == nil
}

// Apply tightens the preceding MCE's clamp bounds (modelled as returning
// the intersection; mutating the MCE node's stored clamp is the
// generate-time responsibility of the owning Pass, not of this pure
// function).
func (d McePostProcessData) Apply(mceLo, mceHi int32) (int32, int32) {
	lo, hi := d.Lo, d.Hi
	if mceLo > lo {
		lo = mceLo
	}
	if mceHi < hi {
		hi = mceHi
	}
	return lo, hi
}

// NewMcePostProcess creates an McePostProcess node and adds it to the graph.
func NewMcePostProcess(g *Graph, lo, hi int32, n *Node) NodeId {
	n.Data = McePostProcessData{Lo: lo, Hi: hi}
	return g.AddNode(n)
}

// PleKernel identifies a PLE microcode kernel.
type PleKernel int

const (
	PleIdentity PleKernel = iota
	PleRelu
	PleLeakyRelu
	PleSigmoid
	PleMaxPool2x2
	PleAvgPool
	PleAddition
	PleTransposeXY
	PleSpaceToDepth
)

// FuseOnlyPleData carries a PLE kernel id and shape multiplier. fix_graph
// inserts an identity MCE when no preceding MCE exists, or when severity
// is High and the kernel is TRANSPOSE_XY, because transpose cannot be
// multi-stripe (§4.C FuseOnlyPle).
type FuseOnlyPleData struct {
	Kernel          PleKernel
	ShapeMultiplier [3]int
}

func (FuseOnlyPleData) Kind() Kind { return KindFuseOnlyPle }

func (d FuseOnlyPleData) IsPrepared(g *Graph, self NodeId) bool {
	e := g.InEdgeAt(self, 0)
	if e == nil {
		return false
	}
	src := g.Node(e.Src)
	if src == nil || src.Kind() != KindMceOperation {
		return false
	}
	if d.Kernel == PleTransposeXY {
		// Transpose cannot be multi-stripe: the repaired form always
		// pins an identity MCE immediately upstream so the planner sees
		// a fixed single-stripe shape; if that identity is missing this
		// node is not yet prepared.
		mce, _ := src.Data.(MceOperationData)
		if !mce.IsIdentity {
			return false
		}
	}
	return true
}

func (d FuseOnlyPleData) FixGraph(g *Graph, self NodeId, sev Severity) bool {
	e := g.InEdgeAt(self, 0)
	if e == nil {
		return false
	}
	src := g.Node(e.Src)

	if sev == Low {
		if src != nil && src.Kind() == KindMceOperation {
			return false
		}
		id := g.AddNode(newIdentityMce(g.Node(self)))
		return g.InsertBefore(self, id) == nil
	}

	if sev == High && d.Kernel == PleTransposeXY {
		if src == nil || src.Kind() != KindMceOperation {
			return false
		}
		mce, _ := src.Data.(MceOperationData)
		if mce.IsIdentity {
			return false
		}
		id := g.AddNode(newIdentityMce(g.Node(self)))
		return g.InsertBefore(self, id) == nil
	}

	return false
}

// NewFuseOnlyPle creates a FuseOnlyPle node and adds it to the graph.
func NewFuseOnlyPle(g *Graph, kernel PleKernel, shapeMul [3]int, n *Node) NodeId {
	n.Data = FuseOnlyPleData{Kernel: kernel, ShapeMultiplier: shapeMul}
	return g.AddNode(n)
}

// StandalonePleData carries a PLE kernel with one or two inputs; if
// multi-input and no Pass found, forces inputs to DRAM in fix-graph
// (§4.C StandalonePle).
type StandalonePleData struct {
	Kernel    PleKernel
	NumInputs int
}

func (StandalonePleData) Kind() Kind { return KindStandalonePle }

func (d StandalonePleData) IsPrepared(g *Graph, self NodeId) bool {
	if d.NumInputs < 2 {
		return true
	}
	var shape *Node
	for i := 0; i < d.NumInputs; i++ {
		e := g.InEdgeAt(self, i)
		if e == nil {
			return false
		}
		src := g.Node(e.Src)
		if src == nil || src.Location != LocationDram {
			return false
		}
		if shape == nil {
			shape = src
		} else if src.OutputShape != shape.OutputShape {
			return false
		}
	}
	return true
}

func (d StandalonePleData) FixGraph(g *Graph, self NodeId, sev Severity) bool {
	if d.NumInputs < 2 || sev != Medium {
		return false
	}
	mutated := false
	for i := 0; i < d.NumInputs; i++ {
		e := g.InEdgeAt(self, i)
		if e == nil {
			continue
		}
		src := g.Node(e.Src)
		if src != nil && src.Location != LocationDram {
			src.Location = LocationDram
			mutated = true
		}
	}
	return mutated
}

// NewStandalonePle creates a StandalonePle node and adds it to the graph.
func NewStandalonePle(g *Graph, kernel PleKernel, numInputs int, n *Node) NodeId {
	n.Data = StandalonePleData{Kernel: kernel, NumInputs: numInputs}
	return g.AddNode(n)
}
