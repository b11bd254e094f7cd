package ir

// CopyData is an insertable repair node: a plain passthrough DMA copy
// (§4.C Copy).
type CopyData struct{}

func (CopyData) Kind() Kind { return KindCopy }

func (CopyData) IsPrepared(g *Graph, self NodeId) bool { return true }

func (CopyData) FixGraph(g *Graph, self NodeId, sev Severity) bool { return false }

// NewCopy creates a Copy node and adds it to the graph.
func NewCopy(g *Graph, n *Node) NodeId {
	n.Data = CopyData{}
	return g.AddNode(n)
}

// RequantizeData is an insertable repair node carrying new output
// quantisation parameters. Requantize may be fused by Apply, which
// rewrites the MCE clamps in the requantised range (§4.C
// Copy/Requantize).
type RequantizeData struct {
	NewZeroPoint int32
	NewScale     float32
}

func (RequantizeData) Kind() Kind { return KindRequantize }

func (RequantizeData) IsPrepared(g *Graph, self NodeId) bool { return true }

func (RequantizeData) FixGraph(g *Graph, self NodeId, sev Severity) bool { return false }

// Apply rewrites an MCE's output clamp bounds expressed in the old
// (input) quantisation into the requantised output quantisation's
// representable range, given the input quantisation the clamp was
// originally computed against.
func (d RequantizeData) Apply(oldZeroPoint int32, oldScale float32, lo, hi int32) (int32, int32) {
	if oldScale == 0 {
		return lo, hi
	}
	rescale := func(v int32) int32 {
		real := (float64(v) - float64(oldZeroPoint)) * float64(oldScale)
		return int32(real/float64(d.NewScale)) + d.NewZeroPoint
	}
	return rescale(lo), rescale(hi)
}

// NewRequantize creates a Requantize node and adds it to the graph.
func NewRequantize(g *Graph, zp int32, scale float32, n *Node) NodeId {
	n.Data = RequantizeData{NewZeroPoint: zp, NewScale: scale}
	return g.AddNode(n)
}

// EstimateOnlyData is a placeholder carrying a reason string; it cannot
// be compiled, only estimated (§4.C EstimateOnly, §8 scenario 5).
type EstimateOnlyData struct {
	Reason string
}

func (EstimateOnlyData) Kind() Kind { return KindEstimateOnly }

// IsPrepared is always false: an EstimateOnly node can never be made
// ready for command generation, by construction.
func (EstimateOnlyData) IsPrepared(g *Graph, self NodeId) bool { return false }

// FixGraph never mutates the graph; this is how the fix-graph loop
// recognises the node is permanently unpreparable and surfaces
// NotSupported quickly instead of retrying for the full iteration
// budget.
func (EstimateOnlyData) FixGraph(g *Graph, self NodeId, sev Severity) bool { return false }

// NewEstimateOnly creates an EstimateOnly node and adds it to the graph.
func NewEstimateOnly(g *Graph, reason string, n *Node) NodeId {
	n.Data = EstimateOnlyData{Reason: reason}
	return g.AddNode(n)
}
