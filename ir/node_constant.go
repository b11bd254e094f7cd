package ir

// ConstantData carries raw bytes, placed in ConstantDma at generate time
// (§4.C Constant).
type ConstantData struct {
	Bytes []byte
}

func (ConstantData) Kind() Kind { return KindConstant }

func (ConstantData) IsPrepared(g *Graph, self NodeId) bool { return true }

func (ConstantData) FixGraph(g *Graph, self NodeId, sev Severity) bool { return false }

// NewConstant creates a Constant node and adds it to the graph.
func NewConstant(g *Graph, bytes []byte, n *Node) NodeId {
	n.Data = ConstantData{Bytes: bytes}
	n.Location = LocationDram
	return g.AddNode(n)
}
