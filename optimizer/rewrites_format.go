package optimizer

import "github.com/npucc/npucc/ir"

// mergeInverseFormatConversions implements rewrite 1: X (fmt A) ->
// Conv->B -> Conv->A => X. It looks for a FormatConversion node n1 whose
// sole consumer is another FormatConversion n2 undoing it
// (n1.To==n2.From, n1.From==n2.To), and collapses both away.
func mergeInverseFormatConversions(g *ir.Graph, order []ir.NodeId) bool {
	for _, id := range order {
		n1 := g.Node(id)
		if n1 == nil {
			continue
		}
		fc1, ok := n1.Data.(ir.FormatConversionData)
		if !ok {
			continue
		}
		outs := g.OutEdges(id)
		if len(outs) != 1 {
			continue
		}
		n2 := g.Node(outs[0].Dst)
		if n2 == nil {
			continue
		}
		fc2, ok := n2.Data.(ir.FormatConversionData)
		if !ok {
			continue
		}
		if fc1.From != fc2.To || fc1.To != fc2.From {
			continue
		}
		inEdge := g.InEdgeAt(id, 0)
		if inEdge == nil {
			continue
		}
		innerEdge := outs[0]
		if err := g.CollapseEdge(innerEdge.ID); err != nil {
			continue
		}
		if err := g.CollapseEdge(inEdge.ID); err != nil {
			continue
		}
		return true
	}
	return false
}
