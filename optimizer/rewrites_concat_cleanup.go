package optimizer

import "github.com/npucc/npucc/ir"

// mergeAdjacentConcats implements rewrite 7: flatten nested concatenation
// along the same axis. If one of Concat A's inputs is itself a Concat B
// on the same axis, and B's sole consumer is A, B's inputs are spliced
// directly into A in B's input's place.
func mergeAdjacentConcats(g *ir.Graph, order []ir.NodeId) bool {
	for _, id := range order {
		outer := g.Node(id)
		if outer == nil {
			continue
		}
		outerData, ok := outer.Data.(ir.ConcatData)
		if !ok {
			continue
		}
		for _, e := range g.InEdges(id) {
			inner := g.Node(e.Src)
			if inner == nil {
				continue
			}
			innerData, ok := inner.Data.(ir.ConcatData)
			if !ok || innerData.Axis != outerData.Axis {
				continue
			}
			if len(g.OutEdges(inner.ID)) != 1 {
				continue
			}

			innerIns := g.InEdges(inner.ID)
			sources := make([][2]int, 0, len(innerIns))
			for _, ie := range innerIns {
				sources = append(sources, [2]int{int(ie.Src), ie.SrcSlot})
			}
			removedSlot := e.DstSlot
			g.RemoveEdge(e.ID)
			g.RemoveNode(inner.ID)

			// Splice inner's sources in at removedSlot and shift every
			// later outer input slot up to make room, preserving their
			// relative order (this keeps the concat axis ordering
			// stable: inner's pieces occupy inner's original position).
			laterEdges := make([]*ir.Edge, 0)
			for _, oe := range g.InEdges(id) {
				if oe.DstSlot > removedSlot {
					laterEdges = append(laterEdges, oe)
				}
			}
			shiftedLater := make([][2]int, 0, len(laterEdges))
			for _, oe := range laterEdges {
				shiftedLater = append(shiftedLater, [2]int{int(oe.Src), oe.SrcSlot})
				g.RemoveEdge(oe.ID)
			}

			slot := removedSlot
			for _, src := range sources {
				g.Connect(ir.NodeId(src[0]), src[1], id, slot)
				slot++
			}
			for _, src := range shiftedLater {
				g.Connect(ir.NodeId(src[0]), src[1], id, slot)
				slot++
			}
			return true
		}
	}
	return false
}

// removeUnconnectedLeaves implements rewrite 8: drop any non-Output node
// with no consumers.
func removeUnconnectedLeaves(g *ir.Graph, order []ir.NodeId) bool {
	for _, id := range order {
		n := g.Node(id)
		if n == nil {
			continue
		}
		if n.Kind() == ir.KindOutput {
			continue
		}
		if len(g.OutEdges(id)) == 0 {
			g.RemoveNode(id)
			return true
		}
	}
	return false
}

// mergeConstantWithReinterpretOrFormat implements rewrite 9: Constant +
// Reinterpret / Constant + FormatConversion merge by rewriting the
// Constant's shape/format and dropping the conversion node.
func mergeConstantWithReinterpretOrFormat(g *ir.Graph, order []ir.NodeId) bool {
	for _, id := range order {
		n := g.Node(id)
		if n == nil {
			continue
		}
		if _, ok := n.Data.(ir.ConstantData); !ok {
			continue
		}
		outs := g.OutEdges(id)
		if len(outs) != 1 {
			continue
		}
		next := g.Node(outs[0].Dst)
		if next == nil {
			continue
		}
		switch data := next.Data.(type) {
		case ir.ReinterpretData:
			n.OutputShape = data.NewShape
		case ir.FormatConversionData:
			n.Format = data.To
		default:
			continue
		}
		n.OperationIDs = append(n.OperationIDs, next.OperationIDs...)
		if err := g.CollapseEdge(outs[0].ID); err != nil {
			continue
		}
		return true
	}
	return false
}
