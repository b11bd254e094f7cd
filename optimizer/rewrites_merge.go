package optimizer

import "github.com/npucc/npucc/ir"

// mergeCopyRequantize implements rewrite 4: Copy+Requantize (in either
// adjacency) merge into a single Requantize, carrying over operation ids
// from both.
func mergeCopyRequantize(g *ir.Graph, order []ir.NodeId) bool {
	for _, id := range order {
		n := g.Node(id)
		if n == nil {
			continue
		}
		_, isCopy := n.Data.(ir.CopyData)
		_, isRequant := n.Data.(ir.RequantizeData)
		if !isCopy && !isRequant {
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
		_, nextCopy := next.Data.(ir.CopyData)
		requant, nextRequant := next.Data.(ir.RequantizeData)

		var finalRequant ir.RequantizeData
		switch {
		case isCopy && nextRequant:
			finalRequant = requant
		case isRequant && nextCopy:
			finalRequant = n.Data.(ir.RequantizeData)
		default:
			continue
		}

		inEdge := g.InEdgeAt(id, 0)
		if inEdge == nil {
			continue
		}
		mergedOpIDs := append(append([]int{}, n.OperationIDs...), next.OperationIDs...)
		consumers := g.OutEdges(next.ID)
		consumerTargets := make([][2]int, 0, len(consumers))
		for _, e := range consumers {
			consumerTargets = append(consumerTargets, [2]int{int(e.Dst), e.DstSlot})
		}
		producer, producerSlot := inEdge.Src, inEdge.SrcSlot

		g.RemoveNode(id)
		g.RemoveNode(next.ID)

		merged := &ir.Node{OutputShape: next.OutputShape, OutputDType: next.OutputDType, OutputQuant: next.OutputQuant, Format: next.Format}
		mergedID := ir.NewRequantize(g, finalRequant.NewZeroPoint, finalRequant.NewScale, merged)
		merged.OperationIDs = mergedOpIDs

		g.Connect(producer, producerSlot, mergedID, 0)
		for _, target := range consumerTargets {
			g.Connect(mergedID, 0, ir.NodeId(target[0]), target[1])
		}
		return true
	}
	return false
}

// mergeAdjacentRequantizes implements rewrite 5: two adjacent
// Requantize nodes merge into one; the later node's parameters win,
// operation ids accumulate.
func mergeAdjacentRequantizes(g *ir.Graph, order []ir.NodeId) bool {
	for _, id := range order {
		n := g.Node(id)
		if n == nil {
			continue
		}
		if _, ok := n.Data.(ir.RequantizeData); !ok {
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
		requant2, ok := next.Data.(ir.RequantizeData)
		if !ok {
			continue
		}

		inEdge := g.InEdgeAt(id, 0)
		if inEdge == nil {
			continue
		}
		mergedOpIDs := append(append([]int{}, n.OperationIDs...), next.OperationIDs...)
		consumers := g.OutEdges(next.ID)
		consumerTargets := make([][2]int, 0, len(consumers))
		for _, e := range consumers {
			consumerTargets = append(consumerTargets, [2]int{int(e.Dst), e.DstSlot})
		}
		producer, producerSlot := inEdge.Src, inEdge.SrcSlot

		g.RemoveNode(id)
		g.RemoveNode(next.ID)

		merged := &ir.Node{OutputShape: next.OutputShape, OutputDType: next.OutputDType, OutputQuant: next.OutputQuant, Format: next.Format}
		mergedID := ir.NewRequantize(g, requant2.NewZeroPoint, requant2.NewScale, merged)
		merged.OperationIDs = mergedOpIDs

		g.Connect(producer, producerSlot, mergedID, 0)
		for _, target := range consumerTargets {
			g.Connect(mergedID, 0, ir.NodeId(target[0]), target[1])
		}
		return true
	}
	return false
}

// mergeAdjacentCopies implements rewrite 6: two adjacent Copy nodes
// merge into one.
func mergeAdjacentCopies(g *ir.Graph, order []ir.NodeId) bool {
	for _, id := range order {
		n := g.Node(id)
		if n == nil {
			continue
		}
		if _, ok := n.Data.(ir.CopyData); !ok {
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
		if _, ok := next.Data.(ir.CopyData); !ok {
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
