package optimizer

import "github.com/npucc/npucc/ir"

// reorderReinterpretRequantize implements rewrite 2: Reinterpret ->
// Requantize becomes Requantize -> Reinterpret, so the requantise can
// fuse into the preceding MCE. Only handles the case where Reinterpret
// has a single consumer (the Requantize); with fan-out > 1 the reorder
// would duplicate the Reinterpret, which this port does not attempt.
func reorderReinterpretRequantize(g *ir.Graph, order []ir.NodeId) bool {
	for _, id := range order {
		reinterpNode := g.Node(id)
		if reinterpNode == nil {
			continue
		}
		reinterp, ok := reinterpNode.Data.(ir.ReinterpretData)
		if !ok {
			continue
		}
		outs := g.OutEdges(id)
		if len(outs) != 1 {
			continue
		}
		reqNode := g.Node(outs[0].Dst)
		if reqNode == nil {
			continue
		}
		requant, ok := reqNode.Data.(ir.RequantizeData)
		if !ok {
			continue
		}

		inEdge := g.InEdgeAt(id, 0)
		if inEdge == nil {
			continue
		}
		producer, producerSlot := inEdge.Src, inEdge.SrcSlot
		reqConsumers := g.OutEdges(reqNode.ID)
		consumerTargets := make([][2]int, 0, len(reqConsumers))
		for _, e := range reqConsumers {
			consumerTargets = append(consumerTargets, [2]int{int(e.Dst), e.DstSlot})
		}

		// Detach both nodes and splice them back in swapped order.
		g.RemoveNode(id)
		g.RemoveNode(reqNode.ID)

		newReq := &ir.Node{
			OutputShape: reinterpNode.OutputShape,
			OutputDType: reqNode.OutputDType,
			OutputQuant: reqNode.OutputQuant,
			Format:      reinterpNode.Format,
		}
		newReqID := ir.NewRequantize(g, requant.NewZeroPoint, requant.NewScale, newReq)
		newReinterp := &ir.Node{
			OutputShape: reinterpNode.OutputShape,
			OutputDType: reqNode.OutputDType,
			OutputQuant: reqNode.OutputQuant,
			Format:      reinterpNode.Format,
		}
		newReinterpID := ir.NewReinterpret(g, reinterp.NewShape, newReinterp)
		newReinterp.OperationIDs = append(newReinterp.OperationIDs, reinterpNode.OperationIDs...)
		newReq.OperationIDs = append(newReq.OperationIDs, reqNode.OperationIDs...)

		g.Connect(producer, producerSlot, newReqID, 0)
		g.Connect(newReqID, 0, newReinterpID, 0)
		for _, target := range consumerTargets {
			g.Connect(newReinterpID, 0, ir.NodeId(target[0]), target[1])
		}
		return true
	}
	return false
}

// reorderConcatRequantizeCopy implements rewrite 3: Concat ->
// Requantize/Copy is pushed into each input branch so each input can
// fuse into its own MCE, i.e. Concat's single consumer (a Requantize or
// Copy) is replicated before every one of Concat's inputs instead.
func reorderConcatRequantizeCopy(g *ir.Graph, order []ir.NodeId) bool {
	for _, id := range order {
		concatNode := g.Node(id)
		if concatNode == nil {
			continue
		}
		if _, ok := concatNode.Data.(ir.ConcatData); !ok {
			continue
		}
		outs := g.OutEdges(id)
		if len(outs) != 1 {
			continue
		}
		opNode := g.Node(outs[0].Dst)
		if opNode == nil {
			continue
		}

		var makeReplica func(template *ir.Node) *ir.NodeId
		switch data := opNode.Data.(type) {
		case ir.RequantizeData:
			makeReplica = func(template *ir.Node) *ir.NodeId {
				nid := ir.NewRequantize(g, data.NewZeroPoint, data.NewScale, template)
				return &nid
			}
		case ir.CopyData:
			makeReplica = func(template *ir.Node) *ir.NodeId {
				nid := ir.NewCopy(g, template)
				return &nid
			}
		default:
			continue
		}

		ins := g.InEdges(id)
		consumerEdges := g.OutEdges(opNode.ID)
		consumerTargets := make([][2]int, 0, len(consumerEdges))
		for _, e := range consumerEdges {
			consumerTargets = append(consumerTargets, [2]int{int(e.Dst), e.DstSlot})
		}

		type branch struct {
			producer ir.NodeId
			slot     int
			dstSlot  int
		}
		var branches []branch
		for _, e := range ins {
			branches = append(branches, branch{producer: e.Src, slot: e.SrcSlot, dstSlot: e.DstSlot})
		}
		for _, e := range ins {
			g.RemoveEdge(e.ID)
		}

		g.RemoveNode(opNode.ID)

		for _, b := range branches {
			replicaID := *makeReplica(&ir.Node{
				OutputShape: opNode.OutputShape,
				OutputDType: opNode.OutputDType,
				OutputQuant: opNode.OutputQuant,
				Format:      opNode.Format,
			})
			g.Connect(b.producer, b.slot, replicaID, 0)
			g.Connect(replicaID, 0, id, b.dstSlot)
		}
		for _, target := range consumerTargets {
			g.Connect(id, 0, ir.NodeId(target[0]), target[1])
		}
		return true
	}
	return false
}
