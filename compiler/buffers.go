package compiler

import (
	"github.com/npucc/npucc/buffermgr"
	"github.com/npucc/npucc/ir"
)

// registerBuffers walks order and registers every DRAM-resident node
// with the buffer manager (§4.I, §2 control flow: "buffer manager
// assigns DRAM offsets"): Input nodes as Input buffers, Constant nodes
// as ConstantDma buffers, Output nodes by converting their producer's
// buffer, and every other DRAM-resident node as an Intermediate buffer.
// Lifetimes are grown to cover every position in order at which the
// node is produced or consumed (§5 Concurrency & Resource Model:
// "[start_cmd_index, end_cmd_index)").
func registerBuffers(g *ir.Graph, order []ir.NodeId, bm *buffermgr.Manager) map[ir.NodeId]uint32 {
	pos := make(map[ir.NodeId]int, len(order))
	for i, id := range order {
		pos[id] = i
	}

	bufID := make(map[ir.NodeId]uint32)

	for i, id := range order {
		n := g.Node(id)
		if n == nil {
			continue
		}

		switch data := n.Data.(type) {
		case ir.InputData:
			size, err := n.OutputShape.NHWCBByteSize(n.OutputDType.Bytes())
			if err != nil {
				continue
			}
			b := bm.AddDramInput(size, data.SourceOpID)
			bufID[id] = b
			bm.MarkBufferUsedAtTime(b, int64(i), int64(i+1))

		case ir.ConstantData:
			b := bm.AddDramConstant(buffermgr.ConstantDma, data.Bytes)
			bufID[id] = b

		case ir.OutputData:
			e := g.InEdgeAt(id, 0)
			if e == nil {
				continue
			}
			if srcBuf, ok := bufID[e.Src]; ok {
				bm.ChangeToOutput(srcBuf, data.SourceOpID, data.OutputIdx)
			}

		default:
			if n.Location != ir.LocationDram {
				continue
			}
			size, err := n.OutputShape.NHWCBByteSize(n.OutputDType.Bytes())
			if err != nil {
				continue
			}
			b := bm.AddDram(buffermgr.Intermediate, size)
			bufID[id] = b
			bm.MarkBufferUsedAtTime(b, int64(i), int64(i+1))
		}
	}

	// Extend every producer's lifetime to cover its last consumer: a
	// buffer stays live until the last command index that reads it.
	for _, id := range order {
		b, ok := bufID[id]
		if !ok {
			continue
		}
		for _, e := range g.OutEdges(id) {
			if cpos, ok := pos[e.Dst]; ok {
				bm.MarkBufferUsedAtTime(b, int64(cpos), int64(cpos+1))
			}
		}
	}

	return bufID
}

// bucketBufferInfos splits every registered buffer into the seven
// CompiledBlob sections by its BufferType (§6 Outputs ordering).
func bucketBufferInfos(bm *buffermgr.Manager) (input, output, ccu, cdma, intermediate []*buffermgr.BufferInfo) {
	for _, b := range bm.All() {
		switch b.Type {
		case buffermgr.Input:
			input = append(input, b)
		case buffermgr.Output:
			output = append(output, b)
		case buffermgr.ConstantControlUnit:
			ccu = append(ccu, b)
		case buffermgr.ConstantDma:
			cdma = append(cdma, b)
		case buffermgr.Intermediate:
			intermediate = append(intermediate, b)
		}
	}
	return
}
