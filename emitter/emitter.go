// Package emitter implements the command stream emitter (§4.K): walks
// the topologically sorted IR graph and, per Pass, emits one command
// carrying full tensor/stripe/tile descriptors, DRAM buffer ids, SRAM
// offsets, bit-exact zero-points, and the selected algorithm. DumpSram
// and DumpDram trace markers are interleaved when enabled.
package emitter

import (
	"github.com/npucc/npucc/errs"
	"github.com/npucc/npucc/ir"
	"github.com/npucc/npucc/options"
	"github.com/npucc/npucc/planner"
	"github.com/npucc/npucc/tensor"
	"github.com/sirupsen/logrus"
)

// CommandType tags the fixed command shapes the emitter produces (§4.K).
type CommandType int

const (
	CommandMcePle CommandType = iota
	CommandPleOnly
	CommandConvert
	CommandSpaceToDepth
	CommandDumpSram
	CommandDumpDram
)

func (c CommandType) String() string {
	switch c {
	case CommandMcePle:
		return "McePle"
	case CommandPleOnly:
		return "PleOnly"
	case CommandConvert:
		return "Convert"
	case CommandSpaceToDepth:
		return "SpaceToDepth"
	case CommandDumpSram:
		return "DumpSram"
	case CommandDumpDram:
		return "DumpDram"
	default:
		return "Unknown"
	}
}

// TensorDescriptor fully describes one operand of a command: its shape,
// dtype, format, buffer id, and offset (DRAM buffer id or SRAM byte
// offset depending on Location).
type TensorDescriptor struct {
	Shape    tensor.Shape
	DType    tensor.DType
	Format   tensor.Format
	Location ir.BufferLocation
	BufferID uint32
	Offset   int
	ZeroPoint int32
}

// Command is one emitted command-stream entry.
type Command struct {
	Type      CommandType
	PassID    ir.PassId
	Input     TensorDescriptor
	Output    TensorDescriptor
	Weights   *TensorDescriptor
	Algorithm ir.Algorithm
	BlockConfig string

	// DumpLabel is set only on CommandDumpSram/CommandDumpDram entries,
	// naming which buffer the trace marker refers to.
	DumpLabel string
}

// Emit walks nodes (expected to already be in topological order) and
// produces one command per Pass-bearing node, in order, interleaving
// DumpSram/DumpDram markers when opts.Dump enables them. A node with no
// Pass assignment is skipped: Input/Output/Constant nodes carry no
// command of their own, they only supply operand descriptors to the
// Passes that read or write them.
//
// bufID maps every DRAM-resident node to the buffermgr id it was
// registered under (as compiler.registerBuffers returns it); weightBufID maps each Pass carrying MCE
// weights to the ConstantDma buffer id its encoded weight stream was
// registered under. Both are consulted to populate
// TensorDescriptor.BufferID so the serialized command stream can
// disambiguate operands living in distinct DRAM buffers (§4.K, §6).
func Emit(g *ir.Graph, nodes []ir.NodeId, passIndex map[ir.PassId]*planner.Pass, bufID map[ir.NodeId]uint32, weightBufID map[ir.PassId]uint32, opts options.DumpOptions) ([]Command, error) {
	var out []Command
	seenPass := make(map[ir.PassId]bool)

	for _, id := range nodes {
		n := g.Node(id)
		if n == nil || n.Pass == 0 || seenPass[n.Pass] {
			continue
		}
		seenPass[n.Pass] = true

		pass, ok := passIndex[n.Pass]
		if !ok {
			return nil, errs.Internal("emitter: node %s references unknown pass %d", id, n.Pass)
		}

		cmd, err := commandForNode(g, n, pass, bufID, weightBufID)
		if err != nil {
			return nil, err
		}

		if opts.DumpRam {
			out = append(out, Command{Type: CommandDumpSram, PassID: n.Pass, DumpLabel: "pre"})
		}
		out = append(out, cmd)
		if opts.DumpRam {
			out = append(out, Command{Type: CommandDumpDram, PassID: n.Pass, DumpLabel: "post"})
		}
	}

	if opts.DumpReports {
		logrus.WithField("commands", len(out)).Debug("emitter: command stream complete")
	}
	return out, nil
}

// commandForNode classifies the node's kind into one of the fixed
// command types and fills in its descriptors from the node's assigned
// Pass (§4.K). bufID/weightBufID populate TensorDescriptor.BufferID, see
// Emit.
func commandForNode(g *ir.Graph, n *ir.Node, pass *planner.Pass, bufID map[ir.NodeId]uint32, weightBufID map[ir.PassId]uint32) (Command, error) {
	cmdType := classify(n)

	var inputBufID uint32
	if e := g.InEdgeAt(n.ID, 0); e != nil {
		inputBufID = bufID[e.Src]
	}

	input := TensorDescriptor{
		Shape:     pass.Input.Shape,
		DType:     n.OutputDType,
		Format:    n.Format,
		Location:  ir.LocationSram,
		BufferID:  inputBufID,
		Offset:    pass.Input.OffsetBytes,
		ZeroPoint: n.OutputQuant.ZeroPoint,
	}
	output := TensorDescriptor{
		Shape:     pass.Output.Shape,
		DType:     n.OutputDType,
		Format:    n.Format,
		Location:  n.Location,
		BufferID:  bufID[n.ID],
		Offset:    pass.Output.OffsetBytes,
		ZeroPoint: n.OutputQuant.ZeroPoint,
	}

	cmd := Command{
		Type:        cmdType,
		PassID:      pass.ID,
		Input:       input,
		Output:      output,
		BlockConfig: pass.BlockConfig.String(),
	}

	if cmdType == CommandMcePle || cmdType == CommandPleOnly {
		weights := TensorDescriptor{
			Shape:    pass.Weights.Shape,
			DType:    n.OutputDType,
			BufferID: weightBufID[pass.ID],
			Offset:   pass.Weights.OffsetBytes,
		}
		cmd.Weights = &weights
	}

	cmd.Algorithm = pass.Algorithm

	return cmd, nil
}

func classify(n *ir.Node) CommandType {
	switch n.Kind() {
	case ir.KindFormatConversion, ir.KindReinterpret:
		return CommandConvert
	case ir.KindFuseOnlyPle:
		if data, ok := n.Data.(ir.FuseOnlyPleData); ok && data.Kernel == ir.PleSpaceToDepth {
			return CommandSpaceToDepth
		}
		return CommandMcePle
	case ir.KindStandalonePle:
		return CommandPleOnly
	default:
		return CommandMcePle
	}
}
