package emitter

import (
	"testing"

	"github.com/npucc/npucc/ir"
	"github.com/npucc/npucc/options"
	"github.com/npucc/npucc/planner"
	"github.com/npucc/npucc/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitProducesOneCommandPerPass(t *testing.T) {
	g := ir.NewGraph()
	shape := tensor.Shape{1, 8, 8, 16}
	head := ir.NewMceOperation(g, ir.MceOperationData{Op: ir.Conv, StrideX: 1, StrideY: 1}, &ir.Node{OutputShape: shape, OutputDType: tensor.U8})
	g.Node(head).Pass = 1

	passIndex := map[ir.PassId]*planner.Pass{
		1: {ID: 1, Kind: planner.PassMceAndPle, Head: head,
			Input:   planner.StripeAllocation{Shape: shape},
			Weights: planner.StripeAllocation{Shape: shape},
			Output:  planner.StripeAllocation{Shape: shape},
		},
	}

	cmds, err := Emit(g, []ir.NodeId{head}, passIndex, nil, nil, options.DumpOptions{})
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Equal(t, CommandMcePle, cmds[0].Type)
	require.NotNil(t, cmds[0].Weights)
}

func TestEmitInterleavesDumpMarkersWhenEnabled(t *testing.T) {
	g := ir.NewGraph()
	shape := tensor.Shape{1, 8, 8, 16}
	head := ir.NewMceOperation(g, ir.MceOperationData{Op: ir.Conv, StrideX: 1, StrideY: 1}, &ir.Node{OutputShape: shape, OutputDType: tensor.U8})
	g.Node(head).Pass = 1

	passIndex := map[ir.PassId]*planner.Pass{
		1: {ID: 1, Head: head,
			Input:   planner.StripeAllocation{Shape: shape},
			Weights: planner.StripeAllocation{Shape: shape},
			Output:  planner.StripeAllocation{Shape: shape},
		},
	}

	cmds, err := Emit(g, []ir.NodeId{head}, passIndex, nil, nil, options.DumpOptions{DumpRam: true})
	require.NoError(t, err)
	require.Len(t, cmds, 3)
	assert.Equal(t, CommandDumpSram, cmds[0].Type)
	assert.Equal(t, CommandDumpDram, cmds[2].Type)
}

func TestEmitSkipsNodesWithoutPass(t *testing.T) {
	g := ir.NewGraph()
	in := ir.NewInput(g, 0, &ir.Node{OutputShape: tensor.Shape{1, 8, 8, 16}})
	cmds, err := Emit(g, []ir.NodeId{in}, map[ir.PassId]*planner.Pass{}, nil, nil, options.DumpOptions{})
	require.NoError(t, err)
	assert.Empty(t, cmds)
}
