package planner

import (
	"testing"

	"github.com/npucc/npucc/caps"
	"github.com/npucc/npucc/ir"
	"github.com/npucc/npucc/sramalloc"
	"github.com/npucc/npucc/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidateStripeShapesLargestFirst(t *testing.T) {
	cands := CandidateStripeShapes(tensor.Shape{1, 32, 32, 64})
	require.NotEmpty(t, cands)
	assert.Equal(t, tensor.Shape{1, 32, 32, 64}, cands[0])
	for _, c := range cands {
		assert.True(t, c.H() >= tensor.BrickH)
		assert.True(t, c.W() >= tensor.BrickW)
		assert.True(t, c.C() >= tensor.BrickC)
	}
}

func TestCandidateStripeShapesAlreadyMinimal(t *testing.T) {
	cands := CandidateStripeShapes(tensor.Shape{1, tensor.BrickH, tensor.BrickW, tensor.BrickC})
	assert.Len(t, cands, 1)
}

func TestTileSizeBytes(t *testing.T) {
	bytes, err := TileSizeBytes(tensor.Shape{1, 8, 8, 16}, 2, tensor.U8)
	require.NoError(t, err)
	assert.Equal(t, 2*8*8*16, bytes)
}

func TestReloadCycleEstimate(t *testing.T) {
	n, err := ReloadCycleEstimate(tensor.Shape{1, 32, 32, 64}, tensor.Shape{1, 8, 8, 64})
	require.NoError(t, err)
	assert.Equal(t, 16, n) // 4 x 4 stripes cover the 32x32 plane
}

func TestCheckFeasibleAndCommit(t *testing.T) {
	tiles := []OperandTile{
		{Name: "input", Bytes: 1024},
		{Name: "weights", Bytes: 512},
		{Name: "output", Bytes: 1024},
	}
	result, ok := CheckFeasible(4096, tiles)
	require.True(t, ok)
	assert.Len(t, result.Offsets, 3)

	alloc := sramalloc.New(4096)
	committed, ok := Commit(alloc, 1, tiles)
	require.True(t, ok)
	assert.Len(t, committed.Offsets, 3)
}

func TestCheckFeasibleFailsWhenTooLarge(t *testing.T) {
	tiles := []OperandTile{{Name: "input", Bytes: 1 << 20}}
	_, ok := CheckFeasible(1024, tiles)
	assert.False(t, ok)
}

func TestPlanMceAndPlePassPicksFeasibleCandidate(t *testing.T) {
	g := ir.NewGraph()
	head := ir.NewMceOperation(g, ir.MceOperationData{Op: ir.Conv, StrideX: 1, StrideY: 1}, &ir.Node{
		OutputShape: tensor.Shape{1, 16, 16, 32},
		OutputDType: tensor.U8,
	})

	alloc := sramalloc.New(1 << 16)
	pass, err := PlanMceAndPlePass(g, 1, head, 0, tensor.Shape{1, 16, 16, 32}, 3, 3, 1, 1, 32, tensor.U8, false, 0, caps.BlockConfig{}, caps.Default(), true, alloc, 1)
	require.NoError(t, err)
	assert.Equal(t, PassMceAndPle, pass.Kind)
	assert.Equal(t, head, pass.Head)
}

func TestBuildSectionsChainsWhenOutputNotInDram(t *testing.T) {
	g := ir.NewGraph()
	shape := tensor.Shape{1, 8, 8, 16}
	m1 := ir.NewMceOperation(g, ir.MceOperationData{Op: ir.Depthwise, StrideX: 1, StrideY: 1}, &ir.Node{OutputShape: shape, OutputDType: tensor.U8})
	m2 := ir.NewMceOperation(g, ir.MceOperationData{Op: ir.Depthwise, StrideX: 1, StrideY: 1}, &ir.Node{OutputShape: shape, OutputDType: tensor.U8, Location: ir.LocationSram})
	g.Connect(m1, 0, m2, 0)

	passes := []*Pass{
		{ID: 1, Head: m1},
		{ID: 2, Head: m2},
	}
	sections := BuildSections(g, passes)
	require.Len(t, sections, 1)
	assert.Len(t, sections[0].Passes, 2)
	assert.Equal(t, SectionSISO, sections[0].Kind)
}
