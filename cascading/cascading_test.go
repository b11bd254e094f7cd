package cascading

import (
	"testing"

	"github.com/npucc/npucc/caps"
	"github.com/npucc/npucc/opgraph"
	"github.com/npucc/npucc/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReformatPartRejectsNCHWWithoutCapability(t *testing.T) {
	c := caps.Default()
	c.SupportsNCHW = false
	_, err := NewReformatPart(0, tensor.Shape{1, 8, 8, 16}, tensor.U8, tensor.NHWC, tensor.NCHW, c)
	require.Error(t, err)
}

func TestNewReformatPartSucceeds(t *testing.T) {
	c := caps.Default()
	part, err := NewReformatPart(0, tensor.Shape{1, 8, 8, 16}, tensor.U8, tensor.NHWC, tensor.NHWCB, c)
	require.NoError(t, err)
	assert.Equal(t, PartReformat, part.Kind)
	assert.Len(t, part.Plan.Graph.Ops(), 1)
}

func sramPart(shape tensor.Shape) *Part {
	g := opgraph.New()
	in := g.AddBuffer(&opgraph.Buffer{Location: opgraph.LocSram, Shape: shape})
	out := g.AddBuffer(&opgraph.Buffer{Location: opgraph.LocSram, Shape: shape})
	g.AddOp(&opgraph.Op{Kind: opgraph.OpMce}, []opgraph.BufferId{in}, out)
	p := opgraph.NewPlan(g)
	p.Inputs[0] = in
	p.Outputs[0] = out
	return &Part{Kind: PartMce, Plan: p}
}

func TestBuildSectionsFusesSramChain(t *testing.T) {
	shape := tensor.Shape{1, 8, 8, 16}
	a := sramPart(shape)
	b := sramPart(shape)
	// Wire b's input to a's output buffer id to simulate a chained plan.
	for _, out := range a.Plan.Outputs {
		b.Plan.Inputs[0] = out
	}

	sections := BuildSections([]*Part{a, b})
	require.Len(t, sections, 1)
	assert.Len(t, sections[0].Parts, 2)
}

func TestBuildSectionsSplitsOnDramOutput(t *testing.T) {
	shape := tensor.Shape{1, 8, 8, 16}
	g := opgraph.New()
	in := g.AddBuffer(&opgraph.Buffer{Location: opgraph.LocSram, Shape: shape})
	out := g.AddBuffer(&opgraph.Buffer{Location: opgraph.LocDram, Shape: shape})
	g.AddOp(&opgraph.Op{Kind: opgraph.OpDma}, []opgraph.BufferId{in}, out)
	p := opgraph.NewPlan(g)
	p.Inputs[0] = in
	p.Outputs[0] = out
	dramPart := &Part{Kind: PartReformat, Plan: p}

	b := sramPart(shape)
	b.Plan.Inputs[0] = out

	sections := BuildSections([]*Part{dramPart, b})
	require.Len(t, sections, 2)
}
