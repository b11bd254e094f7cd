package optimizer

import (
	"testing"

	"github.com/npucc/npucc/ir"
	"github.com/npucc/npucc/tensor"
)

func node(shape tensor.Shape) *ir.Node {
	return &ir.Node{OutputShape: shape, OutputDType: tensor.U8}
}

func TestMergeInverseFormatConversions(t *testing.T) {
	g := ir.NewGraph()
	x := ir.NewInput(g, 0, node(tensor.Shape{1, 8, 8, 16}))
	c1 := ir.NewFormatConversion(g, tensor.NHWC, tensor.NHWCB, node(tensor.Shape{1, 8, 8, 16}))
	c2 := ir.NewFormatConversion(g, tensor.NHWCB, tensor.NHWC, node(tensor.Shape{1, 8, 8, 16}))
	out := ir.NewOutput(g, 0, 0, node(tensor.Shape{1, 8, 8, 16}))
	g.Connect(x, 0, c1, 0)
	g.Connect(c1, 0, c2, 0)
	g.Connect(c2, 0, out, 0)

	if err := Run(g); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	e := g.InEdgeAt(out, 0)
	if e == nil || e.Src != x {
		t.Fatalf("expected Output to read directly from Input after merge, got producer %v", e)
	}
	if g.Node(c1) != nil || g.Node(c2) != nil {
		t.Errorf("both format conversions should have been removed")
	}
}

func TestMergeAdjacentCopies(t *testing.T) {
	g := ir.NewGraph()
	x := ir.NewInput(g, 0, node(tensor.Shape{1, 4, 4, 4}))
	c1 := ir.NewCopy(g, node(tensor.Shape{1, 4, 4, 4}))
	c2 := ir.NewCopy(g, node(tensor.Shape{1, 4, 4, 4}))
	out := ir.NewOutput(g, 0, 0, node(tensor.Shape{1, 4, 4, 4}))
	g.Connect(x, 0, c1, 0)
	g.Connect(c1, 0, c2, 0)
	g.Connect(c2, 0, out, 0)

	if err := Run(g); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	remaining := 0
	for _, n := range g.Nodes() {
		if n.Kind() == ir.KindCopy {
			remaining++
		}
	}
	if remaining != 1 {
		t.Errorf("expected exactly one Copy remaining, got %d", remaining)
	}
}

func TestRemoveUnconnectedLeaves(t *testing.T) {
	g := ir.NewGraph()
	x := ir.NewInput(g, 0, node(tensor.Shape{1, 4, 4, 4}))
	dead := ir.NewCopy(g, node(tensor.Shape{1, 4, 4, 4}))
	out := ir.NewOutput(g, 0, 0, node(tensor.Shape{1, 4, 4, 4}))
	g.Connect(x, 0, out, 0)
	_ = dead // never connected as a producer to anything live

	if err := Run(g); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Node(dead) != nil {
		t.Errorf("unconnected non-Output leaf should have been removed")
	}
}
