package ir

import (
	"testing"

	"github.com/npucc/npucc/tensor"
)

func newTestNode(shape tensor.Shape) *Node {
	return &Node{OutputShape: shape, OutputDType: tensor.U8}
}

func TestConnectAndTopologicalSort(t *testing.T) {
	g := NewGraph()
	a := NewInput(g, 0, newTestNode(tensor.Shape{1, 4, 4, 4}))
	b := NewCopy(g, newTestNode(tensor.Shape{1, 4, 4, 4}))
	c := NewOutput(g, 0, 0, newTestNode(tensor.Shape{1, 4, 4, 4}))

	if _, err := g.Connect(a, 0, b, 0); err != nil {
		t.Fatalf("connect a->b: %v", err)
	}
	if _, err := g.Connect(b, 0, c, 0); err != nil {
		t.Fatalf("connect b->c: %v", err)
	}

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []NodeId{a, b, c}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("position %d: got %s, want %s", i, order[i], want[i])
		}
	}
}

func TestConnectDuplicateInput(t *testing.T) {
	g := NewGraph()
	a := NewInput(g, 0, newTestNode(tensor.Shape{1, 1, 1, 1}))
	b := NewInput(g, 1, newTestNode(tensor.Shape{1, 1, 1, 1}))
	c := NewCopy(g, newTestNode(tensor.Shape{1, 1, 1, 1}))

	if _, err := g.Connect(a, 0, c, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := g.Connect(b, 0, c, 0); err == nil {
		t.Fatal("expected DuplicateInput error")
	}
}

func TestSplitEdge(t *testing.T) {
	g := NewGraph()
	a := NewInput(g, 0, newTestNode(tensor.Shape{1, 1, 1, 1}))
	c := NewOutput(g, 0, 0, newTestNode(tensor.Shape{1, 1, 1, 1}))
	edge, _ := g.Connect(a, 0, c, 0)

	mid := NewCopy(g, newTestNode(tensor.Shape{1, 1, 1, 1}))
	if err := g.SplitEdge(edge, mid); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if e := g.InEdgeAt(mid, 0); e == nil || e.Src != a {
		t.Errorf("mid's input should come from a")
	}
	if e := g.InEdgeAt(c, 0); e == nil || e.Src != mid {
		t.Errorf("c's input should come from mid")
	}
}

func TestCollapseEdge(t *testing.T) {
	g := NewGraph()
	a := NewInput(g, 0, newTestNode(tensor.Shape{1, 1, 1, 1}))
	mid := NewCopy(g, newTestNode(tensor.Shape{1, 1, 1, 1}))
	c := NewOutput(g, 0, 0, newTestNode(tensor.Shape{1, 1, 1, 1}))

	e1, _ := g.Connect(a, 0, mid, 0)
	g.Connect(mid, 0, c, 0)

	if err := g.CollapseEdge(e1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e := g.InEdgeAt(c, 0); e == nil || e.Src != a {
		t.Errorf("c's input should now come directly from a")
	}
	if g.Node(mid) != nil {
		t.Errorf("mid should have been removed")
	}
}

func TestRemoveNodeRemovesEdges(t *testing.T) {
	g := NewGraph()
	a := NewInput(g, 0, newTestNode(tensor.Shape{1, 1, 1, 1}))
	b := NewCopy(g, newTestNode(tensor.Shape{1, 1, 1, 1}))
	g.Connect(a, 0, b, 0)

	g.RemoveNode(a)
	if g.InEdgeAt(b, 0) != nil {
		t.Errorf("edge should have been removed along with its source node")
	}
}

func TestTopologicalSortDeterministicTieBreak(t *testing.T) {
	g := NewGraph()
	a := NewInput(g, 0, newTestNode(tensor.Shape{1, 1, 1, 1}))
	b := NewInput(g, 1, newTestNode(tensor.Shape{1, 1, 1, 1}))
	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order[0] != a || order[1] != b {
		t.Errorf("expected insertion order [a,b], got %v", order)
	}
}
