package ir

import (
	"fmt"

	"github.com/npucc/npucc/errs"
)

// Edge connects one producer output slot to one consumer input slot.
type Edge struct {
	ID EdgeId

	Src      NodeId
	SrcSlot  int
	Dst      NodeId
	DstSlot  int

	removed bool
}

// Graph is the arena owner of every Node and Edge. Other components hold
// non-owning NodeId/EdgeId handles; nothing outside Graph ever follows a
// back-pointer from an Edge to its Graph.
type Graph struct {
	nodes []*Node // index 0 unused (invalidID sentinel)
	edges []*Edge // index 0 unused

	// outEdges/inEdges index live edge ids per node, for fast traversal.
	outEdges map[NodeId][]EdgeId
	inEdges  map[NodeId][]EdgeId

	// insertionOrder records node creation order, used to break ties in
	// TopologicalSort deterministically.
	insertionOrder []NodeId
}

// NewGraph returns an empty Graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:    []*Node{nil},
		edges:    []*Edge{nil},
		outEdges: make(map[NodeId][]EdgeId),
		inEdges:  make(map[NodeId][]EdgeId),
	}
}

// AddNode appends an already-constructed Node (with Data set), assigning
// it a fresh id. This is the primary construction entry point used by the
// per-kind constructors in node_*.go.
func (g *Graph) AddNode(n *Node) NodeId {
	id := NodeId(len(g.nodes))
	n.ID = id
	g.nodes = append(g.nodes, n)
	g.insertionOrder = append(g.insertionOrder, id)
	return id
}

// Node returns the node for id, or nil if id does not exist or was
// removed.
func (g *Graph) Node(id NodeId) *Node {
	if int(id) <= 0 || int(id) >= len(g.nodes) {
		return nil
	}
	return g.nodes[id]
}

// Nodes returns every live node, in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.insertionOrder))
	for _, id := range g.insertionOrder {
		if n := g.Node(id); n != nil {
			out = append(out, n)
		}
	}
	return out
}

// Edge returns the edge for id, or nil if removed/absent.
func (g *Graph) Edge(id EdgeId) *Edge {
	if int(id) <= 0 || int(id) >= len(g.edges) {
		return nil
	}
	e := g.edges[id]
	if e == nil || e.removed {
		return nil
	}
	return e
}

// OutEdges returns the live edges whose source is id.
func (g *Graph) OutEdges(id NodeId) []*Edge {
	var out []*Edge
	for _, eid := range g.outEdges[id] {
		if e := g.Edge(eid); e != nil {
			out = append(out, e)
		}
	}
	return out
}

// InEdges returns the live edges whose destination is id.
func (g *Graph) InEdges(id NodeId) []*Edge {
	var out []*Edge
	for _, eid := range g.inEdges[id] {
		if e := g.Edge(eid); e != nil {
			out = append(out, e)
		}
	}
	return out
}

// InEdgeAt returns the live edge feeding input slot dstSlot of id, or nil.
func (g *Graph) InEdgeAt(id NodeId, dstSlot int) *Edge {
	for _, e := range g.InEdges(id) {
		if e.DstSlot == dstSlot {
			return e
		}
	}
	return nil
}

// Connect inserts an edge from (src, srcSlot) to (dst, dstSlot). Fails
// with DuplicateInput if dstSlot is already used on dst.
func (g *Graph) Connect(src NodeId, srcSlot int, dst NodeId, dstSlot int) (EdgeId, error) {
	if g.Node(src) == nil {
		return 0, errs.Internal("connect: unknown source node %s", src)
	}
	if g.Node(dst) == nil {
		return 0, errs.Internal("connect: unknown destination node %s", dst)
	}
	if g.InEdgeAt(dst, dstSlot) != nil {
		return 0, fmt.Errorf("%w: input slot %d of %s already connected", ErrDuplicateInput, dstSlot, dst)
	}
	id := EdgeId(len(g.edges))
	e := &Edge{ID: id, Src: src, SrcSlot: srcSlot, Dst: dst, DstSlot: dstSlot}
	g.edges = append(g.edges, e)
	g.outEdges[src] = append(g.outEdges[src], id)
	g.inEdges[dst] = append(g.inEdges[dst], id)
	return id, nil
}

// disconnect marks an edge removed without touching its endpoints' other
// edges.
func (g *Graph) disconnect(id EdgeId) {
	if e := g.Edge(id); e != nil {
		e.removed = true
	}
}

// RemoveEdge removes a single edge without touching either endpoint node,
// used by optimiser rewrites that re-wire a node's inputs individually.
func (g *Graph) RemoveEdge(id EdgeId) {
	g.disconnect(id)
}

// RemoveNode deletes a node and every edge touching it.
func (g *Graph) RemoveNode(id NodeId) {
	for _, e := range g.OutEdges(id) {
		g.disconnect(e.ID)
	}
	for _, e := range g.InEdges(id) {
		g.disconnect(e.ID)
	}
	if int(id) < len(g.nodes) {
		g.nodes[id] = nil
	}
}

// SplitEdge inserts newNode on edge: the edge's original destination now
// receives newNode's single output, and newNode's single input receives
// what the edge used to carry. newNode must have exactly one input slot
// and one output slot (enforced by the caller providing slot 0/0).
func (g *Graph) SplitEdge(edgeID EdgeId, newNode NodeId) error {
	e := g.Edge(edgeID)
	if e == nil {
		return errs.Internal("split_edge: unknown edge %s", edgeID)
	}
	src, srcSlot, dst, dstSlot := e.Src, e.SrcSlot, e.Dst, e.DstSlot
	g.disconnect(edgeID)
	if _, err := g.Connect(src, srcSlot, newNode, 0); err != nil {
		return err
	}
	if _, err := g.Connect(newNode, 0, dst, dstSlot); err != nil {
		return err
	}
	return nil
}

// CollapseEdge removes the target (destination) of edge if it has
// exactly one input; all of the target's output edges are rewired back
// to the source of edge, preserving each consumer's input slot exactly.
func (g *Graph) CollapseEdge(edgeID EdgeId) error {
	e := g.Edge(edgeID)
	if e == nil {
		return errs.Internal("collapse_edge: unknown edge %s", edgeID)
	}
	target := e.Dst
	if len(g.InEdges(target)) != 1 {
		return errs.Internal("collapse_edge: target %s does not have exactly one input", target)
	}
	src, srcSlot := e.Src, e.SrcSlot
	outs := g.OutEdges(target)
	g.disconnect(edgeID)
	for _, out := range outs {
		dst, dstSlot := out.Dst, out.DstSlot
		g.disconnect(out.ID)
		if _, err := g.Connect(src, srcSlot, dst, dstSlot); err != nil {
			return err
		}
	}
	g.RemoveNode(target)
	return nil
}

// InsertBefore inserts newNode between anchor and all of anchor's
// current producers feeding input slot 0, i.e. it splits anchor's first
// input edge. For nodes with a single input this places newNode directly
// upstream of anchor.
func (g *Graph) InsertBefore(anchor NodeId, newNode NodeId) error {
	e := g.InEdgeAt(anchor, 0)
	if e == nil {
		return errs.Internal("insert_before: %s has no input at slot 0", anchor)
	}
	return g.SplitEdge(e.ID, newNode)
}

// InsertAfter inserts newNode on anchor's output-0 edge(s): every
// consumer currently reading anchor's output 0 now reads newNode's
// output 0 instead, and newNode's input 0 reads anchor's output 0.
func (g *Graph) InsertAfter(anchor NodeId, newNode NodeId) error {
	outs := g.OutEdges(anchor)
	var toMove []*Edge
	for _, e := range outs {
		if e.SrcSlot == 0 {
			toMove = append(toMove, e)
		}
	}
	for _, e := range toMove {
		dst, dstSlot := e.Dst, e.DstSlot
		g.disconnect(e.ID)
		if _, err := g.Connect(newNode, 0, dst, dstSlot); err != nil {
			return err
		}
	}
	_, err := g.Connect(anchor, 0, newNode, 0)
	return err
}

// TopologicalSort returns node ids in a valid topological order,
// deterministic by insertion order whenever the graph has ties (Kahn's
// algorithm with a FIFO-by-insertion-order ready queue).
func (g *Graph) TopologicalSort() ([]NodeId, error) {
	indegree := make(map[NodeId]int)
	for _, n := range g.Nodes() {
		indegree[n.ID] = len(g.InEdges(n.ID))
	}

	ready := make([]NodeId, 0)
	for _, id := range g.insertionOrder {
		if g.Node(id) == nil {
			continue
		}
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	var order []NodeId
	visited := make(map[NodeId]bool)
	for len(ready) > 0 {
		cur := ready[0]
		ready = ready[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		order = append(order, cur)

		// Collect newly-ready successors in insertion order for
		// determinism, rather than edge-discovery order.
		var newlyReady []NodeId
		for _, e := range g.OutEdges(cur) {
			indegree[e.Dst]--
			if indegree[e.Dst] == 0 {
				newlyReady = append(newlyReady, e.Dst)
			}
		}
		for _, id := range g.insertionOrder {
			for _, nr := range newlyReady {
				if id == nr {
					ready = append(ready, id)
				}
			}
		}
	}

	if len(order) != len(g.Nodes()) {
		return nil, errs.Internal("topological_sort: graph contains a cycle")
	}
	return order, nil
}

// ErrDuplicateInput is returned by Connect when the destination input
// slot is already in use.
var ErrDuplicateInput = fmt.Errorf("duplicate input slot")
