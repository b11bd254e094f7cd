package ir

import (
	"fmt"
	"io"
)

// DumpDot writes a Graphviz-compatible dot representation of g to out:
// nodes as shape=record boxes labelled with id/kind/output-shape, edges
// labelled with the consumer input slot, and nodes grouped into
// subgraph cluster_N per assigned Pass (§4.B dump_dot, SPEC_FULL.md §4
// supplemented features). This is a pure, side-effect-only format
// writer: it never mutates the graph.
func DumpDot(g *Graph, out io.Writer) error {
	if _, err := fmt.Fprintln(out, "digraph IR {"); err != nil {
		return err
	}
	fmt.Fprintln(out, "  rankdir=TB;")

	byPass := make(map[PassId][]*Node)
	var unassigned []*Node
	for _, n := range g.Nodes() {
		if n.Pass != 0 {
			byPass[n.Pass] = append(byPass[n.Pass], n)
		} else {
			unassigned = append(unassigned, n)
		}
	}

	for pass, nodes := range byPass {
		fmt.Fprintf(out, "  subgraph cluster_%d {\n", pass)
		fmt.Fprintf(out, "    label=\"Pass %d\";\n", pass)
		for _, n := range nodes {
			writeDotNode(out, n)
		}
		fmt.Fprintln(out, "  }")
	}
	for _, n := range unassigned {
		writeDotNode(out, n)
	}

	for _, n := range g.Nodes() {
		for _, e := range g.OutEdges(n.ID) {
			fmt.Fprintf(out, "  %s -> %s [label=\"in%d\"];\n", e.Src, e.Dst, e.DstSlot)
		}
	}

	fmt.Fprintln(out, "}")
	return nil
}

func writeDotNode(out io.Writer, n *Node) {
	fmt.Fprintf(out, "    %s [shape=record, label=\"{%s|%s|%s}\"];\n", n.ID, n.ID, n.Kind(), n.OutputShape)
}
