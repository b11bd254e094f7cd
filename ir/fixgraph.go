package ir

import (
	"github.com/npucc/npucc/errs"
	"github.com/sirupsen/logrus"
)

// Preparable is implemented by every Data variant: is_prepared and
// fix_graph from the common fix-graph contract (§4.C). generate/estimate
// dispatch lives outside this package (compiler.registerBuffers,
// emitter, compiler.buildPassReport) via type switches, not here,
// to keep this interface to the subset every variant must implement
// (per the design notes: "use a small trait for the subset of behaviours
// that every variant must implement").
type Preparable interface {
	// IsPrepared reports whether this node, as currently wired into the
	// graph, is ready for planning/generation.
	IsPrepared(g *Graph, self NodeId) bool

	// FixGraph attempts one repair appropriate to sev. It returns true
	// if it mutated the graph. Implementations that have nothing to do
	// at sev return false without touching the graph.
	FixGraph(g *Graph, self NodeId, sev Severity) bool
}

// maxIterationMultiplier bounds the repair loop: max_iterations =
// maxIterationMultiplier * initial_node_count (§9 design notes, §4.K
// failure mode).
const maxIterationMultiplier = 10

// FixGraph runs the fixed-point repair loop: for each sweep, it walks
// severities Lowest..Highest and, within a severity, offers every
// unprepared node a chance to mutate the graph; the first node at a
// severity that mutates ends that iteration (per §4.C: "iterates
// severities from low to high and stops as soon as any node changes the
// graph in that severity"). The loop terminates when every node reports
// prepared, or raises NotSupported after the iteration cap.
func FixGraph(g *Graph) error {
	initialCount := len(g.Nodes())
	maxIterations := maxIterationMultiplier * initialCount
	if maxIterations == 0 {
		maxIterations = maxIterationMultiplier
	}

	for iter := 0; iter < maxIterations; iter++ {
		unprepared := unpreparedNodes(g)
		if len(unprepared) == 0 {
			return nil
		}

		mutated := false
		for _, sev := range Severities {
			for _, id := range unprepared {
				n := g.Node(id)
				if n == nil {
					continue
				}
				prep, ok := n.Data.(Preparable)
				if !ok {
					continue
				}
				if prep.IsPrepared(g, id) {
					continue
				}
				if prep.FixGraph(g, id, sev) {
					mutated = true
					break
				}
			}
			if mutated {
				break
			}
		}

		if !mutated {
			return notSupportedForUnprepared(g, unpreparedNodes(g), iter+1)
		}
	}

	return notSupportedForUnprepared(g, unpreparedNodes(g), maxIterations)
}

func unpreparedNodes(g *Graph) []NodeId {
	var out []NodeId
	for _, n := range g.Nodes() {
		prep, ok := n.Data.(Preparable)
		if !ok {
			continue
		}
		if !prep.IsPrepared(g, n.ID) {
			out = append(out, n.ID)
		}
	}
	return out
}

func notSupportedForUnprepared(g *Graph, ids []NodeId, iterations int) error {
	opIDs := make([]int, 0, len(ids))
	for _, id := range ids {
		if n := g.Node(id); n != nil {
			opIDs = append(opIDs, n.OperationIDs...)
		}
	}
	logrus.WithField("failing_op_ids", opIDs).Warn("fix_graph: unable to prepare graph within iteration budget")
	return errs.NotSupported("unable to prepare graph after %d iterations; failing op ids: %v", iterations, opIDs)
}
