// Package optimizer runs the fixed-point rewrite over the IR graph
// described in §4.D: merging inverse format conversions, reordering
// Reinterpret/Requantize/Concat so fusable nodes land next to their MCE,
// merging adjacent Requantize/Copy/Concat nodes, dropping dead leaves,
// and folding conversions into Constants.
package optimizer

import (
	"github.com/npucc/npucc/ir"
	"github.com/sirupsen/logrus"
)

// rewrite is one of the nine ordered rewrites of §4.D. It is given the
// graph and the current topological order and returns true if it
// mutated the graph. Rewrites that mutate stop scanning immediately so
// the caller can recompute a fresh topological order before the next
// rewrite runs (mutations invalidate ids/ordering assumptions).
type rewrite struct {
	name string
	fn   func(g *ir.Graph, order []ir.NodeId) bool
}

var rewrites = []rewrite{
	{"merge_inverse_format_conversions", mergeInverseFormatConversions},
	{"reorder_reinterpret_requantize", reorderReinterpretRequantize},
	{"reorder_concat_requantize_copy", reorderConcatRequantizeCopy},
	{"merge_copy_requantize", mergeCopyRequantize},
	{"merge_adjacent_requantizes", mergeAdjacentRequantizes},
	{"merge_adjacent_copies", mergeAdjacentCopies},
	{"merge_adjacent_concats", mergeAdjacentConcats},
	{"remove_unconnected_leaves", removeUnconnectedLeaves},
	{"merge_constant_reinterpret_or_format", mergeConstantWithReinterpretOrFormat},
}

// Run applies one fixed-point sweep over g, running the nine rewrites in
// order inside each iteration and terminating when a full sweep makes no
// changes (§4.D).
func Run(g *ir.Graph) error {
	for iteration := 0; ; iteration++ {
		order, err := g.TopologicalSort()
		if err != nil {
			return err
		}

		anyChange := false
		for _, rw := range rewrites {
			for {
				order, err = g.TopologicalSort()
				if err != nil {
					return err
				}
				if !rw.fn(g, order) {
					break
				}
				anyChange = true
			}
		}

		if !anyChange {
			logrus.WithField("iterations", iteration+1).Debug("optimizer: reached fixed point")
			return nil
		}
	}
}
