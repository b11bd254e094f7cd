package compiler

import (
	"github.com/npucc/npucc/caps"
	"github.com/npucc/npucc/cascading"
	"github.com/npucc/npucc/ir"
	"github.com/npucc/npucc/options"
	"github.com/npucc/npucc/planner"
	"github.com/npucc/npucc/sramalloc"
)

// defaultPleKernelBytes is a conservative fixed size used for every
// fused PLE kernel's tile reservation; the capability record does not
// expose a per-kernel microcode size, only an upper bound
// (MaxPLESizeBytes), so every fused Pass reserves that upper bound
// rather than guessing a tighter figure.
func defaultPleKernelBytes(c caps.Capabilities) int {
	if c.MaxPLESizeBytes > 0 {
		return c.MaxPLESizeBytes
	}
	return 256
}

// pickBlockConfig returns the first capability-supported block config
// not excluded by opts.BlockConfigMask, or the zero BlockConfig if none
// qualify (the planner treats a zero BlockConfig as "unconstrained").
func pickBlockConfig(c caps.Capabilities, opts options.CompilationOptions) caps.BlockConfig {
	allowed := func(bc caps.BlockConfig) bool {
		if len(opts.BlockConfigMask) == 0 {
			return true
		}
		for _, m := range opts.BlockConfigMask {
			if m == bc.String() {
				return true
			}
		}
		return false
	}
	for _, bc := range c.SupportedBlockConfigs {
		if allowed(bc) {
			return bc
		}
	}
	return caps.BlockConfig{}
}

// findFusedTail looks for an McePostProcess/FuseOnlyPle node that is the
// sole consumer of mceID's sole output, i.e. a tail the planner can fuse
// into the same Pass (§4.F: "Mce+Ple" Pass kind).
func findFusedTail(g *ir.Graph, mceID ir.NodeId) (tail ir.NodeId, fused bool) {
	outs := g.OutEdges(mceID)
	if len(outs) != 1 {
		return 0, false
	}
	dst := outs[0].Dst
	dstNode := g.Node(dst)
	if dstNode == nil {
		return 0, false
	}
	switch dstNode.Kind() {
	case ir.KindMcePostProcess, ir.KindFuseOnlyPle:
		if len(g.InEdges(dst)) == 1 {
			return dst, true
		}
	}
	return 0, false
}

// trivialPassKind maps a non-MCE node kind onto the fixed PassKind the
// emitter's own classify() logic expects to see (§4.F Pass kinds: Ple-
// only, Conversion, SpaceToDepth).
func trivialPassKind(k ir.Kind) planner.PassKind {
	switch k {
	case ir.KindStandalonePle:
		return planner.PassPleOnly
	default:
		return planner.PassConversion
	}
}

// buildPasses walks order (expected topologically sorted) and assigns
// every unplaced node a Pass: MceOperation heads go through the full
// stripe-shape search (planner.PlanMceAndPlePass), fusing a trailing
// McePostProcess/FuseOnlyPle tail when one is the sole consumer;
// everything else gets a single-stripe Pass covering its full output
// shape, with no SRAM reservation of its own beyond what its MCE
// predecessor already committed (§4.F, §2 control flow).
func buildPasses(g *ir.Graph, order []ir.NodeId, capsRec caps.Capabilities, opts options.CompilationOptions, alloc *sramalloc.Allocator) ([]*planner.Pass, map[ir.PassId]*planner.Pass, error) {
	return buildPassesWithMode(g, order, capsRec, opts, alloc, false, nil)
}

// buildPassesLenient is EstimatePerformance's variant of buildPasses: a
// node whose planning fails (an EstimateOnly node, or any node the
// planner could not fit into SRAM) is skipped and recorded into issues
// keyed by its operation ids, rather than aborting the whole estimate
// (§8 scenario 5: "EstimatePerformance succeeds and annotates the op id
// with the estimate-only reason").
func buildPassesLenient(g *ir.Graph, order []ir.NodeId, capsRec caps.Capabilities, opts options.CompilationOptions, alloc *sramalloc.Allocator, issues map[int]string) ([]*planner.Pass, map[ir.PassId]*planner.Pass, error) {
	return buildPassesWithMode(g, order, capsRec, opts, alloc, true, issues)
}

// When opts.UseCascading is set (§5 Open Question decision 1: "keep both
// planner generations"), every FormatConversion node is additionally
// routed through cascading.NewReformatPart, the opgraph-based planner
// generation's own Part builder. That path carries a capability check
// the legacy PassConversion construction below never performs
// (NCHW conversions require capsRec.SupportsNCHW); a rejection surfaces
// as a NotSupported error (or a recorded issue in lenient mode) exactly
// like a stripe-planning failure from the MCE branch above.
func buildPassesWithMode(g *ir.Graph, order []ir.NodeId, capsRec caps.Capabilities, opts options.CompilationOptions, alloc *sramalloc.Allocator, lenient bool, issues map[int]string) ([]*planner.Pass, map[ir.PassId]*planner.Pass, error) {
	var passes []*planner.Pass
	index := make(map[ir.PassId]*planner.Pass)
	var nextPassID ir.PassId = 1

	recordIssue := func(n *ir.Node, reason string) {
		if issues == nil {
			return
		}
		for _, opID := range n.OperationIDs {
			issues[opID] = reason
		}
	}

	for _, id := range order {
		n := g.Node(id)
		if n == nil || n.Pass != 0 {
			continue
		}

		switch data := n.Data.(type) {
		case ir.InputData, ir.OutputData, ir.ConstantData:
			continue

		case ir.EstimateOnlyData:
			recordIssue(n, data.Reason)
			continue

		case ir.MceOperationData:
			tail, fused := findFusedTail(g, id)

			kernelH, kernelW := data.KernelH, data.KernelW
			if kernelH == 0 {
				kernelH = 1
			}
			if kernelW == 0 {
				kernelW = 1
			}
			cin := data.CinPerGroup
			if cin == 0 {
				cin = n.OutputShape.C()
			}

			passID := nextPassID
			nextPassID++
			pleBytes := 0
			if fused {
				pleBytes = defaultPleKernelBytes(capsRec)
			}

			pass, err := planner.PlanMceAndPlePass(
				g, passID, id, tail, n.OutputShape,
				kernelH, kernelW, data.StrideX, data.StrideY, cin,
				n.OutputDType, fused, pleBytes,
				pickBlockConfig(capsRec, opts), capsRec, opts.EnableWinograd,
				alloc, sramalloc.UserId(id),
			)
			if err != nil {
				if !lenient {
					return nil, nil, err
				}
				recordIssue(n, err.Error())
				continue
			}

			n.Pass = passID
			if fused {
				g.Node(tail).Pass = passID
			}
			passes = append(passes, pass)
			index[passID] = pass

		default:
			if opts.UseCascading {
				if conv, ok := n.Data.(ir.FormatConversionData); ok {
					if _, err := cascading.NewReformatPart(id, n.OutputShape, n.OutputDType, conv.From, conv.To, capsRec); err != nil {
						if !lenient {
							return nil, nil, err
						}
						recordIssue(n, err.Error())
						continue
					}
				}
			}

			passID := nextPassID
			nextPassID++
			pass := &planner.Pass{
				ID:   passID,
				Kind: trivialPassKind(n.Kind()),
				Head: id,
				Input: planner.StripeAllocation{
					Shape:            n.OutputShape,
					NumStripesInTile: 1,
				},
				Output: planner.StripeAllocation{
					Shape:            n.OutputShape,
					NumStripesInTile: 1,
				},
			}
			n.Pass = passID
			passes = append(passes, pass)
			index[passID] = pass
		}
	}

	return passes, index, nil
}
