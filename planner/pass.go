package planner

import (
	"sort"

	"github.com/npucc/npucc/caps"
	"github.com/npucc/npucc/errs"
	"github.com/npucc/npucc/ir"
	"github.com/npucc/npucc/sramalloc"
	"github.com/npucc/npucc/tensor"
	"github.com/sirupsen/logrus"
)

// PassKind names the fixed set of Pass shapes the planner forms (§4.F).
type PassKind int

const (
	PassMceAndPle PassKind = iota
	PassPleOnly
	PassConversion
	PassSpaceToDepth
)

func (k PassKind) String() string {
	switch k {
	case PassMceAndPle:
		return "MceAndPle"
	case PassPleOnly:
		return "PleOnly"
	case PassConversion:
		return "Conversion"
	case PassSpaceToDepth:
		return "SpaceToDepth"
	default:
		return "Unknown"
	}
}

// StripeAllocation records the chosen stripe shape, tile depth, and
// committed SRAM offset for one operand of a Pass.
type StripeAllocation struct {
	Shape            tensor.Shape
	NumStripesInTile int
	OffsetBytes      int
}

// Pass is a planner-assembled unit of work: one MCE (optionally fused
// with an McePostProcess/FuseOnlyPle tail), its chosen block config, and
// the stripe allocation of every operand (§3 Data Model: Pass).
type Pass struct {
	ID         ir.PassId
	Kind       PassKind
	Head       ir.NodeId
	Tail       ir.NodeId // zero if nothing is fused onto Head
	BlockConfig caps.BlockConfig

	Input     StripeAllocation
	Weights   StripeAllocation
	Output    StripeAllocation
	PleKernel *StripeAllocation // nil when the pass has no PLE kernel tile

	// Algorithm is the MCE algorithm selected during planning (Direct or
	// Winograd), carried here so the emitter can read it back without
	// needing its own capability record in scope.
	Algorithm ir.Algorithm

	EstimatedMetric float64
}

// candidate is one internally-ranked stripe-shape option for a Pass,
// before SRAM feasibility has been checked against the real allocator.
type candidate struct {
	outputStripe tensor.Shape
	inputStripe  tensor.Shape
	weightStripe tensor.Shape
	tiles        []OperandTile
	reloads      int
	metric       float64
}

// PlanMceAndPlePass enumerates candidate output stripe shapes for an
// MceOperation head (with an optional fused PLE tail reusing the MCE's
// output shape per PleStripeShape), checks each against SRAM in
// largest-first order, and commits the lowest-metric feasible one found
// before metricSmoother's noise floor calls off the search. Ties among
// equally large stripes are broken by fewer reload cycles, then lower
// estimated metric (§4.F).
func PlanMceAndPlePass(g *ir.Graph, passID ir.PassId, head, tail ir.NodeId, fullOutputShape tensor.Shape, kernelH, kernelW, strideH, strideW, cin int, dtype tensor.DType, fusedPle bool, pleKernelBytes int, blockConfig caps.BlockConfig, capsRec caps.Capabilities, winogradEnabled bool, alloc *sramalloc.Allocator, userBase sramalloc.UserId) (*Pass, error) {
	candidates := buildCandidates(fullOutputShape, kernelH, kernelW, strideH, strideW, cin, dtype, fusedPle, pleKernelBytes)
	if len(candidates) == 0 {
		return nil, errs.NotSupported("no candidate stripe shapes for output shape %v", fullOutputShape)
	}

	smoother := newMetricSmoother()

	// Scan every feasible candidate (largest stripe first), tracking the
	// best (lowest-metric) one seen so far, but stop scanning as soon as
	// the smoother reports the improvement between feasible candidates
	// has dropped below its noise floor: past that point, continuing to
	// shrink the stripe only buys more reload cycles for a metric
	// improvement indistinguishable from noise.
	var best *candidate
	var bestIdx int
	for i, cand := range candidates {
		smoothed := smoother.observe(cand.metric)
		_, ok := CheckFeasible(alloc.PoolSize(), cand.tiles)
		if !ok {
			logrus.WithFields(logrus.Fields{
				"candidate":     i,
				"output_stripe": cand.outputStripe,
			}).Debug("planner: candidate does not fit SRAM, trying next")
			continue
		}

		if best == nil || cand.metric < best.metric {
			c := cand
			best = &c
			bestIdx = i
		}

		if best != nil && smoother.shouldStop(smoothed) {
			logrus.WithFields(logrus.Fields{
				"candidate": i,
				"accepted":  bestIdx,
			}).Debug("planner: smoothed improvement below noise floor, stopping search early")
			break
		}
	}

	if best == nil {
		return nil, &errs.AllocationFailedError{Tag: "no candidate stripe shape fits SRAM"}
	}

	committed, ok := Commit(alloc, userBase, best.tiles)
	if !ok {
		return nil, &errs.AllocationFailedError{Tag: "best candidate stripe shape could not be committed"}
	}

	p := &Pass{
		ID:          passID,
		Kind:        PassMceAndPle,
		Head:        head,
		Tail:        tail,
		BlockConfig: blockConfig,
		Input: StripeAllocation{
			Shape:            best.inputStripe,
			NumStripesInTile: 2,
			OffsetBytes:      committed.Offsets["input"],
		},
		Weights: StripeAllocation{
			Shape:            best.weightStripe,
			NumStripesInTile: 2,
			OffsetBytes:      committed.Offsets["weights"],
		},
		Output: StripeAllocation{
			Shape:            best.outputStripe,
			NumStripesInTile: 2,
			OffsetBytes:      committed.Offsets["output"],
		},
		EstimatedMetric: best.metric,
	}
	if off, ok := committed.Offsets["ple_kernel"]; ok {
		p.PleKernel = &StripeAllocation{Shape: tensor.Shape{}, NumStripesInTile: 1, OffsetBytes: off}
	}
	if headNode := g.Node(head); headNode != nil {
		if mce, ok := headNode.Data.(ir.MceOperationData); ok {
			p.Algorithm = mce.GetEffectiveAlgorithm(kernelH, kernelW, capsRec, winogradEnabled)
		}
	}
	return p, nil
}

func buildCandidates(fullOutputShape tensor.Shape, kernelH, kernelW, strideH, strideW, cin int, dtype tensor.DType, fusedPle bool, pleKernelBytes int) []candidate {
	shapes := CandidateStripeShapes(fullOutputShape)
	out := make([]candidate, 0, len(shapes))
	for _, outStripe := range shapes {
		inStripe := MceInputStripeShape(outStripe, kernelH, kernelW, strideH, strideW)
		weightStripe := MceWeightStripeShape(kernelH, kernelW, cin, outStripe.C())

		reloads, err := ReloadCycleEstimate(fullOutputShape, outStripe)
		if err != nil {
			continue
		}

		tiles, err := operandTiles(inStripe, weightStripe, outStripe, dtype, 2, 2, 2, pleKernelBytesIfFused(fusedPle, pleKernelBytes), false, tensor.Shape{}, 0)
		if err != nil {
			continue
		}

		out = append(out, candidate{
			outputStripe: outStripe,
			inputStripe:  inStripe,
			weightStripe: weightStripe,
			tiles:        tiles,
			reloads:      reloads,
			metric:       estimateMetric(outStripe, reloads),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		vi, vj := stripeVolume(out[i].outputStripe), stripeVolume(out[j].outputStripe)
		if vi != vj {
			return vi > vj // prefer larger stripes first
		}
		if out[i].reloads != out[j].reloads {
			return out[i].reloads < out[j].reloads // fewer reload cycles
		}
		return out[i].metric < out[j].metric // lower estimated metric
	})
	return out
}

func pleKernelBytesIfFused(fused bool, bytes int) int {
	if !fused {
		return 0
	}
	return bytes
}

// estimateMetric is the planner's own cheap ranking signal (not the full
// performance estimator of §4.J, which runs only on the final selected
// plan): fewer reload cycles and a larger stripe both lower it.
func estimateMetric(outStripe tensor.Shape, reloads int) float64 {
	vol := float64(stripeVolume(outStripe))
	if vol == 0 {
		return float64(reloads)
	}
	return float64(reloads) / vol
}
