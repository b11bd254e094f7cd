package compiler

import (
	"errors"

	"github.com/npucc/npucc/caps"
	"github.com/npucc/npucc/errs"
	"github.com/npucc/npucc/ir"
	"github.com/npucc/npucc/optimizer"
	"github.com/npucc/npucc/options"
	"github.com/npucc/npucc/perf"
	"github.com/npucc/npucc/planner"
	"github.com/npucc/npucc/sramalloc"
	"github.com/sirupsen/logrus"
)

// PerformanceData is the deterministic JSON performance report (§6
// Outputs), mirroring the original's Stream/Issues split
// (PerformanceData.cpp/.hpp, SPEC_FULL.md §4 supplemented features).
// Field order is fixed by the struct tags below, matching json encoding's
// declared-field order.
type PerformanceData struct {
	Stream  []StreamEntry      `json:"Stream"`
	Issues  map[int]string     `json:"Issues"`
	Network perf.NetworkReport `json:"Network"`
}

// StreamEntry is one Pass's performance record (§6 Outputs): the
// operator ids it covers, the operator ids of its direct predecessors,
// and its full perf.PassReport breakdown.
type StreamEntry struct {
	OperationIds []int                `json:"OperationIds"`
	ParentIds    []int                `json:"ParentIds"`
	Input        perf.ActivationStats `json:"Input"`
	Output       perf.ActivationStats `json:"Output"`
	Weights      *perf.WeightsStats   `json:"Weights,omitempty"`
	Mce          *perf.MceStats       `json:"Mce,omitempty"`
	Ple          *perf.PleStats       `json:"Ple,omitempty"`
}

// EstimatePerformance runs the pipeline up through planning and
// performance accounting without requiring a feasible full compile (§8
// scenario 5): NotSupported errors from fix_graph and any optimiser
// error are logged and tolerated (other fix_graph errors are returned),
// individual nodes the planner cannot place are recorded into Issues
// rather than aborting the estimate, and EstimateOnly nodes are
// annotated with their reason instead of blocking the whole graph.
func EstimatePerformance(g *ir.Graph, capsRec caps.Capabilities, opts options.CompilationOptions) (*PerformanceData, error) {
	issues := make(map[int]string)

	if err := ir.FixGraph(g); err != nil {
		var notSupported *errs.NotSupportedError
		if !errors.As(err, &notSupported) {
			return nil, err
		}
		logrus.WithError(err).Warn("estimate: fix_graph could not fully prepare the graph, continuing best-effort")
	}

	if err := optimizer.Run(g); err != nil {
		logrus.WithError(err).Warn("estimate: optimiser pass failed, continuing with the graph as repaired")
	}

	order, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}

	alloc := sramalloc.New(capsRec.SRAMLaneBytes())
	passes, _, err := buildPassesLenient(g, order, capsRec, opts, alloc, issues)
	if err != nil {
		return nil, err
	}

	stream := make([]StreamEntry, 0, len(passes))
	reports := make([]perf.PassReport, 0, len(passes))
	for _, p := range passes {
		report := buildPassReport(g, p, capsRec, opts)
		stream = append(stream, toStreamEntry(g, p, report))
		reports = append(reports, report)
	}
	network := perf.Summarize(reports)

	// Graph-level EstimateOnly nodes never receive a Pass (their
	// IsPrepared is permanently false), so they never appear in passes;
	// record them directly from the graph so Issues still names them.
	for _, n := range g.Nodes() {
		if data, ok := n.Data.(ir.EstimateOnlyData); ok {
			for _, opID := range n.OperationIDs {
				issues[opID] = data.Reason
			}
		}
	}

	return &PerformanceData{Stream: stream, Issues: issues, Network: network}, nil
}

func toStreamEntry(g *ir.Graph, p *planner.Pass, report perf.PassReport) StreamEntry {
	head := g.Node(p.Head)
	opIDs := append([]int(nil), head.OperationIDs...)
	if p.Tail != 0 {
		if tail := g.Node(p.Tail); tail != nil {
			opIDs = append(opIDs, tail.OperationIDs...)
		}
	}

	var parentIDs []int
	seen := make(map[int]bool)
	addParent := func(n *ir.Node) {
		for _, id := range n.OperationIDs {
			if !seen[id] {
				seen[id] = true
				parentIDs = append(parentIDs, id)
			}
		}
	}
	for _, e := range g.InEdges(p.Head) {
		if src := g.Node(e.Src); src != nil {
			addParent(src)
		}
	}

	entry := StreamEntry{
		OperationIds: opIDs,
		ParentIds:    parentIDs,
		Input:        report.Input,
		Output:       report.Output,
	}
	mce := report.Mce
	entry.Mce = &mce
	ple := report.Ple
	entry.Ple = &ple
	if head.Kind() == ir.KindMceOperation {
		if mceData, ok := head.Data.(ir.MceOperationData); ok && mceData.Weights != nil {
			weights := report.Weights
			entry.Weights = &weights
		}
	}
	return entry
}

// buildPassReport recomputes the perf.PassReport for an already-planned
// Pass (§4.J, §2 control flow: "the performance estimator is used both
// to rank candidate plans and to produce final per-pass reports").
func buildPassReport(g *ir.Graph, p *planner.Pass, capsRec caps.Capabilities, opts options.CompilationOptions) perf.PassReport {
	head := g.Node(p.Head)
	if head == nil {
		return perf.PassReport{}
	}

	var mceCycles int
	var weights perf.WeightsStats
	if mceData, ok := head.Data.(ir.MceOperationData); ok {
		kernelH, kernelW := mceData.KernelH, mceData.KernelW
		if kernelH == 0 {
			kernelH = 1
		}
		if kernelW == 0 {
			kernelW = 1
		}
		numActiveOgs := capsRec.NumEngines * capsRec.OGsPerEngine
		if numActiveOgs == 0 {
			numActiveOgs = 1
		}

		switch p.Algorithm {
		case ir.AlgorithmWinograd:
			mceCycles = perf.MceCyclesWinograd(kernelH, kernelW, capsRec, numActiveOgs)
		default:
			mceCycles = perf.MceCyclesDirect(
				p.Output.Shape.H(), p.Output.Shape.W(),
				p.Input.Shape.C(), p.Output.Shape.C(),
				kernelH*kernelW, capsRec, numActiveOgs,
			)
		}

		if mceData.Weights != nil {
			tileBytes, err := planner.TileSizeBytes(p.Weights.Shape, p.Weights.NumStripesInTile, head.OutputDType)
			if err == nil {
				streamsH := p.Output.Shape.H() < head.OutputShape.H()
				streamsW := p.Output.Shape.W() < head.OutputShape.W()
				streamsC := p.Output.Shape.C() < head.OutputShape.C()
				weights = perf.WeightsTraffic(tileBytes, streamsH, streamsC, streamsW, 1.0)
			}
		}
	}

	fullInputShape := head.OutputShape
	if ins := g.InEdges(p.Head); len(ins) > 0 {
		if src := g.Node(ins[0].Src); src != nil {
			fullInputShape = src.OutputShape
		}
	}
	_, inputStripes, _ := fullInputShape.NumStripes(p.Input.Shape)
	_, outputStripes, _ := head.OutputShape.NumStripes(p.Output.Shape)
	input, _ := perf.ActivationTraffic(inputStripes, p.Input.Shape, head.OutputDType, head.Location, 1.0)
	output, _ := perf.ActivationTraffic(outputStripes, p.Output.Shape, head.OutputDType, head.Location, opts.ActivationCompressionSavingsRatio)

	var plePatches int
	if p.PleKernel != nil {
		plePatches, _ = perf.PlePatches(p.Output.Shape)
	}

	metric := perf.Metric(mceCycles, input, output, weights)

	return perf.PassReport{
		Mce:     perf.MceStats{Cycles: mceCycles},
		Weights: weights,
		Input:   input,
		Output:  output,
		Ple:     perf.PleStats{Patches: plePatches},
		Metric:  metric,
	}
}
