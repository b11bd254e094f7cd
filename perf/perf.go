// Package perf implements the performance estimator (§4.J): per-Pass and
// whole-network cycle accounting for MCE, weights, activations, and PLE,
// reduced to a single metric the planner minimises.
package perf

import (
	"github.com/npucc/npucc/caps"
	"github.com/npucc/npucc/ir"
	"github.com/npucc/npucc/tensor"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// MceStats holds one Pass's MCE cycle estimate.
type MceStats struct {
	Cycles int
}

// WeightsStats holds one Pass's weight-DRAM-traffic estimate.
type WeightsStats struct {
	ParallelBytes    int
	NonParallelBytes int
	Reloads          int
	SavingsRatio     float64
}

// ActivationStats holds one Pass's input or output DRAM-traffic estimate.
type ActivationStats struct {
	ParallelBytes    int
	NonParallelBytes int
}

// PleStats holds one Pass's PLE patch-processing estimate.
type PleStats struct {
	Patches int
}

// PassReport is the full accounting for one Pass, plus the derived
// metric (§4.J: "metric = max(mce_cycles, parallel_dram_cycles) +
// non_parallel_dram_cycles").
type PassReport struct {
	Mce     MceStats
	Weights WeightsStats
	Input   ActivationStats
	Output  ActivationStats
	Ple     PleStats
	Metric  float64
}

// dramBytesPerCycle is the assumed DRAM bandwidth used to convert byte
// counts into cycles; both parallel and non-parallel DRAM share this
// rate, distinguished only by whether the corresponding bytes can
// overlap with MCE compute.
const dramBytesPerCycle = 16

// MceCyclesDirect computes the Direct-algorithm MCE cycle count (§4.J):
// (roundedH * roundedW * ceil(ifmC/macsPerCycle) * roundedOfmC *
// kernelArea) / (igsPerEngine * macsPerOg * numActiveOgs).
func MceCyclesDirect(roundedH, roundedW, ifmC, roundedOfmC, kernelArea int, c caps.Capabilities, numActiveOgs int) int {
	macsPerCycle := c.MACsPerCycle()
	if macsPerCycle == 0 || c.IGsPerEngine == 0 || c.MACsPerOG == 0 || numActiveOgs == 0 {
		return 0
	}
	ifmGroups := ceilDiv(ifmC, macsPerCycle)
	numerator := roundedH * roundedW * ifmGroups * roundedOfmC * kernelArea
	denominator := c.IGsPerEngine * c.MACsPerOG * numActiveOgs
	return ceilDiv(numerator, denominator)
}

// MceCyclesWinograd computes the Winograd-algorithm MCE cycle count: the
// capability record's MAC-per-Winograd-block constant for this kernel
// shape, divided by the same denominator as the Direct path (§4.J).
func MceCyclesWinograd(kernelH, kernelW int, c caps.Capabilities, numActiveOgs int) int {
	var macBlock int
	switch {
	case kernelH == 1 && kernelW == 1:
		macBlock = c.Winograd.K1x1
	case kernelH == 1 && kernelW == 3:
		macBlock = c.Winograd.K1x3
	case kernelH == 3 && kernelW == 1:
		macBlock = c.Winograd.K3x1
	case kernelH == 3 && kernelW == 3:
		macBlock = c.Winograd.K3x3
	default:
		return 0
	}
	denominator := c.IGsPerEngine * c.MACsPerOG * numActiveOgs
	if denominator == 0 {
		return 0
	}
	return ceilDiv(macBlock, denominator)
}

func ceilDiv(a, b int) int {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

// WeightsTraffic computes weight DRAM accounting: reloads only apply
// when the pass streams in H and C but not W (§4.J), since a W-only
// stripe boundary never forces a weight re-fetch.
func WeightsTraffic(tileSizeBytes int, streamsH, streamsC, streamsW bool, savingsRatio float64) WeightsStats {
	reloads := 0
	if streamsH && streamsC && !streamsW {
		reloads = 1
	}
	bytes := tileSizeBytes * (1 + reloads)
	return WeightsStats{
		NonParallelBytes: bytes,
		Reloads:          reloads,
		SavingsRatio:     savingsRatio,
	}
}

// ActivationTraffic computes input/output DRAM accounting: stripes times
// per-stripe bytes, split into parallel or non-parallel buckets
// depending on buffer location, with activation compression savings
// applied as a multiplicative factor (§4.J).
func ActivationTraffic(numStripes int, stripeShape tensor.Shape, dtype tensor.DType, location ir.BufferLocation, savingsRatio float64) (ActivationStats, error) {
	stripeBytes, err := stripeShape.NHWCBByteSize(dtype.Bytes())
	if err != nil {
		return ActivationStats{}, err
	}
	totalBytes := int(float64(numStripes*stripeBytes) * savingsRatio)
	if location == ir.LocationSram {
		return ActivationStats{ParallelBytes: totalBytes}, nil
	}
	return ActivationStats{NonParallelBytes: totalBytes}, nil
}

// PlePatches computes the number of PLE patches needed to cover
// outputShape at the fixed PatchH x PatchW costing granularity (§4.J).
func PlePatches(outputShape tensor.Shape) (int, error) {
	_, total, err := outputShape.NumStripes(tensor.Shape{outputShape.N(), tensor.PatchH, tensor.PatchW, outputShape.C()})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// Metric computes one Pass's contribution to the network metric (§4.J).
func Metric(mceCycles int, input, output, weights ActivationOrWeightsLike) float64 {
	parallelDram := float64(input.parallel() + output.parallel() + weights.parallel())
	nonParallelDram := float64(input.nonParallel()+output.nonParallel()+weights.nonParallel()) / dramBytesPerCycle
	parallelCycles := parallelDram / dramBytesPerCycle
	return maxFloat(float64(mceCycles), parallelCycles) + nonParallelDram
}

// ActivationOrWeightsLike lets Metric accept either ActivationStats or
// WeightsStats uniformly.
type ActivationOrWeightsLike interface {
	parallel() int
	nonParallel() int
}

func (a ActivationStats) parallel() int    { return a.ParallelBytes }
func (a ActivationStats) nonParallel() int { return a.NonParallelBytes }
func (w WeightsStats) parallel() int       { return w.ParallelBytes }
func (w WeightsStats) nonParallel() int    { return w.NonParallelBytes }

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// NetworkReport aggregates every Pass's report into a whole-network
// summary: the total metric (the planner's objective, summed across
// passes) plus the mean/variance of per-pass metrics, computed with
// gonum/stat rather than by hand, since this is exactly the kind of
// numeric-summary work it targets.
type NetworkReport struct {
	Passes      []PassReport
	TotalMetric float64
	MeanMetric  float64
	VarMetric   float64
}

// Summarize builds a NetworkReport from per-pass reports (§4.J: "the
// network metric is the sum over passes").
func Summarize(passes []PassReport) NetworkReport {
	metrics := make([]float64, len(passes))
	for i, p := range passes {
		metrics[i] = p.Metric
	}
	total := floats.Sum(metrics)
	mean, variance := 0.0, 0.0
	if len(metrics) > 0 {
		mean, variance = stat.MeanVariance(metrics, nil)
	}
	return NetworkReport{
		Passes:      passes,
		TotalMetric: total,
		MeanMetric:  mean,
		VarMetric:   variance,
	}
}
