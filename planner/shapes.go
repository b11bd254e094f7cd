// Package planner implements the legacy Pass-based stripe planner
// (§4.F): candidate stripe-shape enumeration under brick-group
// alignment, SRAM feasibility checking, Pass formation (Mce+Ple,
// Ple-only, Conversion, SpaceToDepth) and cascading into Sections.
package planner

import "github.com/npucc/npucc/tensor"

// CandidateStripeShapes enumerates candidate output stripe shapes for
// full, derived from outputShape by repeatedly halving H, then W, then
// (when the channel count allows a brick-group-aligned split) C, down to
// one brick group per axis. The full output shape is always the first
// candidate, so the planner can try the full-tensor/full-depth stripe
// before smaller ones (§4.F); the rest follow in enumeration order, not
// sorted by size (buildCandidates sorts them).
func CandidateStripeShapes(outputShape tensor.Shape) []tensor.Shape {
	seen := make(map[tensor.Shape]bool)
	var out []tensor.Shape
	add := func(s tensor.Shape) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	add(outputShape)

	// Shrink H alone, then W alone, then H and W together, each down to
	// one brick group; finally shrink C alone. Every combination is
	// deduplicated by add, so the order only affects enumeration order,
	// not the final candidate set.
	for h := outputShape.H(); h > tensor.BrickH; {
		h = halveToBrickMultiple(h, tensor.BrickH)
		add(tensor.Shape{outputShape.N(), h, outputShape.W(), outputShape.C()})
	}
	for w := outputShape.W(); w > tensor.BrickW; {
		w = halveToBrickMultiple(w, tensor.BrickW)
		add(tensor.Shape{outputShape.N(), outputShape.H(), w, outputShape.C()})
	}
	for h := outputShape.H(); h > tensor.BrickH; {
		h = halveToBrickMultiple(h, tensor.BrickH)
		for w := outputShape.W(); w > tensor.BrickW; {
			w = halveToBrickMultiple(w, tensor.BrickW)
			add(tensor.Shape{outputShape.N(), h, w, outputShape.C()})
		}
	}
	for c := outputShape.C(); c > tensor.BrickC; {
		c = halveToBrickMultiple(c, tensor.BrickC)
		add(tensor.Shape{outputShape.N(), outputShape.H(), outputShape.W(), c})
	}

	return out
}

// halveToBrickMultiple halves v and rounds the result up to the nearest
// multiple of brick, never returning less than brick itself.
func halveToBrickMultiple(v, brick int) int {
	half := v / 2
	rounded := ((half + brick - 1) / brick) * brick
	if rounded < brick {
		rounded = brick
	}
	if rounded >= v {
		// No smaller brick-aligned candidate exists; stop shrinking.
		return brick
	}
	return rounded
}

// MceInputStripeShape derives the MCE's required input stripe shape from
// a chosen output stripe shape, widening H and W by the kernel's halo
// (kernelH-1, kernelW-1, split evenly on the low/high sides) and
// accounting for stride interleave on the stripe's leading edge (§4.F:
// "taking stride interleave and kernel halo into account").
func MceInputStripeShape(outputStripe tensor.Shape, kernelH, kernelW, strideH, strideW int) tensor.Shape {
	inH := (outputStripe.H()-1)*strideH + kernelH
	inW := (outputStripe.W()-1)*strideW + kernelW
	return tensor.Shape{outputStripe.N(), inH, inW, outputStripe.C()}
}

// MceWeightStripeShape derives the MCE's weight stripe shape: its
// Cout stripe dimension equals the MCE output's channel stripe (§4.F).
func MceWeightStripeShape(kernelH, kernelW, cin, coutStripe int) tensor.Shape {
	return tensor.Shape{kernelH, kernelW, cin, coutStripe}
}

// PleStripeShape returns the PLE's input/output stripe shape for an
// identity-kernel PLE, which simply reuses the MCE's output stripe shape
// (§4.F: "identity PLE reuses MCE output shape").
func PleStripeShape(mceOutputStripe tensor.Shape) tensor.Shape {
	return mceOutputStripe
}

// NumStripesInTile returns how many stripes of a memory buffer must be
// resident simultaneously: 1 for a buffer the consumer reads once in
// place, 2 for ordinary double buffering, and 3 only when the consumer
// needs both its before-axis and after-axis neighbour stripes alongside
// its own (§4.F).
func NumStripesInTile(doubleBuffered, needsBothNeighbours bool) int {
	switch {
	case needsBothNeighbours:
		return 3
	case doubleBuffered:
		return 2
	default:
		return 1
	}
}
