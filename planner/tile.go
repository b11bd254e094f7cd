package planner

import (
	"github.com/npucc/npucc/tensor"
)

// TileSizeBytes returns the SRAM footprint of holding numStripesInTile
// stripes of stripeShape at the brick-group-rounded NHWCB layout, per
// §4.F: "TileSize = num_stripes_in_tile * stripe_bytes_in_sram".
func TileSizeBytes(stripeShape tensor.Shape, numStripesInTile int, dtype tensor.DType) (int, error) {
	stripeBytes, err := stripeShape.NHWCBByteSize(dtype.Bytes())
	if err != nil {
		return 0, err
	}
	return numStripesInTile * stripeBytes, nil
}

// ReloadCycleEstimate is a cheap proxy for how many times an operand must
// be re-fetched from DRAM under a candidate stripe shape: the number of
// stripes needed to cover the full tensor, since every stripe not held
// double/triple-buffered costs a reload. Used purely to rank candidates
// of otherwise equal size (§4.F tie-break: "within the same stripe
// shape, prefer fewer reload cycles").
func ReloadCycleEstimate(fullShape, stripeShape tensor.Shape) (int, error) {
	_, total, err := fullShape.NumStripes(stripeShape)
	if err != nil {
		return 0, err
	}
	return total, nil
}

// stripeVolume is used by the tie-break ordering to compare "larger
// stripe" candidates: the element count of one stripe, larger meaning
// fewer DRAM round trips per tensor.
func stripeVolume(s tensor.Shape) int {
	v, err := s.Volume()
	if err != nil {
		return 0
	}
	return v
}
