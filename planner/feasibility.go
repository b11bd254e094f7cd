package planner

import (
	"github.com/npucc/npucc/sramalloc"
	"github.com/npucc/npucc/tensor"
)

// OperandTile names one of the four (or five, when the MCE and PLE do
// not fuse into a single pass) SRAM-resident tiles a candidate plan must
// place simultaneously (§4.F).
type OperandTile struct {
	Name  string // "input", "weights", "ple_kernel", "output", "ple_input"
	Bytes int
}

// FeasibilityResult carries the committed offsets for a feasible
// candidate, keyed by OperandTile.Name.
type FeasibilityResult struct {
	Offsets map[string]int
}

// CheckFeasible tries to place every tile of a candidate simultaneously
// in a scratch allocator sized like the real one, without touching the
// compiler's actual allocator: a candidate is feasible iff all tiles fit
// at once (§4.F: "the allocator can place input tile + weights tile +
// PLE kernel + output tile ... simultaneously"). Returns the offsets it
// would use if this candidate is ultimately selected; the caller is
// responsible for replaying the same allocation sequence against the
// real allocator once a candidate is chosen, since trial allocators are
// discarded.
func CheckFeasible(poolSize int, tiles []OperandTile) (FeasibilityResult, bool) {
	trial := sramalloc.New(poolSize)
	offsets := make(map[string]int, len(tiles))
	for i, t := range tiles {
		off, ok := trial.Allocate(sramalloc.UserId(i+1), t.Bytes, sramalloc.Start, t.Name)
		if !ok {
			return FeasibilityResult{}, false
		}
		offsets[t.Name] = off
	}
	return FeasibilityResult{Offsets: offsets}, true
}

// Commit replays a feasible candidate's allocation sequence against the
// real allocator used for the rest of this compilation, in the same
// order CheckFeasible used, so offsets match exactly.
func Commit(alloc *sramalloc.Allocator, base sramalloc.UserId, tiles []OperandTile) (FeasibilityResult, bool) {
	offsets := make(map[string]int, len(tiles))
	var placed []sramalloc.UserId
	for i, t := range tiles {
		user := base + sramalloc.UserId(i)
		off, ok := alloc.Allocate(user, t.Bytes, sramalloc.Start, t.Name)
		if !ok {
			for _, u := range placed {
				alloc.Free(u, offsets[tiles[u-base].Name])
			}
			return FeasibilityResult{}, false
		}
		offsets[t.Name] = off
		placed = append(placed, user)
	}
	return FeasibilityResult{Offsets: offsets}, true
}

// operandTiles builds the tile list for an Mce+Ple pass: input, weights,
// output always; ple_kernel when the PLE stage needs a resident kernel
// buffer (non-identity); ple_input only when the MCE and PLE are not
// fused into a single pass (§4.F).
func operandTiles(inputShape, weightShape, outputShape tensor.Shape, dtype tensor.DType, numInputStripes, numWeightStripes, numOutputStripes int, pleKernelBytes int, needsPleInputTile bool, pleInputShape tensor.Shape, numPleInputStripes int) ([]OperandTile, error) {
	inputBytes, err := TileSizeBytes(inputShape, numInputStripes, dtype)
	if err != nil {
		return nil, err
	}
	weightBytes, err := TileSizeBytes(weightShape, numWeightStripes, dtype)
	if err != nil {
		return nil, err
	}
	outputBytes, err := TileSizeBytes(outputShape, numOutputStripes, dtype)
	if err != nil {
		return nil, err
	}
	tiles := []OperandTile{
		{Name: "input", Bytes: inputBytes},
		{Name: "weights", Bytes: weightBytes},
		{Name: "output", Bytes: outputBytes},
	}
	if pleKernelBytes > 0 {
		tiles = append(tiles, OperandTile{Name: "ple_kernel", Bytes: pleKernelBytes})
	}
	if needsPleInputTile {
		pleInputBytes, err := TileSizeBytes(pleInputShape, numPleInputStripes, dtype)
		if err != nil {
			return nil, err
		}
		tiles = append(tiles, OperandTile{Name: "ple_input", Bytes: pleInputBytes})
	}
	return tiles, nil
}
