package tensor

import "testing"

func TestDeriveRescaleRoundTrips(t *testing.T) {
	ratio := 0.12345
	params := DeriveRescale(ratio)
	if params.Shift > 31 {
		t.Fatalf("shift out of range: %d", params.Shift)
	}
	got := float64(params.Multiplier) / float64(uint64(1)<<params.Shift)
	diff := got - ratio
	if diff < 0 {
		diff = -diff
	}
	if diff > 1e-3 {
		t.Errorf("ratio %f approximated as %f (mult=%d shift=%d)", ratio, got, params.Multiplier, params.Shift)
	}
}

func TestRescaleApplyMatchesFloat(t *testing.T) {
	params := DeriveRescale(0.5)
	got := params.Apply(100)
	if got != 50 {
		t.Errorf("got %d, want 50", got)
	}
}

func TestRemapStrideInterleaveExpandsToNumSRAMs(t *testing.T) {
	// §8 boundary: stride=2, input_c=1 must expand to num_srams channels.
	remap := RemapStrideInterleave(1, 2, 16)
	if len(remap) != 16 {
		t.Fatalf("got len %d, want 16", len(remap))
	}
	for i := 0; i < 4; i++ {
		if remap[i] != 0 {
			t.Errorf("remap[%d] = %d, want 0 (single input channel)", i, remap[i])
		}
	}
}
