package tensor

// RemapStrideInterleave computes the channel-wise remap table for a
// stride-interleaved IFM: when an MCE operation strides the input, the
// compiler internally widens the channel dimension by a factor of
// stride*stride so that each output stripe reads contiguous input
// channels. numSRAMs is the number of SRAM lanes the interleave must be
// expanded across (see §8 boundary behaviour: stride=2, input_c=1 must
// expand to num_srams channels internally).
//
// For stride > 1 the returned slice has length max(inputC*stride*stride,
// numSRAMs) and maps each interleaved output channel index to its source
// input channel; for stride <= 1 it is the identity map of length inputC,
// whatever numSRAMs is.
func RemapStrideInterleave(inputC, stride, numSRAMs int) []int {
	if stride <= 1 {
		out := make([]int, inputC)
		for i := range out {
			out[i] = i
		}
		return out
	}
	interleaved := inputC * stride * stride
	total := interleaved
	if numSRAMs > total {
		total = numSRAMs
	}
	remap := make([]int, total)
	for i := 0; i < total; i++ {
		if i < interleaved {
			remap[i] = i % inputC
		} else {
			// Padding lanes beyond the natural interleave replicate channel
			// 0 so that downstream stripe-shape arithmetic sees a full
			// num_srams-wide tile without introducing undefined reads.
			remap[i] = 0
		}
	}
	return remap
}
