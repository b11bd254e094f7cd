package tensor

import "fmt"

// QuantInfo is a quantisation record: zero_point plus one or more scales.
// Scales may be length 1 (per-tensor) or equal to the channel count
// (per-axis).
type QuantInfo struct {
	ZeroPoint int32
	Scales    []float32
}

// IsPerAxis reports whether this record carries one scale per channel
// rather than a single per-tensor scale.
func (q QuantInfo) IsPerAxis() bool { return len(q.Scales) > 1 }

// ScaleAt returns the scale for channel c, broadcasting a per-tensor
// singleton scale against any channel count.
func (q QuantInfo) ScaleAt(c int) float32 {
	if len(q.Scales) == 1 {
		return q.Scales[0]
	}
	return q.Scales[c]
}

// Broadcast combines two quantisation records under multiplication
// (the operation MCE nodes use to derive combined IFM*weight scales):
// a singleton scale broadcasts against a vector of the other's length.
func Broadcast(a, b QuantInfo) ([]float32, error) {
	switch {
	case len(a.Scales) == len(b.Scales):
		out := make([]float32, len(a.Scales))
		for i := range out {
			out[i] = a.Scales[i] * b.Scales[i]
		}
		return out, nil
	case len(a.Scales) == 1:
		out := make([]float32, len(b.Scales))
		for i := range out {
			out[i] = a.Scales[0] * b.Scales[i]
		}
		return out, nil
	case len(b.Scales) == 1:
		out := make([]float32, len(a.Scales))
		for i := range out {
			out[i] = a.Scales[i] * b.Scales[0]
		}
		return out, nil
	default:
		return nil, fmt.Errorf("quant: incompatible scale vector lengths %d and %d", len(a.Scales), len(b.Scales))
	}
}

// InRange reports whether the zero point is representable in the given
// datatype's range; used by fail-early capability checks (§7
// NotSupported: "zero-point out of dtype range").
func (q QuantInfo) InRange(dt DType) bool {
	switch dt {
	case U8:
		return q.ZeroPoint >= 0 && q.ZeroPoint <= 255
	case I8:
		return q.ZeroPoint >= -128 && q.ZeroPoint <= 127
	case I32:
		return true
	default:
		return false
	}
}
