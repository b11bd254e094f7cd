// Package tensor provides shape arithmetic, brick-group rounding, and the
// per-channel quantisation primitives shared by every higher-level
// compiler component. It holds no heap state beyond the vectors it
// returns and never performs floating-point arithmetic outside the
// rescale-multiplier derivation (see rescale.go) and the float32 scale
// products of Broadcast (see quant.go).
package tensor

import "fmt"

// BrickH, BrickW, BrickC describe the hardware's native tile shape
// (1, BrickH, BrickW, BrickC): all SRAM tiles are aligned to this.
const (
	BrickH = 8
	BrickW = 8
	BrickC = 16
)

// PatchH, PatchW describe the PLE costing patch shape (1, PatchH, PatchW).
const (
	PatchH = 8
	PatchW = 4
)

// Format enumerates the compiler data formats a tensor may be stored in.
type Format int

const (
	NHWC Format = iota
	NHWCB
	NCHW
	HWIO
	HWIM
)

func (f Format) String() string {
	switch f {
	case NHWC:
		return "NHWC"
	case NHWCB:
		return "NHWCB"
	case NCHW:
		return "NCHW"
	case HWIO:
		return "HWIO"
	case HWIM:
		return "HWIM"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// DType enumerates the supported element datatypes.
type DType int

const (
	U8 DType = iota
	I8
	I32
)

func (d DType) String() string {
	switch d {
	case U8:
		return "u8"
	case I8:
		return "i8"
	case I32:
		return "i32"
	default:
		return fmt.Sprintf("DType(%d)", int(d))
	}
}

// Bytes returns the element size in bytes.
func (d DType) Bytes() int {
	switch d {
	case U8, I8:
		return 1
	case I32:
		return 4
	default:
		return 0
	}
}

// Shape is always four axes [N,H,W,C]. Most contracts require N=1.
type Shape [4]int

func (s Shape) N() int { return s[0] }
func (s Shape) H() int { return s[1] }
func (s Shape) W() int { return s[2] }
func (s Shape) C() int { return s[3] }

func (s Shape) String() string {
	return fmt.Sprintf("[%d,%d,%d,%d]", s[0], s[1], s[2], s[3])
}

// maxProduct is the largest value a 32-bit unsigned product is allowed to
// reach before Volume/ByteSize report an overflow; this keeps every
// downstream size computation representable in a plain int without
// silently wrapping.
const maxProduct = 1<<32 - 1

// Volume returns N*H*W*C, failing with ShapeOverflow if the product would
// not fit in 32 bits.
func (s Shape) Volume() (int, error) {
	return checkedProduct(s[0], s[1], s[2], s[3])
}

func checkedProduct(vals ...int) (int, error) {
	product := 1
	for _, v := range vals {
		if v < 0 {
			return 0, fmt.Errorf("%w: negative dimension %d", ErrShapeOverflow, v)
		}
		if v == 0 {
			return 0, nil
		}
		if product > maxProduct/v {
			return 0, fmt.Errorf("%w: product of %v exceeds 32-bit range", ErrShapeOverflow, vals)
		}
		product *= v
	}
	return product, nil
}

// RoundUpToBrickGroup rounds H, W and C up to the brick-group multiples
// (BrickH, BrickW, BrickC). N is left untouched (always 1 in practice).
func (s Shape) RoundUpToBrickGroup() Shape {
	return Shape{
		s[0],
		roundUp(s[1], BrickH),
		roundUp(s[2], BrickW),
		roundUp(s[3], BrickC),
	}
}

func roundUp(v, multiple int) int {
	if multiple <= 0 {
		return v
	}
	return ((v + multiple - 1) / multiple) * multiple
}

// NHWCBByteSize returns the storage size in bytes of this shape laid out
// in NHWCB (brick-interleaved) format, for the given element size.
func (s Shape) NHWCBByteSize(elemBytes int) (int, error) {
	rounded := s.RoundUpToBrickGroup()
	vol, err := rounded.Volume()
	if err != nil {
		return 0, err
	}
	return vol * elemBytes, nil
}

// FCAFVariant selects between the NPU's two fixed-block activation
// compression layouts.
type FCAFVariant int

const (
	FCAFWide FCAFVariant = iota
	FCAFDeep
)

// fcafWideBlock and fcafDeepBlock are the wide/deep FCAF block shapes in
// (H, W, C), matching the brick-group-aligned super-blocks the hardware
// compresses over.
var (
	fcafWideBlock = Shape{1, BrickH, BrickW * 2, BrickC}
	fcafDeepBlock = Shape{1, BrickH, BrickW, BrickC * 2}
)

// FCAFByteSize returns the worst-case (uncompressed-equivalent) byte size
// of this shape under the given FCAF variant: the shape rounded up to the
// variant's super-block multiple, at 1 byte/element (FCAF always carries
// 8-bit activations).
func (s Shape) FCAFByteSize(variant FCAFVariant) (int, error) {
	block := fcafWideBlock
	if variant == FCAFDeep {
		block = fcafDeepBlock
	}
	rounded := Shape{
		s[0],
		roundUp(s[1], block[1]),
		roundUp(s[2], block[2]),
		roundUp(s[3], block[3]),
	}
	return rounded.Volume()
}

// NumStripes returns how many stripes of stripeShape are needed to cover
// this shape along each axis, and their product (the total stripe count).
func (s Shape) NumStripes(stripeShape Shape) (axisCounts [4]int, total int, err error) {
	for i := 0; i < 4; i++ {
		if stripeShape[i] <= 0 {
			return axisCounts, 0, fmt.Errorf("%w: stripe axis %d is non-positive", ErrShapeOverflow, i)
		}
		axisCounts[i] = (s[i] + stripeShape[i] - 1) / stripeShape[i]
	}
	total, err = checkedProduct(axisCounts[0], axisCounts[1], axisCounts[2], axisCounts[3])
	return axisCounts, total, err
}
