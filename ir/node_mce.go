package ir

import "github.com/npucc/npucc/caps"

// OpKind enumerates the three operations an MCE can perform.
type OpKind int

const (
	Conv OpKind = iota
	Depthwise
	FullyConnected
)

// Algorithm selects between the direct and Winograd MCE datapaths.
type Algorithm int

const (
	AlgorithmNone Algorithm = iota
	AlgorithmDirect
	AlgorithmWinograd
)

// UpsampleType enumerates the MCE's supported upsampling modes.
type UpsampleType int

const (
	UpsampleOff UpsampleType = iota
	UpsampleNearestNeighbour
	UpsampleTransposeBilinear
)

// MceOperationData carries weights (shared, read-only), bias, stride,
// padding, upscale/upsample, operation kind, and a cached algorithm
// choice (§4.C MceOperation).
type MceOperationData struct {
	Weights *SharedBytes // shared ownership: last holder frees
	Bias    []int32

	// KernelH, KernelW, CinPerGroup describe the weight tensor's shape
	// (the compiler-facing collaborator that builds the IR is expected
	// to fill these from the originating operator's weight tensor info;
	// see §6 Inputs). FullyConnected operations leave KernelH=KernelW=1.
	KernelH, KernelW, CinPerGroup int

	StrideX, StrideY   int
	PadTop, PadLeft     int
	PadBottom, PadRight int

	Upscale      int
	UpsampleType UpsampleType
	Op           OpKind

	// IsIdentity marks a node inserted as a repair (1x1, stride 1,
	// weight = identity passthrough); used by fix_graph of other kinds
	// to recognise identity MCEs they inserted earlier.
	IsIdentity bool

	// cachedAlgorithm is never set: GetEffectiveAlgorithm recomputes its
	// result on every call and does not read this field, so it stays at
	// its zero value AlgorithmNone.
	cachedAlgorithm Algorithm
}

func (MceOperationData) Kind() Kind { return KindMceOperation }

func (MceOperationData) IsPrepared(g *Graph, self NodeId) bool { return true }

func (MceOperationData) FixGraph(g *Graph, self NodeId, sev Severity) bool { return false }

// ShapeMultiplier returns (upscale, upscale, 1): the factor the MCE's
// output shape grows by relative to its nominal stride-derived shape.
func (d MceOperationData) ShapeMultiplier() [3]int {
	u := d.Upscale
	if u == 0 {
		u = 1
	}
	return [3]int{u, u, 1}
}

// winogradProfitable reports whether the given kernel size is profitable
// under Winograd for the given capability record, per the capability's
// block-size table: a kernel dimension is profitable when it has a
// non-zero Winograd MAC-per-block constant for that shape.
func winogradProfitable(kernelH, kernelW int, w caps.WinogradBlockSizes) bool {
	switch {
	case kernelH == 1 && kernelW == 1:
		return w.K1x1 > 0
	case kernelH == 1 && kernelW == 3:
		return w.K1x3 > 0
	case kernelH == 3 && kernelW == 1:
		return w.K3x1 > 0
	case kernelH == 3 && kernelW == 3:
		return w.K3x3 > 0
	default:
		return false
	}
}

// GetEffectiveAlgorithm returns Winograd only if this is a CONV with
// stride 1, upsampling off, and the kernel size is profitable per the
// capability's block-size table and winogradEnabled; otherwise Direct
// (§4.C MceOperation).
func (d MceOperationData) GetEffectiveAlgorithm(kernelH, kernelW int, c caps.Capabilities, winogradEnabled bool) Algorithm {
	if !winogradEnabled {
		return AlgorithmDirect
	}
	if d.Op != Conv {
		return AlgorithmDirect
	}
	if d.StrideX != 1 || d.StrideY != 1 {
		return AlgorithmDirect
	}
	if d.UpsampleType != UpsampleOff {
		return AlgorithmDirect
	}
	if !winogradProfitable(kernelH, kernelW, c.Winograd) {
		return AlgorithmDirect
	}
	return AlgorithmWinograd
}

// SharedBytes is an immutable byte buffer with shared (reference-counted)
// ownership between the IR node that introduces it and the weight
// encoder, matching the design notes' "shared weights tensor" guidance.
// The last holder to Release frees the backing array.
type SharedBytes struct {
	data     []byte
	refCount *int
}

// NewSharedBytes wraps data with an initial reference count of 1.
func NewSharedBytes(data []byte) *SharedBytes {
	rc := 1
	return &SharedBytes{data: data, refCount: &rc}
}

// Bytes returns the underlying byte slice. Callers must not retain it
// past a Release that drops the reference count to zero.
func (s *SharedBytes) Bytes() []byte { return s.data }

// Retain increments the reference count and returns the same handle,
// used when a second owner (e.g. the encoder cache) needs to keep the
// bytes alive independently.
func (s *SharedBytes) Retain() *SharedBytes {
	*s.refCount++
	return s
}

// Release decrements the reference count; the caller must not use the
// handle afterwards if it returns true (last reference dropped).
func (s *SharedBytes) Release() bool {
	*s.refCount--
	return *s.refCount <= 0
}

// NewMceOperation creates an MceOperation node and adds it to the graph.
func NewMceOperation(g *Graph, d MceOperationData, n *Node) NodeId {
	n.Data = d
	return g.AddNode(n)
}

// newIdentityMce builds the identity depthwise MCE used by several
// fix_graph repairs (McePostProcess, FuseOnlyPle, ExtractSubtensor):
// 1x1 kernel, stride 1, no padding, no upsampling — passes its input
// through unchanged so the requesting node has an MCE to fuse with.
func newIdentityMce(template *Node) *Node {
	n := &Node{
		OutputShape: template.OutputShape,
		OutputDType: template.OutputDType,
		OutputQuant: template.OutputQuant,
		Format:      template.Format,
	}
	n.Data = MceOperationData{
		Op:           Depthwise,
		StrideX:      1,
		StrideY:      1,
		Upscale:      1,
		UpsampleType: UpsampleOff,
		IsIdentity:   true,
	}
	return n
}
