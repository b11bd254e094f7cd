package ir

import "github.com/npucc/npucc/tensor"

// FormatConversionData changes compiler data format between
// NHWC/NHWCB/NCHW. The optimiser merges adjacent inverse conversions and
// merges into a preceding Constant (§4.C FormatConversion).
type FormatConversionData struct {
	From, To tensor.Format
}

func (FormatConversionData) Kind() Kind { return KindFormatConversion }

func (FormatConversionData) IsPrepared(g *Graph, self NodeId) bool { return true }

func (FormatConversionData) FixGraph(g *Graph, self NodeId, sev Severity) bool { return false }

// NewFormatConversion creates a FormatConversion node and adds it to the graph.
func NewFormatConversion(g *Graph, from, to tensor.Format, n *Node) NodeId {
	n.Data = FormatConversionData{From: from, To: to}
	n.Format = to
	return g.AddNode(n)
}

// ReinterpretData is a shape-only bitcast. is_prepared requires the
// source to be uncompressed; fix_graph sets RequiredUncompressed on the
// source. During generate it aliases the upstream buffer id; if
// NHWC->NHWCB, aligns the buffer to 1024 bytes (§4.C Reinterpret).
type ReinterpretData struct {
	NewShape tensor.Shape
}

func (ReinterpretData) Kind() Kind { return KindReinterpret }

func (ReinterpretData) IsPrepared(g *Graph, self NodeId) bool {
	e := g.InEdgeAt(self, 0)
	if e == nil {
		return false
	}
	src := g.Node(e.Src)
	if src == nil {
		return false
	}
	return src.CompressionHint != RequiredCompressed
}

func (ReinterpretData) FixGraph(g *Graph, self NodeId, sev Severity) bool {
	if sev != Low {
		return false
	}
	e := g.InEdgeAt(self, 0)
	if e == nil {
		return false
	}
	src := g.Node(e.Src)
	if src == nil || src.CompressionHint == RequiredUncompressed {
		return false
	}
	src.CompressionHint = RequiredUncompressed
	return true
}

// AlignmentBytes returns the buffer alignment this Reinterpret requires:
// 1024 bytes when converting NHWC to NHWCB, the default brick-group
// alignment otherwise.
func (d ReinterpretData) AlignmentBytes(srcFormat, dstFormat tensor.Format) int {
	if srcFormat == tensor.NHWC && dstFormat == tensor.NHWCB {
		return 1024
	}
	return tensor.BrickC
}

// NewReinterpret creates a Reinterpret node and adds it to the graph.
func NewReinterpret(g *Graph, newShape tensor.Shape, n *Node) NodeId {
	n.Data = ReinterpretData{NewShape: newShape}
	n.OutputShape = newShape
	return g.AddNode(n)
}
