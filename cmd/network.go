package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/npucc/npucc/ir"
	"github.com/npucc/npucc/tensor"
)

// tensorInfoJSON mirrors spec.md §6's Inputs schema for one tensor info:
// (dims[4], dtype, format, quant).
type tensorInfoJSON struct {
	Dims   [4]int    `json:"dims"`
	DType  string    `json:"dtype"`
	Format string    `json:"format"`
	Zero   int32     `json:"zero_point"`
	Scales []float64 `json:"scales"`
}

func (t tensorInfoJSON) shape() tensor.Shape {
	return tensor.Shape{t.Dims[0], t.Dims[1], t.Dims[2], t.Dims[3]}
}

func (t tensorInfoJSON) dtype() (tensor.DType, error) {
	switch t.DType {
	case "u8":
		return tensor.U8, nil
	case "i8":
		return tensor.I8, nil
	case "i32":
		return tensor.I32, nil
	default:
		return 0, fmt.Errorf("network: unknown dtype %q", t.DType)
	}
}

func (t tensorInfoJSON) quant() tensor.QuantInfo {
	if len(t.Scales) == 0 {
		return tensor.QuantInfo{ZeroPoint: t.Zero, Scales: []float32{1.0}}
	}
	scales := make([]float32, len(t.Scales))
	for i, s := range t.Scales {
		scales[i] = float32(s)
	}
	return tensor.QuantInfo{ZeroPoint: t.Zero, Scales: scales}
}

// operatorJSON is one operator record: its output tensor info, the node
// ids of its operands (empty for Input/Constant), and operator-specific
// parameters. This is a reference encoding of the "IR-construction
// collaborator" schema spec.md §6 describes, scoped to the operator
// kinds ncc's demo pipelines exercise (conv/fc MCE ops plus the handful
// of repair-node kinds that appear pre-formed in a typical network);
// the full operator set is that collaborator's responsibility, not the
// compiler core's.
type operatorJSON struct {
	ID          int            `json:"id"`
	Kind        string         `json:"kind"`
	Inputs      []int          `json:"inputs"`
	Output      tensorInfoJSON `json:"output"`
	Source      int            `json:"source_op_id"`
	Weights     []int32        `json:"weights"`
	Bias        []int32        `json:"bias"`
	KernelH     int            `json:"kernel_h"`
	KernelW     int            `json:"kernel_w"`
	CinPerGroup int            `json:"cin_per_group"`
	StrideX     int            `json:"stride_x"`
	StrideY     int            `json:"stride_y"`

	PadTop    int `json:"pad_top"`
	PadLeft   int `json:"pad_left"`
	PadBottom int `json:"pad_bottom"`
	PadRight  int `json:"pad_right"`
}

type networkJSON struct {
	Operators []operatorJSON `json:"operators"`
}

// ParseNetwork decodes the reference Network JSON encoding (see
// operatorJSON) into the same schema spec.md §6 describes.
func ParseNetwork(data []byte) (networkJSON, error) {
	var net networkJSON
	if err := json.Unmarshal(data, &net); err != nil {
		return networkJSON{}, fmt.Errorf("network: parsing: %w", err)
	}
	return net, nil
}

// BuildGraph constructs an ir.Graph from a parsed Network, wiring each
// operator record's Inputs to the ir.Node its producing operator built,
// in declaration order (§6 Inputs: "a sequence of operator records").
func BuildGraph(net networkJSON) (*ir.Graph, error) {
	g := ir.NewGraph()
	nodeByOpID := make(map[int]ir.NodeId, len(net.Operators))

	for _, op := range net.Operators {
		dtype, err := op.Output.dtype()
		if err != nil {
			return nil, fmt.Errorf("network: op %d: %w", op.ID, err)
		}
		base := &ir.Node{
			OperationIDs: []int{op.ID},
			OutputShape:  op.Output.shape(),
			OutputDType:  dtype,
			OutputQuant:  op.Output.quant(),
		}

		var id ir.NodeId
		switch op.Kind {
		case "input":
			id = ir.NewInput(g, op.Source, base)
		case "output":
			id = ir.NewOutput(g, op.Source, 0, base)
		case "constant":
			id = ir.NewConstant(g, int32SliceToWeightBytes(op.Weights), base)
		case "conv", "fc":
			kernelH, kernelW := op.KernelH, op.KernelW
			if op.Kind == "fc" {
				kernelH, kernelW = 1, 1
			}
			opKind := ir.Conv
			if op.Kind == "fc" {
				opKind = ir.FullyConnected
			}
			id = ir.NewMceOperation(g, ir.MceOperationData{
				Op:          opKind,
				Weights:     ir.NewSharedBytes(int32SliceToWeightBytes(op.Weights)),
				Bias:        op.Bias,
				KernelH:     kernelH,
				KernelW:     kernelW,
				CinPerGroup: op.CinPerGroup,
				StrideX:     op.StrideX,
				StrideY:     op.StrideY,
				PadTop:      op.PadTop,
				PadLeft:     op.PadLeft,
				PadBottom:   op.PadBottom,
				PadRight:    op.PadRight,
			}, base)
		case "requantize":
			zp := op.Output.Zero
			scale := 1.0
			if len(op.Output.Scales) > 0 {
				scale = op.Output.Scales[0]
			}
			id = ir.NewRequantize(g, zp, float32(scale), base)
		case "copy":
			id = ir.NewCopy(g, base)
		default:
			return nil, fmt.Errorf("network: op %d: unsupported kind %q", op.ID, op.Kind)
		}

		nodeByOpID[op.ID] = id
		for slot, parentOpID := range op.Inputs {
			parent, ok := nodeByOpID[parentOpID]
			if !ok {
				return nil, fmt.Errorf("network: op %d references unbuilt input op %d", op.ID, parentOpID)
			}
			if _, err := g.Connect(parent, 0, id, slot); err != nil {
				return nil, fmt.Errorf("network: op %d: %w", op.ID, err)
			}
		}
	}

	return g, nil
}

// int32SliceToWeightBytes packs raw int32 weight/constant values into a
// little-endian byte buffer, the form ir.NewConstant/ir.NewSharedBytes
// expect to own.
func int32SliceToWeightBytes(vals []int32) []byte {
	out := make([]byte, 4*len(vals))
	for i, v := range vals {
		u := uint32(v)
		out[4*i] = byte(u)
		out[4*i+1] = byte(u >> 8)
		out[4*i+2] = byte(u >> 16)
		out[4*i+3] = byte(u >> 24)
	}
	return out
}
