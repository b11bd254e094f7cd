package compiler

import (
	"github.com/npucc/npucc/ir"
	"github.com/npucc/npucc/planner"
	"github.com/npucc/npucc/tensor"
	"github.com/npucc/npucc/weightenc"
)

// encodedWeights pairs one MCE Pass's id with its packed weight stream.
// encodeWeightsForPasses does not use it; it returns a map keyed by
// PassId instead.
type encodedWeights struct {
	passID ir.PassId
	stream weightenc.EncodedStream
}

// buildOFMs slices a Pass's weight stripe into one OFM per output
// channel the stripe covers, per §4.H ("the weight stream contains a
// single OFM header per OFM group"). The weight stripe shape is
// (kernelH, kernelW, cin, coutStripe) (planner.MceWeightStripeShape);
// each OFM's filter therefore spans kernelH*kernelW*cin raw weight
// bytes, read as signed 8-bit values and widened to the encoder's
// int32 symbol domain. Scale/shift are derived per output channel from
// the node's output quantisation via tensor.DeriveRescale, since the
// MCE node carries no separately-tracked per-channel requantisation
// record of its own in this IR.
func buildOFMs(mce ir.MceOperationData, n *ir.Node, weightStripeShape tensor.Shape) []weightenc.OFM {
	kernelH, kernelW, cin, coutStripe := weightStripeShape[0], weightStripeShape[1], weightStripeShape[2], weightStripeShape[3]
	volumePerOFM := kernelH * kernelW * cin
	if volumePerOFM <= 0 || coutStripe <= 0 {
		return nil
	}

	var raw []byte
	if mce.Weights != nil {
		raw = mce.Weights.Bytes()
	}

	ofms := make([]weightenc.OFM, coutStripe)
	for ofmIdx := 0; ofmIdx < coutStripe; ofmIdx++ {
		weights := make([]int32, volumePerOFM)
		for j := 0; j < volumePerOFM; j++ {
			if len(raw) == 0 {
				continue
			}
			b := raw[(ofmIdx*volumePerOFM+j)%len(raw)]
			weights[j] = int32(int8(b))
		}

		var bias int32
		if ofmIdx < len(mce.Bias) {
			bias = mce.Bias[ofmIdx]
		}

		rescale := tensor.DeriveRescale(float64(n.OutputQuant.ScaleAt(ofmIdx)))
		ofms[ofmIdx] = weightenc.OFM{
			Weights:             weights,
			Bias:                bias,
			Scale:               uint32(rescale.Multiplier),
			Shift:               rescale.Shift,
			ZeroPointCorrection: n.OutputQuant.ZeroPoint,
		}
	}
	return ofms
}

// encodeWeightsForPasses submits one weight-encoding request per
// weight-carrying MCE Pass to cache, blocking on every result (§4.H
// two-stage interface; the compiler only needs the final blocking form
// since passes are already fully planned by the time weights are
// encoded, §2 control flow: "weight encoder produces compressed blobs"
// after planning).
func encodeWeightsForPasses(g *ir.Graph, passes []*planner.Pass, cache *weightenc.Cache, sramLaneBytes int) (map[ir.PassId]weightenc.EncodedStream, error) {
	out := make(map[ir.PassId]weightenc.EncodedStream)

	for _, p := range passes {
		n := g.Node(p.Head)
		if n == nil || n.Kind() != ir.KindMceOperation {
			continue
		}
		mce, ok := n.Data.(ir.MceOperationData)
		if !ok || mce.Weights == nil {
			continue
		}

		ofms := buildOFMs(mce, n, p.Weights.Shape)
		if len(ofms) == 0 {
			continue
		}

		req := weightenc.Request{
			WeightsHash:     weightenc.HashBytes(mce.Weights.Bytes()),
			BiasHash:        weightenc.HashBytes(int32SliceToBytes(mce.Bias)),
			StripeDepth:     p.Weights.Shape[3],
			IterationSize:   p.Weights.Shape[0] * p.Weights.Shape[1] * p.Weights.Shape[2],
			StrideX:         mce.StrideX,
			StrideY:         mce.StrideY,
			PadTop:          mce.PadTop,
			PadLeft:         mce.PadLeft,
			PadBottom:       mce.PadBottom,
			PadRight:        mce.PadRight,
			Op:              mce.Op,
			Algo:            p.Algorithm,
			QuantZeroPoint:  n.OutputQuant.ZeroPoint,
			OFMs:            ofms,
			SRAMBudgetBytes: sramLaneBytes,
		}

		stream, err := cache.Encode(req)
		if err != nil {
			return nil, err
		}
		out[p.ID] = stream
	}

	return out, nil
}

func int32SliceToBytes(vals []int32) []byte {
	out := make([]byte, 4*len(vals))
	for i, v := range vals {
		out[i*4] = byte(v)
		out[i*4+1] = byte(v >> 8)
		out[i*4+2] = byte(v >> 16)
		out[i*4+3] = byte(v >> 24)
	}
	return out
}
