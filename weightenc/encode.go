package weightenc

import "github.com/npucc/npucc/errs"

// OFM is one output-feature-map's worth of weights plus the metadata its
// header must carry.
type OFM struct {
	Weights            []int32 // signed 9-bit values, one per (kh, kw, cin)
	Bias               int32
	Scale              uint32
	Shift              uint8
	ZeroPointCorrection int32
}

// EncodedStream is the result of encoding one or more OFMs: the packed
// byte stream, per-OFM (offset, size) metadata, and the largest single
// stripe observed (used to check against the SRAM budget) (§3 Data
// Model: EncodedStream).
type EncodedStream struct {
	Bytes         []byte
	OFMOffsets    []int
	OFMSizes      []int
	MaxStripeBytes int
}

// EncodeOFMs packs ofms in order: per OFM, a header (weight count, bias,
// reload flag, scale/shift, zero-point correction), then one payload
// header plus GRC/palette-coded weight data, 16-bit aligned between
// OFMs (§4.H Bit packing).
func EncodeOFMs(ofms []OFM, sramBudgetBytes int) (EncodedStream, error) {
	var out EncodedStream
	w := newBitWriter()
	var prevParams *Params

	for _, ofm := range ofms {
		startBit := w.bitLen()

		symbols := make([]uint32, len(ofm.Weights))
		for i, wt := range ofm.Weights {
			symbols[i] = MapSymbol(wt)
		}
		params, _ := SearchParams(symbols, prevParams)
		prevParams = &params

		// OFM header.
		w.writeBits(uint32(len(ofm.Weights)), 16)
		w.writeBits(uint32(int32ToU32(ofm.Bias)), 32)
		reload := uint32(0)
		if params.Reload {
			reload = 1
		}
		w.writeBits(reload, 1)
		w.writeBits(ofm.Scale, 16)
		w.writeBits(uint32(ofm.Shift), 8)
		w.writeBits(uint32(int32ToU32(ofm.ZeroPointCorrection)), 16)

		// Payload header.
		bits := paletteBits(params.PaletteSize)
		w.writeBits(uint32(bits), 5)
		w.writeBits(uint32(params.PaletteSize), 6)
		w.writeBits(uint32(divCode(params.ZDiv)), 3)
		w.writeBits(uint32(divCode(params.WDiv)), 3)
		w.writeBits(uint32(params.DirOfs), 5)
		trunc := uint32(0)
		if params.PaletteTruncation {
			trunc = 1
		}
		w.writeBits(trunc, 1)

		encodePayload(w, symbols, params)

		w.align16()
		endBit := w.bitLen()
		startByte := startBit / 8
		sizeBytes := (endBit - startBit) / 8
		out.OFMOffsets = append(out.OFMOffsets, startByte)
		out.OFMSizes = append(out.OFMSizes, sizeBytes)
		if sizeBytes > out.MaxStripeBytes {
			out.MaxStripeBytes = sizeBytes
		}
	}

	out.Bytes = w.bytes()
	if out.MaxStripeBytes > sramBudgetBytes {
		return EncodedStream{}, &errs.WeightsTooLargeError{RequestedBytes: out.MaxStripeBytes, BudgetBytes: sramBudgetBytes}
	}
	return out, nil
}

func encodePayload(w *bitWriter, symbols []uint32, p Params) {
	var palette []uint32
	if p.PaletteSize > 0 {
		built, ok := buildPalette(symbols)
		if ok {
			palette = built
			for _, s := range palette {
				w.writeBits(s, 32)
			}
		}
	}
	index := make(map[uint32]int, len(palette))
	for i, s := range palette {
		index[s] = i
	}
	bits := paletteBits(len(palette))

	emit := func(s uint32) {
		if palette != nil {
			w.writeBits(uint32(index[s]), bits)
			return
		}
		grcEncodeSymbol(w, s, p.WDiv)
	}

	if p.ZDiv == ZDivDisabled {
		for _, s := range symbols {
			emit(s)
		}
		return
	}
	runs := ExtractRuns(symbols)
	for _, r := range runs {
		w.writeUnary(uint32(r.zeroRunLength))
		if r.hasSymbol {
			emit(r.symbol)
		}
	}
}

// divCode maps a divisor value (ZDivDisabled/WDivUncompressed, or a
// non-negative divisor) onto the 3-bit field the header stores it in:
// the sentinel encodes as 7, otherwise the divisor value itself.
func divCode(div int) int {
	if div < 0 {
		return 7
	}
	return div
}

func int32ToU32(v int32) uint32 { return uint32(v) }
