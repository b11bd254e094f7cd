package weightenc

import "github.com/npucc/npucc/errs"

// DecodeOFMs reverses EncodeOFMs: it walks the packed stream OFM by OFM,
// re-reading each header/payload pair bitWriter wrote and re-materialising
// the original signed weight values. It is the bit-exact inverse EncodeOFMs'
// round-trip invariant (§8 invariant 5) requires, and is exercised outside
// tests nowhere else: weightenc's wire format is only ever consumed by the
// NPU's own microcode decoder downstream of this compiler, so this decoder
// exists to let the compiler verify its own encoder rather than to decode
// anything at runtime.
func DecodeOFMs(stream EncodedStream, numOFMs int) ([]OFM, error) {
	r := newBitReader(stream.Bytes)
	out := make([]OFM, 0, numOFMs)

	for i := 0; i < numOFMs; i++ {
		numWeights := int(r.readBits(16))
		bias := int32(r.readBits(32))
		reload := r.readBits(1) != 0
		scale := r.readBits(16)
		shift := uint8(r.readBits(8))
		zpc := sext16(r.readBits(16))

		_ = r.readBits(5) // palette index bit width, re-derived below from paletteSize
		paletteSize := int(r.readBits(6))
		zDiv := undivCode(int(r.readBits(3)))
		wDiv := undivCode(int(r.readBits(3)))
		_ = r.readBits(5) // DirOfs, unused by the weight values themselves
		_ = r.readBits(1) // PaletteTruncation, unused by the weight values themselves

		params := Params{PaletteSize: paletteSize, ZDiv: zDiv, WDiv: wDiv, Reload: reload}

		var palette []uint32
		if paletteSize > 0 {
			palette = make([]uint32, paletteSize)
			for j := range palette {
				palette[j] = r.readBits(32)
			}
		}

		symbols, err := decodePayload(r, numWeights, palette, params)
		if err != nil {
			return nil, err
		}

		weights := make([]int32, numWeights)
		for j, s := range symbols {
			weights[j] = UnmapSymbol(s)
		}

		out = append(out, OFM{
			Weights:             weights,
			Bias:                bias,
			Scale:               scale,
			Shift:               shift,
			ZeroPointCorrection: zpc,
		})

		r.align16()
	}

	return out, nil
}

// decodePayload is the inverse of encodePayload: it must consume exactly
// numSymbols weight symbols, undoing the RLE zero-run transform when ZDiv
// is enabled and the palette indirection when a palette was written.
func decodePayload(r *bitReader, numSymbols int, palette []uint32, p Params) ([]uint32, error) {
	bits := paletteBits(len(palette))
	readOne := func() uint32 {
		if palette != nil {
			idx := r.readBits(bits)
			if int(idx) >= len(palette) {
				return 0
			}
			return palette[idx]
		}
		return grcDecodeSymbol(r, p.WDiv)
	}

	symbols := make([]uint32, 0, numSymbols)
	if p.ZDiv == ZDivDisabled {
		for len(symbols) < numSymbols {
			symbols = append(symbols, readOne())
		}
		return symbols, nil
	}

	for len(symbols) < numSymbols {
		runLen := int(r.readUnary())
		if len(symbols)+runLen > numSymbols {
			return nil, errs.Internal("weightenc: decoded zero run overruns OFM weight count")
		}
		for k := 0; k < runLen; k++ {
			symbols = append(symbols, 0)
		}
		if len(symbols) == numSymbols {
			break
		}
		symbols = append(symbols, readOne())
	}
	return symbols, nil
}

// undivCode is the inverse of divCode: 7 decodes back to the sentinel,
// any other 3-bit value is the divisor itself.
func undivCode(code int) int {
	if code == 7 {
		return -1
	}
	return code
}

// sext16 sign-extends the low 16 bits of v to a full int32, the inverse
// of EncodeOFMs' 16-bit-truncating write of ZeroPointCorrection.
func sext16(v uint32) int32 {
	v &= 0xFFFF
	if v&0x8000 != 0 {
		return int32(v) - 0x10000
	}
	return int32(v)
}
