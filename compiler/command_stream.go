package compiler

import (
	"bytes"
	"encoding/binary"

	"github.com/npucc/npucc/emitter"
)

// serializeCommands packs cmds into the length-prefixed, variant-record
// command stream (§6 Outputs: "one per command... wire layout is the
// capability-governed binary"). Every command is a fixed-shape record:
// {u8 type, u32 passId, TensorDescriptor input, TensorDescriptor output,
// u8 hasWeights, TensorDescriptor weights, u8 algorithm, u8 dumpLabel-
// length, dumpLabel bytes}, all little-endian. Identical inputs and
// options always serialise to identical bytes (§8 invariant 6): nothing
// here depends on map/allocator iteration order, only on the already-
// deterministic Command slice emitter.Emit produced.
func serializeCommands(cmds []emitter.Command) []byte {
	var out bytes.Buffer
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(cmds)))
	out.Write(lenBuf[:])

	for _, c := range cmds {
		out.WriteByte(byte(c.Type))

		var passBuf [4]byte
		binary.LittleEndian.PutUint32(passBuf[:], uint32(c.PassID))
		out.Write(passBuf[:])

		writeTensorDescriptor(&out, c.Input)
		writeTensorDescriptor(&out, c.Output)

		if c.Weights != nil {
			out.WriteByte(1)
			writeTensorDescriptor(&out, *c.Weights)
		} else {
			out.WriteByte(0)
		}

		out.WriteByte(byte(c.Algorithm))
		out.WriteByte(byte(len(c.DumpLabel)))
		out.WriteString(c.DumpLabel)
	}
	return out.Bytes()
}

func writeTensorDescriptor(out *bytes.Buffer, t emitter.TensorDescriptor) {
	var u32 [4]byte
	for _, v := range []int{t.Shape.N(), t.Shape.H(), t.Shape.W(), t.Shape.C()} {
		binary.LittleEndian.PutUint32(u32[:], uint32(v))
		out.Write(u32[:])
	}
	out.WriteByte(byte(t.DType))
	out.WriteByte(byte(t.Format))
	out.WriteByte(byte(t.Location))
	binary.LittleEndian.PutUint32(u32[:], t.BufferID)
	out.Write(u32[:])
	binary.LittleEndian.PutUint32(u32[:], uint32(t.Offset))
	out.Write(u32[:])
	binary.LittleEndian.PutUint32(u32[:], uint32(t.ZeroPoint))
	out.Write(u32[:])
}
