// Package compiler implements the top-level orchestration (§2 System
// Overview control flow): ir.FixGraph, optimizer.Run, planner/cascading
// pass formation, weightenc compression, buffermgr offset assignment,
// and emitter command-stream generation, wired together into Compile and
// EstimatePerformance.
package compiler

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/npucc/npucc/buffermgr"
)

// blobTag is the 4-byte magic every compiled blob begins with (§6
// Outputs: "tag ENCN").
var blobTag = [4]byte{'E', 'N', 'C', 'N'}

// blobVersion is the {major, minor, patch} triple written into every
// blob's header.
var blobVersion = [3]uint32{1, 0, 0}

// CompiledBlob is the in-memory form of the compiler's binary output
// (§6 Outputs): the constant payloads plus every BufferInfo bucket,
// ready to be written in the ENCN wire format.
type CompiledBlob struct {
	ConstantDmaData         []byte
	ConstantControlUnitData []byte

	InputBufferInfos               []*buffermgr.BufferInfo
	OutputBufferInfos              []*buffermgr.BufferInfo
	ConstantControlUnitBufferInfos []*buffermgr.BufferInfo
	ConstantDmaBufferInfos         []*buffermgr.BufferInfo
	IntermediateBufferInfos        []*buffermgr.BufferInfo

	CommandStream []byte
}

// writeBufferInfoRecords writes each BufferInfo in the fixed 12-byte wire
// shape {u32 id, u32 offset, u32 size}, little-endian (§6 Outputs).
func writeBufferInfoRecords(buf *bytes.Buffer, infos []*buffermgr.BufferInfo) {
	var rec [12]byte
	for _, b := range infos {
		binary.LittleEndian.PutUint32(rec[0:4], b.ID)
		binary.LittleEndian.PutUint32(rec[4:8], uint32(b.Offset))
		binary.LittleEndian.PutUint32(rec[8:12], uint32(b.Size))
		buf.Write(rec[:])
	}
}

func writeLengthPrefixed(buf *bytes.Buffer, section []byte) {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(section)))
	buf.Write(lenBuf[:])
	buf.Write(section)
}

func bufferInfoSection(infos []*buffermgr.BufferInfo) []byte {
	var buf bytes.Buffer
	writeBufferInfoRecords(&buf, infos)
	return buf.Bytes()
}

// WriteBlob serialises b into the ENCN wire format (§6 Outputs): tag,
// version header, then seven length-prefixed sections in a fixed order.
// All multi-byte integers are little-endian regardless of host
// endianness.
func WriteBlob(b *CompiledBlob) []byte {
	var out bytes.Buffer
	out.Write(blobTag[:])
	for _, v := range blobVersion {
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], v)
		out.Write(tmp[:])
	}

	writeLengthPrefixed(&out, b.ConstantDmaData)
	writeLengthPrefixed(&out, b.ConstantControlUnitData)
	writeLengthPrefixed(&out, bufferInfoSection(b.InputBufferInfos))
	writeLengthPrefixed(&out, bufferInfoSection(b.OutputBufferInfos))
	writeLengthPrefixed(&out, bufferInfoSection(b.ConstantControlUnitBufferInfos))
	writeLengthPrefixed(&out, bufferInfoSection(b.ConstantDmaBufferInfos))
	writeLengthPrefixed(&out, bufferInfoSection(b.IntermediateBufferInfos))

	return out.Bytes()
}

// decodedBufferInfo is the minimal record ReadBlob recovers for each
// BufferInfo bucket: the wire format does not carry type/debug-name, so
// round-tripping a blob only recovers id/offset/size (§6 Outputs).
type decodedBufferInfo struct {
	ID     uint32
	Offset uint32
	Size   uint32
}

// DecodedBlob is what ReadBlob recovers from the ENCN wire format.
type DecodedBlob struct {
	Major, Minor, Patch uint32

	ConstantDmaData         []byte
	ConstantControlUnitData []byte

	InputBufferInfos               []decodedBufferInfo
	OutputBufferInfos              []decodedBufferInfo
	ConstantControlUnitBufferInfos []decodedBufferInfo
	ConstantDmaBufferInfos         []decodedBufferInfo
	IntermediateBufferInfos        []decodedBufferInfo
}

// ReadBlob parses the ENCN wire format written by WriteBlob.
func ReadBlob(data []byte) (*DecodedBlob, error) {
	r := bytes.NewReader(data)
	var tag [4]byte
	if _, err := r.Read(tag[:]); err != nil || tag != blobTag {
		return nil, fmt.Errorf("compiler: not an ENCN blob")
	}

	readU32 := func() (uint32, error) {
		var tmp [4]byte
		if _, err := r.Read(tmp[:]); err != nil {
			return 0, err
		}
		return binary.LittleEndian.Uint32(tmp[:]), nil
	}

	out := &DecodedBlob{}
	var err error
	if out.Major, err = readU32(); err != nil {
		return nil, err
	}
	if out.Minor, err = readU32(); err != nil {
		return nil, err
	}
	if out.Patch, err = readU32(); err != nil {
		return nil, err
	}

	readSection := func() ([]byte, error) {
		n, err := readU32()
		if err != nil {
			return nil, err
		}
		section := make([]byte, n)
		if n > 0 {
			if _, err := r.Read(section); err != nil {
				return nil, err
			}
		}
		return section, nil
	}

	readBufferInfos := func() ([]decodedBufferInfo, error) {
		section, err := readSection()
		if err != nil {
			return nil, err
		}
		if len(section)%12 != 0 {
			return nil, fmt.Errorf("compiler: buffer-info section length %d not a multiple of 12", len(section))
		}
		out := make([]decodedBufferInfo, 0, len(section)/12)
		for i := 0; i+12 <= len(section); i += 12 {
			out = append(out, decodedBufferInfo{
				ID:     binary.LittleEndian.Uint32(section[i : i+4]),
				Offset: binary.LittleEndian.Uint32(section[i+4 : i+8]),
				Size:   binary.LittleEndian.Uint32(section[i+8 : i+12]),
			})
		}
		return out, nil
	}

	if out.ConstantDmaData, err = readSection(); err != nil {
		return nil, err
	}
	if out.ConstantControlUnitData, err = readSection(); err != nil {
		return nil, err
	}
	if out.InputBufferInfos, err = readBufferInfos(); err != nil {
		return nil, err
	}
	if out.OutputBufferInfos, err = readBufferInfos(); err != nil {
		return nil, err
	}
	if out.ConstantControlUnitBufferInfos, err = readBufferInfos(); err != nil {
		return nil, err
	}
	if out.ConstantDmaBufferInfos, err = readBufferInfos(); err != nil {
		return nil, err
	}
	if out.IntermediateBufferInfos, err = readBufferInfos(); err != nil {
		return nil, err
	}
	return out, nil
}
