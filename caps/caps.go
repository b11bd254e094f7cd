// Package caps parses and represents the hardware capability record (§6):
// a binary blob versioned by a 4-byte tag and a major/minor/patch triple,
// describing SRAM size, lane/engine counts, MCE/PLE geometry, supported
// block configs and the NCHW support flag.
package caps

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/npucc/npucc/errs"
	"github.com/npucc/npucc/tensor"
)

// Tag is the 4-byte magic every capability blob must begin with.
var Tag = [4]byte{'C', 'A', 'P', 'N'}

// Version is a semantic version triple.
type Version struct {
	Major, Minor, Patch uint32
}

// BlockConfig is a supported MCE/PLE block configuration, e.g. 8x8.
type BlockConfig struct {
	Width, Height int
}

func (b BlockConfig) String() string { return fmt.Sprintf("%dx%d", b.Width, b.Height) }

// WinogradBlockSizes gives the MAC-per-Winograd-block constant for each of
// the four supported kernel shapes.
type WinogradBlockSizes struct {
	K1x1, K1x3, K3x1, K3x3 int
}

// Capabilities describes the fixed-function NPU the compiler targets.
type Capabilities struct {
	Version Version

	SRAMSizeBytes int
	NumSRAMs      int // number of SRAM lanes
	NumEngines    int

	IGsPerEngine int
	OGsPerEngine int
	MACsPerOG    int

	MaxPLESizeBytes int

	BrickShape tensor.Shape // (1, BrickH, BrickW, BrickC)
	PatchShape [2]int       // (PatchH, PatchW)

	Winograd WinogradBlockSizes

	SupportedBlockConfigs []BlockConfig
	SupportsNCHW          bool
}

// SRAMLaneBytes returns the usable bytes per logical SRAM lane, i.e. the
// value the allocator treats as its pool size (§4.E: total_sram /
// num_srams).
func (c Capabilities) SRAMLaneBytes() int {
	if c.NumSRAMs == 0 {
		return 0
	}
	return c.SRAMSizeBytes / c.NumSRAMs
}

// MACsPerCycle returns the aggregate MAC throughput across all active
// engines and output groups, used by the MCE cycle estimator.
func (c Capabilities) MACsPerCycle() int {
	return c.NumEngines * c.OGsPerEngine * c.MACsPerOG
}

// SupportsBlockConfig reports whether cfg is in the supported list.
func (c Capabilities) SupportsBlockConfig(cfg BlockConfig) bool {
	for _, bc := range c.SupportedBlockConfigs {
		if bc == cfg {
			return true
		}
	}
	return false
}

// Parse decodes a capability blob: 4-byte tag, then
// {u32 major, u32 minor, u32 patch}, then the fixed-layout fields below,
// all little-endian regardless of host endianness (§6).
func Parse(data []byte) (Capabilities, error) {
	var c Capabilities
	r := bytes.NewReader(data)

	var tag [4]byte
	if _, err := r.Read(tag[:]); err != nil {
		return c, fmt.Errorf("caps: reading tag: %w", err)
	}
	if tag != Tag {
		return c, errs.NotSupported("capability blob has unrecognised tag %q", tag)
	}

	var hdr struct {
		Major, Minor, Patch uint32
		SRAMSizeBytes       uint32
		NumSRAMs            uint32
		NumEngines          uint32
		IGsPerEngine        uint32
		OGsPerEngine        uint32
		MACsPerOG           uint32
		MaxPLESizeBytes     uint32
		BrickH, BrickW, BrickC uint32
		PatchH, PatchW      uint32
		WinoK1x1, WinoK1x3, WinoK3x1, WinoK3x3 uint32
		SupportsNCHW        uint32
		NumBlockConfigs     uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return c, fmt.Errorf("caps: reading header: %w", err)
	}

	c.Version = Version{hdr.Major, hdr.Minor, hdr.Patch}
	c.SRAMSizeBytes = int(hdr.SRAMSizeBytes)
	c.NumSRAMs = int(hdr.NumSRAMs)
	c.NumEngines = int(hdr.NumEngines)
	c.IGsPerEngine = int(hdr.IGsPerEngine)
	c.OGsPerEngine = int(hdr.OGsPerEngine)
	c.MACsPerOG = int(hdr.MACsPerOG)
	c.MaxPLESizeBytes = int(hdr.MaxPLESizeBytes)
	c.BrickShape = tensor.Shape{1, int(hdr.BrickH), int(hdr.BrickW), int(hdr.BrickC)}
	c.PatchShape = [2]int{int(hdr.PatchH), int(hdr.PatchW)}
	c.Winograd = WinogradBlockSizes{
		K1x1: int(hdr.WinoK1x1),
		K1x3: int(hdr.WinoK1x3),
		K3x1: int(hdr.WinoK3x1),
		K3x3: int(hdr.WinoK3x3),
	}
	c.SupportsNCHW = hdr.SupportsNCHW != 0

	c.SupportedBlockConfigs = make([]BlockConfig, hdr.NumBlockConfigs)
	for i := range c.SupportedBlockConfigs {
		var w, h uint32
		if err := binary.Read(r, binary.LittleEndian, &w); err != nil {
			return c, fmt.Errorf("caps: reading block config %d width: %w", i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
			return c, fmt.Errorf("caps: reading block config %d height: %w", i, err)
		}
		c.SupportedBlockConfigs[i] = BlockConfig{Width: int(w), Height: int(h)}
	}
	return c, nil
}

// Encode serialises Capabilities back into the blob format Parse reads.
// Primarily used by tests to build synthetic capability records.
func Encode(c Capabilities) []byte {
	buf := &bytes.Buffer{}
	buf.Write(Tag[:])
	binary.Write(buf, binary.LittleEndian, c.Version.Major)
	binary.Write(buf, binary.LittleEndian, c.Version.Minor)
	binary.Write(buf, binary.LittleEndian, c.Version.Patch)
	binary.Write(buf, binary.LittleEndian, uint32(c.SRAMSizeBytes))
	binary.Write(buf, binary.LittleEndian, uint32(c.NumSRAMs))
	binary.Write(buf, binary.LittleEndian, uint32(c.NumEngines))
	binary.Write(buf, binary.LittleEndian, uint32(c.IGsPerEngine))
	binary.Write(buf, binary.LittleEndian, uint32(c.OGsPerEngine))
	binary.Write(buf, binary.LittleEndian, uint32(c.MACsPerOG))
	binary.Write(buf, binary.LittleEndian, uint32(c.MaxPLESizeBytes))
	binary.Write(buf, binary.LittleEndian, uint32(c.BrickShape.H()))
	binary.Write(buf, binary.LittleEndian, uint32(c.BrickShape.W()))
	binary.Write(buf, binary.LittleEndian, uint32(c.BrickShape.C()))
	binary.Write(buf, binary.LittleEndian, uint32(c.PatchShape[0]))
	binary.Write(buf, binary.LittleEndian, uint32(c.PatchShape[1]))
	binary.Write(buf, binary.LittleEndian, uint32(c.Winograd.K1x1))
	binary.Write(buf, binary.LittleEndian, uint32(c.Winograd.K1x3))
	binary.Write(buf, binary.LittleEndian, uint32(c.Winograd.K3x1))
	binary.Write(buf, binary.LittleEndian, uint32(c.Winograd.K3x3))
	nchw := uint32(0)
	if c.SupportsNCHW {
		nchw = 1
	}
	binary.Write(buf, binary.LittleEndian, nchw)
	binary.Write(buf, binary.LittleEndian, uint32(len(c.SupportedBlockConfigs)))
	for _, bc := range c.SupportedBlockConfigs {
		binary.Write(buf, binary.LittleEndian, uint32(bc.Width))
		binary.Write(buf, binary.LittleEndian, uint32(bc.Height))
	}
	return buf.Bytes()
}

// Default returns a representative capability record used by tests. The
// CLI does not fall back to it: its --caps flag is required.
func Default() Capabilities {
	return Capabilities{
		Version:         Version{1, 0, 0},
		SRAMSizeBytes:   1024 * 1024,
		NumSRAMs:        16,
		NumEngines:      8,
		IGsPerEngine:    8,
		OGsPerEngine:    1,
		MACsPerOG:       8,
		MaxPLESizeBytes: 4096,
		BrickShape:      tensor.Shape{1, tensor.BrickH, tensor.BrickW, tensor.BrickC},
		PatchShape:      [2]int{tensor.PatchH, tensor.PatchW},
		Winograd:        WinogradBlockSizes{K1x1: 1, K1x3: 4, K3x1: 4, K3x3: 16},
		SupportedBlockConfigs: []BlockConfig{
			{8, 8}, {16, 16}, {8, 32}, {32, 8},
		},
		SupportsNCHW: false,
	}
}
