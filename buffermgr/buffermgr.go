// Package buffermgr implements the global buffer registry and DRAM
// offset assignment (§4.I): an ordered map of BufferInfo records, with
// first-fit layout for Intermediate buffers honouring lifetime
// intervals, and concatenation of constant payloads.
package buffermgr

import (
	"fmt"
	"sort"

	"github.com/npucc/npucc/errs"
	"github.com/sirupsen/logrus"
)

// BufferType enumerates the kinds of DRAM/SRAM buffers the manager
// tracks.
type BufferType int

const (
	Input BufferType = iota
	Output
	Intermediate
	ConstantDma
	ConstantControlUnit
	CommandStream
	SRAM
)

func (t BufferType) String() string {
	switch t {
	case Input:
		return "Input"
	case Output:
		return "Output"
	case Intermediate:
		return "Intermediate"
	case ConstantDma:
		return "ConstantDma"
	case ConstantControlUnit:
		return "ConstantControlUnit"
	case CommandStream:
		return "CommandStream"
	case SRAM:
		return "SRAM"
	default:
		return "Unknown"
	}
}

// offsetUnassigned is the sentinel Offset carries before Allocate runs.
const offsetUnassigned = -1

// BufferInfo is one entry of the buffer registry (§3 Data Model).
type BufferInfo struct {
	ID       uint32
	Type     BufferType
	Offset   int // invalid (offsetUnassigned) until Allocate is called
	Size     int
	Location string // free-form location tag (e.g. "dram", SRAM offset notes)

	ConstantPayload []byte // non-nil only for ConstantDma/ConstantControlUnit

	SourceOpID int // valid only for Input/Output
	OutputIdx  int

	LifetimeStart, LifetimeEnd int64 // [start, end) in command indices

	DebugName string
	Alignment int
}

// OffsetAssigned reports whether Allocate has run for this buffer.
func (b BufferInfo) OffsetAssigned() bool { return b.Offset != offsetUnassigned }

// Manager is the ordered buffer registry (§4.I).
type Manager struct {
	order []uint32
	byID  map[uint32]*BufferInfo
	nextID uint32

	allocated bool

	constantDmaData         []byte
	constantControlUnitData []byte
}

// New creates an empty Manager. Id 0 is reserved for the command stream,
// per AddCommandStream below.
func New() *Manager {
	return &Manager{byID: make(map[uint32]*BufferInfo), nextID: 1}
}

func (m *Manager) register(b *BufferInfo) uint32 {
	id := b.ID
	m.byID[id] = b
	m.order = append(m.order, id)
	return id
}

// AddDram registers a plain DRAM buffer (Intermediate, typically) of the
// given size and returns its id.
func (m *Manager) AddDram(typ BufferType, size int) uint32 {
	id := m.nextID
	m.nextID++
	b := &BufferInfo{ID: id, Type: typ, Size: size, Offset: offsetUnassigned, Alignment: defaultAlignment}
	return m.register(b)
}

// AddDramConstant registers a Constant-backed DRAM buffer (ConstantDma
// or ConstantControlUnit) carrying bytes, and returns its id.
func (m *Manager) AddDramConstant(typ BufferType, bytes []byte) uint32 {
	id := m.nextID
	m.nextID++
	b := &BufferInfo{ID: id, Type: typ, Size: len(bytes), ConstantPayload: bytes, Offset: offsetUnassigned, Alignment: defaultAlignment}
	return m.register(b)
}

// AddDramInput registers an Input DRAM buffer of the given size, tagged
// with the source operator id, and returns its id.
func (m *Manager) AddDramInput(size int, sourceOpID int) uint32 {
	id := m.nextID
	m.nextID++
	b := &BufferInfo{ID: id, Type: Input, Size: size, SourceOpID: sourceOpID, Offset: offsetUnassigned, Alignment: defaultAlignment}
	return m.register(b)
}

// AddSram registers an SRAM buffer with a known offset (SRAM addresses
// are assigned eagerly by sramalloc.Allocator, not deferred to Allocate).
func (m *Manager) AddSram(size, offset int) uint32 {
	id := m.nextID
	m.nextID++
	b := &BufferInfo{ID: id, Type: SRAM, Size: size, Offset: offset, Alignment: defaultAlignment}
	return m.register(b)
}

// AddCommandStream stores bytes at the well-known id 0.
func (m *Manager) AddCommandStream(bytes []byte) uint32 {
	b := &BufferInfo{ID: 0, Type: CommandStream, Size: len(bytes), ConstantPayload: bytes, Offset: offsetUnassigned, Alignment: defaultAlignment}
	m.byID[0] = b
	m.order = append([]uint32{0}, m.order...)
	return 0
}

// ChangeToOutput converts an Intermediate buffer to Output, recording the
// producing operator id and output index.
func (m *Manager) ChangeToOutput(id uint32, sourceOpID, outIdx int) error {
	b, ok := m.byID[id]
	if !ok {
		return errs.Internal("change_to_output: unknown buffer id %d", id)
	}
	b.Type = Output
	b.SourceOpID = sourceOpID
	b.OutputIdx = outIdx
	return nil
}

// ChangeBufferAlignment overrides a buffer's alignment requirement.
func (m *Manager) ChangeBufferAlignment(id uint32, alignment int) error {
	b, ok := m.byID[id]
	if !ok {
		return errs.Internal("change_buffer_alignment: unknown buffer id %d", id)
	}
	b.Alignment = alignment
	return nil
}

// MarkBufferUsedAtTime grows [LifetimeStart, LifetimeEnd) to cover
// [start, end).
func (m *Manager) MarkBufferUsedAtTime(id uint32, start, end int64) error {
	b, ok := m.byID[id]
	if !ok {
		return errs.Internal("mark_buffer_used_at_time: unknown buffer id %d", id)
	}
	if b.LifetimeStart == 0 && b.LifetimeEnd == 0 {
		b.LifetimeStart, b.LifetimeEnd = start, end
		return nil
	}
	if start < b.LifetimeStart {
		b.LifetimeStart = start
	}
	if end > b.LifetimeEnd {
		b.LifetimeEnd = end
	}
	return nil
}

// Get returns the buffer for id, or nil.
func (m *Manager) Get(id uint32) *BufferInfo { return m.byID[id] }

// All returns every registered buffer, in registration order.
func (m *Manager) All() []*BufferInfo {
	out := make([]*BufferInfo, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.byID[id])
	}
	return out
}

const defaultAlignment = 512

// Allocate lays out every Intermediate DRAM buffer via first-fit,
// concatenates Constant payloads into ConstantDmaData/
// ConstantControlUnitData, and assigns offsets. Must be called exactly
// once, after every buffer is registered.
func (m *Manager) Allocate(debug bool) error {
	if m.allocated {
		return errs.Internal("allocate: already called")
	}
	m.allocated = true

	var intermediates []*BufferInfo
	for _, id := range m.order {
		b := m.byID[id]
		if b.Type == Intermediate {
			intermediates = append(intermediates, b)
		}
	}
	if err := firstFitLayout(intermediates); err != nil {
		return err
	}

	dmaOffset := 0
	cuOffset := 0
	for _, id := range m.order {
		b := m.byID[id]
		switch b.Type {
		case ConstantDma:
			b.Offset = dmaOffset
			m.constantDmaData = append(m.constantDmaData, b.ConstantPayload...)
			dmaOffset += len(b.ConstantPayload)
		case ConstantControlUnit:
			b.Offset = cuOffset
			m.constantControlUnitData = append(m.constantControlUnitData, b.ConstantPayload...)
			cuOffset += len(b.ConstantPayload)
		case Input, Output:
			if b.Offset == offsetUnassigned {
				b.Offset = 0
			}
		}
	}

	if debug {
		logrus.WithFields(logrus.Fields{
			"intermediates":  len(intermediates),
			"constant_bytes": len(m.constantDmaData),
		}).Debug("buffermgr: allocation complete")
	}
	return nil
}

// ConstantDmaData returns the concatenated ConstantDma payloads, valid
// after Allocate.
func (m *Manager) ConstantDmaData() []byte { return m.constantDmaData }

// ConstantControlUnitData returns the concatenated ConstantControlUnit
// payloads, valid after Allocate.
func (m *Manager) ConstantControlUnitData() []byte { return m.constantControlUnitData }

// firstFitLayout is the algorithm of §4.I: for each buffer (processed in
// a stable, deterministic order), scan candidate addresses
// 0, alignment, 2*alignment, ... and accept the smallest address where
// no already-placed buffer both overlaps in lifetime and overlaps in
// [addr, addr+size).
func firstFitLayout(buffers []*BufferInfo) error {
	sort.SliceStable(buffers, func(i, j int) bool { return buffers[i].ID < buffers[j].ID })

	var placed []*BufferInfo
	for _, b := range buffers {
		alignment := b.Alignment
		if alignment <= 0 {
			alignment = defaultAlignment
		}
		offset := 0
		for {
			if fits(placed, b, offset) {
				break
			}
			offset += alignment
		}
		b.Offset = offset
		placed = append(placed, b)
	}
	return nil
}

func fits(placed []*BufferInfo, b *BufferInfo, offset int) bool {
	for _, p := range placed {
		if !lifetimesOverlap(p, b) {
			continue
		}
		if rangesOverlap(p.Offset, p.Size, offset, b.Size) {
			return false
		}
	}
	return true
}

func lifetimesOverlap(a, b *BufferInfo) bool {
	return a.LifetimeStart < b.LifetimeEnd && b.LifetimeStart < a.LifetimeEnd
}

func rangesOverlap(off1, size1, off2, size2 int) bool {
	return off1 < off2+size2 && off2 < off1+size1
}

// ValidateDisjointIntermediates is a testable-properties helper (§8
// invariant 3): for every pair of DRAM-intermediate buffers with
// overlapping lifetimes, their [offset, offset+size) intervals must be
// disjoint.
func ValidateDisjointIntermediates(buffers []*BufferInfo) error {
	for i := 0; i < len(buffers); i++ {
		for j := i + 1; j < len(buffers); j++ {
			a, b := buffers[i], buffers[j]
			if a.Type != Intermediate || b.Type != Intermediate {
				continue
			}
			if lifetimesOverlap(a, b) && rangesOverlap(a.Offset, a.Size, b.Offset, b.Size) {
				return fmt.Errorf("buffers %d and %d overlap in both lifetime and address range", a.ID, b.ID)
			}
		}
	}
	return nil
}
