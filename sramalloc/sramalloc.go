// Package sramalloc implements the first-fit SRAM address allocator
// (§4.E): a single logical pool of size total_sram/num_srams bytes,
// first-fit from a chosen end, with reference-counted shared regions
// (used when a Reinterpret node aliases its input's SRAM region).
package sramalloc

import (
	"sort"

	"github.com/npucc/npucc/tensor"
)

// UserId identifies the requester of an SRAM region — typically the IR
// node id asking for the region.
type UserId uint32

// Preference selects which end of the pool first-fit search starts from.
type Preference int

const (
	Start Preference = iota
	End
)

type region struct {
	offset, size int
	refCount     int
}

// Allocator holds no process-wide state: each compilation creates its
// own, per the concurrency model (§5).
type Allocator struct {
	poolSize int
	// byUser maps UserId -> (offset, tag) for every live allocation;
	// multiple users can share one region via IncrementReferenceCount.
	byUser map[UserId]allocation
	// regions, keyed by offset, tracks the actual reserved byte ranges
	// and their reference counts, since several users may point at the
	// same offset.
	regions map[int]*region
}

type allocation struct {
	offset int
	tag    string
}

// New creates an Allocator over a pool of poolSize bytes (the caller is
// expected to pass caps.Capabilities.SRAMLaneBytes()).
func New(poolSize int) *Allocator {
	return &Allocator{
		poolSize: poolSize,
		byUser:   make(map[UserId]allocation),
		regions:  make(map[int]*region),
	}
}

// alignment is one brick-group worth of channel bytes, the allocator's
// fixed alignment granularity (§4.E).
const alignment = tensor.BrickC

func alignUp(v int) int {
	return ((v + alignment - 1) / alignment) * alignment
}

// Allocate performs first-fit from the chosen end, aligned to one
// brick-group. Returns (offset, true) on success, or (0, false) if no
// contiguous region of the requested size exists from that end.
func (a *Allocator) Allocate(user UserId, size int, pref Preference, tag string) (int, bool) {
	size = alignUp(size)
	if size == 0 {
		size = alignment
	}

	sorted := a.sortedRegions()

	var offset int
	found := false
	if pref == Start {
		offset, found = a.firstFitFromStart(sorted, size)
	} else {
		offset, found = a.firstFitFromEnd(sorted, size)
	}
	if !found {
		return 0, false
	}

	a.regions[offset] = &region{offset: offset, size: size, refCount: 1}
	a.byUser[user] = allocation{offset: offset, tag: tag}
	return offset, true
}

func (a *Allocator) sortedRegions() []*region {
	out := make([]*region, 0, len(a.regions))
	for _, r := range a.regions {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].offset < out[j].offset })
	return out
}

func (a *Allocator) firstFitFromStart(sorted []*region, size int) (int, bool) {
	cursor := 0
	for _, r := range sorted {
		if cursor+size <= r.offset {
			return cursor, true
		}
		if r.offset+r.size > cursor {
			cursor = alignUp(r.offset + r.size)
		}
	}
	if cursor+size <= a.poolSize {
		return cursor, true
	}
	return 0, false
}

func (a *Allocator) firstFitFromEnd(sorted []*region, size int) (int, bool) {
	cursor := a.poolSize
	for i := len(sorted) - 1; i >= 0; i-- {
		r := sorted[i]
		candidate := alignDown(cursor - size)
		if candidate >= r.offset+r.size {
			return candidate, true
		}
		cursor = r.offset
	}
	candidate := alignDown(cursor - size)
	if candidate >= 0 {
		return candidate, true
	}
	return 0, false
}

func alignDown(v int) int {
	return (v / alignment) * alignment
}

// IncrementReferenceCount records a second (or further) user sharing the
// region currently held by existingUser at offset — used when a
// Reinterpret node aliases its input's SRAM region.
func (a *Allocator) IncrementReferenceCount(existingUser UserId, offset int, newUser UserId, tag string) bool {
	r, ok := a.regions[offset]
	if !ok {
		return false
	}
	if _, ok := a.byUser[existingUser]; !ok {
		return false
	}
	r.refCount++
	a.byUser[newUser] = allocation{offset: offset, tag: tag}
	return true
}

// Free releases the region held by user at offset. If the region is
// shared (reference count > 1), the release only takes effect — freeing
// the underlying bytes — on the last free.
func (a *Allocator) Free(user UserId, offset int) {
	if _, ok := a.byUser[user]; !ok {
		return
	}
	delete(a.byUser, user)
	r, ok := a.regions[offset]
	if !ok {
		return
	}
	r.refCount--
	if r.refCount <= 0 {
		delete(a.regions, offset)
	}
}

// Offset returns the offset currently held by user, if any.
func (a *Allocator) Offset(user UserId) (int, bool) {
	alloc, ok := a.byUser[user]
	return alloc.offset, ok
}

// PoolSize returns the allocator's total capacity in bytes.
func (a *Allocator) PoolSize() int { return a.poolSize }
