package sramalloc

import "testing"

func TestAllocateFromStart(t *testing.T) {
	a := New(1024)
	off, ok := a.Allocate(1, 100, Start, "input")
	if !ok {
		t.Fatal("expected allocation to succeed")
	}
	if off != 0 {
		t.Errorf("got offset %d, want 0", off)
	}
}

func TestAllocateFromEnd(t *testing.T) {
	a := New(1024)
	off, ok := a.Allocate(1, 32, End, "output")
	if !ok {
		t.Fatal("expected allocation to succeed")
	}
	if off+32 > 1024 {
		t.Errorf("offset %d + size 32 exceeds pool", off)
	}
}

func TestAllocateFailsWhenFull(t *testing.T) {
	a := New(64)
	if _, ok := a.Allocate(1, 64, Start, "a"); !ok {
		t.Fatal("expected first allocation to succeed")
	}
	if _, ok := a.Allocate(2, 16, Start, "b"); ok {
		t.Fatal("expected second allocation to fail: pool is full")
	}
}

func TestFreeReleasesSpace(t *testing.T) {
	a := New(64)
	a.Allocate(1, 64, Start, "a")
	a.Free(1, 0)
	if _, ok := a.Allocate(2, 64, Start, "b"); !ok {
		t.Fatal("expected allocation to succeed after free")
	}
}

func TestReferenceCountedFree(t *testing.T) {
	a := New(1024)
	off, _ := a.Allocate(1, 32, Start, "a")
	if !a.IncrementReferenceCount(1, off, 2, "alias") {
		t.Fatal("expected increment to succeed")
	}
	a.Free(1, off)
	// Still referenced by user 2: the region must not yet be free.
	if _, ok := a.Allocate(3, 1024, Start, "full"); ok {
		t.Fatal("region should still be reserved while user 2 holds it")
	}
	a.Free(2, off)
	if _, ok := a.Allocate(3, 1024, Start, "full"); !ok {
		t.Fatal("region should be free once all references are released")
	}
}
