package tensor

import (
	"errors"
	"testing"
)

func TestVolume(t *testing.T) {
	s := Shape{1, 16, 16, 16}
	vol, err := s.Volume()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vol != 4096 {
		t.Errorf("got %d, want 4096", vol)
	}
}

func TestVolumeOverflow(t *testing.T) {
	s := Shape{1 << 20, 1 << 20, 1 << 20, 1 << 20}
	_, err := s.Volume()
	if !errors.Is(err, ErrShapeOverflow) {
		t.Errorf("expected ErrShapeOverflow, got %v", err)
	}
}

func TestRoundUpToBrickGroup(t *testing.T) {
	s := Shape{1, 9, 3, 17}
	rounded := s.RoundUpToBrickGroup()
	want := Shape{1, 16, 8, 32}
	if rounded != want {
		t.Errorf("got %v, want %v", rounded, want)
	}
}

func TestNHWCBByteSize(t *testing.T) {
	// scenario 1 of spec.md §8: (1,8,32,16) NHWCB should round to 4096 bytes.
	s := Shape{1, 8, 32, 16}
	size, err := s.NHWCBByteSize(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if size != 4096 {
		t.Errorf("got %d, want 4096", size)
	}
}

func TestNumStripes(t *testing.T) {
	s := Shape{1, 32, 32, 16}
	counts, total, err := s.NumStripes(Shape{1, 16, 16, 16})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counts != [4]int{1, 2, 2, 1} {
		t.Errorf("got %v", counts)
	}
	if total != 4 {
		t.Errorf("got %d, want 4", total)
	}
}

func TestNumStripesRejectsZeroAxis(t *testing.T) {
	s := Shape{1, 32, 32, 16}
	_, _, err := s.NumStripes(Shape{1, 0, 16, 16})
	if !errors.Is(err, ErrShapeOverflow) {
		t.Errorf("expected ErrShapeOverflow, got %v", err)
	}
}
