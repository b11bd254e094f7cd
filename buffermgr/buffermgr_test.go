package buffermgr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddDramInputThenChangeToOutput(t *testing.T) {
	m := New()
	id := m.AddDramInput(1024, 7)
	require.NoError(t, m.MarkBufferUsedAtTime(id, 0, 3))

	require.NoError(t, m.ChangeToOutput(id, 9, 1))
	b := m.Get(id)
	require.NotNil(t, b)
	assert.Equal(t, Output, b.Type)
	assert.Equal(t, 9, b.SourceOpID)
	assert.Equal(t, 1, b.OutputIdx)
}

func TestAllocateConcatenatesConstantPayloadsInRegistrationOrder(t *testing.T) {
	m := New()
	m.AddDramConstant(ConstantDma, []byte{1, 2, 3})
	m.AddDramConstant(ConstantDma, []byte{4, 5})
	m.AddDramConstant(ConstantControlUnit, []byte{9})

	require.NoError(t, m.Allocate(false))
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, m.ConstantDmaData())
	assert.Equal(t, []byte{9}, m.ConstantControlUnitData())
}

func TestAllocateIsIdempotentGuarded(t *testing.T) {
	m := New()
	require.NoError(t, m.Allocate(false))
	assert.Error(t, m.Allocate(false))
}

func TestFirstFitPlacesNonOverlappingLifetimesAtSameOffset(t *testing.T) {
	m := New()
	a := m.AddDram(Intermediate, 512)
	require.NoError(t, m.MarkBufferUsedAtTime(a, 0, 2))
	b := m.AddDram(Intermediate, 512)
	require.NoError(t, m.MarkBufferUsedAtTime(b, 2, 4))

	require.NoError(t, m.Allocate(false))
	assert.Equal(t, m.Get(a).Offset, m.Get(b).Offset)
}

func TestFirstFitSeparatesOverlappingLifetimes(t *testing.T) {
	m := New()
	a := m.AddDram(Intermediate, 512)
	require.NoError(t, m.MarkBufferUsedAtTime(a, 0, 4))
	b := m.AddDram(Intermediate, 512)
	require.NoError(t, m.MarkBufferUsedAtTime(b, 1, 3))

	require.NoError(t, m.Allocate(false))
	assert.NoError(t, ValidateDisjointIntermediates(m.All()))
	assert.NotEqual(t, m.Get(a).Offset, m.Get(b).Offset)
}

func TestValidateDisjointIntermediatesCatchesOverlap(t *testing.T) {
	buffers := []*BufferInfo{
		{ID: 1, Type: Intermediate, Offset: 0, Size: 512, LifetimeStart: 0, LifetimeEnd: 4},
		{ID: 2, Type: Intermediate, Offset: 256, Size: 512, LifetimeStart: 1, LifetimeEnd: 3},
	}
	assert.Error(t, ValidateDisjointIntermediates(buffers))
}

func TestCommandStreamReservesIDZero(t *testing.T) {
	m := New()
	id := m.AddCommandStream([]byte{0xAB})
	assert.Equal(t, uint32(0), id)
	assert.Equal(t, uint32(0), m.All()[0].ID)
}

func TestChangeBufferAlignmentUnknownIDErrors(t *testing.T) {
	m := New()
	assert.Error(t, m.ChangeBufferAlignment(42, 64))
}
