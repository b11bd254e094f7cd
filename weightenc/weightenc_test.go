package weightenc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapSymbolRoundTrip(t *testing.T) {
	for _, w := range []int32{-255, -1, 0, 1, 255} {
		sym := MapSymbol(w)
		assert.Equal(t, w, UnmapSymbol(sym))
	}
}

func TestExtractRunsGroupsZeros(t *testing.T) {
	runs := ExtractRuns([]uint32{0, 0, 3, 0, 5, 0, 0, 0})
	require.Len(t, runs, 3)
	assert.Equal(t, 2, runs[0].zeroRunLength)
	assert.True(t, runs[0].hasSymbol)
	assert.Equal(t, uint32(3), runs[0].symbol)
	assert.Equal(t, 3, runs[2].zeroRunLength)
	assert.False(t, runs[2].hasSymbol)
}

func TestGRCEncodeDecodeRoundTrip(t *testing.T) {
	w := newBitWriter()
	values := []uint32{0, 1, 5, 17, 255}
	for _, v := range values {
		grcEncodeSymbol(w, v, 2)
	}
	r := newBitReader(w.bytes())
	for _, want := range values {
		got := grcDecodeSymbol(r, 2)
		assert.Equal(t, want, got)
	}
}

func TestSearchParamsPicksLowCostForAllZeros(t *testing.T) {
	symbols := make([]uint32, 64)
	params, cost := SearchParams(symbols, nil)
	assert.NotEqual(t, ZDivDisabled, params.ZDiv)
	assert.Less(t, cost, 64*32)
}

func TestSearchParamsReusesCheaperPrev(t *testing.T) {
	symbols := make([]uint32, 32)
	first, _ := SearchParams(symbols, nil)
	reused, _ := SearchParams(symbols, &first)
	assert.False(t, reused.Reload)
}

func TestEncodeOFMsRoundTripsSizes(t *testing.T) {
	ofms := []OFM{
		{Weights: []int32{0, 0, 1, -2, 3, 0, 0, 0}, Bias: 10, Scale: 1000, Shift: 8},
		{Weights: []int32{5, 5, 5, 5}, Bias: -3, Scale: 2000, Shift: 4},
	}
	stream, err := EncodeOFMs(ofms, 1<<20)
	require.NoError(t, err)
	require.Len(t, stream.OFMOffsets, 2)
	require.Len(t, stream.OFMSizes, 2)
	assert.Greater(t, len(stream.Bytes), 0)
}

func TestEncodeOFMsRoundTripsWeightValues(t *testing.T) {
	ofms := []OFM{
		{Weights: []int32{0, 0, 1, -2, 3, 0, 0, 0}, Bias: 10, Scale: 1000, Shift: 8, ZeroPointCorrection: -5},
		{Weights: []int32{5, 5, 5, 5}, Bias: -3, Scale: 2000, Shift: 4, ZeroPointCorrection: 7},
		{Weights: []int32{-255, 128, -64, 32, -16, 8, -4, 2, -1, 0, 0, 0, 0, 0, 0, 0}, Bias: 0, Scale: 1, Shift: 0},
	}
	stream, err := EncodeOFMs(ofms, 1<<20)
	require.NoError(t, err)

	decoded, err := DecodeOFMs(stream, len(ofms))
	require.NoError(t, err)
	require.Len(t, decoded, len(ofms))

	for i, want := range ofms {
		got := decoded[i]
		assert.Equal(t, want.Weights, got.Weights, "OFM %d weights", i)
		assert.Equal(t, want.Bias, got.Bias, "OFM %d bias", i)
		assert.Equal(t, want.Scale, got.Scale, "OFM %d scale", i)
		assert.Equal(t, want.Shift, got.Shift, "OFM %d shift", i)
		assert.Equal(t, want.ZeroPointCorrection, got.ZeroPointCorrection, "OFM %d zero point correction", i)
	}
}

func TestEncodeOFMsFailsWhenTooLarge(t *testing.T) {
	ofms := []OFM{{Weights: make([]int32, 4096), Bias: 0, Scale: 1, Shift: 0}}
	_, err := EncodeOFMs(ofms, 1)
	require.Error(t, err)
}

func TestCacheDeduplicatesRequests(t *testing.T) {
	c := NewCache(2)
	defer c.Close()

	weights := []byte{1, 2, 3, 4}
	req := Request{
		WeightsHash:     HashBytes(weights),
		BiasHash:        HashBytes([]byte{0}),
		OFMs:            []OFM{{Weights: []int32{1, 2, 3}, Bias: 1, Scale: 1, Shift: 0}},
		SRAMBudgetBytes: 1 << 20,
	}

	c.EncodeStage1Async(req)
	stream1, err1 := c.Encode(req)
	stream2, err2 := c.Encode(req)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, stream1.Bytes, stream2.Bytes)
}
