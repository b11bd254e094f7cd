package perf

import (
	"testing"

	"github.com/npucc/npucc/caps"
	"github.com/npucc/npucc/ir"
	"github.com/npucc/npucc/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMceCyclesDirectPositive(t *testing.T) {
	c := caps.Default()
	cycles := MceCyclesDirect(16, 16, 32, 32, 9, c, 1)
	assert.Greater(t, cycles, 0)
}

func TestWeightsTrafficReloadsOnlyOnHAndCStreaming(t *testing.T) {
	s := WeightsTraffic(1024, true, true, false, 1.0)
	assert.Equal(t, 1, s.Reloads)
	assert.Equal(t, 2048, s.NonParallelBytes)

	s2 := WeightsTraffic(1024, true, true, true, 1.0)
	assert.Equal(t, 0, s2.Reloads)
}

func TestActivationTrafficSplitsByLocation(t *testing.T) {
	shape := tensor.Shape{1, 8, 8, 16}
	sram, err := ActivationTraffic(2, shape, tensor.U8, ir.LocationSram, 1.0)
	require.NoError(t, err)
	assert.Greater(t, sram.ParallelBytes, 0)
	assert.Equal(t, 0, sram.NonParallelBytes)

	dram, err := ActivationTraffic(2, shape, tensor.U8, ir.LocationDram, 1.0)
	require.NoError(t, err)
	assert.Greater(t, dram.NonParallelBytes, 0)
}

func TestPlePatches(t *testing.T) {
	n, err := PlePatches(tensor.Shape{1, 16, 16, 16})
	require.NoError(t, err)
	assert.Greater(t, n, 0)
}

func TestSummarizeTotalsMatchSum(t *testing.T) {
	reports := []PassReport{{Metric: 10}, {Metric: 20}, {Metric: 30}}
	summary := Summarize(reports)
	assert.Equal(t, 60.0, summary.TotalMetric)
	assert.Equal(t, 20.0, summary.MeanMetric)
}
