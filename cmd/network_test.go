package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleNetwork = `{
  "operators": [
    {"id": 0, "kind": "input", "source_op_id": 0,
     "output": {"dims": [1, 16, 16, 16], "dtype": "u8", "format": "NHWC"}},
    {"id": 1, "kind": "conv", "inputs": [0], "source_op_id": 1,
     "output": {"dims": [1, 16, 16, 32], "dtype": "u8", "format": "NHWC"},
     "weights": [1, 2, 3, 4], "bias": [0, 0],
     "kernel_h": 3, "kernel_w": 3, "cin_per_group": 16,
     "stride_x": 1, "stride_y": 1},
    {"id": 2, "kind": "output", "inputs": [1], "source_op_id": 1,
     "output": {"dims": [1, 16, 16, 32], "dtype": "u8", "format": "NHWC"}}
  ]
}`

func TestParseNetworkAndBuildGraph(t *testing.T) {
	net, err := ParseNetwork([]byte(sampleNetwork))
	require.NoError(t, err)
	require.Len(t, net.Operators, 3)

	g, err := BuildGraph(net)
	require.NoError(t, err)

	order, err := g.TopologicalSort()
	require.NoError(t, err)
	assert.Len(t, order, 3)
}

func TestBuildGraphRejectsUnbuiltInput(t *testing.T) {
	net := networkJSON{Operators: []operatorJSON{
		{ID: 0, Kind: "conv", Inputs: []int{99}},
	}}
	_, err := BuildGraph(net)
	assert.Error(t, err)
}

func TestBuildGraphRejectsUnknownKind(t *testing.T) {
	net := networkJSON{Operators: []operatorJSON{
		{ID: 0, Kind: "mystery"},
	}}
	_, err := BuildGraph(net)
	assert.Error(t, err)
}
