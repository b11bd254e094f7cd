package opgraph

import (
	"testing"

	"github.com/npucc/npucc/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddOpWiresProducerAndConsumers(t *testing.T) {
	og := New()
	in := og.AddBuffer(&Buffer{Location: LocSram, Shape: tensor.Shape{1, 8, 8, 16}})
	out := og.AddBuffer(&Buffer{Location: LocSram, Shape: tensor.Shape{1, 8, 8, 16}})

	mce := og.AddOp(&Op{Kind: OpMce, Mce: MceParams{StrideX: 1, StrideY: 1}}, []BufferId{in}, out)

	producer, ok := og.Producer(out)
	require.True(t, ok)
	assert.Equal(t, mce, producer)

	consumers := og.Consumers(in)
	require.Len(t, consumers, 1)
	assert.Equal(t, mce, consumers[0].Op)
	assert.Equal(t, 0, consumers[0].Slot)
}

func TestOpsInInsertionOrder(t *testing.T) {
	og := New()
	a := og.AddBuffer(&Buffer{Location: LocDram})
	b := og.AddBuffer(&Buffer{Location: LocDram})
	c := og.AddBuffer(&Buffer{Location: LocDram})
	og.AddOp(&Op{Kind: OpDma}, []BufferId{a}, b)
	og.AddOp(&Op{Kind: OpPle}, []BufferId{b}, c)

	ops := og.Ops()
	require.Len(t, ops, 2)
	assert.Equal(t, OpDma, ops[0].Kind)
	assert.Equal(t, OpPle, ops[1].Kind)
}

func TestNewPlanEmptyMappings(t *testing.T) {
	p := NewPlan(New())
	assert.Empty(t, p.Inputs)
	assert.Empty(t, p.Outputs)
}
