package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueAndDrainPreservesFIFO(t *testing.T) {
	q := New(10)
	_, _, err := q.Enqueue(ChannelElements, "add_element", func() (map[string]any, error) { return map[string]any{"n": 1}, nil })
	require.NoError(t, err)
	_, _, err = q.Enqueue(ChannelElements, "add_element", func() (map[string]any, error) { return map[string]any{"n": 2}, nil })
	require.NoError(t, err)

	entries := q.Drain(10)
	require.Len(t, entries, 2)
	v1, _ := entries[0].op()
	v2, _ := entries[1].op()
	assert.Equal(t, 1, v1["n"])
	assert.Equal(t, 2, v2["n"])
}

func TestEnqueueFullChannelReturnsQueueFull(t *testing.T) {
	q := New(1)
	_, _, err := q.Enqueue(ChannelAssets, "load_asset", func() (map[string]any, error) { return nil, nil })
	require.NoError(t, err)

	_, _, err = q.Enqueue(ChannelAssets, "load_asset", func() (map[string]any, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestDrainRoundRobinsAcrossChannels(t *testing.T) {
	q := New(10)
	_, _, _ = q.Enqueue(ChannelOther, "other_op", func() (map[string]any, error) { return map[string]any{"ch": "other"}, nil })
	_, _, _ = q.Enqueue(ChannelElements, "add_element", func() (map[string]any, error) { return map[string]any{"ch": "elements"}, nil })
	_, _, _ = q.Enqueue(ChannelBatches, "add_batch", func() (map[string]any, error) { return map[string]any{"ch": "batches"}, nil })

	entries := q.Drain(3)
	require.Len(t, entries, 3)
	v0, _ := entries[0].op()
	assert.Equal(t, "elements", v0["ch"], "elements channel drains before batches/other per channel priority order")
}

func TestDrainRespectsBudget(t *testing.T) {
	q := New(10)
	for i := 0; i < 5; i++ {
		_, _, _ = q.Enqueue(ChannelElements, "add_element", func() (map[string]any, error) { return nil, nil })
	}
	entries := q.Drain(2)
	assert.Len(t, entries, 2)
	assert.Equal(t, 3, q.Len(ChannelElements))
}

func TestEnqueueUnknownChannel(t *testing.T) {
	q := New(10)
	_, _, err := q.Enqueue(Channel("bogus"), "op", func() (map[string]any, error) { return nil, nil })
	assert.Error(t, err)
}
