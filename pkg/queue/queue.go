// Package queue implements the RequestQueue (spec §4.6) and TickExecutor
// (spec §4.7): the bridge between HTTP worker goroutines and the single
// render/main thread that alone may mutate scene state.
//
// Built directly from spec §4.6-§4.8/§5; the pack's retrieved worker-pool
// code is test-only for unrelated packages, so there was nothing to
// adapt in place.
package queue

import (
	"fmt"

	"github.com/google/uuid"
)

// Channel is one of the four tagged queue channels (spec §3 QueueEntry).
type Channel string

const (
	ChannelElements Channel = "elements"
	ChannelBatches  Channel = "batches"
	ChannelAssets   Channel = "assets"
	ChannelOther    Channel = "other"
)

var allChannels = []Channel{ChannelElements, ChannelBatches, ChannelAssets, ChannelOther}

// Op is the scene-graph-touching work a queue entry carries. It runs on
// the tick thread only.
type Op func() (map[string]any, error)

// Result is delivered on an entry's one-shot channel when the tick
// executor finishes running it.
type Result struct {
	Value map[string]any
	Err   error
}

type entry struct {
	id        string
	operation string
	op        Op
	out       chan Result
}

// ErrQueueFull is returned by Enqueue when the target channel is at
// capacity; callers surface it as ErrorEnvelope{QUEUE_FULL} (spec §4.6).
var ErrQueueFull = fmt.Errorf("queue: channel is full")

// Queue is the bounded multi-channel request queue.
type Queue struct {
	chans map[Channel]chan *entry
}

// New builds a Queue with the given per-channel capacity.
func New(capacityPerChannel int) *Queue {
	q := &Queue{chans: make(map[Channel]chan *entry, len(allChannels))}
	for _, c := range allChannels {
		q.chans[c] = make(chan *entry, capacityPerChannel)
	}
	return q
}

// Enqueue submits op (tagged with the logical operation name it
// performs, used to build its <OPERATION>_FAILED error code on failure)
// to the given channel, returning a correlation id and a one-shot result
// channel. It never blocks: a full channel fails fast with ErrQueueFull.
func (q *Queue) Enqueue(ch Channel, operation string, op Op) (string, <-chan Result, error) {
	c, ok := q.chans[ch]
	if !ok {
		return "", nil, fmt.Errorf("queue: unknown channel %q", ch)
	}
	id := uuid.NewString()
	out := make(chan Result, 1)
	e := &entry{id: id, operation: operation, op: op, out: out}
	select {
	case c <- e:
		return id, out, nil
	default:
		return "", nil, ErrQueueFull
	}
}

// Len reports the number of queued-but-undrained entries in a channel.
func (q *Queue) Len(ch Channel) int {
	return len(q.chans[ch])
}

// Drain removes up to n entries from the queue, round-robining across
// channels in ChannelElements/Batches/Assets/Other order, preserving
// FIFO order within each channel. It does not run them.
func (q *Queue) Drain(n int) []*entry {
	out := make([]*entry, 0, n)
	for len(out) < n {
		drainedThisPass := false
		for _, ch := range allChannels {
			if len(out) >= n {
				break
			}
			select {
			case e := <-q.chans[ch]:
				out = append(out, e)
				drainedThisPass = true
			default:
			}
		}
		if !drainedThisPass {
			break
		}
	}
	return out
}
