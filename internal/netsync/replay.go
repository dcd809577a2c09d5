package netsync

import (
	"sync"
	"time"

	"isles-of-conquest/internal/protocol"
)

// DefaultReplayDepth bounds the client-side frame backlog.
const DefaultReplayDepth = 32

// Replayer smooths server frames on the client. Frames are pushed as they
// arrive and released one per tick interval, whatever the arrival jitter.
// When the backlog exceeds its depth the oldest frames are dropped.
type Replayer struct {
	mu       sync.Mutex
	queue    []*protocol.Frame
	depth    int
	interval time.Duration
	acc      time.Duration
	dropped  int
}

// NewReplayer creates a replayer releasing tickRate frames per second.
func NewReplayer(depth, tickRate int) *Replayer {
	if depth <= 0 {
		depth = DefaultReplayDepth
	}
	if tickRate <= 0 {
		tickRate = 20
	}
	return &Replayer{
		depth:    depth,
		interval: time.Second / time.Duration(tickRate),
	}
}

// Push queues an arriving frame. Safe to call from the network goroutine.
func (r *Replayer) Push(f *protocol.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.queue = append(r.queue, f)
	if over := len(r.queue) - r.depth; over > 0 {
		clear(r.queue[:over])
		r.queue = r.queue[over:]
		r.dropped += over
	}
}

// Advance lets dt of client time pass and returns the frames due, in
// arrival order. Time does not bank while the queue is empty.
func (r *Replayer) Advance(dt time.Duration) []*protocol.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.queue) == 0 {
		r.acc = 0
		return nil
	}

	r.acc += dt
	var out []*protocol.Frame
	for r.acc >= r.interval && len(r.queue) > 0 {
		r.acc -= r.interval
		out = append(out, r.queue[0])
		r.queue[0] = nil
		r.queue = r.queue[1:]
	}
	if len(r.queue) == 0 {
		r.acc = 0
	}
	return out
}

// Len returns the number of queued frames.
func (r *Replayer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

// Dropped returns how many frames were discarded for exceeding the depth.
func (r *Replayer) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Interval returns the release period.
func (r *Replayer) Interval() time.Duration { return r.interval }
