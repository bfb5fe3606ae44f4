package dispatch

import (
	"context"

	"sync"

	"github.com/castellet/agentgate/pkg/api"
)

// replayBuffer is the bounded, append-only event store for one streamed
// call. The producing dispatcher appends; resuming readers take snapshots
// from a sequence offset and then follow live appends. There is no
// in-place mutation, so readers need no lock beyond the append
// synchronization.
type replayBuffer struct {
	mu       sync.Mutex
	events   []api.StreamEvent
	terminal bool
	released bool
	limit    int

	// wake is closed and replaced on every append so followers can block
	// without polling.
	wake chan struct{}
}

func newReplayBuffer(limit int) *replayBuffer {
	return &replayBuffer{
		limit: limit,
		wake:  make(chan struct{}),
	}
}

// append records one event. Appending past the limit releases the buffer:
// an over-long stream becomes unresumable rather than unbounded.
func (b *replayBuffer) append(ev api.StreamEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released {
		return
	}
	if b.limit > 0 && len(b.events) >= b.limit {
		b.events = nil
		b.released = true
		b.notify()
		return
	}

	b.events = append(b.events, ev)
	if ev.Kind.IsTerminal() {
		b.terminal = true
	}
	b.notify()
}

// release drops the buffered events and makes the buffer unresumable.
func (b *replayBuffer) release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = nil
	b.released = true
	b.notify()
}

// notify wakes all followers. Callers must hold b.mu.
func (b *replayBuffer) notify() {
	close(b.wake)
	b.wake = make(chan struct{})
}

// available reports whether the buffer can still serve a resume.
func (b *replayBuffer) available() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.released
}

// follow returns a channel of events with sequence numbers greater than
// after: first the buffered suffix, then live appends until the terminal
// event. The channel is closed at the terminal event, on ctx
// cancellation, or when the buffer is released mid-follow. A follow
// starting at the final sequence yields an empty, immediately closed
// channel.
func (b *replayBuffer) follow(ctx context.Context, after int) <-chan api.StreamEvent {
	ch := make(chan api.StreamEvent)

	go func() {
		defer close(ch)
		last := after

		for {
			b.mu.Lock()
			if b.released {
				b.mu.Unlock()
				return
			}
			var pending []api.StreamEvent
			for _, ev := range b.events {
				if ev.Sequence > last {
					pending = append(pending, ev)
				}
			}
			terminal := b.terminal
			wake := b.wake
			b.mu.Unlock()

			for _, ev := range pending {
				select {
				case ch <- ev:
					last = ev.Sequence
				case <-ctx.Done():
					return
				}
			}

			if terminal {
				return
			}

			select {
			case <-wake:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch
}
