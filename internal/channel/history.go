package channel

import (
	"time"

	"github.com/bloomworks/livebus/internal/message"
)

// historyBuffer is a bounded FIFO cache of recently raised messages. It is
// not safe for concurrent use on its own; the owning Channel serializes
// access.
type historyBuffer struct {
	capacity int
	entries  []*message.Message
}

func newHistoryBuffer(capacity int) *historyBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &historyBuffer{
		capacity: capacity,
		entries:  make([]*message.Message, 0, capacity),
	}
}

// push appends the message, evicting the oldest entry when full.
func (h *historyBuffer) push(msg *message.Message) {
	if len(h.entries) >= h.capacity {
		overflow := len(h.entries) - h.capacity + 1
		h.entries = append(h.entries[:0], h.entries[overflow:]...)
	}
	h.entries = append(h.entries, msg)
}

// snapshot returns a copy of the buffer in arrival order. A non-zero since
// limits the copy to messages with a timestamp at or after since.
func (h *historyBuffer) snapshot(since time.Time) []*message.Message {
	out := make([]*message.Message, 0, len(h.entries))
	for _, msg := range h.entries {
		if !since.IsZero() && msg.Timestamp.Before(since) {
			continue
		}
		out = append(out, msg)
	}
	return out
}

// pruneExpired drops entries whose expiration has passed, preserving order.
// It returns the number of entries removed.
func (h *historyBuffer) pruneExpired(now time.Time) int {
	kept := h.entries[:0]
	for _, msg := range h.entries {
		if !msg.IsExpired(now) {
			kept = append(kept, msg)
		}
	}
	removed := len(h.entries) - len(kept)
	h.entries = kept
	return removed
}

// size returns the current entry count.
func (h *historyBuffer) size() int {
	return len(h.entries)
}
