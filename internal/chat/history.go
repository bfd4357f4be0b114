package chat

import (
	"sync"

	"github.com/samber/lo"
)

// DefaultPageSize is used when a history query omits or zeroes its limit.
const DefaultPageSize = 20

// History is the append-only message log shared by all rooms. Append
// order equals arrival order at the router, and per-room queries
// preserve it. Entries are never mutated or deleted; the log lives for
// the process lifetime only.
type History struct {
	mu       sync.RWMutex
	messages []Message
}

// NewHistory creates an empty message log.
func NewHistory() *History {
	return &History{}
}

// Append adds m to the tail of the log. The message is visible to
// queries as soon as Append returns.
func (h *History) Append(m Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.messages = append(h.messages, m)
}

// Len returns the total number of stored messages across all rooms.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.messages)
}

// Query returns up to limit messages tagged with room, skipping the most
// recent offset messages from the tail, ordered oldest to newest. A
// negative offset clamps to 0 and a non-positive limit falls back to
// DefaultPageSize. Ranges past the available history shrink to whatever
// remains; the result is never nil and never an error.
func (h *History) Query(room string, offset, limit int) []Message {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	filtered := lo.Filter(h.messages, func(m Message, _ int) bool {
		return m.Room == room
	})

	end := len(filtered) - offset
	if end < 0 {
		end = 0
	}
	start := end - limit
	if start < 0 {
		start = 0
	}

	page := make([]Message, end-start)
	copy(page, filtered[start:end])
	return page
}
