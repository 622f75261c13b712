package capture

import (
	"strings"
	"sync"
	"time"
)

// Buffer accumulates deduplicated caption events until a flush condition
// trips. Deduplication is keyed on the caption text alone: live captions
// re-deliver the same text under slightly different speaker attribution,
// and a text match is the only stable signal.
type Buffer struct {
	mu        sync.Mutex
	seen      map[string]struct{}
	pending   []Event
	lastFlush time.Time

	maxAge    time.Duration
	maxEvents int
}

// NewBuffer creates a buffer that flushes after maxAge has passed since
// the previous flush, or once maxEvents are pending, whichever comes first.
func NewBuffer(maxAge time.Duration, maxEvents int) *Buffer {
	return &Buffer{
		seen:      make(map[string]struct{}),
		lastFlush: time.Now(),
		maxAge:    maxAge,
		maxEvents: maxEvents,
	}
}

// Add appends an event to the pending buffer. It returns false when the
// event's text was already seen this session.
func (b *Buffer) Add(ev Event) bool {
	key := strings.TrimSpace(ev.Text)
	if key == "" {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, dup := b.seen[key]; dup {
		return false
	}
	b.seen[key] = struct{}{}

	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	b.pending = append(b.pending, ev)
	return true
}

// Len returns the number of pending events.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// ShouldFlush reports whether a flush condition holds at the given time.
// An empty buffer never flushes.
func (b *Buffer) ShouldFlush(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.pending) == 0 {
		return false
	}
	if len(b.pending) >= b.maxEvents {
		return true
	}
	return now.Sub(b.lastFlush) >= b.maxAge
}

// Flush drains the pending events into a chunk. It returns false when
// there is nothing to flush. The dedup set survives flushes; it spans the
// whole session.
func (b *Buffer) Flush(now time.Time) (Chunk, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.pending) == 0 {
		return Chunk{}, false
	}

	lines := make([]string, len(b.pending))
	for i, ev := range b.pending {
		lines[i] = ev.Line()
	}

	chunk := Chunk{
		Text:   strings.Join(lines, "\n"),
		Events: len(b.pending),
		Start:  b.pending[0].Timestamp,
		End:    b.pending[len(b.pending)-1].Timestamp,
	}

	b.pending = b.pending[:0]
	b.lastFlush = now

	return chunk, true
}
