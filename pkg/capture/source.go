package capture

import (
	"context"
	"sync"
)

// Source is where caption events come from. The runner drives it through
// the join handshake and then drains Events until it closes or the session
// stops.
type Source interface {
	// Join connects to the meeting.
	Join(ctx context.Context) error

	// WaitAdmission blocks until the meeting lets the agent in.
	WaitAdmission(ctx context.Context) error

	// Events returns the caption stream. The channel closes when the
	// source is closed or the meeting ends.
	Events() <-chan Event

	// Close releases the source.
	Close() error
}

// defaultPushCapacity bounds the push source's event channel. Callers
// pushing into a full channel get a drop, not a stall.
const defaultPushCapacity = 256

// PushSource is a Source fed externally, by the captions ingest endpoint.
// Join and admission succeed immediately; the caption publisher owns the
// actual meeting connection.
type PushSource struct {
	mu     sync.Mutex
	closed bool
	events chan Event
}

// NewPushSource creates a PushSource with the default buffer capacity.
func NewPushSource() *PushSource {
	return &PushSource{
		events: make(chan Event, defaultPushCapacity),
	}
}

// Join connects to the meeting. For a push source this is a no-op.
func (s *PushSource) Join(ctx context.Context) error {
	return ctx.Err()
}

// WaitAdmission blocks until the meeting lets the agent in. For a push
// source admission is immediate.
func (s *PushSource) WaitAdmission(ctx context.Context) error {
	return ctx.Err()
}

// Events returns the caption stream.
func (s *PushSource) Events() <-chan Event {
	return s.events
}

// Push delivers an event into the stream. It returns false when the source
// is closed or the buffer is full; a slow consumer drops captions rather
// than blocking the publisher.
func (s *PushSource) Push(ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	select {
	case s.events <- ev:
		return true
	default:
		return false
	}
}

// Close stops the source and closes the event stream.
func (s *PushSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	close(s.events)
	return nil
}
