// Package capture ingests the live caption stream of a meeting: it
// deduplicates caption events, accumulates them into a pending buffer, and
// flushes the buffer as transcript chunks by age or size.
package capture

import (
	"fmt"
	"time"
)

// Event is a single caption observed in the meeting.
type Event struct {
	// Speaker is the display name of whoever was talking.
	Speaker string `json:"speaker"`
	// Text is the caption text.
	Text string `json:"text"`
	// Timestamp is when the caption was observed.
	Timestamp time.Time `json:"timestamp"`
}

// Line renders the event as a transcript line.
func (e Event) Line() string {
	return fmt.Sprintf("[%s] %s: %s", e.Timestamp.Format("15:04:05"), e.Speaker, e.Text)
}

// Chunk is a flushed batch of caption events, ready for the processing
// pipeline.
type Chunk struct {
	// Text is the chunk transcript, one line per event.
	Text string `json:"text"`
	// Events is how many events the chunk contains.
	Events int `json:"events"`
	// Start and End bound the time window the chunk covers.
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}
