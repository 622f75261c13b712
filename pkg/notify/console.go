package notify

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/scrumlink/scrumlink/pkg/summary"
)

// Console writes agent output to a writer. It stands in for Telegram in
// local runs and in the watch command.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole creates a Console channel.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) write(format string, args ...interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.w, format, args...)
	return err
}

// SendStatus writes a status line.
func (c *Console) SendStatus(_ context.Context, text string) error {
	return c.write("%s\n", text)
}

// NotifyQuestion writes a clarifying question.
func (c *Console) NotifyQuestion(_ context.Context, sessionID, question string) error {
	return c.write("❓ [%s] %s\n", shortID(sessionID), question)
}

// SendSummary writes the final meeting report.
func (c *Console) SendSummary(_ context.Context, sessionID string, sum *summary.Summary) error {
	return c.write("%s\n", sum.Report(sessionID))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
