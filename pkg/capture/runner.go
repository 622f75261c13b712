package capture

import (
	"context"
	"time"

	"github.com/scrumlink/scrumlink/pkg/logging"
	"github.com/scrumlink/scrumlink/pkg/session"
)

// Sink receives flushed chunks. The processing pipeline implements it.
type Sink interface {
	HandleChunk(ctx context.Context, sessionID string, chunk Chunk) error
}

// RunnerConfig tunes the capture loop.
type RunnerConfig struct {
	// ScanTick is the interval between flush-condition checks.
	ScanTick time.Duration
	// ChunkTimeout bounds a single chunk delivery to the sink.
	ChunkTimeout time.Duration
}

// Runner owns the capture loop of one session: it walks the session
// through the join handshake, drains caption events into the buffer, and
// delivers flushed chunks to the sink. A failed delivery drops the chunk;
// the stream keeps flowing.
type Runner struct {
	sess   *session.Session
	source Source
	buffer *Buffer
	sink   Sink
	cfg    RunnerConfig
	log    logging.Logger
}

// NewRunner creates a Runner.
func NewRunner(sess *session.Session, source Source, buffer *Buffer, sink Sink, cfg RunnerConfig, log logging.Logger) *Runner {
	return &Runner{
		sess:   sess,
		source: source,
		buffer: buffer,
		sink:   sink,
		cfg:    cfg,
		log:    log.With(logging.F("session_id", sess.ID())),
	}
}

// Run executes the capture loop until the context is canceled or the
// source closes. Any pending events are flushed on the way out.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.sess.Transition(session.StatusStarting); err != nil {
		return err
	}

	if err := r.source.Join(ctx); err != nil {
		r.sess.Fail(err)
		return err
	}

	if err := r.sess.Transition(session.StatusWaitingAdmission); err != nil {
		return err
	}

	if err := r.source.WaitAdmission(ctx); err != nil {
		r.sess.Fail(err)
		return err
	}

	if err := r.sess.Transition(session.StatusActive); err != nil {
		return err
	}

	r.log.Info("capture started")

	ticker := time.NewTicker(r.cfg.ScanTick)
	defer ticker.Stop()

	events := r.source.Events()
	for {
		select {
		case <-ctx.Done():
			r.finalFlush()
			return nil

		case ev, ok := <-events:
			if !ok {
				r.finalFlush()
				return nil
			}
			if !r.buffer.Add(ev) {
				r.log.Debug("duplicate caption dropped", logging.F("speaker", ev.Speaker))
			}

		case now := <-ticker.C:
			if r.buffer.ShouldFlush(now) {
				r.deliver(now)
			}
		}
	}
}

// deliver flushes the buffer and hands the chunk to the sink. Delivery
// uses its own deadline so a final flush still goes out after the run
// context is canceled.
func (r *Runner) deliver(now time.Time) {
	chunk, ok := r.buffer.Flush(now)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.ChunkTimeout)
	defer cancel()

	if err := r.sink.HandleChunk(ctx, r.sess.ID(), chunk); err != nil {
		r.log.Warn("chunk delivery failed, dropping",
			logging.Err(err),
			logging.F("events", chunk.Events))
		return
	}

	r.log.Debug("chunk delivered", logging.F("events", chunk.Events))
}

// finalFlush pushes out whatever is still pending, regardless of the
// flush conditions.
func (r *Runner) finalFlush() {
	r.deliver(time.Now())
	r.log.Info("capture finished")
}
