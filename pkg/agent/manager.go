// Package agent owns the lifecycle of meeting sessions: it starts and
// stops capture runners, feeds caption events into them, routes external
// transcript chunks through the pipeline, and finalizes sessions into
// delivered summaries.
package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/scrumlink/scrumlink/config"
	"github.com/scrumlink/scrumlink/pkg/archive"
	"github.com/scrumlink/scrumlink/pkg/capture"
	pkgerrors "github.com/scrumlink/scrumlink/pkg/errors"
	"github.com/scrumlink/scrumlink/pkg/logging"
	"github.com/scrumlink/scrumlink/pkg/observability"
	"github.com/scrumlink/scrumlink/pkg/pipeline"
	"github.com/scrumlink/scrumlink/pkg/session"
	"github.com/scrumlink/scrumlink/pkg/summary"
)

// MeetingURLPrefix is the only meeting platform the agent joins.
const MeetingURLPrefix = "https://meet.google.com/"

// Notifier delivers user-facing output: question interjections, status
// lines, and the final summary report.
type Notifier interface {
	SendStatus(ctx context.Context, text string) error
	NotifyQuestion(ctx context.Context, sessionID, question string) error
	SendSummary(ctx context.Context, sessionID string, sum *summary.Summary) error
}

// Deps bundles the collaborators a Manager is built from. Cleaner, Gater
// and Generator are usually the same intelligence service. Notifier,
// Archive and Metrics may be nil.
type Deps struct {
	Cleaner   pipeline.Cleaner
	Gater     pipeline.Gater
	Generator summary.Generator
	Notifier  Notifier
	Archive   *archive.Archive
	Metrics   *observability.AgentMetrics
	Logger    logging.Logger
}

// Manager coordinates all live sessions of one agent process.
type Manager struct {
	cfg        *config.Config
	store      *session.Store
	processor  *pipeline.Processor
	aggregator *summary.Aggregator
	notifier   Notifier
	arch       *archive.Archive
	metrics    *observability.AgentMetrics
	tracer     *observability.Tracer
	log        logging.Logger

	mu      sync.Mutex
	running map[string]*runningSession
}

// runningSession is the capture side of one started session.
type runningSession struct {
	sess   *session.Session
	source *capture.PushSource
	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a Manager.
func NewManager(cfg *config.Config, deps Deps) *Manager {
	log := deps.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}

	store := session.NewStore()

	var questionNotifier pipeline.QuestionNotifier
	if deps.Notifier != nil {
		questionNotifier = deps.Notifier
	}
	var pipelineMetrics pipeline.Metrics
	if deps.Metrics != nil {
		pipelineMetrics = deps.Metrics
	}

	return &Manager{
		cfg:   cfg,
		store: store,
		processor: pipeline.NewProcessor(
			store,
			deps.Cleaner,
			deps.Gater,
			questionNotifier,
			pipelineMetrics,
			cfg.Capture.QuestionQuota,
			log,
		),
		aggregator: summary.NewAggregator(deps.Generator, deps.Cleaner, log),
		notifier:   deps.Notifier,
		arch:       deps.Archive,
		metrics:    deps.Metrics,
		tracer:     observability.NewTracer(),
		log:        log.With(logging.F("component", "agent")),
		running:    make(map[string]*runningSession),
	}
}

// Store exposes the session store for read-only callers.
func (m *Manager) Store() *session.Store {
	return m.store
}

// ValidateMeetingURL checks that a URL points at a joinable meeting.
func ValidateMeetingURL(meetingURL string) error {
	if !strings.HasPrefix(meetingURL, MeetingURLPrefix) {
		return fmt.Errorf("%w: meeting URL must start with %s", pkgerrors.ErrValidation, MeetingURLPrefix)
	}
	return nil
}

// Start creates a session and launches its capture runner.
func (m *Manager) Start(ctx context.Context, meetingURL string) (session.Snapshot, error) {
	if err := ValidateMeetingURL(meetingURL); err != nil {
		return session.Snapshot{}, err
	}

	sess := m.store.Create(meetingURL, m.cfg.Capture.QuestionQuota)

	_, span := m.tracer.StartSessionSpan(ctx, "start", sess.ID())
	defer span.End()

	source := capture.NewPushSource()
	buffer := capture.NewBuffer(m.cfg.Capture.ChunkMaxAge.Std(), m.cfg.Capture.ChunkMaxEvents)
	runner := capture.NewRunner(sess, source, buffer, m.processor, capture.RunnerConfig{
		ScanTick:     m.cfg.Capture.ScanTick.Std(),
		ChunkTimeout: m.cfg.ChunkTimeout.Std(),
	}, m.log)

	runCtx, cancel := context.WithCancel(context.Background())
	rs := &runningSession{
		sess:   sess,
		source: source,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	m.mu.Lock()
	m.running[sess.ID()] = rs
	m.mu.Unlock()

	go func() {
		defer close(rs.done)
		if err := runner.Run(runCtx); err != nil {
			m.log.Error("capture runner failed",
				logging.Err(err),
				logging.F("session_id", sess.ID()))
		}
		m.archiveSnapshot(sess)
	}()

	if m.metrics != nil {
		m.metrics.RecordSessionStarted()
	}
	m.log.Info("session started",
		logging.F("session_id", sess.ID()),
		logging.F("meeting_url", meetingURL))

	return sess.Snapshot(), nil
}

// PushCaptions feeds caption events into a running session's source. It
// returns how many events were accepted by the stream.
func (m *Manager) PushCaptions(sessionID string, events []capture.Event) (int, error) {
	m.mu.Lock()
	rs, ok := m.running[sessionID]
	m.mu.Unlock()
	if !ok {
		return 0, pkgerrors.ErrSessionNotFound
	}

	accepted := 0
	for _, ev := range events {
		if rs.source.Push(ev) {
			accepted++
			m.recordCaption("accepted")
		} else {
			m.recordCaption("dropped")
		}
	}
	if accepted > 0 {
		rs.sess.Touch()
	}
	return accepted, nil
}

// ProcessChunk routes an externally flushed transcript chunk through the
// pipeline. Unknown session ids lazily create a session.
func (m *Manager) ProcessChunk(ctx context.Context, sessionID, text string, ts time.Time) (pipeline.Decision, error) {
	if strings.TrimSpace(text) == "" {
		return pipeline.Decision{}, fmt.Errorf("%w: chunk text is empty", pkgerrors.ErrValidation)
	}

	chunk := capture.Chunk{
		Text:   text,
		Events: strings.Count(text, "\n") + 1,
		Start:  ts,
		End:    ts,
	}

	ctx, span := m.tracer.StartChunkSpan(ctx, sessionID, chunk.Events, len(text))
	defer span.End()

	decision, err := m.processor.Process(ctx, sessionID, chunk)
	helper := observability.NewSpanHelper(span)
	if err != nil {
		helper.SetError(err)
		return decision, err
	}
	helper.SetSuccess()
	return decision, nil
}

// Stop ends a session: it halts capture, generates the summary, delivers
// it, and archives the final snapshot. Stopping an already-terminal
// session returns its snapshot unchanged.
func (m *Manager) Stop(ctx context.Context, sessionID string) (session.Snapshot, error) {
	sess, err := m.store.Get(sessionID)
	if err != nil {
		return session.Snapshot{}, err
	}

	if sess.Status().Terminal() {
		return sess.Snapshot(), nil
	}

	ctx, span := m.tracer.StartSessionSpan(ctx, "stop", sessionID)
	defer span.End()
	helper := observability.NewSpanHelper(span)

	if err := sess.Transition(session.StatusStopping); err != nil {
		helper.SetError(err)
		return sess.Snapshot(), err
	}

	m.haltCapture(ctx, sessionID)

	if err := m.finalize(ctx, sess); err != nil {
		helper.SetError(err)
		return sess.Snapshot(), err
	}

	helper.SetSuccess()
	return sess.Snapshot(), nil
}

// FinalTranscript stops a session with an externally supplied tail of
// transcript text, then finalizes it like Stop does.
func (m *Manager) FinalTranscript(ctx context.Context, sessionID, transcript string) (session.Snapshot, error) {
	sess := m.store.GetOrCreate(sessionID, m.cfg.Capture.QuestionQuota)

	if sess.Status().Terminal() {
		return sess.Snapshot(), nil
	}

	if strings.TrimSpace(transcript) != "" {
		// The raw tail skipped per-chunk cleaning; the aggregator's
		// full-document pass covers it.
		sess.AppendChunk(time.Now(), transcript, transcript)
	}

	if err := sess.Transition(session.StatusStopping); err != nil {
		return sess.Snapshot(), err
	}

	m.haltCapture(ctx, sessionID)

	if err := m.finalize(ctx, sess); err != nil {
		return sess.Snapshot(), err
	}
	return sess.Snapshot(), nil
}

// Status returns the snapshot of one session.
func (m *Manager) Status(sessionID string) (session.Snapshot, error) {
	sess, err := m.store.Get(sessionID)
	if err != nil {
		return session.Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

// List returns snapshots of all known sessions.
func (m *Manager) List() []session.Snapshot {
	return m.store.List()
}

// History is a session snapshot plus the tail of its cleaned transcript.
type History struct {
	session.Snapshot
	LastChunks []string `json:"last_chunks,omitempty"`
}

// historyTail bounds how many trailing chunks History carries.
const historyTail = 5

// SessionHistory returns the snapshot and last few cleaned chunks.
func (m *Manager) SessionHistory(sessionID string) (History, error) {
	sess, err := m.store.Get(sessionID)
	if err != nil {
		return History{}, err
	}

	chunks := sess.CleanedChunks()
	if len(chunks) > historyTail {
		chunks = chunks[len(chunks)-historyTail:]
	}

	return History{
		Snapshot:   sess.Snapshot(),
		LastChunks: chunks,
	}, nil
}

// Cleanup removes a session entirely, halting it first if still running.
func (m *Manager) Cleanup(ctx context.Context, sessionID string) error {
	m.haltCapture(ctx, sessionID)

	if err := m.store.Delete(sessionID); err != nil {
		return err
	}
	if err := m.arch.DeleteSnapshot(ctx, sessionID); err != nil {
		m.log.Warn("failed to delete archived snapshot",
			logging.Err(err),
			logging.F("session_id", sessionID))
	}
	return nil
}

// Shutdown stops every non-terminal session. It is called on SIGTERM.
func (m *Manager) Shutdown(ctx context.Context) {
	for _, sess := range m.store.Active() {
		if _, err := m.Stop(ctx, sess.ID()); err != nil {
			m.log.Error("failed to stop session during shutdown",
				logging.Err(err),
				logging.F("session_id", sess.ID()))
		}
	}
}

// haltCapture cancels the capture runner and waits for its final flush.
func (m *Manager) haltCapture(ctx context.Context, sessionID string) {
	m.mu.Lock()
	rs, ok := m.running[sessionID]
	if ok {
		delete(m.running, sessionID)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	rs.cancel()
	_ = rs.source.Close()

	select {
	case <-rs.done:
	case <-ctx.Done():
	case <-time.After(m.cfg.StopTimeout.Std()):
		m.log.Warn("capture runner did not stop in time",
			logging.F("session_id", sessionID))
	}
}

// finalize generates the summary, records it on the session, delivers it,
// and archives the terminal snapshot. A summary failure marks the session
// as errored.
func (m *Manager) finalize(ctx context.Context, sess *session.Session) error {
	sum, err := m.aggregator.Finalize(ctx, sess.CleanedChunks(), sess.Participants())
	if err != nil {
		sess.Fail(err)
		m.recordSessionEnd("error")
		m.recordSummaryResult("failed")
		m.archiveSnapshot(sess)
		return err
	}

	sess.SetSummary(sum)
	if err := sess.Transition(session.StatusStopped); err != nil {
		return err
	}
	m.recordSessionEnd("stopped")
	m.recordSummaryResult("generated")

	if m.notifier != nil {
		if err := m.notifier.SendSummary(ctx, sess.ID(), sum); err != nil {
			m.log.Error("summary delivery failed",
				logging.Err(err),
				logging.F("session_id", sess.ID()))
			m.recordNotification("summary", "error")
		} else {
			m.recordNotification("summary", "success")
		}
	}

	m.archiveSnapshot(sess)
	m.log.Info("session finalized",
		logging.F("session_id", sess.ID()),
		logging.F("chunks", sess.ChunkCount()),
		logging.F("questions_asked", sess.QuestionsAsked()))

	return nil
}

func (m *Manager) archiveSnapshot(sess *session.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.arch.SaveSnapshot(ctx, sess.Snapshot()); err != nil {
		m.log.Warn("failed to archive snapshot",
			logging.Err(err),
			logging.F("session_id", sess.ID()))
	}
}

func (m *Manager) recordCaption(result string) {
	if m.metrics != nil {
		m.metrics.RecordCaptionEvent(result)
	}
}

func (m *Manager) recordSessionEnd(outcome string) {
	if m.metrics != nil {
		m.metrics.RecordSessionEnded(outcome)
	}
}

func (m *Manager) recordSummaryResult(status string) {
	if m.metrics != nil {
		m.metrics.RecordSummary(status)
	}
}

func (m *Manager) recordNotification(kind, status string) {
	if m.metrics != nil {
		m.metrics.RecordNotification(kind, status)
	}
}
