package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrumlink/scrumlink/config"
	"github.com/scrumlink/scrumlink/pkg/capture"
	pkgerrors "github.com/scrumlink/scrumlink/pkg/errors"
	"github.com/scrumlink/scrumlink/pkg/intelligence"
	"github.com/scrumlink/scrumlink/pkg/logging"
	"github.com/scrumlink/scrumlink/pkg/session"
	"github.com/scrumlink/scrumlink/pkg/summary"
)

const testMeetingURL = "https://meet.google.com/abc-defg-hij"

type fakeIntelligence struct {
	mu             sync.Mutex
	cleanErr       error
	cleanInputs    []string
	gateResult     intelligence.GateResult
	summaryText    string
	summarizeErr   error
	summarized     int
	summarizeInput string
}

func (f *fakeIntelligence) Clean(_ context.Context, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleanInputs = append(f.cleanInputs, text)
	if f.cleanErr != nil {
		return "", f.cleanErr
	}
	return text, nil
}

func (f *fakeIntelligence) Gate(_ context.Context, _ string, _ []string, _, _ int) (intelligence.GateResult, error) {
	return f.gateResult, nil
}

func (f *fakeIntelligence) Summarize(_ context.Context, transcript string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summarized++
	f.summarizeInput = transcript
	if f.summarizeErr != nil {
		return "", f.summarizeErr
	}
	return f.summaryText, nil
}

func (f *fakeIntelligence) lastCleanInput() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.cleanInputs) == 0 {
		return ""
	}
	return f.cleanInputs[len(f.cleanInputs)-1]
}

type recorderNotifier struct {
	mu        sync.Mutex
	questions []string
	summaries []*summary.Summary
}

func (r *recorderNotifier) SendStatus(context.Context, string) error { return nil }

func (r *recorderNotifier) NotifyQuestion(_ context.Context, _, question string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.questions = append(r.questions, question)
	return nil
}

func (r *recorderNotifier) SendSummary(_ context.Context, _ string, sum *summary.Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries = append(r.summaries, sum)
	return nil
}

func (r *recorderNotifier) summaryCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.summaries)
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Capture.ScanTick = config.Duration(5 * time.Millisecond)
	cfg.Capture.ChunkMaxAge = config.Duration(20 * time.Millisecond)
	cfg.StopTimeout = config.Duration(2 * time.Second)
	return cfg
}

func newTestManager(intel *fakeIntelligence, notifier *recorderNotifier) *Manager {
	return NewManager(testConfig(), Deps{
		Cleaner:   intel,
		Gater:     intel,
		Generator: intel,
		Notifier:  notifier,
		Logger:    logging.NewNopLogger(),
	})
}

func TestValidateMeetingURL(t *testing.T) {
	require.NoError(t, ValidateMeetingURL(testMeetingURL))

	err := ValidateMeetingURL("https://zoom.us/j/123")
	assert.ErrorIs(t, err, pkgerrors.ErrValidation)

	err = ValidateMeetingURL("")
	assert.ErrorIs(t, err, pkgerrors.ErrValidation)
}

func TestStartRejectsBadURL(t *testing.T) {
	m := newTestManager(&fakeIntelligence{}, &recorderNotifier{})

	_, err := m.Start(context.Background(), "http://example.com")
	assert.ErrorIs(t, err, pkgerrors.ErrValidation)
	assert.Equal(t, 0, m.Store().Len())
}

func TestStartStopLifecycle(t *testing.T) {
	intel := &fakeIntelligence{summaryText: "ОБЩАЯ_СВОДКА:\nОбсудили релиз."}
	notifier := &recorderNotifier{}
	m := newTestManager(intel, notifier)

	snap, err := m.Start(context.Background(), testMeetingURL)
	require.NoError(t, err)
	require.NotEmpty(t, snap.ID)

	require.Eventually(t, func() bool {
		s, err := m.Status(snap.ID)
		return err == nil && s.Status == session.StatusActive
	}, time.Second, 5*time.Millisecond)

	accepted, err := m.PushCaptions(snap.ID, []capture.Event{
		{Speaker: "Анна", Text: "Начинаем планирование спринта"},
		{Speaker: "Анна", Text: "Начинаем планирование спринта"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, accepted)

	stopped, err := m.Stop(context.Background(), snap.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusStopped, stopped.Status)
	require.NotNil(t, stopped.Summary)
	assert.Equal(t, "Обсудили релиз.", stopped.Summary.SummaryText)
	assert.Equal(t, 1, notifier.summaryCount())
}

func TestStopIsIdempotent(t *testing.T) {
	intel := &fakeIntelligence{summaryText: "ОБЩАЯ_СВОДКА:\nИтог."}
	notifier := &recorderNotifier{}
	m := newTestManager(intel, notifier)

	snap, err := m.Start(context.Background(), testMeetingURL)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		s, _ := m.Status(snap.ID)
		return s.Status == session.StatusActive
	}, time.Second, 5*time.Millisecond)

	first, err := m.Stop(context.Background(), snap.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusStopped, first.Status)

	second, err := m.Stop(context.Background(), snap.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusStopped, second.Status)
	assert.Equal(t, 1, notifier.summaryCount())
}

func TestStopUnknownSession(t *testing.T) {
	m := newTestManager(&fakeIntelligence{}, &recorderNotifier{})

	_, err := m.Stop(context.Background(), "no-such-session")
	assert.ErrorIs(t, err, pkgerrors.ErrSessionNotFound)
}

func TestSummaryFailureMarksSessionErrored(t *testing.T) {
	intel := &fakeIntelligence{summarizeErr: errors.New("model unavailable")}
	m := newTestManager(intel, &recorderNotifier{})

	snap, err := m.Start(context.Background(), testMeetingURL)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		s, _ := m.Status(snap.ID)
		return s.Status == session.StatusActive
	}, time.Second, 5*time.Millisecond)

	_, err = m.ProcessChunk(context.Background(), snap.ID, "[10:00:00] Анна: Начинаем", time.Now())
	require.NoError(t, err)

	_, err = m.Stop(context.Background(), snap.ID)
	require.Error(t, err)

	s, err := m.Status(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusError, s.Status)
	assert.NotEmpty(t, s.LastError)
}

func TestPushCaptionsUnknownSession(t *testing.T) {
	m := newTestManager(&fakeIntelligence{}, &recorderNotifier{})

	_, err := m.PushCaptions("no-such-session", []capture.Event{{Text: "привет"}})
	assert.ErrorIs(t, err, pkgerrors.ErrSessionNotFound)
}

func TestProcessChunkLazySession(t *testing.T) {
	intel := &fakeIntelligence{}
	m := newTestManager(intel, &recorderNotifier{})

	decision, err := m.ProcessChunk(context.Background(), "external-1", "[10:00:00] Борис: Готово", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "[10:00:00] Борис: Готово", decision.CleanedText)

	s, err := m.Status("external-1")
	require.NoError(t, err)
	assert.Equal(t, session.StatusActive, s.Status)
	assert.Equal(t, 1, s.ChunkCount)
	assert.Contains(t, s.Participants, "Борис")
}

func TestProcessChunkRejectsEmptyText(t *testing.T) {
	m := newTestManager(&fakeIntelligence{}, &recorderNotifier{})

	_, err := m.ProcessChunk(context.Background(), "s1", "   ", time.Now())
	assert.ErrorIs(t, err, pkgerrors.ErrValidation)
}

func TestFinalTranscriptFinalizesLazySession(t *testing.T) {
	intel := &fakeIntelligence{summaryText: "ОБЩАЯ_СВОДКА:\nКороткий созвон."}
	notifier := &recorderNotifier{}
	m := newTestManager(intel, notifier)

	snap, err := m.FinalTranscript(context.Background(), "external-2", "[10:00:00] Анна: Завершаем")
	require.NoError(t, err)
	assert.Equal(t, session.StatusStopped, snap.Status)
	require.NotNil(t, snap.Summary)
	assert.Equal(t, "Короткий созвон.", snap.Summary.SummaryText)
	assert.Equal(t, 1, notifier.summaryCount())
}

func TestFinalTranscriptCleansTailBeforeSummary(t *testing.T) {
	intel := &fakeIntelligence{summaryText: "ОБЩАЯ_СВОДКА:\nИтог."}
	m := newTestManager(intel, &recorderNotifier{})

	raw := "[10:00:00] Анна: сырой текст с ошибкми распознавания"
	_, err := m.FinalTranscript(context.Background(), "external-3", raw)
	require.NoError(t, err)

	// The externally supplied tail goes through a cleaning pass before
	// summarization.
	assert.Equal(t, raw, intel.lastCleanInput())
	assert.Equal(t, raw, intel.summarizeInput)
}

func TestSessionHistoryTail(t *testing.T) {
	intel := &fakeIntelligence{}
	m := newTestManager(intel, &recorderNotifier{})

	for i := 0; i < 8; i++ {
		_, err := m.ProcessChunk(context.Background(), "hist-1",
			fmt.Sprintf("[10:00:0%d] Анна: реплика %d", i, i), time.Now())
		require.NoError(t, err)
	}

	hist, err := m.SessionHistory("hist-1")
	require.NoError(t, err)
	assert.Equal(t, 8, hist.ChunkCount)
	require.Len(t, hist.LastChunks, 5)
	assert.Contains(t, hist.LastChunks[4], "реплика 7")
}

func TestCleanupRemovesSession(t *testing.T) {
	m := newTestManager(&fakeIntelligence{}, &recorderNotifier{})

	snap, err := m.Start(context.Background(), testMeetingURL)
	require.NoError(t, err)

	require.NoError(t, m.Cleanup(context.Background(), snap.ID))

	_, err = m.Status(snap.ID)
	assert.ErrorIs(t, err, pkgerrors.ErrSessionNotFound)
}

func TestShutdownStopsActiveSessions(t *testing.T) {
	intel := &fakeIntelligence{summaryText: "ОБЩАЯ_СВОДКА:\nИтог."}
	m := newTestManager(intel, &recorderNotifier{})

	first, err := m.Start(context.Background(), testMeetingURL)
	require.NoError(t, err)
	second, err := m.Start(context.Background(), "https://meet.google.com/xyz-1234-abc")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		a, _ := m.Status(first.ID)
		b, _ := m.Status(second.ID)
		return a.Status == session.StatusActive && b.Status == session.StatusActive
	}, time.Second, 5*time.Millisecond)

	m.Shutdown(context.Background())

	a, _ := m.Status(first.ID)
	b, _ := m.Status(second.ID)
	assert.Equal(t, session.StatusStopped, a.Status)
	assert.Equal(t, session.StatusStopped, b.Status)
}
