package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scrumerrors "github.com/scrumlink/scrumlink/pkg/errors"
	"github.com/scrumlink/scrumlink/pkg/summary"
)

func TestSession_New(t *testing.T) {
	s := New("https://meet.google.com/abc-defg-hij", 2)

	assert.NotEmpty(t, s.ID())
	assert.Equal(t, "https://meet.google.com/abc-defg-hij", s.MeetingURL())
	assert.Equal(t, StatusInitializing, s.Status())
	assert.Equal(t, 0, s.QuestionsAsked())
}

func TestSession_Transition_ForwardPath(t *testing.T) {
	s := New("url", 2)

	for _, st := range []Status{StatusStarting, StatusWaitingAdmission, StatusActive, StatusStopping, StatusStopped} {
		require.NoError(t, s.Transition(st))
		assert.Equal(t, st, s.Status())
	}

	snap := s.Snapshot()
	assert.False(t, snap.StartedAt.IsZero())
	assert.False(t, snap.StoppedAt.IsZero())
}

func TestSession_Transition_SkippingStatesAllowed(t *testing.T) {
	s := New("url", 2)

	// Short meetings can go straight from starting to stopping.
	require.NoError(t, s.Transition(StatusStarting))
	require.NoError(t, s.Transition(StatusStopping))
	require.NoError(t, s.Transition(StatusStopped))
}

func TestSession_Transition_BackwardsRejected(t *testing.T) {
	s := New("url", 2)
	require.NoError(t, s.Transition(StatusActive))

	err := s.Transition(StatusStarting)
	assert.ErrorIs(t, err, scrumerrors.ErrInvalidState)
	assert.Equal(t, StatusActive, s.Status())
}

func TestSession_Transition_SameStatusNoop(t *testing.T) {
	s := New("url", 2)
	require.NoError(t, s.Transition(StatusActive))
	assert.NoError(t, s.Transition(StatusActive))
}

func TestSession_Transition_IdempotentStop(t *testing.T) {
	s := New("url", 2)
	require.NoError(t, s.Transition(StatusStopped))

	// A second stop request is a no-op, not an error.
	assert.NoError(t, s.Transition(StatusStopping))
	assert.NoError(t, s.Transition(StatusStopped))
	assert.Equal(t, StatusStopped, s.Status())
}

func TestSession_Transition_TerminalRejectsRestart(t *testing.T) {
	s := New("url", 2)
	require.NoError(t, s.Transition(StatusStopped))

	err := s.Transition(StatusActive)
	assert.ErrorIs(t, err, scrumerrors.ErrInvalidState)
}

func TestSession_Transition_ErrorFromAnyState(t *testing.T) {
	s := New("url", 2)
	require.NoError(t, s.Transition(StatusWaitingAdmission))
	require.NoError(t, s.Transition(StatusError))
	assert.Equal(t, StatusError, s.Status())
}

func TestSession_Transition_UnknownStatus(t *testing.T) {
	s := New("url", 2)
	assert.ErrorIs(t, s.Transition(Status("paused")), scrumerrors.ErrInvalidState)
}

func TestSession_Fail(t *testing.T) {
	s := New("url", 2)
	require.NoError(t, s.Transition(StatusActive))

	s.Fail(errors.New("browser crashed"))

	assert.Equal(t, StatusError, s.Status())
	assert.Equal(t, "browser crashed", s.Snapshot().LastError)

	// Failing a stopped session keeps the original outcome.
	s2 := New("url", 2)
	require.NoError(t, s2.Transition(StatusStopped))
	s2.Fail(errors.New("late failure"))
	assert.Equal(t, StatusStopped, s2.Status())
}

func TestSession_QuestionQuota(t *testing.T) {
	s := New("url", 2)

	assert.NoError(t, s.AskQuestion("Кто ответственный?"))
	assert.NoError(t, s.AskQuestion("Какой дедлайн?"))
	assert.ErrorIs(t, s.AskQuestion("Еще вопрос?"), scrumerrors.ErrQuotaExceeded)
	assert.Equal(t, 2, s.QuestionsAsked())
	assert.False(t, s.QuestionBudgetLeft())
}

func TestSession_LastQuestionTracksLatest(t *testing.T) {
	s := New("url", 2)
	assert.Empty(t, s.LastQuestion())

	require.NoError(t, s.AskQuestion("Кто берет миграцию?"))
	assert.Equal(t, "Кто берет миграцию?", s.LastQuestion())
	assert.Equal(t, "Кто берет миграцию?", s.Snapshot().LastQuestion)

	require.NoError(t, s.AskQuestion("Какой дедлайн?"))
	assert.Equal(t, "Какой дедлайн?", s.LastQuestion())

	// A rejected question leaves the last one untouched.
	assert.Error(t, s.AskQuestion("Лишний вопрос?"))
	assert.Equal(t, "Какой дедлайн?", s.LastQuestion())
}

func TestSession_QuestionQuota_Concurrent(t *testing.T) {
	s := New("url", 2)

	var wg sync.WaitGroup
	granted := make(chan bool, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			granted <- s.AskQuestion("Вопрос?") == nil
		}()
	}
	wg.Wait()
	close(granted)

	count := 0
	for ok := range granted {
		if ok {
			count++
		}
	}
	assert.Equal(t, 2, count)
	assert.Equal(t, 2, s.QuestionsAsked())
}

func TestSession_Participants(t *testing.T) {
	s := New("url", 2)

	s.AddParticipant("анна", "Анна")
	s.AddParticipant("анна", "АННА") // first spelling wins
	s.AddParticipant("борис", "Борис")

	assert.Equal(t, []string{"Анна", "Борис"}, s.Participants())
}

func TestSession_ChunksAndSummary(t *testing.T) {
	s := New("url", 2)

	ts := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	s.AppendChunk(ts, "первый чанк с ошибкми", "первый чанк с ошибками")
	s.AppendChunk(time.Time{}, "второй чанк", "второй чанк")

	assert.Equal(t, 2, s.ChunkCount())
	assert.Equal(t, []string{"первый чанк с ошибками", "второй чанк"}, s.CleanedChunks())

	chunks := s.Chunks()
	require.Len(t, chunks, 2)
	assert.Equal(t, ts, chunks[0].Timestamp)
	assert.Equal(t, "первый чанк с ошибкми", chunks[0].Original)
	assert.Equal(t, "первый чанк с ошибками", chunks[0].Cleaned)
	assert.False(t, chunks[1].Timestamp.IsZero())

	sum := &summary.Summary{SummaryText: "итог"}
	s.SetSummary(sum)
	assert.Same(t, sum, s.Summary())

	snap := s.Snapshot()
	assert.Equal(t, 2, snap.ChunkCount)
	assert.Equal(t, sum, snap.Summary)
}

func TestSession_LastActivity(t *testing.T) {
	s := New("url", 2)
	created := s.Snapshot().LastActivity
	require.False(t, created.IsZero())

	time.Sleep(2 * time.Millisecond)
	s.AppendChunk(time.Now(), "чанк", "чанк")
	afterChunk := s.Snapshot().LastActivity
	assert.True(t, afterChunk.After(created))

	time.Sleep(2 * time.Millisecond)
	s.Touch()
	assert.True(t, s.Snapshot().LastActivity.After(afterChunk))
}
