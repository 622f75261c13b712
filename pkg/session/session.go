// Package session holds the in-memory state of meeting sessions: the
// lifecycle state machine, the per-session question quota, and the store
// that owns all live sessions.
package session

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	scrumerrors "github.com/scrumlink/scrumlink/pkg/errors"
	"github.com/scrumlink/scrumlink/pkg/summary"
)

// Chunk is one processed transcript chunk in the session history.
// Immutable once appended; order is capture order.
type Chunk struct {
	Timestamp time.Time `json:"timestamp"`
	Original  string    `json:"original"`
	Cleaned   string    `json:"cleaned"`
}

// Session is the state of a single meeting capture. All mutating access
// goes through methods that take the session lock; callers never touch
// fields directly.
type Session struct {
	id         string
	meetingURL string

	mu             sync.Mutex
	status         Status
	createdAt      time.Time
	startedAt      time.Time
	stoppedAt      time.Time
	lastActivity   time.Time
	lastError      string
	questionQuota  int
	questionsAsked int
	lastQuestion   string
	participants   map[string]string
	chunks         []Chunk
	summary        *summary.Summary
}

// New creates a session in StatusInitializing with a fresh id.
func New(meetingURL string, questionQuota int) *Session {
	return NewWithID(uuid.NewString(), meetingURL, questionQuota)
}

// NewWithID creates a session with a caller-supplied id. Used when chunks
// arrive for a session id minted by an external publisher.
func NewWithID(id, meetingURL string, questionQuota int) *Session {
	now := time.Now()
	return &Session{
		id:            id,
		meetingURL:    meetingURL,
		status:        StatusInitializing,
		createdAt:     now,
		lastActivity:  now,
		questionQuota: questionQuota,
		participants:  make(map[string]string),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// MeetingURL returns the meeting URL this session was started for.
func (s *Session) MeetingURL() string { return s.meetingURL }

// Status returns the current lifecycle status.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Transition moves the session to the given status. Transitions are
// monotonic: moving backwards returns ErrInvalidState. Transitioning to the
// current status is a no-op, and stopping an already-terminal session is
// also a no-op so that stop requests stay idempotent.
func (s *Session) Transition(to Status) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", scrumerrors.ErrInvalidState, to)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if to == s.status {
		return nil
	}

	if s.status.Terminal() {
		if to == StatusStopped || to == StatusStopping {
			return nil
		}
		return fmt.Errorf("%w: session is %s", scrumerrors.ErrInvalidState, s.status)
	}

	if to != StatusError && statusRank[to] < statusRank[s.status] {
		return fmt.Errorf("%w: cannot move from %s to %s", scrumerrors.ErrInvalidState, s.status, to)
	}

	s.status = to
	switch to {
	case StatusActive:
		if s.startedAt.IsZero() {
			s.startedAt = time.Now()
		}
	case StatusStopped, StatusError:
		s.stoppedAt = time.Now()
	}

	return nil
}

// Fail moves the session to StatusError and records the cause. Failing an
// already-terminal session keeps the original outcome.
func (s *Session) Fail(cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status.Terminal() {
		return
	}

	s.status = StatusError
	s.stoppedAt = time.Now()
	if cause != nil {
		s.lastError = cause.Error()
	}
}

// QuestionBudgetLeft reports whether the session may still ask a clarifying
// question. This is only a hint; AskQuestion makes the final call.
func (s *Session) QuestionBudgetLeft() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questionsAsked < s.questionQuota
}

// AskQuestion consumes one unit of the question quota and records the
// question as the session's latest one, visible to status pollers. It
// returns ErrQuotaExceeded when the quota is already spent. Check,
// increment, and record happen under the session lock, so concurrent chunk
// workers can never overshoot the quota.
func (s *Session) AskQuestion(question string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.questionsAsked >= s.questionQuota {
		return fmt.Errorf("%w: %d of %d asked", scrumerrors.ErrQuotaExceeded, s.questionsAsked, s.questionQuota)
	}
	s.questionsAsked++
	s.lastQuestion = question
	return nil
}

// LastQuestion returns the most recent clarifying question, empty when
// none was asked yet.
func (s *Session) LastQuestion() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastQuestion
}

// QuestionQuota returns the per-session cap on clarifying questions.
func (s *Session) QuestionQuota() int {
	return s.questionQuota
}

// QuestionsAsked returns how many clarifying questions were asked so far.
func (s *Session) QuestionsAsked() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questionsAsked
}

// AddParticipant records a speaker observed in the stream. The key is the
// case-folded form so that "Анна" and "анна" count once; the first observed
// spelling wins for display.
func (s *Session) AddParticipant(folded, display string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.participants[folded]; !ok {
		s.participants[folded] = display
	}
}

// Participants returns the observed speakers in sorted display form.
func (s *Session) Participants() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.participants))
	for _, display := range s.participants {
		out = append(out, display)
	}
	sort.Strings(out)
	return out
}

// AppendChunk records a processed chunk, keeping both the raw and cleaned
// text. The collected chunks form the transcript used for the final
// summary and the history endpoint. A zero ts defaults to now.
func (s *Session) AppendChunk(ts time.Time, original, cleaned string) {
	if ts.IsZero() {
		ts = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, Chunk{Timestamp: ts, Original: original, Cleaned: cleaned})
	s.lastActivity = time.Now()
}

// Chunks returns a copy of the chunk history in arrival order.
func (s *Session) Chunks() []Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Chunk, len(s.chunks))
	copy(out, s.chunks)
	return out
}

// CleanedChunks returns the cleaned chunk texts in arrival order.
func (s *Session) CleanedChunks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.chunks))
	for i, c := range s.chunks {
		out[i] = c.Cleaned
	}
	return out
}

// ChunkCount returns how many chunks were processed.
func (s *Session) ChunkCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chunks)
}

// Touch records activity on the session, e.g. an accepted caption event.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
}

// SetSummary stores the final meeting summary.
func (s *Session) SetSummary(sum *summary.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = sum
}

// Summary returns the final meeting summary, or nil when the session has
// not been finalized yet.
func (s *Session) Summary() *summary.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// Snapshot is an immutable copy of the session state, safe to serialize.
type Snapshot struct {
	ID             string           `json:"session_id"`
	MeetingURL     string           `json:"meeting_url"`
	Status         Status           `json:"status"`
	CreatedAt      time.Time        `json:"created_at"`
	StartedAt      time.Time        `json:"started_at,omitempty"`
	StoppedAt      time.Time        `json:"stopped_at,omitempty"`
	LastActivity   time.Time        `json:"last_activity"`
	LastError      string           `json:"last_error,omitempty"`
	QuestionsAsked int              `json:"questions_asked"`
	QuestionQuota  int              `json:"question_quota"`
	LastQuestion   string           `json:"last_question,omitempty"`
	ChunkCount     int              `json:"chunk_count"`
	Participants   []string         `json:"participants,omitempty"`
	Summary        *summary.Summary `json:"summary,omitempty"`
}

// Snapshot returns a point-in-time copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	participants := make([]string, 0, len(s.participants))
	for _, display := range s.participants {
		participants = append(participants, display)
	}
	sort.Strings(participants)

	return Snapshot{
		ID:             s.id,
		MeetingURL:     s.meetingURL,
		Status:         s.status,
		CreatedAt:      s.createdAt,
		StartedAt:      s.startedAt,
		StoppedAt:      s.stoppedAt,
		LastActivity:   s.lastActivity,
		LastError:      s.lastError,
		QuestionsAsked: s.questionsAsked,
		QuestionQuota:  s.questionQuota,
		LastQuestion:   s.lastQuestion,
		ChunkCount:     len(s.chunks),
		Participants:   participants,
		Summary:        s.summary,
	}
}
