// Package pipeline processes flushed transcript chunks: it cleans the
// chunk text, tracks speakers, and decides whether the agent should
// interject with a clarifying question.
package pipeline

import (
	"context"

	"github.com/scrumlink/scrumlink/pkg/capture"
	scrumerrors "github.com/scrumlink/scrumlink/pkg/errors"
	"github.com/scrumlink/scrumlink/pkg/intelligence"
	"github.com/scrumlink/scrumlink/pkg/logging"
	"github.com/scrumlink/scrumlink/pkg/session"
)

// Cleaner fixes speech-to-text artifacts in a chunk.
type Cleaner interface {
	Clean(ctx context.Context, text string) (string, error)
}

// Gater decides whether a clarifying question is warranted.
type Gater interface {
	Gate(ctx context.Context, currentChunk string, history []string, questionsAsked, quota int) (intelligence.GateResult, error)
}

// QuestionNotifier delivers an approved question to the meeting audience.
type QuestionNotifier interface {
	NotifyQuestion(ctx context.Context, sessionID, question string) error
}

// Action says what the pipeline decided to do with a chunk.
type Action int

const (
	// ActionNone means the chunk was recorded without interjection.
	ActionNone Action = iota
	// ActionAskQuestion means a clarifying question was sent.
	ActionAskQuestion
)

// Decision is the outcome of processing one chunk.
type Decision struct {
	Action      Action
	Question    string
	CleanedText string
	// CleanFallback is set when cleaning failed and the raw text was
	// recorded instead.
	CleanFallback bool
}

// Metrics receives pipeline counters. The observability package
// implements it.
type Metrics interface {
	ChunkProcessed(sessionID string, cleanFallback bool)
	QuestionAsked(sessionID string)
}

// nopMetrics is used when no metrics sink is wired.
type nopMetrics struct{}

func (nopMetrics) ChunkProcessed(string, bool) {}
func (nopMetrics) QuestionAsked(string)        {}

// Processor runs chunks through clean and gate. It implements
// capture.Sink.
type Processor struct {
	store    *session.Store
	cleaner  Cleaner
	gater    Gater
	notifier QuestionNotifier
	metrics  Metrics
	quota    int
	log      logging.Logger
}

// NewProcessor creates a Processor. notifier and metrics may be nil.
func NewProcessor(store *session.Store, cleaner Cleaner, gater Gater, notifier QuestionNotifier, metrics Metrics, quota int, log logging.Logger) *Processor {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Processor{
		store:    store,
		cleaner:  cleaner,
		gater:    gater,
		notifier: notifier,
		metrics:  metrics,
		quota:    quota,
		log:      log,
	}
}

// HandleChunk implements capture.Sink.
func (p *Processor) HandleChunk(ctx context.Context, sessionID string, chunk capture.Chunk) error {
	_, err := p.Process(ctx, sessionID, chunk)
	return err
}

// Process runs one chunk through the pipeline. Chunks for unknown session
// ids lazily create a session, so an external caption publisher can stream
// without a prior start call.
func (p *Processor) Process(ctx context.Context, sessionID string, chunk capture.Chunk) (Decision, error) {
	sess := p.store.GetOrCreate(sessionID, p.quota)
	log := p.log.With(logging.F("session_id", sessionID))

	for _, speaker := range extractSpeakers(chunk.Text) {
		sess.AddParticipant(speaker[0], speaker[1])
	}

	decision := Decision{CleanedText: chunk.Text}

	cleaned, err := p.cleaner.Clean(ctx, chunk.Text)
	if err != nil {
		// The raw text is still usable; record it and move on.
		log.Warn("chunk cleaning failed, keeping raw text", logging.Err(err))
		decision.CleanFallback = true
	} else {
		decision.CleanedText = cleaned
	}

	history := sess.CleanedChunks()

	if sess.QuestionBudgetLeft() {
		result, gateErr := p.gater.Gate(ctx, decision.CleanedText, history, sess.QuestionsAsked(), sess.QuestionQuota())
		switch {
		case gateErr != nil:
			log.Warn("question gating failed", logging.Err(gateErr))
		case result.NeedsQuestion && result.Question != "":
			// The gate call ran without the lock; re-check the quota
			// before committing.
			if err := sess.AskQuestion(result.Question); err != nil {
				if scrumerrors.IsQuotaExceeded(err) {
					log.Debug("question suppressed", logging.Err(err))
				} else {
					log.Warn("question rejected", logging.Err(err))
				}
			} else {
				decision.Action = ActionAskQuestion
				decision.Question = result.Question
				p.deliverQuestion(ctx, log, sessionID, result.Question)
				p.metrics.QuestionAsked(sessionID)
			}
		}
	}

	sess.AppendChunk(chunk.Start, chunk.Text, decision.CleanedText)
	p.metrics.ChunkProcessed(sessionID, decision.CleanFallback)

	log.Info("chunk processed",
		logging.F("events", chunk.Events),
		logging.F("asked_question", decision.Action == ActionAskQuestion))

	return decision, nil
}

func (p *Processor) deliverQuestion(ctx context.Context, log logging.Logger, sessionID, question string) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.NotifyQuestion(ctx, sessionID, question); err != nil {
		log.Error("question delivery failed", logging.Err(err))
	}
}
