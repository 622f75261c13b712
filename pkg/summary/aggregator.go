package summary

import (
	"context"
	"fmt"
	"strings"
	"time"

	scrumerrors "github.com/scrumlink/scrumlink/pkg/errors"
	"github.com/scrumlink/scrumlink/pkg/logging"
)

// Generator produces the end-of-meeting summary text for a transcript.
// The intelligence service implements it.
type Generator interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}

// Cleaner fixes speech-to-text artifacts in text. The intelligence
// service implements it.
type Cleaner interface {
	Clean(ctx context.Context, text string) (string, error)
}

// Aggregator assembles the final summary for a session: it joins the
// chunks into one transcript, runs a full-document cleaning pass, asks
// the generator for a structured response, parses it, and fills the gaps
// from streaming observations.
type Aggregator struct {
	gen     Generator
	cleaner Cleaner
	log     logging.Logger
}

// NewAggregator creates an Aggregator. cleaner may be nil, in which case
// the full-document cleaning pass is skipped.
func NewAggregator(gen Generator, cleaner Cleaner, log logging.Logger) *Aggregator {
	return &Aggregator{gen: gen, cleaner: cleaner, log: log}
}

// Finalize produces the summary for a finished session. streamParticipants
// are the speakers observed during capture, used when the model response
// lists none.
func (a *Aggregator) Finalize(ctx context.Context, chunks []string, streamParticipants []string) (*Summary, error) {
	if len(chunks) == 0 {
		// Nothing was said; skip the model call entirely.
		return &Summary{
			Participants:       append([]string{}, streamParticipants...),
			KeyDecisions:       []string{},
			Tasks:              []string{},
			QuestionsDiscussed: []string{},
			Duration:           EstimateDuration(0),
			GeneratedAt:        time.Now(),
		}, nil
	}

	transcript := strings.Join(chunks, "\n\n")

	if a.cleaner != nil {
		cleaned, err := a.cleaner.Clean(ctx, transcript)
		if err != nil {
			// Per-chunk cleaning already ran; the raw join is usable.
			a.log.Warn("full transcript cleaning failed, using raw text", logging.Err(err))
		} else if strings.TrimSpace(cleaned) != "" {
			transcript = cleaned
		}
	}

	response, err := a.gen.Summarize(ctx, transcript)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", scrumerrors.ErrSummaryUnavailable, err)
	}

	sum := Parse(response)
	if len(sum.Participants) == 0 && len(streamParticipants) > 0 {
		a.log.Debug("no participants in response, using streaming fallback",
			logging.F("count", len(streamParticipants)))
		sum.Participants = append([]string{}, streamParticipants...)
	}

	sum.Duration = EstimateDuration(len(chunks))
	sum.GeneratedAt = time.Now()

	a.log.Info("summary generated",
		logging.F("chunks", len(chunks)),
		logging.F("decisions", len(sum.KeyDecisions)),
		logging.F("tasks", len(sum.Tasks)))

	return sum, nil
}
