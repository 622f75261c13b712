package intelligence

import (
	"context"
	"fmt"
	"strings"

	"github.com/scrumlink/scrumlink/config"
	"github.com/scrumlink/scrumlink/pkg/logging"
	"github.com/scrumlink/scrumlink/pkg/observability"
)

// gateContextChunks is how many trailing chunks are sent as conversation
// context with each gating request.
const gateContextChunks = 3

const cleanPromptTemplate = `Исправьте орфографические и грамматические ошибки в следующем русском тексте, который был получен через speech-to-text.
Сохраните смысл и структуру текста, исправьте только очевидные ошибки распознавания речи.

Текст: %s

Верните только исправленный текст без дополнительных комментариев.`

const gatePromptTemplate = `Вы - AI Scrum Master на совещании. Проанализируйте текущий фрагмент разговора и контекст предыдущих сообщений.

Предыдущий контекст:
%s

Текущий фрагмент:
%s

Вопросов уже задано: %d/%d

Определите, есть ли что-то неясное или требующее уточнения. Задавайте вопрос ТОЛЬКО если:
1. Есть явная неопределенность в принятии решения
2. Обсуждается важная техническая деталь без конкретики
3. Назначаются ответственные, но неясно кто именно

Ответьте в формате:
НУЖЕН_ВОПРОС: Да/Нет
ВОПРОС: [если да, то краткий вопрос на русском языке]`

const summarizePromptTemplate = `Проанализируй транскрипт совещания и верни ТОЛЬКО структурированную сводку в точном формате ниже. НЕ добавляй рассуждения, объяснения или дополнительный текст.

Транскрипт:
%s

ВЕРНИ ОТВЕТ СТРОГО В ЭТОМ ФОРМАТЕ:

УЧАСТНИКИ: [имена участников через запятую, извлеченные из транскрипта]

КЛЮЧЕВЫЕ_РЕШЕНИЯ:
- [решение 1]
- [решение 2]

ЗАДАЧИ_И_ДЕЙСТВИЯ:
- [задача 1 - ответственный]
- [задача 2 - ответственный]

ВОПРОСЫ_ОБСУЖДЕННЫЕ:
- [вопрос 1]
- [вопрос 2]

ОБЩАЯ_СВОДКА:
[краткая сводка совещания в 2-3 предложениях]

ВАЖНО: Начни свой ответ сразу с "УЧАСТНИКИ:" без предисловия.`

// GateResult is the outcome of a question-gating call.
type GateResult struct {
	// NeedsQuestion reports whether the model wants to interject.
	NeedsQuestion bool
	// Question is the clarifying question text, empty when none.
	Question string
}

// Metrics receives per-call latencies. The observability package
// implements it.
type Metrics interface {
	RecordIntelligenceLatency(operation string, seconds float64)
}

// Service exposes the three intelligence operations the agent needs:
// per-chunk cleaning, question gating, and the final summary. Each
// operation gets its own deadline from configuration.
type Service struct {
	provider Provider
	cfg      config.IntelligenceConfig
	metrics  Metrics
	tracer   *observability.Tracer
	log      logging.Logger
}

// NewService creates a Service on top of a provider. metrics may be nil.
func NewService(provider Provider, cfg config.IntelligenceConfig, metrics Metrics, log logging.Logger) *Service {
	return &Service{
		provider: provider,
		cfg:      cfg,
		metrics:  metrics,
		tracer:   observability.NewTracer(),
		log:      log,
	}
}

// complete runs one provider call under a span and records its latency.
func (s *Service) complete(ctx context.Context, operation string, req CompletionRequest) (*CompletionResponse, error) {
	ctx, span := s.tracer.StartIntelligenceSpan(ctx, operation, s.cfg.Model)
	defer span.End()
	helper := observability.NewSpanHelper(span)

	resp, err := s.provider.Complete(ctx, req)
	if err != nil {
		helper.SetError(err)
		return nil, err
	}

	helper.SetSuccess()
	if s.metrics != nil {
		s.metrics.RecordIntelligenceLatency(operation, float64(resp.LatencyMs)/1000)
	}
	return resp, nil
}

// Clean fixes speech-to-text artifacts in a chunk of Russian transcript.
func (s *Service) Clean(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.CleanTimeout.Std())
	defer cancel()

	resp, err := s.complete(ctx, "clean", CompletionRequest{
		Prompt: fmt.Sprintf(cleanPromptTemplate, text),
	})
	if err != nil {
		return "", fmt.Errorf("cleaning chunk: %w", err)
	}

	cleaned := strings.TrimSpace(resp.Content)
	if cleaned == "" {
		return "", fmt.Errorf("cleaning chunk: empty response")
	}

	s.log.Debug("chunk cleaned",
		logging.F("latency_ms", resp.LatencyMs),
		logging.F("tokens", resp.TokensUsed.Total))

	return cleaned, nil
}

// Gate decides whether a clarifying question should be asked for the
// current chunk. history holds earlier cleaned chunks; only the last few
// are sent as context. When the quota is already spent the call is skipped
// entirely.
func (s *Service) Gate(ctx context.Context, currentChunk string, history []string, questionsAsked, quota int) (GateResult, error) {
	if questionsAsked >= quota {
		return GateResult{}, nil
	}

	if len(history) > gateContextChunks {
		history = history[len(history)-gateContextChunks:]
	}
	contextText := strings.Join(history, "\n")

	ctx, cancel := context.WithTimeout(ctx, s.cfg.GateTimeout.Std())
	defer cancel()

	resp, err := s.complete(ctx, "gate", CompletionRequest{
		Prompt: fmt.Sprintf(gatePromptTemplate, contextText, currentChunk, questionsAsked, quota),
	})
	if err != nil {
		return GateResult{}, fmt.Errorf("gating chunk: %w", err)
	}

	result := parseGateResponse(resp.Content)
	s.log.Debug("gate decision",
		logging.F("needs_question", result.NeedsQuestion),
		logging.F("latency_ms", resp.LatencyMs))

	return result, nil
}

// parseGateResponse extracts the decision from the marker lines. Lines the
// model adds around the markers are ignored.
func parseGateResponse(content string) GateResult {
	var result GateResult
	for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "НУЖЕН_ВОПРОС:"):
			result.NeedsQuestion = strings.Contains(line, "Да")
		case strings.HasPrefix(line, "ВОПРОС:"):
			result.Question = strings.TrimSpace(strings.TrimPrefix(line, "ВОПРОС:"))
		}
	}
	return result
}

// Summarize produces the raw structured summary text for a transcript.
// It implements summary.Generator.
func (s *Service) Summarize(ctx context.Context, transcript string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.SummarizeTimeout.Std())
	defer cancel()

	resp, err := s.complete(ctx, "summarize", CompletionRequest{
		Prompt: fmt.Sprintf(summarizePromptTemplate, transcript),
	})
	if err != nil {
		return "", fmt.Errorf("summarizing transcript: %w", err)
	}

	s.log.Info("summary response received",
		logging.F("latency_ms", resp.LatencyMs),
		logging.F("tokens", resp.TokensUsed.Total))

	return resp.Content, nil
}
