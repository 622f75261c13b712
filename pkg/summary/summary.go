// Package summary turns a finished session's transcript into a structured
// meeting report. The intelligence service answers in loosely structured
// Russian markdown; the parser here tolerates header variants, markdown
// wrapping, and entirely free-form responses.
package summary

import (
	"fmt"
	"strings"
	"time"
)

// Summary is the structured result of finalizing a session.
type Summary struct {
	// Participants are the meeting participants, either parsed from the
	// response or falling back to the speakers observed in the stream.
	Participants []string `json:"participants"`

	// KeyDecisions lists decisions made during the meeting.
	KeyDecisions []string `json:"key_decisions"`

	// Tasks lists action items and assignments.
	Tasks []string `json:"tasks"`

	// QuestionsDiscussed lists questions raised during the meeting.
	QuestionsDiscussed []string `json:"questions_discussed"`

	// SummaryText is the free-form overall summary.
	SummaryText string `json:"summary_text"`

	// Duration is a rough human-readable meeting length estimate.
	Duration string `json:"duration"`

	// GeneratedAt is when the summary was produced.
	GeneratedAt time.Time `json:"generated_at"`
}

// EstimateDuration derives a rough meeting length from the number of
// processed chunks. A chunk covers about five minutes of speech.
func EstimateDuration(chunkCount int) string {
	return fmt.Sprintf("~%d минут", chunkCount*5)
}

// Report renders the summary as a Telegram-ready Markdown message.
func (s *Summary) Report(sessionID string) string {
	shortID := sessionID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}

	bullets := func(items []string, placeholder string) string {
		if len(items) == 0 {
			return placeholder
		}
		lines := make([]string, len(items))
		for i, item := range items {
			lines[i] = "• " + item
		}
		return strings.Join(lines, "\n")
	}

	return fmt.Sprintf(`🤖 *AI Scrum Master - Сводка Совещания*

📅 Сессия: `+"`%s`"+`
⏱ Длительность: %s

👥 *Участники:*
%s

🎯 *Ключевые Решения:*
%s

✅ *Задачи и Действия:*
%s

❓ *Обсуждённые Вопросы:*
%s

📝 *Сводка:*
%s`,
		shortID,
		s.Duration,
		bullets(s.Participants, "• Участники не определены"),
		bullets(s.KeyDecisions, "• Нет принятых решений"),
		bullets(s.Tasks, "• Задачи не назначены"),
		bullets(s.QuestionsDiscussed, "• Вопросы не обсуждались"),
		orDefault(s.SummaryText, "Сводка не сгенерирована"),
	)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
