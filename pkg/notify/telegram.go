// Package notify delivers agent output to people: clarifying questions,
// status updates, and the final meeting report. Telegram is the primary
// channel; a console channel covers local runs.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/scrumlink/scrumlink/pkg/logging"
	"github.com/scrumlink/scrumlink/pkg/summary"
)

// DefaultAPIBase is the Telegram Bot API root.
const DefaultAPIBase = "https://api.telegram.org"

// Telegram sends messages through the Telegram Bot API.
type Telegram struct {
	apiBase    string
	token      string
	chatID     string
	httpClient *http.Client
	log        logging.Logger
}

// NewTelegram creates a Telegram channel for the given bot token and chat.
func NewTelegram(token, chatID string, log logging.Logger) *Telegram {
	return NewTelegramWithBase(DefaultAPIBase, token, chatID, log)
}

// NewTelegramWithBase creates a Telegram channel against a custom API
// base. Tests point this at a local server.
func NewTelegramWithBase(apiBase, token, chatID string, log logging.Logger) *Telegram {
	return &Telegram{
		apiBase:    apiBase,
		token:      token,
		chatID:     chatID,
		httpClient: &http.Client{},
		log:        log,
	}
}

// sendMessageRequest is the Bot API sendMessage payload.
type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

// apiResponse is the Bot API response envelope.
type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// send posts one message. parseMode may be empty for plain text.
func (t *Telegram) send(ctx context.Context, text, parseMode string) error {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:    t.chatID,
		Text:      text,
		ParseMode: parseMode,
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var api apiResponse
	if err := json.Unmarshal(respBody, &api); err != nil {
		return fmt.Errorf("parse response (HTTP %d): %w", resp.StatusCode, err)
	}
	if !api.OK {
		return fmt.Errorf("telegram API error (HTTP %d): %s", resp.StatusCode, api.Description)
	}

	return nil
}

// SendStatus delivers a plain status line.
func (t *Telegram) SendStatus(ctx context.Context, text string) error {
	return t.send(ctx, text, "")
}

// NotifyQuestion delivers a clarifying question to the chat.
func (t *Telegram) NotifyQuestion(ctx context.Context, sessionID, question string) error {
	text := fmt.Sprintf("❓ *Вопрос от AI Scrum Master:*\n\n%s", question)
	if err := t.send(ctx, text, "Markdown"); err != nil {
		return err
	}

	t.log.Info("question sent to telegram", logging.F("session_id", sessionID))
	return nil
}

// SendSummary delivers the final meeting report.
func (t *Telegram) SendSummary(ctx context.Context, sessionID string, sum *summary.Summary) error {
	if err := t.send(ctx, sum.Report(sessionID), "Markdown"); err != nil {
		return err
	}

	t.log.Info("summary sent to telegram", logging.F("session_id", sessionID))
	return nil
}
