package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrumlink/scrumlink/pkg/logging"
	"github.com/scrumlink/scrumlink/pkg/summary"
)

func telegramTestServer(t *testing.T, reply string) (*httptest.Server, *[]sendMessageRequest) {
	t.Helper()
	var got []sendMessageRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottest-token/sendMessage", r.URL.Path)

		var req sendMessageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		got = append(got, req)

		_, _ = w.Write([]byte(reply))
	}))

	return srv, &got
}

func TestTelegram_NotifyQuestion(t *testing.T) {
	srv, got := telegramTestServer(t, `{"ok": true}`)
	defer srv.Close()

	tg := NewTelegramWithBase(srv.URL, "test-token", "2036883627", logging.NewNopLogger())

	err := tg.NotifyQuestion(context.Background(), "s-1", "Кто берет задачу?")
	require.NoError(t, err)

	require.Len(t, *got, 1)
	req := (*got)[0]
	assert.Equal(t, "2036883627", req.ChatID)
	assert.Contains(t, req.Text, "Вопрос от AI Scrum Master")
	assert.Contains(t, req.Text, "Кто берет задачу?")
	assert.Equal(t, "Markdown", req.ParseMode)
}

func TestTelegram_SendSummary(t *testing.T) {
	srv, got := telegramTestServer(t, `{"ok": true}`)
	defer srv.Close()

	tg := NewTelegramWithBase(srv.URL, "test-token", "2036883627", logging.NewNopLogger())

	sum := &summary.Summary{
		Participants: []string{"Анна"},
		Duration:     "~5 минут",
		SummaryText:  "Все обсудили.",
	}
	require.NoError(t, tg.SendSummary(context.Background(), "1c9e8a77-full-id", sum))

	require.Len(t, *got, 1)
	assert.Contains(t, (*got)[0].Text, "Сводка Совещания")
	assert.Contains(t, (*got)[0].Text, "`1c9e8a77`")
	assert.Equal(t, "Markdown", (*got)[0].ParseMode)
}

func TestTelegram_SendStatus_PlainText(t *testing.T) {
	srv, got := telegramTestServer(t, `{"ok": true}`)
	defer srv.Close()

	tg := NewTelegramWithBase(srv.URL, "test-token", "42", logging.NewNopLogger())

	require.NoError(t, tg.SendStatus(context.Background(), "🟢 Агент успешно присоединился к звонку!"))

	require.Len(t, *got, 1)
	assert.Empty(t, (*got)[0].ParseMode)
}

func TestTelegram_APIError(t *testing.T) {
	srv, _ := telegramTestServer(t, `{"ok": false, "description": "Bad Request: chat not found"}`)
	defer srv.Close()

	tg := NewTelegramWithBase(srv.URL, "test-token", "42", logging.NewNopLogger())

	err := tg.SendStatus(context.Background(), "текст")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestTelegram_ServerUnreachable(t *testing.T) {
	srv, _ := telegramTestServer(t, `{"ok": true}`)
	srv.Close()

	tg := NewTelegramWithBase(srv.URL, "test-token", "42", logging.NewNopLogger())
	assert.Error(t, tg.SendStatus(context.Background(), "текст"))
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	require.NoError(t, c.SendStatus(context.Background(), "🟡 Агент запускает браузер..."))
	require.NoError(t, c.NotifyQuestion(context.Background(), "1c9e8a77-full-id", "Какой дедлайн?"))
	require.NoError(t, c.SendSummary(context.Background(), "s-1", &summary.Summary{Duration: "~5 минут"}))

	out := buf.String()
	assert.Contains(t, out, "🟡 Агент запускает браузер...")
	assert.Contains(t, out, "❓ [1c9e8a77] Какой дедлайн?")
	assert.Contains(t, out, "Сводка Совещания")
}
