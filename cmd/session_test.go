package cmd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrumlink/scrumlink/pkg/session"
)

// fakeAgent stands in for the serve process during command tests.
func fakeAgent(t *testing.T, handler http.HandlerFunc) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	t.Setenv("SCRUMLINK_CONFIG_DIR", t.TempDir())
	t.Setenv("SCRUMLINK_SERVER_ADDRESS", ts.URL)
}

func TestStartCommand(t *testing.T) {
	var gotPath string
	fakeAgent(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(session.Snapshot{
			ID:         "sess-1",
			MeetingURL: "https://meet.google.com/abc-defg-hij",
			Status:     session.StatusInitializing,
		})
	})

	err := runStart(StartCmd, []string{"https://meet.google.com/abc-defg-hij"})
	require.NoError(t, err)
	assert.Equal(t, "/start_agent", gotPath)
}

func TestStartCommandUnreachableAgent(t *testing.T) {
	t.Setenv("SCRUMLINK_CONFIG_DIR", t.TempDir())
	t.Setenv("SCRUMLINK_SERVER_ADDRESS", "http://127.0.0.1:1")

	err := runStart(StartCmd, []string{"https://meet.google.com/abc-defg-hij"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent unreachable")
}

func TestStopCommand(t *testing.T) {
	fakeAgent(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stop_agent/sess-1", r.URL.Path)
		_ = json.NewEncoder(w).Encode(session.Snapshot{
			ID:     "sess-1",
			Status: session.StatusStopped,
		})
	})

	require.NoError(t, runStop(StopCmd, []string{"sess-1"}))
}

func TestStatusCommand(t *testing.T) {
	fakeAgent(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/agent_status/sess-1", r.URL.Path)
		_ = json.NewEncoder(w).Encode(session.Snapshot{
			ID:     "sess-1",
			Status: session.StatusActive,
		})
	})

	require.NoError(t, runStatus(StatusCmd, []string{"sess-1"}))
}

func TestStatusCommandNotFound(t *testing.T) {
	fakeAgent(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"session not found"}`))
	})

	err := runStatus(StatusCmd, []string{"missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session not found")
}

func TestSessionsCommand(t *testing.T) {
	fakeAgent(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sessions", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"sessions": []session.Snapshot{{ID: "a", Status: session.StatusActive}},
			"count":    1,
		})
	})

	require.NoError(t, runSessions(SessionsCmd, nil))
}

func TestVersionCommand(t *testing.T) {
	require.NoError(t, VersionCmd.RunE(VersionCmd, nil))
}
