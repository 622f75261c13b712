// Package client provides the HTTP client for the agent's control
// surface. It is used by the CLI commands and the status poller.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/scrumlink/scrumlink/pkg/errors"
	"github.com/scrumlink/scrumlink/pkg/session"
)

// Default client settings.
const (
	DefaultRequestTimeout = 30 * time.Second
)

// Options configures the Client.
type Options struct {
	// RequestTimeout bounds a single HTTP request. Per-call contexts
	// still apply on top of it.
	RequestTimeout time.Duration

	// HTTPClient overrides the underlying transport, mainly for tests.
	HTTPClient *http.Client
}

// DefaultOptions returns Options with default values.
func DefaultOptions() *Options {
	return &Options{
		RequestTimeout: DefaultRequestTimeout,
	}
}

// Client talks to the agent API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client for the agent at baseURL.
func New(baseURL string, opts *Options) *Client {
	if opts == nil {
		opts = DefaultOptions()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.RequestTimeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// SessionList is the response of the sessions listing endpoint.
type SessionList struct {
	Sessions []session.Snapshot `json:"sessions"`
	Count    int                `json:"count"`
}

// ChunkResult is the response of a transcript chunk submission. Action is
// "ask_question" or "continue".
type ChunkResult struct {
	SessionID string `json:"session_id"`
	Action    string `json:"action"`
	Question  string `json:"question_text,omitempty"`
}

// Health is the response of the health endpoint.
type Health struct {
	Status         string `json:"status"`
	ActiveSessions int    `json:"active_sessions"`
}

type apiError struct {
	Error string `json:"error"`
}

// Start asks the agent to join a meeting.
func (c *Client) Start(ctx context.Context, meetingURL string) (session.Snapshot, error) {
	var snap session.Snapshot
	err := c.do(ctx, http.MethodPost, "/start_agent",
		map[string]string{"meeting_url": meetingURL}, &snap)
	return snap, err
}

// Stop ends a session and returns its final snapshot.
func (c *Client) Stop(ctx context.Context, sessionID string) (session.Snapshot, error) {
	var snap session.Snapshot
	err := c.do(ctx, http.MethodPost, "/stop_agent/"+sessionID, nil, &snap)
	return snap, err
}

// Status returns the current snapshot of a session.
func (c *Client) Status(ctx context.Context, sessionID string) (session.Snapshot, error) {
	var snap session.Snapshot
	err := c.do(ctx, http.MethodGet, "/agent_status/"+sessionID, nil, &snap)
	return snap, err
}

// FetchStatus implements the poller's status source. The full snapshot is
// returned so the poller can relay clarifying questions alongside status
// changes.
func (c *Client) FetchStatus(ctx context.Context, sessionID string) (session.Snapshot, error) {
	return c.Status(ctx, sessionID)
}

// Sessions lists all sessions the agent knows about.
func (c *Client) Sessions(ctx context.Context) (SessionList, error) {
	var list SessionList
	err := c.do(ctx, http.MethodGet, "/sessions", nil, &list)
	return list, err
}

// SendChunk submits an externally flushed transcript chunk.
func (c *Client) SendChunk(ctx context.Context, sessionID, text string) (ChunkResult, error) {
	var result ChunkResult
	err := c.do(ctx, http.MethodPost, "/api/transcript/chunk",
		map[string]string{"session_id": sessionID, "text": text}, &result)
	return result, err
}

// SendFinal submits the final transcript tail and finalizes the session.
func (c *Client) SendFinal(ctx context.Context, sessionID, transcript string) (session.Snapshot, error) {
	var snap session.Snapshot
	err := c.do(ctx, http.MethodPost, "/api/transcript/final",
		map[string]string{"session_id": sessionID, "transcript": transcript}, &snap)
	return snap, err
}

// Cleanup removes a session from the agent.
func (c *Client) Cleanup(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodDelete, "/api/session/"+sessionID, nil, nil)
}

// Healthz checks agent liveness.
func (c *Client) Healthz(ctx context.Context) (Health, error) {
	var health Health
	err := c.do(ctx, http.MethodGet, "/healthz", nil, &health)
	return health, err
}

// do performs one JSON request/response round trip.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("agent unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.decodeError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// decodeError turns an error response back into a domain error where the
// status code identifies one.
func (c *Client) decodeError(resp *http.Response) error {
	var apiErr apiError
	msg := resp.Status
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
		msg = apiErr.Error
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", pkgerrors.ErrSessionNotFound, msg)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", pkgerrors.ErrValidation, msg)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", pkgerrors.ErrInvalidState, msg)
	default:
		return fmt.Errorf("agent returned %d: %s", resp.StatusCode, msg)
	}
}
