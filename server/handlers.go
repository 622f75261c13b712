package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/scrumlink/scrumlink/pkg/agent"
	"github.com/scrumlink/scrumlink/pkg/capture"
	pkgerrors "github.com/scrumlink/scrumlink/pkg/errors"
	"github.com/scrumlink/scrumlink/pkg/logging"
	"github.com/scrumlink/scrumlink/pkg/pipeline"
)

// Handlers contains the HTTP route handlers of the control surface.
type Handlers struct {
	manager *agent.Manager
	log     logging.Logger
}

type startRequest struct {
	MeetingURL string `json:"meeting_url"`
}

type chunkRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp,omitempty"`
}

type finalRequest struct {
	SessionID  string `json:"session_id"`
	Transcript string `json:"transcript,omitempty"`
}

type captionsRequest struct {
	Events []capture.Event `json:"events"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HandleStart handles POST /start_agent.
func (h *Handlers) HandleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snap, err := h.manager.Start(r.Context(), req.MeetingURL)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, snap)
}

// HandleStop handles POST /stop_agent/{id}.
func (h *Handlers) HandleStop(w http.ResponseWriter, r *http.Request) {
	snap, err := h.manager.Stop(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleStatus handles GET /agent_status/{id}.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := h.manager.Status(r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleSessions handles GET /sessions.
func (h *Handlers) HandleSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.manager.List()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// HandleChunk handles POST /api/transcript/chunk.
func (h *Handlers) HandleChunk(w http.ResponseWriter, r *http.Request) {
	var req chunkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	ts := time.Now()
	if req.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			writeError(w, http.StatusBadRequest, "timestamp must be RFC3339")
			return
		}
		ts = parsed
	}

	decision, err := h.manager.ProcessChunk(r.Context(), req.SessionID, req.Text, ts)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	resp := map[string]interface{}{
		"session_id": req.SessionID,
		"action":     actionString(decision.Action),
	}
	if decision.Question != "" {
		resp["question_text"] = decision.Question
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleFinal handles POST /api/transcript/final.
func (h *Handlers) HandleFinal(w http.ResponseWriter, r *http.Request) {
	var req finalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	snap, err := h.manager.FinalTranscript(r.Context(), req.SessionID, req.Transcript)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleHistory handles GET /api/session/{id}/history.
func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	hist, err := h.manager.SessionHistory(r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hist)
}

// HandleCleanup handles DELETE /api/session/{id}.
func (h *Handlers) HandleCleanup(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Cleanup(r.Context(), r.PathValue("id")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleCaptions handles POST /api/captions/{id}.
func (h *Handlers) HandleCaptions(w http.ResponseWriter, r *http.Request) {
	var req captionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Events) == 0 {
		writeError(w, http.StatusBadRequest, "events must not be empty")
		return
	}

	accepted, err := h.manager.PushCaptions(r.PathValue("id"), req.Events)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"accepted": accepted,
		"received": len(req.Events),
	})
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "ok",
		"active_sessions": len(h.manager.Store().Active()),
	})
}

// writeDomainError maps domain sentinel errors to HTTP status codes.
func (h *Handlers) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pkgerrors.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, pkgerrors.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, pkgerrors.ErrInvalidState):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.log.Error("request failed", logging.Err(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func actionString(a pipeline.Action) string {
	if a == pipeline.ActionAskQuestion {
		return "ask_question"
	}
	return "continue"
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
