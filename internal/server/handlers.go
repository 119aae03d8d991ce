package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ai-anxiety-coach/server/internal/assessment"
	"github.com/ai-anxiety-coach/server/internal/coach/session"
	errx "github.com/ai-anxiety-coach/server/internal/core/error"
	logx "github.com/ai-anxiety-coach/server/pkg/logger"
)

const maxBodyBytes = 64 * 1024

type handlers struct {
	svc *session.Service
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"llm":    h.svc.Mode(),
	})
}

func (h *handlers) questionnaire(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, assessment.Intake())
}

func (h *handlers) createSession(w http.ResponseWriter, r *http.Request) {
	state, err := h.svc.Create(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, state)
}

func (h *handlers) getSession(w http.ResponseWriter, r *http.Request) {
	state, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *handlers) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Reset(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) submitAssessment(w http.ResponseWriter, r *http.Request) {
	var body session.AssessmentInput
	if !decodeBody(w, r, &body) {
		return
	}
	state, err := h.svc.SubmitAssessment(r.Context(), r.PathValue("id"), body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *handlers) listMessages(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.Transcript(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": entries})
}

func (h *handlers) sendMessage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	turn, err := h.svc.SendMessage(r.Context(), r.PathValue("id"), body.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, turn)
}

func (h *handlers) summarize(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ConfirmedIntensity *int `json:"confirmed_intensity"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	state, err := h.svc.Summarize(r.Context(), r.PathValue("id"), body.ConfirmedIntensity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *handlers) actions(w http.ResponseWriter, r *http.Request) {
	cards, err := h.svc.Actions(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"actions": cards})
}

func (h *handlers) recordOutcome(w http.ResponseWriter, r *http.Request) {
	var body session.OutcomeInput
	if !decodeBody(w, r, &body) {
		return
	}
	outcome, err := h.svc.RecordOutcome(r.Context(), r.PathValue("id"), body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// decodeBody reads a JSON body; an empty body leaves dst untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeError(w, errx.Validation("invalid json body"))
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logx.Warn().Str("component", "http").Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := errx.StatusOf(err)
	if status >= http.StatusInternalServerError {
		logx.Error().Str("component", "http").Err(err).Int("status", status).Msg("request failed")
	}
	writeJSON(w, status, map[string]string{"error": errx.MessageOf(err)})
}
