// Package api provides HTTP handlers for Cora Onboarding endpoints.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/corahq/cora-onboarding/internal/flow"
	"github.com/corahq/cora-onboarding/internal/models"
)

// sessionView is the response body for GET /onboarding/session.
type sessionView struct {
	ParticipantID string               `json:"participant_id"`
	Phase         models.Phase         `json:"phase"`
	StepIndex     int                  `json:"step_index"`
	Data          models.ExtractedData `json:"data"`
}

func (s *Server) startHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.startHandler: processing start request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.startHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req models.StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.startHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.startHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	result, err := s.engine(req.ParticipantID).Start(r.Context(), req.Resume)
	if err != nil {
		slog.Error("Server.startHandler: failed to start session", "error", err, "participantID", req.ParticipantID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to start onboarding session"))
		return
	}

	slog.Info("Server.startHandler: session started", "participantID", req.ParticipantID, "resumed", result.Resumed)
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

func (s *Server) textHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.textHandler: processing text answer", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.textHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req models.TextAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.textHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.textHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	result, err := s.engine(req.ParticipantID).SubmitText(r.Context(), req.Answer)
	if err != nil {
		s.writeEngineError(w, err, req.ParticipantID)
		return
	}
	s.writeStepResult(w, result)
}

func (s *Server) choicesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.choicesHandler: processing choice answer", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.choicesHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req models.ChoiceAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.choicesHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.choicesHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	result, err := s.engine(req.ParticipantID).SubmitChoices(r.Context(), req.Values)
	if err != nil {
		s.writeEngineError(w, err, req.ParticipantID)
		return
	}
	s.writeStepResult(w, result)
}

func (s *Server) sessionHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.sessionHandler: processing session request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		slog.Warn("Server.sessionHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	participantID := r.URL.Query().Get("participant_id")
	if participantID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(models.ErrEmptyParticipantID.Error()))
		return
	}

	engine, ok := s.lookupEngine(participantID)
	if !ok {
		writeJSONResponse(w, http.StatusNotFound, models.Error("No active onboarding session"))
		return
	}

	view := sessionView{
		ParticipantID: participantID,
		Phase:         engine.Phase(),
		StepIndex:     engine.StepIndex(),
		Data:          engine.Data(),
	}
	writeJSONResponse(w, http.StatusOK, models.Success(view))
}

func (s *Server) transcriptHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.transcriptHandler: processing transcript request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		slog.Warn("Server.transcriptHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	participantID := r.URL.Query().Get("participant_id")
	if participantID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(models.ErrEmptyParticipantID.Error()))
		return
	}

	if engine, ok := s.lookupEngine(participantID); ok {
		writeJSONResponse(w, http.StatusOK, models.Success(engine.Transcript()))
		return
	}

	// No live engine; fall back to the persisted transcript.
	if s.st != nil {
		entries, err := s.st.GetConversation(participantID)
		if err != nil {
			slog.Error("Server.transcriptHandler: failed to fetch transcript", "error", err, "participantID", participantID)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch transcript"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(entries))
		return
	}
	writeJSONResponse(w, http.StatusNotFound, models.Error("No transcript available"))
}

// writeStepResult renders an engine step, distinguishing completion from an
// ordinary advance.
func (s *Server) writeStepResult(w http.ResponseWriter, result *flow.StepResult) {
	if result.Completion != nil {
		writeJSONResponse(w, http.StatusOK, models.Completed(result.Completion.Message, result))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

// writeEngineError maps engine errors to HTTP statuses: input problems are
// the client's fault, everything else is internal.
func (s *Server) writeEngineError(w http.ResponseWriter, err error, participantID string) {
	switch {
	case errors.Is(err, models.ErrEmptyAnswer),
		errors.Is(err, models.ErrNoSelections),
		errors.Is(err, flow.ErrUnknownSelection),
		errors.Is(err, flow.ErrSingleSelection):
		slog.Warn("Server: rejected answer", "error", err, "participantID", participantID)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
	case errors.Is(err, flow.ErrFlowCompleted):
		slog.Warn("Server: answer after completion", "error", err, "participantID", participantID)
		writeJSONResponse(w, http.StatusConflict, models.Error(err.Error()))
	default:
		slog.Error("Server: engine operation failed", "error", err, "participantID", participantID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to process answer"))
	}
}
