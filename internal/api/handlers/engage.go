package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"scamtrap-lab/internal/domain/models"
	"scamtrap-lab/internal/domain/services"
	"scamtrap-lab/pkg/logger"
)

// EngageHandler handles the main scammer message ingestion endpoint
type EngageHandler struct {
	engagement *services.EngagementService
	logger     *logger.Logger
}

// NewEngageHandler creates a new engage handler
func NewEngageHandler(engagement *services.EngagementService, log *logger.Logger) *EngageHandler {
	return &EngageHandler{
		engagement: engagement,
		logger:     log.WithComponent("engage-handler"),
	}
}

// Engage handles POST /api/v1/engage - scores an incoming scammer message,
// appends it to the session, and returns the honeypot agent's reply.
func (h *EngageHandler) Engage(w http.ResponseWriter, r *http.Request) {
	var req models.EngageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debug().Err(err).Msg("invalid request body")
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.SessionID) == "" {
		respondError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	if strings.TrimSpace(req.Message.Text) == "" {
		respondError(w, http.StatusBadRequest, "message.text is required")
		return
	}

	resp, err := h.engagement.HandleMessage(r.Context(), &req)
	if err != nil {
		h.logger.Error().Err(err).Str("session_id", req.SessionID).Msg("engage failed")
		respondError(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	h.logger.Info().
		Str("session_id", resp.SessionID).
		Bool("scam_detected", resp.ScamDetected).
		Int("confidence", resp.Confidence).
		Str("state", string(resp.State)).
		Msg("message engaged")

	respondJSON(w, http.StatusOK, resp)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, models.ErrorResponse{Status: "error", Error: message})
}
