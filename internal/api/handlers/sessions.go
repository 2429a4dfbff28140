package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"scamtrap-lab/internal/domain/models"
	"scamtrap-lab/internal/domain/services"
	"scamtrap-lab/internal/infrastructure/cache"
	"scamtrap-lab/pkg/logger"
)

// SessionsHandler handles session inspection and lifecycle endpoints
type SessionsHandler struct {
	engagement *services.EngagementService
	store      *services.SessionStore
	cache      *cache.RedisCache
	logger     *logger.Logger
}

// NewSessionsHandler creates a new sessions handler
func NewSessionsHandler(engagement *services.EngagementService, store *services.SessionStore, cache *cache.RedisCache, log *logger.Logger) *SessionsHandler {
	return &SessionsHandler{
		engagement: engagement,
		store:      store,
		cache:      cache,
		logger:     log.WithComponent("sessions-handler"),
	}
}

// List handles GET /api/v1/sessions - lists all sessions, newest first
func (h *SessionsHandler) List(w http.ResponseWriter, r *http.Request) {
	summaries := h.store.List(h.engagement.Policy().ReportingThreshold)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "success",
		"count":    len(summaries),
		"sessions": summaries,
	})
}

// snapshotTTL bounds how stale a cached session view can get.
const snapshotTTL = 30 * time.Second

// Get handles GET /api/v1/sessions/{id} - returns a full session snapshot.
// Reads go through the Redis snapshot cache when one is configured.
func (h *SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	if h.cache != nil {
		var cached models.Session
		if err := h.cache.GetCachedSession(r.Context(), sessionID, &cached); err == nil {
			respondJSON(w, http.StatusOK, cached)
			return
		}
	}

	sess, err := h.store.Snapshot(sessionID)
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			respondError(w, http.StatusNotFound, "session not found")
			return
		}
		h.logger.Error().Err(err).Str("session_id", sessionID).Msg("snapshot failed")
		respondError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	if h.cache != nil {
		if err := h.cache.CacheSessionSnapshot(r.Context(), sessionID, sess, snapshotTTL); err != nil {
			h.logger.Debug().Err(err).Str("session_id", sessionID).Msg("session cache write failed")
		}
	}

	respondJSON(w, http.StatusOK, sess)
}

// Finalize handles POST /api/v1/sessions/{id}/finalize - forces a session
// into FINALIZED state and dispatches its report. Idempotent: an already
// finalized session returns its existing report, re-queued only if the
// previous delivery failed.
func (h *SessionsHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	report, err := h.engagement.Finalize(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			respondError(w, http.StatusNotFound, "session not found")
			return
		}
		h.logger.Error().Err(err).Str("session_id", sessionID).Msg("finalize failed")
		respondError(w, http.StatusInternalServerError, "failed to finalize session")
		return
	}

	if h.cache != nil {
		if err := h.cache.DeleteCachedSession(r.Context(), sessionID); err != nil {
			h.logger.Debug().Err(err).Str("session_id", sessionID).Msg("session cache delete failed")
		}
	}

	h.logger.Info().Str("session_id", sessionID).Msg("session finalized manually")

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"report": report,
	})
}

// Delete handles DELETE /api/v1/sessions/{id} - removes a session and its
// cached snapshot
func (h *SessionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	if !h.store.Delete(sessionID) {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}

	if h.cache != nil {
		if err := h.cache.DeleteCachedSession(r.Context(), sessionID); err != nil {
			h.logger.Debug().Err(err).Str("session_id", sessionID).Msg("session cache delete failed")
		}
	}

	h.logger.Info().Str("session_id", sessionID).Msg("session deleted")

	respondJSON(w, http.StatusOK, map[string]string{
		"status":    "success",
		"sessionId": sessionID,
	})
}
