package handlers

import (
	"net/http"

	"scamtrap-lab/internal/domain/models"
	"scamtrap-lab/internal/domain/services"
	"scamtrap-lab/pkg/logger"
)

// StatsHandler serves aggregate service statistics
type StatsHandler struct {
	store      *services.SessionStore
	engagement *services.EngagementService
	logger     *logger.Logger
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(store *services.SessionStore, engagement *services.EngagementService, log *logger.Logger) *StatsHandler {
	return &StatsHandler{
		store:      store,
		engagement: engagement,
		logger:     log.WithComponent("stats-handler"),
	}
}

// StatsResponse is the aggregate statistics body
type StatsResponse struct {
	Status            string `json:"status"`
	TotalSessions     int    `json:"totalSessions"`
	ActiveSessions    int    `json:"activeSessions"`
	FinalizedSessions int    `json:"finalizedSessions"`
	ScamsDetected     int    `json:"scamsDetected"`
	ReportsDelivered  int    `json:"reportsDelivered"`
	ReportsFailed     int    `json:"reportsFailed"`
	ReportsPending    int    `json:"reportsPending"`
}

// Get handles GET /api/v1/stats - returns session and delivery counters
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	active, finalized := h.store.Counts()

	resp := StatsResponse{
		Status:            "success",
		TotalSessions:     active + finalized,
		ActiveSessions:    active,
		FinalizedSessions: finalized,
	}

	for _, s := range h.store.List(h.engagement.Policy().ReportingThreshold) {
		if s.ScamDetected {
			resp.ScamsDetected++
		}
		switch s.Delivery {
		case models.DeliveryDelivered:
			resp.ReportsDelivered++
		case models.DeliveryFailed:
			resp.ReportsFailed++
		case models.DeliveryPending:
			resp.ReportsPending++
		}
	}

	respondJSON(w, http.StatusOK, resp)
}
