package handlers

import (
	"net/http"

	"scamtrap-lab/internal/infrastructure/database/repository"
	"scamtrap-lab/pkg/logger"
)

// ReportsHandler serves the report journal. Only available when the service
// runs with a database.
type ReportsHandler struct {
	reports *repository.ReportRepository
	logger  *logger.Logger
}

// NewReportsHandler creates a new reports handler. reports may be nil when
// the journal is disabled.
func NewReportsHandler(reports *repository.ReportRepository, log *logger.Logger) *ReportsHandler {
	return &ReportsHandler{
		reports: reports,
		logger:  log.WithComponent("reports-handler"),
	}
}

// Failed handles GET /api/v1/reports/failed - lists sessions whose latest
// callback delivery failed, so operators can re-trigger them.
func (h *ReportsHandler) Failed(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		respondError(w, http.StatusServiceUnavailable, "report journal unavailable")
		return
	}

	failed, err := h.reports.FailedDeliveries(r.Context(), 100)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed deliveries query failed")
		respondError(w, http.StatusInternalServerError, "failed to query report journal")
		return
	}

	journaled, err := h.reports.JournaledReports(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("report count query failed")
		respondError(w, http.StatusInternalServerError, "failed to query report journal")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":           "success",
		"count":            len(failed),
		"failed":           failed,
		"journaledReports": journaled,
	})
}
