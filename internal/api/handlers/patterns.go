package handlers

import (
	"net/http"

	"scamtrap-lab/internal/domain/services"
	"scamtrap-lab/pkg/logger"
)

// PatternsHandler serves the detection pattern catalog
type PatternsHandler struct {
	catalog *services.PatternCatalog
	logger  *logger.Logger
}

// NewPatternsHandler creates a new patterns handler
func NewPatternsHandler(catalog *services.PatternCatalog, log *logger.Logger) *PatternsHandler {
	return &PatternsHandler{
		catalog: catalog,
		logger:  log.WithComponent("patterns-handler"),
	}
}

// List handles GET /api/v1/patterns - returns the active detector catalog
func (h *PatternsHandler) List(w http.ResponseWriter, r *http.Request) {
	snapshot := h.catalog.Snapshot()

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"catalog": snapshot,
		"count":   len(snapshot.Detectors),
	})
}
