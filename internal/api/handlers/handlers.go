package handlers

import (
	"scamtrap-lab/internal/domain/services"
	"scamtrap-lab/internal/infrastructure/cache"
	"scamtrap-lab/internal/infrastructure/database"
	"scamtrap-lab/internal/infrastructure/database/repository"
	"scamtrap-lab/pkg/logger"
)

// Handlers aggregates all HTTP handlers
type Handlers struct {
	Health   *HealthHandler
	Engage   *EngageHandler
	Sessions *SessionsHandler
	Patterns *PatternsHandler
	Stats    *StatsHandler
	Reports  *ReportsHandler
}

// Dependencies contains everything the handlers need
type Dependencies struct {
	Engagement *services.EngagementService
	Store      *services.SessionStore
	Catalog    *services.PatternCatalog
	Reports    *repository.ReportRepository
	Cache      *cache.RedisCache
	DB         *database.PostgresDB
	Logger     *logger.Logger
}

// NewHandlers creates all handlers with their dependencies
func NewHandlers(deps Dependencies) *Handlers {
	return &Handlers{
		Health:   NewHealthHandler(deps.Cache, deps.DB, deps.Logger),
		Engage:   NewEngageHandler(deps.Engagement, deps.Logger),
		Sessions: NewSessionsHandler(deps.Engagement, deps.Store, deps.Cache, deps.Logger),
		Patterns: NewPatternsHandler(deps.Catalog, deps.Logger),
		Stats:    NewStatsHandler(deps.Store, deps.Engagement, deps.Logger),
		Reports:  NewReportsHandler(deps.Reports, deps.Logger),
	}
}
