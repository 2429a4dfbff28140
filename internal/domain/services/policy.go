package services

import (
	"scamtrap-lab/internal/config"
	"scamtrap-lab/internal/domain/models"
)

// Finalization reasons recorded on the session and surfaced in logs.
const (
	ReasonMaxMessages = "max_messages_reached"
	ReasonHighScore   = "high_confidence"
	ReasonHighValue   = "high_value_intelligence"
	ReasonManual      = "manual_finalize"
)

// EngagementPolicy decides when an active session has served its purpose.
// A session below MinMessages never finalizes automatically, whatever the
// confidence or the intelligence haul.
type EngagementPolicy struct {
	MinMessages        int
	MaxMessages        int
	HighConfidence     int
	ReportingThreshold int
}

// NewEngagementPolicy builds a policy from config, falling back to the
// standard engagement window when fields are unset.
func NewEngagementPolicy(cfg config.EngagementConfig) EngagementPolicy {
	p := EngagementPolicy{
		MinMessages:        cfg.MinMessages,
		MaxMessages:        cfg.MaxMessages,
		HighConfidence:     cfg.HighConfidence,
		ReportingThreshold: cfg.ReportingThreshold,
	}
	if p.MinMessages <= 0 {
		p.MinMessages = 8
	}
	if p.MaxMessages <= 0 {
		p.MaxMessages = 15
	}
	if p.HighConfidence <= 0 {
		p.HighConfidence = 80
	}
	if p.ReportingThreshold <= 0 {
		p.ReportingThreshold = 50
	}
	return p
}

// ShouldFinalize evaluates the finalization rules against a session and
// returns the triggering reason when one fires.
func (p EngagementPolicy) ShouldFinalize(s *models.Session) (bool, string) {
	if s.State != models.SessionActive {
		return false, ""
	}
	if s.MessageCount() < p.MinMessages {
		return false, ""
	}
	if s.MessageCount() >= p.MaxMessages {
		return true, ReasonMaxMessages
	}
	if s.Confidence >= p.HighConfidence {
		return true, ReasonHighScore
	}
	if s.Intelligence.HasHighValue() {
		return true, ReasonHighValue
	}
	return false, ""
}

// ScamDetected reports whether a session's cumulative confidence crosses the
// reporting threshold.
func (p EngagementPolicy) ScamDetected(confidence int) bool {
	return confidence >= p.ReportingThreshold
}
