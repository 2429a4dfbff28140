package streaming

import (
	"time"

	"github.com/google/uuid"

	"scamtrap-lab/internal/domain/models"
)

// EventType represents the type of session event
type EventType string

const (
	EventTypeScamDetected     EventType = "scam_detected"
	EventTypeSessionFinalized EventType = "session_finalized"
)

// SessionEvent is a real-time session lifecycle event.
type SessionEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"sessionId"`

	// Scam detection details
	Score int      `json:"score,omitempty"`
	Tags  []string `json:"tags,omitempty"`

	// Finalization details
	Report *models.FinalReport `json:"report,omitempty"`
}

// NewScamDetectedEvent builds an event for a message that crossed the scam
// threshold.
func NewScamDetectedEvent(sessionID string, score int, tags []string) *SessionEvent {
	return &SessionEvent{
		ID:        uuid.New().String(),
		Type:      EventTypeScamDetected,
		Timestamp: time.Now().UTC(),
		SessionID: sessionID,
		Score:     score,
		Tags:      tags,
	}
}

// NewSessionFinalizedEvent builds an event carrying the final report.
func NewSessionFinalizedEvent(report *models.FinalReport) *SessionEvent {
	return &SessionEvent{
		ID:        uuid.New().String(),
		Type:      EventTypeSessionFinalized,
		Timestamp: time.Now().UTC(),
		SessionID: report.SessionID,
		Report:    report,
	}
}
