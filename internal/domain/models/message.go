package models

import (
	"strings"
	"time"
)

// Role identifies which side of the conversation produced a message.
type Role string

const (
	RoleScammer Role = "scammer"
	RoleAgent   Role = "agent"
)

// Message is a single turn in a honeypot conversation.
type Message struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionMetadata carries optional context supplied by the platform.
type SessionMetadata struct {
	Channel  string `json:"channel,omitempty"` // sms, whatsapp, email
	Language string `json:"language,omitempty"`
	Locale   string `json:"locale,omitempty"`
}

// IncomingMessage is the inbound scammer message on the engage endpoint.
type IncomingMessage struct {
	Sender    string     `json:"sender"`
	Text      string     `json:"text"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// HistoryEntry seeds a newly created session with prior turns.
type HistoryEntry struct {
	Sender    string     `json:"sender"`
	Text      string     `json:"text"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// RoleFromSender maps the wire sender field onto a conversation role.
// Anything that is not recognizably the honeypot agent is treated as the
// scammer side.
func RoleFromSender(sender string) Role {
	switch strings.ToLower(strings.TrimSpace(sender)) {
	case "agent", "assistant", "honeypot", "bot":
		return RoleAgent
	default:
		return RoleScammer
	}
}

// EngageRequest is the body of POST /api/v1/engage.
type EngageRequest struct {
	SessionID           string           `json:"sessionId,omitempty"`
	Message             IncomingMessage  `json:"message"`
	ConversationHistory []HistoryEntry   `json:"conversationHistory,omitempty"`
	Metadata            *SessionMetadata `json:"metadata,omitempty"`
}

// EngageResponse is returned for every accepted engage call.
type EngageResponse struct {
	Status       string       `json:"status"`
	SessionID    string       `json:"sessionId"`
	Reply        string       `json:"reply"`
	ScamDetected bool         `json:"scamDetected"`
	Confidence   int          `json:"confidence"`
	State        SessionState `json:"state"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}
