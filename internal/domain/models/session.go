package models

import "time"

// SessionState is the lifecycle state of an engagement session.
type SessionState string

const (
	SessionActive    SessionState = "ACTIVE"
	SessionFinalized SessionState = "FINALIZED"
)

// DeliveryStatus tracks the final report's callback delivery.
type DeliveryStatus string

const (
	DeliveryNone      DeliveryStatus = ""
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
)

// DeliveryState records the outcome of report delivery attempts.
type DeliveryState struct {
	Status      DeliveryStatus `json:"status"`
	Attempts    int            `json:"attempts"`
	LastError   string         `json:"lastError,omitempty"`
	DeliveredAt *time.Time     `json:"deliveredAt,omitempty"`
}

// Session is a single scammer engagement. Confidence is the maximum
// per-message score observed over the session's lifetime; Tactics is the
// union of all tactic tags. Mutation is serialized by the session store.
type Session struct {
	ID           string          `json:"sessionId"`
	State        SessionState    `json:"state"`
	Messages     []Message       `json:"messages"`
	Confidence   int             `json:"confidence"`
	Tactics      []string        `json:"tactics"`
	Intelligence Intelligence    `json:"intelligence"`
	Metadata     SessionMetadata `json:"metadata"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
	FinalizedAt  *time.Time      `json:"finalizedAt,omitempty"`
	Report       *FinalReport    `json:"report,omitempty"`
	Delivery     DeliveryState   `json:"delivery"`
}

// MessageCount counts every exchanged turn, scammer and agent alike.
func (s *Session) MessageCount() int {
	return len(s.Messages)
}

// ScammerMessages returns the scammer-side transcript in order.
func (s *Session) ScammerMessages() []Message {
	out := make([]Message, 0, len(s.Messages))
	for _, m := range s.Messages {
		if m.Role == RoleScammer {
			out = append(out, m)
		}
	}
	return out
}

// AddTactics unions tags into the session's tactic set, first-seen order.
func (s *Session) AddTactics(tags []string) {
	s.Tactics, _ = mergeList(s.Tactics, tags, false)
}

// SessionSummary is the list-endpoint projection of a session.
type SessionSummary struct {
	ID           string         `json:"sessionId"`
	State        SessionState   `json:"state"`
	Messages     int            `json:"messages"`
	Confidence   int            `json:"confidence"`
	ScamDetected bool           `json:"scamDetected"`
	Delivery     DeliveryStatus `json:"deliveryStatus"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}
