package services

import (
	"errors"
	"sort"
	"sync"
	"time"

	"scamtrap-lab/internal/domain/models"
	"scamtrap-lab/pkg/logger"
)

var (
	// ErrSessionNotFound is returned when a session ID is unknown.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionFinalized is returned when a mutation targets a finalized session.
	ErrSessionFinalized = errors.New("session already finalized")
)

// SessionStore is the in-memory session registry. Each session carries its
// own lock, so mutations on one session are fully serialized while distinct
// sessions proceed in parallel.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
	logger   *logger.Logger
}

type sessionEntry struct {
	mu      sync.Mutex
	session *models.Session
}

// NewSessionStore creates an empty store.
func NewSessionStore(log *logger.Logger) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*sessionEntry),
		logger:   log.WithComponent("session-store"),
	}
}

// Update runs fn on the session under its lock. With create set, an unknown
// ID is registered as a fresh ACTIVE session first; otherwise the update
// fails with ErrSessionNotFound. fn sees the live session and may mutate it.
func (st *SessionStore) Update(id string, create bool, fn func(s *models.Session) error) error {
	entry, err := st.entry(id, create)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if err := fn(entry.session); err != nil {
		return err
	}
	entry.session.UpdatedAt = time.Now().UTC()
	return nil
}

func (st *SessionStore) entry(id string, create bool) (*sessionEntry, error) {
	st.mu.RLock()
	entry, ok := st.sessions[id]
	st.mu.RUnlock()
	if ok {
		return entry, nil
	}
	if !create {
		return nil, ErrSessionNotFound
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if entry, ok = st.sessions[id]; ok {
		return entry, nil
	}

	now := time.Now().UTC()
	entry = &sessionEntry{
		session: &models.Session{
			ID:        id,
			State:     models.SessionActive,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	st.sessions[id] = entry
	st.logger.Info().Str("session_id", id).Msg("session created")
	return entry, nil
}

// Snapshot returns a deep copy of the session, safe to read without locks.
func (st *SessionStore) Snapshot(id string) (*models.Session, error) {
	st.mu.RLock()
	entry, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return copySession(entry.session), nil
}

// List returns summaries of all sessions, newest first.
func (st *SessionStore) List(reportingThreshold int) []models.SessionSummary {
	st.mu.RLock()
	entries := make([]*sessionEntry, 0, len(st.sessions))
	for _, e := range st.sessions {
		entries = append(entries, e)
	}
	st.mu.RUnlock()

	out := make([]models.SessionSummary, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		s := e.session
		out = append(out, models.SessionSummary{
			ID:           s.ID,
			State:        s.State,
			Messages:     s.MessageCount(),
			Confidence:   s.Confidence,
			ScamDetected: s.Confidence >= reportingThreshold,
			Delivery:     s.Delivery.Status,
			CreatedAt:    s.CreatedAt,
			UpdatedAt:    s.UpdatedAt,
		})
		e.mu.Unlock()
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Delete removes a session. It reports whether the session existed.
func (st *SessionStore) Delete(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return false
	}
	delete(st.sessions, id)
	st.logger.Info().Str("session_id", id).Msg("session deleted")
	return true
}

// Counts returns the number of sessions per lifecycle state.
func (st *SessionStore) Counts() (active, finalized int) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	for _, e := range st.sessions {
		e.mu.Lock()
		if e.session.State == models.SessionFinalized {
			finalized++
		} else {
			active++
		}
		e.mu.Unlock()
	}
	return active, finalized
}

func copySession(s *models.Session) *models.Session {
	cp := *s
	cp.Messages = append([]models.Message(nil), s.Messages...)
	cp.Tactics = append([]string(nil), s.Tactics...)
	cp.Intelligence = copyIntelligence(s.Intelligence)
	if s.FinalizedAt != nil {
		t := *s.FinalizedAt
		cp.FinalizedAt = &t
	}
	if s.Report != nil {
		r := *s.Report
		r.Intelligence = copyIntelligence(s.Report.Intelligence)
		r.Tactics = append([]string(nil), s.Report.Tactics...)
		cp.Report = &r
	}
	if s.Delivery.DeliveredAt != nil {
		t := *s.Delivery.DeliveredAt
		cp.Delivery.DeliveredAt = &t
	}
	return &cp
}

func copyIntelligence(i models.Intelligence) models.Intelligence {
	return models.Intelligence{
		BankAccounts:       append([]string(nil), i.BankAccounts...),
		UPIIDs:             append([]string(nil), i.UPIIDs...),
		PhishingLinks:      append([]string(nil), i.PhishingLinks...),
		PhoneNumbers:       append([]string(nil), i.PhoneNumbers...),
		SuspiciousKeywords: append([]string(nil), i.SuspiciousKeywords...),
	}
}
