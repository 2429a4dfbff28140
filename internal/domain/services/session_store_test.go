package services

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"scamtrap-lab/internal/domain/models"
)

func TestSessionStoreCreateAndSnapshot(t *testing.T) {
	store := NewSessionStore(testLogger())

	err := store.Update("sess-1", true, func(s *models.Session) error {
		s.Confidence = 42
		s.Messages = append(s.Messages, models.Message{Role: models.RoleScammer, Text: "hello"})
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	snap, err := store.Snapshot("sess-1")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.State != models.SessionActive {
		t.Errorf("State = %q, want ACTIVE", snap.State)
	}
	if snap.Confidence != 42 || len(snap.Messages) != 1 {
		t.Errorf("snapshot = %+v, want confidence 42 and 1 message", snap)
	}
	if snap.CreatedAt.IsZero() || snap.UpdatedAt.IsZero() {
		t.Error("timestamps not set on create")
	}
}

func TestSessionStoreSnapshotIsolation(t *testing.T) {
	store := NewSessionStore(testLogger())

	if err := store.Update("sess-1", true, func(s *models.Session) error {
		s.Tactics = []string{"urgency_tactics"}
		s.Intelligence.UPIIDs = []string{"a@paytm"}
		return nil
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	snap, _ := store.Snapshot("sess-1")
	snap.Tactics[0] = "mutated"
	snap.Intelligence.UPIIDs[0] = "mutated"
	snap.Confidence = 99

	fresh, _ := store.Snapshot("sess-1")
	if fresh.Tactics[0] != "urgency_tactics" || fresh.Intelligence.UPIIDs[0] != "a@paytm" || fresh.Confidence != 0 {
		t.Errorf("mutating a snapshot leaked into the store: %+v", fresh)
	}
}

func TestSessionStoreUnknownSession(t *testing.T) {
	store := NewSessionStore(testLogger())

	err := store.Update("nope", false, func(s *models.Session) error { return nil })
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Update err = %v, want ErrSessionNotFound", err)
	}

	if _, err := store.Snapshot("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Snapshot err = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionStoreDelete(t *testing.T) {
	store := NewSessionStore(testLogger())

	store.Update("sess-1", true, func(s *models.Session) error { return nil })

	if !store.Delete("sess-1") {
		t.Error("Delete returned false for existing session")
	}
	if store.Delete("sess-1") {
		t.Error("Delete returned true for removed session")
	}
	if _, err := store.Snapshot("sess-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Error("deleted session still readable")
	}
}

func TestSessionStoreCounts(t *testing.T) {
	store := NewSessionStore(testLogger())

	store.Update("a", true, func(s *models.Session) error { return nil })
	store.Update("b", true, func(s *models.Session) error { return nil })
	store.Update("c", true, func(s *models.Session) error {
		s.State = models.SessionFinalized
		return nil
	})

	active, finalized := store.Counts()
	if active != 2 || finalized != 1 {
		t.Errorf("Counts = (%d, %d), want (2, 1)", active, finalized)
	}
}

func TestSessionStoreListFlagsScams(t *testing.T) {
	store := NewSessionStore(testLogger())

	store.Update("low", true, func(s *models.Session) error {
		s.Confidence = 30
		return nil
	})
	store.Update("high", true, func(s *models.Session) error {
		s.Confidence = 75
		return nil
	})

	byID := make(map[string]models.SessionSummary)
	for _, s := range store.List(50) {
		byID[s.ID] = s
	}
	if len(byID) != 2 {
		t.Fatalf("List returned %d sessions, want 2", len(byID))
	}
	if byID["low"].ScamDetected {
		t.Error("session below reporting threshold flagged as scam")
	}
	if !byID["high"].ScamDetected {
		t.Error("session above reporting threshold not flagged as scam")
	}
}

func TestSessionStoreConcurrentUpdates(t *testing.T) {
	store := NewSessionStore(testLogger())

	const goroutines = 16
	const perGoroutine = 25

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				err := store.Update("shared", true, func(s *models.Session) error {
					s.Messages = append(s.Messages, models.Message{
						Role: models.RoleScammer,
						Text: fmt.Sprintf("msg %d-%d", g, i),
					})
					return nil
				})
				if err != nil {
					t.Errorf("Update: %v", err)
					return
				}
			}
		}(g)
	}
	wg.Wait()

	snap, err := store.Snapshot("shared")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if got := len(snap.Messages); got != goroutines*perGoroutine {
		t.Errorf("messages = %d, want %d (lost updates)", got, goroutines*perGoroutine)
	}
}
