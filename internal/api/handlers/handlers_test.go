package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"scamtrap-lab/internal/api"
	"scamtrap-lab/internal/api/handlers"
	"scamtrap-lab/internal/config"
	"scamtrap-lab/internal/domain/models"
	"scamtrap-lab/internal/domain/services"
	"scamtrap-lab/pkg/logger"
)

const testAPIKey = "test-key"

type cannedReplier struct{}

func (cannedReplier) GenerateReply(ctx context.Context, latest string, transcript []models.Message) string {
	return "What is the matter? Please explain."
}

func newTestServer(t *testing.T) (*httptest.Server, *services.SessionStore) {
	t.Helper()

	log := logger.New(logger.Config{Level: "error", Format: "json"})
	catalog := services.NewPatternCatalog(log)
	store := services.NewSessionStore(log)
	dispatcher := services.NewCallbackDispatcher(config.CallbackConfig{}, store, nil, log)
	t.Cleanup(dispatcher.Stop)

	engagement := services.NewEngagementService(
		store,
		services.NewScamScorer(catalog, log),
		services.NewIntelligenceExtractor(catalog, log),
		services.NewEngagementPolicy(config.EngagementConfig{}),
		dispatcher,
		cannedReplier{},
		nil,
		log,
	)

	h := handlers.NewHandlers(handlers.Dependencies{
		Engagement: engagement,
		Store:      store,
		Catalog:    catalog,
		Logger:     log,
	})

	cfg := config.Config{
		Auth: config.AuthConfig{APIKey: testAPIKey},
	}
	router := api.NewRouter(cfg, h, nil, log)

	srv := httptest.NewServer(router.Setup())
	t.Cleanup(srv.Close)
	return srv, store
}

func doJSON(t *testing.T, method, url string, body any, auth bool) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if auth {
		req.Header.Set("Authorization", "Bearer "+testAPIKey)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func engageBody(sessionID, text string) map[string]any {
	return map[string]any{
		"sessionId": sessionID,
		"message":   map[string]any{"sender": "scammer", "text": text},
	}
}

func TestEngageEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/engage",
		engageBody("sess-e1", "Your SBI account is blocked, share OTP immediately"), true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got models.EngageResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != "success" || got.SessionID != "sess-e1" {
		t.Errorf("response = %+v", got)
	}
	if got.Reply == "" {
		t.Error("no reply returned")
	}
	if !got.ScamDetected {
		t.Error("obvious scam not detected")
	}
	if got.State != models.SessionActive {
		t.Errorf("state = %q, want ACTIVE", got.State)
	}
}

func TestEngageEndpointValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	t.Run("malformed json", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/engage",
			bytes.NewBufferString("{not json"))
		req.Header.Set("Authorization", "Bearer "+testAPIKey)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("empty message text", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/engage", engageBody("s", "  "), true)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("missing session id", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/engage", engageBody("", "hello"), true)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})
}

func TestEngageEndpointRequiresAuth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/engage", engageBody("s", "hello"), false)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status without auth = %d, want 401", resp.StatusCode)
	}
}

func TestSessionEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	created := doJSON(t, http.MethodPost, srv.URL+"/api/v1/engage",
		engageBody("sess-1", "pay to fraudster@paytm urgently"), true)
	if created.StatusCode != http.StatusOK {
		t.Fatalf("engage status = %d", created.StatusCode)
	}

	t.Run("get session", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/sessions/sess-1", nil, true)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		var sess models.Session
		if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if sess.ID != "sess-1" || len(sess.Messages) != 2 {
			t.Errorf("session = id %q with %d messages", sess.ID, len(sess.Messages))
		}
		if len(sess.Intelligence.UPIIDs) != 1 {
			t.Errorf("UPIIDs = %v, want the extracted handle", sess.Intelligence.UPIIDs)
		}
	})

	t.Run("get unknown session", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/sessions/ghost", nil, true)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
	})

	t.Run("list sessions", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/sessions", nil, true)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		var body struct {
			Status   string                  `json:"status"`
			Count    int                     `json:"count"`
			Sessions []models.SessionSummary `json:"sessions"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Count != 1 || len(body.Sessions) != 1 {
			t.Errorf("list = %+v, want one session", body)
		}
	})

	t.Run("finalize is idempotent", func(t *testing.T) {
		first := doJSON(t, http.MethodPost, srv.URL+"/api/v1/sessions/sess-1/finalize", nil, true)
		if first.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", first.StatusCode)
		}
		var a struct {
			Report models.FinalReport `json:"report"`
		}
		if err := json.NewDecoder(first.Body).Decode(&a); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if a.Report.SessionID != "sess-1" {
			t.Errorf("report = %+v", a.Report)
		}

		second := doJSON(t, http.MethodPost, srv.URL+"/api/v1/sessions/sess-1/finalize", nil, true)
		var b struct {
			Report models.FinalReport `json:"report"`
		}
		if err := json.NewDecoder(second.Body).Decode(&b); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !b.Report.FinalizedAt.Equal(a.Report.FinalizedAt) {
			t.Error("second finalize produced a different report")
		}
	})

	t.Run("delete session", func(t *testing.T) {
		resp := doJSON(t, http.MethodDelete, srv.URL+"/api/v1/sessions/sess-1", nil, true)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		again := doJSON(t, http.MethodDelete, srv.URL+"/api/v1/sessions/sess-1", nil, true)
		if again.StatusCode != http.StatusNotFound {
			t.Errorf("second delete status = %d, want 404", again.StatusCode)
		}
	})
}

func TestFinalizeUnknownSession(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/sessions/ghost/finalize", nil, true)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestFailedReportsWithoutJournal(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/reports/failed", nil, true)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 without a database", resp.StatusCode)
	}
}

func TestPatternsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/patterns", nil, true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Status  string                   `json:"status"`
		Count   int                      `json:"count"`
		Catalog services.CatalogSnapshot `json:"catalog"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count == 0 || len(body.Catalog.Detectors) == 0 {
		t.Errorf("catalog = %+v, want loaded detectors", body)
	}
	if len(body.Catalog.Banks) == 0 {
		t.Error("no bank vocabularies in catalog")
	}
}

func TestStatsEndpointIsPublic(t *testing.T) {
	srv, store := newTestServer(t)

	store.Update("a", true, func(s *models.Session) error {
		s.Confidence = 90
		return nil
	})
	store.Update("b", true, func(s *models.Session) error {
		s.State = models.SessionFinalized
		return nil
	})

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/stats", nil, false)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 without auth", resp.StatusCode)
	}

	var stats handlers.StatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.TotalSessions != 2 || stats.ActiveSessions != 1 || stats.FinalizedSessions != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.ScamsDetected != 1 {
		t.Errorf("ScamsDetected = %d, want 1", stats.ScamsDetected)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/health", "/ready"} {
		resp := doJSON(t, http.MethodGet, srv.URL+path, nil, false)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestSessionFinalizesOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t)

	text := "Your SBI account is blocked, verify at http://evil.example/verify immediately"
	var last models.EngageResponse
	for i := 0; i < 4; i++ {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/engage", engageBody("sess-x", text), true)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("engage %d status = %d", i, resp.StatusCode)
		}
		last = models.EngageResponse{}
		if err := json.NewDecoder(resp.Body).Decode(&last); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}

	if last.State != models.SessionFinalized {
		t.Fatalf("state after %d exchanges = %q, want FINALIZED", 4, last.State)
	}
	if last.Reply == "" {
		t.Error("finalizing exchange returned no reply")
	}

	// A finalized session answers with an empty reply and stays unchanged.
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/engage", engageBody("sess-x", "hello?"), true)
	var after models.EngageResponse
	if err := json.NewDecoder(resp.Body).Decode(&after); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if after.Reply != "" || after.State != models.SessionFinalized {
		t.Errorf("post-finalize response = %+v", after)
	}
}
