package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"scamtrap-lab/internal/domain/models"
	"scamtrap-lab/pkg/logger"
)

// ReplyGenerator is the reply orchestration boundary. Implementations must
// never fail; on any upstream problem they return a fallback reply.
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, latest string, transcript []models.Message) string
}

// EngagementService runs the per-message pipeline: score, append, extract,
// merge, reply, evaluate policy. All session mutation happens under the
// session's lock; reply generation does not hold it.
type EngagementService struct {
	store      *SessionStore
	scorer     *ScamScorer
	extractor  *IntelligenceExtractor
	policy     EngagementPolicy
	dispatcher *CallbackDispatcher
	replier    ReplyGenerator
	events     EventPublisher
	logger     *logger.Logger
}

// NewEngagementService wires the pipeline together. events may be nil.
func NewEngagementService(
	store *SessionStore,
	scorer *ScamScorer,
	extractor *IntelligenceExtractor,
	policy EngagementPolicy,
	dispatcher *CallbackDispatcher,
	replier ReplyGenerator,
	events EventPublisher,
	log *logger.Logger,
) *EngagementService {
	return &EngagementService{
		store:      store,
		scorer:     scorer,
		extractor:  extractor,
		policy:     policy,
		dispatcher: dispatcher,
		replier:    replier,
		events:     events,
		logger:     log.WithComponent("engagement"),
	}
}

// Policy exposes the active engagement policy.
func (s *EngagementService) Policy() EngagementPolicy {
	return s.policy
}

// Store exposes the session store for read paths.
func (s *EngagementService) Store() *SessionStore {
	return s.store
}

// HandleMessage processes one inbound scammer message and returns the
// engagement response. An unknown session ID creates a session; a blank one
// is rejected before any session state is touched.
func (s *EngagementService) HandleMessage(ctx context.Context, req *models.EngageRequest) (*models.EngageResponse, error) {
	if strings.TrimSpace(req.Message.Text) == "" {
		return nil, fmt.Errorf("message text is required")
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("session ID is required")
	}

	when := time.Now().UTC()
	if req.Message.Timestamp != nil {
		when = req.Message.Timestamp.UTC()
	}

	var (
		alreadyFinal bool
		turnReport   *models.FinalReport
		scored       models.ScoreResult
		confidence   int
		state        models.SessionState
		transcript   []models.Message
	)

	err := s.store.Update(sessionID, true, func(sess *models.Session) error {
		if sess.State == models.SessionFinalized {
			alreadyFinal = true
			confidence = sess.Confidence
			state = sess.State
			return nil
		}

		if len(sess.Messages) == 0 {
			if req.Metadata != nil {
				sess.Metadata = *req.Metadata
			}
			s.seedHistory(sess, req.ConversationHistory)
		}

		scored = s.scorer.ScoreConversation(req.Message.Text, sess.Messages)
		sess.Messages = append(sess.Messages, models.Message{
			Role:      models.RoleScammer,
			Text:      req.Message.Text,
			Timestamp: when,
		})
		if scored.Score > sess.Confidence {
			sess.Confidence = scored.Score
		}
		sess.AddTactics(scored.Tags)

		sess.Intelligence.Merge(s.extractor.ExtractTranscript(sess.Messages))

		confidence = sess.Confidence
		state = sess.State
		transcript = append([]models.Message(nil), sess.Messages...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if alreadyFinal {
		return &models.EngageResponse{
			Status:       "success",
			SessionID:    sessionID,
			Reply:        "",
			ScamDetected: s.policy.ScamDetected(confidence),
			Confidence:   confidence,
			State:        state,
		}, nil
	}

	if s.events != nil && s.scorer.IsScam(scored.Score) {
		s.events.PublishScamDetected(ctx, sessionID, scored.Score, scored.Tags)
	}

	// The session lock is not held here; slow LLM calls never block other
	// traffic on this session's siblings. The finalize decision comes after
	// the reply is appended, so the last turn still answers the scammer.
	reply := s.replier.GenerateReply(ctx, req.Message.Text, transcript)

	err = s.store.Update(sessionID, false, func(sess *models.Session) error {
		if sess.State == models.SessionActive {
			sess.Messages = append(sess.Messages, models.Message{
				Role:      models.RoleAgent,
				Text:      reply,
				Timestamp: time.Now().UTC(),
			})
			if ok, reason := s.policy.ShouldFinalize(sess); ok {
				turnReport = s.finalize(sess, reason)
			}
		}
		confidence = sess.Confidence
		state = sess.State
		return nil
	})
	if err != nil {
		return nil, err
	}

	if turnReport != nil {
		s.dispatchReport(ctx, turnReport)
	}

	return &models.EngageResponse{
		Status:       "success",
		SessionID:    sessionID,
		Reply:        reply,
		ScamDetected: s.policy.ScamDetected(confidence),
		Confidence:   confidence,
		State:        state,
	}, nil
}

// seedHistory scores and appends platform-supplied prior turns on a fresh
// session. Scammer-side turns count toward confidence and tactics just like
// live traffic.
func (s *EngagementService) seedHistory(sess *models.Session, history []models.HistoryEntry) {
	for _, h := range history {
		if strings.TrimSpace(h.Text) == "" {
			continue
		}
		when := sess.CreatedAt
		if h.Timestamp != nil {
			when = h.Timestamp.UTC()
		}
		role := models.RoleFromSender(h.Sender)
		sess.Messages = append(sess.Messages, models.Message{
			Role:      role,
			Text:      h.Text,
			Timestamp: when,
		})
		if role != models.RoleScammer {
			continue
		}
		res := s.scorer.Score(h.Text)
		if res.Score > sess.Confidence {
			sess.Confidence = res.Score
		}
		sess.AddTactics(res.Tags)
	}
}

// Finalize performs a manual finalize. It is idempotent: a FINALIZED session
// returns its existing report without building a new one, and only a failed
// delivery is re-enqueued. Manual finalize is an operator override and is not
// subject to the minimum message floor.
func (s *EngagementService) Finalize(ctx context.Context, sessionID string) (*models.FinalReport, error) {
	var (
		report    *models.FinalReport
		redeliver bool
	)

	err := s.store.Update(sessionID, false, func(sess *models.Session) error {
		if sess.State == models.SessionFinalized {
			report = sess.Report
			redeliver = sess.Delivery.Status == models.DeliveryFailed
			return nil
		}
		report = s.finalize(sess, ReasonManual)
		redeliver = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if redeliver && report != nil {
		s.dispatchReport(ctx, report)
	}
	return report, nil
}

// finalize flips the session to FINALIZED and builds its report. Callers
// must hold the session lock. The flip happens exactly once per session.
func (s *EngagementService) finalize(sess *models.Session, reason string) *models.FinalReport {
	now := time.Now().UTC()
	sess.State = models.SessionFinalized
	sess.FinalizedAt = &now

	report := &models.FinalReport{
		SessionID:              sess.ID,
		ScamDetected:           s.policy.ScamDetected(sess.Confidence),
		Confidence:             sess.Confidence,
		TotalMessagesExchanged: sess.MessageCount(),
		Intelligence:           copyIntelligence(sess.Intelligence),
		Tactics:                append([]string(nil), sess.Tactics...),
		AgentNotes:             buildAgentNotes(sess),
		FinalizedAt:            now,
	}
	sess.Report = report

	s.logger.Info().
		Str("session_id", sess.ID).
		Str("reason", reason).
		Int("confidence", sess.Confidence).
		Int("messages", sess.MessageCount()).
		Msg("session finalized")

	return report
}

func (s *EngagementService) dispatchReport(ctx context.Context, report *models.FinalReport) {
	s.dispatcher.Enqueue(report)
	if s.events != nil {
		s.events.PublishSessionFinalized(ctx, report)
	}
}

// buildAgentNotes summarizes the engagement for human analysts.
func buildAgentNotes(sess *models.Session) string {
	var parts []string

	if len(sess.Tactics) > 0 {
		tactics := sess.Tactics
		if len(tactics) > 10 {
			tactics = tactics[:10]
		}
		parts = append(parts, "Detected tactics: "+strings.Join(tactics, ", "))
	}

	parts = append(parts, fmt.Sprintf("Scam confidence score: %d/100", sess.Confidence))

	intel := sess.Intelligence
	var items []string
	if n := len(intel.BankAccounts); n > 0 {
		items = append(items, fmt.Sprintf("%d bank account(s)", n))
	}
	if n := len(intel.UPIIDs); n > 0 {
		items = append(items, fmt.Sprintf("%d UPI ID(s)", n))
	}
	if n := len(intel.PhoneNumbers); n > 0 {
		items = append(items, fmt.Sprintf("%d phone number(s)", n))
	}
	if n := len(intel.PhishingLinks); n > 0 {
		items = append(items, fmt.Sprintf("%d URL(s)", n))
	}
	if len(items) > 0 {
		parts = append(parts, "Extracted: "+strings.Join(items, ", "))
	}

	parts = append(parts, fmt.Sprintf(
		"Engaged over %d messages from %s UTC",
		sess.MessageCount(), sess.CreatedAt.Format("2006-01-02 15:04"),
	))

	return strings.Join(parts, ". ")
}
