package services

import (
	"testing"

	"scamtrap-lab/internal/config"
	"scamtrap-lab/internal/domain/models"
)

func sessionWith(messages, confidence int, intel models.Intelligence) *models.Session {
	return &models.Session{
		ID:           "test",
		State:        models.SessionActive,
		Messages:     make([]models.Message, messages),
		Confidence:   confidence,
		Intelligence: intel,
	}
}

func TestEngagementPolicyShouldFinalize(t *testing.T) {
	policy := NewEngagementPolicy(config.EngagementConfig{})

	highValue := models.Intelligence{BankAccounts: []string{"123456789012"}}

	tests := []struct {
		name       string
		session    *models.Session
		want       bool
		wantReason string
	}{
		{
			name:    "below minimum never finalizes",
			session: sessionWith(7, 100, highValue),
			want:    false,
		},
		{
			name:       "high confidence at minimum",
			session:    sessionWith(8, 80, models.Intelligence{}),
			want:       true,
			wantReason: ReasonHighScore,
		},
		{
			name:    "confidence just under the bar",
			session: sessionWith(8, 79, models.Intelligence{}),
			want:    false,
		},
		{
			name:       "high value intelligence at minimum",
			session:    sessionWith(8, 10, highValue),
			want:       true,
			wantReason: ReasonHighValue,
		},
		{
			name:    "phone numbers alone are not high value",
			session: sessionWith(8, 10, models.Intelligence{PhoneNumbers: []string{"+91 9876543210"}}),
			want:    false,
		},
		{
			name:       "maximum messages regardless of score",
			session:    sessionWith(15, 0, models.Intelligence{}),
			want:       true,
			wantReason: ReasonMaxMessages,
		},
		{
			name:       "maximum wins over other reasons",
			session:    sessionWith(15, 95, highValue),
			want:       true,
			wantReason: ReasonMaxMessages,
		},
		{
			name:    "quiet session keeps engaging",
			session: sessionWith(10, 49, models.Intelligence{}),
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := policy.ShouldFinalize(tt.session)
			if got != tt.want {
				t.Errorf("ShouldFinalize = %v, want %v", got, tt.want)
			}
			if got && reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", reason, tt.wantReason)
			}
		})
	}
}

func TestEngagementPolicyFinalizedSessionStays(t *testing.T) {
	policy := NewEngagementPolicy(config.EngagementConfig{})

	sess := sessionWith(15, 100, models.Intelligence{UPIIDs: []string{"x@paytm"}})
	sess.State = models.SessionFinalized

	if got, _ := policy.ShouldFinalize(sess); got {
		t.Error("finalized session should never re-finalize")
	}
}

func TestEngagementPolicyDefaults(t *testing.T) {
	policy := NewEngagementPolicy(config.EngagementConfig{})

	if policy.MinMessages != 8 || policy.MaxMessages != 15 ||
		policy.HighConfidence != 80 || policy.ReportingThreshold != 50 {
		t.Errorf("defaults = %+v, want 8/15/80/50", policy)
	}
}

func TestEngagementPolicyScamDetected(t *testing.T) {
	policy := NewEngagementPolicy(config.EngagementConfig{ReportingThreshold: 50})

	if policy.ScamDetected(49) {
		t.Error("confidence 49 reported as scam")
	}
	if !policy.ScamDetected(50) {
		t.Error("confidence 50 not reported as scam")
	}
}
