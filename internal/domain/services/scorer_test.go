package services

import (
	"testing"

	"scamtrap-lab/internal/domain/models"
	"scamtrap-lab/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "json"})
}

func TestScamScorerScore(t *testing.T) {
	scorer := NewScamScorer(NewPatternCatalog(testLogger()), testLogger())

	tests := []struct {
		name      string
		text      string
		wantScore int
		wantTags  []string
	}{
		{
			name:      "empty message scores zero",
			text:      "",
			wantScore: 0,
		},
		{
			name:      "whitespace only scores zero",
			text:      "   \t\n",
			wantScore: 0,
		},
		{
			name:      "benign message scores zero",
			text:      "Hi, how was your trip to Goa?",
			wantScore: 0,
		},
		{
			name:      "single keyword",
			text:      "please send otp",
			wantScore: 5,
			wantTags:  []string{"keyword:otp"},
		},
		{
			name:      "urgency keyword counts in both detectors",
			text:      "urgent",
			wantScore: 15,
			wantTags:  []string{"keyword:urgent", "urgency_tactics"},
		},
		{
			name:      "punctuation does not hide keywords",
			text:      "u.r.g.e.n.t reply needed",
			wantScore: 15,
			wantTags:  []string{"keyword:urgent", "urgency_tactics"},
		},
		{
			name:      "keyword points are capped",
			text:      "otp bank upi account transaction transfer payment refund",
			wantScore: 30,
		},
		{
			name:      "full pressure message",
			text:      "URGENT: Your SBI account will be blocked! Share OTP immediately",
			wantScore: 90,
			wantTags:  []string{"urgency_tactics", "threat_detected", "impersonation:SBI"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scorer.Score(tt.text)
			if got.Score != tt.wantScore {
				t.Errorf("Score(%q) = %d, want %d (tags: %v)", tt.text, got.Score, tt.wantScore, got.Tags)
			}
			for _, want := range tt.wantTags {
				if !containsString(got.Tags, want) {
					t.Errorf("Score(%q) tags = %v, missing %q", tt.text, got.Tags, want)
				}
			}
		})
	}
}

func TestScamScorerCaseInsensitive(t *testing.T) {
	scorer := NewScamScorer(NewPatternCatalog(testLogger()), testLogger())

	lower := scorer.Score("share otp immediately")
	upper := scorer.Score("SHARE OTP IMMEDIATELY")
	if lower.Score != upper.Score {
		t.Errorf("case changed the score: %d vs %d", lower.Score, upper.Score)
	}
}

func TestScamScorerDeterministic(t *testing.T) {
	scorer := NewScamScorer(NewPatternCatalog(testLogger()), testLogger())

	text := "Your account is suspended, pay the penalty immediately"
	first := scorer.Score(text)
	for i := 0; i < 5; i++ {
		if got := scorer.Score(text); got.Score != first.Score {
			t.Fatalf("score changed between runs: %d vs %d", got.Score, first.Score)
		}
	}
}

func TestScamScorerNeverExceeds100(t *testing.T) {
	scorer := NewScamScorer(NewPatternCatalog(testLogger()), testLogger())

	text := "URGENT urgent immediately act fast hurry! Your SBI HDFC ICICI account " +
		"blocked suspended arrest penalty fine legal action! Share OTP verify KYC " +
		"refund prize lottery winner. RBI police customs income tax."
	got := scorer.Score(text)
	if got.Score > 100 {
		t.Errorf("Score = %d, want <= 100", got.Score)
	}
	if got.Score != 100 {
		t.Errorf("Score = %d, want saturated 100", got.Score)
	}
}

func TestScoreConversation(t *testing.T) {
	scorer := NewScamScorer(NewPatternCatalog(testLogger()), testLogger())

	threat := models.Message{Role: models.RoleScammer, Text: "urgent, your account is blocked"}
	filler := models.Message{Role: models.RoleScammer, Text: "ok"}

	t.Run("empty transcript equals plain score", func(t *testing.T) {
		plain := scorer.Score("share otp immediately")
		got := scorer.ScoreConversation("share otp immediately", nil)
		if got.Score != plain.Score {
			t.Errorf("ScoreConversation = %d, Score = %d", got.Score, plain.Score)
		}
	})

	t.Run("recent turns carry tactics forward", func(t *testing.T) {
		got := scorer.ScoreConversation("ok tell me what to do", []models.Message{threat})
		if got.Score == 0 {
			t.Fatal("context did not contribute to the score")
		}
		if !containsString(got.Tags, "urgency_tactics") {
			t.Errorf("tags = %v, missing urgency from context", got.Tags)
		}
	})

	t.Run("turns outside the window are ignored", func(t *testing.T) {
		transcript := []models.Message{threat, filler, filler, filler, filler, filler}
		got := scorer.ScoreConversation("ok tell me what to do", transcript)
		if got.Score != 0 {
			t.Errorf("Score = %d, want 0 once the threat falls out of the window", got.Score)
		}
	})
}

func TestIsScam(t *testing.T) {
	scorer := NewScamScorer(NewPatternCatalog(testLogger()), testLogger())

	if scorer.IsScam(ScamThreshold - 1) {
		t.Error("score below threshold flagged as scam")
	}
	if !scorer.IsScam(ScamThreshold) {
		t.Error("score at threshold not flagged as scam")
	}
}

func containsString(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
