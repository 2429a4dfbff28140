package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"scamtrap-lab/internal/domain/models"
	"scamtrap-lab/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "json"})
}

type fakeChatClient struct {
	reply string
	err   error
	calls int
}

func (c *fakeChatClient) Chat(ctx context.Context, messages []Message, system string) (string, error) {
	c.calls++
	return c.reply, c.err
}

func TestReplierNeverReturnsEmpty(t *testing.T) {
	tests := []struct {
		name   string
		client ChatClient
	}{
		{name: "no client configured", client: nil},
		{name: "client errors", client: &fakeChatClient{err: errors.New("upstream down")}},
		{name: "client returns empty", client: &fakeChatClient{reply: "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReplier(tt.client, NewHumanizer(1), testLogger())
			reply := r.GenerateReply(context.Background(), "share your otp now", nil)
			if strings.TrimSpace(reply) == "" {
				t.Error("GenerateReply returned empty")
			}
		})
	}
}

func TestReplierUsesLLMReply(t *testing.T) {
	client := &fakeChatClient{reply: "Which bank are you calling from?"}
	r := NewReplier(client, NewHumanizer(1), testLogger())

	reply := r.GenerateReply(context.Background(), "your account is blocked", nil)
	if strings.TrimSpace(reply) == "" {
		t.Fatal("empty reply")
	}
	if client.calls != 1 {
		t.Errorf("client called %d times, want 1", client.calls)
	}
}

func TestReplierDeterministicWithSeed(t *testing.T) {
	a := NewReplier(nil, NewHumanizer(7), testLogger())
	b := NewReplier(nil, NewHumanizer(7), testLogger())

	for i := 0; i < 10; i++ {
		ra := a.GenerateReply(context.Background(), "transfer the money now", nil)
		rb := b.GenerateReply(context.Background(), "transfer the money now", nil)
		if ra != rb {
			t.Fatalf("same seed diverged at round %d: %q vs %q", i, ra, rb)
		}
	}
}

func TestBuildMessages(t *testing.T) {
	r := NewReplier(nil, NewHumanizer(1), testLogger())

	transcript := []models.Message{
		{Role: models.RoleScammer, Text: "your account is blocked"},
		{Role: models.RoleAgent, Text: "what happened?"},
		{Role: models.RoleScammer, Text: "share otp"},
	}

	msgs := r.buildMessages("share otp", transcript)

	if len(msgs) != 3 {
		t.Fatalf("messages = %d, want 3 (trailing duplicate dropped)", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[1].Role != "assistant" {
		t.Errorf("roles = %q, %q, want user, assistant", msgs[0].Role, msgs[1].Role)
	}
	last := msgs[len(msgs)-1]
	if last.Role != "user" || last.Content != "share otp" {
		t.Errorf("last message = %+v, want the latest scammer text as user", last)
	}
}

func TestBuildMessagesTruncatesHistory(t *testing.T) {
	r := NewReplier(nil, NewHumanizer(1), testLogger())

	transcript := make([]models.Message, 30)
	for i := range transcript {
		transcript[i] = models.Message{Role: models.RoleScammer, Text: "spam"}
	}

	msgs := r.buildMessages("latest", transcript)
	if len(msgs) != 11 {
		t.Errorf("messages = %d, want 10 history turns plus the latest", len(msgs))
	}
}

func TestHumanizerDeterministic(t *testing.T) {
	a := NewHumanizer(42)
	b := NewHumanizer(42)

	text := "Please understand, there is a problem with my account and the payment"
	for i := 0; i < 20; i++ {
		if got, want := a.Apply(text), b.Apply(text); got != want {
			t.Fatalf("same seed diverged at round %d: %q vs %q", i, got, want)
		}
	}
}

func TestHumanizerPick(t *testing.T) {
	h := NewHumanizer(9)
	candidates := []string{"one", "two", "three"}

	for i := 0; i < 50; i++ {
		got := h.Pick(candidates)
		found := false
		for _, c := range candidates {
			if got == c {
				found = true
			}
		}
		if !found {
			t.Fatalf("Pick returned %q, not a candidate", got)
		}
	}
}

func TestHumanizerTyposCapitalizedWords(t *testing.T) {
	h := NewHumanizer(7)

	// Capitalized forms are eligible too; over enough rounds at least one
	// must pick up a typo.
	text := "Problem with my Account, the Payment failed"
	for i := 0; i < 200; i++ {
		got := h.Apply(text)
		for _, typos := range [][]string{typoWords["problem"], typoWords["account"], typoWords["payment"]} {
			for _, typo := range typos {
				if strings.Contains(got, typo) {
					return
				}
			}
		}
	}
	t.Error("no capitalized word ever received a typo")
}

func TestHumanizerKeepsContent(t *testing.T) {
	h := NewHumanizer(3)

	// No eligible typo words and hesitations only prepend, so the original
	// text must survive as a suffix.
	text := "Which bank are you calling from?"
	for i := 0; i < 20; i++ {
		if got := h.Apply(text); !strings.HasSuffix(got, text) {
			t.Fatalf("Apply(%q) = %q, original text lost", text, got)
		}
	}
}
