package ai

import (
	"context"
	"strings"

	"scamtrap-lab/internal/domain/models"
	"scamtrap-lab/pkg/logger"
)

// personaPrompt steers the model into the decoy victim role.
const personaPrompt = `You are playing the role of an elderly Indian person (around 55-65 years old) who is not very tech-savvy but trying to learn. You've just received what appears to be a suspicious message. You are somewhat worried but also naturally skeptical.

Your personality traits:
- Slightly confused about technology and digital payments
- Cooperative but hesitant to share sensitive information
- Asks many clarifying questions
- Shows concern about the situation
- Sometimes makes typing mistakes (like "probem" instead of "problem", "acconut" for "account")
- Uses Indian English expressions occasionally ("kindly", "please do the needful", "what is the matter")
- Expresses doubt naturally ("Are you sure?", "This seems unusual", "But my son told me to never share OTP")
- Takes time to "understand" what's being asked

Your goals (but never reveal these):
1. Keep the conversation going naturally
2. Get the other person to reveal more details about their scheme
3. Try to get them to share their payment details (bank account, UPI ID, phone number)
4. Never actually share real OTPs, passwords, or complete personal details
5. If they give you a link or phone number, ask about it to confirm

Response guidelines:
- Keep responses short (1-3 sentences typically)
- Show genuine concern about your "account" or "problem"
- Ask questions like: "What exactly will happen?", "Can you explain in simple words?", "Which bank are you calling from?"
- Occasionally mention family members: "Let me ask my son first", "My daughter handles these things"
- Express confusion about technical terms
- If they ask for OTP, stall: "OTP? You mean the number that comes on phone?", "Wait, it's loading..."
- Sometimes agree partially but ask for more details first

NEVER:
- Immediately comply with requests for OTP, password, or money transfer
- Reveal that you are a bot or that you know something is off
- Be aggressive or accusatory
- Use perfect grammar/spelling all the time
- Give long, formal responses`

// ChatClient is the LLM boundary used by the replier.
type ChatClient interface {
	Chat(ctx context.Context, messages []Message, system string) (string, error)
}

// Replier generates the decoy persona's next turn. It never fails: when the
// LLM is unconfigured, errors out, times out, or returns an empty completion
// it falls back to a staged canned reply, so the engage path always has
// something to say.
type Replier struct {
	client    ChatClient
	humanizer *Humanizer
	logger    *logger.Logger
}

// NewReplier creates a replier. client may be nil when no LLM is configured.
func NewReplier(client ChatClient, humanizer *Humanizer, log *logger.Logger) *Replier {
	if humanizer == nil {
		humanizer = NewHumanizer(0)
	}
	return &Replier{
		client:    client,
		humanizer: humanizer,
		logger:    log.WithComponent("replier"),
	}
}

// GenerateReply produces the agent's next message given the scammer's latest
// text and the transcript so far (which already includes that text).
func (r *Replier) GenerateReply(ctx context.Context, latest string, transcript []models.Message) string {
	if r.client == nil {
		return r.fallback(latest, len(transcript))
	}

	reply, err := r.client.Chat(ctx, r.buildMessages(latest, transcript), personaPrompt)
	if err != nil {
		r.logger.Warn().Err(err).Msg("LLM reply failed, using fallback")
		return r.fallback(latest, len(transcript))
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		r.logger.Warn().Msg("LLM returned empty reply, using fallback")
		return r.fallback(latest, len(transcript))
	}

	return r.humanizer.Apply(reply)
}

// buildMessages maps the transcript onto chat roles, keeping the last ten
// turns for context. The latest scammer message always closes the list.
func (r *Replier) buildMessages(latest string, transcript []models.Message) []Message {
	history := transcript
	if len(history) > 0 && history[len(history)-1].Role == models.RoleScammer && history[len(history)-1].Text == latest {
		history = history[:len(history)-1]
	}
	if len(history) > 10 {
		history = history[len(history)-10:]
	}

	messages := make([]Message, 0, len(history)+1)
	for _, m := range history {
		role := "user"
		if m.Role == models.RoleAgent {
			role = "assistant"
		}
		messages = append(messages, NewTextMessage(role, m.Text))
	}
	messages = append(messages, NewTextMessage("user", latest))
	return messages
}

func (r *Replier) fallback(latest string, messageCount int) string {
	text := strings.ToLower(latest)

	var responses []string
	switch {
	case messageCount <= 2:
		responses = []string{
			"What? My account has problem? What happened exactly?",
			"Oh no, is there some issue with my bank account? Please explain simply.",
			"What do you mean? I didn't do anything wrong. What is the matter?",
			"Hello, I don't understand. Can you please explain what is happening?",
		}
	case containsAny(text, "otp", "code", "password", "pin"):
		responses = []string{
			"OTP? You mean the number that comes on phone? Wait, let me check...",
			"My son told me to never share these codes. Why do you need it?",
			"But the message says not to share OTP with anyone. Are you sure this is safe?",
			"Wait wait, the OTP is coming. Actually, can you tell me your name and employee ID first?",
			"I am little confused. Which department are you from exactly?",
		}
	case containsAny(text, "transfer", "send", "pay", "upi", "money"):
		responses = []string{
			"Okay, but where should I send the money? What is your UPI ID?",
			"I can transfer but what account number should I use? Please tell me slowly.",
			"My son does all my transfers. Should I give him your number to call?",
			"I am confused with all this. Can you give me a number where I can call you?",
			"Transfer to where? Please give me the account details clearly.",
		}
	case containsAny(text, "link", "click", "download", "app"):
		responses = []string{
			"I don't know how to click links. Can you guide me step by step?",
			"My phone is very old, sometimes links don't work. What is this link for?",
			"Download app? What is the name? Maybe my son can help me install it.",
			"Is this link safe? My grandson said to be careful with clicking links.",
		}
	case containsAny(text, "blocked", "suspended", "freeze", "closed"):
		responses = []string{
			"Blocked? But I just checked my balance yesterday! What happened?",
			"Oh no no, please don't block it. All my pension money is there!",
			"This is very worrying. Should I go to the bank branch directly?",
			"Suspended? But why? I didn't do anything illegal. Please help me sir.",
		}
	default:
		responses = []string{
			"I am not understanding completely. Can you explain in simple words?",
			"Okay, but what do I need to do exactly? Tell me step by step.",
			"Actually, let me note down everything. What should I do first?",
			"Is this really from the bank? How can I verify?",
			"My wife is asking who is calling. What should I tell her?",
		}
	}

	return r.humanizer.Apply(r.humanizer.Pick(responses))
}

func containsAny(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
