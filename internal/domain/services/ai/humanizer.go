package ai

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

var typoWords = map[string][]string{
	"problem":      {"probem", "problm", "probelm"},
	"account":      {"acconut", "accont", "acount"},
	"transfer":     {"tranfer", "trasnfer", "trasfer"},
	"payment":      {"payemnt", "paymnt", "paymet"},
	"please":       {"plese", "pls", "plz"},
	"understand":   {"understnad", "undrestand", "undrstand"},
	"message":      {"messge", "mesage", "msg"},
	"verification": {"verfication", "verifcation", "verificaton"},
	"immediately":  {"immediatly", "immedately", "immidiately"},
}

var hesitationPhrases = []string{
	"Hmm...", "Wait...", "Let me think...", "But...",
	"I'm not sure...", "Actually...", "One moment...",
	"Let me see...", "Okay but...",
}

// Humanizer roughs up generated replies with occasional hesitation prefixes
// and letter-swap typos so they read less machine-perfect. A fixed seed makes
// the output deterministic for tests.
type Humanizer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewHumanizer creates a humanizer. A zero seed uses the clock.
func NewHumanizer(seed int64) *Humanizer {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Humanizer{rng: rand.New(rand.NewSource(seed))}
}

// Apply adds human touches to text: a hesitation prefix one time in five and
// a typo for roughly one eligible word in seven.
func (h *Humanizer) Apply(text string) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rng.Float64() < 0.2 {
		text = hesitationPhrases[h.rng.Intn(len(hesitationPhrases))] + " " + text
	}

	words := strings.Fields(text)
	for i, word := range words {
		trimmed := strings.Trim(word, ".,!?")
		typos, ok := typoWords[strings.ToLower(trimmed)]
		if !ok || h.rng.Float64() >= 0.15 {
			continue
		}
		words[i] = strings.Replace(word, trimmed, typos[h.rng.Intn(len(typos))], 1)
	}
	return strings.Join(words, " ")
}

// Pick selects one of the candidate replies.
func (h *Humanizer) Pick(candidates []string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return candidates[h.rng.Intn(len(candidates))]
}
