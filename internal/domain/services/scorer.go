package services

import (
	"strings"

	"scamtrap-lab/internal/domain/models"
	"scamtrap-lab/pkg/logger"
)

// ScamThreshold is the per-message score at or above which a message is
// considered scam-flagged.
const ScamThreshold = 40

// contextWindow is how many recent transcript turns are folded into a
// context-aware score.
const contextWindow = 5

// ScamScorer classifies a single message against the pattern catalog.
// Scoring is deterministic and stateless: each detector contributes a fixed
// number of points per match up to its cap, and the sum is clamped to 0-100.
type ScamScorer struct {
	catalog *PatternCatalog
	logger  *logger.Logger
}

// NewScamScorer creates a scorer backed by the given catalog.
func NewScamScorer(catalog *PatternCatalog, log *logger.Logger) *ScamScorer {
	return &ScamScorer{
		catalog: catalog,
		logger:  log.WithComponent("scam-scorer"),
	}
}

// Score analyzes one message and returns its confidence score and tags.
// Empty or whitespace-only input scores zero.
func (s *ScamScorer) Score(text string) models.ScoreResult {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return models.ScoreResult{}
	}
	stripped := stripPunctuation(lower)

	score := 0
	var tags []string
	seenTags := make(map[string]struct{})

	addTag := func(tag string) {
		if _, ok := seenTags[tag]; ok {
			return
		}
		seenTags[tag] = struct{}{}
		tags = append(tags, tag)
	}

	for _, d := range s.catalog.Detectors() {
		matches := 0
		for _, kw := range d.Keywords {
			if !containsKeyword(lower, stripped, kw) {
				continue
			}
			matches++
			if d.Tag == "" {
				addTag("keyword:" + kw)
			}
		}
		if matches == 0 {
			continue
		}
		if d.Tag != "" {
			addTag(d.Tag)
		}
		score += capPoints(matches*d.PointsPerMatch, d.MaxPoints)
	}

	banks, authorities := s.catalog.Institutions()
	impersonations := 0
	for _, name := range banks {
		if containsKeyword(lower, stripped, name) {
			impersonations++
			addTag("impersonation:" + strings.ToUpper(name))
		}
	}
	for _, name := range authorities {
		if containsKeyword(lower, stripped, name) {
			impersonations++
			addTag("impersonation:" + strings.ToUpper(name))
		}
	}
	score += capPoints(impersonations*15, 30)

	if score > 100 {
		score = 100
	}

	s.logger.Debug().
		Int("score", score).
		Int("tags", len(tags)).
		Msg("message scored")

	return models.ScoreResult{Score: score, Tags: tags}
}

// ScoreConversation scores the latest message together with the most recent
// transcript turns, so tactics spread across several messages still register.
func (s *ScamScorer) ScoreConversation(text string, transcript []models.Message) models.ScoreResult {
	start := len(transcript) - contextWindow
	if start < 0 {
		start = 0
	}
	parts := make([]string, 0, contextWindow+1)
	for _, m := range transcript[start:] {
		parts = append(parts, m.Text)
	}
	parts = append(parts, text)
	return s.Score(strings.Join(parts, " "))
}

// IsScam reports whether a score crosses the per-message flagging threshold.
func (s *ScamScorer) IsScam(score int) bool {
	return score >= ScamThreshold
}

func capPoints(points, max int) int {
	if points > max {
		return max
	}
	return points
}

// containsKeyword matches against both the raw lowered text and its
// punctuation-stripped projection, so "u.r.g.e.n.t" still matches "urgent".
func containsKeyword(lower, stripped, keyword string) bool {
	if strings.Contains(lower, keyword) {
		return true
	}
	kw := stripPunctuation(keyword)
	return kw != "" && strings.Contains(stripped, kw)
}

// stripPunctuation removes everything except letters, digits and spaces.
func stripPunctuation(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == ' ' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
