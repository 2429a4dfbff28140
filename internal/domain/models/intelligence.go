package models

import "time"

// Intelligence is the actionable intelligence harvested from a conversation.
// Each list is deduplicated and keeps first-seen order.
type Intelligence struct {
	BankAccounts       []string `json:"bankAccounts"`
	UPIIDs             []string `json:"upiIds"`
	PhishingLinks      []string `json:"phishingLinks"`
	PhoneNumbers       []string `json:"phoneNumbers"`
	SuspiciousKeywords []string `json:"suspiciousKeywords"`
}

// Merge unions other into i, preserving first-seen order. It reports whether
// anything new was added, so session intelligence only ever grows.
func (i *Intelligence) Merge(other Intelligence) bool {
	changed := false
	i.BankAccounts, changed = mergeList(i.BankAccounts, other.BankAccounts, changed)
	i.UPIIDs, changed = mergeList(i.UPIIDs, other.UPIIDs, changed)
	i.PhishingLinks, changed = mergeList(i.PhishingLinks, other.PhishingLinks, changed)
	i.PhoneNumbers, changed = mergeList(i.PhoneNumbers, other.PhoneNumbers, changed)
	i.SuspiciousKeywords, changed = mergeList(i.SuspiciousKeywords, other.SuspiciousKeywords, changed)
	return changed
}

// HasHighValue reports whether the intelligence contains a financial
// identifier or a phishing link, the signals worth finalizing a session over.
func (i Intelligence) HasHighValue() bool {
	return len(i.BankAccounts) > 0 || len(i.UPIIDs) > 0 || len(i.PhishingLinks) > 0
}

// TotalItems counts every extracted item across all categories.
func (i Intelligence) TotalItems() int {
	return len(i.BankAccounts) + len(i.UPIIDs) + len(i.PhishingLinks) +
		len(i.PhoneNumbers) + len(i.SuspiciousKeywords)
}

func mergeList(dst, src []string, changed bool) ([]string, bool) {
	if len(src) == 0 {
		return dst, changed
	}
	seen := make(map[string]struct{}, len(dst))
	for _, v := range dst {
		seen[v] = struct{}{}
	}
	for _, v := range src {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		dst = append(dst, v)
		changed = true
	}
	return dst, changed
}

// ScoreResult is the outcome of scoring a single message.
type ScoreResult struct {
	Score int      `json:"score"`
	Tags  []string `json:"tags"`
}

// FinalReport is the payload delivered to the platform callback when a
// session finalizes.
type FinalReport struct {
	SessionID              string       `json:"sessionId"`
	ScamDetected           bool         `json:"scamDetected"`
	Confidence             int          `json:"confidence"`
	TotalMessagesExchanged int          `json:"totalMessagesExchanged"`
	Intelligence           Intelligence `json:"intelligence"`
	Tactics                []string     `json:"tactics"`
	AgentNotes             string       `json:"agentNotes"`
	FinalizedAt            time.Time    `json:"finalizedAt"`
}
