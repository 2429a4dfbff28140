package services

import (
	"sync"

	"scamtrap-lab/pkg/logger"
)

// Detector is one scoring dimension of the scam classifier. Keyword matching
// is case-insensitive and tolerant of interleaved punctuation.
type Detector struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Keywords       []string `json:"keywords"`
	PointsPerMatch int      `json:"pointsPerMatch"`
	MaxPoints      int      `json:"maxPoints"`
	Tag            string   `json:"tag,omitempty"` // fixed tag; empty means per-keyword tags
	Enabled        bool     `json:"enabled"`
}

// PatternCatalog holds the detector vocabularies used by the scorer and the
// keyword list shared with the intelligence extractor.
type PatternCatalog struct {
	mu          sync.RWMutex
	logger      *logger.Logger
	detectors   []Detector
	banks       []string
	authorities []string
}

// NewPatternCatalog creates a catalog loaded with the default vocabularies.
func NewPatternCatalog(log *logger.Logger) *PatternCatalog {
	c := &PatternCatalog{
		logger: log.WithComponent("pattern-catalog"),
	}
	c.loadDefaults()
	return c
}

func (c *PatternCatalog) loadDefaults() {
	c.detectors = []Detector{
		{
			ID:   "kw-001",
			Name: "Suspicious Keywords",
			Keywords: []string{
				// Urgency
				"urgent", "immediately", "right now", "within 24 hours", "act fast",
				"hurry", "limited time", "expires today", "last chance",
				// Account related
				"blocked", "suspended", "verify", "verification", "update",
				"expired", "deactivated", "locked", "restricted",
				// Banking / financial
				"otp", "bank", "upi", "account", "transaction", "transfer",
				"payment", "refund", "credit", "debit", "balance",
				// Prize bait
				"prize", "lottery", "winner", "won", "congratulations", "selected",
				"lucky", "reward", "cash prize", "free gift",
				// KYC / documentation
				"kyc", "pan card", "aadhar", "aadhaar", "documents", "identity",
				// Government / authority
				"rbi", "income tax", "customs", "police", "court", "legal",
				"government", "ministry", "department",
				// Threats
				"arrest", "fine", "penalty", "legal action", "case filed",
				"fir", "complaint", "investigate", "fraud",
				// Instructions
				"click here", "click the link", "download", "install",
				"share otp", "send money", "pay now",
			},
			PointsPerMatch: 5,
			MaxPoints:      30,
			Enabled:        true,
		},
		{
			ID:   "urg-001",
			Name: "Urgency Tactics",
			Keywords: []string{
				"urgent", "immediately", "right now", "within 24 hours",
				"within 2 hours", "today only", "expires", "last warning",
				"final notice", "act fast", "hurry", "don't delay",
			},
			PointsPerMatch: 10,
			MaxPoints:      20,
			Tag:            "urgency_tactics",
			Enabled:        true,
		},
		{
			ID:   "thr-001",
			Name: "Threat Language",
			Keywords: []string{
				"blocked", "suspended", "arrest", "legal action",
				"case filed", "fir", "complaint", "penalty", "fine",
				"terminate", "cancel", "disconnect", "seize",
			},
			PointsPerMatch: 10,
			MaxPoints:      20,
			Tag:            "threat_detected",
			Enabled:        true,
		},
	}

	c.banks = []string{
		"sbi", "state bank", "hdfc", "icici", "axis", "kotak",
		"pnb", "punjab national", "bob", "bank of baroda",
		"canara", "union bank", "idbi", "yes bank", "indusind",
		"paytm", "phonepe", "gpay", "google pay", "amazon pay",
	}

	c.authorities = []string{
		"rbi", "reserve bank", "income tax", "it department",
		"customs", "police", "cyber cell", "cbi", "ed",
		"enforcement directorate", "sebi", "trai",
		"telecom", "airtel", "jio", "vodafone", "bsnl",
	}
}

// Detectors returns the enabled detectors.
func (c *PatternCatalog) Detectors() []Detector {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Detector, 0, len(c.detectors))
	for _, d := range c.detectors {
		if d.Enabled {
			out = append(out, d)
		}
	}
	return out
}

// Institutions returns the impersonation vocabularies, banks then authorities.
func (c *PatternCatalog) Institutions() (banks, authorities []string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.banks...), append([]string(nil), c.authorities...)
}

// SuspiciousKeywords returns the keyword vocabulary shared with the extractor.
func (c *PatternCatalog) SuspiciousKeywords() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, d := range c.detectors {
		if d.ID == "kw-001" {
			return append([]string(nil), d.Keywords...)
		}
	}
	return nil
}

// Snapshot is the read-only catalog view served by the patterns endpoint.
type CatalogSnapshot struct {
	Detectors   []Detector `json:"detectors"`
	Banks       []string   `json:"banks"`
	Authorities []string   `json:"authorities"`
}

// Snapshot returns a copy of the full catalog.
func (c *PatternCatalog) Snapshot() CatalogSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return CatalogSnapshot{
		Detectors:   append([]Detector(nil), c.detectors...),
		Banks:       append([]string(nil), c.banks...),
		Authorities: append([]string(nil), c.authorities...),
	}
}
