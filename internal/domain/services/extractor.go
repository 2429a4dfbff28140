package services

import (
	"regexp"
	"strings"

	"scamtrap-lab/internal/domain/models"
	"scamtrap-lab/pkg/logger"
)

var (
	urlPattern          = regexp.MustCompile(`https?://[^\s<>"{}|\\^` + "`" + `\[\]]+`)
	shortenedURLPattern = regexp.MustCompile(`\b(?:bit\.ly|tinyurl\.com|goo\.gl|t\.co|is\.gd|buff\.ly|ow\.ly|rebrand\.ly)/\S+`)
	upiPattern          = regexp.MustCompile(`\b[a-zA-Z0-9._-]+@[a-zA-Z]{2,}\b`)
	digitRunPattern     = regexp.MustCompile(`\b\d{9,18}\b`)
	phonePattern        = regexp.MustCompile(`(?:\+91[\s-]?|91[\s-]?)?([6-9]\d{9})\b`)
)

var knownUPIHandles = []string{
	"paytm", "ybl", "sbi", "okicici", "okhdfcbank",
	"okaxis", "oksbi", "upi", "apl", "axisbank",
	"ibl", "icici", "kotak", "indus", "hsbc",
}

var emailProviders = []string{"gmail", "yahoo", "hotmail", "outlook", "mail"}

// IntelligenceExtractor pulls actionable intelligence out of conversation
// transcripts. Extraction is pure: same input, same output, no clock and no
// network. Rules run in precedence order per message, and each rule blanks
// the spans it consumed so a substring feeds at most one category.
type IntelligenceExtractor struct {
	keywords []string
	logger   *logger.Logger
}

// NewIntelligenceExtractor creates an extractor sharing the catalog's keyword
// vocabulary.
func NewIntelligenceExtractor(catalog *PatternCatalog, log *logger.Logger) *IntelligenceExtractor {
	return &IntelligenceExtractor{
		keywords: catalog.SuspiciousKeywords(),
		logger:   log.WithComponent("intel-extractor"),
	}
}

// ExtractTranscript runs extraction over every scammer-side message and
// merges the results, deduplicated in first-seen order.
func (e *IntelligenceExtractor) ExtractTranscript(messages []models.Message) models.Intelligence {
	var combined models.Intelligence
	for _, msg := range messages {
		if msg.Role != models.RoleScammer {
			continue
		}
		combined.Merge(e.Extract(msg.Text))
	}
	return combined
}

// Extract runs all extraction rules over a single message text.
func (e *IntelligenceExtractor) Extract(text string) models.Intelligence {
	var intel models.Intelligence
	remaining := text

	remaining, intel.PhishingLinks = e.extractURLs(remaining)
	remaining, intel.UPIIDs = e.extractUPIIDs(remaining)
	remaining, intel.BankAccounts = e.extractBankAccounts(remaining)
	remaining, intel.PhoneNumbers = e.extractPhoneNumbers(remaining)
	intel.SuspiciousKeywords = e.extractKeywords(remaining)

	if n := intel.TotalItems(); n > 0 {
		e.logger.Debug().
			Int("bank_accounts", len(intel.BankAccounts)).
			Int("upi_ids", len(intel.UPIIDs)).
			Int("urls", len(intel.PhishingLinks)).
			Int("phones", len(intel.PhoneNumbers)).
			Int("keywords", len(intel.SuspiciousKeywords)).
			Msg("intelligence extracted")
	}

	return intel
}

func (e *IntelligenceExtractor) extractURLs(text string) (string, []string) {
	var urls []string
	seen := make(map[string]struct{})

	add := func(url string) {
		url = strings.TrimRight(url, ".,;:!?)\"'")
		if url == "" {
			return
		}
		if _, ok := seen[url]; ok {
			return
		}
		seen[url] = struct{}{}
		urls = append(urls, url)
	}

	for _, loc := range urlPattern.FindAllStringIndex(text, -1) {
		add(text[loc[0]:loc[1]])
	}
	text = blankMatches(text, urlPattern)

	// Bare shortener links get a scheme so downstream consumers can follow them
	for _, loc := range shortenedURLPattern.FindAllStringIndex(text, -1) {
		short := strings.TrimRight(text[loc[0]:loc[1]], ".,;:!?)\"'")
		add("https://" + short)
	}
	text = blankMatches(text, shortenedURLPattern)

	return text, urls
}

func (e *IntelligenceExtractor) extractUPIIDs(text string) (string, []string) {
	var upis []string
	seen := make(map[string]struct{})

	consumed := make([][]int, 0)
	for _, loc := range upiPattern.FindAllStringIndex(text, -1) {
		candidate := text[loc[0]:loc[1]]
		at := strings.LastIndex(candidate, "@")
		handle := strings.ToLower(candidate[at+1:])
		if !isKnownUPIHandle(handle) {
			continue
		}
		consumed = append(consumed, loc)
		if _, ok := seen[candidate]; ok {
			continue
		}
		seen[candidate] = struct{}{}
		upis = append(upis, candidate)
	}

	return blankSpans(text, consumed), upis
}

func isKnownUPIHandle(handle string) bool {
	for _, provider := range emailProviders {
		if strings.Contains(handle, provider) {
			return false
		}
	}
	for _, known := range knownUPIHandles {
		if strings.Contains(handle, known) {
			return true
		}
	}
	return false
}

func (e *IntelligenceExtractor) extractBankAccounts(text string) (string, []string) {
	var accounts []string
	seen := make(map[string]struct{})

	consumed := make([][]int, 0)
	for _, loc := range digitRunPattern.FindAllStringIndex(text, -1) {
		digits := text[loc[0]:loc[1]]
		if isPhoneShaped(digits) {
			continue
		}
		consumed = append(consumed, loc)
		if _, ok := seen[digits]; ok {
			continue
		}
		seen[digits] = struct{}{}
		accounts = append(accounts, digits)
	}

	return blankSpans(text, consumed), accounts
}

// isPhoneShaped reports whether a digit run looks like an Indian mobile
// number, bare or with a 91 country prefix, and therefore must not be
// classified as a bank account.
func isPhoneShaped(digits string) bool {
	if len(digits) == 10 && digits[0] >= '6' && digits[0] <= '9' {
		return true
	}
	if len(digits) == 12 && strings.HasPrefix(digits, "91") && digits[2] >= '6' && digits[2] <= '9' {
		return true
	}
	return false
}

func (e *IntelligenceExtractor) extractPhoneNumbers(text string) (string, []string) {
	var phones []string
	seen := make(map[string]struct{})

	consumed := make([][]int, 0)
	for _, loc := range phonePattern.FindAllStringSubmatchIndex(text, -1) {
		// loc[2]:loc[3] is the 10-digit national number group
		if loc[2] < 0 {
			continue
		}
		national := text[loc[2]:loc[3]]
		consumed = append(consumed, []int{loc[0], loc[1]})
		formatted := "+91 " + national
		if _, ok := seen[formatted]; ok {
			continue
		}
		seen[formatted] = struct{}{}
		phones = append(phones, formatted)
	}

	return blankSpans(text, consumed), phones
}

func (e *IntelligenceExtractor) extractKeywords(text string) []string {
	lower := strings.ToLower(text)

	var found []string
	for _, kw := range e.keywords {
		if strings.Contains(lower, kw) {
			found = append(found, kw)
		}
	}
	return found
}

func blankMatches(text string, re *regexp.Regexp) string {
	return blankSpans(text, re.FindAllStringIndex(text, -1))
}

// blankSpans replaces the given [start,end) spans with spaces so later rules
// cannot rematch the same characters while surrounding offsets stay stable.
func blankSpans(text string, spans [][]int) string {
	if len(spans) == 0 {
		return text
	}
	b := []byte(text)
	for _, span := range spans {
		for i := span[0]; i < span[1] && i < len(b); i++ {
			b[i] = ' '
		}
	}
	return string(b)
}
