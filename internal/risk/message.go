// Package risk implements the local heuristic engines used to score QR
// payloads, messages, UPI IDs, and transactions when no LLM verdict is
// available, and to supplement LLM verdicts when one is.
package risk

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kshitij/safepay/backend/internal/domain"
)

// scamKeywords are substrings commonly present in UPI scam messages.
var scamKeywords = []string{
	"urgent", "emergency", "kyc", "account block", "suspend", "blocked",
	"verify", "reward", "prize", "won", "winner", "lottery", "claim",
	"payment failed", "expired", "link", "click", "update",
	"immediate", "action required", "bank", "credit", "refund",
	"otp", "password", "pin", "security", "alert", "attention",
	"compromised", "unauthorized", "suspicious", "hack", "activate",
	"deactivate", "government", "tax", "income tax", "it department",
	"official", "helpline", "customer care", "support", "offer",
	"discount", "cashback", "free", "gift", "limited time", "hurry",
	"problem", "issue", "resolve", "last chance", "warning",
}

// scamPatterns are regexes for multi-word scam constructions.
var scamPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)urgent.*kyc`),
	regexp.MustCompile(`(?i)account.*block`),
	regexp.MustCompile(`(?i)suspend.*account`),
	regexp.MustCompile(`(?i)verify.*account`),
	regexp.MustCompile(`(?i)won.*prize|won.*reward|won.*lottery`),
	regexp.MustCompile(`(?i)click.*link`),
	regexp.MustCompile(`(?i)otp.*share`),
	regexp.MustCompile(`(?i)password.*update`),
	regexp.MustCompile(`(?i)bank.*alert`),
	regexp.MustCompile(`(?i)last.*chance`),
	regexp.MustCompile(`(?i)expires.*today`),
	regexp.MustCompile(`(?i)action.*required`),
	regexp.MustCompile(`(?i)call.*helpline`),
	regexp.MustCompile(`(?i)customer.*care`),
	regexp.MustCompile(`(?i)your.*payment.*failed`),
}

var urlRegex = regexp.MustCompile(`https?://\S+|www\.\S+`)

const (
	// defaultClassifierScore is assumed when no external classifier verdict exists.
	defaultClassifierScore = 0.5

	keywordWeight    = 0.4
	classifierWeight = 0.6

	scamThreshold = 0.7
)

// MessageAnalyzer scores free-text messages for scam likelihood using keyword
// and pattern matching combined with an optional classifier probability.
type MessageAnalyzer struct{}

// NewMessageAnalyzer returns a ready-to-use MessageAnalyzer.
func NewMessageAnalyzer() *MessageAnalyzer {
	return &MessageAnalyzer{}
}

// Analyze scores a message without an external classifier verdict.
func (a *MessageAnalyzer) Analyze(text string) domain.MessageAnalysis {
	return a.AnalyzeWithClassifier(text, defaultClassifierScore)
}

// AnalyzeWithClassifier scores a message folding in a classifier probability,
// typically the LLM's scam confidence. The classifier score must be in [0,1].
func (a *MessageAnalyzer) AnalyzeWithClassifier(text string, classifierScore float64) domain.MessageAnalysis {
	if len(text) < 3 {
		return domain.MessageAnalysis{
			ScamProbability: 0.1,
			IsScam:          false,
			RiskLevel:       domain.RiskLevelLow,
			WarningFlags:    []string{},
			Explanation:     "Message too short for analysis.",
		}
	}

	classifierScore = domain.ClampScore(classifierScore, 0, 1)
	keywordScore := a.KeywordScore(text)
	combined := keywordScore*keywordWeight + classifierScore*classifierWeight

	flags := warningFlags(text)

	return domain.MessageAnalysis{
		ScamProbability: combined,
		IsScam:          combined > scamThreshold,
		RiskLevel:       domain.LevelForProbability(combined),
		WarningFlags:    flags,
		Explanation:     explanationFor(combined),
	}
}

// KeywordScore computes the keyword/pattern match score normalized to [0,1].
// Each keyword hit contributes 0.1 and each pattern hit 0.3.
func (a *MessageAnalyzer) KeywordScore(text string) float64 {
	lower := strings.ToLower(text)

	keywordMatches := 0
	for _, kw := range scamKeywords {
		if strings.Contains(lower, kw) {
			keywordMatches++
		}
	}

	patternMatches := 0
	for _, pattern := range scamPatterns {
		if pattern.MatchString(text) {
			patternMatches++
		}
	}

	score := float64(keywordMatches)*0.1 + float64(patternMatches)*0.3
	return domain.ClampScore(score, 0, 1)
}

func warningFlags(text string) []string {
	flags := []string{}

	for _, pattern := range scamPatterns {
		if match := pattern.FindString(text); match != "" {
			flags = append(flags, fmt.Sprintf("Suspicious pattern: %q", match))
		}
	}

	if urlRegex.MatchString(text) {
		flags = append(flags, "Contains URL (potential phishing)")
	}

	upper := 0
	for _, c := range text {
		if c >= 'A' && c <= 'Z' {
			upper++
		}
	}
	if len(text) > 0 && float64(upper)/float64(len(text)) > 0.5 {
		flags = append(flags, "Excessive use of UPPERCASE (aggressive tone)")
	}

	if strings.Count(text, "!") > 2 {
		flags = append(flags, "Multiple exclamation marks (sense of urgency)")
	}

	return flags
}

func explanationFor(score float64) string {
	switch {
	case score > scamThreshold:
		return "This message contains multiple patterns common in scam messages, including urgency language or requests for sensitive information."
	case score > 0.3:
		return "This message has some characteristics of scam messages, but isn't a definite match. Exercise caution."
	default:
		return "This message seems legitimate based on our analysis."
	}
}
