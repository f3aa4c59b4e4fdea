package risk

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/kshitij/safepay/backend/internal/domain"
	"github.com/kshitij/safepay/backend/internal/upi"
)

var (
	upiSuspiciousKeywords = []string{"urgent", "verify", "kyc", "block", "expire", "update", "limited"}
	vpaSuspiciousWords    = []string{"verify", "kyc", "urgent", "alert"}
	vpaSuspiciousDomains  = []string{"verification", "alert", "secure", "update", "block"}
	urlCredentialWords    = []string{"login", "verify", "account", "secure", "banking", "update", "password"}

	shortenedURLDomains = map[string]struct{}{
		"bit.ly":      {},
		"goo.gl":      {},
		"tinyurl.com": {},
		"t.co":        {},
		"is.gd":       {},
		"cli.gs":      {},
		"ow.ly":       {},
	}

	ipHostRegex = regexp.MustCompile(`^\d+\.\d+\.\d+\.\d+`)
)

// QRAnalyzer applies rule-based checks to scanned QR payloads and converts the
// findings into a 0-100 risk score.
type QRAnalyzer struct{}

// NewQRAnalyzer returns a ready-to-use QRAnalyzer.
func NewQRAnalyzer() *QRAnalyzer {
	return &QRAnalyzer{}
}

// Analyze produces a heuristic scan result for the payload. It never fails:
// unparseable content degrades to a low-information verdict.
func (a *QRAnalyzer) Analyze(payload domain.QRPayload) domain.ScanResult {
	if strings.TrimSpace(payload.Raw) == "" {
		return domain.ScanResult{
			RiskScore: 0,
			RiskLevel: domain.RiskLevelUnknown,
			Label:     "Unknown",
			Reasons:   []string{"Empty QR content"},
			Source:    domain.VerdictSourceHeuristic,
			Features:  ExtractFeatures(""),
		}
	}

	reasons := a.suspicions(payload)

	// Invalid VPA syntax on a payment QR is the strongest local signal.
	if payload.IsUPI && payload.PayeeVPA != "" && !payload.SyntaxValid {
		return buildScanResult(90, append([]string{"Invalid UPI syntax"}, reasons...), payload)
	}

	base := 20
	if len(reasons) > 0 {
		base = 50 + min(40, len(reasons)*10)
	} else if payload.IsUPI {
		// Standard upi:// payloads without urgency keywords get relief.
		base = max(10, base-15)
		reasons = []string{"No suspicious patterns detected"}
	} else {
		reasons = []string{"No suspicious patterns detected"}
	}

	return buildScanResult(base, reasons, payload)
}

// suspicions collects rule-hit reasons for the payload.
func (a *QRAnalyzer) suspicions(payload domain.QRPayload) []string {
	var reasons []string
	lower := strings.ToLower(payload.Raw)

	if payload.IsUPI {
		for _, kw := range upiSuspiciousKeywords {
			if strings.Contains(lower, kw) {
				reasons = append(reasons, "Suspicious keyword in UPI: '"+kw+"'")
			}
		}

		if payload.PayeeVPA != "" {
			vpaLower := strings.ToLower(payload.PayeeVPA)
			for _, word := range vpaSuspiciousWords {
				if strings.Contains(vpaLower, word) {
					reasons = append(reasons, "Suspicious UPI ID: "+payload.PayeeVPA)
					break
				}
			}
			if _, provider, ok := upi.SplitVPA(payload.PayeeVPA); ok {
				for _, susp := range vpaSuspiciousDomains {
					if strings.Contains(strings.ToLower(provider), susp) {
						reasons = append(reasons, "Suspicious UPI domain: "+provider)
						break
					}
				}
			}
		}
		return reasons
	}

	if payload.IsURL {
		parsed, err := url.Parse(payload.Raw)
		host := ""
		if err == nil {
			host = strings.ToLower(parsed.Hostname())
		}

		if _, shortened := shortenedURLDomains[host]; shortened {
			reasons = append(reasons, "Shortened URL detected: "+host)
		}
		if strings.HasPrefix(lower, "http://") {
			reasons = append(reasons, "Non-secure HTTP connection")
		}
		for _, kw := range urlCredentialWords {
			if strings.Contains(lower, kw) {
				reasons = append(reasons, "Suspicious keyword in URL: '"+kw+"'")
			}
		}
		if ipHostRegex.MatchString(host) {
			reasons = append(reasons, "IP address used instead of domain name")
		}
	}

	return reasons
}

// ExtractFeatures builds the flat feature vector reported alongside scan results.
func ExtractFeatures(raw string) domain.ScanFeatures {
	lower := strings.ToLower(raw)
	return domain.ScanFeatures{
		Length:     len(raw),
		HasUPI:     boolToInt(strings.HasPrefix(lower, "upi://")),
		NumParams:  strings.Count(raw, "&"),
		Urgent:     boolToInt(containsAny(lower, "urgent", "kyc", "verify")),
		Payment:    boolToInt(strings.Contains(lower, "pay")),
		Currency:   boolToInt(strings.Contains(lower, "inr")),
		HasURL:     boolToInt(strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")),
		HTTPScheme: boolToInt(strings.HasPrefix(lower, "http://")),
	}
}

func buildScanResult(score int, reasons []string, payload domain.QRPayload) domain.ScanResult {
	score = int(domain.ClampScore(float64(score), 0, 100))
	label := "Safe"
	if score > 65 {
		label = "Scam"
	}
	return domain.ScanResult{
		RiskScore: score,
		RiskLevel: domain.LevelForScore(float64(score) / 10),
		Label:     label,
		Reasons:   reasons,
		Source:    domain.VerdictSourceHeuristic,
		Features:  ExtractFeatures(payload.Raw),
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
