package risk

import (
	"github.com/kshitij/safepay/backend/internal/domain"
	"github.com/kshitij/safepay/backend/internal/upi"
)

// maxPatternRisk caps the pattern contribution added on top of the
// transaction risk score.
const maxPatternRisk = 3.0

// VPAPatternRisk rates the shape of a UPI ID itself: very short handles,
// all-digit handles, and unknown provider suffixes each add risk.
func VPAPatternRisk(vpa string) float64 {
	handle, provider, ok := upi.SplitVPA(vpa)
	if !ok {
		return maxPatternRisk
	}

	risk := 0.0
	if len(handle) < 4 {
		risk += 2.0
	}
	if isAllDigits(handle) {
		risk += 1.5
	}
	if !upi.IsKnownProvider(provider) {
		risk += 1.0
	}

	return domain.ClampScore(risk, 0, maxPatternRisk)
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
