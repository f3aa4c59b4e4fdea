package domain

// RiskLevel buckets a numeric risk score into the three bands surfaced to the client.
type RiskLevel string

const (
	RiskLevelLow     RiskLevel = "LOW"
	RiskLevelMedium  RiskLevel = "MEDIUM"
	RiskLevelHigh    RiskLevel = "HIGH"
	RiskLevelUnknown RiskLevel = "UNKNOWN"
)

// LevelForScore maps a 0-10 risk score onto a RiskLevel. Scores below 3 are LOW,
// below 7 MEDIUM, everything else HIGH.
func LevelForScore(score float64) RiskLevel {
	switch {
	case score < 3:
		return RiskLevelLow
	case score < 7:
		return RiskLevelMedium
	default:
		return RiskLevelHigh
	}
}

// LevelForProbability maps a 0-1 probability onto a RiskLevel using the 0.3/0.7 bands.
func LevelForProbability(p float64) RiskLevel {
	switch {
	case p < 0.3:
		return RiskLevelLow
	case p < 0.7:
		return RiskLevelMedium
	default:
		return RiskLevelHigh
	}
}

// ClampScore bounds a score to the provided range.
func ClampScore(score, min, max float64) float64 {
	if score < min {
		return min
	}
	if score > max {
		return max
	}
	return score
}
