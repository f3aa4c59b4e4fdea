package risk

import (
	"context"
	"testing"
	"time"

	"github.com/kshitij/safepay/backend/internal/domain"
)

type stubEntityRisk struct {
	device float64
	ip     float64
	vpa    float64
}

func (s stubEntityRisk) DeviceRisk(context.Context, string) float64 { return s.device }
func (s stubEntityRisk) IPRisk(context.Context, string) float64     { return s.ip }
func (s stubEntityRisk) VPARisk(context.Context, string) float64    { return s.vpa }

func TestTimeRisk(t *testing.T) {
	cases := []struct {
		hour int
		want float64
	}{
		{2, 0.8},
		{23, 0.6},
		{7, 0.4},
		{14, 0.2},
	}
	for _, tc := range cases {
		if got := TimeRisk(tc.hour); got != tc.want {
			t.Errorf("TimeRisk(%d) = %v, want %v", tc.hour, got, tc.want)
		}
	}
}

func TestAmountRisk(t *testing.T) {
	cases := []struct {
		amount float64
		want   float64
	}{
		{5, 0.7},
		{15000, 0.6},
		{7500, 0.4},
		{500, 0.2},
	}
	for _, tc := range cases {
		if got := AmountRisk(tc.amount); got != tc.want {
			t.Errorf("AmountRisk(%v) = %v, want %v", tc.amount, got, tc.want)
		}
	}
}

func TestScoreHighRiskTransaction(t *testing.T) {
	scorer := NewTransactionScorer(stubEntityRisk{device: 0.9, ip: 0.9, vpa: 0.9})

	input := TransactionInput{
		Amount:    5,
		PayerVPA:  "1234567@payzz",
		DeviceID:  "device-1",
		IPAddress: "10.0.0.1",
		Timestamp: time.Date(2025, 3, 1, 3, 0, 0, 0, time.UTC),
		Status:    "FAILED",
	}
	result := scorer.Score(context.Background(), input, 0.95)

	if result.RiskLevel != domain.RiskLevelHigh {
		t.Fatalf("expected HIGH risk, got %s (score %v)", result.RiskLevel, result.RiskScore)
	}
	if result.Components["time_risk"] != 0.8 {
		t.Fatalf("expected night-time risk 0.8, got %v", result.Components["time_risk"])
	}
	if result.Components["status_risk"] != 0.7 {
		t.Fatalf("expected failed-status risk 0.7, got %v", result.Components["status_risk"])
	}
}

func TestScoreLowRiskTransaction(t *testing.T) {
	scorer := NewTransactionScorer(stubEntityRisk{device: 0.1, ip: 0.1, vpa: 0.1})

	input := TransactionInput{
		Amount:    500,
		PayerVPA:  "ramesh.kumar@okaxis",
		DeviceID:  "device-1",
		IPAddress: "10.0.0.1",
		Timestamp: time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC),
		Status:    "SUCCESS",
	}
	result := scorer.Score(context.Background(), input, -1)

	if result.RiskLevel != domain.RiskLevelLow {
		t.Fatalf("expected LOW risk, got %s (score %v)", result.RiskLevel, result.RiskScore)
	}
	if result.Components["ml_risk"] != 0 {
		t.Fatalf("expected ml_risk 0 when no model score, got %v", result.Components["ml_risk"])
	}
}

func TestScoreDefaultsForMissingEntities(t *testing.T) {
	scorer := NewTransactionScorer(nil)

	result := scorer.Score(context.Background(), TransactionInput{
		Amount:    500,
		Timestamp: time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC),
	}, -1)

	if result.Components["device_risk"] != defaultEntityRisk {
		t.Fatalf("expected default device risk, got %v", result.Components["device_risk"])
	}
	if result.Components["vpa_risk"] != defaultEntityRisk {
		t.Fatalf("expected default vpa risk, got %v", result.Components["vpa_risk"])
	}
}

func TestScoreUsesClockForZeroTimestamp(t *testing.T) {
	scorer := NewTransactionScorer(nil)
	scorer.WithClock(func() time.Time {
		return time.Date(2025, 3, 1, 2, 0, 0, 0, time.UTC)
	})

	result := scorer.Score(context.Background(), TransactionInput{Amount: 500}, -1)

	if result.Components["time_risk"] != 0.8 {
		t.Fatalf("expected clock-derived night risk, got %v", result.Components["time_risk"])
	}
}
