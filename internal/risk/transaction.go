package risk

import (
	"context"
	"time"

	"github.com/kshitij/safepay/backend/internal/domain"
)

// EntityRiskSource supplies fraud-rate risk for devices, IPs, and VPAs.
// Implementations may consult the intel graph or return defaults.
type EntityRiskSource interface {
	DeviceRisk(ctx context.Context, deviceID string) float64
	IPRisk(ctx context.Context, ip string) float64
	VPARisk(ctx context.Context, vpa string) float64
}

// defaultEntityRisk is assumed for entities the intel layer has never seen.
const defaultEntityRisk = 0.3

// StaticEntityRisk is an EntityRiskSource that always returns the unknown-entity
// default. Used when the intel graph is not configured.
type StaticEntityRisk struct{}

func (StaticEntityRisk) DeviceRisk(context.Context, string) float64 { return defaultEntityRisk }
func (StaticEntityRisk) IPRisk(context.Context, string) float64     { return defaultEntityRisk }
func (StaticEntityRisk) VPARisk(context.Context, string) float64    { return defaultEntityRisk }

// TransactionInput carries the fields the scorer evaluates.
type TransactionInput struct {
	Amount         float64
	PayerVPA       string
	BeneficiaryVPA string
	DeviceID       string
	IPAddress      string
	Timestamp      time.Time
	Status         string
}

// Component weights for the combined transaction risk score.
const (
	timeWeight    = 0.15
	amountWeight  = 0.20
	deviceWeight  = 0.15
	ipWeight      = 0.10
	vpaWeight     = 0.15
	statusWeight  = 0.10
	modelWeight   = 0.10
	anomalyWeight = 0.05
)

// TransactionScorer assigns 0-10 risk scores to transactions from weighted
// per-component heuristics.
type TransactionScorer struct {
	entities EntityRiskSource
	nowFn    func() time.Time
}

// NewTransactionScorer constructs a scorer. A nil entity source falls back to
// static defaults.
func NewTransactionScorer(entities EntityRiskSource) *TransactionScorer {
	if entities == nil {
		entities = StaticEntityRisk{}
	}
	return &TransactionScorer{
		entities: entities,
		nowFn:    time.Now,
	}
}

// WithClock overrides the time provider (used primarily in tests).
func (s *TransactionScorer) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		s.nowFn = nowFn
	}
}

// Score calculates the weighted risk score for a transaction. modelScore is an
// optional classifier probability in [0,1]; pass a negative value when absent.
func (s *TransactionScorer) Score(ctx context.Context, input TransactionInput, modelScore float64) domain.TransactionRisk {
	ts := input.Timestamp
	if ts.IsZero() {
		ts = s.nowFn()
	}

	timeRisk := TimeRisk(ts.Hour())
	amountRisk := AmountRisk(input.Amount)

	deviceRisk := defaultEntityRisk
	if input.DeviceID != "" {
		deviceRisk = s.entities.DeviceRisk(ctx, input.DeviceID)
	}
	ipRisk := defaultEntityRisk
	if input.IPAddress != "" {
		ipRisk = s.entities.IPRisk(ctx, input.IPAddress)
	}
	vpaRisk := defaultEntityRisk
	if input.PayerVPA != "" {
		vpaRisk = s.entities.VPARisk(ctx, input.PayerVPA)
	}

	statusRisk := 0.2
	if input.Status == "FAILED" {
		statusRisk = 0.7
	}

	mlRisk := 0.0
	if modelScore >= 0 {
		mlRisk = domain.ClampScore(modelScore, 0, 1)
	}

	combined := timeWeight*timeRisk +
		amountWeight*amountRisk +
		deviceWeight*deviceRisk +
		ipWeight*ipRisk +
		vpaWeight*vpaRisk +
		statusWeight*statusRisk +
		modelWeight*mlRisk

	score := domain.ClampScore(combined*10, 0, 10)

	return domain.TransactionRisk{
		RiskScore: score,
		RiskLevel: domain.LevelForScore(score),
		Components: map[string]float64{
			"time_risk":   timeRisk,
			"amount_risk": amountRisk,
			"device_risk": deviceRisk,
			"ip_risk":     ipRisk,
			"vpa_risk":    vpaRisk,
			"status_risk": statusRisk,
			"ml_risk":     mlRisk,
		},
	}
}

// TimeRisk rates the transaction hour. Night-time transfers carry the most risk.
func TimeRisk(hour int) float64 {
	switch {
	case hour >= 0 && hour < 6:
		return 0.8
	case hour >= 22:
		return 0.6
	case hour >= 6 && hour < 8:
		return 0.4
	default:
		return 0.2
	}
}

// AmountRisk rates the transaction amount. Very small amounts are often fraud
// probes; very large ones carry elevated exposure.
func AmountRisk(amount float64) float64 {
	switch {
	case amount < 10:
		return 0.7
	case amount > 10000:
		return 0.6
	case amount > 5000:
		return 0.4
	default:
		return 0.2
	}
}
