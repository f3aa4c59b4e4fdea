package service

import (
	"context"
	"log/slog"

	"github.com/kshitij/safepay/backend/internal/domain"
	"github.com/kshitij/safepay/backend/internal/risk"
	"github.com/kshitij/safepay/backend/internal/upi"
)

// invalidVPAScore is assigned when the UPI ID does not even parse.
const invalidVPAScore = 7.5

// CheckService rates UPI IDs and individual transactions using the weighted
// heuristic scorer plus VPA pattern analysis, enriched with the community
// report count for the VPA.
type CheckService struct {
	logger   *slog.Logger
	scorer   *risk.TransactionScorer
	messages *MessageService
	reports  *ReportService
}

// NewCheckService constructs a CheckService. entities may be nil, in which
// case entity lookups use static defaults. messages may be nil to disable the
// optional message analysis on UPI checks, and reports may be nil to skip the
// community report count.
func NewCheckService(logger *slog.Logger, entities risk.EntityRiskSource, messages *MessageService, reports *ReportService) *CheckService {
	return &CheckService{
		logger:   logger,
		scorer:   risk.NewTransactionScorer(entities),
		messages: messages,
		reports:  reports,
	}
}

// CheckInput carries a UPI ID to vet plus optional transaction context.
type CheckInput struct {
	UPIID     string
	Amount    float64
	DeviceID  string
	IPAddress string
	Message   string
}

// CheckUPI rates a UPI ID. A syntactically invalid ID is rated high risk
// outright; otherwise the weighted transaction score and the VPA pattern risk
// are combined and capped at 10.
func (s *CheckService) CheckUPI(ctx context.Context, input CheckInput) domain.UPICheckResult {
	result := domain.UPICheckResult{UPIID: input.UPIID}

	if !upi.IsValidVPA(input.UPIID) {
		result.RiskScore = invalidVPAScore
		result.RiskLevel = domain.RiskLevelHigh
		result.PatternRisk = 0
		result.Components = map[string]float64{"invalid_format": 1}
		result.MessageAnalysis = s.analyzeOptionalMessage(ctx, input.Message)
		return result
	}

	txRisk := s.scorer.Score(ctx, risk.TransactionInput{
		Amount:    input.Amount,
		PayerVPA:  input.UPIID,
		DeviceID:  input.DeviceID,
		IPAddress: input.IPAddress,
	}, -1)

	patternRisk := risk.VPAPatternRisk(input.UPIID)
	score := domain.ClampScore(txRisk.RiskScore+patternRisk, 0, 10)

	result.RiskScore = score
	result.RiskLevel = domain.LevelForScore(score)
	result.PatternRisk = patternRisk
	result.Components = txRisk.Components
	result.Components["pattern_risk"] = patternRisk
	result.ReportCount = s.reportCount(ctx, input.UPIID)
	result.MessageAnalysis = s.analyzeOptionalMessage(ctx, input.Message)
	return result
}

// reportCount is best effort: a store failure degrades to zero rather than
// failing the check.
func (s *CheckService) reportCount(ctx context.Context, vpa string) int64 {
	if s.reports == nil {
		return 0
	}
	count, err := s.reports.CountForVPA(ctx, vpa)
	if err != nil {
		s.logger.Warn("report count lookup failed", "vpa", vpa, "error", err)
		return 0
	}
	return count
}

// ScoreTransaction rates a single transaction. modelScore is an optional
// classifier probability in [0,1]; pass a negative value when absent.
func (s *CheckService) ScoreTransaction(ctx context.Context, input risk.TransactionInput, modelScore float64) domain.TransactionRisk {
	return s.scorer.Score(ctx, input, modelScore)
}

func (s *CheckService) analyzeOptionalMessage(ctx context.Context, message string) *domain.MessageAnalysis {
	if message == "" || s.messages == nil {
		return nil
	}
	analysis := s.messages.AnalyzeText(ctx, message)
	return &analysis
}
