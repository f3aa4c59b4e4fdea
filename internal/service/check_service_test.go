package service

import (
	"context"
	"testing"
	"time"

	"github.com/kshitij/safepay/backend/internal/domain"
	"github.com/kshitij/safepay/backend/internal/risk"
)

func TestCheckUPIInvalidFormat(t *testing.T) {
	svc := NewCheckService(testLogger(), nil, nil, nil)

	result := svc.CheckUPI(context.Background(), CheckInput{UPIID: "not-a-vpa"})

	if result.RiskScore != 7.5 {
		t.Fatalf("expected score 7.5 for invalid format, got %v", result.RiskScore)
	}
	if result.RiskLevel != domain.RiskLevelHigh {
		t.Fatalf("expected HIGH risk, got %s", result.RiskLevel)
	}
	if result.Components["invalid_format"] != 1 {
		t.Fatal("expected invalid_format component")
	}
}

func TestCheckUPIEstablishedProvider(t *testing.T) {
	svc := NewCheckService(testLogger(), nil, nil, nil)

	result := svc.CheckUPI(context.Background(), CheckInput{
		UPIID:  "ramesh.kumar@okaxis",
		Amount: 500,
	})

	if result.PatternRisk != 0 {
		t.Fatalf("expected no pattern risk, got %v", result.PatternRisk)
	}
	if result.RiskLevel == domain.RiskLevelHigh {
		t.Fatalf("did not expect HIGH risk, score %v", result.RiskScore)
	}
	if _, ok := result.Components["pattern_risk"]; !ok {
		t.Fatal("expected pattern_risk component")
	}
}

func TestCheckUPISuspiciousPattern(t *testing.T) {
	svc := NewCheckService(testLogger(), nil, nil, nil)

	clean := svc.CheckUPI(context.Background(), CheckInput{UPIID: "ramesh.kumar@okaxis", Amount: 500})
	shady := svc.CheckUPI(context.Background(), CheckInput{UPIID: "abc@freepay", Amount: 500})

	if shady.RiskScore <= clean.RiskScore {
		t.Fatalf("expected pattern risk to raise the score: clean=%v shady=%v", clean.RiskScore, shady.RiskScore)
	}
	if shady.PatternRisk != 3.0 {
		t.Fatalf("expected pattern risk 3.0 for short handle on unknown provider, got %v", shady.PatternRisk)
	}
}

func TestCheckUPIWithMessage(t *testing.T) {
	messages := NewMessageService(testLogger(), nil, MessageOptions{})
	svc := NewCheckService(testLogger(), nil, messages, nil)

	result := svc.CheckUPI(context.Background(), CheckInput{
		UPIID:   "ramesh.kumar@okaxis",
		Message: "URGENT KYC verification required, click link to verify account!",
	})

	if result.MessageAnalysis == nil {
		t.Fatal("expected message analysis to be attached")
	}
	if result.MessageAnalysis.ScamProbability < 0.5 {
		t.Fatalf("expected scam-leaning analysis, got %v", result.MessageAnalysis.ScamProbability)
	}
}

func TestCheckUPIWithoutMessageService(t *testing.T) {
	svc := NewCheckService(testLogger(), nil, nil, nil)

	result := svc.CheckUPI(context.Background(), CheckInput{
		UPIID:   "ramesh.kumar@okaxis",
		Message: "hello",
	})

	if result.MessageAnalysis != nil {
		t.Fatal("expected no analysis without a message service")
	}
}

func TestCheckUPIIncludesReportCount(t *testing.T) {
	reports := NewReportService(testLogger(), openTestStore(t))
	svc := NewCheckService(testLogger(), nil, nil, reports)

	if _, err := reports.Submit(context.Background(), domain.ScamReport{VPA: "win4u@freepay"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reported := svc.CheckUPI(context.Background(), CheckInput{UPIID: "win4u@freepay"})
	if reported.ReportCount != 1 {
		t.Fatalf("expected report count 1, got %d", reported.ReportCount)
	}

	clean := svc.CheckUPI(context.Background(), CheckInput{UPIID: "ramesh.kumar@okaxis"})
	if clean.ReportCount != 0 {
		t.Fatalf("expected report count 0, got %d", clean.ReportCount)
	}
}

func TestScoreTransactionPassthrough(t *testing.T) {
	svc := NewCheckService(testLogger(), nil, nil, nil)

	result := svc.ScoreTransaction(context.Background(), risk.TransactionInput{
		Amount:    5,
		Status:    "FAILED",
		Timestamp: time.Date(2025, 3, 1, 3, 0, 0, 0, time.UTC),
	}, 0.9)

	if result.Components["status_risk"] != 0.7 {
		t.Fatalf("expected failed-status risk, got %v", result.Components["status_risk"])
	}
	if result.Components["ml_risk"] != 0.9 {
		t.Fatalf("expected ml risk 0.9, got %v", result.Components["ml_risk"])
	}
}
