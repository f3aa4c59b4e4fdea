package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/kshitij/safepay/backend/internal/domain"
	"github.com/kshitij/safepay/backend/internal/llm/openai"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubLLM struct {
	verdict       openai.ScamVerdict
	verdictErr    error
	chatReply     string
	chatErr       error
	transcript    string
	transcribeErr error
	described     string
	describeErr   error
	analyzeCalls  int
}

func (s *stubLLM) Chat(ctx context.Context, model string, messages []domain.ChatMessage) (string, error) {
	return s.chatReply, s.chatErr
}

func (s *stubLLM) AnalyzeScam(ctx context.Context, model, kind, content string) (openai.ScamVerdict, error) {
	s.analyzeCalls++
	return s.verdict, s.verdictErr
}

func (s *stubLLM) Transcribe(ctx context.Context, model, filename string, audio io.Reader) (string, error) {
	return s.transcript, s.transcribeErr
}

func (s *stubLLM) DescribeImage(ctx context.Context, model, prompt, imageB64 string) (string, error) {
	return s.described, s.describeErr
}

type stubIntel struct {
	mu         sync.Mutex
	profile    domain.EntityProfile
	profileErr error
	recorded   []domain.ScanOutcome
	recordErr  error
	flagged    []string
}

func (s *stubIntel) EntityProfile(ctx context.Context, kind, id string) (domain.EntityProfile, error) {
	return s.profile, s.profileErr
}

func (s *stubIntel) RecordScan(ctx context.Context, outcome domain.ScanOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recordErr != nil {
		return s.recordErr
	}
	s.recorded = append(s.recorded, outcome)
	return nil
}

func (s *stubIntel) FlaggedVPAs(ctx context.Context, threshold float64, limit int) ([]string, error) {
	return s.flagged, nil
}

func (s *stubIntel) DeviceRisk(ctx context.Context, deviceID string) float64 { return 0.3 }
func (s *stubIntel) IPRisk(ctx context.Context, ip string) float64           { return 0.3 }
func (s *stubIntel) VPARisk(ctx context.Context, vpa string) float64         { return 0.3 }

func (s *stubIntel) recordedOutcomes() []domain.ScanOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ScanOutcome(nil), s.recorded...)
}

func TestScanUsesLLMVerdict(t *testing.T) {
	llm := &stubLLM{verdict: openai.ScamVerdict{
		IsScam:     true,
		Confidence: 0.9,
		Reasons:    []string{"prize bait"},
	}}
	intel := &stubIntel{}
	svc := NewScanService(testLogger(), llm, intel, ScanOptions{ChatModel: "gpt-4o-mini"})

	result := svc.Scan(context.Background(), ScanInput{QRText: "upi://pay?pa=win4u@freepay&am=99"})

	if result.Source != domain.VerdictSourceLLM {
		t.Fatalf("expected llm source, got %s", result.Source)
	}
	if result.RiskScore != 90 {
		t.Fatalf("expected score 90, got %d", result.RiskScore)
	}
	if result.Label != "Scam" {
		t.Fatalf("expected Scam label, got %s", result.Label)
	}

	if outcomes := intel.recordedOutcomes(); len(outcomes) != 1 {
		t.Fatalf("expected scan outcome recorded, got %d", len(outcomes))
	}
}

func TestScanSafeLLMVerdictInvertsScore(t *testing.T) {
	llm := &stubLLM{verdict: openai.ScamVerdict{IsScam: false, Confidence: 0.8}}
	svc := NewScanService(testLogger(), llm, nil, ScanOptions{ChatModel: "gpt-4o-mini"})

	result := svc.Scan(context.Background(), ScanInput{QRText: "upi://pay?pa=ramesh.kumar@okaxis"})

	if result.Label != "Safe" {
		t.Fatalf("expected Safe label, got %s", result.Label)
	}
	if result.RiskScore >= 50 {
		t.Fatalf("expected low score for confident safe verdict, got %d", result.RiskScore)
	}
}

func TestScanFallsBackToIntel(t *testing.T) {
	llm := &stubLLM{verdictErr: errors.New("upstream timeout")}
	intel := &stubIntel{profile: domain.EntityProfile{
		Kind:             "VPA",
		ID:               "win4u@freepay",
		TransactionCount: 10,
		FraudCount:       8,
		FraudRate:        0.8,
	}}
	svc := NewScanService(testLogger(), llm, intel, ScanOptions{ChatModel: "gpt-4o-mini"})

	result := svc.Scan(context.Background(), ScanInput{QRText: "upi://pay?pa=win4u@freepay"})

	if result.Source != domain.VerdictSourceIntel {
		t.Fatalf("expected intel source, got %s", result.Source)
	}
	if result.RiskScore != 80 {
		t.Fatalf("expected score 80 from fraud rate, got %d", result.RiskScore)
	}
	if result.Label != "Scam" {
		t.Fatalf("expected Scam label, got %s", result.Label)
	}
}

func TestScanFallsBackToHeuristics(t *testing.T) {
	llm := &stubLLM{verdictErr: errors.New("upstream timeout")}
	intel := &stubIntel{profileErr: errors.New("graph unavailable")}
	svc := NewScanService(testLogger(), llm, intel, ScanOptions{ChatModel: "gpt-4o-mini"})

	result := svc.Scan(context.Background(), ScanInput{QRText: "upi://pay?pa=kyc.update@verification&tn=urgent"})

	if result.Source != domain.VerdictSourceHeuristic {
		t.Fatalf("expected heuristic source, got %s", result.Source)
	}
	if result.Label != "Scam" {
		t.Fatalf("expected Scam label, got %s", result.Label)
	}
}

func TestScanHardDefaultForOpaqueContent(t *testing.T) {
	llm := &stubLLM{verdictErr: errors.New("upstream timeout")}
	svc := NewScanService(testLogger(), llm, nil, ScanOptions{ChatModel: "gpt-4o-mini", FallbackScore: 50})

	result := svc.Scan(context.Background(), ScanInput{QRText: "some opaque blob with no signals"})

	if result.Source != domain.VerdictSourceDefault {
		t.Fatalf("expected default source, got %s", result.Source)
	}
	if result.RiskScore != 50 {
		t.Fatalf("expected fallback score 50, got %d", result.RiskScore)
	}
	if result.RiskLevel != domain.RiskLevelMedium {
		t.Fatalf("expected MEDIUM level, got %s", result.RiskLevel)
	}
}

func TestScanCachesResults(t *testing.T) {
	llm := &stubLLM{verdict: openai.ScamVerdict{IsScam: true, Confidence: 0.9}}
	svc := NewScanService(testLogger(), llm, nil, ScanOptions{
		ChatModel: "gpt-4o-mini",
		CacheTTL:  time.Minute,
	})

	first := svc.Scan(context.Background(), ScanInput{QRText: "upi://pay?pa=win4u@freepay"})
	second := svc.Scan(context.Background(), ScanInput{QRText: "upi://pay?pa=win4u@freepay"})

	if first.Cached {
		t.Fatal("first scan should not be cached")
	}
	if !second.Cached {
		t.Fatal("second scan should be cached")
	}
	if llm.analyzeCalls != 1 {
		t.Fatalf("expected a single upstream call, got %d", llm.analyzeCalls)
	}
}

func TestScanEmptyPayload(t *testing.T) {
	svc := NewScanService(testLogger(), nil, nil, ScanOptions{})

	result := svc.Scan(context.Background(), ScanInput{QRText: ""})

	if result.RiskLevel != domain.RiskLevelUnknown {
		t.Fatalf("expected UNKNOWN level for empty payload, got %s", result.RiskLevel)
	}
}
