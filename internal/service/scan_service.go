// Package service orchestrates the scan, check, analysis, chat, and report
// flows, delegating to the LLM, intel graph, heuristic engines, and store.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/kshitij/safepay/backend/internal/domain"
	"github.com/kshitij/safepay/backend/internal/llm/openai"
	"github.com/kshitij/safepay/backend/internal/risk"
	"github.com/kshitij/safepay/backend/internal/upi"
)

// LLMClient is the upstream contract required from the OpenAI integration.
type LLMClient interface {
	Chat(ctx context.Context, model string, messages []domain.ChatMessage) (string, error)
	AnalyzeScam(ctx context.Context, model, kind, content string) (openai.ScamVerdict, error)
	Transcribe(ctx context.Context, model, filename string, audio io.Reader) (string, error)
	DescribeImage(ctx context.Context, model, prompt, imageB64 string) (string, error)
}

// errNoIntel signals the intel graph has never observed the scanned VPA.
var errNoIntel = errors.New("no intel recorded for entity")

// IntelRepository is the graph contract required by the scan pipeline.
type IntelRepository interface {
	risk.EntityRiskSource
	EntityProfile(ctx context.Context, kind, id string) (domain.EntityProfile, error)
	RecordScan(ctx context.Context, outcome domain.ScanOutcome) error
	FlaggedVPAs(ctx context.Context, threshold float64, limit int) ([]string, error)
}

// ScanOptions tunes the scan pipeline.
type ScanOptions struct {
	ChatModel     string
	CacheTTL      time.Duration
	FallbackScore int
}

// ScanService analyzes scanned QR payloads through a fallback chain: the LLM
// verdict first, then the intel graph, then local heuristics, and finally a
// hard-coded medium-risk default. Each layer is tried only when the previous
// one fails; no retries, no backoff.
type ScanService struct {
	logger    *slog.Logger
	llm       LLMClient
	intel     IntelRepository
	heuristic *risk.QRAnalyzer
	cache     *scanCache
	opts      ScanOptions
	nowFn     func() time.Time
}

// NewScanService constructs a ScanService. llm and intel may be nil, in which
// case the corresponding chain layers are skipped.
func NewScanService(logger *slog.Logger, llm LLMClient, intel IntelRepository, opts ScanOptions) *ScanService {
	if opts.FallbackScore <= 0 {
		opts.FallbackScore = 50
	}
	return &ScanService{
		logger:    logger,
		llm:       llm,
		intel:     intel,
		heuristic: risk.NewQRAnalyzer(),
		cache:     newScanCache(opts.CacheTTL),
		opts:      opts,
		nowFn:     time.Now,
	}
}

// ScanInput carries the scanned payload plus optional scanner identity.
type ScanInput struct {
	QRText    string
	DeviceID  string
	IPAddress string
}

// Scan runs the fallback chain and returns a scan verdict. It never returns an
// error: every upstream failure degrades to the next layer.
func (s *ScanService) Scan(ctx context.Context, input ScanInput) domain.ScanResult {
	start := s.nowFn()

	if cached, ok := s.cache.get(input.QRText); ok {
		cached.Cached = true
		cached.LatencyMS = time.Since(start).Milliseconds()
		return cached
	}

	payload := upi.ParseQR(input.QRText)
	result := s.resolve(ctx, payload)
	result.LatencyMS = time.Since(start).Milliseconds()

	s.cache.set(input.QRText, result)
	s.record(ctx, payload, input, result)
	return result
}

func (s *ScanService) resolve(ctx context.Context, payload domain.QRPayload) domain.ScanResult {
	if payload.Raw == "" {
		return s.heuristic.Analyze(payload)
	}

	if s.llm != nil {
		verdict, err := s.llm.AnalyzeScam(ctx, s.opts.ChatModel, "qr", payload.Raw)
		if err == nil {
			return s.resultFromVerdict(payload, verdict)
		}
		s.logger.Warn("llm scan verdict failed, falling back", "error", err)
	}

	if s.intel != nil && payload.PayeeVPA != "" {
		result, err := s.resultFromIntel(ctx, payload)
		if err == nil {
			return result
		}
		s.logger.Warn("intel lookup failed, falling back", "error", err, "vpa", payload.PayeeVPA)
	}

	result := s.heuristicResult(payload)
	if result != nil {
		return *result
	}

	// Last resort: the hard-coded medium-risk default.
	return domain.ScanResult{
		RiskScore: s.opts.FallbackScore,
		RiskLevel: domain.LevelForScore(float64(s.opts.FallbackScore) / 10),
		Label:     "Unknown",
		Reasons:   []string{"Security check degraded, treat with caution"},
		Source:    domain.VerdictSourceDefault,
		Features:  risk.ExtractFeatures(payload.Raw),
	}
}

func (s *ScanService) resultFromVerdict(payload domain.QRPayload, verdict openai.ScamVerdict) domain.ScanResult {
	confidence := domain.ClampScore(verdict.Confidence, 0, 1)
	score := int(confidence * 100)
	if !verdict.IsScam {
		score = int((1 - confidence) * 100)
	}

	label := "Safe"
	if verdict.IsScam {
		label = "Scam"
	}

	reasons := verdict.Reasons
	if len(reasons) == 0 && verdict.Explanation != "" {
		reasons = []string{verdict.Explanation}
	}

	return domain.ScanResult{
		RiskScore: score,
		RiskLevel: domain.LevelForScore(float64(score) / 10),
		Label:     label,
		Reasons:   reasons,
		Source:    domain.VerdictSourceLLM,
		Features:  risk.ExtractFeatures(payload.Raw),
	}
}

func (s *ScanService) resultFromIntel(ctx context.Context, payload domain.QRPayload) (domain.ScanResult, error) {
	profile, err := s.intel.EntityProfile(ctx, "VPA", payload.PayeeVPA)
	if err != nil {
		return domain.ScanResult{}, err
	}
	if profile.TransactionCount == 0 {
		// Nothing known about this VPA; let the next layer decide.
		return domain.ScanResult{}, errNoIntel
	}

	score := int(domain.ClampScore(profile.FraudRate*100, 0, 100))
	label := "Safe"
	reasons := []string{"No fraud history recorded for this UPI ID"}
	if profile.FraudRate >= 0.5 {
		label = "Scam"
		reasons = []string{"UPI ID has a recorded fraud history"}
	}

	return domain.ScanResult{
		RiskScore: score,
		RiskLevel: domain.LevelForScore(float64(score) / 10),
		Label:     label,
		Reasons:   reasons,
		Source:    domain.VerdictSourceIntel,
		Features:  risk.ExtractFeatures(payload.Raw),
	}, nil
}

// heuristicResult declines (returns nil) for opaque content that is neither a
// UPI payload nor a URL and carries no VPA; the rules have no signal there.
func (s *ScanService) heuristicResult(payload domain.QRPayload) *domain.ScanResult {
	if !payload.IsUPI && !payload.IsURL && payload.PayeeVPA == "" && payload.Raw != "" {
		return nil
	}
	result := s.heuristic.Analyze(payload)
	return &result
}

// record persists the outcome into the intel graph on a best-effort basis.
func (s *ScanService) record(ctx context.Context, payload domain.QRPayload, input ScanInput, result domain.ScanResult) {
	if s.intel == nil || payload.PayeeVPA == "" {
		return
	}

	outcome := domain.ScanOutcome{
		VPA:       payload.PayeeVPA,
		DeviceID:  input.DeviceID,
		IPAddress: input.IPAddress,
		RiskScore: result.RiskScore,
		Verdict:   result.Label,
		ScannedAt: s.nowFn(),
	}
	if err := s.intel.RecordScan(ctx, outcome); err != nil {
		s.logger.Warn("failed to record scan outcome", "error", err, "vpa", payload.PayeeVPA)
	}
}
