// Command seed loads synthetic scan outcomes and labelled feedback into the
// intel graph and relational store, so local environments have data to rate
// against.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/kshitij/safepay/backend/internal/config"
	"github.com/kshitij/safepay/backend/internal/domain"
	"github.com/kshitij/safepay/backend/internal/intel"
	"github.com/kshitij/safepay/backend/internal/service"
	"github.com/kshitij/safepay/backend/internal/store"
)

var scamVPAs = []string{
	"win4u@freepay", "kyc.update@quickbank", "refund99@cashnow",
	"1234567@payzz", "lucky.draw@prizeupi", "helpdesk01@fastfix",
}

var legitVPAs = []string{
	"ramesh.kumar@okaxis", "priya.sharma@ybl", "arjun.stores@paytm",
	"meera.traders@okicici", "vikram.medical@oksbi", "anita.textiles@axl",
}

var scamTexts = []string{
	"URGENT! Your KYC expires today. Click link to verify account now!!!",
	"Congratulations! You won Rs 50000 lottery. Pay Rs 99 to claim prize.",
	"Your account will be blocked. Share OTP to keep it active.",
}

var legitTexts = []string{
	"upi://pay?pa=ramesh.kumar@okaxis&pn=Ramesh%20Kumar&am=250.00&cu=INR",
	"upi://pay?pa=arjun.stores@paytm&pn=Arjun%20Stores&am=1200.00&cu=INR",
	"Payment of Rs 500 received from Priya. Thank you for shopping with us.",
}

func main() {
	var (
		outcomes = flag.Int("outcomes", 200, "number of scan outcomes to record in the intel graph")
		feedback = flag.Int("feedback", 50, "number of labelled feedback samples to store")
		scamRate = flag.Float64("scam-rate", 0.3, "fraction of seeded records labelled as scams")
		seed     = flag.Int64("seed", 42, "random seed for deterministic generation")
		workers  = flag.Int("workers", 4, "ingest worker pool size")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var intelRepo service.IntelRepository
	if cfg.Intel.URI != "" {
		client, err := intel.NewNeo4jClient(ctx, intel.Options{
			URI:            cfg.Intel.URI,
			Database:       cfg.Intel.Database,
			Username:       cfg.Intel.Username,
			Password:       cfg.Intel.Password,
			MaxConnections: cfg.Intel.MaxConnections,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to connect to intel graph: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = client.Close(context.Background()) }()
		intelRepo = intel.NewRepository(client)
	}

	st, err := store.Open(store.Options{
		Driver: cfg.Store.Driver,
		DSN:    cfg.Store.DSN,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open store: %v\n", err)
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(*seed))
	ingestor := service.NewSeedIngestor(intelRepo, st, *workers)

	scanOutcomes := generateOutcomes(rng, *outcomes, clampProbability(*scamRate))
	if err := ingestor.IngestOutcomes(ctx, scanOutcomes); err != nil {
		fmt.Fprintf(os.Stderr, "failed to ingest scan outcomes: %v\n", err)
		os.Exit(1)
	}

	samples := generateFeedback(rng, *feedback, clampProbability(*scamRate))
	if err := ingestor.IngestFeedback(ctx, samples); err != nil {
		fmt.Fprintf(os.Stderr, "failed to ingest feedback: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stdout, "Seeded %d scan outcomes and %d feedback samples\n", len(scanOutcomes), len(samples))
}

func generateOutcomes(rng *rand.Rand, count int, scamRate float64) []domain.ScanOutcome {
	outcomes := make([]domain.ScanOutcome, 0, count)
	now := time.Now().UTC()

	for i := 0; i < count; i++ {
		isScam := rng.Float64() < scamRate

		vpa := legitVPAs[rng.Intn(len(legitVPAs))]
		verdict := "Safe"
		score := 5 + rng.Intn(30)
		if isScam {
			vpa = scamVPAs[rng.Intn(len(scamVPAs))]
			verdict = "Scam"
			score = 70 + rng.Intn(30)
		}

		outcomes = append(outcomes, domain.ScanOutcome{
			VPA:       vpa,
			DeviceID:  fmt.Sprintf("device-%03d", rng.Intn(40)),
			IPAddress: fmt.Sprintf("10.0.%d.%d", rng.Intn(16), rng.Intn(250)),
			RiskScore: score,
			Verdict:   verdict,
			ScannedAt: now.Add(-time.Duration(rng.Intn(720)) * time.Hour),
		})
	}
	return outcomes
}

func generateFeedback(rng *rand.Rand, count int, scamRate float64) []domain.FeedbackSample {
	samples := make([]domain.FeedbackSample, 0, count)

	for i := 0; i < count; i++ {
		isScam := rng.Float64() < scamRate

		text := legitTexts[rng.Intn(len(legitTexts))]
		reason := ""
		if isScam {
			text = scamTexts[rng.Intn(len(scamTexts))]
			reason = "Reported by user after losing money"
		}

		samples = append(samples, domain.FeedbackSample{
			QRText: text,
			IsScam: isScam,
			Reason: reason,
		})
	}
	return samples
}

func clampProbability(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
