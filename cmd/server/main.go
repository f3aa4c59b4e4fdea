package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/kshitij/safepay/backend/internal/config"
	"github.com/kshitij/safepay/backend/internal/intel"
	"github.com/kshitij/safepay/backend/internal/llm/openai"
	"github.com/kshitij/safepay/backend/internal/logging"
	"github.com/kshitij/safepay/backend/internal/risk"
	"github.com/kshitij/safepay/backend/internal/server"
	"github.com/kshitij/safepay/backend/internal/service"
	"github.com/kshitij/safepay/backend/internal/store"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)

	intelClient := buildIntelClient(ctx, logger, cfg)
	defer func() {
		if intelClient != nil {
			if err := intelClient.Close(context.Background()); err != nil {
				logger.Warn("closing intel client failed", "error", err)
			}
		}
	}()

	st, err := store.Open(store.Options{
		Driver: cfg.Store.Driver,
		DSN:    cfg.Store.DSN,
	})
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}

	llmClient := buildLLMClient(logger, cfg)

	var intelRepo service.IntelRepository
	if intelClient != nil {
		intelRepo = intel.NewRepository(intelClient)
	}

	scanService := service.NewScanService(logger, llmClient, intelRepo, service.ScanOptions{
		ChatModel:     cfg.OpenAI.ChatModel,
		CacheTTL:      cfg.Risk.ScanCacheTTL,
		FallbackScore: cfg.Risk.FallbackScore,
	})
	messageService := service.NewMessageService(logger, llmClient, service.MessageOptions{
		ChatModel:          cfg.OpenAI.ChatModel,
		TranscriptionModel: cfg.OpenAI.TranscriptionModel,
	})
	reportService := service.NewReportService(logger, st)
	checkService := service.NewCheckService(logger, entityRiskSource(intelRepo), messageService, reportService)
	chatService := service.NewChatService(logger, llmClient, st, service.ChatOptions{
		ChatModel:    cfg.OpenAI.ChatModel,
		HistoryLimit: cfg.Risk.ChatHistoryLimit,
	})

	apiHandlers := server.NewAPIHandlers(logger, server.APIDependencies{
		Scans:          scanService,
		Checks:         checkService,
		Messages:       messageService,
		Chat:           chatService,
		Reports:        reportService,
		Intel:          intelRepo,
		FlaggedMinRate: cfg.Risk.FlaggedVPAMinRate,
	})

	router := server.NewRouter(logger, server.RouterDependencies{
		Health:           server.BackendHealthService{Intel: intelClient, Store: st},
		API:              apiHandlers,
		AllowedOrigins:   parseAllowedOrigins(cfg.HTTP.AllowedOriginsCSV),
		AllowCredentials: true,
		MetricsEnabled:   cfg.HTTP.MetricsEnabled,
	})

	srv := server.New(logger, cfg.HTTP, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("server stopped unexpectedly", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

// buildIntelClient returns nil when no graph URI is configured; the services
// degrade to heuristics-only behaviour.
func buildIntelClient(ctx context.Context, logger *slog.Logger, cfg config.Config) intel.Client {
	if cfg.Intel.URI == "" {
		logger.Info("intel graph not configured, entity intelligence disabled")
		return nil
	}

	client, err := intel.NewNeo4jClient(ctx, intel.Options{
		URI:            cfg.Intel.URI,
		Database:       cfg.Intel.Database,
		Username:       cfg.Intel.Username,
		Password:       cfg.Intel.Password,
		MaxConnections: cfg.Intel.MaxConnections,
	})
	if err != nil {
		logger.Error("failed to create intel client", "error", err)
		os.Exit(1)
	}
	return client
}

// buildLLMClient returns nil when no API key is configured; scan and message
// analysis degrade to local heuristics.
func buildLLMClient(logger *slog.Logger, cfg config.Config) service.LLMClient {
	if cfg.OpenAI.APIKey == "" {
		logger.Info("openai not configured, llm analysis disabled")
		return nil
	}

	opts := []openai.Option{
		openai.WithHTTPClient(&http.Client{Timeout: cfg.OpenAI.RequestTimeout}),
	}
	if cfg.OpenAI.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.OpenAI.BaseURL))
	}

	client, err := openai.NewClient(cfg.OpenAI.APIKey, opts...)
	if err != nil {
		logger.Error("failed to create openai client", "error", err)
		os.Exit(1)
	}
	return client
}

// entityRiskSource keeps a typed-nil repository out of the scorer.
func entityRiskSource(repo service.IntelRepository) risk.EntityRiskSource {
	if repo == nil {
		return nil
	}
	return repo
}

func parseAllowedOrigins(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	var origins []string
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		origins = append(origins, origin)
	}
	return origins
}
