package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP    HTTPConfig
	Intel   IntelConfig
	Store   StoreConfig
	OpenAI  OpenAIConfig
	Risk    RiskConfig
	Logging LoggingConfig
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Host              string
	Port              int
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MetricsEnabled    bool
	AllowedOriginsCSV string
}

// IntelConfig describes connectivity to the fraud-intelligence graph.
type IntelConfig struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
}

// StoreConfig describes the relational store holding reports and chat history.
type StoreConfig struct {
	Driver string // sqlite|postgres
	DSN    string
}

// OpenAIConfig describes the upstream LLM endpoints.
type OpenAIConfig struct {
	BaseURL            string
	APIKey             string
	ChatModel          string
	TranscriptionModel string
	RequestTimeout     time.Duration
}

// RiskConfig tunes the scan pipeline.
type RiskConfig struct {
	ScanCacheTTL      time.Duration
	FallbackScore     int
	FlaggedVPAMinRate float64
	ChatHistoryLimit  int
	IngestWorkers     int
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string
	Format        string // text|json
	Service       string
	Colored       bool
	IncludeCaller bool
}

const (
	defaultHost               = "0.0.0.0"
	defaultPort               = 8080
	defaultReadTimeout        = 10 * time.Second
	defaultReadHeaderTimeout  = 5 * time.Second
	defaultWriteTimeout       = 15 * time.Second
	defaultIdleTimeout        = 60 * time.Second
	defaultShutdownTimeout    = 10 * time.Second
	defaultLoggingLevel       = "info"
	defaultLoggingFormat      = "text"
	defaultServiceName        = "safepay-api"
	defaultIntelMaxSessions   = 10
	defaultStoreDriver        = "sqlite"
	defaultStoreDSN           = "safepay.db"
	defaultChatModel          = "gpt-4o-mini"
	defaultTranscriptionModel = "whisper-1"
	defaultOpenAITimeout      = 30 * time.Second
	defaultScanCacheTTL       = 5 * time.Minute
	defaultFallbackScore      = 50
	defaultFlaggedVPAMinRate  = 0.5
	defaultChatHistoryLimit   = 20
	defaultIngestWorkers      = 4
)

// Load reads configuration from the environment, applying defaults. A .env
// file in the working directory is loaded first when present.
func Load() (Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	cfg := Config{
		HTTP: HTTPConfig{
			Host:              valueOrDefault("SERVER_HOST", defaultHost),
			ReadTimeout:       defaultReadTimeout,
			ReadHeaderTimeout: parseDurationWithDefault("SERVER_READ_HEADER_TIMEOUT", defaultReadHeaderTimeout),
			WriteTimeout:      defaultWriteTimeout,
			IdleTimeout:       defaultIdleTimeout,
			ShutdownTimeout:   defaultShutdownTimeout,
		},
		Logging: LoggingConfig{
			Level:         valueOrDefault("LOG_LEVEL", defaultLoggingLevel),
			Format:        valueOrDefault("LOG_FORMAT", defaultLoggingFormat),
			Service:       valueOrDefault("LOG_SERVICE_NAME", defaultServiceName),
			Colored:       parseBoolWithDefault("LOG_COLOR", false),
			IncludeCaller: parseBoolWithDefault("LOG_INCLUDE_CALLER", false),
		},
		Intel: IntelConfig{
			URI:            os.Getenv("INTEL_GRAPH_URI"),
			Database:       valueOrDefault("INTEL_GRAPH_DATABASE", ""),
			Username:       os.Getenv("INTEL_GRAPH_USERNAME"),
			Password:       os.Getenv("INTEL_GRAPH_PASSWORD"),
			MaxConnections: parseIntWithDefault("INTEL_GRAPH_MAX_CONNECTIONS", defaultIntelMaxSessions),
		},
		Store: StoreConfig{
			Driver: valueOrDefault("STORE_DRIVER", defaultStoreDriver),
			DSN:    valueOrDefault("STORE_DSN", defaultStoreDSN),
		},
		OpenAI: OpenAIConfig{
			BaseURL:            os.Getenv("OPENAI_BASE_URL"),
			APIKey:             os.Getenv("OPENAI_API_KEY"),
			ChatModel:          valueOrDefault("OPENAI_CHAT_MODEL", defaultChatModel),
			TranscriptionModel: valueOrDefault("OPENAI_TRANSCRIPTION_MODEL", defaultTranscriptionModel),
			RequestTimeout:     parseDurationWithDefault("OPENAI_REQUEST_TIMEOUT", defaultOpenAITimeout),
		},
		Risk: RiskConfig{
			ScanCacheTTL:      parseDurationWithDefault("RISK_SCAN_CACHE_TTL", defaultScanCacheTTL),
			FallbackScore:     parseIntWithDefault("RISK_FALLBACK_SCORE", defaultFallbackScore),
			FlaggedVPAMinRate: parseFloatWithDefault("RISK_FLAGGED_VPA_MIN_RATE", defaultFlaggedVPAMinRate),
			ChatHistoryLimit:  parseIntWithDefault("RISK_CHAT_HISTORY_LIMIT", defaultChatHistoryLimit),
			IngestWorkers:     parseIntWithDefault("RISK_INGEST_WORKERS", defaultIngestWorkers),
		},
	}

	port, err := parsePort("SERVER_PORT", defaultPort)
	if err != nil {
		return Config{}, err
	}
	cfg.HTTP.Port = port

	if v := os.Getenv("SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.ReadTimeout = d
		} else {
			return Config{}, fmt.Errorf("invalid SERVER_READ_TIMEOUT: %w", err)
		}
	}

	if v := os.Getenv("SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.WriteTimeout = d
		} else {
			return Config{}, fmt.Errorf("invalid SERVER_WRITE_TIMEOUT: %w", err)
		}
	}

	if v := os.Getenv("SERVER_IDLE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.IdleTimeout = d
		} else {
			return Config{}, fmt.Errorf("invalid SERVER_IDLE_TIMEOUT: %w", err)
		}
	}

	if v := os.Getenv("SERVER_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.ShutdownTimeout = d
		} else {
			return Config{}, fmt.Errorf("invalid SERVER_SHUTDOWN_TIMEOUT: %w", err)
		}
	}

	cfg.HTTP.MetricsEnabled = parseBoolWithDefault("SERVER_METRICS_ENABLED", false)
	cfg.HTTP.AllowedOriginsCSV = os.Getenv("SERVER_ALLOWED_ORIGINS")

	return cfg, nil
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolWithDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return val
	}
	return fallback
}

func parseIntWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return fallback
}

func parseFloatWithDefault(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.ParseFloat(v, 64); err == nil {
			return val
		}
	}
	return fallback
}

func parseDurationWithDefault(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func parsePort(key string, fallback int) (int, error) {
	if v := os.Getenv(key); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
		}
		if port <= 0 || port > 65535 {
			return 0, fmt.Errorf("port %d is out of range", port)
		}
		return port, nil
	}
	return fallback, nil
}
