package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom log forwarding configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// ServerConfig defines the HTTP surface.
type ServerConfig struct {
	Port            string
	MaxUploadMB     int
	RatePerSecond   float64
	RateBurst       int
	ShutdownTimeout time.Duration
}

// AnalysisConfig tunes the analyzer.
type AnalysisConfig struct {
	IRAdjustment   bool
	ReportCacheTTL time.Duration
}

// PagesConfig tunes page boundary detection.
type PagesConfig struct {
	MinGroupChildren int
	MaxPages         int
	SizeThreshold    int
}

// ConversionConfig defines orchestrator behavior and limits.
type ConversionConfig struct {
	Concurrency  int
	PageTimeout  time.Duration
	BreakerLimit int
	Preference   string
	Debug        bool
}

// RendererConfig selects and tunes the page renderer.
type RendererConfig struct {
	// Command, when set, switches from the builtin renderer to the
	// external converter binary.
	Command string
	Timeout time.Duration
}

// StorageConfig defines where finished packages go.
type StorageConfig struct {
	ResultDir       string
	S3Bucket        string
	EncryptPassword string
}

// RedisConfig defines the status store connection. An empty URL selects
// the in-memory store.
type RedisConfig struct {
	URL       string
	StatusTTL time.Duration
}

// Config is the top-level configuration.
type Config struct {
	Logging    LoggingConfig
	Axiom      AxiomConfig
	Server     ServerConfig
	Analysis   AnalysisConfig
	Pages      PagesConfig
	Conversion ConversionConfig
	Renderer   RendererConfig
	Storage    StorageConfig
	Redis      RedisConfig
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", "logs/svg2pptx.log"),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_svg2pptx",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	cfg.Server = ServerConfig{
		Port:            getEnv("PORT", "8080"),
		MaxUploadMB:     parseInt(getEnv("MAX_UPLOAD_MB", "32"), 32),
		RatePerSecond:   parseFloat(getEnv("RATE_PER_SECOND", "5"), 5),
		RateBurst:       parseInt(getEnv("RATE_BURST", "10"), 10),
		ShutdownTimeout: parseDuration(getEnv("SHUTDOWN_TIMEOUT", "10s"), 10*time.Second),
	}

	cfg.Analysis = AnalysisConfig{
		IRAdjustment:   parseBool(getEnv("ANALYSIS_IR_ADJUSTMENT", "false")),
		ReportCacheTTL: parseDuration(getEnv("ANALYSIS_CACHE_TTL", "5m"), 5*time.Minute),
	}

	cfg.Pages = PagesConfig{
		MinGroupChildren: parseInt(getEnv("PAGES_MIN_GROUP_CHILDREN", "3"), 3),
		MaxPages:         parseInt(getEnv("PAGES_MAX", "10"), 10),
		SizeThreshold:    parseInt(getEnv("PAGES_SIZE_THRESHOLD", "10000"), 10000),
	}

	cfg.Conversion = ConversionConfig{
		Concurrency:  parseInt(getEnv("CONVERT_CONCURRENCY", "1"), 1),
		PageTimeout:  parseDuration(getEnv("PAGE_TIMEOUT", "60s"), 60*time.Second),
		BreakerLimit: parseInt(getEnv("BREAKER_LIMIT", "3"), 3),
		Preference:   getEnv("QUALITY_PREFERENCE", "balanced"),
		Debug:        parseBool(getEnv("CONVERT_DEBUG", "false")),
	}

	cfg.Renderer = RendererConfig{
		Command: getEnv("RENDERER_COMMAND", ""),
		Timeout: parseDuration(getEnv("RENDERER_TIMEOUT", "60s"), 60*time.Second),
	}

	cfg.Storage = StorageConfig{
		ResultDir:       getEnv("RESULT_DIR", "results"),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		EncryptPassword: getEnv("S3_ENCRYPT_PASSWORD", ""),
	}

	cfg.Redis = RedisConfig{
		URL:       getEnv("REDIS_URL", ""),
		StatusTTL: parseDuration(getEnv("STATUS_TTL", "24h"), 24*time.Hour),
	}

	return cfg
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseFloat(s string, def float64) float64 {
	if s == "" {
		return def
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}
