// Package config collects the pipeline's environment configuration in one
// place. Every knob has a default so a bare environment still runs against
// an in-memory store.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the resolved runtime configuration.
type Config struct {
	// Model is the inference backend model name.
	Model string
	// GeminiAPIKey authenticates against the backend.
	GeminiAPIKey string

	// MaxAttempts bounds extraction attempts per segment.
	MaxAttempts int
	// MaxRetries bounds transient backend retries per call.
	MaxRetries int
	// EnableEvaluation turns on the self-evaluation pass.
	EnableEvaluation bool

	// Concurrency bounds in-flight statements per batch.
	Concurrency int
	// StatementTimeout bounds one statement end to end.
	StatementTimeout time.Duration
	// ConfidenceThreshold flags low-confidence candidates.
	ConfidenceThreshold float64
	// PipelineVersion is stamped on stored results.
	PipelineVersion string

	// SchemaPath overrides the embedded schema definition when set.
	SchemaPath string
	// KeywordsCSV points at a statement-mapping CSV with per-symbol
	// classifier keywords.
	KeywordsCSV string

	// DatabaseURL selects Postgres persistence when set.
	DatabaseURL string
	// SQLitePath selects SQLite persistence when set and DatabaseURL is not.
	SQLitePath string

	// S3Bucket and S3Prefix locate the statement files.
	S3Bucket string
	S3Prefix string
	// AWSRegion overrides the default region chain.
	AWSRegion string
	// LocalDir reads statements from a directory instead of S3 when set.
	LocalDir string
}

// FromEnv reads the configuration from the process environment.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Model:               os.Getenv("JSE_MODEL"),
		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		MaxAttempts:         envInt("JSE_MAX_ATTEMPTS", 2),
		MaxRetries:          envInt("JSE_MAX_RETRIES", 2),
		EnableEvaluation:    envBool("JSE_ENABLE_EVALUATION", true),
		Concurrency:         envInt("JSE_CONCURRENCY", 4),
		StatementTimeout:    envDuration("JSE_STATEMENT_TIMEOUT", 5*time.Minute),
		ConfidenceThreshold: envFloat("JSE_CONFIDENCE_THRESHOLD", 0.5),
		PipelineVersion:     envString("JSE_PIPELINE_VERSION", "dev"),
		SchemaPath:          os.Getenv("JSE_SCHEMA_PATH"),
		KeywordsCSV:         os.Getenv("JSE_KEYWORDS_CSV"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		SQLitePath:          os.Getenv("JSE_SQLITE_PATH"),
		S3Bucket:            os.Getenv("JSE_S3_BUCKET"),
		S3Prefix:            envString("JSE_S3_PREFIX", "CSV/"),
		AWSRegion:           os.Getenv("AWS_REGION"),
		LocalDir:            os.Getenv("JSE_LOCAL_DIR"),
	}
	if cfg.Concurrency < 1 {
		return nil, fmt.Errorf("JSE_CONCURRENCY must be at least 1")
	}
	if cfg.ConfidenceThreshold < 0 || cfg.ConfidenceThreshold > 1 {
		return nil, fmt.Errorf("JSE_CONFIDENCE_THRESHOLD must be in [0,1]")
	}
	return cfg, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
