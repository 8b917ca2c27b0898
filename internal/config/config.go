package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Oracle  OracleConfig
	Batch   BatchConfig
	OCR     OCRConfig
	Cloud   CloudConfig
	Server  ServerConfig
	Queue   QueueConfig
	Logging LoggingConfig
}

// OracleConfig configures the multimodal extraction model.
type OracleConfig struct {
	APIKey                string
	Model                 string
	Timeout               time.Duration
	TrustOracleCategories bool
}

// BatchConfig bounds per-document work inside a batch.
type BatchConfig struct {
	Concurrency     int
	DocumentTimeout time.Duration
	MinTextChars    int
}

// OCRConfig selects and configures the fallback used for scanned PDFs and images.
type OCRConfig struct {
	Engine    string // auto | tesseract | ai | none
	Tesseract string
	Pdftoppm  string
	DPI       int
	Language  string
}

// CloudConfig holds the optional Google Cloud targets.
type CloudConfig struct {
	Bucket          string
	Project         string
	BigQueryDataset string
	CredentialsFile string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           string
	MaxUploadMB    int
	AllowedOrigins string // comma-separated; empty allows any
}

// QueueConfig configures the in-memory job queue.
type QueueConfig struct {
	Size       int
	Workers    int
	MaxRetries int
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string
	Format string
}

var envFiles = []string{".env", "../.env", "../../.env"}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err == nil {
			break
		}
	}

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds a Config from environment variables only.
func FromEnv() *Config {
	return &Config{
		Oracle: OracleConfig{
			APIKey:                getEnv("GEMINI_API_KEY", ""),
			Model:                 getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			Timeout:               getEnvAsDuration("ORACLE_TIMEOUT", 90*time.Second),
			TrustOracleCategories: getEnvAsBool("TRUST_ORACLE_CATEGORIES", false),
		},
		Batch: BatchConfig{
			Concurrency:     getEnvAsInt("BATCH_CONCURRENCY", 4),
			DocumentTimeout: getEnvAsDuration("DOCUMENT_TIMEOUT", 3*time.Minute),
			MinTextChars:    getEnvAsInt("MIN_TEXT_CHARS", 100),
		},
		OCR: OCRConfig{
			Engine:    strings.ToLower(getEnv("OCR_ENGINE", "auto")),
			Tesseract: getEnv("TESSERACT_PATH", "tesseract"),
			Pdftoppm:  getEnv("PDFTOPPM_PATH", "pdftoppm"),
			DPI:       getEnvAsInt("OCR_DPI", 300),
			Language:  getEnv("OCR_LANG", "eng"),
		},
		Cloud: CloudConfig{
			Bucket:          getEnv("GCS_BUCKET", ""),
			Project:         getEnv("GCP_PROJECT", ""),
			BigQueryDataset: getEnv("BQ_DATASET", ""),
			CredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		},
		Server: ServerConfig{
			Port:           getEnv("HTTP_PORT", "8080"),
			MaxUploadMB:    getEnvAsInt("MAX_UPLOAD_MB", 50),
			AllowedOrigins: getEnv("CORS_ORIGINS", ""),
		},
		Queue: QueueConfig{
			Size:       getEnvAsInt("QUEUE_SIZE", 100),
			Workers:    getEnvAsInt("QUEUE_WORKERS", 4),
			MaxRetries: getEnvAsInt("JOB_MAX_RETRIES", 3),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
	}
}

// Validate rejects settings the runtime cannot work with.
func (c *Config) Validate() error {
	if c.Batch.Concurrency < 1 {
		return fmt.Errorf("BATCH_CONCURRENCY must be >= 1, got %d", c.Batch.Concurrency)
	}
	if c.Batch.DocumentTimeout <= 0 {
		return fmt.Errorf("DOCUMENT_TIMEOUT must be positive, got %s", c.Batch.DocumentTimeout)
	}
	if c.Oracle.Timeout <= 0 {
		return fmt.Errorf("ORACLE_TIMEOUT must be positive, got %s", c.Oracle.Timeout)
	}
	if c.Batch.MinTextChars < 0 {
		return fmt.Errorf("MIN_TEXT_CHARS must be >= 0, got %d", c.Batch.MinTextChars)
	}
	switch c.OCR.Engine {
	case "auto", "tesseract", "ai", "none":
	default:
		return fmt.Errorf("OCR_ENGINE must be one of auto, tesseract, ai, none; got %q", c.OCR.Engine)
	}
	if c.Queue.Size < 1 || c.Queue.Workers < 1 {
		return fmt.Errorf("QUEUE_SIZE and QUEUE_WORKERS must be >= 1")
	}
	if c.Server.MaxUploadMB < 1 {
		return fmt.Errorf("MAX_UPLOAD_MB must be >= 1, got %d", c.Server.MaxUploadMB)
	}
	if c.Queue.MaxRetries < 0 {
		return fmt.Errorf("JOB_MAX_RETRIES must be >= 0, got %d", c.Queue.MaxRetries)
	}
	return nil
}

// HasOracle reports whether an API key for the extraction model is configured.
func (c *Config) HasOracle() bool {
	return c.Oracle.APIKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return defaultValue
}
