package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string `yaml:"port"`

	// Auth; empty disables it
	APIKey string `yaml:"api_key"`

	LogLevel string `yaml:"log_level"`

	// OCR
	OCRProvider   string        `yaml:"ocr_provider"`
	OCRLanguage   string        `yaml:"ocr_language"`
	OCRMaxRetries int           `yaml:"ocr_max_retries"`
	OCRTimeout    time.Duration `yaml:"ocr_timeout"`

	// Google Document AI
	DocumentAIProjectID   string `yaml:"documentai_project_id"`
	DocumentAILocation    string `yaml:"documentai_location"`
	DocumentAIProcessorID string `yaml:"documentai_processor_id"`
	GoogleCredentials     string `yaml:"google_application_credentials"`

	// Worker pool
	WorkerCount  int `yaml:"worker_count"`
	MaxQueueSize int `yaml:"max_queue_size"`

	// Upload limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// Job state
	JobTTL time.Duration `yaml:"job_ttl"`

	// Application state file
	StateFile string `yaml:"state_file"`

	// PDF
	PDFFallbackPdftotext bool `yaml:"pdf_fallback_pdftotext"`
}

// Defaults returns the configuration used when neither a file nor the
// environment sets a value.
func Defaults() Config {
	return Config{
		Port:                 "8090",
		LogLevel:             "info",
		OCRProvider:          "tesseract",
		OCRLanguage:          "eng",
		OCRMaxRetries:        2,
		OCRTimeout:           2 * time.Minute,
		DocumentAILocation:   "us",
		WorkerCount:          2,
		MaxQueueSize:         50,
		MaxUploadBytes:       26214400, // 25MB
		JobTTL:               1 * time.Hour,
		StateFile:            "sheetgen-state.json",
		PDFFallbackPdftotext: true,
	}
}

// Load reads the optional YAML file named by SHEETGEN_CONFIG, then applies
// environment overrides.
func Load() (Config, error) {
	return LoadFile(os.Getenv("SHEETGEN_CONFIG"))
}

// LoadFile is Load with an explicit config file path. An empty path skips
// the file.
func LoadFile(path string) (Config, error) {
	base := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &base); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg := Config{
		Port: envOr("PORT", base.Port),

		APIKey: envOr("SHEETGEN_API_KEY", base.APIKey),

		LogLevel: envOr("LOG_LEVEL", base.LogLevel),

		OCRProvider:   strings.ToLower(envOr("OCR_PROVIDER", base.OCRProvider)),
		OCRLanguage:   envOr("OCR_LANGUAGE", base.OCRLanguage),
		OCRMaxRetries: envInt("OCR_MAX_RETRIES", base.OCRMaxRetries),
		OCRTimeout:    envDuration("OCR_TIMEOUT", base.OCRTimeout),

		DocumentAIProjectID:   envOr("DOCUMENTAI_PROJECT_ID", base.DocumentAIProjectID),
		DocumentAILocation:    envOr("DOCUMENTAI_LOCATION", base.DocumentAILocation),
		DocumentAIProcessorID: envOr("DOCUMENTAI_PROCESSOR_ID", base.DocumentAIProcessorID),
		GoogleCredentials:     envOr("GOOGLE_APPLICATION_CREDENTIALS", base.GoogleCredentials),

		WorkerCount:  envInt("WORKER_COUNT", base.WorkerCount),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", base.MaxQueueSize),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", base.MaxUploadBytes),

		JobTTL: envDuration("JOB_TTL", base.JobTTL),

		StateFile: envOr("STATE_FILE", base.StateFile),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", base.PDFFallbackPdftotext),
	}

	def := Defaults()
	if cfg.OCRMaxRetries < 0 {
		cfg.OCRMaxRetries = 0
	}
	if cfg.OCRTimeout <= 0 {
		cfg.OCRTimeout = def.OCRTimeout
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = def.WorkerCount
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = def.MaxQueueSize
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = def.MaxUploadBytes
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = def.JobTTL
	}

	return cfg, nil
}

func (c Config) Validate() error {
	switch c.OCRProvider {
	case "tesseract":
	case "documentai":
		if c.DocumentAIProjectID == "" {
			return fmt.Errorf("DOCUMENTAI_PROJECT_ID is required for the documentai provider")
		}
		if c.DocumentAIProcessorID == "" {
			return fmt.Errorf("DOCUMENTAI_PROCESSOR_ID is required for the documentai provider")
		}
	default:
		return fmt.Errorf("OCR_PROVIDER must be tesseract or documentai, got %q", c.OCRProvider)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.StateFile == "" {
		return fmt.Errorf("STATE_FILE must not be empty")
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}

func envOr(key, fallback string) string {
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

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
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
