package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environments accepted in ENVIRONMENT.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

type Config struct {
	Environment string `yaml:"environment"`

	// Logging
	LogLevel      string `yaml:"log_level"`
	LogDir        string `yaml:"log_dir"`
	LogMaxSizeMB  int    `yaml:"log_max_size_mb"`
	LogMaxBackups int    `yaml:"log_max_backups"`
	LogMaxAgeDays int    `yaml:"log_max_age_days"`
	LogCompress   bool   `yaml:"log_compress"`

	// Model provider
	ModelProvider     string        `yaml:"model_provider"`
	GeminiAPIKey      string        `yaml:"gemini_api_key"`
	GeminiModel       string        `yaml:"gemini_model"`
	GroqAPIKey        string        `yaml:"groq_api_key"`
	GroqModel         string        `yaml:"groq_model"`
	GroqBaseURL       string        `yaml:"groq_base_url"`
	LLMTemperature    float64       `yaml:"llm_temperature"`
	LLMTimeout        time.Duration `yaml:"llm_timeout"`
	LLMMaxRetries     int           `yaml:"llm_max_retries"`
	LLMRetryBaseDelay time.Duration `yaml:"llm_retry_base_delay"`

	// Fan-out
	MaxConcurrentUnits int  `yaml:"max_concurrent_units"`
	FailFast           bool `yaml:"fail_fast"`

	// Chunking
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`

	// Output
	OutputDir string `yaml:"output_dir"`

	// PDF
	PDFFallbackPdftotext bool `yaml:"pdf_fallback_pdftotext"`

	// Server mode
	Port           string        `yaml:"port"`
	QuizzerAPIKey  string        `yaml:"quizzer_api_key"`
	WorkerCount    int           `yaml:"worker_count"`
	MaxQueueSize   int           `yaml:"max_queue_size"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	RunTTL         time.Duration `yaml:"run_ttl"`

	// Tracing
	OTelEnabled  bool   `yaml:"otel_enabled"`
	OTelEndpoint string `yaml:"otel_exporter_otlp_endpoint"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Environment: EnvDevelopment,

		LogLevel:      "info",
		LogDir:        "logs",
		LogMaxSizeMB:  10,
		LogMaxBackups: 5,
		LogMaxAgeDays: 30,
		LogCompress:   true,

		ModelProvider:     "groq",
		GeminiModel:       "gemini-2.5-flash",
		GroqModel:         "llama-3.3-70b-versatile",
		LLMTemperature:    1.0,
		LLMTimeout:        120 * time.Second,
		LLMMaxRetries:     3,
		LLMRetryBaseDelay: time.Second,

		MaxConcurrentUnits: 8,

		ChunkSize:    1000,
		ChunkOverlap: 200,

		OutputDir: "outputs",

		PDFFallbackPdftotext: true,

		Port:           "8090",
		WorkerCount:    2,
		MaxQueueSize:   100,
		MaxUploadBytes: 52428800, // 50MB
		RunTTL:         1 * time.Hour,

		OTelEndpoint: "localhost:4318",
	}
}

// FilePath picks the config file: the flag value if set, else QUIZZER_CONFIG.
func FilePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv("QUIZZER_CONFIG")
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when path is empty), then the environment.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	cfg.normalize()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Environment = envOr("ENVIRONMENT", c.Environment)

	c.LogLevel = envOr("LOG_LEVEL", c.LogLevel)
	c.LogDir = envOr("LOG_DIR", c.LogDir)
	c.LogMaxSizeMB = envInt("LOG_MAX_SIZE_MB", c.LogMaxSizeMB)
	c.LogMaxBackups = envInt("LOG_MAX_BACKUPS", c.LogMaxBackups)
	c.LogMaxAgeDays = envInt("LOG_MAX_AGE_DAYS", c.LogMaxAgeDays)
	c.LogCompress = envBool("LOG_COMPRESS", c.LogCompress)

	c.ModelProvider = envOr("MODEL_PROVIDER", c.ModelProvider)
	c.GeminiAPIKey = envOr("GEMINI_API_KEY", c.GeminiAPIKey)
	c.GeminiModel = envOr("GEMINI_MODEL", c.GeminiModel)
	c.GroqAPIKey = envOr("GROQ_API_KEY", c.GroqAPIKey)
	c.GroqModel = envOr("GROQ_MODEL", c.GroqModel)
	c.GroqBaseURL = envOr("GROQ_BASE_URL", c.GroqBaseURL)
	c.LLMTemperature = envFloat("LLM_TEMPERATURE", c.LLMTemperature)
	c.LLMTimeout = envDuration("LLM_TIMEOUT", c.LLMTimeout)
	c.LLMMaxRetries = envInt("LLM_MAX_RETRIES", c.LLMMaxRetries)
	c.LLMRetryBaseDelay = envDuration("LLM_RETRY_BASE_DELAY", c.LLMRetryBaseDelay)

	c.MaxConcurrentUnits = envInt("MAX_CONCURRENT_UNITS", c.MaxConcurrentUnits)
	c.FailFast = envBool("FAIL_FAST", c.FailFast)

	c.ChunkSize = envInt("CHUNK_SIZE", c.ChunkSize)
	c.ChunkOverlap = envInt("CHUNK_OVERLAP", c.ChunkOverlap)

	c.OutputDir = envOr("OUTPUT_DIR", c.OutputDir)
	c.PDFFallbackPdftotext = envBool("PDF_FALLBACK_PDFTOTEXT", c.PDFFallbackPdftotext)

	c.Port = envOr("PORT", c.Port)
	c.QuizzerAPIKey = envOr("QUIZZER_API_KEY", c.QuizzerAPIKey)
	c.WorkerCount = envInt("WORKER_COUNT", c.WorkerCount)
	c.MaxQueueSize = envInt("MAX_QUEUE_SIZE", c.MaxQueueSize)
	c.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", c.MaxUploadBytes)
	c.RunTTL = envDuration("RUN_TTL", c.RunTTL)

	c.OTelEnabled = envBool("OTEL_ENABLED", c.OTelEnabled)
	c.OTelEndpoint = envOr("OTEL_EXPORTER_OTLP_ENDPOINT", c.OTelEndpoint)
}

func (c *Config) normalize() {
	d := Defaults()
	c.Environment = strings.ToLower(strings.TrimSpace(c.Environment))
	c.ModelProvider = strings.ToLower(strings.TrimSpace(c.ModelProvider))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))

	if c.LLMMaxRetries <= 0 {
		c.LLMMaxRetries = d.LLMMaxRetries
	}
	if c.LLMRetryBaseDelay <= 0 {
		c.LLMRetryBaseDelay = d.LLMRetryBaseDelay
	}
	if c.MaxConcurrentUnits <= 0 {
		c.MaxConcurrentUnits = d.MaxConcurrentUnits
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = d.ChunkSize
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		c.ChunkOverlap = min(d.ChunkOverlap, c.ChunkSize/5)
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = d.WorkerCount
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = d.MaxQueueSize
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = d.MaxUploadBytes
	}
	if c.RunTTL <= 0 {
		c.RunTTL = d.RunTTL
	}
	if c.OutputDir == "" {
		c.OutputDir = d.OutputDir
	}
}

// Validate checks what every run needs: a known environment and provider
// and that provider's credentials.
func (c Config) Validate() error {
	var errs []error
	switch c.Environment {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		errs = append(errs, fmt.Errorf("ENVIRONMENT must be one of development, production, test (got %q)", c.Environment))
	}
	switch c.ModelProvider {
	case "google":
		if c.GeminiAPIKey == "" {
			errs = append(errs, fmt.Errorf("GEMINI_API_KEY is required when MODEL_PROVIDER=google"))
		}
	case "groq":
		if c.GroqAPIKey == "" {
			errs = append(errs, fmt.Errorf("GROQ_API_KEY is required when MODEL_PROVIDER=groq"))
		}
	default:
		errs = append(errs, fmt.Errorf("MODEL_PROVIDER must be google or groq (got %q)", c.ModelProvider))
	}
	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		errs = append(errs, fmt.Errorf("LLM_TEMPERATURE must be between 0 and 2 (got %g)", c.LLMTemperature))
	}
	return errors.Join(errs...)
}

// ValidateServer additionally requires the API key guarding server mode.
func (c Config) ValidateServer() error {
	err := c.Validate()
	if c.QuizzerAPIKey == "" {
		err = errors.Join(err, fmt.Errorf("QUIZZER_API_KEY is required"))
	}
	return err
}

// ModelAPIKey returns the credential for the selected provider.
func (c Config) ModelAPIKey() string {
	if c.ModelProvider == "google" {
		return c.GeminiAPIKey
	}
	return c.GroqAPIKey
}

// ModelName returns the model for the selected provider.
func (c Config) ModelName() string {
	if c.ModelProvider == "google" {
		return c.GeminiModel
	}
	return c.GroqModel
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
