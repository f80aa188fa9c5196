package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/mrhoo2/email-bdc-agent/internal/core/domain"
	apperrors "github.com/mrhoo2/email-bdc-agent/internal/core/errors"
)

const (
	appEnvLocal    = "local"
	llmAPIKeyMock  = "mock"
	errFmtOutRange = "%w: %s = %v, must be within [0, 1]"
)

type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"local"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	LLMAPIKey    string        `env:"LLM_API_KEY"`
	LLMBaseURL   string        `env:"LLM_BASE_URL"`
	LLMModel     string        `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	LLMTimeout   time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`
	RateLimitRPS float64       `env:"RATE_LIMIT_RPS" envDefault:"2"`

	ExtractionConcurrency int `env:"EXTRACTION_CONCURRENCY" envDefault:"5"`

	ClusterSimilarityThreshold float64 `env:"CLUSTER_SIMILARITY_THRESHOLD" envDefault:"0.6"`
	ClusterUseAI               bool    `env:"CLUSTER_USE_AI" envDefault:"false"`
	ClusterMaxBatchSize        int     `env:"CLUSTER_MAX_BATCH_SIZE" envDefault:"50"`

	SignalWeightSubject     float64 `env:"SIGNAL_WEIGHT_SUBJECT" envDefault:"0.2"`
	SignalWeightProjectName float64 `env:"SIGNAL_WEIGHT_PROJECT_NAME" envDefault:"0.25"`
	SignalWeightAddress     float64 `env:"SIGNAL_WEIGHT_ADDRESS" envDefault:"0.35"`
	SignalWeightGC          float64 `env:"SIGNAL_WEIGHT_GC" envDefault:"0.1"`
	SignalWeightEngineer    float64 `env:"SIGNAL_WEIGHT_ENGINEER" envDefault:"0.05"`
	SignalWeightArchitect   float64 `env:"SIGNAL_WEIGHT_ARCHITECT" envDefault:"0.05"`

	SellerDomain    string `env:"SELLER_DOMAIN" envDefault:"example.com"`
	DueDateTimezone string `env:"DUE_DATE_TIMEZONE"`

	HealthPort int `env:"HEALTH_PORT" envDefault:"8080"`
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	applyOpenAIAliases(cfg)

	cfg.SellerDomain = strings.ToLower(strings.TrimSpace(cfg.SellerDomain))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks ranges that struct tags cannot express.
func (c *Config) Validate() error {
	ranged := []struct {
		key   string
		value float64
	}{
		{"CLUSTER_SIMILARITY_THRESHOLD", c.ClusterSimilarityThreshold},
		{"SIGNAL_WEIGHT_SUBJECT", c.SignalWeightSubject},
		{"SIGNAL_WEIGHT_PROJECT_NAME", c.SignalWeightProjectName},
		{"SIGNAL_WEIGHT_ADDRESS", c.SignalWeightAddress},
		{"SIGNAL_WEIGHT_GC", c.SignalWeightGC},
		{"SIGNAL_WEIGHT_ENGINEER", c.SignalWeightEngineer},
		{"SIGNAL_WEIGHT_ARCHITECT", c.SignalWeightArchitect},
	}

	for _, r := range ranged {
		if r.value < 0 || r.value > 1 {
			return fmt.Errorf(errFmtOutRange, apperrors.ErrInvalidConfig, r.key, r.value)
		}
	}

	if c.ExtractionConcurrency <= 0 {
		return fmt.Errorf("%w: EXTRACTION_CONCURRENCY = %d, must be positive", apperrors.ErrInvalidConfig, c.ExtractionConcurrency)
	}

	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("%w: RATE_LIMIT_RPS = %v, must be positive", apperrors.ErrInvalidConfig, c.RateLimitRPS)
	}

	if c.LLMBaseURL != "" && c.LLMAPIKey == "" {
		return fmt.Errorf("%w: LLM_BASE_URL is set but LLM_API_KEY is empty (use %q for offline extraction)",
			apperrors.ErrMissingAPIKey, llmAPIKeyMock)
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: LOG_LEVEL: %w", apperrors.ErrInvalidConfig, err)
	}

	return nil
}

// Clustering returns the clustering configuration.
func (c *Config) Clustering() domain.ClusteringConfig {
	return domain.ClusteringConfig{
		SimilarityThreshold: c.ClusterSimilarityThreshold,
		UseAI:               c.ClusterUseAI,
		MaxBatchSize:        c.ClusterMaxBatchSize,
		SignalWeights: domain.SignalWeights{
			Subject:     c.SignalWeightSubject,
			ProjectName: c.SignalWeightProjectName,
			Address:     c.SignalWeightAddress,
			GC:          c.SignalWeightGC,
			Engineer:    c.SignalWeightEngineer,
			Architect:   c.SignalWeightArchitect,
		},
	}
}

// Location returns the timezone due dates are interpreted in.
// An empty DUE_DATE_TIMEZONE means the process's local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.DueDateTimezone == "" {
		return time.Local, nil
	}

	loc, err := time.LoadLocation(c.DueDateTimezone)
	if err != nil {
		return nil, fmt.Errorf("%w: DUE_DATE_TIMEZONE %q: %w", apperrors.ErrInvalidConfig, c.DueDateTimezone, err)
	}

	return loc, nil
}

// IsLocal reports whether the app runs in the local environment.
func (c *Config) IsLocal() bool {
	return c.AppEnv == appEnvLocal
}

// UseMockLLM reports whether extraction should use the offline mock client.
func (c *Config) UseMockLLM() bool {
	return c.LLMAPIKey == "" || c.LLMAPIKey == llmAPIKeyMock
}

// applyOpenAIAliases honors the OpenAI SDK's conventional variable names.
func applyOpenAIAliases(cfg *Config) {
	if !hasEnv("LLM_API_KEY") {
		setStringFromEnv("OPENAI_API_KEY", &cfg.LLMAPIKey)
	}

	if !hasEnv("LLM_BASE_URL") {
		setStringFromEnv("OPENAI_BASE_URL", &cfg.LLMBaseURL)
	}
}

func hasEnv(key string) bool {
	_, ok := os.LookupEnv(key)
	return ok
}

func setStringFromEnv(key string, target *string) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	val = strings.TrimSpace(val)
	if val == "" {
		return
	}

	*target = val
}
