package llm

import "time"

// Error message templates
const (
	errRateLimiter          = "rate limiter error: %w"
	errOpenAIChatCompletion = "openai chat completion error: %w"
	errParseResponse        = "failed to parse response: %w"
)

// Log key strings
const (
	logKeyEmailID             = "email_id"
	logKeyModel               = "model"
	logKeyContent             = "content"
	logKeyConsecutiveFailures = "consecutive_failures"
	logKeyOpenUntil           = "open_until"
)

// Circuit breaker defaults
const (
	circuitBreakerThreshold = 5
	circuitBreakerTimeout   = 1 * time.Minute
)

// Numeric constants
const (
	rateLimiterBurst   = 5
	maxBodyRunes       = 12000
	extractTemperature = 0
)

// Mock client constants
const (
	mockModel              = "mock"
	mockPurchaserScore     = 0.6
	mockProjectScore       = 0.7
	mockDueDateScore       = 0.8
	mockMaxCompanyNameRune = 80
)
