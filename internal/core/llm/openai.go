package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/mrhoo2/email-bdc-agent/internal/core/domain"
	apperrors "github.com/mrhoo2/email-bdc-agent/internal/core/errors"
	"github.com/mrhoo2/email-bdc-agent/internal/platform/config"
	"github.com/mrhoo2/email-bdc-agent/internal/platform/observability"
)

type openaiClient struct {
	model       string
	client      *openai.Client
	logger      *zerolog.Logger
	rateLimiter *rate.Limiter
	now         func() time.Time

	// Circuit breaker state
	consecutiveFailures int
	circuitOpenUntil    time.Time
	mu                  sync.Mutex
}

// extractResponse mirrors the JSON object requested by extractSystemPrompt.
type extractResponse struct {
	Purchaser   *domain.PurchaserIdentity `json:"purchaser"`
	Project     *domain.ProjectSignals    `json:"project"`
	BidDueDates []domain.BidDueDate       `json:"bid_due_dates"`
}

func NewOpenAI(cfg *config.Config, logger *zerolog.Logger) Client {
	clientCfg := openai.DefaultConfig(cfg.LLMAPIKey)
	if cfg.LLMBaseURL != "" {
		clientCfg.BaseURL = cfg.LLMBaseURL
	}

	model := cfg.LLMModel
	if model == "" {
		model = openai.GPT4oMini
	}

	return &openaiClient{
		model:       model,
		client:      openai.NewClientWithConfig(clientCfg),
		logger:      logger,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), rateLimiterBurst),
		now:         time.Now,
	}
}

func (c *openaiClient) checkCircuit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.now().Before(c.circuitOpenUntil) {
		return fmt.Errorf("%w until %v", apperrors.ErrCircuitBreakerOpen, c.circuitOpenUntil)
	}

	return nil
}

func (c *openaiClient) recordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutiveFailures = 0
}

func (c *openaiClient) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutiveFailures++
	if c.consecutiveFailures >= circuitBreakerThreshold {
		c.circuitOpenUntil = c.now().Add(circuitBreakerTimeout)
		c.consecutiveFailures = 0

		observability.LLMCircuitBreakerOpens.Inc()
		c.logger.Warn().
			Int(logKeyConsecutiveFailures, circuitBreakerThreshold).
			Time(logKeyOpenUntil, c.circuitOpenUntil).
			Msg("Circuit breaker opened")
	}
}

// ExtractBid runs one JSON-mode chat completion for email and maps the answer
// onto a validated Extraction. Fields the model got wrong are dropped, not fatal.
func (c *openaiClient) ExtractBid(ctx context.Context, email domain.Email) (domain.Extraction, error) {
	if err := c.checkCircuit(); err != nil {
		return domain.Extraction{}, err
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return domain.Extraction{}, fmt.Errorf(errRateLimiter, err)
	}

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: extractTemperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildExtractPrompt(email)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})

	observability.LLMRequestDuration.WithLabelValues(c.model).Observe(time.Since(start).Seconds())

	if err != nil {
		// Caller timeouts and cancellation say nothing about the endpoint.
		if ctx.Err() == nil {
			c.recordFailure()
		}

		return domain.Extraction{}, fmt.Errorf(errOpenAIChatCompletion, err)
	}

	c.recordSuccess()

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return domain.Extraction{}, fmt.Errorf("email %s: %w", email.ID, apperrors.ErrEmptyResponse)
	}

	content := resp.Choices[0].Message.Content
	c.logger.Debug().Str(logKeyEmailID, email.ID).Str(logKeyContent, content).Msg("LLM response")

	return c.toExtraction(email, content)
}

func (c *openaiClient) toExtraction(email domain.Email, content string) (domain.Extraction, error) {
	var parsed extractResponse
	if err := json.Unmarshal([]byte(extractJSON(content)), &parsed); err != nil {
		return domain.Extraction{}, fmt.Errorf(errParseResponse, err)
	}

	ext, err := domain.ValidateExtraction(domain.Extraction{
		EmailID:     email.ID,
		Purchaser:   parsed.Purchaser,
		Project:     parsed.Project,
		BidDueDates: parsed.BidDueDates,
		Model:       c.model,
		ExtractedAt: c.now(),
	})
	if err != nil {
		c.logger.Warn().Err(err).Str(logKeyEmailID, email.ID).Str(logKeyModel, c.model).
			Msg("Dropped invalid fields from extraction")
	}

	return ext, nil
}
