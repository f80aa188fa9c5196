// Package llm extracts structured bid entities from emails with a chat model.
package llm

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/mrhoo2/email-bdc-agent/internal/core/domain"
	"github.com/mrhoo2/email-bdc-agent/internal/platform/config"
)

// Client extracts bid entities from a single email.
type Client interface {
	ExtractBid(ctx context.Context, email domain.Email) (domain.Extraction, error)
}

// New returns an OpenAI-backed client, or the offline mock when no API key
// is configured or the key is "mock".
func New(cfg *config.Config, logger *zerolog.Logger) Client {
	if logger == nil {
		nopLogger := zerolog.Nop()
		logger = &nopLogger
	}

	if cfg.UseMockLLM() {
		logger.Warn().Msg("LLM_API_KEY not set, using mock extraction client")

		return NewMock()
	}

	return NewOpenAI(cfg, logger)
}
