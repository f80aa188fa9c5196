// Package extraction fans bid extraction out across a batch of emails and
// maps the settled results onto clustering signals.
package extraction

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrhoo2/email-bdc-agent/internal/core/domain"
	"github.com/mrhoo2/email-bdc-agent/internal/core/llm"
	"github.com/mrhoo2/email-bdc-agent/internal/platform/observability"
	"github.com/mrhoo2/email-bdc-agent/internal/platform/worker"
)

const (
	workerName = "extraction"

	logFieldEmailID   = "email_id"
	logFieldTotal     = "total"
	logFieldSucceeded = "succeeded"
	logFieldFailed    = "failed"
)

// Result is the settled outcome for one email.
type Result struct {
	EmailID    string
	Extraction domain.Extraction
	Err        error
}

// OK reports whether extraction succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// ProgressFunc is called after each extraction attempt finishes.
type ProgressFunc func(done, total int)

// Runner extracts a batch of emails with bounded concurrency.
type Runner struct {
	client      llm.Client
	seller      *SellerInferrer
	concurrency int
	timeout     time.Duration
	progress    ProgressFunc
	logger      *zerolog.Logger
}

// Option customizes a Runner.
type Option func(*Runner)

// WithConcurrency caps the number of emails extracted at once.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		r.concurrency = n
	}
}

// WithTimeout bounds each email's extraction.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.timeout = d
	}
}

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(r *Runner) {
		r.progress = fn
	}
}

// WithSellerInferrer fills in the seller from recipients when the extraction has none.
func WithSellerInferrer(s *SellerInferrer) Option {
	return func(r *Runner) {
		r.seller = s
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a Runner.
func NewRunner(client llm.Client, opts ...Option) *Runner {
	nop := zerolog.Nop()

	r := &Runner{
		client: client,
		logger: &nop,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run extracts every email and returns one Result per email in input order.
// One failure never aborts the batch. Emails not started before ctx is done
// carry the context error.
func (r *Runner) Run(ctx context.Context, emails []domain.Email) []Result {
	results := make([]Result, len(emails))

	var (
		mu   sync.Mutex
		done int
	)

	errs := worker.Settle(ctx, worker.Config{
		Name:        workerName,
		Limit:       r.concurrency,
		TaskTimeout: r.timeout,
		Logger:      r.logger,
	}, len(emails), func(taskCtx context.Context, i int) error {
		defer func() {
			if r.progress == nil {
				return
			}

			mu.Lock()
			done++
			n := done
			mu.Unlock()

			r.progress(n, len(emails))
		}()

		ext, err := r.extractOne(taskCtx, emails[i])
		if err != nil {
			return err
		}

		results[i].Extraction = ext

		return nil
	})

	succeeded := 0

	for i, email := range emails {
		results[i].EmailID = email.ID
		results[i].Err = errs[i]

		if errs[i] != nil {
			observability.ExtractionResults.WithLabelValues(observability.StatusError).Inc()
			r.logger.Warn().Err(errs[i]).Str(logFieldEmailID, email.ID).Msg("Extraction failed")

			continue
		}

		succeeded++

		observability.ExtractionResults.WithLabelValues(observability.StatusSuccess).Inc()
	}

	r.logger.Info().
		Int(logFieldTotal, len(emails)).
		Int(logFieldSucceeded, succeeded).
		Int(logFieldFailed, len(emails)-succeeded).
		Msg("Extraction batch settled")

	return results
}

func (r *Runner) extractOne(ctx context.Context, email domain.Email) (domain.Extraction, error) {
	ext, err := r.client.ExtractBid(ctx, email)
	if err != nil {
		return domain.Extraction{}, err
	}

	ext.EmailID = email.ID

	if ext.Seller == nil && r.seller != nil {
		ext.Seller = r.seller.Infer(email)
	}

	return ext, nil
}

// Successful returns the extractions of the successful results, in order.
func Successful(results []Result) []domain.Extraction {
	out := make([]domain.Extraction, 0, len(results))

	for _, res := range results {
		if res.OK() {
			out = append(out, res.Extraction)
		}
	}

	return out
}
