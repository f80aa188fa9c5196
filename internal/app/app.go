// Package app provides the application bootstrap and runtime orchestration.
//
// The App type wires together all dependencies and exposes two modes:
//
//   - Run: process one mailbox export and write the grouped bid list
//   - Serve: process the export, then serve the result over HTTP next to
//     health and metrics endpoints
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mrhoo2/email-bdc-agent/internal/core/domain"
	apperrors "github.com/mrhoo2/email-bdc-agent/internal/core/errors"
	"github.com/mrhoo2/email-bdc-agent/internal/core/llm"
	"github.com/mrhoo2/email-bdc-agent/internal/ingest/mailbox"
	"github.com/mrhoo2/email-bdc-agent/internal/output/bids"
	"github.com/mrhoo2/email-bdc-agent/internal/platform/config"
	"github.com/mrhoo2/email-bdc-agent/internal/platform/observability"
	"github.com/mrhoo2/email-bdc-agent/internal/platform/worker"
	"github.com/mrhoo2/email-bdc-agent/internal/process/clustering"
	"github.com/mrhoo2/email-bdc-agent/internal/process/extraction"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

const (
	clusterKindMulti     = "multi"
	clusterKindSingleton = "singleton"

	queryFormat = "format"

	opServeHTTP    = "serve http"
	opProcessBatch = "process batch"

	contentTypeJSON = "application/json"
	contentTypeText = "text/plain; charset=utf-8"

	logFieldEmails      = "emails"
	logFieldExtractions = "extractions"
	logFieldFailed      = "failed"
	logFieldClusters    = "clusters"
	logFieldBids        = "bids"
	logFieldDone        = "done"
	logFieldTotal       = "total"
	logFieldDuration    = "duration"
)

var errNoBatch = errors.New("no batch processed yet")

// Options selects the inputs and output of a run.
type Options struct {
	// InputPath is an .eml/.mbox file, a directory of them, or a JSON export.
	InputPath string
	// ExtractionsPath optionally points at precomputed extractions, which
	// skips the model call.
	ExtractionsPath string
	// Format is FormatText or FormatJSON.
	Format string
}

// Report is the outcome of one batch.
type Report struct {
	Emails       []domain.Email
	Extractions  []domain.Extraction
	FailedEmails []string
	Clustering   clustering.Result
	Bids         domain.GroupedBidList
}

// App holds the application dependencies.
type App struct {
	cfg    *config.Config
	logger *zerolog.Logger
	client llm.Client
	loader *mailbox.Loader
	now    func() time.Time

	mu     sync.RWMutex
	latest *Report
}

// Option customizes an App.
type Option func(*App)

// WithLLMClient replaces the extraction client built from config.
func WithLLMClient(client llm.Client) Option {
	return func(a *App) {
		a.client = client
	}
}

// WithClock overrides the clock used for date grouping.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		a.now = now
	}
}

// New creates a new App instance with the given dependencies.
func New(cfg *config.Config, logger *zerolog.Logger, opts ...Option) *App {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	a := &App{
		cfg:    cfg,
		logger: logger,
		loader: mailbox.NewLoader(logger),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.client == nil {
		a.client = llm.New(cfg, logger)
	}

	return a
}

// Run processes one batch and writes the grouped bid list to w.
func (a *App) Run(ctx context.Context, opts Options, w io.Writer) error {
	report, err := a.processInputs(ctx, opts)
	if err != nil {
		return err
	}

	return render(w, opts.Format, report.Bids)
}

// Serve processes one batch in the background and serves health, metrics
// and the grouped bid list until ctx is done. /readyz fails until the
// batch is done.
func (a *App) Serve(ctx context.Context, opts Options) error {
	srv := observability.NewServer(a.cfg.HealthPort, a.ready, a.logger)
	srv.Handle("/bids", a.BidsHandler())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer worker.RecoverPanic(a.logger, opServeHTTP)

		return srv.Start(gctx)
	})

	g.Go(func() (err error) {
		defer worker.RecoverPanic(a.logger, opProcessBatch)

		_, err = a.processInputs(gctx, opts)

		return err
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	return nil
}

func (a *App) processInputs(ctx context.Context, opts Options) (*Report, error) {
	emails, err := a.loader.Load(opts.InputPath)
	if err != nil {
		return nil, fmt.Errorf("load emails: %w", err)
	}

	var precomputed []domain.Extraction

	if opts.ExtractionsPath != "" {
		precomputed, err = a.loader.LoadExtractions(opts.ExtractionsPath)
		if err != nil {
			return nil, fmt.Errorf("load extractions: %w", err)
		}
	}

	return a.ProcessBatch(ctx, emails, precomputed)
}

// ProcessBatch extracts, clusters and groups a batch of emails. When
// precomputed is non-nil it is used instead of calling the model. A failed
// extraction drops that email from the batch; it never fails the batch.
func (a *App) ProcessBatch(ctx context.Context, emails []domain.Email, precomputed []domain.Extraction) (*Report, error) {
	if len(emails) == 0 {
		return nil, fmt.Errorf("process batch: %w", apperrors.ErrNoResults)
	}

	start := time.Now()

	loc, err := a.cfg.Location()
	if err != nil {
		return nil, err
	}

	report := &Report{Emails: emails}

	if precomputed != nil {
		report.Extractions = extraction.NewSellerInferrer(a.cfg.SellerDomain).FillMissing(precomputed, emails)
	} else {
		results := a.newRunner().Run(ctx, emails)
		report.Extractions = extraction.Successful(results)

		for _, res := range results {
			if !res.OK() {
				report.FailedEmails = append(report.FailedEmails, res.EmailID)
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("process batch: %w", err)
	}

	signals := extraction.BuildSignals(emails, report.Extractions)

	report.Clustering = clustering.New(a.cfg.Clustering(),
		clustering.WithClock(a.now),
		clustering.WithLogger(a.logger),
	).Cluster(signals)

	builder := bids.NewBuilder(
		bids.WithClock(a.now),
		bids.WithLocation(loc),
		bids.WithLogger(a.logger),
	)
	report.Bids = builder.CreateGroupedBidList(report.Extractions, emails, report.Clustering.Clusters)

	recordMetrics(report, time.Since(start))

	a.mu.Lock()
	a.latest = report
	a.mu.Unlock()

	a.logger.Info().
		Int(logFieldEmails, len(emails)).
		Int(logFieldExtractions, len(report.Extractions)).
		Int(logFieldFailed, len(report.FailedEmails)).
		Int(logFieldClusters, report.Clustering.Stats.TotalClusters).
		Int(logFieldBids, report.Bids.Summary.TotalBids).
		Dur(logFieldDuration, time.Since(start)).
		Msg("Batch processed")

	return report, nil
}

func (a *App) newRunner() *extraction.Runner {
	return extraction.NewRunner(a.client,
		extraction.WithConcurrency(a.cfg.ExtractionConcurrency),
		extraction.WithTimeout(a.cfg.LLMTimeout),
		extraction.WithSellerInferrer(extraction.NewSellerInferrer(a.cfg.SellerDomain)),
		extraction.WithLogger(a.logger),
		extraction.WithProgress(func(done, total int) {
			a.logger.Debug().Int(logFieldDone, done).Int(logFieldTotal, total).Msg("Extraction progress")
		}),
	)
}

// Latest returns the most recent batch report, or nil.
func (a *App) Latest() *Report {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.latest
}

func (a *App) ready(_ context.Context) error {
	if a.Latest() == nil {
		return errNoBatch
	}

	return nil
}

// BidsHandler serves the latest grouped bid list as JSON, or as text with
// ?format=text.
func (a *App) BidsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		report := a.Latest()
		if report == nil {
			http.Error(w, errNoBatch.Error(), http.StatusServiceUnavailable)
			return
		}

		format := r.URL.Query().Get(queryFormat)
		if format == "" {
			format = FormatJSON
		}

		switch format {
		case FormatText:
			w.Header().Set("Content-Type", contentTypeText)
		case FormatJSON:
			w.Header().Set("Content-Type", contentTypeJSON)
		default:
			err := fmt.Errorf("%w: output format %q", apperrors.ErrUnsupportedFormat, format)
			http.Error(w, err.Error(), http.StatusBadRequest)

			return
		}

		if err := render(w, format, report.Bids); err != nil {
			a.logger.Error().Err(err).Msg("failed to render bids")
		}
	})
}

func render(w io.Writer, format string, list domain.GroupedBidList) error {
	switch format {
	case FormatJSON:
		return bids.RenderJSON(w, list)
	case FormatText, "":
		return bids.RenderText(w, list)
	default:
		return fmt.Errorf("%w: output format %q", apperrors.ErrUnsupportedFormat, format)
	}
}

func recordMetrics(report *Report, elapsed time.Duration) {
	stats := report.Clustering.Stats
	observability.ClustersFormed.WithLabelValues(clusterKindMulti).Add(float64(stats.MultiEmailClusters))
	observability.ClustersFormed.WithLabelValues(clusterKindSingleton).Add(float64(stats.SingletonClusters))

	counts := make(map[domain.DateGroup]int, len(domain.DateGroupOrder))
	for _, g := range report.Bids.Groups {
		counts[g.DateGroup] = g.Count
	}

	for _, g := range domain.DateGroupOrder {
		observability.BidsByDateGroup.WithLabelValues(string(g)).Set(float64(counts[g]))
	}

	observability.BatchDurationSeconds.Observe(elapsed.Seconds())
}
