package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Extraction result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var (
	EmailsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bid_agent_emails_ingested_total",
		Help: "The total number of ingested emails",
	}, []string{"format"})

	ExtractionResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bid_agent_extraction_results_total",
		Help: "The total number of per-email extraction results",
	}, []string{"status"})

	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bid_agent_llm_request_duration_seconds",
		Help:    "Duration of LLM requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})

	LLMCircuitBreakerOpens = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bid_agent_llm_circuit_breaker_opens_total",
		Help: "Number of times the LLM circuit breaker opened",
	})

	ClustersFormed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bid_agent_clusters_formed_total",
		Help: "The total number of project clusters formed, by size class",
	}, []string{"kind"})

	BidsByDateGroup = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bid_agent_bids_by_date_group",
		Help: "Number of bids per date group in the latest grouped list",
	}, []string{"date_group"})

	BatchDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bid_agent_batch_duration_seconds",
		Help:    "Duration in seconds to process a full email batch",
		Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120, 300, 600},
	})
)
