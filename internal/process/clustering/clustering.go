// Package clustering groups bid emails into projects.
//
// The rule-based pass is a one-shot batch: emails sharing a thread are joined
// unconditionally, then every pair scoring at or above the similarity threshold
// is joined. Each resulting set becomes one ProjectCluster, singletons included,
// so every input email lands in exactly one cluster.
package clustering

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mrhoo2/email-bdc-agent/internal/core/domain"
	"github.com/mrhoo2/email-bdc-agent/internal/process/similarity"
)

// Log field keys.
const (
	logFieldCount        = "count"
	logFieldLimit        = "limit"
	logFieldClusters     = "clusters"
	logFieldSimilarPairs = "similar_pairs"
)

// clusterNamespace seeds deterministic cluster IDs.
var clusterNamespace = uuid.MustParse("3b8f6d2e-7c41-4e0a-9a55-0f4c2d9e6b17")

// Stats summarizes a clustering pass.
type Stats struct {
	TotalEmails        int `json:"total_emails"`
	TotalClusters      int `json:"total_clusters"`
	MultiEmailClusters int `json:"multi_email_clusters"`
	SingletonClusters  int `json:"singleton_clusters"`
	SimilarPairs       int `json:"similar_pairs"`
}

// Result is the output of a clustering pass.
type Result struct {
	Clusters []domain.ProjectCluster `json:"clusters"`
	Stats    Stats                   `json:"stats"`
}

// Clusterer runs the rule-based clustering pass.
type Clusterer struct {
	cfg    domain.ClusteringConfig
	now    func() time.Time
	logger *zerolog.Logger
}

// Option customizes a Clusterer.
type Option func(*Clusterer)

// WithClock overrides the clock used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Clusterer) {
		c.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *Clusterer) {
		c.logger = logger
	}
}

// New creates a Clusterer.
func New(cfg domain.ClusteringConfig, opts ...Option) *Clusterer {
	nop := zerolog.Nop()

	c := &Clusterer{
		cfg:    cfg,
		now:    time.Now,
		logger: &nop,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = &nop
	}

	return c
}

// Cluster partitions signals into project clusters.
func (c *Clusterer) Cluster(signals []domain.EmailSignal) Result {
	signals = uniqueSignals(signals)

	if c.cfg.UseAI {
		c.logger.Warn().Msg("AI clustering is not available, using rule-based clustering")
	}

	if c.cfg.MaxBatchSize > 0 && len(signals) > c.cfg.MaxBatchSize {
		c.logger.Warn().
			Int(logFieldCount, len(signals)).
			Int(logFieldLimit, c.cfg.MaxBatchSize).
			Msg("Clustering batch exceeds recommended size, pairwise scoring may be slow")
	}

	ids := make([]string, len(signals))
	byID := make(map[string]domain.EmailSignal, len(signals))

	for i, s := range signals {
		ids[i] = s.EmailID
		byID[s.EmailID] = s
	}

	uf := NewUnionFind(ids...)

	unionThreads(uf, signals)

	pairs := similarity.CalculateSimilarityMatrix(signals, c.cfg)
	for _, p := range pairs {
		uf.Union(p.EmailID1, p.EmailID2)
	}

	createdAt := c.now()
	result := Result{
		Clusters: make([]domain.ProjectCluster, 0),
		Stats: Stats{
			TotalEmails:  len(signals),
			SimilarPairs: len(pairs),
		},
	}

	for _, g := range uf.Groups() {
		members := make([]domain.EmailSignal, len(g.Members))
		for i, id := range g.Members {
			members[i] = byID[id]
		}

		result.Clusters = append(result.Clusters, c.buildCluster(members, createdAt))

		if len(members) > 1 {
			result.Stats.MultiEmailClusters++
		} else {
			result.Stats.SingletonClusters++
		}
	}

	result.Stats.TotalClusters = len(result.Clusters)

	c.logger.Debug().
		Int(logFieldCount, len(signals)).
		Int(logFieldClusters, result.Stats.TotalClusters).
		Int(logFieldSimilarPairs, result.Stats.SimilarPairs).
		Msg("Clustering complete")

	return result
}

// unionThreads joins every email of a thread to the first email seen in that thread.
func unionThreads(uf *UnionFind, signals []domain.EmailSignal) {
	firstInThread := make(map[string]string)

	for _, s := range signals {
		if s.ThreadID == "" {
			continue
		}

		first, ok := firstInThread[s.ThreadID]
		if !ok {
			firstInThread[s.ThreadID] = s.EmailID
			continue
		}

		uf.Union(first, s.EmailID)
	}
}

func (c *Clusterer) buildCluster(members []domain.EmailSignal, createdAt time.Time) domain.ProjectCluster {
	info := ExtractProjectInfo(members)

	emailIDs := make([]string, len(members))
	for i, m := range members {
		emailIDs[i] = m.EmailID
	}

	return domain.ProjectCluster{
		ID:               ClusterID(emailIDs),
		Name:             ClusterName(info, members),
		Project:          info,
		EmailIDs:         emailIDs,
		Confidence:       Confidence(members, c.cfg),
		ClusteringMethod: domain.ClusteringRuleBased,
		CreatedAt:        createdAt,
	}
}

// ClusterID derives a stable ID from the member email IDs, independent of their order.
func ClusterID(emailIDs []string) string {
	sorted := append([]string(nil), emailIDs...)
	sort.Strings(sorted)

	return uuid.NewSHA1(clusterNamespace, []byte(strings.Join(sorted, "\n"))).String()
}

func uniqueSignals(signals []domain.EmailSignal) []domain.EmailSignal {
	seen := make(map[string]bool, len(signals))
	out := make([]domain.EmailSignal, 0, len(signals))

	for _, s := range signals {
		if seen[s.EmailID] {
			continue
		}

		seen[s.EmailID] = true
		out = append(out, s)
	}

	return out
}
