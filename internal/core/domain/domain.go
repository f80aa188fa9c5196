package domain

import "time"

// Email is a normalized inbound bid-request email.
type Email struct {
	ID       string    `json:"id"`
	ThreadID string    `json:"thread_id"`
	Subject  string    `json:"subject"`
	From     string    `json:"from"`
	To       []string  `json:"to,omitempty"`
	Cc       []string  `json:"cc,omitempty"`
	Date     time.Time `json:"date"`
	Body     string    `json:"body,omitempty"`
}

// EmailSignal is the per-email record consumed by similarity scoring and clustering.
// Empty strings mean the field was not extracted.
type EmailSignal struct {
	EmailID           string    `json:"email_id"`
	ThreadID          string    `json:"thread_id"`
	Subject           string    `json:"subject"`
	From              string    `json:"from"`
	Date              time.Time `json:"date"`
	ProjectName       string    `json:"project_name,omitempty"`
	ProjectAddress    string    `json:"project_address,omitempty"`
	GeneralContractor string    `json:"general_contractor,omitempty"`
	Engineer          string    `json:"engineer,omitempty"`
	Architect         string    `json:"architect,omitempty"`
	PurchaserCompany  string    `json:"purchaser_company,omitempty"`
}

// ProjectInfo holds the canonical project attributes shared by a cluster or bid.
type ProjectInfo struct {
	ProjectName       string `json:"project_name,omitempty"`
	ProjectAddress    string `json:"project_address,omitempty"`
	GeneralContractor string `json:"general_contractor,omitempty"`
	Engineer          string `json:"engineer,omitempty"`
	Architect         string `json:"architect,omitempty"`
}

// ClusteringMethod identifies how a cluster was formed.
type ClusteringMethod string

// Clustering method constants.
const (
	ClusteringRuleBased ClusteringMethod = "rule_based"
	ClusteringAI        ClusteringMethod = "ai"
)

// ProjectCluster is a set of emails believed to concern the same project.
type ProjectCluster struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Project          ProjectInfo      `json:"project"`
	EmailIDs         []string         `json:"email_ids"`
	Confidence       float64          `json:"confidence"`
	ClusteringMethod ClusteringMethod `json:"clustering_method"`
	CreatedAt        time.Time        `json:"created_at"`
}

// SignalWeights configures the contribution of each similarity signal.
type SignalWeights struct {
	Subject     float64 `json:"subject"`
	ProjectName float64 `json:"project_name"`
	Address     float64 `json:"address"`
	GC          float64 `json:"gc"`
	Engineer    float64 `json:"engineer"`
	Architect   float64 `json:"architect"`
}

// ClusteringConfig configures the clustering pass.
type ClusteringConfig struct {
	SimilarityThreshold float64       `json:"similarity_threshold"`
	UseAI               bool          `json:"use_ai"`
	SignalWeights       SignalWeights `json:"signal_weights"`
	MaxBatchSize        int           `json:"max_batch_size"`
}

// Default clustering settings.
const (
	DefaultSimilarityThreshold = 0.6
	DefaultMaxBatchSize        = 50
)

// DefaultSignalWeights returns the stock signal weights.
func DefaultSignalWeights() SignalWeights {
	return SignalWeights{
		Subject:     0.2,
		ProjectName: 0.25,
		Address:     0.35,
		GC:          0.1,
		Engineer:    0.05,
		Architect:   0.05,
	}
}

// DefaultClusteringConfig returns the rule-based clustering defaults.
func DefaultClusteringConfig() ClusteringConfig {
	return ClusteringConfig{
		SimilarityThreshold: DefaultSimilarityThreshold,
		SignalWeights:       DefaultSignalWeights(),
		MaxBatchSize:        DefaultMaxBatchSize,
	}
}
