package clustering

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrhoo2/email-bdc-agent/internal/core/domain"
)

var testNow = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

func newTestClusterer() *Clusterer {
	return New(domain.DefaultClusteringConfig(), WithClock(func() time.Time { return testNow }))
}

func clusterOf(t *testing.T, res Result, emailID string) domain.ProjectCluster {
	t.Helper()

	for _, c := range res.Clusters {
		for _, id := range c.EmailIDs {
			if id == emailID {
				return c
			}
		}
	}

	t.Fatalf("email %s not found in any cluster", emailID)

	return domain.ProjectCluster{}
}

func TestCluster_Empty(t *testing.T) {
	res := newTestClusterer().Cluster(nil)

	assert.Empty(t, res.Clusters)
	assert.Equal(t, Stats{}, res.Stats)
}

func TestCluster_ThreadAndSimilarity(t *testing.T) {
	signals := []domain.EmailSignal{
		{EmailID: "e1", ThreadID: "t1", Subject: "Byron WWTP bid", ProjectName: "Byron WWTP", PurchaserCompany: "Bay Mechanical"},
		{EmailID: "e2", ThreadID: "t1", Subject: "Totally unrelated", ProjectAddress: "1 Elsewhere"},
		{EmailID: "e3", ThreadID: "t9", Subject: "RE: Byron WWTP bid", ProjectName: "Byron WWTP"},
		{EmailID: "e4", ThreadID: "t4", Subject: "Lincoln Elementary", ProjectName: "Lincoln Elementary Modernization", ProjectAddress: "55 School Rd"},
	}

	res := newTestClusterer().Cluster(signals)

	require.Len(t, res.Clusters, 2)
	assert.Equal(t, 4, res.Stats.TotalEmails)
	assert.Equal(t, 1, res.Stats.MultiEmailClusters)
	assert.Equal(t, 1, res.Stats.SingletonClusters)

	first := res.Clusters[0]
	assert.Equal(t, []string{"e1", "e2", "e3"}, first.EmailIDs)
	assert.Equal(t, "Byron WWTP", first.Name)
	assert.Equal(t, domain.ClusteringRuleBased, first.ClusteringMethod)
	assert.Equal(t, testNow, first.CreatedAt)

	second := res.Clusters[1]
	assert.Equal(t, []string{"e4"}, second.EmailIDs)
	assert.Equal(t, 1.0, second.Confidence)
}

func TestCluster_ThreadDominance(t *testing.T) {
	signals := []domain.EmailSignal{
		{EmailID: "a", ThreadID: "same", ProjectAddress: "1 Pump Way"},
		{EmailID: "b", ThreadID: "same", ProjectAddress: "900 School Blvd"},
	}

	res := newTestClusterer().Cluster(signals)

	require.Len(t, res.Clusters, 1)
	assert.ElementsMatch(t, []string{"a", "b"}, res.Clusters[0].EmailIDs)
}

func TestCluster_TransitiveSimilarity(t *testing.T) {
	signals := []domain.EmailSignal{
		{EmailID: "a", ProjectAddress: "North Gate"},
		{EmailID: "b", ProjectAddress: "North Gate Yard"},
		{EmailID: "c", ProjectAddress: "Gate Yard"},
	}

	// a~b and b~c clear the threshold, a~c does not.

	res := newTestClusterer().Cluster(signals)

	require.Len(t, res.Clusters, 1)
	assert.Equal(t, []string{"a", "b", "c"}, res.Clusters[0].EmailIDs)
	assert.Equal(t, 0.67, res.Clusters[0].Confidence)
}

func TestCluster_PartitionInvariant(t *testing.T) {
	signals := []domain.EmailSignal{
		{EmailID: "1", ThreadID: "x", ProjectName: "Alpha"},
		{EmailID: "2", ThreadID: "x", ProjectName: "Beta"},
		{EmailID: "3", ProjectName: "Alpha"},
		{EmailID: "4", ProjectName: "Gamma Station"},
		{EmailID: "5"},
		{EmailID: "1", ProjectName: "duplicate id ignored"},
	}

	res := newTestClusterer().Cluster(signals)

	seen := make(map[string]int)
	for _, c := range res.Clusters {
		for _, id := range c.EmailIDs {
			seen[id]++
		}
	}

	assert.Equal(t, map[string]int{"1": 1, "2": 1, "3": 1, "4": 1, "5": 1}, seen)
	assert.Equal(t, 5, res.Stats.TotalEmails)
}

func TestCluster_Deterministic(t *testing.T) {
	signals := []domain.EmailSignal{
		{EmailID: "a", ThreadID: "t", ProjectName: "Alpha"},
		{EmailID: "b", ThreadID: "t"},
		{EmailID: "c", ProjectName: "Omega"},
	}

	first := newTestClusterer().Cluster(signals)
	second := newTestClusterer().Cluster(signals)

	assert.Equal(t, first, second)
	assert.Equal(t, ClusterID([]string{"b", "a"}), first.Clusters[0].ID)
}

func TestExtractProjectInfo_ModeWithFirstOccurrenceTies(t *testing.T) {
	members := []domain.EmailSignal{
		{ProjectName: "Byron WWTP", GeneralContractor: "Granite"},
		{ProjectName: "Byron Plant", GeneralContractor: "Teichert", Engineer: "Carollo"},
		{ProjectName: "Byron Plant", GeneralContractor: ""},
		{ProjectName: "", Architect: "  "},
	}

	info := ExtractProjectInfo(members)

	assert.Equal(t, "Byron Plant", info.ProjectName)
	assert.Equal(t, "Granite", info.GeneralContractor)
	assert.Equal(t, "Carollo", info.Engineer)
	assert.Empty(t, info.Architect)
	assert.Empty(t, info.ProjectAddress)
}

func TestClusterName(t *testing.T) {
	longSubject := "RE: " + strings.Repeat("x", 60)

	tests := []struct {
		name    string
		info    domain.ProjectInfo
		members []domain.EmailSignal
		want    string
	}{
		{"project name", domain.ProjectInfo{ProjectName: "Byron WWTP", ProjectAddress: "1 Main"}, nil, "Byron WWTP"},
		{"address", domain.ProjectInfo{ProjectAddress: "1 Main St", GeneralContractor: "Granite"}, nil, "Project at 1 Main St"},
		{"general contractor", domain.ProjectInfo{GeneralContractor: "Granite"}, nil, "Granite Project"},
		{"subject", domain.ProjectInfo{}, []domain.EmailSignal{{Subject: "Fwd: Pump Station 4"}}, "Pump Station 4"},
		{"long subject", domain.ProjectInfo{}, []domain.EmailSignal{{Subject: longSubject}}, strings.Repeat("x", 50) + "..."},
		{"empty subject", domain.ProjectInfo{}, []domain.EmailSignal{{Subject: "RE:"}}, "Unknown Project"},
		{"nothing", domain.ProjectInfo{}, nil, "Unknown Project"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClusterName(tt.info, tt.members))
		})
	}
}

func TestConfidence(t *testing.T) {
	cfg := domain.DefaultClusteringConfig()

	assert.Equal(t, 1.0, Confidence(nil, cfg))
	assert.Equal(t, 1.0, Confidence([]domain.EmailSignal{{EmailID: "a"}}, cfg))

	members := []domain.EmailSignal{
		{EmailID: "a", ThreadID: "t"},
		{EmailID: "b", ThreadID: "t"},
		{EmailID: "c", ProjectAddress: "Somewhere else"},
	}
	assert.Equal(t, 0.33, Confidence(members, cfg))
}
