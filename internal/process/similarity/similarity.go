// Package similarity scores how likely two bid emails are to concern the same project.
//
// Each email is reduced to six weighted signals (subject, project name,
// address, general contractor, engineer, architect). A signal is comparable
// when at least one side has a value after normalization; the overall score is
// the weighted mean over comparable signals only.
package similarity

import (
	"sort"

	"github.com/mrhoo2/email-bdc-agent/internal/core/domain"
)

// SignalName identifies one field-level comparison.
type SignalName string

// Signal names.
const (
	SignalSubject     SignalName = "subject"
	SignalProjectName SignalName = "projectName"
	SignalAddress     SignalName = "address"
	SignalGC          SignalName = "gc"
	SignalEngineer    SignalName = "engineer"
	SignalArchitect   SignalName = "architect"
)

// Signal is one weighted comparison between two emails.
type Signal struct {
	Name       SignalName `json:"name"`
	Weight     float64    `json:"weight"`
	Value1     string     `json:"value1"`
	Value2     string     `json:"value2"`
	Score      float64    `json:"score"`
	Comparable bool       `json:"comparable"`
}

// EmailSimilarity is the scored comparison of two emails.
type EmailSimilarity struct {
	EmailID1     string   `json:"email_id1"`
	EmailID2     string   `json:"email_id2"`
	Signals      []Signal `json:"signals"`
	OverallScore float64  `json:"overall_score"`
}

// FieldScore compares two raw field values.
// It returns the score and whether the field is comparable at all.
func FieldScore(a, b string) (float64, bool) {
	na, nb := Normalize(a), Normalize(b)

	switch {
	case na == "" && nb == "":
		return 0, false
	case na == "" || nb == "":
		return 0, true
	case na == nb:
		return 1, true
	default:
		return DiceCoefficient(na, nb), true
	}
}

// CalculateEmailSimilarity scores a against b. The score is symmetric; the
// result carries a's ID as EmailID1.
func CalculateEmailSimilarity(a, b domain.EmailSignal, weights domain.SignalWeights) EmailSimilarity {
	fields := []struct {
		name   SignalName
		weight float64
		v1, v2 string
	}{
		{SignalSubject, weights.Subject, a.Subject, b.Subject},
		{SignalProjectName, weights.ProjectName, a.ProjectName, b.ProjectName},
		{SignalAddress, weights.Address, a.ProjectAddress, b.ProjectAddress},
		{SignalGC, weights.GC, a.GeneralContractor, b.GeneralContractor},
		{SignalEngineer, weights.Engineer, a.Engineer, b.Engineer},
		{SignalArchitect, weights.Architect, a.Architect, b.Architect},
	}

	signals := make([]Signal, 0, len(fields))

	var weighted, totalWeight float64

	for _, f := range fields {
		score, comparable := FieldScore(f.v1, f.v2)
		signals = append(signals, Signal{
			Name:       f.name,
			Weight:     f.weight,
			Value1:     f.v1,
			Value2:     f.v2,
			Score:      score,
			Comparable: comparable,
		})

		if !comparable || f.weight <= 0 {
			continue
		}

		weighted += score * f.weight
		totalWeight += f.weight
	}

	overall := 0.0
	if totalWeight > 0 {
		overall = weighted / totalWeight
	}

	return EmailSimilarity{
		EmailID1:     a.EmailID,
		EmailID2:     b.EmailID,
		Signals:      signals,
		OverallScore: overall,
	}
}

// FindSimilarEmails compares target with every candidate (skipping target
// itself) and returns the pairs at or above the threshold, best first.
func FindSimilarEmails(target domain.EmailSignal, candidates []domain.EmailSignal, cfg domain.ClusteringConfig) []EmailSimilarity {
	results := make([]EmailSimilarity, 0)

	for _, candidate := range candidates {
		if candidate.EmailID == target.EmailID {
			continue
		}

		sim := CalculateEmailSimilarity(target, candidate, cfg.SignalWeights)
		if sim.OverallScore >= cfg.SimilarityThreshold {
			results = append(results, sim)
		}
	}

	sortByScore(results)

	return results
}

// CalculateSimilarityMatrix scores every unordered pair of signals and returns
// the pairs at or above the threshold, best first.
func CalculateSimilarityMatrix(signals []domain.EmailSignal, cfg domain.ClusteringConfig) []EmailSimilarity {
	results := make([]EmailSimilarity, 0)

	for i := range signals {
		for j := i + 1; j < len(signals); j++ {
			sim := CalculateEmailSimilarity(signals[i], signals[j], cfg.SignalWeights)
			if sim.OverallScore >= cfg.SimilarityThreshold {
				results = append(results, sim)
			}
		}
	}

	sortByScore(results)

	return results
}

// AreSameProject reports whether two emails belong to the same project.
// A shared thread always wins; otherwise the similarity threshold decides.
func AreSameProject(a, b domain.EmailSignal, cfg domain.ClusteringConfig) bool {
	if a.ThreadID != "" && a.ThreadID == b.ThreadID {
		return true
	}

	return CalculateEmailSimilarity(a, b, cfg.SignalWeights).OverallScore >= cfg.SimilarityThreshold
}

func sortByScore(results []EmailSimilarity) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].OverallScore > results[j].OverallScore
	})
}
