package clustering

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/mrhoo2/email-bdc-agent/internal/core/domain"
	"github.com/mrhoo2/email-bdc-agent/internal/process/similarity"
)

const (
	unknownProjectName = "Unknown Project"
	projectAtPrefix    = "Project at "
	projectSuffix      = " Project"
	maxSubjectNameLen  = 50
	ellipsis           = "..."
)

// ExtractProjectInfo picks the canonical value of every project field across
// the members: the most frequent non-empty value, ties going to the value seen first.
func ExtractProjectInfo(members []domain.EmailSignal) domain.ProjectInfo {
	pick := func(get func(domain.EmailSignal) string) string {
		values := make([]string, 0, len(members))
		for _, m := range members {
			values = append(values, get(m))
		}

		return mostFrequent(values)
	}

	return domain.ProjectInfo{
		ProjectName:       pick(func(s domain.EmailSignal) string { return s.ProjectName }),
		ProjectAddress:    pick(func(s domain.EmailSignal) string { return s.ProjectAddress }),
		GeneralContractor: pick(func(s domain.EmailSignal) string { return s.GeneralContractor }),
		Engineer:          pick(func(s domain.EmailSignal) string { return s.Engineer }),
		Architect:         pick(func(s domain.EmailSignal) string { return s.Architect }),
	}
}

func mostFrequent(values []string) string {
	counts := make(map[string]int, len(values))
	best, bestCount := "", 0

	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}

		counts[v]++
	}

	// Walk in input order so the first value to reach the top count wins ties.
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}

		if counts[v] > bestCount {
			best, bestCount = v, counts[v]
		}
	}

	return best
}

// ClusterName derives a display name for a cluster.
func ClusterName(info domain.ProjectInfo, members []domain.EmailSignal) string {
	switch {
	case info.ProjectName != "":
		return info.ProjectName
	case info.ProjectAddress != "":
		return projectAtPrefix + info.ProjectAddress
	case info.GeneralContractor != "":
		return info.GeneralContractor + projectSuffix
	}

	if len(members) > 0 {
		if subject := similarity.StripReplyPrefix(members[0].Subject); subject != "" {
			return truncateSubject(subject)
		}
	}

	return unknownProjectName
}

func truncateSubject(s string) string {
	if utf8.RuneCountInString(s) <= maxSubjectNameLen {
		return s
	}

	return string([]rune(s)[:maxSubjectNameLen]) + ellipsis
}

// Confidence is the share of member pairs that look like the same project,
// rounded to two decimals. Clusters with fewer than two members score 1.
func Confidence(members []domain.EmailSignal, cfg domain.ClusteringConfig) float64 {
	if len(members) < 2 {
		return 1
	}

	var pairs, matched int

	for i := range members {
		for j := i + 1; j < len(members); j++ {
			pairs++

			if similarity.AreSameProject(members[i], members[j], cfg) {
				matched++
			}
		}
	}

	if pairs == 0 {
		return 1
	}

	return math.Round(float64(matched)/float64(pairs)*100) / 100
}
