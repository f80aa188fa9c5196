package bids

import (
	"strings"
	"time"

	"github.com/mrhoo2/email-bdc-agent/internal/core/domain"
)

// MergeBidsByCluster collapses bids sharing a ClusterID into one project-level
// bid. Cluster-derived bids come first, in order of each cluster's first
// appearance; bids without a cluster follow in input order. The input is not
// modified.
func (b *Builder) MergeBidsByCluster(bids []domain.BidItem) []domain.BidItem {
	now := b.clock()

	var (
		order      []string
		byCluster  = make(map[string][]domain.BidItem)
		unassigned []domain.BidItem
	)

	for _, bid := range bids {
		if bid.ClusterID == "" {
			unassigned = append(unassigned, bid)
			continue
		}

		if _, ok := byCluster[bid.ClusterID]; !ok {
			order = append(order, bid.ClusterID)
		}

		byCluster[bid.ClusterID] = append(byCluster[bid.ClusterID], bid)
	}

	out := make([]domain.BidItem, 0, len(order)+len(unassigned))
	merged := 0

	for _, clusterID := range order {
		group := byCluster[clusterID]
		if len(group) == 1 {
			out = append(out, group[0])
			continue
		}

		out = append(out, mergeGroup(clusterID, group, now))
		merged++
	}

	out = append(out, unassigned...)

	b.logger.Debug().
		Int(logFieldBids, len(bids)).
		Int(logFieldClusters, len(order)).
		Int(logFieldMerged, merged).
		Msg("Merged bids by cluster")

	return out
}

// MergeBidsByCluster merges with the default Builder.
func MergeBidsByCluster(bids []domain.BidItem) []domain.BidItem {
	return NewBuilder().MergeBidsByCluster(bids)
}

func mergeGroup(clusterID string, group []domain.BidItem, now time.Time) domain.BidItem {
	first := group[0]

	merged := domain.BidItem{
		ID:                clusterID,
		ClusterID:         clusterID,
		ProjectName:       first.ProjectName,
		ProjectAddress:    first.ProjectAddress,
		GeneralContractor: first.GeneralContractor,
		Engineer:          first.Engineer,
		Architect:         first.Architect,
		Purchasers:        make([]domain.Purchaser, 0, len(group)),
		EmailIDs:          make([]string, 0, len(group)),
		Emails:            make([]domain.Email, 0, len(group)),
		Extractions:       make([]domain.Extraction, 0, len(group)),
		Status:            domain.BidStatusPending,
	}

	seenPurchaser := make(map[string]bool)
	seenEmail := make(map[string]bool)

	for _, bid := range group {
		for _, p := range bid.Purchasers {
			key := PurchaserKey(p.CompanyName)
			if seenPurchaser[key] {
				continue
			}

			seenPurchaser[key] = true
			merged.Purchasers = append(merged.Purchasers, p)
		}

		if merged.SellerName == "" {
			merged.SellerName = bid.SellerName
		}

		if merged.SellerEmail == "" {
			merged.SellerEmail = bid.SellerEmail
		}

		for _, id := range bid.EmailIDs {
			if seenEmail[id] {
				continue
			}

			seenEmail[id] = true
			merged.EmailIDs = append(merged.EmailIDs, id)
		}

		// Emails and extractions keep their multiplicity, unlike EmailIDs.
		merged.Emails = append(merged.Emails, bid.Emails...)
		merged.Extractions = append(merged.Extractions, bid.Extractions...)
	}

	merged.EarliestDueDate, merged.EarliestDueTime = earliestDue(merged.Purchasers)
	merged.DateGroup = DateGroupAt(merged.EarliestDueDate, now)

	return merged
}

// PurchaserKey is the dedup key for purchaser company names.
func PurchaserKey(companyName string) string {
	return strings.ToLower(strings.TrimSpace(companyName))
}

// earliestDue returns the minimum purchaser due date and the time of the first
// purchaser holding it.
func earliestDue(purchasers []domain.Purchaser) (*time.Time, string) {
	var (
		earliest *time.Time
		dueTime  string
	)

	for _, p := range purchasers {
		if p.DueDate == nil {
			continue
		}

		if earliest == nil || p.DueDate.Before(*earliest) {
			d := *p.DueDate
			earliest = &d
			dueTime = p.DueTime
		}
	}

	return earliest, dueTime
}
