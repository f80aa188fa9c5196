package bids

import (
	"sort"

	"github.com/mrhoo2/email-bdc-agent/internal/core/domain"
)

// GroupBidsByDate buckets bids by their DateGroup. Groups appear in priority
// order and only when non-empty; within a group bids are sorted by earliest
// due date with undated bids last. totalEmails is reported as-is in the summary.
func (b *Builder) GroupBidsByDate(bids []domain.BidItem, totalEmails int) domain.GroupedBidList {
	buckets := make(map[domain.DateGroup][]domain.BidItem, len(domain.DateGroupOrder))

	for _, bid := range bids {
		group := bid.DateGroup
		if group.Priority() >= len(domain.DateGroupOrder) {
			group = domain.DateGroupNoDate
		}

		buckets[group] = append(buckets[group], bid)
	}

	list := domain.GroupedBidList{
		Groups: make([]domain.BidGroup, 0, len(buckets)),
		Summary: domain.BidSummary{
			TotalBids:   len(bids),
			TotalEmails: totalEmails,
		},
		GeneratedAt: b.clock(),
	}

	for _, group := range domain.DateGroupOrder {
		items := buckets[group]
		if len(items) == 0 {
			continue
		}

		sortByDueDate(items)

		list.Groups = append(list.Groups, domain.BidGroup{
			DateGroup: group,
			Label:     group.Label(),
			Bids:      items,
			Count:     len(items),
		})

		switch group {
		case domain.DateGroupOverdue:
			list.Summary.OverdueCount = len(items)
		case domain.DateGroupToday:
			list.Summary.TodayCount = len(items)
		case domain.DateGroupNoDate:
			continue
		}

		if group != domain.DateGroupOverdue {
			list.Summary.UpcomingCount += len(items)
		}
	}

	b.logger.Debug().
		Int(logFieldBids, len(bids)).
		Int(logFieldGroups, len(list.Groups)).
		Msg("Grouped bids by date")

	return list
}

// GroupBidsByDate groups with the default Builder.
func GroupBidsByDate(bids []domain.BidItem, totalEmails int) domain.GroupedBidList {
	return NewBuilder().GroupBidsByDate(bids, totalEmails)
}

func sortByDueDate(items []domain.BidItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].EarliestDueDate, items[j].EarliestDueDate

		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
}
