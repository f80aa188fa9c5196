package bids

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mrhoo2/email-bdc-agent/internal/core/domain"
)

const (
	unknownProject = "Unknown Project"
	noPurchaser    = "No purchaser identified"
	noDueDate      = "no due date"
)

// RenderJSON writes list as indented JSON.
func RenderJSON(w io.Writer, list domain.GroupedBidList) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(list); err != nil {
		return fmt.Errorf("encode bid list: %w", err)
	}

	return nil
}

// RenderText writes a plain-text report of list.
func RenderText(w io.Writer, list domain.GroupedBidList) error {
	var sb strings.Builder

	s := list.Summary
	fmt.Fprintf(&sb, "Bids: %d  Emails: %d  Overdue: %d  Today: %d  Upcoming: %d\n",
		s.TotalBids, s.TotalEmails, s.OverdueCount, s.TodayCount, s.UpcomingCount)

	for _, g := range list.Groups {
		fmt.Fprintf(&sb, "\n== %s (%d) ==\n", g.Label, g.Count)

		for _, bid := range g.Bids {
			writeBid(&sb, bid)
		}
	}

	if _, err := io.WriteString(w, sb.String()); err != nil {
		return fmt.Errorf("write bid report: %w", err)
	}

	return nil
}

func writeBid(sb *strings.Builder, bid domain.BidItem) {
	name := bid.ProjectName
	if name == "" {
		name = unknownProject
	}

	fmt.Fprintf(sb, "- %s [%s]\n", name, formatDue(bid.EarliestDueDate, bid.EarliestDueTime))

	if bid.ProjectAddress != "" {
		fmt.Fprintf(sb, "    Address: %s\n", bid.ProjectAddress)
	}

	if bid.GeneralContractor != "" {
		fmt.Fprintf(sb, "    GC: %s\n", bid.GeneralContractor)
	}

	if len(bid.Purchasers) == 0 {
		fmt.Fprintf(sb, "    %s\n", noPurchaser)
	}

	for _, p := range bid.Purchasers {
		fmt.Fprintf(sb, "    Purchaser: %s", p.CompanyName)

		if p.ContactName != "" {
			fmt.Fprintf(sb, " (%s)", p.ContactName)
		}

		fmt.Fprintf(sb, " due %s\n", formatDue(p.DueDate, p.DueTime))
	}

	if bid.SellerName != "" || bid.SellerEmail != "" {
		fmt.Fprintf(sb, "    Seller: %s <%s>\n", bid.SellerName, bid.SellerEmail)
	}

	fmt.Fprintf(sb, "    Emails: %d\n", len(bid.EmailIDs))
}

func formatDue(date *time.Time, dueTime string) string {
	if date == nil {
		return noDueDate
	}

	out := date.Format(domain.DueDateLayout)
	if dueTime != "" {
		out += " " + dueTime
	}

	return out
}
