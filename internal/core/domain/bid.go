package domain

import "time"

// DateGroup is the display bucket a due date falls into relative to now.
type DateGroup string

// Date groups in display and priority order.
const (
	DateGroupOverdue  DateGroup = "overdue"
	DateGroupToday    DateGroup = "today"
	DateGroupTomorrow DateGroup = "tomorrow"
	DateGroupThisWeek DateGroup = "this_week"
	DateGroupNextWeek DateGroup = "next_week"
	DateGroupLater    DateGroup = "later"
	DateGroupNoDate   DateGroup = "no_date"
)

// DateGroupOrder lists every date group in priority order.
var DateGroupOrder = []DateGroup{
	DateGroupOverdue,
	DateGroupToday,
	DateGroupTomorrow,
	DateGroupThisWeek,
	DateGroupNextWeek,
	DateGroupLater,
	DateGroupNoDate,
}

var dateGroupLabels = map[DateGroup]string{
	DateGroupOverdue:  "Overdue",
	DateGroupToday:    "Due Today",
	DateGroupTomorrow: "Due Tomorrow",
	DateGroupThisWeek: "This Week",
	DateGroupNextWeek: "Next Week",
	DateGroupLater:    "Later",
	DateGroupNoDate:   "No Due Date",
}

// Priority returns the position of g in DateGroupOrder.
// Unknown groups sort after no_date.
func (g DateGroup) Priority() int {
	for i, candidate := range DateGroupOrder {
		if candidate == g {
			return i
		}
	}

	return len(DateGroupOrder)
}

// Label returns the display label for g.
func (g DateGroup) Label() string {
	if label, ok := dateGroupLabels[g]; ok {
		return label
	}

	return string(g)
}

// BidStatus tracks the handling state of a bid.
type BidStatus string

// Bid status constants.
const (
	BidStatusPending  BidStatus = "pending"
	BidStatusReviewed BidStatus = "reviewed"
	BidStatusQuoted   BidStatus = "quoted"
	BidStatusDeclined BidStatus = "declined"
)

// Purchaser is one contractor's request for a quote.
type Purchaser struct {
	CompanyName  string          `json:"company_name"`
	ContactName  string          `json:"contact_name,omitempty"`
	ContactEmail string          `json:"contact_email,omitempty"`
	ContactPhone string          `json:"contact_phone,omitempty"`
	DueDate      *time.Time      `json:"due_date,omitempty"`
	DueTime      string          `json:"due_time,omitempty"`
	EmailID      string          `json:"email_id"`
	Source       PurchaserSource `json:"source"`
	DateGroup    DateGroup       `json:"date_group"`
}

// BidItem is the project-centric display unit.
type BidItem struct {
	ID                string       `json:"id"`
	ClusterID         string       `json:"cluster_id,omitempty"`
	ProjectName       string       `json:"project_name,omitempty"`
	ProjectAddress    string       `json:"project_address,omitempty"`
	GeneralContractor string       `json:"general_contractor,omitempty"`
	Engineer          string       `json:"engineer,omitempty"`
	Architect         string       `json:"architect,omitempty"`
	Purchasers        []Purchaser  `json:"purchasers"`
	SellerName        string       `json:"seller_name,omitempty"`
	SellerEmail       string       `json:"seller_email,omitempty"`
	EarliestDueDate   *time.Time   `json:"earliest_due_date,omitempty"`
	EarliestDueTime   string       `json:"earliest_due_time,omitempty"`
	EmailIDs          []string     `json:"email_ids"`
	Emails            []Email      `json:"emails"`
	Extractions       []Extraction `json:"extractions"`
	DateGroup         DateGroup    `json:"date_group"`
	Status            BidStatus    `json:"status"`
}

// BidGroup holds the bids that share a date group.
type BidGroup struct {
	DateGroup DateGroup `json:"date_group"`
	Label     string    `json:"label"`
	Bids      []BidItem `json:"bids"`
	Count     int       `json:"count"`
}

// BidSummary carries the counters shown above a grouped bid list.
type BidSummary struct {
	TotalBids     int `json:"total_bids"`
	TotalEmails   int `json:"total_emails"`
	OverdueCount  int `json:"overdue_count"`
	TodayCount    int `json:"today_count"`
	UpcomingCount int `json:"upcoming_count"`
}

// GroupedBidList is the date-grouped bid list.
type GroupedBidList struct {
	Groups      []BidGroup `json:"groups"`
	Summary     BidSummary `json:"summary"`
	GeneratedAt time.Time  `json:"generated_at"`
}
