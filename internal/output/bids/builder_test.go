package bids

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrhoo2/email-bdc-agent/internal/core/domain"
)

func newTestBuilder() *Builder {
	return NewBuilder(
		WithClock(func() time.Time { return testNow }),
		WithLocation(time.UTC),
	)
}

func extraction(emailID, company, due, dueTime string) domain.Extraction {
	ext := domain.Extraction{EmailID: emailID}

	if company != "" {
		ext.Purchaser = &domain.PurchaserIdentity{CompanyName: company, Source: domain.SourceSignature, Confidence: 0.9}
	}

	if due != "" {
		ext.BidDueDates = []domain.BidDueDate{{Date: due, Time: dueTime, Source: domain.DueDateExplicit, Confidence: 0.9}}
	}

	return ext
}

func TestCreateGroupedBidList_ClusterScenario(t *testing.T) {
	emails := []domain.Email{
		{ID: "e1", ThreadID: "t1", Subject: "Byron WWTP - bid request"},
		{ID: "e2", ThreadID: "t1", Subject: "RE: Byron WWTP - bid request"},
	}
	extractions := []domain.Extraction{
		extraction("e1", "Bay Mechanical", "2026-10-20", "2:00 PM"),
		extraction("e2", "ABC Mechanical", "2026-10-16", "10:00 AM"),
	}
	clusters := []domain.ProjectCluster{{
		ID:       "c1",
		Project:  domain.ProjectInfo{ProjectName: "Byron WWTP"},
		EmailIDs: []string{"e1", "e2"},
	}}

	list := newTestBuilder().CreateGroupedBidList(extractions, emails, clusters)

	require.Len(t, list.Groups, 1)
	require.Len(t, list.Groups[0].Bids, 1)

	bid := list.Groups[0].Bids[0]
	assert.Equal(t, "c1", bid.ID)
	assert.Equal(t, "Byron WWTP", bid.ProjectName)
	require.Len(t, bid.Purchasers, 2)
	assert.Equal(t, "Bay Mechanical", bid.Purchasers[0].CompanyName)
	assert.Equal(t, "ABC Mechanical", bid.Purchasers[1].CompanyName)
	assert.Equal(t, domain.DateGroupNextWeek, bid.Purchasers[0].DateGroup)
	assert.Equal(t, domain.DateGroupTomorrow, bid.Purchasers[1].DateGroup)

	require.NotNil(t, bid.EarliestDueDate)
	assert.True(t, bid.EarliestDueDate.Equal(*day(2026, 10, 16)))
	assert.Equal(t, "10:00 AM", bid.EarliestDueTime)
	assert.Equal(t, domain.DateGroupTomorrow, bid.DateGroup)
	assert.Equal(t, []string{"e1", "e2"}, bid.EmailIDs)
	assert.Len(t, bid.Emails, 2)

	assert.Equal(t, domain.BidSummary{TotalBids: 1, TotalEmails: 2, UpcomingCount: 1}, list.Summary)
	assert.Equal(t, testNow, list.GeneratedAt)
}

func TestCreateGroupedBidList_NilClustersSkipsMerge(t *testing.T) {
	emails := []domain.Email{{ID: "e1"}, {ID: "e2"}, {ID: "e2"}}
	extractions := []domain.Extraction{
		extraction("e1", "Bay Mechanical", "2026-10-14", ""),
		extraction("e2", "ABC Mechanical", "", ""),
	}

	list := newTestBuilder().CreateGroupedBidList(extractions, emails, nil)

	assert.Equal(t, 2, list.Summary.TotalBids)
	assert.Equal(t, 2, list.Summary.TotalEmails)
	assert.Equal(t, 1, list.Summary.OverdueCount)
	assert.Equal(t, 0, list.Summary.UpcomingCount)

	require.Len(t, list.Groups, 2)
	assert.Equal(t, domain.DateGroupOverdue, list.Groups[0].DateGroup)
	assert.Equal(t, "e1", list.Groups[0].Bids[0].ID)
	assert.Equal(t, domain.DateGroupNoDate, list.Groups[1].DateGroup)
	assert.Equal(t, "e2", list.Groups[1].Bids[0].ID)
}

func TestBuildBidItems(t *testing.T) {
	ext := extraction("e1", "Bay Mechanical", "2026-10-17", "5 PM")
	ext.BidDueDates = append(ext.BidDueDates, domain.BidDueDate{Date: "2026-10-15"})
	ext.Project = &domain.ProjectSignals{ProjectName: "Byron Plant", Engineer: "Carollo"}
	ext.Seller = &domain.Seller{Name: "Acme Valves", Email: "sales@example.com"}

	clusters := []domain.ProjectCluster{{
		ID:       "c1",
		Project:  domain.ProjectInfo{ProjectName: "Byron WWTP", GeneralContractor: "Granite"},
		EmailIDs: []string{"e1"},
	}}

	items := newTestBuilder().BuildBidItems([]domain.Extraction{ext}, []domain.Email{{ID: "e1"}}, clusters)

	require.Len(t, items, 1)

	bid := items[0]
	assert.Equal(t, "e1", bid.ID)
	assert.Equal(t, "c1", bid.ClusterID)
	assert.Equal(t, "Byron WWTP", bid.ProjectName, "cluster value preferred")
	assert.Equal(t, "Granite", bid.GeneralContractor)
	assert.Equal(t, "Carollo", bid.Engineer, "falls back to extraction")
	assert.Equal(t, "Acme Valves", bid.SellerName)
	assert.Equal(t, "sales@example.com", bid.SellerEmail)
	assert.Equal(t, domain.BidStatusPending, bid.Status)

	// Only the first due date is used even though a later entry is earlier.
	require.Len(t, bid.Purchasers, 1)
	assert.True(t, bid.Purchasers[0].DueDate.Equal(*day(2026, 10, 17)))
	assert.Equal(t, "5 PM", bid.EarliestDueTime)
	assert.Equal(t, domain.DateGroupThisWeek, bid.DateGroup)
}

func TestBuildBidItems_Degrades(t *testing.T) {
	tests := []struct {
		name string
		ext  domain.Extraction
		want domain.DateGroup
	}{
		{"no purchaser keeps no date", extraction("e1", "", "2026-10-16", ""), domain.DateGroupNoDate},
		{"unparseable date", extraction("e1", "Bay Mechanical", "TBD", "noon"), domain.DateGroupNoDate},
		{"no due dates", extraction("e1", "Bay Mechanical", "", ""), domain.DateGroupNoDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := newTestBuilder().BuildBidItems([]domain.Extraction{tt.ext}, nil, nil)

			require.Len(t, items, 1)
			assert.Equal(t, tt.want, items[0].DateGroup)
			assert.Nil(t, items[0].EarliestDueDate)
			assert.Empty(t, items[0].EarliestDueTime)
			assert.Empty(t, items[0].Emails)
			assert.Empty(t, items[0].ClusterID)
		})
	}
}

func TestBuildBidItems_ValidatedFirstDueDate(t *testing.T) {
	tests := []struct {
		name    string
		dates   []domain.BidDueDate
		wantDue *time.Time
		want    domain.DateGroup
	}{
		{
			name:    "bad source on first entry keeps its date",
			dates:   []domain.BidDueDate{{Date: "2026-10-30", Source: "stated"}, {Date: "2026-10-16"}},
			wantDue: day(2026, 10, 30),
			want:    domain.DateGroupLater,
		},
		{
			name:  "unparseable first entry means no date",
			dates: []domain.BidDueDate{{Date: "TBD"}, {Date: "2026-10-16"}},
			want:  domain.DateGroupNoDate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext := extraction("e1", "Bay Mechanical", "", "")
			ext.BidDueDates = tt.dates

			ext, err := domain.ValidateExtraction(ext)
			require.Error(t, err)

			items := newTestBuilder().BuildBidItems([]domain.Extraction{ext}, nil, nil)
			require.Len(t, items, 1)
			require.Len(t, items[0].Purchasers, 1)

			purchaser := items[0].Purchasers[0]
			assert.Equal(t, tt.want, purchaser.DateGroup)
			assert.Equal(t, tt.want, items[0].DateGroup)

			if tt.wantDue == nil {
				assert.Nil(t, purchaser.DueDate)
				return
			}

			require.NotNil(t, purchaser.DueDate)
			assert.True(t, purchaser.DueDate.Equal(*tt.wantDue))
		})
	}
}

func bidInCluster(id, clusterID string, purchasers ...domain.Purchaser) domain.BidItem {
	return domain.BidItem{
		ID:          id,
		ClusterID:   clusterID,
		Purchasers:  purchasers,
		EmailIDs:    []string{id},
		Emails:      []domain.Email{{ID: id}},
		Extractions: []domain.Extraction{{EmailID: id}},
		DateGroup:   domain.DateGroupNoDate,
		Status:      domain.BidStatusPending,
	}
}

func TestMergeBidsByCluster_DedupPurchasers(t *testing.T) {
	bids := []domain.BidItem{
		bidInCluster("e1", "c1", domain.Purchaser{CompanyName: "Bay Mechanical", EmailID: "e1"}),
		bidInCluster("e2", "c1", domain.Purchaser{CompanyName: "bay mechanical ", ContactName: "Dana", EmailID: "e2"}),
	}

	merged := newTestBuilder().MergeBidsByCluster(bids)

	require.Len(t, merged, 1)
	require.Len(t, merged[0].Purchasers, 1)
	assert.Equal(t, "Bay Mechanical", merged[0].Purchasers[0].CompanyName)
	assert.Empty(t, merged[0].Purchasers[0].ContactName, "later duplicate dropped entirely")
}

func TestMergeBidsByCluster_EmailMultiplicity(t *testing.T) {
	// Two constituents carrying the same email.
	bids := []domain.BidItem{
		bidInCluster("e1", "c1"),
		bidInCluster("e1", "c1"),
	}

	merged := newTestBuilder().MergeBidsByCluster(bids)

	require.Len(t, merged, 1)
	assert.Equal(t, []string{"e1"}, merged[0].EmailIDs)
	assert.Len(t, merged[0].Emails, 2)
	assert.Len(t, merged[0].Extractions, 2)
}

func TestMergeBidsByCluster_Ordering(t *testing.T) {
	bids := []domain.BidItem{
		bidInCluster("u1", ""),
		bidInCluster("a1", "ca"),
		bidInCluster("s1", "cs"),
		bidInCluster("a2", "ca"),
		bidInCluster("u2", ""),
	}

	merged := newTestBuilder().MergeBidsByCluster(bids)

	ids := make([]string, len(merged))
	for i, b := range merged {
		ids[i] = b.ID
	}

	assert.Equal(t, []string{"ca", "s1", "u1", "u2"}, ids)
	assert.Equal(t, bids[2], merged[1], "singleton passes through unchanged")
	assert.Equal(t, []string{"a1", "a2"}, merged[0].EmailIDs)
}

func TestMergeBidsByCluster_EarliestAndSeller(t *testing.T) {
	a := bidInCluster("e1", "c1",
		domain.Purchaser{CompanyName: "Late Co", DueDate: day(2026, 10, 30), DueTime: "9 AM"},
		domain.Purchaser{CompanyName: "Tie One", DueDate: day(2026, 10, 16), DueTime: "11 AM"},
	)
	a.SellerEmail = "first@example.com"
	a.DateGroup = domain.DateGroupOverdue

	b := bidInCluster("e2", "c1",
		domain.Purchaser{CompanyName: "Tie Two", DueDate: day(2026, 10, 16), DueTime: "8 AM"},
		domain.Purchaser{CompanyName: "Undated"},
	)
	b.SellerName = "Acme Valves"
	b.SellerEmail = "second@example.com"

	merged := newTestBuilder().MergeBidsByCluster([]domain.BidItem{a, b})

	require.Len(t, merged, 1)

	got := merged[0]
	assert.Equal(t, "c1", got.ID)
	assert.Len(t, got.Purchasers, 4)
	require.NotNil(t, got.EarliestDueDate)
	assert.True(t, got.EarliestDueDate.Equal(*day(2026, 10, 16)))
	assert.Equal(t, "11 AM", got.EarliestDueTime, "first purchaser holding the minimum wins")
	assert.Equal(t, domain.DateGroupTomorrow, got.DateGroup, "recomputed, not inherited")
	assert.Equal(t, "Acme Valves", got.SellerName)
	assert.Equal(t, "first@example.com", got.SellerEmail)
}

func TestMergeBidsByCluster_NoDates(t *testing.T) {
	merged := newTestBuilder().MergeBidsByCluster([]domain.BidItem{
		bidInCluster("e1", "c1", domain.Purchaser{CompanyName: "A"}),
		bidInCluster("e2", "c1"),
	})

	require.Len(t, merged, 1)
	assert.Nil(t, merged[0].EarliestDueDate)
	assert.Equal(t, domain.DateGroupNoDate, merged[0].DateGroup)
}

func datedBid(id string, group domain.DateGroup, due *time.Time) domain.BidItem {
	return domain.BidItem{ID: id, DateGroup: group, EarliestDueDate: due}
}

func TestGroupBidsByDate(t *testing.T) {
	bids := []domain.BidItem{
		datedBid("n1", domain.DateGroupNoDate, nil),
		datedBid("l2", domain.DateGroupLater, day(2026, 12, 1)),
		datedBid("l0", domain.DateGroupLater, nil),
		datedBid("l1", domain.DateGroupLater, day(2026, 11, 2)),
		datedBid("o1", domain.DateGroupOverdue, day(2026, 10, 1)),
		datedBid("t1", domain.DateGroupToday, day(2026, 10, 15)),
		datedBid("x1", domain.DateGroup("mystery"), nil),
	}

	list := newTestBuilder().GroupBidsByDate(bids, 9)

	groupIDs := make(map[domain.DateGroup][]string)

	var order []domain.DateGroup

	total := 0

	for _, g := range list.Groups {
		order = append(order, g.DateGroup)
		assert.Equal(t, len(g.Bids), g.Count)
		assert.Equal(t, g.DateGroup.Label(), g.Label)

		total += g.Count

		for _, b := range g.Bids {
			groupIDs[g.DateGroup] = append(groupIDs[g.DateGroup], b.ID)
		}
	}

	assert.Equal(t, []domain.DateGroup{
		domain.DateGroupOverdue, domain.DateGroupToday, domain.DateGroupLater, domain.DateGroupNoDate,
	}, order)
	assert.Equal(t, len(bids), total)
	assert.Equal(t, []string{"l1", "l2", "l0"}, groupIDs[domain.DateGroupLater])
	assert.Equal(t, []string{"n1", "x1"}, groupIDs[domain.DateGroupNoDate])

	assert.Equal(t, domain.BidSummary{
		TotalBids:     7,
		TotalEmails:   9,
		OverdueCount:  1,
		TodayCount:    1,
		UpcomingCount: 4,
	}, list.Summary)

	assert.Equal(t, "l2", bids[1].ID, "input order untouched")
}

func TestGroupBidsByDate_Empty(t *testing.T) {
	list := newTestBuilder().GroupBidsByDate(nil, 0)

	require.NotNil(t, list.Groups)
	assert.Empty(t, list.Groups)
	assert.Equal(t, domain.BidSummary{}, list.Summary)
}

func TestGroupAfterMerge_Idempotent(t *testing.T) {
	bids := []domain.BidItem{
		bidInCluster("e1", "c1", domain.Purchaser{CompanyName: "A", DueDate: day(2026, 10, 20)}),
		bidInCluster("e2", "c1", domain.Purchaser{CompanyName: "B", DueDate: day(2026, 10, 1)}),
		bidInCluster("e3", ""),
		bidInCluster("e4", "c2"),
	}

	b := newTestBuilder()
	first := b.GroupBidsByDate(b.MergeBidsByCluster(bids), 4)
	second := b.GroupBidsByDate(b.MergeBidsByCluster(bids), 4)

	assert.Equal(t, first, second)
	assert.Equal(t, 3, first.Summary.TotalBids)
	assert.Equal(t, 1, first.Summary.OverdueCount)
}

func TestRenderText(t *testing.T) {
	list := newTestBuilder().GroupBidsByDate([]domain.BidItem{
		{
			ID:              "c1",
			ProjectName:     "Byron WWTP",
			Purchasers:      []domain.Purchaser{{CompanyName: "Bay Mechanical", ContactName: "Dana", DueDate: day(2026, 10, 16), DueTime: "2 PM"}},
			EarliestDueDate: day(2026, 10, 16),
			EarliestDueTime: "2 PM",
			EmailIDs:        []string{"e1", "e2"},
			DateGroup:       domain.DateGroupTomorrow,
		},
		{ID: "e9", EmailIDs: []string{"e9"}, DateGroup: domain.DateGroupNoDate},
	}, 3)

	var buf bytes.Buffer
	require.NoError(t, RenderText(&buf, list))

	out := buf.String()
	assert.Contains(t, out, "Bids: 2  Emails: 3")
	assert.Contains(t, out, "== Due Tomorrow (1) ==")
	assert.Contains(t, out, "- Byron WWTP [2026-10-16 2 PM]")
	assert.Contains(t, out, "Purchaser: Bay Mechanical (Dana) due 2026-10-16 2 PM")
	assert.Contains(t, out, "- Unknown Project [no due date]")
	assert.Contains(t, out, "No purchaser identified")
}

func TestRenderJSON(t *testing.T) {
	list := newTestBuilder().GroupBidsByDate([]domain.BidItem{
		{ID: "e1", EmailIDs: []string{"e1"}, DateGroup: domain.DateGroupNoDate},
	}, 1)

	var buf bytes.Buffer
	require.NoError(t, RenderJSON(&buf, list))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	summary, ok := decoded["summary"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 1, summary["total_bids"], 0)

	groups, ok := decoded["groups"].([]any)
	require.True(t, ok)
	require.Len(t, groups, 1)
	assert.Equal(t, "no_date", groups[0].(map[string]any)["date_group"])
}
