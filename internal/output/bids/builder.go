// Package bids turns per-email extractions into the date-grouped bid list.
//
// The pipeline is pure: BuildBidItems maps each extraction to one BidItem,
// MergeBidsByCluster collapses bids that share a cluster into one
// project-centric record, and GroupBidsByDate buckets the result by due date.
package bids

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/mrhoo2/email-bdc-agent/internal/core/domain"
)

// Log field keys.
const (
	logFieldBids     = "bids"
	logFieldMerged   = "merged"
	logFieldEmailID  = "email_id"
	logFieldGroups   = "groups"
	logFieldClusters = "clusters"
)

// Builder produces grouped bid lists. The zero value is not usable; call NewBuilder.
type Builder struct {
	now    func() time.Time
	loc    *time.Location
	logger *zerolog.Logger
}

// Option customizes a Builder.
type Option func(*Builder)

// WithClock overrides the clock used for date grouping and GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		b.now = now
	}
}

// WithLocation sets the timezone calendar due dates are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(b *Builder) {
		if loc != nil {
			b.loc = loc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBuilder creates a Builder using the local clock and timezone by default.
func NewBuilder(opts ...Option) *Builder {
	nop := zerolog.Nop()

	b := &Builder{
		now:    time.Now,
		loc:    time.Local,
		logger: &nop,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// CreateGroupedBidList builds the grouped bid list with the default Builder.
func CreateGroupedBidList(extractions []domain.Extraction, emails []domain.Email, clusters []domain.ProjectCluster) domain.GroupedBidList {
	return NewBuilder().CreateGroupedBidList(extractions, emails, clusters)
}

// CreateGroupedBidList is the pipeline entry point. When clusters is nil every
// bid is treated as unclustered and no merge happens.
func (b *Builder) CreateGroupedBidList(extractions []domain.Extraction, emails []domain.Email, clusters []domain.ProjectCluster) domain.GroupedBidList {
	bids := b.BuildBidItems(extractions, emails, clusters)

	if clusters != nil {
		bids = b.MergeBidsByCluster(bids)
	}

	return b.GroupBidsByDate(bids, countDistinctEmails(emails))
}

// BuildBidItems creates one BidItem per extraction, in input order.
// Project fields prefer the owning cluster's canonical values.
func (b *Builder) BuildBidItems(extractions []domain.Extraction, emails []domain.Email, clusters []domain.ProjectCluster) []domain.BidItem {
	now := b.clock()

	emailsByID := make(map[string]domain.Email, len(emails))
	for _, e := range emails {
		if _, ok := emailsByID[e.ID]; !ok {
			emailsByID[e.ID] = e
		}
	}

	clusterByEmail := make(map[string]*domain.ProjectCluster)

	for i := range clusters {
		for _, id := range clusters[i].EmailIDs {
			if _, ok := clusterByEmail[id]; !ok {
				clusterByEmail[id] = &clusters[i]
			}
		}
	}

	items := make([]domain.BidItem, 0, len(extractions))

	for _, ext := range extractions {
		var email *domain.Email
		if e, ok := emailsByID[ext.EmailID]; ok {
			email = &e
		} else {
			b.logger.Debug().Str(logFieldEmailID, ext.EmailID).Msg("Extraction has no matching email record")
		}

		items = append(items, b.bidFromExtraction(ext, email, clusterByEmail[ext.EmailID], now))
	}

	return items
}

func (b *Builder) bidFromExtraction(ext domain.Extraction, email *domain.Email, cluster *domain.ProjectCluster, now time.Time) domain.BidItem {
	var signals domain.ProjectSignals
	if ext.Project != nil {
		signals = *ext.Project
	}

	var canonical domain.ProjectInfo

	bid := domain.BidItem{
		ID:          ext.EmailID,
		Purchasers:  make([]domain.Purchaser, 0, 1),
		EmailIDs:    []string{ext.EmailID},
		Emails:      make([]domain.Email, 0, 1),
		Extractions: []domain.Extraction{ext},
		Status:      domain.BidStatusPending,
	}

	if cluster != nil {
		bid.ClusterID = cluster.ID
		canonical = cluster.Project
	}

	bid.ProjectName = firstNonEmpty(canonical.ProjectName, signals.ProjectName)
	bid.ProjectAddress = firstNonEmpty(canonical.ProjectAddress, signals.ProjectAddress)
	bid.GeneralContractor = firstNonEmpty(canonical.GeneralContractor, signals.GeneralContractor)
	bid.Engineer = firstNonEmpty(canonical.Engineer, signals.Engineer)
	bid.Architect = firstNonEmpty(canonical.Architect, signals.Architect)

	if email != nil {
		bid.Emails = append(bid.Emails, *email)
	}

	if ext.Purchaser != nil {
		bid.Purchasers = append(bid.Purchasers, b.purchaserFromExtraction(ext, now))
	}

	if ext.Seller != nil {
		bid.SellerName = ext.Seller.Name
		bid.SellerEmail = ext.Seller.Email
	}

	bid.EarliestDueDate, bid.EarliestDueTime = earliestDue(bid.Purchasers)
	bid.DateGroup = DateGroupAt(bid.EarliestDueDate, now)

	return bid
}

// purchaserFromExtraction uses only the first extracted due date.
func (b *Builder) purchaserFromExtraction(ext domain.Extraction, now time.Time) domain.Purchaser {
	p := ext.Purchaser

	purchaser := domain.Purchaser{
		CompanyName:  p.CompanyName,
		ContactName:  p.ContactName,
		ContactEmail: p.ContactEmail,
		ContactPhone: p.ContactPhone,
		EmailID:      ext.EmailID,
		Source:       p.Source,
	}

	if purchaser.Source == "" {
		purchaser.Source = domain.SourceInferred
	}

	if due, ok := ext.PrimaryDueDate(); ok {
		purchaser.DueDate = ParseDueDate(due.Date, b.loc)
		if purchaser.DueDate != nil {
			purchaser.DueTime = due.Time
		}
	}

	purchaser.DateGroup = DateGroupAt(purchaser.DueDate, now)

	return purchaser
}

func (b *Builder) clock() time.Time {
	return b.now().In(b.loc)
}

func countDistinctEmails(emails []domain.Email) int {
	seen := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		seen[e.ID] = struct{}{}
	}

	return len(seen)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
