package llm

import (
	"context"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/mrhoo2/email-bdc-agent/internal/core/domain"
)

var (
	mockFieldRegex = regexp.MustCompile(`(?im)^\s*(project|project name|job|location|address|project address|gc|general contractor|engineer|architect)\s*:\s*(.+?)\s*$`)
	mockDueRegex   = regexp.MustCompile(`(?im)^\s*(?:bids?\s+)?due(?:\s+date)?\s*:\s*(.+?)\s*$`)
	mockTimeRegex  = regexp.MustCompile(`(?i)\b(\d{1,2}(?::\d{2})?\s*[ap]\.?m\.?)`)
	mockCompany    = regexp.MustCompile(`(?im)^\s*(?:company|from company)\s*:\s*(.+?)\s*$`)
)

// mockClient extracts labeled "Field: value" lines without calling a model.
type mockClient struct {
	now func() time.Time
}

// NewMock creates the offline extraction client.
func NewMock() Client {
	return &mockClient{now: time.Now}
}

// ExtractBid implements Client.
func (m *mockClient) ExtractBid(ctx context.Context, email domain.Email) (domain.Extraction, error) {
	if err := ctx.Err(); err != nil {
		return domain.Extraction{}, err
	}

	ext := domain.Extraction{
		EmailID:     email.ID,
		Project:     mockProject(email.Body),
		Purchaser:   mockPurchaser(email),
		BidDueDates: mockDueDates(email.Body),
		Model:       mockModel,
		ExtractedAt: m.now(),
	}

	normalized, _ := domain.ValidateExtraction(ext)

	return normalized, nil
}

func mockProject(body string) *domain.ProjectSignals {
	p := domain.ProjectSignals{Confidence: mockProjectScore}

	for _, m := range mockFieldRegex.FindAllStringSubmatch(body, -1) {
		value := m[2]

		switch strings.ToLower(m[1]) {
		case "project", "project name", "job":
			setOnce(&p.ProjectName, value)
		case "location", "address", "project address":
			setOnce(&p.ProjectAddress, value)
		case "gc", "general contractor":
			setOnce(&p.GeneralContractor, value)
		case "engineer":
			setOnce(&p.Engineer, value)
		case "architect":
			setOnce(&p.Architect, value)
		}
	}

	return &p
}

func mockPurchaser(email domain.Email) *domain.PurchaserIdentity {
	if m := mockCompany.FindStringSubmatch(email.Body); m != nil {
		return &domain.PurchaserIdentity{
			CompanyName: truncateRunes(m[1], mockMaxCompanyNameRune),
			Source:      domain.SourceBody,
			Confidence:  mockPurchaserScore,
		}
	}

	addr, err := mail.ParseAddress(email.From)
	if err != nil || addr.Name == "" {
		return nil
	}

	return &domain.PurchaserIdentity{
		CompanyName:  truncateRunes(addr.Name, mockMaxCompanyNameRune),
		ContactEmail: addr.Address,
		Source:       domain.SourceHeader,
		Confidence:   mockPurchaserScore,
	}
}

func mockDueDates(body string) []domain.BidDueDate {
	var dates []domain.BidDueDate

	for _, m := range mockDueRegex.FindAllStringSubmatch(body, -1) {
		raw := m[1]
		datePart := raw
		dueTime := ""

		if tm := mockTimeRegex.FindStringSubmatchIndex(raw); tm != nil {
			dueTime = strings.TrimSpace(raw[tm[2]:tm[3]])
			datePart = strings.TrimSpace(raw[:tm[0]] + raw[tm[1]:])
		}

		datePart = strings.Trim(datePart, " ,@-")

		t, err := dateparse.ParseAny(datePart)
		if err != nil {
			continue
		}

		dates = append(dates, domain.BidDueDate{
			Date:       t.Format(domain.DueDateLayout),
			Time:       dueTime,
			Source:     domain.DueDateExplicit,
			RawText:    strings.TrimSpace(m[0]),
			Confidence: mockDueDateScore,
		})
	}

	return dates
}

func setOnce(target *string, value string) {
	if *target == "" {
		*target = value
	}
}

func truncateRunes(s string, max int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= max {
		return string(runes)
	}

	return string(runes[:max])
}
