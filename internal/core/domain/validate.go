package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/araddon/dateparse"
)

// ValidationError describes one invalid field of an extracted entity.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

const (
	reasonRequired        = "required"
	reasonConfidenceRange = "confidence must be within [0,1]"
)

// ValidateExtraction normalizes an extraction coming from the extraction
// collaborator and reports every field that cannot be used.
// Whitespace is trimmed, a purchaser without a company name is dropped,
// missing sources default to inferred and due dates are rewritten as YYYY-MM-DD.
// Due-date entries keep their position: an unparseable date is blanked and a
// bad source or confidence is reset, so BidDueDates[0] stays the first entry.
func ValidateExtraction(ext Extraction) (Extraction, error) {
	var errs []error

	ext.EmailID = strings.TrimSpace(ext.EmailID)
	if ext.EmailID == "" {
		errs = append(errs, &ValidationError{Field: "email_id", Reason: reasonRequired})
	}

	if ext.Purchaser != nil {
		purchaser, err := validatePurchaser(*ext.Purchaser)
		if err != nil {
			errs = append(errs, err)
		}

		ext.Purchaser = purchaser
	}

	if ext.Project != nil {
		project, err := validateProject(*ext.Project)
		if err != nil {
			errs = append(errs, err)
		}

		ext.Project = project
	}

	if len(ext.BidDueDates) > 0 {
		dates := make([]BidDueDate, len(ext.BidDueDates))

		for i, d := range ext.BidDueDates {
			normalized, err := validateDueDate(d, i)
			if err != nil {
				errs = append(errs, err)
			}

			dates[i] = normalized
		}

		ext.BidDueDates = dates
	}

	if ext.Seller != nil {
		ext.Seller = normalizeSeller(*ext.Seller)
	}

	return ext, errors.Join(errs...)
}

func validatePurchaser(p PurchaserIdentity) (*PurchaserIdentity, error) {
	p.CompanyName = strings.TrimSpace(p.CompanyName)
	if p.CompanyName == "" {
		return nil, nil
	}

	p.ContactName = strings.TrimSpace(p.ContactName)
	p.ContactEmail = strings.TrimSpace(p.ContactEmail)
	p.ContactPhone = strings.TrimSpace(p.ContactPhone)

	switch p.Source {
	case "":
		p.Source = SourceInferred
	case SourceSignature, SourceForwarded, SourceHeader, SourceBody, SourceInferred:
	default:
		return &p, &ValidationError{Field: "purchaser.source", Reason: fmt.Sprintf("unknown source %q", p.Source)}
	}

	if !validConfidence(p.Confidence) {
		return &p, &ValidationError{Field: "purchaser.confidence", Reason: reasonConfidenceRange}
	}

	return &p, nil
}

func validateProject(p ProjectSignals) (*ProjectSignals, error) {
	p.ProjectName = strings.TrimSpace(p.ProjectName)
	p.ProjectAddress = strings.TrimSpace(p.ProjectAddress)
	p.GeneralContractor = strings.TrimSpace(p.GeneralContractor)
	p.Engineer = strings.TrimSpace(p.Engineer)
	p.Architect = strings.TrimSpace(p.Architect)

	if p.ProjectName == "" && p.ProjectAddress == "" && p.GeneralContractor == "" && p.Engineer == "" && p.Architect == "" {
		return nil, nil
	}

	if !validConfidence(p.Confidence) {
		return &p, &ValidationError{Field: "project.confidence", Reason: reasonConfidenceRange}
	}

	return &p, nil
}

func validateDueDate(d BidDueDate, index int) (BidDueDate, error) {
	field := fmt.Sprintf("bid_due_dates[%d]", index)

	var errs []error

	d.Date = strings.TrimSpace(d.Date)
	d.Time = strings.TrimSpace(d.Time)
	d.Timezone = strings.TrimSpace(d.Timezone)

	if d.Date == "" {
		errs = append(errs, &ValidationError{Field: field + ".date", Reason: reasonRequired})
	} else if parsed, err := dateparse.ParseAny(d.Date); err != nil {
		errs = append(errs, &ValidationError{Field: field + ".date", Reason: fmt.Sprintf("unparseable date %q", d.Date)})
		d.Date = ""
		d.Time = ""
	} else {
		d.Date = parsed.Format(DueDateLayout)
	}

	switch d.Source {
	case "":
		d.Source = DueDateInferred
	case DueDateExplicit, DueDateInferred:
	default:
		errs = append(errs, &ValidationError{Field: field + ".source", Reason: fmt.Sprintf("unknown source %q", d.Source)})
		d.Source = DueDateInferred
	}

	if !validConfidence(d.Confidence) {
		errs = append(errs, &ValidationError{Field: field + ".confidence", Reason: reasonConfidenceRange})
		d.Confidence = 0
	}

	return d, errors.Join(errs...)
}

func normalizeSeller(s Seller) *Seller {
	s.Name = strings.TrimSpace(s.Name)
	s.Email = strings.TrimSpace(s.Email)

	if s.Name == "" && s.Email == "" {
		return nil
	}

	return &s
}

func validConfidence(c float64) bool {
	return c >= 0 && c <= 1
}
