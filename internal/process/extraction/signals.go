package extraction

import "github.com/mrhoo2/email-bdc-agent/internal/core/domain"

// BuildSignals produces one EmailSignal per email that has an extraction, in
// email input order. Extractions for unknown emails are ignored.
func BuildSignals(emails []domain.Email, extractions []domain.Extraction) []domain.EmailSignal {
	byEmail := make(map[string]domain.Extraction, len(extractions))
	for _, ext := range extractions {
		if _, ok := byEmail[ext.EmailID]; !ok {
			byEmail[ext.EmailID] = ext
		}
	}

	signals := make([]domain.EmailSignal, 0, len(extractions))
	seen := make(map[string]bool, len(emails))

	for _, email := range emails {
		ext, ok := byEmail[email.ID]
		if !ok || seen[email.ID] {
			continue
		}

		seen[email.ID] = true

		signal := domain.EmailSignal{
			EmailID:  email.ID,
			ThreadID: email.ThreadID,
			Subject:  email.Subject,
			From:     email.From,
			Date:     email.Date,
		}

		if p := ext.Project; p != nil {
			signal.ProjectName = p.ProjectName
			signal.ProjectAddress = p.ProjectAddress
			signal.GeneralContractor = p.GeneralContractor
			signal.Engineer = p.Engineer
			signal.Architect = p.Architect
		}

		if ext.Purchaser != nil {
			signal.PurchaserCompany = ext.Purchaser.CompanyName
		}

		signals = append(signals, signal)
	}

	return signals
}
