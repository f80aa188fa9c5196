package domain

import "time"

// PurchaserSource records where in an email the purchaser identity was found.
type PurchaserSource string

// Purchaser source constants.
const (
	SourceSignature PurchaserSource = "signature"
	SourceForwarded PurchaserSource = "forwarded"
	SourceHeader    PurchaserSource = "header"
	SourceBody      PurchaserSource = "body"
	SourceInferred  PurchaserSource = "inferred"
)

// DueDateSource tells whether a due date was stated or inferred.
type DueDateSource string

// Due date source constants.
const (
	DueDateExplicit DueDateSource = "explicit"
	DueDateInferred DueDateSource = "inferred"
)

// DueDateLayout is the calendar date layout used for extracted due dates.
const DueDateLayout = "2006-01-02"

// PurchaserIdentity is the contractor requesting a quote, as extracted from one email.
type PurchaserIdentity struct {
	CompanyName  string          `json:"company_name"`
	ContactName  string          `json:"contact_name,omitempty"`
	ContactEmail string          `json:"contact_email,omitempty"`
	ContactPhone string          `json:"contact_phone,omitempty"`
	Source       PurchaserSource `json:"source,omitempty"`
	Confidence   float64         `json:"confidence"`
}

// ProjectSignals are the project attributes extracted from one email.
type ProjectSignals struct {
	ProjectName       string  `json:"project_name,omitempty"`
	ProjectAddress    string  `json:"project_address,omitempty"`
	GeneralContractor string  `json:"general_contractor,omitempty"`
	Engineer          string  `json:"engineer,omitempty"`
	Architect         string  `json:"architect,omitempty"`
	Confidence        float64 `json:"confidence"`
}

// BidDueDate is one due date mentioned in an email.
type BidDueDate struct {
	Date       string        `json:"date"`
	Time       string        `json:"time,omitempty"`
	Timezone   string        `json:"timezone,omitempty"`
	Source     DueDateSource `json:"source"`
	RawText    string        `json:"raw_text"`
	Confidence float64       `json:"confidence"`
}

// Seller is the salesperson responsible for an email, inferred from its recipients.
type Seller struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Extraction is the full set of entities extracted from a single email.
type Extraction struct {
	EmailID     string             `json:"email_id"`
	Purchaser   *PurchaserIdentity `json:"purchaser,omitempty"`
	Project     *ProjectSignals    `json:"project,omitempty"`
	BidDueDates []BidDueDate       `json:"bid_due_dates,omitempty"`
	Seller      *Seller            `json:"seller,omitempty"`
	Model       string             `json:"model,omitempty"`
	ExtractedAt time.Time          `json:"extracted_at"`
}

// PrimaryDueDate returns the first extracted due date.
// The first entry is used as-is; it is not the earliest or most confident one.
func (e Extraction) PrimaryDueDate() (BidDueDate, bool) {
	if len(e.BidDueDates) == 0 {
		return BidDueDate{}, false
	}

	return e.BidDueDates[0], true
}
