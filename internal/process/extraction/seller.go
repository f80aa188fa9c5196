package extraction

import (
	"net/mail"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mrhoo2/email-bdc-agent/internal/core/domain"
)

// SellerInferrer picks the salesperson among an email's recipients by
// matching their address domain against the seller's own domain.
type SellerInferrer struct {
	Domain string
}

// NewSellerInferrer creates a SellerInferrer for sellerDomain.
func NewSellerInferrer(sellerDomain string) *SellerInferrer {
	return &SellerInferrer{Domain: strings.ToLower(strings.TrimSpace(sellerDomain))}
}

// Infer scans To then Cc and returns the first recipient on the seller
// domain or one of its subdomains. It returns nil when none match.
func (s *SellerInferrer) Infer(email domain.Email) *domain.Seller {
	if s == nil || s.Domain == "" {
		return nil
	}

	for _, list := range [][]string{email.To, email.Cc} {
		for _, raw := range list {
			addr, err := mail.ParseAddress(raw)
			if err != nil {
				continue
			}

			if !s.matches(addr.Address) {
				continue
			}

			name := strings.TrimSpace(addr.Name)
			if name == "" {
				name = nameFromLocalPart(addr.Address)
			}

			return &domain.Seller{Name: name, Email: strings.ToLower(addr.Address)}
		}
	}

	return nil
}

// FillMissing returns a copy of exts where every extraction without a seller
// gets one inferred from its email's recipients.
func (s *SellerInferrer) FillMissing(exts []domain.Extraction, emails []domain.Email) []domain.Extraction {
	byID := make(map[string]domain.Email, len(emails))
	for _, e := range emails {
		byID[e.ID] = e
	}

	out := make([]domain.Extraction, len(exts))

	for i, ext := range exts {
		if email, ok := byID[ext.EmailID]; ok && ext.Seller == nil {
			ext.Seller = s.Infer(email)
		}

		out[i] = ext
	}

	return out
}

func (s *SellerInferrer) matches(address string) bool {
	at := strings.LastIndexByte(address, '@')
	if at == -1 {
		return false
	}

	host := strings.ToLower(address[at+1:])

	return host == s.Domain || strings.HasSuffix(host, "."+s.Domain)
}

// nameFromLocalPart turns "jane.doe" into "Jane Doe".
func nameFromLocalPart(address string) string {
	local := address
	if at := strings.IndexByte(address, '@'); at != -1 {
		local = address[:at]
	}

	words := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})

	return cases.Title(language.English).String(strings.ToLower(strings.Join(words, " ")))
}
