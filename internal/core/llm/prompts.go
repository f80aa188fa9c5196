package llm

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mrhoo2/email-bdc-agent/internal/core/domain"
)

const extractSystemPrompt = `You extract bid-request details from construction supply emails. Return STRICT JSON ONLY.
Output must be a single JSON object with exactly these keys:
- purchaser: object or null. The contractor asking for a quote (not the recipient, not the seller).
  - company_name: string (required)
  - contact_name, contact_email, contact_phone: strings, empty if unknown
  - source: one of signature, forwarded, header, body, inferred
  - confidence: number 0.0-1.0
- project: object or null.
  - project_name, project_address, general_contractor, engineer, architect: strings, empty if unknown
  - confidence: number 0.0-1.0
- bid_due_dates: array, in the order the dates appear in the email. Each item:
  - date: string YYYY-MM-DD
  - time: string as written (e.g. "2:00 PM"), empty if none
  - timezone: string, empty if none
  - source: explicit when the email states the due date, inferred otherwise
  - raw_text: the exact phrase the date came from
  - confidence: number 0.0-1.0

Use double quotes. No trailing commas. No markdown. No extra keys.
Resolve relative dates ("next Friday") against the email's sent date.
For forwarded emails, the purchaser is the original sender of the forwarded message.`

const extractUserPromptFmt = `Email sent: %s
From: %s
To: %s
Cc: %s
Subject: %s

%s`

func buildExtractPrompt(email domain.Email) string {
	sent := ""
	if !email.Date.IsZero() {
		sent = email.Date.Format("Monday, 2006-01-02 15:04 MST")
	}

	return fmt.Sprintf(extractUserPromptFmt,
		sent,
		email.From,
		strings.Join(email.To, ", "),
		strings.Join(email.Cc, ", "),
		email.Subject,
		truncate(email.Body, maxBodyRunes),
	)
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}

	runes := []rune(s)

	return string(runes[:max]) + "..."
}
