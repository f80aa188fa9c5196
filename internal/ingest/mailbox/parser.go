// Package mailbox reads bid-invitation emails from .eml files, MBOX archives
// and JSON exports into domain.Email records.
package mailbox

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/rs/zerolog"
	"golang.org/x/net/html/charset"

	"github.com/mrhoo2/email-bdc-agent/internal/core/domain"
	apperrors "github.com/mrhoo2/email-bdc-agent/internal/core/errors"
	"github.com/mrhoo2/email-bdc-agent/internal/platform/htmlutils"
)

const (
	maxPartBytes = 10 * 1024 * 1024

	mediaTextPlain = "text/plain"
	mediaTextHTML  = "text/html"
	mediaMultipart = "multipart/"

	encodingQuotedPrintable = "quoted-printable"
	encodingBase64          = "base64"

	dispositionAttachment = "attachment"

	addressSpecials = `,;:."<>()[]@\`

	logKeyEmailID = "email_id"
	logKeyCharset = "charset"
	logKeySource  = "source"
)

// headerGetter is satisfied by mail.Header and textproto.MIMEHeader.
type headerGetter interface {
	Get(key string) string
}

// Parser turns RFC 5322 messages into domain.Email records.
type Parser struct {
	decoder *mime.WordDecoder
	logger  *zerolog.Logger
}

// NewParser creates a Parser. A nil logger discards output.
func NewParser(logger *zerolog.Logger) *Parser {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Parser{
		decoder: &mime.WordDecoder{CharsetReader: charset.NewReaderLabel},
		logger:  logger,
	}
}

// Parse reads one message. fallbackID is used as the email ID when the
// message has no Message-ID header.
func (p *Parser) Parse(r io.Reader, fallbackID string) (domain.Email, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return domain.Email{}, fmt.Errorf("failed to read message %s: %w", fallbackID, err)
	}

	id := cleanMessageID(msg.Header.Get("Message-ID"))
	if id == "" {
		id = fallbackID
	}

	email := domain.Email{
		ID:       id,
		ThreadID: threadID(msg.Header, id),
		Subject:  strings.TrimSpace(p.decodeHeader(msg.Header.Get("Subject"))),
		From:     p.firstAddress(msg.Header.Get("From")),
		To:       p.addressList(msg.Header.Get("To")),
		Cc:       p.addressList(msg.Header.Get("Cc")),
		Date:     p.parseDate(msg.Header.Get("Date"), id),
	}

	plain, html, err := p.extractBody(msg.Header, msg.Body)
	if err != nil {
		return domain.Email{}, fmt.Errorf("failed to read body of %s: %w", id, err)
	}

	switch {
	case strings.TrimSpace(plain) != "":
		email.Body = htmlutils.CollapseBlankLines(plain)
	case html != "":
		email.Body = htmlutils.ToText(html)
	}

	return email, nil
}

// extractBody walks the MIME tree and returns the first text/plain and the
// first text/html content found outside attachments.
func (p *Parser) extractBody(header headerGetter, body io.Reader) (string, string, error) {
	mediaType, params, err := mime.ParseMediaType(header.Get("Content-Type"))
	if err != nil {
		mediaType, params = mediaTextPlain, map[string]string{}
	}

	if strings.HasPrefix(mediaType, mediaMultipart) {
		return p.extractMultipart(body, params["boundary"])
	}

	if mediaType != mediaTextPlain && mediaType != mediaTextHTML {
		return "", "", nil
	}

	text, err := p.readPart(body, header.Get("Content-Transfer-Encoding"), params["charset"])
	if err != nil {
		return "", "", err
	}

	if mediaType == mediaTextHTML {
		return "", text, nil
	}

	return text, "", nil
}

func (p *Parser) extractMultipart(body io.Reader, boundary string) (string, string, error) {
	if boundary == "" {
		return "", "", fmt.Errorf("%w: multipart body without boundary", apperrors.ErrInvalidInput)
	}

	var plain, html string

	mr := multipart.NewReader(body, boundary)

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}

		if err != nil {
			if plain != "" || html != "" {
				p.logger.Debug().Err(err).Msg("Truncated multipart body")
				break
			}

			return "", "", fmt.Errorf("failed to read multipart: %w", err)
		}

		if isAttachment(part.Header.Get("Content-Disposition")) {
			continue
		}

		partPlain, partHTML, err := p.extractBody(part.Header, part)
		if err != nil {
			p.logger.Debug().Err(err).Msg("Skipping unreadable part")
			continue
		}

		if plain == "" {
			plain = partPlain
		}

		if html == "" {
			html = partHTML
		}
	}

	return plain, html, nil
}

// readPart decodes the transfer encoding and converts the charset to UTF-8.
func (p *Parser) readPart(body io.Reader, transferEncoding, cs string) (string, error) {
	var r io.Reader = io.LimitReader(body, maxPartBytes)

	switch strings.ToLower(strings.TrimSpace(transferEncoding)) {
	case encodingQuotedPrintable:
		r = quotedprintable.NewReader(r)
	case encodingBase64:
		r = base64.NewDecoder(base64.StdEncoding, r)
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s part: %w", transferEncoding, err)
	}

	if isUTF8Compatible(cs) {
		return string(raw), nil
	}

	decoded, err := charset.NewReaderLabel(cs, bytes.NewReader(raw))
	if err != nil {
		p.logger.Debug().Str(logKeyCharset, cs).Msg("Unknown charset, keeping raw bytes")
		return string(raw), nil
	}

	out, err := io.ReadAll(decoded)
	if err != nil {
		return "", fmt.Errorf("failed to convert charset %s: %w", cs, err)
	}

	return string(out), nil
}

func (p *Parser) decodeHeader(value string) string {
	decoded, err := p.decoder.DecodeHeader(value)
	if err != nil {
		return value
	}

	return decoded
}

func (p *Parser) addressParser() *mail.AddressParser {
	return &mail.AddressParser{WordDecoder: p.decoder}
}

// addressList returns "Name <addr>" strings. Unparseable lists fall back to
// comma splitting of the decoded header.
func (p *Parser) addressList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}

	addrs, err := p.addressParser().ParseList(value)
	if err != nil {
		var out []string

		for _, part := range strings.Split(p.decodeHeader(value), ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}

		return out
	}

	out := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		out = append(out, formatAddress(addr))
	}

	return out
}

func (p *Parser) firstAddress(value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}

	addr, err := p.addressParser().Parse(value)
	if err != nil {
		return strings.TrimSpace(p.decodeHeader(value))
	}

	return formatAddress(addr)
}

func (p *Parser) parseDate(value, id string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}

	if t, err := mail.ParseDate(value); err == nil {
		return t
	}

	t, err := dateparse.ParseAny(value)
	if err != nil {
		p.logger.Debug().Str(logKeyEmailID, id).Str(logKeySource, value).Msg("Unparseable Date header")
		return time.Time{}
	}

	return t
}

// formatAddress renders an address without MIME-encoding the display name,
// quoting it when it holds address specials.
func formatAddress(addr *mail.Address) string {
	name := strings.TrimSpace(addr.Name)
	if name == "" {
		return addr.Address
	}

	if strings.ContainsAny(name, addressSpecials) {
		name = `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(name) + `"`
	}

	return name + " <" + addr.Address + ">"
}

// threadID is the first References entry, else In-Reply-To, else the
// email's own ID.
func threadID(header mail.Header, id string) string {
	if refs := strings.Fields(header.Get("References")); len(refs) > 0 {
		if ref := cleanMessageID(refs[0]); ref != "" {
			return ref
		}
	}

	if reply := strings.Fields(header.Get("In-Reply-To")); len(reply) > 0 {
		if ref := cleanMessageID(reply[0]); ref != "" {
			return ref
		}
	}

	return id
}

func cleanMessageID(id string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(id), "<>"))
}

func isAttachment(disposition string) bool {
	if disposition == "" {
		return false
	}

	d, _, err := mime.ParseMediaType(disposition)
	if err != nil {
		return false
	}

	return d == dispositionAttachment
}

func isUTF8Compatible(cs string) bool {
	switch strings.ToLower(strings.TrimSpace(cs)) {
	case "", "utf-8", "utf8", "us-ascii", "ascii":
		return true
	default:
		return false
	}
}
