package mailbox

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mrhoo2/email-bdc-agent/internal/core/domain"
	apperrors "github.com/mrhoo2/email-bdc-agent/internal/core/errors"
	"github.com/mrhoo2/email-bdc-agent/internal/platform/observability"
)

// Input formats, also used as metric labels.
const (
	FormatEML  = "eml"
	FormatMBOX = "mbox"
	FormatJSON = "json"
)

const (
	mboxSeparator   = "From "
	mboxEscapedFrom = ">From "
	maxLineBytes    = 10 * 1024 * 1024

	logKeyPath  = "path"
	logKeyCount = "count"
)

// Loader reads emails from files and directories.
type Loader struct {
	parser *Parser
	logger *zerolog.Logger
}

// NewLoader creates a Loader. A nil logger discards output.
func NewLoader(logger *zerolog.Logger) *Loader {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Loader{parser: NewParser(logger), logger: logger}
}

// LoadPath reads emails from path with a one-off Loader.
func LoadPath(path string, logger *zerolog.Logger) ([]domain.Email, error) {
	return NewLoader(logger).Load(path)
}

// Load reads path, which may be a directory of .eml/.mbox files, a single
// .eml or .mbox file, or a JSON array of emails. Emails keep file order;
// a repeated email ID keeps its first occurrence.
func (l *Loader) Load(path string) ([]domain.Email, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	var emails []domain.Email

	if info.IsDir() {
		emails, err = l.loadDir(path)
	} else {
		emails, err = l.loadFile(path)
	}

	if err != nil {
		return nil, err
	}

	emails = dedupe(emails, l.logger)

	l.logger.Info().Str(logKeyPath, path).Int(logKeyCount, len(emails)).Msg("Loaded emails")

	return emails, nil
}

func (l *Loader) loadDir(dir string) ([]domain.Email, error) {
	var emails []domain.Email

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		switch formatOf(path) {
		case FormatEML, FormatMBOX:
		default:
			return nil
		}

		loaded, err := l.loadFile(path)
		if err != nil {
			l.logger.Warn().Err(err).Str(logKeyPath, path).Msg("Skipping unreadable file")
			return nil
		}

		emails = append(emails, loaded...)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}

	return emails, nil
}

func (l *Loader) loadFile(path string) ([]domain.Email, error) {
	format := formatOf(path)
	if format == "" {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFormat, filepath.Ext(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var emails []domain.Email

	switch format {
	case FormatEML:
		var email domain.Email

		email, err = l.parser.Parse(f, baseName(path))
		emails = []domain.Email{email}
	case FormatMBOX:
		emails, err = l.ReadMBOX(f, baseName(path))
	case FormatJSON:
		emails, err = ReadJSON(f)
	}

	if err != nil {
		return nil, err
	}

	observability.EmailsIngested.WithLabelValues(format).Add(float64(len(emails)))

	return emails, nil
}

// ReadMBOX splits an MBOX stream on "From " lines and parses each message.
// Messages without a Message-ID get "<name>-<index>" as their ID. Messages
// that fail to parse are skipped.
func (l *Loader) ReadMBOX(r io.Reader, name string) ([]domain.Email, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var (
		emails  []domain.Email
		current bytes.Buffer
		index   int
		started bool
	)

	flush := func() {
		if !started || current.Len() == 0 {
			return
		}

		fallback := name + "-" + strconv.Itoa(index)
		index++

		email, err := l.parser.Parse(bytes.NewReader(current.Bytes()), fallback)
		if err != nil {
			l.logger.Warn().Err(err).Str(logKeyEmailID, fallback).Msg("Skipping unparseable mbox message")
		} else {
			emails = append(emails, email)
		}

		current.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, mboxSeparator) {
			flush()

			started = true

			continue
		}

		if !started {
			continue
		}

		if strings.HasPrefix(line, mboxEscapedFrom) {
			line = line[1:]
		}

		current.WriteString(line)
		current.WriteString("\r\n")
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan mbox %s: %w", name, err)
	}

	flush()

	return emails, nil
}

// ReadJSON decodes a JSON array of emails. Every email needs an ID; a
// missing thread ID defaults to the email ID.
func ReadJSON(r io.Reader) ([]domain.Email, error) {
	var emails []domain.Email

	if err := json.NewDecoder(r).Decode(&emails); err != nil {
		return nil, fmt.Errorf("failed to decode emails: %w", err)
	}

	for i := range emails {
		if strings.TrimSpace(emails[i].ID) == "" {
			return nil, fmt.Errorf("%w: email %d has no id", apperrors.ErrInvalidInput, i)
		}

		if emails[i].ThreadID == "" {
			emails[i].ThreadID = emails[i].ID
		}
	}

	return emails, nil
}

// LoadExtractions reads a JSON array of precomputed extractions. Invalid
// fields are dropped the same way model output is.
func (l *Loader) LoadExtractions(path string) ([]domain.Extraction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var extractions []domain.Extraction
	if err := json.Unmarshal(data, &extractions); err != nil {
		return nil, fmt.Errorf("failed to decode extractions: %w", err)
	}

	for i := range extractions {
		if extractions[i].EmailID == "" {
			return nil, fmt.Errorf("%w: extraction %d has no email_id", apperrors.ErrInvalidInput, i)
		}

		ext, err := domain.ValidateExtraction(extractions[i])
		if err != nil {
			l.logger.Warn().Err(err).Str(logKeyEmailID, ext.EmailID).Msg("Dropped invalid fields from extraction")
		}

		extractions[i] = ext
	}

	l.logger.Info().Str(logKeyPath, path).Int(logKeyCount, len(extractions)).Msg("Loaded extractions")

	return extractions, nil
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".eml":
		return FormatEML
	case ".mbox", ".mbx":
		return FormatMBOX
	case ".json":
		return FormatJSON
	default:
		return ""
	}
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func dedupe(emails []domain.Email, logger *zerolog.Logger) []domain.Email {
	seen := make(map[string]bool, len(emails))
	out := emails[:0]

	for _, email := range emails {
		if seen[email.ID] {
			logger.Debug().Str(logKeyEmailID, email.ID).Msg("Dropping duplicate email")
			continue
		}

		seen[email.ID] = true

		out = append(out, email)
	}

	return out
}
