// Package htmlutils converts HTML email parts to plain text.
//
// The package handles:
//   - Tag stripping with block-level line breaks
//   - Skipping of script, style and head content
//   - HTML entity decoding
//   - Whitespace and blank-line collapsing
package htmlutils

import (
	"strings"

	"golang.org/x/net/html"
)

// skipTags hold content that is never rendered.
var skipTags = map[string]bool{
	"script":   true,
	"style":    true,
	"head":     true,
	"title":    true,
	"noscript": true,
}

// paragraphTags are separated from surrounding text by a blank line.
var paragraphTags = map[string]bool{
	"p":          true,
	"table":      true,
	"h1":         true,
	"h2":         true,
	"h3":         true,
	"h4":         true,
	"h5":         true,
	"h6":         true,
	"blockquote": true,
	"pre":        true,
	"hr":         true,
}

// lineTags start and end on their own line.
var lineTags = map[string]bool{
	"div":     true,
	"ul":      true,
	"ol":      true,
	"section": true,
	"center":  true,
}

// ToText renders HTML as plain text. Block elements and <br> become line
// breaks, list items are prefixed with "- ", table cells are separated by a
// tab, and runs of blank lines collapse to one.
func ToText(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}

	tokenizer := html.NewTokenizer(strings.NewReader(s))
	w := &textWriter{}
	skipDepth := 0

	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			break
		}

		tok := tokenizer.Token()

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			if skipTags[tok.Data] {
				if tt == html.StartTagToken {
					skipDepth++
				}

				continue
			}

			if skipDepth > 0 {
				continue
			}

			w.openTag(tok.Data)
		case html.EndTagToken:
			if skipTags[tok.Data] {
				if skipDepth > 0 {
					skipDepth--
				}

				continue
			}

			if skipDepth > 0 {
				continue
			}

			w.closeTag(tok.Data)
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}

			w.text(tok.Data)
		}
	}

	return CollapseBlankLines(w.sb.String())
}

type textWriter struct {
	sb       strings.Builder
	lineOpen bool
	cellOpen bool
}

func (w *textWriter) openTag(name string) {
	switch {
	case name == "br":
		w.sb.WriteByte('\n')
		w.lineOpen = false
	case name == "li":
		w.newline()
		w.sb.WriteString("- ")
		w.lineOpen = true
	case name == "td" || name == "th":
		if w.cellOpen {
			w.sb.WriteByte('\t')
		}

		w.cellOpen = true
	case paragraphTags[name]:
		w.paragraph()
	case lineTags[name]:
		w.newline()
	}
}

func (w *textWriter) closeTag(name string) {
	switch {
	case name == "tr":
		w.cellOpen = false
		w.newline()
	case paragraphTags[name]:
		w.paragraph()
	case name == "li" || lineTags[name]:
		w.newline()
	}
}

func (w *textWriter) text(data string) {
	words := strings.Fields(data)
	if len(words) == 0 {
		if w.lineOpen && data != "" {
			w.pendingSpace()
		}

		return
	}

	if w.lineOpen && startsWithSpace(data) {
		w.pendingSpace()
	}

	w.sb.WriteString(strings.Join(words, " "))
	w.lineOpen = true

	if endsWithSpace(data) {
		w.pendingSpace()
	}
}

func (w *textWriter) pendingSpace() {
	cur := w.sb.String()
	if cur == "" || strings.HasSuffix(cur, " ") || strings.HasSuffix(cur, "\n") || strings.HasSuffix(cur, "\t") {
		return
	}

	w.sb.WriteByte(' ')
}

// newline ends the current line if any text is on it.
func (w *textWriter) newline() {
	if w.lineOpen {
		w.sb.WriteByte('\n')
	}

	w.lineOpen = false
}

func (w *textWriter) paragraph() {
	w.newline()
	w.sb.WriteByte('\n')
}

func startsWithSpace(s string) bool {
	return s != "" && strings.TrimLeft(s[:1], " \t\r\n") == ""
}

func endsWithSpace(s string) bool {
	return s != "" && strings.TrimRight(s[len(s)-1:], " \t\r\n") == ""
}

// CollapseBlankLines trims trailing spaces from every line, collapses runs of
// blank lines to a single blank line and trims the result.
func CollapseBlankLines(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	blank := false

	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}

			blank = true

			continue
		}

		blank = false

		out = append(out, line)
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}

// LooksLikeHTML reports whether s appears to be an HTML document or fragment.
func LooksLikeHTML(s string) bool {
	lower := strings.ToLower(s)

	for _, marker := range []string{"<html", "<body", "<div", "<p>", "<p ", "<br", "<table"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}

	return false
}
