package llm

import (
	"encoding/json"
	"strings"
)

const markdownFence = "```"

// extractJSON tries to extract a JSON object from a response that might have
// extra text around it. The text is returned unchanged when nothing valid is found.
func extractJSON(text string) string {
	trimmed := strings.TrimSpace(stripFence(text))
	if json.Valid([]byte(trimmed)) {
		return trimmed
	}

	for start := strings.Index(trimmed, "{"); start != -1; {
		if end := matchingBrace(trimmed, start); end != -1 {
			candidate := trimmed[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate
			}
		}

		next := strings.Index(trimmed[start+1:], "{")
		if next == -1 {
			break
		}

		start += next + 1
	}

	return text
}

func stripFence(text string) string {
	open := strings.Index(text, markdownFence)
	if open == -1 {
		return text
	}

	rest := text[open+len(markdownFence):]
	if nl := strings.IndexByte(rest, '\n'); nl != -1 {
		rest = rest[nl+1:]
	}

	if end := strings.Index(rest, markdownFence); end != -1 {
		rest = rest[:end]
	}

	return rest
}

// matchingBrace returns the index of the brace closing the one at start,
// skipping braces inside JSON strings.
func matchingBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		ch := s[i]

		switch {
		case escaped:
			escaped = false
		case inString && ch == '\\':
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}

	return -1
}
