package similarity

import (
	"regexp"
	"strings"
)

var (
	replyPrefixRegex = regexp.MustCompile(`(?i)^(re|fwd|fw):\s*`)
	whitespaceRegex  = regexp.MustCompile(`\s+`)
	nonWordRegex     = regexp.MustCompile(`[^\w\s-]`)
)

// Normalize prepares a field value for comparison: lowercase, trim, drop a
// leading reply/forward prefix, collapse whitespace and strip everything that
// is not a word character, whitespace or hyphen.
func Normalize(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = replyPrefixRegex.ReplaceAllString(s, "")
	s = whitespaceRegex.ReplaceAllString(s, " ")

	return nonWordRegex.ReplaceAllString(s, "")
}

// StripReplyPrefix removes a single leading "Re:", "Fwd:" or "Fw:" and trims the rest.
func StripReplyPrefix(s string) string {
	return strings.TrimSpace(replyPrefixRegex.ReplaceAllString(strings.TrimSpace(s), ""))
}

// DiceCoefficient returns the bigram Dice coefficient of a and b in [0,1].
// Whitespace is ignored; strings shorter than two runes only match exactly.
func DiceCoefficient(a, b string) float64 {
	first := []rune(whitespaceRegex.ReplaceAllString(a, ""))
	second := []rune(whitespaceRegex.ReplaceAllString(b, ""))

	if string(first) == string(second) {
		return 1
	}

	if len(first) < 2 || len(second) < 2 {
		return 0
	}

	bigrams := make(map[string]int, len(first)-1)
	for i := 0; i < len(first)-1; i++ {
		bigrams[string(first[i:i+2])]++
	}

	intersection := 0

	for i := 0; i < len(second)-1; i++ {
		bigram := string(second[i : i+2])
		if bigrams[bigram] > 0 {
			bigrams[bigram]--
			intersection++
		}
	}

	return 2 * float64(intersection) / float64(len(first)+len(second)-2)
}
