package reply

import (
	"regexp"
	"strings"
)

var (
	// A block left open by a truncated completion runs to the end of the text.
	thinkBlock  = regexp.MustCompile(`(?is)<think>.*?(?:</think>|\z)`)
	replyMarker = regexp.MustCompile(`(?is)Reply:\s*(.+)`)
	intentLine  = regexp.MustCompile(`(?im)^\s*Intent:.*$`)
)

// ParseCompletion extracts the reply text from a raw model completion.
//
// Reasoning blocks, including an unterminated trailing one, are dropped first. Then, in order: everything after a
// "Reply:" marker, everything after the first "Intent:" line, or the whole
// completion.
func ParseCompletion(raw string) string {
	text := thinkBlock.ReplaceAllString(raw, "")

	if m := replyMarker.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if loc := intentLine.FindStringIndex(text); loc != nil {
		return strings.TrimSpace(text[loc[1]:])
	}
	return strings.TrimSpace(text)
}

// usable reports whether a parsed suggestion can be sent as-is.
func usable(s string) bool {
	return s != "" && !strings.HasPrefix(s, "[")
}
