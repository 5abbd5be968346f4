package nlu

import (
	"regexp"
	"strings"
)

var (
	splitRe  = regexp.MustCompile(`(?i)\s+(?:and|then)\s+|\s*,\s*`)
	quotedRe = regexp.MustCompile(`"[^"]*"|“[^”]*”`)
)

// Split breaks an utterance into subcommands on "and", "then" and commas.
// Separators inside double quotes are kept. Order is preserved and empty
// parts are dropped.
func Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	quoted := quotedRe.FindAllStringIndex(text, -1)

	var out []string
	start := 0
	for _, sep := range splitRe.FindAllStringIndex(text, -1) {
		if within(sep, quoted) {
			continue
		}
		out = appendPart(out, text[start:sep[0]])
		start = sep[1]
	}
	return appendPart(out, text[start:])
}

func within(sep []int, spans [][]int) bool {
	for _, q := range spans {
		if sep[0] < q[1] && sep[1] > q[0] {
			return true
		}
	}
	return false
}

func appendPart(out []string, p string) []string {
	if p = strings.TrimSpace(p); p != "" {
		out = append(out, p)
	}
	return out
}
