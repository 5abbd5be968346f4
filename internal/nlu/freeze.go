package nlu

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultFrozen are domain nouns hidden from free-text cleanup backends.
var DefaultFrozen = []string{
	"hotel", "hotels",
	"flight", "flights",
	"bus", "buses",
	"train", "trains",
	"file", "files",
	"folder", "folders",
	"website", "websites",
	"url", "link",
	"browser", "calculator",
}

type freezer struct {
	words []*regexp.Regexp
}

func newFreezer(words []string) *freezer {
	f := &freezer{}
	for _, w := range words {
		f.words = append(f.words, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(w)+`\b`))
	}
	return f
}

// freeze swaps every protected word for a __KW_n__ placeholder and returns
// the mapping needed to put them back.
func (f *freezer) freeze(text string) (string, map[string]string) {
	placeholders := make(map[string]string)
	n := 0
	for _, re := range f.words {
		text = re.ReplaceAllStringFunc(text, func(m string) string {
			key := fmt.Sprintf("__KW_%d__", n)
			n++
			placeholders[key] = m
			return key
		})
	}
	return text, placeholders
}

func (f *freezer) restore(text string, placeholders map[string]string) string {
	for key, orig := range placeholders {
		text = strings.ReplaceAll(text, key, orig)
	}
	return text
}

// lostPlaceholder reports whether a backend dropped any frozen word.
func lostPlaceholder(text string, placeholders map[string]string) bool {
	for key := range placeholders {
		if !strings.Contains(text, key) {
			return true
		}
	}
	return false
}
