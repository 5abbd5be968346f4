package nlu

import (
	"maps"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"hark/internal/fuzzy"
)

var (
	wordRe   = regexp.MustCompile(`[\p{L}\p{N}_]+(?:['.\-][\p{L}\p{N}_]+)*`)
	spacesRe = regexp.MustCompile(`\s+`)
)

// DefaultProtected are tokens the local cleanup never rewrites.
var DefaultProtected = []string{
	"hey", "agent", "open", "create", "make", "new", "file", "files",
	"notes", "note", "dot", "txt", "pdf", "docx",
	"browser", "browse", "calculator", "gmail", "email", "search",
}

// DefaultCorrections are frequent speech recognition misspellings.
var DefaultCorrections = map[string]string{
	"bowser":   "browser",
	"oppen":    "open",
	"serch":    "search",
	"chepest":  "cheapest",
	"flites":   "flights",
	"flytes":   "flights",
	"tomaro":   "tomorrow",
	"tommorow": "tomorrow",
}

// Cleaner performs the deterministic first cleanup stage.
type Cleaner struct {
	protected   map[string]struct{}
	corrections map[string]string
	targets     []string
	threshold   int
}

func NewCleaner(protected []string, corrections map[string]string, threshold int) *Cleaner {
	c := &Cleaner{
		protected:   make(map[string]struct{}, len(protected)),
		corrections: maps.Clone(corrections),
		threshold:   threshold,
	}
	for _, p := range protected {
		c.protected[strings.ToLower(p)] = struct{}{}
	}
	for _, v := range corrections {
		if !slices.Contains(c.targets, v) {
			c.targets = append(c.targets, v)
		}
	}
	slices.Sort(c.targets)
	return c
}

// DefaultCleaner protects both the token list and the frozen domain nouns.
func DefaultCleaner() *Cleaner {
	return NewCleaner(slices.Concat(DefaultProtected, DefaultFrozen), DefaultCorrections, 70)
}

// Clean collapses whitespace, fixes dictionary misspellings and snaps
// near-miss tokens onto dictionary words.
func (c *Cleaner) Clean(text string) string {
	text = strings.TrimSpace(spacesRe.ReplaceAllString(text, " "))
	if text == "" {
		return ""
	}
	return c.fuzzyFix(c.correct(text))
}

func (c *Cleaner) skip(tok string) bool {
	if _, ok := c.protected[strings.ToLower(tok)]; ok {
		return true
	}
	return !isAlpha(tok)
}

// Words are rewritten in place so punctuation and quoting survive.
func (c *Cleaner) correct(text string) string {
	return wordRe.ReplaceAllStringFunc(text, func(tok string) string {
		if c.skip(tok) {
			return tok
		}
		repl, ok := c.corrections[strings.ToLower(tok)]
		if !ok {
			return tok
		}
		if unicode.IsUpper([]rune(tok)[0]) {
			return capitalize(repl)
		}
		return repl
	})
}

func (c *Cleaner) fuzzyFix(text string) string {
	if len(c.targets) == 0 {
		return text
	}
	return wordRe.ReplaceAllStringFunc(text, func(tok string) string {
		if c.skip(tok) {
			return tok
		}
		low := strings.ToLower(tok)
		m, ok := fuzzy.ExtractOne(low, c.targets, fuzzy.Ratio)
		if !ok || m.Score < c.threshold || m.Choice == low {
			return tok
		}
		return m.Choice
	})
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func capitalize(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
