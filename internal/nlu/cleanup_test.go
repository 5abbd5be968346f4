package nlu

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplit(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want []string
	}{
		{"open firefox and search golang", []string{"open firefox", "search golang"}},
		{"open downloads then create a file, open spotify", []string{"open downloads", "create a file", "open spotify"}},
		{"open firefox,open spotify", []string{"open firefox", "open spotify"}},
		{"open firefox AND open firefox", []string{"open firefox", "open firefox"}},
		{"sandbox", []string{"sandbox"}},
		{"  and  ", []string{"and"}},
		{"", nil},
		{" , , ", nil},
		{`write "milk, eggs and bread" to list.txt and open firefox`, []string{`write "milk, eggs and bread" to list.txt`, "open firefox"}},
		{`say "hi, there`, []string{`say "hi`, "there"}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Split(tc.in), tc.in)
	}
}

func TestCleanerCorrectsDictionaryWords(t *testing.T) {
	t.Parallel()

	c := DefaultCleaner()
	assert.Equal(t, "open the browser", c.Clean("oppen   the bowser"))
	assert.Equal(t, "Search flights tomorrow", c.Clean("Serch flites tomaro"))
	assert.Equal(t, "cheapest flights", c.Clean("chepest flytes"))
}

func TestCleanerFuzzyPass(t *testing.T) {
	t.Parallel()

	c := DefaultCleaner()
	assert.Equal(t, "book a train for tomorrow", c.Clean("book a train for tomorow"))
	assert.Equal(t, "the cheapest bus", c.Clean("the cheapst bus"))
}

func TestCleanerLeavesNonAlphaTokens(t *testing.T) {
	t.Parallel()

	c := DefaultCleaner()
	assert.Equal(t, `write "hello there" to notes.txt`, c.Clean(`write "hello there" to notes.txt`))
	assert.Equal(t, "don't sleep", c.Clean("don't sleep"))
	assert.Equal(t, "open option 2", c.Clean("open option 2"))
	assert.Empty(t, c.Clean("   "))
}

func TestCleanerNeverRewritesProtectedWords(t *testing.T) {
	t.Parallel()

	c := DefaultCleaner()
	words := append(append([]string{}, DefaultProtected...), DefaultFrozen...)
	fillers := []string{"please", "serch", "the", "cheapst", "oppen", "to"}

	for _, w := range words {
		for _, f := range fillers {
			for _, in := range []string{w, f + " " + w, w + " " + f, f + " " + w + " " + f} {
				out := c.Clean(in)
				assert.Contains(t, strings.Fields(out), w, "input %q", in)
			}
		}
	}
}
