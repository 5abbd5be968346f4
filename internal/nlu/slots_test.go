package nlu

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"hark/internal/domain"
)

func TestExtractSlotsFiles(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"notes dot txt":                         "notes.txt",
		"create a file called my notes dot txt": "my_notes.txt",
		"open report.pdf":                       "report.pdf",
		"open file budget dot CSV":              "budget.csv",
	}
	for in, want := range cases {
		got := ExtractSlots(nil, in, nil)
		assert.Equal(t, want, got[domain.SlotFile], in)
	}
	assert.NotContains(t, ExtractSlots(nil, "create a file", nil), domain.SlotFile)
}

func TestExtractSlotsGotoTarget(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"go to youtube":                      "youtube.com",
		"go to google dot com":               "google.com",
		"go to stack overflow":               "stackoverflow.com",
		"go to github com":                   "github.com",
		"open website wikipedia dot org":     "wikipedia.org",
		"go to the best pizza places nearby": "the best pizza places nearby",
	}
	for in, want := range cases {
		assert.Equal(t, want, ExtractSlots(nil, in, nil)[domain.SlotGotoTarget], in)
	}
}

func TestExtractSlotsMisc(t *testing.T) {
	t.Parallel()

	s := ExtractSlots(nil, "search for golang tutorials", nil)
	assert.Equal(t, "golang tutorials", s[domain.SlotSearchQuery])

	s = ExtractSlots(nil, "open gnome-calculator", nil)
	assert.Equal(t, "calculator", s[domain.SlotApplication])

	s = ExtractSlots(nil, "save it in downloads", nil)
	assert.Equal(t, "downloads", s[domain.SlotDirectory])

	s = ExtractSlots(nil, "close the tab", nil)
	assert.Equal(t, "close_tab", s[domain.SlotBrowserAction])

	s = ExtractSlots(nil, "open a new tab", nil)
	assert.Equal(t, "new_tab", s[domain.SlotBrowserAction])

	s = ExtractSlots(nil, `Write "Buy milk" to todo.txt`, nil)
	assert.Equal(t, "Buy milk", s[domain.SlotContent])
	assert.Equal(t, "todo.txt", s[domain.SlotFile])
}

func TestOptionIndex(t *testing.T) {
	t.Parallel()

	cases := map[string]int{
		"open option 3":       3,
		"book option 12":      12,
		"open the first one":  1,
		"book the second one": 2,
		"go to option ten":    10,
	}
	for in, want := range cases {
		got, ok := OptionIndex(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := OptionIndex("open firefox")
	assert.False(t, ok)
}

func TestExtractSlotsDatetime(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	parse := func(text string) (time.Time, bool) {
		if text == "tomorrow" {
			return at, true
		}
		return time.Time{}, false
	}
	ents := []domain.Entity{{Label: "GPE", Text: "delhi"}, {Label: "DATE", Text: "tomorrow"}}
	s := ExtractSlots(ents, "flights from delhi tomorrow", parse)
	assert.Equal(t, "2026-10-15T09:00:00Z", s[domain.SlotDatetime])
}
