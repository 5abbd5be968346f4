package nlu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hark/internal/domain"
)

func TestClassifyLabels(t *testing.T) {
	t.Parallel()

	rules := DefaultRules()
	cases := map[string]string{
		"open option 2":                        domain.IntentBookingSearch,
		"book the third option":                domain.IntentBookingSearch,
		"close this tab":                       domain.IntentBrowserControl,
		"open a new tab":                       domain.IntentBrowserControl,
		"open file manager":                    domain.IntentFileManage,
		"create a file":                        domain.IntentFileMissingName,
		"delete file":                          domain.IntentFileMissingName,
		"create a file called notes":           domain.IntentFileManage,
		"check my latest emails":               domain.IntentMailRead,
		"open settings":                        domain.IntentAppOpen,
		"search flights from delhi to mumbai":  domain.IntentBookingSearch,
		"open the downloads folder":            domain.IntentFileManage,
		"remind me to call mom in 10 minutes":  domain.IntentReminderCreate,
		"close the file":                       domain.IntentFileManage,
		"show top cpu processes":               domain.IntentProcessMonitor,
		"keep awake":                           domain.IntentSleepControl,
		"stay awake":                           domain.IntentSleepControl,
		"scroll down":                          domain.IntentBrowserControl,
		"go to youtube":                        domain.IntentBrowserControl,
		"search for golang tutorials":          domain.IntentWebSearch,
		"open firefox":                         domain.IntentAppOpen,
		"play some music":                      domain.IntentMusicPlay,
		"quit spotify":                         domain.IntentClose,
		"tell me a joke":                       domain.IntentUnknown,
		"":                                     domain.IntentUnknown,
		"OPEN OPTION 1":                        domain.IntentBookingSearch,
		"show me the cheapest way to get there": domain.IntentBookingSearch,
	}
	for in, want := range cases {
		got, _, _ := Classify(rules, in)
		assert.Equal(t, want, got, in)
	}
}

// Each example must be claimed by its own rule. A reordering that lets a
// more general rule swallow a more specific one fails here.
func TestRuleOrderDoesNotShadow(t *testing.T) {
	t.Parallel()

	examples := map[string]string{
		"option-select":     "open option 2",
		"tab-close":         "close this tab",
		"tab-new":           "open a new tab",
		"file-manager":      "open file manager",
		"file-verb-named":   "create file notes",
		"file-verb-unnamed": "create a file",
		"mail-read":         "check my inbox",
		"mail-aloud":        "speak my mail subject",
		"settings":          "open system settings",
		"booking-keyword":   "find me a hotel in goa",
		"folder-open":       "open the music folder",
		"file-phrase":       "edit file",
		"remind":            "remind me to stretch",
		"close-file":        "close the file",
		"file-words":        "write hello to the notes",
		"process-monitor":   "why is it slow",
		"sleep-control":     "prevent sleep",
		"browser-control":   "scroll down",
		"web-search":        "look up golang generics",
		"app-open":          "launch spotify",
		"music-play":        "play some jazz",
		"close":             "quit spotify",
	}

	rules := DefaultRules()
	require.Len(t, examples, len(rules), "every rule needs an example")
	for _, r := range rules {
		ex, ok := examples[r.Name]
		require.True(t, ok, "missing example for %s", r.Name)
		label, name, matched := Classify(rules, ex)
		require.True(t, matched, ex)
		assert.Equal(t, r.Name, name, "%q claimed by %s", ex, name)
		assert.Equal(t, r.Label, label, ex)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	t.Parallel()

	rules := DefaultRules()
	inputs := []string{"open option 2", "close this tab", "create a file", "quit spotify", "hmm"}
	for _, in := range inputs {
		first, firstRule, _ := Classify(rules, in)
		for i := 0; i < 20; i++ {
			got, rule, _ := Classify(rules, in)
			assert.Equal(t, first, got)
			assert.Equal(t, firstRule, rule)
		}
	}
}
