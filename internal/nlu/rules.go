package nlu

import (
	"regexp"
	"strings"

	"hark/internal/domain"
)

// Rule is one entry of the ordered classification table.
type Rule struct {
	Name  string
	Label string
	Match func(t string) bool
}

// Classify runs rules in order over lowercased text. The first match wins.
func Classify(rules []Rule, text string) (string, string, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return domain.IntentUnknown, "", false
	}
	for _, r := range rules {
		if r.Match(t) {
			return r.Label, r.Name, true
		}
	}
	return domain.IntentUnknown, "", false
}

var ordinalWords = []string{
	"zero", "one", "two", "three", "four", "five",
	"six", "seven", "eight", "nine", "ten",
	"first", "second", "third", "fourth", "fifth",
	"sixth", "seventh", "eighth", "ninth", "tenth",
}

var ordinalValue = map[string]int{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
	"sixth": 6, "seventh": 7, "eighth": 8, "ninth": 9, "tenth": 10,
}

var (
	optionDigitRe = regexp.MustCompile(`\b(open|book|go to)\s+(?:the\s+)?(?:option\s+)?\d+\b`)
	optionWordRe  = regexp.MustCompile(`\b(open|book|go to)\s+(?:the\s+)?(?:option\s+)?(?:` + strings.Join(ordinalWords, "|") + `)\b`)
	closeTabRe    = regexp.MustCompile(`\b(close|closed|shut)\s+(this\s+|the\s+|current\s+)?tab\b`)
	newTabRe      = regexp.MustCompile(`\b(new|open)\s+(a\s+)?tab\b`)
	fileManagerRe = regexp.MustCompile(`\b(open|show|browse)\s+(the\s+)?(file manager|files|file explorer|filebrowser)\b`)
	fileVerbRe    = regexp.MustCompile(`\b(open|create|make|new|delete|remove)\s+(?:a\s+)?file(?:\s+([\w\-.' ]+))?\b`)
	mailNounRe    = regexp.MustCompile(`\b(email|emails|mail|mails|inbox|gmail)\b`)
	mailAloudRe   = regexp.MustCompile(`\b(mail|email|message)\b`)
	settingsRe    = regexp.MustCompile(`\b(open|launch)\s+(system\s*)?settings\b`)
	folderOpenRe  = regexp.MustCompile(`\bopen\s+(?:the\s+)?(home|downloads?|documents?|desktop|pictures?|music|videos?|recent|trash)\s*(folder)?\b`)
	closeFileRe   = regexp.MustCompile(`\bclose\b.*\bfile\b`)
	bookingRe     = regexp.MustCompile(`\b(flights?|bus|buses|trains?|movies?|tickets?|hotels?|book|booking|bookings)\b`)
	stayRe        = regexp.MustCompile(`\bstays?\b`)
)

func containsAny(t string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(t, w) {
			return true
		}
	}
	return false
}

// DefaultRules is the classification cascade. Earlier rules shadow later
// ones: selection follow-ups precede tab controls, which precede file
// verbs, and the generic "close" catch-all comes last.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "option-select", Label: domain.IntentBookingSearch, Match: func(t string) bool {
			return optionDigitRe.MatchString(t) || optionWordRe.MatchString(t)
		}},
		{Name: "tab-close", Label: domain.IntentBrowserControl, Match: closeTabRe.MatchString},
		{Name: "tab-new", Label: domain.IntentBrowserControl, Match: newTabRe.MatchString},
		{Name: "file-manager", Label: domain.IntentFileManage, Match: fileManagerRe.MatchString},
		{Name: "file-verb-named", Label: domain.IntentFileManage, Match: func(t string) bool {
			m := fileVerbRe.FindStringSubmatch(t)
			return m != nil && strings.TrimSpace(m[2]) != ""
		}},
		{Name: "file-verb-unnamed", Label: domain.IntentFileMissingName, Match: fileVerbRe.MatchString},
		{Name: "mail-read", Label: domain.IntentMailRead, Match: func(t string) bool {
			return mailNounRe.MatchString(t) && containsAny(t, "show me", "check", "latest", "recent", "unread", "open", "read")
		}},
		{Name: "mail-aloud", Label: domain.IntentMailRead, Match: func(t string) bool {
			return mailAloudRe.MatchString(t) && containsAny(t, "loud", "aloud", "speak", "subject")
		}},
		{Name: "settings", Label: domain.IntentAppOpen, Match: func(t string) bool {
			return settingsRe.MatchString(t) || t == "settings" || t == "system settings"
		}},
		{Name: "booking-keyword", Label: domain.IntentBookingSearch, Match: func(t string) bool {
			if bookingRe.MatchString(t) || strings.HasPrefix(t, "show me the cheapest") {
				return true
			}
			return stayRe.MatchString(t) && !strings.Contains(t, "awake")
		}},
		{Name: "folder-open", Label: domain.IntentFileManage, Match: folderOpenRe.MatchString},
		{Name: "file-phrase", Label: domain.IntentFileManage, Match: func(t string) bool {
			return containsAny(t,
				"open file", "create file", "make file", "new file", "edit file", "delete file", "remove file",
				"open files", "file manager", "files app", "open downloads", "open documents")
		}},
		{Name: "remind", Label: domain.IntentReminderCreate, Match: func(t string) bool {
			return strings.Contains(t, "remind")
		}},
		{Name: "close-file", Label: domain.IntentFileManage, Match: closeFileRe.MatchString},
		{Name: "file-words", Label: domain.IntentFileManage, Match: func(t string) bool {
			return containsAny(t,
				"create a file", "make a file", "open desktop",
				"write", "append", "save", "erase file", "trash")
		}},
		{Name: "process-monitor", Label: domain.IntentProcessMonitor, Match: func(t string) bool {
			return containsAny(t,
				"task manager", "system monitor", "which process makes it slow",
				"top cpu", "top memory", "top ram", "show cpu processes", "show memory processes",
				"slow processes", "high cpu", "high memory", "why is it slow", "lag")
		}},
		{Name: "sleep-control", Label: domain.IntentSleepControl, Match: func(t string) bool {
			return containsAny(t,
				"don't sleep", "dont sleep", "keep awake", "keep running", "prevent sleep",
				"caffeinate", "stay awake", "keep system awake", "no sleep",
				"allow sleep", "stop preventing sleep", "let it sleep",
				"disable keep awake", "stop keep awake")
		}},
		{Name: "browser-control", Label: domain.IntentBrowserControl, Match: func(t string) bool {
			return containsAny(t,
				"new tab", "close tab", "next tab", "previous tab", "prev tab", "back", "forward",
				"scroll down", "scroll up", "scroll to top", "scroll to bottom",
				"go to ", "open url", "open website", "focus address bar", "address bar",
				"browser search", "type in address bar")
		}},
		{Name: "web-search", Label: domain.IntentWebSearch, Match: func(t string) bool {
			return containsAny(t, "search", "find", "look up", "google") && !strings.Contains(t, "browser search")
		}},
		{Name: "app-open", Label: domain.IntentAppOpen, Match: func(t string) bool {
			return containsAny(t, "open", "launch")
		}},
		{Name: "music-play", Label: domain.IntentMusicPlay, Match: func(t string) bool {
			return strings.Contains(t, "play")
		}},
		{Name: "close", Label: domain.IntentClose, Match: func(t string) bool {
			return containsAny(t, "close", "quit", "exit", "kill process", "stop")
		}},
	}
}
