package nlu

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"hark/internal/domain"
)

// TimeParser turns a date or time phrase into an absolute time.
type TimeParser func(text string) (time.Time, bool)

var appKeywords = []string{
	"chrome", "calculator", "terminal", "spotify", "vscode", "firefox",
	"settings", "music", "vlc", "rhythmbox", "code",
	"gnome-calculator", "galculator", "kcalc",
}

var calculatorAliases = map[string]bool{
	"calculator": true, "gnome-calculator": true, "galculator": true, "kcalc": true,
}

var fileExtensions = []string{".txt", ".pdf", ".docx", ".csv", ".md", ".py", ".json", ".yaml", ".yml"}

var directoryKeywords = []string{"downloads", "documents", "desktop", "pictures", "music", "videos", "home"}

var searchFillerRe = regexp.MustCompile(`(?i)search for|web search|search|find|look up|google|on the web|in browser`)

var (
	spokenDotRe  = regexp.MustCompile(`(?i)([\w\-\s']+?)\s+(?:dot|period|\.)\s+([a-z0-9]{1,8})\b`)
	fileTokenRe  = regexp.MustCompile(`[\w\-.']+`)
	gotoRe       = regexp.MustCompile(`(?i)(?:go to|open url|open website)\s+(.+)$`)
	dotWordRe    = regexp.MustCompile(`(?i)\b(dot|period)\b`)
	dotGapRe     = regexp.MustCompile(`\s*\.\s*`)
	hostPartRe   = regexp.MustCompile(`^[A-Za-z0-9\-]+$`)
	tldWordRe    = regexp.MustCompile(`(?i)\b(com|org|net|io|co|in)\b`)
	bareHostRe   = regexp.MustCompile(`^[A-Za-z0-9\-]{2,30}$`)
	optionNumRe  = regexp.MustCompile(`(?i)\boption\s+(\d+)\b`)
	ordinalRe    = regexp.MustCompile(`\b(` + strings.Join(ordinalWords, "|") + `)\b`)
	fileLeadRe   = regexp.MustCompile(`(?i)^.*?\b(?:create|make|open|delete|remove|new)\s+(?:a\s+)?(?:new\s+)?file\s+(?:called\s+|named\s+)?`)
	quickWriteRe = regexp.MustCompile(`(?i)(?:write|append|add|create|make)\s+("[^"]+"|'[^']+')\s+(?:to|in|into)\s+([^,;]+)`)
)

// ExtractSlots normalizes entities and surface patterns into slot values.
func ExtractSlots(entities []domain.Entity, text string, parse TimeParser) map[string]string {
	slots := make(map[string]string)
	raw := strings.TrimSpace(text)
	lower := strings.ToLower(raw)

	if parse != nil {
		for _, e := range entities {
			if e.Label != "DATE" && e.Label != "TIME" {
				continue
			}
			if t, ok := parse(e.Text); ok {
				slots[domain.SlotDatetime] = t.Format(time.RFC3339)
				break
			}
		}
	}

	for _, kw := range appKeywords {
		if strings.Contains(lower, kw) {
			if calculatorAliases[kw] {
				kw = "calculator"
			}
			slots[domain.SlotApplication] = kw
			break
		}
	}

	if m := spokenDotRe.FindStringSubmatch(fileLeadRe.ReplaceAllString(raw, "")); m != nil {
		base := strings.ReplaceAll(strings.TrimSpace(m[1]), " ", "_")
		slots[domain.SlotFile] = base + "." + strings.ToLower(m[2])
	} else {
	tokens:
		for _, tok := range fileTokenRe.FindAllString(raw, -1) {
			lt := strings.ToLower(tok)
			for _, ext := range fileExtensions {
				if strings.HasSuffix(lt, ext) {
					slots[domain.SlotFile] = strings.Trim(tok, `'"`)
					break tokens
				}
			}
		}
	}

	for _, d := range directoryKeywords {
		if strings.Contains(lower, d) {
			slots[domain.SlotDirectory] = d
			break
		}
	}

	if containsAny(lower, "search", "find", "look up", "google", "web search") {
		q := searchFillerRe.ReplaceAllString(raw, "")
		slots[domain.SlotSearchQuery] = strings.Join(strings.Fields(q), " ")
	}

	if m := gotoRe.FindStringSubmatch(raw); m != nil {
		slots[domain.SlotGotoTarget] = gotoTarget(strings.TrimSpace(m[1]))
	}

	switch {
	case closeTabRe.MatchString(lower):
		slots[domain.SlotBrowserAction] = "close_tab"
	case newTabRe.MatchString(lower):
		slots[domain.SlotBrowserAction] = "new_tab"
	}

	if n, ok := OptionIndex(raw); ok {
		slots[domain.SlotOption] = strconv.Itoa(n)
	}

	if m := quickWriteRe.FindStringSubmatch(raw); m != nil {
		slots[domain.SlotContent] = m[1][1 : len(m[1])-1]
		target := strings.Trim(strings.TrimSpace(m[2]), `'"`)
		if isDirectoryKeyword(strings.ToLower(target)) {
			target = strings.ToLower(target)
			slots[domain.SlotDirectory] = target
		} else {
			slots[domain.SlotFile] = target
		}
	}

	return slots
}

// OptionIndex finds a 1-based option number given as digits or a spelled
// number up to ten.
func OptionIndex(text string) (int, bool) {
	if m := optionNumRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n, true
		}
	}
	if m := ordinalRe.FindStringSubmatch(strings.ToLower(text)); m != nil {
		return ordinalValue[m[1]], true
	}
	return 0, false
}

func isDirectoryKeyword(s string) bool {
	for _, d := range directoryKeywords {
		if s == d {
			return true
		}
	}
	return false
}

// gotoTarget turns a spoken destination into a hostname-ish target.
func gotoTarget(raw string) string {
	s := strings.Join(strings.Fields(raw), " ")
	s = dotWordRe.ReplaceAllString(s, ".")
	s = dotGapRe.ReplaceAllString(s, ".")

	parts := strings.Fields(s)
	if n := len(parts); n >= 2 && n <= 3 && allHostParts(parts) && tldWordRe.MatchString(parts[n-1]) && len(parts[n-1]) <= 3 {
		return strings.Join(parts[:n-1], "") + "." + strings.ToLower(parts[n-1])
	}
	cand := s
	switch {
	case len(parts) == 1:
		cand = parts[0]
	case len(parts) <= 3 && allHostParts(parts):
		cand = strings.Join(parts, "")
	}
	cand = strings.TrimSpace(cand)

	if strings.Contains(cand, ".") {
		return strings.Trim(cand, ". ")
	}
	if tldWordRe.MatchString(raw) {
		if stripped := strings.TrimSpace(tldWordRe.ReplaceAllString(cand, "")); stripped != "" {
			return stripped + ".com"
		}
		return cand
	}
	if bareHostRe.MatchString(cand) {
		return cand + ".com"
	}
	return s
}

func allHostParts(parts []string) bool {
	for _, p := range parts {
		if !hostPartRe.MatchString(p) {
			return false
		}
	}
	return true
}
