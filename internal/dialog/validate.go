package dialog

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	yesWords = []string{"yes", "yeah", "yep", "sure", "confirm", "go ahead", "ok", "okay"}
	noWords  = []string{"no", "nope", "don't", "dont", "not now", "later", "stop"}

	yesRe = phraseRe(yesWords)
	noRe  = phraseRe(noWords)
)

// IsYes reports an affirmative answer.
func IsYes(text string) bool { return yesRe.MatchString(strings.ToLower(text)) }

// IsNo reports a negative answer.
func IsNo(text string) bool { return noRe.MatchString(strings.ToLower(text)) }

var digitsRe = regexp.MustCompile(`\d+`)

// Name accepts a full name of at least two words.
func Name(text string) (string, error) {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return "", &Invalid{Prompt: "Please say the full name, like John Doe."}
	}
	return strings.Join(fields, " "), nil
}

// Age accepts the first run of digits when it falls in 1..120. Spelled
// numbers are not parsed.
func Age(text string) (int, error) {
	m := digitsRe.FindString(text)
	if m == "" {
		return 0, &Invalid{Prompt: "Please tell me the age in numbers."}
	}
	age, err := strconv.Atoi(m)
	if err != nil || age <= 0 || age > 120 {
		return 0, &Invalid{Prompt: "That age doesn't look right. Please say it again."}
	}
	return age, nil
}

var (
	femaleRe = regexp.MustCompile(`\b(female|woman|f)\b`)
	maleRe   = regexp.MustCompile(`\b(male|man|m)\b`)
	otherRe  = regexp.MustCompile(`\b(other|non-binary|nonbinary)\b`)
)

// Gender accepts male, female or other.
func Gender(text string) (string, error) {
	t := strings.ToLower(text)
	switch {
	case femaleRe.MatchString(t):
		return "Female", nil
	case maleRe.MatchString(t):
		return "Male", nil
	case otherRe.MatchString(t):
		return "Other", nil
	}
	return "", &Invalid{Prompt: "Please say male, female, or other."}
}

var (
	quotedRe   = regexp.MustCompile(`"([^"]+)"|'([^']+)'`)
	trailDotRe = regexp.MustCompile(`\.+$`)
	spokenExt  = regexp.MustCompile(`(?i)\s+(?:dot|period)\s+([a-z0-9]{1,8})$`)
)

// Quoted returns the first quoted span of text, if any.
func Quoted(text string) (string, bool) {
	m := quotedRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	if m[1] != "" {
		return m[1], true
	}
	return m[2], true
}

// Filename normalizes a spoken file name. Names without an extension get
// defaultExt.
func Filename(text, defaultExt string) (string, error) {
	name, ok := Quoted(text)
	if !ok {
		name = text
	}
	name = strings.Trim(strings.TrimSpace(name), `'"`)
	name = trailDotRe.ReplaceAllString(name, "")
	name = spokenExt.ReplaceAllStringFunc(name, func(m string) string {
		return "." + strings.ToLower(spokenExt.FindStringSubmatch(m)[1])
	})
	if name == "" {
		return "", &Invalid{Prompt: "I didn't catch the name. Please repeat the file name."}
	}
	if defaultExt != "" && !strings.Contains(name, ".") {
		name += defaultExt
	}
	return name, nil
}

var (
	dirPrepRe = regexp.MustCompile(`(?i)\b(?:in|to|into|at|under|inside)\s+(home|downloads?|documents?|desktop|pictures?|music|videos?)\b`)
	dirWordRe = regexp.MustCompile(`(?i)\b(downloads|documents|desktop|pictures|music|videos|home)\b`)
)

// Directory finds a well-known folder keyword.
func Directory(text string) (string, error) {
	if m := dirPrepRe.FindStringSubmatch(text); m != nil {
		return canonicalDir(m[1]), nil
	}
	if m := dirWordRe.FindStringSubmatch(text); m != nil {
		return canonicalDir(m[1]), nil
	}
	return "", &Invalid{Prompt: "Please tell me a location, for example: in Downloads folder."}
}

func canonicalDir(s string) string {
	s = strings.ToLower(s)
	switch s {
	case "home", "desktop", "music":
		return s
	}
	return strings.TrimSuffix(s, "s") + "s"
}
