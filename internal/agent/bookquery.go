package agent

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TimeParser turns a date phrase into an absolute time.
type TimeParser func(text string) (time.Time, bool)

type travelMode string

const (
	modeNone   travelMode = ""
	modeFlight travelMode = "flight"
	modeBus    travelMode = "bus"
	modeTrain  travelMode = "train"
	modeMovie  travelMode = "movie"
	modeHotel  travelMode = "hotel"
)

type bookingQuery struct {
	Mode        travelMode
	Origin      string
	Destination string
	City        string
	Title       string
	Depart      string
	Return      string
}

var (
	flightWordRe = regexp.MustCompile(`\bflights?\b`)
	busWordRe    = regexp.MustCompile(`\b(bus|buses)\b`)
	trainWordRe  = regexp.MustCompile(`\btrains?\b`)
	movieWordRe  = regexp.MustCompile(`\b(movies?|cinema|theatre|theater|tickets?)\b`)
	hotelWordRe  = regexp.MustCompile(`\b(hotels?|stays?)\b`)

	fromToRe    = regexp.MustCompile(`\bfrom\s+([a-z ]+?)\s+to\s+([a-z ]+?)(?:\s+(?:on|for|at|in|tomorrow|today|next|this|day)\b|$)`)
	pairRe      = regexp.MustCompile(`\b([a-z]+)\s+to\s+([a-z]+)\b`)
	inCityRe    = regexp.MustCompile(`\bin\s+([a-z ]+?)(?:\s+(?:on|for|from|at|tomorrow|today|next|this)\b|$)`)
	titleRe     = regexp.MustCompile(`["“]([^"”]+)["”]`)
	trailPunct  = regexp.MustCompile(`[.?!]+$`)
	dayRangeRe  = regexp.MustCompile(`\b(\d{1,2})\s*[-/]\s*(\d{1,2})\s*([a-z]{3,})\b`)
	dayMonthRe  = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sep|sept|oct|nov|dec)\b`)
	optionCmdRe = regexp.MustCompile(`\b(open|book|go to)\s+(?:the\s+)?(?:option\s+)?(?:number\s+)?(\d+|one|two|three|four|five|six|seven|eight|nine|ten|first|second|third|fourth|fifth|sixth|seventh|eighth|ninth|tenth)(?:st|nd|rd|th)?\b`)
)

var optionWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
	"sixth": 6, "seventh": 7, "eighth": 8, "ninth": 9, "tenth": 10,
}

var monthNames = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// optionCommand parses "open option 2" or "book the first one".
func optionCommand(text string) (verb string, index int, ok bool) {
	m := optionCmdRe.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return "", 0, false
	}
	if n, err := strconv.Atoi(m[2]); err == nil {
		index = n
	} else {
		index = optionWords[m[2]]
	}
	verb = m[1]
	if verb == "go to" {
		verb = "open"
	}
	return verb, index, true
}

func parseBookingQuery(text, datetimeSlot string, now time.Time, parse TimeParser) bookingQuery {
	t := trailPunct.ReplaceAllString(strings.ToLower(strings.TrimSpace(text)), "")
	q := bookingQuery{}

	switch {
	case flightWordRe.MatchString(t):
		q.Mode = modeFlight
	case busWordRe.MatchString(t):
		q.Mode = modeBus
	case trainWordRe.MatchString(t):
		q.Mode = modeTrain
	case movieWordRe.MatchString(t):
		q.Mode = modeMovie
	case hotelWordRe.MatchString(t):
		q.Mode = modeHotel
	}

	if m := fromToRe.FindStringSubmatch(t); m != nil {
		q.Origin, q.Destination = strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	} else if m := pairRe.FindStringSubmatch(t); m != nil {
		q.Origin, q.Destination = m[1], m[2]
	}
	if m := inCityRe.FindStringSubmatch(t); m != nil {
		q.City = strings.TrimSpace(m[1])
	}
	if m := titleRe.FindStringSubmatch(text); m != nil {
		q.Title = m[1]
	}
	if q.Mode == modeNone && q.Origin != "" && q.Destination != "" && strings.Contains(t, "cheapest") {
		q.Mode = modeFlight
	}

	q.Depart, q.Return = parseTravelDates(t, datetimeSlot, now, parse)
	return q
}

const isoDay = "2006-01-02"

// parseTravelDates finds a day range, a day and month, a relative day, the
// resolver's datetime slot, then anything the natural date parser accepts.
func parseTravelDates(t, datetimeSlot string, now time.Time, parse TimeParser) (string, string) {
	if m := dayRangeRe.FindStringSubmatch(t); m != nil {
		if mon, ok := month(m[3]); ok {
			d1, _ := strconv.Atoi(m[1])
			d2, _ := strconv.Atoi(m[2])
			return futureDay(now, mon, d1).Format(isoDay), futureDay(now, mon, d2).Format(isoDay)
		}
	}
	if m := dayMonthRe.FindStringSubmatch(t); m != nil {
		if mon, ok := month(m[2]); ok {
			d, _ := strconv.Atoi(m[1])
			return futureDay(now, mon, d).Format(isoDay), ""
		}
	}
	switch {
	case strings.Contains(t, "day after tomorrow"):
		return now.AddDate(0, 0, 2).Format(isoDay), ""
	case strings.Contains(t, "tomorrow"):
		return now.AddDate(0, 0, 1).Format(isoDay), ""
	case strings.Contains(t, "today"):
		return now.Format(isoDay), ""
	}
	if datetimeSlot != "" {
		if ts, err := time.Parse(time.RFC3339, datetimeSlot); err == nil {
			return ts.Format(isoDay), ""
		}
	}
	if parse != nil {
		if ts, ok := parse(t); ok {
			return ts.Format(isoDay), ""
		}
	}
	return "", ""
}

func month(s string) (time.Month, bool) {
	if len(s) < 3 {
		return 0, false
	}
	m, ok := monthNames[s[:3]]
	return m, ok
}

// futureDay is the next occurrence of day/month on or after now.
func futureDay(now time.Time, mon time.Month, day int) time.Time {
	d := time.Date(now.Year(), mon, day, 0, 0, 0, 0, now.Location())
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if d.Before(today) {
		d = d.AddDate(1, 0, 0)
	}
	return d
}
