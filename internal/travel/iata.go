// Package travel holds the booking provider client and the search link
// builders used by the booking agent.
package travel

import (
	"slices"
	"strings"

	"hark/internal/fuzzy"
)

var iata = map[string]string{
	"delhi":     "DEL",
	"new delhi": "DEL",
	"del":       "DEL",
	"mumbai":    "BOM",
	"bombay":    "BOM",
	"bom":       "BOM",
	"bengaluru": "BLR",
	"bangalore": "BLR",
	"blr":       "BLR",
	"chennai":   "MAA",
	"madras":    "MAA",
	"maa":       "MAA",
	"kolkata":   "CCU",
	"calcutta":  "CCU",
	"ccu":       "CCU",
	"hyderabad": "HYD",
	"hyd":       "HYD",
	"ahmedabad": "AMD",
	"amd":       "AMD",
	"jaipur":    "JAI",
	"jai":       "JAI",
	"srinagar":  "SXR",
	"sxr":       "SXR",
	"goa":       "GOI",
	"goi":       "GOI",
}

// Frequent transcription slips for city names.
var cityCorrections = map[string]string{
	"sinehagar": "srinagar",
	"sinegar":   "srinagar",
	"srinigar":  "srinagar",
	"srinager":  "srinagar",
}

var cityNames = func() []string {
	names := make([]string, 0, len(iata))
	for k := range iata {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}()

// CityThreshold is the minimum similarity for a fuzzy city match.
const CityThreshold = 80

// IATA resolves a spoken city name to its airport code.
func IATA(city string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(city))
	if key == "" {
		return "", false
	}
	if c, ok := cityCorrections[key]; ok {
		key = c
	}
	if code, ok := iata[key]; ok {
		return code, true
	}
	m, ok := fuzzy.ExtractOne(key, cityNames, fuzzy.Ratio)
	if !ok || m.Score < CityThreshold {
		return "", false
	}
	return iata[m.Choice], true
}

// AirportCode is IATA with the first three letters as a fallback.
func AirportCode(city string) string {
	if code, ok := IATA(city); ok {
		return code
	}
	c := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(city), " ", ""))
	if len(c) > 3 {
		c = c[:3]
	}
	return c
}
