package travel

import (
	"net/url"
	"regexp"
	"strings"
)

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lowercases s and joins its alphanumeric runs with dashes.
func Slug(s string) string {
	return strings.Trim(slugRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-"), "-")
}

// GoogleSearchURL is the generic fallback link.
func GoogleSearchURL(q string) string {
	return "https://www.google.com/search?q=" + url.QueryEscape(q)
}

// FlightsURL searches Google Flights between two cities.
func FlightsURL(origin, dest, depart, ret string) string {
	o, d := origin, dest
	if code, ok := IATA(origin); ok {
		o = code
	}
	if code, ok := IATA(dest); ok {
		d = code
	}
	q := "flights from " + o + " to " + d
	if depart != "" {
		q += " on " + depart
	}
	if ret != "" {
		q += " to " + ret
	}
	return "https://www.google.com/travel/flights?q=" + url.QueryEscape(q)
}

// FlightBookingURL is the link opened for a listed flight offer.
func FlightBookingURL(from, to, depart string) string {
	day, _, _ := strings.Cut(depart, "T")
	return "https://www.google.com/travel/flights?q=" + url.QueryEscape(from+" to "+to+" on "+day)
}

// BusURLs returns the MakeMyTrip route page and a Google search.
func BusURLs(origin, dest, depart string) (makeMyTrip, google string) {
	makeMyTrip = "https://www.makemytrip.com/bus-tickets/" + Slug(origin) + "-" + Slug(dest) + "-bus-ticket-booking.html"
	q := "buses from " + origin + " to " + dest
	if depart != "" {
		q += " on " + depart
	}
	return makeMyTrip, GoogleSearchURL(q)
}

// TrainURLs returns a Google search and the ixigo route page.
func TrainURLs(origin, dest, depart string) (google, ixigo string) {
	q := "trains from " + origin + " to " + dest
	if depart != "" {
		q += " " + depart
	}
	return GoogleSearchURL(q), "https://www.ixigo.com/trains/" + url.QueryEscape(origin+"-to-"+dest)
}

// MovieURLs returns the BookMyShow city page, plus a search when a title is
// known.
func MovieURLs(city, title, when string) []string {
	urls := []string{"https://in.bookmyshow.com/explore/movies-" + Slug(city)}
	if title != "" {
		q := "bookmyshow " + city + " " + title
		if when != "" {
			q += " " + when
		}
		urls = append(urls, GoogleSearchURL(q))
	}
	return urls
}

// HotelURLs returns Google Hotels and the MakeMyTrip city page.
func HotelURLs(city, checkIn, checkOut string) (google, makeMyTrip string) {
	q := "hotels in " + city
	if checkIn != "" {
		q += " from " + checkIn
	}
	if checkOut != "" {
		q += " to " + checkOut
	}
	return "https://www.google.com/travel/hotels?q=" + url.QueryEscape(q),
		"https://www.makemytrip.com/hotels/" + Slug(city) + "-hotels.html"
}

// PaymentURL builds the local sandbox payment page link.
func PaymentURL(base string, params map[string]string) string {
	v := url.Values{}
	for k, val := range params {
		v.Set(k, val)
	}
	return base + "?" + v.Encode()
}
