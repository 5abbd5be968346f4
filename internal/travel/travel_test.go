package travel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hark/internal/ports"
)

func TestIATA(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Delhi":     "DEL",
		"bombay":    "BOM",
		"sinehagar": "SXR",
		"bangalor":  "BLR",
		"hydrabad":  "HYD",
	}
	for in, want := range cases {
		got, ok := IATA(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := IATA("paris")
	assert.False(t, ok)
	assert.Equal(t, "PAR", AirportCode("paris"))
	assert.Equal(t, "GOI", AirportCode("goa"))
}

func TestLinks(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "new-delhi", Slug(" New  Delhi! "))
	assert.Equal(t, "https://www.google.com/travel/flights?q=flights+from+DEL+to+BOM+on+2026-10-15", FlightsURL("delhi", "mumbai", "2026-10-15", ""))
	assert.Equal(t, "https://www.google.com/travel/flights?q=DEL+to+BOM+on+2026-10-15", FlightBookingURL("DEL", "BOM", "2026-10-15T06:00:00"))

	mmt, g := BusURLs("delhi", "jaipur", "")
	assert.Equal(t, "https://www.makemytrip.com/bus-tickets/delhi-jaipur-bus-ticket-booking.html", mmt)
	assert.Equal(t, "https://www.google.com/search?q=buses+from+delhi+to+jaipur", g)

	_, ixigo := TrainURLs("delhi", "agra", "")
	assert.Equal(t, "https://www.ixigo.com/trains/delhi-to-agra", ixigo)

	assert.Equal(t, []string{"https://in.bookmyshow.com/explore/movies-mumbai"}, MovieURLs("mumbai", "", ""))
	gh, mh := HotelURLs("goa", "", "")
	assert.Equal(t, "https://www.google.com/travel/hotels?q=hotels+in+goa", gh)
	assert.Equal(t, "https://www.makemytrip.com/hotels/goa-hotels.html", mh)

	pay := PaymentURL("http://localhost:8000/sandbox/pay.html", map[string]string{"pnr": "AB12CD", "amount": "4500"})
	assert.Equal(t, "http://localhost:8000/sandbox/pay.html?amount=4500&pnr=AB12CD", pay)
}

const offersJSON = `{"data":[
 {"id":"1","itineraries":[{"duration":"PT2H10M","segments":[
   {"departure":{"iataCode":"DEL","at":"2026-10-15T06:00:00"},"arrival":{"iataCode":"BOM","at":"2026-10-15T08:10:00"},"carrierCode":"AI","number":"101"}]}],
  "price":{"currency":"INR","total":"4500.00"}},
 {"id":"2","itineraries":[{"duration":"PT5H","segments":[
   {"departure":{"iataCode":"DEL","at":"2026-10-15T09:00:00"},"arrival":{"iataCode":"JAI","at":"2026-10-15T10:00:00"},"carrierCode":"6E","number":"22"},
   {"departure":{"iataCode":"JAI","at":"2026-10-15T12:00:00"},"arrival":{"iataCode":"BOM","at":"2026-10-15T14:00:00"},"carrierCode":"6E","number":"23"}]}],
  "price":{"currency":"INR","grandTotal":"3900.00"}}
]}`

func TestAmadeusSearch(t *testing.T) {
	t.Parallel()

	var tokens atomic.Int32
	var mu sync.Mutex
	var lastQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/security/oauth2/token":
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
			assert.Equal(t, "key", r.PostForm.Get("client_id"))
			tokens.Add(1)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":1799}`))
		case "/v2/shopping/flight-offers":
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			mu.Lock()
			lastQuery = r.URL.Query()
			mu.Unlock()
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(offersJSON))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	a, err := NewAmadeus(AmadeusConfig{APIKey: "key", APISecret: "secret", BaseURL: srv.URL}, srv.Client())
	require.NoError(t, err)

	q := ports.FlightQuery{Origin: "DEL", Destination: "BOM", Depart: "2026-10-15", Currency: "INR", Max: 10}
	offers, err := a.SearchFlights(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, offers, 2)

	mu.Lock()
	assert.Equal(t, "DEL", lastQuery.Get("originLocationCode"))
	assert.Equal(t, "1", lastQuery.Get("adults"))
	assert.Equal(t, "10", lastQuery.Get("max"))
	mu.Unlock()

	assert.Equal(t, "4500.00", offers[0].Price)
	assert.Equal(t, 0, offers[0].Stops)
	assert.Equal(t, "AI", offers[0].Airline)
	assert.Equal(t, "3900.00", offers[1].Price)
	assert.Equal(t, 1, offers[1].Stops)
	assert.Equal(t, "2026-10-15T14:00:00", offers[1].Arrive)

	_, err = a.SearchFlights(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, int32(1), tokens.Load())
}

func TestAmadeusErrors(t *testing.T) {
	t.Parallel()

	_, err := NewAmadeus(AmadeusConfig{}, nil)
	assert.ErrorIs(t, err, ErrNoCredentials)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/security/oauth2/token" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":1799}`))
			return
		}
		http.Error(w, `{"errors":[{"code":477}]}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	a, err := NewAmadeus(AmadeusConfig{APIKey: "k", APISecret: "s", BaseURL: srv.URL}, srv.Client())
	require.NoError(t, err)
	_, err = a.SearchFlights(context.Background(), ports.FlightQuery{Origin: "DEL", Destination: "BOM", Depart: "2026-10-15"})
	assert.ErrorIs(t, err, ErrProvider)
}
