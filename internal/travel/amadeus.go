package travel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"hark/internal/domain"
	"hark/internal/ports"
)

const DefaultAmadeusURL = "https://test.api.amadeus.com"

var (
	ErrNoCredentials = errors.New("amadeus credentials not configured")
	ErrProvider      = errors.New("flight provider error")
)

type AmadeusConfig struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
}

// Amadeus searches flight offers on the Amadeus self-service API. Tokens
// are fetched with the client credentials grant and cached until expiry.
type Amadeus struct {
	base   string
	client *http.Client
	cb     *gobreaker.CircuitBreaker
}

// NewAmadeus builds a client. A nil transport uses http.DefaultClient for
// both the token and the search calls.
func NewAmadeus(cfg AmadeusConfig, transport *http.Client) (*Amadeus, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, ErrNoCredentials
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultAmadeusURL
	}

	cc := clientcredentials.Config{
		ClientID:     cfg.APIKey,
		ClientSecret: cfg.APISecret,
		TokenURL:     base + "/v1/security/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	ctx := context.Background()
	if transport != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, transport)
	}

	return &Amadeus{
		base:   base,
		client: cc.Client(ctx),
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "amadeus",
			Timeout: time.Minute,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			},
		}),
	}, nil
}

type offersResponse struct {
	Data []struct {
		ID          string `json:"id"`
		Itineraries []struct {
			Duration string `json:"duration"`
			Segments []struct {
				Departure   endpoint `json:"departure"`
				Arrival     endpoint `json:"arrival"`
				CarrierCode string   `json:"carrierCode"`
				Number      string   `json:"number"`
			} `json:"segments"`
		} `json:"itineraries"`
		Price struct {
			Currency   string `json:"currency"`
			Total      string `json:"total"`
			GrandTotal string `json:"grandTotal"`
		} `json:"price"`
	} `json:"data"`
}

type endpoint struct {
	IATACode string `json:"iataCode"`
	At       string `json:"at"`
}

func (a *Amadeus) SearchFlights(ctx context.Context, q ports.FlightQuery) ([]domain.FlightOffer, error) {
	params := url.Values{}
	params.Set("originLocationCode", q.Origin)
	params.Set("destinationLocationCode", q.Destination)
	params.Set("departureDate", q.Depart)
	params.Set("adults", strconv.Itoa(max(q.Adults, 1)))
	if q.Currency != "" {
		params.Set("currencyCode", q.Currency)
	}
	if q.Max > 0 {
		params.Set("max", strconv.Itoa(q.Max))
	}
	if q.Return != "" {
		params.Set("returnDate", q.Return)
	}

	out, err := a.cb.Execute(func() (interface{}, error) {
		return a.fetch(ctx, a.base+"/v2/shopping/flight-offers?"+params.Encode())
	})
	if err != nil {
		return nil, err
	}
	resp := out.(offersResponse)

	offers := make([]domain.FlightOffer, 0, len(resp.Data))
	for _, d := range resp.Data {
		if len(d.Itineraries) == 0 || len(d.Itineraries[0].Segments) == 0 {
			continue
		}
		it := d.Itineraries[0]
		first, last := it.Segments[0], it.Segments[len(it.Segments)-1]
		price := d.Price.Total
		if price == "" {
			price = d.Price.GrandTotal
		}
		cur := d.Price.Currency
		if cur == "" {
			cur = q.Currency
		}
		offers = append(offers, domain.FlightOffer{
			OfferID:  d.ID,
			From:     q.Origin,
			To:       q.Destination,
			Depart:   first.Departure.At,
			Arrive:   last.Arrival.At,
			Duration: it.Duration,
			Stops:    len(it.Segments) - 1,
			Price:    price,
			Currency: cur,
			Airline:  first.CarrierCode,
			FlightNo: first.Number,
		})
		if q.Max > 0 && len(offers) == q.Max {
			break
		}
	}
	return offers, nil
}

func (a *Amadeus) fetch(ctx context.Context, u string) (offersResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return offersResponse{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := a.client.Do(req)
	if err != nil {
		return offersResponse{}, fmt.Errorf("%w: %w", ErrProvider, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return offersResponse{}, fmt.Errorf("%w: status %d: %s", ErrProvider, res.StatusCode, strings.TrimSpace(string(body)))
	}

	var out offersResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return offersResponse{}, fmt.Errorf("%w: decode: %w", ErrProvider, err)
	}
	return out, nil
}
