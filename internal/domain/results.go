package domain

import (
	"errors"
	"fmt"
)

// ResultKind tags an entry of a ResultSet.
type ResultKind string

const (
	KindFlight     ResultKind = "flight"
	KindBusLink    ResultKind = "bus"
	KindTrainLink  ResultKind = "train"
	KindMovieLink  ResultKind = "movie"
	KindHotelLink  ResultKind = "hotel"
	KindSearchLink ResultKind = "search"
)

// Bookable reports whether the kind supports the conversational booking flow.
// Every kind supports "open".
func (k ResultKind) Bookable() bool {
	return k == KindFlight
}

var (
	ErrNoResults   = errors.New("no options available")
	ErrOutOfRange  = errors.New("option number is out of range")
	ErrUnsupported = errors.New("action not supported for this option")
	ErrNoLink      = errors.New("option has no link")
)

// FlightOffer is the payload of a KindFlight result.
type FlightOffer struct {
	OfferID  string
	From     string
	To       string
	Depart   string
	Arrive   string
	Duration string
	Stops    int
	Price    string
	Currency string
	Airline  string
	FlightNo string
}

func (f FlightOffer) PriceString() string {
	if f.Price == "" {
		return "N/A"
	}
	return f.Price + " " + f.Currency
}

// Result is one option of a ResultSet. Flight is set only for KindFlight.
type Result struct {
	Kind   ResultKind
	Title  string
	URL    string
	From   string
	To     string
	Flight *FlightOffer
}

// ResultSet is an ordered list of options addressed by 1-based index.
type ResultSet struct {
	items []Result
}

func NewResultSet(items ...Result) ResultSet {
	return ResultSet{items: append([]Result(nil), items...)}
}

func (rs ResultSet) Len() int { return len(rs.items) }

func (rs ResultSet) Items() []Result { return append([]Result(nil), rs.items...) }

// Select returns the option at 1-based index.
func (rs ResultSet) Select(index int) (Result, error) {
	if len(rs.items) == 0 {
		return Result{}, ErrNoResults
	}
	if index < 1 || index > len(rs.items) {
		return Result{}, fmt.Errorf("%w: %d of %d", ErrOutOfRange, index, len(rs.items))
	}
	return rs.items[index-1], nil
}

// SelectForBooking is Select plus the capability check for booking.
func (rs ResultSet) SelectForBooking(index int) (Result, error) {
	r, err := rs.Select(index)
	if err != nil {
		return Result{}, err
	}
	if !r.Kind.Bookable() || r.Flight == nil {
		return Result{}, fmt.Errorf("%w: cannot book a %s option", ErrUnsupported, r.Kind)
	}
	return r, nil
}

// SelectForOpen is Select plus a link check.
func (rs ResultSet) SelectForOpen(index int) (Result, error) {
	r, err := rs.Select(index)
	if err != nil {
		return Result{}, err
	}
	if r.URL == "" {
		return Result{}, ErrNoLink
	}
	return r, nil
}
