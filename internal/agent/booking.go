package agent

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"hark/internal/dialog"
	"hark/internal/domain"
	"hark/internal/ports"
	"hark/internal/travel"
)

type bookStep int

const (
	bookAskName bookStep = iota + 1
	bookAskAge
	bookAskGender
	bookConfirm
	bookPayment
	bookDone
)

func (s bookStep) String() string {
	switch s {
	case bookAskName:
		return "ask_name"
	case bookAskAge:
		return "ask_age"
	case bookAskGender:
		return "ask_gender"
	case bookConfirm:
		return "confirm"
	case bookPayment:
		return "payment"
	case bookDone:
		return "done"
	}
	return "none"
}

const DefaultPaymentURL = "http://localhost:8000/sandbox/pay.html"

// BookingConfig tunes searches and the payment handoff.
type BookingConfig struct {
	Currency      string        `yaml:"currency"`
	MaxOffers     int           `yaml:"max_offers"`
	SearchTimeout time.Duration `yaml:"search_timeout"`
	PaymentURL    string        `yaml:"payment_url"`
	DefaultCity   string        `yaml:"default_city"`
}

func DefaultBookingConfig() BookingConfig {
	return BookingConfig{
		Currency:      "INR",
		MaxOffers:     10,
		SearchTimeout: 15 * time.Second,
		PaymentURL:    DefaultPaymentURL,
		DefaultCity:   "mumbai",
	}
}

// Ticket is the record of a completed booking.
type Ticket struct {
	Nonce     string
	PNR       string
	TicketNo  string
	BookedAt  string
	Passenger string
	Age       int
	Gender    string
	Flight    domain.FlightOffer
}

var paidRe = regexp.MustCompile(`\b(done|paid|completed?|finished)\b`)

// Booking searches travel options, keeps the last ResultSet and runs the
// flight booking dialog. It is owned by the command consumer goroutine.
type Booking struct {
	cfg      BookingConfig
	desktop  ports.Desktop
	searcher ports.FlightSearcher
	parse    TimeParser
	now      func() time.Time
	nonce    func() uuid.UUID

	results domain.ResultSet
	machine *dialog.Machine[bookStep]
	last    *Ticket
}

type BookingOption func(*Booking)

func WithTimeParser(p TimeParser) BookingOption { return func(b *Booking) { b.parse = p } }

func WithBookingClock(now func() time.Time) BookingOption { return func(b *Booking) { b.now = now } }

func WithNonce(f func() uuid.UUID) BookingOption { return func(b *Booking) { b.nonce = f } }

// NewBooking builds the agent. A nil searcher falls back to Google Flights
// links.
func NewBooking(cfg BookingConfig, desktop ports.Desktop, searcher ports.FlightSearcher, opts ...BookingOption) *Booking {
	b := &Booking{
		cfg:      cfg,
		desktop:  desktop,
		searcher: searcher,
		now:      time.Now,
		nonce:    uuid.New,
	}
	for _, o := range opts {
		o(b)
	}
	b.machine = dialog.NewMachine(b.flow(), nil)
	return b
}

func (b *Booking) Active() bool { return b.machine.Active() }

// OnOutcome reports every dialog turn outcome to fn.
func (b *Booking) OnOutcome(fn func(dialog.Outcome)) { b.machine.Observe(fn) }

func (b *Booking) Step() string { return b.machine.State().Step.String() }

// Results is the current option list.
func (b *Booking) Results() domain.ResultSet { return b.results }

// LastTicket is the most recent completed booking, if any.
func (b *Booking) LastTicket() (Ticket, bool) {
	if b.last == nil {
		return Ticket{}, false
	}
	return *b.last, true
}

func (b *Booking) Handle(ctx context.Context, cmd domain.Command) domain.Reply {
	if b.machine.Active() {
		return b.Continue(ctx, cmd)
	}
	text := commandText(cmd)

	if verb, idx, ok := optionCommand(text); ok {
		if verb == "book" {
			return b.startBooking(idx)
		}
		return b.openOption(idx)
	}

	dt, _ := cmd.Slot(domain.SlotDatetime)
	q := parseBookingQuery(text, dt, b.now(), b.parse)
	log.Debug("Booking query", "mode", q.Mode, "origin", q.Origin, "dest", q.Destination, "city", q.City, "depart", q.Depart)

	switch {
	case q.Mode == modeFlight && q.Origin != "" && q.Destination != "":
		return b.searchFlights(ctx, q)
	case q.Mode == modeBus && q.Origin != "" && q.Destination != "":
		mmt, g := travel.BusURLs(q.Origin, q.Destination, q.Depart)
		return b.list("bus", domain.NewResultSet(
			domain.Result{Kind: domain.KindBusLink, Title: fmt.Sprintf("Bus results on MakeMyTrip: %s to %s", titleCase(q.Origin), titleCase(q.Destination)), URL: mmt, From: q.Origin, To: q.Destination},
			domain.Result{Kind: domain.KindSearchLink, Title: fmt.Sprintf("Google search: buses from %s to %s", q.Origin, q.Destination), URL: g, From: q.Origin, To: q.Destination},
		))
	case q.Mode == modeTrain && q.Origin != "" && q.Destination != "":
		g, ixigo := travel.TrainURLs(q.Origin, q.Destination, q.Depart)
		return b.list("train", domain.NewResultSet(
			domain.Result{Kind: domain.KindTrainLink, Title: fmt.Sprintf("Trains on ixigo: %s to %s", titleCase(q.Origin), titleCase(q.Destination)), URL: ixigo, From: q.Origin, To: q.Destination},
			domain.Result{Kind: domain.KindSearchLink, Title: fmt.Sprintf("Google search: trains from %s to %s", q.Origin, q.Destination), URL: g, From: q.Origin, To: q.Destination},
		))
	case q.Mode == modeMovie:
		city := firstNonEmpty(q.City, q.Origin, q.Destination, b.cfg.DefaultCity)
		urls := travel.MovieURLs(city, q.Title, q.Depart)
		items := []domain.Result{{Kind: domain.KindMovieLink, Title: "Movies on BookMyShow in " + titleCase(city), URL: urls[0]}}
		if len(urls) > 1 {
			items = append(items, domain.Result{Kind: domain.KindSearchLink, Title: fmt.Sprintf("Google search: %s in %s", q.Title, city), URL: urls[1]})
		}
		return b.list("movie", domain.NewResultSet(items...))
	case q.Mode == modeHotel && firstNonEmpty(q.City, q.Destination, q.Origin) != "":
		city := firstNonEmpty(q.City, q.Destination, q.Origin)
		gh, mmt := travel.HotelURLs(city, q.Depart, q.Return)
		return b.list("hotel", domain.NewResultSet(
			domain.Result{Kind: domain.KindHotelLink, Title: "Google Hotels: hotels in " + titleCase(city), URL: gh},
			domain.Result{Kind: domain.KindHotelLink, Title: "Hotels on MakeMyTrip in " + titleCase(city), URL: mmt},
		))
	}

	return b.openURLs(travel.GoogleSearchURL(strings.TrimSpace(cmd.RawText)))
}

// Continue feeds one answer to the active booking dialog. Every input is a
// dialog turn, including text that looks like a new search; only another
// "book option" request is refused.
func (b *Booking) Continue(_ context.Context, cmd domain.Command) domain.Reply {
	text := strings.TrimSpace(cmd.RawText)
	if verb, _, ok := optionCommand(text); ok && verb == "book" && !b.machine.IsCancel(text) {
		return domain.Say("A booking flow is already in progress. Finish it or say cancel.")
	}
	turn := b.machine.Advance(text)
	log.Debug("Booking dialog turn", "outcome", turn.Outcome, "step", turn.Step)
	return domain.Say(turn.Reply)
}

func (b *Booking) searchFlights(ctx context.Context, q bookingQuery) domain.Reply {
	if q.Depart == "" {
		q.Depart = b.now().Format(isoDay)
	}
	fallback := travel.FlightsURL(q.Origin, q.Destination, q.Depart, q.Return)
	if b.searcher == nil {
		r := b.openURLs(fallback)
		return domain.Say("Flight search is not configured. Opening Google Flights instead. " + r.Text)
	}

	ctx, cancel := context.WithTimeout(ctx, b.cfg.SearchTimeout)
	defer cancel()

	from, to := travel.AirportCode(q.Origin), travel.AirportCode(q.Destination)
	offers, err := b.searcher.SearchFlights(ctx, ports.FlightQuery{
		Origin:      from,
		Destination: to,
		Depart:      q.Depart,
		Return:      q.Return,
		Adults:      1,
		Currency:    b.cfg.Currency,
		Max:         b.cfg.MaxOffers,
	})
	if err != nil {
		log.Error("Flight search failed", "from", from, "to", to, "err", err)
		r := b.openURLs(fallback)
		return domain.Say("Flight search failed; opening Google Flights as fallback. " + r.Text)
	}
	if len(offers) == 0 {
		return domain.Say("No flights found for that route and date.")
	}

	items := make([]domain.Result, 0, len(offers))
	for i, o := range offers {
		items = append(items, domain.Result{
			Kind:   domain.KindFlight,
			Title:  fmt.Sprintf("%s%s %s to %s, %s", o.Airline, o.FlightNo, o.From, o.To, o.PriceString()),
			URL:    travel.FlightBookingURL(o.From, o.To, o.Depart),
			From:   o.From,
			To:     o.To,
			Flight: &o,
		})
		log.Info("Flight option", "n", i+1, "depart", o.Depart, "arrive", o.Arrive, "duration", o.Duration,
			"price", o.PriceString(), "stops", o.Stops, "carrier", o.Airline)
	}
	b.results = domain.NewResultSet(items...)
	return domain.Say(fmt.Sprintf("I've listed %d flight options. You can say 'open option 1' to view it in browser, or 'book option 1' to book here.", len(items)))
}

func (b *Booking) list(kind string, rs domain.ResultSet) domain.Reply {
	b.results = rs
	for i, r := range rs.Items() {
		log.Info("Booking option", "n", i+1, "kind", r.Kind, "title", r.Title, "url", r.URL)
	}
	return domain.Say(fmt.Sprintf("I found %d %s options. Say 'open option 1' or 'open option 2'.", rs.Len(), kind))
}

func (b *Booking) openOption(index int) domain.Reply {
	r, err := b.results.SelectForOpen(index)
	switch {
	case errors.Is(err, domain.ErrNoResults):
		return domain.Say("No options available.")
	case errors.Is(err, domain.ErrOutOfRange):
		return domain.Say("That option number is out of range.")
	case errors.Is(err, domain.ErrNoLink):
		return domain.Say("This option does not have a booking link.")
	}
	if err := b.desktop.OpenURL(r.URL); err != nil {
		log.Error("Failed to open option", "url", r.URL, "err", err)
		return domain.Say("Couldn't open the browser. Link printed in the terminal.")
	}
	return domain.Say(fmt.Sprintf("Opening option %d in your browser.", index))
}

func (b *Booking) startBooking(index int) domain.Reply {
	r, err := b.results.SelectForBooking(index)
	switch {
	case errors.Is(err, domain.ErrNoResults):
		return domain.Say("I don't have any options cached. Ask me to search flights first.")
	case errors.Is(err, domain.ErrOutOfRange):
		return domain.Say("That option number is out of range.")
	case errors.Is(err, domain.ErrUnsupported):
		sel, _ := b.results.Select(index)
		return domain.Say(fmt.Sprintf("Booking flow is only implemented for flights, not %s options.", sel.Kind))
	case err != nil:
		return domain.Say("I can't book that option.")
	}
	turn := b.machine.Start(bookAskName, r, map[string]any{"index": index})
	return domain.Say(turn.Reply)
}

func (b *Booking) flow() dialog.Flow[bookStep] {
	return dialog.Flow[bookStep]{
		Done: bookDone,
		Steps: map[bookStep]dialog.Step[bookStep]{
			bookAskName: {
				Enter: func(st *dialog.State[bookStep]) (string, error) {
					f := flightOf(st)
					stops := "stops"
					if f.Stops == 1 {
						stops = "stop"
					}
					return fmt.Sprintf("Booking option %d: %s to %s, departing %s, price %s, %d %s. "+
						"Let's fill in the passenger details. What is the passenger's full name?",
						st.Slots["index"], f.From, f.To, orDash(f.Depart), f.PriceString(), f.Stops, stops), nil
				},
				Accept: func(text string, st *dialog.State[bookStep]) (bookStep, error) {
					name, err := dialog.Name(text)
					if err != nil {
						return 0, err
					}
					st.Slots["name"] = name
					return bookAskAge, nil
				},
			},
			bookAskAge: {
				Enter: func(st *dialog.State[bookStep]) (string, error) {
					return fmt.Sprintf("Got it. Passenger name is %s. What is the age?", st.Slots["name"]), nil
				},
				Accept: func(text string, st *dialog.State[bookStep]) (bookStep, error) {
					age, err := dialog.Age(text)
					if err != nil {
						return 0, err
					}
					st.Slots["age"] = age
					return bookAskGender, nil
				},
			},
			bookAskGender: {
				Enter: func(*dialog.State[bookStep]) (string, error) {
					return "Noted. What is the passenger's gender?", nil
				},
				Accept: func(text string, st *dialog.State[bookStep]) (bookStep, error) {
					g, err := dialog.Gender(text)
					if err != nil {
						return 0, err
					}
					st.Slots["gender"] = g
					return bookConfirm, nil
				},
			},
			bookConfirm: {
				Enter: b.enterConfirm,
				Accept: func(text string, _ *dialog.State[bookStep]) (bookStep, error) {
					switch {
					case dialog.IsYes(text):
						return bookPayment, nil
					case dialog.IsNo(text):
						return 0, dialog.ErrDeclined
					}
					return 0, &dialog.Invalid{Prompt: "Please say confirm to proceed, or no to cancel."}
				},
			},
			bookPayment: {
				Enter: b.enterPayment,
				Accept: func(text string, _ *dialog.State[bookStep]) (bookStep, error) {
					if paidRe.MatchString(strings.ToLower(text)) {
						return bookDone, nil
					}
					return 0, &dialog.Invalid{Prompt: "Payment is already in progress. Please complete it in your browser, then say done."}
				},
			},
		},
		Complete:    b.complete,
		CancelReply: "Okay, I've cancelled the booking flow.",
	}
}

func flightOf(st *dialog.State[bookStep]) domain.FlightOffer {
	if r, ok := st.Subject.(domain.Result); ok && r.Flight != nil {
		return *r.Flight
	}
	return domain.FlightOffer{}
}

// enterConfirm synthesizes the booking artifacts from a fresh nonce.
func (b *Booking) enterConfirm(st *dialog.State[bookStep]) (string, error) {
	n := b.nonce()
	st.Slots["nonce"] = n.String()
	st.Slots["pnr"] = pnrFrom(n)
	st.Slots["ticket_no"] = ticketFrom(n)
	st.Slots["booked_at"] = b.now().Format("2006-01-02 15:04")

	f := flightOf(st)
	return fmt.Sprintf("Flight %d %s to %s, depart %s, price %s. Passenger %s (%d yrs, %s). PNR %s, Ticket %s. "+
		"If this is correct, say confirm to proceed to payment, or say no to cancel.",
		st.Slots["index"], f.From, f.To, orDash(f.Depart), f.PriceString(),
		st.Slots["name"], st.Slots["age"], st.Slots["gender"], st.Slots["pnr"], st.Slots["ticket_no"]), nil
}

func (b *Booking) enterPayment(st *dialog.State[bookStep]) (string, error) {
	f := flightOf(st)
	offerID := f.OfferID
	if offerID == "" {
		offerID = fmt.Sprintf("sandbox-%d-%d", b.now().Unix(), st.Slots["index"])
	}
	amount := f.Price
	if amount == "" {
		amount = "N/A"
	}
	currency := f.Currency
	if currency == "" {
		currency = b.cfg.Currency
	}
	u := travel.PaymentURL(b.cfg.PaymentURL, map[string]string{
		"offer_id":       offerID,
		"amount":         amount,
		"currency":       currency,
		"passenger_name": st.Slots["name"].(string),
		"pnr":            st.Slots["pnr"].(string),
		"ticket_no":      st.Slots["ticket_no"].(string),
		"booked_at":      st.Slots["booked_at"].(string),
	})
	st.Slots["payment_url"] = u

	if err := b.desktop.OpenURL(u); err != nil {
		log.Error("Failed to open payment page", "url", u, "err", err)
		return "I couldn't open the browser. The sandbox payment URL is printed in the console. Say done when you have paid.", nil
	}
	return "Opened the sandbox payment page in your browser (simulated). Complete the process there, then say done.", nil
}

func (b *Booking) complete(st *dialog.State[bookStep]) string {
	t := Ticket{
		Nonce:     st.Slots["nonce"].(string),
		PNR:       st.Slots["pnr"].(string),
		TicketNo:  st.Slots["ticket_no"].(string),
		BookedAt:  st.Slots["booked_at"].(string),
		Passenger: st.Slots["name"].(string),
		Age:       st.Slots["age"].(int),
		Gender:    st.Slots["gender"].(string),
		Flight:    flightOf(st),
	}
	b.last = &t
	log.Info("Booking completed", "pnr", t.PNR, "ticket", t.TicketNo, "passenger", t.Passenger)
	return fmt.Sprintf("Booking complete. PNR %s, ticket %s. Have a good trip.", t.PNR, t.TicketNo)
}

func (b *Booking) openURLs(urls ...string) domain.Reply {
	opened := false
	for _, u := range urls {
		if err := b.desktop.OpenURL(u); err != nil {
			log.Error("Failed to open url", "url", u, "err", err)
			continue
		}
		opened = true
	}
	if !opened {
		return domain.Say("I couldn't open the browser. URLs are printed in the console.")
	}
	return domain.Say("Opened results in your browser.")
}

const pnrAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// pnrFrom derives a six character [A-Z0-9] record locator.
func pnrFrom(n uuid.UUID) string {
	var sb strings.Builder
	for i := 0; i < 6; i++ {
		sb.WriteByte(pnrAlphabet[int(n[i])%len(pnrAlphabet)])
	}
	return sb.String()
}

// ticketFrom derives a DDD-DDDDDDDDDD ticket number.
func ticketFrom(n uuid.UUID) string {
	prefix := 100 + (int(n[6])<<8|int(n[7]))%900
	var v uint64
	for _, x := range n[8:16] {
		v = v<<8 | uint64(x)
	}
	return strconv.Itoa(prefix) + "-" + strconv.FormatUint(1_000_000_000+v%9_000_000_000, 10)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
