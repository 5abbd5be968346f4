package ports

import (
	"context"
	"time"

	"hark/internal/domain"
)

// FrameSource yields fixed-duration frames from a capture device or file.
// ReadFrame returns io.EOF when a finite source is exhausted.
type FrameSource interface {
	ReadFrame(ctx context.Context) (domain.Frame, error)
	Close() error
}

// Transcriber converts utterance samples to text. Empty text is not an error.
type Transcriber interface {
	Transcribe(ctx context.Context, samples []float32) (string, error)
}

// EntityExtractor finds labelled spans. A missing backend returns nil.
type EntityExtractor interface {
	ExtractEntities(ctx context.Context, text string) []domain.Entity
}

// Enhancer is a free-text transcript cleanup backend.
type Enhancer interface {
	Enhance(ctx context.Context, text string) (string, error)
}

// Refinement is the answer of an intent refinement backend.
type Refinement struct {
	Intent         string  `json:"intent"`
	Confidence     float64 `json:"confidence"`
	NormalizedText string  `json:"normalized_text,omitempty"`
}

// Refiner classifies text the local rules could not.
type Refiner interface {
	Refine(ctx context.Context, text string) (Refinement, error)
}

// KeepAwake holds or releases a system sleep inhibitor.
type KeepAwake interface {
	Hold() error
	Release() error
	Held() bool
}

// Speaker renders replies to the user.
type Speaker interface {
	Speak(text string) error
}

// Desktop executes best-effort desktop actions.
type Desktop interface {
	OpenURL(url string) error
	OpenPath(path string) error
	// Launch starts the first available program from candidates and
	// returns its name.
	Launch(candidates []string, args ...string) (string, error)
	KillByName(name string) error
	SendKeys(keys string) error
	TypeText(text string) error
}

// ProcessInfo is a snapshot of one running process.
type ProcessInfo struct {
	PID    int32
	Name   string
	CPU    float64
	Memory float32
}

// SystemLoad is a coarse snapshot of machine usage.
type SystemLoad struct {
	CPUPercent    float64
	MemoryPercent float64
}

// ProcessInspector reads and signals local processes.
type ProcessInspector interface {
	Processes(ctx context.Context) ([]ProcessInfo, error)
	Load(ctx context.Context) (SystemLoad, error)
	Kill(ctx context.Context, pid int32) error
}

// FlightQuery describes one flight search.
type FlightQuery struct {
	Origin      string
	Destination string
	Depart      string
	Return      string
	Adults      int
	Currency    string
	Max         int
}

// FlightSearcher queries a booking provider.
type FlightSearcher interface {
	SearchFlights(ctx context.Context, q FlightQuery) ([]domain.FlightOffer, error)
}

// MailSummary is one message header.
type MailSummary struct {
	ID      string
	From    string
	Subject string
	Snippet string
	Date    time.Time
}

// Mailbox lists and reads messages.
type Mailbox interface {
	Recent(ctx context.Context, n int) ([]MailSummary, error)
	Body(ctx context.Context, id string) (string, error)
}

// EventSink is a durable append-only log. Append must be safe for
// concurrent producers.
type EventSink interface {
	Append(ev domain.Event)
}
