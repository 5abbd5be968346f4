package domain

import (
	"maps"
	"time"
)

// Frame is one fixed-size block of mono PCM captured from a FrameSource.
type Frame struct {
	Samples    []float32
	SampleRate int
}

// Duration of the frame at its sample rate.
func (f Frame) Duration() time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(f.Samples)) * time.Second / time.Duration(f.SampleRate)
}

// Utterance is a contiguous spoken unit assembled by the segmenter.
type Utterance struct {
	Samples    []float32
	SampleRate int
}

func (u Utterance) Duration() time.Duration {
	if u.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(u.Samples)) * time.Second / time.Duration(u.SampleRate)
}

// Intent labels produced by the resolver.
const (
	IntentUnknown         = "unknown"
	IntentBookingSearch   = "booking.search"
	IntentBrowserControl  = "browser.control"
	IntentFileManage      = "file.manage"
	IntentFileMissingName = "file.manage.missing_filename"
	IntentMailRead        = "mail.read"
	IntentAppOpen         = "app.open"
	IntentReminderCreate  = "reminder.create"
	IntentProcessMonitor  = "process.monitor"
	IntentSleepControl    = "sleep.control"
	IntentWebSearch       = "web.search"
	IntentMusicPlay       = "music.play"
	IntentClose           = "close"
)

type Intent struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Entity is one span found by the entity extractor.
type Entity struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Slot keys filled by normalization.
const (
	SlotDatetime      = "datetime"
	SlotApplication   = "application"
	SlotFile          = "file"
	SlotDirectory     = "directory"
	SlotSearchQuery   = "search_query"
	SlotGotoTarget    = "goto_target"
	SlotBrowserAction = "browser_action"
	SlotOption        = "option"
	SlotContent       = "content"
)

// Command is the resolved form of one subcommand. It is not mutated after
// the resolver returns it.
type Command struct {
	RawText     string    `json:"original_text"`
	CleanedText string    `json:"cleaned_text"`
	Intent      Intent    `json:"intent"`
	Entities    []Entity  `json:"entities"`
	slots       map[string]string
	Timestamp   time.Time `json:"ts"`
}

func NewCommand(raw, cleaned string, intent Intent, entities []Entity, slots map[string]string, ts time.Time) Command {
	return Command{
		RawText:     raw,
		CleanedText: cleaned,
		Intent:      intent,
		Entities:    append([]Entity(nil), entities...),
		slots:       maps.Clone(slots),
		Timestamp:   ts,
	}
}

// Slot returns a normalized slot value.
func (c Command) Slot(key string) (string, bool) {
	v, ok := c.slots[key]
	return v, ok
}

// Slots returns a copy of the normalized slot map.
func (c Command) Slots() map[string]string {
	out := maps.Clone(c.slots)
	if out == nil {
		out = map[string]string{}
	}
	return out
}

// Reply is what a handler wants said back to the user.
type Reply struct {
	Text string `json:"text"`
}

func Say(text string) Reply { return Reply{Text: text} }
