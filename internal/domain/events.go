package domain

import "time"

// SessionMode is the state of the hotword gate.
type SessionMode string

const (
	ModeIdle   SessionMode = "idle"
	ModeActive SessionMode = "active"
)

// EventKind identifies an EventSink record.
type EventKind string

const (
	EventSessionWoke   EventKind = "session_woke"
	EventSessionSlept  EventKind = "session_slept"
	EventCommand       EventKind = "command"
	EventReply         EventKind = "reply"
	EventAgent         EventKind = "agent"
	EventTranscription EventKind = "transcription"
)

// Event is one append-only log record.
type Event struct {
	ID     string         `json:"id"`
	Kind   EventKind      `json:"kind"`
	Time   time.Time      `json:"ts"`
	Source string         `json:"source,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

// CommandEvent renders a resolved command as a log record.
func CommandEvent(source string, cmd Command) Event {
	return Event{
		Kind:   EventCommand,
		Time:   cmd.Timestamp,
		Source: source,
		Fields: map[string]any{
			"original_text": cmd.RawText,
			"cleaned_text":  cmd.CleanedText,
			"intent":        cmd.Intent,
			"entities":      cmd.Entities,
			"normalized":    cmd.Slots(),
		},
	}
}
