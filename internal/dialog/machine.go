// Package dialog is a small step machine for multi-turn slot filling.
package dialog

import (
	"errors"
	"maps"
	"regexp"
	"strings"
)

// Outcome says what one turn did to the dialog.
type Outcome int

const (
	Inactive Outcome = iota
	Started
	Continued
	Reprompted
	Completed
	Cancelled
	Halted
)

func (o Outcome) String() string {
	return [...]string{"inactive", "started", "continued", "reprompted", "completed", "cancelled", "halted"}[o]
}

// Turn is the result of Start or Advance.
type Turn[S comparable] struct {
	Outcome Outcome
	Step    S
	Reply   string
}

// State is the mutable dialog context. Slots hold accepted answers and
// Subject is whatever the dialog is about (a flight, a folder).
type State[S comparable] struct {
	Active  bool
	Step    S
	Slots   map[string]any
	Subject any
}

// Invalid rejects an answer. The step does not advance and Prompt is said.
type Invalid struct{ Prompt string }

func (e *Invalid) Error() string { return e.Prompt }

// Halt ends the dialog early with Reply, for example when a collaborator the
// step depends on has nothing to offer.
type Halt struct{ Reply string }

func (e *Halt) Error() string { return e.Reply }

// ErrDeclined ends the dialog as cancelled; used by confirm steps.
var ErrDeclined = errors.New("declined")

// Step is one node of a flow.
type Step[S comparable] struct {
	// Enter runs when the step becomes current and returns its prompt.
	Enter func(st *State[S]) (string, error)
	// Accept consumes one answer and names the next step.
	Accept func(text string, st *State[S]) (S, error)
}

// Flow is a static description of a dialog.
type Flow[S comparable] struct {
	Steps map[S]Step[S]
	// Done is the terminal step. Reaching it calls Complete.
	Done     S
	Complete func(st *State[S]) string
	// CancelReply is said when a cancel phrase ends the dialog.
	CancelReply string
}

// DefaultCancelPhrases end any active dialog.
var DefaultCancelPhrases = []string{"cancel", "stop booking", "abort booking", "never mind", "nevermind"}

var defaultCancel = phraseRe(DefaultCancelPhrases)

// IsCancel reports whether text contains one of DefaultCancelPhrases.
func IsCancel(text string) bool {
	return defaultCancel.MatchString(strings.ToLower(text))
}

// Machine drives one Flow. It is owned by a single goroutine.
type Machine[S comparable] struct {
	flow    Flow[S]
	cancel  *regexp.Regexp
	state   State[S]
	observe func(Outcome)
}

func NewMachine[S comparable](flow Flow[S], cancelPhrases []string) *Machine[S] {
	if cancelPhrases == nil {
		cancelPhrases = DefaultCancelPhrases
	}
	return &Machine[S]{flow: flow, cancel: phraseRe(cancelPhrases)}
}

func (m *Machine[S]) Active() bool { return m.state.Active }

// Observe registers f to be told the outcome of every Start, Advance and
// Cancel on an active dialog.
func (m *Machine[S]) Observe(f func(Outcome)) { m.observe = f }

func (m *Machine[S]) note(t Turn[S]) Turn[S] {
	if m.observe != nil && t.Outcome != Inactive {
		m.observe(t.Outcome)
	}
	return t
}

// State returns a copy of the current state.
func (m *Machine[S]) State() State[S] {
	st := m.state
	st.Slots = maps.Clone(m.state.Slots)
	return st
}

// Start begins the flow at step with an optional subject and seed slots.
func (m *Machine[S]) Start(step S, subject any, seed map[string]any) Turn[S] {
	m.state = State[S]{Active: true, Step: step, Slots: map[string]any{}, Subject: subject}
	maps.Copy(m.state.Slots, seed)
	t := m.enter(step)
	if t.Outcome == Continued {
		t.Outcome = Started
	}
	return m.note(t)
}

// Advance feeds one answer. Cancel phrases are checked before the current
// step sees the text.
func (m *Machine[S]) Advance(text string) Turn[S] {
	return m.note(m.advance(text))
}

func (m *Machine[S]) advance(text string) Turn[S] {
	if !m.state.Active {
		return Turn[S]{Outcome: Inactive}
	}
	if m.IsCancel(text) {
		return m.cancelTurn()
	}

	cur := m.state.Step
	step, ok := m.flow.Steps[cur]
	if !ok || step.Accept == nil {
		return m.halt("I lost track of this conversation. Please start again.")
	}

	next, err := step.Accept(text, &m.state)
	if err != nil {
		var inv *Invalid
		var h *Halt
		switch {
		case errors.As(err, &inv):
			return Turn[S]{Outcome: Reprompted, Step: cur, Reply: inv.Prompt}
		case errors.As(err, &h):
			return m.halt(h.Reply)
		case errors.Is(err, ErrDeclined):
			return m.cancelTurn()
		default:
			return Turn[S]{Outcome: Reprompted, Step: cur, Reply: err.Error()}
		}
	}
	return m.enter(next)
}

// Cancel ends the dialog and clears its slots. Cancelling an inactive
// dialog is a no-op.
func (m *Machine[S]) Cancel() Turn[S] {
	return m.note(m.cancelTurn())
}

func (m *Machine[S]) cancelTurn() Turn[S] {
	if !m.state.Active {
		return Turn[S]{Outcome: Inactive}
	}
	m.Reset()
	reply := m.flow.CancelReply
	if reply == "" {
		reply = "Okay, cancelled."
	}
	return Turn[S]{Outcome: Cancelled, Reply: reply}
}

// Reset discards all dialog state.
func (m *Machine[S]) Reset() {
	m.state = State[S]{}
}

func (m *Machine[S]) IsCancel(text string) bool {
	return m.cancel != nil && m.cancel.MatchString(strings.ToLower(text))
}

func (m *Machine[S]) enter(step S) Turn[S] {
	if step == m.flow.Done {
		reply := ""
		if m.flow.Complete != nil {
			reply = m.flow.Complete(&m.state)
		}
		m.Reset()
		return Turn[S]{Outcome: Completed, Step: step, Reply: reply}
	}

	m.state.Step = step
	def, ok := m.flow.Steps[step]
	if !ok {
		return m.halt("I lost track of this conversation. Please start again.")
	}
	if def.Enter == nil {
		return Turn[S]{Outcome: Continued, Step: step}
	}
	prompt, err := def.Enter(&m.state)
	if err != nil {
		var h *Halt
		if errors.As(err, &h) {
			return m.halt(h.Reply)
		}
		return m.halt(err.Error())
	}
	return Turn[S]{Outcome: Continued, Step: step, Reply: prompt}
}

func (m *Machine[S]) halt(reply string) Turn[S] {
	m.Reset()
	return Turn[S]{Outcome: Halted, Reply: reply}
}

func phraseRe(phrases []string) *regexp.Regexp {
	if len(phrases) == 0 {
		return nil
	}
	quoted := make([]string, len(phrases))
	for i, p := range phrases {
		quoted[i] = regexp.QuoteMeta(strings.ToLower(p))
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
}
