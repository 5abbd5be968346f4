package dialog

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type step int

const (
	askName step = iota + 1
	askAge
	confirm
	done
)

func testFlow(completed *int) Flow[step] {
	return Flow[step]{
		Done: done,
		Steps: map[step]Step[step]{
			askName: {
				Enter: func(*State[step]) (string, error) { return "Name?", nil },
				Accept: func(text string, st *State[step]) (step, error) {
					n, err := Name(text)
					if err != nil {
						return 0, err
					}
					st.Slots["name"] = n
					return askAge, nil
				},
			},
			askAge: {
				Enter: func(*State[step]) (string, error) { return "Age?", nil },
				Accept: func(text string, st *State[step]) (step, error) {
					a, err := Age(text)
					if err != nil {
						return 0, err
					}
					st.Slots["age"] = a
					return confirm, nil
				},
			},
			confirm: {
				Enter: func(st *State[step]) (string, error) {
					return fmt.Sprintf("%s, %d. Confirm?", st.Slots["name"], st.Slots["age"]), nil
				},
				Accept: func(text string, _ *State[step]) (step, error) {
					switch {
					case IsYes(text):
						return done, nil
					case IsNo(text):
						return 0, ErrDeclined
					}
					return 0, &Invalid{Prompt: "Say confirm or no."}
				},
			},
		},
		Complete: func(st *State[step]) string {
			*completed++
			return "Booked " + st.Slots["name"].(string)
		},
		CancelReply: "Cancelled.",
	}
}

func TestMachineHappyPath(t *testing.T) {
	t.Parallel()

	var completed int
	m := NewMachine(testFlow(&completed), nil)

	turn := m.Start(askName, nil, nil)
	assert.Equal(t, Started, turn.Outcome)
	assert.Equal(t, "Name?", turn.Reply)
	require.True(t, m.Active())

	turn = m.Advance("Ada Lovelace")
	assert.Equal(t, Continued, turn.Outcome)
	assert.Equal(t, askAge, turn.Step)

	turn = m.Advance("she is 36")
	assert.Equal(t, confirm, turn.Step)
	assert.Equal(t, "Ada Lovelace, 36. Confirm?", turn.Reply)

	turn = m.Advance("yes please")
	assert.Equal(t, Completed, turn.Outcome)
	assert.Equal(t, "Booked Ada Lovelace", turn.Reply)
	assert.Equal(t, 1, completed)
	assert.False(t, m.Active())
	assert.Empty(t, m.State().Slots)
}

func TestMachineValidationKeepsStep(t *testing.T) {
	t.Parallel()

	var completed int
	m := NewMachine(testFlow(&completed), nil)
	m.Start(askName, nil, nil)

	turn := m.Advance("Ada")
	assert.Equal(t, Reprompted, turn.Outcome)
	assert.Equal(t, askName, m.State().Step)

	m.Advance("Ada Lovelace")
	turn = m.Advance("age is three hundred")
	assert.Equal(t, Reprompted, turn.Outcome)
	assert.Equal(t, "Please tell me the age in numbers.", turn.Reply)
	assert.Equal(t, askAge, m.State().Step)

	turn = m.Advance("300")
	assert.Equal(t, Reprompted, turn.Outcome)
	assert.Equal(t, askAge, m.State().Step)
}

func TestMachineCancelIsCheckedFirstAndIdempotent(t *testing.T) {
	t.Parallel()

	var completed int
	m := NewMachine(testFlow(&completed), nil)
	m.Start(askName, "subject", map[string]any{"seed": 1})

	turn := m.Advance("never mind")
	assert.Equal(t, Cancelled, turn.Outcome)
	assert.Equal(t, "Cancelled.", turn.Reply)
	assert.False(t, m.Active())
	assert.Nil(t, m.State().Subject)

	assert.Equal(t, Inactive, m.Advance("cancel").Outcome)
	assert.Equal(t, Inactive, m.Cancel().Outcome)
	assert.Zero(t, completed)
}

func TestMachineDeclineCancels(t *testing.T) {
	t.Parallel()

	var completed int
	m := NewMachine(testFlow(&completed), nil)
	m.Start(askName, nil, nil)
	m.Advance("Ada Lovelace")
	m.Advance("36")

	turn := m.Advance("no")
	assert.Equal(t, Cancelled, turn.Outcome)
	assert.False(t, m.Active())
	assert.Zero(t, completed)
}

func TestMachineHaltFromEnter(t *testing.T) {
	t.Parallel()

	flow := Flow[step]{
		Done: done,
		Steps: map[step]Step[step]{
			askName: {Enter: func(*State[step]) (string, error) {
				return "", &Halt{Reply: "Nothing to pick from."}
			}},
		},
	}
	m := NewMachine(flow, nil)
	turn := m.Start(askName, nil, nil)
	assert.Equal(t, Halted, turn.Outcome)
	assert.Equal(t, "Nothing to pick from.", turn.Reply)
	assert.False(t, m.Active())
}

func TestMachineUnknownErrorReprompts(t *testing.T) {
	t.Parallel()

	flow := Flow[step]{
		Done: done,
		Steps: map[step]Step[step]{
			askName: {Accept: func(string, *State[step]) (step, error) {
				return 0, errors.New("try again")
			}},
		},
	}
	m := NewMachine(flow, nil)
	m.Start(askName, nil, nil)
	turn := m.Advance("x")
	assert.Equal(t, Reprompted, turn.Outcome)
	assert.True(t, m.Active())
}

func TestInactiveAdvance(t *testing.T) {
	t.Parallel()

	var completed int
	m := NewMachine(testFlow(&completed), nil)
	assert.Equal(t, Inactive, m.Advance("Ada Lovelace").Outcome)
}

func TestMachineObserve(t *testing.T) {
	t.Parallel()

	var completed int
	var seen []string
	m := NewMachine(testFlow(&completed), nil)
	m.Observe(func(o Outcome) { seen = append(seen, o.String()) })

	m.Advance("ignored while inactive")
	m.Start(askName, nil, nil)
	m.Advance("Ada")
	m.Advance("Ada Lovelace")
	m.Advance("cancel")
	m.Cancel()

	assert.Equal(t, []string{"started", "reprompted", "continued", "cancelled"}, seen)
}

func TestIsCancel(t *testing.T) {
	t.Parallel()

	for _, phrase := range DefaultCancelPhrases {
		assert.True(t, IsCancel(phrase), phrase)
	}
	assert.True(t, IsCancel("Never mind that"))
	assert.True(t, IsCancel("please STOP BOOKING"))
	assert.False(t, IsCancel("cancellation policy"))
	assert.False(t, IsCancel("book a flight"))
}
