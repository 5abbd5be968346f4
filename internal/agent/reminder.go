package agent

import (
	"context"
	"fmt"
	log "log/slog"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"hark/internal/domain"
	"hark/internal/ports"
)

var (
	relativeRe = regexp.MustCompile(`\b(?:in|after|for)\s+(\d+)\s*(seconds?|secs?|s|minutes?|mins?|m|hours?|hrs?|h|days?|d)\b`)
	remindLead = regexp.MustCompile(`(?i)^\s*(?:please\s+)?(?:set\s+(?:a\s+)?reminder\s+(?:to\s+)?|remind\s+me\s+(?:to\s+)?)`)
)

var firePhrases = []string{
	"Reminder activated!",
	"Hey, your reminder is up.",
	"Time's up, check your task!",
	"Your reminder just went off!",
}

// Stopper is the part of *time.Timer the reminders keep.
type Stopper interface {
	Stop() bool
}

// Scheduler runs f after d. time.AfterFunc satisfies it.
type Scheduler func(d time.Duration, f func()) Stopper

// Reminders schedules spoken reminders on independent timers. Each timer
// fires with the text captured when it was scheduled.
type Reminders struct {
	speaker  ports.Speaker
	events   ports.EventSink
	parse    TimeParser
	now      func() time.Time
	schedule Scheduler

	mu     sync.Mutex
	timers map[string]Stopper
}

type ReminderOption func(*Reminders)

func WithReminderClock(now func() time.Time) ReminderOption {
	return func(r *Reminders) { r.now = now }
}

func WithScheduler(s Scheduler) ReminderOption {
	return func(r *Reminders) { r.schedule = s }
}

func NewReminders(speaker ports.Speaker, events ports.EventSink, parse TimeParser, opts ...ReminderOption) *Reminders {
	r := &Reminders{
		speaker: speaker,
		events:  events,
		parse:   parse,
		now:     time.Now,
		schedule: func(d time.Duration, f func()) Stopper {
			return time.AfterFunc(d, f)
		},
		timers: make(map[string]Stopper),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Reminders) Handle(_ context.Context, cmd domain.Command) domain.Reply {
	text := strings.TrimSpace(remindLead.ReplaceAllString(cmd.RawText, ""))
	if text == "" {
		text = "reminder"
	}
	now := r.now()
	when, ok := r.when(cmd, now)
	if !ok {
		log.Info("Reminder time not understood", "text", cmd.RawText)
		return domain.Say("I couldn't understand when to set the reminder.")
	}

	id := uuid.NewString()
	delay := when.Sub(now)
	if delay <= 0 {
		r.fire(id, text)
		return domain.Say("That time has already passed, so here it is now.")
	}

	r.mu.Lock()
	r.timers[id] = r.schedule(delay, func() { r.fire(id, text) })
	r.mu.Unlock()

	r.log(id, "scheduled", text, map[string]any{"when": when.Format(time.RFC3339)})
	log.Info("Reminder scheduled", "id", id, "when", when, "text", text)
	return domain.Say("Reminder scheduled for " + when.Format("2006-01-02 15:04:05") + ".")
}

// Pending is the number of reminders that have not fired yet.
func (r *Reminders) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

// Stop cancels every pending reminder.
func (r *Reminders) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.timers {
		t.Stop()
		delete(r.timers, id)
	}
}

// when tries a relative offset, then the resolved datetime slot if it is
// in the future, then the natural date parser.
func (r *Reminders) when(cmd domain.Command, now time.Time) (time.Time, bool) {
	t := strings.ToLower(cmd.RawText)
	if m := relativeRe.FindStringSubmatch(t); m != nil {
		n, _ := strconv.Atoi(m[1])
		var unit time.Duration
		switch m[2][0] {
		case 's':
			unit = time.Second
		case 'm':
			unit = time.Minute
		case 'h':
			unit = time.Hour
		default:
			unit = 24 * time.Hour
		}
		return now.Add(time.Duration(n) * unit), true
	}
	if v, ok := cmd.Slot(domain.SlotDatetime); ok {
		if ts, err := time.Parse(time.RFC3339, v); err == nil && ts.After(now.Add(2*time.Second)) {
			return ts, true
		}
	}
	if r.parse != nil {
		if ts, ok := r.parse(t); ok {
			return ts, true
		}
	}
	return time.Time{}, false
}

func (r *Reminders) fire(id, text string) {
	r.mu.Lock()
	delete(r.timers, id)
	r.mu.Unlock()

	msg := fmt.Sprintf("%s %s", firePhrases[rand.IntN(len(firePhrases))], text)
	if err := r.speaker.Speak(msg); err != nil {
		log.Warn("Failed to speak reminder", "id", id, "err", err)
	}
	r.log(id, "fired", text, nil)
}

func (r *Reminders) log(id, event, text string, extra map[string]any) {
	if r.events == nil {
		return
	}
	fields := map[string]any{"agent": "reminder", "event": event, "reminder_id": id, "text": text}
	for k, v := range extra {
		fields[k] = v
	}
	r.events.Append(domain.Event{Kind: domain.EventAgent, Time: r.now(), Source: "reminder", Fields: fields})
}
