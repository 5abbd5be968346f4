// Package router sends resolved commands to task handlers.
package router

import (
	"context"
	log "log/slog"
	"strings"
	"time"

	"hark/internal/dialog"
	"hark/internal/domain"
	"hark/internal/ports"
)

// Handler runs one command and returns what to say back.
type Handler interface {
	Handle(ctx context.Context, cmd domain.Command) domain.Reply
}

// Conversation is a handler that may be waiting for the next turn.
// While Active, every command goes to Continue regardless of its intent.
type Conversation interface {
	Handler
	Active() bool
	Continue(ctx context.Context, cmd domain.Command) domain.Reply
}

// Observer is told which route served a command. Label is the intent
// label, route is the handler name or "none".
type Observer func(route, label string)

type named struct {
	name string
	conv Conversation
}

// Router is owned by the single command consumer. It is not safe for
// concurrent use.
type Router struct {
	handlers      map[string]Handler
	conversations []named
	events        ports.EventSink
	observe       Observer
	now           func() time.Time
}

type Option func(*Router)

func WithObserver(o Observer) Option { return func(r *Router) { r.observe = o } }

func WithClock(now func() time.Time) Option { return func(r *Router) { r.now = now } }

// New builds an empty router. A nil sink disables event logging.
func New(events ports.EventSink, opts ...Option) *Router {
	r := &Router{
		handlers: make(map[string]Handler),
		events:   events,
		now:      time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Handle maps an intent prefix (the label up to the first dot) to h.
func (r *Router) Handle(prefix string, h Handler) {
	r.handlers[prefix] = h
}

// Converse registers a conversation. Conversations are checked in the
// order they were registered, before any intent routing.
func (r *Router) Converse(name string, c Conversation) {
	r.conversations = append(r.conversations, named{name: name, conv: c})
}

// Active names the conversation that would take the next command.
func (r *Router) Active() (string, bool) {
	for _, n := range r.conversations {
		if n.conv.Active() {
			return n.name, true
		}
	}
	return "", false
}

// Route dispatches cmd. Unrouted commands are logged and produce an empty
// reply.
func (r *Router) Route(ctx context.Context, cmd domain.Command) domain.Reply {
	r.append(domain.CommandEvent("router", cmd))

	route, reply := r.dispatch(ctx, cmd)
	if r.observe != nil {
		r.observe(route, cmd.Intent.Label)
	}
	if reply.Text != "" {
		r.append(domain.Event{
			Kind:   domain.EventReply,
			Time:   r.now(),
			Source: route,
			Fields: map[string]any{"text": reply.Text, "intent": cmd.Intent.Label},
		})
	}
	return reply
}

func (r *Router) dispatch(ctx context.Context, cmd domain.Command) (string, domain.Reply) {
	for _, n := range r.conversations {
		if n.conv.Active() {
			log.Debug("Continuing conversation", "name", n.name, "text", cmd.RawText)
			return n.name, n.conv.Continue(ctx, cmd)
		}
	}

	if dialog.IsCancel(cmd.RawText) || dialog.IsCancel(cmd.CleanedText) {
		log.Debug("Cancel with no open conversation", "text", cmd.RawText)
		return "cancel", domain.Reply{}
	}

	label := strings.ToLower(cmd.Intent.Label)
	prefix, _, _ := strings.Cut(label, ".")
	h, ok := r.handlers[prefix]
	if !ok {
		log.Warn("No handler for intent", "intent", cmd.Intent.Label, "text", cmd.RawText)
		return "none", domain.Reply{}
	}
	log.Debug("Routing command", "intent", cmd.Intent.Label, "handler", prefix)
	return prefix, h.Handle(ctx, cmd)
}

func (r *Router) append(ev domain.Event) {
	if r.events != nil {
		r.events.Append(ev)
	}
}
