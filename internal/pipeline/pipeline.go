// Package pipeline connects capture, the session gate, intent resolution
// and routing. All input surfaces post into one queue that a single
// consumer drains, so session and dialog state have exactly one writer.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"strings"
	"sync"
	"time"

	"hark/internal/domain"
	"hark/internal/ports"
	"hark/internal/session"
)

// Source names used on inputs and events.
const (
	SourceMic   = "mic"
	SourceCtl   = "ctl"
	SourceBus   = "bus"
	SourceStdin = "stdin"
)

const (
	WakeReply    = "I'm listening."
	SleepReply   = "Going to sleep."
	FailureReply = "I ran into an error while handling that."
)

var ErrClosed = errors.New("pipeline closed")

// Input is one transcript or typed line. Direct input skips the session
// gate.
type Input struct {
	Text   string
	Source string
	Direct bool

	do func()
}

type Gate interface {
	Feed(text string) session.Decision
}

type Resolver interface {
	Resolve(ctx context.Context, text string) []domain.Command
}

type Router interface {
	Route(ctx context.Context, cmd domain.Command) domain.Reply
}

type Segmenter interface {
	Push(f domain.Frame) (domain.Utterance, bool)
}

// Ducker lowers other playback while a session is active.
type Ducker interface {
	Duck(ctx context.Context) error
	Restore(ctx context.Context) error
}

// Cue is played when a session starts.
type Cue interface {
	Play() error
}

// Observer receives pipeline counters.
type Observer interface {
	Utterance()
	Transcript(result string, took time.Duration)
	Session(mode domain.SessionMode)
}

type nopObserver struct{}

func (nopObserver) Utterance() {}

func (nopObserver) Transcript(string, time.Duration) {}

func (nopObserver) Session(domain.SessionMode) {}

// ReplyFunc sees every non-empty reply along with the input that caused it.
type ReplyFunc func(in Input, r domain.Reply)

type Option func(*Pipeline)

func WithSpeaker(s ports.Speaker) Option { return func(p *Pipeline) { p.speaker = s } }

func WithDucker(d Ducker) Option { return func(p *Pipeline) { p.ducker = d } }

func WithCue(c Cue) Option { return func(p *Pipeline) { p.cue = c } }

func WithObserver(o Observer) Option { return func(p *Pipeline) { p.obs = o } }

func WithReplies(f ReplyFunc) Option {
	return func(p *Pipeline) { p.replies = append(p.replies, f) }
}

func WithQueueSize(n int) Option { return func(p *Pipeline) { p.size = n } }

func WithTranscribeTimeout(d time.Duration) Option { return func(p *Pipeline) { p.timeout = d } }

type Pipeline struct {
	gate     Gate
	resolver Resolver
	router   Router
	events   ports.EventSink

	speaker ports.Speaker
	ducker  Ducker
	cue     Cue
	obs     Observer
	replies []ReplyFunc
	size    int
	timeout time.Duration

	queue  chan Input
	mu     sync.RWMutex
	closed bool
}

func New(gate Gate, resolver Resolver, router Router, events ports.EventSink, opts ...Option) *Pipeline {
	p := &Pipeline{
		gate:     gate,
		resolver: resolver,
		router:   router,
		events:   events,
		obs:      nopObserver{},
		size:     32,
		timeout:  30 * time.Second,
	}
	for _, o := range opts {
		o(p)
	}
	p.queue = make(chan Input, p.size)
	return p
}

// Submit queues in for the consumer. It blocks while the queue is full.
func (p *Pipeline) Submit(ctx context.Context, in Input) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	select {
	case p.queue <- in:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops intake. Run drains what is already queued and returns.
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
}

// Run is the single consumer. It returns nil once the queue has been
// closed and drained, or the context error.
func (p *Pipeline) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case in, ok := <-p.queue:
			if !ok {
				return nil
			}
			p.handle(ctx, in)
		}
	}
}

// Do runs fn on the consumer goroutine and waits for it to finish. Use it
// to read router or dialog state from other goroutines.
func (p *Pipeline) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if err := p.Submit(ctx, Input{do: func() { defer close(done); fn() }}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pipeline) handle(ctx context.Context, in Input) []domain.Reply {
	if in.do != nil {
		in.do()
		return nil
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil
	}

	if !in.Direct {
		switch p.gate.Feed(text) {
		case session.Ignored:
			log.Debug("Idle, ignoring", "text", text)
			return nil
		case session.Woke:
			p.transition(ctx, in, domain.EventSessionWoke, domain.ModeActive)
			return p.reply(in, domain.Say(WakeReply))
		case session.Slept:
			p.transition(ctx, in, domain.EventSessionSlept, domain.ModeIdle)
			return p.reply(in, domain.Say(SleepReply))
		}
	}

	var out []domain.Reply
	for _, cmd := range p.resolver.Resolve(ctx, text) {
		out = append(out, p.reply(in, p.route(ctx, cmd))...)
	}
	return out
}

// route runs one command. A panicking handler logs and answers with
// FailureReply instead of killing the consumer.
func (p *Pipeline) route(ctx context.Context, cmd domain.Command) (r domain.Reply) {
	defer func() {
		if v := recover(); v != nil {
			log.Error("Handler panicked", "intent", cmd.Intent.Label, "panic", v)
			r = domain.Say(FailureReply)
		}
	}()
	return p.router.Route(ctx, cmd)
}

func (p *Pipeline) transition(ctx context.Context, in Input, kind domain.EventKind, mode domain.SessionMode) {
	p.obs.Session(mode)
	p.append(domain.Event{Kind: kind, Source: in.Source, Fields: map[string]any{"text": in.Text}})

	if mode == domain.ModeActive {
		if p.cue != nil {
			if err := p.cue.Play(); err != nil {
				log.Debug("Failed to play cue", "err", err)
			}
		}
		if p.ducker != nil {
			if err := p.ducker.Duck(ctx); err != nil {
				log.Warn("Failed to duck playback", "err", err)
			}
		}
		return
	}
	if p.ducker != nil {
		if err := p.ducker.Restore(ctx); err != nil {
			log.Warn("Failed to restore playback", "err", err)
		}
	}
}

func (p *Pipeline) reply(in Input, r domain.Reply) []domain.Reply {
	if r.Text == "" {
		return nil
	}
	log.Info("Reply", "text", r.Text, "source", in.Source)
	if p.speaker != nil {
		if err := p.speaker.Speak(r.Text); err != nil {
			log.Warn("Failed to speak", "err", err)
		}
	}
	for _, f := range p.replies {
		f(in, r)
	}
	return []domain.Reply{r}
}

func (p *Pipeline) append(ev domain.Event) {
	if p.events != nil {
		p.events.Append(ev)
	}
}

// Capture is the capture worker: it reads frames, segments them, and
// submits each non-empty transcript. It returns nil when a finite source
// is exhausted and an error when the source fails.
func (p *Pipeline) Capture(ctx context.Context, src ports.FrameSource, seg Segmenter, tr ports.Transcriber) error {
	for {
		f, err := src.ReadFrame(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("capture: %w", err)
		}

		u, ok := seg.Push(f)
		if !ok {
			continue
		}
		p.obs.Utterance()

		text := p.transcribe(ctx, tr, u)
		if text == "" {
			continue
		}
		if err := p.Submit(ctx, Input{Text: text, Source: SourceMic}); err != nil {
			if errors.Is(err, ErrClosed) {
				return nil
			}
			return err
		}
	}
}

func (p *Pipeline) transcribe(ctx context.Context, tr ports.Transcriber, u domain.Utterance) string {
	tctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	text, err := tr.Transcribe(tctx, u.Samples)
	took := time.Since(start)
	if err != nil {
		p.obs.Transcript("error", took)
		log.Warn("Transcription failed", "err", err, "duration", u.Duration())
		return ""
	}

	text = strings.TrimSpace(text)
	if text == "" {
		p.obs.Transcript("empty", took)
		return ""
	}
	p.obs.Transcript("ok", took)
	log.Info("Heard", "text", text, "took", took)
	p.append(domain.Event{
		Kind:   domain.EventTranscription,
		Source: SourceMic,
		Fields: map[string]any{"text": text, "seconds": u.Duration().Seconds()},
	})
	return text
}
