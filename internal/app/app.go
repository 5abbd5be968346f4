// Package app wires configuration, collaborators and agents into a running
// pipeline. The binaries under cmd/ only choose sources and outputs.
package app

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"hark/internal/agent"
	"hark/internal/config"
	"hark/internal/ipc"
	"hark/internal/mail"
	"hark/internal/metrics"
	"hark/internal/nlu"
	"hark/internal/pipeline"
	"hark/internal/ports"
	"hark/internal/router"
	"hark/internal/session"
	"hark/internal/travel"
)

var ErrMissingDeps = errors.New("speaker, desktop, process and keep-awake collaborators are required")

// Deps are the side-effecting collaborators chosen by the binary. Speaker,
// Desktop, Procs and Awake are required; other nil fields disable the
// feature that needs them.
type Deps struct {
	Speaker ports.Speaker
	Desktop ports.Desktop
	Procs   ports.ProcessInspector
	Awake   ports.KeepAwake
	Events  ports.EventSink
	HTTP    *http.Client
	Metrics *metrics.Metrics
	Ducker  pipeline.Ducker
	Cue     pipeline.Cue
	Replies []pipeline.ReplyFunc
	Now     func() time.Time
}

type App struct {
	Pipeline  *pipeline.Pipeline
	Router    *router.Router
	Gate      *session.Gate
	Resolver  *nlu.Resolver
	Reminders *agent.Reminders
}

// Build assembles the app from cfg. Missing optional backends (LLM,
// Amadeus, mail) are logged and left out.
func Build(cfg config.Config, d Deps) (*App, error) {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Speaker == nil || d.Desktop == nil || d.Procs == nil || d.Awake == nil {
		return nil, ErrMissingDeps
	}

	dates := nlu.NewDateExtractor(d.Now)
	ropts := []nlu.Option{
		nlu.WithEntityExtractor(dates),
		nlu.WithTimeParser(dates.Parse),
		nlu.WithClock(d.Now),
	}
	if cfg.NLU.LLM && cfg.NLU.APIKey != "" {
		backend := nlu.NewOpenAIBackend(newOpenAI(cfg.NLU, d.HTTP), cfg.NLU.Model, cfg.NLU.CallTimeout)
		ropts = append(ropts, nlu.WithEnhancer(backend), nlu.WithRefiner(backend))
		log.Info("LLM stages enabled", "model", cfg.NLU.Model)
	}
	if d.Metrics != nil {
		ropts = append(ropts, nlu.WithObserver(d.Metrics.Intent))
	}
	resolver := nlu.NewResolver(cfg.Resolver(), ropts...)

	var ropt []router.Option
	if d.Metrics != nil {
		ropt = append(ropt, router.WithObserver(d.Metrics.Route))
	}
	rt := router.New(d.Events, append(ropt, router.WithClock(d.Now))...)

	folders := agent.DefaultFolders()

	files := agent.NewFiles(d.Desktop, folders)
	booking := agent.NewBooking(cfg.Booking, d.Desktop, flightSearcher(cfg.Amadeus, d.HTTP),
		agent.WithTimeParser(dates.Parse), agent.WithBookingClock(d.Now))
	mailAgent := agent.NewMail(mailbox(cfg.Mail, d.HTTP), cfg.Mail.Timeout)
	if d.Metrics != nil {
		files.OnOutcome(d.Metrics.DialogObserver("file"))
		booking.OnOutcome(d.Metrics.DialogObserver("booking"))
	}
	reminders := agent.NewReminders(d.Speaker, d.Events, dates.Parse, agent.WithReminderClock(d.Now))
	launcher := agent.NewLauncher(d.Desktop, folders)

	rt.Converse("file", files)
	rt.Converse("booking", booking)
	rt.Converse("mail", mailAgent)

	rt.Handle("file", files)
	rt.Handle("booking", booking)
	rt.Handle("mail", mailAgent)
	rt.Handle("browser", agent.NewBrowser(d.Desktop))
	rt.Handle("app", launcher)
	rt.Handle("music", launcher)
	rt.Handle("reminder", reminders)
	rt.Handle("process", agent.NewProcesses(d.Desktop, d.Procs))
	rt.Handle("sleep", agent.NewSleep(d.Awake))
	rt.Handle("web", agent.NewWeb(d.Desktop))
	rt.Handle("close", agent.NewCloser(d.Desktop, d.Procs))

	gate := session.NewGate(cfg.SessionConfig(), d.Awake)

	popts := []pipeline.Option{
		pipeline.WithTranscribeTimeout(cfg.Transcribe.Timeout),
		pipeline.WithSpeaker(d.Speaker),
	}
	if d.Ducker != nil {
		popts = append(popts, pipeline.WithDucker(d.Ducker))
	}
	if d.Cue != nil {
		popts = append(popts, pipeline.WithCue(d.Cue))
	}
	if d.Metrics != nil {
		popts = append(popts, pipeline.WithObserver(d.Metrics))
	}
	for _, f := range d.Replies {
		popts = append(popts, pipeline.WithReplies(f))
	}

	return &App{
		Pipeline:  pipeline.New(gate, resolver, rt, d.Events, popts...),
		Router:    rt,
		Gate:      gate,
		Resolver:  resolver,
		Reminders: reminders,
	}, nil
}

func newOpenAI(cfg config.NLUConfig, hc *http.Client) openai.Client {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if hc != nil {
		opts = append(opts, option.WithHTTPClient(hc))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return openai.NewClient(opts...)
}

// flightSearcher returns a nil interface, not a typed nil, when Amadeus is
// not configured so the booking agent falls back to links.
func flightSearcher(cfg travel.AmadeusConfig, hc *http.Client) ports.FlightSearcher {
	a, err := travel.NewAmadeus(cfg, hc)
	if err != nil {
		log.Info("Flight search disabled", "reason", err)
		return nil
	}
	return a
}

func mailbox(cfg config.MailConfig, hc *http.Client) ports.Mailbox {
	if cfg.TokenFile == "" {
		return nil
	}
	g, err := mail.NewGmail(cfg.TokenFile, cfg.BaseURL, hc)
	if err != nil {
		log.Warn("Mail disabled", "err", err)
		return nil
	}
	return g
}

// Status describes the session and any open conversation. It reads router
// state on the consumer goroutine.
func (a *App) Status(ctx context.Context) (string, error) {
	var conv string
	var active bool
	if err := a.Pipeline.Do(ctx, func() { conv, active = a.Router.Active() }); err != nil {
		return "", err
	}

	parts := []string{"session " + string(a.Gate.State().Mode)}
	if active {
		parts = append(parts, "in "+conv+" dialog")
	}
	if n := a.Reminders.Pending(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d reminders pending", n))
	}
	return strings.Join(parts, ", "), nil
}

// Control serves hark-ctl requests.
func (a *App) Control(ctx context.Context, msg ipc.Message) (string, error) {
	switch msg.Cmd {
	case ipc.CmdSay:
		if strings.TrimSpace(msg.Text) == "" {
			return "", errors.New("nothing to say")
		}
		if err := a.Pipeline.Submit(ctx, pipeline.Input{Text: msg.Text, Source: pipeline.SourceCtl, Direct: msg.Direct}); err != nil {
			return "", err
		}
		return "queued", nil
	case ipc.CmdStatus:
		return a.Status(ctx)
	}
	return "", fmt.Errorf("%w: %q", ipc.ErrUnknownCommand, msg.Cmd)
}

// Close stops intake and cancels pending reminders.
func (a *App) Close() {
	a.Pipeline.Close()
	a.Reminders.Stop()
}
