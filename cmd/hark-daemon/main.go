package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"hark/internal/app"
	"hark/internal/audio"
	"hark/internal/bus"
	"hark/internal/config"
	"hark/internal/domain"
	"hark/internal/eventlog"
	"hark/internal/ipc"
	"hark/internal/metrics"
	"hark/internal/notify"
	"hark/internal/pipeline"
	"hark/internal/ports"
	"hark/internal/proxy"
	"hark/internal/system"
	"hark/internal/tts"
	"hark/internal/vad"
	"hark/pkg/stt"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	cfgFile := cli.StringP("config", "c", "", "Config file (hark.yaml)")
	proxyAddr := cli.StringP("proxy", "p", "", "Socks proxy address for outbound calls")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	metricsAddr := cli.StringP("metrics", "m", "", "Serve Prometheus metrics on this address")
	model := cli.String("model", "", "Whisper model path")
	busURL := cli.String("bus", "", "Websocket hub url")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	log.Info("Booting up")

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("Failed to load env file", "path", *envFile, "err", err)
	}

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		log.Error("Failed to load config", "err", err)
		os.Exit(1)
	}
	override(&cfg.Proxy, *proxyAddr)
	override(&cfg.Metrics, *metricsAddr)
	override(&cfg.Transcribe.Model, *model)
	override(&cfg.Bus, *busURL)
	if err := cfg.Validate(); err != nil {
		log.Error("Invalid config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient, err := proxy.NewClient(cfg.Proxy, 0)
	if err != nil {
		log.Error("Failed to set up proxy", "proxy", cfg.Proxy, "err", err)
		os.Exit(1)
	}

	events, err := eventlog.Open(cfg.EventLog)
	if err != nil {
		log.Error("Failed to open event log", "path", cfg.EventLog, "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := events.Close(); err != nil {
			log.Warn("Event log closed with error", "err", err)
		}
	}()

	vcfg := cfg.VAD()
	mic, err := audio.OpenMicrophone(vcfg.SampleRate, vcfg.FrameSize())
	if err != nil {
		log.Error("Failed to open capture device", "err", err)
		os.Exit(1)
	}
	defer mic.Close()

	log.Debug("Loaded microphone")

	whisper, err := stt.NewTranscriber(cfg.Transcribe.Model, stt.Options{
		Language: cfg.Transcribe.Language,
		Threads:  cfg.Transcribe.Threads,
		Timeout:  cfg.Transcribe.Timeout,
	})
	if err != nil {
		log.Error("Failed to init whisper", "model", cfg.Transcribe.Model, "err", err)
		os.Exit(1)
	}
	defer whisper.Close()

	log.Debug("Loaded whisper")

	var hub *bus.Client
	out := &fanout{console: tts.NewConsole(os.Stdout)}
	if cfg.Speak {
		out.voice = tts.NewEspeak(cfg.Voice, 0)
	}

	m := metrics.New()
	deps := app.Deps{
		Speaker: out,
		Desktop: system.NewDesktop(),
		Procs:   system.NewProcs(),
		Awake:   system.NewInhibitor(),
		Events:  events,
		HTTP:    httpClient,
		Metrics: m,
		Cue:     notify.NewChime(cfg.Chime),
	}
	if cfg.Duck > 0 {
		deps.Ducker = audio.NewDucker([]string{"hark", "espeak-ng"}, cfg.Duck, 10)
	}
	if cfg.Bus != "" {
		deps.Replies = append(deps.Replies, func(_ pipeline.Input, r domain.Reply) {
			if hub == nil {
				return
			}
			if err := hub.Publish(bus.Message{To: bus.Broadcast, Kind: bus.KindReply, Content: r.Text}); err != nil {
				log.Debug("Failed to publish reply", "err", err)
			}
		})
	}

	a, err := app.Build(cfg, deps)
	if err != nil {
		log.Error("Failed to build agents", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	srv, err := ipc.Listen(ctx, ipc.SocketPath(), a.Control)
	if err != nil {
		log.Error("Failed ipc server", "err", err)
		os.Exit(1)
	}
	defer srv.Close()

	var wg sync.WaitGroup
	if cfg.Metrics != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.Serve(ctx, cfg.Metrics); err != nil {
				log.Error("Metrics server failed", "err", err)
			}
		}()
	}
	if cfg.Bus != "" {
		hub = bus.New(cfg.Bus, func(ctx context.Context, msg bus.Message) {
			if err := a.Pipeline.Submit(ctx, pipeline.Input{Text: msg.Content, Source: pipeline.SourceBus}); err != nil {
				log.Warn("Failed to queue bus text", "err", err)
			}
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = hub.Run(ctx)
		}()
	}

	captureErr := make(chan error, 1)
	go func() {
		captureErr <- a.Pipeline.Capture(ctx, mic, vad.NewSegmenter(vcfg, nil), whisper)
	}()

	log.Info("Boot up - successful")
	_ = out.Speak("Agent initialized and sleeping. Say " + cfg.Session.WakePhrases[0] + " to wake me.")

	go func() {
		if err := a.Pipeline.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Command consumer stopped", "err", err)
		}
	}()

	code := 0
	select {
	case <-ctx.Done():
		log.Info("Shutting down")
	case err := <-captureErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Capture worker stopped", "err", err)
			code = 1
		}
	}
	stop()
	wg.Wait()
	if code != 0 {
		a.Close()
		events.Close()
		os.Exit(code)
	}
}

func override(dst *string, flag string) {
	if flag != "" {
		*dst = flag
	}
}

// fanout prints every reply and speaks it when a voice is configured.
type fanout struct {
	console ports.Speaker
	voice   ports.Speaker
}

func (f *fanout) Speak(text string) error {
	err := f.console.Speak(text)
	if f.voice != nil {
		err = errors.Join(err, f.voice.Speak(text))
	}
	return err
}
