package main

import (
	"bufio"
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"hark/internal/app"
	"hark/internal/audio"
	"hark/internal/config"
	"hark/internal/eventlog"
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

// hark replays a recording, or reads typed lines from stdin, through the
// same pipeline the daemon runs.
func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	cfgFile := cli.StringP("config", "c", "", "Config file (hark.yaml)")
	logLevel := cli.StringP("log", "l", "warn", "Log level")
	file := cli.StringP("file", "f", "", "Audio file to replay (wav, mp3, ogg, opus)")
	model := cli.String("model", "", "Whisper model path")
	gated := cli.Bool("gated", false, "Require the wake phrase for stdin lines")
	dryRun := cli.BoolP("dry-run", "n", false, "Log desktop actions instead of running them")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("Failed to load env file", "path", *envFile, "err", err)
	}
	cfg, err := config.Load(*cfgFile)
	if err != nil {
		log.Error("Failed to load config", "err", err)
		os.Exit(1)
	}
	if *model != "" {
		cfg.Transcribe.Model = *model
	}
	if err := cfg.Validate(); err != nil {
		log.Error("Invalid config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	httpClient, err := proxy.NewClient(cfg.Proxy, 0)
	if err != nil {
		log.Error("Failed to set up proxy", "err", err)
		os.Exit(1)
	}
	events, err := eventlog.Open(cfg.EventLog)
	if err != nil {
		log.Error("Failed to open event log", "err", err)
		os.Exit(1)
	}
	defer events.Close()

	var desktop ports.Desktop = system.NewDesktop()
	if *dryRun {
		desktop = dryDesktop{}
	}

	a, err := app.Build(cfg, app.Deps{
		Speaker: tts.NewConsole(os.Stdout),
		Desktop: desktop,
		Procs:   system.NewProcs(),
		Awake:   system.NewInhibitor(),
		Events:  events,
		HTTP:    httpClient,
	})
	if err != nil {
		log.Error("Failed to build agents", "err", err)
		os.Exit(1)
	}
	defer a.Reminders.Stop()

	done := make(chan error, 1)
	go func() { done <- a.Pipeline.Run(ctx) }()

	if *file != "" {
		err = replay(ctx, a.Pipeline, cfg, *file)
	} else {
		err = readLines(ctx, a.Pipeline, !*gated)
	}
	a.Pipeline.Close()
	if err != nil {
		log.Error("Input failed", "err", err)
	}
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Command consumer stopped", "err", err)
	}
}

func replay(ctx context.Context, p *pipeline.Pipeline, cfg config.Config, path string) error {
	vcfg := cfg.VAD()
	src, err := audio.OpenFile(path, vcfg.SampleRate, vcfg.FrameSize())
	if err != nil {
		return err
	}
	defer src.Close()

	whisper, err := stt.NewTranscriber(cfg.Transcribe.Model, stt.Options{
		Language: cfg.Transcribe.Language,
		Threads:  cfg.Transcribe.Threads,
		Timeout:  cfg.Transcribe.Timeout,
	})
	if err != nil {
		return err
	}
	defer whisper.Close()

	return p.Capture(ctx, src, vad.NewSegmenter(vcfg, nil), whisper)
}

func readLines(ctx context.Context, p *pipeline.Pipeline, direct bool) error {
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if err := p.Submit(ctx, pipeline.Input{Text: line, Source: pipeline.SourceStdin, Direct: direct}); err != nil {
			return err
		}
	}
	return sc.Err()
}

type dryDesktop struct{}

func (dryDesktop) OpenURL(url string) error {
	log.Info("Would open url", "url", url)
	return nil
}

func (dryDesktop) OpenPath(path string) error {
	log.Info("Would open path", "path", path)
	return nil
}

func (dryDesktop) Launch(candidates []string, args ...string) (string, error) {
	log.Info("Would launch", "candidates", candidates, "args", args)
	if len(candidates) == 0 {
		return "", system.ErrNotInstalled
	}
	return candidates[0], nil
}

func (dryDesktop) KillByName(name string) error {
	log.Info("Would close", "name", name)
	return nil
}

func (dryDesktop) SendKeys(keys string) error {
	log.Info("Would send keys", "keys", keys)
	return nil
}

func (dryDesktop) TypeText(text string) error {
	log.Info("Would type", "text", text)
	return nil
}
