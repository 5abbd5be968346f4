// Package session implements the hotword gate that decides whether
// transcribed text reaches intent resolution.
package session

import (
	"errors"
	log "log/slog"
	"strings"
	"sync"

	"hark/internal/domain"
	"hark/internal/fuzzy"
	"hark/internal/ports"
)

// Decision is the outcome of feeding one transcript to the gate.
type Decision int

const (
	Ignored Decision = iota
	Woke
	Slept
	Forward
)

func (d Decision) String() string {
	switch d {
	case Woke:
		return "woke"
	case Slept:
		return "slept"
	case Forward:
		return "forward"
	default:
		return "ignored"
	}
}

var ErrInvalidConfig = errors.New("invalid session config")

type Config struct {
	WakePhrases  []string
	SleepPhrases []string
	Threshold    int
}

func DefaultConfig() Config {
	return Config{
		WakePhrases:  []string{"hey agent", "hello agent", "computer", "agentic os"},
		SleepPhrases: []string{"bye agent", "goodbye agent", "stop listening", "go to sleep"},
		Threshold:    80,
	}
}

func (c Config) Validate() error {
	if len(c.WakePhrases) == 0 {
		return errors.Join(ErrInvalidConfig, errors.New("no wake phrases"))
	}
	if len(c.SleepPhrases) == 0 {
		return errors.Join(ErrInvalidConfig, errors.New("no sleep phrases"))
	}
	if c.Threshold < 0 || c.Threshold > 100 {
		return errors.Join(ErrInvalidConfig, errors.New("threshold must be within [0,100]"))
	}
	return nil
}

// State is a snapshot of the gate.
type State struct {
	Mode      domain.SessionMode
	Threshold int
}

// Gate is a two-state machine. Feed is serialized by a mutex so that
// surfaces other than the command consumer can read State safely.
type Gate struct {
	wake  []string
	sleep []string
	awake ports.KeepAwake

	mu    sync.Mutex
	state State
}

func NewGate(cfg Config, awake ports.KeepAwake) *Gate {
	return &Gate{
		wake:  lowerAll(cfg.WakePhrases),
		sleep: lowerAll(cfg.SleepPhrases),
		awake: awake,
		state: State{Mode: domain.ModeIdle, Threshold: cfg.Threshold},
	}
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(strings.ToLower(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Feed evaluates text against the phrase list for the current mode.
func (g *Gate) Feed(text string) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.state.Mode {
	case domain.ModeIdle:
		if phrase, score, ok := g.match(text, g.wake); ok {
			g.state.Mode = domain.ModeActive
			log.Info("Session started", "phrase", phrase, "score", score)
			if g.awake != nil {
				if err := g.awake.Hold(); err != nil {
					log.Warn("Failed to hold keep-awake", "err", err)
				}
			}
			return Woke
		}
		return Ignored

	default:
		if phrase, score, ok := g.match(text, g.sleep); ok {
			g.state.Mode = domain.ModeIdle
			log.Info("Session ended", "phrase", phrase, "score", score)
			if g.awake != nil {
				if err := g.awake.Release(); err != nil {
					log.Warn("Failed to release keep-awake", "err", err)
				}
			}
			return Slept
		}
		return Forward
	}
}

func (g *Gate) match(text string, phrases []string) (string, int, bool) {
	t := strings.TrimSpace(strings.ToLower(text))
	if t == "" {
		return "", 0, false
	}
	m, ok := fuzzy.ExtractOne(t, phrases, fuzzy.TokenSortRatio)
	if !ok || m.Score < g.state.Threshold {
		return "", m.Score, false
	}
	return m.Choice, m.Score, true
}
