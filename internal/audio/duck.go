package audio

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

const maxVolume = 150

var percentRe = regexp.MustCompile(`(\d+)\s*%`)

type sinkInput struct {
	ID     int
	Volume int
	App    string
}

type fade struct {
	id       int
	from, to int
}

// Runner executes pactl with args and returns its stdout.
type Runner func(ctx context.Context, args ...string) ([]byte, error)

func pactl(ctx context.Context, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, "pactl", args...).Output()
}

// Ducker lowers the playback volume of other applications while a session
// is listening, and restores it afterwards. Streams whose application name
// is in self are left alone.
type Ducker struct {
	run    Runner
	self   []string
	factor float64
	floor  int
	fade   time.Duration
	step   time.Duration

	mu     sync.Mutex
	active bool
	saved  map[int]int
}

type DuckOption func(*Ducker)

func WithRunner(r Runner) DuckOption { return func(d *Ducker) { d.run = r } }

func WithFade(total, step time.Duration) DuckOption {
	return func(d *Ducker) { d.fade, d.step = total, step }
}

func NewDucker(self []string, factor float64, floor int, opts ...DuckOption) *Ducker {
	d := &Ducker{
		run:    pactl,
		self:   slices.Clone(self),
		factor: factor,
		floor:  min(max(floor, 0), maxVolume),
		fade:   300 * time.Millisecond,
		step:   10 * time.Millisecond,
		saved:  map[int]int{},
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Duck fades every foreign stream to volume*factor, never below floor.
func (d *Ducker) Duck(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active {
		return nil
	}

	streams, err := d.list(ctx)
	if err != nil {
		return err
	}

	d.saved = map[int]int{}
	var targets []fade
	for _, s := range streams {
		if slices.Contains(d.self, s.App) {
			continue
		}
		to := int(math.Round(float64(s.Volume) * d.factor))
		to = min(max(to, d.floor), maxVolume)
		d.saved[s.ID] = s.Volume
		targets = append(targets, fade{id: s.ID, from: s.Volume, to: to})
	}

	if err := d.apply(ctx, targets); err != nil {
		return err
	}
	d.active = true
	return nil
}

// Restore fades ducked streams back. Streams that appeared after Duck are
// not touched.
func (d *Ducker) Restore(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.active {
		return nil
	}

	streams, err := d.list(ctx)
	if err != nil {
		return err
	}

	var targets []fade
	for _, s := range streams {
		orig, ok := d.saved[s.ID]
		if !ok || slices.Contains(d.self, s.App) {
			continue
		}
		targets = append(targets, fade{id: s.ID, from: s.Volume, to: orig})
	}

	if err := d.apply(ctx, targets); err != nil {
		return err
	}
	d.saved = map[int]int{}
	d.active = false
	return nil
}

func (d *Ducker) list(ctx context.Context) ([]sinkInput, error) {
	out, err := d.run(ctx, "list", "sink-inputs")
	if err != nil {
		return nil, fmt.Errorf("pactl list sink-inputs: %w", err)
	}
	return parseSinkInputs(string(out)), nil
}

func (d *Ducker) apply(ctx context.Context, targets []fade) error {
	if len(targets) == 0 {
		return nil
	}

	steps := 1
	if d.fade > 0 && d.step > 0 {
		steps = max(int(d.fade/d.step), 1)
	}

	for i := 1; i <= steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		frac := float64(i) / float64(steps)
		for _, t := range targets {
			v := int(math.Round(float64(t.from) + float64(t.to-t.from)*frac))
			if err := d.setVolume(ctx, t.id, v); err != nil {
				return err
			}
		}
		if i < steps {
			time.Sleep(d.step)
		}
	}
	return nil
}

func (d *Ducker) setVolume(ctx context.Context, id, percent int) error {
	percent = min(max(percent, 0), maxVolume)
	if _, err := d.run(ctx, "set-sink-input-volume", strconv.Itoa(id), strconv.Itoa(percent)+"%"); err != nil {
		return fmt.Errorf("set volume id=%d: %w", id, err)
	}
	return nil
}

// parseSinkInputs reads the output of `pactl list sink-inputs`.
func parseSinkInputs(text string) []sinkInput {
	blocks := strings.Split(text, "Sink Input #")
	var res []sinkInput

	for _, block := range blocks[1:] {
		head, body, ok := strings.Cut(block, "\n")
		if !ok {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(head))
		if err != nil {
			continue
		}

		s := sinkInput{ID: id}
		for _, line := range strings.Split(body, "\n") {
			line = strings.TrimSpace(line)
			switch {
			case strings.HasPrefix(line, "Volume:") && s.Volume == 0:
				if m := percentRe.FindStringSubmatch(line); m != nil {
					s.Volume, _ = strconv.Atoi(m[1])
				}
			case strings.HasPrefix(line, "application.name =") && s.App == "":
				_, v, _ := strings.Cut(line, "=")
				s.App = strings.Trim(strings.TrimSpace(v), `"`)
			}
		}

		if s.Volume == 0 && s.App == "" {
			continue
		}
		res = append(res, s)
	}
	return res
}
