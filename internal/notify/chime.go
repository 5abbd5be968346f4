// Package notify plays the wake chime and posts desktop notifications.
package notify

import (
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

const toneRate beep.SampleRate = 44100

var ErrSpeaker = errors.New("speaker unavailable")

// Chime plays an mp3 cue, or a short sine tone when no file is configured.
type Chime struct {
	path string

	once    sync.Once
	initErr error
	rate    beep.SampleRate
}

func NewChime(path string) *Chime { return &Chime{path: path, rate: toneRate} }

// Play blocks until the cue has finished.
func (c *Chime) Play() error {
	s, format, closeFn, err := c.open()
	if err != nil {
		return err
	}
	defer closeFn()

	c.once.Do(func() {
		c.rate = format.SampleRate
		c.initErr = speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10))
	})
	if c.initErr != nil {
		return fmt.Errorf("%w: %w", ErrSpeaker, c.initErr)
	}

	var src beep.Streamer = s
	if format.SampleRate != c.rate {
		src = beep.Resample(4, format.SampleRate, c.rate, s)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(src, beep.Callback(func() { close(done) })))
	<-done
	return nil
}

func (c *Chime) open() (beep.Streamer, beep.Format, func(), error) {
	if c.path == "" {
		format := beep.Format{SampleRate: toneRate, NumChannels: 2, Precision: 2}
		return tone(toneRate, 880, 150*time.Millisecond), format, func() {}, nil
	}

	f, err := os.Open(c.path)
	if err != nil {
		return nil, beep.Format{}, nil, fmt.Errorf("open chime: %w", err)
	}
	s, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return nil, beep.Format{}, nil, fmt.Errorf("decode chime: %w", err)
	}
	return s, format, func() { s.Close() }, nil
}

// tone is a sine wave at freq Hz with a linear fade out.
func tone(rate beep.SampleRate, freq float64, d time.Duration) beep.Streamer {
	total := rate.N(d)
	pos := 0
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if pos >= total {
			return 0, false
		}
		n := 0
		for i := range samples {
			if pos >= total {
				break
			}
			amp := 0.3 * (1 - float64(pos)/float64(total))
			v := amp * math.Sin(2*math.Pi*freq*float64(pos)/float64(rate))
			samples[i] = [2]float64{v, v}
			pos++
			n++
		}
		return n, true
	})
}

// Desktop posts a notification through notify-send when it is installed.
func Desktop(summary, body string) error {
	path, err := exec.LookPath("notify-send")
	if err != nil {
		return fmt.Errorf("notify-send: %w", err)
	}
	return exec.Command(path, "-a", "hark", summary, body).Run()
}
