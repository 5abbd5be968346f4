// Package vad classifies frames as speech or silence and assembles
// contiguous speech into bounded utterances.
package vad

import (
	"errors"
	"math"
	"time"

	"hark/internal/domain"
)

// Classifier decides whether a frame carries speech.
type Classifier interface {
	IsSpeech(f domain.Frame) bool
}

// EnergyClassifier flags frames whose RMS level exceeds Threshold.
type EnergyClassifier struct {
	Threshold float64
}

func (c EnergyClassifier) IsSpeech(f domain.Frame) bool {
	return frameRMS(f.Samples) > c.Threshold
}

func frameRMS(f []float32) float64 {
	if len(f) == 0 {
		return 0
	}
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}

type Config struct {
	SampleRate      int
	FrameDuration   time.Duration
	Hangover        time.Duration
	MinUtterance    time.Duration
	MaxUtterance    time.Duration
	EnergyThreshold float64
}

func DefaultConfig() Config {
	return Config{
		SampleRate:      16000,
		FrameDuration:   20 * time.Millisecond,
		Hangover:        600 * time.Millisecond,
		MinUtterance:    800 * time.Millisecond,
		MaxUtterance:    20 * time.Second,
		EnergyThreshold: 0.015,
	}
}

var ErrInvalidConfig = errors.New("invalid vad config")

func (c Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return errors.Join(ErrInvalidConfig, errors.New("sample rate must be positive"))
	case c.FrameDuration <= 0:
		return errors.Join(ErrInvalidConfig, errors.New("frame duration must be positive"))
	case c.Hangover <= 0:
		return errors.Join(ErrInvalidConfig, errors.New("hangover must be positive"))
	case c.MinUtterance <= 0 || c.MinUtterance >= c.MaxUtterance:
		return errors.Join(ErrInvalidConfig, errors.New("min utterance must be positive and below max"))
	}
	return nil
}

// FrameSize is the number of samples per frame.
func (c Config) FrameSize() int {
	return int(int64(c.SampleRate) * int64(c.FrameDuration) / int64(time.Second))
}

// Segmenter is not safe for concurrent use; one capture worker owns it.
type Segmenter struct {
	cls            Classifier
	sampleRate     int
	hangoverFrames int
	minSamples     int
	maxSamples     int

	buf          []float32
	active       bool
	silenceCount int
}

func NewSegmenter(cfg Config, cls Classifier) *Segmenter {
	if cls == nil {
		cls = EnergyClassifier{Threshold: cfg.EnergyThreshold}
	}
	hang := int(cfg.Hangover / cfg.FrameDuration)
	if hang < 1 {
		hang = 1
	}
	return &Segmenter{
		cls:            cls,
		sampleRate:     cfg.SampleRate,
		hangoverFrames: hang,
		minSamples:     samplesFor(cfg.SampleRate, cfg.MinUtterance),
		maxSamples:     samplesFor(cfg.SampleRate, cfg.MaxUtterance),
	}
}

func samplesFor(rate int, d time.Duration) int {
	return int(math.Ceil(float64(rate) * d.Seconds()))
}

// Push feeds one frame. It returns an utterance when the segment closes on
// hangover silence once the minimum duration is met, or on the max ceiling.
// A short answer keeps buffering trailing silence until it reaches the
// minimum.
func (s *Segmenter) Push(f domain.Frame) (domain.Utterance, bool) {
	if s.cls.IsSpeech(f) {
		s.buf = append(s.buf, f.Samples...)
		s.silenceCount = 0
		s.active = true
	} else if s.active {
		s.buf = append(s.buf, f.Samples...)
		s.silenceCount++
	}

	if !s.active {
		return domain.Utterance{}, false
	}

	n := len(s.buf)
	if n >= s.maxSamples || s.silenceCount >= s.hangoverFrames && n >= s.minSamples {
		u := domain.Utterance{Samples: s.buf, SampleRate: s.sampleRate}
		s.buf = nil
		s.Reset()
		return u, true
	}
	return domain.Utterance{}, false
}

// Active reports whether speech is being accumulated.
func (s *Segmenter) Active() bool { return s.active }

// Reset drops any buffered audio.
func (s *Segmenter) Reset() {
	s.buf = s.buf[:0]
	s.active = false
	s.silenceCount = 0
}
