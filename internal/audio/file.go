package audio

import (
	"context"
	"fmt"
	"io"
	"time"

	"hark/internal/domain"
	"hark/pkg/audioconv"
)

// DefaultTail is the silence appended after a replayed recording so the
// segmenter sees enough hangover to close the last utterance.
const DefaultTail = time.Second

// FileSource replays decoded PCM as fixed-size frames and then returns
// io.EOF.
type FileSource struct {
	samples []float32
	rate    int
	size    int
	pos     int
	tail    int
}

// OpenFile decodes wav, mp3, ogg or opus at sampleRate.
func OpenFile(path string, sampleRate, frameSize int) (*FileSource, error) {
	pcm, err := audioconv.DecodeFile(path, audioconv.Options{SampleRate: sampleRate})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return NewSliceSource(pcm, sampleRate, frameSize, DefaultTail), nil
}

func NewSliceSource(samples []float32, sampleRate, frameSize int, tail time.Duration) *FileSource {
	if frameSize <= 0 {
		frameSize = 320
	}
	tailSamples := int(int64(sampleRate) * int64(tail) / int64(time.Second))
	return &FileSource{
		samples: samples,
		rate:    sampleRate,
		size:    frameSize,
		tail:    (tailSamples + frameSize - 1) / frameSize,
	}
}

func (s *FileSource) ReadFrame(ctx context.Context) (domain.Frame, error) {
	if err := ctx.Err(); err != nil {
		return domain.Frame{}, err
	}

	frame := make([]float32, s.size)
	switch {
	case s.pos < len(s.samples):
		n := copy(frame, s.samples[s.pos:])
		s.pos += n
	case s.tail > 0:
		s.tail--
	default:
		return domain.Frame{}, io.EOF
	}
	return domain.Frame{Samples: frame, SampleRate: s.rate}, nil
}

func (s *FileSource) Close() error { return nil }
