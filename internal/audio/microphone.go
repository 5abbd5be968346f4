// Package audio provides frame sources for the capture worker.
package audio

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"

	"hark/internal/domain"
)

var ErrDevice = errors.New("capture device unavailable")

// Microphone reads mono frames from the default input device.
type Microphone struct {
	rate   int
	buf    []float32
	stream *portaudio.Stream

	mu     sync.Mutex
	closed bool
}

// OpenMicrophone initializes portaudio and starts a blocking input stream
// delivering frameSize samples per read.
func OpenMicrophone(sampleRate, frameSize int) (*Microphone, error) {
	if sampleRate <= 0 || frameSize <= 0 {
		return nil, fmt.Errorf("%w: bad frame geometry %d/%d", ErrDevice, sampleRate, frameSize)
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDevice, err)
	}

	buf := make([]float32, frameSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), len(buf), buf)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: open stream: %w", ErrDevice, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: start stream: %w", ErrDevice, err)
	}

	log.Debug("Microphone opened", "rate", sampleRate, "frame", frameSize)
	return &Microphone{rate: sampleRate, buf: buf, stream: stream}, nil
}

func (m *Microphone) ReadFrame(ctx context.Context) (domain.Frame, error) {
	if err := ctx.Err(); err != nil {
		return domain.Frame{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return domain.Frame{}, ErrDevice
	}

	if err := m.stream.Read(); err != nil {
		if !errors.Is(err, portaudio.InputOverflowed) {
			return domain.Frame{}, fmt.Errorf("read frame: %w", err)
		}
		log.Debug("Input overflowed")
	}

	out := make([]float32, len(m.buf))
	copy(out, m.buf)
	return domain.Frame{Samples: out, SampleRate: m.rate}, nil
}

func (m *Microphone) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	err := errors.Join(m.stream.Stop(), m.stream.Close())
	return errors.Join(err, portaudio.Terminate())
}
