// Package eventlog is an append-only JSON lines event sink.
package eventlog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"hark/internal/domain"
)

var ErrClosed = errors.New("event log closed")

const queueSize = 256

// Log writes events from many producers through one writer goroutine.
type Log struct {
	w     io.Writer
	c     io.Closer
	queue chan domain.Event
	done  chan struct{}
	now   func() time.Time

	mu     sync.RWMutex
	closed bool

	errMu sync.Mutex
	err   error
}

// Open appends to the file at path, creating it and its directory.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create event log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	return New(f, f), nil
}

// New starts a log over w. c, if not nil, is closed by Close.
func New(w io.Writer, c io.Closer) *Log {
	l := &Log{
		w:     w,
		c:     c,
		queue: make(chan domain.Event, queueSize),
		done:  make(chan struct{}),
		now:   time.Now,
	}
	go l.run()
	return l
}

// Append queues ev. Missing ids and timestamps are filled in. Events
// appended after Close are dropped.
func (l *Log) Append(ev domain.Event) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Time.IsZero() {
		ev.Time = l.now()
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		log.Debug("Dropping event after close", "kind", ev.Kind)
		return
	}
	l.queue <- ev
}

func (l *Log) run() {
	defer close(l.done)

	bw := bufio.NewWriter(l.w)
	enc := json.NewEncoder(bw)
	for ev := range l.queue {
		if err := enc.Encode(ev); err != nil {
			log.Error("Failed to encode event", "kind", ev.Kind, "err", err)
			l.setErr(err)
			continue
		}
		if len(l.queue) == 0 {
			if err := bw.Flush(); err != nil {
				log.Error("Failed to flush event log", "err", err)
				l.setErr(err)
			}
		}
	}
	if err := bw.Flush(); err != nil {
		l.setErr(err)
	}
}

func (l *Log) setErr(err error) {
	l.errMu.Lock()
	if l.err == nil {
		l.err = err
	}
	l.errMu.Unlock()
}

// Close drains queued events and closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()

	<-l.done

	l.errMu.Lock()
	err := l.err
	l.errMu.Unlock()
	if l.c != nil {
		err = errors.Join(err, l.c.Close())
	}
	return err
}

// Read decodes every event in r. It is used by tooling and tests.
func Read(r io.Reader) ([]domain.Event, error) {
	var out []domain.Event
	dec := json.NewDecoder(r)
	for {
		var ev domain.Event
		if err := dec.Decode(&ev); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, fmt.Errorf("decode event: %w", err)
		}
		out = append(out, ev)
	}
}
