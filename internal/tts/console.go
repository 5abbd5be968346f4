package tts

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Console writes replies as lines, for headless runs and replay.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsole(w io.Writer) *Console { return &Console{w: w} }

func (c *Console) Speak(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.w, "hark: %s\n", text)
	return err
}
