// Package system adapts desktop, process and power management on Linux.
package system

import (
	"errors"
	"fmt"
	log "log/slog"
	"os/exec"
	"sync"
)

var ErrNoInhibitor = errors.New("systemd-inhibit not found")

// Inhibitor keeps the machine awake by holding a systemd-inhibit child.
type Inhibitor struct {
	what string
	why  string

	mu  sync.Mutex
	cmd *exec.Cmd
}

func NewInhibitor() *Inhibitor {
	return &Inhibitor{what: "handle-lid-switch:sleep:idle", why: "hark keep awake"}
}

func (i *Inhibitor) Hold() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.cmd != nil {
		return nil
	}

	exe, err := exec.LookPath("systemd-inhibit")
	if err != nil {
		return ErrNoInhibitor
	}
	cmd := exec.Command(exe, "--what="+i.what, "--why="+i.why, "sleep", "infinity")
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start inhibitor: %w", err)
	}
	i.cmd = cmd
	go func() {
		err := cmd.Wait()
		i.mu.Lock()
		if i.cmd == cmd {
			i.cmd = nil
			log.Warn("Sleep inhibitor exited", "err", err)
		}
		i.mu.Unlock()
	}()
	log.Info("Sleep prevention started")
	return nil
}

func (i *Inhibitor) Release() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.cmd == nil {
		return nil
	}
	cmd := i.cmd
	i.cmd = nil
	if err := cmd.Process.Kill(); err != nil {
		return fmt.Errorf("stop inhibitor: %w", err)
	}
	log.Info("Sleep prevention stopped")
	return nil
}

func (i *Inhibitor) Held() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.cmd != nil
}
