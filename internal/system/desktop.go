package system

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os/exec"
	"time"

	"github.com/pkg/browser"
)

var ErrNotInstalled = errors.New("none of the programs is installed")

// Desktop runs X11 desktop helpers. Keystrokes need xdotool; programs are
// started detached and never waited for.
type Desktop struct {
	lookPath func(string) (string, error)
	timeout  time.Duration
}

func NewDesktop() *Desktop {
	return &Desktop{lookPath: exec.LookPath, timeout: 3 * time.Second}
}

func (d *Desktop) OpenURL(url string) error {
	if err := browser.OpenURL(url); err != nil {
		return fmt.Errorf("open url: %w", err)
	}
	return nil
}

func (d *Desktop) OpenPath(path string) error {
	if err := browser.OpenFile(path); err != nil {
		return fmt.Errorf("open path: %w", err)
	}
	return nil
}

func (d *Desktop) Launch(candidates []string, args ...string) (string, error) {
	for _, name := range candidates {
		exe, err := d.lookPath(name)
		if err != nil {
			continue
		}
		cmd := exec.Command(exe, args...)
		if err := cmd.Start(); err != nil {
			log.Warn("Failed to start program", "exe", exe, "err", err)
			continue
		}
		go func() { _ = cmd.Wait() }()
		return name, nil
	}
	return "", ErrNotInstalled
}

// KillByName closes visible windows of the class first, then signals
// matching processes.
func (d *Desktop) KillByName(name string) error {
	if _, err := d.lookPath("xdotool"); err == nil {
		script := fmt.Sprintf("xdotool search --onlyvisible --class %q | xargs -r -I {} xdotool windowclose {}", name)
		if err := d.run("sh", "-c", script); err != nil {
			log.Debug("Graceful window close failed", "name", name, "err", err)
		}
	}
	err := d.run("pkill", "-f", name)
	var exit *exec.ExitError
	if errors.As(err, &exit) && exit.ExitCode() == 1 {
		return fmt.Errorf("no process matches %q", name)
	}
	return err
}

func (d *Desktop) SendKeys(keys string) error {
	d.activateBrowser()
	return d.run("xdotool", "key", "--clearmodifiers", keys)
}

func (d *Desktop) TypeText(text string) error {
	return d.run("xdotool", "type", "--delay", "3", "--clearmodifiers", text)
}

// activateBrowser focuses the first visible browser window, if any.
func (d *Desktop) activateBrowser() {
	if _, err := d.lookPath("xdotool"); err != nil {
		return
	}
	for _, class := range []string{"firefox", "Google-chrome", "Chromium"} {
		script := fmt.Sprintf("id=$(xdotool search --onlyvisible --class %q | head -n 1) && [ -n \"$id\" ] && xdotool windowactivate --sync \"$id\"", class)
		if d.run("sh", "-c", script) == nil {
			return
		}
	}
}

func (d *Desktop) run(name string, args ...string) error {
	exe, err := d.lookPath(name)
	if err != nil {
		return fmt.Errorf("%s: %w", name, ErrNotInstalled)
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	if out, err := exec.CommandContext(ctx, exe, args...).CombinedOutput(); err != nil {
		log.Debug("Command failed", "cmd", name, "output", string(out), "err", err)
		return err
	}
	return nil
}
