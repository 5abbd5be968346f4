package agent

import (
	"context"
	"fmt"
	log "log/slog"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"hark/internal/domain"
	"hark/internal/ports"
)

// Protected processes are never signalled.
var Protected = []string{
	"systemd", "init", "dbus", "xorg", "xwayland", "wayland", "gnome-shell",
	"plasmashell", "kdeinit", "pipewire", "pulseaudio", "login", "bash", "zsh",
}

// closeAllApps is what "close everything" targets.
var closeAllApps = []string{"firefox", "chrome", "code", "vlc", "spotify"}

var (
	killPIDRe  = regexp.MustCompile(`\bkill process (\d+)\b`)
	closeAllRe = regexp.MustCompile(`\bclose (everything|all)\b`)
	closeAppRe = regexp.MustCompile(`\b(?:close|quit|exit|stop)\s+(.+)$`)
)

// Closer terminates applications by pid or by name.
type Closer struct {
	desktop ports.Desktop
	procs   ports.ProcessInspector
}

func NewCloser(desktop ports.Desktop, procs ports.ProcessInspector) *Closer {
	return &Closer{desktop: desktop, procs: procs}
}

func (c *Closer) Handle(ctx context.Context, cmd domain.Command) domain.Reply {
	t := strings.ToLower(strings.TrimSpace(cmd.RawText))

	if m := killPIDRe.FindStringSubmatch(t); m != nil {
		pid, err := strconv.ParseInt(m[1], 10, 32)
		if err == nil {
			err = c.killPID(ctx, int32(pid))
		}
		if err != nil {
			log.Warn("Failed to kill process", "pid", m[1], "err", err)
			return domain.Say("Could not kill that process.")
		}
		return domain.Say("Killed process " + m[1] + ".")
	}

	if closeAllRe.MatchString(t) {
		return domain.Say(fmt.Sprintf("Closed %d apps.", c.closeAll(ctx)))
	}

	if m := closeAppRe.FindStringSubmatch(t); m != nil {
		name := strings.TrimSpace(m[1])
		if isProtected(name) {
			log.Warn("Refusing to close protected process", "name", name)
			return domain.Say("Couldn't close " + name + ".")
		}
		if err := c.desktop.KillByName(name); err != nil {
			log.Warn("Failed to close application", "name", name, "err", err)
			return domain.Say("Couldn't close " + name + ".")
		}
		return domain.Say("Closed " + name + ".")
	}

	return domain.Say("Not sure what to close.")
}

func (c *Closer) killPID(ctx context.Context, pid int32) error {
	ps, err := c.procs.Processes(ctx)
	if err != nil {
		return err
	}
	for _, p := range ps {
		if p.PID == pid && isProtected(p.Name) {
			return fmt.Errorf("process %d (%s) is protected", pid, p.Name)
		}
	}
	return c.procs.Kill(ctx, pid)
}

func (c *Closer) closeAll(ctx context.Context) int {
	ps, err := c.procs.Processes(ctx)
	if err != nil {
		log.Warn("Failed to list processes", "err", err)
		return 0
	}
	n := 0
	for _, p := range ps {
		name := strings.ToLower(p.Name)
		if isProtected(name) || !slices.ContainsFunc(closeAllApps, func(a string) bool { return strings.Contains(name, a) }) {
			continue
		}
		if err := c.procs.Kill(ctx, p.PID); err != nil {
			log.Debug("Kill failed", "pid", p.PID, "name", p.Name, "err", err)
			continue
		}
		n++
	}
	return n
}

func isProtected(name string) bool {
	return slices.Contains(Protected, strings.ToLower(name))
}
