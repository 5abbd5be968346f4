package agent

import (
	"cmp"
	"context"
	"fmt"
	log "log/slog"
	"slices"
	"strings"

	"hark/internal/domain"
	"hark/internal/ports"
)

// SystemMonitors are tried in order for "open task manager".
var SystemMonitors = []string{"gnome-system-monitor", "mate-system-monitor", "ksysguard", "plasma-systemmonitor", "xfce4-taskmanager"}

const (
	topListed      = 5
	highCPUPercent = 80
	highMemPercent = 85
)

// Processes answers questions about machine load.
type Processes struct {
	desktop ports.Desktop
	procs   ports.ProcessInspector
}

func NewProcesses(desktop ports.Desktop, procs ports.ProcessInspector) *Processes {
	return &Processes{desktop: desktop, procs: procs}
}

func (p *Processes) Handle(ctx context.Context, cmd domain.Command) domain.Reply {
	t := strings.ToLower(cmd.RawText)

	switch {
	case containsAny(t, "task manager", "system monitor"):
		if _, err := p.desktop.Launch(SystemMonitors); err != nil {
			log.Warn("Failed to open system monitor", "err", err)
			return domain.Say("Could not open task manager.")
		}
		return domain.Say("Opening system monitor.")
	case containsAny(t, "top memory", "top ram", "memory processes", "high memory"):
		return p.top(ctx, "memory", func(a, b ports.ProcessInfo) int { return cmp.Compare(b.Memory, a.Memory) })
	case containsAny(t, "slow", "lag"):
		return p.analyze(ctx)
	default:
		return p.top(ctx, "CPU", func(a, b ports.ProcessInfo) int { return cmp.Compare(b.CPU, a.CPU) })
	}
}

func (p *Processes) top(ctx context.Context, what string, order func(a, b ports.ProcessInfo) int) domain.Reply {
	ps, err := p.procs.Processes(ctx)
	if err != nil {
		log.Warn("Failed to list processes", "err", err)
		return domain.Say("I couldn't read the process list.")
	}
	if len(ps) == 0 {
		return domain.Say("No processes found.")
	}
	ps = slices.Clone(ps)
	slices.SortStableFunc(ps, order)
	ps = ps[:min(topListed, len(ps))]

	names := make([]string, len(ps))
	for i, pr := range ps {
		names[i] = fmt.Sprintf("%s (%.1f%% CPU, %.1f%% memory)", pr.Name, pr.CPU, pr.Memory)
	}
	return domain.Say(fmt.Sprintf("Top %s processes: %s.", what, strings.Join(names, ", ")))
}

func (p *Processes) analyze(ctx context.Context) domain.Reply {
	load, err := p.procs.Load(ctx)
	if err != nil {
		log.Warn("Failed to read system load", "err", err)
		return domain.Say("I couldn't read the system load.")
	}
	if load.CPUPercent <= highCPUPercent && load.MemoryPercent <= highMemPercent {
		return domain.Say(fmt.Sprintf("System OK. CPU %.0f%%, memory %.0f%%.", load.CPUPercent, load.MemoryPercent))
	}

	msg := fmt.Sprintf("High load. CPU %.0f%%, memory %.0f%%.", load.CPUPercent, load.MemoryPercent)
	ps, err := p.procs.Processes(ctx)
	if err == nil && len(ps) > 0 {
		culprit := slices.MaxFunc(ps, func(a, b ports.ProcessInfo) int {
			return cmp.Compare(a.CPU+float64(a.Memory), b.CPU+float64(b.Memory))
		})
		msg += fmt.Sprintf(" Top: %s (PID %d) CPU %.1f%%.", culprit.Name, culprit.PID, culprit.CPU)
	}
	return domain.Say(msg)
}

func containsAny(t string, subs ...string) bool {
	for _, s := range subs {
		if strings.Contains(t, s) {
			return true
		}
	}
	return false
}
