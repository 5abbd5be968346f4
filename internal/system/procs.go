package system

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"

	"hark/internal/ports"
)

// Procs reads the process table with gopsutil.
type Procs struct {
	sample time.Duration
}

func NewProcs() *Procs {
	return &Procs{sample: time.Second}
}

func (p *Procs) Processes(ctx context.Context) ([]ports.ProcessInfo, error) {
	list, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	out := make([]ports.ProcessInfo, 0, len(list))
	for _, pr := range list {
		name, err := pr.NameWithContext(ctx)
		if err != nil {
			continue
		}
		cpuPct, _ := pr.CPUPercentWithContext(ctx)
		memPct, _ := pr.MemoryPercentWithContext(ctx)
		out = append(out, ports.ProcessInfo{PID: pr.Pid, Name: name, CPU: cpuPct, Memory: memPct})
	}
	return out, nil
}

func (p *Procs) Load(ctx context.Context) (ports.SystemLoad, error) {
	pct, err := cpu.PercentWithContext(ctx, p.sample, false)
	if err != nil {
		return ports.SystemLoad{}, fmt.Errorf("cpu percent: %w", err)
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return ports.SystemLoad{}, fmt.Errorf("virtual memory: %w", err)
	}
	load := ports.SystemLoad{MemoryPercent: vm.UsedPercent}
	if len(pct) > 0 {
		load.CPUPercent = pct[0]
	}
	return load, nil
}

func (p *Procs) Kill(ctx context.Context, pid int32) error {
	pr, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return fmt.Errorf("find process %d: %w", pid, err)
	}
	if err := pr.KillWithContext(ctx); err != nil {
		return fmt.Errorf("kill process %d: %w", pid, err)
	}
	return nil
}
