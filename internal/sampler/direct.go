package sampler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"hostprobe-agent/internal/model"
	"hostprobe-agent/internal/system"
)

// hostProcess is the slice of the per-process API the sampler reads.
// *process.Process satisfies it.
type hostProcess interface {
	NameWithContext(ctx context.Context) (string, error)
	PercentWithContext(ctx context.Context, interval time.Duration) (float64, error)
	MemoryPercentWithContext(ctx context.Context) (float32, error)
}

// enumerator lists the processes visible at this instant.
type enumerator func(ctx context.Context) ([]hostProcess, error)

func liveProcesses(ctx context.Context) ([]hostProcess, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]hostProcess, len(procs))
	for i, p := range procs {
		out[i] = p
	}
	return out, nil
}

// DirectSampler reads aggregates from /proc and per-process values through
// gopsutil. CPU acquisition is either single-pass (one reading per process,
// no extra wait; the first reading for a freshly enumerated process is zero,
// so in a one-shot run the per-process CPU values carry no delta) or two-pass
// (baseline every process, sleep the settle interval, re-read).
type DirectSampler struct {
	logger         *slog.Logger
	cpuInterval    time.Duration
	twoPass        bool
	settleInterval time.Duration
	enumerate      enumerator
}

func NewDirectSampler(cpuInterval, settleInterval time.Duration, twoPass bool, logger *slog.Logger) *DirectSampler {
	return &DirectSampler{
		logger:         logger,
		cpuInterval:    cpuInterval,
		twoPass:        twoPass,
		settleInterval: settleInterval,
		enumerate:      liveProcesses,
	}
}

func (s *DirectSampler) Snapshot(ctx context.Context, topN int) (model.MetricSnapshot, error) {
	at := time.Now()

	cpuPct, err := s.CPUUsage(ctx)
	if err != nil {
		return model.MetricSnapshot{}, fmt.Errorf("sample cpu usage: %w", err)
	}
	topCPU, err := s.TopNBy(ctx, MetricCPU, topN)
	if err != nil {
		return model.MetricSnapshot{}, fmt.Errorf("rank processes by cpu: %w", err)
	}
	memPct, err := s.MemUsage()
	if err != nil {
		return model.MetricSnapshot{}, fmt.Errorf("sample memory usage: %w", err)
	}
	topMem, err := s.TopNBy(ctx, MetricMemory, topN)
	if err != nil {
		return model.MetricSnapshot{}, fmt.Errorf("rank processes by memory: %w", err)
	}

	return model.MetricSnapshot{
		Timestamp:       at,
		CPUUsagePercent: cpuPct,
		MemUsagePercent: memPct,
		TopCPU:          topCPU,
		TopMem:          topMem,
	}, nil
}

// CPUUsage blocks for the configured sampling interval.
func (s *DirectSampler) CPUUsage(ctx context.Context) (float64, error) {
	return system.CPUUsageOverInterval(ctx, s.cpuInterval)
}

func (s *DirectSampler) MemUsage() (float64, error) {
	return system.MemUsagePercent()
}

// TopNBy enumerates all visible processes and ranks them by the metric. A
// process that vanishes or denies access mid-scan contributes a zero-valued
// sentinel sample instead of aborting the scan; only a failure to enumerate
// at all is an error.
func (s *DirectSampler) TopNBy(ctx context.Context, metric Metric, n int) ([]model.ProcessSample, error) {
	procs, err := s.enumerate(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate processes: %w", err)
	}

	if metric == MetricCPU && s.twoPass {
		// Baseline pass so the second read reports usage over the settle
		// window rather than process lifetime.
		for _, p := range procs {
			_, _ = p.PercentWithContext(ctx, 0)
		}
		if err := system.Sleep(ctx, s.settleInterval); err != nil {
			return nil, err
		}
	}

	samples := make([]model.ProcessSample, 0, len(procs))
	for _, p := range procs {
		samples = append(samples, s.readProcess(ctx, p, metric))
	}
	return rankTopN(samples, n), nil
}

func (s *DirectSampler) readProcess(ctx context.Context, p hostProcess, metric Metric) model.ProcessSample {
	name, err := p.NameWithContext(ctx)
	if err != nil {
		return model.SentinelSample()
	}
	if name == "" {
		name = model.SentinelName
	}
	switch metric {
	case MetricCPU:
		v, err := p.PercentWithContext(ctx, 0)
		if err != nil {
			return model.SentinelSample()
		}
		return model.ProcessSample{Name: name, MetricValue: v}
	case MetricMemory:
		v, err := p.MemoryPercentWithContext(ctx)
		if err != nil {
			return model.SentinelSample()
		}
		return model.ProcessSample{Name: name, MetricValue: float64(v)}
	default:
		return model.SentinelSample()
	}
}
