package sampler

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"hostprobe-agent/internal/model"
	"hostprobe-agent/internal/toptable"
)

// Runner executes the process-listing command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// CommandSampler shells out to top(1) in batch mode, once per metric
// dimension, and parses the dump for both the system aggregate and the
// per-process rows. The invocation is bounded only by ctx; with no deadline a
// hung command stalls the run, which callers accept.
type CommandSampler struct {
	logger  *slog.Logger
	command string
	run     Runner
}

func NewCommandSampler(command string, logger *slog.Logger) *CommandSampler {
	return &CommandSampler{logger: logger, command: command, run: runCommand}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

func (s *CommandSampler) Snapshot(ctx context.Context, topN int) (model.MetricSnapshot, error) {
	at := time.Now()

	cpuPct, topCPU, err := s.collect(ctx, MetricCPU, topN)
	if err != nil {
		return model.MetricSnapshot{}, err
	}
	memPct, topMem, err := s.collect(ctx, MetricMemory, topN)
	if err != nil {
		return model.MetricSnapshot{}, err
	}

	return model.MetricSnapshot{
		Timestamp:       at,
		CPUUsagePercent: cpuPct,
		MemUsagePercent: memPct,
		TopCPU:          topCPU,
		TopMem:          topMem,
	}, nil
}

func (s *CommandSampler) collect(ctx context.Context, metric Metric, n int) (float64, []model.ProcessSample, error) {
	sortKey := "%CPU"
	column := toptable.ColumnCPU
	if metric == MetricMemory {
		sortKey = "%MEM"
		column = toptable.ColumnMem
	}

	// -w 512 widens the output so long command lines survive; -c shows the
	// full command instead of the bare executable name.
	out, err := s.run(ctx, s.command, "-b", "-n", "1", "-w", "512", "-c", "-o", sortKey)
	if err != nil {
		return 0, nil, fmt.Errorf("run %s -o %s: %w", s.command, sortKey, err)
	}

	aggregate, samples := toptable.Parse(string(out), column, n)
	// top already sorted by the requested column; only the fixed length is
	// left to enforce.
	return aggregate, model.PadSamples(samples, n), nil
}
