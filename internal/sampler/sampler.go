// Package sampler obtains system-wide CPU/memory utilization and ranked
// top-N process lists. Two strategies implement the same contract: direct
// (per-process readings via gopsutil) and command (a batch top(1) dump).
package sampler

import (
	"context"
	"sort"

	"hostprobe-agent/internal/model"
)

type Metric string

const (
	MetricCPU    Metric = "cpu"
	MetricMemory Metric = "memory"
)

// Sampler produces one MetricSnapshot per invocation. Whatever the strategy,
// the top lists hold exactly topN entries in non-increasing metric order,
// sentinel-padded when fewer real processes were observed.
type Sampler interface {
	Snapshot(ctx context.Context, topN int) (model.MetricSnapshot, error)
}

// rankTopN sorts descending by metric value, keeping enumeration order for
// ties, and pads to exactly n entries.
func rankTopN(samples []model.ProcessSample, n int) []model.ProcessSample {
	ranked := append([]model.ProcessSample(nil), samples...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].MetricValue > ranked[j].MetricValue
	})
	return model.PadSamples(ranked, n)
}
