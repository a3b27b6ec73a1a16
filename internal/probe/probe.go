// Package probe wires the sampler, status source, rate tracker, and record
// sink into one batch sampling cycle.
package probe

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"hostprobe-agent/internal/config"
	"hostprobe-agent/internal/model"
	"hostprobe-agent/internal/nginx"
	"hostprobe-agent/internal/rate"
	"hostprobe-agent/internal/record"
	"hostprobe-agent/internal/sampler"
	"hostprobe-agent/internal/stream"
)

// StatusSource yields the proxy connection counters. Implementations absorb
// their own failures and return the zero status instead of erroring.
type StatusSource interface {
	Fetch(ctx context.Context) model.ConnectionStatus
}

type Probe struct {
	cfg     config.Config
	logger  *slog.Logger
	sampler sampler.Sampler
	status  StatusSource
	tracker *rate.Tracker
	sink    stream.Sink
}

func New(cfg config.Config, logger *slog.Logger) (*Probe, error) {
	tlsCfg, err := cfg.TLSConfig()
	if err != nil {
		return nil, fmt.Errorf("tls config: %w", err)
	}
	sink, err := stream.NewSinkFromConfig(cfg, tlsCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("record sink: %w", err)
	}

	var smp sampler.Sampler
	switch cfg.Strategy {
	case config.SamplerCommand:
		smp = sampler.NewCommandSampler(cfg.TopCommand, logger)
	default:
		smp = sampler.NewDirectSampler(cfg.CPUInterval, cfg.SettleInterval, cfg.TwoPassCPU, logger)
	}

	return &Probe{
		cfg:     cfg,
		logger:  logger,
		sampler: smp,
		status:  nginx.NewStatusClient(cfg.StatusURL, cfg.StatusTimeout, logger),
		tracker: rate.NewTracker(rate.NewFileStore(cfg.StatePath), logger),
		sink:    sink,
	}, nil
}

// RunOnce performs one strictly sequential cycle: sample the host, fetch the
// proxy counters, derive the request rate, format the row, hand it to the
// sink. It returns the row so the caller can print it. Any error here is
// fatal for the run and means no record was emitted.
func (p *Probe) RunOnce(ctx context.Context) (string, error) {
	snap, err := p.sampler.Snapshot(ctx, p.cfg.TopN)
	if err != nil {
		return "", fmt.Errorf("sample host: %w", err)
	}

	status := p.status.Fetch(ctx)
	rps, err := p.tracker.Observe(status.TotalRequests)
	if err != nil {
		return "", fmt.Errorf("derive request rate: %w", err)
	}

	row := record.BuildRow(snap, status, rps)
	frame := stream.NewRecordFrame(p.cfg.NodeID, p.cfg.Hostname, snap, status, rps, row)
	if err := p.sink.SendRecord(ctx, frame); err != nil {
		return "", fmt.Errorf("emit record: %w", err)
	}

	p.logger.Debug("record emitted",
		"cpu_pct", snap.CPUUsagePercent,
		"mem_pct", snap.MemUsagePercent,
		"active_connections", status.ActiveConnections,
		"requests_per_second", rps,
	)
	return row, nil
}

func (p *Probe) Close(ctx context.Context) error {
	return p.sink.Close(ctx)
}

func BuildLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	hOpts := &slog.HandlerOptions{Level: level}
	// Logs go to stderr; stdout is reserved for the record row.
	if cfg.LogJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, hOpts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, hOpts))
}
