package stream

import (
	"crypto/tls"
	"fmt"
	"log/slog"

	"hostprobe-agent/internal/config"
)

func NewSinkFromConfig(cfg config.Config, tlsCfg *tls.Config, logger *slog.Logger) (Sink, error) {
	switch cfg.SinkMode {
	case config.SinkModeFile:
		return NewFileSink(cfg.OutputPath), nil
	case config.SinkModeGRPC:
		return NewGRPCClient(cfg.BackendGRPCAddr, tlsCfg, cfg.BackendToken, cfg.GRPCRecordMethod, logger), nil
	case config.SinkModeWebSocket:
		return NewWebSocketClient(cfg.BackendWSURL, cfg.BackendToken, tlsCfg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported sink mode %q", cfg.SinkMode)
	}
}
