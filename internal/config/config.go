package config

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type SamplerStrategy string

const (
	SamplerDirect  SamplerStrategy = "direct"
	SamplerCommand SamplerStrategy = "command"
)

type SinkMode string

const (
	SinkModeFile      SinkMode = "file"
	SinkModeGRPC      SinkMode = "grpc"
	SinkModeWebSocket SinkMode = "websocket"
)

type Config struct {
	NodeID   string
	Hostname string

	StatusURL     string
	StatusTimeout time.Duration

	Strategy       SamplerStrategy
	CPUInterval    time.Duration
	TwoPassCPU     bool
	SettleInterval time.Duration
	TopN           int
	TopCommand     string

	StatePath  string
	OutputPath string

	SinkMode         SinkMode
	BackendGRPCAddr  string
	BackendWSURL     string
	BackendToken     string
	GRPCRecordMethod string
	TLSEnabled       bool
	TLSSkipVerify    bool
	TLSCAPath        string
	TLSCertPath      string
	TLSKeyPath       string

	LogJSON  bool
	LogLevel string
}

func Load() (Config, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown-host"
	}

	cfg := Config{
		NodeID:   env("HOSTPROBE_NODE_ID", hostname),
		Hostname: hostname,

		StatusURL:     env("HOSTPROBE_STATUS_URL", "http://127.0.0.1/stub_status"),
		StatusTimeout: envDuration("HOSTPROBE_STATUS_TIMEOUT", 2*time.Second),

		Strategy:       SamplerStrategy(strings.ToLower(env("HOSTPROBE_SAMPLER", string(SamplerDirect)))),
		CPUInterval:    envDuration("HOSTPROBE_CPU_INTERVAL", time.Second),
		TwoPassCPU:     envBool("HOSTPROBE_CPU_TWO_PASS", true),
		SettleInterval: envDuration("HOSTPROBE_SETTLE_INTERVAL", time.Second),
		TopN:           envInt("HOSTPROBE_TOP_N", 5),
		TopCommand:     env("HOSTPROBE_TOP_COMMAND", "top"),

		StatePath:  env("HOSTPROBE_STATE_PATH", "/tmp/.nginx_requests_state.json"),
		OutputPath: env("HOSTPROBE_OUTPUT_PATH", "/tmp/host_anomaly_detection.csv"),

		SinkMode:         SinkMode(strings.ToLower(env("HOSTPROBE_SINK_MODE", string(SinkModeFile)))),
		BackendGRPCAddr:  env("HOSTPROBE_BACKEND_GRPC_ADDR", "127.0.0.1:3001"),
		BackendWSURL:     env("HOSTPROBE_BACKEND_WS_URL", "ws://127.0.0.1:3001/ws/records"),
		BackendToken:     env("HOSTPROBE_BACKEND_TOKEN", ""),
		GRPCRecordMethod: env("HOSTPROBE_GRPC_RECORD_METHOD", "/hostprobe.v1.RecordService/StreamRecords"),
		TLSEnabled:       envBool("HOSTPROBE_TLS_ENABLED", false),
		TLSSkipVerify:    envBool("HOSTPROBE_TLS_SKIP_VERIFY", false),
		TLSCAPath:        env("HOSTPROBE_TLS_CA_PATH", ""),
		TLSCertPath:      env("HOSTPROBE_TLS_CERT_PATH", ""),
		TLSKeyPath:       env("HOSTPROBE_TLS_KEY_PATH", ""),

		LogJSON:  envBool("HOSTPROBE_LOG_JSON", false),
		LogLevel: strings.ToLower(env("HOSTPROBE_LOG_LEVEL", "info")),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.NodeID == "" {
		return errors.New("HOSTPROBE_NODE_ID is required")
	}
	if strings.TrimSpace(c.StatusURL) == "" {
		return errors.New("HOSTPROBE_STATUS_URL is required")
	}
	if c.StatusTimeout <= 0 {
		return errors.New("HOSTPROBE_STATUS_TIMEOUT must be > 0")
	}
	switch c.Strategy {
	case SamplerDirect:
		if c.CPUInterval <= 0 {
			return errors.New("HOSTPROBE_CPU_INTERVAL must be > 0")
		}
		if c.TwoPassCPU && c.SettleInterval <= 0 {
			return errors.New("HOSTPROBE_SETTLE_INTERVAL must be > 0 for two-pass sampling")
		}
	case SamplerCommand:
		if strings.TrimSpace(c.TopCommand) == "" {
			return errors.New("HOSTPROBE_TOP_COMMAND is required for command sampling")
		}
	default:
		return fmt.Errorf("unsupported sampler strategy %q", c.Strategy)
	}
	if c.TopN <= 0 {
		return errors.New("HOSTPROBE_TOP_N must be > 0")
	}
	if strings.TrimSpace(c.StatePath) == "" {
		return errors.New("HOSTPROBE_STATE_PATH is required")
	}
	switch c.SinkMode {
	case SinkModeFile:
		if strings.TrimSpace(c.OutputPath) == "" {
			return errors.New("HOSTPROBE_OUTPUT_PATH is required for file mode")
		}
	case SinkModeGRPC:
		if c.BackendGRPCAddr == "" {
			return errors.New("HOSTPROBE_BACKEND_GRPC_ADDR is required for grpc mode")
		}
		if strings.TrimSpace(c.GRPCRecordMethod) == "" {
			return errors.New("HOSTPROBE_GRPC_RECORD_METHOD is required for grpc mode")
		}
	case SinkModeWebSocket:
		if c.BackendWSURL == "" {
			return errors.New("HOSTPROBE_BACKEND_WS_URL is required for websocket mode")
		}
	default:
		return fmt.Errorf("unsupported sink mode %q", c.SinkMode)
	}
	return nil
}

func (c Config) TLSConfig() (*tls.Config, error) {
	if !c.TLSEnabled {
		return nil, nil
	}
	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: c.TLSSkipVerify}
	if c.TLSCAPath != "" {
		caBytes, err := os.ReadFile(c.TLSCAPath)
		if err != nil {
			return nil, fmt.Errorf("read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caBytes) {
			return nil, errors.New("append CA cert failed")
		}
		tlsCfg.RootCAs = pool
	}
	if c.TLSCertPath != "" || c.TLSKeyPath != "" {
		if c.TLSCertPath == "" || c.TLSKeyPath == "" {
			return nil, errors.New("both TLS cert and key are required")
		}
		crt, err := tls.LoadX509KeyPair(c.TLSCertPath, c.TLSKeyPath)
		if err != nil {
			return nil, fmt.Errorf("load mTLS cert/key: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{crt}
	}
	return tlsCfg, nil
}

func env(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return fallback
	}
	switch v {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
