// Package nginx scrapes and parses the stub_status page of a reverse proxy.
// Every failure at this boundary, transport or parse, degrades to a
// zero-valued ConnectionStatus; the caller cannot distinguish an unreachable
// proxy from a malformed page and is not meant to.
package nginx

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"hostprobe-agent/internal/model"
)

const activePrefix = "Active connections:"

type StatusClient struct {
	logger  *slog.Logger
	url     string
	timeout time.Duration
	hc      *http.Client
}

func NewStatusClient(url string, timeout time.Duration, logger *slog.Logger) *StatusClient {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &StatusClient{
		logger:  logger,
		url:     url,
		timeout: timeout,
		hc:      &http.Client{Timeout: timeout},
	}
}

// Fetch retrieves and parses the status page. The zero ConnectionStatus is
// the fallback for any failure mode.
func (c *StatusClient) Fetch(ctx context.Context) model.ConnectionStatus {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.url, nil)
	if err != nil {
		c.logger.Warn("stub status request build failed", "url", c.url, "error", err)
		return model.ConnectionStatus{}
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		c.logger.Warn("stub status fetch failed", "url", c.url, "error", err)
		return model.ConnectionStatus{}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("stub status fetch returned non-2xx", "url", c.url, "status", resp.StatusCode)
		return model.ConnectionStatus{}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Warn("stub status body read failed", "url", c.url, "error", err)
		return model.ConnectionStatus{}
	}
	return ParseStubStatus(string(body))
}

// ParseStubStatus reads the two counters out of stub_status text:
//
//	Active connections: 291
//	server accepts handled requests
//	 16630948 16630948 31070481
//	Reading: 21 Writing: 2 Waiting: 21
//
// ActiveConnections comes from the first "Active connections:" line,
// TotalRequests from the third field of the third line. Each counter falls
// back to zero independently when its line does not match.
func ParseStubStatus(text string) model.ConnectionStatus {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.ConnectionStatus{}
	}
	lines := strings.Split(text, "\n")
	if len(lines) < 3 {
		return model.ConnectionStatus{}
	}

	var status model.ConnectionStatus
	for _, line := range lines {
		if !strings.HasPrefix(line, activePrefix) {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) >= 3 {
			if v, err := strconv.ParseInt(parts[2], 10, 64); err == nil {
				status.ActiveConnections = v
			}
		}
		break
	}

	parts := strings.Fields(strings.TrimSpace(lines[2]))
	if len(parts) == 3 {
		if v, err := strconv.ParseInt(parts[2], 10, 64); err == nil {
			status.TotalRequests = v
		}
	}
	return status
}
