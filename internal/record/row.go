// Package record assembles one invocation's measurements into the fixed
// 25-field semicolon-delimited row consumed downstream.
package record

import (
	"strconv"
	"strings"

	"hostprobe-agent/internal/model"
)

const (
	// Delimiter separates row fields.
	Delimiter = ";"
	// TimestampLayout is local time in a lexically sortable form.
	TimestampLayout = "2006-01-02 15:04:05"
	// FieldCount is fixed: timestamp, cpu, 5 cpu pairs, mem, 5 mem pairs,
	// active connections, requests/sec.
	FieldCount = 2 + 10 + 1 + 10 + 1 + 1
)

const pairCount = 5

// BuildRow renders the snapshot, connection counters, and derived rate into
// one row. The top lists are re-padded here so the field count holds even if
// a caller hands in short lists.
func BuildRow(snap model.MetricSnapshot, status model.ConnectionStatus, requestsPerSecond float64) string {
	fields := make([]string, 0, FieldCount)
	fields = append(fields, snap.Timestamp.Format(TimestampLayout))
	fields = append(fields, formatPct(snap.CPUUsagePercent))
	fields = appendPairs(fields, snap.TopCPU)
	fields = append(fields, formatPct(snap.MemUsagePercent))
	fields = appendPairs(fields, snap.TopMem)
	fields = append(fields, strconv.FormatInt(status.ActiveConnections, 10))
	fields = append(fields, formatPct(requestsPerSecond))
	return strings.Join(fields, Delimiter)
}

func appendPairs(fields []string, samples []model.ProcessSample) []string {
	for _, s := range model.PadSamples(samples, pairCount) {
		fields = append(fields, s.Name, formatPct(s.MetricValue))
	}
	return fields
}

func formatPct(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
