// Package toptable parses the batch-mode output of top(1) into a system-wide
// aggregate and per-process samples. The format is loose: a handful of
// summary lines, a header row whose first token is PID, then one row per
// process where the trailing COMMAND column may itself contain spaces.
package toptable

import (
	"regexp"
	"strconv"
	"strings"

	"hostprobe-agent/internal/model"
)

const (
	headerMarker = "PID"

	// ColumnCPU and ColumnMem index into the usual batch layout:
	// PID USER PR NI VIRT RES SHR S %CPU %MEM TIME+ COMMAND
	ColumnCPU = 8
	ColumnMem = 9

	commandColumn = 11
	columnCount   = 12
)

// cpuSummaryRe captures the user share from "%Cpu(s):  3.4 us,  1.2 sy, ...".
var cpuSummaryRe = regexp.MustCompile(`^%Cpu\(s\):\s*(.*?)\s*us,`)

// memSummaryRe captures total/free/used/buff from
// "MiB Mem :  15852.9 total,  13007.2 free,   1649.1 used,   196.7 buff/cache".
var memSummaryRe = regexp.MustCompile(`^MiB Mem\s*:\s*(\S+)\s+total,\s*(\S+)\s+free,\s*(\S+)\s+used,\s*(\S+)\s+buff/cache`)

// Parse extracts the system-wide aggregate for the metric column plus up to n
// per-process samples from one top dump. The aggregate comes from the summary
// block above the header: the user CPU share for ColumnCPU, used/total*100
// for ColumnMem. A missing or unparsable summary yields 0.0 without aborting
// the row parse; rows with fewer than the expected column count are skipped.
func Parse(text string, metricColumn, n int) (float64, []model.ProcessSample) {
	lines := strings.Split(text, "\n")

	var aggregate float64
	headerIndex := 0
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch metricColumn {
		case ColumnCPU:
			if m := cpuSummaryRe.FindStringSubmatch(trimmed); m != nil {
				if v, err := strconv.ParseFloat(m[1], 64); err == nil {
					aggregate = v
				}
			}
		case ColumnMem:
			if m := memSummaryRe.FindStringSubmatch(trimmed); m != nil {
				total, errT := strconv.ParseFloat(m[1], 64)
				used, errU := strconv.ParseFloat(m[3], 64)
				if errT == nil && errU == nil && total > 0 {
					aggregate = used / total * 100
				}
			}
		}
		if strings.HasPrefix(trimmed, headerMarker) {
			headerIndex = i
			break
		}
	}

	var samples []model.ProcessSample
	rows := lines[min(headerIndex+1, len(lines)):]
	for i := 0; i < n && i < len(rows); i++ {
		cols := splitColumns(rows[i], commandColumn)
		if len(cols) < columnCount {
			continue
		}
		value, err := strconv.ParseFloat(cols[metricColumn], 64)
		if err != nil {
			value = 0.0
		}
		samples = append(samples, model.ProcessSample{Name: cols[commandColumn], MetricValue: value})
	}
	return aggregate, samples
}

// splitColumns splits a row on whitespace at most maxSplit times, so the
// final element keeps the remainder of the line intact.
func splitColumns(line string, maxSplit int) []string {
	var cols []string
	rest := strings.TrimLeft(line, " \t")
	for len(rest) > 0 {
		if len(cols) == maxSplit {
			cols = append(cols, strings.TrimRight(rest, " \t"))
			return cols
		}
		cut := strings.IndexAny(rest, " \t")
		if cut < 0 {
			cols = append(cols, rest)
			return cols
		}
		cols = append(cols, rest[:cut])
		rest = strings.TrimLeft(rest[cut:], " \t")
	}
	return cols
}
