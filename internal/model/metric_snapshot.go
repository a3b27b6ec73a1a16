package model

import "time"

// MetricSnapshot is one invocation's view of the host: system-wide CPU and
// memory utilization plus the top-N processes for each dimension. TopCPU and
// TopMem always hold exactly TopN entries in descending metric order, padded
// with sentinel samples when fewer real processes were observed.
type MetricSnapshot struct {
	Timestamp       time.Time       `json:"timestamp"`
	CPUUsagePercent float64         `json:"cpu_usage_percent"`
	MemUsagePercent float64         `json:"mem_usage_percent"`
	TopCPU          []ProcessSample `json:"top_cpu"`
	TopMem          []ProcessSample `json:"top_mem"`
}
