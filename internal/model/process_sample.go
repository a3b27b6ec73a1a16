package model

// SentinelName fills top-N slots for which no real process was observed.
const SentinelName = "-."

// ProcessSample is one process's contribution to a ranked metric.
type ProcessSample struct {
	Name        string  `json:"name"`
	MetricValue float64 `json:"metric_value"`
}

func SentinelSample() ProcessSample {
	return ProcessSample{Name: SentinelName, MetricValue: 0.0}
}

// PadSamples truncates or right-pads samples to exactly n entries.
func PadSamples(samples []ProcessSample, n int) []ProcessSample {
	if n <= 0 {
		return nil
	}
	out := make([]ProcessSample, 0, n)
	for i := 0; i < n && i < len(samples); i++ {
		s := samples[i]
		if s.Name == "" {
			s.Name = SentinelName
		}
		out = append(out, s)
	}
	for len(out) < n {
		out = append(out, SentinelSample())
	}
	return out
}
