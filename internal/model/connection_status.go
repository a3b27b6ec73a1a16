package model

// ConnectionStatus holds the two counters scraped from an nginx stub_status
// page. TotalRequests is cumulative and normally non-decreasing across
// invocations; a smaller reading indicates an upstream restart.
type ConnectionStatus struct {
	ActiveConnections int64 `json:"active_connections"`
	TotalRequests     int64 `json:"total_requests"`
}
