package model

// RateState is the counter/time pair persisted between invocations. The JSON
// field names match the state files written by earlier deployments of this
// collector, so existing state carries over.
type RateState struct {
	LastCounter int64   `json:"last_requests"`
	LastTime    float64 `json:"last_time"`
}
