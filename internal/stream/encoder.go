package stream

import (
	"encoding/json"
	"time"

	"hostprobe-agent/internal/model"
)

// Sink receives the finished record. How it reaches durable storage (file
// append, collector stream) is the sink's concern; the probe core only
// produces the frame.
type Sink interface {
	SendRecord(ctx Context, frame RecordFrame) error
	Close(ctx Context) error
}

type Context interface {
	Done() <-chan struct{}
	Err() error
	Deadline() (time.Time, bool)
	Value(key any) any
}

// RecordFrame carries the formatted row plus the structured values it was
// built from, for sinks that want more than the flat line.
type RecordFrame struct {
	NodeID            string                 `json:"node_id"`
	Hostname          string                 `json:"hostname"`
	TimestampUnix     int64                  `json:"timestamp_unix"`
	Row               string                 `json:"row"`
	Snapshot          model.MetricSnapshot   `json:"snapshot"`
	Connections       model.ConnectionStatus `json:"connections"`
	RequestsPerSecond float64                `json:"requests_per_second"`
}

func NewRecordFrame(nodeID, hostname string, snap model.MetricSnapshot, status model.ConnectionStatus, rps float64, row string) RecordFrame {
	return RecordFrame{
		NodeID:            nodeID,
		Hostname:          hostname,
		TimestampUnix:     snap.Timestamp.Unix(),
		Row:               row,
		Snapshot:          snap,
		Connections:       status,
		RequestsPerSecond: rps,
	}
}

func EncodeFrame(f RecordFrame) ([]byte, error) {
	return json.Marshal(f)
}
