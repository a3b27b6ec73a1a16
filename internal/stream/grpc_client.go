package stream

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/metadata"
)

type jsonCodec struct{}

func (jsonCodec) Name() string {
	return "json"
}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// GRPCClient streams record frames to a collector over a generic
// client-stream method with a JSON codec, so no generated stubs are needed
// on either side.
type GRPCClient struct {
	mu sync.Mutex

	logger       *slog.Logger
	addr         string
	tlsConfig    *tls.Config
	token        string
	recordMethod string
	conn         *grpc.ClientConn
	recordStream grpc.ClientStream
	streamCancel context.CancelFunc
	dialTimeout  time.Duration
}

func NewGRPCClient(addr string, tlsCfg *tls.Config, token, recordMethod string, logger *slog.Logger) *GRPCClient {
	encoding.RegisterCodec(jsonCodec{})
	return &GRPCClient{
		logger:       logger,
		addr:         addr,
		tlsConfig:    tlsCfg,
		token:        token,
		recordMethod: recordMethod,
		dialTimeout:  8 * time.Second,
	}
}

func (c *GRPCClient) SendRecord(ctx Context, frame RecordFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureConnLocked(ctx); err != nil {
		return err
	}
	if c.recordStream == nil {
		if err := c.openRecordStreamLocked(ctx); err != nil {
			return err
		}
	}
	if err := c.recordStream.SendMsg(frame); err != nil {
		c.logger.Warn("grpc record send failed, reopening stream", "error", err)
		c.closeStreamLocked()
		if err2 := c.openRecordStreamLocked(ctx); err2 != nil {
			return fmt.Errorf("reopen record stream: %w", err2)
		}
		if err2 := c.recordStream.SendMsg(frame); err2 != nil {
			return fmt.Errorf("send record frame: %w", err2)
		}
	}
	return nil
}

func (c *GRPCClient) Close(ctx Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeStreamLocked()
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	_ = ctx
	return nil
}

func (c *GRPCClient) ensureConnLocked(ctx Context) error {
	if c.conn != nil {
		return nil
	}
	dialCtx, cancel := context.WithTimeout(context.Background(), c.dialTimeout)
	defer cancel()
	if dl, ok := ctx.Deadline(); ok {
		dialCtx, cancel = context.WithDeadline(context.Background(), dl)
		defer cancel()
	}

	var creds credentials.TransportCredentials
	if c.tlsConfig != nil {
		creds = credentials.NewTLS(c.tlsConfig)
	} else {
		creds = insecure.NewCredentials()
	}

	conn, err := grpc.DialContext(
		dialCtx,
		c.addr,
		grpc.WithTransportCredentials(creds),
		grpc.WithBlock(),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{}), grpc.CallContentSubtype("json")),
	)
	if err != nil {
		return fmt.Errorf("grpc dial %s: %w", c.addr, err)
	}
	c.conn = conn
	c.logger.Info("grpc record sink connected", "addr", c.addr)
	return nil
}

func (c *GRPCClient) openRecordStreamLocked(ctx Context) error {
	if c.conn == nil {
		return fmt.Errorf("grpc conn is nil")
	}
	streamCtx, cancel := c.decorateContext(ctx)
	s, err := c.conn.NewStream(streamCtx, &grpc.StreamDesc{ClientStreams: true}, c.recordMethod)
	if err != nil {
		cancel()
		return fmt.Errorf("open record stream: %w", err)
	}
	c.recordStream = s
	c.streamCancel = cancel
	return nil
}

// closeStreamLocked tears down the current stream and releases its context,
// so a deadline timer does not outlive the stream it bounded.
func (c *GRPCClient) closeStreamLocked() {
	if c.recordStream != nil {
		_ = c.recordStream.CloseSend()
		c.recordStream = nil
	}
	if c.streamCancel != nil {
		c.streamCancel()
		c.streamCancel = nil
	}
}

// decorateContext builds the stream context: the caller's deadline carried
// over, plus bearer-token metadata. The returned cancel must be called when
// the stream is done; it is a no-op when no deadline was set.
func (c *GRPCClient) decorateContext(ctx Context) (context.Context, context.CancelFunc) {
	out := context.Background()
	cancel := context.CancelFunc(func() {})
	if dl, ok := ctx.Deadline(); ok {
		out, cancel = context.WithDeadline(out, dl)
	}
	if c.token != "" {
		out = metadata.AppendToOutgoingContext(out, "authorization", "Bearer "+c.token)
	}
	return out, cancel
}
