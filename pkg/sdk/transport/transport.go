// Package transport owns the persistent TCP connection to the collector.
// It sends length-prefixed frames and tracks connection state; retry
// policy lives in the batch manager, never here.
package transport

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/pulsekit/pulsekit/pkg/wire"
)

// Transport defines the interface for shipping encoded batch frames.
type Transport interface {
	// Connect establishes the connection. Idempotent while connected.
	Connect(ctx context.Context) error

	// SendFrame writes one batch table as a length-prefixed frame.
	// Exactly one success/failure outcome per call.
	SendFrame(ctx context.Context, body []byte) error

	// Close tears the connection down.
	Close() error

	// State reports the current connection state.
	State() State

	// Stats returns a copy of the per-operation counters.
	Stats() Stats
}

// State is the connection lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Stats counts transport operations. Read-only to callers.
type Stats struct {
	ConnectAttempts uint64    `json:"connect_attempts"`
	SendAttempts    uint64    `json:"send_attempts"`
	SendFailures    uint64    `json:"send_failures"`
	BytesSent       uint64    `json:"bytes_sent"`
	LastSuccess     time.Time `json:"last_success,omitempty"`
	LastFailure     time.Time `json:"last_failure,omitempty"`
	LastError       string    `json:"last_error,omitempty"`
}

// Config holds TCP transport configuration.
type Config struct {
	// Endpoint is the collector host:port.
	Endpoint string

	// Timeout bounds dialing and each frame write.
	Timeout time.Duration

	// AutoConnect makes SendFrame dial when disconnected instead of
	// failing.
	AutoConnect bool
}

// TCP implements Transport over a single net.Conn.
type TCP struct {
	cfg Config

	mu    sync.Mutex
	conn  net.Conn
	state State
	stats Stats
}

// NewTCP creates a TCP transport. It does not dial; call Connect or rely
// on AutoConnect.
func NewTCP(cfg Config) (*TCP, error) {
	if cfg.Endpoint == "" {
		return nil, &ConnError{Op: "configure", Reason: "endpoint is required"}
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &TCP{cfg: cfg, state: StateDisconnected}, nil
}

// Connect dials the collector. Returns nil without dialing when already
// connected; a concurrent attempt while another Connect is in flight is
// rejected rather than opening a second physical connection.
func (t *TCP) Connect(ctx context.Context) error {
	t.mu.Lock()
	switch t.state {
	case StateConnected:
		t.mu.Unlock()
		return nil
	case StateConnecting:
		t.mu.Unlock()
		return &ConnError{Op: "connect", Endpoint: t.cfg.Endpoint, Reason: "connect already in progress"}
	}
	t.state = StateConnecting
	t.stats.ConnectAttempts++
	t.mu.Unlock()

	dialer := net.Dialer{Timeout: t.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", t.cfg.Endpoint)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.state = StateFailed
		t.stats.LastFailure = time.Now()
		t.stats.LastError = err.Error()
		return &ConnError{Op: "connect", Endpoint: t.cfg.Endpoint, Err: err}
	}
	t.conn = conn
	t.state = StateConnected
	return nil
}

// SendFrame frames and writes one encoded batch table. On any write error
// the connection is torn down so the next send starts clean, and the
// failure is returned as a *ConnError. The transport never retries.
func (t *TCP) SendFrame(ctx context.Context, body []byte) error {
	frame, err := wire.Frame(body)
	if err != nil {
		return err
	}

	t.mu.Lock()
	if t.state != StateConnected {
		if !t.cfg.AutoConnect {
			state := t.state
			t.mu.Unlock()
			return &ConnError{Op: "send", Endpoint: t.cfg.Endpoint, Reason: "not connected (state " + state.String() + ")"}
		}
		t.mu.Unlock()
		if err := t.Connect(ctx); err != nil {
			return err
		}
		t.mu.Lock()
		if t.state != StateConnected {
			t.mu.Unlock()
			return &ConnError{Op: "send", Endpoint: t.cfg.Endpoint, Reason: "connection lost before send"}
		}
	}
	defer t.mu.Unlock()

	t.stats.SendAttempts++

	deadline := time.Now().Add(t.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := t.conn.SetWriteDeadline(deadline); err != nil {
		return t.failSendLocked(err)
	}

	n, err := t.conn.Write(frame)
	if err != nil {
		return t.failSendLocked(err)
	}

	t.stats.BytesSent += uint64(n)
	t.stats.LastSuccess = time.Now()
	return nil
}

// failSendLocked records a send failure and tears down the connection.
// Caller holds t.mu.
func (t *TCP) failSendLocked(err error) error {
	t.stats.SendFailures++
	t.stats.LastFailure = time.Now()
	t.stats.LastError = err.Error()
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
	t.state = StateFailed
	return &ConnError{Op: "send", Endpoint: t.cfg.Endpoint, Err: err}
}

// Close tears the connection down and returns the transport to
// disconnected.
func (t *TCP) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var err error
	if t.conn != nil {
		err = t.conn.Close()
		t.conn = nil
	}
	t.state = StateDisconnected
	return err
}

// State reports the current connection state.
func (t *TCP) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Stats returns a copy of the transport counters.
func (t *TCP) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}
