package transport

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsekit/pulsekit/pkg/wire"
)

// frameServer accepts connections and collects the frame bodies it reads.
type frameServer struct {
	ln net.Listener

	mu     sync.Mutex
	conns  []net.Conn
	frames [][]byte
}

func newFrameServer(t *testing.T) *frameServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &frameServer{ln: ln}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.conns = append(s.conns, conn)
			s.mu.Unlock()
			go func(c net.Conn) {
				defer c.Close()
				for {
					body, err := wire.ReadFrame(c)
					if err != nil {
						return
					}
					s.mu.Lock()
					s.frames = append(s.frames, body)
					s.mu.Unlock()
				}
			}(conn)
		}
	}()
	t.Cleanup(func() { ln.Close() })
	return s
}

func (s *frameServer) addr() string { return s.ln.Addr().String() }

func (s *frameServer) closeAll() {
	s.ln.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		c.Close()
	}
}

func (s *frameServer) received() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([][]byte, len(s.frames))
	copy(out, s.frames)
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestConnectLifecycle(t *testing.T) {
	srv := newFrameServer(t)
	tr, err := NewTCP(Config{Endpoint: srv.addr(), Timeout: time.Second})
	require.NoError(t, err)

	assert.Equal(t, StateDisconnected, tr.State())

	require.NoError(t, tr.Connect(context.Background()))
	assert.Equal(t, StateConnected, tr.State())

	// Idempotent while connected: no second physical connection.
	attempts := tr.Stats().ConnectAttempts
	require.NoError(t, tr.Connect(context.Background()))
	assert.Equal(t, attempts, tr.Stats().ConnectAttempts)

	require.NoError(t, tr.Close())
	assert.Equal(t, StateDisconnected, tr.State())
}

func TestConnectFailure(t *testing.T) {
	// Reserve a port, then close it so nothing is listening.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	tr, err := NewTCP(Config{Endpoint: addr, Timeout: 200 * time.Millisecond})
	require.NoError(t, err)

	err = tr.Connect(context.Background())
	var cerr *ConnError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, StateFailed, tr.State())
	assert.NotEmpty(t, tr.Stats().LastError)
}

func TestSendFrame(t *testing.T) {
	srv := newFrameServer(t)
	tr, err := NewTCP(Config{Endpoint: srv.addr(), Timeout: time.Second, AutoConnect: true})
	require.NoError(t, err)
	defer tr.Close()

	body := []byte("batch-table")
	require.NoError(t, tr.SendFrame(context.Background(), body))

	waitFor(t, func() bool { return len(srv.received()) == 1 })
	assert.Equal(t, body, srv.received()[0])

	stats := tr.Stats()
	assert.Equal(t, uint64(1), stats.SendAttempts)
	assert.Equal(t, uint64(0), stats.SendFailures)
	assert.Equal(t, uint64(len(body)+4), stats.BytesSent)
	assert.False(t, stats.LastSuccess.IsZero())
}

func TestSendRequiresConnectionWithoutAutoConnect(t *testing.T) {
	srv := newFrameServer(t)
	tr, err := NewTCP(Config{Endpoint: srv.addr(), Timeout: time.Second})
	require.NoError(t, err)

	err = tr.SendFrame(context.Background(), []byte("x"))
	var cerr *ConnError
	require.ErrorAs(t, err, &cerr)
}

func TestSendFailureTearsDownConnection(t *testing.T) {
	srv := newFrameServer(t)
	tr, err := NewTCP(Config{Endpoint: srv.addr(), Timeout: time.Second})
	require.NoError(t, err)
	require.NoError(t, tr.Connect(context.Background()))

	// Kill the server side, then write until the failure surfaces.
	// The first write after close may still land in kernel buffers.
	srv.closeAll()
	var sendErr error
	for i := 0; i < 50; i++ {
		if sendErr = tr.SendFrame(context.Background(), []byte("x")); sendErr != nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	var cerr *ConnError
	require.ErrorAs(t, sendErr, &cerr)

	assert.Equal(t, StateFailed, tr.State())
	assert.NotZero(t, tr.Stats().SendFailures)

	// Explicit close returns to disconnected so the next cycle starts
	// clean.
	require.NoError(t, tr.Close())
	assert.Equal(t, StateDisconnected, tr.State())
}

func TestSendOversizedFrameRejected(t *testing.T) {
	srv := newFrameServer(t)
	tr, err := NewTCP(Config{Endpoint: srv.addr(), Timeout: time.Second, AutoConnect: true})
	require.NoError(t, err)

	big := make([]byte, wire.MaxBatchBytes+1)
	err = tr.SendFrame(context.Background(), big)
	var verr *wire.ValidationError
	require.ErrorAs(t, err, &verr)
}
