// Package sink is a development collector: it accepts SDK connections,
// decodes batch frames, and exposes what it received over HTTP for
// inspection. It is a debugging harness, not the production collector.
package sink

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"sync"
	"time"

	"github.com/pulsekit/pulsekit/pkg/wire"
)

// Config holds sink configuration.
type Config struct {
	// ListenAddr is the TCP address SDK clients connect to.
	ListenAddr string

	// MaxBatches bounds the in-memory batch log; older batches are
	// evicted.
	MaxBatches int
}

// ReceivedBatch is one decoded batch with receive metadata.
type ReceivedBatch struct {
	ReceivedAt time.Time       `json:"received_at"`
	Remote     string          `json:"remote"`
	BatchID    uint64          `json:"batch_id"`
	Schema     wire.SchemaType `json:"schema"`
	Records    []RecordView    `json:"records"`
}

// RecordView is the JSON shape of a decoded wire row.
type RecordView struct {
	Timestamp time.Time      `json:"timestamp"`
	Kind      uint8          `json:"kind"`
	Subject   string         `json:"subject"`
	Body      map[string]any `json:"body,omitempty"`
}

// Stats counts sink activity.
type Stats struct {
	Connections   uint64 `json:"connections"`
	BatchesStored uint64 `json:"batches_stored"`
	RecordsStored uint64 `json:"records_stored"`
	DecodeErrors  uint64 `json:"decode_errors"`
}

// Sink receives and stores decoded batches.
type Sink struct {
	cfg Config
	hub *Hub

	mu      sync.Mutex
	batches []ReceivedBatch
	stats   Stats
}

// New creates a sink broadcasting decoded batches to hub (optional).
func New(cfg Config, hub *Hub) *Sink {
	if cfg.MaxBatches <= 0 {
		cfg.MaxBatches = 1000
	}
	return &Sink{cfg: cfg, hub: hub}
}

// Run listens for SDK connections until the context is cancelled.
func (s *Sink) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	log.Printf("sink listening on %s", s.cfg.ListenAddr)
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		s.mu.Lock()
		s.stats.Connections++
		s.mu.Unlock()
		go s.handleConn(ctx, conn)
	}
}

// handleConn reads frames off one connection until it closes.
func (s *Sink) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()
	log.Printf("sink: client connected from %s", remote)

	for {
		body, err := wire.ReadFrame(conn)
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Printf("sink: client %s disconnected", remote)
				return
			}
			s.mu.Lock()
			s.stats.DecodeErrors++
			s.mu.Unlock()
			log.Printf("sink: dropping connection from %s: %v", remote, err)
			return
		}

		batch, err := wire.DecodeBatch(body)
		if err != nil {
			s.mu.Lock()
			s.stats.DecodeErrors++
			s.mu.Unlock()
			log.Printf("sink: undecodable batch from %s: %v", remote, err)
			continue
		}
		s.store(remote, batch)
	}
}

// store appends a decoded batch to the bounded log and broadcasts it.
func (s *Sink) store(remote string, batch *wire.Batch) {
	rb := ReceivedBatch{
		ReceivedAt: time.Now(),
		Remote:     remote,
		BatchID:    batch.BatchID,
		Schema:     batch.Schema,
		Records:    make([]RecordView, 0, len(batch.Records)),
	}
	for _, r := range batch.Records {
		rb.Records = append(rb.Records, RecordView{
			Timestamp: r.Timestamp,
			Kind:      r.Kind,
			Subject:   r.Subject,
			Body:      r.Body,
		})
	}

	s.mu.Lock()
	s.batches = append(s.batches, rb)
	if len(s.batches) > s.cfg.MaxBatches {
		s.batches = s.batches[len(s.batches)-s.cfg.MaxBatches:]
	}
	s.stats.BatchesStored++
	s.stats.RecordsStored += uint64(len(rb.Records))
	s.mu.Unlock()

	if s.hub != nil {
		s.hub.BroadcastBatch(rb)
	}
}

// Batches returns a copy of the stored batch log, newest last.
func (s *Sink) Batches() []ReceivedBatch {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ReceivedBatch, len(s.batches))
	copy(out, s.batches)
	return out
}

// Stats returns a copy of the sink counters.
func (s *Sink) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
