package sdk

import (
	"context"
	"fmt"

	"github.com/pulsekit/pulsekit/pkg/config"
	"github.com/pulsekit/pulsekit/pkg/sdk/batch"
	"github.com/pulsekit/pulsekit/pkg/sdk/record"
	"github.com/pulsekit/pulsekit/pkg/sdk/transport"
	"github.com/pulsekit/pulsekit/pkg/store"
	badgerstore "github.com/pulsekit/pulsekit/pkg/store/badger"
	memorystore "github.com/pulsekit/pulsekit/pkg/store/memory"
)

// Client is the PulseKit SDK entry point: thin glue around the batch
// manager, transport, and overflow store.
type Client struct {
	cfg       config.Config
	transport *transport.TCP
	manager   *batch.Manager
	store     store.Store

	started bool
}

// New creates a client. Call Start to begin the background flush timer.
func New(cfg config.Config) (*Client, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	apiKey, err := cfg.APIKeyBytes()
	if err != nil {
		return nil, err
	}

	tr, err := transport.NewTCP(transport.Config{
		Endpoint:    cfg.Endpoint,
		Timeout:     cfg.NetworkTimeout,
		AutoConnect: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	var st store.Store
	if cfg.OfflineStorageEnabled {
		if cfg.OfflinePath != "" {
			st, err = badgerstore.New(badgerstore.Config{
				Path:     cfg.OfflinePath,
				Capacity: cfg.MaxOfflineEvents,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to open offline store: %w", err)
			}
		} else {
			st = memorystore.New(cfg.MaxOfflineEvents)
		}
	}

	manager := batch.New(tr, batch.Config{
		APIKey:        apiKey,
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
		MaxRetries:    cfg.MaxRetries,
		Store:         st,
	})

	return &Client{
		cfg:       cfg,
		transport: tr,
		manager:   manager,
		store:     st,
	}, nil
}

// Start launches the background flush timer.
func (c *Client) Start(ctx context.Context) error {
	if c.started {
		return fmt.Errorf("client already started")
	}
	if err := c.manager.Start(ctx); err != nil {
		return err
	}
	c.started = true
	return nil
}

// Track enqueues an analytics event. Fire-and-forget: only validation and
// queue-full errors surface here.
func (c *Client) Track(e record.Event) error {
	return c.manager.AddEvent(e)
}

// Identify enqueues a user-identity record.
func (c *Client) Identify(i record.Identity) error {
	return c.manager.AddIdentity(i)
}

// SetGroup enqueues a group-membership record.
func (c *Client) SetGroup(g record.Group) error {
	return c.manager.AddGroup(g)
}

// TrackRevenue enqueues a revenue record; it is always high priority and
// flushes immediately.
func (c *Client) TrackRevenue(r record.Revenue) error {
	return c.manager.AddRevenue(r)
}

// Log enqueues a structured log entry.
func (c *Client) Log(l record.LogEntry) error {
	return c.manager.AddLog(l)
}

// Flush sends everything queued and reports the outcome. Call it before
// Close when delivery must be confirmed.
func (c *Client) Flush(ctx context.Context) error {
	return c.manager.Flush(ctx)
}

// Close stops the flush timer, runs one best-effort final flush, and
// shuts down the transport and overflow store. It does not report partial
// delivery failure.
func (c *Client) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.CloseTimeout)
	defer cancel()

	c.manager.Close(ctx)
	c.transport.Close()
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			return fmt.Errorf("failed to close offline store: %w", err)
		}
	}
	c.started = false
	return nil
}

// QueueSizes reports the current queue depth per record kind.
func (c *Client) QueueSizes() map[record.Kind]int {
	return c.manager.QueueSizes()
}

// BatchStats returns batch manager counters.
func (c *Client) BatchStats() batch.Stats {
	return c.manager.Stats()
}

// NetworkStats returns transport counters.
func (c *Client) NetworkStats() transport.Stats {
	return c.transport.Stats()
}
