// Package config holds the caller-facing configuration bundle and its
// defaults.
package config

import (
	"encoding/hex"
	"fmt"
	"time"
)

// Defaults applied by Normalize for zero-valued fields.
const (
	DefaultBatchSize        = 30
	DefaultFlushInterval    = 10 * time.Second
	DefaultMaxRetries       = 3
	DefaultNetworkTimeout   = 10 * time.Second
	DefaultCloseTimeout     = 5 * time.Second
	DefaultMaxOfflineEvents = 1000
)

// Config configures a client. The zero value plus APIKey and Endpoint is
// usable after Normalize.
type Config struct {
	// APIKey is the collector authentication key as a hex string.
	APIKey string `json:"api_key"`

	// Endpoint is the collector host:port.
	Endpoint string `json:"endpoint"`

	// BatchSize triggers a full flush when the combined queue size
	// reaches it.
	BatchSize int `json:"batch_size"`

	// FlushInterval is the background flush period.
	FlushInterval time.Duration `json:"flush_interval"`

	// MaxRetries bounds retry attempts per failed batch.
	MaxRetries int `json:"max_retries"`

	// NetworkTimeout bounds dialing and each frame write.
	NetworkTimeout time.Duration `json:"network_timeout"`

	// CloseTimeout bounds the final flush during Close.
	CloseTimeout time.Duration `json:"close_timeout"`

	// OfflineStorageEnabled turns the overflow store on.
	OfflineStorageEnabled bool `json:"offline_storage_enabled"`

	// MaxOfflineEvents caps the overflow store.
	MaxOfflineEvents int `json:"max_offline_events"`

	// OfflinePath is the overflow store directory. Empty means
	// in-memory.
	OfflinePath string `json:"offline_path,omitempty"`
}

// Normalize fills zero-valued fields with defaults.
func (c *Config) Normalize() {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = DefaultFlushInterval
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.NetworkTimeout <= 0 {
		c.NetworkTimeout = DefaultNetworkTimeout
	}
	if c.CloseTimeout <= 0 {
		c.CloseTimeout = DefaultCloseTimeout
	}
	if c.MaxOfflineEvents <= 0 {
		c.MaxOfflineEvents = DefaultMaxOfflineEvents
	}
}

// Validate checks the fields no default can supply.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("config: api key is required")
	}
	if _, err := hex.DecodeString(c.APIKey); err != nil {
		return fmt.Errorf("config: api key must be a hex string: %w", err)
	}
	if c.Endpoint == "" {
		return fmt.Errorf("config: endpoint is required")
	}
	return nil
}

// APIKeyBytes decodes the hex API key into the raw bytes placed in each
// batch table.
func (c *Config) APIKeyBytes() ([]byte, error) {
	key, err := hex.DecodeString(c.APIKey)
	if err != nil {
		return nil, fmt.Errorf("config: api key must be a hex string: %w", err)
	}
	return key, nil
}
