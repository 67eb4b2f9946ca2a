package influxdb

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/iot-admin-core/internal/infrastructure/config"
)

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second

	fallbackBatchSize     = 100
	fallbackFlushInterval = 10 * time.Second
)

// Client records app telemetry and state history in an InfluxDB v2 bucket.
//
// The object tree only holds the latest value of a state; the points written
// here keep the history so it can be charted. Writes go through the
// non-blocking batching API and never wait on the server.
//
// A nil *Client is valid and drops every write, so callers can hold one
// whether or not influxdb.enabled is set.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	cfg      config.InfluxDBConfig

	open        atomic.Bool
	points      atomic.Int64
	writeErrors atomic.Int64

	errMu   sync.RWMutex
	onError func(err error)
}

// Stats is a snapshot of the writer for status reporting.
type Stats struct {
	Connected   bool  `json:"connected"`
	Points      int64 `json:"points"`
	WriteErrors int64 `json:"write_errors"`
}

// Connect pings the server described by cfg and prepares a batching writer
// for cfg.Org/cfg.Bucket.
//
// Returns:
//   - *Client: ready for writes
//   - error: ErrDisabled when the section is switched off, ErrConnectionFailed
//     when the first ping fails
func Connect(ctx context.Context, cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	opts := influxdb2.DefaultOptions().
		SetBatchSize(batchSize(cfg)).
		SetFlushInterval(flushIntervalMillis(cfg))
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	ok, err := client.Ping(pingCtx)
	switch {
	case err != nil:
		client.Close()
		return nil, fmt.Errorf("%w: ping %s: %w", ErrConnectionFailed, cfg.URL, err)
	case !ok:
		client.Close()
		return nil, fmt.Errorf("%w: %s reports unhealthy", ErrConnectionFailed, cfg.URL)
	}

	return newClient(client, client.WriteAPI(cfg.Org, cfg.Bucket), cfg), nil
}

func batchSize(cfg config.InfluxDBConfig) uint {
	if cfg.BatchSize <= 0 {
		return fallbackBatchSize
	}
	return uint(cfg.BatchSize) // #nosec G115 -- positive
}

func flushIntervalMillis(cfg config.InfluxDBConfig) uint {
	interval := fallbackFlushInterval
	if cfg.FlushInterval > 0 {
		interval = time.Duration(cfg.FlushInterval) * time.Second
	}
	return uint(interval.Milliseconds()) // #nosec G115 -- positive
}

// newClient wraps writeAPI and starts forwarding its async errors.
func newClient(client influxdb2.Client, writeAPI api.WriteAPI, cfg config.InfluxDBConfig) *Client {
	c := &Client{client: client, writeAPI: writeAPI, cfg: cfg}
	c.open.Store(true)
	if ch := writeAPI.Errors(); ch != nil {
		go c.forwardErrors(ch)
	}
	return c
}

func (c *Client) forwardErrors(ch <-chan error) {
	for err := range ch {
		c.writeErrors.Add(1)

		c.errMu.RLock()
		callback := c.onError
		c.errMu.RUnlock()
		if callback != nil {
			callback(err)
		}
	}
}

// write queues p. Nil points and writes after Close are dropped.
func (c *Client) write(p *write.Point) {
	if p == nil || !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(p)
	c.points.Add(1)
}

// Close flushes buffered points and releases the client. Later writes are
// dropped.
func (c *Client) Close() error {
	if c == nil || c.writeAPI == nil {
		return nil
	}
	if !c.open.Swap(false) {
		return nil
	}
	c.writeAPI.Flush()
	if c.client != nil {
		c.client.Close()
	}
	return nil
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() || c.client == nil {
		return ErrNotConnected
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	ok, err := c.client.Ping(pingCtx)
	if err != nil {
		return fmt.Errorf("influxdb health check: %w", err)
	}
	if !ok {
		return fmt.Errorf("influxdb health check: %s reports unhealthy", c.cfg.URL)
	}
	return nil
}

// IsConnected reports whether the client accepts writes. It does not ping;
// use HealthCheck for that.
func (c *Client) IsConnected() bool {
	return c != nil && c.open.Load()
}

// Stats returns the number of queued points and async write failures.
func (c *Client) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	return Stats{
		Connected:   c.IsConnected(),
		Points:      c.points.Load(),
		WriteErrors: c.writeErrors.Load(),
	}
}

// SetOnError sets the callback for async write failures. Writes are batched,
// so failures surface here rather than at the call site.
func (c *Client) SetOnError(callback func(err error)) {
	c.errMu.Lock()
	c.onError = callback
	c.errMu.Unlock()
}

// Flush blocks until buffered points are sent. It is a no-op after Close.
func (c *Client) Flush() {
	if !c.IsConnected() || c.writeAPI == nil {
		return
	}
	c.writeAPI.Flush()
}
