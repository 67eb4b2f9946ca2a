package messagebox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/iot-admin-core/internal/infrastructure/mqtt"
)

// DefaultTimeout bounds a request when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// requestQoS is used for requests and replies; both must arrive once.
const requestQoS = 1

// Bus is the MQTT surface the client needs. *mqtt.Client satisfies it.
type Bus interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	ClientID() string
}

// Logger defines the logging interface used by the client.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Request is the envelope published to an adapter.
type Request struct {
	ID      string          `json:"id"`
	Command string          `json:"command"`
	Message json.RawMessage `json:"message,omitempty"`
	ReplyTo string          `json:"replyTo"`
	From    string          `json:"from,omitempty"`
}

// Reply is the envelope an adapter answers with.
type Reply struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Config configures a Client.
type Config struct {
	// Timeout per request. Zero means DefaultTimeout.
	Timeout time.Duration

	// From is reported to adapters as the sender, e.g. "system.adapter.iotadmin".
	From string
}

// Client correlates requests and replies over a Bus.
type Client struct {
	bus     Bus
	topics  mqtt.Topics
	timeout time.Duration
	from    string

	mu      sync.Mutex
	pending map[string]chan Reply
	started bool
	closed  bool

	logger   Logger
	observer func(command, result string)
}

// NewClient creates a Client. Call Start before sending.
func NewClient(bus Bus, cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		bus:     bus,
		timeout: cfg.Timeout,
		from:    cfg.From,
		pending: make(map[string]chan Reply),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the client.
func (c *Client) SetLogger(logger Logger) {
	c.logger = logger
}

// SetObserver registers a callback run after every request with the
// command and its result ("ok", "timeout", "remote_error" or "error").
func (c *Client) SetObserver(o func(command, result string)) {
	c.observer = o
}

// ReplyTopic returns the topic this client receives replies on.
func (c *Client) ReplyTopic() string {
	return c.topics.MessageboxReply(c.bus.ClientID())
}

// Start subscribes to the reply topic.
func (c *Client) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.started {
		return nil
	}
	if err := c.bus.Subscribe(c.ReplyTopic(), requestQoS, c.handleReply); err != nil {
		return fmt.Errorf("subscribing to replies: %w", err)
	}
	c.started = true
	return nil
}

// Close unsubscribes and fails every waiting request with ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	started := c.started
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.mu.Unlock()

	if started {
		return c.bus.Unsubscribe(c.ReplyTopic())
	}
	return nil
}

// Pending returns the number of requests waiting for a reply.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// SendTo publishes command with payload to target and waits for the reply.
//
// Parameters:
//   - ctx: Cancels the wait; the request itself is not retracted
//   - target: Adapter instance, e.g. "iot.0"
//   - command: Command name understood by the adapter
//   - payload: JSON-encodable message, or nil
//
// Returns:
//   - json.RawMessage: The reply result (may be empty)
//   - error: ErrTimeout, ErrRemote, ErrClosed, or a bus error
func (c *Client) SendTo(ctx context.Context, target, command string, payload any) (json.RawMessage, error) {
	if target == "" || command == "" {
		return nil, ErrInvalidTarget
	}

	req := Request{
		ID:      uuid.NewString(),
		Command: command,
		ReplyTo: c.ReplyTopic(),
		From:    c.from,
	}
	if payload != nil {
		msg, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding %s payload: %w", command, err)
		}
		req.Message = msg
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", command, err)
	}

	ch := make(chan Reply, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.pending[req.ID] = ch
	c.mu.Unlock()
	defer c.forget(req.ID)

	if err := c.bus.Publish(c.topics.MessageboxRequest(target, command), body, requestQoS, false); err != nil {
		c.observe(command, "error")
		return nil, fmt.Errorf("sending %s to %s: %w", command, target, err)
	}
	c.logger.Debug("messagebox request sent", "target", target, "command", command, "id", req.ID)

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case reply, ok := <-ch:
		if !ok {
			c.observe(command, "error")
			return nil, ErrClosed
		}
		if reply.Error != "" {
			c.observe(command, "remote_error")
			return nil, fmt.Errorf("%w: %s: %s", ErrRemote, command, reply.Error)
		}
		c.observe(command, "ok")
		return reply.Result, nil
	case <-timer.C:
		c.observe(command, "timeout")
		return nil, fmt.Errorf("%w: %s to %s after %v", ErrTimeout, command, target, c.timeout)
	case <-ctx.Done():
		c.observe(command, "error")
		return nil, ctx.Err()
	}
}

func (c *Client) forget(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// handleReply routes a reply to its waiting request.
func (c *Client) handleReply(_ string, payload []byte) error {
	var reply Reply
	if err := json.Unmarshal(payload, &reply); err != nil {
		return fmt.Errorf("decoding messagebox reply: %w", err)
	}
	if reply.ID == "" {
		return errors.New("messagebox reply without id")
	}

	c.mu.Lock()
	ch, ok := c.pending[reply.ID]
	if ok {
		delete(c.pending, reply.ID)
	}
	c.mu.Unlock()

	if !ok {
		c.logger.Debug("messagebox reply for unknown request", "id", reply.ID)
		return nil
	}
	ch <- reply
	return nil
}

func (c *Client) observe(command, result string) {
	if c.observer != nil {
		c.observer(command, result)
	}
}
