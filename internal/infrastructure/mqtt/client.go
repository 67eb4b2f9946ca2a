package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/iot-admin-core/internal/infrastructure/config"
)

// Client is the admin core's connection to the MQTT bus.
//
// State mirroring, messagebox requests and app intake all share one Client.
// Subscriptions are remembered and restored after every reconnect, so
// reply topics survive broker restarts.
//
// All methods are safe for concurrent use.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig

	subMu         sync.RWMutex
	subscriptions map[string]subscription

	connected   atomic.Bool
	connects    atomic.Int64
	lastConnect atomic.Int64 // unix ms

	hookMu       sync.RWMutex
	onConnect    func()
	onDisconnect func(err error)
	logger       Logger
}

// Logger is the logging surface the client uses. *logging.Logger satisfies it.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Stats is a snapshot of the connection for status reporting.
type Stats struct {
	Connected     bool      `json:"connected"`
	Reconnects    int64     `json:"reconnects"`
	Subscriptions int       `json:"subscriptions"`
	LastConnect   time.Time `json:"last_connect,omitzero"`
}

type subscription struct {
	qos     byte
	handler MessageHandler
}

// MessageHandler receives one message. Handlers run on paho's goroutines and
// should return quickly; a returned error is logged, not retried.
type MessageHandler func(topic string, payload []byte) error

// Connect dials the broker described by cfg and waits for the first
// connection. The offline status is registered as the last will and the
// online status is published retained on every (re)connect.
//
// Parameters:
//   - cfg: mqtt section of the configuration
//
// Returns:
//   - *Client: connected client
//   - error: ErrConnectionFailed wrapping the cause
func Connect(cfg config.MQTTConfig) (*Client, error) {
	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg.Broker.ClientID)

	c := &Client{
		cfg:           cfg,
		subscriptions: make(map[string]subscription),
	}
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.handleConnect() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.handleDisconnect(err) })
	opts.SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) {
		c.warn("MQTT reconnecting", "broker", brokerURL(cfg))
	})

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The connect handler runs asynchronously; callers expect IsConnected
	// to hold once Connect returns.
	c.connected.Store(true)
	return c, nil
}

func (c *Client) handleConnect() {
	c.connected.Store(true)
	c.connects.Add(1)
	c.lastConnect.Store(time.Now().UnixMilli())

	c.restoreSubscriptions()
	c.publishStatus(StatusOnline, "")

	c.hookMu.RLock()
	hook := c.onConnect
	c.hookMu.RUnlock()
	if hook != nil {
		hook()
	}
}

func (c *Client) handleDisconnect(err error) {
	c.connected.Store(false)

	c.hookMu.RLock()
	hook := c.onDisconnect
	c.hookMu.RUnlock()
	if hook != nil {
		hook(err)
	}
}

// restoreSubscriptions re-subscribes every tracked topic after a reconnect.
// Failures are logged; the next reconnect tries again.
func (c *Client) restoreSubscriptions() {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	for topic, sub := range c.subscriptions {
		token := c.client.Subscribe(topic, sub.qos, c.wrapHandler(sub.handler))
		if err := await(token, ErrSubscribeFailed); err != nil {
			c.warn("MQTT resubscribe failed", "topic", topic, "error", err)
		}
	}
}

func (c *Client) publishStatus(status, reason string) {
	payload := newStatus(status, c.cfg.Broker.ClientID, reason, time.Now()).payload()
	token := c.client.Publish(Topics{}.SystemStatus(), byte(c.cfg.QoS), true, payload)
	if err := await(token, ErrPublishFailed); err != nil {
		c.warn("MQTT status publish failed", "status", status, "error", err)
	}
}

// Close publishes the graceful offline status and disconnects.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	if c.IsConnected() {
		c.publishStatus(StatusOffline, ReasonShutdown)
	}
	c.client.Disconnect(defaultDisconnectQuiesce)
	c.connected.Store(false)
	return nil
}

// HealthCheck reports ErrNotConnected while the broker connection is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected returns the last known connection state.
func (c *Client) IsConnected() bool {
	return c.connected.Load() && c.client != nil && c.client.IsConnected()
}

// ClientID returns the MQTT client identifier. Reply topics are keyed on it.
func (c *Client) ClientID() string {
	return c.cfg.Broker.ClientID
}

// Stats returns a snapshot of the connection.
func (c *Client) Stats() Stats {
	s := Stats{
		Connected:     c.IsConnected(),
		Subscriptions: c.SubscriptionCount(),
	}
	if n := c.connects.Load(); n > 1 {
		s.Reconnects = n - 1
	}
	if ms := c.lastConnect.Load(); ms > 0 {
		s.LastConnect = time.UnixMilli(ms).UTC()
	}
	return s
}

// SetOnConnect sets a callback run after every (re)connect.
func (c *Client) SetOnConnect(callback func()) {
	c.hookMu.Lock()
	c.onConnect = callback
	c.hookMu.Unlock()
}

// SetOnDisconnect sets a callback run when the connection is lost.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.hookMu.Lock()
	c.onDisconnect = callback
	c.hookMu.Unlock()
}

// SetLogger sets the logger for handler failures and reconnects.
func (c *Client) SetLogger(logger Logger) {
	c.hookMu.Lock()
	c.logger = logger
	c.hookMu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.hookMu.RLock()
	defer c.hookMu.RUnlock()
	return c.logger
}

func (c *Client) warn(msg string, args ...any) {
	if logger := c.getLogger(); logger != nil {
		logger.Warn(msg, args...)
	}
}

// wrapHandler adapts a MessageHandler to paho, recovering panics and
// logging returned errors.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				if logger := c.getLogger(); logger != nil {
					logger.Error("MQTT handler panic recovered", "topic", msg.Topic(), "panic", r)
				}
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			c.warn("MQTT handler returned error", "topic", msg.Topic(), "error", err)
		}
	}
}

// await waits for token and wraps a timeout or broker error in base.
func await(token pahomqtt.Token, base error) error {
	if !token.WaitTimeout(defaultOperationTimeout) {
		return fmt.Errorf("%w: timeout after %v", base, defaultOperationTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", base, err)
	}
	return nil
}
