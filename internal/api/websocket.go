package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/iot-admin-core/internal/browse"
	"github.com/nerrad567/iot-admin-core/internal/infrastructure/config"
	"github.com/nerrad567/iot-admin-core/internal/infrastructure/logging"
	"github.com/nerrad567/iot-admin-core/internal/metrics"
	"github.com/nerrad567/iot-admin-core/internal/objects"
)

// WebSocket constants.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"

	// WSEventState carries one state change for a subscribed id.
	WSEventState = "state"

	// WSEventBrowse announces a fresh browse result to every client.
	WSEventBrowse = "browse"

	// wsSendBufferSize is the per-client outbound message buffer size.
	wsSendBufferSize = 256

	// snapshotTimeout bounds the initial state reads after a subscribe.
	snapshotTimeout = 5 * time.Second
)

// WebSocket defaults used when the config leaves a value at zero.
const (
	defaultWSMaxMessageSize = 8192
	defaultWSPingInterval   = 30 * time.Second
	defaultWSPongTimeout    = 10 * time.Second
)

// WSMessage represents a message sent to/from a WebSocket client.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload is the payload for subscribe/unsubscribe messages.
type WSSubscribePayload struct {
	IDs []string `json:"ids"`
}

// StateEvent is the payload of a state event.
type StateEvent struct {
	ID    string         `json:"id"`
	State *objects.State `json:"state"`
}

// Hub manages WebSocket connections.
type Hub struct {
	cfg     config.WebSocketConfig
	logger  *logging.Logger
	metrics *metrics.Metrics
	clients map[*WSClient]struct{}
	mu      sync.RWMutex
}

// WSClient represents a connected WebSocket client.
//
// State subscriptions go through a per-client batcher, so a UI scrolling
// through a long list produces one registry call per window instead of one
// per row. The client is the registry listener for its own ids.
type WSClient struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	registry *objects.Registry
	batcher  *browse.Batcher
	subject  string
}

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// NewHub creates a new WebSocket hub. m may be nil.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run blocks until the context is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds a client to the hub.
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	h.metrics.WebSocketConnected(true)
	h.logger.Debug("websocket client connected", "subject", client.subject, "clients", h.ClientCount())
}

// Unregister removes a client from the hub and releases its subscriptions.
// Only the goroutine that removes the client from the map closes it, so
// shutdown and disconnect never double-close.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	_, existed := h.clients[client]
	delete(h.clients, client)
	h.mu.Unlock()

	if existed {
		client.release()
		h.metrics.WebSocketConnected(false)
	}
	h.logger.Debug("websocket client disconnected", "subject", client.subject, "clients", h.ClientCount())
}

// Broadcast sends an event to every connected client.
func (h *Hub) Broadcast(eventType string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		EventType: eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("failed to marshal broadcast message", "error", err)
		return
	}

	h.mu.RLock()
	clients := make([]*WSClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		client.trySend(data)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// closeAll disconnects all clients so their pumps exit and their
// subscriptions are released.
func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := make([]*WSClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
		delete(h.clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		client.release()
		h.metrics.WebSocketConnected(false)
		if client.conn != nil {
			client.conn.Close()
		}
	}
}

func (h *Hub) maxMessageSize() int64 {
	if h.cfg.MaxMessageSize > 0 {
		return int64(h.cfg.MaxMessageSize)
	}
	return defaultWSMaxMessageSize
}

func (h *Hub) pingInterval() time.Duration {
	if h.cfg.PingInterval > 0 {
		return time.Duration(h.cfg.PingInterval) * time.Second
	}
	return defaultWSPingInterval
}

func (h *Hub) pongTimeout() time.Duration {
	if h.cfg.PongTimeout > 0 {
		return time.Duration(h.cfg.PongTimeout) * time.Second
	}
	return defaultWSPongTimeout
}

// handleWebSocket upgrades the HTTP connection to a WebSocket connection.
// authMiddleware has already validated the caller.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	subject := ""
	if claims := claimsFromContext(r.Context()); claims != nil {
		subject = claims.Subject
	}
	client := s.newClient(conn, subject)
	s.hub.Register(client)

	go client.writePump()
	go client.readPump()
}

// newClient builds a client whose subscriptions are batched into the
// registry. conn may be nil in tests that drive the client directly.
func (s *Server) newClient(conn *websocket.Conn, subject string) *WSClient {
	client := &WSClient{
		hub:      s.hub,
		conn:     conn,
		send:     make(chan []byte, wsSendBufferSize),
		registry: s.registry,
		subject:  subject,
	}
	client.batcher = browse.NewBatcher(client, browse.BatcherConfig{
		Window:   time.Duration(s.batchCfg.BatchWindowMS) * time.Millisecond,
		Observer: s.metrics.SubscriptionBatch,
	})
	client.batcher.SetLogger(s.logger.With("component", "ws-batcher", "subject", subject))
	return client
}

// Subscribe registers the client for ids and pushes their current values.
// It is called by the batcher once per window.
func (c *WSClient) Subscribe(ids []string) error {
	c.registry.SubscribeState(c, ids...)

	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()
	for _, id := range ids {
		st, err := c.registry.GetState(ctx, id)
		if err != nil {
			if !errors.Is(err, objects.ErrStateNotFound) && !errors.Is(err, objects.ErrInvalidID) {
				c.hub.logger.Debug("initial state read failed", "id", id, "error", err)
			}
			continue
		}
		c.OnStateChange(id, st)
	}
	return nil
}

// Unsubscribe removes the client from ids. It is called by the batcher.
func (c *WSClient) Unsubscribe(ids []string) error {
	c.registry.UnsubscribeState(c, ids...)
	return nil
}

// OnStateChange pushes a state event. It never blocks the registry.
func (c *WSClient) OnStateChange(id string, state *objects.State) {
	c.sendMessage(WSMessage{
		Type:      WSTypeEvent,
		EventType: WSEventState,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   StateEvent{ID: id, State: state},
	})
}

// release closes the batcher, which unsubscribes every active id, then
// closes the send channel so writePump exits.
func (c *WSClient) release() {
	if err := c.batcher.Close(); err != nil {
		c.hub.logger.Warn("releasing websocket subscriptions failed", "subject", c.subject, "error", err)
	}
	close(c.send)
}

// readPump reads messages from the WebSocket connection.
func (c *WSClient) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	deadline := c.hub.pingInterval() + c.hub.pongTimeout()
	c.conn.SetReadLimit(c.hub.maxMessageSize())
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(deadline))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(deadline))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			} else {
				c.hub.logger.Debug("websocket closed", "error", err)
			}
			return
		}
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(deadline))
		c.handleMessage(message)
	}
}

// writePump writes messages to the WebSocket connection.
func (c *WSClient) writePump() {
	ticker := time.NewTicker(c.hub.pingInterval())
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	pongWait := c.hub.pongTimeout()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				//nolint:errcheck // Best-effort close message
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes an incoming WebSocket message.
func (c *WSClient) handleMessage(data []byte) {
	var msg struct {
		Type    string          `json:"type"`
		ID      string          `json:"id"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("", "invalid JSON message")
		return
	}

	switch msg.Type {
	case WSTypeSubscribe:
		c.handleSubscription(msg.ID, msg.Payload, true)
	case WSTypeUnsubscribe:
		c.handleSubscription(msg.ID, msg.Payload, false)
	case WSTypePing:
		c.sendResponse(msg.ID, WSTypePong, nil)
	default:
		c.sendError(msg.ID, "unknown message type: "+msg.Type)
	}
}

// handleSubscription queues ids in the batcher. Ids may end in "*" to
// match a whole subtree. Invalid ids are reported back and skipped.
func (c *WSClient) handleSubscription(msgID string, payload json.RawMessage, subscribe bool) {
	var sub WSSubscribePayload
	if len(payload) == 0 || json.Unmarshal(payload, &sub) != nil {
		c.sendError(msgID, "invalid subscription payload")
		return
	}

	ids := make([]string, 0, len(sub.IDs))
	var rejected []string
	for _, id := range sub.IDs {
		if !validPattern(id) {
			rejected = append(rejected, id)
			continue
		}
		ids = append(ids, id)
	}

	var err error
	key := "subscribed"
	if subscribe {
		err = c.batcher.Add(ids...)
	} else {
		key = "unsubscribed"
		err = c.batcher.Remove(ids...)
	}
	if err != nil {
		c.sendError(msgID, err.Error())
		return
	}

	resp := map[string]any{key: ids}
	if len(rejected) > 0 {
		resp["rejected"] = rejected
	}
	c.sendResponse(msgID, WSTypeResponse, resp)
}

// validPattern accepts an exact id or a prefix pattern ending in "*".
func validPattern(p string) bool {
	prefix, wildcard := strings.CutSuffix(p, "*")
	if !wildcard {
		return objects.ValidateID(p) == nil
	}
	prefix = strings.TrimSuffix(prefix, ".")
	return prefix == "" || objects.ValidateID(prefix) == nil
}

// trySend attempts to send data to the client's send channel.
// It silently handles closed channels (client disconnected during broadcast)
// and full buffers (slow client).
func (c *WSClient) trySend(data []byte) {
	defer func() {
		recover() //nolint:errcheck // Absorb send-on-closed-channel panic
	}()

	select {
	case c.send <- data:
	default:
		// Client buffer full, skip
	}
}

func (c *WSClient) sendMessage(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.hub.logger.Error("failed to marshal websocket message", "error", err)
		return
	}
	c.trySend(data)
}

// sendResponse sends a response message to the client.
func (c *WSClient) sendResponse(id, msgType string, payload any) {
	c.sendMessage(WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
}

// sendError sends an error message to the client.
func (c *WSClient) sendError(id, message string) {
	c.sendResponse(id, WSTypeError, map[string]string{"message": message})
}
