package api

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/bambu-core/internal/bambu"
	"github.com/nerrad567/bambu-core/internal/event"
	"github.com/nerrad567/bambu-core/internal/infrastructure/config"
	"github.com/nerrad567/bambu-core/internal/infrastructure/logging"
	"github.com/nerrad567/bambu-core/internal/job"
	"github.com/nerrad567/bambu-core/internal/status"
)

// WebSocket message types.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"

	// wsSendBufferSize is the per-client outbound message buffer size.
	wsSendBufferSize = 256
)

// relayedEvents are the printer events a client may subscribe to.
var relayedEvents = []event.Name{
	event.Status,
	event.PrintStart, event.PrintUpdate, event.PrintFinish,
	event.Connecting, event.Connected, event.Disconnected, event.Subscribed, event.Published,
}

// WSMessage represents a message sent to/from a WebSocket client.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload is the payload for subscribe/unsubscribe messages.
// Channels are printer event names such as "status" or "print:finish".
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// ConnectionPayload is the WebSocket form of a connection event.
type ConnectionPayload struct {
	Topic string `json:"topic,omitempty"`
	Error string `json:"error,omitempty"`
}

// Hub fans printer events out to WebSocket clients. Subscribers are indexed
// by event name so a broadcast only touches the clients that asked for it.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	// replay returns the current value of a stateful event, sent to a client
	// right after it subscribes.
	replay func(event.Name) (any, bool)

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	byEvent map[event.Name]map[*wsClient]struct{}
}

type wsClient struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	events map[event.Name]struct{} // guarded by hub.mu
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// NewHub creates a hub. replay may be nil.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger, replay func(event.Name) (any, bool)) *Hub {
	if replay == nil {
		replay = func(event.Name) (any, bool) { return nil, false }
	}
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		replay:  replay,
		clients: make(map[*wsClient]struct{}),
		byEvent: make(map[event.Name]map[*wsClient]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SubscriberCount returns the number of clients subscribed to name.
func (h *Hub) SubscriberCount(name event.Name) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byEvent[name])
}

func (h *Hub) add(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", n)
}

// remove drops c and its subscriptions. Only the call that finds c closes
// its send channel.
func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	_, existed := h.clients[c]
	delete(h.clients, c)
	for name := range c.events {
		h.unindex(name, c)
	}
	c.events = nil
	n := len(h.clients)
	h.mu.Unlock()

	if existed {
		close(c.send)
	}
	h.logger.Debug("websocket client disconnected", "clients", n)
}

// subscribe adds the relayed names to c and returns those accepted and
// those rejected as unknown.
func (h *Hub) subscribe(c *wsClient, names []string) (accepted, rejected []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return nil, names
	}
	for _, raw := range names {
		name := event.Name(raw)
		if !slices.Contains(relayedEvents, name) {
			rejected = append(rejected, raw)
			continue
		}
		c.events[name] = struct{}{}
		if h.byEvent[name] == nil {
			h.byEvent[name] = make(map[*wsClient]struct{})
		}
		h.byEvent[name][c] = struct{}{}
		accepted = append(accepted, raw)
	}
	return accepted, rejected
}

func (h *Hub) unsubscribe(c *wsClient, names []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, raw := range names {
		name := event.Name(raw)
		delete(c.events, name)
		h.unindex(name, c)
	}
}

// unindex removes c from the subscribers of name. Callers hold h.mu.
func (h *Hub) unindex(name event.Name, c *wsClient) {
	subs := h.byEvent[name]
	delete(subs, c)
	if len(subs) == 0 {
		delete(h.byEvent, name)
	}
}

// Broadcast sends an event to the clients subscribed to name.
func (h *Hub) Broadcast(name event.Name, payload any) {
	data, err := encodeEvent(name, payload)
	if err != nil {
		h.logger.Error("failed to marshal broadcast message", "event", name, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*wsClient, 0, len(h.byEvent[name]))
	for c := range h.byEvent[name] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.trySend(data)
	}
	if len(targets) > 0 {
		h.logger.Debug("broadcast sent", "event", name, "recipients", len(targets))
	}
}

// closeAll disconnects every client so their write pumps exit.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		if c.conn != nil {
			c.conn.Close()
		}
	}
	clear(h.clients)
	clear(h.byEvent)
}

func encodeEvent(name event.Name, payload any) ([]byte, error) {
	return json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		EventType: string(name),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
}

// relayEvents forwards printer events to the hub.
func (s *Server) relayEvents() {
	s.relays = append(s.relays,
		s.printer.OnStatus(func(st status.Status) {
			s.hub.Broadcast(event.Status, st)
		}),
		s.printer.OnAnyJob(func(name event.Name, j *job.Job) {
			s.hub.Broadcast(name, j)
		}),
		s.printer.OnAnyConnection(func(name event.Name, ev bambu.ConnectionEvent) {
			p := ConnectionPayload{Topic: ev.Topic}
			if ev.Err != nil {
				p.Error = ev.Err.Error()
			}
			s.hub.Broadcast(name, p)
		}),
	)
}

// replayEvent returns the latest status for new "status" subscribers.
func (s *Server) replayEvent(name event.Name) (any, bool) {
	if name != event.Status {
		return nil, false
	}
	st, ok := s.printer.Status()
	if !ok {
		return nil, false
	}
	return st, true
}

// handleWebSocket upgrades the HTTP connection to a WebSocket connection.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &wsClient{
		hub:    s.hub,
		conn:   conn,
		send:   make(chan []byte, wsSendBufferSize),
		events: make(map[event.Name]struct{}),
	}
	s.hub.add(c)

	go c.writePump(s.wsCfg)
	go c.readPump(s.wsCfg)
}

func (c *wsClient) readPump(cfg config.WebSocketConfig) {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	window := time.Duration(cfg.PingInterval+cfg.PongTimeout) * time.Second
	extend := func() error { return c.conn.SetReadDeadline(time.Now().Add(window)) }

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	extend() //nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetPongHandler(func(string) error { return extend() })

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
		// Any client message counts as liveness, pong or not.
		extend() //nolint:errcheck // Best-effort deadline reset
		c.handleMessage(message)
	}
}

func (c *wsClient) writePump(cfg config.WebSocketConfig) {
	ticker := time.NewTicker(time.Duration(cfg.PingInterval) * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	writeWait := time.Duration(cfg.PongTimeout) * time.Second
	write := func(kind int, data []byte) error {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck // Write error caught below
		return c.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				write(websocket.CloseMessage, nil) //nolint:errcheck // Best-effort close message
				return
			}
			if err := write(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) handleMessage(data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("", "invalid JSON message")
		return
	}

	switch msg.Type {
	case WSTypeSubscribe:
		channels, ok := c.channels(msg)
		if !ok {
			return
		}
		accepted, rejected := c.hub.subscribe(c, channels)
		reply := map[string]any{"subscribed": accepted}
		if len(rejected) > 0 {
			reply["rejected"] = rejected
		}
		c.hub.logger.Info("websocket client subscribed", "events", accepted, "rejected", rejected)
		c.sendResponse(msg.ID, WSTypeResponse, reply)
		c.replay(accepted)

	case WSTypeUnsubscribe:
		channels, ok := c.channels(msg)
		if !ok {
			return
		}
		c.hub.unsubscribe(c, channels)
		c.sendResponse(msg.ID, WSTypeResponse, map[string]any{"unsubscribed": channels})

	case WSTypePing:
		c.sendResponse(msg.ID, WSTypePong, nil)

	default:
		c.sendError(msg.ID, "unknown message type: "+msg.Type)
	}
}

// channels decodes a subscribe or unsubscribe payload, replying with an
// error when it is malformed.
func (c *wsClient) channels(msg WSMessage) ([]string, bool) {
	raw, err := json.Marshal(msg.Payload)
	if err != nil {
		c.sendError(msg.ID, "invalid payload")
		return nil, false
	}
	var sub WSSubscribePayload
	if err := json.Unmarshal(raw, &sub); err != nil {
		c.sendError(msg.ID, "invalid "+msg.Type+" payload")
		return nil, false
	}
	return sub.Channels, true
}

// replay sends the current value of each stateful event just subscribed to.
func (c *wsClient) replay(names []string) {
	for _, raw := range names {
		payload, ok := c.hub.replay(event.Name(raw))
		if !ok {
			continue
		}
		if data, err := encodeEvent(event.Name(raw), payload); err == nil {
			c.trySend(data)
		}
	}
}

// trySend queues data for the write pump, dropping it when the client is
// slow or already gone.
func (c *wsClient) trySend(data []byte) {
	defer func() {
		recover() //nolint:errcheck // Absorb send-on-closed-channel panic
	}()

	select {
	case c.send <- data:
	default:
	}
}

func (c *wsClient) sendResponse(id, msgType string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	c.trySend(data)
}

func (c *wsClient) sendError(id, message string) {
	c.sendResponse(id, WSTypeError, map[string]string{"message": message})
}
