package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vistecsol/ha-midea-ac/internal/bridges/midea"
	"github.com/vistecsol/ha-midea-ac/internal/infrastructure/config"
	"github.com/vistecsol/ha-midea-ac/internal/infrastructure/logging"
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
)

const (
	wsSendBufferSize = 256

	defaultWSMaxMessageSize = 8192
	defaultWSPingInterval   = 30 * time.Second
	defaultWSPongTimeout    = 10 * time.Second
)

// WSMessage is the envelope for every frame in either direction.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload selects channels and, optionally, the climates whose
// events the client wants. An empty DeviceIDs list means every climate.
type WSSubscribePayload struct {
	Channels  []string `json:"channels"`
	DeviceIDs []string `json:"device_ids,omitempty"`
}

// Hub fans climate events out to WebSocket clients. It remembers the last
// state event of every climate so a client subscribing to
// climate.state_changed starts from the current state instead of waiting
// for the next command. It implements midea.Broadcaster.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	latest  map[string][]byte
}

// wsClient is one connection. channels and devices are guarded by mu.
type wsClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu       sync.RWMutex
	channels map[string]struct{}
	devices  map[string]struct{}
}

// wsLimits are the per-connection limits derived from config.
type wsLimits struct {
	readLimit    int64
	pingInterval time.Duration
	pongWait     time.Duration
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// NewHub creates a hub. Run must be started for shutdown to close clients.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*wsClient]struct{}),
		latest:  make(map[string][]byte),
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

// Broadcast sends payload to clients subscribed to channel. Events that
// carry a device_id only reach clients following that climate.
func (h *Hub) Broadcast(channel string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		EventType: channel,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("failed to marshal websocket event", "channel", channel, "error", err)
		return
	}
	deviceID := payloadDeviceID(payload)

	h.mu.Lock()
	if channel == midea.ChannelStateChanged && deviceID != "" {
		h.latest[deviceID] = data
	}
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	var sent, dropped int
	for _, c := range clients {
		if !c.wants(channel, deviceID) {
			continue
		}
		if c.trySend(data) {
			sent++
		} else {
			dropped++
		}
	}
	if dropped > 0 {
		h.logger.Warn("websocket event dropped for slow clients",
			"channel", channel, "device_id", deviceID, "dropped", dropped)
	}
	if sent > 0 {
		h.logger.Debug("websocket event sent", "channel", channel, "device_id", deviceID, "recipients", sent)
	}
}

// payloadDeviceID finds the climate an event is about, if any.
func payloadDeviceID(payload any) string {
	switch p := payload.(type) {
	case midea.StateMessage:
		return p.DeviceID
	case *midea.StateMessage:
		if p != nil {
			return p.DeviceID
		}
	case map[string]any:
		if id, ok := p["device_id"].(string); ok {
			return id
		}
	}
	return ""
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", n)
}

// unregister removes c. Only the caller that actually removed it closes
// the send channel, so shutdown and readPump cannot both close it.
func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		close(c.send)
	}
	h.logger.Debug("websocket client disconnected", "clients", n)
}

// replayLatest sends c the last known state of each climate it follows.
func (h *Hub) replayLatest(c *wsClient) {
	if !c.wants(midea.ChannelStateChanged, "") {
		return
	}
	h.mu.RLock()
	frames := make([][]byte, 0, len(h.latest))
	for id, data := range h.latest {
		if c.followsDevice(id) {
			frames = append(frames, data)
		}
	}
	h.mu.RUnlock()

	for _, data := range frames {
		c.trySend(data)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		if c.conn != nil {
			c.conn.Close()
		}
		delete(h.clients, c)
	}
}

// handleWebSocket upgrades the request. The comma-separated "channels" and
// "devices" query parameters subscribe the client before the first frame.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	q := r.URL.Query()
	c := &wsClient{
		hub:      s.hub,
		conn:     conn,
		send:     make(chan []byte, wsSendBufferSize),
		channels: make(map[string]struct{}),
		devices:  make(map[string]struct{}),
	}
	c.subscribe(WSSubscribePayload{
		Channels:  splitList(q.Get("channels")),
		DeviceIDs: splitList(q.Get("devices")),
	})

	s.hub.register(c)
	s.hub.replayLatest(c)

	limits := newWSLimits(s.wsCfg)
	go c.writePump(limits)
	go c.readPump(limits)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func newWSLimits(cfg config.WebSocketConfig) wsLimits {
	l := wsLimits{
		readLimit:    int64(cfg.MaxMessageSize),
		pingInterval: time.Duration(cfg.PingInterval) * time.Second,
		pongWait:     time.Duration(cfg.PongTimeout) * time.Second,
	}
	if l.readLimit <= 0 {
		l.readLimit = defaultWSMaxMessageSize
	}
	if l.pingInterval <= 0 {
		l.pingInterval = defaultWSPingInterval
	}
	if l.pongWait <= 0 {
		l.pongWait = defaultWSPongTimeout
	}
	return l
}

// readDeadline is how long a connection may stay silent.
func (l wsLimits) readDeadline() time.Time {
	return time.Now().Add(l.pingInterval + l.pongWait)
}

func (c *wsClient) readPump(l wsLimits) {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(l.readLimit)
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(l.readDeadline())
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(l.readDeadline())
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		// Application frames count as liveness too.
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(l.readDeadline())
		c.handleFrame(data)
	}
}

func (c *wsClient) writePump(l wsLimits) {
	ticker := time.NewTicker(l.pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	write := func(kind int, data []byte) error {
		//nolint:errcheck // Best-effort deadline; write error caught by caller
		c.conn.SetWriteDeadline(time.Now().Add(l.pongWait))
		return c.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				//nolint:errcheck // Best-effort close frame
				write(websocket.CloseMessage, nil)
				return
			}
			if err := write(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) handleFrame(data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("", "invalid JSON message")
		return
	}

	switch msg.Type {
	case WSTypePing:
		c.reply(msg.ID, WSTypePong, nil)
	case WSTypeSubscribe, WSTypeUnsubscribe:
		var sub WSSubscribePayload
		if err := decodePayload(msg.Payload, &sub); err != nil || len(sub.Channels) == 0 {
			c.sendError(msg.ID, msg.Type+" needs a channels list")
			return
		}
		if msg.Type == WSTypeSubscribe {
			c.subscribe(sub)
			c.reply(msg.ID, WSTypeResponse, map[string]any{"subscribed": sub.Channels, "device_ids": sub.DeviceIDs})
			c.hub.replayLatest(c)
			return
		}
		c.unsubscribe(sub)
		c.reply(msg.ID, WSTypeResponse, map[string]any{"unsubscribed": sub.Channels})
	default:
		c.sendError(msg.ID, "unknown message type: "+msg.Type)
	}
}

// decodePayload converts the generic payload of an inbound frame into v.
func decodePayload(payload any, v any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func (c *wsClient) subscribe(sub WSSubscribePayload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range sub.Channels {
		c.channels[ch] = struct{}{}
	}
	for _, id := range sub.DeviceIDs {
		c.devices[id] = struct{}{}
	}
}

// unsubscribe drops channels. Device filters are dropped only when named.
func (c *wsClient) unsubscribe(sub WSSubscribePayload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range sub.Channels {
		delete(c.channels, ch)
	}
	for _, id := range sub.DeviceIDs {
		delete(c.devices, id)
	}
}

// wants reports whether an event on channel about deviceID should reach c.
// Events without a device reach every subscriber of the channel.
func (c *wsClient) wants(channel, deviceID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.channels[channel]; !ok {
		return false
	}
	if deviceID == "" || len(c.devices) == 0 {
		return true
	}
	_, ok := c.devices[deviceID]
	return ok
}

func (c *wsClient) followsDevice(deviceID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.devices) == 0 {
		return true
	}
	_, ok := c.devices[deviceID]
	return ok
}

// trySend queues data without blocking. It reports false when the buffer
// is full or the client is already gone.
func (c *wsClient) trySend(data []byte) (sent bool) {
	defer func() {
		if recover() != nil {
			sent = false
		}
	}()

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *wsClient) reply(id, msgType string, payload any) {
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
	c.reply(id, WSTypeError, map[string]string{"message": message})
}
