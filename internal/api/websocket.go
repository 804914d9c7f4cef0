package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"cell-arena/internal/game"
	"cell-arena/internal/metrics"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/time/rate"
)

const (
	// MaxWSConnectionsTotal is the default cap on WebSocket connections
	MaxWSConnectionsTotal = 1000

	// MaxWSConnectionsPerIP is the maximum WebSocket connections per IP
	MaxWSConnectionsPerIP = 10

	// DefaultBroadcastInterval is 10 state frames per second
	DefaultBroadcastInterval = 100 * time.Millisecond

	// LeaderboardEvery sends the leaderboard once per this many state frames
	LeaderboardEvery = 10

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Outbound event names
const (
	EventHello       = "hello"
	EventState       = "world:state"
	EventLeaderboard = "world:leaderboard"
	EventError       = "error"
)

// Codec selects the frame encoding for one client.
type Codec uint8

const (
	CodecJSON Codec = iota
	CodecMsgpack
)

func parseCodec(s string) Codec {
	if s == "msgpack" {
		return CodecMsgpack
	}
	return CodecJSON
}

func (c Codec) String() string {
	if c == CodecMsgpack {
		return "msgpack"
	}
	return "json"
}

// Envelope is every server-to-client frame.
type Envelope struct {
	Event string      `json:"event" msgpack:"event"`
	Data  interface{} `json:"data" msgpack:"data"`
}

// HelloPayload tells a client which identity the server issued to it.
type HelloPayload struct {
	Identity game.Identity `json:"identity" msgpack:"identity"`
	Codec    string        `json:"codec" msgpack:"codec"`
}

// ErrorPayload reports a frame that could not be routed or decoded.
type ErrorPayload struct {
	Reducer string `json:"reducer,omitempty" msgpack:"reducer,omitempty"`
	Message string `json:"message" msgpack:"message"`
}

func (c Codec) encode(env Envelope) (int, []byte, error) {
	if c == CodecMsgpack {
		data, err := msgpack.Marshal(env)
		return websocket.BinaryMessage, data, err
	}
	data, err := json.Marshal(env)
	return websocket.TextMessage, data, err
}

// decodeRequest parses an inbound frame. Text frames are JSON requests;
// binary frames are msgpack with the same field names.
func decodeRequest(messageType int, data []byte) (game.Request, error) {
	var req game.Request
	if messageType != websocket.BinaryMessage {
		if err := json.Unmarshal(data, &req); err != nil {
			return req, fmt.Errorf("decode request: %w", err)
		}
		return req, nil
	}

	var raw struct {
		Reducer string                 `msgpack:"reducer"`
		Args    map[string]interface{} `msgpack:"args"`
	}
	if err := msgpack.Unmarshal(data, &raw); err != nil {
		return req, fmt.Errorf("decode msgpack request: %w", err)
	}
	req.Reducer = raw.Reducer
	if raw.Args != nil {
		args, err := json.Marshal(raw.Args)
		if err != nil {
			return req, fmt.Errorf("re-encode msgpack args: %w", err)
		}
		req.Args = args
	}
	return req, nil
}

// HubConfig configures connection limits and replication.
type HubConfig struct {
	MaxConnections    int
	MaxPerIP          int
	CommandsPerSecond float64 // Per-connection reducer calls per second
	CommandBurst      int
	BroadcastInterval time.Duration
	ViewRadius        float64  // Replicated radius beyond a player's own
	AllowedOrigins    []string // nil uses AllowedOrigins
}

// DefaultHubConfig returns production defaults.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		MaxConnections:    MaxWSConnectionsTotal,
		MaxPerIP:          MaxWSConnectionsPerIP,
		CommandsPerSecond: 60,
		CommandBurst:      30,
		BroadcastInterval: DefaultBroadcastInterval,
		ViewRadius:        DefaultViewRadius,
	}
}

// wsClient is one connection and the identity issued to it. Writes are
// serialized by writeMu; gorilla allows a single concurrent writer.
type wsClient struct {
	conn     *websocket.Conn
	ip       string
	identity game.Identity
	codec    Codec
	commands *rate.Limiter

	writeMu sync.Mutex
	seen    atomic.Uint64 // Last snapshot version sent, plus one
}

func (c *wsClient) send(env Envelope) error {
	messageType, data, err := c.codec.encode(env)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(messageType, data); err != nil {
		return err
	}
	metrics.RecordWSMessage("out")
	return nil
}

func (c *wsClient) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

// WebSocketHub manages all WebSocket connections with DoS protection and
// replicates world snapshots to them.
type WebSocketHub struct {
	engine   EngineInterface
	cfg      HubConfig
	upgrader websocket.Upgrader

	clients    map[*wsClient]struct{}
	register   chan *wsClient
	unregister chan *wsClient
	mu         sync.RWMutex

	// Connection limiting per IP
	wsLimiter *ConnLimiter

	frames    uint64 // Broadcast loop only
	startOnce sync.Once
	stopOnce  sync.Once
	stopChan  chan struct{}
	wg        sync.WaitGroup

	// conns counts handlers between OnConnect and OnDisconnect. Add only
	// happens under connMu while closing is false, so Stop's Wait never
	// races a late Add.
	connMu  sync.Mutex
	closing bool
	conns   sync.WaitGroup
}

// NewWebSocketHub creates a hub. Nothing runs until Start.
func NewWebSocketHub(engine EngineInterface, cfg HubConfig) *WebSocketHub {
	defaults := DefaultHubConfig()
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = defaults.MaxConnections
	}
	if cfg.MaxPerIP <= 0 {
		cfg.MaxPerIP = defaults.MaxPerIP
	}
	if cfg.CommandsPerSecond <= 0 {
		cfg.CommandsPerSecond = defaults.CommandsPerSecond
	}
	if cfg.CommandBurst <= 0 {
		cfg.CommandBurst = defaults.CommandBurst
	}
	if cfg.BroadcastInterval <= 0 {
		cfg.BroadcastInterval = defaults.BroadcastInterval
	}
	if cfg.ViewRadius <= 0 {
		cfg.ViewRadius = defaults.ViewRadius
	}

	h := &WebSocketHub{
		engine:     engine,
		cfg:        cfg,
		clients:    make(map[*wsClient]struct{}),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		wsLimiter:  NewConnLimiter(cfg.MaxPerIP),
		stopChan:   make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if IsAllowedOrigin(origin, cfg.AllowedOrigins) {
				return true
			}

			// Log rejected origin for security monitoring
			log.Printf("⚠️ WebSocket connection rejected from origin: %s", origin)
			metrics.RecordConnectionRejected("origin")
			return false
		},
	}
	return h
}

// Start launches the registry and the broadcast loop.
func (h *WebSocketHub) Start() {
	h.startOnce.Do(func() {
		h.wg.Add(2)
		go h.run()
		go h.broadcastLoop()
	})
}

// Stop closes every connection and ends the background loops. Each closed
// connection still runs its disconnect hook.
func (h *WebSocketHub) Stop() {
	h.stopOnce.Do(func() {
		h.connMu.Lock()
		h.closing = true
		h.connMu.Unlock()
		close(h.stopChan)
	})
	h.wg.Wait()
	h.conns.Wait()
}

// trackConn reserves a place in conns, or reports false once Stop began.
func (h *WebSocketHub) trackConn() bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.closing {
		return false
	}
	h.conns.Add(1)
	return true
}

func (h *WebSocketHub) run() {
	defer h.wg.Done()
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("📱 Client connected from %s (%d total)", client.ip, count)
			metrics.UpdateWSConnections(count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				// Release the connection slot for this IP
				h.wsLimiter.Release(client.ip)
				delete(h.clients, client)
				client.conn.Close()
			}
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("📱 Client disconnected (%d remaining)", count)
			metrics.UpdateWSConnections(count)

		case <-h.stopChan:
			h.mu.Lock()
			for client := range h.clients {
				h.wsLimiter.Release(client.ip)
				client.conn.Close()
				delete(h.clients, client)
			}
			h.mu.Unlock()
			metrics.UpdateWSConnections(0)
			return
		}
	}
}

func (h *WebSocketHub) broadcastLoop() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.cfg.BroadcastInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopChan:
			return
		case <-ticker.C:
			h.BroadcastState()
			h.frames++
			if h.frames%LeaderboardEvery == 0 && h.ClientCount() > 0 {
				h.Broadcast(EventLeaderboard, h.engine.Snapshot().Leaderboard(DefaultLeaderboardSize))
			}
		}
	}
}

// snapshotClients copies the client set so sends happen without the lock.
func (h *WebSocketHub) snapshotClients() []*wsClient {
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	return clients
}

// BroadcastState sends each client its view of the latest snapshot. A
// client with a live player gets pellets around it only; a spectator gets
// the whole world. Clients already holding this version are skipped.
func (h *WebSocketHub) BroadcastState() {
	clients := h.snapshotClients()
	if len(clients) == 0 {
		return
	}

	snap := h.engine.Snapshot()
	var index *game.ViewIndex
	for _, c := range clients {
		if c.seen.Load() == snap.Version+1 {
			continue
		}
		if index == nil {
			index = game.NewViewIndex(snap)
		}

		view, ok := index.QueryFor(c.identity, h.cfg.ViewRadius)
		if !ok {
			view = snap.View()
		}
		if err := c.send(Envelope{Event: EventState, Data: view}); err != nil {
			// The read loop notices the closed socket and unregisters.
			c.conn.Close()
			continue
		}
		c.seen.Store(snap.Version + 1)
	}
}

// Broadcast sends one event to every connected client in its own codec.
func (h *WebSocketHub) Broadcast(event string, data interface{}) {
	env := Envelope{Event: event, Data: data}
	for _, c := range h.snapshotClients() {
		if err := c.send(env); err != nil {
			c.conn.Close()
		}
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket upgrades the request, issues an identity, and serves the
// connection until it closes.
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Get client IP for rate limiting
	ip := GetClientIP(r)

	if total := h.ClientCount(); total >= h.cfg.MaxConnections {
		log.Printf("⚠️ WebSocket connection rejected: total limit reached (%d)", total)
		metrics.RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	if !h.wsLimiter.Acquire(ip) {
		log.Printf("⚠️ WebSocket connection rejected from %s: per-IP limit reached (%d open)", ip, h.wsLimiter.Count(ip))
		metrics.RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	if !h.trackConn() {
		h.wsLimiter.Release(ip)
		http.Error(w, "Server shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		h.wsLimiter.Release(ip) // Release the slot we reserved
		h.conns.Done()
		return
	}

	client := &wsClient{
		conn:     conn,
		ip:       ip,
		identity: game.NewIdentity(),
		codec:    parseCodec(r.URL.Query().Get("codec")),
		commands: rate.NewLimiter(rate.Limit(h.cfg.CommandsPerSecond), h.cfg.CommandBurst),
	}

	h.engine.OnConnect(client.identity)
	abandon := func() {
		h.wsLimiter.Release(ip)
		conn.Close()
		h.engine.OnDisconnect(client.identity)
		h.conns.Done()
	}

	if err := client.send(Envelope{
		Event: EventHello,
		Data:  HelloPayload{Identity: client.identity, Codec: client.codec.String()},
	}); err != nil {
		abandon()
		return
	}

	select {
	case h.register <- client:
	case <-h.stopChan:
		abandon()
		return
	}

	// readLoop owns the conns slot from here on.
	go h.readLoop(client)
}

// readLoop dispatches client frames until the connection fails, then runs
// the disconnect hook.
func (h *WebSocketHub) readLoop(c *wsClient) {
	done := make(chan struct{})
	defer func() {
		close(done)
		select {
		case h.unregister <- c:
		case <-h.stopChan:
			c.conn.Close()
		}
		h.engine.OnDisconnect(c.identity)
		h.conns.Done()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go h.pingLoop(c, done)

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		metrics.RecordWSMessage("in")
		h.handleMessage(c, messageType, data)
	}
}

func (h *WebSocketHub) pingLoop(c *wsClient, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				c.conn.Close()
				return
			}
		}
	}
}

// handleMessage runs one client request. Requests over the per-connection
// budget are dropped without a reply.
func (h *WebSocketHub) handleMessage(c *wsClient, messageType int, data []byte) {
	if !c.commands.Allow() {
		metrics.RecordConnectionRejected("command_rate")
		return
	}

	req, err := decodeRequest(messageType, data)
	if err != nil {
		c.send(Envelope{Event: EventError, Data: ErrorPayload{Message: err.Error()}})
		return
	}

	if _, err := h.engine.Dispatch(c.identity, req); err != nil {
		c.send(Envelope{Event: EventError, Data: ErrorPayload{Reducer: req.Reducer, Message: err.Error()}})
	}
}
