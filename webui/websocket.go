package webui

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"nftgen/logging"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// BroadcasterConfig configures WebSocketBroadcaster.
type BroadcasterConfig struct {
	PingInterval         time.Duration
	PongWait             time.Duration
	WriteWait            time.Duration
	MaxMessageSize       int64
	BroadcastBufferSize  int
	ClientSendBufferSize int
}

// DefaultBroadcasterConfig returns the buffer sizes and deadlines used by
// the server.
func DefaultBroadcasterConfig() BroadcasterConfig {
	return BroadcasterConfig{
		PingInterval:         30 * time.Second,
		PongWait:             60 * time.Second,
		WriteWait:            10 * time.Second,
		MaxMessageSize:       512,
		BroadcastBufferSize:  256,
		ClientSendBufferSize: 256,
	}
}

func (c BroadcasterConfig) withDefaults() BroadcasterConfig {
	def := DefaultBroadcasterConfig()
	pick := func(v, d time.Duration) time.Duration {
		if v <= 0 {
			return d
		}
		return v
	}
	c.PingInterval = pick(c.PingInterval, def.PingInterval)
	c.PongWait = pick(c.PongWait, def.PongWait)
	c.WriteWait = pick(c.WriteWait, def.WriteWait)
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = def.MaxMessageSize
	}
	if c.BroadcastBufferSize <= 0 {
		c.BroadcastBufferSize = def.BroadcastBufferSize
	}
	if c.ClientSendBufferSize <= 0 {
		c.ClientSendBufferSize = def.ClientSendBufferSize
	}
	return c
}

// wsClient owns one connection. Its write loop is the only writer on conn
// and also sends pings; its read loop only watches for close and pongs.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	addr string
}

// WebSocketBroadcaster fans generation events out to every connected
// client. Clients only listen; anything they send is discarded.
type WebSocketBroadcaster struct {
	config   BroadcasterConfig
	logger   *logging.Logger
	upgrader websocket.Upgrader

	broadcast  chan WSMessage
	register   chan *wsClient
	unregister chan *wsClient
	done       chan struct{}

	mu      sync.RWMutex
	clients map[*wsClient]struct{}

	// greeting, if set, builds the first message each client receives.
	greeting func() WSMessage
}

// NewWebSocketBroadcaster returns a broadcaster that is idle until Start.
// Zero config fields take their defaults.
func NewWebSocketBroadcaster(config BroadcasterConfig, logger *logging.Logger) *WebSocketBroadcaster {
	config = config.withDefaults()
	if logger == nil {
		logger = logging.NewNop()
	}
	return &WebSocketBroadcaster{
		config: config,
		logger: logger.Named("ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// page and API share an origin
			CheckOrigin: func(*http.Request) bool { return true },
		},
		broadcast:  make(chan WSMessage, config.BroadcastBufferSize),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		done:       make(chan struct{}),
		clients:    make(map[*wsClient]struct{}),
	}
}

// OnConnect sets the greeting sent to each new client. Call before Start.
func (b *WebSocketBroadcaster) OnConnect(fn func() WSMessage) {
	b.greeting = fn
}

// Start runs the hub until ctx is cancelled, then disconnects every client.
func (b *WebSocketBroadcaster) Start(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			for c := range b.clients {
				b.drop(c)
			}
			b.mu.Unlock()
			return
		case c := <-b.register:
			b.mu.Lock()
			b.clients[c] = struct{}{}
			n := len(b.clients)
			b.mu.Unlock()
			b.logger.Debug("client connected", zap.String("remote", c.addr), zap.Int("total", n))
		case c := <-b.unregister:
			b.mu.Lock()
			if _, ok := b.clients[c]; ok {
				b.drop(c)
			}
			b.mu.Unlock()
		case msg := <-b.broadcast:
			b.fanOut(msg)
		}
	}
}

// drop removes c; closing send makes its write loop say goodbye and close
// the connection. Callers hold b.mu.
func (b *WebSocketBroadcaster) drop(c *wsClient) {
	delete(b.clients, c)
	close(c.send)
	b.logger.Debug("client disconnected", zap.String("remote", c.addr), zap.Int("total", len(b.clients)))
}

func (b *WebSocketBroadcaster) fanOut(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("marshal broadcast message", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.clients {
		select {
		case c.send <- data:
		default:
			// a client this far behind is not reading
			b.logger.Warn("client send buffer full, disconnecting", zap.String("remote", c.addr))
			b.drop(c)
		}
	}
}

// HandleConnection upgrades the request and attaches the client to the hub.
func (b *WebSocketBroadcaster) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn("websocket upgrade failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	c := &wsClient{
		conn: conn,
		send: make(chan []byte, b.config.ClientSendBufferSize),
		addr: conn.RemoteAddr().String(),
	}
	if b.greeting != nil {
		if data, err := json.Marshal(b.greeting()); err == nil {
			c.send <- data
		}
	}

	select {
	case b.register <- c:
	case <-b.done:
		conn.Close()
		return
	}
	go b.writeLoop(c)
	go b.readLoop(c)
}

// BroadcastMessage queues msg for every client without blocking. When the
// queue is full the message is dropped.
func (b *WebSocketBroadcaster) BroadcastMessage(msg WSMessage) {
	select {
	case b.broadcast <- msg:
	default:
		b.logger.Warn("broadcast buffer full, dropping message", zap.String("type", msg.Type))
	}
}

// BroadcastGenerationStarted queues a generation.started frame.
func (b *WebSocketBroadcaster) BroadcastGenerationStarted(data GenerationStartedData) {
	b.BroadcastMessage(NewGenerationStartedMessage(data))
}

// BroadcastGenerationCompleted queues a generation.completed frame.
func (b *WebSocketBroadcaster) BroadcastGenerationCompleted(data GenerationCompletedData) {
	b.BroadcastMessage(NewGenerationCompletedMessage(data))
}

// BroadcastGPUUpdate queues a gpu_update frame.
func (b *WebSocketBroadcaster) BroadcastGPUUpdate(data GPUUpdateData) {
	b.BroadcastMessage(NewGPUUpdateMessage(data))
}

// ClientCount returns the number of connected clients.
func (b *WebSocketBroadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

func (b *WebSocketBroadcaster) leave(c *wsClient) {
	select {
	case b.unregister <- c:
	case <-b.done:
	}
}

func (b *WebSocketBroadcaster) readLoop(c *wsClient) {
	defer b.leave(c)

	c.conn.SetReadLimit(b.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(b.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(b.config.PongWait))
	})
	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				b.logger.Debug("unexpected close", zap.String("remote", c.addr), zap.Error(err))
			}
			return
		}
	}
}

func (b *WebSocketBroadcaster) writeLoop(c *wsClient) {
	ping := time.NewTicker(b.config.PingInterval)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(b.config.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				b.leave(c)
				return
			}
		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(b.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				b.leave(c)
				return
			}
		}
	}
}
