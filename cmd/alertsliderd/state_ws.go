package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ============================================================================
// State WebSocket
// ============================================================================
//
// UI clients (lock screen widgets, desktop indicators) follow the slider state
// over a websocket. Frames are JSON text with an envelope {type, ts, data}:
//
//   state_init             sent once on connect, the Mapper snapshot
//   mode_changed           after every ringer mode transition
//   mute_tracking_changed  when the self-initiated media mute flag flips
//
// A watcher whose outbound queue is full is dropped rather than waited for.
// ============================================================================

// wsMessageSnapshot is the data of "state_init".
type wsMessageSnapshot struct {
	Mode      string    `json:"mode,omitempty"`
	ModeKnown bool      `json:"mode_known"`
	ModeAt    time.Time `json:"mode_at"`
	WasMuted  bool      `json:"was_muted"`
}

// wsModeChangedData is the data of "mode_changed".
type wsModeChangedData struct {
	Mode string `json:"mode"`
}

// wsMuteTrackingData is the data of "mute_tracking_changed".
type wsMuteTrackingData struct {
	WasMuted bool `json:"was_muted"`
}

// wsOutboundEvent is a StateBroadcast translated for the wire.
type wsOutboundEvent struct {
	Type string
	Data any
	At   time.Time // zero means "now"
}

type envelope struct {
	Type string     `json:"type"`
	Ts   *time.Time `json:"ts,omitempty"`
	Data any        `json:"data,omitempty"`
}

// ============================================================================
// Hub
// ============================================================================

// Hub fans serialized frames out to every connected watcher. Membership
// changes and fan-out are serialized through Run.
type Hub struct {
	logger *slog.Logger

	frames chan []byte
	join   chan *Client
	leave  chan *Client
	done   chan struct{} // closed when Run returns

	// welcome, if set, builds the first frame of every joining watcher. It
	// runs on the Run goroutine, so no published frame can fall between it
	// and the watcher's membership.
	welcome func() ([]byte, error)

	mu       sync.Mutex
	watchers map[*Client]struct{}

	queueLen int
}

type HubConfig struct {
	// QueueLen is each watcher's outbound frame queue. Zero means 16.
	QueueLen int
	// Backlog is the hub's inbound frame queue. Zero means 64.
	Backlog int
}

func NewHub(logger *slog.Logger, cfg HubConfig) *Hub {
	if cfg.QueueLen <= 0 {
		cfg.QueueLen = 16
	}
	if cfg.Backlog <= 0 {
		cfg.Backlog = 64
	}
	return &Hub{
		logger:   logger,
		frames:   make(chan []byte, cfg.Backlog),
		join:     make(chan *Client, 16),
		leave:    make(chan *Client, 16),
		done:     make(chan struct{}),
		watchers: make(map[*Client]struct{}),
		queueLen: cfg.QueueLen,
	}
}

// Run owns the watcher set until ctx is canceled, then drops everyone.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Debug("state hub running")
	defer h.logger.Debug("state hub stopped")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.dropAll()
			return

		case c := <-h.join:
			if !h.greet(c) {
				continue
			}
			h.mu.Lock()
			h.watchers[c] = struct{}{}
			n := len(h.watchers)
			h.mu.Unlock()
			h.logger.Info("state watcher joined", "remote_addr", c.remoteAddr, "watchers", n)

		case c := <-h.leave:
			h.drop(c, "left")

		case frame := <-h.frames:
			for _, c := range h.deliver(frame) {
				h.drop(c, "queue full")
			}
		}
	}
}

// greet queues the welcome frame on c's still empty queue.
func (h *Hub) greet(c *Client) bool {
	if h.welcome == nil {
		return true
	}
	frame, err := h.welcome()
	if err != nil {
		h.logger.Warn("state_init marshal failed", "remote_addr", c.remoteAddr, "error", err)
		c.shut()
		return false
	}
	select {
	case c.out <- frame:
		return true
	default:
		c.shut()
		return false
	}
}

// enter hands c to Run. It reports false once the hub has stopped.
func (h *Hub) enter(c *Client) bool {
	select {
	case h.join <- c:
		return true
	case <-h.done:
		return false
	}
}

// exit asks Run to drop c. After Run has stopped there is nothing to leave.
func (h *Hub) exit(c *Client) {
	select {
	case h.leave <- c:
	case <-h.done:
	}
}

// deliver queues frame for every watcher and returns those that had no room.
func (h *Hub) deliver(frame []byte) (stalled []*Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.watchers {
		select {
		case c.out <- frame:
		default:
			stalled = append(stalled, c)
		}
	}
	return stalled
}

func (h *Hub) drop(c *Client, why string) {
	h.mu.Lock()
	_, member := h.watchers[c]
	delete(h.watchers, c)
	n := len(h.watchers)
	h.mu.Unlock()

	if !member {
		return
	}
	c.shut()
	h.logger.Info("state watcher dropped", "remote_addr", c.remoteAddr, "reason", why, "watchers", n)
}

func (h *Hub) dropAll() {
	h.mu.Lock()
	all := h.watchers
	h.watchers = make(map[*Client]struct{})
	h.mu.Unlock()

	for c := range all {
		c.shut()
	}
}

// Publish queues a serialized frame for fan-out. It never blocks; frames are
// dropped while the hub is backlogged.
func (h *Hub) Publish(frame []byte) {
	select {
	case h.frames <- frame:
	default:
		h.logger.Warn("state hub backlogged, frame dropped", "bytes", len(frame))
	}
}

// ============================================================================
// Client
// ============================================================================

// Client is one websocket watcher. out is closed exactly once, by shut.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	out  chan []byte

	closeOnce  sync.Once
	remoteAddr string
	logger     *slog.Logger
}

func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string, logger *slog.Logger) *Client {
	n := 16
	if hub != nil {
		n = hub.queueLen
	}
	return &Client{
		hub:        hub,
		conn:       conn,
		out:        make(chan []byte, n),
		remoteAddr: remoteAddr,
		logger:     logger,
	}
}

// shut closes the connection (unblocking readLoop) and the queue (ending writeLoop).
func (c *Client) shut() {
	c.closeOnce.Do(func() {
		if c.conn != nil {
			_ = c.conn.Close()
		}
		close(c.out)
	})
}

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second
)

// logDisconnect reports why a pump stopped. Close frames we sent ourselves are not logged.
func (c *Client) logDisconnect(pump string, err error) {
	if errors.Is(err, websocket.ErrCloseSent) {
		return
	}
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		c.logger.Debug("state watcher closed", "pump", pump, "remote_addr", c.remoteAddr, "code", ce.Code, "reason", ce.Text)
		return
	}
	c.logger.Debug("state watcher i/o error", "pump", pump, "remote_addr", c.remoteAddr, "error", err)
}

// writeLoop drains out onto the socket and keeps the peer alive with pings.
func (c *Client) writeLoop() {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	write := func(kind int, data []byte) error {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		return c.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case frame, ok := <-c.out:
			if !ok {
				_ = write(websocket.CloseMessage, nil)
				return
			}
			if err := write(websocket.TextMessage, frame); err != nil {
				c.logDisconnect("write", err)
				return
			}

		case <-ping.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				c.logDisconnect("ping", err)
				return
			}
		}
	}
}

// readLoop discards inbound frames; it exists to process pongs and notice the
// peer going away, at which point the watcher leaves the hub.
func (c *Client) readLoop() {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			c.logDisconnect("read", err)
			if c.hub != nil {
				c.hub.exit(c)
			}
			return
		}
	}
}

// ============================================================================
// HTTP handler
// ============================================================================

// snapshotter provides the state_init payload.
type snapshotter interface {
	Snapshot() StateSnapshot
}

type Server struct {
	logger *slog.Logger
	hub    *Hub
}

type ServerConfig struct {
	Hub HubConfig
}

// NewServer builds the handler and its hub. Register it on a mux and run
// Hub().Run and RunBroadcaster alongside the HTTP server.
func NewServer(logger *slog.Logger, state snapshotter, cfg ServerConfig) *Server {
	s := &Server{
		logger: logger,
		hub:    NewHub(logger, cfg.Hub),
	}
	if state != nil {
		s.hub.welcome = func() ([]byte, error) {
			return marshalStateInit(state.Snapshot(), time.Now().UTC())
		}
	}
	return s
}

func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) Register(mux *http.ServeMux, path string) {
	if mux == nil {
		return
	}
	mux.HandleFunc(path, s.handleStateWS)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleStateWS joins the watcher to the hub, which sends state_init as its
// first frame.
func (s *Server) handleStateWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("state ws upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	c := NewClient(s.hub, conn, r.RemoteAddr, s.logger)
	if !s.hub.enter(c) {
		c.shut()
		return
	}
	go c.writeLoop()
	go c.readLoop()
}

func marshalStateInit(snap StateSnapshot, now time.Time) ([]byte, error) {
	payload := wsMessageSnapshot{
		ModeKnown: snap.ModeKnown,
		ModeAt:    snap.ModeAt,
		WasMuted:  snap.WasMuted,
	}
	if snap.ModeKnown {
		payload.Mode = snap.Mode.String()
	}
	return json.Marshal(envelope{Type: "state_init", Ts: &now, Data: payload})
}

// ============================================================================
// Broadcaster
// ============================================================================

// RunBroadcaster serializes Mapper broadcasts and publishes them on hub until
// ctx is canceled or src is closed.
func RunBroadcaster(ctx context.Context, hub *Hub, src <-chan StateBroadcast, logger *slog.Logger) {
	if hub == nil || src == nil {
		return
	}

	for {
		var b StateBroadcast
		select {
		case <-ctx.Done():
			return
		case next, ok := <-src:
			if !ok {
				logger.Debug("state broadcaster: source closed")
				return
			}
			b = next
		}

		ev, ok := convertBroadcast(b)
		if !ok {
			continue
		}
		ts := ev.At
		if ts.IsZero() {
			ts = time.Now().UTC()
		}

		frame, err := json.Marshal(envelope{Type: ev.Type, Ts: &ts, Data: ev.Data})
		if err != nil {
			logger.Warn("state broadcast marshal failed", "type", ev.Type, "error", err)
			continue
		}
		hub.Publish(frame)
	}
}

func convertBroadcast(b StateBroadcast) (wsOutboundEvent, bool) {
	switch ev := b.(type) {
	case BroadcastModeChanged:
		return wsOutboundEvent{Type: "mode_changed", Data: wsModeChangedData{Mode: ev.Mode.String()}, At: ev.At}, true
	case BroadcastMuteTrackingChanged:
		return wsOutboundEvent{Type: "mute_tracking_changed", Data: wsMuteTrackingData{WasMuted: ev.WasMuted}, At: ev.At}, true
	default:
		return wsOutboundEvent{}, false
	}
}
