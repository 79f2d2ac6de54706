package realtime

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/chatty/chat-server/internal/api/metrics"
	"github.com/chatty/chat-server/internal/core/domain"
)

// HandlerFunc handles one inbound event received on c.
type HandlerFunc func(c *Conn, data json.RawMessage)

// Gateway owns the live connections, keeps the presence Registry in step
// with their lifecycle and emits events to them.
type Gateway struct {
	registry  *Registry
	log       zerolog.Logger
	queueSize int

	// lifecycle serialises Open/Close so that registry updates and the
	// online-users broadcasts they trigger are observed in the same order.
	lifecycle sync.Mutex

	mu       sync.RWMutex
	conns    map[string]*Conn // open connections by connection id
	handlers map[string]HandlerFunc
}

// Option customises a Gateway.
type Option func(*Gateway)

// WithQueueSize sets the per-connection outbound queue capacity.
func WithQueueSize(n int) Option {
	return func(g *Gateway) { g.queueSize = n }
}

// NewGateway returns a Gateway that records presence in registry.
func NewGateway(registry *Registry, log zerolog.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		registry:  registry,
		log:       log,
		queueSize: defaultQueueSize,
		conns:     make(map[string]*Conn),
		handlers:  make(map[string]HandlerFunc),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.handlers[EventPing] = g.handlePing
	return g
}

// NewConn allocates a connection for userID in StateConnecting.
func (g *Gateway) NewConn(userID string) *Conn {
	return newConn(userID, g.queueSize)
}

// On registers the handler for an inbound event, replacing any previous one.
func (g *Gateway) On(event string, h HandlerFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.handlers[event] = h
}

// Open moves c to StateOpen, registers it as its user's live connection and
// broadcasts the new online set. A connection without a user id is rejected
// and closed.
func (g *Gateway) Open(c *Conn) error {
	g.lifecycle.Lock()
	defer g.lifecycle.Unlock()

	if c.UserID() == "" {
		c.markClosed()
		return fmt.Errorf("%w: user id is required to connect", domain.ErrValidation)
	}
	if !c.markOpen() {
		return fmt.Errorf("%w: connection %s is %s", domain.ErrValidation, c.ID(), c.State())
	}

	g.mu.Lock()
	g.conns[c.ID()] = c
	g.mu.Unlock()
	g.registry.Register(c.UserID(), c.ID())

	metrics.ConnectionsOpen.Inc()
	metrics.OnlineUsers.Set(float64(g.registry.Len()))
	g.log.Info().Str("user_id", c.UserID()).Str("conn_id", c.ID()).Msg("connection opened")

	g.broadcastOnlineUsers()
	return nil
}

// Close moves c to StateClosed. The user's presence entry is removed only if
// it still points at c, and the online set is broadcast only when that
// happened. Calling Close more than once is harmless.
func (g *Gateway) Close(c *Conn) {
	g.lifecycle.Lock()
	defer g.lifecycle.Unlock()

	if prev := c.markClosed(); prev != StateOpen {
		return
	}

	g.mu.Lock()
	delete(g.conns, c.ID())
	g.mu.Unlock()
	removed := g.registry.Unregister(c.UserID(), c.ID())

	metrics.ConnectionsOpen.Dec()
	metrics.OnlineUsers.Set(float64(g.registry.Len()))
	g.log.Info().
		Str("user_id", c.UserID()).
		Str("conn_id", c.ID()).
		Bool("presence_removed", removed).
		Msg("connection closed")

	if removed {
		g.broadcastOnlineUsers()
	}
}

// CloseAll closes every open connection. Used on shutdown.
func (g *Gateway) CloseAll() {
	for _, c := range g.openConns() {
		g.Close(c)
	}
}

// EmitToUser delivers an event to the connection registered for userID.
// An offline user, or a connection whose queue is full, drops the event
// silently: delivery is best-effort and never blocks.
func (g *Gateway) EmitToUser(userID, event string, payload any) {
	connID, ok := g.registry.Lookup(userID)
	if !ok {
		metrics.RealtimeEventsDropped.WithLabelValues(event, "offline").Inc()
		return
	}

	g.mu.RLock()
	c := g.conns[connID]
	g.mu.RUnlock()
	if c == nil {
		metrics.RealtimeEventsDropped.WithLabelValues(event, "offline").Inc()
		return
	}

	frame, err := encodeFrame(event, payload)
	if err != nil {
		g.log.Error().Err(err).Str("event", event).Msg("encode event")
		return
	}
	g.deliver(c, event, frame)
}

// BroadcastOnlineUsers sends the current online set to every open connection.
func (g *Gateway) BroadcastOnlineUsers() {
	g.lifecycle.Lock()
	defer g.lifecycle.Unlock()
	g.broadcastOnlineUsers()
}

// IsOnline reports whether userID has a registered live connection.
func (g *Gateway) IsOnline(userID string) bool {
	_, ok := g.registry.Lookup(userID)
	return ok
}

// OnlineUsers returns the ids of all online users.
func (g *Gateway) OnlineUsers() []string {
	return g.registry.Snapshot()
}

// Dispatch routes one inbound frame received on c to its handler. Malformed
// frames and unknown events are ignored.
func (g *Gateway) Dispatch(c *Conn, raw []byte) {
	f, err := decodeFrame(raw)
	if err != nil {
		g.log.Debug().Err(err).Str("conn_id", c.ID()).Msg("malformed frame ignored")
		return
	}

	g.mu.RLock()
	h, ok := g.handlers[f.Event]
	g.mu.RUnlock()
	if !ok {
		g.log.Debug().Str("event", f.Event).Str("conn_id", c.ID()).Msg("unknown event ignored")
		return
	}
	h(c, f.Data)
}

func (g *Gateway) handlePing(c *Conn, _ json.RawMessage) {
	frame, _ := encodeFrame(EventPong, nil)
	g.deliver(c, EventPong, frame)
}

// broadcastOnlineUsers must be called with lifecycle held.
func (g *Gateway) broadcastOnlineUsers() {
	frame, err := encodeFrame(EventOnlineUsersChanged, g.registry.Snapshot())
	if err != nil {
		g.log.Error().Err(err).Msg("encode online users")
		return
	}
	for _, c := range g.openConns() {
		g.deliver(c, EventOnlineUsersChanged, frame)
	}
}

func (g *Gateway) deliver(c *Conn, event string, frame []byte) {
	if !c.enqueue(frame) {
		metrics.RealtimeEventsDropped.WithLabelValues(event, "backpressure").Inc()
		g.log.Debug().Str("event", event).Str("conn_id", c.ID()).Msg("outbound queue full, event dropped")
		return
	}
	metrics.RealtimeEventsEmitted.WithLabelValues(event).Inc()
}

func (g *Gateway) openConns() []*Conn {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Conn, 0, len(g.conns))
	for _, c := range g.conns {
		out = append(out, c)
	}
	return out
}
