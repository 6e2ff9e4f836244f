package realtime

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/laundry-marketplace/internal/metrics"
	"github.com/laundry-marketplace/internal/model"
	"go.uber.org/zap"
)

// Conn is a live client connection the router can deliver frames to
type Conn interface {
	ID() string
	// Send enqueues a frame without blocking and reports whether it was accepted
	Send(frame []byte) bool
}

// Frame is the wire envelope used in both directions
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// EncodeFrame marshals an event and its payload into a wire frame
func EncodeFrame(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: event, Data: data})
}

type membership struct {
	identity *model.Identity
	channels map[string]struct{}
}

// Router tracks which connections are members of which channels and delivers
// events to channel members. It never blocks on a slow connection.
type Router struct {
	mu       sync.RWMutex
	channels map[string]map[Conn]struct{}
	conns    map[Conn]*membership
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewRouter creates a new room router
func NewRouter(logger *zap.Logger, m *metrics.Metrics) *Router {
	return &Router{
		channels: make(map[string]map[Conn]struct{}),
		conns:    make(map[Conn]*membership),
		logger:   logger.Named("router"),
		metrics:  m,
	}
}

// Register makes a connection known to the router so it receives broadcasts to all connections
func (r *Router) Register(c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensure(c)
}

// Join adds a connection to a channel. Joining twice is the same as joining once.
func (r *Router) Join(c Conn, channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.join(c, channel)
}

// JoinIdentity binds an identity to the connection and joins its identity and role channels.
// It returns the identity previously bound to the connection, if any.
func (r *Router) JoinIdentity(c Conn, id model.Identity) (model.Identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.ensure(c)
	var (
		prev    model.Identity
		hadPrev bool
	)
	if m.identity != nil {
		prev, hadPrev = *m.identity, true
		if prev != id {
			r.leave(c, prev.Channel())
			r.leave(c, model.RoleChannel(prev.AccountType))
		}
	}

	bound := id
	m.identity = &bound
	r.join(c, id.Channel())
	r.join(c, model.RoleChannel(id.AccountType))

	return prev, hadPrev
}

// Leave removes a connection from a channel; it is a no-op if the connection is not a member
func (r *Router) Leave(c Conn, channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leave(c, channel)
}

// LeaveAll removes a connection from every channel and forgets it.
// It returns the identity that was bound to the connection, if any.
func (r *Router) LeaveAll(c Conn) (model.Identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.conns[c]
	if !ok {
		return model.Identity{}, false
	}
	for ch := range m.channels {
		r.leave(c, ch)
	}
	delete(r.conns, c)

	if m.identity == nil {
		return model.Identity{}, false
	}
	return *m.identity, true
}

// IdentityOf returns the identity bound to a connection
func (r *Router) IdentityOf(c Conn) (model.Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.conns[c]
	if !ok || m.identity == nil {
		return model.Identity{}, false
	}
	return *m.identity, true
}

// Emit delivers an event to every current member of a channel and returns how many
// connections accepted it. A channel without members is a silent no-op.
func (r *Router) Emit(channel, event string, payload any) int {
	r.mu.RLock()
	members := make([]Conn, 0, len(r.channels[channel]))
	for c := range r.channels[channel] {
		members = append(members, c)
	}
	r.mu.RUnlock()

	if len(members) == 0 {
		return 0
	}
	return r.deliver(members, event, payload)
}

// EmitExcept delivers an event to every registered connection other than except.
// A nil except reaches everyone.
func (r *Router) EmitExcept(except Conn, event string, payload any) int {
	r.mu.RLock()
	targets := make([]Conn, 0, len(r.conns))
	for c := range r.conns {
		if except != nil && c == except {
			continue
		}
		targets = append(targets, c)
	}
	r.mu.RUnlock()

	if len(targets) == 0 {
		return 0
	}
	return r.deliver(targets, event, payload)
}

// Members returns the number of connections in a channel
func (r *Router) Members(channel string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels[channel])
}

// ChannelsOf returns the sorted channel names a connection belongs to
func (r *Router) ChannelsOf(c Conn) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.conns[c]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(m.channels))
	for ch := range m.channels {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}

// Connections returns the number of registered connections
func (r *Router) Connections() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func (r *Router) deliver(targets []Conn, event string, payload any) int {
	frame, err := EncodeFrame(event, payload)
	if err != nil {
		r.logger.Error("Failed to encode event", zap.String("event", event), zap.Error(err))
		return 0
	}

	delivered := 0
	for _, c := range targets {
		if c.Send(frame) {
			delivered++
			continue
		}
		r.metrics.RecordDrop()
		r.logger.Warn("Dropped frame for slow connection",
			zap.String("conn", c.ID()),
			zap.String("event", event),
		)
	}
	r.metrics.RecordEmit(event)
	return delivered
}

// ensure, join and leave expect r.mu to be held for writing.
func (r *Router) ensure(c Conn) *membership {
	m, ok := r.conns[c]
	if !ok {
		m = &membership{channels: make(map[string]struct{})}
		r.conns[c] = m
	}
	return m
}

func (r *Router) join(c Conn, channel string) {
	m := r.ensure(c)
	m.channels[channel] = struct{}{}

	members, ok := r.channels[channel]
	if !ok {
		members = make(map[Conn]struct{})
		r.channels[channel] = members
	}
	members[c] = struct{}{}
}

func (r *Router) leave(c Conn, channel string) {
	if m, ok := r.conns[c]; ok {
		delete(m.channels, channel)
	}
	members, ok := r.channels[channel]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(r.channels, channel)
	}
}
