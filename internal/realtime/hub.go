package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/laundry-marketplace/internal/metrics"
	"github.com/laundry-marketplace/internal/model"
	"go.uber.org/zap"
)

const (
	EventUserOnline     = "userOnline"
	EventUserOffline    = "userOffline"
	EventReceiveMessage = "receiveMessage"
	EventError          = "error"
)

// Emitter delivers events to channels. *Router emits locally and *Relay also
// fans out to other instances.
type Emitter interface {
	Emit(channel, event string, payload any) int
	EmitExcept(except Conn, event string, payload any) int
}

// PresenceStore persists whether an identity's push tokens are active
type PresenceStore interface {
	SetActive(ctx context.Context, owner model.Identity, active bool) (int64, error)
}

// PresenceEvent is the payload of userOnline and userOffline
type PresenceEvent struct {
	AccountID   int64             `json:"accountId"`
	AccountType model.AccountType `json:"accountType"`
	Timestamp   string            `json:"timestamp"`
}

// Hub ties connection lifecycle to the router and the presence registry
type Hub struct {
	router       *Router
	presence     *Registry
	emitter      Emitter
	store        PresenceStore
	cluster      ClusterPresence
	locks        identityLocks
	logger       *zap.Logger
	metrics      *metrics.Metrics
	storeTimeout time.Duration
	now          func() time.Time
}

// NewHub creates a new hub. store may be nil.
func NewHub(router *Router, presence *Registry, store PresenceStore, logger *zap.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		router:       router,
		presence:     presence,
		emitter:      router,
		store:        store,
		locks:        identityLocks{held: make(map[model.Identity]*identityLock)},
		logger:       logger.Named("hub"),
		metrics:      m,
		storeTimeout: 5 * time.Second,
		now:          time.Now,
	}
}

// SetEmitter replaces the emitter used for hub-originated events
func (h *Hub) SetEmitter(e Emitter) {
	h.emitter = e
}

// SetCluster makes online and offline edges cluster-wide. Without it they are per process.
func (h *Hub) SetCluster(c ClusterPresence) {
	h.cluster = c
}

// Online returns the identities that currently have a live connection
func (h *Hub) Online() []model.Identity {
	return h.presence.Online()
}

// Connect registers a freshly opened connection
func (h *Hub) Connect(c Conn) {
	h.router.Register(c)
	h.metrics.ConnectionOpened()
	h.logger.Debug("Connection opened", zap.String("conn", c.ID()))
}

// Join binds an identity to a connection. Re-joining with the same identity is a no-op;
// joining with another identity releases the previous one first.
func (h *Hub) Join(c Conn, id model.Identity) {
	prev, had := h.router.JoinIdentity(c, id)
	if had && prev == id {
		return
	}
	if had {
		h.release(c, prev)
	}

	h.logger.Info("Identity joined",
		zap.String("conn", c.ID()),
		zap.Stringer("identity", id),
	)
	h.acquire(c, id)
}

// JoinConversation adds a connection to a conversation channel
func (h *Hub) JoinConversation(c Conn, channel string) {
	h.router.Join(c, channel)
}

// LeaveConversation removes a connection from a conversation channel
func (h *Hub) LeaveConversation(c Conn, channel string) {
	h.router.Leave(c, channel)
}

// Disconnect drops every membership of a connection and releases its identity
func (h *Hub) Disconnect(c Conn, code int, reason string) {
	id, ok := h.router.LeaveAll(c)
	h.metrics.ConnectionClosed()

	fields := []zap.Field{
		zap.String("conn", c.ID()),
		zap.Int("code", code),
		zap.String("reason", reason),
	}
	if ok {
		fields = append(fields, zap.Stringer("identity", id))
	}
	h.logger.Info("Connection closed", fields...)

	if ok {
		h.release(c, id)
	}
}

// SendMessage stamps a chat message with an id and send time and relays it to the
// sender and receiver identity channels.
func (h *Hub) SendMessage(msg *model.Message) *model.Message {
	msg.ID = uuid.New().String()
	msg.CreatedAt = h.now().UTC()
	h.RelayMessage(msg)
	return msg
}

// RelayMessage emits an already stamped message to both parties, once when they share a channel
func (h *Hub) RelayMessage(msg *model.Message) {
	senderCh := msg.Sender().Channel()
	receiverCh := msg.Receiver().Channel()

	h.emitter.Emit(senderCh, EventReceiveMessage, msg)
	if receiverCh != senderCh {
		h.emitter.Emit(receiverCh, EventReceiveMessage, msg)
	}
}

// acquire and release hold the identity lock across the count change and its side
// effects, so durable writes and presence events for one identity apply in edge order.
func (h *Hub) acquire(c Conn, id model.Identity) {
	unlock := h.locks.lock(id)
	defer unlock()

	if !h.presence.Acquire(id) {
		return
	}
	h.metrics.IdentityOnline()
	if h.clusterEdge(id, true) {
		h.setActive(id, true)
		h.emitter.EmitExcept(c, EventUserOnline, h.presenceEvent(id))
	}
}

func (h *Hub) release(c Conn, id model.Identity) {
	unlock := h.locks.lock(id)
	defer unlock()

	if !h.presence.Release(id) {
		return
	}
	h.metrics.IdentityOffline()
	if h.clusterEdge(id, false) {
		h.setActive(id, false)
		h.emitter.EmitExcept(c, EventUserOffline, h.presenceEvent(id))
	}
}

// clusterEdge confirms a local edge against the cluster count.
// When the count cannot be updated the local edge stands.
func (h *Hub) clusterEdge(id model.Identity, online bool) bool {
	if h.cluster == nil {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.storeTimeout)
	defer cancel()

	var (
		edge bool
		err  error
	)
	if online {
		edge, err = h.cluster.Acquire(ctx, id)
	} else {
		edge, err = h.cluster.Release(ctx, id)
	}
	if err != nil {
		h.logger.Warn("Failed to update cluster presence",
			zap.Stringer("identity", id),
			zap.Bool("online", online),
			zap.Error(err),
		)
		return true
	}
	return edge
}

// setActive is best effort; the in-memory count stays authoritative when it fails.
func (h *Hub) setActive(id model.Identity, active bool) {
	if h.store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.storeTimeout)
	defer cancel()

	if _, err := h.store.SetActive(ctx, id, active); err != nil {
		h.logger.Error("Failed to update device token activity",
			zap.Stringer("identity", id),
			zap.Bool("active", active),
			zap.Error(err),
		)
	}
}

func (h *Hub) presenceEvent(id model.Identity) PresenceEvent {
	return PresenceEvent{
		AccountID:   id.AccountID,
		AccountType: id.AccountType,
		Timestamp:   h.now().UTC().Format(time.RFC3339),
	}
}

type identityLock struct {
	mu   sync.Mutex
	refs int
}

// identityLocks hands out one mutex per identity and forgets it when unused
type identityLocks struct {
	mu   sync.Mutex
	held map[model.Identity]*identityLock
}

func (l *identityLocks) lock(id model.Identity) func() {
	l.mu.Lock()
	il, ok := l.held[id]
	if !ok {
		il = &identityLock{}
		l.held[id] = il
	}
	il.refs++
	l.mu.Unlock()

	il.mu.Lock()
	return func() {
		il.mu.Unlock()

		l.mu.Lock()
		il.refs--
		if il.refs == 0 {
			delete(l.held, id)
		}
		l.mu.Unlock()
	}
}
