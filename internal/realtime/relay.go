package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// broadcastAll marks an envelope addressed to every connection rather than one channel
const broadcastAll = "*"

type envelope struct {
	Origin  string          `json:"origin"`
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data"`
}

// Publisher is the subset of a redis client the relay publishes through
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Relay emits locally and mirrors every emit to other instances through Redis pub/sub
type Relay struct {
	router     *Router
	client     *redis.Client
	publisher  Publisher
	topic      string
	instanceID string
	timeout    time.Duration
	logger     *zap.Logger
}

// NewRelay creates a relay publishing on topic
func NewRelay(router *Router, client *redis.Client, topic string, logger *zap.Logger) *Relay {
	return &Relay{
		router:     router,
		client:     client,
		publisher:  client,
		topic:      topic,
		instanceID: uuid.NewString(),
		timeout:    2 * time.Second,
		logger:     logger.Named("relay"),
	}
}

// Emit implements Emitter
func (r *Relay) Emit(channel, event string, payload any) int {
	n := r.router.Emit(channel, event, payload)
	r.publish(channel, event, payload)
	return n
}

// EmitExcept implements Emitter. Remote instances deliver to all of their connections.
func (r *Relay) EmitExcept(except Conn, event string, payload any) int {
	n := r.router.EmitExcept(except, event, payload)
	r.publish(broadcastAll, event, payload)
	return n
}

func (r *Relay) publish(channel, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		r.logger.Error("Failed to encode relayed event", zap.String("event", event), zap.Error(err))
		return
	}
	msg, err := json.Marshal(envelope{Origin: r.instanceID, Channel: channel, Event: event, Data: data})
	if err != nil {
		r.logger.Error("Failed to encode relay envelope", zap.String("event", event), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.publisher.Publish(ctx, r.topic, msg).Err(); err != nil {
		r.logger.Warn("Failed to publish relayed event",
			zap.String("channel", channel),
			zap.String("event", event),
			zap.Error(err),
		)
	}
}

// Run subscribes to the relay topic and re-emits events from other instances until ctx ends
func (r *Relay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.topic)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", r.topic, err)
	}
	r.logger.Info("Relay subscribed", zap.String("topic", r.topic), zap.String("instance", r.instanceID))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.handle([]byte(msg.Payload))
		}
	}
}

func (r *Relay) handle(raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		r.logger.Warn("Dropping malformed relay message", zap.Error(err))
		return
	}
	if env.Origin == r.instanceID {
		return
	}

	if env.Channel == broadcastAll {
		r.router.EmitExcept(nil, env.Event, env.Data)
		return
	}
	r.router.Emit(env.Channel, env.Event, env.Data)
}
