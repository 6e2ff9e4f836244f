package realtime

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/laundry-marketplace/internal/model"
)

// ClusterPresence counts, across every instance, how many instances hold at least
// one live connection for an identity. The hub consults it only on local edges.
type ClusterPresence interface {
	// Acquire reports whether the identity just came online cluster-wide
	Acquire(ctx context.Context, id model.Identity) (bool, error)
	// Release reports whether the identity just went offline cluster-wide
	Release(ctx context.Context, id model.Identity) (bool, error)
}

// counterClient is the part of a redis client RedisPresence uses
type counterClient interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Decr(ctx context.Context, key string) *redis.IntCmd
}

// RedisPresence keeps the per-identity instance count in Redis
type RedisPresence struct {
	client counterClient
	prefix string
}

// NewRedisPresence creates a cluster presence counter storing keys under prefix
func NewRedisPresence(client *redis.Client, prefix string) *RedisPresence {
	return &RedisPresence{client: client, prefix: prefix}
}

// TODO: counts held by an instance that crashes are never released; give each
// instance a heartbeat key and reap its counts when the heartbeat expires.

// Acquire implements ClusterPresence
func (p *RedisPresence) Acquire(ctx context.Context, id model.Identity) (bool, error) {
	n, err := p.client.Incr(ctx, p.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment presence of %s: %w", id, err)
	}
	return n == 1, nil
}

// Release implements ClusterPresence. A count that drifted below zero still reports offline.
func (p *RedisPresence) Release(ctx context.Context, id model.Identity) (bool, error) {
	n, err := p.client.Decr(ctx, p.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to decrement presence of %s: %w", id, err)
	}
	return n <= 0, nil
}

func (p *RedisPresence) key(id model.Identity) string {
	return p.prefix + ":" + id.String()
}
