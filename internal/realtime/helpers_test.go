package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/laundry-marketplace/internal/model"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	id     string
	full   bool
	mu     sync.Mutex
	frames []Frame
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(frame []byte) bool {
	if c.full {
		return false
	}
	var f Frame
	if err := json.Unmarshal(frame, &f); err != nil {
		return false
	}
	c.mu.Lock()
	c.frames = append(c.frames, f)
	c.mu.Unlock()
	return true
}

func (c *fakeConn) events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.frames))
	for i, f := range c.frames {
		out[i] = f.Event
	}
	return out
}

func (c *fakeConn) last(t *testing.T, v any) string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.frames)
	f := c.frames[len(c.frames)-1]
	if v != nil {
		require.NoError(t, json.Unmarshal(f.Data, v))
	}
	return f.Event
}

type mockPresenceStore struct {
	mock.Mock
}

func (m *mockPresenceStore) SetActive(ctx context.Context, owner model.Identity, active bool) (int64, error) {
	args := m.Called(ctx, owner, active)
	return args.Get(0).(int64), args.Error(1)
}

// recordingStore records SetActive calls in order. When gate is set, a false
// write signals entered and waits on gate before returning.
type recordingStore struct {
	mu      sync.Mutex
	calls   []bool
	gate    chan struct{}
	entered chan struct{}
}

func (s *recordingStore) SetActive(_ context.Context, _ model.Identity, active bool) (int64, error) {
	if !active && s.gate != nil {
		s.entered <- struct{}{}
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, active)
	return 1, nil
}

func (s *recordingStore) recorded() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bool(nil), s.calls...)
}

// memoryCounter stands in for the Redis counters shared by every instance
type memoryCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newMemoryCounter() *memoryCounter {
	return &memoryCounter{counts: make(map[string]int64)}
}

func (m *memoryCounter) Incr(_ context.Context, key string) *redis.IntCmd {
	return m.add(key, 1)
}

func (m *memoryCounter) Decr(_ context.Context, key string) *redis.IntCmd {
	return m.add(key, -1)
}

func (m *memoryCounter) add(key string, delta int64) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return redis.NewIntResult(0, m.err)
	}
	m.counts[key] += delta
	return redis.NewIntResult(m.counts[key], nil)
}

// loopback delivers every published envelope to each attached relay, like a shared Redis topic
type loopback struct {
	relays []*Relay
}

func (l *loopback) Publish(_ context.Context, _ string, message interface{}) *redis.IntCmd {
	for _, r := range l.relays {
		r.handle(message.([]byte))
	}
	return redis.NewIntResult(int64(len(l.relays)), nil)
}
