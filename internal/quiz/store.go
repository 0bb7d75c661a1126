package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound is returned for unknown and expired sessions.
var ErrSessionNotFound = errors.New("quiz session not found")

// Store persists quiz sessions until they expire.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) (bool, error)
}

// MemoryStore keeps sessions in process. Expired sessions are invisible
// and freed by Sweep.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string][]byte
	expiry   map[string]time.Time
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: map[string][]byte{},
		expiry:   map[string]time.Time{},
		now:      time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	raw, ok := m.sessions[id]
	exp := m.expiry[id]
	m.mu.Unlock()
	if !ok || !m.now().Before(exp) {
		return nil, ErrSessionNotFound
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode quiz session: %w", err)
	}
	return &s, nil
}

// Save stores a copy, so callers can keep mutating s.
func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = raw
	m.expiry[s.ID] = s.ExpiresAt
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	if ok && !m.now().Before(m.expiry[id]) {
		ok = false
	}
	delete(m.sessions, id)
	delete(m.expiry, id)
	return ok, nil
}

// Sweep drops expired sessions and reports how many went.
func (m *MemoryStore) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, exp := range m.expiry {
		if !now.Before(exp) {
			delete(m.sessions, id)
			delete(m.expiry, id)
			n++
		}
	}
	return n
}

// Len counts stored sessions, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

const redisKeyPrefix = "quiz:session:"

// RedisStore shares sessions between API replicas; Redis expires them.
type RedisStore struct {
	client redis.Cmdable
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(id string) string { return redisKeyPrefix + id }

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	raw, err := r.client.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode quiz session: %w", err)
	}
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		_, err := r.Delete(ctx, s.ID)
		return err
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, redisKey(s.ID), raw, ttl).Err()
}

func (r *RedisStore) Delete(ctx context.Context, id string) (bool, error) {
	n, err := r.client.Del(ctx, redisKey(id)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
