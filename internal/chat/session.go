package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Action is a structured directive the widget executes client-side: open a
// site resource or hand off to WhatsApp. Exactly one of the two targets is
// set.
type Action struct {
	OpenResource string `json:"open_resource,omitempty"`
	OpenWhatsApp string `json:"open_whatsapp,omitempty"`
	ActionText   string `json:"action_text,omitempty"`
}

// SessionStore holds at most one pending action per session. ConsumeAction
// has read-once semantics: two concurrent consumers of the same key see the
// action exactly once between them.
type SessionStore interface {
	SetAction(ctx context.Context, sessionID string, a Action) error
	ConsumeAction(ctx context.Context, sessionID string) (*Action, error)
}

type memoryEntry struct {
	action  Action
	expires time.Time
}

// MemoryStore is the in-process SessionStore used when Redis is not
// configured, and in tests.
type MemoryStore struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]memoryEntry
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &MemoryStore{ttl: ttl, entries: map[string]memoryEntry{}}
}

func (s *MemoryStore) SetAction(_ context.Context, sessionID string, a Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sessionID] = memoryEntry{action: a, expires: time.Now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) ConsumeAction(_ context.Context, sessionID string) (*Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[sessionID]
	if !ok {
		return nil, nil
	}
	delete(s.entries, sessionID)
	if time.Now().After(e.expires) {
		return nil, nil
	}
	a := e.action
	return &a, nil
}

// RedisStore keeps pending actions in Redis so the widget works across
// replicas. GETDEL gives the read-once pop atomically.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(sessionID string) string {
	return "chat:last_action:" + sessionID
}

func (s *RedisStore) SetAction(ctx context.Context, sessionID string, a Action) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal chat action: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(sessionID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("store chat action: %w", err)
	}
	return nil
}

func (s *RedisStore) ConsumeAction(ctx context.Context, sessionID string) (*Action, error) {
	payload, err := s.client.GetDel(ctx, sessionKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pop chat action: %w", err)
	}
	var a Action
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, fmt.Errorf("decode chat action: %w", err)
	}
	return &a, nil
}
