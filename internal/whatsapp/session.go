package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Session is the per-sender conversation state.
type Session struct {
	UserID       string    `json:"user_id"`
	LastResumeID string    `json:"last_resume_id,omitempty"`
	LastFilename string    `json:"last_filename,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SessionStore returns (nil, nil) for unknown or expired senders.
type SessionStore interface {
	Get(ctx context.Context, userID string) (*Session, error)
	Save(ctx context.Context, session *Session) error
	Delete(ctx context.Context, userID string) error
}

type memoryEntry struct {
	session   Session
	expiresAt time.Time
}

// MemorySessionStore keeps sessions in a process-scoped map.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]memoryEntry
	ttl      time.Duration
	now      func() time.Time
}

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]memoryEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *MemorySessionStore) Get(_ context.Context, userID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.sessions[userID]
	if !ok {
		return nil, nil
	}
	if m.ttl > 0 && m.now().After(entry.expiresAt) {
		delete(m.sessions, userID)
		return nil, nil
	}

	s := entry.session
	return &s, nil
}

func (m *MemorySessionStore) Save(_ context.Context, session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	session.UpdatedAt = now
	m.sessions[session.UserID] = memoryEntry{session: *session, expiresAt: now.Add(m.ttl)}
	return nil
}

func (m *MemorySessionStore) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, userID)
	return nil
}

// RedisSessionStore keeps each session as a JSON string under keyPrefix+userID.
type RedisSessionStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

func NewRedisSessionStore(ctx context.Context, client *redis.Client, keyPrefix string, ttl time.Duration) (*RedisSessionStore, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if keyPrefix == "" {
		keyPrefix = "whatsapp:session:"
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisSessionStore{client: client, keyPrefix: keyPrefix, ttl: ttl}, nil
}

func (r *RedisSessionStore) key(userID string) string {
	return r.keyPrefix + userID
}

func (r *RedisSessionStore) Get(ctx context.Context, userID string) (*Session, error) {
	raw, err := r.client.Get(ctx, r.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session %s: %w", userID, err)
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("corrupted session %s: %w", userID, err)
	}
	return &s, nil
}

func (r *RedisSessionStore) Save(ctx context.Context, session *Session) error {
	session.UpdatedAt = time.Now()
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", session.UserID, err)
	}

	if err := r.client.Set(ctx, r.key(session.UserID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.UserID, err)
	}
	return nil
}

func (r *RedisSessionStore) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, r.key(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", userID, err)
	}
	return nil
}
