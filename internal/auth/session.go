package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultSessionTTL = 24 * time.Hour
	SessionCookie     = "session_id"
)

// SessionStore maps opaque session ids to user ids.
type SessionStore interface {
	Get(ctx context.Context, sid string) (userID int64, found bool, err error)
	Set(ctx context.Context, sid string, userID int64) error
	Clear(ctx context.Context, sid string) error
}

// NewSessionID returns a fresh random session id.
func NewSessionID() string {
	return uuid.NewString()
}

// RedisSessionStore keeps sessions in Redis under session:<sid>. Every
// successful Get pushes the expiry out by another TTL.
type RedisSessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisSessionStore(rdb *redis.Client, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisSessionStore{rdb: rdb, ttl: ttl}
}

func sessionKey(sid string) string {
	return "session:" + sid
}

func (s *RedisSessionStore) Get(ctx context.Context, sid string) (int64, bool, error) {
	val, err := s.rdb.GetEx(ctx, sessionKey(sid), s.ttl).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis get session: %w", err)
	}
	userID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt session %s: %w", sid, err)
	}
	return userID, true, nil
}

func (s *RedisSessionStore) Set(ctx context.Context, sid string, userID int64) error {
	if err := s.rdb.Set(ctx, sessionKey(sid), strconv.FormatInt(userID, 10), s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Clear(ctx context.Context, sid string) error {
	if err := s.rdb.Del(ctx, sessionKey(sid)).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

type memorySession struct {
	userID  int64
	expires time.Time
}

// MemorySessionStore is an in-process SessionStore with the same sliding
// expiry as the Redis one.
type MemorySessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]memorySession
}

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &MemorySessionStore{ttl: ttl, now: time.Now, sessions: make(map[string]memorySession)}
}

func (s *MemorySessionStore) Get(_ context.Context, sid string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sid]
	if !ok {
		return 0, false, nil
	}
	now := s.now()
	if !now.Before(sess.expires) {
		delete(s.sessions, sid)
		return 0, false, nil
	}
	sess.expires = now.Add(s.ttl)
	s.sessions[sid] = sess
	return sess.userID, true, nil
}

func (s *MemorySessionStore) Set(_ context.Context, sid string, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sid] = memorySession{userID: userID, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *MemorySessionStore) Clear(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sid)
	return nil
}
