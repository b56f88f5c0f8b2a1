package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"edudash-assessment-service/internal/session"
)

// SessionStore is a Redis-aware registry of live assessment sessions.
// Notes:
//   - Sessions themselves stay in-process: a session is scoped to one
//     page instance, and the countdown/answer state never leaves it.
//   - Redis only marks session liveness so operators can see which
//     attempts are in flight across instances.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*session.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*session.Session),
	}
}

func (s *SessionStore) Put(id string, sess *session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = sess
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(id), sess.Quiz().ID, s.ttl).Err()
}

func (s *SessionStore) Get(id string) (*session.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	_ = s.client.Del(context.Background(), s.key(id)).Err()
}

func (s *SessionStore) key(id string) string {
	return "assessment:session:" + id
}
