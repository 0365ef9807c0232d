package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"wardshift/internal/store"
)

// Session 会话（由外部认证服务签发，这里只做校验）
type Session struct {
	UserID string `json:"user_id"`
}

// SessionProvider is the external auth collaborator contract: resolve the
// request's session token to a session, or nil when there is no valid one.
// A nil session is not an error; it maps to 401 SESSION_EXPIRED upstream.
type SessionProvider interface {
	GetSession(ctx context.Context, r *http.Request) (*Session, error)
}

// sessionToken reads the bearer token, falling back to the session cookie.
func sessionToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie("session_token"); err == nil {
		return c.Value
	}
	return ""
}

// RedisSessions resolves tokens against the shared KV written by the auth
// provider. Key: "session:<token>", value: JSON {"user_id": "..."}.
type RedisSessions struct {
	kv store.KV
}

var _ SessionProvider = (*RedisSessions)(nil)

func NewRedisSessions(kv store.KV) *RedisSessions {
	return &RedisSessions{kv: kv}
}

func (s *RedisSessions) GetSession(ctx context.Context, r *http.Request) (*Session, error) {
	token := sessionToken(r)
	if token == "" {
		return nil, nil
	}

	val, err := s.kv.Get(ctx, "session:"+token)
	if err != nil {
		if err == store.ErrMiss {
			return nil, nil
		}
		return nil, err
	}

	var sess Session
	if err := json.Unmarshal([]byte(val), &sess); err != nil || sess.UserID == "" {
		return nil, nil
	}
	return &sess, nil
}

// StaticSessions is a minimal in-memory session table for dev/stub mode and
// handler tests.
type StaticSessions struct {
	mu     sync.RWMutex
	tokens map[string]Session
}

var _ SessionProvider = (*StaticSessions)(nil)

func NewStaticSessions() *StaticSessions {
	return &StaticSessions{tokens: map[string]Session{}}
}

func (s *StaticSessions) Put(token, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = Session{UserID: userID}
}

func (s *StaticSessions) GetSession(_ context.Context, r *http.Request) (*Session, error) {
	token := sessionToken(r)
	if token == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sess, ok := s.tokens[token]; ok {
		return &sess, nil
	}
	return nil, nil
}

// SeedSession writes a session into the KV the way the auth provider does
// (dev bootstrap, integration tests).
func SeedSession(ctx context.Context, kv store.KV, token, userID string, ttl time.Duration) error {
	payload, _ := json.Marshal(Session{UserID: userID})
	return kv.Set(ctx, "session:"+token, string(payload), ttl)
}
