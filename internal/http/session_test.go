package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wardshift/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionToken_BearerAndCookie(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/handover/active", nil)
	assert.Empty(t, sessionToken(r))

	r.Header.Set("Authorization", "Bearer abc123")
	assert.Equal(t, "abc123", sessionToken(r))

	// bearer wins over the cookie
	r.AddCookie(&http.Cookie{Name: "session_token", Value: "cookie-token"})
	assert.Equal(t, "abc123", sessionToken(r))

	r.Header.Del("Authorization")
	assert.Equal(t, "cookie-token", sessionToken(r))
}

func TestRedisSessions_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	kv := store.NewRedisKV(client)
	ctx := context.Background()
	require.NoError(t, SeedSession(ctx, kv, "tok-1", "user-1", time.Hour))

	sessions := NewRedisSessions(kv)

	r := httptest.NewRequest(http.MethodGet, "/handover/active", nil)
	r.Header.Set("Authorization", "Bearer tok-1")
	sess, err := sessions.GetSession(ctx, r)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "user-1", sess.UserID)

	// unknown token resolves to no session, not an error
	r.Header.Set("Authorization", "Bearer tok-2")
	sess, err = sessions.GetSession(ctx, r)
	require.NoError(t, err)
	assert.Nil(t, sess)

	// expired token behaves like an unknown one
	mr.FastForward(2 * time.Hour)
	r.Header.Set("Authorization", "Bearer tok-1")
	sess, err = sessions.GetSession(ctx, r)
	require.NoError(t, err)
	assert.Nil(t, sess)
}
