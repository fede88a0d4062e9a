package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*TokenStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redisv9.NewClient(&redisv9.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewTokenStore(client), mr
}

func TestOneTimeTokenLifecycle(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	require.NoError(t, store.SaveOneTime(ctx, PurposeVerify, "tok", "jane@x.com", time.Minute))
	assert.Equal(t, time.Minute, mr.TTL("auth:verify:tok"))

	email, err := store.ConsumeOneTime(ctx, PurposeReset, "tok")
	require.NoError(t, err)
	assert.Empty(t, email, "purposes must not share keys")

	email, err = store.ConsumeOneTime(ctx, PurposeVerify, "tok")
	require.NoError(t, err)
	assert.Equal(t, "jane@x.com", email)
	assert.False(t, mr.Exists("auth:verify:tok"))

	email, err = store.ConsumeOneTime(ctx, PurposeVerify, "tok")
	require.NoError(t, err)
	assert.Empty(t, email)
}

func TestOneTimeTokenConsumedOnceUnderContention(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	require.NoError(t, store.SaveOneTime(ctx, PurposeReset, "tok", "jane@x.com", time.Minute))

	const workers = 8
	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			email, err := store.ConsumeOneTime(ctx, PurposeReset, "tok")
			if err == nil && email != "" {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, wins.Load())
}

func TestOneTimeTokenExpires(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	require.NoError(t, store.SaveOneTime(ctx, PurposeReset, "tok", "jane@x.com", 15*time.Minute))
	mr.FastForward(16 * time.Minute)

	email, err := store.ConsumeOneTime(ctx, PurposeReset, "tok")
	require.NoError(t, err)
	assert.Empty(t, email)
}

func TestBlacklist(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	revoked, err := store.IsBlacklisted(ctx, "jwt")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.Blacklist(ctx, "jwt", 10*time.Minute))
	revoked, err = store.IsBlacklisted(ctx, "jwt")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.Equal(t, 10*time.Minute, mr.TTL("auth:blacklist:jwt"))

	mr.FastForward(11 * time.Minute)
	revoked, err = store.IsBlacklisted(ctx, "jwt")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestBlacklistSkipsExpiredTokens(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	require.NoError(t, store.Blacklist(ctx, "old", 0))
	assert.False(t, mr.Exists("auth:blacklist:old"))
}
