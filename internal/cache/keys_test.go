package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedUser struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

func withTestRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
	return mr
}

func TestAsideMissThenHit(t *testing.T) {
	withTestRedis(t)
	ctx := context.Background()

	fetchCalls := 0
	fetch := func(dest *cachedUser) func() error {
		return func() error {
			fetchCalls++
			*dest = cachedUser{ID: 7, Username: "alice"}
			return nil
		}
	}

	var first cachedUser
	require.NoError(t, Aside(ctx, UserKey(7), &first, UserTTL, fetch(&first)))
	assert.Equal(t, 1, fetchCalls)
	assert.Equal(t, "alice", first.Username)

	var second cachedUser
	require.NoError(t, Aside(ctx, UserKey(7), &second, UserTTL, fetch(&second)))
	assert.Equal(t, 1, fetchCalls, "second read should be served from cache")
	assert.Equal(t, first, second)
}

func TestAsidePropagatesFetchError(t *testing.T) {
	withTestRedis(t)

	sentinel := errors.New("store down")
	var dest cachedUser
	err := Aside(context.Background(), UserKey(1), &dest, time.Minute, func() error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
}

func TestAsideNilClientDegradesToFetch(t *testing.T) {
	SetClient(nil)

	called := false
	var dest cachedUser
	require.NoError(t, Aside(context.Background(), UserKey(1), &dest, time.Minute, func() error {
		called = true
		return nil
	}))
	assert.True(t, called)
}

func TestInvalidateUser(t *testing.T) {
	mr := withTestRedis(t)
	ctx := context.Background()

	var dest cachedUser
	require.NoError(t, Aside(ctx, UserKey(3), &dest, UserTTL, func() error {
		dest = cachedUser{ID: 3, Username: "bob"}
		return nil
	}))
	assert.True(t, mr.Exists(UserKey(3)))

	InvalidateUser(ctx, 3)
	assert.False(t, mr.Exists(UserKey(3)))
}
