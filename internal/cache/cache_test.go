package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/redis/go-redis/v9/maintnotifications"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestCache(t *testing.T) (*miniredis.Miniredis, *Cache) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, New(rdb, time.Minute)
}

func TestAsideMissThenHit(t *testing.T) {
	mr, c := newTestCache(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *payload) func() error {
		return func() error {
			calls++
			*dest = payload{Name: "Create", Count: 3}
			return nil
		}
	}

	var first payload
	require.NoError(t, c.Aside(ctx, "mod_detail", ModDetailKey("m1"), &first, fetch(&first)))
	assert.Equal(t, payload{Name: "Create", Count: 3}, first)
	assert.True(t, mr.Exists("mod:m1:detail"))
	assert.Equal(t, time.Minute, mr.TTL("mod:m1:detail"))

	var second payload
	require.NoError(t, c.Aside(ctx, "mod_detail", ModDetailKey("m1"), &second, fetch(&second)))
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestAsideFetchErrorIsNotCached(t *testing.T) {
	mr, c := newTestCache(t)

	var dest payload
	err := c.Aside(context.Background(), "mod_detail", ModDetailKey("m2"), &dest, func() error {
		return errors.New("db down")
	})
	assert.Error(t, err)
	assert.False(t, mr.Exists("mod:m2:detail"))
}

func TestInvalidateMod(t *testing.T) {
	mr, c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetJSON(ctx, ModDetailKey("m1"), payload{Name: "x"}))
	require.NoError(t, c.SetJSON(ctx, ModListKey(), []payload{{Name: "x"}}))

	c.InvalidateMod(ctx, "m1")
	assert.False(t, mr.Exists("mod:m1:detail"))
	assert.False(t, mr.Exists("mods:list"))
}

func TestDisabledCacheAlwaysFetches(t *testing.T) {
	c := New(nil, time.Minute)
	assert.False(t, c.Enabled())

	calls := 0
	var dest payload
	for i := 0; i < 2; i++ {
		require.NoError(t, c.Aside(context.Background(), "mod_detail", "k", &dest, func() error {
			calls++
			return nil
		}))
	}
	assert.Equal(t, 2, calls)
	c.Invalidate(context.Background(), "k")
}

func TestAsideSurvivesRedisOutage(t *testing.T) {
	mr, c := newTestCache(t)
	mr.Close()

	var dest payload
	err := c.Aside(context.Background(), "mod_detail", "k", &dest, func() error {
		dest.Name = "fallback"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fallback", dest.Name)
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := Connect(context.Background(), mr.Addr())
	require.NoError(t, err)
	_ = client.Close()

	client, err = Connect(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	_ = client.Close()

	_, err = Connect(context.Background(), "redis://%zz")
	assert.Error(t, err)
}

func TestOptions(t *testing.T) {
	tests := []struct {
		in       string
		wantAddr string
		wantPass string
		wantDB   int
		wantTLS  bool
	}{
		{"redis://:mypassword@redis:6379/1", "redis:6379", "mypassword", 1, false},
		{"rediss://:s3cret@redis.example.com:6380/2", "redis.example.com:6380", "s3cret", 2, true},
		{"redis:6379", "redis:6379", "", 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			opts, err := Options(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.wantAddr, opts.Addr)
			assert.Equal(t, tc.wantPass, opts.Password)
			assert.Equal(t, tc.wantDB, opts.DB)
			assert.Equal(t, tc.wantTLS, opts.TLSConfig != nil)
			require.NotNil(t, opts.MaintNotificationsConfig)
			assert.Equal(t, maintnotifications.ModeDisabled, opts.MaintNotificationsConfig.Mode)
		})
	}
}
