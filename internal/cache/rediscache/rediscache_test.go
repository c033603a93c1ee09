package rediscache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestWatermarks_MarkAndRead(t *testing.T) {
	mr := miniredis.RunT(t)
	w := NewWatermarks(mr.Addr(), time.Hour)
	t.Cleanup(func() { _ = w.Close() })

	ctx := context.Background()
	lr, err := w.LastRead(ctx, "u@x.io")
	require.NoError(t, err)
	require.Empty(t, lr)

	require.NoError(t, w.MarkRead(ctx, "u@x.io", "GSE-1", time.Unix(100, 0)))
	require.NoError(t, w.MarkRead(ctx, "u@x.io", "GSE-2", time.Unix(200, 0)))
	require.NoError(t, w.MarkRead(ctx, "u@x.io", "GSE-1", time.Unix(300, 0)))

	lr, err = w.LastRead(ctx, "u@x.io")
	require.NoError(t, err)
	require.Equal(t, map[string]int64{"GSE-1": 300, "GSE-2": 200}, lr)
	require.Equal(t, time.Hour, mr.TTL("chat:lastread:u@x.io"))

	other, _ := w.LastRead(ctx, "admin@x.io")
	require.Empty(t, other)
}

func TestWatermarks_SkipsForeignValues(t *testing.T) {
	mr := miniredis.RunT(t)
	w := NewWatermarks(mr.Addr(), 0)

	mr.HSet("chat:lastread:u@x.io", "GSE-1", "garbage", "GSE-2", "42")
	lr, err := w.LastRead(context.Background(), "u@x.io")
	require.NoError(t, err)
	require.Equal(t, map[string]int64{"GSE-2": 42}, lr)
	require.NoError(t, w.Ping(context.Background()))
}

func TestRateLimiter_Allow(t *testing.T) {
	mr := miniredis.RunT(t)
	rl := NewRateLimiter(mr.Addr())

	ctx := context.Background()
	ok, n, err := rl.Allow(ctx, "rl:test", 2, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1), n)

	ok, n, _ = rl.Allow(ctx, "rl:test", 2, time.Minute)
	require.True(t, ok)
	require.Equal(t, int64(2), n)

	ok, n, _ = rl.Allow(ctx, "rl:test", 2, time.Minute)
	require.False(t, ok)
	require.Equal(t, int64(3), n)

	mr.FastForward(time.Minute + time.Second)
	ok, n, _ = rl.Allow(ctx, "rl:test", 2, time.Minute)
	require.True(t, ok)
	require.Equal(t, int64(1), n)
}
