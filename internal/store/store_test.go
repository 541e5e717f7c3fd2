package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsilvagit/go-airdrop/internal/model"
)

func newMiniredisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewRedis(context.Background(), RedisOptions{URL: "redis://" + mr.Addr(), TTL: time.Hour}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func result(id string, at time.Time, names ...string) model.ScanResult {
	res := model.ScanResult{CycleID: id, ScanTime: at}
	for _, n := range names {
		res.Airdrops = append(res.Airdrops, model.Airdrop{Name: n, Source: "A", DiscoveredAt: at})
	}
	return res
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)

	_, err := s.LastResult(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.LastRun(ctx, "scan")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SaveResult(ctx, result("one", base, "Foo")))
	require.NoError(t, s.SaveResult(ctx, result("two", base.Add(24*time.Hour), "Foo", "Bar")))
	require.NoError(t, s.SaveResult(ctx, result("three", base.Add(48*time.Hour), "Baz")))

	last, err := s.LastResult(ctx)
	require.NoError(t, err)
	assert.Equal(t, "three", last.CycleID)
	require.Len(t, last.Airdrops, 1)
	assert.Equal(t, "Baz", last.Airdrops[0].Name)
	assert.True(t, last.ScanTime.Equal(base.Add(48*time.Hour)))

	recent, err := s.Results(ctx, base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "three", recent[0].CycleID)
	assert.Equal(t, "two", recent[1].CycleID)

	at := base.Add(3 * time.Hour)
	require.NoError(t, s.MarkRun(ctx, "scan", at))
	got, err := s.LastRun(ctx, "scan")
	require.NoError(t, err)
	assert.True(t, got.Equal(at))

	assert.NoError(t, s.Ping(ctx))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestRedisStore(t *testing.T) {
	s, _ := newMiniredisStore(t)
	exerciseStore(t, s)
}

func TestMemoryStoreCapsHistory(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	for i := range historyLimit + 5 {
		require.NoError(t, s.SaveResult(ctx, result("r", time.Unix(int64(i), 0))))
	}
	all, err := s.Results(ctx, time.Time{})
	require.NoError(t, err)
	assert.Len(t, all, historyLimit)
}

func TestRedisStoreTrimsHistoryAndSetsTTL(t *testing.T) {
	s, mr := newMiniredisStore(t)
	ctx := context.Background()
	for i := range historyLimit + 3 {
		require.NoError(t, s.SaveResult(ctx, result("r", time.Unix(int64(i), 0))))
	}

	items, err := mr.List(keyHistory)
	require.NoError(t, err)
	assert.Len(t, items, historyLimit)
	assert.Equal(t, time.Hour, mr.TTL(keyLastResult))
}

func TestRedisStoreSkipsCorruptHistory(t *testing.T) {
	s, mr := newMiniredisStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveResult(ctx, result("good", time.Unix(100, 0))))
	_, err := mr.Lpush(keyHistory, "{not json")
	require.NoError(t, err)

	all, err := s.Results(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "good", all[0].CycleID)
}

func TestNewRedisFailsWhenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedis(context.Background(), RedisOptions{
		URL:            "redis://" + addr,
		ConnectTimeout: 200 * time.Millisecond,
		RetryInterval:  20 * time.Millisecond,
	}, nil)
	assert.Error(t, err)
}

func TestNewRedisRejectsBadURL(t *testing.T) {
	_, err := NewRedis(context.Background(), RedisOptions{URL: "http://nope"}, nil)
	assert.Error(t, err)
}

func TestNewRedisFromClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisFromClient(client, 0)
	defer s.Close()

	require.NoError(t, s.MarkRun(context.Background(), "reminder", time.Unix(5, 0)))
	v := mr.HGet(keyRuns, "reminder")
	assert.Equal(t, time.Unix(5, 0).UTC().Format(time.RFC3339Nano), v)
}
