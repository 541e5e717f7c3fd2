package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rsilvagit/go-airdrop/internal/logger"
	"github.com/rsilvagit/go-airdrop/internal/model"
)

const (
	keyLastResult = "goairdrop:result:last"
	keyHistory    = "goairdrop:result:history"
	keyRuns       = "goairdrop:runs"
)

// RedisOptions configures the Redis-backed store.
type RedisOptions struct {
	URL            string        // redis://localhost:6379/0
	TTL            time.Duration // expiry of stored results; zero keeps them forever
	ConnectTimeout time.Duration // total time to keep retrying the initial ping
	RetryInterval  time.Duration // first wait between pings, doubled up to MaxWait
	MaxWait        time.Duration
}

func (o RedisOptions) withDefaults() RedisOptions {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 15 * time.Second
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = 500 * time.Millisecond
	}
	if o.MaxWait <= 0 {
		o.MaxWait = 5 * time.Second
	}
	return o
}

// RedisStore persists scan results and last-run times in Redis.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to Redis, retrying the ping with exponential backoff
// until ConnectTimeout elapses.
func NewRedis(ctx context.Context, opts RedisOptions, log logger.Logger) (*RedisStore, error) {
	opts = opts.withDefaults()
	if log == nil {
		log = logger.NewNop()
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("store: invalid redis URL: %w", err)
	}
	client := redis.NewClient(redisOpts)

	if err := connectWithRetry(ctx, client, redisOpts.Addr, opts, log); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &RedisStore{client: client, ttl: opts.TTL}, nil
}

// NewRedisFromClient wraps an already connected client.
func NewRedisFromClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func connectWithRetry(ctx context.Context, client *redis.Client, addr string, opts RedisOptions, log logger.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	wait := opts.RetryInterval
	for attempt := 1; ; attempt++ {
		err := client.Ping(ctx).Err()
		if err == nil {
			if attempt > 1 {
				log.Warn("connected to redis after retry",
					logger.String("addr", addr),
					logger.Int("attempts", attempt))
			} else {
				log.Info("connected to redis", logger.String("addr", addr))
			}
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("store: redis unavailable at %s after %d attempts: %w", addr, attempt, err)
		case <-timer.C:
			log.Warn("redis connection failed, retrying",
				logger.String("addr", addr),
				logger.Int("attempt", attempt),
				logger.Duration("next_retry_in", wait),
				logger.Error(err))
			wait *= 2
			if wait > opts.MaxWait {
				wait = opts.MaxWait
			}
		}
	}
}

func (s *RedisStore) SaveResult(ctx context.Context, res model.ScanResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("store: marshal result: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, keyLastResult, data, s.ttl)
		pipe.LPush(ctx, keyHistory, data)
		pipe.LTrim(ctx, keyHistory, 0, historyLimit-1)
		if s.ttl > 0 {
			pipe.Expire(ctx, keyHistory, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store: save result: %w", err)
	}
	return nil
}

func (s *RedisStore) LastResult(ctx context.Context) (model.ScanResult, error) {
	data, err := s.client.Get(ctx, keyLastResult).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.ScanResult{}, ErrNotFound
		}
		return model.ScanResult{}, fmt.Errorf("store: get last result: %w", err)
	}

	var res model.ScanResult
	if err := json.Unmarshal(data, &res); err != nil {
		return model.ScanResult{}, fmt.Errorf("store: unmarshal result: %w", err)
	}
	return res, nil
}

func (s *RedisStore) Results(ctx context.Context, since time.Time) ([]model.ScanResult, error) {
	raw, err := s.client.LRange(ctx, keyHistory, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("store: list results: %w", err)
	}

	out := make([]model.ScanResult, 0, len(raw))
	for _, item := range raw {
		var res model.ScanResult
		if err := json.Unmarshal([]byte(item), &res); err != nil {
			// Skip entries that couldn't be decoded
			continue
		}
		if res.ScanTime.Before(since) {
			continue
		}
		out = append(out, res)
	}
	return out, nil
}

func (s *RedisStore) MarkRun(ctx context.Context, job string, at time.Time) error {
	if err := s.client.HSet(ctx, keyRuns, job, at.UTC().Format(time.RFC3339Nano)).Err(); err != nil {
		return fmt.Errorf("store: mark run %s: %w", job, err)
	}
	return nil
}

func (s *RedisStore) LastRun(ctx context.Context, job string) (time.Time, error) {
	v, err := s.client.HGet(ctx, keyRuns, job).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, ErrNotFound
		}
		return time.Time{}, fmt.Errorf("store: last run %s: %w", job, err)
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("store: parse last run %s: %w", job, err)
	}
	return t, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
