package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis implements Store against a Redis server. Record TTLs map onto
// native key expiry, topics onto Redis pub/sub channels.
type Redis struct {
	client *redis.Client
}

// NewRedis creates a store backed by the Redis server at addr.
func NewRedis(addr, password string, db int) *Redis {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Redis{client: rdb}
}

// Ping verifies the server is reachable.
func (s *Redis) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Redis) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (s *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return data, nil
}

func (s *Redis) Delete(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", key, err)
	}
	return n > 0, nil
}

// Scan fetches every key under the prefix, then reads each one
// individually. A key may expire between the key listing and the read;
// those are silently skipped, matching the liveness contract.
func (s *Redis) Scan(ctx context.Context, prefix string) ([][]byte, error) {
	keys, err := s.client.Keys(ctx, prefix+"*").Result()
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", prefix, err)
	}
	values := make([][]byte, 0, len(keys))
	for _, key := range keys {
		data, err := s.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", key, err)
		}
		values = append(values, data)
	}
	return values, nil
}

func (s *Redis) Publish(ctx context.Context, topic string, payload []byte) error {
	return s.client.Publish(ctx, topic, payload).Err()
}

func (s *Redis) Subscribe(ctx context.Context, topics ...string) (Subscription, error) {
	ps := s.client.Subscribe(ctx, topics...)
	// Wait for the subscription to be established so the caller never
	// misses messages published after Subscribe returns.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %v: %w", topics, err)
	}
	sub := &redisSubscription{ps: ps, ch: make(chan Message, 64)}
	go sub.pump()
	return sub, nil
}

type redisSubscription struct {
	ps *redis.PubSub
	ch chan Message
}

func (s *redisSubscription) pump() {
	defer close(s.ch)
	for msg := range s.ps.Channel() {
		s.ch <- Message{Topic: msg.Channel, Payload: []byte(msg.Payload)}
	}
}

func (s *redisSubscription) C() <-chan Message { return s.ch }

func (s *redisSubscription) Close() error { return s.ps.Close() }

func (s *Redis) SetAdd(ctx context.Context, key, member string) (bool, error) {
	n, err := s.client.SAdd(ctx, key, member).Result()
	if err != nil {
		return false, fmt.Errorf("sadd %s: %w", key, err)
	}
	return n > 0, nil
}

func (s *Redis) SetRemove(ctx context.Context, key, member string) (bool, error) {
	n, err := s.client.SRem(ctx, key, member).Result()
	if err != nil {
		return false, fmt.Errorf("srem %s: %w", key, err)
	}
	return n > 0, nil
}

func (s *Redis) SetHas(ctx context.Context, key, member string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, key, member).Result()
	if err != nil {
		return false, fmt.Errorf("sismember %s: %w", key, err)
	}
	return ok, nil
}

func (s *Redis) SetMembers(ctx context.Context, key string) ([]string, error) {
	members, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("smembers %s: %w", key, err)
	}
	return members, nil
}

func (s *Redis) ListPush(ctx context.Context, key string, value []byte) error {
	return s.client.RPush(ctx, key, value).Err()
}

func (s *Redis) ListRange(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	entries, err := s.client.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", key, err)
	}
	values := make([][]byte, len(entries))
	for i, e := range entries {
		values[i] = []byte(e)
	}
	return values, nil
}

func (s *Redis) Incr(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", key, err)
	}
	return n, nil
}

func (s *Redis) Counter(ctx context.Context, key string) (int64, error) {
	raw, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("counter %s: %w", key, err)
	}
	return strconv.ParseInt(raw, 10, 64)
}

func (s *Redis) Close() error { return s.client.Close() }
