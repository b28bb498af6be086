package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const orderKeyPrefix = "xlx:orders:"

// casTransition performs the compare-and-set inside a Redis transaction:
// it fails unless the stored status still matches the expected one when
// EXEC runs.
var casTransition = redis.NewScript(`
local record = redis.call("GET", KEYS[1])
if not record then
	return redis.error_reply("NOTFOUND")
end
local order = cjson.decode(record)
if order["status"] ~= ARGV[1] then
	return redis.error_reply("CONFLICT")
end
redis.call("SET", KEYS[1], ARGV[2])
return 1
`)

// RedisStore keeps orders in Redis, for deployments where the watcher and
// the dashboard backend run on separate hosts.
type RedisStore struct {
	rdb *redis.Client
}

func OpenRedis(url, password string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if password != "" {
		opts.Password = password
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

func (s *RedisStore) Close() error { return s.rdb.Close() }

func orderKey(id string) string { return orderKeyPrefix + id }

func (s *RedisStore) Create(ctx context.Context, order LimitOrder) error {
	record, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("encode order: %w", err)
	}
	if err := s.rdb.Set(ctx, orderKey(order.ID), record, 0).Err(); err != nil {
		return fmt.Errorf("store order: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (LimitOrder, error) {
	record, err := s.rdb.Get(ctx, orderKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return LimitOrder{}, ErrNotFound
		}
		return LimitOrder{}, fmt.Errorf("read order: %w", err)
	}
	return decodeOrder(record)
}

func (s *RedisStore) List(ctx context.Context) ([]LimitOrder, error) {
	var out []LimitOrder
	iter := s.rdb.Scan(ctx, 0, orderKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		record, err := s.rdb.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("read order: %w", err)
		}
		order, err := decodeOrder(record)
		if err != nil {
			return nil, err
		}
		out = append(out, order)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan orders: %w", err)
	}
	sortByCreated(out)
	return out, nil
}

func (s *RedisStore) ListByStatus(ctx context.Context, status Status) ([]LimitOrder, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []LimitOrder
	for _, order := range all {
		if order.Status == status {
			out = append(out, order)
		}
	}
	return out, nil
}

func (s *RedisStore) Transition(ctx context.Context, id string, from, to Status, trigger *Trigger) error {
	order, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if order.Status != from {
		return ErrConflict
	}
	order.Status = to
	if trigger != nil {
		t := *trigger
		order.Trigger = &t
	}
	record, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("encode order: %w", err)
	}
	err = casTransition.Run(ctx, s.rdb, []string{orderKey(id)}, string(from), record).Err()
	if err != nil {
		switch err.Error() {
		case "NOTFOUND":
			return ErrNotFound
		case "CONFLICT":
			return ErrConflict
		}
		return fmt.Errorf("transition order: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	deleted, err := s.rdb.Del(ctx, orderKey(id)).Result()
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if deleted == 0 {
		return ErrNotFound
	}
	return nil
}
