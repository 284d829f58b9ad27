package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// dbThrottleStore keeps one row per key and updates it under a row lock
// (postgres) or the single writer connection (sqlite).
type dbThrottleStore struct {
	db *gorm.DB
}

func NewDBThrottleStore(db *gorm.DB) ThrottleStore { return &dbThrottleStore{db: db} }

func (s *dbThrottleStore) Hit(ctx context.Context, key string, now time.Time, rate Rate) (Decision, error) {
	var d Decision
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := ThrottleBucket{BucketKey: key, History: datatypes.JSON("[]")}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}
		q := tx
		if tx.Dialector.Name() == "postgres" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var b ThrottleBucket
		if err := q.Where("bucket_key = ?", key).First(&b).Error; err != nil {
			return err
		}

		var history []int64
		if err := json.Unmarshal(b.History, &history); err != nil {
			return fmt.Errorf("throttle bucket %s: %w", key, err)
		}
		kept, dec := slide(history, now, rate)
		d = dec
		if !dec.Allowed {
			return nil
		}
		raw, err := json.Marshal(kept)
		if err != nil {
			return err
		}
		return tx.Model(&b).Update("history", datatypes.JSON(raw)).Error
	})
	return d, err
}

// slidingWindowScript prunes, counts and records in one step so concurrent
// callers on the same key cannot both pass the check.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count < limit then
  redis.call('ZADD', key, now, ARGV[4])
  redis.call('PEXPIRE', key, window)
  return {1, 0}
end
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
return {0, tonumber(oldest[2]) + window - now}
`)

// redisThrottleStore keeps a sorted set of request times per key.
type redisThrottleStore struct {
	rdb redis.Scripter
}

func NewRedisThrottleStore(rdb redis.Scripter) ThrottleStore {
	return &redisThrottleStore{rdb: rdb}
}

func (s *redisThrottleStore) Hit(ctx context.Context, key string, now time.Time, rate Rate) (Decision, error) {
	res, err := slidingWindowScript.Run(ctx, s.rdb, []string{key},
		now.UnixMilli(), rate.Window.Milliseconds(), rate.Limit, uuid.NewString()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("throttle %s: %w", key, err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("throttle %s: unexpected reply %v", key, res)
	}
	if res[0] == 1 {
		return Decision{Allowed: true}, nil
	}
	return Decision{RetryAfter: time.Duration(res[1]) * time.Millisecond}, nil
}

// newThrottleStore builds the backend named by cfg.ThrottleBackend.
func newThrottleStore(ctx context.Context, cfg Config, db *gorm.DB) (ThrottleStore, error) {
	switch cfg.ThrottleBackend {
	case "memory":
		return NewMemoryThrottleStore(), nil
	case "", "db":
		return NewDBThrottleStore(db), nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return NewRedisThrottleStore(rdb), nil
	default:
		return nil, fmt.Errorf("unsupported throttle backend: %s", cfg.ThrottleBackend)
	}
}
