// Package redisstore backs the score store with Redis. Each partition is
// a sorted set of sort keys (all at score zero, so ZRANGEBYLEX yields
// storage order) plus a hash holding the record payloads.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/pobabytouch/leaderboard/internal/config"
	"github.com/pobabytouch/leaderboard/internal/domain"
	"github.com/pobabytouch/leaderboard/internal/store"
)

// Store provides Redis-based score storage.
type Store struct {
	client *redis.Client
	logger *slog.Logger
}

// New connects to Redis and verifies the connection.
func New(cfg *config.RedisConfig, logger *slog.Logger) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &Store{client: client, logger: logger}, nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// indexKey returns the key of the sorted set holding a partition's sort keys.
func (s *Store) indexKey(partition string) string {
	return fmt.Sprintf("scores:%s:index", partition)
}

// dataKey returns the key of the hash holding a partition's record payloads.
func (s *Store) dataKey(partition string) string {
	return fmt.Sprintf("scores:%s:data", partition)
}

// Put inserts a record, failing with store.ErrDuplicateKey if the sort key
// is already present in the partition.
func (s *Store) Put(ctx context.Context, rec domain.ScoreRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}

	added, err := s.client.ZAddNX(ctx, s.indexKey(rec.Partition), redis.Z{
		Score:  0,
		Member: rec.SortKey,
	}).Result()
	if err != nil {
		return unavailable("putting record", err)
	}
	if added == 0 {
		return store.ErrDuplicateKey
	}

	if err := s.client.HSet(ctx, s.dataKey(rec.Partition), rec.SortKey, payload).Err(); err != nil {
		// Roll the index entry back so a half-written record is not
		// visible to scans.
		s.client.ZRem(context.WithoutCancel(ctx), s.indexKey(rec.Partition), rec.SortKey)
		return unavailable("putting record payload", err)
	}
	return nil
}

// Scan returns up to limit records from a partition in sort-key order.
func (s *Store) Scan(ctx context.Context, partition string, limit int) ([]domain.ScoreRecord, error) {
	if limit <= 0 {
		return []domain.ScoreRecord{}, nil
	}

	sortKeys, err := s.client.ZRangeByLex(ctx, s.indexKey(partition), &redis.ZRangeBy{
		Min:   "-",
		Max:   "+",
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, unavailable("scanning partition", err)
	}
	if len(sortKeys) == 0 {
		return []domain.ScoreRecord{}, nil
	}

	payloads, err := s.client.HMGet(ctx, s.dataKey(partition), sortKeys...).Result()
	if err != nil {
		return nil, unavailable("fetching record payloads", err)
	}

	recs := make([]domain.ScoreRecord, 0, len(payloads))
	for i, payload := range payloads {
		raw, ok := payload.(string)
		if !ok {
			s.logger.Warn("index entry without payload, skipping",
				"partition", partition,
				"sort_key", sortKeys[i],
			)
			continue
		}
		var rec domain.ScoreRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			s.logger.Warn("corrupt record payload, skipping",
				"partition", partition,
				"sort_key", sortKeys[i],
				"error", err,
			)
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Delete removes one record by sort key.
func (s *Store) Delete(ctx context.Context, partition, sortKey string) error {
	removed, err := s.client.ZRem(ctx, s.indexKey(partition), sortKey).Result()
	if err != nil {
		return unavailable("deleting record", err)
	}
	if err := s.client.HDel(ctx, s.dataKey(partition), sortKey).Err(); err != nil {
		return unavailable("deleting record payload", err)
	}
	if removed == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Count returns the number of records in a partition.
func (s *Store) Count(ctx context.Context, partition string) (int64, error) {
	count, err := s.client.ZCard(ctx, s.indexKey(partition)).Result()
	if err != nil {
		return 0, unavailable("counting partition", err)
	}
	return count, nil
}

// unavailable wraps a transport failure so callers can match it with
// errors.Is(err, store.ErrUnavailable) without losing the cause.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(store.ErrUnavailable, err))
}
