// Package memstore is an in-process score store used in tests and when
// running without Redis.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/pobabytouch/leaderboard/internal/domain"
	"github.com/pobabytouch/leaderboard/internal/store"
)

// Store keeps records per partition in sort-key order.
type Store struct {
	mu         sync.RWMutex
	partitions map[string][]domain.ScoreRecord
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		partitions: make(map[string][]domain.ScoreRecord),
	}
}

// Put inserts a record, keeping the partition slice ordered by sort key.
func (s *Store) Put(ctx context.Context, rec domain.ScoreRecord) error {
	if err := ctx.Err(); err != nil {
		return store.ErrUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recs := s.partitions[rec.Partition]
	i := sort.Search(len(recs), func(i int) bool {
		return recs[i].SortKey >= rec.SortKey
	})
	if i < len(recs) && recs[i].SortKey == rec.SortKey {
		return store.ErrDuplicateKey
	}

	recs = append(recs, domain.ScoreRecord{})
	copy(recs[i+1:], recs[i:])
	recs[i] = rec
	s.partitions[rec.Partition] = recs
	return nil
}

// Scan returns up to limit records in storage order.
func (s *Store) Scan(ctx context.Context, partition string, limit int) ([]domain.ScoreRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.ErrUnavailable
	}
	if limit <= 0 {
		return []domain.ScoreRecord{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.partitions[partition]
	if limit > len(recs) {
		limit = len(recs)
	}
	out := make([]domain.ScoreRecord, limit)
	copy(out, recs[:limit])
	return out, nil
}

// Delete removes one record by sort key.
func (s *Store) Delete(ctx context.Context, partition, sortKey string) error {
	if err := ctx.Err(); err != nil {
		return store.ErrUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recs := s.partitions[partition]
	i := sort.Search(len(recs), func(i int) bool {
		return recs[i].SortKey >= sortKey
	})
	if i >= len(recs) || recs[i].SortKey != sortKey {
		return store.ErrNotFound
	}

	s.partitions[partition] = append(recs[:i], recs[i+1:]...)
	if len(s.partitions[partition]) == 0 {
		delete(s.partitions, partition)
	}
	return nil
}

// Count returns the number of records in a partition.
func (s *Store) Count(ctx context.Context, partition string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, store.ErrUnavailable
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.partitions[partition])), nil
}
