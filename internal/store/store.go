// Package store defines the partitioned, key-ordered score store the
// engine reads and writes through. Partitions are game modes; within a
// partition records are kept in sort-key order (newest first), which is a
// storage order, not a ranking order.
package store

import (
	"context"
	"errors"

	"github.com/pobabytouch/leaderboard/internal/domain"
)

// Store failures
var (
	ErrUnavailable  = errors.New("score store unavailable")
	ErrDuplicateKey = errors.New("record with this partition and sort key already exists")
	ErrNotFound     = errors.New("record not found")
)

// Store is a durable, partition-scoped collection of score records.
// Writes are append-only per record; there is no update operation.
// Implementations must be safe for concurrent use.
type Store interface {
	// Put inserts a new record. It returns ErrDuplicateKey if the
	// (partition, sort key) pair already exists and ErrUnavailable if the
	// backing medium cannot be reached.
	Put(ctx context.Context, rec domain.ScoreRecord) error

	// Scan returns up to limit records from a partition in storage order
	// (sort-key ascending, which is newest first). A limit <= 0 returns
	// an empty slice.
	Scan(ctx context.Context, partition string, limit int) ([]domain.ScoreRecord, error)

	// Delete removes one record. It returns ErrNotFound if no record has
	// the given sort key.
	Delete(ctx context.Context, partition, sortKey string) error

	// Count returns the number of records in a partition.
	Count(ctx context.Context, partition string) (int64, error)
}
