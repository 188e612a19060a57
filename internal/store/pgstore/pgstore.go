// Package pgstore backs the score store with PostgreSQL. It is the
// durable mirror behind the Redis hot path; the mirror worker keeps the
// two in step.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pobabytouch/leaderboard/internal/config"
	"github.com/pobabytouch/leaderboard/internal/domain"
	"github.com/pobabytouch/leaderboard/internal/store"
)

// Store provides PostgreSQL-based score storage.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New connects to PostgreSQL and verifies the connection.
func New(cfg *config.PostgresConfig, logger *slog.Logger) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Store{pool: pool, logger: logger}, nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// RunMigrations creates the score table if it does not exist.
func (s *Store) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS score_records (
			partition VARCHAR(64) NOT NULL,
			sort_key VARCHAR(64) NOT NULL,
			initials CHAR(3) NOT NULL,
			score BIGINT NOT NULL,
			achieved_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (partition, sort_key)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_score_records_score ON score_records(partition, score DESC)`,
	}

	for _, migration := range migrations {
		if _, err := s.pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	s.logger.Info("database migrations completed")
	return nil
}

// Put inserts a record, failing with store.ErrDuplicateKey if the
// (partition, sort key) pair already exists.
func (s *Store) Put(ctx context.Context, rec domain.ScoreRecord) error {
	query := `
		INSERT INTO score_records (partition, sort_key, initials, score, achieved_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.pool.Exec(ctx, query,
		rec.Partition,
		rec.SortKey,
		rec.Initials,
		rec.Score,
		rec.AchievedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return store.ErrDuplicateKey
		}
		return unavailable("putting record", err)
	}
	return nil
}

// Scan returns up to limit records from a partition in sort-key order.
func (s *Store) Scan(ctx context.Context, partition string, limit int) ([]domain.ScoreRecord, error) {
	if limit <= 0 {
		return []domain.ScoreRecord{}, nil
	}

	query := `
		SELECT partition, sort_key, initials, score, achieved_at
		FROM score_records
		WHERE partition = $1
		ORDER BY sort_key ASC
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, partition, limit)
	if err != nil {
		return nil, unavailable("scanning partition", err)
	}
	defer rows.Close()

	recs := make([]domain.ScoreRecord, 0, limit)
	for rows.Next() {
		var rec domain.ScoreRecord
		err := rows.Scan(
			&rec.Partition,
			&rec.SortKey,
			&rec.Initials,
			&rec.Score,
			&rec.AchievedAt,
		)
		if err != nil {
			return nil, unavailable("scanning record", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("reading scan results", err)
	}
	return recs, nil
}

// Delete removes one record by sort key.
func (s *Store) Delete(ctx context.Context, partition, sortKey string) error {
	query := `DELETE FROM score_records WHERE partition = $1 AND sort_key = $2`
	result, err := s.pool.Exec(ctx, query, partition, sortKey)
	if err != nil {
		return unavailable("deleting record", err)
	}
	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Count returns the number of records in a partition.
func (s *Store) Count(ctx context.Context, partition string) (int64, error) {
	query := `SELECT COUNT(*) FROM score_records WHERE partition = $1`
	var count int64
	if err := s.pool.QueryRow(ctx, query, partition).Scan(&count); err != nil {
		return 0, unavailable("counting partition", err)
	}
	return count, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(store.ErrUnavailable, err))
}
