// Package engine implements the leaderboard semantics: saving scores,
// top-N retrieval, the high-score check, and rank computation, all
// scoped per game-mode partition. The engine is stateless; everything
// lives in the score store.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/pobabytouch/leaderboard/internal/config"
	"github.com/pobabytouch/leaderboard/internal/domain"
	"github.com/pobabytouch/leaderboard/internal/store"
)

// RankUnavailable is returned by RankForScore when the store cannot be
// reached; it is deliberately distinguishable from any real rank.
const RankUnavailable = -1

// Engine provides the leaderboard operations.
type Engine struct {
	store  store.Store
	config *config.LeaderboardConfig
	logger *slog.Logger
}

// New creates a leaderboard engine backed by the given store.
func New(st store.Store, cfg *config.LeaderboardConfig, logger *slog.Logger) *Engine {
	return &Engine{
		store:  st,
		config: cfg,
		logger: logger,
	}
}

// SaveScore validates a submission and persists it as a new score record.
// Initials are uppercased before storage. The returned error is a
// validation error for malformed input and a wrapped store error when
// persistence fails; either way no partial state is left behind.
func (e *Engine) SaveScore(ctx context.Context, submission domain.ScoreSubmission) error {
	sub := submission.Normalized()
	if err := domain.ValidateSubmission(sub); err != nil {
		e.logger.Warn("rejected score submission",
			"initials", submission.PlayerInitials,
			"score", submission.Score,
			"error", err,
		)
		return err
	}

	rec := domain.NewScoreRecord(sub.GameMode, sub.PlayerInitials, sub.Score)
	err := e.store.Put(ctx, rec)
	if errors.Is(err, store.ErrDuplicateKey) {
		// Two saves on the same nanosecond can collide only if the uuid
		// suffix also collides; a single fresh key settles it.
		e.logger.Warn("sort key collision, regenerating", "partition", rec.Partition)
		rec = domain.NewScoreRecord(sub.GameMode, sub.PlayerInitials, sub.Score)
		err = e.store.Put(ctx, rec)
	}
	if err != nil {
		return fmt.Errorf("saving score: %w", err)
	}

	e.logger.Info("score saved",
		"initials", rec.Initials,
		"score", rec.Score,
		"game_mode", rec.Partition,
	)
	return nil
}

// TopScores returns at most count entries for a game mode, highest score
// first, ranks starting at 1. Records with equal scores keep the store's
// scan order. A count <= 0 yields an empty result, as does a store
// failure: an unreachable leaderboard degrades to an empty one rather
// than failing the caller.
func (e *Engine) TopScores(ctx context.Context, count int, gameMode string) []domain.LeaderboardEntry {
	if count <= 0 {
		return []domain.LeaderboardEntry{}
	}
	if count > e.config.MaxCount {
		count = e.config.MaxCount
	}

	recs, err := e.topRecords(ctx, count, gameMode)
	if err != nil {
		e.logger.Error("failed to retrieve top scores, returning empty leaderboard",
			"game_mode", gameMode,
			"error", err,
		)
		return []domain.LeaderboardEntry{}
	}

	entries := make([]domain.LeaderboardEntry, len(recs))
	for i, rec := range recs {
		entries[i] = domain.LeaderboardEntry{
			Rank:       i + 1,
			Initials:   rec.Initials,
			Score:      rec.Score,
			AchievedAt: rec.AchievedAt,
			GameMode:   rec.Partition,
		}
	}
	return entries
}

// IsHighScore reports whether a score would enter the fixed-depth
// leaderboard for a game mode. While fewer records exist than the depth,
// any score qualifies; once the board is full a score must strictly beat
// the last slot, so a tie with it does not qualify. A store failure
// reports false.
func (e *Engine) IsHighScore(ctx context.Context, score int64, gameMode string) bool {
	depth := e.config.HighScoreDepth
	recs, err := e.topRecords(ctx, depth, gameMode)
	if err != nil {
		e.logger.Error("failed to check high score",
			"game_mode", gameMode,
			"error", err,
		)
		return false
	}

	if len(recs) < depth {
		return true
	}
	return score > recs[depth-1].Score
}

// RankForScore returns the 1-based rank the score would occupy among the
// stored records of a game mode: the number of strictly greater scores
// plus one, so ties resolve in the new score's favor. The sample is at
// least RankDepth records deep. On store failure it returns
// RankUnavailable rather than a misleading rank.
func (e *Engine) RankForScore(ctx context.Context, score int64, gameMode string) int {
	recs, err := e.topRecords(ctx, e.config.RankDepth, gameMode)
	if err != nil {
		e.logger.Error("failed to compute rank",
			"game_mode", gameMode,
			"error", err,
		)
		return RankUnavailable
	}

	rank := 1
	for _, rec := range recs {
		if rec.Score > score {
			rank++
		}
	}
	return rank
}

// DefaultCount returns the top-N size used when a caller does not ask
// for one.
func (e *Engine) DefaultCount() int {
	return e.config.DefaultCount
}

// Count returns the number of records stored for a game mode.
func (e *Engine) Count(ctx context.Context, gameMode string) (int64, error) {
	count, err := e.store.Count(ctx, gameMode)
	if err != nil {
		return 0, fmt.Errorf("counting scores: %w", err)
	}
	return count, nil
}

// DeleteScore removes one record. Deleting an already-deleted record is
// not an error.
func (e *Engine) DeleteScore(ctx context.Context, gameMode, sortKey string) error {
	err := e.store.Delete(ctx, gameMode, sortKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("deleting score: %w", err)
	}
	e.logger.Info("score deleted", "game_mode", gameMode, "sort_key", sortKey)
	return nil
}

// Status probes the store and returns a diagnostics value, built fresh
// per call.
func (e *Engine) Status(ctx context.Context) domain.ServiceStatus {
	count, err := e.store.Count(ctx, domain.DefaultGameMode)
	if err != nil {
		return domain.ServiceStatus{
			Status:  "error",
			Message: err.Error(),
		}
	}
	return domain.ServiceStatus{
		Status:     "connected",
		Message:    "high score service is working",
		ScoreCount: count,
	}
}

// CheckConnectivity reports whether the score store is reachable.
func (e *Engine) CheckConnectivity(ctx context.Context) bool {
	_, err := e.store.Count(ctx, domain.DefaultGameMode)
	return err == nil
}

// topRecords scans a game mode's partition with an over-fetch to cover
// storage order differing from score order, then stable-sorts by score
// descending and truncates to n. The stable sort is what makes ties keep
// scan order.
func (e *Engine) topRecords(ctx context.Context, n int, gameMode string) ([]domain.ScoreRecord, error) {
	fetch := n * e.config.FetchMultiplier
	if fetch < n {
		fetch = n
	}

	recs, err := e.store.Scan(ctx, gameMode, fetch)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Score > recs[j].Score
	})
	if len(recs) > n {
		recs = recs[:n]
	}
	return recs, nil
}
