package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/pobabytouch/leaderboard/internal/config"
	"github.com/pobabytouch/leaderboard/internal/store"
)

// MirrorWorker periodically copies score records from the hot store
// (Redis) to the durable store (Postgres), and restores the hot store
// from the durable one at startup. Records are immutable, so mirroring
// is a matter of inserting whatever the other side is missing.
type MirrorWorker struct {
	hot     store.Store
	durable store.Store
	config  *config.MirrorConfig
	logger  *slog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// NewMirrorWorker creates a new mirror worker
func NewMirrorWorker(hot, durable store.Store, cfg *config.MirrorConfig, logger *slog.Logger) *MirrorWorker {
	return &MirrorWorker{
		hot:     hot,
		durable: durable,
		config:  cfg,
		logger:  logger,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start begins the background mirror process
func (w *MirrorWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("mirror worker started", "interval", w.config.Interval)

	go w.run(ctx)
	return nil
}

// Stop stops the background mirror process
func (w *MirrorWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("mirror worker stopped")
	return nil
}

// run is the main worker loop
func (w *MirrorWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.mirrorAll(ctx)
		}
	}
}

// mirrorAll copies every configured game mode from the hot store to the
// durable store
func (w *MirrorWorker) mirrorAll(ctx context.Context) {
	w.logger.Info("starting mirror cycle")
	startTime := time.Now()

	mirrored := 0
	errorCount := 0
	for _, mode := range w.config.GameModes {
		if err := w.MirrorPartition(ctx, mode); err != nil {
			w.logger.Error("failed to mirror partition",
				"game_mode", mode,
				"error", err,
			)
			errorCount++
		} else {
			mirrored++
		}
	}

	w.logger.Info("mirror cycle completed",
		"duration", time.Since(startTime),
		"mirrored", mirrored,
		"errors", errorCount,
	)
}

// MirrorPartition copies one game mode's records from the hot store to
// the durable store. Already-mirrored records surface as duplicate-key
// failures and are skipped.
func (w *MirrorWorker) MirrorPartition(ctx context.Context, gameMode string) error {
	return w.copyPartition(ctx, w.hot, w.durable, gameMode)
}

// RestorePartition copies one game mode's records from the durable store
// back into the hot store. Used at startup after a Redis flush.
func (w *MirrorWorker) RestorePartition(ctx context.Context, gameMode string) error {
	return w.copyPartition(ctx, w.durable, w.hot, gameMode)
}

// RestoreAll restores every configured game mode from the durable store
func (w *MirrorWorker) RestoreAll(ctx context.Context) error {
	w.logger.Info("restoring partitions from durable store")

	var firstErr error
	for _, mode := range w.config.GameModes {
		if err := w.RestorePartition(ctx, mode); err != nil {
			w.logger.Error("failed to restore partition",
				"game_mode", mode,
				"error", err,
			)
			if firstErr == nil {
				firstErr = err
			}
			// Continue with other partitions
		}
	}

	w.logger.Info("completed restoring partitions", "count", len(w.config.GameModes))
	return firstErr
}

// copyPartition inserts src's records into dst, skipping records dst
// already holds. BatchSize bounds the scan; partitions are expected to
// stay within a few thousand records.
func (w *MirrorWorker) copyPartition(ctx context.Context, src, dst store.Store, gameMode string) error {
	recs, err := src.Scan(ctx, gameMode, w.config.BatchSize)
	if err != nil {
		return err
	}

	if len(recs) == 0 {
		w.logger.Debug("no records to copy", "game_mode", gameMode)
		return nil
	}

	copied := 0
	for _, rec := range recs {
		err := dst.Put(ctx, rec)
		if errors.Is(err, store.ErrDuplicateKey) {
			continue
		}
		if err != nil {
			return err
		}
		copied++
	}

	w.logger.Debug("copied partition records",
		"game_mode", gameMode,
		"scanned", len(recs),
		"copied", copied,
	)
	return nil
}

// IsRunning returns whether the worker is currently running
func (w *MirrorWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// RunOnce runs a single mirror cycle (useful for manual triggers)
func (w *MirrorWorker) RunOnce(ctx context.Context) {
	w.mirrorAll(ctx)
}
