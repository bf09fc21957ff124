package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/NapatKulnarong/SkinMatch-sub001/internal/config"
	"github.com/NapatKulnarong/SkinMatch-sub001/internal/quiz"
	"github.com/NapatKulnarong/SkinMatch-sub001/internal/repository"
)

// Janitor periodically deletes abandoned quiz sessions and their durable
// cache rows, and prunes idle in-memory stores.
type Janitor struct {
	registry *quiz.Registry
	interval time.Duration
	log      *zap.Logger
	stop     chan struct{}
}

func NewJanitor(registry *quiz.Registry, log *zap.Logger) *Janitor {
	return &Janitor{
		registry: registry,
		interval: time.Hour,
		log:      log,
		stop:     make(chan struct{}),
	}
}

// Start launches the cleanup loop in its own goroutine.
func (j *Janitor) Start() {
	go func() {
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				j.runOnce()
			case <-j.stop:
				return
			}
		}
	}()
	j.log.Info("janitor started", zap.Duration("interval", j.interval))
}

// Stop halts the cleanup loop.
func (j *Janitor) Stop() {
	close(j.stop)
}

func (j *Janitor) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	retention := config.Conf.Quiz.SessionRetention
	cutoff := time.Now().Add(-retention)

	sessions, err := repository.DeleteAbandonedSessions(ctx, cutoff)
	if err != nil {
		j.log.Error("failed to delete abandoned sessions", zap.Error(err))
	}
	cacheRows, err := repository.DeleteCacheEntriesBefore(cutoff)
	if err != nil {
		j.log.Error("failed to delete stale cache entries", zap.Error(err))
	}
	stores := j.registry.PruneIdle(config.Conf.Quiz.StoreIdle)

	if sessions > 0 || cacheRows > 0 || stores > 0 {
		j.log.Info("janitor sweep complete",
			zap.Int64("sessions_deleted", sessions),
			zap.Int64("cache_rows_deleted", cacheRows),
			zap.Int("stores_pruned", stores))
	}
}
