package core

// scheduler.go runs background maintenance for import history.
//
// Each cycle deletes import_runs older than the retention window. Runs are
// deleted in batches so a large backlog does not hold long locks. Failures
// are logged and retried on the next tick.

import (
	"context"
	"log/slog"
	"time"
)

// RetentionConfig holds configuration for the retention scheduler.
// Zero values select defaults.
type RetentionConfig struct {
	RetentionDays int           // Days to keep import runs (default: 180)
	BatchSize     int           // Runs deleted per statement (default: 1000)
	CheckInterval time.Duration // How often to run (default: 24h)
}

func (c RetentionConfig) withDefaults() RetentionConfig {
	if c.RetentionDays <= 0 {
		c.RetentionDays = 180
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 1000
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = 24 * time.Hour
	}
	return c
}

// StartRetentionScheduler purges old import runs immediately and then
// every CheckInterval until ctx is cancelled.
func (s *Service) StartRetentionScheduler(ctx context.Context, cfg RetentionConfig) {
	cfg = cfg.withDefaults()
	slog.Info("retention scheduler started",
		"retention_days", cfg.RetentionDays,
		"batch_size", cfg.BatchSize,
		"interval", cfg.CheckInterval.String(),
	)

	s.runRetentionJob(ctx, cfg)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("retention scheduler stopped")
			return
		case <-ticker.C:
			s.runRetentionJob(ctx, cfg)
		}
	}
}

func (s *Service) runRetentionJob(ctx context.Context, cfg RetentionConfig) {
	start := time.Now()
	purged, err := s.PurgeImportRuns(ctx, s.now().AddDate(0, 0, -cfg.RetentionDays), cfg.BatchSize)
	if err != nil {
		slog.Error("import run purge failed", "error", err, "purged", purged)
		return
	}
	slog.Info("import run purge completed",
		"purged", purged,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

const purgeRunsSQL = `DELETE FROM import_runs WHERE id IN (
	SELECT id FROM import_runs WHERE started_at < $1 ORDER BY started_at LIMIT $2
)`

// PurgeImportRuns deletes runs started before cutoff and returns how many
// were removed. Imported rows keep their import_run_id.
func (s *Service) PurgeImportRuns(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 1000
	}

	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		tag, err := s.pool.Exec(ctx, purgeRunsSQL, cutoff, batchSize)
		if err != nil {
			return total, err
		}
		n := tag.RowsAffected()
		total += n
		if n < int64(batchSize) {
			return total, nil
		}
	}
}
