package app

import (
	"context"
	"time"

	"github.com/strategiq/swot/internal/config"
	"github.com/strategiq/swot/internal/modules/history"
	pkgcron "github.com/strategiq/swot/internal/pkg/cron"
	"go.uber.org/zap"
)

const purgeHistoryInterval = 24 * time.Hour

// registerCronJobs registers all scheduled background jobs.
func registerCronJobs(sched *pkgcron.Scheduler, hist *history.Service, cfg *config.AppConfig, logger *zap.Logger) {
	retention := cfg.HistoryRetention()
	if hist == nil || retention <= 0 {
		return
	}

	sched.Register(pkgcron.Job{
		Name:        "purge_history",
		Description: "Delete analysis history older than " + humanizeDuration(retention),
		Interval:    purgeHistoryInterval,
		Fn: func(ctx context.Context) error {
			n, err := hist.Purge(ctx, time.Now().Add(-retention))
			if err != nil {
				return err
			}
			logger.Info("purged analysis history", zap.Int64("deleted", n))
			return nil
		},
	})
}
