package task

import (
	"context"
	"log/slog"
	"time"

	"github.com/icodeforyou/malar-go/config"
	"github.com/icodeforyou/malar-go/database"
)

type MaintenanceStore interface {
	Backup(ctx context.Context) (database.BackupManifest, error)
	PurgeBackups(ctx context.Context, retentionDays int) error
	PurgeLog(ctx context.Context, maxLogEntries int) error
	PurgePriceIntervals(ctx context.Context, retentionDays int) error
	PurgeOutages(ctx context.Context, retentionDays int) error
}

func NewMaintenanceTask(logger *slog.Logger, db MaintenanceStore, cnfg *config.AppConfig) func() {
	return func() {
		logger.Debug("running maintenance task...")

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()

		if m, err := db.Backup(ctx); err != nil {
			logger.Error("database backup error", slog.Any("error", err))
		} else if m.OutageRuns == 0 {
			logger.Warn("backup holds no outage runs")
		}

		if err := db.PurgeBackups(ctx, cnfg.Database.GetBackupRetentionDays()); err != nil {
			logger.Error("backup maintenance error", slog.Any("error", err))
		}

		if err := db.PurgeLog(ctx, cnfg.Logging.GetDbMaxEntries()); err != nil {
			logger.Error("log maintenance error", slog.Any("error", err))
		}

		if err := db.PurgePriceIntervals(ctx, cnfg.Database.GetDataRetentionDays()); err != nil {
			logger.Error("price_interval maintenance error", slog.Any("error", err))
		}

		if err := db.PurgeOutages(ctx, cnfg.Database.GetDataRetentionDays()); err != nil {
			logger.Error("outage maintenance error", slog.Any("error", err))
		}

		logger.Info("maintenance task done")
	}
}
