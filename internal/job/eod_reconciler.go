package job

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/A-Yamak/transportation-mvp-sub000/internal/config"
	"github.com/A-Yamak/transportation-mvp-sub000/internal/service"
	"github.com/A-Yamak/transportation-mvp-sub000/pkg/logger"
)

// DriverLister yields the drivers that collected payments in a window.
type DriverLister interface {
	ListDriversWithRecords(ctx context.Context, from, to time.Time) ([]int64, error)
}

// EodReconciler sweeps for drivers who collected payments during the day
// but have no reconciliation yet, and generates one after the configured
// evening hour. Generation goes through GetOrCreateReconciliation, so a
// sweep racing a driver's own submission is harmless.
type EodReconciler struct {
	drivers  DriverLister
	recons   *service.ReconciliationService
	windows  *service.CollectionService
	cfg      *config.Config
	loc      *time.Location
	log      *logrus.Entry
	stopCh   chan struct{}
	interval time.Duration
}

func NewEodReconciler(drivers DriverLister, recons *service.ReconciliationService, windows *service.CollectionService, cfg *config.Config, loc *time.Location) *EodReconciler {
	return &EodReconciler{
		drivers:  drivers,
		recons:   recons,
		windows:  windows,
		cfg:      cfg,
		loc:      loc,
		log:      logger.WithComponent("eod_reconciler"),
		stopCh:   make(chan struct{}),
		interval: 10 * time.Minute,
	}
}

func (j *EodReconciler) Start(ctx context.Context) {
	if !j.cfg.Business.EodEnabled {
		j.log.Info("end-of-day reconciler disabled")
		return
	}
	j.log.Info("end-of-day reconciler started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.log.Info("end-of-day reconciler stopping on context cancel")
			return
		case <-j.stopCh:
			j.log.Info("end-of-day reconciler stopped")
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *EodReconciler) Stop() {
	close(j.stopCh)
}

func (j *EodReconciler) sweep(ctx context.Context) {
	now := time.Now().In(j.loc)
	if now.Hour() < j.cfg.Business.EodGenerateHour {
		return
	}

	date := now.Format("2006-01-02")
	from, to, err := j.windows.DayWindow(date)
	if err != nil {
		j.log.WithError(err).Error("failed to compute day window")
		return
	}

	driverIDs, err := j.drivers.ListDriversWithRecords(ctx, from, to)
	if err != nil {
		j.log.WithError(err).Error("failed to list drivers with collections")
		return
	}

	generated := 0
	for _, driverID := range driverIDs {
		if _, err := j.recons.GetOrCreateReconciliation(ctx, driverID, date); err != nil {
			j.log.WithError(err).WithFields(logrus.Fields{
				"driver_id":  driverID,
				"recon_date": date,
			}).Warn("failed to generate end-of-day reconciliation")
			continue
		}
		generated++
	}

	if generated > 0 {
		j.log.WithFields(logrus.Fields{
			"recon_date": date,
			"drivers":    len(driverIDs),
		}).Info("end-of-day sweep completed")
	}
}
