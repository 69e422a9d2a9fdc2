package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/A-Yamak/transportation-mvp-sub000/internal/config"
	"github.com/A-Yamak/transportation-mvp-sub000/internal/infrastructure/lock"
	"github.com/A-Yamak/transportation-mvp-sub000/internal/model"
	"github.com/A-Yamak/transportation-mvp-sub000/internal/repository"
	"github.com/A-Yamak/transportation-mvp-sub000/pkg/apperr"
	"github.com/A-Yamak/transportation-mvp-sub000/pkg/idgen"
	"github.com/A-Yamak/transportation-mvp-sub000/pkg/logger"
)

// ReconciliationService builds the end-of-day reconciliation and drives
// its lifecycle.
type ReconciliationService struct {
	recons  ReconciliationStore
	trips   TripStore
	records PaymentRecordStore
	totals  TotalsCalculator
	locks   LockFactory
	loc     *time.Location
	cfg     *config.Config
	log     *logrus.Entry
}

func NewReconciliationService(db *gorm.DB, rdb *redis.Client, cfg *config.Config, collectionSvc *CollectionService) (*ReconciliationService, error) {
	loc, err := time.LoadLocation(cfg.Business.ReportingTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid reporting timezone %q: %w", cfg.Business.ReportingTimezone, err)
	}
	return &ReconciliationService{
		recons:  repository.NewReconciliationRepository(db),
		trips:   repository.NewTripRepository(db),
		records: repository.NewPaymentRecordRepository(db),
		totals:  collectionSvc,
		locks:   lock.NewReconciliationLocker(rdb),
		loc:     loc,
		cfg:     cfg,
		log:     logger.WithComponent("reconciliation_service"),
	}, nil
}

// GenerateReconciliation aggregates the driver's day and persists the
// reconciliation with status pending. businessID 0 means "not supplied";
// resolution then walks the trip and payment fallbacks. Concurrent calls
// for the same driver/date collapse onto a single row: the loser of the
// unique-key race fetches and returns the winner's record.
func (s *ReconciliationService) GenerateReconciliation(ctx context.Context, driverID int64, date string, businessID int64) (*model.Reconciliation, error) {
	from, to, err := s.dayWindow(date)
	if err != nil {
		return nil, err
	}

	release, err := s.locks.Acquire(ctx, driverID, date)
	if err != nil {
		return nil, fmt.Errorf("acquire generation lock: %w", err)
	}
	defer release()

	// re-check under the lock; a concurrent generate may have finished
	existing, err := s.recons.GetByDriverAndDate(ctx, driverID, date)
	if err != nil {
		return nil, fmt.Errorf("check existing reconciliation: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	trips, err := s.trips.ListTouchingDay(ctx, driverID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}

	dayRecords, err := s.records.ListByDriverAndRange(ctx, driverID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list payment records: %w", err)
	}

	totals, err := s.totals.CalculateDailyTotals(ctx, driverID, date)
	if err != nil {
		return nil, err
	}

	resolvedBusinessID, err := s.resolveBusinessID(ctx, businessID, trips, dayRecords)
	if err != nil {
		return nil, err
	}

	tripsCompleted := 0
	for _, trip := range trips {
		if trip.Status == model.TripStatusCompleted && trip.CompletedAt != nil &&
			!trip.CompletedAt.Before(from) && trip.CompletedAt.Before(to) {
			tripsCompleted++
		}
	}

	recon := &model.Reconciliation{
		ReconciliationNo:    idgen.GenerateReconciliationNo(),
		DriverID:            driverID,
		ReconDate:           date,
		BusinessID:          resolvedBusinessID,
		TotalExpected:       totals.TotalExpected,
		TotalCollected:      totals.TotalCollected,
		TotalCash:           totals.TotalCash,
		TotalCliq:           totals.TotalCliq,
		ShortageAmount:      totals.ShortageAmount,
		OverageAmount:       totals.OverageAmount,
		CollectionRate:      totals.CollectionRate,
		TripsCompleted:      tripsCompleted,
		DeliveriesCompleted: totals.DeliveriesCompleted,
		ShopBreakdown:       totals.ShopBreakdown,
		Status:              model.ReconStatusPending,
	}

	if err := s.recons.Create(ctx, recon); err != nil {
		if errors.Is(err, repository.ErrDuplicateReconciliation) {
			winner, fetchErr := s.recons.GetByDriverAndDate(ctx, driverID, date)
			if fetchErr != nil {
				return nil, fetchErr
			}
			if winner != nil {
				return winner, nil
			}
		}
		return nil, fmt.Errorf("persist reconciliation: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"reconciliation_no": recon.ReconciliationNo,
		"driver_id":         driverID,
		"recon_date":        date,
		"total_collected":   recon.TotalCollected.String(),
	}).Info("reconciliation generated")

	return recon, nil
}

// GetOrCreateReconciliation returns the existing reconciliation for the
// driver/date unchanged, or generates one when absent. A retried
// end-of-day submission therefore never duplicates or recomputes.
func (s *ReconciliationService) GetOrCreateReconciliation(ctx context.Context, driverID int64, date string) (*model.Reconciliation, error) {
	if _, _, err := s.dayWindow(date); err != nil {
		return nil, err
	}
	existing, err := s.recons.GetByDriverAndDate(ctx, driverID, date)
	if err != nil {
		return nil, fmt.Errorf("check existing reconciliation: %w", err)
	}
	if existing != nil {
		return existing, nil
	}
	return s.GenerateReconciliation(ctx, driverID, date, 0)
}

// resolveBusinessID walks the resolver chain in order: explicit argument,
// first trip's delivery request, first payment's stop's delivery request.
// A reconciliation can never be persisted without a business owner.
func (s *ReconciliationService) resolveBusinessID(ctx context.Context, explicit int64, trips []*model.Trip, records []*model.PaymentRecord) (int64, error) {
	resolvers := []func(context.Context) (int64, error){
		func(context.Context) (int64, error) {
			return explicit, nil
		},
		func(ctx context.Context) (int64, error) {
			if len(trips) == 0 {
				return 0, nil
			}
			request, err := s.trips.GetDeliveryRequest(ctx, trips[0].DeliveryRequestID)
			if err != nil || request == nil {
				return 0, err
			}
			return request.BusinessID, nil
		},
		func(ctx context.Context) (int64, error) {
			if len(records) == 0 {
				return 0, nil
			}
			stop, err := s.trips.GetStop(ctx, records[0].StopID)
			if err != nil || stop == nil {
				return 0, err
			}
			request, err := s.trips.GetDeliveryRequest(ctx, stop.DeliveryRequestID)
			if err != nil || request == nil {
				return 0, err
			}
			return request.BusinessID, nil
		},
	}

	for _, resolve := range resolvers {
		businessID, err := resolve(ctx)
		if err != nil {
			return 0, fmt.Errorf("resolve business id: %w", err)
		}
		if businessID != 0 {
			return businessID, nil
		}
	}
	return 0, apperr.NewReconciliationData("business id could not be resolved from trips or payments")
}

// ErpReconciliationSummary is the payload handed to the ERP on submit.
type ErpReconciliationSummary struct {
	ReconciliationNo    string              `json:"reconciliation_no"`
	DriverID            int64               `json:"driver_id"`
	ReconDate           string              `json:"recon_date"`
	BusinessID          int64               `json:"business_id"`
	TotalExpected       decimal.Decimal     `json:"total_expected"`
	TotalCollected      decimal.Decimal     `json:"total_collected"`
	TotalCash           decimal.Decimal     `json:"total_cash"`
	TotalCliq           decimal.Decimal     `json:"total_cliq"`
	ShortageAmount      decimal.Decimal     `json:"shortage_amount"`
	OverageAmount       decimal.Decimal     `json:"overage_amount"`
	CollectionRate      decimal.Decimal     `json:"collection_rate"`
	TripsCompleted      int                 `json:"trips_completed"`
	DeliveriesCompleted int                 `json:"deliveries_completed"`
	ShopBreakdown       model.ShopBreakdown `json:"shop_breakdown"`
	Status              string              `json:"status"`
	SubmittedAt         string              `json:"submitted_at"`
}

// Submit transitions pending to submitted and queues the ERP summary.
// The outbox row commits with the status change; delivery is
// asynchronous and must never block or roll back the transition.
func (s *ReconciliationService) Submit(ctx context.Context, driverID int64, reconciliationNo string) (*model.Reconciliation, error) {
	recon, err := s.getOwned(ctx, driverID, reconciliationNo)
	if err != nil {
		return nil, err
	}
	if !model.CanTransitionTo(recon.Status, model.ReconStatusSubmitted) {
		return nil, apperr.NewInvalidTransition(recon.Status, model.ReconStatusSubmitted)
	}

	summary := ErpReconciliationSummary{
		ReconciliationNo:    recon.ReconciliationNo,
		DriverID:            recon.DriverID,
		ReconDate:           recon.ReconDate,
		BusinessID:          recon.BusinessID,
		TotalExpected:       recon.TotalExpected,
		TotalCollected:      recon.TotalCollected,
		TotalCash:           recon.TotalCash,
		TotalCliq:           recon.TotalCliq,
		ShortageAmount:      recon.ShortageAmount,
		OverageAmount:       recon.OverageAmount,
		CollectionRate:      recon.CollectionRate,
		TripsCompleted:      recon.TripsCompleted,
		DeliveriesCompleted: recon.DeliveriesCompleted,
		ShopBreakdown:       recon.ShopBreakdown,
		Status:              model.ReconStatusSubmitted,
		SubmittedAt:         time.Now().In(s.loc).Format(time.RFC3339),
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("marshal ERP summary: %w", err)
	}

	outboxMsg := &model.OutboxMessage{
		MessageKey: recon.ReconciliationNo,
		Topic:      s.cfg.Kafka.Topic.ReconciliationSubmitted,
		Payload:    string(payload),
		Status:     model.OutboxStatusPending,
	}

	if err := s.recons.MarkSubmitted(ctx, recon, outboxMsg); err != nil {
		return nil, s.transitionError(ctx, err, driverID, reconciliationNo, model.ReconStatusSubmitted)
	}

	s.log.WithFields(logrus.Fields{
		"reconciliation_no": recon.ReconciliationNo,
		"driver_id":         driverID,
	}).Info("reconciliation submitted")

	return recon, nil
}

// Acknowledge transitions submitted to acknowledged.
func (s *ReconciliationService) Acknowledge(ctx context.Context, driverID int64, reconciliationNo string) (*model.Reconciliation, error) {
	recon, err := s.getOwned(ctx, driverID, reconciliationNo)
	if err != nil {
		return nil, err
	}
	if !model.CanTransitionTo(recon.Status, model.ReconStatusAcknowledged) {
		return nil, apperr.NewInvalidTransition(recon.Status, model.ReconStatusAcknowledged)
	}
	if err := s.recons.MarkAcknowledged(ctx, recon); err != nil {
		return nil, s.transitionError(ctx, err, driverID, reconciliationNo, model.ReconStatusAcknowledged)
	}
	return recon, nil
}

// Dispute transitions submitted or acknowledged to disputed. Resolution
// of a dispute happens outside this core.
func (s *ReconciliationService) Dispute(ctx context.Context, driverID int64, reconciliationNo string) (*model.Reconciliation, error) {
	recon, err := s.getOwned(ctx, driverID, reconciliationNo)
	if err != nil {
		return nil, err
	}
	if !model.CanTransitionTo(recon.Status, model.ReconStatusDisputed) {
		return nil, apperr.NewInvalidTransition(recon.Status, model.ReconStatusDisputed)
	}
	if err := s.recons.MarkDisputed(ctx, recon); err != nil {
		return nil, s.transitionError(ctx, err, driverID, reconciliationNo, model.ReconStatusDisputed)
	}
	return recon, nil
}

// GetReconciliation returns a driver's reconciliation for the views.
func (s *ReconciliationService) GetReconciliation(ctx context.Context, driverID int64, reconciliationNo string) (*model.Reconciliation, error) {
	return s.getOwned(ctx, driverID, reconciliationNo)
}

// ListReconciliations pages through a driver's history, newest day first.
func (s *ReconciliationService) ListReconciliations(ctx context.Context, driverID int64, page, pageSize int) ([]*model.Reconciliation, int64, error) {
	return s.recons.ListByDriver(ctx, driverID, page, pageSize)
}

func (s *ReconciliationService) getOwned(ctx context.Context, driverID int64, reconciliationNo string) (*model.Reconciliation, error) {
	recon, err := s.recons.GetByNo(ctx, driverID, reconciliationNo)
	if err != nil {
		if errors.Is(err, repository.ErrReconciliationNotFound) {
			return nil, apperr.NewNotFound("reconciliation")
		}
		return nil, err
	}
	return recon, nil
}

// transitionError turns a guarded-update conflict into an
// InvalidStateTransition carrying the state a concurrent writer left
// behind.
func (s *ReconciliationService) transitionError(ctx context.Context, err error, driverID int64, reconciliationNo, target string) error {
	if !errors.Is(err, repository.ErrStatusConflict) {
		return err
	}
	current := "unknown"
	if fresh, fetchErr := s.recons.GetByNo(ctx, driverID, reconciliationNo); fetchErr == nil {
		current = fresh.Status
	}
	return apperr.NewInvalidTransition(current, target)
}

func (s *ReconciliationService) dayWindow(date string) (time.Time, time.Time, error) {
	from, err := time.ParseInLocation(dateLayout, date, s.loc)
	if err != nil {
		return time.Time{}, time.Time{}, apperr.NewValidation("date", "must be YYYY-MM-DD")
	}
	return from, from.AddDate(0, 0, 1), nil
}
