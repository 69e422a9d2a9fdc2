package service

import (
	"context"
	"time"

	"github.com/A-Yamak/transportation-mvp-sub000/internal/model"
)

// Store interfaces consumed by the services. The gorm repositories in
// internal/repository are the production implementations; tests swap in
// fakes.

type PaymentRecordStore interface {
	GetStopForDriver(ctx context.Context, driverID, stopID int64) (*model.DeliveryStop, error)
	GetByStopID(ctx context.Context, stopID int64) (*model.PaymentRecord, error)
	GetByPaymentNo(ctx context.Context, driverID int64, paymentNo string) (*model.PaymentRecord, error)
	CreateWithMirror(ctx context.Context, record *model.PaymentRecord) error
	ListByDriverAndRange(ctx context.Context, driverID int64, from, to time.Time) ([]*model.PaymentRecord, error)
}

type TripStore interface {
	ListTouchingDay(ctx context.Context, driverID int64, from, to time.Time) ([]*model.Trip, error)
	GetDeliveryRequest(ctx context.Context, requestID int64) (*model.DeliveryRequest, error)
	GetStop(ctx context.Context, stopID int64) (*model.DeliveryStop, error)
}

type ReconciliationStore interface {
	Create(ctx context.Context, recon *model.Reconciliation) error
	GetByDriverAndDate(ctx context.Context, driverID int64, reconDate string) (*model.Reconciliation, error)
	GetByNo(ctx context.Context, driverID int64, reconciliationNo string) (*model.Reconciliation, error)
	ListByDriver(ctx context.Context, driverID int64, page, pageSize int) ([]*model.Reconciliation, int64, error)
	MarkSubmitted(ctx context.Context, recon *model.Reconciliation, outboxMsg *model.OutboxMessage) error
	MarkAcknowledged(ctx context.Context, recon *model.Reconciliation) error
	MarkDisputed(ctx context.Context, recon *model.Reconciliation) error
}

// LockFactory hands out per driver/date generation locks.
type LockFactory interface {
	Acquire(ctx context.Context, driverID int64, reconDate string) (func(), error)
}

// TotalsCalculator is the aggregator entry point the reconciliation
// builder consumes.
type TotalsCalculator interface {
	CalculateDailyTotals(ctx context.Context, driverID int64, date string) (*DailyTotals, error)
}
