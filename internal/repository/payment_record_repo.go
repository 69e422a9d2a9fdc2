package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/A-Yamak/transportation-mvp-sub000/internal/model"
)

var (
	ErrPaymentNotFound = errors.New("payment record not found")
	ErrStopNotFound    = errors.New("delivery stop not found")
)

type PaymentRecordRepository struct {
	db *gorm.DB
}

func NewPaymentRecordRepository(db *gorm.DB) *PaymentRecordRepository {
	return &PaymentRecordRepository{db: db}
}

// GetStopForDriver loads a stop scoped to its driver. A stop belonging
// to another driver is reported as not found.
func (r *PaymentRecordRepository) GetStopForDriver(ctx context.Context, driverID, stopID int64) (*model.DeliveryStop, error) {
	var stop model.DeliveryStop
	err := r.db.WithContext(ctx).
		Where("id = ? AND driver_id = ?", stopID, driverID).
		First(&stop).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStopNotFound
		}
		return nil, err
	}
	return &stop, nil
}

func (r *PaymentRecordRepository) GetByStopID(ctx context.Context, stopID int64) (*model.PaymentRecord, error) {
	var record model.PaymentRecord
	err := r.db.WithContext(ctx).Where("stop_id = ?", stopID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *PaymentRecordRepository) GetByPaymentNo(ctx context.Context, driverID int64, paymentNo string) (*model.PaymentRecord, error) {
	var record model.PaymentRecord
	err := r.db.WithContext(ctx).
		Where("payment_no = ? AND driver_id = ?", paymentNo, driverID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &record, nil
}

// CreateWithMirror persists the record and mirrors its settlement fields
// onto the stop in one transaction, so the read-convenience cache can
// never disagree with the record.
func (r *PaymentRecordRepository) CreateWithMirror(ctx context.Context, record *model.PaymentRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return err
		}

		result := tx.Model(&model.DeliveryStop{}).
			Where("id = ?", record.StopID).
			Updates(map[string]interface{}{
				"settlement_method":    record.Method,
				"settlement_status":    record.Status,
				"settlement_reference": record.Reference,
				"amount_collected":     record.AmountCollected,
				"settled_at":           record.CollectedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStopNotFound
		}
		return nil
	})
}

// ListByDriverAndRange returns the driver's records with collected_at in
// [from, to), ordered by collection time.
func (r *PaymentRecordRepository) ListByDriverAndRange(ctx context.Context, driverID int64, from, to time.Time) ([]*model.PaymentRecord, error) {
	var records []*model.PaymentRecord
	err := r.db.WithContext(ctx).
		Where("driver_id = ? AND collected_at >= ? AND collected_at < ?", driverID, from, to).
		Order("collected_at ASC").
		Find(&records).Error
	return records, err
}

// ListDriversWithRecords returns the distinct drivers with at least one
// record collected in [from, to). Used by the end-of-day sweep.
func (r *PaymentRecordRepository) ListDriversWithRecords(ctx context.Context, from, to time.Time) ([]int64, error) {
	var driverIDs []int64
	err := r.db.WithContext(ctx).
		Model(&model.PaymentRecord{}).
		Where("collected_at >= ? AND collected_at < ?", from, to).
		Distinct().
		Pluck("driver_id", &driverIDs).Error
	return driverIDs, err
}
