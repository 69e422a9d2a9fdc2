package repository

import (
	"context"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"github.com/A-Yamak/transportation-mvp-sub000/internal/model"
)

var (
	ErrReconciliationNotFound  = errors.New("reconciliation not found")
	ErrDuplicateReconciliation = errors.New("reconciliation already exists for driver and date")
	ErrStatusConflict          = errors.New("reconciliation status changed concurrently")
)

const mysqlDuplicateEntry = 1062

type ReconciliationRepository struct {
	db *gorm.DB
}

func NewReconciliationRepository(db *gorm.DB) *ReconciliationRepository {
	return &ReconciliationRepository{db: db}
}

// Create inserts a new reconciliation. The unique (driver_id, recon_date)
// key is the concurrency guard: the loser of a concurrent generate race
// gets ErrDuplicateReconciliation and falls back to fetching the winner's row.
func (r *ReconciliationRepository) Create(ctx context.Context, recon *model.Reconciliation) error {
	err := r.db.WithContext(ctx).Create(recon).Error
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return ErrDuplicateReconciliation
		}
		return err
	}
	return nil
}

func (r *ReconciliationRepository) GetByDriverAndDate(ctx context.Context, driverID int64, reconDate string) (*model.Reconciliation, error) {
	var recon model.Reconciliation
	err := r.db.WithContext(ctx).
		Where("driver_id = ? AND recon_date = ?", driverID, reconDate).
		First(&recon).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &recon, nil
}

func (r *ReconciliationRepository) GetByNo(ctx context.Context, driverID int64, reconciliationNo string) (*model.Reconciliation, error) {
	var recon model.Reconciliation
	err := r.db.WithContext(ctx).
		Where("reconciliation_no = ? AND driver_id = ?", reconciliationNo, driverID).
		First(&recon).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReconciliationNotFound
		}
		return nil, err
	}
	return &recon, nil
}

func (r *ReconciliationRepository) ListByDriver(ctx context.Context, driverID int64, page, pageSize int) ([]*model.Reconciliation, int64, error) {
	var recons []*model.Reconciliation
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Reconciliation{}).Where("driver_id = ?", driverID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("recon_date DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&recons).Error

	return recons, total, err
}

// MarkSubmitted flips pending to submitted and writes the ERP outbox row
// in the same transaction. The guarded WHERE keeps a concurrent double
// submit from producing two notifications.
func (r *ReconciliationRepository) MarkSubmitted(ctx context.Context, recon *model.Reconciliation, outboxMsg *model.OutboxMessage) error {
	submittedAt := time.Now()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Reconciliation{}).
			Where("id = ? AND status = ?", recon.ID, model.ReconStatusPending).
			Updates(map[string]interface{}{
				"status":       model.ReconStatusSubmitted,
				"submitted_at": submittedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStatusConflict
		}

		if err := tx.Create(outboxMsg).Error; err != nil {
			return err
		}

		recon.Status = model.ReconStatusSubmitted
		recon.SubmittedAt = &submittedAt
		return nil
	})
}

// MarkAcknowledged flips submitted to acknowledged.
func (r *ReconciliationRepository) MarkAcknowledged(ctx context.Context, recon *model.Reconciliation) error {
	acknowledgedAt := time.Now()
	result := r.db.WithContext(ctx).Model(&model.Reconciliation{}).
		Where("id = ? AND status = ?", recon.ID, model.ReconStatusSubmitted).
		Updates(map[string]interface{}{
			"status":          model.ReconStatusAcknowledged,
			"acknowledged_at": acknowledgedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStatusConflict
	}
	recon.Status = model.ReconStatusAcknowledged
	recon.AcknowledgedAt = &acknowledgedAt
	return nil
}

// MarkDisputed flips submitted or acknowledged to disputed.
func (r *ReconciliationRepository) MarkDisputed(ctx context.Context, recon *model.Reconciliation) error {
	result := r.db.WithContext(ctx).Model(&model.Reconciliation{}).
		Where("id = ? AND status IN ?", recon.ID, []string{model.ReconStatusSubmitted, model.ReconStatusAcknowledged}).
		Update("status", model.ReconStatusDisputed)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStatusConflict
	}
	recon.Status = model.ReconStatusDisputed
	return nil
}
