package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/A-Yamak/transportation-mvp-sub000/internal/model"
)

// TripRepository is the read side of the trip collaborator. The core
// never mutates trip lifecycle state.
type TripRepository struct {
	db *gorm.DB
}

func NewTripRepository(db *gorm.DB) *TripRepository {
	return &TripRepository{db: db}
}

// ListTouchingDay returns the driver's trips whose start or completion
// falls in [from, to).
func (r *TripRepository) ListTouchingDay(ctx context.Context, driverID int64, from, to time.Time) ([]*model.Trip, error) {
	var trips []*model.Trip
	err := r.db.WithContext(ctx).
		Where("driver_id = ?", driverID).
		Where("(started_at >= ? AND started_at < ?) OR (completed_at >= ? AND completed_at < ?)", from, to, from, to).
		Order("started_at ASC").
		Find(&trips).Error
	return trips, err
}

// GetDeliveryRequest loads the delivery request a trip or stop points at.
func (r *TripRepository) GetDeliveryRequest(ctx context.Context, requestID int64) (*model.DeliveryRequest, error) {
	var request model.DeliveryRequest
	err := r.db.WithContext(ctx).Where("id = ?", requestID).First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &request, nil
}

// GetStop loads a stop without driver scoping, for business resolution.
func (r *TripRepository) GetStop(ctx context.Context, stopID int64) (*model.DeliveryStop, error) {
	var stop model.DeliveryStop
	err := r.db.WithContext(ctx).Where("id = ?", stopID).First(&stop).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &stop, nil
}
