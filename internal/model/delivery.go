package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trip and stop lifecycle states are owned by the trip subsystem; the
// collection core only reads them.
const (
	TripStatusAssigned   = "assigned"
	TripStatusInProgress = "in_progress"
	TripStatusCompleted  = "completed"
	TripStatusCancelled  = "cancelled"
)

// DeliveryRequest carries the business a trip is executed for. Only the
// business reference matters here.
type DeliveryRequest struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	BusinessID int64     `gorm:"index;not null" json:"business_id"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (DeliveryRequest) TableName() string {
	return "delivery_request"
}

// Trip is one driver outing executing a delivery request.
type Trip struct {
	ID                int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	DriverID          int64      `gorm:"index;not null" json:"driver_id"`
	DeliveryRequestID int64      `gorm:"index;not null" json:"delivery_request_id"`
	Status            string     `gorm:"type:varchar(20);index;not null" json:"status"`
	StartedAt         *time.Time `gorm:"index" json:"started_at"`
	CompletedAt       *time.Time `gorm:"index" json:"completed_at"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Trip) TableName() string {
	return "trip"
}

// DeliveryStop is a single destination within a trip. The settlement_*
// columns mirror the stop's PaymentRecord for read convenience; the
// record itself stays the source of truth.
type DeliveryStop struct {
	ID                int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	TripID            int64           `gorm:"index;not null" json:"trip_id"`
	DriverID          int64           `gorm:"index;not null" json:"driver_id"`
	DeliveryRequestID int64           `gorm:"index;not null" json:"delivery_request_id"`
	ShopID            int64           `gorm:"index;not null" json:"shop_id"`
	ShopName          string          `gorm:"type:varchar(128)" json:"shop_name"`
	AmountExpected    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount_expected"`

	SettlementMethod    string           `gorm:"type:varchar(20)" json:"settlement_method"`
	SettlementStatus    string           `gorm:"type:varchar(20)" json:"settlement_status"`
	SettlementReference string           `gorm:"type:varchar(64)" json:"settlement_reference"`
	AmountCollected     *decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount_collected"`
	SettledAt           *time.Time       `json:"settled_at"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (DeliveryStop) TableName() string {
	return "delivery_stop"
}
