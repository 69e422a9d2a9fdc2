package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Reconciliation lifecycle. A reconciliation is born pending, gets
// submitted by the driver at end of day, and is acknowledged by back
// office. Disputes can be raised on submitted or already-acknowledged
// reconciliations; nothing leaves disputed here.
const (
	ReconStatusPending      = "pending"
	ReconStatusSubmitted    = "submitted"
	ReconStatusAcknowledged = "acknowledged"
	ReconStatusDisputed     = "disputed"
)

var ValidReconciliationTransitions = map[string][]string{
	ReconStatusPending:      {ReconStatusSubmitted},
	ReconStatusSubmitted:    {ReconStatusAcknowledged, ReconStatusDisputed},
	ReconStatusAcknowledged: {ReconStatusDisputed},
}

func CanTransitionTo(currentStatus, targetStatus string) bool {
	allowedStatuses, exists := ValidReconciliationTransitions[currentStatus]
	if !exists {
		return false
	}
	for _, s := range allowedStatuses {
		if s == targetStatus {
			return true
		}
	}
	return false
}

var reconStatusLabels = map[string]string{
	ReconStatusPending:      "Pending Submission",
	ReconStatusSubmitted:    "Submitted",
	ReconStatusAcknowledged: "Acknowledged",
	ReconStatusDisputed:     "Disputed",
}

// ReconStatusLabel returns the human-readable label for a status.
func ReconStatusLabel(status string) string {
	if label, ok := reconStatusLabels[status]; ok {
		return label
	}
	return status
}

// Primary payment method of a shop's day, classified from counts.
const (
	PrimaryCash  = "cash"
	PrimaryCliq  = "cliq"
	PrimaryMixed = "mixed"
)

// PrimaryMethod classifies a shop's dominant collection method.
// Mixed-method records count toward both tallies, so equal non-zero
// counts land on mixed.
func PrimaryMethod(cashCount, cliqCount int) string {
	switch {
	case cashCount > cliqCount:
		return PrimaryCash
	case cliqCount > cashCount:
		return PrimaryCliq
	case cashCount > 0 && cliqCount > 0:
		return PrimaryMixed
	default:
		return PrimaryCash
	}
}

// ShopBreakdownEntry is the per-shop subtotal inside a reconciliation.
type ShopBreakdownEntry struct {
	ShopID               int64           `json:"shop_id"`
	ShopName             string          `json:"shop_name"`
	AmountCollected      decimal.Decimal `json:"amount_collected"`
	AmountExpected       decimal.Decimal `json:"amount_expected"`
	PrimaryPaymentMethod string          `json:"primary_payment_method"`
	DeliveriesCount      int             `json:"deliveries_count"`
}

// ShopBreakdown is stored as a json column; order is first-touched-first.
type ShopBreakdown []ShopBreakdownEntry

func (b ShopBreakdown) Value() (driver.Value, error) {
	if b == nil {
		b = ShopBreakdown{}
	}
	return json.Marshal(b)
}

func (b *ShopBreakdown) Scan(value interface{}) error {
	if value == nil {
		*b = ShopBreakdown{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("unsupported type for shop breakdown")
	}
	return json.Unmarshal(raw, b)
}

// Reconciliation is the end-of-day financial summary for one driver and
// one calendar date. The (driver_id, recon_date) pair is unique; the
// database constraint is what serializes concurrent generation.
type Reconciliation struct {
	ID                  int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	ReconciliationNo    string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"reconciliation_no"`
	DriverID            int64           `gorm:"not null;uniqueIndex:uk_driver_recon_date" json:"driver_id"`
	ReconDate           string          `gorm:"type:varchar(10);not null;uniqueIndex:uk_driver_recon_date" json:"recon_date"`
	BusinessID          int64           `gorm:"index;not null" json:"business_id"`
	TotalExpected       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_expected"`
	TotalCollected      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_collected"`
	TotalCash           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_cash"`
	TotalCliq           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_cliq"`
	ShortageAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"shortage_amount"`
	OverageAmount       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"overage_amount"`
	CollectionRate      decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"collection_rate"`
	TripsCompleted      int             `gorm:"not null;default:0" json:"trips_completed"`
	DeliveriesCompleted int             `gorm:"not null;default:0" json:"deliveries_completed"`
	ShopBreakdown       ShopBreakdown   `gorm:"type:json" json:"shop_breakdown"`
	Status              string          `gorm:"type:varchar(20);index;not null;default:pending" json:"status"`
	SubmittedAt         *time.Time      `json:"submitted_at"`
	AcknowledgedAt      *time.Time      `json:"acknowledged_at"`
	CreatedAt           time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Reconciliation) TableName() string {
	return "reconciliation"
}

// StatusLabel returns the human-readable status for views.
func (r *Reconciliation) StatusLabel() string {
	return ReconStatusLabel(r.Status)
}
