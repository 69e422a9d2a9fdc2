package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/A-Yamak/transportation-mvp-sub000/pkg/money"
)

// Payment methods accepted at a delivery stop. CliQ now/later are
// distinct at the stop but collapse into one bucket at reconciliation.
const (
	MethodCash      = "cash"
	MethodCliqNow   = "cliq_now"
	MethodCliqLater = "cliq_later"
	MethodMixed     = "mixed"
)

func ValidPaymentMethod(method string) bool {
	switch method {
	case MethodCash, MethodCliqNow, MethodCliqLater, MethodMixed:
		return true
	}
	return false
}

// IsCliqMethod reports whether the method requires an external
// transaction reference.
func IsCliqMethod(method string) bool {
	return method == MethodCliqNow || method == MethodCliqLater
}

// Settlement status of a single stop. Derived from amounts, never set
// directly.
const (
	PaymentStatusCollected = "collected"
	PaymentStatusPartial   = "partial"
	PaymentStatusFailed    = "failed"
)

// Shortage reasons recorded when a stop is not fully collected.
const (
	ShortageCustomerAbsent    = "customer_absent"
	ShortageInsufficientFunds = "insufficient_funds"
	ShortageCustomerRefused   = "customer_refused"
	ShortageOther             = "other"
)

// DerivePaymentStatus computes the settlement status from amounts.
// Keeping this the only way a status comes into existence prevents
// status/amount drift.
func DerivePaymentStatus(expected, collected decimal.Decimal) string {
	if collected.Cmp(expected) >= 0 {
		return PaymentStatusCollected
	}
	if collected.IsZero() {
		return PaymentStatusFailed
	}
	return PaymentStatusPartial
}

// PaymentRecord is the settlement row for one delivery stop. Exactly one
// per stop, written once by the collecting driver and never mutated;
// corrections happen through external reversal, not updates.
type PaymentRecord struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	PaymentNo       string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"payment_no"`
	StopID          int64           `gorm:"uniqueIndex;not null" json:"stop_id"`
	TripID          int64           `gorm:"index;not null" json:"trip_id"`
	DriverID        int64           `gorm:"index:idx_driver_collected;not null" json:"driver_id"`
	ShopID          int64           `gorm:"index;not null" json:"shop_id"`
	ShopName        string          `gorm:"type:varchar(128)" json:"shop_name"`
	AmountExpected  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount_expected"`
	AmountCollected decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount_collected"`
	Method          string          `gorm:"type:varchar(20);not null" json:"method"`
	Reference       string          `gorm:"type:varchar(64)" json:"reference"`
	Status          string          `gorm:"type:varchar(20);not null" json:"status"`
	ShortageReason  string          `gorm:"type:varchar(64)" json:"shortage_reason"`
	Notes           string          `gorm:"type:varchar(256)" json:"notes"`
	CollectedAt     time.Time       `gorm:"index:idx_driver_collected;not null" json:"collected_at"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (PaymentRecord) TableName() string {
	return "payment_record"
}

// ShortageAmount returns max(0, expected - collected).
func (r *PaymentRecord) ShortageAmount() decimal.Decimal {
	return money.Shortage(r.AmountExpected, r.AmountCollected)
}

// ShortagePercentage returns the shortage as a percentage of the
// expected amount, 0 when nothing was expected.
func (r *PaymentRecord) ShortagePercentage() decimal.Decimal {
	if r.AmountExpected.IsZero() {
		return decimal.Zero
	}
	return money.Round2(r.ShortageAmount().Div(r.AmountExpected).Mul(decimal.NewFromInt(100)))
}
