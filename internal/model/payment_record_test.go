package model_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/A-Yamak/transportation-mvp-sub000/internal/model"
)

func TestDerivePaymentStatus(t *testing.T) {
	tests := []struct {
		name      string
		expected  string
		collected string
		want      string
	}{
		{name: "exact collection", expected: "1000.00", collected: "1000.00", want: model.PaymentStatusCollected},
		{name: "over-collection still collected", expected: "1000.00", collected: "1200.00", want: model.PaymentStatusCollected},
		{name: "partial collection", expected: "500.00", collected: "250.00", want: model.PaymentStatusPartial},
		{name: "tiny partial", expected: "500.00", collected: "0.01", want: model.PaymentStatusPartial},
		{name: "nothing collected", expected: "500.00", collected: "0", want: model.PaymentStatusFailed},
		{name: "zero expected zero collected", expected: "0", collected: "0", want: model.PaymentStatusCollected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := model.DerivePaymentStatus(
				decimal.RequireFromString(tt.expected),
				decimal.RequireFromString(tt.collected),
			)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDerivePaymentStatusInvariants(t *testing.T) {
	// collected iff amount_collected >= amount_expected,
	// failed iff amount_collected == 0
	amounts := []string{"0", "0.01", "250.00", "999.99", "1000.00", "1500.00"}
	expected := decimal.RequireFromString("1000.00")

	for _, raw := range amounts {
		collected := decimal.RequireFromString(raw)
		status := model.DerivePaymentStatus(expected, collected)

		assert.Equal(t, collected.Cmp(expected) >= 0, status == model.PaymentStatusCollected, "amount %s", raw)
		assert.Equal(t, collected.IsZero(), status == model.PaymentStatusFailed, "amount %s", raw)
	}
}

func TestPaymentMethodValidation(t *testing.T) {
	assert.True(t, model.ValidPaymentMethod(model.MethodCash))
	assert.True(t, model.ValidPaymentMethod(model.MethodCliqNow))
	assert.True(t, model.ValidPaymentMethod(model.MethodCliqLater))
	assert.True(t, model.ValidPaymentMethod(model.MethodMixed))
	assert.False(t, model.ValidPaymentMethod("card"))
	assert.False(t, model.ValidPaymentMethod(""))

	assert.True(t, model.IsCliqMethod(model.MethodCliqNow))
	assert.True(t, model.IsCliqMethod(model.MethodCliqLater))
	assert.False(t, model.IsCliqMethod(model.MethodCash))
	assert.False(t, model.IsCliqMethod(model.MethodMixed))
}

func TestPaymentRecordShortageFigures(t *testing.T) {
	record := &model.PaymentRecord{
		AmountExpected:  decimal.RequireFromString("500.00"),
		AmountCollected: decimal.RequireFromString("375.00"),
	}

	assert.True(t, record.ShortageAmount().Equal(decimal.RequireFromString("125.00")))
	assert.True(t, record.ShortagePercentage().Equal(decimal.RequireFromString("25")))

	fullyCollected := &model.PaymentRecord{
		AmountExpected:  decimal.RequireFromString("500.00"),
		AmountCollected: decimal.RequireFromString("600.00"),
	}
	assert.True(t, fullyCollected.ShortageAmount().IsZero())
	assert.True(t, fullyCollected.ShortagePercentage().IsZero())

	zeroExpected := &model.PaymentRecord{
		AmountExpected:  decimal.Zero,
		AmountCollected: decimal.Zero,
	}
	assert.True(t, zeroExpected.ShortagePercentage().IsZero())
}
