package money_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/A-Yamak/transportation-mvp-sub000/pkg/money"
)

func TestRound2(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "exact two places untouched", input: "1000.00", want: "1000.00"},
		{name: "half rounds up", input: "83.335", want: "83.34"},
		{name: "below half rounds down", input: "83.334", want: "83.33"},
		{name: "repeating fraction", input: "83.333333333333", want: "83.33"},
		{name: "integer gains places", input: "600", want: "600.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := decimal.RequireFromString(tt.input)
			assert.Equal(t, tt.want, money.Round2(input).StringFixed(2))
		})
	}
}

func TestCollectionRate(t *testing.T) {
	tests := []struct {
		name      string
		expected  string
		collected string
		want      string
	}{
		{name: "fully collected", expected: "1000.00", collected: "1000.00", want: "100"},
		{name: "partial day", expected: "1500.00", collected: "1250.00", want: "83.33"},
		{name: "nothing collected", expected: "500.00", collected: "0", want: "0"},
		{name: "over-collected exceeds hundred", expected: "100.00", collected: "150.00", want: "150"},
		// Policy, not arithmetic: a day with nothing expected counts as
		// fully collected even when nothing came in.
		{name: "zero expected zero collected", expected: "0", collected: "0", want: "100"},
		{name: "zero expected with collection", expected: "0", collected: "40.00", want: "100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := money.CollectionRate(
				decimal.RequireFromString(tt.expected),
				decimal.RequireFromString(tt.collected),
			)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"want %s, got %s", tt.want, got)
		})
	}
}

func TestShortageAndOverage(t *testing.T) {
	tests := []struct {
		name         string
		expected     string
		collected    string
		wantShortage string
		wantOverage  string
	}{
		{name: "balanced", expected: "100.00", collected: "100.00", wantShortage: "0", wantOverage: "0"},
		{name: "short", expected: "100.00", collected: "75.00", wantShortage: "25.00", wantOverage: "0"},
		{name: "over", expected: "100.00", collected: "120.00", wantShortage: "0", wantOverage: "20.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expected := decimal.RequireFromString(tt.expected)
			collected := decimal.RequireFromString(tt.collected)

			shortage := money.Shortage(expected, collected)
			overage := money.Overage(expected, collected)

			assert.True(t, shortage.Equal(decimal.RequireFromString(tt.wantShortage)))
			assert.True(t, overage.Equal(decimal.RequireFromString(tt.wantOverage)))
			// never both positive
			assert.True(t, shortage.Mul(overage).IsZero())
		})
	}
}

func TestWithinTolerance(t *testing.T) {
	a := decimal.RequireFromString("100.00")

	assert.True(t, money.WithinTolerance(a, decimal.RequireFromString("100.00")))
	assert.True(t, money.WithinTolerance(a, decimal.RequireFromString("100.01")))
	assert.True(t, money.WithinTolerance(a, decimal.RequireFromString("99.99")))
	assert.False(t, money.WithinTolerance(a, decimal.RequireFromString("100.02")))
}
