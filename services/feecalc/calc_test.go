package feecalc

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestApplyPercentDiscount(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		percent string
		want    string
	}{
		{"no discount", "1500", "0", "1500"},
		{"quarter off", "1500", "25", "1125"},
		{"full discount", "1500", "100", "0"},
		{"negative percent clamps to zero", "1500", "-10", "1500"},
		{"over hundred clamps to full", "1500", "150", "0"},
		{"fractional percent", "1000", "12.5", "875"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyPercentDiscount(d(tt.amount), d(tt.percent))
			assert.True(t, d(tt.want).Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestDeductionShare(t *testing.T) {
	half := d("50")
	assert.True(t, d("2000").Equal(DeductionShare(d("2000"), nil)), "nil percent means full amount")
	assert.True(t, d("1000").Equal(DeductionShare(d("2000"), &half)))

	zero := d("0")
	assert.True(t, DeductionShare(d("2000"), &zero).IsZero())
}

func TestCapToAvailable(t *testing.T) {
	assert.True(t, d("500").Equal(CapToAvailable(d("800"), d("500"))), "caps to headroom")
	assert.True(t, d("300").Equal(CapToAvailable(d("300"), d("500"))), "under cap passes through")
	assert.True(t, CapToAvailable(d("300"), d("-100")).IsZero(), "negative headroom is zero")
	assert.True(t, CapToAvailable(d("300"), decimal.Zero).IsZero())
}

func TestCarryForwardWithCap(t *testing.T) {
	assert.True(t, d("2").Equal(CarryForwardWithCap(d("5"), d("2"))), "capped")
	assert.True(t, d("1.5").Equal(CarryForwardWithCap(d("1.5"), d("2"))), "under cap carries fully")
	assert.True(t, CarryForwardWithCap(d("-1"), d("2")).IsZero(), "negative prior carries nothing")
	assert.True(t, CarryForwardWithCap(decimal.Zero, d("2")).IsZero())
	assert.True(t, d("7").Equal(CarryForwardWithCap(d("7"), decimal.Zero)), "cap <= 0 means uncapped")
}

func TestNetPayable(t *testing.T) {
	got := NetPayable(d("1500"), d("5000"), d("100"), d("250"), d("350"))
	assert.True(t, d("7200").Equal(got))
}

func TestRemainingDues(t *testing.T) {
	assert.True(t, d("200").Equal(RemainingDues(d("700"), d("500"))))
	assert.True(t, RemainingDues(d("700"), d("700")).IsZero())
	assert.True(t, RemainingDues(d("700"), d("900")).IsZero(), "overpayment floors at zero")
}
