// Package feecalc collects the decimal business rules shared by the billing
// and leave engines. Every rule is a pure function so each can be tested on
// its own instead of living inline in service methods.
package feecalc

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ApplyPercentDiscount returns amount reduced by percent, floored at zero.
// A percent outside [0,100] is clamped into range.
func ApplyPercentDiscount(amount, percent decimal.Decimal) decimal.Decimal {
	if percent.LessThan(decimal.Zero) {
		percent = decimal.Zero
	}
	if percent.GreaterThan(hundred) {
		percent = hundred
	}
	discounted := amount.Mul(hundred.Sub(percent)).Div(hundred)
	if discounted.LessThan(decimal.Zero) {
		return decimal.Zero
	}
	return discounted
}

// DeductionShare returns percent of total. A nil percent means the full
// amount (the cut-from-salary default of 100%).
func DeductionShare(total decimal.Decimal, percent *decimal.Decimal) decimal.Decimal {
	if percent == nil {
		return total
	}
	return total.Mul(*percent).Div(hundred)
}

// CapToAvailable caps wanted to the available headroom. Negative headroom
// counts as zero, so the result is never negative for non-negative wanted.
func CapToAvailable(wanted, available decimal.Decimal) decimal.Decimal {
	if available.LessThan(decimal.Zero) {
		available = decimal.Zero
	}
	if wanted.GreaterThan(available) {
		return available
	}
	return wanted
}

// CarryForwardWithCap computes the balance carried into the next period.
// Nothing carries when the prior available is not positive; a cap <= 0
// means uncapped.
func CarryForwardWithCap(priorAvailable, cap decimal.Decimal) decimal.Decimal {
	if priorAvailable.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	if cap.GreaterThan(decimal.Zero) && priorAvailable.GreaterThan(cap) {
		return cap
	}
	return priorAvailable
}

// NetPayable is the billing-cycle total:
// tuition + admission + fine + previous dues + extra charges.
func NetPayable(tuition, admission, fine, previousDues, extraCharges decimal.Decimal) decimal.Decimal {
	return tuition.Add(admission).Add(fine).Add(previousDues).Add(extraCharges)
}

// RemainingDues is what stays outstanding after a payment, floored at zero.
func RemainingDues(totalOwed, paid decimal.Decimal) decimal.Decimal {
	dues := totalOwed.Sub(paid)
	if dues.LessThan(decimal.Zero) {
		return decimal.Zero
	}
	return dues
}
