package checkout

import "doneasy-checkout/internal/model"

const basisPoints = 10000

// FeeCalculator derives the admin fee from a pledge amount
type FeeCalculator struct {
	rateBPS int64
}

// NewFeeCalculator creates a calculator charging rateBPS basis points (250 = 2.5%)
func NewFeeCalculator(rateBPS int64) FeeCalculator {
	return FeeCalculator{rateBPS: rateBPS}
}

// RateBPS returns the configured rate in basis points
func (c FeeCalculator) RateBPS() int64 {
	return c.rateBPS
}

// Compute returns the fee breakdown for amount, rounding half up to a whole unit.
// Negative amounts are treated as zero. The amount is split into whole and
// remainder parts of basisPoints so the product cannot overflow for rates up to 100%.
func (c FeeCalculator) Compute(amount int64) model.FeeBreakdown {
	if amount < 0 {
		amount = 0
	}
	q, r := amount/basisPoints, amount%basisPoints
	fee := q*c.rateBPS + (r*c.rateBPS+basisPoints/2)/basisPoints
	return model.FeeBreakdown{
		Amount:   amount,
		AdminFee: fee,
		Total:    amount + fee,
	}
}
