// Package fees computes the split between platform, processor, and merchant
// for a single gross amount. All amounts are minor units (JPY, zero-decimal).
package fees

import "github.com/shopspring/decimal"

const (
	// PlatformFeeRate is the marketplace's cut of every purchase.
	PlatformFeeRate = 0.03
	// ProcessorFeeRate estimates the payment processor's percentage fee.
	ProcessorFeeRate = 0.036
	// ProcessorFlatSurcharge is the processor's per-transaction flat fee,
	// applied on top of the percentage estimate for payout reporting.
	ProcessorFlatSurcharge = 40
	// PointEarnRate is the fraction of gross granted back as points.
	PointEarnRate = 0.05
)

var (
	platformRate  = decimal.NewFromFloat(PlatformFeeRate)
	processorRate = decimal.NewFromFloat(ProcessorFeeRate)
	earnRate      = decimal.NewFromFloat(PointEarnRate)
)

// Breakdown is the fee snapshot persisted onto each transaction.
//
// MerchantAmount is gross minus the platform fee only: the processor's real
// fee settles against the platform balance, not the merchant transfer.
// ProcessorFeeEstimate exists for payout reporting and is never subtracted
// from MerchantAmount.
type Breakdown struct {
	GrossAmount          int64
	PlatformFee          int64
	ProcessorFeeEstimate int64
	MerchantAmount       int64
}

// Compute derives the fee breakdown for a gross amount. Each fee rounds
// half-up independently; the caller is responsible for gross > 0.
func Compute(gross int64) Breakdown {
	g := decimal.NewFromInt(gross)
	platformFee := g.Mul(platformRate).Round(0).IntPart()
	processorFee := g.Mul(processorRate).Round(0).IntPart() + ProcessorFlatSurcharge
	return Breakdown{
		GrossAmount:          gross,
		PlatformFee:          platformFee,
		ProcessorFeeEstimate: processorFee,
		MerchantAmount:       gross - platformFee,
	}
}

// PointsEarned returns the points granted for a completed purchase,
// floor(gross * PointEarnRate).
func PointsEarned(gross int64) int64 {
	return decimal.NewFromInt(gross).Mul(earnRate).Floor().IntPart()
}
