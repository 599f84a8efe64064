package history

import "math"

// zeroTolerance is the magnitude below which a delta is treated as zero.
// Display-unit amounts bottom out at one lamport (1e-9 SOL); a one-lamport
// delta is real activity, anything strictly smaller is floating point noise.
const zeroTolerance = 1e-9

// Significant converts a delta to nil when its magnitude is negligible.
func Significant(x float64) *float64 {
	if math.Abs(x) < zeroTolerance {
		return nil
	}
	return &x
}

// Classify maps the signs of the native and token deltas to a category.
// The table is evaluated top to bottom, first match wins. The combinations
// native>0 & token>0 and native<0 & token<0 are intentionally uncovered and
// fall through to CategoryUnknown.
func Classify(native, token *float64) Category {
	switch {
	case native != nil && token != nil && *native > 0 && *token < 0:
		return CategoryTokenSwap
	case native != nil && token == nil && *native > 0:
		return CategorySolDeposit
	case native != nil && token == nil && *native < 0:
		return CategorySolWithdrawal
	case native == nil && token != nil && *token > 0:
		return CategoryTokenDeposit
	case native == nil && token != nil && *token < 0:
		return CategoryTokenWithdrawal
	case native != nil && token != nil && *native < 0 && *token > 0:
		return CategoryTokenPurchase
	default:
		return CategoryUnknown
	}
}
