package lending

// Interest-rate tiers, fixed basis points per score band.
const (
	rateTier1Bps = 500  // score >= 800
	rateTier2Bps = 750  // score >= 700
	rateTier3Bps = 1000 // score >= 600
	rateTier4Bps = 1500 // below 600
)

// RateBpsForScore maps a financial-risk score to its interest tier.
// Monotonic: a better score never yields a worse rate.
func RateBpsForScore(score int64) int64 {
	switch {
	case score >= 800:
		return rateTier1Bps
	case score >= 700:
		return rateTier2Bps
	case score >= 600:
		return rateTier3Bps
	default:
		return rateTier4Bps
	}
}

// TotalRepayment computes simple, non-compounding interest over the stored
// loan duration with integer-truncating division. Repayment always uses the
// stored duration, never elapsed time, so a late payment cannot inflate the
// amount due.
func TotalRepayment(principal, rateBps, durationDays int64) int64 {
	interest := principal * rateBps * durationDays / (10_000 * 365)
	return principal + interest
}
