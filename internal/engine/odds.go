package engine

import "math/bits"

// All odds and rates are fixed-point basis points: 10000 = 1.0x.
// Every operation uses floor integer division; no floating point.
const (
	OddsScale uint64 = 10000

	HouseEdgeBPS       uint64 = 400 // 4% house edge
	BadgeBonusBPS      uint64 = 500 // 5% badge bonus
	ProtocolRevenueBPS uint64 = 200 // 2% of the house edge

	MinBet         uint64 = 100
	MaxBet         uint64 = 1_000_000
	MaxBetsPerSlip int    = 20

	MaxPayoutPerBet uint64 = 100_000
	MaxRoundPayouts uint64 = 500_000

	WithdrawalFeeBPS     uint64 = 50 // 0.5%
	MinimumLiquidityLock uint64 = 1000

	// Locked odds are compressed into a fixed band (1.25x - 1.95x).
	MinLockedOdds uint64 = 12500
	MaxLockedOdds uint64 = 19500

	// Dynamic odds accepted at match creation (1.0x - 10.0x).
	MinMatchOdds uint64 = 10000
	MaxMatchOdds uint64 = 100000
)

// ApplyBadgeBonus boosts odds by BadgeBonusBPS when the bettor holds a badge.
func ApplyBadgeBonus(odds uint64, hasBadge bool) uint64 {
	if !hasBadge {
		return odds
	}
	return odds + odds*BadgeBonusBPS/OddsScale
}

// ApplyHouseEdge deducts the protocol margin from odds. It is applied once,
// at final payout computation, never per combination step.
func ApplyHouseEdge(odds uint64) uint64 {
	return odds - odds*HouseEdgeBPS/OddsScale
}

// mulDiv returns floor(a*b/div) using a 128-bit intermediate, saturating to
// the maximum uint64 when the quotient does not fit. Combined parlay odds
// can overflow 64 bits, so all payout math routes through here.
func mulDiv(a, b, div uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi >= div {
		return ^uint64(0)
	}
	q, _ := bits.Div64(hi, lo, div)
	return q
}
