package engine

// Allocation is the per-match exposure attributed to one leg of a parlay.
// It is a risk-bookkeeping view for display and per-match accounting; it does
// not feed back into the payout and must never be summed into total_stake.
type Allocation struct {
	MatchID string `json:"match_id"`
	Amount  uint64 `json:"allocation"`
}

// OddsWeightedAllocations distributes a parlay's stake exposure across its
// legs proportionally to each leg's odds. The target payout is derived from
// the raw multiplicative odds (no badge or house-edge adjustment here), split
// evenly per leg, then each leg's allocation is the stake that would be needed
// on that leg alone to produce its share of the target: lower odds, larger
// allocation.
func OddsWeightedAllocations(totalStake uint64, legs []Leg, multiplier uint64) []Allocation {
	if len(legs) == 0 {
		return nil
	}

	combined := OddsScale
	for _, leg := range legs {
		combined = mulDiv(combined, leg.Odds, OddsScale)
	}

	// Two basis-point scalings folded into a single division by 10000*10000.
	stakeOdds := mulDiv(totalStake, combined, 1)
	targetPayout := mulDiv(stakeOdds, multiplier, 100000000)

	perLeg := targetPayout / uint64(len(legs))

	allocations := make([]Allocation, 0, len(legs))
	for _, leg := range legs {
		allocations = append(allocations, Allocation{
			MatchID: leg.MatchID,
			Amount:  mulDiv(perLeg, OddsScale, leg.Odds),
		})
	}
	return allocations
}
