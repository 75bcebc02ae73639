package engine

// PayoutResult is the outcome of a payout computation.
type PayoutResult struct {
	// Payout is the amount owed if every required leg wins.
	Payout uint64
	// Multiplier is the parlay multiplier that was applied (OddsScale for
	// non-parlay slips). Stored on the slip as locked_multiplier.
	Multiplier uint64
	// Capped is set when the parlay payout hit MaxPayoutPerBet. Informational:
	// the excess is absorbed, not rejected.
	Capped bool
	// Remainder is the system-bet split leftover (stake mod legs). It is never
	// part of any leg's stake and must be routed by the settlement layer.
	Remainder uint64
}

// ComputePayout computes the potential payout for a betslip. It is a pure
// function of its inputs and safe for concurrent use.
//
// A non-empty badge set applies the badge bonus uniformly to every leg; the
// caller is responsible for supplying badges only when the bettor actually
// holds them.
func ComputePayout(betType BetType, legs []Leg, stake uint64, badges []int) (PayoutResult, error) {
	if err := checkLegs(betType, legs); err != nil {
		return PayoutResult{}, err
	}
	if stake == 0 {
		return PayoutResult{}, ErrZeroStake
	}

	hasBadge := len(badges) > 0

	switch betType {
	case Single:
		odds := ApplyHouseEdge(ApplyBadgeBonus(legs[0].Odds, hasBadge))
		return PayoutResult{
			Payout:     mulDiv(stake, odds, OddsScale),
			Multiplier: OddsScale,
		}, nil

	case Parlay:
		combined := OddsScale
		for _, leg := range legs {
			combined = mulDiv(combined, ApplyBadgeBonus(leg.Odds, hasBadge), OddsScale)
		}
		combined = ApplyHouseEdge(combined)

		multiplier := ParlayMultiplier(len(legs))
		raw := mulDiv(stake, combined, OddsScale)
		boosted := mulDiv(raw, multiplier, OddsScale)

		res := PayoutResult{Payout: boosted, Multiplier: multiplier}
		if boosted > MaxPayoutPerBet {
			res.Payout = MaxPayoutPerBet
			res.Capped = true
		}
		return res, nil

	case SystemBet:
		n := uint64(len(legs))
		stakePerLeg := stake / n
		var total uint64
		for _, leg := range legs {
			odds := ApplyHouseEdge(ApplyBadgeBonus(leg.Odds, hasBadge))
			total += mulDiv(stakePerLeg, odds, OddsScale)
		}
		return PayoutResult{
			Payout:     total,
			Multiplier: OddsScale,
			Remainder:  stake - stakePerLeg*n,
		}, nil

	default:
		return PayoutResult{}, ErrInvalidBetslip
	}
}

// checkLegs enforces the structural slip rules: leg count per bet type, the
// per-slip leg ceiling and match uniqueness.
func checkLegs(betType BetType, legs []Leg) error {
	if len(legs) == 0 {
		return ErrInvalidBetslip
	}
	if len(legs) > MaxBetsPerSlip {
		return ErrTooManyLegs
	}
	switch betType {
	case Single:
		if len(legs) != 1 {
			return ErrInvalidBetslip
		}
	case Parlay, SystemBet:
		if len(legs) < 2 {
			return ErrInvalidBetslip
		}
	default:
		return ErrInvalidBetslip
	}
	seen := make(map[string]struct{}, len(legs))
	for _, leg := range legs {
		if _, dup := seen[leg.MatchID]; dup {
			return ErrDuplicateLeg
		}
		seen[leg.MatchID] = struct{}{}
	}
	return nil
}

// ValidateStake enforces the total-stake bounds checked before acceptance.
func ValidateStake(stake uint64) error {
	if stake == 0 {
		return ErrZeroStake
	}
	if stake < MinBet || stake > MaxBet {
		return ErrStakeOutOfRange
	}
	return nil
}
