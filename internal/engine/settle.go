package engine

// SettledPayout is the outcome of settling a betslip against final match
// results.
type SettledPayout struct {
	// Payout is the amount actually owed given which legs won.
	Payout uint64
	// Capped mirrors PayoutResult.Capped for the winning-parlay path.
	Capped bool
	// Remainder is the system-bet split leftover, owed back to the bettor
	// regardless of outcomes.
	Remainder uint64
	// HouseEdgeAmount is the margin realized on the winning portion: the
	// payout the winning legs would have produced without the house edge,
	// minus the actual (pre-cap) payout. Zero on a losing slip.
	HouseEdgeAmount uint64
}

// ComputeSettledPayout settles a betslip against terminal match results.
// Results is a match_id -> result mapping; a leg wins when its prediction
// equals the match result. Parlays pay only when every leg wins; system bets
// pay each winning leg independently.
func ComputeSettledPayout(betType BetType, legs []Leg, stake uint64, badges []int, results map[string]MatchResult) (SettledPayout, error) {
	if err := checkLegs(betType, legs); err != nil {
		return SettledPayout{}, err
	}
	if stake == 0 {
		return SettledPayout{}, ErrZeroStake
	}

	hasBadge := len(badges) > 0
	won := func(leg Leg) bool {
		return results[leg.MatchID] == leg.Prediction
	}

	switch betType {
	case Single:
		if !won(legs[0]) {
			return SettledPayout{}, nil
		}
		boosted := ApplyBadgeBonus(legs[0].Odds, hasBadge)
		payout := mulDiv(stake, ApplyHouseEdge(boosted), OddsScale)
		gross := mulDiv(stake, boosted, OddsScale)
		return SettledPayout{Payout: payout, HouseEdgeAmount: gross - payout}, nil

	case Parlay:
		for _, leg := range legs {
			if !won(leg) {
				return SettledPayout{}, nil
			}
		}
		combined := OddsScale
		for _, leg := range legs {
			combined = mulDiv(combined, ApplyBadgeBonus(leg.Odds, hasBadge), OddsScale)
		}
		multiplier := ParlayMultiplier(len(legs))

		raw := mulDiv(stake, ApplyHouseEdge(combined), OddsScale)
		boosted := mulDiv(raw, multiplier, OddsScale)
		grossRaw := mulDiv(stake, combined, OddsScale)
		gross := mulDiv(grossRaw, multiplier, OddsScale)

		out := SettledPayout{Payout: boosted, HouseEdgeAmount: gross - boosted}
		if out.Payout > MaxPayoutPerBet {
			out.Payout = MaxPayoutPerBet
			out.Capped = true
		}
		return out, nil

	case SystemBet:
		n := uint64(len(legs))
		stakePerLeg := stake / n
		out := SettledPayout{Remainder: stake - stakePerLeg*n}
		for _, leg := range legs {
			if !won(leg) {
				continue
			}
			boosted := ApplyBadgeBonus(leg.Odds, hasBadge)
			payout := mulDiv(stakePerLeg, ApplyHouseEdge(boosted), OddsScale)
			out.Payout += payout
			out.HouseEdgeAmount += mulDiv(stakePerLeg, boosted, OddsScale) - payout
		}
		return out, nil

	default:
		return SettledPayout{}, ErrInvalidBetslip
	}
}
