package storage

import (
	"time"

	"leaguebet/internal/engine"
)

// LockedOdds are odds fixed for a match at lock time. Once locked, the three
// values are immutable and every leg referencing the match must use them.
type LockedOdds struct {
	HomeOdds uint64 `json:"home_odds"`
	AwayOdds uint64 `json:"away_odds"`
	DrawOdds uint64 `json:"draw_odds"`
	Locked   bool   `json:"locked"`
}

// Match represents one fixture within a season turn.
type Match struct {
	MatchID    string             `json:"match_id"`
	SeasonID   string             `json:"season_id"`
	Turn       int                `json:"turn"`
	HomeTeam   string             `json:"home_team"`
	AwayTeam   string             `json:"away_team"`
	HomeOdds   uint64             `json:"home_odds"`
	AwayOdds   uint64             `json:"away_odds"`
	DrawOdds   uint64             `json:"draw_odds"`
	Result     engine.MatchResult `json:"result"`
	RandomSeed string             `json:"random_seed,omitempty"`
	Locked     *LockedOdds        `json:"locked_odds,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}

// OddsFor returns the odds the match offers for a prediction, preferring
// locked odds when present.
func (m *Match) OddsFor(prediction engine.MatchResult) uint64 {
	if m.Locked != nil && m.Locked.Locked {
		switch prediction {
		case engine.ResultHomeWin:
			return m.Locked.HomeOdds
		case engine.ResultAwayWin:
			return m.Locked.AwayOdds
		case engine.ResultDraw:
			return m.Locked.DrawOdds
		}
	}
	switch prediction {
	case engine.ResultHomeWin:
		return m.HomeOdds
	case engine.ResultAwayWin:
		return m.AwayOdds
	case engine.ResultDraw:
		return m.DrawOdds
	}
	return 0
}

// RoundID identifies the resolution round this match settles in.
func (m *Match) RoundID() string {
	return roundID(m.SeasonID, m.Turn)
}

// Betslip is a placed wager. Legs, badges and allocations are stored as JSON
// payloads alongside the scalar columns, mirroring the slip payload shape.
type Betslip struct {
	SlipID           string              `json:"slip_id"`
	Bettor           string              `json:"bettor_address"`
	BetType          engine.BetType      `json:"bet_type"`
	Legs             []engine.Leg        `json:"legs"`
	TotalStake       uint64              `json:"total_stake"`
	Badges           []int               `json:"badges"`
	Settled          bool                `json:"settled"`
	PayoutAmount     uint64              `json:"payout_amount"`
	Remainder        uint64              `json:"remainder"`
	Allocations      []engine.Allocation `json:"allocations,omitempty"`
	LockedMultiplier uint64              `json:"locked_multiplier"`
	CreatedAt        time.Time           `json:"created_at"`
	SettledAt        *time.Time          `json:"settled_at,omitempty"`
}

// LedgerEntry records one balance-affecting event for an address.
type LedgerEntry struct {
	ID          int64     `json:"id"`
	Address     string    `json:"address"`
	Amount      int64     `json:"amount"` // can be negative
	SourceType  string    `json:"source_type"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Ledger source types.
const (
	SourceStake      = "STAKE"
	SourceWinPayout  = "WIN_PAYOUT"
	SourceRefund     = "REFUND"
	SourceLPDeposit  = "LP_DEPOSIT"
	SourceLPWithdraw = "LP_WITHDRAW"
)

// Teams is the fixed 20-team table matches are drawn from.
var Teams = [20]string{
	"Arsenal", "Aston Villa", "Bournemouth", "Brentford", "Brighton",
	"Chelsea", "Crystal Palace", "Everton", "Fulham", "Ipswich Town",
	"Leicester City", "Liverpool", "Manchester City", "Manchester United", "Newcastle",
	"Nottingham Forest", "Southampton", "Tottenham", "West Ham", "Wolves",
}

// ValidTeam reports whether name is in the team table.
func ValidTeam(name string) bool {
	for _, t := range Teams {
		if t == name {
			return true
		}
	}
	return false
}
