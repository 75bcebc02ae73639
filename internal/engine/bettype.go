package engine

import (
	"fmt"
	"strings"
)

// BetType is a closed set of wagering modes. Payout computation dispatches on
// it exhaustively; adding a mode means touching every switch at compile time.
type BetType int

const (
	Single BetType = iota
	Parlay
	SystemBet
)

// String returns the wire name used in slip payloads.
func (t BetType) String() string {
	switch t {
	case Single:
		return "Single"
	case Parlay:
		return "Parlay"
	case SystemBet:
		return "SystemBet"
	default:
		return fmt.Sprintf("BetType(%d)", int(t))
	}
}

// MarshalJSON encodes the bet type as its wire name.
func (t BetType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON decodes a wire name into a BetType.
func (t *BetType) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseBetType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseBetType maps a wire name back to a BetType.
func ParseBetType(s string) (BetType, error) {
	switch s {
	case "Single":
		return Single, nil
	case "Parlay":
		return Parlay, nil
	case "SystemBet":
		return SystemBet, nil
	default:
		return 0, fmt.Errorf("unknown bet type %q", s)
	}
}

// MatchResult is the outcome of a match. It transitions exactly once, from
// Pending to a terminal value.
type MatchResult string

const (
	ResultPending MatchResult = "Pending"
	ResultHomeWin MatchResult = "HomeWin"
	ResultAwayWin MatchResult = "AwayWin"
	ResultDraw    MatchResult = "Draw"
)

// Terminal reports whether the result is settled.
func (r MatchResult) Terminal() bool {
	return r == ResultHomeWin || r == ResultAwayWin || r == ResultDraw
}

// Leg is one prediction within a betslip, immutable once placed.
type Leg struct {
	MatchID    string      `json:"match_id"`
	Prediction MatchResult `json:"prediction"`
	Odds       uint64      `json:"odds"` // basis points at placement time
}
