package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"leaguebet/internal/engine"
)

// PlaceBetslip validates and accepts a betslip: stake bounds, leg structure,
// badge ids, and each leg's odds against the match's current (locked or
// dynamic) odds. Acceptance, the stake ledger entry and the pool counters
// move in one serialized transaction.
func PlaceBetslip(ctx context.Context, poolID string, slip *Betslip) error {
	if err := engine.ValidateStake(slip.TotalStake); err != nil {
		return err
	}
	// Dry-run computation rejects structural problems (leg counts,
	// duplicates) before anything is written.
	if _, err := engine.ComputePayout(slip.BetType, slip.Legs, slip.TotalStake, slip.Badges); err != nil {
		return err
	}
	for _, id := range slip.Badges {
		if id < 0 || id >= len(Teams) {
			return fmt.Errorf("%w: badge team id %d", engine.ErrInvalidBetslip, id)
		}
	}

	for _, leg := range slip.Legs {
		if !leg.Prediction.Terminal() {
			return fmt.Errorf("%w: leg %s has no prediction", engine.ErrInvalidBetslip, leg.MatchID)
		}
		m, err := GetMatch(leg.MatchID)
		if err != nil {
			return err
		}
		if m == nil {
			return fmt.Errorf("%w: match %s not found", engine.ErrInvalidBetslip, leg.MatchID)
		}
		if m.Result != engine.ResultPending {
			return fmt.Errorf("%w: match %s already resolved", engine.ErrInvalidBetslip, leg.MatchID)
		}
		if leg.Odds != m.OddsFor(leg.Prediction) {
			return fmt.Errorf("%w: stale odds for match %s", engine.ErrInvalidBetslip, leg.MatchID)
		}
	}

	// Lock in the multiplier and the odds-weighted exposure breakdown at
	// acceptance time.
	slip.LockedMultiplier = engine.OddsScale
	slip.Allocations = nil
	if slip.BetType == engine.Parlay {
		slip.LockedMultiplier = engine.ParlayMultiplier(len(slip.Legs))
		slip.Allocations = engine.OddsWeightedAllocations(slip.TotalStake, slip.Legs, slip.LockedMultiplier)
	}

	legsJSON, err := json.Marshal(slip.Legs)
	if err != nil {
		return fmt.Errorf("failed to marshal legs: %w", err)
	}
	badgesJSON, err := json.Marshal(slip.Badges)
	if err != nil {
		return fmt.Errorf("failed to marshal badges: %w", err)
	}
	allocationsJSON, err := json.Marshal(slip.Allocations)
	if err != nil {
		return fmt.Errorf("failed to marshal allocations: %w", err)
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var active bool
	err = tx.QueryRowContext(ctx, `SELECT is_active FROM pools WHERE pool_id = ?`, poolID).Scan(&active)
	if err == sql.ErrNoRows {
		return fmt.Errorf("pool %s not found", poolID)
	}
	if err != nil {
		return fmt.Errorf("failed to get pool: %w", err)
	}
	if !active {
		return engine.ErrPoolInactive
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO betslips (slip_id, bettor, bet_type, legs, total_stake, badges, allocations, locked_multiplier)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, slip.SlipID, slip.Bettor, slip.BetType.String(), string(legsJSON), slip.TotalStake,
		string(badgesJSON), string(allocationsJSON), slip.LockedMultiplier)
	if err != nil {
		return fmt.Errorf("failed to insert betslip: %w", err)
	}

	// The stake joins the pool immediately; exposure is tracked until
	// settlement releases it.
	_, err = tx.ExecContext(ctx, `
		UPDATE pools
		SET total_liquidity = total_liquidity + ?,
		    house_balance = house_balance + ?,
		    total_collected = total_collected + ?,
		    total_bets_in_play = total_bets_in_play + ?
		WHERE pool_id = ?
	`, slip.TotalStake, slip.TotalStake, slip.TotalStake, slip.TotalStake, poolID)
	if err != nil {
		return fmt.Errorf("failed to update pool: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ledger (address, amount, source_type, description)
		VALUES (?, ?, ?, ?)
	`, slip.Bettor, -int64(slip.TotalStake), SourceStake,
		fmt.Sprintf("Stake for betslip %s (%s, %d legs)", slip.SlipID, slip.BetType, len(slip.Legs)))
	if err != nil {
		return fmt.Errorf("failed to insert stake ledger entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetBetslip retrieves a betslip by id. Returns nil when not found.
func GetBetslip(slipID string) (*Betslip, error) {
	row := db.QueryRow(`
		SELECT slip_id, bettor, bet_type, legs, total_stake, badges, settled,
		       payout_amount, remainder, allocations, locked_multiplier, created_at, settled_at
		FROM betslips
		WHERE slip_id = ?
	`, slipID)

	slip, err := scanBetslip(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get betslip: %w", err)
	}
	return slip, nil
}

// ListBetslipsByBettor returns an address's betslips, newest first.
func ListBetslipsByBettor(bettor string) ([]*Betslip, error) {
	rows, err := db.Query(`
		SELECT slip_id, bettor, bet_type, legs, total_stake, badges, settled,
		       payout_amount, remainder, allocations, locked_multiplier, created_at, settled_at
		FROM betslips
		WHERE bettor = ?
		ORDER BY created_at DESC
	`, bettor)
	if err != nil {
		return nil, fmt.Errorf("failed to query betslips: %w", err)
	}
	defer rows.Close()
	return collectBetslips(rows)
}

// ListUnsettledBetslips returns every betslip still awaiting settlement.
func ListUnsettledBetslips() ([]*Betslip, error) {
	rows, err := db.Query(`
		SELECT slip_id, bettor, bet_type, legs, total_stake, badges, settled,
		       payout_amount, remainder, allocations, locked_multiplier, created_at, settled_at
		FROM betslips
		WHERE settled = 0
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query unsettled betslips: %w", err)
	}
	defer rows.Close()
	return collectBetslips(rows)
}

func collectBetslips(rows *sql.Rows) ([]*Betslip, error) {
	var slips []*Betslip
	for rows.Next() {
		slip, err := scanBetslip(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan betslip: %w", err)
		}
		slips = append(slips, slip)
	}
	return slips, rows.Err()
}

func scanBetslip(row rowScanner) (*Betslip, error) {
	var slip Betslip
	var betType, legsJSON, badgesJSON, allocationsJSON string
	var settledAt sql.NullTime

	err := row.Scan(
		&slip.SlipID, &slip.Bettor, &betType, &legsJSON, &slip.TotalStake, &badgesJSON,
		&slip.Settled, &slip.PayoutAmount, &slip.Remainder, &allocationsJSON,
		&slip.LockedMultiplier, &slip.CreatedAt, &settledAt,
	)
	if err != nil {
		return nil, err
	}

	slip.BetType, err = engine.ParseBetType(betType)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(legsJSON), &slip.Legs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal legs: %w", err)
	}
	if err := json.Unmarshal([]byte(badgesJSON), &slip.Badges); err != nil {
		return nil, fmt.Errorf("failed to unmarshal badges: %w", err)
	}
	if err := json.Unmarshal([]byte(allocationsJSON), &slip.Allocations); err != nil {
		return nil, fmt.Errorf("failed to unmarshal allocations: %w", err)
	}
	if settledAt.Valid {
		slip.SettledAt = &settledAt.Time
	}
	return &slip, nil
}
