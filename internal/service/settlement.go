package service

import (
	"context"
	"database/sql"
	"fmt"

	"leaguebet/internal/engine"
	"leaguebet/internal/logger"
	"leaguebet/internal/storage"
)

// SettlementService settles betslips against resolved matches and keeps the
// liquidity pool's aggregate counters consistent.
type SettlementService struct {
	poolID   string
	notifier *Notifier
}

// NewSettlementService creates a settlement service bound to one pool.
func NewSettlementService(poolID string) *SettlementService {
	return &SettlementService{poolID: poolID}
}

// SetNotifier sets the notifier for settlement notifications.
func (s *SettlementService) SetNotifier(n *Notifier) {
	s.notifier = n
}

// SettleBetslip settles one betslip. Every leg's match must already carry a
// terminal result. The payout computation, the round-cap admission check, the
// pool counter updates and the ledger entries happen in one serializable
// transaction; the slip settles exactly once.
//
// Admission is checked before anything is written: a slip whose payout would
// push the round over MaxRoundPayouts fails with ErrRoundCapExceeded, and one
// whose outflow would drag the pool under its liquidity floor fails with
// ErrInsufficientLiquidity. Either way the slip is left unsettled.
func (s *SettlementService) SettleBetslip(ctx context.Context, slipID string) (uint64, error) {
	db := storage.DB()
	if db == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	slip, err := storage.GetBetslip(slipID)
	if err != nil {
		return 0, err
	}
	if slip == nil {
		return 0, fmt.Errorf("betslip %s not found", slipID)
	}
	if slip.Settled {
		return 0, fmt.Errorf("betslip %s already settled", slipID)
	}

	// Collect results; the round is keyed by the latest turn the slip
	// touches.
	results := make(map[string]engine.MatchResult, len(slip.Legs))
	var roundID string
	var lastTurn int
	for _, leg := range slip.Legs {
		m, err := storage.GetMatch(leg.MatchID)
		if err != nil {
			return 0, err
		}
		if m == nil {
			return 0, fmt.Errorf("match %s not found for betslip %s", leg.MatchID, slipID)
		}
		if !m.Result.Terminal() {
			return 0, fmt.Errorf("match %s not yet resolved", leg.MatchID)
		}
		results[leg.MatchID] = m.Result
		if roundID == "" || m.Turn > lastTurn {
			roundID = m.RoundID()
			lastTurn = m.Turn
		}
	}

	out, err := engine.ComputeSettledPayout(slip.BetType, slip.Legs, slip.TotalStake, slip.Badges, results)
	if err != nil {
		return 0, err
	}

	protocolShare := out.HouseEdgeAmount * engine.ProtocolRevenueBPS / engine.OddsScale

	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Round cap admission check.
	var roundPaid uint64
	err = tx.QueryRowContext(ctx, `
		SELECT total_paid FROM round_payouts WHERE round_id = ?
	`, roundID).Scan(&roundPaid)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to get round payouts: %w", err)
	}
	if roundPaid+out.Payout > engine.MaxRoundPayouts {
		logger.Debug(slip.Bettor, "settlement_round_cap", fmt.Sprintf("slip_id=%s round=%s paid=%d payout=%d", slipID, roundID, roundPaid, out.Payout))
		return 0, engine.ErrRoundCapExceeded
	}

	// Solvency admission check. Paying out must leave the pool at or above
	// its liquidity floor and cannot exceed the house balance; a pool that
	// cannot cover the slip keeps it pending instead of going negative.
	outflow := out.Payout + out.Remainder + protocolShare
	var liquidity, houseBalance, minLiquidity uint64
	err = tx.QueryRowContext(ctx, `
		SELECT total_liquidity, house_balance, min_liquidity FROM pools WHERE pool_id = ?
	`, s.poolID).Scan(&liquidity, &houseBalance, &minLiquidity)
	if err != nil {
		return 0, fmt.Errorf("failed to get pool: %w", err)
	}
	if liquidity < outflow+minLiquidity || houseBalance < outflow {
		logger.Debug(slip.Bettor, "settlement_insufficient_liquidity", fmt.Sprintf("slip_id=%s outflow=%d liquidity=%d floor=%d", slipID, outflow, liquidity, minLiquidity))
		return 0, engine.ErrInsufficientLiquidity
	}

	if out.Payout > 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO round_payouts (round_id, total_paid) VALUES (?, ?)
			ON CONFLICT(round_id) DO UPDATE SET total_paid = total_paid + excluded.total_paid
		`, roundID, out.Payout)
		if err != nil {
			return 0, fmt.Errorf("failed to update round payouts: %w", err)
		}
	}

	// Release exposure, pay out, and skim the protocol's slice of the
	// realized house edge. The remainder of a system-bet split goes back to
	// the bettor rather than staying in the pool.
	_, err = tx.ExecContext(ctx, `
		UPDATE pools
		SET total_liquidity = total_liquidity - ?,
		    house_balance = house_balance - ?,
		    total_paid_out = total_paid_out + ?,
		    protocol_revenue = protocol_revenue + ?,
		    total_bets_in_play = MAX(total_bets_in_play - ?, 0)
		WHERE pool_id = ?
	`, outflow, outflow, out.Payout, protocolShare, slip.TotalStake, s.poolID)
	if err != nil {
		return 0, fmt.Errorf("failed to update pool: %w", err)
	}

	if out.Payout > 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO ledger (address, amount, source_type, description)
			VALUES (?, ?, ?, ?)
		`, slip.Bettor, int64(out.Payout), storage.SourceWinPayout,
			fmt.Sprintf("Win payout for betslip %s (stake %d, payout %d)", slipID, slip.TotalStake, out.Payout))
		if err != nil {
			return 0, fmt.Errorf("failed to insert payout ledger entry: %w", err)
		}
	}

	if out.Remainder > 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO ledger (address, amount, source_type, description)
			VALUES (?, ?, ?, ?)
		`, slip.Bettor, int64(out.Remainder), storage.SourceRefund,
			fmt.Sprintf("Stake split remainder refund for betslip %s", slipID))
		if err != nil {
			return 0, fmt.Errorf("failed to insert refund ledger entry: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE betslips
		SET settled = 1, payout_amount = ?, remainder = ?, settled_at = CURRENT_TIMESTAMP
		WHERE slip_id = ? AND settled = 0
	`, out.Payout, out.Remainder, slipID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark betslip settled: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Debug(slip.Bettor, "betslip_settled", fmt.Sprintf("slip_id=%s payout=%d remainder=%d capped=%v round=%s", slipID, out.Payout, out.Remainder, out.Capped, roundID))

	if s.notifier != nil {
		s.notifier.NotifySettlement(slip, out.Payout, out.Remainder)
	}

	return out.Payout, nil
}

// SettleDueBetslips settles every unsettled betslip whose legs have all
// resolved. Slips blocked by the round cap or the liquidity floor stay
// unsettled. Returns the number of slips settled.
func (s *SettlementService) SettleDueBetslips(ctx context.Context) (int, error) {
	slips, err := storage.ListUnsettledBetslips()
	if err != nil {
		return 0, err
	}

	settled := 0
	for _, slip := range slips {
		ready := true
		for _, leg := range slip.Legs {
			m, err := storage.GetMatch(leg.MatchID)
			if err != nil {
				return settled, err
			}
			if m == nil || !m.Result.Terminal() {
				ready = false
				break
			}
		}
		if !ready {
			continue
		}

		if _, err := s.SettleBetslip(ctx, slip.SlipID); err != nil {
			logger.Debug(slip.Bettor, "settlement_failed", fmt.Sprintf("slip_id=%s error=%s", slip.SlipID, err.Error()))
			continue
		}
		settled++
	}
	return settled, nil
}
