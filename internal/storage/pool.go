package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"leaguebet/internal/engine"
)

// CreatePool inserts the season's liquidity pool. Seed liquidity, when
// non-zero, is credited to the creator as the genesis share grant.
func CreatePool(ctx context.Context, pool engine.Pool, creator string) error {
	if pool.TotalLiquidity < pool.MinLiquidity {
		return fmt.Errorf("seed liquidity %d below minimum %d", pool.TotalLiquidity, pool.MinLiquidity)
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Genesis shares are 1:1 with seed liquidity.
	shares := pool.TotalLiquidity

	_, err = tx.ExecContext(ctx, `
		INSERT INTO pools (pool_id, total_liquidity, house_balance, is_active, min_liquidity, total_shares)
		VALUES (?, ?, ?, ?, ?, ?)
	`, pool.PoolID, pool.TotalLiquidity, pool.TotalLiquidity, pool.IsActive, pool.MinLiquidity, shares)
	if err != nil {
		return fmt.Errorf("failed to insert pool: %w", err)
	}

	if shares > 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO lp_shares (share_id, pool_id, lp_address, shares, initial_deposit, deposit_timestamp)
			VALUES (?, ?, ?, ?, ?, ?)
		`, uuid.NewString(), pool.PoolID, creator, shares, pool.TotalLiquidity, time.Now().Unix())
		if err != nil {
			return fmt.Errorf("failed to insert genesis share: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetPool retrieves the pool snapshot. Returns nil when not found.
func GetPool(poolID string) (*engine.Pool, error) {
	var p engine.Pool
	err := db.QueryRow(`
		SELECT pool_id, total_liquidity, total_bets_in_play, total_paid_out, total_collected,
		       protocol_revenue, house_balance, is_active, min_liquidity, total_shares
		FROM pools
		WHERE pool_id = ?
	`, poolID).Scan(
		&p.PoolID, &p.TotalLiquidity, &p.TotalBetsInPlay, &p.TotalPaidOut, &p.TotalCollected,
		&p.ProtocolRevenue, &p.HouseBalance, &p.IsActive, &p.MinLiquidity, &p.TotalShares,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pool: %w", err)
	}
	return &p, nil
}

// DepositLiquidity mints LP shares for a deposit inside one serialized
// read-modify-write transaction and returns the new share record.
func DepositLiquidity(ctx context.Context, poolID, lpAddress string, amount uint64) (*engine.ShareRecord, error) {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	pool, err := getPoolTx(ctx, tx, poolID)
	if err != nil {
		return nil, err
	}

	res, err := engine.Deposit(*pool, amount)
	if err != nil {
		return nil, err
	}

	record := engine.ShareRecord{
		ShareID:          uuid.NewString(),
		LPAddress:        lpAddress,
		Shares:           res.SharesMinted,
		InitialDeposit:   amount,
		DepositTimestamp: time.Now().Unix(),
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO lp_shares (share_id, pool_id, lp_address, shares, initial_deposit, deposit_timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`, record.ShareID, poolID, lpAddress, record.Shares, record.InitialDeposit, record.DepositTimestamp)
	if err != nil {
		return nil, fmt.Errorf("failed to insert share record: %w", err)
	}

	if err := savePoolTx(ctx, tx, res.Pool); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ledger (address, amount, source_type, description)
		VALUES (?, ?, ?, ?)
	`, lpAddress, -int64(amount), SourceLPDeposit,
		fmt.Sprintf("LP deposit of %d into %s (%d shares minted)", amount, poolID, res.SharesMinted))
	if err != nil {
		return nil, fmt.Errorf("failed to insert deposit ledger entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &record, nil
}

// WithdrawLiquidity burns shares from one share record and pays out the net
// redemption amount, all inside one serialized transaction.
func WithdrawLiquidity(ctx context.Context, poolID, shareID, lpAddress string, sharesToBurn uint64) (*engine.WithdrawResult, error) {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	pool, err := getPoolTx(ctx, tx, poolID)
	if err != nil {
		return nil, err
	}

	var record engine.ShareRecord
	err = tx.QueryRowContext(ctx, `
		SELECT share_id, lp_address, shares, initial_deposit, total_withdrawn, deposit_timestamp
		FROM lp_shares
		WHERE share_id = ? AND pool_id = ? AND lp_address = ?
	`, shareID, poolID, lpAddress).Scan(
		&record.ShareID, &record.LPAddress, &record.Shares,
		&record.InitialDeposit, &record.TotalWithdrawn, &record.DepositTimestamp,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: share record not found", engine.ErrInvalidWithdrawal)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get share record: %w", err)
	}

	res, err := engine.Withdraw(*pool, record, sharesToBurn)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE lp_shares
		SET shares = ?, total_withdrawn = ?
		WHERE share_id = ?
	`, res.Record.Shares, res.Record.TotalWithdrawn, shareID)
	if err != nil {
		return nil, fmt.Errorf("failed to update share record: %w", err)
	}

	if err := savePoolTx(ctx, tx, res.Pool); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ledger (address, amount, source_type, description)
		VALUES (?, ?, ?, ?)
	`, lpAddress, int64(res.Net), SourceLPWithdraw,
		fmt.Sprintf("LP withdrawal of %d shares from %s (net %d, fee %d)", sharesToBurn, poolID, res.Net, res.Fee))
	if err != nil {
		return nil, fmt.Errorf("failed to insert withdrawal ledger entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &res, nil
}

// GetShareRecords returns all of an address's share records in a pool.
func GetShareRecords(poolID, lpAddress string) ([]engine.ShareRecord, error) {
	rows, err := db.Query(`
		SELECT share_id, lp_address, shares, initial_deposit, total_withdrawn, deposit_timestamp
		FROM lp_shares
		WHERE pool_id = ? AND lp_address = ?
		ORDER BY deposit_timestamp
	`, poolID, lpAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to query share records: %w", err)
	}
	defer rows.Close()

	var records []engine.ShareRecord
	for rows.Next() {
		var r engine.ShareRecord
		if err := rows.Scan(&r.ShareID, &r.LPAddress, &r.Shares, &r.InitialDeposit, &r.TotalWithdrawn, &r.DepositTimestamp); err != nil {
			return nil, fmt.Errorf("failed to scan share record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func getPoolTx(ctx context.Context, tx *sql.Tx, poolID string) (*engine.Pool, error) {
	var p engine.Pool
	err := tx.QueryRowContext(ctx, `
		SELECT pool_id, total_liquidity, total_bets_in_play, total_paid_out, total_collected,
		       protocol_revenue, house_balance, is_active, min_liquidity, total_shares
		FROM pools
		WHERE pool_id = ?
	`, poolID).Scan(
		&p.PoolID, &p.TotalLiquidity, &p.TotalBetsInPlay, &p.TotalPaidOut, &p.TotalCollected,
		&p.ProtocolRevenue, &p.HouseBalance, &p.IsActive, &p.MinLiquidity, &p.TotalShares,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("pool %s not found", poolID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pool: %w", err)
	}
	return &p, nil
}

func savePoolTx(ctx context.Context, tx *sql.Tx, p engine.Pool) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE pools
		SET total_liquidity = ?, total_bets_in_play = ?, total_paid_out = ?, total_collected = ?,
		    protocol_revenue = ?, house_balance = ?, is_active = ?, total_shares = ?
		WHERE pool_id = ?
	`, p.TotalLiquidity, p.TotalBetsInPlay, p.TotalPaidOut, p.TotalCollected,
		p.ProtocolRevenue, p.HouseBalance, p.IsActive, p.TotalShares, p.PoolID)
	if err != nil {
		return fmt.Errorf("failed to update pool: %w", err)
	}
	return nil
}
