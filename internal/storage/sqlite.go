package storage

import (
	"database/sql"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite"
)

var db *sql.DB

// InitDB initializes the SQLite database connection with WAL mode
func InitDB(dbPath string) error {
	var err error

	absPath := dbPath
	if dbPath != ":memory:" {
		absPath, err = filepath.Abs(dbPath)
		if err != nil {
			return err
		}
	}

	db, err = sql.Open("sqlite", absPath)
	if err != nil {
		return err
	}

	// Enable WAL mode for better concurrency
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		return err
	}

	// Serialized pool and settlement updates rely on a single connection.
	db.SetMaxOpenConns(1)

	if err := runMigrations(); err != nil {
		return err
	}

	return nil
}

// DB returns the database connection
func DB() *sql.DB {
	return db
}

// runMigrations creates the necessary tables
func runMigrations() error {
	matchesTable := `
		CREATE TABLE IF NOT EXISTS matches (
			match_id TEXT PRIMARY KEY,
			season_id TEXT NOT NULL,
			turn INTEGER NOT NULL,
			home_team TEXT NOT NULL,
			away_team TEXT NOT NULL,
			home_odds INTEGER NOT NULL,
			away_odds INTEGER NOT NULL,
			draw_odds INTEGER NOT NULL,
			result TEXT NOT NULL DEFAULT 'Pending',
			random_seed TEXT,
			locked_home INTEGER,
			locked_away INTEGER,
			locked_draw INTEGER,
			locked INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`

	betslipsTable := `
		CREATE TABLE IF NOT EXISTS betslips (
			slip_id TEXT PRIMARY KEY,
			bettor TEXT NOT NULL,
			bet_type TEXT NOT NULL,
			legs TEXT NOT NULL,
			total_stake INTEGER NOT NULL,
			badges TEXT NOT NULL DEFAULT '[]',
			settled INTEGER NOT NULL DEFAULT 0,
			payout_amount INTEGER NOT NULL DEFAULT 0,
			remainder INTEGER NOT NULL DEFAULT 0,
			allocations TEXT NOT NULL DEFAULT '[]',
			locked_multiplier INTEGER NOT NULL DEFAULT 10000,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			settled_at DATETIME
		)
	`

	poolsTable := `
		CREATE TABLE IF NOT EXISTS pools (
			pool_id TEXT PRIMARY KEY,
			total_liquidity INTEGER NOT NULL DEFAULT 0,
			total_bets_in_play INTEGER NOT NULL DEFAULT 0,
			total_paid_out INTEGER NOT NULL DEFAULT 0,
			total_collected INTEGER NOT NULL DEFAULT 0,
			protocol_revenue INTEGER NOT NULL DEFAULT 0,
			house_balance INTEGER NOT NULL DEFAULT 0,
			is_active INTEGER NOT NULL DEFAULT 1,
			min_liquidity INTEGER NOT NULL DEFAULT 0,
			total_shares INTEGER NOT NULL DEFAULT 0
		)
	`

	sharesTable := `
		CREATE TABLE IF NOT EXISTS lp_shares (
			share_id TEXT PRIMARY KEY,
			pool_id TEXT NOT NULL,
			lp_address TEXT NOT NULL,
			shares INTEGER NOT NULL,
			initial_deposit INTEGER NOT NULL,
			total_withdrawn INTEGER NOT NULL DEFAULT 0,
			deposit_timestamp INTEGER NOT NULL,
			FOREIGN KEY (pool_id) REFERENCES pools(pool_id)
		)
	`

	roundsTable := `
		CREATE TABLE IF NOT EXISTS round_payouts (
			round_id TEXT PRIMARY KEY,
			total_paid INTEGER NOT NULL DEFAULT 0
		)
	`

	ledgerTable := `
		CREATE TABLE IF NOT EXISTS ledger (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			address TEXT NOT NULL,
			amount INTEGER NOT NULL,
			source_type TEXT NOT NULL,
			description TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`

	createIndexes := `
		CREATE INDEX IF NOT EXISTS idx_betslips_bettor ON betslips(bettor);
		CREATE INDEX IF NOT EXISTS idx_betslips_settled ON betslips(settled);
		CREATE INDEX IF NOT EXISTS idx_matches_season_turn ON matches(season_id, turn);
		CREATE INDEX IF NOT EXISTS idx_lp_shares_address ON lp_shares(pool_id, lp_address);
		CREATE INDEX IF NOT EXISTS idx_ledger_address ON ledger(address);
	`

	for _, stmt := range []string{matchesTable, betslipsTable, poolsTable, sharesTable, roundsTable, ledgerTable, createIndexes} {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}

// CloseDB closes the database connection
func CloseDB() error {
	if db != nil {
		return db.Close()
	}
	return nil
}

// AddLedgerEntry appends one balance-affecting event for an address.
func AddLedgerEntry(address string, amount int64, sourceType, description string) error {
	_, err := db.Exec(`
		INSERT INTO ledger (address, amount, source_type, description)
		VALUES (?, ?, ?, ?)
	`, address, amount, sourceType, description)
	if err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	return nil
}

// ListLedgerEntries returns the most recent entries for an address.
func ListLedgerEntries(address string, limit int) ([]LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT id, address, amount, source_type, description, created_at
		FROM ledger
		WHERE address = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, address, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	var entries []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		var desc sql.NullString
		if err := rows.Scan(&e.ID, &e.Address, &e.Amount, &e.SourceType, &desc, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		if desc.Valid {
			e.Description = desc.String
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func roundID(seasonID string, turn int) string {
	return fmt.Sprintf("%s:%d", seasonID, turn)
}
