package storage

import (
	"database/sql"
	"fmt"

	"leaguebet/internal/engine"
)

// CreateMatch inserts a new pending match after validating teams and odds.
func CreateMatch(m *Match) error {
	if !ValidTeam(m.HomeTeam) || !ValidTeam(m.AwayTeam) {
		return fmt.Errorf("unknown team in match %s", m.MatchID)
	}
	if m.HomeTeam == m.AwayTeam {
		return fmt.Errorf("match %s: home and away team are the same", m.MatchID)
	}
	for _, odds := range []uint64{m.HomeOdds, m.AwayOdds, m.DrawOdds} {
		if odds < engine.MinMatchOdds || odds > engine.MaxMatchOdds {
			return fmt.Errorf("match %s: odds %d out of range", m.MatchID, odds)
		}
	}

	_, err := db.Exec(`
		INSERT INTO matches (match_id, season_id, turn, home_team, away_team, home_odds, away_odds, draw_odds, result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'Pending')
	`, m.MatchID, m.SeasonID, m.Turn, m.HomeTeam, m.AwayTeam, m.HomeOdds, m.AwayOdds, m.DrawOdds)
	if err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}
	return nil
}

// GetMatch retrieves a match by id. Returns nil when not found.
func GetMatch(matchID string) (*Match, error) {
	row := db.QueryRow(`
		SELECT match_id, season_id, turn, home_team, away_team, home_odds, away_odds, draw_odds,
		       result, random_seed, locked_home, locked_away, locked_draw, locked, created_at
		FROM matches
		WHERE match_id = ?
	`, matchID)

	m, err := scanMatch(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return m, nil
}

// ListMatches returns matches newest turn first, optionally filtered to one
// season. An empty seasonID lists everything.
func ListMatches(seasonID string) ([]*Match, error) {
	rows, err := db.Query(`
		SELECT match_id, season_id, turn, home_team, away_team, home_odds, away_odds, draw_odds,
		       result, random_seed, locked_home, locked_away, locked_draw, locked, created_at
		FROM matches
		WHERE (? = '' OR season_id = ?)
		ORDER BY turn DESC, match_id
	`, seasonID, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	var matches []*Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// ListPendingMatchesWithSeed returns matches that have a random seed set but
// are still awaiting resolution.
func ListPendingMatchesWithSeed() ([]*Match, error) {
	rows, err := db.Query(`
		SELECT match_id, season_id, turn, home_team, away_team, home_odds, away_odds, draw_odds,
		       result, random_seed, locked_home, locked_away, locked_draw, locked, created_at
		FROM matches
		WHERE result = 'Pending' AND random_seed IS NOT NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending matches: %w", err)
	}
	defer rows.Close()

	var matches []*Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// SetMatchSeed records the externally supplied randomness for a pending match.
func SetMatchSeed(matchID, seed string) error {
	res, err := db.Exec(`
		UPDATE matches
		SET random_seed = ?
		WHERE match_id = ? AND result = 'Pending'
	`, seed, matchID)
	if err != nil {
		return fmt.Errorf("failed to set match seed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("match %s not found or already resolved", matchID)
	}
	return nil
}

// ResolveMatch transitions a match from Pending to a terminal result. The
// transition happens exactly once; a second call is an error.
func ResolveMatch(matchID string, result engine.MatchResult) error {
	if !result.Terminal() {
		return fmt.Errorf("invalid terminal result %q", result)
	}
	res, err := db.Exec(`
		UPDATE matches
		SET result = ?
		WHERE match_id = ? AND result = 'Pending'
	`, string(result), matchID)
	if err != nil {
		return fmt.Errorf("failed to resolve match: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("match %s not found or already resolved", matchID)
	}
	return nil
}

// LockMatchOdds fixes the match's odds inside the locked band. Once locked
// they are immutable for the match's remaining lifetime.
func LockMatchOdds(matchID string, lo LockedOdds) error {
	for _, odds := range []uint64{lo.HomeOdds, lo.AwayOdds, lo.DrawOdds} {
		if odds < engine.MinLockedOdds || odds > engine.MaxLockedOdds {
			return fmt.Errorf("locked odds %d outside [%d, %d]", odds, engine.MinLockedOdds, engine.MaxLockedOdds)
		}
	}
	res, err := db.Exec(`
		UPDATE matches
		SET locked_home = ?, locked_away = ?, locked_draw = ?, locked = 1
		WHERE match_id = ? AND locked = 0 AND result = 'Pending'
	`, lo.HomeOdds, lo.AwayOdds, lo.DrawOdds, matchID)
	if err != nil {
		return fmt.Errorf("failed to lock odds: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("match %s not found, already locked, or resolved", matchID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatch(row rowScanner) (*Match, error) {
	var m Match
	var seed sql.NullString
	var lockedHome, lockedAway, lockedDraw sql.NullInt64
	var locked bool
	var result string

	err := row.Scan(
		&m.MatchID, &m.SeasonID, &m.Turn, &m.HomeTeam, &m.AwayTeam,
		&m.HomeOdds, &m.AwayOdds, &m.DrawOdds,
		&result, &seed, &lockedHome, &lockedAway, &lockedDraw, &locked, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.Result = engine.MatchResult(result)
	if seed.Valid {
		m.RandomSeed = seed.String
	}
	if locked {
		m.Locked = &LockedOdds{
			HomeOdds: uint64(lockedHome.Int64),
			AwayOdds: uint64(lockedAway.Int64),
			DrawOdds: uint64(lockedDraw.Int64),
			Locked:   true,
		}
	}
	return &m, nil
}
