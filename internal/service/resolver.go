package service

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"leaguebet/internal/engine"
	"leaguebet/internal/logger"
	"leaguebet/internal/storage"
)

// ResultFromSeed derives a match result from the externally supplied
// randomness and the match id. Outcomes split 45/30/25 between home win,
// draw and away win.
func ResultFromSeed(seed, matchID string) engine.MatchResult {
	h := sha256.New()
	h.Write([]byte(seed))
	h.Write([]byte(matchID))
	sum := h.Sum(nil)

	value := binary.BigEndian.Uint32(sum[:4]) % 100
	switch {
	case value < 45:
		return engine.ResultHomeWin
	case value < 75:
		return engine.ResultDraw
	default:
		return engine.ResultAwayWin
	}
}

// ResolveDueMatches resolves every pending match that has received its
// random seed, returning how many were resolved. The notifier may be nil.
func ResolveDueMatches(notifier *Notifier) (int, error) {
	matches, err := storage.ListPendingMatchesWithSeed()
	if err != nil {
		return 0, fmt.Errorf("failed to list pending matches: %w", err)
	}

	resolved := 0
	for _, m := range matches {
		result := ResultFromSeed(m.RandomSeed, m.MatchID)
		if err := storage.ResolveMatch(m.MatchID, result); err != nil {
			logger.Debug("", "match_resolve_failed", fmt.Sprintf("match_id=%s error=%s", m.MatchID, err.Error()))
			continue
		}
		logger.Debug("", "match_resolved", fmt.Sprintf("match_id=%s result=%s", m.MatchID, result))
		resolved++

		if notifier != nil {
			m.Result = result
			notifier.NotifyMatchResult(m)
		}
	}
	return resolved, nil
}
