package storage

import (
	"context"
	"errors"
	"testing"

	"leaguebet/internal/engine"
)

func setupTestDB(t *testing.T) {
	// Use in-memory database for tests
	if err := InitDB(":memory:"); err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}
}

func cleanupTestDB(t *testing.T) {
	CloseDB()
}

func testMatch(id string) *Match {
	return &Match{
		MatchID:  id,
		SeasonID: "pl-2024",
		Turn:     1,
		HomeTeam: "Liverpool",
		AwayTeam: "Everton",
		HomeOdds: 14000,
		AwayOdds: 32000,
		DrawOdds: 28000,
	}
}

func TestCreateAndGetMatch(t *testing.T) {
	setupTestDB(t)
	defer cleanupTestDB(t)

	if err := CreateMatch(testMatch("m1")); err != nil {
		t.Fatalf("CreateMatch failed: %v", err)
	}

	m, err := GetMatch("m1")
	if err != nil {
		t.Fatalf("GetMatch failed: %v", err)
	}
	if m == nil {
		t.Fatal("Expected match, got nil")
	}
	if m.HomeTeam != "Liverpool" || m.AwayTeam != "Everton" {
		t.Errorf("Unexpected teams: %s vs %s", m.HomeTeam, m.AwayTeam)
	}
	if m.Result != engine.ResultPending {
		t.Errorf("Expected pending result, got %s", m.Result)
	}
	if m.RoundID() != "pl-2024:1" {
		t.Errorf("Expected round pl-2024:1, got %s", m.RoundID())
	}

	missing, err := GetMatch("nope")
	if err != nil {
		t.Fatalf("GetMatch failed: %v", err)
	}
	if missing != nil {
		t.Error("Expected nil for missing match")
	}
}

func TestCreateMatchValidation(t *testing.T) {
	setupTestDB(t)
	defer cleanupTestDB(t)

	m := testMatch("m1")
	m.HomeTeam = "Real Madrid"
	if err := CreateMatch(m); err == nil {
		t.Error("Expected error for team outside the table")
	}

	m = testMatch("m2")
	m.HomeOdds = 9000
	if err := CreateMatch(m); err == nil {
		t.Error("Expected error for odds below 1.0x")
	}

	m = testMatch("m3")
	m.DrawOdds = 150000
	if err := CreateMatch(m); err == nil {
		t.Error("Expected error for odds above 10.0x")
	}

	m = testMatch("m4")
	m.HomeTeam = "Liverpool"
	m.AwayTeam = "Liverpool"
	if err := CreateMatch(m); err == nil {
		t.Error("Expected error for a team playing itself")
	}
}

func TestResolveMatchOnce(t *testing.T) {
	setupTestDB(t)
	defer cleanupTestDB(t)

	CreateMatch(testMatch("m1"))

	if err := ResolveMatch("m1", engine.ResultDraw); err != nil {
		t.Fatalf("ResolveMatch failed: %v", err)
	}
	m, _ := GetMatch("m1")
	if m.Result != engine.ResultDraw {
		t.Errorf("Expected Draw, got %s", m.Result)
	}

	// Terminal results are immutable.
	if err := ResolveMatch("m1", engine.ResultHomeWin); err == nil {
		t.Error("Expected error resolving an already resolved match")
	}
	m, _ = GetMatch("m1")
	if m.Result != engine.ResultDraw {
		t.Errorf("Result changed after second resolve: %s", m.Result)
	}
}

func TestLockMatchOdds(t *testing.T) {
	setupTestDB(t)
	defer cleanupTestDB(t)

	CreateMatch(testMatch("m1"))

	lo := LockedOdds{HomeOdds: 13000, AwayOdds: 19000, DrawOdds: 15000, Locked: true}
	if err := LockMatchOdds("m1", lo); err != nil {
		t.Fatalf("LockMatchOdds failed: %v", err)
	}

	m, _ := GetMatch("m1")
	if m.Locked == nil || !m.Locked.Locked {
		t.Fatal("Expected locked odds on match")
	}
	// Locked odds override the dynamic odds.
	if got := m.OddsFor(engine.ResultHomeWin); got != 13000 {
		t.Errorf("Expected locked home odds 13000, got %d", got)
	}

	// Locking twice fails.
	if err := LockMatchOdds("m1", lo); err == nil {
		t.Error("Expected error locking odds twice")
	}

	// Out-of-band locked odds are rejected.
	CreateMatch(testMatch("m2"))
	bad := LockedOdds{HomeOdds: 12000, AwayOdds: 19000, DrawOdds: 15000, Locked: true}
	if err := LockMatchOdds("m2", bad); err == nil {
		t.Error("Expected error for locked odds below the band")
	}
}

func TestSetMatchSeed(t *testing.T) {
	setupTestDB(t)
	defer cleanupTestDB(t)

	CreateMatch(testMatch("m1"))

	if err := SetMatchSeed("m1", "0xfeed"); err != nil {
		t.Fatalf("SetMatchSeed failed: %v", err)
	}

	matches, err := ListPendingMatchesWithSeed()
	if err != nil {
		t.Fatalf("ListPendingMatchesWithSeed failed: %v", err)
	}
	if len(matches) != 1 || matches[0].MatchID != "m1" {
		t.Fatalf("Expected one seeded pending match, got %d", len(matches))
	}
	if matches[0].RandomSeed != "0xfeed" {
		t.Errorf("Expected seed 0xfeed, got %s", matches[0].RandomSeed)
	}

	// Resolved matches drop out of the seeded-pending list.
	ResolveMatch("m1", engine.ResultHomeWin)
	matches, _ = ListPendingMatchesWithSeed()
	if len(matches) != 0 {
		t.Errorf("Expected no seeded pending matches, got %d", len(matches))
	}
}

func createStoragePool(t *testing.T, poolID string, seed uint64) {
	err := CreatePool(context.Background(), engine.Pool{
		PoolID:         poolID,
		TotalLiquidity: seed,
		IsActive:       true,
		MinLiquidity:   100_000,
	}, "creator_address")
	if err != nil {
		t.Fatalf("CreatePool failed: %v", err)
	}
}

func TestPlaceBetslip(t *testing.T) {
	setupTestDB(t)
	defer cleanupTestDB(t)

	ctx := context.Background()
	createStoragePool(t, "p1", 1_000_000)
	CreateMatch(testMatch("m1"))

	slip := &Betslip{
		SlipID:     "slip-1",
		Bettor:     "bettor_a",
		BetType:    engine.Single,
		Legs:       []engine.Leg{{MatchID: "m1", Prediction: engine.ResultHomeWin, Odds: 14000}},
		TotalStake: 1000,
	}
	if err := PlaceBetslip(ctx, "p1", slip); err != nil {
		t.Fatalf("PlaceBetslip failed: %v", err)
	}

	got, err := GetBetslip("slip-1")
	if err != nil {
		t.Fatalf("GetBetslip failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected betslip, got nil")
	}
	if got.BetType != engine.Single {
		t.Errorf("Expected Single, got %s", got.BetType)
	}
	if len(got.Legs) != 1 || got.Legs[0].MatchID != "m1" {
		t.Errorf("Legs did not round-trip: %+v", got.Legs)
	}
	if got.LockedMultiplier != engine.OddsScale {
		t.Errorf("Expected neutral multiplier for a single, got %d", got.LockedMultiplier)
	}
	if got.Settled {
		t.Error("New betslip should not be settled")
	}

	pool, _ := GetPool("p1")
	if pool.TotalLiquidity != 1_001_000 {
		t.Errorf("Expected liquidity 1001000, got %d", pool.TotalLiquidity)
	}
	if pool.TotalBetsInPlay != 1000 {
		t.Errorf("Expected bets in play 1000, got %d", pool.TotalBetsInPlay)
	}
	if pool.TotalCollected != 1000 {
		t.Errorf("Expected total collected 1000, got %d", pool.TotalCollected)
	}
}

func TestPlaceBetslipParlayLocksMultiplier(t *testing.T) {
	setupTestDB(t)
	defer cleanupTestDB(t)

	ctx := context.Background()
	createStoragePool(t, "p1", 1_000_000)
	CreateMatch(testMatch("m1"))
	m2 := testMatch("m2")
	m2.HomeTeam = "Chelsea"
	m2.AwayTeam = "Fulham"
	CreateMatch(m2)

	slip := &Betslip{
		SlipID:  "slip-1",
		Bettor:  "bettor_a",
		BetType: engine.Parlay,
		Legs: []engine.Leg{
			{MatchID: "m1", Prediction: engine.ResultHomeWin, Odds: 14000},
			{MatchID: "m2", Prediction: engine.ResultAwayWin, Odds: 32000},
		},
		TotalStake: 2000,
	}
	if err := PlaceBetslip(ctx, "p1", slip); err != nil {
		t.Fatalf("PlaceBetslip failed: %v", err)
	}

	got, _ := GetBetslip("slip-1")
	if got.LockedMultiplier != 10500 {
		t.Errorf("Expected 2-leg multiplier 10500, got %d", got.LockedMultiplier)
	}
	if len(got.Allocations) != 2 {
		t.Fatalf("Expected 2 allocations, got %d", len(got.Allocations))
	}
}

func TestPlaceBetslipRejections(t *testing.T) {
	setupTestDB(t)
	defer cleanupTestDB(t)

	ctx := context.Background()
	createStoragePool(t, "p1", 1_000_000)
	CreateMatch(testMatch("m1"))

	// Stale odds.
	err := PlaceBetslip(ctx, "p1", &Betslip{
		SlipID:     "s1",
		Bettor:     "b",
		BetType:    engine.Single,
		Legs:       []engine.Leg{{MatchID: "m1", Prediction: engine.ResultHomeWin, Odds: 15000}},
		TotalStake: 1000,
	})
	if !errors.Is(err, engine.ErrInvalidBetslip) {
		t.Errorf("Expected ErrInvalidBetslip for stale odds, got %v", err)
	}

	// Unknown match.
	err = PlaceBetslip(ctx, "p1", &Betslip{
		SlipID:     "s2",
		Bettor:     "b",
		BetType:    engine.Single,
		Legs:       []engine.Leg{{MatchID: "ghost", Prediction: engine.ResultHomeWin, Odds: 14000}},
		TotalStake: 1000,
	})
	if !errors.Is(err, engine.ErrInvalidBetslip) {
		t.Errorf("Expected ErrInvalidBetslip for unknown match, got %v", err)
	}

	// Resolved match.
	ResolveMatch("m1", engine.ResultHomeWin)
	err = PlaceBetslip(ctx, "p1", &Betslip{
		SlipID:     "s3",
		Bettor:     "b",
		BetType:    engine.Single,
		Legs:       []engine.Leg{{MatchID: "m1", Prediction: engine.ResultHomeWin, Odds: 14000}},
		TotalStake: 1000,
	})
	if !errors.Is(err, engine.ErrInvalidBetslip) {
		t.Errorf("Expected ErrInvalidBetslip for resolved match, got %v", err)
	}

	// Stake bounds.
	err = PlaceBetslip(ctx, "p1", &Betslip{
		SlipID:     "s4",
		Bettor:     "b",
		BetType:    engine.Single,
		Legs:       []engine.Leg{{MatchID: "m1", Prediction: engine.ResultHomeWin, Odds: 14000}},
		TotalStake: 50,
	})
	if !errors.Is(err, engine.ErrStakeOutOfRange) {
		t.Errorf("Expected ErrStakeOutOfRange, got %v", err)
	}
}

func TestPlaceBetslipInactivePool(t *testing.T) {
	setupTestDB(t)
	defer cleanupTestDB(t)

	ctx := context.Background()
	err := CreatePool(ctx, engine.Pool{
		PoolID:         "p1",
		TotalLiquidity: 1_000_000,
		IsActive:       false,
		MinLiquidity:   100_000,
	}, "creator_address")
	if err != nil {
		t.Fatalf("CreatePool failed: %v", err)
	}
	CreateMatch(testMatch("m1"))

	err = PlaceBetslip(ctx, "p1", &Betslip{
		SlipID:     "s1",
		Bettor:     "b",
		BetType:    engine.Single,
		Legs:       []engine.Leg{{MatchID: "m1", Prediction: engine.ResultHomeWin, Odds: 14000}},
		TotalStake: 1000,
	})
	if !errors.Is(err, engine.ErrPoolInactive) {
		t.Errorf("Expected ErrPoolInactive, got %v", err)
	}
}

func TestListBetslipsByBettor(t *testing.T) {
	setupTestDB(t)
	defer cleanupTestDB(t)

	ctx := context.Background()
	createStoragePool(t, "p1", 1_000_000)
	CreateMatch(testMatch("m1"))

	for _, id := range []string{"s1", "s2"} {
		err := PlaceBetslip(ctx, "p1", &Betslip{
			SlipID:     id,
			Bettor:     "bettor_a",
			BetType:    engine.Single,
			Legs:       []engine.Leg{{MatchID: "m1", Prediction: engine.ResultHomeWin, Odds: 14000}},
			TotalStake: 1000,
		})
		if err != nil {
			t.Fatalf("PlaceBetslip %s failed: %v", id, err)
		}
	}

	slips, err := ListBetslipsByBettor("bettor_a")
	if err != nil {
		t.Fatalf("ListBetslipsByBettor failed: %v", err)
	}
	if len(slips) != 2 {
		t.Errorf("Expected 2 slips, got %d", len(slips))
	}

	none, _ := ListBetslipsByBettor("nobody")
	if len(none) != 0 {
		t.Errorf("Expected no slips, got %d", len(none))
	}
}

func TestDepositAndWithdrawLiquidity(t *testing.T) {
	setupTestDB(t)
	defer cleanupTestDB(t)

	ctx := context.Background()
	createStoragePool(t, "p1", 1_000_000)

	rec, err := DepositLiquidity(ctx, "p1", "lp_a", 500_000)
	if err != nil {
		t.Fatalf("DepositLiquidity failed: %v", err)
	}
	if rec.Shares != 500_000 {
		t.Errorf("Expected 500000 shares minted, got %d", rec.Shares)
	}

	pool, _ := GetPool("p1")
	if pool.TotalLiquidity != 1_500_000 {
		t.Errorf("Expected liquidity 1500000, got %d", pool.TotalLiquidity)
	}
	if pool.TotalShares != 1_500_000 {
		t.Errorf("Expected shares 1500000, got %d", pool.TotalShares)
	}

	res, err := WithdrawLiquidity(ctx, "p1", rec.ShareID, "lp_a", 500_000)
	if err != nil {
		t.Fatalf("WithdrawLiquidity failed: %v", err)
	}
	if res.Gross != 500_000 {
		t.Errorf("Expected gross 500000, got %d", res.Gross)
	}
	if res.Fee != 2500 {
		t.Errorf("Expected fee 2500, got %d", res.Fee)
	}
	if res.Net != 497_500 {
		t.Errorf("Expected net 497500, got %d", res.Net)
	}

	// The fee stays in the pool.
	pool, _ = GetPool("p1")
	if pool.TotalLiquidity != 1_002_500 {
		t.Errorf("Expected liquidity 1002500, got %d", pool.TotalLiquidity)
	}
	if pool.TotalShares != 1_000_000 {
		t.Errorf("Expected shares 1000000, got %d", pool.TotalShares)
	}

	records, _ := GetShareRecords("p1", "lp_a")
	for _, r := range records {
		if r.ShareID == rec.ShareID && r.Shares != 0 {
			t.Errorf("Expected share record drained, got %d shares", r.Shares)
		}
	}
}

func TestWithdrawWrongOwner(t *testing.T) {
	setupTestDB(t)
	defer cleanupTestDB(t)

	ctx := context.Background()
	createStoragePool(t, "p1", 1_000_000)

	rec, err := DepositLiquidity(ctx, "p1", "lp_a", 500_000)
	if err != nil {
		t.Fatalf("DepositLiquidity failed: %v", err)
	}

	if _, err := WithdrawLiquidity(ctx, "p1", rec.ShareID, "lp_b", 100_000); err == nil {
		t.Error("Expected error withdrawing someone else's shares")
	}
}

func TestLedgerEntries(t *testing.T) {
	setupTestDB(t)
	defer cleanupTestDB(t)

	if err := AddLedgerEntry("addr_a", -1000, SourceStake, "Stake for betslip s1"); err != nil {
		t.Fatalf("AddLedgerEntry failed: %v", err)
	}
	if err := AddLedgerEntry("addr_a", 1728, SourceWinPayout, "Win payout for betslip s1"); err != nil {
		t.Fatalf("AddLedgerEntry failed: %v", err)
	}
	if err := AddLedgerEntry("addr_b", -500, SourceStake, "Stake for betslip s2"); err != nil {
		t.Fatalf("AddLedgerEntry failed: %v", err)
	}

	entries, err := ListLedgerEntries("addr_a", 10)
	if err != nil {
		t.Fatalf("ListLedgerEntries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	var sum int64
	for _, e := range entries {
		sum += e.Amount
	}
	if sum != 728 {
		t.Errorf("Expected net 728, got %d", sum)
	}
}
