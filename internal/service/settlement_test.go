package service

import (
	"context"
	"errors"
	"testing"

	"leaguebet/internal/engine"
	"leaguebet/internal/storage"
)

const testPoolID = "test_pool"

func setupTestDB(t *testing.T) {
	// Use in-memory database for tests
	if err := storage.InitDB(":memory:"); err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}
}

func cleanupTestDB(t *testing.T) {
	storage.CloseDB()
}

func createTestPool(t *testing.T, seedLiquidity uint64) {
	err := storage.CreatePool(context.Background(), engine.Pool{
		PoolID:         testPoolID,
		TotalLiquidity: seedLiquidity,
		IsActive:       true,
		MinLiquidity:   100_000,
	}, "creator_address")
	if err != nil {
		t.Fatalf("Failed to create pool: %v", err)
	}
}

func createTestMatch(t *testing.T, matchID string, turn int, homeOdds, awayOdds, drawOdds uint64) {
	err := storage.CreateMatch(&storage.Match{
		MatchID:  matchID,
		SeasonID: "pl-2024",
		Turn:     turn,
		HomeTeam: "Arsenal",
		AwayTeam: "Chelsea",
		HomeOdds: homeOdds,
		AwayOdds: awayOdds,
		DrawOdds: drawOdds,
	})
	if err != nil {
		t.Fatalf("Failed to create match %s: %v", matchID, err)
	}
}

func placeTestSlip(t *testing.T, slip *storage.Betslip) {
	if err := storage.PlaceBetslip(context.Background(), testPoolID, slip); err != nil {
		t.Fatalf("Failed to place betslip %s: %v", slip.SlipID, err)
	}
}

func TestSettleSingleWin(t *testing.T) {
	setupTestDB(t)
	defer cleanupTestDB(t)

	ctx := context.Background()
	createTestPool(t, 5_000_000)
	createTestMatch(t, "m1", 1, 18000, 22000, 30000)

	placeTestSlip(t, &storage.Betslip{
		SlipID:     "slip-1",
		Bettor:     "bettor_a",
		BetType:    engine.Single,
		Legs:       []engine.Leg{{MatchID: "m1", Prediction: engine.ResultHomeWin, Odds: 18000}},
		TotalStake: 1000,
	})

	if err := storage.ResolveMatch("m1", engine.ResultHomeWin); err != nil {
		t.Fatalf("Failed to resolve match: %v", err)
	}

	svc := NewSettlementService(testPoolID)
	payout, err := svc.SettleBetslip(ctx, "slip-1")
	if err != nil {
		t.Fatalf("SettleBetslip failed: %v", err)
	}
	if payout != 1728 {
		t.Errorf("Expected payout 1728, got %d", payout)
	}

	slip, err := storage.GetBetslip("slip-1")
	if err != nil {
		t.Fatalf("Failed to get betslip: %v", err)
	}
	if !slip.Settled {
		t.Error("Expected betslip to be settled")
	}
	if slip.PayoutAmount != 1728 {
		t.Errorf("Expected stored payout 1728, got %d", slip.PayoutAmount)
	}
	if slip.SettledAt == nil {
		t.Error("Expected settled_at timestamp to be set")
	}

	// Stake joined the pool at placement, payout and the protocol's slice
	// of the realized edge left it at settlement. Edge 72, protocol 1.
	pool, err := storage.GetPool(testPoolID)
	if err != nil {
		t.Fatalf("Failed to get pool: %v", err)
	}
	if want := uint64(5_000_000 + 1000 - 1728 - 1); pool.TotalLiquidity != want {
		t.Errorf("Expected liquidity %d, got %d", want, pool.TotalLiquidity)
	}
	if pool.TotalPaidOut != 1728 {
		t.Errorf("Expected total_paid_out 1728, got %d", pool.TotalPaidOut)
	}
	if pool.ProtocolRevenue != 1 {
		t.Errorf("Expected protocol_revenue 1, got %d", pool.ProtocolRevenue)
	}
	if pool.TotalBetsInPlay != 0 {
		t.Errorf("Expected total_bets_in_play 0, got %d", pool.TotalBetsInPlay)
	}

	// Ledger: negative stake, positive payout.
	entries, err := storage.ListLedgerEntries("bettor_a", 10)
	if err != nil {
		t.Fatalf("Failed to list ledger entries: %v", err)
	}
	var sawStake, sawPayout bool
	for _, e := range entries {
		switch e.SourceType {
		case storage.SourceStake:
			sawStake = true
			if e.Amount != -1000 {
				t.Errorf("Expected stake entry -1000, got %d", e.Amount)
			}
		case storage.SourceWinPayout:
			sawPayout = true
			if e.Amount != 1728 {
				t.Errorf("Expected payout entry 1728, got %d", e.Amount)
			}
		}
	}
	if !sawStake || !sawPayout {
		t.Errorf("Expected stake and payout ledger entries, got stake=%v payout=%v", sawStake, sawPayout)
	}
}

func TestSettleSingleLoss(t *testing.T) {
	setupTestDB(t)
	defer cleanupTestDB(t)

	ctx := context.Background()
	createTestPool(t, 5_000_000)
	createTestMatch(t, "m1", 1, 18000, 22000, 30000)

	placeTestSlip(t, &storage.Betslip{
		SlipID:     "slip-1",
		Bettor:     "bettor_a",
		BetType:    engine.Single,
		Legs:       []engine.Leg{{MatchID: "m1", Prediction: engine.ResultHomeWin, Odds: 18000}},
		TotalStake: 1000,
	})

	if err := storage.ResolveMatch("m1", engine.ResultAwayWin); err != nil {
		t.Fatalf("Failed to resolve match: %v", err)
	}

	svc := NewSettlementService(testPoolID)
	payout, err := svc.SettleBetslip(ctx, "slip-1")
	if err != nil {
		t.Fatalf("SettleBetslip failed: %v", err)
	}
	if payout != 0 {
		t.Errorf("Expected payout 0 on a losing slip, got %d", payout)
	}

	slip, _ := storage.GetBetslip("slip-1")
	if !slip.Settled {
		t.Error("Expected losing betslip to be settled")
	}

	// The stake stays in the pool.
	pool, _ := storage.GetPool(testPoolID)
	if want := uint64(5_001_000); pool.TotalLiquidity != want {
		t.Errorf("Expected liquidity %d, got %d", want, pool.TotalLiquidity)
	}
	if pool.TotalBetsInPlay != 0 {
		t.Errorf("Expected total_bets_in_play 0, got %d", pool.TotalBetsInPlay)
	}
}

func TestSettleParlayWin(t *testing.T) {
	setupTestDB(t)
	defer cleanupTestDB(t)

	ctx := context.Background()
	createTestPool(t, 5_000_000)
	createTestMatch(t, "m1", 1, 18000, 22000, 30000)
	createTestMatch(t, "m2", 1, 22000, 18000, 30000)

	placeTestSlip(t, &storage.Betslip{
		SlipID:  "slip-1",
		Bettor:  "bettor_b",
		BetType: engine.Parlay,
		Legs: []engine.Leg{
			{MatchID: "m1", Prediction: engine.ResultHomeWin, Odds: 18000},
			{MatchID: "m2", Prediction: engine.ResultHomeWin, Odds: 22000},
		},
		TotalStake: 1000,
	})

	if err := storage.ResolveMatch("m1", engine.ResultHomeWin); err != nil {
		t.Fatalf("Failed to resolve m1: %v", err)
	}
	if err := storage.ResolveMatch("m2", engine.ResultHomeWin); err != nil {
		t.Fatalf("Failed to resolve m2: %v", err)
	}

	svc := NewSettlementService(testPoolID)
	payout, err := svc.SettleBetslip(ctx, "slip-1")
	if err != nil {
		t.Fatalf("SettleBetslip failed: %v", err)
	}
	if payout != 3991 {
		t.Errorf("Expected parlay payout 3991, got %d", payout)
	}
}

func TestSettleParlayOneLegLoses(t *testing.T) {
	setupTestDB(t)
	defer cleanupTestDB(t)

	ctx := context.Background()
	createTestPool(t, 5_000_000)
	createTestMatch(t, "m1", 1, 18000, 22000, 30000)
	createTestMatch(t, "m2", 1, 22000, 18000, 30000)

	placeTestSlip(t, &storage.Betslip{
		SlipID:  "slip-1",
		Bettor:  "bettor_b",
		BetType: engine.Parlay,
		Legs: []engine.Leg{
			{MatchID: "m1", Prediction: engine.ResultHomeWin, Odds: 18000},
			{MatchID: "m2", Prediction: engine.ResultHomeWin, Odds: 22000},
		},
		TotalStake: 1000,
	})

	storage.ResolveMatch("m1", engine.ResultHomeWin)
	storage.ResolveMatch("m2", engine.ResultDraw)

	svc := NewSettlementService(testPoolID)
	payout, err := svc.SettleBetslip(ctx, "slip-1")
	if err != nil {
		t.Fatalf("SettleBetslip failed: %v", err)
	}
	if payout != 0 {
		t.Errorf("Expected 0 payout when a parlay leg loses, got %d", payout)
	}
}

func TestSettleSystemBetRemainderRefund(t *testing.T) {
	setupTestDB(t)
	defer cleanupTestDB(t)

	ctx := context.Background()
	createTestPool(t, 5_000_000)
	createTestMatch(t, "m1", 1, 18000, 22000, 30000)
	createTestMatch(t, "m2", 1, 15000, 25000, 30000)

	placeTestSlip(t, &storage.Betslip{
		SlipID:  "slip-1",
		Bettor:  "bettor_c",
		BetType: engine.SystemBet,
		Legs: []engine.Leg{
			{MatchID: "m1", Prediction: engine.ResultHomeWin, Odds: 18000},
			{MatchID: "m2", Prediction: engine.ResultHomeWin, Odds: 15000},
		},
		TotalStake: 1001,
	})

	storage.ResolveMatch("m1", engine.ResultHomeWin)
	storage.ResolveMatch("m2", engine.ResultAwayWin)

	svc := NewSettlementService(testPoolID)
	payout, err := svc.SettleBetslip(ctx, "slip-1")
	if err != nil {
		t.Fatalf("SettleBetslip failed: %v", err)
	}
	// Winning leg: 500 * 17280 / 10000. The split remainder of 1 goes back
	// to the bettor as a refund.
	if payout != 864 {
		t.Errorf("Expected payout 864, got %d", payout)
	}

	slip, _ := storage.GetBetslip("slip-1")
	if slip.Remainder != 1 {
		t.Errorf("Expected remainder 1, got %d", slip.Remainder)
	}

	entries, err := storage.ListLedgerEntries("bettor_c", 10)
	if err != nil {
		t.Fatalf("Failed to list ledger entries: %v", err)
	}
	var sawRefund bool
	for _, e := range entries {
		if e.SourceType == storage.SourceRefund {
			sawRefund = true
			if e.Amount != 1 {
				t.Errorf("Expected refund entry 1, got %d", e.Amount)
			}
		}
	}
	if !sawRefund {
		t.Error("Expected a refund ledger entry for the split remainder")
	}
}

func TestSettleRoundCap(t *testing.T) {
	setupTestDB(t)
	defer cleanupTestDB(t)

	ctx := context.Background()
	createTestPool(t, 5_000_000)
	createTestMatch(t, "m1", 1, 18000, 22000, 30000)

	// A 600k stake at 1.8x pays over a million, well past the round cap.
	placeTestSlip(t, &storage.Betslip{
		SlipID:     "slip-1",
		Bettor:     "bettor_d",
		BetType:    engine.Single,
		Legs:       []engine.Leg{{MatchID: "m1", Prediction: engine.ResultHomeWin, Odds: 18000}},
		TotalStake: 600_000,
	})

	storage.ResolveMatch("m1", engine.ResultHomeWin)

	svc := NewSettlementService(testPoolID)
	_, err := svc.SettleBetslip(ctx, "slip-1")
	if !errors.Is(err, engine.ErrRoundCapExceeded) {
		t.Fatalf("Expected ErrRoundCapExceeded, got %v", err)
	}

	// Blocked slips stay unsettled.
	slip, _ := storage.GetBetslip("slip-1")
	if slip.Settled {
		t.Error("Expected betslip blocked by the round cap to stay unsettled")
	}
	pool, _ := storage.GetPool(testPoolID)
	if pool.TotalPaidOut != 0 {
		t.Errorf("Expected total_paid_out 0, got %d", pool.TotalPaidOut)
	}
}

func TestSettleTwiceFails(t *testing.T) {
	setupTestDB(t)
	defer cleanupTestDB(t)

	ctx := context.Background()
	createTestPool(t, 5_000_000)
	createTestMatch(t, "m1", 1, 18000, 22000, 30000)

	placeTestSlip(t, &storage.Betslip{
		SlipID:     "slip-1",
		Bettor:     "bettor_a",
		BetType:    engine.Single,
		Legs:       []engine.Leg{{MatchID: "m1", Prediction: engine.ResultHomeWin, Odds: 18000}},
		TotalStake: 1000,
	})
	storage.ResolveMatch("m1", engine.ResultHomeWin)

	svc := NewSettlementService(testPoolID)
	if _, err := svc.SettleBetslip(ctx, "slip-1"); err != nil {
		t.Fatalf("First settlement failed: %v", err)
	}
	if _, err := svc.SettleBetslip(ctx, "slip-1"); err == nil {
		t.Error("Expected second settlement of the same slip to fail")
	}
}

func TestSettleUnresolvedLegFails(t *testing.T) {
	setupTestDB(t)
	defer cleanupTestDB(t)

	ctx := context.Background()
	createTestPool(t, 5_000_000)
	createTestMatch(t, "m1", 1, 18000, 22000, 30000)

	placeTestSlip(t, &storage.Betslip{
		SlipID:     "slip-1",
		Bettor:     "bettor_a",
		BetType:    engine.Single,
		Legs:       []engine.Leg{{MatchID: "m1", Prediction: engine.ResultHomeWin, Odds: 18000}},
		TotalStake: 1000,
	})

	svc := NewSettlementService(testPoolID)
	if _, err := svc.SettleBetslip(ctx, "slip-1"); err == nil {
		t.Error("Expected settlement to fail while the match is pending")
	}
}

func TestSettleDueBetslips(t *testing.T) {
	setupTestDB(t)
	defer cleanupTestDB(t)

	ctx := context.Background()
	createTestPool(t, 5_000_000)
	createTestMatch(t, "m1", 1, 18000, 22000, 30000)
	createTestMatch(t, "m2", 2, 22000, 18000, 30000)

	placeTestSlip(t, &storage.Betslip{
		SlipID:     "slip-ready",
		Bettor:     "bettor_a",
		BetType:    engine.Single,
		Legs:       []engine.Leg{{MatchID: "m1", Prediction: engine.ResultHomeWin, Odds: 18000}},
		TotalStake: 1000,
	})
	placeTestSlip(t, &storage.Betslip{
		SlipID:     "slip-waiting",
		Bettor:     "bettor_b",
		BetType:    engine.Single,
		Legs:       []engine.Leg{{MatchID: "m2", Prediction: engine.ResultHomeWin, Odds: 22000}},
		TotalStake: 1000,
	})

	// Only the first match resolves.
	storage.ResolveMatch("m1", engine.ResultHomeWin)

	svc := NewSettlementService(testPoolID)
	settled, err := svc.SettleDueBetslips(ctx)
	if err != nil {
		t.Fatalf("SettleDueBetslips failed: %v", err)
	}
	if settled != 1 {
		t.Errorf("Expected 1 settled slip, got %d", settled)
	}

	ready, _ := storage.GetBetslip("slip-ready")
	if !ready.Settled {
		t.Error("Expected slip-ready to be settled")
	}
	waiting, _ := storage.GetBetslip("slip-waiting")
	if waiting.Settled {
		t.Error("Expected slip-waiting to stay unsettled")
	}
}

func TestSettleInsufficientLiquidity(t *testing.T) {
	setupTestDB(t)
	defer cleanupTestDB(t)

	ctx := context.Background()
	// 101k seed against a 100k floor: a 17280 payout cannot be covered.
	createTestPool(t, 101_000)
	createTestMatch(t, "m1", 1, 18000, 22000, 30000)

	placeTestSlip(t, &storage.Betslip{
		SlipID:     "slip-1",
		Bettor:     "bettor_a",
		BetType:    engine.Single,
		Legs:       []engine.Leg{{MatchID: "m1", Prediction: engine.ResultHomeWin, Odds: 18000}},
		TotalStake: 10_000,
	})
	storage.ResolveMatch("m1", engine.ResultHomeWin)

	svc := NewSettlementService(testPoolID)
	_, err := svc.SettleBetslip(ctx, "slip-1")
	if !errors.Is(err, engine.ErrInsufficientLiquidity) {
		t.Fatalf("Expected ErrInsufficientLiquidity, got %v", err)
	}

	// The blocked slip stays unsettled and the pool stays untouched and
	// readable: nothing may push its counters negative.
	slip, _ := storage.GetBetslip("slip-1")
	if slip.Settled {
		t.Error("Expected betslip blocked by the liquidity floor to stay unsettled")
	}
	pool, err := storage.GetPool(testPoolID)
	if err != nil {
		t.Fatalf("GetPool after blocked settlement failed: %v", err)
	}
	if pool.TotalLiquidity != 111_000 {
		t.Errorf("Expected total_liquidity 111000, got %d", pool.TotalLiquidity)
	}
	if pool.TotalPaidOut != 0 {
		t.Errorf("Expected total_paid_out 0, got %d", pool.TotalPaidOut)
	}
	if pool.TotalBetsInPlay != 10_000 {
		t.Errorf("Expected total_bets_in_play 10000, got %d", pool.TotalBetsInPlay)
	}
}
