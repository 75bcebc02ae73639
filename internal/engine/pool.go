package engine

// Pool is a value snapshot of the liquidity pool's aggregate counters. Engine
// functions take it by value and return an updated copy; serializing the
// read-modify-write cycle is the storage layer's job.
type Pool struct {
	PoolID          string `json:"pool_id"`
	TotalLiquidity  uint64 `json:"total_liquidity"`
	TotalBetsInPlay uint64 `json:"total_bets_in_play"`
	TotalPaidOut    uint64 `json:"total_paid_out"`
	TotalCollected  uint64 `json:"total_collected"`
	ProtocolRevenue uint64 `json:"protocol_revenue"`
	HouseBalance    uint64 `json:"house_balance"`
	IsActive        bool   `json:"is_active"`
	MinLiquidity    uint64 `json:"min_liquidity"`
	TotalShares     uint64 `json:"total_shares"`
}

// ShareRecord is one LP share grant. An address may hold several; position
// metrics aggregate them.
type ShareRecord struct {
	ShareID          string `json:"share_id"`
	LPAddress        string `json:"lp_address"`
	Shares           uint64 `json:"shares"`
	InitialDeposit   uint64 `json:"initial_deposit"`
	TotalWithdrawn   uint64 `json:"total_withdrawn"`
	DepositTimestamp int64  `json:"deposit_timestamp"`
}

// Position is the derived, non-persisted view of an address's LP stake.
type Position struct {
	LPAddress        string `json:"lp_address"`
	Shares           uint64 `json:"shares"`
	InitialDeposit   uint64 `json:"initial_deposit"`
	TotalWithdrawn   uint64 `json:"total_withdrawn"`
	CurrentValue     uint64 `json:"current_value"`
	UnrealizedProfit int64  `json:"unrealized_profit"`
	RealizedProfit   int64  `json:"realized_profit"`
	ROIBps           int64  `json:"roi_bps"`
}

// DepositResult carries the minted shares and the updated pool snapshot.
type DepositResult struct {
	SharesMinted uint64
	Pool         Pool
}

// WithdrawResult carries the redemption amounts and updated snapshots.
type WithdrawResult struct {
	Gross  uint64
	Fee    uint64
	Net    uint64
	Pool   Pool
	Record ShareRecord
}

// Deposit mints LP shares for a token deposit. The first depositor establishes
// a 1:1 share:token ratio; later deposits mint at the pool's current share
// price.
func Deposit(pool Pool, amount uint64) (DepositResult, error) {
	if !pool.IsActive {
		return DepositResult{}, ErrPoolInactive
	}
	if amount == 0 {
		return DepositResult{}, ErrInvalidDeposit
	}

	var minted uint64
	if pool.TotalShares == 0 {
		// Shares and liquidity hit zero together. Liquidity with no shares
		// outstanding has no price, so a fresh deposit cannot be minted
		// against it.
		if pool.TotalLiquidity > 0 {
			return DepositResult{}, ErrUnpricedLiquidity
		}
		minted = amount
	} else {
		minted = mulDiv(amount, pool.TotalShares, pool.TotalLiquidity)
	}

	pool.TotalLiquidity += amount
	pool.HouseBalance += amount
	pool.TotalShares += minted

	return DepositResult{SharesMinted: minted, Pool: pool}, nil
}

// Withdraw burns shares for a proportional slice of pool liquidity, minus the
// withdrawal fee. The fee stays in the pool. An address may exit to exactly
// zero shares, but cannot leave a dust position below MinimumLiquidityLock.
func Withdraw(pool Pool, record ShareRecord, sharesToBurn uint64) (WithdrawResult, error) {
	if !pool.IsActive {
		return WithdrawResult{}, ErrPoolInactive
	}
	if sharesToBurn == 0 || sharesToBurn > record.Shares || pool.TotalShares == 0 {
		return WithdrawResult{}, ErrInvalidWithdrawal
	}
	remaining := record.Shares - sharesToBurn
	if remaining > 0 && remaining < MinimumLiquidityLock {
		return WithdrawResult{}, ErrBelowMinimumLock
	}

	gross := mulDiv(sharesToBurn, pool.TotalLiquidity, pool.TotalShares)
	fee := gross * WithdrawalFeeBPS / OddsScale
	net := gross - fee

	// Only the net amount leaves; the fee accrues to remaining LPs. A
	// withdrawal may not drag an active pool under its liquidity floor.
	if pool.TotalLiquidity-net < pool.MinLiquidity {
		return WithdrawResult{}, ErrInvalidWithdrawal
	}
	pool.TotalLiquidity -= net
	if net > pool.HouseBalance {
		pool.HouseBalance = 0
	} else {
		pool.HouseBalance -= net
	}
	pool.TotalShares -= sharesToBurn

	record.Shares = remaining
	record.TotalWithdrawn += net

	return WithdrawResult{Gross: gross, Fee: fee, Net: net, Pool: pool, Record: record}, nil
}

// AggregatePosition folds an address's share records into one position view
// against the current pool snapshot.
func AggregatePosition(pool Pool, records []ShareRecord) Position {
	var pos Position
	for _, r := range records {
		if pos.LPAddress == "" {
			pos.LPAddress = r.LPAddress
		}
		pos.Shares += r.Shares
		pos.InitialDeposit += r.InitialDeposit
		pos.TotalWithdrawn += r.TotalWithdrawn
	}

	if pool.TotalShares > 0 {
		pos.CurrentValue = mulDiv(pos.Shares, pool.TotalLiquidity, pool.TotalShares)
	}

	pos.UnrealizedProfit = int64(pos.CurrentValue) - (int64(pos.InitialDeposit) - int64(pos.TotalWithdrawn))
	if pos.TotalWithdrawn > 0 {
		pos.RealizedProfit = int64(pos.TotalWithdrawn) - int64(pos.InitialDeposit)
	}
	if pos.InitialDeposit > 0 {
		pos.ROIBps = floorDiv(pos.UnrealizedProfit*int64(OddsScale), int64(pos.InitialDeposit))
	}
	return pos
}

// floorDiv returns floor(a/b) for signed operands. Go's / truncates toward
// zero, which rounds negative quotients the wrong way for bps metrics.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// PoolAPY annualizes the pool's realized profit over a 270-day season, in
// basis points. It is a trailing approximation over one season's data, not a
// forward-looking projection.
func PoolAPY(pool Pool) int64 {
	if pool.TotalLiquidity == 0 {
		return 0
	}
	netProfit := int64(pool.TotalCollected) - int64(pool.TotalPaidOut)
	return floorDiv(netProfit*365*int64(OddsScale), int64(pool.TotalLiquidity)*270)
}
