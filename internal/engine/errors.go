package engine

import "errors"

// Rejection kinds surfaced to callers. All are local, recoverable conditions;
// handlers map them onto HTTP statuses, the settlement service onto ledger
// outcomes. Compare with errors.Is.
var (
	ErrInvalidBetslip    = errors.New("invalid betslip")
	ErrZeroStake         = errors.New("stake must be greater than zero")
	ErrStakeOutOfRange   = errors.New("stake outside allowed bounds")
	ErrDuplicateLeg      = errors.New("duplicate match in betslip")
	ErrTooManyLegs       = errors.New("too many legs in betslip")
	ErrRoundCapExceeded  = errors.New("round payout cap exceeded")
	ErrInvalidDeposit    = errors.New("deposit amount must be positive")
	ErrInvalidWithdrawal = errors.New("invalid withdrawal")
	ErrBelowMinimumLock  = errors.New("remaining shares below minimum liquidity lock")
	ErrPoolInactive      = errors.New("liquidity pool is not active")
	ErrUnpricedLiquidity = errors.New("pool liquidity has no outstanding shares")

	// ErrInsufficientLiquidity blocks a settlement that would drag the pool
	// under its liquidity floor. The slip stays unsettled.
	ErrInsufficientLiquidity = errors.New("pool liquidity cannot cover payout")
)
