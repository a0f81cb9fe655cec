package liquidity

import "errors"

var (
	// ErrNilState is returned when an engine method runs before SetState.
	ErrNilState = errors.New("liquidity engine: state not configured")
	// ErrPoolNotFound is returned when the referenced pool does not exist.
	ErrPoolNotFound = errors.New("liquidity engine: pool not found")
	// ErrProviderNotFound is returned when the caller has no position in the
	// pool.
	ErrProviderNotFound = errors.New("liquidity engine: provider not found")
	// ErrInvalidAmount rejects zero, negative, or out-of-range amounts.
	ErrInvalidAmount = errors.New("liquidity engine: amount must be positive")
	// ErrUnauthorized is returned when the caller is not the pool creator.
	ErrUnauthorized = errors.New("liquidity engine: caller not authorized")
	// ErrPoolNotActive rejects operations against paused or closed pools.
	ErrPoolNotActive = errors.New("liquidity engine: pool not active")
	// ErrPoolLimitExceeded is returned when a contribution would push the
	// pool past its capacity.
	ErrPoolLimitExceeded = errors.New("liquidity engine: pool capacity exceeded")
	// ErrInsufficientLiquidity is returned when a withdrawal exceeds the
	// caller's contributed balance.
	ErrInsufficientLiquidity = errors.New("liquidity engine: insufficient liquidity")
	// ErrRebalanceTooSoon enforces the minimum spacing between rebalances.
	ErrRebalanceTooSoon = errors.New("liquidity engine: rebalance frequency not met")
	// ErrFarmingDisabled rejects staking operations on pools without yield
	// farming.
	ErrFarmingDisabled = errors.New("liquidity engine: yield farming not enabled")
	// ErrNothingToClaim is returned when no rewards have accrued since the
	// last claim.
	ErrNothingToClaim = errors.New("liquidity engine: no rewards to claim")
	// ErrStakeLocked is returned when unstaking before the lock period ends
	// without accepting the penalty.
	ErrStakeLocked = errors.New("liquidity engine: stake still locked")
	// ErrNoStake is returned when the caller has no staking position.
	ErrNoStake = errors.New("liquidity engine: no staking position")
	// ErrNoTier is returned when a stake qualifies for no configured tier.
	ErrNoTier = errors.New("liquidity engine: stake below lowest tier")
	// ErrArithmeticOverflow is returned when a fixed-point computation would
	// exceed the supported integer range.
	ErrArithmeticOverflow = errors.New("liquidity engine: arithmetic overflow")
)
