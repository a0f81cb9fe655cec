package liquidity

import (
	"math/big"
	"strconv"

	"lendledger/core/types"
)

const (
	EventTypePoolCreated         = "liquidity.pool.created"
	EventTypeLiquidityProvided   = "liquidity.pool.provided"
	EventTypeLiquidityWithdrawn  = "liquidity.pool.withdrawn"
	EventTypeRewardsClaimed      = "liquidity.pool.rewards_claimed"
	EventTypePoolRebalanced      = "liquidity.pool.rebalanced"
	EventTypeYieldFarmingEnabled = "liquidity.pool.farming_enabled"
	EventTypeTokensStaked        = "liquidity.pool.staked"
	EventTypeTokensUnstaked      = "liquidity.pool.unstaked"
	EventTypeYieldClaimed        = "liquidity.pool.yield_claimed"
)

// NewPoolCreatedEvent returns the canonical payload for a new pool.
func NewPoolCreatedEvent(p *LiquidityPool) *types.Event {
	return newPoolEvent(EventTypePoolCreated, p, nil)
}

// NewLiquidityProvidedEvent returns the payload emitted on a contribution.
func NewLiquidityProvidedEvent(p *LiquidityPool, provider *LiquidityProvider, amount *big.Int) *types.Event {
	return newPoolEvent(EventTypeLiquidityProvided, p, map[string]string{
		"provider": provider.Account.String(),
		"amount":   amount.String(),
		"shareBps": strconv.FormatUint(provider.ShareBps, 10),
	})
}

// NewLiquidityWithdrawnEvent returns the payload emitted on a withdrawal.
func NewLiquidityWithdrawnEvent(p *LiquidityPool, account types.AccountID, amount *big.Int) *types.Event {
	return newPoolEvent(EventTypeLiquidityWithdrawn, p, map[string]string{
		"provider": account.String(),
		"amount":   amount.String(),
	})
}

// NewRewardsClaimedEvent returns the payload emitted when a provider claims
// accrued pool rewards.
func NewRewardsClaimedEvent(p *LiquidityPool, account types.AccountID, reward *big.Int) *types.Event {
	return newPoolEvent(EventTypeRewardsClaimed, p, map[string]string{
		"provider": account.String(),
		"reward":   reward.String(),
	})
}

// NewPoolRebalancedEvent returns the payload emitted after a rebalance.
func NewPoolRebalancedEvent(p *LiquidityPool, oldRatio uint64, reason string) *types.Event {
	return newPoolEvent(EventTypePoolRebalanced, p, map[string]string{
		"oldRatioBps":      strconv.FormatUint(oldRatio, 10),
		"newRatioBps":      strconv.FormatUint(p.CurrentRatioBps, 10),
		"performanceScore": strconv.FormatUint(p.PerformanceScore, 10),
		"reason":           reason,
	})
}

// NewYieldFarmingEnabledEvent returns the payload emitted when farming opens.
func NewYieldFarmingEnabledEvent(p *LiquidityPool) *types.Event {
	return newPoolEvent(EventTypeYieldFarmingEnabled, p, map[string]string{
		"minStake":   ensureAmount(p.Staking.MinStake).String(),
		"lockPeriod": strconv.FormatUint(p.Staking.LockPeriod, 10),
	})
}

// NewTokensStakedEvent returns the payload emitted on a stake.
func NewTokensStakedEvent(p *LiquidityPool, pos *StakePosition) *types.Event {
	return newPoolEvent(EventTypeTokensStaked, p, map[string]string{
		"staker":        pos.Account.String(),
		"amount":        pos.Amount.String(),
		"tier":          pos.Tier,
		"multiplierBps": strconv.FormatUint(pos.MultiplierBps, 10),
		"lockEnd":       strconv.FormatUint(pos.LockEnd, 10),
	})
}

// NewTokensUnstakedEvent returns the payload emitted on an unstake.
func NewTokensUnstakedEvent(p *LiquidityPool, account types.AccountID, returned, penalty *big.Int) *types.Event {
	return newPoolEvent(EventTypeTokensUnstaked, p, map[string]string{
		"staker":   account.String(),
		"returned": returned.String(),
		"penalty":  penalty.String(),
	})
}

// NewYieldClaimedEvent returns the payload emitted when a staker claims
// yield rewards.
func NewYieldClaimedEvent(p *LiquidityPool, pos *StakePosition, reward *big.Int) *types.Event {
	return newPoolEvent(EventTypeYieldClaimed, p, map[string]string{
		"staker":        pos.Account.String(),
		"reward":        reward.String(),
		"tier":          pos.Tier,
		"multiplierBps": strconv.FormatUint(pos.MultiplierBps, 10),
	})
}

func newPoolEvent(eventType string, p *LiquidityPool, extra map[string]string) *types.Event {
	attrs := make(map[string]string)
	if p == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["poolId"] = strconv.FormatUint(p.ID, 10)
	attrs["name"] = p.Name
	attrs["status"] = p.Status.String()
	attrs["totalLiquidity"] = ensureAmount(p.TotalLiquidity).String()
	attrs["rewardRateBps"] = strconv.FormatUint(p.RewardRateBps, 10)
	for k, v := range extra {
		attrs[k] = v
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}
