package liquidity

import (
	"math/big"

	coretypes "lendledger/core/types"
)

// EnableYieldFarming opens the pool's staking programme. A nil requirements
// or empty tier table falls back to the defaults.
func (e *Engine) EnableYieldFarming(caller coretypes.AccountID, poolID uint64, reqs *StakingRequirements, tiers []StakingTier) error {
	pool, err := e.pool(poolID)
	if err != nil {
		return err
	}
	if caller != pool.Creator {
		return ErrUnauthorized
	}
	if pool.Status != PoolActive {
		return ErrPoolNotActive
	}
	if reqs != nil {
		if reqs.MinStake == nil || reqs.MinStake.Sign() <= 0 ||
			reqs.MaxStake == nil || reqs.MaxStake.Cmp(reqs.MinStake) < 0 {
			return ErrInvalidAmount
		}
		pool.Staking = reqs.Clone()
	}
	if len(tiers) > 0 {
		cloned := make([]StakingTier, len(tiers))
		for i, t := range tiers {
			if t.MinStake == nil || t.MinStake.Sign() <= 0 || t.MultiplierBps == 0 {
				return ErrInvalidAmount
			}
			cloned[i] = t.Clone()
		}
		pool.Tiers = cloned
	} else if len(pool.Tiers) == 0 {
		pool.Tiers = DefaultStakingTiers()
	}
	pool.YieldFarming = true

	if err := e.state.PoolPut(pool); err != nil {
		return err
	}
	e.emit(NewYieldFarmingEnabledEvent(pool))
	return nil
}

// resolveTier picks the highest-multiplier tier the stake qualifies for.
func resolveTier(tiers []StakingTier, amount *big.Int) (StakingTier, error) {
	var best StakingTier
	found := false
	for _, t := range tiers {
		if amount.Cmp(t.MinStake) >= 0 && (!found || t.MultiplierBps > best.MultiplierBps) {
			best = t
			found = true
		}
	}
	if !found {
		return StakingTier{}, ErrNoTier
	}
	return best.Clone(), nil
}

// StakeTokens opens or grows a staking position. Growing a position
// re-resolves the tier for the combined amount and restarts the lock.
func (e *Engine) StakeTokens(account coretypes.AccountID, poolID uint64, amount *big.Int) (*StakePosition, error) {
	pool, err := e.pool(poolID)
	if err != nil {
		return nil, err
	}
	if !pool.YieldFarming {
		return nil, ErrFarmingDisabled
	}
	if pool.Status != PoolActive {
		return nil, ErrPoolNotActive
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	stored, err := e.state.StakeGet(poolID, account)
	if err != nil {
		return nil, err
	}
	var position *StakePosition
	if stored == nil {
		position = &StakePosition{
			PoolID:    poolID,
			Account:   account,
			Amount:    big.NewInt(0),
			StakedAt:  e.blockHeight,
			LastClaim: e.blockHeight,
		}
	} else {
		position = stored.Clone()
	}
	staked, err := addChecked(position.Amount, amount)
	if err != nil {
		return nil, err
	}
	if staked.Cmp(pool.Staking.MinStake) < 0 || staked.Cmp(pool.Staking.MaxStake) > 0 {
		return nil, ErrInvalidAmount
	}
	tier, err := resolveTier(pool.Tiers, staked)
	if err != nil {
		return nil, err
	}
	position.Amount = staked
	position.Tier = tier.Name
	position.MultiplierBps = tier.MultiplierBps
	position.BonusBps = tier.BonusBps
	position.LockEnd = e.blockHeight + pool.Staking.LockPeriod

	total, err := addChecked(pool.TotalStaked, amount)
	if err != nil {
		return nil, err
	}
	pool.TotalStaked = total

	if err := e.state.PoolPut(pool); err != nil {
		return nil, err
	}
	if err := e.state.StakePut(position); err != nil {
		return nil, err
	}
	e.emit(NewTokensStakedEvent(pool, position))
	return position.Clone(), nil
}

// UnstakeTokens closes the caller's position. Unstaking before the lock ends
// pays the early-exit fee; afterwards the full amount returns.
func (e *Engine) UnstakeTokens(account coretypes.AccountID, poolID uint64, acceptPenalty bool) (*big.Int, *big.Int, error) {
	pool, err := e.pool(poolID)
	if err != nil {
		return nil, nil, err
	}
	stored, err := e.state.StakeGet(poolID, account)
	if err != nil {
		return nil, nil, err
	}
	if stored == nil {
		return nil, nil, ErrNoStake
	}
	position := stored.Clone()
	penalty := big.NewInt(0)
	if e.blockHeight < position.LockEnd {
		if !acceptPenalty {
			return nil, nil, ErrStakeLocked
		}
		penalty, err = applyBps(position.Amount, pool.Staking.EarlyUnstakeFeeBps)
		if err != nil {
			return nil, nil, err
		}
	}
	returned := subClamped(position.Amount, penalty)
	pool.TotalStaked = subClamped(pool.TotalStaked, position.Amount)

	if err := e.state.PoolPut(pool); err != nil {
		return nil, nil, err
	}
	if err := e.state.StakeDelete(poolID, account); err != nil {
		return nil, nil, err
	}
	e.emit(NewTokensUnstakedEvent(pool, account, returned, penalty))
	return returned, penalty, nil
}

// ClaimYieldRewards pays the caller their staking yield: the base annualised
// reward scaled by the tier multiplier, plus the tier bonus share.
func (e *Engine) ClaimYieldRewards(account coretypes.AccountID, poolID uint64) (*big.Int, error) {
	pool, err := e.pool(poolID)
	if err != nil {
		return nil, err
	}
	if !pool.YieldFarming {
		return nil, ErrFarmingDisabled
	}
	if pool.Status != PoolActive {
		return nil, ErrPoolNotActive
	}
	stored, err := e.state.StakeGet(poolID, account)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, ErrNoStake
	}
	position := stored.Clone()
	if e.blockHeight <= position.LastClaim {
		return nil, ErrNothingToClaim
	}
	base, err := annualisedReward(position.Amount, pool.RewardRateBps, e.blockHeight-position.LastClaim)
	if err != nil {
		return nil, err
	}
	reward, err := mulDiv(base, position.MultiplierBps, 1_000)
	if err != nil {
		return nil, err
	}
	bonus, err := applyBps(base, position.BonusBps)
	if err != nil {
		return nil, err
	}
	reward.Add(reward, bonus)
	if reward.Sign() == 0 {
		return nil, ErrNothingToClaim
	}
	distributed, err := addChecked(pool.TotalRewardsDistributed, reward)
	if err != nil {
		return nil, err
	}
	pool.TotalRewardsDistributed = distributed
	position.LastClaim = e.blockHeight

	if err := e.state.PoolPut(pool); err != nil {
		return nil, err
	}
	if err := e.state.StakePut(position); err != nil {
		return nil, err
	}
	e.emit(NewYieldClaimedEvent(pool, position, reward))
	return reward, nil
}

// GetStake returns the caller's staking position.
func (e *Engine) GetStake(poolID uint64, account coretypes.AccountID) (*StakePosition, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	stored, err := e.state.StakeGet(poolID, account)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, ErrNoStake
	}
	return stored.Clone(), nil
}

// StakingTiers returns the pool's tier table.
func (e *Engine) StakingTiers(poolID uint64) ([]StakingTier, error) {
	pool, err := e.pool(poolID)
	if err != nil {
		return nil, err
	}
	return pool.Tiers, nil
}
