package liquidity

import (
	"math/big"

	coretypes "lendledger/core/types"
)

const (
	ratioFloorBps   uint64 = 1_000
	ratioCeilingBps uint64 = 10_000
	baseScore       uint64 = 5_000
	maxScore        uint64 = 10_000
)

// RebalanceInfo describes a pool's rebalancing state.
type RebalanceInfo struct {
	PerformanceScore uint64 `json:"performanceScore"`
	LastRebalance    uint64 `json:"lastRebalance"`
	Frequency        uint64 `json:"frequency"`
	TargetRatioBps   uint64 `json:"targetRatioBps"`
	CurrentRatioBps  uint64 `json:"currentRatioBps"`
	ThresholdBps     uint64 `json:"thresholdBps"`
	AutoRebalance    bool   `json:"autoRebalance"`
	NeedsRebalance   bool   `json:"needsRebalance"`
}

// performanceScore blends reward throughput, staking engagement, and
// provider diversity into a 0..10000 score.
func performanceScore(p *LiquidityPool) uint64 {
	score := baseScore
	if total := ensureAmount(p.TotalLiquidity); total.Sign() > 0 {
		score += scaledFactor(ensureAmount(p.TotalRewardsDistributed), total, 2_000)
		score += scaledFactor(ensureAmount(p.TotalStaked), total, 2_000)
	}
	diversity := uint64(p.ProviderCount)
	if diversity > 10 {
		diversity = 10
	}
	score += diversity * 100
	if score > maxScore {
		score = maxScore
	}
	return score
}

// scaledFactor returns part/whole scaled to limit points, saturating there.
func scaledFactor(part, whole *big.Int, limit uint64) uint64 {
	v := new(big.Int).Mul(part, new(big.Int).SetUint64(limit))
	v.Quo(v, whole)
	if !v.IsUint64() || v.Uint64() > limit {
		return limit
	}
	return v.Uint64()
}

// nextRatio moves the current ratio toward the target, scaled by the
// performance score and clamped to [10%, 100%].
func nextRatio(current, target, score uint64) uint64 {
	diff := int64(target) - int64(current)
	adjusted := int64(current) + diff*int64(score)/int64(maxScore)
	if adjusted < int64(ratioFloorBps) {
		return ratioFloorBps
	}
	if adjusted > int64(ratioCeilingBps) {
		return ratioCeilingBps
	}
	return uint64(adjusted)
}

func needsRebalance(p *LiquidityPool, height uint64) bool {
	if !p.AutoRebalance {
		return false
	}
	if height < p.LastRebalance+p.RebalanceFrequency {
		return false
	}
	var diff uint64
	if p.CurrentRatioBps > p.TargetRatioBps {
		diff = p.CurrentRatioBps - p.TargetRatioBps
	} else {
		diff = p.TargetRatioBps - p.CurrentRatioBps
	}
	return diff >= p.RebalanceThresholdBps
}

// RebalancePool recomputes the pool's performance score and moves its
// liquidity ratio toward the target. Only the creator may trigger it, and no
// sooner than the configured frequency allows.
func (e *Engine) RebalancePool(caller coretypes.AccountID, poolID uint64) (RebalanceInfo, error) {
	pool, err := e.pool(poolID)
	if err != nil {
		return RebalanceInfo{}, err
	}
	if caller != pool.Creator {
		return RebalanceInfo{}, ErrUnauthorized
	}
	if pool.Status != PoolActive {
		return RebalanceInfo{}, ErrPoolNotActive
	}
	if e.blockHeight < pool.LastRebalance+pool.RebalanceFrequency {
		return RebalanceInfo{}, ErrRebalanceTooSoon
	}
	oldRatio := pool.CurrentRatioBps
	pool.PerformanceScore = performanceScore(pool)
	pool.CurrentRatioBps = nextRatio(pool.CurrentRatioBps, pool.TargetRatioBps, pool.PerformanceScore)
	pool.LastRebalance = e.blockHeight

	reason := "no adjustment needed"
	if pool.CurrentRatioBps > oldRatio {
		reason = "performance improvement"
	} else if pool.CurrentRatioBps < oldRatio {
		reason = "performance decline"
	}

	if err := e.state.PoolPut(pool); err != nil {
		return RebalanceInfo{}, err
	}
	e.emit(NewPoolRebalancedEvent(pool, oldRatio, reason))
	return e.rebalanceInfo(pool), nil
}

// SetAutoRebalancing toggles automatic rebalancing for the pool.
func (e *Engine) SetAutoRebalancing(caller coretypes.AccountID, poolID uint64, enabled bool) error {
	pool, err := e.pool(poolID)
	if err != nil {
		return err
	}
	if caller != pool.Creator {
		return ErrUnauthorized
	}
	pool.AutoRebalance = enabled
	return e.state.PoolPut(pool)
}

// SetRebalancingParameters updates the pool's rebalancing knobs. Frequency
// must allow at least a day between rebalances; the threshold is capped at
// 10% so rebalancing cannot be locked out entirely.
func (e *Engine) SetRebalancingParameters(caller coretypes.AccountID, poolID uint64, frequency, targetRatioBps, thresholdBps uint64) error {
	pool, err := e.pool(poolID)
	if err != nil {
		return err
	}
	if caller != pool.Creator {
		return ErrUnauthorized
	}
	if frequency < BlocksPerDay || targetRatioBps > ratioCeilingBps || thresholdBps > 1_000 {
		return ErrInvalidAmount
	}
	pool.RebalanceFrequency = frequency
	pool.TargetRatioBps = targetRatioBps
	pool.RebalanceThresholdBps = thresholdBps
	return e.state.PoolPut(pool)
}

// NeedsRebalancing reports whether the pool is due and drifted past its
// threshold.
func (e *Engine) NeedsRebalancing(poolID uint64) (bool, error) {
	pool, err := e.pool(poolID)
	if err != nil {
		return false, err
	}
	return needsRebalance(pool, e.blockHeight), nil
}

// RebalancingInfo returns the pool's rebalancing state.
func (e *Engine) RebalancingInfo(poolID uint64) (RebalanceInfo, error) {
	pool, err := e.pool(poolID)
	if err != nil {
		return RebalanceInfo{}, err
	}
	return e.rebalanceInfo(pool), nil
}

func (e *Engine) rebalanceInfo(p *LiquidityPool) RebalanceInfo {
	return RebalanceInfo{
		PerformanceScore: p.PerformanceScore,
		LastRebalance:    p.LastRebalance,
		Frequency:        p.RebalanceFrequency,
		TargetRatioBps:   p.TargetRatioBps,
		CurrentRatioBps:  p.CurrentRatioBps,
		ThresholdBps:     p.RebalanceThresholdBps,
		AutoRebalance:    p.AutoRebalance,
		NeedsRebalance:   needsRebalance(p, e.blockHeight),
	}
}
