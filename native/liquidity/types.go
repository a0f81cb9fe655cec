package liquidity

import (
	"math/big"

	"lendledger/core/types"
)

// PoolStatus tracks a pool through its lifecycle.
type PoolStatus uint8

const (
	PoolActive PoolStatus = iota
	PoolPaused
	PoolClosed
)

// Valid reports whether the status is a known value.
func (s PoolStatus) Valid() bool {
	return s <= PoolClosed
}

func (s PoolStatus) String() string {
	switch s {
	case PoolActive:
		return "active"
	case PoolPaused:
		return "paused"
	case PoolClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// StakingTier grants a reward multiplier and bonus to stakes at or above its
// threshold. MultiplierBps is scaled by 1000 (1000 = 1.0x); BonusBps is an
// additive share of the base reward.
type StakingTier struct {
	Name          string   `json:"name"`
	MinStake      *big.Int `json:"minStake"`
	MultiplierBps uint64   `json:"multiplierBps"`
	BonusBps      uint64   `json:"bonusBps"`
}

// Clone deep-copies the tier.
func (t StakingTier) Clone() StakingTier {
	t.MinStake = ensureAmount(t.MinStake)
	return t
}

// StakingRequirements bound stake sizes and lock-up for a pool's yield
// farming programme.
type StakingRequirements struct {
	MinStake            *big.Int `json:"minStake"`
	MaxStake            *big.Int `json:"maxStake"`
	LockPeriod          uint64   `json:"lockPeriod"`
	EarlyUnstakeFeeBps  uint64   `json:"earlyUnstakeFeeBps"`
	RewardMultiplierBps uint64   `json:"rewardMultiplierBps"`
}

// Clone deep-copies the requirements.
func (r StakingRequirements) Clone() StakingRequirements {
	r.MinStake = ensureAmount(r.MinStake)
	r.MaxStake = ensureAmount(r.MaxStake)
	return r
}

// DefaultStakingRequirements mirrors the launch staking programme.
func DefaultStakingRequirements() StakingRequirements {
	return StakingRequirements{
		MinStake:            big.NewInt(1_000),
		MaxStake:            big.NewInt(100_000),
		LockPeriod:          BlocksPerDay,
		EarlyUnstakeFeeBps:  500,
		RewardMultiplierBps: 1_000,
	}
}

// DefaultStakingTiers is the launch tier table.
func DefaultStakingTiers() []StakingTier {
	return []StakingTier{
		{Name: "Bronze", MinStake: big.NewInt(1_000), MultiplierBps: 1_000, BonusBps: 0},
		{Name: "Silver", MinStake: big.NewInt(5_000), MultiplierBps: 1_200, BonusBps: 100},
		{Name: "Gold", MinStake: big.NewInt(20_000), MultiplierBps: 1_500, BonusBps: 300},
		{Name: "Platinum", MinStake: big.NewInt(50_000), MultiplierBps: 2_000, BonusBps: 500},
	}
}

// LiquidityPool aggregates provider capital and its reward programme.
// Provider shares are not stored: they are derived from contributions so the
// sum of contributions always equals TotalLiquidity exactly.
type LiquidityPool struct {
	ID      uint64          `json:"id"`
	Name    string          `json:"name"`
	Creator types.AccountID `json:"creator"`

	TotalLiquidity  *big.Int   `json:"totalLiquidity"`
	MinContribution *big.Int   `json:"minContribution"`
	MaxLiquidity    *big.Int   `json:"maxLiquidity"`
	FeeRateBps      uint64     `json:"feeRateBps"`
	RewardRateBps   uint64     `json:"rewardRateBps"`
	Status          PoolStatus `json:"status"`
	CreatedAt       uint64     `json:"createdAt"`
	ProviderCount   uint32     `json:"providerCount"`

	TotalRewardsDistributed *big.Int `json:"totalRewardsDistributed"`

	PerformanceScore      uint64 `json:"performanceScore"`
	LastRebalance         uint64 `json:"lastRebalance"`
	RebalanceFrequency    uint64 `json:"rebalanceFrequency"`
	TargetRatioBps        uint64 `json:"targetRatioBps"`
	CurrentRatioBps       uint64 `json:"currentRatioBps"`
	RebalanceThresholdBps uint64 `json:"rebalanceThresholdBps"`
	AutoRebalance         bool   `json:"autoRebalance"`

	YieldFarming bool                `json:"yieldFarming"`
	Staking      StakingRequirements `json:"staking"`
	Tiers        []StakingTier       `json:"tiers,omitempty"`
	TotalStaked  *big.Int            `json:"totalStaked"`
}

// Clone deep-copies the pool.
func (p *LiquidityPool) Clone() *LiquidityPool {
	if p == nil {
		return nil
	}
	cp := *p
	cp.TotalLiquidity = ensureAmount(p.TotalLiquidity)
	cp.MinContribution = ensureAmount(p.MinContribution)
	cp.MaxLiquidity = ensureAmount(p.MaxLiquidity)
	cp.TotalRewardsDistributed = ensureAmount(p.TotalRewardsDistributed)
	cp.TotalStaked = ensureAmount(p.TotalStaked)
	cp.Staking = p.Staking.Clone()
	if len(p.Tiers) > 0 {
		cp.Tiers = make([]StakingTier, len(p.Tiers))
		for i := range p.Tiers {
			cp.Tiers[i] = p.Tiers[i].Clone()
		}
	}
	return &cp
}

// LiquidityProvider is one account's position in a pool.
type LiquidityProvider struct {
	PoolID      uint64          `json:"poolId"`
	Account     types.AccountID `json:"account"`
	Contributed *big.Int        `json:"contributed"`
	// ShareBps is derived on read; it is not part of the persisted record.
	ShareBps      uint64   `json:"shareBps"`
	RewardsEarned *big.Int `json:"rewardsEarned"`
	JoinedAt      uint64   `json:"joinedAt"`
	LastClaim     uint64   `json:"lastClaim"`
}

// Clone deep-copies the provider.
func (p *LiquidityProvider) Clone() *LiquidityProvider {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Contributed = ensureAmount(p.Contributed)
	cp.RewardsEarned = ensureAmount(p.RewardsEarned)
	return &cp
}

// StakePosition is one account's yield farming stake in a pool.
type StakePosition struct {
	PoolID        uint64          `json:"poolId"`
	Account       types.AccountID `json:"account"`
	Amount        *big.Int        `json:"amount"`
	Tier          string          `json:"tier"`
	MultiplierBps uint64          `json:"multiplierBps"`
	BonusBps      uint64          `json:"bonusBps"`
	StakedAt      uint64          `json:"stakedAt"`
	LockEnd       uint64          `json:"lockEnd"`
	LastClaim     uint64          `json:"lastClaim"`
}

// Clone deep-copies the position.
func (s *StakePosition) Clone() *StakePosition {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Amount = ensureAmount(s.Amount)
	return &cp
}
