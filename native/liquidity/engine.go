package liquidity

import (
	"fmt"
	"math/big"
	"strings"

	"lendledger/core/events"
	coretypes "lendledger/core/types"
)

type engineState interface {
	PoolGet(id uint64) (*LiquidityPool, error)
	PoolPut(pool *LiquidityPool) error
	NextPoolID() (uint64, error)
	ProviderGet(poolID uint64, account coretypes.AccountID) (*LiquidityProvider, error)
	ProviderPut(provider *LiquidityProvider) error
	StakeGet(poolID uint64, account coretypes.AccountID) (*StakePosition, error)
	StakePut(position *StakePosition) error
	StakeDelete(poolID uint64, account coretypes.AccountID) error
}

// Engine orchestrates pool lifecycle, provider accounting, proportional
// rewards, rebalancing, and yield farming. Like the lending engine it works
// on cloned snapshots and persists only after validation.
type Engine struct {
	state       engineState
	blockHeight uint64
	emitter     events.Emitter
}

// NewEngine constructs a liquidity engine.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetBlockHeight records the block height used for reward accrual.
func (e *Engine) SetBlockHeight(height uint64) {
	if e == nil {
		return
	}
	e.blockHeight = height
}

// SetEmitter wires the engine to an event sink.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

func (e *Engine) emit(evt *coretypes.Event) {
	if evt != nil {
		e.emitter.Emit(evt)
	}
}

func (e *Engine) pool(id uint64) (*LiquidityPool, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	stored, err := e.state.PoolGet(id)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, ErrPoolNotFound
	}
	return stored.Clone(), nil
}

func (e *Engine) provider(poolID uint64, account coretypes.AccountID) (*LiquidityProvider, error) {
	stored, err := e.state.ProviderGet(poolID, account)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, ErrProviderNotFound
	}
	return stored.Clone(), nil
}

// shareBps derives a provider's proportional share of the pool in basis
// points, truncated.
func shareBps(contributed, total *big.Int) uint64 {
	if total == nil || total.Sign() == 0 || contributed == nil {
		return 0
	}
	share := new(big.Int).Mul(contributed, basisPoints)
	share.Quo(share, total)
	return share.Uint64()
}

// CreatePool registers a liquidity pool. The creator administers rebalancing
// and yield farming for it.
func (e *Engine) CreatePool(creator coretypes.AccountID, name string, feeRateBps, rewardRateBps uint64, minContribution, maxLiquidity *big.Int) (*LiquidityPool, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidAmount
	}
	if feeRateBps > bpsDenominator || rewardRateBps > bpsDenominator {
		return nil, ErrInvalidAmount
	}
	if minContribution == nil || minContribution.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if maxLiquidity == nil || maxLiquidity.Sign() <= 0 || maxLiquidity.Cmp(minContribution) < 0 {
		return nil, ErrInvalidAmount
	}
	id, err := e.state.NextPoolID()
	if err != nil {
		return nil, fmt.Errorf("allocate pool id: %w", err)
	}
	pool := &LiquidityPool{
		ID:                      id,
		Name:                    strings.TrimSpace(name),
		Creator:                 creator,
		TotalLiquidity:          big.NewInt(0),
		MinContribution:         new(big.Int).Set(minContribution),
		MaxLiquidity:            new(big.Int).Set(maxLiquidity),
		FeeRateBps:              feeRateBps,
		RewardRateBps:           rewardRateBps,
		Status:                  PoolActive,
		CreatedAt:               e.blockHeight,
		TotalRewardsDistributed: big.NewInt(0),
		PerformanceScore:        5_000,
		LastRebalance:           e.blockHeight,
		RebalanceFrequency:      BlocksPerDay,
		TargetRatioBps:          8_000,
		CurrentRatioBps:         8_000,
		RebalanceThresholdBps:   500,
		AutoRebalance:           true,
		Staking:                 DefaultStakingRequirements(),
		TotalStaked:             big.NewInt(0),
	}
	if err := e.state.PoolPut(pool); err != nil {
		return nil, err
	}
	e.emit(NewPoolCreatedEvent(pool))
	return pool.Clone(), nil
}

// ProvideLiquidity adds capital to a pool, creating or growing the caller's
// position. Contributions are bounded below by the pool minimum and above by
// pool capacity.
func (e *Engine) ProvideLiquidity(account coretypes.AccountID, poolID uint64, amount *big.Int) (*LiquidityProvider, error) {
	pool, err := e.pool(poolID)
	if err != nil {
		return nil, err
	}
	if pool.Status != PoolActive {
		return nil, ErrPoolNotActive
	}
	if amount == nil || amount.Sign() <= 0 || amount.Cmp(pool.MinContribution) < 0 {
		return nil, ErrInvalidAmount
	}
	total, err := addChecked(pool.TotalLiquidity, amount)
	if err != nil {
		return nil, err
	}
	if total.Cmp(pool.MaxLiquidity) > 0 {
		return nil, ErrPoolLimitExceeded
	}

	stored, err := e.state.ProviderGet(poolID, account)
	if err != nil {
		return nil, err
	}
	var provider *LiquidityProvider
	if stored == nil {
		provider = &LiquidityProvider{
			PoolID:        poolID,
			Account:       account,
			Contributed:   big.NewInt(0),
			RewardsEarned: big.NewInt(0),
			JoinedAt:      e.blockHeight,
			LastClaim:     e.blockHeight,
		}
		pool.ProviderCount++
	} else {
		provider = stored.Clone()
	}
	contributed, err := addChecked(provider.Contributed, amount)
	if err != nil {
		return nil, err
	}
	provider.Contributed = contributed
	pool.TotalLiquidity = total
	provider.ShareBps = shareBps(provider.Contributed, pool.TotalLiquidity)

	if err := e.state.PoolPut(pool); err != nil {
		return nil, err
	}
	if err := e.state.ProviderPut(provider); err != nil {
		return nil, err
	}
	e.emit(NewLiquidityProvidedEvent(pool, provider, amount))
	return provider.Clone(), nil
}

// WithdrawLiquidity removes part or all of the caller's contribution.
func (e *Engine) WithdrawLiquidity(account coretypes.AccountID, poolID uint64, amount *big.Int) (*LiquidityProvider, error) {
	pool, err := e.pool(poolID)
	if err != nil {
		return nil, err
	}
	if pool.Status == PoolClosed {
		return nil, ErrPoolNotActive
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	provider, err := e.provider(poolID, account)
	if err != nil {
		return nil, err
	}
	if provider.Contributed.Cmp(amount) < 0 {
		return nil, ErrInsufficientLiquidity
	}
	provider.Contributed = subClamped(provider.Contributed, amount)
	pool.TotalLiquidity = subClamped(pool.TotalLiquidity, amount)
	if provider.Contributed.Sign() == 0 && pool.ProviderCount > 0 {
		pool.ProviderCount--
	}
	provider.ShareBps = shareBps(provider.Contributed, pool.TotalLiquidity)

	if err := e.state.PoolPut(pool); err != nil {
		return nil, err
	}
	if err := e.state.ProviderPut(provider); err != nil {
		return nil, err
	}
	e.emit(NewLiquidityWithdrawnEvent(pool, account, amount))
	return provider.Clone(), nil
}

// ClaimPoolRewards pays the caller their accrued share of the pool's reward
// programme: contribution times the annual reward rate, pro rata over the
// blocks since the last claim.
func (e *Engine) ClaimPoolRewards(account coretypes.AccountID, poolID uint64) (*big.Int, error) {
	pool, err := e.pool(poolID)
	if err != nil {
		return nil, err
	}
	if pool.Status != PoolActive {
		return nil, ErrPoolNotActive
	}
	provider, err := e.provider(poolID, account)
	if err != nil {
		return nil, err
	}
	if e.blockHeight <= provider.LastClaim {
		return nil, ErrNothingToClaim
	}
	reward, err := annualisedReward(provider.Contributed, pool.RewardRateBps, e.blockHeight-provider.LastClaim)
	if err != nil {
		return nil, err
	}
	if reward.Sign() == 0 {
		return nil, ErrNothingToClaim
	}
	earned, err := addChecked(provider.RewardsEarned, reward)
	if err != nil {
		return nil, err
	}
	distributed, err := addChecked(pool.TotalRewardsDistributed, reward)
	if err != nil {
		return nil, err
	}
	provider.RewardsEarned = earned
	provider.LastClaim = e.blockHeight
	pool.TotalRewardsDistributed = distributed

	if err := e.state.PoolPut(pool); err != nil {
		return nil, err
	}
	if err := e.state.ProviderPut(provider); err != nil {
		return nil, err
	}
	e.emit(NewRewardsClaimedEvent(pool, account, reward))
	return reward, nil
}

// GetPool returns a snapshot of the pool.
func (e *Engine) GetPool(id uint64) (*LiquidityPool, error) {
	return e.pool(id)
}

// GetProvider returns the caller's position with its derived share.
func (e *Engine) GetProvider(poolID uint64, account coretypes.AccountID) (*LiquidityProvider, error) {
	pool, err := e.pool(poolID)
	if err != nil {
		return nil, err
	}
	provider, err := e.provider(poolID, account)
	if err != nil {
		return nil, err
	}
	provider.ShareBps = shareBps(provider.Contributed, pool.TotalLiquidity)
	return provider, nil
}

// PendingPoolRewards previews the reward a claim would pay now.
func (e *Engine) PendingPoolRewards(poolID uint64, account coretypes.AccountID) (*big.Int, error) {
	pool, err := e.pool(poolID)
	if err != nil {
		return nil, err
	}
	provider, err := e.provider(poolID, account)
	if err != nil {
		return nil, err
	}
	if e.blockHeight <= provider.LastClaim {
		return big.NewInt(0), nil
	}
	return annualisedReward(provider.Contributed, pool.RewardRateBps, e.blockHeight-provider.LastClaim)
}
