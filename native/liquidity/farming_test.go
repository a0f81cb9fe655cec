package liquidity

import (
	"errors"
	"math/big"
	"testing"

	coretypes "lendledger/core/types"
)

func farmingPool(t *testing.T, engine *Engine) (*LiquidityPool, coretypes.AccountID) {
	t.Helper()
	pool, creator := createPool(t, engine)
	if err := engine.EnableYieldFarming(creator, pool.ID, nil, nil); err != nil {
		t.Fatalf("enable farming: %v", err)
	}
	return pool, creator
}

func TestEnableYieldFarmingDefaults(t *testing.T) {
	engine, state := newTestEngine(t)
	pool, creator := createPool(t, engine)

	if err := engine.EnableYieldFarming(makeAddress(0x01), pool.ID, nil, nil); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := engine.EnableYieldFarming(creator, pool.ID, nil, nil); err != nil {
		t.Fatalf("enable farming: %v", err)
	}
	stored := state.pools[pool.ID]
	if !stored.YieldFarming {
		t.Fatalf("expected farming enabled")
	}
	if len(stored.Tiers) != 4 || stored.Tiers[0].Name != "Bronze" || stored.Tiers[3].Name != "Platinum" {
		t.Fatalf("expected default tier table, got %+v", stored.Tiers)
	}
}

func TestStakeResolvesTier(t *testing.T) {
	engine, _ := newTestEngine(t)
	pool, _ := farmingPool(t, engine)
	alice := makeAddress(0x01)

	// Below the 1000 minimum.
	if _, err := engine.StakeTokens(alice, pool.ID, big.NewInt(500)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount below minimum, got %v", err)
	}

	position, err := engine.StakeTokens(alice, pool.ID, big.NewInt(5_000))
	if err != nil {
		t.Fatalf("stake: %v", err)
	}
	if position.Tier != "Silver" || position.MultiplierBps != 1_200 || position.BonusBps != 100 {
		t.Fatalf("expected Silver tier, got %+v", position)
	}
	if position.LockEnd != BlocksPerDay {
		t.Fatalf("expected one-day lock, got %d", position.LockEnd)
	}

	// Growing the stake re-resolves the tier for the combined amount and
	// restarts the lock.
	engine.SetBlockHeight(BlocksPerDay / 2)
	position, err = engine.StakeTokens(alice, pool.ID, big.NewInt(20_000))
	if err != nil {
		t.Fatalf("grow stake: %v", err)
	}
	if position.Tier != "Gold" || position.Amount.Cmp(big.NewInt(25_000)) != 0 {
		t.Fatalf("expected Gold at 25000, got %+v", position)
	}
	if position.LockEnd != BlocksPerDay/2+BlocksPerDay {
		t.Fatalf("expected lock restarted, got %d", position.LockEnd)
	}

	// Above the 100000 maximum.
	if _, err := engine.StakeTokens(alice, pool.ID, big.NewInt(90_000)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount above maximum, got %v", err)
	}
}

func TestStakeRequiresFarming(t *testing.T) {
	engine, _ := newTestEngine(t)
	pool, _ := createPool(t, engine)
	if _, err := engine.StakeTokens(makeAddress(0x01), pool.ID, big.NewInt(1_000)); !errors.Is(err, ErrFarmingDisabled) {
		t.Fatalf("expected ErrFarmingDisabled, got %v", err)
	}
}

func TestUnstakePenalty(t *testing.T) {
	engine, state := newTestEngine(t)
	pool, _ := farmingPool(t, engine)
	alice := makeAddress(0x01)
	if _, err := engine.StakeTokens(alice, pool.ID, big.NewInt(5_000)); err != nil {
		t.Fatalf("stake: %v", err)
	}

	// Locked: leaving early needs explicit consent to the fee.
	if _, _, err := engine.UnstakeTokens(alice, pool.ID, false); !errors.Is(err, ErrStakeLocked) {
		t.Fatalf("expected ErrStakeLocked, got %v", err)
	}
	returned, penalty, err := engine.UnstakeTokens(alice, pool.ID, true)
	if err != nil {
		t.Fatalf("unstake with penalty: %v", err)
	}
	// 500bps of 5000.
	if penalty.Cmp(big.NewInt(250)) != 0 || returned.Cmp(big.NewInt(4_750)) != 0 {
		t.Fatalf("expected 4750 returned with 250 penalty, got %s / %s", returned, penalty)
	}
	if state.pools[pool.ID].TotalStaked.Sign() != 0 {
		t.Fatalf("expected total staked cleared, got %s", state.pools[pool.ID].TotalStaked)
	}
	if _, err := engine.GetStake(pool.ID, alice); !errors.Is(err, ErrNoStake) {
		t.Fatalf("expected position deleted, got %v", err)
	}
}

func TestUnstakeAfterLockIsFree(t *testing.T) {
	engine, _ := newTestEngine(t)
	pool, _ := farmingPool(t, engine)
	alice := makeAddress(0x01)
	if _, err := engine.StakeTokens(alice, pool.ID, big.NewInt(5_000)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	engine.SetBlockHeight(BlocksPerDay)
	returned, penalty, err := engine.UnstakeTokens(alice, pool.ID, false)
	if err != nil {
		t.Fatalf("unstake: %v", err)
	}
	if penalty.Sign() != 0 || returned.Cmp(big.NewInt(5_000)) != 0 {
		t.Fatalf("expected full 5000 back, got %s / %s", returned, penalty)
	}
}

func TestClaimYieldRewards(t *testing.T) {
	engine, _ := newTestEngine(t)
	pool, _ := farmingPool(t, engine)
	alice := makeAddress(0x01)
	if _, err := engine.StakeTokens(alice, pool.ID, big.NewInt(5_000)); err != nil {
		t.Fatalf("stake: %v", err)
	}

	// A year at the 10% base rate on 5000 is 500; Silver scales it by 1.2x
	// and adds a 100bps bonus: 600 + 5.
	engine.SetBlockHeight(BlocksPerYear)
	reward, err := engine.ClaimYieldRewards(alice, pool.ID)
	if err != nil {
		t.Fatalf("claim yield: %v", err)
	}
	if reward.Cmp(big.NewInt(605)) != 0 {
		t.Fatalf("expected 605 yield, got %s", reward)
	}

	// Checkpoint advanced.
	if _, err := engine.ClaimYieldRewards(alice, pool.ID); !errors.Is(err, ErrNothingToClaim) {
		t.Fatalf("expected ErrNothingToClaim, got %v", err)
	}
}

func TestResolveTierPicksHighestMultiplier(t *testing.T) {
	tiers := DefaultStakingTiers()
	tier, err := resolveTier(tiers, big.NewInt(60_000))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if tier.Name != "Platinum" {
		t.Fatalf("expected Platinum for 60000, got %s", tier.Name)
	}
	tier, err = resolveTier(tiers, big.NewInt(1_000))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if tier.Name != "Bronze" {
		t.Fatalf("expected Bronze for 1000, got %s", tier.Name)
	}
	if _, err := resolveTier(tiers, big.NewInt(999)); !errors.Is(err, ErrNoTier) {
		t.Fatalf("expected ErrNoTier, got %v", err)
	}
}
