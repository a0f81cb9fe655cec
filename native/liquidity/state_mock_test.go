package liquidity

import (
	"testing"

	coretypes "lendledger/core/types"
)

type positionKey struct {
	poolID  uint64
	account coretypes.AccountID
}

type mockEngineState struct {
	pools     map[uint64]*LiquidityPool
	providers map[positionKey]*LiquidityProvider
	stakes    map[positionKey]*StakePosition
	nextID    uint64
}

func newMockEngineState() *mockEngineState {
	return &mockEngineState{
		pools:     make(map[uint64]*LiquidityPool),
		providers: make(map[positionKey]*LiquidityProvider),
		stakes:    make(map[positionKey]*StakePosition),
	}
}

func (m *mockEngineState) PoolGet(id uint64) (*LiquidityPool, error) {
	return m.pools[id].Clone(), nil
}

func (m *mockEngineState) PoolPut(pool *LiquidityPool) error {
	m.pools[pool.ID] = pool.Clone()
	return nil
}

func (m *mockEngineState) NextPoolID() (uint64, error) {
	m.nextID++
	return m.nextID, nil
}

func (m *mockEngineState) ProviderGet(poolID uint64, account coretypes.AccountID) (*LiquidityProvider, error) {
	return m.providers[positionKey{poolID, account}].Clone(), nil
}

func (m *mockEngineState) ProviderPut(provider *LiquidityProvider) error {
	m.providers[positionKey{provider.PoolID, provider.Account}] = provider.Clone()
	return nil
}

func (m *mockEngineState) StakeGet(poolID uint64, account coretypes.AccountID) (*StakePosition, error) {
	return m.stakes[positionKey{poolID, account}].Clone(), nil
}

func (m *mockEngineState) StakePut(position *StakePosition) error {
	m.stakes[positionKey{position.PoolID, position.Account}] = position.Clone()
	return nil
}

func (m *mockEngineState) StakeDelete(poolID uint64, account coretypes.AccountID) error {
	delete(m.stakes, positionKey{poolID, account})
	return nil
}

func makeAddress(b byte) coretypes.AccountID {
	raw := make([]byte, 20)
	for i := range raw {
		raw[i] = b
	}
	addr, err := coretypes.NewAccountID(raw)
	if err != nil {
		panic(err)
	}
	return addr
}

func newTestEngine(t *testing.T) (*Engine, *mockEngineState) {
	t.Helper()
	engine := NewEngine()
	state := newMockEngineState()
	engine.SetState(state)
	return engine, state
}
