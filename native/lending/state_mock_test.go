package lending

import (
	"testing"

	coretypes "lendledger/core/types"
)

type mockEngineState struct {
	loans    map[uint64]*Loan
	profiles map[coretypes.AccountID]*UserProfile
	fees     *FeeAccrual
	nextID   uint64
}

func newMockEngineState() *mockEngineState {
	return &mockEngineState{
		loans:    make(map[uint64]*Loan),
		profiles: make(map[coretypes.AccountID]*UserProfile),
	}
}

func (m *mockEngineState) LoanGet(id uint64) (*Loan, error) {
	return m.loans[id].Clone(), nil
}

func (m *mockEngineState) LoanPut(loan *Loan) error {
	m.loans[loan.ID] = loan.Clone()
	return nil
}

func (m *mockEngineState) NextLoanID() (uint64, error) {
	m.nextID++
	return m.nextID, nil
}

func (m *mockEngineState) ProfileGet(account coretypes.AccountID) (*UserProfile, error) {
	return m.profiles[account].Clone(), nil
}

func (m *mockEngineState) ProfilePut(profile *UserProfile) error {
	m.profiles[profile.Account] = profile.Clone()
	return nil
}

func (m *mockEngineState) FeesGet() (*FeeAccrual, error) {
	return m.fees, nil
}

func (m *mockEngineState) FeesPut(fees *FeeAccrual) error {
	m.fees = fees.Clone()
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
	engine := NewEngine(DefaultParams())
	state := newMockEngineState()
	engine.SetState(state)
	return engine, state
}
