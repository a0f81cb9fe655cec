package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"lendledger/core/types"
	"lendledger/native/lending"
	"lendledger/native/liquidity"
)

const (
	keyLoanPrefix     = "lending/loan/"
	keyLoanSeq        = "lending/loan-seq"
	keyProfilePrefix  = "lending/profile/"
	keyFees           = "lending/fees"
	keyPoolPrefix     = "liquidity/pool/"
	keyPoolSeq        = "liquidity/pool-seq"
	keyProviderPrefix = "liquidity/provider/"
	keyStakePrefix    = "liquidity/stake/"
)

// State adapts a key-value Database to the persistence interfaces of the
// lending and liquidity engines. Records are stored as JSON snapshots under
// prefixed keys; identifier sequences are allocated under a mutex so
// concurrent creators never collide.
type State struct {
	db Database
	mu sync.Mutex
}

// NewState wraps a database.
func NewState(db Database) *State {
	return &State{db: db}
}

func loanKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", keyLoanPrefix, id))
}

func profileKey(account types.AccountID) []byte {
	return []byte(keyProfilePrefix + account.String())
}

func poolKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", keyPoolPrefix, id))
}

func providerKey(poolID uint64, account types.AccountID) []byte {
	return []byte(fmt.Sprintf("%s%020d/%s", keyProviderPrefix, poolID, account.String()))
}

func stakeKey(poolID uint64, account types.AccountID) []byte {
	return []byte(fmt.Sprintf("%s%020d/%s", keyStakePrefix, poolID, account.String()))
}

// getJSON loads and decodes a record, translating absence into (false, nil).
func (s *State) getJSON(key []byte, out any) (bool, error) {
	raw, err := s.db.Get(key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *State) putJSON(key []byte, in any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.db.Put(key, raw)
}

// nextSeq increments and returns a sequence counter. The first allocated
// identifier is 1.
func (s *State) nextSeq(key []byte) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var current uint64
	raw, err := s.db.Get(key)
	switch {
	case err == nil:
		if len(raw) != 8 {
			return 0, fmt.Errorf("corrupt sequence %s", key)
		}
		current = binary.BigEndian.Uint64(raw)
	case errors.Is(err, ErrKeyNotFound):
	default:
		return 0, err
	}
	current++
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, current)
	if err := s.db.Put(key, buf); err != nil {
		return 0, err
	}
	return current, nil
}

// --- lending engine state ---

// LoanGet loads a loan snapshot; a nil result means the loan does not exist.
func (s *State) LoanGet(id uint64) (*lending.Loan, error) {
	var loan lending.Loan
	ok, err := s.getJSON(loanKey(id), &loan)
	if err != nil || !ok {
		return nil, err
	}
	return &loan, nil
}

// LoanPut persists a loan snapshot.
func (s *State) LoanPut(loan *lending.Loan) error {
	if loan == nil {
		return fmt.Errorf("nil loan")
	}
	return s.putJSON(loanKey(loan.ID), loan)
}

// NextLoanID allocates the next loan identifier.
func (s *State) NextLoanID() (uint64, error) {
	return s.nextSeq([]byte(keyLoanSeq))
}

// ProfileGet loads a participant profile; nil means no profile exists yet.
func (s *State) ProfileGet(account types.AccountID) (*lending.UserProfile, error) {
	var profile lending.UserProfile
	ok, err := s.getJSON(profileKey(account), &profile)
	if err != nil || !ok {
		return nil, err
	}
	return &profile, nil
}

// ProfilePut persists a participant profile.
func (s *State) ProfilePut(profile *lending.UserProfile) error {
	if profile == nil {
		return fmt.Errorf("nil profile")
	}
	return s.putJSON(profileKey(profile.Account), profile)
}

// FeesGet loads the protocol fee accrual; nil means nothing collected yet.
func (s *State) FeesGet() (*lending.FeeAccrual, error) {
	var fees lending.FeeAccrual
	ok, err := s.getJSON([]byte(keyFees), &fees)
	if err != nil || !ok {
		return nil, err
	}
	return &fees, nil
}

// FeesPut persists the protocol fee accrual.
func (s *State) FeesPut(fees *lending.FeeAccrual) error {
	if fees == nil {
		return fmt.Errorf("nil fee accrual")
	}
	return s.putJSON([]byte(keyFees), fees)
}

// --- liquidity engine state ---

// PoolGet loads a pool snapshot; nil means the pool does not exist.
func (s *State) PoolGet(id uint64) (*liquidity.LiquidityPool, error) {
	var pool liquidity.LiquidityPool
	ok, err := s.getJSON(poolKey(id), &pool)
	if err != nil || !ok {
		return nil, err
	}
	return &pool, nil
}

// PoolPut persists a pool snapshot.
func (s *State) PoolPut(pool *liquidity.LiquidityPool) error {
	if pool == nil {
		return fmt.Errorf("nil pool")
	}
	return s.putJSON(poolKey(pool.ID), pool)
}

// NextPoolID allocates the next pool identifier.
func (s *State) NextPoolID() (uint64, error) {
	return s.nextSeq([]byte(keyPoolSeq))
}

// ProviderGet loads a provider position; nil means the account has none.
func (s *State) ProviderGet(poolID uint64, account types.AccountID) (*liquidity.LiquidityProvider, error) {
	var provider liquidity.LiquidityProvider
	ok, err := s.getJSON(providerKey(poolID, account), &provider)
	if err != nil || !ok {
		return nil, err
	}
	return &provider, nil
}

// ProviderPut persists a provider position.
func (s *State) ProviderPut(provider *liquidity.LiquidityProvider) error {
	if provider == nil {
		return fmt.Errorf("nil provider")
	}
	return s.putJSON(providerKey(provider.PoolID, provider.Account), provider)
}

// StakeGet loads a staking position; nil means the account has none.
func (s *State) StakeGet(poolID uint64, account types.AccountID) (*liquidity.StakePosition, error) {
	var position liquidity.StakePosition
	ok, err := s.getJSON(stakeKey(poolID, account), &position)
	if err != nil || !ok {
		return nil, err
	}
	return &position, nil
}

// StakePut persists a staking position.
func (s *State) StakePut(position *liquidity.StakePosition) error {
	if position == nil {
		return fmt.Errorf("nil stake position")
	}
	return s.putJSON(stakeKey(position.PoolID, position.Account), position)
}

// StakeDelete removes a staking position.
func (s *State) StakeDelete(poolID uint64, account types.AccountID) error {
	return s.db.Delete(stakeKey(poolID, account))
}
