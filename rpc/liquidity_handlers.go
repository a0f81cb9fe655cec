package rpc

import (
	"math/big"
	"net/http"

	"lendledger/native/liquidity"
)

type poolCallParams struct {
	Caller string `json:"caller"`
	PoolID uint64 `json:"poolId"`
}

func (s *Server) handleCreatePool(w http.ResponseWriter, req *RPCRequest) {
	var params struct {
		Creator         string `json:"creator"`
		Name            string `json:"name"`
		FeeRateBps      uint64 `json:"feeRateBps"`
		RewardRateBps   uint64 `json:"rewardRateBps"`
		MinContribution string `json:"minContribution"`
		MaxLiquidity    string `json:"maxLiquidity"`
	}
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	creator, rpcErr := parseAccount(params.Creator)
	if rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	minContribution, rpcErr := parseAmount(params.MinContribution)
	if rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	maxLiquidity, rpcErr := parseAmount(params.MaxLiquidity)
	if rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	var pool *liquidity.LiquidityPool
	err := s.node.Do(req.Method, func() error {
		var opErr error
		pool, opErr = s.node.Liquidity().CreatePool(creator, params.Name, params.FeeRateBps, params.RewardRateBps, minContribution, maxLiquidity)
		return opErr
	})
	respond(w, req, pool, err)
}

func (s *Server) handleProvideLiquidity(w http.ResponseWriter, req *RPCRequest) {
	var params struct {
		Account string `json:"account"`
		PoolID  uint64 `json:"poolId"`
		Amount  string `json:"amount"`
	}
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	account, rpcErr := parseAccount(params.Account)
	if rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	amount, rpcErr := parseAmount(params.Amount)
	if rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	var provider *liquidity.LiquidityProvider
	err := s.node.Do(req.Method, func() error {
		var opErr error
		provider, opErr = s.node.Liquidity().ProvideLiquidity(account, params.PoolID, amount)
		return opErr
	})
	respond(w, req, provider, err)
}

func (s *Server) handleWithdrawLiquidity(w http.ResponseWriter, req *RPCRequest) {
	var params struct {
		Account string `json:"account"`
		PoolID  uint64 `json:"poolId"`
		Amount  string `json:"amount"`
	}
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	account, rpcErr := parseAccount(params.Account)
	if rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	amount, rpcErr := parseAmount(params.Amount)
	if rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	var provider *liquidity.LiquidityProvider
	err := s.node.Do(req.Method, func() error {
		var opErr error
		provider, opErr = s.node.Liquidity().WithdrawLiquidity(account, params.PoolID, amount)
		return opErr
	})
	respond(w, req, provider, err)
}

func (s *Server) handleClaimPoolRewards(w http.ResponseWriter, req *RPCRequest) {
	var params struct {
		Account string `json:"account"`
		PoolID  uint64 `json:"poolId"`
	}
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	account, rpcErr := parseAccount(params.Account)
	if rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	var reward *big.Int
	err := s.node.Do(req.Method, func() error {
		var opErr error
		reward, opErr = s.node.Liquidity().ClaimPoolRewards(account, params.PoolID)
		return opErr
	})
	if err != nil {
		respond(w, req, nil, err)
		return
	}
	respond(w, req, map[string]string{"reward": reward.String()}, nil)
}

func (s *Server) handleRebalancePool(w http.ResponseWriter, req *RPCRequest) {
	var params poolCallParams
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	caller, rpcErr := parseAccount(params.Caller)
	if rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	var info liquidity.RebalanceInfo
	err := s.node.Do(req.Method, func() error {
		var opErr error
		info, opErr = s.node.Liquidity().RebalancePool(caller, params.PoolID)
		return opErr
	})
	respond(w, req, info, err)
}

func (s *Server) handleSetAutoRebalancing(w http.ResponseWriter, req *RPCRequest) {
	var params struct {
		Caller  string `json:"caller"`
		PoolID  uint64 `json:"poolId"`
		Enabled bool   `json:"enabled"`
	}
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	caller, rpcErr := parseAccount(params.Caller)
	if rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	err := s.node.Do(req.Method, func() error {
		return s.node.Liquidity().SetAutoRebalancing(caller, params.PoolID, params.Enabled)
	})
	respond(w, req, map[string]bool{"autoRebalance": params.Enabled}, err)
}

func (s *Server) handleSetRebalancingParameters(w http.ResponseWriter, req *RPCRequest) {
	var params struct {
		Caller         string `json:"caller"`
		PoolID         uint64 `json:"poolId"`
		Frequency      uint64 `json:"frequency"`
		TargetRatioBps uint64 `json:"targetRatioBps"`
		ThresholdBps   uint64 `json:"thresholdBps"`
	}
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	caller, rpcErr := parseAccount(params.Caller)
	if rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	err := s.node.Do(req.Method, func() error {
		return s.node.Liquidity().SetRebalancingParameters(caller, params.PoolID, params.Frequency, params.TargetRatioBps, params.ThresholdBps)
	})
	respond(w, req, map[string]bool{"set": err == nil}, err)
}

func (s *Server) handleEnableYieldFarming(w http.ResponseWriter, req *RPCRequest) {
	var params struct {
		Caller       string `json:"caller"`
		PoolID       uint64 `json:"poolId"`
		Requirements *struct {
			MinStake           string `json:"minStake"`
			MaxStake           string `json:"maxStake"`
			LockPeriod         uint64 `json:"lockPeriod"`
			EarlyUnstakeFeeBps uint64 `json:"earlyUnstakeFeeBps"`
		} `json:"requirements,omitempty"`
		Tiers []struct {
			Name          string `json:"name"`
			MinStake      string `json:"minStake"`
			MultiplierBps uint64 `json:"multiplierBps"`
			BonusBps      uint64 `json:"bonusBps"`
		} `json:"tiers,omitempty"`
	}
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	caller, rpcErr := parseAccount(params.Caller)
	if rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	var reqs *liquidity.StakingRequirements
	if params.Requirements != nil {
		minStake, rpcErr := parseAmount(params.Requirements.MinStake)
		if rpcErr != nil {
			badParams(w, req, rpcErr)
			return
		}
		maxStake, rpcErr := parseAmount(params.Requirements.MaxStake)
		if rpcErr != nil {
			badParams(w, req, rpcErr)
			return
		}
		reqs = &liquidity.StakingRequirements{
			MinStake:           minStake,
			MaxStake:           maxStake,
			LockPeriod:         params.Requirements.LockPeriod,
			EarlyUnstakeFeeBps: params.Requirements.EarlyUnstakeFeeBps,
		}
	}
	tiers := make([]liquidity.StakingTier, 0, len(params.Tiers))
	for _, t := range params.Tiers {
		minStake, rpcErr := parseAmount(t.MinStake)
		if rpcErr != nil {
			badParams(w, req, rpcErr)
			return
		}
		tiers = append(tiers, liquidity.StakingTier{
			Name:          t.Name,
			MinStake:      minStake,
			MultiplierBps: t.MultiplierBps,
			BonusBps:      t.BonusBps,
		})
	}
	err := s.node.Do(req.Method, func() error {
		return s.node.Liquidity().EnableYieldFarming(caller, params.PoolID, reqs, tiers)
	})
	respond(w, req, map[string]bool{"enabled": err == nil}, err)
}

func (s *Server) handleStakeTokens(w http.ResponseWriter, req *RPCRequest) {
	var params struct {
		Account string `json:"account"`
		PoolID  uint64 `json:"poolId"`
		Amount  string `json:"amount"`
	}
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	account, rpcErr := parseAccount(params.Account)
	if rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	amount, rpcErr := parseAmount(params.Amount)
	if rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	var position *liquidity.StakePosition
	err := s.node.Do(req.Method, func() error {
		var opErr error
		position, opErr = s.node.Liquidity().StakeTokens(account, params.PoolID, amount)
		return opErr
	})
	respond(w, req, position, err)
}

func (s *Server) handleUnstakeTokens(w http.ResponseWriter, req *RPCRequest) {
	var params struct {
		Account       string `json:"account"`
		PoolID        uint64 `json:"poolId"`
		AcceptPenalty bool   `json:"acceptPenalty"`
	}
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	account, rpcErr := parseAccount(params.Account)
	if rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	var returned, penalty *big.Int
	err := s.node.Do(req.Method, func() error {
		var opErr error
		returned, penalty, opErr = s.node.Liquidity().UnstakeTokens(account, params.PoolID, params.AcceptPenalty)
		return opErr
	})
	if err != nil {
		respond(w, req, nil, err)
		return
	}
	respond(w, req, map[string]string{"returned": returned.String(), "penalty": penalty.String()}, nil)
}

func (s *Server) handleClaimYieldRewards(w http.ResponseWriter, req *RPCRequest) {
	var params struct {
		Account string `json:"account"`
		PoolID  uint64 `json:"poolId"`
	}
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	account, rpcErr := parseAccount(params.Account)
	if rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	var reward *big.Int
	err := s.node.Do(req.Method, func() error {
		var opErr error
		reward, opErr = s.node.Liquidity().ClaimYieldRewards(account, params.PoolID)
		return opErr
	})
	if err != nil {
		respond(w, req, nil, err)
		return
	}
	respond(w, req, map[string]string{"reward": reward.String()}, nil)
}

// --- read-only queries ---

type poolQueryParams struct {
	PoolID uint64 `json:"poolId"`
}

func (s *Server) handleNeedsRebalancing(w http.ResponseWriter, req *RPCRequest) {
	var params poolQueryParams
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	var needs bool
	err := s.node.Do(req.Method, func() error {
		var opErr error
		needs, opErr = s.node.Liquidity().NeedsRebalancing(params.PoolID)
		return opErr
	})
	respond(w, req, map[string]bool{"needsRebalance": needs}, err)
}

func (s *Server) handleGetRebalancingInfo(w http.ResponseWriter, req *RPCRequest) {
	var params poolQueryParams
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	var info liquidity.RebalanceInfo
	err := s.node.Do(req.Method, func() error {
		var opErr error
		info, opErr = s.node.Liquidity().RebalancingInfo(params.PoolID)
		return opErr
	})
	respond(w, req, info, err)
}

func (s *Server) handleGetPool(w http.ResponseWriter, req *RPCRequest) {
	var params poolQueryParams
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	var pool *liquidity.LiquidityPool
	err := s.node.Do(req.Method, func() error {
		var opErr error
		pool, opErr = s.node.Liquidity().GetPool(params.PoolID)
		return opErr
	})
	respond(w, req, pool, err)
}

func (s *Server) handleGetProvider(w http.ResponseWriter, req *RPCRequest) {
	var params struct {
		Account string `json:"account"`
		PoolID  uint64 `json:"poolId"`
	}
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	account, rpcErr := parseAccount(params.Account)
	if rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	var provider *liquidity.LiquidityProvider
	err := s.node.Do(req.Method, func() error {
		var opErr error
		provider, opErr = s.node.Liquidity().GetProvider(params.PoolID, account)
		return opErr
	})
	respond(w, req, provider, err)
}

func (s *Server) handlePendingRewards(w http.ResponseWriter, req *RPCRequest) {
	var params struct {
		Account string `json:"account"`
		PoolID  uint64 `json:"poolId"`
	}
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	account, rpcErr := parseAccount(params.Account)
	if rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	var pending *big.Int
	err := s.node.Do(req.Method, func() error {
		var opErr error
		pending, opErr = s.node.Liquidity().PendingPoolRewards(params.PoolID, account)
		return opErr
	})
	if err != nil {
		respond(w, req, nil, err)
		return
	}
	respond(w, req, map[string]string{"pending": pending.String()}, nil)
}

func (s *Server) handleGetStake(w http.ResponseWriter, req *RPCRequest) {
	var params struct {
		Account string `json:"account"`
		PoolID  uint64 `json:"poolId"`
	}
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	account, rpcErr := parseAccount(params.Account)
	if rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	var position *liquidity.StakePosition
	err := s.node.Do(req.Method, func() error {
		var opErr error
		position, opErr = s.node.Liquidity().GetStake(params.PoolID, account)
		return opErr
	})
	respond(w, req, position, err)
}

func (s *Server) handleGetStakingTiers(w http.ResponseWriter, req *RPCRequest) {
	var params poolQueryParams
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	var tiers []liquidity.StakingTier
	err := s.node.Do(req.Method, func() error {
		var opErr error
		tiers, opErr = s.node.Liquidity().StakingTiers(params.PoolID)
		return opErr
	})
	respond(w, req, tiers, err)
}
