package rpc

import (
	"math/big"
	"net/http"

	"lendledger/native/lending"
)

func badParams(w http.ResponseWriter, req *RPCRequest, rpcErr *RPCError) {
	writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
}

func parseFrequency(raw string) (lending.CompoundFrequency, *RPCError) {
	switch raw {
	case "daily":
		return lending.CompoundDaily, nil
	case "weekly":
		return lending.CompoundWeekly, nil
	case "monthly", "":
		return lending.CompoundMonthly, nil
	case "quarterly":
		return lending.CompoundQuarterly, nil
	case "annually":
		return lending.CompoundAnnually, nil
	default:
		return 0, &RPCError{Code: codeInvalidParams, Message: "unknown compounding frequency", Data: raw}
	}
}

func parseGraceReason(raw string) (lending.GraceReason, *RPCError) {
	switch raw {
	case "first_time_borrower":
		return lending.GraceFirstTimeBorrower, nil
	case "good_payment_history":
		return lending.GraceGoodPaymentHistory, nil
	case "market_conditions":
		return lending.GraceMarketConditions, nil
	case "lender_discretion":
		return lending.GraceLenderDiscretion, nil
	case "emergency":
		return lending.GraceEmergency, nil
	default:
		return lending.GraceNone, &RPCError{Code: codeInvalidParams, Message: "unknown grace reason", Data: raw}
	}
}

type loanCallParams struct {
	Caller string `json:"caller"`
	LoanID uint64 `json:"loanId"`
}

func (s *Server) handleCreateLoan(w http.ResponseWriter, req *RPCRequest) {
	var params struct {
		Borrower       string `json:"borrower"`
		Principal      string `json:"principal"`
		RateBps        uint64 `json:"rateBps"`
		DurationBlocks uint64 `json:"durationBlocks"`
		Collateral     string `json:"collateral"`
	}
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	borrower, rpcErr := parseAccount(params.Borrower)
	if rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	principal, rpcErr := parseAmount(params.Principal)
	if rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	collateral, rpcErr := parseAmount(params.Collateral)
	if rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	var loan *lending.Loan
	err := s.node.Do(req.Method, func() error {
		var opErr error
		loan, opErr = s.node.Lending().CreateLoan(borrower, principal, params.RateBps, params.DurationBlocks, collateral)
		return opErr
	})
	respond(w, req, loan, err)
}

func (s *Server) handleFundLoan(w http.ResponseWriter, req *RPCRequest) {
	var params loanCallParams
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	lender, rpcErr := parseAccount(params.Caller)
	if rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	var loan *lending.Loan
	err := s.node.Do(req.Method, func() error {
		var opErr error
		loan, opErr = s.node.Lending().FundLoan(lender, params.LoanID)
		return opErr
	})
	respond(w, req, loan, err)
}

func (s *Server) handleRepayLoan(w http.ResponseWriter, req *RPCRequest) {
	var params loanCallParams
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	caller, rpcErr := parseAccount(params.Caller)
	if rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	var paid *big.Int
	err := s.node.Do(req.Method, func() error {
		var opErr error
		paid, opErr = s.node.Lending().RepayLoan(caller, params.LoanID)
		return opErr
	})
	if err != nil {
		respond(w, req, nil, err)
		return
	}
	respond(w, req, map[string]string{"paid": paid.String()}, nil)
}

func (s *Server) handleEarlyRepayLoan(w http.ResponseWriter, req *RPCRequest) {
	var params loanCallParams
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	caller, rpcErr := parseAccount(params.Caller)
	if rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	var paid, discount *big.Int
	err := s.node.Do(req.Method, func() error {
		var opErr error
		paid, discount, opErr = s.node.Lending().EarlyRepayLoan(caller, params.LoanID)
		return opErr
	})
	if err != nil {
		respond(w, req, nil, err)
		return
	}
	respond(w, req, map[string]string{"paid": paid.String(), "discount": discount.String()}, nil)
}

func (s *Server) handlePartialRepayLoan(w http.ResponseWriter, req *RPCRequest) {
	var params struct {
		Caller string `json:"caller"`
		LoanID uint64 `json:"loanId"`
		Amount string `json:"amount"`
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
	amount, rpcErr := parseAmount(params.Amount)
	if rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	var payment lending.PartialPayment
	err := s.node.Do(req.Method, func() error {
		var opErr error
		payment, opErr = s.node.Lending().PartialRepayLoan(caller, params.LoanID, amount)
		return opErr
	})
	respond(w, req, payment, err)
}

func (s *Server) handleExtendLoan(w http.ResponseWriter, req *RPCRequest) {
	var params struct {
		Caller      string `json:"caller"`
		LoanID      uint64 `json:"loanId"`
		ExtraBlocks uint64 `json:"extraBlocks"`
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
	var fee *big.Int
	err := s.node.Do(req.Method, func() error {
		var opErr error
		fee, opErr = s.node.Lending().ExtendLoan(caller, params.LoanID, params.ExtraBlocks)
		return opErr
	})
	if err != nil {
		respond(w, req, nil, err)
		return
	}
	respond(w, req, map[string]string{"fee": fee.String()}, nil)
}

func (s *Server) handleApplyLateFees(w http.ResponseWriter, req *RPCRequest) {
	var params struct {
		LoanID uint64 `json:"loanId"`
	}
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	var fee *big.Int
	err := s.node.Do(req.Method, func() error {
		var opErr error
		fee, opErr = s.node.Lending().ApplyLateFees(params.LoanID)
		return opErr
	})
	if err != nil {
		respond(w, req, nil, err)
		return
	}
	respond(w, req, map[string]string{"fee": fee.String()}, nil)
}

func (s *Server) handleMarkDefault(w http.ResponseWriter, req *RPCRequest) {
	var params loanCallParams
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	caller, rpcErr := parseAccount(params.Caller)
	if rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	var seized *big.Int
	err := s.node.Do(req.Method, func() error {
		var opErr error
		seized, opErr = s.node.Lending().MarkDefault(caller, params.LoanID)
		return opErr
	})
	if err != nil {
		respond(w, req, nil, err)
		return
	}
	respond(w, req, map[string]string{"collateralSeized": seized.String()}, nil)
}

func (s *Server) handleLiquidate(w http.ResponseWriter, req *RPCRequest) {
	var params loanCallParams
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	caller, rpcErr := parseAccount(params.Caller)
	if rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	var seized *big.Int
	err := s.node.Do(req.Method, func() error {
		var opErr error
		seized, opErr = s.node.Lending().Liquidate(caller, params.LoanID)
		return opErr
	})
	if err != nil {
		respond(w, req, nil, err)
		return
	}
	respond(w, req, map[string]string{"collateralSeized": seized.String()}, nil)
}

func (s *Server) handleAdjustInterestRate(w http.ResponseWriter, req *RPCRequest) {
	var params struct {
		Caller     string `json:"caller"`
		LoanID     uint64 `json:"loanId"`
		NewBaseBps uint64 `json:"newBaseBps"`
		Reason     string `json:"reason"`
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
		return s.node.Lending().AdjustInterestRate(caller, params.LoanID, params.NewBaseBps, params.Reason)
	})
	respond(w, req, map[string]bool{"adjusted": err == nil}, err)
}

func (s *Server) handleUpdateRiskMultiplier(w http.ResponseWriter, req *RPCRequest) {
	var params struct {
		Caller     string `json:"caller"`
		LoanID     uint64 `json:"loanId"`
		Multiplier uint64 `json:"multiplier"`
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
		return s.node.Lending().UpdateRiskMultiplier(caller, params.LoanID, params.Multiplier)
	})
	respond(w, req, map[string]bool{"updated": err == nil}, err)
}

func (s *Server) handleConvertToVariableRate(w http.ResponseWriter, req *RPCRequest) {
	var params struct {
		Caller  string `json:"caller"`
		LoanID  uint64 `json:"loanId"`
		BaseBps uint64 `json:"baseBps"`
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
		return s.node.Lending().ConvertToVariableRate(caller, params.LoanID, params.BaseBps)
	})
	respond(w, req, map[string]bool{"converted": err == nil}, err)
}

func (s *Server) handleConvertToCompoundInterest(w http.ResponseWriter, req *RPCRequest) {
	var params struct {
		Caller    string `json:"caller"`
		LoanID    uint64 `json:"loanId"`
		Frequency string `json:"frequency"`
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
	freq, rpcErr := parseFrequency(params.Frequency)
	if rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	err := s.node.Do(req.Method, func() error {
		return s.node.Lending().ConvertToCompoundInterest(caller, params.LoanID, freq)
	})
	respond(w, req, map[string]bool{"converted": err == nil}, err)
}

func (s *Server) handleCompoundInterest(w http.ResponseWriter, req *RPCRequest) {
	var params struct {
		LoanID uint64 `json:"loanId"`
	}
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	var capitalised *big.Int
	err := s.node.Do(req.Method, func() error {
		var opErr error
		capitalised, opErr = s.node.Lending().CompoundInterest(params.LoanID)
		return opErr
	})
	if err != nil {
		respond(w, req, nil, err)
		return
	}
	respond(w, req, map[string]string{"capitalised": capitalised.String()}, nil)
}

func (s *Server) handleSetInterestOnlyPeriods(w http.ResponseWriter, req *RPCRequest) {
	var params struct {
		Caller       string `json:"caller"`
		LoanID       uint64 `json:"loanId"`
		Periods      uint32 `json:"periods"`
		PeriodBlocks uint64 `json:"periodBlocks"`
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
		return s.node.Lending().SetInterestOnlyPeriods(caller, params.LoanID, params.Periods, params.PeriodBlocks)
	})
	respond(w, req, map[string]bool{"set": err == nil}, err)
}

func (s *Server) handleMakeInterestOnlyPayment(w http.ResponseWriter, req *RPCRequest) {
	var params loanCallParams
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	caller, rpcErr := parseAccount(params.Caller)
	if rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	var payment lending.PartialPayment
	err := s.node.Do(req.Method, func() error {
		var opErr error
		payment, opErr = s.node.Lending().MakeInterestOnlyPayment(caller, params.LoanID)
		return opErr
	})
	respond(w, req, payment, err)
}

func (s *Server) handleSwitchToPrincipalAndInterest(w http.ResponseWriter, req *RPCRequest) {
	var params loanCallParams
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
		return s.node.Lending().SwitchToPrincipalAndInterest(caller, params.LoanID)
	})
	respond(w, req, map[string]bool{"switched": err == nil}, err)
}

func (s *Server) handleGrantGracePeriod(w http.ResponseWriter, req *RPCRequest) {
	var params struct {
		Caller   string `json:"caller"`
		LoanID   uint64 `json:"loanId"`
		Duration uint64 `json:"durationBlocks"`
		Reason   string `json:"reason"`
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
	reason, rpcErr := parseGraceReason(params.Reason)
	if rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	err := s.node.Do(req.Method, func() error {
		return s.node.Lending().GrantGracePeriod(caller, params.LoanID, params.Duration, reason)
	})
	respond(w, req, map[string]bool{"granted": err == nil}, err)
}

func (s *Server) handleSetCustomGracePeriod(w http.ResponseWriter, req *RPCRequest) {
	var params struct {
		Caller        string `json:"caller"`
		LoanID        uint64 `json:"loanId"`
		Blocks        uint64 `json:"blocks"`
		MaxExtensions uint32 `json:"maxExtensions"`
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
		return s.node.Lending().SetCustomGracePeriod(caller, params.LoanID, params.Blocks, params.MaxExtensions)
	})
	respond(w, req, map[string]bool{"set": err == nil}, err)
}

func (s *Server) handleRefinanceLoan(w http.ResponseWriter, req *RPCRequest) {
	var params struct {
		Caller         string `json:"caller"`
		LoanID         uint64 `json:"loanId"`
		NewRateBps     uint64 `json:"newRateBps"`
		DurationBlocks uint64 `json:"durationBlocks"`
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
	var record lending.RefinanceRecord
	err := s.node.Do(req.Method, func() error {
		var opErr error
		record, opErr = s.node.Lending().RefinanceLoan(caller, params.LoanID, params.NewRateBps, params.DurationBlocks)
		return opErr
	})
	respond(w, req, record, err)
}

// --- read-only queries ---

type loanQueryParams struct {
	LoanID uint64 `json:"loanId"`
}

func (s *Server) handleGetLoan(w http.ResponseWriter, req *RPCRequest) {
	var params loanQueryParams
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	var loan *lending.Loan
	err := s.node.Do(req.Method, func() error {
		var opErr error
		loan, opErr = s.node.Lending().GetLoan(params.LoanID)
		return opErr
	})
	respond(w, req, loan, err)
}

func (s *Server) handleGetAccruedInterest(w http.ResponseWriter, req *RPCRequest) {
	var params loanQueryParams
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	var interest *big.Int
	err := s.node.Do(req.Method, func() error {
		var opErr error
		interest, opErr = s.node.Lending().AccruedInterest(params.LoanID)
		return opErr
	})
	if err != nil {
		respond(w, req, nil, err)
		return
	}
	respond(w, req, map[string]string{"accruedInterest": interest.String()}, nil)
}

func (s *Server) handleGetTotalOwed(w http.ResponseWriter, req *RPCRequest) {
	var params loanQueryParams
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	var owed *big.Int
	err := s.node.Do(req.Method, func() error {
		var opErr error
		owed, opErr = s.node.Lending().TotalOwed(params.LoanID)
		return opErr
	})
	if err != nil {
		respond(w, req, nil, err)
		return
	}
	respond(w, req, map[string]string{"totalOwed": owed.String()}, nil)
}

func (s *Server) handleGetEarlyRepaymentDiscount(w http.ResponseWriter, req *RPCRequest) {
	var params loanQueryParams
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	var bps uint64
	var discount *big.Int
	err := s.node.Do(req.Method, func() error {
		var opErr error
		bps, discount, opErr = s.node.Lending().EarlyRepaymentDiscount(params.LoanID)
		return opErr
	})
	if err != nil {
		respond(w, req, nil, err)
		return
	}
	respond(w, req, map[string]interface{}{"discountBps": bps, "discount": discount.String()}, nil)
}

func (s *Server) handlePreviewLateFees(w http.ResponseWriter, req *RPCRequest) {
	var params loanQueryParams
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	var fee *big.Int
	err := s.node.Do(req.Method, func() error {
		var opErr error
		fee, opErr = s.node.Lending().LateFeePreview(params.LoanID)
		return opErr
	})
	if err != nil {
		respond(w, req, nil, err)
		return
	}
	respond(w, req, map[string]string{"fee": fee.String()}, nil)
}

func (s *Server) handleGetExtensionInfo(w http.ResponseWriter, req *RPCRequest) {
	var params loanQueryParams
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	var info lending.ExtensionInfo
	err := s.node.Do(req.Method, func() error {
		var opErr error
		info, opErr = s.node.Lending().ExtensionStatus(params.LoanID)
		return opErr
	})
	respond(w, req, info, err)
}

func (s *Server) handleGetGraceInfo(w http.ResponseWriter, req *RPCRequest) {
	var params loanQueryParams
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	var info lending.GraceInfo
	err := s.node.Do(req.Method, func() error {
		var opErr error
		info, opErr = s.node.Lending().GraceStatus(params.LoanID)
		return opErr
	})
	respond(w, req, info, err)
}

func (s *Server) handleGetRefinanceInfo(w http.ResponseWriter, req *RPCRequest) {
	var params loanQueryParams
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		badParams(w, req, rpcErr)
		return
	}
	var eligibility lending.RefinanceEligibility
	var fee *big.Int
	err := s.node.Do(req.Method, func() error {
		var opErr error
		eligibility, fee, opErr = s.node.Lending().RefinanceStatus(params.LoanID)
		return opErr
	})
	if err != nil {
		respond(w, req, nil, err)
		return
	}
	respond(w, req, map[string]interface{}{"eligibility": eligibility, "fee": fee.String()}, nil)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, req *RPCRequest) {
	var params struct {
		Account string `json:"account"`
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
	var profile *lending.UserProfile
	err := s.node.Do(req.Method, func() error {
		var opErr error
		profile, opErr = s.node.Lending().Profile(account)
		return opErr
	})
	respond(w, req, profile, err)
}

func (s *Server) handleGetProtocolFees(w http.ResponseWriter, req *RPCRequest) {
	var fees *big.Int
	err := s.node.Do(req.Method, func() error {
		var opErr error
		fees, opErr = s.node.Lending().ProtocolFees()
		return opErr
	})
	if err != nil {
		respond(w, req, nil, err)
		return
	}
	respond(w, req, map[string]string{"collected": fees.String()}, nil)
}
