package lending

import (
	"math/big"

	"lendledger/core/types"
)

// RiskLevel buckets a borrower by credit score.
type RiskLevel uint8

const (
	RiskExcellent RiskLevel = iota
	RiskGood
	RiskFair
	RiskPoor
	RiskVeryPoor
)

func (r RiskLevel) String() string {
	switch r {
	case RiskExcellent:
		return "excellent"
	case RiskGood:
		return "good"
	case RiskFair:
		return "fair"
	case RiskPoor:
		return "poor"
	case RiskVeryPoor:
		return "very_poor"
	default:
		return "unknown"
	}
}

// riskLevelFor maps a credit score onto its bucket.
func riskLevelFor(score uint32) RiskLevel {
	switch {
	case score >= 750:
		return RiskExcellent
	case score >= 700:
		return RiskGood
	case score >= 650:
		return RiskFair
	case score >= 600:
		return RiskPoor
	default:
		return RiskVeryPoor
	}
}

// UserProfile aggregates a participant's lending history. Profiles are
// created lazily on first participation and never deleted; terminal loans
// only decrement the active counter.
type UserProfile struct {
	Account       types.AccountID `json:"account"`
	CreditScore   uint32          `json:"creditScore"`
	TotalBorrowed *big.Int        `json:"totalBorrowed"`
	TotalLent     *big.Int        `json:"totalLent"`
	ActiveLoans   uint32          `json:"activeLoans"`
	RepaidLoans   uint32          `json:"repaidLoans"`
	Defaults      uint32          `json:"defaults"`
}

// NewUserProfile returns a profile with the default credit score.
func NewUserProfile(account types.AccountID) *UserProfile {
	return &UserProfile{
		Account:       account,
		CreditScore:   CreditScoreDefault,
		TotalBorrowed: big.NewInt(0),
		TotalLent:     big.NewInt(0),
	}
}

// Clone deep-copies the profile.
func (p *UserProfile) Clone() *UserProfile {
	if p == nil {
		return nil
	}
	cp := *p
	cp.TotalBorrowed = ensureAmount(p.TotalBorrowed)
	cp.TotalLent = ensureAmount(p.TotalLent)
	return &cp
}

// RiskLevel derives the bucket from the current credit score.
func (p *UserProfile) RiskLevel() RiskLevel {
	return riskLevelFor(p.CreditScore)
}

const (
	creditScoreRepayBonus    = 10
	creditScoreDefaultMalus  = 50
	creditScoreEarlyBonus    = 15
	creditScoreLatePenalty   = 5
	creditScoreLiquidatedHit = 50
)

// raiseScore bumps the credit score, saturating at the maximum.
func (p *UserProfile) raiseScore(by uint32) {
	if p.CreditScore+by > CreditScoreMax {
		p.CreditScore = CreditScoreMax
		return
	}
	p.CreditScore += by
}

// lowerScore drops the credit score, saturating at the minimum.
func (p *UserProfile) lowerScore(by uint32) {
	if p.CreditScore < CreditScoreMin+by {
		p.CreditScore = CreditScoreMin
		return
	}
	p.CreditScore -= by
}
