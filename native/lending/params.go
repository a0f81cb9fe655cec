package lending

// RiskParameters holds the ledger-wide knobs applied to every loan.
type RiskParameters struct {
	// ProtocolFeeBps is retained from each interest settlement for the
	// protocol treasury.
	ProtocolFeeBps uint64
	// MinCollateralRatio is expressed in percent: 150 requires collateral
	// worth 150% of the outstanding principal.
	MinCollateralRatio uint64
	// MaxInterestRateBps caps the effective annual rate after risk
	// multipliers.
	MaxInterestRateBps uint64
	// ProportionalRelease releases excess collateral back to the borrower as
	// principal is paid down, keeping only the required ratio locked.
	ProportionalRelease bool
}

// LoanDefaults are the per-loan parameters stamped onto a loan at creation.
// Lenders may tighten or relax individual loans afterwards through the
// dedicated operations.
type LoanDefaults struct {
	LateFeeRateBps       uint64 // per whole overdue day
	MaxLateFeeBps        uint64 // cumulative cap across the loan's life
	GracePeriodBlocks    uint64
	MaxGraceExtensions   uint32
	ExtensionFeeBps      uint64
	MaxExtensions        uint32
	RefinanceFeeBps      uint64
	MaxRefinances        uint32
	MinRefinanceInterval uint64
	RateUpdateFrequency  uint64
	RiskMultiplier       uint64 // 1000 = 1.0x
	EarlyDiscountBaseBps uint64
	EarlyDiscountMinBps  uint64
	EarlyDiscountMaxBps  uint64
}

// Params bundles the configuration consumed by the engine.
type Params struct {
	Risk RiskParameters
	Loan LoanDefaults
}

// DefaultParams mirrors the ledger's launch configuration.
func DefaultParams() Params {
	return Params{
		Risk: RiskParameters{
			ProtocolFeeBps:      50,
			MinCollateralRatio:  150,
			MaxInterestRateBps:  10_000,
			ProportionalRelease: false,
		},
		Loan: LoanDefaults{
			LateFeeRateBps:       50,
			MaxLateFeeBps:        1_000,
			GracePeriodBlocks:    100,
			MaxGraceExtensions:   2,
			ExtensionFeeBps:      100,
			MaxExtensions:        3,
			RefinanceFeeBps:      200,
			MaxRefinances:        2,
			MinRefinanceInterval: BlocksPerDay,
			RateUpdateFrequency:  BlocksPerDay,
			RiskMultiplier:       1_000,
			EarlyDiscountBaseBps: 500,
			EarlyDiscountMinBps:  100,
			EarlyDiscountMaxBps:  500,
		},
	}
}

const (
	// RiskMultiplierMin and RiskMultiplierMax bound lender-set risk
	// multipliers (1000 = 1.0x).
	RiskMultiplierMin uint64 = 500
	RiskMultiplierMax uint64 = 3_000
	// RiskMultiplierScale converts multipliers to a factor.
	RiskMultiplierScale uint64 = 1_000
)

// CreditScoreMin, CreditScoreMax and CreditScoreDefault bound borrower credit
// scores.
const (
	CreditScoreMin     uint32 = 300
	CreditScoreMax     uint32 = 850
	CreditScoreDefault uint32 = 700
)
