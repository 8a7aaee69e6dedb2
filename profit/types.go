/*
Package profit implements investor bookkeeping and yearly profit distribution.

PURPOSE:
  Tracks investors and their contributed capital, financial years with a
  nominal profit figure, and the per-investor distributions computed for
  each year. Distributions move through a lifecycle (calculated, approved,
  distributed/rolled over) and approved profit can be rolled over into
  the investor's account as a profit transaction.

COMPONENTS:
  - CapitalLedger (ledger.go):        aggregate capital, share percentages
  - DistributionEngine (engine.go):   daily rate and per-investor profit
  - DistributionLifecycle (lifecycle.go): year/distribution state machine
  - RolloverProcessor (rollover.go):  profit reinvestment, auto rollover
  - Investors/transactions (investors.go): admin CRUD feeding the ledger

KEY CONCEPTS IN THIS FILE (types.go):
  - Investor, FinancialYear, Distribution, Transaction
  - Status enums and their lock/edit rules

SEE ALSO:
  - generic/period.go: participation windows
  - store.go: persistence contract
*/
package profit

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Abd-elrahmann/inestors-backend/generic"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type InvestorID string
type YearID string
type DistributionID string
type TransactionID string

// =============================================================================
// INVESTOR
// =============================================================================

type Investor struct {
	ID                 InvestorID
	FullName           string
	NationalID         string
	Phone              string
	Email              string
	ContributedCapital decimal.Decimal
	Currency           generic.Currency
	JoinDate           time.Time
	Active             bool

	// SharePercentage is derived by CapitalLedger.RecomputeSharePercentages.
	SharePercentage decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// FINANCIAL YEAR
// =============================================================================

type YearStatus string

const (
	YearDraft       YearStatus = "draft"
	YearActive      YearStatus = "active"
	YearCalculated  YearStatus = "calculated"
	YearApproved    YearStatus = "approved"
	YearDistributed YearStatus = "distributed"
	YearClosed      YearStatus = "closed"
)

func (s YearStatus) Valid() bool {
	switch s {
	case YearDraft, YearActive, YearCalculated, YearApproved, YearDistributed, YearClosed:
		return true
	}
	return false
}

// Editable reports whether core fields (dates, profit) may still change.
func (s YearStatus) Editable() bool { return s != YearCalculated && s != YearClosed }

type AutoRolloverStatus string

const (
	AutoRolloverPending   AutoRolloverStatus = "pending"
	AutoRolloverCompleted AutoRolloverStatus = "completed"
	AutoRolloverFailed    AutoRolloverStatus = "failed"
)

type RolloverSettings struct {
	Enabled            bool
	Percentage         decimal.Decimal
	AutoRollover       bool
	AutoRolloverDate   *time.Time
	AutoRolloverStatus AutoRolloverStatus
}

// DefaultRolloverSettings rolls over everything, manually.
func DefaultRolloverSettings() RolloverSettings {
	return RolloverSettings{
		Percentage:         decimal.NewFromInt(100),
		AutoRolloverStatus: AutoRolloverPending,
	}
}

type FinancialYear struct {
	ID          YearID
	Year        int
	PeriodName  string
	StartDate   time.Time
	EndDate     time.Time
	TotalDays   int
	TotalProfit decimal.Decimal
	Currency    generic.Currency

	// DailyProfitRate is profit per unit of capital per day, set by the engine.
	DailyProfitRate decimal.Decimal

	Status   YearStatus
	Rollover RolloverSettings
	Notes    string

	CreatedBy     string
	ApprovedBy    string
	ApprovedAt    *time.Time
	DistributedBy string
	DistributedAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (fy FinancialYear) Period() generic.Period {
	return generic.Period{Start: fy.StartDate, End: fy.EndDate}
}

// derive recomputes fields that follow from the dates. Called on every save.
func (fy *FinancialYear) derive() {
	fy.StartDate = generic.DayOf(fy.StartDate)
	fy.EndDate = generic.DayOf(fy.EndDate)
	fy.TotalDays = fy.Period().Days()
}

// =============================================================================
// DISTRIBUTION
// =============================================================================

type DistributionStatus string

const (
	DistCalculated  DistributionStatus = "calculated"
	DistApproved    DistributionStatus = "approved"
	DistDistributed DistributionStatus = "distributed"
	DistRolledOver  DistributionStatus = "rolled_over"
)

// Locked distributions are immune to recomputation and deletion by a recompute.
func (s DistributionStatus) Locked() bool { return s != DistCalculated }

type Calculation struct {
	InvestmentAmount decimal.Decimal
	TotalDays        int
	DailyProfitRate  decimal.Decimal
	CalculatedProfit decimal.Decimal
}

type RolloverInfo struct {
	IsRolledOver bool
	Amount       decimal.Decimal
	Date         *time.Time
}

type Distribution struct {
	ID               DistributionID
	FinancialYearID  YearID
	InvestorID       InvestorID
	StartDate        time.Time
	Calculation      Calculation
	Currency         generic.Currency
	Status           DistributionStatus
	Rollover         RolloverInfo
	DistributionDate *time.Time

	CreatedBy     string
	ApprovedBy    string
	DistributedBy string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// =============================================================================
// TRANSACTION
// =============================================================================

type TransactionType string

const (
	TxDeposit    TransactionType = "deposit"
	TxWithdrawal TransactionType = "withdrawal"
	TxProfit     TransactionType = "profit"
	TxFee        TransactionType = "fee"
	TxTransfer   TransactionType = "transfer"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TxDeposit, TxWithdrawal, TxProfit, TxFee, TxTransfer:
		return true
	}
	return false
}

// Inflow reports whether the transaction adds to an investor's balance.
func (t TransactionType) Inflow() bool { return t == TxDeposit || t == TxProfit }

type Transaction struct {
	ID              TransactionID
	InvestorID      InvestorID
	Type            TransactionType
	Amount          decimal.Decimal
	Currency        generic.Currency
	TransactionDate time.Time
	Reference       string
	Notes           string
	ReceiptNumber   string

	// ProfitYear links a profit transaction to its financial year.
	ProfitYear int

	// IsContribution marks deposits/withdrawals that move contributed capital.
	IsContribution bool

	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}
