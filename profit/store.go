package profit

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STORE CONTRACT
// =============================================================================
//
// Implementations: store/sqlite (production), store/memory (tests, dev).
//
// Both must enforce uniqueness of (FinancialYearID, InvestorID) for
// distributions, of NationalID for investors and of PeriodName for
// financial years, reporting violations as *generic.DuplicateError.
// Missing records are reported as *generic.NotFoundError.

type InvestorFilter struct {
	IncludeInactive bool
	Search          string // case-insensitive match on name, national ID, email
}

type YearFilter struct {
	Statuses []YearStatus
}

type DistributionFilter struct {
	FinancialYearID YearID
	InvestorID      InvestorID
	Statuses        []DistributionStatus
}

type TransactionFilter struct {
	InvestorID InvestorID
	Type       TransactionType
	From       *time.Time
	To         *time.Time
}

// StatusStamp records who moved distributions to a new status and when.
type StatusStamp struct {
	Actor string
	At    time.Time
}

type InvestorStore interface {
	CreateInvestor(ctx context.Context, inv Investor) error
	GetInvestor(ctx context.Context, id InvestorID) (Investor, error)
	UpdateInvestor(ctx context.Context, inv Investor) error
	DeleteInvestor(ctx context.Context, id InvestorID) error
	ListInvestors(ctx context.Context, f InvestorFilter) ([]Investor, error)

	// SumActiveCapital aggregates contributed capital over active investors.
	SumActiveCapital(ctx context.Context) (decimal.Decimal, error)

	// SetSharePercentages writes only the share column, leaving concurrent
	// capital edits intact.
	SetSharePercentages(ctx context.Context, shares map[InvestorID]decimal.Decimal) error
}

type FinancialYearStore interface {
	CreateFinancialYear(ctx context.Context, fy FinancialYear) error
	GetFinancialYear(ctx context.Context, id YearID) (FinancialYear, error)
	UpdateFinancialYear(ctx context.Context, fy FinancialYear) error
	DeleteFinancialYear(ctx context.Context, id YearID) error
	ListFinancialYears(ctx context.Context, f YearFilter) ([]FinancialYear, error)
}

type DistributionStore interface {
	CreateDistribution(ctx context.Context, d Distribution) error
	GetDistribution(ctx context.Context, id DistributionID) (Distribution, error)
	UpdateDistribution(ctx context.Context, d Distribution) error
	ListDistributions(ctx context.Context, f DistributionFilter) ([]Distribution, error)

	// DeleteDistributions removes every distribution matching f and returns
	// how many were removed. An empty filter is rejected.
	DeleteDistributions(ctx context.Context, f DistributionFilter) (int, error)

	// TransitionDistributions moves all distributions of a year in status
	// from to status to, stamping the actor, and returns the count moved.
	TransitionDistributions(ctx context.Context, year YearID, from, to DistributionStatus, stamp StatusStamp) (int, error)

	// CountDistributionsByStatus groups a year's distributions by status.
	CountDistributionsByStatus(ctx context.Context, year YearID) (map[DistributionStatus]int, error)
}

type TransactionStore interface {
	CreateTransaction(ctx context.Context, tx Transaction) error
	GetTransaction(ctx context.Context, id TransactionID) (Transaction, error)
	UpdateTransaction(ctx context.Context, tx Transaction) error
	DeleteTransaction(ctx context.Context, id TransactionID) error
	ListTransactions(ctx context.Context, f TransactionFilter) ([]Transaction, error)
	DeleteTransactionsByInvestor(ctx context.Context, id InvestorID) (int, error)
}

// Store is the full persistence surface used by Service.
type Store interface {
	InvestorStore
	FinancialYearStore
	DistributionStore
	TransactionStore

	// WithTx runs fn against a store bound to a single transaction. fn's
	// writes are committed when it returns nil and discarded otherwise.
	WithTx(ctx context.Context, fn func(Store) error) error
}
