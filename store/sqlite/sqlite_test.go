package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abd-elrahmann/inestors-backend/generic"
	"github.com/Abd-elrahmann/inestors-backend/notify"
	"github.com/Abd-elrahmann/inestors-backend/profit"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

var created = time.Date(2025, time.January, 1, 9, 0, 0, 0, time.UTC)

func investor(id, nationalID, capital string) profit.Investor {
	return profit.Investor{
		ID:                 profit.InvestorID(id),
		FullName:           "Investor " + id,
		NationalID:         nationalID,
		ContributedCapital: dec(capital),
		Currency:           generic.CurrencyIQD,
		JoinDate:           generic.NewDate(2025, time.January, 1),
		Active:             true,
		SharePercentage:    decimal.Zero,
		CreatedAt:          created,
		UpdatedAt:          created,
	}
}

func year(id, periodName string) profit.FinancialYear {
	return profit.FinancialYear{
		ID:          profit.YearID(id),
		Year:        2025,
		PeriodName:  periodName,
		StartDate:   generic.NewDate(2025, time.January, 1),
		EndDate:     generic.NewDate(2025, time.December, 31),
		TotalDays:   365,
		TotalProfit: dec("60000"),
		Currency:    generic.CurrencyIQD,
		Status:      profit.YearDraft,
		Rollover:    profit.DefaultRolloverSettings(),
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

func distribution(id string, fy profit.YearID, inv profit.InvestorID) profit.Distribution {
	return profit.Distribution{
		ID:              profit.DistributionID(id),
		FinancialYearID: fy,
		InvestorID:      inv,
		StartDate:       generic.NewDate(2025, time.January, 1),
		Calculation: profit.Calculation{
			InvestmentAmount: dec("100000"),
			TotalDays:        365,
			DailyProfitRate:  dec("0.000274"),
			CalculatedProfit: dec("10000.123"),
		},
		Currency:  generic.CurrencyIQD,
		Status:    profit.DistCalculated,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

// =============================================================================
// INVESTORS
// =============================================================================

func TestInvestor_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inv := investor("a", "N-1", "100000.50")
	inv.Email = "a@example.com"
	require.NoError(t, s.CreateInvestor(ctx, inv))

	got, err := s.GetInvestor(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "100000.5", got.ContributedCapital.String())
	assert.Equal(t, "a@example.com", got.Email)
	assert.True(t, got.Active)
	assert.True(t, got.JoinDate.Equal(inv.JoinDate))
	assert.True(t, got.CreatedAt.Equal(created))
}

func TestInvestor_DuplicateNationalID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateInvestor(ctx, investor("a", "N-1", "1")))
	err := s.CreateInvestor(ctx, investor("b", "N-1", "1"))

	var dup *generic.DuplicateError
	require.True(t, errors.As(err, &dup), "got %v", err)
	assert.Equal(t, "investor", dup.Kind)
	assert.True(t, errors.Is(err, generic.ErrValidation))
}

func TestInvestor_NotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetInvestor(ctx, "ghost")
	assert.True(t, generic.IsNotFound(err))
	assert.True(t, generic.IsNotFound(s.UpdateInvestor(ctx, investor("ghost", "N-9", "1"))))
	assert.True(t, generic.IsNotFound(s.DeleteInvestor(ctx, "ghost")))
}

func TestInvestor_ListSearchAndSum(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := investor("a", "N-1", "100.1")
	a.FullName = "Ali Hassan"
	b := investor("b", "N-2", "200.2")
	b.FullName = "Sara Karim"
	b.CreatedAt = created.Add(time.Hour)
	c := investor("c", "N-3", "999")
	c.Active = false
	for _, inv := range []profit.Investor{a, b, c} {
		require.NoError(t, s.CreateInvestor(ctx, inv))
	}

	active, err := s.ListInvestors(ctx, profit.InvestorFilter{})
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, profit.InvestorID("a"), active[0].ID, "ordered by creation")

	found, err := s.ListInvestors(ctx, profit.InvestorFilter{Search: "KARIM"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, profit.InvestorID("b"), found[0].ID)

	all, err := s.ListInvestors(ctx, profit.InvestorFilter{IncludeInactive: true})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	total, err := s.SumActiveCapital(ctx)
	require.NoError(t, err)
	assert.Equal(t, "300.3", total.String())
}

func TestSetSharePercentages_OnlyTouchesShares(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateInvestor(ctx, investor("a", "N-1", "100")))

	require.NoError(t, s.SetSharePercentages(ctx, map[profit.InvestorID]decimal.Decimal{"a": dec("62.5")}))

	got, err := s.GetInvestor(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "62.5", got.SharePercentage.String())
	assert.Equal(t, "100", got.ContributedCapital.String())
}

// =============================================================================
// FINANCIAL YEARS
// =============================================================================

func TestFinancialYear_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	fy := year("fy", "FY2025")
	when := generic.NewDate(2026, time.January, 15)
	fy.Rollover.AutoRollover = true
	fy.Rollover.AutoRolloverDate = &when
	require.NoError(t, s.CreateFinancialYear(ctx, fy))

	got, err := s.GetFinancialYear(ctx, "fy")
	require.NoError(t, err)
	assert.Equal(t, "FY2025", got.PeriodName)
	assert.Equal(t, "60000", got.TotalProfit.String())
	assert.Equal(t, "100", got.Rollover.Percentage.String())
	assert.Equal(t, profit.AutoRolloverPending, got.Rollover.AutoRolloverStatus)
	require.NotNil(t, got.Rollover.AutoRolloverDate)
	assert.True(t, got.Rollover.AutoRolloverDate.Equal(when))
	assert.Nil(t, got.ApprovedAt)
}

func TestFinancialYear_PeriodNameUniqueWhenSet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateFinancialYear(ctx, year("a", "")))
	require.NoError(t, s.CreateFinancialYear(ctx, year("b", "")), "empty names never collide")
	require.NoError(t, s.CreateFinancialYear(ctx, year("c", "FY2025")))

	err := s.CreateFinancialYear(ctx, year("d", "FY2025"))
	assert.True(t, errors.Is(err, generic.ErrDuplicate), "got %v", err)
}

func TestFinancialYear_ListByStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := year("old", "FY2024")
	old.StartDate = generic.NewDate(2024, time.January, 1)
	old.EndDate = generic.NewDate(2024, time.December, 31)
	old.Status = profit.YearClosed
	require.NoError(t, s.CreateFinancialYear(ctx, old))
	require.NoError(t, s.CreateFinancialYear(ctx, year("new", "FY2025")))

	all, err := s.ListFinancialYears(ctx, profit.YearFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, profit.YearID("new"), all[0].ID, "newest first")

	closed, err := s.ListFinancialYears(ctx, profit.YearFilter{Statuses: []profit.YearStatus{profit.YearClosed}})
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, profit.YearID("old"), closed[0].ID)
}

// =============================================================================
// DISTRIBUTIONS
// =============================================================================

func seedYearAndInvestors(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.CreateFinancialYear(ctx, year("fy", "FY2025")))
	require.NoError(t, s.CreateInvestor(ctx, investor("a", "N-1", "100000")))
	require.NoError(t, s.CreateInvestor(ctx, investor("b", "N-2", "200000")))
}

func TestDistribution_OnePerYearAndInvestor(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedYearAndInvestors(t, s)

	require.NoError(t, s.CreateDistribution(ctx, distribution("d1", "fy", "a")))
	err := s.CreateDistribution(ctx, distribution("d2", "fy", "a"))
	assert.True(t, errors.Is(err, generic.ErrDuplicate), "got %v", err)

	got, err := s.GetDistribution(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "10000.123", got.Calculation.CalculatedProfit.String())
	assert.Equal(t, "0.000274", got.Calculation.DailyProfitRate.String())
}

func TestDistribution_TransitionStampsActor(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedYearAndInvestors(t, s)
	require.NoError(t, s.CreateDistribution(ctx, distribution("d1", "fy", "a")))
	require.NoError(t, s.CreateDistribution(ctx, distribution("d2", "fy", "b")))

	at := time.Date(2026, time.January, 10, 12, 0, 0, 0, time.UTC)
	n, err := s.TransitionDistributions(ctx, "fy", profit.DistCalculated, profit.DistApproved, profit.StatusStamp{Actor: "admin-1", At: at})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.TransitionDistributions(ctx, "fy", profit.DistApproved, profit.DistDistributed, profit.StatusStamp{Actor: "admin-2", At: at})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := s.GetDistribution(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, profit.DistDistributed, got.Status)
	assert.Equal(t, "admin-1", got.ApprovedBy)
	assert.Equal(t, "admin-2", got.DistributedBy)
	require.NotNil(t, got.DistributionDate)
	assert.True(t, got.DistributionDate.Equal(at))

	counts, err := s.CountDistributionsByStatus(ctx, "fy")
	require.NoError(t, err)
	assert.Equal(t, map[profit.DistributionStatus]int{profit.DistDistributed: 2}, counts)
}

func TestDeleteDistributions_Filtered(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedYearAndInvestors(t, s)
	require.NoError(t, s.CreateDistribution(ctx, distribution("d1", "fy", "a")))
	locked := distribution("d2", "fy", "b")
	locked.Status = profit.DistApproved
	require.NoError(t, s.CreateDistribution(ctx, locked))

	_, err := s.DeleteDistributions(ctx, profit.DistributionFilter{})
	assert.True(t, errors.Is(err, generic.ErrValidation), "empty filter refused")

	n, err := s.DeleteDistributions(ctx, profit.DistributionFilter{
		FinancialYearID: "fy",
		Statuses:        []profit.DistributionStatus{profit.DistCalculated},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	left, err := s.ListDistributions(ctx, profit.DistributionFilter{FinancialYearID: "fy"})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, profit.DistributionID("d2"), left[0].ID)
}

// =============================================================================
// LEDGER TRANSACTIONS
// =============================================================================

func TestTransactions_ListFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateInvestor(ctx, investor("a", "N-1", "100")))

	for i, typ := range []profit.TransactionType{profit.TxDeposit, profit.TxFee, profit.TxDeposit} {
		require.NoError(t, s.CreateTransaction(ctx, profit.Transaction{
			ID:              profit.TransactionID(string(rune('x' + i))),
			InvestorID:      "a",
			Type:            typ,
			Amount:          dec("10.5"),
			Currency:        generic.CurrencyUSD,
			TransactionDate: generic.NewDate(2025, time.March, 1+i),
			CreatedAt:       created,
			UpdatedAt:       created,
		}))
	}

	deposits, err := s.ListTransactions(ctx, profit.TransactionFilter{InvestorID: "a", Type: profit.TxDeposit})
	require.NoError(t, err)
	require.Len(t, deposits, 2)
	assert.Equal(t, profit.TransactionID("z"), deposits[0].ID, "newest first")

	from := generic.NewDate(2025, time.March, 2)
	to := generic.NewDate(2025, time.March, 2)
	window, err := s.ListTransactions(ctx, profit.TransactionFilter{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, profit.TxFee, window[0].Type)

	n, err := s.DeleteTransactionsByInvestor(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

func TestWithTx_RollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(st profit.Store) error {
		require.NoError(t, st.CreateInvestor(ctx, investor("a", "N-1", "100")))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.GetInvestor(ctx, "a")
	assert.True(t, generic.IsNotFound(err))
}

func TestWithTx_Commits(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(st profit.Store) error {
		if err := st.CreateInvestor(ctx, investor("a", "N-1", "100")); err != nil {
			return err
		}
		// nested calls join the outer transaction
		return st.WithTx(ctx, func(inner profit.Store) error {
			return inner.SetSharePercentages(ctx, map[profit.InvestorID]decimal.Decimal{"a": dec("100")})
		})
	})
	require.NoError(t, err)

	got, err := s.GetInvestor(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "100", got.SharePercentage.String())
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

func TestNotifications_Lifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.CreateNotifications(ctx, []notify.Notification{
		{
			ID: "n1", Recipient: "admins", Event: profit.EventProfitApproved, Priority: notify.PriorityMedium,
			Title: "t", Message: "m", Data: notify.Data{Year: 2025, Amount: dec("60000")},
			CreatedAt: now, ExpiresAt: now.Add(time.Hour),
		},
		{
			ID: "n2", Recipient: "admins", Event: profit.EventYearClosed, Priority: notify.PriorityMedium,
			Title: "t", Message: "m", CreatedAt: now.Add(time.Minute), ExpiresAt: now.Add(-time.Hour),
		},
	}))

	list, err := s.ListNotifications(ctx, "admins", false)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "n2", list[0].ID, "newest first")
	assert.Equal(t, "60000", list[1].Data.Amount.String())

	require.NoError(t, s.MarkNotificationRead(ctx, "n1"))
	unread, err := s.ListNotifications(ctx, "admins", true)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "n2", unread[0].ID)
	assert.True(t, generic.IsNotFound(s.MarkNotificationRead(ctx, "ghost")))

	n, err := s.DeleteExpiredNotifications(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
