package profit_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abd-elrahmann/inestors-backend/generic"
	"github.com/Abd-elrahmann/inestors-backend/profit"
)

// =============================================================================
// FINANCIAL YEAR CRUD
// =============================================================================

func TestCreateFinancialYear_DerivesTotalDaysAndStartsDraft(t *testing.T) {
	f := newFixture(t, date(2025, time.January, 1))
	fy := f.addYear(t, "500", date(2025, time.January, 1), date(2025, time.June, 30))

	assert.Equal(t, 181, fy.TotalDays)
	assert.Equal(t, profit.YearDraft, fy.Status)
	assert.True(t, fy.DailyProfitRate.IsZero())
	assert.Equal(t, "100", fy.Rollover.Percentage.String())
	assert.Equal(t, profit.AutoRolloverPending, fy.Rollover.AutoRolloverStatus)
}

func TestCreateFinancialYear_Validation(t *testing.T) {
	f := newFixture(t, date(2025, time.January, 1))
	base := profit.FinancialYearInput{
		Year:        2025,
		StartDate:   date(2025, time.January, 1),
		EndDate:     date(2025, time.December, 31),
		TotalProfit: dec("100"),
		Currency:    generic.CurrencyIQD,
	}
	pct := dec("120")

	cases := map[string]func(in *profit.FinancialYearInput){
		"year too early":       func(in *profit.FinancialYearInput) { in.Year = 1999 },
		"year too late":        func(in *profit.FinancialYearInput) { in.Year = 2101 },
		"negative profit":      func(in *profit.FinancialYearInput) { in.TotalProfit = dec("-1") },
		"unsupported currency": func(in *profit.FinancialYearInput) { in.Currency = "EUR" },
		"end equals start":     func(in *profit.FinancialYearInput) { in.EndDate = in.StartDate },
		"end before start":     func(in *profit.FinancialYearInput) { in.EndDate = date(2024, time.December, 1) },
		"rollover over 100":    func(in *profit.FinancialYearInput) { in.RolloverPercentage = &pct },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := base
			mutate(&in)
			_, err := f.svc.CreateFinancialYear(f.ctx, in, admin)
			assert.True(t, errors.Is(err, generic.ErrValidation), "got %v", err)
		})
	}
}

func TestCreateFinancialYear_DuplicatePeriodName(t *testing.T) {
	f := newFixture(t, date(2025, time.January, 1))
	in := profit.FinancialYearInput{
		Year:        2025,
		PeriodName:  "FY2025",
		StartDate:   date(2025, time.January, 1),
		EndDate:     date(2025, time.December, 31),
		TotalProfit: dec("100"),
		Currency:    generic.CurrencyUSD,
	}
	_, err := f.svc.CreateFinancialYear(f.ctx, in, admin)
	require.NoError(t, err)

	_, err = f.svc.CreateFinancialYear(f.ctx, in, admin)
	assert.True(t, errors.Is(err, generic.ErrDuplicate))

	// unnamed periods never collide
	in.PeriodName = ""
	_, err = f.svc.CreateFinancialYear(f.ctx, in, admin)
	require.NoError(t, err)
	_, err = f.svc.CreateFinancialYear(f.ctx, in, admin)
	require.NoError(t, err)
}

func TestUpdateFinancialYear_BlockedOnceCalculated(t *testing.T) {
	f, fy, _ := exampleScenario(t, date(2026, time.January, 5))

	newProfit := dec("70000")
	updated, err := f.svc.UpdateFinancialYear(f.ctx, fy.ID, profit.FinancialYearPatch{TotalProfit: &newProfit})
	require.NoError(t, err)
	assert.True(t, updated.TotalProfit.Equal(newProfit))

	f.calculate(t, fy.ID, false)

	_, err = f.svc.UpdateFinancialYear(f.ctx, fy.ID, profit.FinancialYearPatch{TotalProfit: &newProfit})
	assert.True(t, generic.IsInvalidState(err))
}

func TestUpdateFinancialYear_RederivesTotalDays(t *testing.T) {
	f := newFixture(t, date(2025, time.January, 1))
	fy := f.addYear(t, "500", date(2025, time.January, 1), date(2025, time.December, 31))

	end := date(2025, time.January, 31)
	updated, err := f.svc.UpdateFinancialYear(f.ctx, fy.ID, profit.FinancialYearPatch{EndDate: &end})
	require.NoError(t, err)
	assert.Equal(t, 31, updated.TotalDays)
}

func TestDeleteFinancialYear_BlockedWhileDistributionsExist(t *testing.T) {
	f, fy, _ := exampleScenario(t, date(2026, time.January, 5))
	f.calculate(t, fy.ID, false)

	err := f.svc.DeleteFinancialYear(f.ctx, fy.ID)
	assert.True(t, generic.IsInvalidState(err))

	empty := f.addYear(t, "1", date(2027, time.January, 1), date(2027, time.December, 31))
	require.NoError(t, f.svc.DeleteFinancialYear(f.ctx, empty.ID))
	_, err = f.svc.GetFinancialYear(f.ctx, empty.ID)
	assert.True(t, generic.IsNotFound(err))
}

// =============================================================================
// STATE MACHINE
// =============================================================================

func TestApprove_RequiresCalculated(t *testing.T) {
	f, fy, _ := exampleScenario(t, date(2026, time.January, 5))

	_, err := f.svc.ApproveDistributions(f.ctx, fy.ID, admin)
	assert.True(t, generic.IsInvalidState(err), "draft year cannot be approved")

	f.calculate(t, fy.ID, false)
	res, err := f.svc.ApproveDistributions(f.ctx, fy.ID, admin)
	require.NoError(t, err)

	assert.Equal(t, 3, res.ApprovedCount)
	assert.Equal(t, profit.YearApproved, res.Year.Status)
	assert.Equal(t, admin.ID, res.Year.ApprovedBy)
	require.NotNil(t, res.Year.ApprovedAt)
	for _, d := range f.distributions(t, fy.ID) {
		assert.Equal(t, profit.DistApproved, d.Status)
		assert.Equal(t, admin.ID, d.ApprovedBy)
	}
	assert.Equal(t, profit.EventProfitApproved, f.notifier.last().Event)

	_, err = f.svc.ApproveDistributions(f.ctx, fy.ID, admin)
	assert.True(t, generic.IsInvalidState(err), "approving twice is refused")
}

func TestDistribute_RequiresApproved(t *testing.T) {
	f, fy, _ := exampleScenario(t, date(2026, time.January, 5))
	f.calculate(t, fy.ID, false)

	_, err := f.svc.DistributeProfits(f.ctx, fy.ID, admin)
	assert.True(t, generic.IsInvalidState(err))

	_, err = f.svc.ApproveDistributions(f.ctx, fy.ID, admin)
	require.NoError(t, err)
	res, err := f.svc.DistributeProfits(f.ctx, fy.ID, admin)
	require.NoError(t, err)

	assert.Equal(t, 3, res.DistributedCount)
	assert.Equal(t, profit.YearDistributed, res.Year.Status)
	for _, d := range f.distributions(t, fy.ID) {
		assert.Equal(t, profit.DistDistributed, d.Status)
		require.NotNil(t, d.DistributionDate)
		assert.False(t, d.Rollover.IsRolledOver)
	}
}

func TestClose_FailsWhileAnyDistributionIsCalculated(t *testing.T) {
	f, fy, _ := exampleScenario(t, date(2026, time.January, 5))
	f.calculate(t, fy.ID, false)

	_, err := f.svc.CloseFinancialYear(f.ctx, fy.ID, admin)
	assert.True(t, generic.IsInvalidState(err))

	stored, err := f.svc.GetFinancialYear(f.ctx, fy.ID)
	require.NoError(t, err)
	assert.Equal(t, profit.YearCalculated, stored.Status)
}

func TestClose_AfterApproval_IsTerminal(t *testing.T) {
	f, fy, _ := approvedScenario(t)

	closed, err := f.svc.CloseFinancialYear(f.ctx, fy.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, profit.YearClosed, closed.Status)

	_, err = f.svc.CloseFinancialYear(f.ctx, fy.ID, admin)
	assert.True(t, generic.IsInvalidState(err), "already closed")

	_, err = f.svc.UpdateFinancialYear(f.ctx, fy.ID, profit.FinancialYearPatch{})
	assert.True(t, generic.IsInvalidState(err))
	_, err = f.svc.RolloverProfits(f.ctx, fy.ID, dec("100"), admin)
	assert.True(t, generic.IsInvalidState(err))
}

func TestClose_MixedLockedStatuses_Allowed(t *testing.T) {
	// GIVEN: one distribution rolled over, the rest approved
	f, fy, _ := approvedScenario(t)
	dists := f.distributions(t, fy.ID)
	_, err := f.svc.RolloverDistribution(f.ctx, dists[0].ID, dec("50"), admin)
	require.NoError(t, err)

	_, err = f.svc.CloseFinancialYear(f.ctx, fy.ID, admin)
	require.NoError(t, err)
}

func TestListFinancialYears_HealsStatusFromDistributions(t *testing.T) {
	f, fy, _ := approvedScenario(t)

	// GIVEN: the year record drifted back to draft
	stored, err := f.store.GetFinancialYear(f.ctx, fy.ID)
	require.NoError(t, err)
	stored.Status = profit.YearDraft
	require.NoError(t, f.store.UpdateFinancialYear(f.ctx, stored))

	// WHEN: listing
	years, err := f.svc.ListFinancialYears(f.ctx, profit.YearFilter{})
	require.NoError(t, err)

	// THEN: status is repaired and persisted
	require.Len(t, years, 1)
	assert.Equal(t, profit.YearApproved, years[0].Status)
	persisted, err := f.svc.GetFinancialYear(f.ctx, fy.ID)
	require.NoError(t, err)
	assert.Equal(t, profit.YearApproved, persisted.Status)
}

func TestListFinancialYears_HealNeverReopensClosedYear(t *testing.T) {
	f, fy, _ := approvedScenario(t)
	_, err := f.svc.CloseFinancialYear(f.ctx, fy.ID, admin)
	require.NoError(t, err)

	years, err := f.svc.ListFinancialYears(f.ctx, profit.YearFilter{})
	require.NoError(t, err)
	assert.Equal(t, profit.YearClosed, years[0].Status)
}

func TestSetAutoRollover_EnablingResetsToPending(t *testing.T) {
	f, fy, _ := exampleScenario(t, date(2026, time.January, 5))

	_, err := f.svc.SetAutoRollover(f.ctx, fy.ID, profit.AutoRolloverInput{Enabled: true})
	assert.True(t, errors.Is(err, generic.ErrValidation), "date required")

	when := date(2026, time.February, 1)
	pct := dec("40")
	updated, err := f.svc.SetAutoRollover(f.ctx, fy.ID, profit.AutoRolloverInput{Enabled: true, Percentage: &pct, Date: &when})
	require.NoError(t, err)
	assert.True(t, updated.Rollover.AutoRollover)
	assert.Equal(t, "40", updated.Rollover.Percentage.String())
	assert.Equal(t, when, *updated.Rollover.AutoRolloverDate)
	assert.Equal(t, profit.AutoRolloverPending, updated.Rollover.AutoRolloverStatus)
}

// =============================================================================
// READ MODELS
// =============================================================================

func TestGetDistributions_Summary(t *testing.T) {
	f, fy, _ := exampleScenario(t, date(2026, time.January, 5))
	f.calculate(t, fy.ID, false)

	list, err := f.svc.GetDistributions(f.ctx, fy.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, list.Summary.TotalInvestors)
	assert.Equal(t, "60000", list.Summary.TotalCalculatedProfit.String())
	assert.Equal(t, "20000", list.Summary.AverageProfit.String())
	assert.Equal(t, 365, list.Summary.TotalDays)
	assert.Equal(t, "0.000274", list.Summary.DailyProfitRate.String())
}

func TestSummary_PerStatusAndOverall(t *testing.T) {
	f, fy, _ := approvedScenario(t)
	dists := f.distributions(t, fy.ID)
	_, err := f.svc.RolloverDistribution(f.ctx, dists[0].ID, dec("100"), admin)
	require.NoError(t, err)

	sum, err := f.svc.Summary(f.ctx, fy.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, sum.ByStatus[profit.DistApproved].Count)
	assert.Equal(t, 1, sum.ByStatus[profit.DistDistributed].Count)
	assert.Equal(t, 3, sum.Overall.Investors)
	assert.Equal(t, "60000", sum.Overall.DistributedProfit.String())
	assert.Equal(t, "30000", sum.Overall.MaxProfit.String())
	assert.Equal(t, "10000", sum.Overall.MinProfit.String())
	assert.Equal(t, "100", sum.ProfitEfficiency.String())
}

func TestSummary_EmptyYear(t *testing.T) {
	f := newFixture(t, date(2025, time.January, 1))
	fy := f.addYear(t, "0", date(2025, time.January, 1), date(2025, time.December, 31))

	sum, err := f.svc.Summary(f.ctx, fy.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Overall.Investors)
	assert.True(t, sum.Overall.AvgProfit.Equal(decimal.Zero))
	assert.True(t, sum.ProfitEfficiency.IsZero())
}
