package profit_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abd-elrahmann/inestors-backend/generic"
	"github.com/Abd-elrahmann/inestors-backend/profit"
)

// =============================================================================
// INVESTORS
// =============================================================================

func TestCreateInvestor_DuplicateNationalID(t *testing.T) {
	f := newFixture(t, date(2025, time.March, 1))
	f.addInvestor(t, "A", "N-1", "100", date(2025, time.January, 1))

	_, err := f.svc.CreateInvestor(f.ctx, profit.InvestorInput{
		FullName:           "Other",
		NationalID:         "N-1",
		ContributedCapital: dec("50"),
		Currency:           generic.CurrencyIQD,
		JoinDate:           date(2025, time.January, 1),
	}, admin)

	assert.True(t, errors.Is(err, generic.ErrDuplicate))
	assert.True(t, generic.IsClientError(err))
}

func TestCreateInvestor_Validation(t *testing.T) {
	f := newFixture(t, date(2025, time.March, 1))

	_, err := f.svc.CreateInvestor(f.ctx, profit.InvestorInput{
		FullName: "No Join", NationalID: "N-1", ContributedCapital: dec("1"), Currency: generic.CurrencyUSD,
	}, admin)
	assert.True(t, errors.Is(err, generic.ErrValidation), "join date required")

	_, err = f.svc.CreateInvestor(f.ctx, profit.InvestorInput{
		FullName: "Negative", NationalID: "N-2", ContributedCapital: dec("-1"), Currency: generic.CurrencyUSD,
		JoinDate: date(2025, time.January, 1),
	}, admin)
	assert.True(t, errors.Is(err, generic.ErrValidation), "capital must be non-negative")
}

func TestListInvestors_SearchAndInactive(t *testing.T) {
	f := newFixture(t, date(2025, time.March, 1))
	f.addInvestor(t, "Ali Hassan", "N-1", "100", date(2025, time.January, 1))
	sara := f.addInvestor(t, "Sara Karim", "N-2", "100", date(2025, time.January, 1))
	_, err := f.svc.RemoveInvestor(f.ctx, sara.ID, false, admin)
	require.NoError(t, err)

	active, err := f.svc.ListInvestors(f.ctx, profit.InvestorFilter{})
	require.NoError(t, err)
	assert.Len(t, active, 1)

	found, err := f.svc.ListInvestors(f.ctx, profit.InvestorFilter{IncludeInactive: true, Search: "kar"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, sara.ID, found[0].ID)
}

func TestRemoveInvestor_Force_CascadesAndRecomputesShares(t *testing.T) {
	// GIVEN: approved distributions and a transaction for A
	f, fy, invs := approvedScenario(t)
	_, err := f.svc.CreateTransaction(f.ctx, profit.TransactionInput{
		InvestorID:      invs[0].ID,
		Type:            profit.TxDeposit,
		Amount:          dec("10"),
		Currency:        generic.CurrencyUSD,
		TransactionDate: f.now,
	}, admin)
	require.NoError(t, err)

	// WHEN: force-removing A
	res, err := f.svc.RemoveInvestor(f.ctx, invs[0].ID, true, admin)
	require.NoError(t, err)

	// THEN: A and their records are gone, shares rebalance over B and C
	assert.True(t, res.Deleted)
	assert.Equal(t, 1, res.DeletedTransactions)
	assert.Equal(t, 1, res.DeletedDistributions)
	_, err = f.svc.GetInvestor(f.ctx, invs[0].ID)
	assert.True(t, generic.IsNotFound(err))
	assert.Len(t, f.distributions(t, fy.ID), 2)

	b, err := f.svc.GetInvestor(f.ctx, invs[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "40", b.SharePercentage.String())
}

func TestRemoveInvestor_Default_Deactivates(t *testing.T) {
	f, fy, invs := approvedScenario(t)

	res, err := f.svc.RemoveInvestor(f.ctx, invs[0].ID, false, admin)
	require.NoError(t, err)

	assert.True(t, res.Deactivated)
	inv, err := f.svc.GetInvestor(f.ctx, invs[0].ID)
	require.NoError(t, err)
	assert.False(t, inv.Active)
	assert.Len(t, f.distributions(t, fy.ID), 3, "history kept")
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestCreateTransaction_ContributionDeposit_IncreasesCapital(t *testing.T) {
	f := newFixture(t, date(2025, time.March, 1))
	a := f.addInvestor(t, "A", "N-A", "100", date(2025, time.January, 1))
	b := f.addInvestor(t, "B", "N-B", "100", date(2025, time.January, 1))

	_, err := f.svc.CreateTransaction(f.ctx, profit.TransactionInput{
		InvestorID:      a.ID,
		Type:            profit.TxDeposit,
		Amount:          dec("200"),
		Currency:        generic.CurrencyUSD,
		TransactionDate: f.now,
		IsContribution:  true,
	}, admin)
	require.NoError(t, err)

	a, err = f.svc.GetInvestor(f.ctx, a.ID)
	require.NoError(t, err)
	b, err = f.svc.GetInvestor(f.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "300", a.ContributedCapital.String())
	assert.Equal(t, "75", a.SharePercentage.String())
	assert.Equal(t, "25", b.SharePercentage.String())
}

func TestCreateTransaction_ContributionWithdrawal_CannotGoNegative(t *testing.T) {
	f := newFixture(t, date(2025, time.March, 1))
	a := f.addInvestor(t, "A", "N-A", "100", date(2025, time.January, 1))

	_, err := f.svc.CreateTransaction(f.ctx, profit.TransactionInput{
		InvestorID:      a.ID,
		Type:            profit.TxWithdrawal,
		Amount:          dec("150"),
		Currency:        generic.CurrencyUSD,
		TransactionDate: f.now,
		IsContribution:  true,
	}, admin)
	assert.True(t, errors.Is(err, generic.ErrValidation))

	a, err = f.svc.GetInvestor(f.ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "100", a.ContributedCapital.String())
	assert.Empty(t, f.transactions(t, a.ID), "rolled back")
}

func TestCreateTransaction_PlainDeposit_LeavesCapital(t *testing.T) {
	f := newFixture(t, date(2025, time.March, 1))
	a := f.addInvestor(t, "A", "N-A", "100", date(2025, time.January, 1))

	tx, err := f.svc.CreateTransaction(f.ctx, profit.TransactionInput{
		InvestorID:      a.ID,
		Type:            profit.TxDeposit,
		Amount:          dec("40"),
		Currency:        generic.CurrencyUSD,
		TransactionDate: f.now,
	}, admin)
	require.NoError(t, err)
	assert.NotEmpty(t, tx.ReceiptNumber)

	a, err = f.svc.GetInvestor(f.ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "100", a.ContributedCapital.String())
}

func TestCreateTransaction_Validation(t *testing.T) {
	f := newFixture(t, date(2025, time.March, 1))
	a := f.addInvestor(t, "A", "N-A", "100", date(2025, time.January, 1))
	base := profit.TransactionInput{
		InvestorID:      a.ID,
		Type:            profit.TxDeposit,
		Amount:          dec("1"),
		Currency:        generic.CurrencyUSD,
		TransactionDate: f.now,
	}

	cases := map[string]func(in *profit.TransactionInput){
		"unknown type":         func(in *profit.TransactionInput) { in.Type = "gift" },
		"negative amount":      func(in *profit.TransactionInput) { in.Amount = dec("-5") },
		"profit without year":  func(in *profit.TransactionInput) { in.Type = profit.TxProfit },
		"contribution fee":     func(in *profit.TransactionInput) { in.Type, in.IsContribution = profit.TxFee, true },
		"missing date":         func(in *profit.TransactionInput) { in.TransactionDate = time.Time{} },
		"unsupported currency": func(in *profit.TransactionInput) { in.Currency = "GBP" },
		"missing investor id":  func(in *profit.TransactionInput) { in.InvestorID = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := base
			mutate(&in)
			_, err := f.svc.CreateTransaction(f.ctx, in, admin)
			assert.True(t, errors.Is(err, generic.ErrValidation), "got %v", err)
		})
	}

	in := base
	in.InvestorID = "ghost"
	_, err := f.svc.CreateTransaction(f.ctx, in, admin)
	assert.True(t, generic.IsNotFound(err))
}

func TestUpdateTransaction_MetadataOnly(t *testing.T) {
	f := newFixture(t, date(2025, time.March, 1))
	a := f.addInvestor(t, "A", "N-A", "100", date(2025, time.January, 1))
	tx, err := f.svc.CreateTransaction(f.ctx, profit.TransactionInput{
		InvestorID: a.ID, Type: profit.TxFee, Amount: dec("3"), Currency: generic.CurrencyUSD, TransactionDate: f.now,
	}, admin)
	require.NoError(t, err)

	ref := "bank fee March"
	updated, err := f.svc.UpdateTransaction(f.ctx, tx.ID, profit.TransactionPatch{Reference: &ref})
	require.NoError(t, err)
	assert.Equal(t, ref, updated.Reference)
	assert.Equal(t, "3", updated.Amount.String())

	require.NoError(t, f.svc.DeleteTransaction(f.ctx, tx.ID))
	_, err = f.svc.GetTransaction(f.ctx, tx.ID)
	assert.True(t, generic.IsNotFound(err))
}

func TestInvestorBalance(t *testing.T) {
	f := newFixture(t, date(2025, time.March, 1))
	a := f.addInvestor(t, "A", "N-A", "1000", date(2025, time.January, 1))

	book := func(typ profit.TransactionType, amount string, contribution bool) {
		_, err := f.svc.CreateTransaction(f.ctx, profit.TransactionInput{
			InvestorID:      a.ID,
			Type:            typ,
			Amount:          dec(amount),
			Currency:        generic.CurrencyUSD,
			TransactionDate: f.now,
			ProfitYear:      2025,
			IsContribution:  contribution,
		}, admin)
		require.NoError(t, err)
	}
	book(profit.TxDeposit, "200", false)
	book(profit.TxProfit, "50", false)
	book(profit.TxWithdrawal, "30", false)
	book(profit.TxFee, "20", false)
	book(profit.TxDeposit, "500", true) // moves capital to 1500

	b, err := f.svc.InvestorBalance(f.ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "1500", b.ContributedCapital.String())
	assert.Equal(t, "200", b.Deposits.String())
	assert.Equal(t, "1700", b.Current.String())
}

func TestInvestorProfits_ListsDistributions(t *testing.T) {
	f, _, invs := approvedScenario(t)

	dists, err := f.svc.InvestorProfits(f.ctx, invs[2].ID)
	require.NoError(t, err)
	require.Len(t, dists, 1)
	assert.Equal(t, "30000", dists[0].Calculation.CalculatedProfit.String())

	_, err = f.svc.InvestorProfits(f.ctx, "ghost")
	assert.True(t, generic.IsNotFound(err))
}
