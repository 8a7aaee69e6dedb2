package profit_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Abd-elrahmann/inestors-backend/generic"
	"github.com/Abd-elrahmann/inestors-backend/profit"
	"github.com/Abd-elrahmann/inestors-backend/store/memory"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var admin = generic.AdminActor("admin-1")

func date(y int, m time.Month, d int) time.Time { return generic.NewDate(y, m, d) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type sentEvent struct {
	Event      profit.EventType
	Recipients []profit.Recipient
	Payload    profit.Payload
}

// recordingNotifier captures events; Fail makes every dispatch error.
type recordingNotifier struct {
	mu     sync.Mutex
	Fail   bool
	Events []sentEvent
}

func (n *recordingNotifier) Notify(_ context.Context, e profit.EventType, r []profit.Recipient, p profit.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Fail {
		return errors.New("smtp down")
	}
	n.Events = append(n.Events, sentEvent{Event: e, Recipients: r, Payload: p})
	return nil
}

func (n *recordingNotifier) last() sentEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.Events[len(n.Events)-1]
}

type fixture struct {
	ctx      context.Context
	store    *memory.Memory
	svc      *profit.Service
	notifier *recordingNotifier
	now      time.Time
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	f := &fixture{
		ctx:      context.Background(),
		store:    memory.New(),
		notifier: &recordingNotifier{},
		now:      now,
	}
	f.svc = profit.NewService(f.store, profit.Options{
		Clock:    generic.FuncClock(func() time.Time { return f.now }),
		Notifier: f.notifier,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return f
}

func (f *fixture) addInvestor(t *testing.T, name, nationalID, capital string, join time.Time) profit.Investor {
	t.Helper()
	inv, err := f.svc.CreateInvestor(f.ctx, profit.InvestorInput{
		FullName:           name,
		NationalID:         nationalID,
		ContributedCapital: dec(capital),
		Currency:           generic.CurrencyUSD,
		JoinDate:           join,
	}, admin)
	require.NoError(t, err)
	return inv
}

func (f *fixture) addYear(t *testing.T, totalProfit string, start, end time.Time) profit.FinancialYear {
	t.Helper()
	fy, err := f.svc.CreateFinancialYear(f.ctx, profit.FinancialYearInput{
		Year:        start.Year(),
		StartDate:   start,
		EndDate:     end,
		TotalProfit: dec(totalProfit),
		Currency:    generic.CurrencyUSD,
	}, admin)
	require.NoError(t, err)
	return fy
}

// exampleScenario builds FY2025 (60000 profit) with investors A, B, C.
func exampleScenario(t *testing.T, now time.Time) (*fixture, profit.FinancialYear, [3]profit.Investor) {
	t.Helper()
	f := newFixture(t, now)
	fy := f.addYear(t, "60000", date(2025, time.January, 1), date(2025, time.December, 31))
	invs := [3]profit.Investor{
		f.addInvestor(t, "A", "N-A", "100000", date(2025, time.January, 1)),
		f.addInvestor(t, "B", "N-B", "200000", date(2025, time.January, 15)),
		f.addInvestor(t, "C", "N-C", "300000", date(2025, time.February, 1)),
	}
	return f, fy, invs
}

func byInvestor(dists []profit.Distribution) map[profit.InvestorID]profit.Distribution {
	out := make(map[profit.InvestorID]profit.Distribution, len(dists))
	for _, d := range dists {
		out[d.InvestorID] = d
	}
	return out
}

func (f *fixture) distributions(t *testing.T, id profit.YearID) []profit.Distribution {
	t.Helper()
	dists, err := f.store.ListDistributions(f.ctx, profit.DistributionFilter{FinancialYearID: id})
	require.NoError(t, err)
	return dists
}

func (f *fixture) calculate(t *testing.T, id profit.YearID, force bool) *profit.CalculationResult {
	t.Helper()
	res, err := f.svc.CalculateDistributions(f.ctx, id, profit.CalculateOptions{ForceFullPeriod: force}, admin)
	require.NoError(t, err)
	return res
}

// approvedScenario calculates and approves the example year.
func approvedScenario(t *testing.T) (*fixture, profit.FinancialYear, [3]profit.Investor) {
	t.Helper()
	f, fy, invs := exampleScenario(t, date(2026, time.January, 10))
	f.calculate(t, fy.ID, false)
	_, err := f.svc.ApproveDistributions(f.ctx, fy.ID, admin)
	require.NoError(t, err)
	fy, err = f.svc.GetFinancialYear(f.ctx, fy.ID)
	require.NoError(t, err)
	return f, fy, invs
}
