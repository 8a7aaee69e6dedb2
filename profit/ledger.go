package profit

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Abd-elrahmann/inestors-backend/generic"
)

// =============================================================================
// CAPITAL LEDGER
// =============================================================================

// CapitalLedger aggregates contributed capital. It never caches totals:
// concurrent capital edits must show up in the next calculation.
type CapitalLedger struct {
	store InvestorStore
}

func NewCapitalLedger(store InvestorStore) *CapitalLedger {
	return &CapitalLedger{store: store}
}

// TotalActiveCapital sums contributed capital over active investors.
func (l *CapitalLedger) TotalActiveCapital(ctx context.Context) (decimal.Decimal, error) {
	return l.store.SumActiveCapital(ctx)
}

// RecomputeSharePercentages sets every active investor's share to
// capital / total * 100 (2dp), with leftover cents allocated so the shares
// sum to exactly 100. Inactive investors get 0. An empty or zero-capital
// ledger yields all-zero shares.
func (l *CapitalLedger) RecomputeSharePercentages(ctx context.Context) error {
	all, err := l.store.ListInvestors(ctx, InvestorFilter{IncludeInactive: true})
	if err != nil {
		return err
	}
	if len(all) == 0 {
		return nil
	}

	shares := make(map[InvestorID]decimal.Decimal, len(all))
	var active []Investor
	for _, inv := range all {
		if !inv.Active {
			shares[inv.ID] = decimal.Zero
			continue
		}
		active = append(active, inv)
	}

	// Leftover cents go to earlier joiners on equal remainders.
	sort.SliceStable(active, func(i, j int) bool {
		if !active[i].JoinDate.Equal(active[j].JoinDate) {
			return active[i].JoinDate.Before(active[j].JoinDate)
		}
		return active[i].CreatedAt.Before(active[j].CreatedAt)
	})
	capital := make([]decimal.Decimal, len(active))
	for i, inv := range active {
		capital[i] = inv.ContributedCapital
	}
	for i, share := range generic.AllocateShares(capital) {
		shares[active[i].ID] = share
	}
	return l.store.SetSharePercentages(ctx, shares)
}

// TotalCapital sums the capital of the active investors in the slice.
func TotalCapital(investors []Investor) decimal.Decimal {
	total := decimal.Zero
	for _, inv := range investors {
		if inv.Active {
			total = total.Add(inv.ContributedCapital)
		}
	}
	return total
}
