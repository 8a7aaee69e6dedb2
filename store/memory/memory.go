// Package memory provides an in-memory profit.Store for tests and dev runs.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Abd-elrahmann/inestors-backend/generic"
	"github.com/Abd-elrahmann/inestors-backend/notify"
	"github.com/Abd-elrahmann/inestors-backend/profit"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================
//
// Enforces the same unique keys as the SQLite schema: investor national ID,
// financial year period name, and one distribution per (year, investor).

type Memory struct {
	mu   *sync.RWMutex
	d    *data
	inTx bool // a tx view already holds mu
}

type data struct {
	investors     map[profit.InvestorID]profit.Investor
	years         map[profit.YearID]profit.FinancialYear
	distributions map[profit.DistributionID]profit.Distribution
	transactions  map[profit.TransactionID]profit.Transaction
	notifications map[string]notify.Notification
}

func New() *Memory {
	return &Memory{
		mu: &sync.RWMutex{},
		d: &data{
			investors:     make(map[profit.InvestorID]profit.Investor),
			years:         make(map[profit.YearID]profit.FinancialYear),
			distributions: make(map[profit.DistributionID]profit.Distribution),
			transactions:  make(map[profit.TransactionID]profit.Transaction),
			notifications: make(map[string]notify.Notification),
		},
	}
}

var (
	_ profit.Store = (*Memory)(nil)
	_ notify.Store = (*Memory)(nil)
)

func (m *Memory) lock() func() {
	if m.inTx {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *Memory) rlock() func() {
	if m.inTx {
		return func() {}
	}
	m.mu.RLock()
	return m.mu.RUnlock
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
// Other callers block until fn returns.
func (m *Memory) WithTx(_ context.Context, fn func(profit.Store) error) error {
	if m.inTx {
		return fn(m)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.d.snapshot()
	view := &Memory{mu: m.mu, d: m.d, inTx: true}
	if err := fn(view); err != nil {
		*m.d = *snap
		return err
	}
	return nil
}

func (d *data) snapshot() *data {
	s := &data{
		investors:     make(map[profit.InvestorID]profit.Investor, len(d.investors)),
		years:         make(map[profit.YearID]profit.FinancialYear, len(d.years)),
		distributions: make(map[profit.DistributionID]profit.Distribution, len(d.distributions)),
		transactions:  make(map[profit.TransactionID]profit.Transaction, len(d.transactions)),
		notifications: make(map[string]notify.Notification, len(d.notifications)),
	}
	for k, v := range d.investors {
		s.investors[k] = v
	}
	for k, v := range d.years {
		s.years[k] = v
	}
	for k, v := range d.distributions {
		s.distributions[k] = v
	}
	for k, v := range d.transactions {
		s.transactions[k] = v
	}
	for k, v := range d.notifications {
		s.notifications[k] = v
	}
	return s
}

// =============================================================================
// INVESTORS
// =============================================================================

func (m *Memory) CreateInvestor(_ context.Context, inv profit.Investor) error {
	defer m.lock()()
	if err := m.d.checkNationalID(inv); err != nil {
		return err
	}
	m.d.investors[inv.ID] = inv
	return nil
}

func (m *Memory) GetInvestor(_ context.Context, id profit.InvestorID) (profit.Investor, error) {
	defer m.rlock()()
	inv, ok := m.d.investors[id]
	if !ok {
		return profit.Investor{}, generic.NewNotFound("investor", string(id))
	}
	return inv, nil
}

func (m *Memory) UpdateInvestor(_ context.Context, inv profit.Investor) error {
	defer m.lock()()
	if _, ok := m.d.investors[inv.ID]; !ok {
		return generic.NewNotFound("investor", string(inv.ID))
	}
	if err := m.d.checkNationalID(inv); err != nil {
		return err
	}
	m.d.investors[inv.ID] = inv
	return nil
}

func (m *Memory) DeleteInvestor(_ context.Context, id profit.InvestorID) error {
	defer m.lock()()
	if _, ok := m.d.investors[id]; !ok {
		return generic.NewNotFound("investor", string(id))
	}
	delete(m.d.investors, id)
	return nil
}

func (m *Memory) ListInvestors(_ context.Context, f profit.InvestorFilter) ([]profit.Investor, error) {
	defer m.rlock()()
	q := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]profit.Investor, 0, len(m.d.investors))
	for _, inv := range m.d.investors {
		if !f.IncludeInactive && !inv.Active {
			continue
		}
		if q != "" && !matches(q, inv.FullName, inv.NationalID, inv.Email) {
			continue
		}
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) SumActiveCapital(_ context.Context) (decimal.Decimal, error) {
	defer m.rlock()()
	total := decimal.Zero
	for _, inv := range m.d.investors {
		if inv.Active {
			total = total.Add(inv.ContributedCapital)
		}
	}
	return total, nil
}

func (m *Memory) SetSharePercentages(_ context.Context, shares map[profit.InvestorID]decimal.Decimal) error {
	defer m.lock()()
	for id, pct := range shares {
		inv, ok := m.d.investors[id]
		if !ok {
			continue
		}
		inv.SharePercentage = pct
		m.d.investors[id] = inv
	}
	return nil
}

func (d *data) checkNationalID(inv profit.Investor) error {
	for id, other := range d.investors {
		if id != inv.ID && other.NationalID == inv.NationalID {
			return &generic.DuplicateError{Kind: "investor", Key: inv.NationalID}
		}
	}
	return nil
}

// =============================================================================
// FINANCIAL YEARS
// =============================================================================

func (m *Memory) CreateFinancialYear(_ context.Context, fy profit.FinancialYear) error {
	defer m.lock()()
	if err := m.d.checkPeriodName(fy); err != nil {
		return err
	}
	m.d.years[fy.ID] = fy
	return nil
}

func (m *Memory) GetFinancialYear(_ context.Context, id profit.YearID) (profit.FinancialYear, error) {
	defer m.rlock()()
	fy, ok := m.d.years[id]
	if !ok {
		return profit.FinancialYear{}, generic.NewNotFound("financial_year", string(id))
	}
	return fy, nil
}

func (m *Memory) UpdateFinancialYear(_ context.Context, fy profit.FinancialYear) error {
	defer m.lock()()
	if _, ok := m.d.years[fy.ID]; !ok {
		return generic.NewNotFound("financial_year", string(fy.ID))
	}
	if err := m.d.checkPeriodName(fy); err != nil {
		return err
	}
	m.d.years[fy.ID] = fy
	return nil
}

func (m *Memory) DeleteFinancialYear(_ context.Context, id profit.YearID) error {
	defer m.lock()()
	if _, ok := m.d.years[id]; !ok {
		return generic.NewNotFound("financial_year", string(id))
	}
	delete(m.d.years, id)
	return nil
}

func (m *Memory) ListFinancialYears(_ context.Context, f profit.YearFilter) ([]profit.FinancialYear, error) {
	defer m.rlock()()
	out := make([]profit.FinancialYear, 0, len(m.d.years))
	for _, fy := range m.d.years {
		if len(f.Statuses) > 0 && !contains(f.Statuses, fy.Status) {
			continue
		}
		out = append(out, fy)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.After(out[j].StartDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (d *data) checkPeriodName(fy profit.FinancialYear) error {
	if fy.PeriodName == "" {
		return nil
	}
	for id, other := range d.years {
		if id != fy.ID && other.PeriodName == fy.PeriodName {
			return &generic.DuplicateError{Kind: "financial_year", Key: fy.PeriodName}
		}
	}
	return nil
}

// =============================================================================
// DISTRIBUTIONS
// =============================================================================

func (m *Memory) CreateDistribution(_ context.Context, dist profit.Distribution) error {
	defer m.lock()()
	for _, other := range m.d.distributions {
		if other.FinancialYearID == dist.FinancialYearID && other.InvestorID == dist.InvestorID {
			return &generic.DuplicateError{Kind: "distribution", Key: string(dist.FinancialYearID) + "/" + string(dist.InvestorID)}
		}
	}
	m.d.distributions[dist.ID] = dist
	return nil
}

func (m *Memory) GetDistribution(_ context.Context, id profit.DistributionID) (profit.Distribution, error) {
	defer m.rlock()()
	dist, ok := m.d.distributions[id]
	if !ok {
		return profit.Distribution{}, generic.NewNotFound("distribution", string(id))
	}
	return dist, nil
}

func (m *Memory) UpdateDistribution(_ context.Context, dist profit.Distribution) error {
	defer m.lock()()
	if _, ok := m.d.distributions[dist.ID]; !ok {
		return generic.NewNotFound("distribution", string(dist.ID))
	}
	m.d.distributions[dist.ID] = dist
	return nil
}

func (m *Memory) ListDistributions(_ context.Context, f profit.DistributionFilter) ([]profit.Distribution, error) {
	defer m.rlock()()
	out := make([]profit.Distribution, 0)
	for _, dist := range m.d.distributions {
		if distMatches(f, dist) {
			out = append(out, dist)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].InvestorID < out[j].InvestorID
	})
	return out, nil
}

func (m *Memory) DeleteDistributions(_ context.Context, f profit.DistributionFilter) (int, error) {
	if f.FinancialYearID == "" && f.InvestorID == "" {
		return 0, generic.NewValidationError("filter", "year or investor is required")
	}
	defer m.lock()()
	n := 0
	for id, dist := range m.d.distributions {
		if distMatches(f, dist) {
			delete(m.d.distributions, id)
			n++
		}
	}
	return n, nil
}

func (m *Memory) TransitionDistributions(_ context.Context, year profit.YearID, from, to profit.DistributionStatus, st profit.StatusStamp) (int, error) {
	defer m.lock()()
	n := 0
	for id, dist := range m.d.distributions {
		if dist.FinancialYearID != year || dist.Status != from {
			continue
		}
		dist.Status = to
		switch to {
		case profit.DistApproved:
			dist.ApprovedBy = st.Actor
		case profit.DistDistributed, profit.DistRolledOver:
			at := st.At
			dist.DistributedBy = st.Actor
			dist.DistributionDate = &at
		}
		dist.UpdatedAt = st.At
		m.d.distributions[id] = dist
		n++
	}
	return n, nil
}

func (m *Memory) CountDistributionsByStatus(_ context.Context, year profit.YearID) (map[profit.DistributionStatus]int, error) {
	defer m.rlock()()
	out := make(map[profit.DistributionStatus]int)
	for _, dist := range m.d.distributions {
		if dist.FinancialYearID == year {
			out[dist.Status]++
		}
	}
	return out, nil
}

func distMatches(f profit.DistributionFilter, dist profit.Distribution) bool {
	if f.FinancialYearID != "" && dist.FinancialYearID != f.FinancialYearID {
		return false
	}
	if f.InvestorID != "" && dist.InvestorID != f.InvestorID {
		return false
	}
	return len(f.Statuses) == 0 || contains(f.Statuses, dist.Status)
}

// =============================================================================
// LEDGER TRANSACTIONS
// =============================================================================

func (m *Memory) CreateTransaction(_ context.Context, tx profit.Transaction) error {
	defer m.lock()()
	if _, ok := m.d.transactions[tx.ID]; ok {
		return &generic.DuplicateError{Kind: "transaction", Key: string(tx.ID)}
	}
	m.d.transactions[tx.ID] = tx
	return nil
}

func (m *Memory) GetTransaction(_ context.Context, id profit.TransactionID) (profit.Transaction, error) {
	defer m.rlock()()
	tx, ok := m.d.transactions[id]
	if !ok {
		return profit.Transaction{}, generic.NewNotFound("transaction", string(id))
	}
	return tx, nil
}

func (m *Memory) UpdateTransaction(_ context.Context, tx profit.Transaction) error {
	defer m.lock()()
	if _, ok := m.d.transactions[tx.ID]; !ok {
		return generic.NewNotFound("transaction", string(tx.ID))
	}
	m.d.transactions[tx.ID] = tx
	return nil
}

func (m *Memory) DeleteTransaction(_ context.Context, id profit.TransactionID) error {
	defer m.lock()()
	if _, ok := m.d.transactions[id]; !ok {
		return generic.NewNotFound("transaction", string(id))
	}
	delete(m.d.transactions, id)
	return nil
}

func (m *Memory) ListTransactions(_ context.Context, f profit.TransactionFilter) ([]profit.Transaction, error) {
	defer m.rlock()()
	out := make([]profit.Transaction, 0)
	for _, tx := range m.d.transactions {
		if f.InvestorID != "" && tx.InvestorID != f.InvestorID {
			continue
		}
		if f.Type != "" && tx.Type != f.Type {
			continue
		}
		if f.From != nil && tx.TransactionDate.Before(*f.From) {
			continue
		}
		if f.To != nil && tx.TransactionDate.After(*f.To) {
			continue
		}
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TransactionDate.Equal(out[j].TransactionDate) {
			return out[i].TransactionDate.After(out[j].TransactionDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) DeleteTransactionsByInvestor(_ context.Context, id profit.InvestorID) (int, error) {
	defer m.lock()()
	n := 0
	for txID, tx := range m.d.transactions {
		if tx.InvestorID == id {
			delete(m.d.transactions, txID)
			n++
		}
	}
	return n, nil
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

func (m *Memory) CreateNotifications(_ context.Context, ns []notify.Notification) error {
	defer m.lock()()
	for _, n := range ns {
		if _, ok := m.d.notifications[n.ID]; ok {
			return &generic.DuplicateError{Kind: "notification", Key: n.ID}
		}
	}
	for _, n := range ns {
		m.d.notifications[n.ID] = n
	}
	return nil
}

func (m *Memory) ListNotifications(_ context.Context, recipient string, unreadOnly bool) ([]notify.Notification, error) {
	defer m.rlock()()
	out := make([]notify.Notification, 0)
	for _, n := range m.d.notifications {
		if n.Recipient != recipient || (unreadOnly && n.Read) {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) MarkNotificationRead(_ context.Context, id string) error {
	defer m.lock()()
	n, ok := m.d.notifications[id]
	if !ok {
		return generic.NewNotFound("notification", id)
	}
	n.Read = true
	m.d.notifications[id] = n
	return nil
}

func (m *Memory) DeleteExpiredNotifications(_ context.Context, now time.Time) (int, error) {
	defer m.lock()()
	n := 0
	for id, note := range m.d.notifications {
		if !note.ExpiresAt.After(now) {
			delete(m.d.notifications, id)
			n++
		}
	}
	return n, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func contains[T comparable](xs []T, x T) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func matches(q string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}
