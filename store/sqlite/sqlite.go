/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements profit.Store and notify.Store using SQLite. The same schema
  ports to PostgreSQL with minor dialect changes.

INTERFACES IMPLEMENTED:
  profit.Store:  investors, financial years, distributions, transactions
  notify.Store:  persisted notifications

UNIQUENESS:
  The schema carries the invariants the service relies on:
  - idx_investors_national_id:            one investor per national ID
  - idx_financial_years_period_name:      period names unique when set
  - idx_distributions_year_investor:      one distribution per (year, investor)
  Violations surface as *generic.DuplicateError.

MONEY:
  Decimals are stored as TEXT and read back through decimal.Decimal's
  sql.Scanner, so no value ever passes through float64. Aggregates are
  summed in Go for the same reason.

TIMESTAMPS:
  Stored as fixed-width UTC text (timeLayout) so string comparison orders
  them chronologically.

CONCURRENCY:
  One connection, guarded by sync.RWMutex. WithTx holds the write lock for
  the whole transaction and hands fn a Store bound to the *sql.Tx.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Readers don't block the writer
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/investors.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := profit.NewService(store, profit.Options{})

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - profit/store.go: Interface definitions
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/Abd-elrahmann/inestors-backend/generic"
	"github.com/Abd-elrahmann/inestors-backend/notify"
	"github.com/Abd-elrahmann/inestors-backend/profit"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements all storage interfaces using SQLite.
type Store struct {
	db   *sql.DB
	q    querier
	mu   *sync.RWMutex
	inTx bool // a tx-bound copy; the parent already holds mu
}

var (
	_ profit.Store = (*Store)(nil)
	_ notify.Store = (*Store)(nil)
)

// New creates a new SQLite store and migrates the schema.
// dbPath may be ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps :memory: databases coherent and serialises writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, q: db, mu: &sync.RWMutex{}}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS investors (
		id                  TEXT PRIMARY KEY,
		full_name           TEXT NOT NULL,
		national_id         TEXT NOT NULL,
		phone               TEXT NOT NULL DEFAULT '',
		email               TEXT NOT NULL DEFAULT '',
		contributed_capital TEXT NOT NULL,
		currency            TEXT NOT NULL,
		join_date           TEXT NOT NULL,
		active              INTEGER NOT NULL DEFAULT 1,
		share_percentage    TEXT NOT NULL DEFAULT '0',
		created_at          TEXT NOT NULL,
		updated_at          TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_investors_national_id
		ON investors(national_id);

	CREATE TABLE IF NOT EXISTS financial_years (
		id                   TEXT PRIMARY KEY,
		year                 INTEGER NOT NULL,
		period_name          TEXT,
		start_date           TEXT NOT NULL,
		end_date             TEXT NOT NULL,
		total_days           INTEGER NOT NULL,
		total_profit         TEXT NOT NULL,
		currency             TEXT NOT NULL,
		daily_profit_rate    TEXT NOT NULL DEFAULT '0',
		status               TEXT NOT NULL,
		rollover_enabled     INTEGER NOT NULL DEFAULT 0,
		rollover_percentage  TEXT NOT NULL DEFAULT '100',
		auto_rollover        INTEGER NOT NULL DEFAULT 0,
		auto_rollover_date   TEXT,
		auto_rollover_status TEXT NOT NULL DEFAULT 'pending',
		notes                TEXT NOT NULL DEFAULT '',
		created_by           TEXT NOT NULL DEFAULT '',
		approved_by          TEXT NOT NULL DEFAULT '',
		approved_at          TEXT,
		distributed_by       TEXT NOT NULL DEFAULT '',
		distributed_at       TEXT,
		created_at           TEXT NOT NULL,
		updated_at           TEXT NOT NULL
	);

	-- Empty period names are stored as NULL and never collide.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_financial_years_period_name
		ON financial_years(period_name) WHERE period_name IS NOT NULL;

	CREATE INDEX IF NOT EXISTS idx_financial_years_status
		ON financial_years(status);

	CREATE TABLE IF NOT EXISTS distributions (
		id                TEXT PRIMARY KEY,
		financial_year_id TEXT NOT NULL REFERENCES financial_years(id),
		investor_id       TEXT NOT NULL REFERENCES investors(id),
		start_date        TEXT NOT NULL,
		investment_amount TEXT NOT NULL,
		total_days        INTEGER NOT NULL,
		daily_profit_rate TEXT NOT NULL,
		calculated_profit TEXT NOT NULL,
		currency          TEXT NOT NULL,
		status            TEXT NOT NULL,
		is_rolled_over    INTEGER NOT NULL DEFAULT 0,
		rollover_amount   TEXT NOT NULL DEFAULT '0',
		rollover_date     TEXT,
		distribution_date TEXT,
		created_by        TEXT NOT NULL DEFAULT '',
		approved_by       TEXT NOT NULL DEFAULT '',
		distributed_by    TEXT NOT NULL DEFAULT '',
		created_at        TEXT NOT NULL,
		updated_at        TEXT NOT NULL
	);

	-- The engine's idempotence depends on this key.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_distributions_year_investor
		ON distributions(financial_year_id, investor_id);

	CREATE INDEX IF NOT EXISTS idx_distributions_investor
		ON distributions(investor_id);

	CREATE TABLE IF NOT EXISTS transactions (
		id               TEXT PRIMARY KEY,
		investor_id      TEXT NOT NULL REFERENCES investors(id),
		type             TEXT NOT NULL,
		amount           TEXT NOT NULL,
		currency         TEXT NOT NULL,
		transaction_date TEXT NOT NULL,
		reference        TEXT NOT NULL DEFAULT '',
		notes            TEXT NOT NULL DEFAULT '',
		receipt_number   TEXT NOT NULL DEFAULT '',
		profit_year      INTEGER NOT NULL DEFAULT 0,
		is_contribution  INTEGER NOT NULL DEFAULT 0,
		created_by       TEXT NOT NULL DEFAULT '',
		created_at       TEXT NOT NULL,
		updated_at       TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_investor_date
		ON transactions(investor_id, transaction_date);

	CREATE TABLE IF NOT EXISTS notifications (
		id         TEXT PRIMARY KEY,
		recipient  TEXT NOT NULL,
		event      TEXT NOT NULL,
		priority   TEXT NOT NULL,
		title      TEXT NOT NULL,
		message    TEXT NOT NULL,
		data_json  TEXT NOT NULL DEFAULT '{}',
		is_read    INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		expires_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_notifications_recipient
		ON notifications(recipient, created_at);

	CREATE INDEX IF NOT EXISTS idx_notifications_expires
		ON notifications(expires_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) rlock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(profit.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return generic.PersistenceError("begin transaction", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&Store{db: s.db, q: sqlTx, mu: s.mu, inTx: true}); err != nil {
		return err
	}
	return generic.PersistenceError("commit transaction", sqlTx.Commit())
}

// =============================================================================
// INVESTORS
// =============================================================================

const investorColumns = `id, full_name, national_id, phone, email, contributed_capital, currency,
	join_date, active, share_percentage, created_at, updated_at`

func (s *Store) CreateInvestor(ctx context.Context, inv profit.Investor) error {
	defer s.lock()()

	_, err := s.q.ExecContext(ctx, `INSERT INTO investors (`+investorColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.FullName, inv.NationalID, inv.Phone, inv.Email, inv.ContributedCapital,
		inv.Currency, fmtTime(inv.JoinDate), inv.Active, inv.SharePercentage,
		fmtTime(inv.CreatedAt), fmtTime(inv.UpdatedAt),
	)
	return writeErr("create investor", err, "investor", inv.NationalID)
}

func (s *Store) GetInvestor(ctx context.Context, id profit.InvestorID) (profit.Investor, error) {
	defer s.rlock()()

	row := s.q.QueryRowContext(ctx, `SELECT `+investorColumns+` FROM investors WHERE id = ?`, id)
	inv, err := scanInvestor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return profit.Investor{}, generic.NewNotFound("investor", string(id))
	}
	return inv, err
}

func (s *Store) UpdateInvestor(ctx context.Context, inv profit.Investor) error {
	defer s.lock()()

	res, err := s.q.ExecContext(ctx, `
		UPDATE investors SET full_name = ?, national_id = ?, phone = ?, email = ?,
			contributed_capital = ?, currency = ?, join_date = ?, active = ?,
			share_percentage = ?, updated_at = ?
		WHERE id = ?`,
		inv.FullName, inv.NationalID, inv.Phone, inv.Email, inv.ContributedCapital,
		inv.Currency, fmtTime(inv.JoinDate), inv.Active, inv.SharePercentage,
		fmtTime(inv.UpdatedAt), inv.ID,
	)
	if err != nil {
		return writeErr("update investor", err, "investor", inv.NationalID)
	}
	return requireRow(res, "investor", string(inv.ID))
}

func (s *Store) DeleteInvestor(ctx context.Context, id profit.InvestorID) error {
	defer s.lock()()

	res, err := s.q.ExecContext(ctx, `DELETE FROM investors WHERE id = ?`, id)
	if err != nil {
		return generic.PersistenceError("delete investor", err)
	}
	return requireRow(res, "investor", string(id))
}

func (s *Store) ListInvestors(ctx context.Context, f profit.InvestorFilter) ([]profit.Investor, error) {
	defer s.rlock()()

	var (
		where []string
		args  []any
	)
	if !f.IncludeInactive {
		where = append(where, "active = 1")
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		like := "%" + q + "%"
		where = append(where, "(LOWER(full_name) LIKE ? OR LOWER(national_id) LIKE ? OR LOWER(email) LIKE ?)")
		args = append(args, like, like, like)
	}

	rows, err := s.q.QueryContext(ctx,
		`SELECT `+investorColumns+` FROM investors`+whereClause(where)+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, generic.PersistenceError("list investors", err)
	}
	defer rows.Close()

	out := make([]profit.Investor, 0)
	for rows.Next() {
		inv, err := scanInvestor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, generic.PersistenceError("list investors", rows.Err())
}

// SumActiveCapital sums in Go; SQLite's SUM would go through REAL.
func (s *Store) SumActiveCapital(ctx context.Context) (decimal.Decimal, error) {
	defer s.rlock()()

	rows, err := s.q.QueryContext(ctx, `SELECT contributed_capital FROM investors WHERE active = 1`)
	if err != nil {
		return decimal.Zero, generic.PersistenceError("sum capital", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var c decimal.Decimal
		if err := rows.Scan(&c); err != nil {
			return decimal.Zero, generic.PersistenceError("sum capital", err)
		}
		total = total.Add(c)
	}
	return total, generic.PersistenceError("sum capital", rows.Err())
}

func (s *Store) SetSharePercentages(ctx context.Context, shares map[profit.InvestorID]decimal.Decimal) error {
	return s.WithTx(ctx, func(st profit.Store) error {
		ts := st.(*Store)
		for id, pct := range shares {
			if _, err := ts.q.ExecContext(ctx,
				`UPDATE investors SET share_percentage = ? WHERE id = ?`, pct, id); err != nil {
				return generic.PersistenceError("set share percentage", err)
			}
		}
		return nil
	})
}

func scanInvestor(row scanner) (profit.Investor, error) {
	var (
		inv                   profit.Investor
		joinDate, created, up string
	)
	err := row.Scan(&inv.ID, &inv.FullName, &inv.NationalID, &inv.Phone, &inv.Email,
		&inv.ContributedCapital, &inv.Currency, &joinDate, &inv.Active, &inv.SharePercentage,
		&created, &up)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return inv, err
		}
		return inv, generic.PersistenceError("scan investor", err)
	}
	inv.JoinDate = parseTime(joinDate)
	inv.CreatedAt = parseTime(created)
	inv.UpdatedAt = parseTime(up)
	return inv, nil
}

// =============================================================================
// FINANCIAL YEARS
// =============================================================================

const yearColumns = `id, year, period_name, start_date, end_date, total_days, total_profit, currency,
	daily_profit_rate, status, rollover_enabled, rollover_percentage, auto_rollover,
	auto_rollover_date, auto_rollover_status, notes, created_by, approved_by, approved_at,
	distributed_by, distributed_at, created_at, updated_at`

func (s *Store) CreateFinancialYear(ctx context.Context, fy profit.FinancialYear) error {
	defer s.lock()()

	_, err := s.q.ExecContext(ctx, `INSERT INTO financial_years (`+yearColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fy.ID, fy.Year, nullString(fy.PeriodName), fmtTime(fy.StartDate), fmtTime(fy.EndDate),
		fy.TotalDays, fy.TotalProfit, fy.Currency, fy.DailyProfitRate, fy.Status,
		fy.Rollover.Enabled, fy.Rollover.Percentage, fy.Rollover.AutoRollover,
		nullTime(fy.Rollover.AutoRolloverDate), fy.Rollover.AutoRolloverStatus, fy.Notes,
		fy.CreatedBy, fy.ApprovedBy, nullTime(fy.ApprovedAt), fy.DistributedBy,
		nullTime(fy.DistributedAt), fmtTime(fy.CreatedAt), fmtTime(fy.UpdatedAt),
	)
	return writeErr("create financial year", err, "financial_year", fy.PeriodName)
}

func (s *Store) GetFinancialYear(ctx context.Context, id profit.YearID) (profit.FinancialYear, error) {
	defer s.rlock()()

	row := s.q.QueryRowContext(ctx, `SELECT `+yearColumns+` FROM financial_years WHERE id = ?`, id)
	fy, err := scanYear(row)
	if errors.Is(err, sql.ErrNoRows) {
		return profit.FinancialYear{}, generic.NewNotFound("financial_year", string(id))
	}
	return fy, err
}

func (s *Store) UpdateFinancialYear(ctx context.Context, fy profit.FinancialYear) error {
	defer s.lock()()

	res, err := s.q.ExecContext(ctx, `
		UPDATE financial_years SET year = ?, period_name = ?, start_date = ?, end_date = ?,
			total_days = ?, total_profit = ?, currency = ?, daily_profit_rate = ?, status = ?,
			rollover_enabled = ?, rollover_percentage = ?, auto_rollover = ?,
			auto_rollover_date = ?, auto_rollover_status = ?, notes = ?, approved_by = ?,
			approved_at = ?, distributed_by = ?, distributed_at = ?, updated_at = ?
		WHERE id = ?`,
		fy.Year, nullString(fy.PeriodName), fmtTime(fy.StartDate), fmtTime(fy.EndDate),
		fy.TotalDays, fy.TotalProfit, fy.Currency, fy.DailyProfitRate, fy.Status,
		fy.Rollover.Enabled, fy.Rollover.Percentage, fy.Rollover.AutoRollover,
		nullTime(fy.Rollover.AutoRolloverDate), fy.Rollover.AutoRolloverStatus, fy.Notes,
		fy.ApprovedBy, nullTime(fy.ApprovedAt), fy.DistributedBy, nullTime(fy.DistributedAt),
		fmtTime(fy.UpdatedAt), fy.ID,
	)
	if err != nil {
		return writeErr("update financial year", err, "financial_year", fy.PeriodName)
	}
	return requireRow(res, "financial_year", string(fy.ID))
}

func (s *Store) DeleteFinancialYear(ctx context.Context, id profit.YearID) error {
	defer s.lock()()

	res, err := s.q.ExecContext(ctx, `DELETE FROM financial_years WHERE id = ?`, id)
	if err != nil {
		return generic.PersistenceError("delete financial year", err)
	}
	return requireRow(res, "financial_year", string(id))
}

func (s *Store) ListFinancialYears(ctx context.Context, f profit.YearFilter) ([]profit.FinancialYear, error) {
	defer s.rlock()()

	var (
		where []string
		args  []any
	)
	if len(f.Statuses) > 0 {
		where = append(where, "status IN ("+placeholders(len(f.Statuses))+")")
		for _, st := range f.Statuses {
			args = append(args, st)
		}
	}

	rows, err := s.q.QueryContext(ctx,
		`SELECT `+yearColumns+` FROM financial_years`+whereClause(where)+` ORDER BY start_date DESC, id`, args...)
	if err != nil {
		return nil, generic.PersistenceError("list financial years", err)
	}
	defer rows.Close()

	out := make([]profit.FinancialYear, 0)
	for rows.Next() {
		fy, err := scanYear(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, fy)
	}
	return out, generic.PersistenceError("list financial years", rows.Err())
}

func scanYear(row scanner) (profit.FinancialYear, error) {
	var (
		fy                                  profit.FinancialYear
		periodName                          sql.NullString
		start, end, created, up             string
		autoDate, approvedAt, distributedAt sql.NullString
	)
	err := row.Scan(&fy.ID, &fy.Year, &periodName, &start, &end, &fy.TotalDays, &fy.TotalProfit,
		&fy.Currency, &fy.DailyProfitRate, &fy.Status, &fy.Rollover.Enabled, &fy.Rollover.Percentage,
		&fy.Rollover.AutoRollover, &autoDate, &fy.Rollover.AutoRolloverStatus, &fy.Notes,
		&fy.CreatedBy, &fy.ApprovedBy, &approvedAt, &fy.DistributedBy, &distributedAt,
		&created, &up)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fy, err
		}
		return fy, generic.PersistenceError("scan financial year", err)
	}
	fy.PeriodName = periodName.String
	fy.StartDate = parseTime(start)
	fy.EndDate = parseTime(end)
	fy.Rollover.AutoRolloverDate = parseNullTime(autoDate)
	fy.ApprovedAt = parseNullTime(approvedAt)
	fy.DistributedAt = parseNullTime(distributedAt)
	fy.CreatedAt = parseTime(created)
	fy.UpdatedAt = parseTime(up)
	return fy, nil
}

// =============================================================================
// DISTRIBUTIONS
// =============================================================================

const distributionColumns = `id, financial_year_id, investor_id, start_date, investment_amount,
	total_days, daily_profit_rate, calculated_profit, currency, status, is_rolled_over,
	rollover_amount, rollover_date, distribution_date, created_by, approved_by,
	distributed_by, created_at, updated_at`

func (s *Store) CreateDistribution(ctx context.Context, d profit.Distribution) error {
	defer s.lock()()

	_, err := s.q.ExecContext(ctx, `INSERT INTO distributions (`+distributionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.FinancialYearID, d.InvestorID, fmtTime(d.StartDate), d.Calculation.InvestmentAmount,
		d.Calculation.TotalDays, d.Calculation.DailyProfitRate, d.Calculation.CalculatedProfit,
		d.Currency, d.Status, d.Rollover.IsRolledOver, d.Rollover.Amount, nullTime(d.Rollover.Date),
		nullTime(d.DistributionDate), d.CreatedBy, d.ApprovedBy, d.DistributedBy,
		fmtTime(d.CreatedAt), fmtTime(d.UpdatedAt),
	)
	return writeErr("create distribution", err, "distribution",
		string(d.FinancialYearID)+"/"+string(d.InvestorID))
}

func (s *Store) GetDistribution(ctx context.Context, id profit.DistributionID) (profit.Distribution, error) {
	defer s.rlock()()

	row := s.q.QueryRowContext(ctx, `SELECT `+distributionColumns+` FROM distributions WHERE id = ?`, id)
	d, err := scanDistribution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return profit.Distribution{}, generic.NewNotFound("distribution", string(id))
	}
	return d, err
}

func (s *Store) UpdateDistribution(ctx context.Context, d profit.Distribution) error {
	defer s.lock()()

	res, err := s.q.ExecContext(ctx, `
		UPDATE distributions SET start_date = ?, investment_amount = ?, total_days = ?,
			daily_profit_rate = ?, calculated_profit = ?, currency = ?, status = ?,
			is_rolled_over = ?, rollover_amount = ?, rollover_date = ?, distribution_date = ?,
			approved_by = ?, distributed_by = ?, updated_at = ?
		WHERE id = ?`,
		fmtTime(d.StartDate), d.Calculation.InvestmentAmount, d.Calculation.TotalDays,
		d.Calculation.DailyProfitRate, d.Calculation.CalculatedProfit, d.Currency, d.Status,
		d.Rollover.IsRolledOver, d.Rollover.Amount, nullTime(d.Rollover.Date),
		nullTime(d.DistributionDate), d.ApprovedBy, d.DistributedBy, fmtTime(d.UpdatedAt), d.ID,
	)
	if err != nil {
		return generic.PersistenceError("update distribution", err)
	}
	return requireRow(res, "distribution", string(d.ID))
}

func (s *Store) ListDistributions(ctx context.Context, f profit.DistributionFilter) ([]profit.Distribution, error) {
	defer s.rlock()()

	where, args := distributionWhere(f)
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+distributionColumns+` FROM distributions`+whereClause(where)+` ORDER BY created_at, investor_id`, args...)
	if err != nil {
		return nil, generic.PersistenceError("list distributions", err)
	}
	defer rows.Close()

	out := make([]profit.Distribution, 0)
	for rows.Next() {
		d, err := scanDistribution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, generic.PersistenceError("list distributions", rows.Err())
}

func (s *Store) DeleteDistributions(ctx context.Context, f profit.DistributionFilter) (int, error) {
	if f.FinancialYearID == "" && f.InvestorID == "" {
		return 0, generic.NewValidationError("filter", "year or investor is required")
	}
	defer s.lock()()

	where, args := distributionWhere(f)
	res, err := s.q.ExecContext(ctx, `DELETE FROM distributions`+whereClause(where), args...)
	if err != nil {
		return 0, generic.PersistenceError("delete distributions", err)
	}
	return affected(res)
}

func (s *Store) TransitionDistributions(ctx context.Context, year profit.YearID, from, to profit.DistributionStatus, st profit.StatusStamp) (int, error) {
	defer s.lock()()

	var (
		query string
		args  []any
	)
	switch to {
	case profit.DistApproved:
		query = `UPDATE distributions SET status = ?, approved_by = ?, updated_at = ?
			WHERE financial_year_id = ? AND status = ?`
		args = []any{to, st.Actor, fmtTime(st.At), year, from}
	case profit.DistDistributed, profit.DistRolledOver:
		query = `UPDATE distributions SET status = ?, distributed_by = ?, distribution_date = ?, updated_at = ?
			WHERE financial_year_id = ? AND status = ?`
		args = []any{to, st.Actor, fmtTime(st.At), fmtTime(st.At), year, from}
	default:
		query = `UPDATE distributions SET status = ?, updated_at = ?
			WHERE financial_year_id = ? AND status = ?`
		args = []any{to, fmtTime(st.At), year, from}
	}

	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, generic.PersistenceError("transition distributions", err)
	}
	return affected(res)
}

func (s *Store) CountDistributionsByStatus(ctx context.Context, year profit.YearID) (map[profit.DistributionStatus]int, error) {
	defer s.rlock()()

	rows, err := s.q.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM distributions WHERE financial_year_id = ? GROUP BY status`, year)
	if err != nil {
		return nil, generic.PersistenceError("count distributions", err)
	}
	defer rows.Close()

	out := make(map[profit.DistributionStatus]int)
	for rows.Next() {
		var (
			status profit.DistributionStatus
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, generic.PersistenceError("count distributions", err)
		}
		out[status] = n
	}
	return out, generic.PersistenceError("count distributions", rows.Err())
}

func distributionWhere(f profit.DistributionFilter) ([]string, []any) {
	var (
		where []string
		args  []any
	)
	if f.FinancialYearID != "" {
		where = append(where, "financial_year_id = ?")
		args = append(args, f.FinancialYearID)
	}
	if f.InvestorID != "" {
		where = append(where, "investor_id = ?")
		args = append(args, f.InvestorID)
	}
	if len(f.Statuses) > 0 {
		where = append(where, "status IN ("+placeholders(len(f.Statuses))+")")
		for _, st := range f.Statuses {
			args = append(args, st)
		}
	}
	return where, args
}

func scanDistribution(row scanner) (profit.Distribution, error) {
	var (
		d                      profit.Distribution
		start, created, up     string
		rolloverDate, distDate sql.NullString
	)
	err := row.Scan(&d.ID, &d.FinancialYearID, &d.InvestorID, &start, &d.Calculation.InvestmentAmount,
		&d.Calculation.TotalDays, &d.Calculation.DailyProfitRate, &d.Calculation.CalculatedProfit,
		&d.Currency, &d.Status, &d.Rollover.IsRolledOver, &d.Rollover.Amount, &rolloverDate,
		&distDate, &d.CreatedBy, &d.ApprovedBy, &d.DistributedBy, &created, &up)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return d, err
		}
		return d, generic.PersistenceError("scan distribution", err)
	}
	d.StartDate = parseTime(start)
	d.Rollover.Date = parseNullTime(rolloverDate)
	d.DistributionDate = parseNullTime(distDate)
	d.CreatedAt = parseTime(created)
	d.UpdatedAt = parseTime(up)
	return d, nil
}

// =============================================================================
// LEDGER TRANSACTIONS
// =============================================================================

const transactionColumns = `id, investor_id, type, amount, currency, transaction_date, reference,
	notes, receipt_number, profit_year, is_contribution, created_by, created_at, updated_at`

func (s *Store) CreateTransaction(ctx context.Context, tx profit.Transaction) error {
	defer s.lock()()

	_, err := s.q.ExecContext(ctx, `INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.InvestorID, tx.Type, tx.Amount, tx.Currency, fmtTime(tx.TransactionDate),
		tx.Reference, tx.Notes, tx.ReceiptNumber, tx.ProfitYear, tx.IsContribution,
		tx.CreatedBy, fmtTime(tx.CreatedAt), fmtTime(tx.UpdatedAt),
	)
	return writeErr("create transaction", err, "transaction", string(tx.ID))
}

func (s *Store) GetTransaction(ctx context.Context, id profit.TransactionID) (profit.Transaction, error) {
	defer s.rlock()()

	row := s.q.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return profit.Transaction{}, generic.NewNotFound("transaction", string(id))
	}
	return tx, err
}

func (s *Store) UpdateTransaction(ctx context.Context, tx profit.Transaction) error {
	defer s.lock()()

	res, err := s.q.ExecContext(ctx, `
		UPDATE transactions SET type = ?, amount = ?, currency = ?, transaction_date = ?,
			reference = ?, notes = ?, profit_year = ?, is_contribution = ?, updated_at = ?
		WHERE id = ?`,
		tx.Type, tx.Amount, tx.Currency, fmtTime(tx.TransactionDate), tx.Reference, tx.Notes,
		tx.ProfitYear, tx.IsContribution, fmtTime(tx.UpdatedAt), tx.ID,
	)
	if err != nil {
		return generic.PersistenceError("update transaction", err)
	}
	return requireRow(res, "transaction", string(tx.ID))
}

func (s *Store) DeleteTransaction(ctx context.Context, id profit.TransactionID) error {
	defer s.lock()()

	res, err := s.q.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return generic.PersistenceError("delete transaction", err)
	}
	return requireRow(res, "transaction", string(id))
}

func (s *Store) ListTransactions(ctx context.Context, f profit.TransactionFilter) ([]profit.Transaction, error) {
	defer s.rlock()()

	var (
		where []string
		args  []any
	)
	if f.InvestorID != "" {
		where = append(where, "investor_id = ?")
		args = append(args, f.InvestorID)
	}
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, f.Type)
	}
	if f.From != nil {
		where = append(where, "transaction_date >= ?")
		args = append(args, fmtTime(*f.From))
	}
	if f.To != nil {
		where = append(where, "transaction_date <= ?")
		args = append(args, fmtTime(*f.To))
	}

	rows, err := s.q.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions`+whereClause(where)+` ORDER BY transaction_date DESC, id`, args...)
	if err != nil {
		return nil, generic.PersistenceError("list transactions", err)
	}
	defer rows.Close()

	out := make([]profit.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, generic.PersistenceError("list transactions", rows.Err())
}

func (s *Store) DeleteTransactionsByInvestor(ctx context.Context, id profit.InvestorID) (int, error) {
	defer s.lock()()

	res, err := s.q.ExecContext(ctx, `DELETE FROM transactions WHERE investor_id = ?`, id)
	if err != nil {
		return 0, generic.PersistenceError("delete transactions", err)
	}
	return affected(res)
}

func scanTransaction(row scanner) (profit.Transaction, error) {
	var (
		tx                  profit.Transaction
		txDate, created, up string
	)
	err := row.Scan(&tx.ID, &tx.InvestorID, &tx.Type, &tx.Amount, &tx.Currency, &txDate,
		&tx.Reference, &tx.Notes, &tx.ReceiptNumber, &tx.ProfitYear, &tx.IsContribution,
		&tx.CreatedBy, &created, &up)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return tx, err
		}
		return tx, generic.PersistenceError("scan transaction", err)
	}
	tx.TransactionDate = parseTime(txDate)
	tx.CreatedAt = parseTime(created)
	tx.UpdatedAt = parseTime(up)
	return tx, nil
}

// =============================================================================
// NOTIFICATIONS (notify.Store interface)
// =============================================================================

func (s *Store) CreateNotifications(ctx context.Context, ns []notify.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	return s.WithTx(ctx, func(st profit.Store) error {
		ts := st.(*Store)
		for _, n := range ns {
			data, err := json.Marshal(n.Data)
			if err != nil {
				return fmt.Errorf("encode notification data: %w", err)
			}
			_, err = ts.q.ExecContext(ctx, `
				INSERT INTO notifications (id, recipient, event, priority, title, message,
					data_json, is_read, created_at, expires_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				n.ID, n.Recipient, n.Event, n.Priority, n.Title, n.Message, string(data),
				n.Read, fmtTime(n.CreatedAt), fmtTime(n.ExpiresAt),
			)
			if err != nil {
				return writeErr("create notification", err, "notification", n.ID)
			}
		}
		return nil
	})
}

func (s *Store) ListNotifications(ctx context.Context, recipient string, unreadOnly bool) ([]notify.Notification, error) {
	defer s.rlock()()

	query := `SELECT id, recipient, event, priority, title, message, data_json, is_read, created_at, expires_at
		FROM notifications WHERE recipient = ?`
	if unreadOnly {
		query += ` AND is_read = 0`
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.q.QueryContext(ctx, query, recipient)
	if err != nil {
		return nil, generic.PersistenceError("list notifications", err)
	}
	defer rows.Close()

	out := make([]notify.Notification, 0)
	for rows.Next() {
		var (
			n                 notify.Notification
			data, created, ex string
		)
		if err := rows.Scan(&n.ID, &n.Recipient, &n.Event, &n.Priority, &n.Title, &n.Message,
			&data, &n.Read, &created, &ex); err != nil {
			return nil, generic.PersistenceError("scan notification", err)
		}
		if err := json.Unmarshal([]byte(data), &n.Data); err != nil {
			return nil, fmt.Errorf("decode notification %s: %w", n.ID, err)
		}
		n.CreatedAt = parseTime(created)
		n.ExpiresAt = parseTime(ex)
		out = append(out, n)
	}
	return out, generic.PersistenceError("list notifications", rows.Err())
}

func (s *Store) MarkNotificationRead(ctx context.Context, id string) error {
	defer s.lock()()

	res, err := s.q.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ?`, id)
	if err != nil {
		return generic.PersistenceError("mark notification read", err)
	}
	return requireRow(res, "notification", id)
}

func (s *Store) DeleteExpiredNotifications(ctx context.Context, now time.Time) (int, error) {
	defer s.lock()()

	res, err := s.q.ExecContext(ctx, `DELETE FROM notifications WHERE expires_at <= ?`, fmtTime(now))
	if err != nil {
		return 0, generic.PersistenceError("delete expired notifications", err)
	}
	return affected(res)
}

// =============================================================================
// HELPERS
// =============================================================================

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: fmtTime(*t), Valid: true}
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func affected(res sql.Result) (int, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, generic.PersistenceError("rows affected", err)
	}
	return int(n), nil
}

func requireRow(res sql.Result, kind, id string) error {
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return generic.NewNotFound(kind, id)
	}
	return nil
}

// writeErr maps unique violations to DuplicateError and wraps the rest.
func writeErr(op string, err error, kind, key string) error {
	if err == nil {
		return nil
	}
	if isUniqueConstraintError(err) {
		return &generic.DuplicateError{Kind: kind, Key: key}
	}
	return generic.PersistenceError(op, err)
}

func isUniqueConstraintError(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
		se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
