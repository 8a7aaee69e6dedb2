package profit

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Abd-elrahmann/inestors-backend/generic"
)

// =============================================================================
// DISTRIBUTION LIFECYCLE
// =============================================================================
//
//	draft/active --(engine)--> calculated --approve--> approved
//	approved --distribute or rollover--> distributed
//	any (no calculated distributions left) --close--> closed
//
// closed is terminal. Core fields are frozen while calculated or closed.

const (
	MinYear = 2000
	MaxYear = 2100
)

type FinancialYearInput struct {
	Year        int
	PeriodName  string
	StartDate   time.Time
	EndDate     time.Time
	TotalProfit decimal.Decimal
	Currency    generic.Currency
	Notes       string

	RolloverPercentage *decimal.Decimal
	AutoRollover       bool
	AutoRolloverDate   *time.Time
}

// FinancialYearPatch updates only the non-nil fields.
type FinancialYearPatch struct {
	Year        *int
	PeriodName  *string
	StartDate   *time.Time
	EndDate     *time.Time
	TotalProfit *decimal.Decimal
	Currency    *generic.Currency
	Notes       *string
}

type AutoRolloverInput struct {
	Enabled    bool
	Percentage *decimal.Decimal
	Date       *time.Time
}

type ApprovalResult struct {
	ApprovedCount int
	Year          FinancialYear
}

type DistributeResult struct {
	DistributedCount int
	Year             FinancialYear
}

func validateYear(fy FinancialYear) error {
	if fy.Year < MinYear || fy.Year > MaxYear {
		return generic.NewValidationError("year", "must be between 2000 and 2100")
	}
	if err := generic.ValidateNonNegative("totalProfit", fy.TotalProfit); err != nil {
		return err
	}
	if !fy.Currency.Valid() {
		return generic.NewValidationError("currency", "must be one of IQD, USD")
	}
	if fy.StartDate.IsZero() || fy.EndDate.IsZero() {
		return generic.NewValidationError("startDate", "start and end dates are required")
	}
	if err := fy.Period().Validate(); err != nil {
		return err
	}
	return generic.ValidatePercentage("rolloverPercentage", fy.Rollover.Percentage)
}

// CreateFinancialYear stores a new draft year.
func (s *Service) CreateFinancialYear(ctx context.Context, in FinancialYearInput, actor generic.Actor) (FinancialYear, error) {
	now := s.now()
	fy := FinancialYear{
		ID:              YearID(newID()),
		Year:            in.Year,
		PeriodName:      strings.TrimSpace(in.PeriodName),
		StartDate:       in.StartDate,
		EndDate:         in.EndDate,
		TotalProfit:     in.TotalProfit,
		Currency:        in.Currency,
		DailyProfitRate: decimal.Zero,
		Status:          YearDraft,
		Rollover:        DefaultRolloverSettings(),
		Notes:           in.Notes,
		CreatedBy:       actor.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if in.RolloverPercentage != nil {
		fy.Rollover.Percentage = *in.RolloverPercentage
	}
	if in.AutoRollover {
		fy.Rollover.AutoRollover = true
		fy.Rollover.AutoRolloverDate = in.AutoRolloverDate
	}
	if err := validateYear(fy); err != nil {
		return FinancialYear{}, err
	}
	fy.derive()

	if err := s.store.CreateFinancialYear(ctx, fy); err != nil {
		return FinancialYear{}, err
	}
	s.logger("lifecycle").InfoContext(ctx, "financial year created",
		slog.String("financial_year_id", string(fy.ID)),
		slog.Int("year", fy.Year),
		slog.Int("total_days", fy.TotalDays),
		slog.String("actor", actor.String()))
	return fy, nil
}

func (s *Service) UpdateFinancialYear(ctx context.Context, id YearID, p FinancialYearPatch) (FinancialYear, error) {
	return s.updateYear(ctx, id, func(_ Store, fy *FinancialYear) (bool, error) {
		if !fy.Status.Editable() {
			return false, generic.NewInvalidState("update financial year", string(fy.Status), "year can no longer be edited")
		}

		if p.Year != nil {
			fy.Year = *p.Year
		}
		if p.PeriodName != nil {
			fy.PeriodName = strings.TrimSpace(*p.PeriodName)
		}
		if p.StartDate != nil {
			fy.StartDate = *p.StartDate
		}
		if p.EndDate != nil {
			fy.EndDate = *p.EndDate
		}
		if p.TotalProfit != nil {
			fy.TotalProfit = *p.TotalProfit
		}
		if p.Currency != nil {
			fy.Currency = *p.Currency
		}
		if p.Notes != nil {
			fy.Notes = *p.Notes
		}
		if err := validateYear(*fy); err != nil {
			return false, err
		}
		fy.derive()
		return true, nil
	})
}

// updateYear re-reads the year inside one store transaction and applies fn
// to the stored record, so fields written by concurrent actions survive.
// The record is written only when fn reports a change.
func (s *Service) updateYear(ctx context.Context, id YearID, fn func(st Store, fy *FinancialYear) (bool, error)) (FinancialYear, error) {
	var out FinancialYear
	err := s.store.WithTx(ctx, func(st Store) error {
		fy, err := st.GetFinancialYear(ctx, id)
		if err != nil {
			return err
		}
		changed, err := fn(st, &fy)
		if err != nil {
			return err
		}
		if changed {
			fy.UpdatedAt = s.now()
			if err := st.UpdateFinancialYear(ctx, fy); err != nil {
				return err
			}
		}
		out = fy
		return nil
	})
	if err != nil {
		return FinancialYear{}, err
	}
	return out, nil
}

// DeleteFinancialYear is refused while the year owns any distribution.
func (s *Service) DeleteFinancialYear(ctx context.Context, id YearID) error {
	fy, err := s.store.GetFinancialYear(ctx, id)
	if err != nil {
		return err
	}
	counts, err := s.store.CountDistributionsByStatus(ctx, id)
	if err != nil {
		return err
	}
	if n := countAll(counts); n > 0 {
		return generic.NewInvalidState("delete financial year", string(fy.Status), "year still has distributions")
	}
	return s.store.DeleteFinancialYear(ctx, id)
}

func (s *Service) GetFinancialYear(ctx context.Context, id YearID) (FinancialYear, error) {
	return s.store.GetFinancialYear(ctx, id)
}

// ListFinancialYears repairs each year's derived status on the way out.
func (s *Service) ListFinancialYears(ctx context.Context, f YearFilter) ([]FinancialYear, error) {
	years, err := s.store.ListFinancialYears(ctx, f)
	if err != nil {
		return nil, err
	}
	for i := range years {
		healed, err := s.healStatus(ctx, years[i])
		if err != nil {
			return nil, err
		}
		years[i] = healed
	}
	return years, nil
}

// healStatus recomputes a year's status from its distribution breakdown.
// Closed years and years without distributions are left alone.
func (s *Service) healStatus(ctx context.Context, fy FinancialYear) (FinancialYear, error) {
	if fy.Status == YearClosed {
		return fy, nil
	}
	counts, err := s.store.CountDistributionsByStatus(ctx, fy.ID)
	if err != nil {
		return fy, err
	}
	if healedStatus(fy.Status, counts) == fy.Status {
		return fy, nil
	}

	// Decide again under the transaction; the year may have moved on.
	return s.updateYear(ctx, fy.ID, func(st Store, cur *FinancialYear) (bool, error) {
		if cur.Status == YearClosed {
			return false, nil
		}
		counts, err := st.CountDistributionsByStatus(ctx, cur.ID)
		if err != nil {
			return false, err
		}
		next := healedStatus(cur.Status, counts)
		if next == cur.Status {
			return false, nil
		}
		s.logger("lifecycle").InfoContext(ctx, "financial year status repaired",
			slog.String("financial_year_id", string(cur.ID)),
			slog.String("from", string(cur.Status)),
			slog.String("to", string(next)))
		cur.Status = next
		return true, nil
	})
}

func healedStatus(current YearStatus, counts map[DistributionStatus]int) YearStatus {
	total := countAll(counts)
	switch {
	case total == 0:
		return current
	case counts[DistDistributed]+counts[DistRolledOver] == total:
		return YearDistributed
	case counts[DistApproved] == total:
		return YearApproved
	case counts[DistCalculated] > 0:
		return YearCalculated
	}
	return current
}

// ApproveDistributions moves every calculated distribution to approved.
func (s *Service) ApproveDistributions(ctx context.Context, id YearID, actor generic.Actor) (*ApprovalResult, error) {
	now := s.now()
	var n int
	fy, err := s.updateYear(ctx, id, func(st Store, fy *FinancialYear) (bool, error) {
		if fy.Status != YearCalculated {
			return false, generic.NewInvalidState("approve distributions", string(fy.Status), "year must be calculated")
		}
		moved, err := st.TransitionDistributions(ctx, id, DistCalculated, DistApproved, StatusStamp{Actor: actor.ID, At: now})
		if err != nil {
			return false, err
		}
		n = moved
		fy.Status = YearApproved
		fy.ApprovedBy = actor.ID
		fy.ApprovedAt = stamp(now)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger("lifecycle").InfoContext(ctx, "distributions approved",
		slog.String("financial_year_id", string(id)),
		slog.Int("approved", n),
		slog.String("actor", actor.String()))

	approved, err := s.store.ListDistributions(ctx, DistributionFilter{FinancialYearID: id, Statuses: []DistributionStatus{DistApproved}})
	if err == nil {
		s.notify(ctx, EventProfitApproved, recipientsFor(approved), yearPayload(fy, approved, actor, "profit distributions approved"))
	}
	return &ApprovalResult{ApprovedCount: n, Year: fy}, nil
}

// DistributeProfits pays out approved distributions without a rollover.
func (s *Service) DistributeProfits(ctx context.Context, id YearID, actor generic.Actor) (*DistributeResult, error) {
	now := s.now()
	var (
		n     int
		toPay []Distribution
	)
	fy, err := s.updateYear(ctx, id, func(st Store, fy *FinancialYear) (bool, error) {
		if fy.Status != YearApproved {
			return false, generic.NewInvalidState("distribute profits", string(fy.Status), "year must be approved")
		}
		var err error
		toPay, err = st.ListDistributions(ctx, DistributionFilter{FinancialYearID: id, Statuses: []DistributionStatus{DistApproved}})
		if err != nil {
			return false, err
		}
		n, err = st.TransitionDistributions(ctx, id, DistApproved, DistDistributed, StatusStamp{Actor: actor.ID, At: now})
		if err != nil {
			return false, err
		}
		fy.Status = YearDistributed
		fy.DistributedBy = actor.ID
		fy.DistributedAt = stamp(now)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger("lifecycle").InfoContext(ctx, "profits distributed",
		slog.String("financial_year_id", string(id)),
		slog.Int("distributed", n),
		slog.String("actor", actor.String()))
	s.notify(ctx, EventProfitDistributed, recipientsFor(toPay), yearPayload(fy, toPay, actor, "profits distributed"))

	return &DistributeResult{DistributedCount: n, Year: fy}, nil
}

// CloseFinancialYear is irreversible and requires that no distribution is
// still in calculated status.
func (s *Service) CloseFinancialYear(ctx context.Context, id YearID, actor generic.Actor) (FinancialYear, error) {
	fy, err := s.updateYear(ctx, id, func(st Store, fy *FinancialYear) (bool, error) {
		if fy.Status == YearClosed {
			return false, generic.NewInvalidState("close financial year", string(fy.Status), "year is already closed")
		}
		counts, err := st.CountDistributionsByStatus(ctx, id)
		if err != nil {
			return false, err
		}
		if counts[DistCalculated] > 0 {
			return false, generic.NewInvalidState("close financial year", string(fy.Status), "all distributions must be approved first")
		}
		fy.Status = YearClosed
		return true, nil
	})
	if err != nil {
		return FinancialYear{}, err
	}

	s.logger("lifecycle").InfoContext(ctx, "financial year closed",
		slog.String("financial_year_id", string(id)),
		slog.String("actor", actor.String()))
	s.notify(ctx, EventYearClosed, []Recipient{{Kind: RecipientAdmins}}, yearPayload(fy, nil, actor, "financial year closed"))
	return fy, nil
}

// SetAutoRollover configures the scheduled rollover of a year. Enabling
// resets the status to pending so the next sweep picks it up.
func (s *Service) SetAutoRollover(ctx context.Context, id YearID, in AutoRolloverInput) (FinancialYear, error) {
	if in.Percentage != nil {
		if err := generic.ValidatePercentage("rolloverPercentage", *in.Percentage); err != nil {
			return FinancialYear{}, err
		}
	}
	return s.updateYear(ctx, id, func(_ Store, fy *FinancialYear) (bool, error) {
		if fy.Status == YearClosed {
			return false, generic.NewInvalidState("set auto rollover", string(fy.Status), "year is closed")
		}
		if in.Enabled && in.Date == nil && fy.Rollover.AutoRolloverDate == nil {
			return false, generic.NewValidationError("autoRolloverDate", "is required when enabling auto rollover")
		}
		if in.Percentage != nil {
			fy.Rollover.Percentage = *in.Percentage
		}
		fy.Rollover.AutoRollover = in.Enabled
		if in.Date != nil {
			d := generic.DayOf(*in.Date)
			fy.Rollover.AutoRolloverDate = &d
		}
		if in.Enabled {
			fy.Rollover.AutoRolloverStatus = AutoRolloverPending
		}
		return true, nil
	})
}

// =============================================================================
// READ MODELS
// =============================================================================

type DistributionListSummary struct {
	TotalInvestors        int
	TotalCalculatedProfit decimal.Decimal
	TotalDays             int
	AverageProfit         decimal.Decimal
	DailyProfitRate       decimal.Decimal
}

type DistributionList struct {
	Year          FinancialYear
	Distributions []Distribution
	Summary       DistributionListSummary
}

func (s *Service) GetDistributions(ctx context.Context, id YearID) (*DistributionList, error) {
	fy, err := s.store.GetFinancialYear(ctx, id)
	if err != nil {
		return nil, err
	}
	dists, err := s.store.ListDistributions(ctx, DistributionFilter{FinancialYearID: id})
	if err != nil {
		return nil, err
	}
	total := sumProfit(dists)
	return &DistributionList{
		Year:          fy,
		Distributions: dists,
		Summary: DistributionListSummary{
			TotalInvestors:        len(dists),
			TotalCalculatedProfit: total,
			TotalDays:             fy.TotalDays,
			AverageProfit:         average(total, len(dists)),
			DailyProfitRate:       fy.DailyProfitRate,
		},
	}, nil
}

type StatusAggregate struct {
	Count       int
	TotalProfit decimal.Decimal
	TotalDays   int
	AvgProfit   decimal.Decimal
}

type OverallAggregate struct {
	Investors         int
	DistributedProfit decimal.Decimal
	MaxProfit         decimal.Decimal
	MinProfit         decimal.Decimal
	AvgProfit         decimal.Decimal
}

type YearSummary struct {
	Year     FinancialYear
	ByStatus map[DistributionStatus]StatusAggregate
	Overall  OverallAggregate

	// ProfitEfficiency is distributed profit as a percentage of nominal profit.
	ProfitEfficiency decimal.Decimal
}

// Summary aggregates a year's distributions per status and overall.
func (s *Service) Summary(ctx context.Context, id YearID) (*YearSummary, error) {
	fy, err := s.store.GetFinancialYear(ctx, id)
	if err != nil {
		return nil, err
	}
	dists, err := s.store.ListDistributions(ctx, DistributionFilter{FinancialYearID: id})
	if err != nil {
		return nil, err
	}

	out := &YearSummary{Year: fy, ByStatus: map[DistributionStatus]StatusAggregate{}}
	overall := OverallAggregate{DistributedProfit: decimal.Zero, MaxProfit: decimal.Zero, MinProfit: decimal.Zero}
	for i, d := range dists {
		p := d.Calculation.CalculatedProfit
		agg := out.ByStatus[d.Status]
		agg.Count++
		agg.TotalProfit = agg.TotalProfit.Add(p)
		agg.TotalDays += d.Calculation.TotalDays
		out.ByStatus[d.Status] = agg

		overall.DistributedProfit = overall.DistributedProfit.Add(p)
		if i == 0 || p.GreaterThan(overall.MaxProfit) {
			overall.MaxProfit = p
		}
		if i == 0 || p.LessThan(overall.MinProfit) {
			overall.MinProfit = p
		}
	}
	for st, agg := range out.ByStatus {
		agg.AvgProfit = average(agg.TotalProfit, agg.Count)
		out.ByStatus[st] = agg
	}
	overall.Investors = len(dists)
	overall.AvgProfit = average(overall.DistributedProfit, len(dists))
	out.Overall = overall
	out.ProfitEfficiency = generic.SharePercentage(overall.DistributedProfit, fy.TotalProfit)
	return out, nil
}

func average(total decimal.Decimal, n int) decimal.Decimal {
	if n == 0 {
		return decimal.Zero
	}
	return generic.RoundProfit(total.Div(decimal.NewFromInt(int64(n))))
}

func countAll(counts map[DistributionStatus]int) int {
	n := 0
	for _, c := range counts {
		n += c
	}
	return n
}

func yearPayload(fy FinancialYear, dists []Distribution, actor generic.Actor, msg string) Payload {
	return Payload{
		YearID:      fy.ID,
		Year:        fy.Year,
		PeriodName:  fy.PeriodName,
		Currency:    fy.Currency,
		Amount:      sumProfit(dists),
		Count:       len(dists),
		Message:     msg,
		Actor:       actor,
		PerInvestor: profitByInvestor(dists),
	}
}
