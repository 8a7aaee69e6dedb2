package profit

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Abd-elrahmann/inestors-backend/generic"
)

// =============================================================================
// DISTRIBUTION ENGINE
// =============================================================================
//
// CalculateDistributions turns a financial year's nominal profit into one
// distribution per active investor.
//
//	dailyRate = totalProfit / totalCapital / totalDays      (full-year days)
//	full period:  profit = capital / totalCapital * totalProfit
//	elapsed:      profit = capital * investorDays * dailyRate
//
// Distributions that are approved, distributed or rolled over are locked
// and never touched here. When every existing participant is locked and
// nobody new has joined, the run is a read-only view.

const (
	FormulaFullPeriod = "capital / totalCapital * totalProfit"
	FormulaElapsed    = "capital * participationDays * dailyRate"
)

type CalculateOptions struct {
	ForceFullPeriod bool
}

type CalculationSummary struct {
	ViewOnly bool

	NewInvestors       int
	PendingInvestors   int
	LockedInvestors    int
	ProcessedInvestors int

	TotalInvestedCapital  decimal.Decimal
	TotalCalculatedProfit decimal.Decimal
	NominalProfit         decimal.Decimal
	ProfitDifference      decimal.Decimal
	WithinTolerance       bool
	DailyProfitRate       decimal.Decimal

	ElapsedDays int
	TotalDays   int
	Mode        generic.CalculationMode
	Formula     string
	Message     string
}

type CalculationResult struct {
	Year          FinancialYear
	Distributions []Distribution
	Summary       CalculationSummary
}

// calculationPlan is the step-1 partition of a year's participants.
type calculationPlan struct {
	fresh     []Investor // no distribution yet
	pending   []Investor // distribution still calculated
	locked    []Distribution
	recompute []Investor // fresh + pending, in stable order
}

func classify(investors []Investor, existing []Distribution) calculationPlan {
	byInvestor := make(map[InvestorID]Distribution, len(existing))
	var plan calculationPlan
	for _, d := range existing {
		byInvestor[d.InvestorID] = d
		if d.Status.Locked() {
			plan.locked = append(plan.locked, d)
		}
	}
	for _, inv := range investors {
		d, ok := byInvestor[inv.ID]
		switch {
		case !ok:
			plan.fresh = append(plan.fresh, inv)
		case d.Status.Locked():
		default:
			plan.pending = append(plan.pending, inv)
		}
	}
	plan.recompute = append(append(plan.recompute, plan.fresh...), plan.pending...)
	sort.SliceStable(plan.recompute, func(i, j int) bool {
		return plan.recompute[i].ID < plan.recompute[j].ID
	})
	return plan
}

// DailyRatePerUnit is profit per unit of capital per calendar day.
// Zero capital or zero days yields zero.
func DailyRatePerUnit(totalProfit, totalCapital decimal.Decimal, totalDays int) decimal.Decimal {
	if !totalCapital.IsPositive() || totalDays <= 0 {
		return decimal.Zero
	}
	return totalProfit.Div(totalCapital).Div(decimal.NewFromInt(int64(totalDays)))
}

// InvestorProfit computes one investor's profit, rounded to 3dp.
//
// The elapsed formula is evaluated as a single division so repeated runs
// on the same inputs round identically.
func InvestorProfit(mode generic.CalculationMode, capital, totalCapital, totalProfit decimal.Decimal, w generic.Window, totalDays int) decimal.Decimal {
	if w.Empty() || !totalCapital.IsPositive() || totalDays <= 0 {
		return decimal.Zero.Round(generic.ProfitPlaces)
	}
	if mode == generic.ModeFullPeriod {
		return generic.RoundProfit(capital.Mul(totalProfit).Div(totalCapital))
	}
	num := capital.Mul(decimal.NewFromInt(int64(w.Days))).Mul(totalProfit)
	den := totalCapital.Mul(decimal.NewFromInt(int64(totalDays)))
	return generic.RoundProfit(num.Div(den))
}

// CalculateDistributions runs the engine for one financial year.
func (s *Service) CalculateDistributions(ctx context.Context, yearID YearID, opts CalculateOptions, actor generic.Actor) (*CalculationResult, error) {
	log := s.logger("engine").With(slog.String("financial_year_id", string(yearID)))

	year, err := s.store.GetFinancialYear(ctx, yearID)
	if err != nil {
		return nil, err
	}
	if year.Status == YearClosed {
		return nil, generic.NewInvalidState("calculate distributions", string(year.Status), "financial year is closed")
	}

	now := s.now()
	period := year.Period()
	if !opts.ForceFullPeriod && !period.Started(now) {
		return nil, generic.NewInvalidState("calculate distributions", string(year.Status), "financial year has not started")
	}

	investors, err := s.store.ListInvestors(ctx, InvestorFilter{})
	if err != nil {
		return nil, err
	}
	if len(investors) == 0 {
		return nil, generic.NewInvalidState("calculate distributions", string(year.Status), "no active investors")
	}

	existing, err := s.store.ListDistributions(ctx, DistributionFilter{FinancialYearID: yearID})
	if err != nil {
		return nil, err
	}

	plan := classify(investors, existing)
	mode := period.ModeFor(now, opts.ForceFullPeriod)
	totalCapital := TotalCapital(investors)
	rate := DailyRatePerUnit(year.TotalProfit, totalCapital, year.TotalDays)

	summary := CalculationSummary{
		NewInvestors:         len(plan.fresh),
		PendingInvestors:     len(plan.pending),
		LockedInvestors:      len(plan.locked),
		TotalInvestedCapital: totalCapital,
		NominalProfit:        year.TotalProfit,
		DailyProfitRate:      generic.RoundRate(rate),
		ElapsedDays:          period.ElapsedDays(now, opts.ForceFullPeriod),
		TotalDays:            year.TotalDays,
		Mode:                 mode,
		Formula:              formulaFor(mode),
	}

	if len(plan.locked) > 0 && len(plan.fresh) == 0 {
		summary.ViewOnly = true
		summary.TotalCalculatedProfit = sumProfit(existing)
		summary.Message = "all participating investors are locked; existing distributions returned unchanged"
		summary.ProfitDifference, summary.WithinTolerance = discrepancy(summary.TotalCalculatedProfit, year.TotalProfit)
		log.InfoContext(ctx, "calculation skipped, distributions locked", slog.Int("locked", len(plan.locked)))
		return &CalculationResult{Year: year, Distributions: existing, Summary: summary}, nil
	}

	if _, err := s.store.DeleteDistributions(ctx, DistributionFilter{
		FinancialYearID: yearID,
		Statuses:        []DistributionStatus{DistCalculated},
	}); err != nil {
		return nil, err
	}

	dists := make([]Distribution, 0, len(plan.recompute))
	totalCalculated := decimal.Zero
	for _, inv := range plan.recompute {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		w := period.EffectiveWindow(inv.JoinDate, now, opts.ForceFullPeriod)
		d := Distribution{
			ID:              DistributionID(newID()),
			FinancialYearID: yearID,
			InvestorID:      inv.ID,
			StartDate:       w.Start,
			Calculation: Calculation{
				InvestmentAmount: inv.ContributedCapital,
				TotalDays:        w.Days,
				DailyProfitRate:  rate,
				CalculatedProfit: InvestorProfit(mode, inv.ContributedCapital, totalCapital, year.TotalProfit, w, year.TotalDays),
			},
			Currency:  year.Currency,
			Status:    DistCalculated,
			CreatedBy: actor.ID,
			CreatedAt: now,
			UpdatedAt: now,
		}

		saved, ok, err := s.saveCalculated(ctx, d)
		if err != nil {
			return nil, err
		}
		if !ok {
			log.WarnContext(ctx, "distribution locked by a concurrent action, skipped",
				slog.String("investor_id", string(inv.ID)))
			continue
		}
		dists = append(dists, saved)
		totalCalculated = totalCalculated.Add(saved.Calculation.CalculatedProfit)
	}

	// Year-level state changes only after the investor loop completes, and
	// only while no admin action has moved the year past calculated.
	year, err = s.updateYear(ctx, yearID, func(_ Store, fy *FinancialYear) (bool, error) {
		switch fy.Status {
		case YearApproved, YearDistributed, YearClosed:
			return false, nil
		}
		fy.DailyProfitRate = generic.RoundRate(rate)
		fy.Status = YearCalculated
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	summary.ProcessedInvestors = len(dists)
	summary.TotalCalculatedProfit = totalCalculated
	summary.ProfitDifference, summary.WithinTolerance = discrepancy(totalCalculated, year.TotalProfit)
	summary.Message = "distributions calculated"
	if !summary.WithinTolerance {
		log.WarnContext(ctx, "calculated profit differs from nominal profit",
			slog.String("calculated", totalCalculated.String()),
			slog.String("nominal", year.TotalProfit.String()),
			slog.String("difference", summary.ProfitDifference.String()))
	}

	log.InfoContext(ctx, "distributions calculated",
		slog.String("actor", actor.String()),
		slog.String("mode", string(mode)),
		slog.Int("processed", len(dists)),
		slog.Int("locked", len(plan.locked)),
		slog.String("total", totalCalculated.String()))

	s.notify(ctx, EventProfitCalculated, recipientsFor(dists), Payload{
		YearID:      year.ID,
		Year:        year.Year,
		PeriodName:  year.PeriodName,
		Currency:    year.Currency,
		Amount:      totalCalculated,
		Count:       len(dists),
		Message:     "profit distributions calculated",
		Actor:       actor,
		PerInvestor: profitByInvestor(dists),
	})

	return &CalculationResult{Year: year, Distributions: dists, Summary: summary}, nil
}

// saveCalculated inserts d. If a concurrent run already inserted a row for
// the same (year, investor), a pending row is overwritten and a locked one
// is left alone (ok=false). A year closed mid-run stops the calculation.
func (s *Service) saveCalculated(ctx context.Context, d Distribution) (Distribution, bool, error) {
	var (
		saved Distribution
		ok    bool
	)
	err := s.store.WithTx(ctx, func(st Store) error {
		fy, err := st.GetFinancialYear(ctx, d.FinancialYearID)
		if err != nil {
			return err
		}
		if fy.Status == YearClosed {
			return generic.NewInvalidState("calculate distributions", string(fy.Status), "financial year was closed during calculation")
		}
		saved, ok, err = upsertCalculated(ctx, st, d)
		return err
	})
	if err != nil {
		return Distribution{}, false, err
	}
	return saved, ok, nil
}

func upsertCalculated(ctx context.Context, st Store, d Distribution) (Distribution, bool, error) {
	err := st.CreateDistribution(ctx, d)
	if err == nil {
		return d, true, nil
	}
	if !errors.Is(err, generic.ErrDuplicate) {
		return Distribution{}, false, err
	}

	current, err := st.ListDistributions(ctx, DistributionFilter{
		FinancialYearID: d.FinancialYearID,
		InvestorID:      d.InvestorID,
	})
	if err != nil {
		return Distribution{}, false, err
	}
	if len(current) == 0 {
		return d, true, st.CreateDistribution(ctx, d)
	}
	if current[0].Status.Locked() {
		return current[0], false, nil
	}
	d.ID = current[0].ID
	d.CreatedAt = current[0].CreatedAt
	if err := st.UpdateDistribution(ctx, d); err != nil {
		return Distribution{}, false, err
	}
	return d, true, nil
}

func formulaFor(mode generic.CalculationMode) string {
	if mode == generic.ModeFullPeriod {
		return FormulaFullPeriod
	}
	return FormulaElapsed
}

func discrepancy(calculated, nominal decimal.Decimal) (decimal.Decimal, bool) {
	diff := calculated.Sub(nominal).Abs()
	return diff, diff.LessThanOrEqual(generic.ProfitTolerance)
}

func sumProfit(dists []Distribution) decimal.Decimal {
	total := decimal.Zero
	for _, d := range dists {
		total = total.Add(d.Calculation.CalculatedProfit)
	}
	return total
}

func profitByInvestor(dists []Distribution) map[InvestorID]decimal.Decimal {
	out := make(map[InvestorID]decimal.Decimal, len(dists))
	for _, d := range dists {
		out[d.InvestorID] = d.Calculation.CalculatedProfit
	}
	return out
}

func stamp(t time.Time) *time.Time { return &t }
