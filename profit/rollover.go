package profit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Abd-elrahmann/inestors-backend/generic"
)

// =============================================================================
// ROLLOVER PROCESSOR
// =============================================================================
//
// A rollover reinvests part of an approved distribution: it books a profit
// transaction for the investor, tagged with the financial year, and marks
// the distribution distributed. Both writes happen in one store transaction.

type RolloverOutcome struct {
	DistributionID DistributionID
	InvestorID     InvestorID
	OriginalProfit decimal.Decimal
	RolloverAmount decimal.Decimal
	TransactionID  TransactionID
	Success        bool
	Error          string
}

type RolloverBatchResult struct {
	Year       FinancialYear
	Percentage decimal.Decimal
	Results    []RolloverOutcome
	Succeeded  int
	Failed     int
}

// RolloverDistribution rolls over a single approved distribution.
func (s *Service) RolloverDistribution(ctx context.Context, id DistributionID, pct decimal.Decimal, actor generic.Actor) (RolloverOutcome, error) {
	if err := generic.ValidatePercentage("percentage", pct); err != nil {
		return RolloverOutcome{}, err
	}
	d, err := s.store.GetDistribution(ctx, id)
	if err != nil {
		return RolloverOutcome{}, err
	}
	if d.Status != DistApproved {
		return RolloverOutcome{}, generic.NewInvalidState("rollover", string(d.Status), "distribution must be approved")
	}
	fy, err := s.store.GetFinancialYear(ctx, d.FinancialYearID)
	if err != nil {
		return RolloverOutcome{}, err
	}

	out, err := s.rollover(ctx, fy, d, pct, actor)
	if err != nil {
		return out, err
	}
	s.notify(ctx, EventProfitRolledOver, recipientsFor([]Distribution{d}), Payload{
		YearID:      fy.ID,
		Year:        fy.Year,
		PeriodName:  fy.PeriodName,
		Currency:    d.Currency,
		Amount:      out.RolloverAmount,
		Count:       1,
		Message:     "profit rolled over",
		Actor:       actor,
		PerInvestor: map[InvestorID]decimal.Decimal{d.InvestorID: out.RolloverAmount},
	})
	return out, nil
}

func (s *Service) rollover(ctx context.Context, fy FinancialYear, d Distribution, pct decimal.Decimal, actor generic.Actor) (RolloverOutcome, error) {
	now := s.now()
	amount := generic.RoundProfit(generic.PercentOf(d.Calculation.CalculatedProfit, pct))
	out := RolloverOutcome{
		DistributionID: d.ID,
		InvestorID:     d.InvestorID,
		OriginalProfit: d.Calculation.CalculatedProfit,
		RolloverAmount: amount,
	}

	tx := Transaction{
		ID:              TransactionID(newID()),
		InvestorID:      d.InvestorID,
		Type:            TxProfit,
		Amount:          amount,
		Currency:        d.Currency,
		TransactionDate: now,
		Reference:       fmt.Sprintf("rollover of FY %d", fy.Year),
		Notes:           fmt.Sprintf("%s%% of %s profit rolled over", pct.String(), d.Calculation.CalculatedProfit.String()),
		ReceiptNumber:   s.nextReceipt(),
		ProfitYear:      fy.Year,
		CreatedBy:       actor.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err := s.store.WithTx(ctx, func(st Store) error {
		cur, err := st.GetDistribution(ctx, d.ID)
		if err != nil {
			return err
		}
		if cur.Status != DistApproved {
			return generic.NewInvalidState("rollover", string(cur.Status), "distribution must be approved")
		}
		if err := st.CreateTransaction(ctx, tx); err != nil {
			return err
		}
		cur.Status = DistDistributed
		cur.Rollover = RolloverInfo{IsRolledOver: true, Amount: amount, Date: stamp(now)}
		cur.DistributionDate = stamp(now)
		cur.DistributedBy = actor.ID
		cur.UpdatedAt = now
		return st.UpdateDistribution(ctx, cur)
	})
	if err != nil {
		out.Error = err.Error()
		return out, err
	}

	out.TransactionID = tx.ID
	out.Success = true
	s.logger("rollover").InfoContext(ctx, "distribution rolled over",
		slog.String("distribution_id", string(d.ID)),
		slog.String("investor_id", string(d.InvestorID)),
		slog.String("amount", amount.String()),
		slog.String("actor", actor.String()))
	return out, nil
}

// rolloverBatch processes each distribution independently; failures are
// logged and reported, never propagated.
func (s *Service) rolloverBatch(ctx context.Context, fy FinancialYear, dists []Distribution, pct decimal.Decimal, actor generic.Actor) *RolloverBatchResult {
	res := &RolloverBatchResult{Year: fy, Percentage: pct, Results: make([]RolloverOutcome, 0, len(dists))}
	for _, d := range dists {
		out, err := s.rollover(ctx, fy, d, pct, actor)
		if err != nil {
			s.logger("rollover").ErrorContext(ctx, "rollover failed",
				slog.String("financial_year_id", string(fy.ID)),
				slog.String("distribution_id", string(d.ID)),
				slog.String("investor_id", string(d.InvestorID)),
				slog.Any("error", err))
			res.Failed++
		} else {
			res.Succeeded++
		}
		res.Results = append(res.Results, out)
	}
	return res
}

// RolloverProfits rolls over every approved distribution of a year and,
// when at least one succeeds, marks the year distributed.
func (s *Service) RolloverProfits(ctx context.Context, id YearID, pct decimal.Decimal, actor generic.Actor) (*RolloverBatchResult, error) {
	if err := generic.ValidatePercentage("percentage", pct); err != nil {
		return nil, err
	}
	fy, err := s.store.GetFinancialYear(ctx, id)
	if err != nil {
		return nil, err
	}
	if fy.Status == YearClosed {
		return nil, generic.NewInvalidState("rollover profits", string(fy.Status), "year is closed")
	}
	approved, err := s.store.ListDistributions(ctx, DistributionFilter{FinancialYearID: id, Statuses: []DistributionStatus{DistApproved}})
	if err != nil {
		return nil, err
	}
	if len(approved) == 0 {
		return nil, generic.NewValidationError("distributions", "no approved distributions to roll over")
	}

	res := s.rolloverBatch(ctx, fy, approved, pct, actor)
	if res.Succeeded == 0 {
		return res, nil
	}

	now := s.now()
	fy, err = s.updateYear(ctx, id, func(_ Store, cur *FinancialYear) (bool, error) {
		if cur.Status == YearClosed {
			return false, nil
		}
		cur.Status = YearDistributed
		cur.Rollover.Enabled = true
		cur.Rollover.Percentage = pct
		cur.DistributedBy = actor.ID
		cur.DistributedAt = stamp(now)
		return true, nil
	})
	if err != nil {
		return res, err
	}
	res.Year = fy

	rolled := succeeded(approved, res.Results)
	p := yearPayload(fy, rolled, actor, "profits rolled over")
	p.Amount, p.PerInvestor = rolloverAmounts(res.Results)
	s.notify(ctx, EventProfitRolledOver, recipientsFor(rolled), p)
	return res, nil
}

// =============================================================================
// SCHEDULED SWEEPS
// =============================================================================

type AutoRolloverYearResult struct {
	YearID  YearID
	Year    int
	Status  AutoRolloverStatus
	Results []RolloverOutcome
	Error   string
}

type AutoRolloverReport struct {
	ProcessedYears int
	Results        []AutoRolloverYearResult
}

// ExecuteAutoRollover rolls over every calculated year whose auto rollover
// is due and still pending. One year's failure never stops the sweep.
func (s *Service) ExecuteAutoRollover(ctx context.Context) (*AutoRolloverReport, error) {
	log := s.logger("rollover")
	years, err := s.store.ListFinancialYears(ctx, YearFilter{Statuses: []YearStatus{YearCalculated}})
	if err != nil {
		return nil, err
	}

	now := s.now()
	report := &AutoRolloverReport{}
	for _, fy := range years {
		if !autoRolloverDue(fy, now) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		yr := s.autoRolloverYear(ctx, fy)
		report.ProcessedYears++
		report.Results = append(report.Results, yr)
	}
	log.InfoContext(ctx, "auto rollover sweep finished", slog.Int("processed_years", report.ProcessedYears))
	return report, nil
}

func autoRolloverDue(fy FinancialYear, now time.Time) bool {
	r := fy.Rollover
	return r.AutoRollover &&
		r.AutoRolloverDate != nil &&
		!generic.DayOf(now).Before(generic.DayOf(*r.AutoRolloverDate)) &&
		r.AutoRolloverStatus == AutoRolloverPending
}

func (s *Service) autoRolloverYear(ctx context.Context, fy FinancialYear) AutoRolloverYearResult {
	log := s.logger("rollover").With(slog.String("financial_year_id", string(fy.ID)))
	yr := AutoRolloverYearResult{YearID: fy.ID, Year: fy.Year}

	approved, err := s.store.ListDistributions(ctx, DistributionFilter{FinancialYearID: fy.ID, Statuses: []DistributionStatus{DistApproved}})
	switch {
	case err != nil:
		yr.Error = err.Error()
		yr.Status = AutoRolloverFailed
	case len(approved) == 0:
		yr.Error = "no approved distributions"
		yr.Status = AutoRolloverFailed
	default:
		res := s.rolloverBatch(ctx, fy, approved, fy.Rollover.Percentage, generic.SystemActor)
		yr.Results = res.Results
		yr.Status = AutoRolloverCompleted
		if res.Failed > 0 {
			yr.Status = AutoRolloverFailed
			yr.Error = fmt.Sprintf("%d of %d rollovers failed", res.Failed, len(approved))
		}
	}

	updated, err := s.updateYear(ctx, fy.ID, func(_ Store, cur *FinancialYear) (bool, error) {
		cur.Rollover.AutoRolloverStatus = yr.Status
		if yr.Status == AutoRolloverCompleted {
			cur.Rollover.Enabled = true
		}
		return true, nil
	})
	if err != nil {
		log.ErrorContext(ctx, "saving auto rollover status failed", slog.Any("error", err))
		if yr.Error == "" {
			yr.Error = err.Error()
		}
	} else {
		fy = updated
	}

	event := EventAutoRolloverCompleted
	if yr.Status == AutoRolloverFailed {
		event = EventAutoRolloverFailed
		log.WarnContext(ctx, "auto rollover failed", slog.String("reason", yr.Error))
	}
	rolled := succeeded(approved, yr.Results)
	p := yearPayload(fy, rolled, generic.SystemActor, "automatic rollover "+string(yr.Status))
	p.Amount, p.PerInvestor = rolloverAmounts(yr.Results)
	s.notify(ctx, event, recipientsFor(rolled), p)
	return yr
}

type RecalculationOutcome struct {
	YearID    YearID
	ViewOnly  bool
	Processed int
	Error     string
}

type RecalculationReport struct {
	Checked      int
	Recalculated int
	Failed       int
	Results      []RecalculationOutcome
}

// RecalculateActiveYears refreshes every calculated year that is in
// progress (started, not yet ended), acting as the system.
func (s *Service) RecalculateActiveYears(ctx context.Context) (*RecalculationReport, error) {
	log := s.logger("engine")
	years, err := s.store.ListFinancialYears(ctx, YearFilter{Statuses: []YearStatus{YearCalculated}})
	if err != nil {
		return nil, err
	}

	now := s.now()
	report := &RecalculationReport{}
	for _, fy := range years {
		p := fy.Period()
		if !p.Started(now) || p.Ended(now) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Checked++

		out := RecalculationOutcome{YearID: fy.ID}
		res, err := s.CalculateDistributions(ctx, fy.ID, CalculateOptions{}, generic.SystemActor)
		if err != nil {
			log.ErrorContext(ctx, "scheduled recalculation failed",
				slog.String("financial_year_id", string(fy.ID)), slog.Any("error", err))
			out.Error = err.Error()
			report.Failed++
		} else {
			out.ViewOnly = res.Summary.ViewOnly
			out.Processed = res.Summary.ProcessedInvestors
			report.Recalculated++
		}
		report.Results = append(report.Results, out)
	}
	return report, nil
}

func succeeded(dists []Distribution, results []RolloverOutcome) []Distribution {
	ok := make(map[DistributionID]bool, len(results))
	for _, r := range results {
		if r.Success {
			ok[r.DistributionID] = true
		}
	}
	out := make([]Distribution, 0, len(ok))
	for _, d := range dists {
		if ok[d.ID] {
			out = append(out, d)
		}
	}
	return out
}

func rolloverAmounts(results []RolloverOutcome) (decimal.Decimal, map[InvestorID]decimal.Decimal) {
	total := decimal.Zero
	per := make(map[InvestorID]decimal.Decimal, len(results))
	for _, r := range results {
		if !r.Success {
			continue
		}
		total = total.Add(r.RolloverAmount)
		per[r.InvestorID] = r.RolloverAmount
	}
	return total, per
}
