/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate an empty store with realistic
	data for demos and frontend development. Each scenario creates investors,
	a financial year and ledger entries, then drives the distribution
	lifecycle to an interesting state.

AVAILABLE SCENARIOS:

	worked-example:  FY2025, 60,000 USD across three investors, calculated
	approved-year:   FY2024 in IQD, approved and waiting for rollover
	ledger-activity: one investor with deposits, withdrawals and fees

HOW SCENARIOS WORK:
 1. Refuse to load unless the store holds no investors and no years
 2. Create investors (capital is their initial contribution)
 3. Create the financial year
 4. Add ledger transactions
 5. Optionally calculate and approve distributions

USAGE VIA API:

	GET  /api/admin/scenarios
	POST /api/admin/scenarios/load
	{"scenarioId": "worked-example"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx, actor)
 3. Add case to LoadScenario handler

SEE ALSO:
  - handlers.go: shared response helpers
  - profit/service.go: the operations each loader drives
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Abd-elrahmann/inestors-backend/generic"
	"github.com/Abd-elrahmann/inestors-backend/profit"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenarioId"`
}

type LoadScenarioResponse struct {
	Scenario  string   `json:"scenario"`
	Investors []string `json:"investors"`
	YearID    string   `json:"financialYearId,omitempty"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "worked-example",
		Name:        "Worked Example",
		Description: "FY2025 with 60,000 USD profit split by capital across three investors",
	},
	{
		ID:          "approved-year",
		Name:        "Approved Year",
		Description: "FY2024 in IQD with approved distributions ready for rollover",
	},
	{
		ID:          "ledger-activity",
		Name:        "Ledger Activity",
		Description: "Single investor with deposits, a withdrawal and a fee",
	},
}

// scenarioLoad collects what a loader created.
type scenarioLoad struct {
	investors []profit.InvestorID
	year      profit.YearID
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario loads a predefined scenario into an empty store.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	if err := h.requireEmptyStore(ctx); err != nil {
		writeServiceError(w, "Cannot load scenario", err)
		return
	}

	actor := actorFrom(r)
	var (
		load scenarioLoad
		err  error
	)
	switch req.ScenarioID {
	case "worked-example":
		load, err = h.loadWorkedExampleScenario(ctx, actor)
	case "approved-year":
		load, err = h.loadApprovedYearScenario(ctx, actor)
	case "ledger-activity":
		load, err = h.loadLedgerActivityScenario(ctx, actor)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}
	if err != nil {
		writeServiceError(w, fmt.Sprintf("Failed to load scenario %s", req.ScenarioID), err)
		return
	}

	h.log.InfoContext(ctx, "scenario loaded",
		"scenario", req.ScenarioID,
		"investors", len(load.investors),
		"actor", actor.String())

	resp := LoadScenarioResponse{Scenario: req.ScenarioID, YearID: string(load.year)}
	for _, id := range load.investors {
		resp.Investors = append(resp.Investors, string(id))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) requireEmptyStore(ctx context.Context) error {
	invs, err := h.svc.ListInvestors(ctx, profit.InvestorFilter{IncludeInactive: true})
	if err != nil {
		return err
	}
	years, err := h.svc.ListFinancialYears(ctx, profit.YearFilter{})
	if err != nil {
		return err
	}
	if len(invs) > 0 || len(years) > 0 {
		return generic.NewInvalidState("load scenario", "", "store already holds data")
	}
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

type seedInvestor struct {
	name, nationalID string
	capital          int64
	joined           time.Time
}

func (h *Handler) seedInvestors(ctx context.Context, cur generic.Currency, seeds []seedInvestor, actor generic.Actor) ([]profit.InvestorID, error) {
	ids := make([]profit.InvestorID, 0, len(seeds))
	for _, s := range seeds {
		inv, err := h.svc.CreateInvestor(ctx, profit.InvestorInput{
			FullName:           s.name,
			NationalID:         s.nationalID,
			ContributedCapital: decimal.NewFromInt(s.capital),
			Currency:           cur,
			JoinDate:           s.joined,
		}, actor)
		if err != nil {
			return nil, fmt.Errorf("create investor %s: %w", s.name, err)
		}
		ids = append(ids, inv.ID)
	}
	return ids, nil
}

func (h *Handler) loadWorkedExampleScenario(ctx context.Context, actor generic.Actor) (scenarioLoad, error) {
	ids, err := h.seedInvestors(ctx, generic.CurrencyUSD, []seedInvestor{
		{"Amal Hassan", "WE-001", 100000, generic.NewDate(2025, time.January, 1)},
		{"Bilal Karim", "WE-002", 200000, generic.NewDate(2025, time.January, 15)},
		{"Dina Saleh", "WE-003", 300000, generic.NewDate(2025, time.February, 1)},
	}, actor)
	if err != nil {
		return scenarioLoad{}, err
	}

	fy, err := h.svc.CreateFinancialYear(ctx, profit.FinancialYearInput{
		Year:        2025,
		PeriodName:  "FY2025",
		StartDate:   generic.NewDate(2025, time.January, 1),
		EndDate:     generic.NewDate(2025, time.December, 31),
		TotalProfit: decimal.NewFromInt(60000),
		Currency:    generic.CurrencyUSD,
	}, actor)
	if err != nil {
		return scenarioLoad{}, err
	}

	if _, err := h.svc.CalculateDistributions(ctx, fy.ID, profit.CalculateOptions{ForceFullPeriod: true}, actor); err != nil {
		return scenarioLoad{}, err
	}
	return scenarioLoad{investors: ids, year: fy.ID}, nil
}

func (h *Handler) loadApprovedYearScenario(ctx context.Context, actor generic.Actor) (scenarioLoad, error) {
	ids, err := h.seedInvestors(ctx, generic.CurrencyIQD, []seedInvestor{
		{"Hadi Jawad", "AY-001", 150000000, generic.NewDate(2024, time.January, 1)},
		{"Rana Aziz", "AY-002", 50000000, generic.NewDate(2024, time.July, 1)},
	}, actor)
	if err != nil {
		return scenarioLoad{}, err
	}

	pct := decimal.NewFromInt(50)
	fy, err := h.svc.CreateFinancialYear(ctx, profit.FinancialYearInput{
		Year:               2024,
		PeriodName:         "FY2024",
		StartDate:          generic.NewDate(2024, time.January, 1),
		EndDate:            generic.NewDate(2024, time.December, 31),
		TotalProfit:        decimal.NewFromInt(24000000),
		Currency:           generic.CurrencyIQD,
		RolloverPercentage: &pct,
	}, actor)
	if err != nil {
		return scenarioLoad{}, err
	}

	if _, err := h.svc.CalculateDistributions(ctx, fy.ID, profit.CalculateOptions{}, actor); err != nil {
		return scenarioLoad{}, err
	}
	if _, err := h.svc.ApproveDistributions(ctx, fy.ID, actor); err != nil {
		return scenarioLoad{}, err
	}
	return scenarioLoad{investors: ids, year: fy.ID}, nil
}

func (h *Handler) loadLedgerActivityScenario(ctx context.Context, actor generic.Actor) (scenarioLoad, error) {
	ids, err := h.seedInvestors(ctx, generic.CurrencyIQD, []seedInvestor{
		{"Sara Nouri", "LA-001", 50000000, generic.NewDate(2025, time.March, 1)},
	}, actor)
	if err != nil {
		return scenarioLoad{}, err
	}

	entries := []profit.TransactionInput{
		{Type: profit.TxDeposit, Amount: decimal.NewFromInt(10000000), TransactionDate: generic.NewDate(2025, time.May, 10), Notes: "capital top-up", IsContribution: true},
		{Type: profit.TxDeposit, Amount: decimal.NewFromInt(5000000), TransactionDate: generic.NewDate(2025, time.June, 2), Notes: "cash deposit"},
		{Type: profit.TxWithdrawal, Amount: decimal.NewFromInt(2000000), TransactionDate: generic.NewDate(2025, time.August, 20)},
		{Type: profit.TxFee, Amount: decimal.NewFromInt(250000), TransactionDate: generic.NewDate(2025, time.September, 1), Notes: "custody fee"},
	}
	for _, e := range entries {
		e.InvestorID = ids[0]
		e.Currency = generic.CurrencyIQD
		if _, err := h.svc.CreateTransaction(ctx, e, actor); err != nil {
			return scenarioLoad{}, fmt.Errorf("create %s transaction: %w", e.Type, err)
		}
	}
	return scenarioLoad{investors: ids}, nil
}
