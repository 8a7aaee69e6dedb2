/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the profit domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

CONVENTIONS:
  - camelCase JSON keys
  - Money, rates and percentages are decimal strings ("1250.500")
  - Calendar dates are YYYY-MM-DD, timestamps RFC3339
  - Patch requests use pointers; an omitted field is left unchanged

VALIDATION:
  Parsing (dates, currencies) happens in the to*Input helpers below;
  business validation stays in the profit package.

SEE ALSO:
  - handlers.go: Uses these types
  - profit/types.go: domain model
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Abd-elrahmann/inestors-backend/fx"
	"github.com/Abd-elrahmann/inestors-backend/generic"
	"github.com/Abd-elrahmann/inestors-backend/notify"
	"github.com/Abd-elrahmann/inestors-backend/profit"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// INVESTORS
// =============================================================================

type InvestorDTO struct {
	ID                 string          `json:"id"`
	FullName           string          `json:"fullName"`
	NationalID         string          `json:"nationalId"`
	Phone              string          `json:"phone,omitempty"`
	Email              string          `json:"email,omitempty"`
	ContributedCapital decimal.Decimal `json:"contributedCapital"`
	Currency           string          `json:"currency"`
	JoinDate           string          `json:"joinDate"`
	IsActive           bool            `json:"isActive"`
	SharePercentage    decimal.Decimal `json:"sharePercentage"`
	CreatedAt          string          `json:"createdAt,omitempty"`
	UpdatedAt          string          `json:"updatedAt,omitempty"`
}

type CreateInvestorRequest struct {
	FullName           string          `json:"fullName"`
	NationalID         string          `json:"nationalId"`
	Phone              string          `json:"phone"`
	Email              string          `json:"email"`
	ContributedCapital decimal.Decimal `json:"contributedCapital"`
	Currency           string          `json:"currency"`
	JoinDate           string          `json:"joinDate"`
}

type UpdateInvestorRequest struct {
	FullName           *string          `json:"fullName"`
	Phone              *string          `json:"phone"`
	Email              *string          `json:"email"`
	ContributedCapital *decimal.Decimal `json:"contributedCapital"`
	Currency           *string          `json:"currency"`
	JoinDate           *string          `json:"joinDate"`
	IsActive           *bool            `json:"isActive"`
}

type RemovalDTO struct {
	InvestorID           string `json:"investorId"`
	Deactivated          bool   `json:"deactivated"`
	Deleted              bool   `json:"deleted"`
	DeletedTransactions  int    `json:"deletedTransactions"`
	DeletedDistributions int    `json:"deletedDistributions"`
}

type BalanceDTO struct {
	InvestorID         string          `json:"investorId"`
	Currency           string          `json:"currency"`
	ContributedCapital decimal.Decimal `json:"contributedCapital"`
	Deposits           decimal.Decimal `json:"deposits"`
	Withdrawals        decimal.Decimal `json:"withdrawals"`
	Profits            decimal.Decimal `json:"profits"`
	Fees               decimal.Decimal `json:"fees"`
	Transfers          decimal.Decimal `json:"transfers"`
	CurrentBalance     decimal.Decimal `json:"currentBalance"`
}

func toInvestorDTO(inv profit.Investor) InvestorDTO {
	return InvestorDTO{
		ID:                 string(inv.ID),
		FullName:           inv.FullName,
		NationalID:         inv.NationalID,
		Phone:              inv.Phone,
		Email:              inv.Email,
		ContributedCapital: inv.ContributedCapital,
		Currency:           inv.Currency.String(),
		JoinDate:           formatDate(inv.JoinDate),
		IsActive:           inv.Active,
		SharePercentage:    inv.SharePercentage,
		CreatedAt:          formatTimestamp(inv.CreatedAt),
		UpdatedAt:          formatTimestamp(inv.UpdatedAt),
	}
}

func toInvestorDTOs(list []profit.Investor) []InvestorDTO {
	out := make([]InvestorDTO, len(list))
	for i, inv := range list {
		out[i] = toInvestorDTO(inv)
	}
	return out
}

func (req CreateInvestorRequest) toInput() (profit.InvestorInput, error) {
	in := profit.InvestorInput{
		FullName:           req.FullName,
		NationalID:         req.NationalID,
		Phone:              req.Phone,
		Email:              req.Email,
		ContributedCapital: req.ContributedCapital,
		Currency:           generic.CurrencyIQD,
	}
	if req.Currency != "" {
		c, err := generic.ParseCurrency(req.Currency)
		if err != nil {
			return in, err
		}
		in.Currency = c
	}
	if req.JoinDate == "" {
		return in, generic.NewValidationError("joinDate", "is required")
	}
	d, err := parseDateField("joinDate", req.JoinDate)
	if err != nil {
		return in, err
	}
	in.JoinDate = d
	return in, nil
}

func (req UpdateInvestorRequest) toPatch() (profit.InvestorPatch, error) {
	p := profit.InvestorPatch{
		FullName:           req.FullName,
		Phone:              req.Phone,
		Email:              req.Email,
		ContributedCapital: req.ContributedCapital,
		Active:             req.IsActive,
	}
	if req.Currency != nil {
		c, err := generic.ParseCurrency(*req.Currency)
		if err != nil {
			return p, err
		}
		p.Currency = &c
	}
	if req.JoinDate != nil {
		d, err := parseDateField("joinDate", *req.JoinDate)
		if err != nil {
			return p, err
		}
		p.JoinDate = &d
	}
	return p, nil
}

func toBalanceDTO(b *profit.Balance) BalanceDTO {
	return BalanceDTO{
		InvestorID:         string(b.InvestorID),
		Currency:           b.Currency.String(),
		ContributedCapital: b.ContributedCapital,
		Deposits:           b.Deposits,
		Withdrawals:        b.Withdrawals,
		Profits:            b.Profits,
		Fees:               b.Fees,
		Transfers:          b.Transfers,
		CurrentBalance:     b.Current,
	}
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

type TransactionDTO struct {
	ID              string          `json:"id"`
	InvestorID      string          `json:"investorId"`
	Type            string          `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	TransactionDate string          `json:"transactionDate"`
	Reference       string          `json:"reference,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	ReceiptNumber   string          `json:"receiptNumber"`
	ProfitYear      int             `json:"profitYear,omitempty"`
	IsContribution  bool            `json:"isContribution"`
	CreatedBy       string          `json:"createdBy,omitempty"`
	CreatedAt       string          `json:"createdAt,omitempty"`
}

type CreateTransactionRequest struct {
	InvestorID      string          `json:"investorId"`
	Type            string          `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	TransactionDate string          `json:"transactionDate"`
	Reference       string          `json:"reference"`
	Notes           string          `json:"notes"`
	ProfitYear      int             `json:"profitYear"`
	IsContribution  bool            `json:"isContribution"`
}

type UpdateTransactionRequest struct {
	Reference *string `json:"reference"`
	Notes     *string `json:"notes"`
}

func toTransactionDTO(tx profit.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:              string(tx.ID),
		InvestorID:      string(tx.InvestorID),
		Type:            string(tx.Type),
		Amount:          tx.Amount,
		Currency:        tx.Currency.String(),
		TransactionDate: formatTimestamp(tx.TransactionDate),
		Reference:       tx.Reference,
		Notes:           tx.Notes,
		ReceiptNumber:   tx.ReceiptNumber,
		ProfitYear:      tx.ProfitYear,
		IsContribution:  tx.IsContribution,
		CreatedBy:       tx.CreatedBy,
		CreatedAt:       formatTimestamp(tx.CreatedAt),
	}
}

func toTransactionDTOs(list []profit.Transaction) []TransactionDTO {
	out := make([]TransactionDTO, len(list))
	for i, tx := range list {
		out[i] = toTransactionDTO(tx)
	}
	return out
}

func (req CreateTransactionRequest) toInput() (profit.TransactionInput, error) {
	in := profit.TransactionInput{
		InvestorID:     profit.InvestorID(req.InvestorID),
		Type:           profit.TransactionType(req.Type),
		Amount:         req.Amount,
		Reference:      req.Reference,
		Notes:          req.Notes,
		ProfitYear:     req.ProfitYear,
		IsContribution: req.IsContribution,
		Currency:       generic.CurrencyIQD,
	}
	if req.Currency != "" {
		c, err := generic.ParseCurrency(req.Currency)
		if err != nil {
			return in, err
		}
		in.Currency = c
	}
	if req.TransactionDate != "" {
		d, err := parseTimestampField("transactionDate", req.TransactionDate)
		if err != nil {
			return in, err
		}
		in.TransactionDate = d
	}
	return in, nil
}

// =============================================================================
// FINANCIAL YEARS
// =============================================================================

type RolloverSettingsDTO struct {
	Enabled            bool            `json:"enabled"`
	Percentage         decimal.Decimal `json:"percentage"`
	AutoRollover       bool            `json:"autoRollover"`
	AutoRolloverDate   string          `json:"autoRolloverDate,omitempty"`
	AutoRolloverStatus string          `json:"autoRolloverStatus"`
}

type FinancialYearDTO struct {
	ID              string              `json:"id"`
	Year            int                 `json:"year"`
	PeriodName      string              `json:"periodName,omitempty"`
	StartDate       string              `json:"startDate"`
	EndDate         string              `json:"endDate"`
	TotalDays       int                 `json:"totalDays"`
	TotalProfit     decimal.Decimal     `json:"totalProfit"`
	Currency        string              `json:"currency"`
	DailyProfitRate decimal.Decimal     `json:"dailyProfitRate"`
	Status          string              `json:"status"`
	Rollover        RolloverSettingsDTO `json:"rolloverSettings"`
	Notes           string              `json:"notes,omitempty"`
	CreatedBy       string              `json:"createdBy,omitempty"`
	ApprovedBy      string              `json:"approvedBy,omitempty"`
	ApprovedAt      string              `json:"approvedAt,omitempty"`
	DistributedBy   string              `json:"distributedBy,omitempty"`
	DistributedAt   string              `json:"distributedAt,omitempty"`
	CreatedAt       string              `json:"createdAt,omitempty"`
	UpdatedAt       string              `json:"updatedAt,omitempty"`
}

type CreateFinancialYearRequest struct {
	Year               int              `json:"year"`
	PeriodName         string           `json:"periodName"`
	StartDate          string           `json:"startDate"`
	EndDate            string           `json:"endDate"`
	TotalProfit        decimal.Decimal  `json:"totalProfit"`
	Currency           string           `json:"currency"`
	Notes              string           `json:"notes"`
	RolloverPercentage *decimal.Decimal `json:"rolloverPercentage"`
	AutoRollover       bool             `json:"autoRollover"`
	AutoRolloverDate   *string          `json:"autoRolloverDate"`
}

type UpdateFinancialYearRequest struct {
	Year        *int             `json:"year"`
	PeriodName  *string          `json:"periodName"`
	StartDate   *string          `json:"startDate"`
	EndDate     *string          `json:"endDate"`
	TotalProfit *decimal.Decimal `json:"totalProfit"`
	Currency    *string          `json:"currency"`
	Notes       *string          `json:"notes"`
}

type AutoRolloverRequest struct {
	Enabled    bool             `json:"enabled"`
	Percentage *decimal.Decimal `json:"percentage"`
	Date       *string          `json:"date"`
}

type CalculateRequest struct {
	ForceFullPeriod bool `json:"forceFullPeriod"`
}

type PercentageRequest struct {
	Percentage *decimal.Decimal `json:"percentage"`
}

func toFinancialYearDTO(fy profit.FinancialYear) FinancialYearDTO {
	return FinancialYearDTO{
		ID:              string(fy.ID),
		Year:            fy.Year,
		PeriodName:      fy.PeriodName,
		StartDate:       formatDate(fy.StartDate),
		EndDate:         formatDate(fy.EndDate),
		TotalDays:       fy.TotalDays,
		TotalProfit:     fy.TotalProfit,
		Currency:        fy.Currency.String(),
		DailyProfitRate: fy.DailyProfitRate,
		Status:          string(fy.Status),
		Rollover: RolloverSettingsDTO{
			Enabled:            fy.Rollover.Enabled,
			Percentage:         fy.Rollover.Percentage,
			AutoRollover:       fy.Rollover.AutoRollover,
			AutoRolloverDate:   formatDatePtr(fy.Rollover.AutoRolloverDate),
			AutoRolloverStatus: string(fy.Rollover.AutoRolloverStatus),
		},
		Notes:         fy.Notes,
		CreatedBy:     fy.CreatedBy,
		ApprovedBy:    fy.ApprovedBy,
		ApprovedAt:    formatTimestampPtr(fy.ApprovedAt),
		DistributedBy: fy.DistributedBy,
		DistributedAt: formatTimestampPtr(fy.DistributedAt),
		CreatedAt:     formatTimestamp(fy.CreatedAt),
		UpdatedAt:     formatTimestamp(fy.UpdatedAt),
	}
}

func toFinancialYearDTOs(list []profit.FinancialYear) []FinancialYearDTO {
	out := make([]FinancialYearDTO, len(list))
	for i, fy := range list {
		out[i] = toFinancialYearDTO(fy)
	}
	return out
}

func (req CreateFinancialYearRequest) toInput() (profit.FinancialYearInput, error) {
	in := profit.FinancialYearInput{
		Year:               req.Year,
		PeriodName:         req.PeriodName,
		TotalProfit:        req.TotalProfit,
		Currency:           generic.CurrencyIQD,
		Notes:              req.Notes,
		RolloverPercentage: req.RolloverPercentage,
		AutoRollover:       req.AutoRollover,
	}
	var err error
	if req.Currency != "" {
		if in.Currency, err = generic.ParseCurrency(req.Currency); err != nil {
			return in, err
		}
	}
	if in.StartDate, err = parseDateField("startDate", req.StartDate); err != nil {
		return in, err
	}
	if in.EndDate, err = parseDateField("endDate", req.EndDate); err != nil {
		return in, err
	}
	if in.AutoRolloverDate, err = parseOptionalDate("autoRolloverDate", req.AutoRolloverDate); err != nil {
		return in, err
	}
	return in, nil
}

func (req UpdateFinancialYearRequest) toPatch() (profit.FinancialYearPatch, error) {
	p := profit.FinancialYearPatch{
		Year:        req.Year,
		PeriodName:  req.PeriodName,
		TotalProfit: req.TotalProfit,
		Notes:       req.Notes,
	}
	if req.Currency != nil {
		c, err := generic.ParseCurrency(*req.Currency)
		if err != nil {
			return p, err
		}
		p.Currency = &c
	}
	var err error
	if p.StartDate, err = parseOptionalDate("startDate", req.StartDate); err != nil {
		return p, err
	}
	if p.EndDate, err = parseOptionalDate("endDate", req.EndDate); err != nil {
		return p, err
	}
	return p, nil
}

func (req AutoRolloverRequest) toInput() (profit.AutoRolloverInput, error) {
	date, err := parseOptionalDate("date", req.Date)
	if err != nil {
		return profit.AutoRolloverInput{}, err
	}
	return profit.AutoRolloverInput{Enabled: req.Enabled, Percentage: req.Percentage, Date: date}, nil
}

// percentageOr100 defaults an omitted percentage to a full rollover.
func (req PercentageRequest) percentageOr100() decimal.Decimal {
	if req.Percentage == nil {
		return decimal.NewFromInt(100)
	}
	return *req.Percentage
}

// =============================================================================
// DISTRIBUTIONS
// =============================================================================

type CalculationDTO struct {
	InvestmentAmount decimal.Decimal `json:"investmentAmount"`
	TotalDays        int             `json:"totalDays"`
	DailyProfitRate  decimal.Decimal `json:"dailyProfitRate"`
	CalculatedProfit decimal.Decimal `json:"calculatedProfit"`
}

type RolloverInfoDTO struct {
	IsRolledOver bool            `json:"isRolledOver"`
	Amount       decimal.Decimal `json:"rolloverAmount"`
	Date         string          `json:"rolloverDate,omitempty"`
}

type DistributionDTO struct {
	ID               string          `json:"id"`
	FinancialYearID  string          `json:"financialYearId"`
	InvestorID       string          `json:"investorId"`
	StartDate        string          `json:"startDate"`
	Calculation      CalculationDTO  `json:"calculation"`
	Currency         string          `json:"currency"`
	Status           string          `json:"status"`
	Rollover         RolloverInfoDTO `json:"rollover"`
	DistributionDate string          `json:"distributionDate,omitempty"`
	CreatedBy        string          `json:"createdBy,omitempty"`
	ApprovedBy       string          `json:"approvedBy,omitempty"`
	DistributedBy    string          `json:"distributedBy,omitempty"`
	CreatedAt        string          `json:"createdAt,omitempty"`
	UpdatedAt        string          `json:"updatedAt,omitempty"`
}

type CalculationSummaryDTO struct {
	ViewOnly              bool            `json:"viewOnly"`
	NewInvestors          int             `json:"newInvestors"`
	PendingInvestors      int             `json:"pendingInvestors"`
	LockedInvestors       int             `json:"lockedInvestors"`
	ProcessedInvestors    int             `json:"processedInvestors"`
	TotalInvestedCapital  decimal.Decimal `json:"totalInvestedCapital"`
	TotalCalculatedProfit decimal.Decimal `json:"totalCalculatedProfit"`
	NominalProfit         decimal.Decimal `json:"nominalProfit"`
	ProfitDifference      decimal.Decimal `json:"profitDifference"`
	WithinTolerance       bool            `json:"withinTolerance"`
	DailyProfitRate       decimal.Decimal `json:"dailyProfitRate"`
	ElapsedDays           int             `json:"elapsedDays"`
	TotalDays             int             `json:"totalDays"`
	Mode                  string          `json:"calculationMode"`
	Formula               string          `json:"formula"`
	Message               string          `json:"message,omitempty"`
}

type CalculationResultDTO struct {
	FinancialYear FinancialYearDTO      `json:"financialYear"`
	Distributions []DistributionDTO     `json:"distributions"`
	Summary       CalculationSummaryDTO `json:"summary"`
}

type DistributionListSummaryDTO struct {
	TotalInvestors        int             `json:"totalInvestors"`
	TotalCalculatedProfit decimal.Decimal `json:"totalCalculatedProfit"`
	TotalDays             int             `json:"totalDays"`
	AverageProfit         decimal.Decimal `json:"averageProfit"`
	DailyProfitRate       decimal.Decimal `json:"dailyProfitRate"`
}

type DistributionListDTO struct {
	FinancialYear FinancialYearDTO           `json:"financialYear"`
	Distributions []DistributionDTO          `json:"distributions"`
	Summary       DistributionListSummaryDTO `json:"summary"`
}

type StatusAggregateDTO struct {
	Count       int             `json:"count"`
	TotalProfit decimal.Decimal `json:"totalProfit"`
	TotalDays   int             `json:"totalDays"`
	AvgProfit   decimal.Decimal `json:"avgProfit"`
}

type OverallAggregateDTO struct {
	Investors         int             `json:"investors"`
	DistributedProfit decimal.Decimal `json:"distributedProfit"`
	MaxProfit         decimal.Decimal `json:"maxProfit"`
	MinProfit         decimal.Decimal `json:"minProfit"`
	AvgProfit         decimal.Decimal `json:"avgProfit"`
}

type YearSummaryDTO struct {
	FinancialYear    FinancialYearDTO              `json:"financialYear"`
	ByStatus         map[string]StatusAggregateDTO `json:"byStatus"`
	Overall          OverallAggregateDTO           `json:"overall"`
	ProfitEfficiency decimal.Decimal               `json:"profitEfficiency"`
}

type ApprovalResultDTO struct {
	ApprovedCount int              `json:"approvedCount"`
	FinancialYear FinancialYearDTO `json:"financialYear"`
}

type DistributeResultDTO struct {
	DistributedCount int              `json:"distributedCount"`
	FinancialYear    FinancialYearDTO `json:"financialYear"`
}

func toDistributionDTO(d profit.Distribution) DistributionDTO {
	return DistributionDTO{
		ID:              string(d.ID),
		FinancialYearID: string(d.FinancialYearID),
		InvestorID:      string(d.InvestorID),
		StartDate:       formatDate(d.StartDate),
		Calculation: CalculationDTO{
			InvestmentAmount: d.Calculation.InvestmentAmount,
			TotalDays:        d.Calculation.TotalDays,
			DailyProfitRate:  d.Calculation.DailyProfitRate,
			CalculatedProfit: d.Calculation.CalculatedProfit,
		},
		Currency: d.Currency.String(),
		Status:   string(d.Status),
		Rollover: RolloverInfoDTO{
			IsRolledOver: d.Rollover.IsRolledOver,
			Amount:       d.Rollover.Amount,
			Date:         formatTimestampPtr(d.Rollover.Date),
		},
		DistributionDate: formatTimestampPtr(d.DistributionDate),
		CreatedBy:        d.CreatedBy,
		ApprovedBy:       d.ApprovedBy,
		DistributedBy:    d.DistributedBy,
		CreatedAt:        formatTimestamp(d.CreatedAt),
		UpdatedAt:        formatTimestamp(d.UpdatedAt),
	}
}

func toDistributionDTOs(list []profit.Distribution) []DistributionDTO {
	out := make([]DistributionDTO, len(list))
	for i, d := range list {
		out[i] = toDistributionDTO(d)
	}
	return out
}

func toCalculationResultDTO(res *profit.CalculationResult) CalculationResultDTO {
	s := res.Summary
	return CalculationResultDTO{
		FinancialYear: toFinancialYearDTO(res.Year),
		Distributions: toDistributionDTOs(res.Distributions),
		Summary: CalculationSummaryDTO{
			ViewOnly:              s.ViewOnly,
			NewInvestors:          s.NewInvestors,
			PendingInvestors:      s.PendingInvestors,
			LockedInvestors:       s.LockedInvestors,
			ProcessedInvestors:    s.ProcessedInvestors,
			TotalInvestedCapital:  s.TotalInvestedCapital,
			TotalCalculatedProfit: s.TotalCalculatedProfit,
			NominalProfit:         s.NominalProfit,
			ProfitDifference:      s.ProfitDifference,
			WithinTolerance:       s.WithinTolerance,
			DailyProfitRate:       s.DailyProfitRate,
			ElapsedDays:           s.ElapsedDays,
			TotalDays:             s.TotalDays,
			Mode:                  string(s.Mode),
			Formula:               s.Formula,
			Message:               s.Message,
		},
	}
}

func toDistributionListDTO(list *profit.DistributionList) DistributionListDTO {
	return DistributionListDTO{
		FinancialYear: toFinancialYearDTO(list.Year),
		Distributions: toDistributionDTOs(list.Distributions),
		Summary: DistributionListSummaryDTO{
			TotalInvestors:        list.Summary.TotalInvestors,
			TotalCalculatedProfit: list.Summary.TotalCalculatedProfit,
			TotalDays:             list.Summary.TotalDays,
			AverageProfit:         list.Summary.AverageProfit,
			DailyProfitRate:       list.Summary.DailyProfitRate,
		},
	}
}

func toYearSummaryDTO(s *profit.YearSummary) YearSummaryDTO {
	byStatus := make(map[string]StatusAggregateDTO, len(s.ByStatus))
	for status, agg := range s.ByStatus {
		byStatus[string(status)] = StatusAggregateDTO{
			Count:       agg.Count,
			TotalProfit: agg.TotalProfit,
			TotalDays:   agg.TotalDays,
			AvgProfit:   agg.AvgProfit,
		}
	}
	return YearSummaryDTO{
		FinancialYear: toFinancialYearDTO(s.Year),
		ByStatus:      byStatus,
		Overall: OverallAggregateDTO{
			Investors:         s.Overall.Investors,
			DistributedProfit: s.Overall.DistributedProfit,
			MaxProfit:         s.Overall.MaxProfit,
			MinProfit:         s.Overall.MinProfit,
			AvgProfit:         s.Overall.AvgProfit,
		},
		ProfitEfficiency: s.ProfitEfficiency,
	}
}

// =============================================================================
// ROLLOVER
// =============================================================================

type RolloverOutcomeDTO struct {
	DistributionID string          `json:"distributionId"`
	InvestorID     string          `json:"investorId"`
	OriginalProfit decimal.Decimal `json:"originalProfit"`
	RolloverAmount decimal.Decimal `json:"rolloverAmount"`
	TransactionID  string          `json:"transactionId,omitempty"`
	Success        bool            `json:"success"`
	Error          string          `json:"error,omitempty"`
}

type RolloverBatchDTO struct {
	FinancialYear FinancialYearDTO     `json:"financialYear"`
	Percentage    decimal.Decimal      `json:"rolloverPercentage"`
	Results       []RolloverOutcomeDTO `json:"results"`
	Succeeded     int                  `json:"succeeded"`
	Failed        int                  `json:"failed"`
}

type AutoRolloverYearDTO struct {
	FinancialYearID string               `json:"financialYearId"`
	Year            int                  `json:"year"`
	Status          string               `json:"status"`
	Results         []RolloverOutcomeDTO `json:"results"`
	Error           string               `json:"error,omitempty"`
}

type AutoRolloverReportDTO struct {
	ProcessedYears int                   `json:"processedYears"`
	Results        []AutoRolloverYearDTO `json:"results"`
}

func toRolloverOutcomeDTO(o profit.RolloverOutcome) RolloverOutcomeDTO {
	return RolloverOutcomeDTO{
		DistributionID: string(o.DistributionID),
		InvestorID:     string(o.InvestorID),
		OriginalProfit: o.OriginalProfit,
		RolloverAmount: o.RolloverAmount,
		TransactionID:  string(o.TransactionID),
		Success:        o.Success,
		Error:          o.Error,
	}
}

func toRolloverOutcomeDTOs(list []profit.RolloverOutcome) []RolloverOutcomeDTO {
	out := make([]RolloverOutcomeDTO, len(list))
	for i, o := range list {
		out[i] = toRolloverOutcomeDTO(o)
	}
	return out
}

func toRolloverBatchDTO(res *profit.RolloverBatchResult) RolloverBatchDTO {
	return RolloverBatchDTO{
		FinancialYear: toFinancialYearDTO(res.Year),
		Percentage:    res.Percentage,
		Results:       toRolloverOutcomeDTOs(res.Results),
		Succeeded:     res.Succeeded,
		Failed:        res.Failed,
	}
}

func toAutoRolloverReportDTO(rep *profit.AutoRolloverReport) AutoRolloverReportDTO {
	out := AutoRolloverReportDTO{
		ProcessedYears: rep.ProcessedYears,
		Results:        make([]AutoRolloverYearDTO, len(rep.Results)),
	}
	for i, r := range rep.Results {
		out.Results[i] = AutoRolloverYearDTO{
			FinancialYearID: string(r.YearID),
			Year:            r.Year,
			Status:          string(r.Status),
			Results:         toRolloverOutcomeDTOs(r.Results),
			Error:           r.Error,
		}
	}
	return out
}

// =============================================================================
// NOTIFICATIONS, FX, JOBS
// =============================================================================

type NotificationDTO struct {
	ID        string      `json:"id"`
	Recipient string      `json:"recipient"`
	Type      string      `json:"type"`
	Priority  string      `json:"priority"`
	Title     string      `json:"title"`
	Message   string      `json:"message"`
	Data      notify.Data `json:"data"`
	IsRead    bool        `json:"isRead"`
	CreatedAt string      `json:"createdAt"`
	ExpiresAt string      `json:"expiresAt"`
}

func toNotificationDTOs(list []notify.Notification) []NotificationDTO {
	out := make([]NotificationDTO, len(list))
	for i, n := range list {
		out[i] = NotificationDTO{
			ID:        n.ID,
			Recipient: n.Recipient,
			Type:      string(n.Event),
			Priority:  string(n.Priority),
			Title:     n.Title,
			Message:   n.Message,
			Data:      n.Data,
			IsRead:    n.Read,
			CreatedAt: formatTimestamp(n.CreatedAt),
			ExpiresAt: formatTimestamp(n.ExpiresAt),
		}
	}
	return out
}

type RateDTO struct {
	From      string          `json:"from"`
	To        string          `json:"to"`
	Rate      decimal.Decimal `json:"rate"`
	Source    string          `json:"source"`
	FetchedAt string          `json:"fetchedAt,omitempty"`
}

type ConversionDTO struct {
	Amount    decimal.Decimal `json:"amount"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Converted decimal.Decimal `json:"convertedAmount"`
	Rate      RateDTO         `json:"rate"`
}

func toRateDTO(r fx.Rate) RateDTO {
	return RateDTO{
		From:      r.From.String(),
		To:        r.To.String(),
		Rate:      r.Value,
		Source:    string(r.Source),
		FetchedAt: formatTimestamp(r.FetchedAt),
	}
}

func toConversionDTO(c fx.Conversion) ConversionDTO {
	return ConversionDTO{
		Amount:    c.Amount,
		From:      c.From.String(),
		To:        c.To.String(),
		Converted: c.Converted,
		Rate:      toRateDTO(c.Rate),
	}
}

type JobStatusDTO struct {
	Name         string `json:"name"`
	Interval     string `json:"interval"`
	Started      bool   `json:"started"`
	Running      bool   `json:"running"`
	Runs         int    `json:"runs"`
	Skipped      int    `json:"skipped"`
	LastRun      string `json:"lastRun,omitempty"`
	LastDuration string `json:"lastDuration,omitempty"`
	LastError    string `json:"lastError,omitempty"`
}

func toJobStatusDTOs(list []JobStatus) []JobStatusDTO {
	out := make([]JobStatusDTO, len(list))
	for i, j := range list {
		out[i] = JobStatusDTO{
			Name:      j.Name,
			Interval:  j.Interval.String(),
			Started:   j.Started,
			Running:   j.Running,
			Runs:      j.Runs,
			Skipped:   j.Skipped,
			LastRun:   formatTimestampPtr(j.LastRun),
			LastError: j.LastError,
		}
		if j.LastRun != nil {
			out[i].LastDuration = j.LastDuration.String()
		}
	}
	return out
}

// =============================================================================
// FORMATTING
// =============================================================================

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(generic.DateLayout)
}

func formatDatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatDate(*t)
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimestampPtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTimestamp(*t)
}

func parseDateField(field, s string) (time.Time, error) {
	d, err := generic.ParseDate(s)
	if err != nil {
		return time.Time{}, generic.NewValidationError(field, "use YYYY-MM-DD or RFC3339")
	}
	return d, nil
}

func parseOptionalDate(field string, s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	d, err := parseDateField(field, *s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// parseTimestampField keeps the time of day, unlike parseDateField.
func parseTimestampField(field, s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return parseDateField(field, s)
}
