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
// INVESTORS
// =============================================================================
//
// Every capital-affecting mutation ends with RecomputeSharePercentages.
// A failed recompute is logged, not returned: shares are eventually
// consistent and the next mutation repairs them.

type InvestorInput struct {
	FullName           string
	NationalID         string
	Phone              string
	Email              string
	ContributedCapital decimal.Decimal
	Currency           generic.Currency
	JoinDate           time.Time
}

type InvestorPatch struct {
	FullName           *string
	Phone              *string
	Email              *string
	ContributedCapital *decimal.Decimal
	Currency           *generic.Currency
	JoinDate           *time.Time
	Active             *bool
}

type RemovalResult struct {
	InvestorID           InvestorID
	Deactivated          bool
	Deleted              bool
	DeletedTransactions  int
	DeletedDistributions int
}

func validateInvestor(inv Investor) error {
	if strings.TrimSpace(inv.FullName) == "" {
		return generic.NewValidationError("fullName", "is required")
	}
	if strings.TrimSpace(inv.NationalID) == "" {
		return generic.NewValidationError("nationalId", "is required")
	}
	if err := generic.ValidateNonNegative("contributedCapital", inv.ContributedCapital); err != nil {
		return err
	}
	if !inv.Currency.Valid() {
		return generic.NewValidationError("currency", "must be one of IQD, USD")
	}
	if inv.JoinDate.IsZero() {
		return generic.NewValidationError("joinDate", "is required")
	}
	return nil
}

func (s *Service) CreateInvestor(ctx context.Context, in InvestorInput, actor generic.Actor) (Investor, error) {
	now := s.now()
	inv := Investor{
		ID:                 InvestorID(newID()),
		FullName:           strings.TrimSpace(in.FullName),
		NationalID:         strings.TrimSpace(in.NationalID),
		Phone:              in.Phone,
		Email:              strings.ToLower(strings.TrimSpace(in.Email)),
		ContributedCapital: in.ContributedCapital,
		Currency:           in.Currency,
		JoinDate:           generic.DayOf(in.JoinDate),
		Active:             true,
		SharePercentage:    decimal.Zero,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := validateInvestor(inv); err != nil {
		return Investor{}, err
	}
	if err := s.store.CreateInvestor(ctx, inv); err != nil {
		return Investor{}, err
	}

	s.logger("ledger").InfoContext(ctx, "investor created",
		slog.String("investor_id", string(inv.ID)),
		slog.String("capital", inv.ContributedCapital.String()),
		slog.String("actor", actor.String()))
	return s.afterCapitalChange(ctx, inv.ID)
}

func (s *Service) UpdateInvestor(ctx context.Context, id InvestorID, p InvestorPatch) (Investor, error) {
	inv, err := s.store.GetInvestor(ctx, id)
	if err != nil {
		return Investor{}, err
	}
	if p.FullName != nil {
		inv.FullName = strings.TrimSpace(*p.FullName)
	}
	if p.Phone != nil {
		inv.Phone = *p.Phone
	}
	if p.Email != nil {
		inv.Email = strings.ToLower(strings.TrimSpace(*p.Email))
	}
	if p.ContributedCapital != nil {
		inv.ContributedCapital = *p.ContributedCapital
	}
	if p.Currency != nil {
		inv.Currency = *p.Currency
	}
	if p.JoinDate != nil {
		inv.JoinDate = generic.DayOf(*p.JoinDate)
	}
	if p.Active != nil {
		inv.Active = *p.Active
	}
	if err := validateInvestor(inv); err != nil {
		return Investor{}, err
	}
	inv.UpdatedAt = s.now()
	if err := s.store.UpdateInvestor(ctx, inv); err != nil {
		return Investor{}, err
	}
	return s.afterCapitalChange(ctx, id)
}

// RemoveInvestor deactivates by default. With force it deletes the
// investor together with all their transactions and distributions.
func (s *Service) RemoveInvestor(ctx context.Context, id InvestorID, force bool, actor generic.Actor) (*RemovalResult, error) {
	inv, err := s.store.GetInvestor(ctx, id)
	if err != nil {
		return nil, err
	}
	res := &RemovalResult{InvestorID: id}
	log := s.logger("ledger").With(slog.String("investor_id", string(id)), slog.String("actor", actor.String()))

	if !force {
		inv.Active = false
		inv.UpdatedAt = s.now()
		if err := s.store.UpdateInvestor(ctx, inv); err != nil {
			return nil, err
		}
		res.Deactivated = true
		log.InfoContext(ctx, "investor deactivated")
	} else {
		err := s.store.WithTx(ctx, func(st Store) error {
			n, err := st.DeleteTransactionsByInvestor(ctx, id)
			if err != nil {
				return err
			}
			res.DeletedTransactions = n
			n, err = st.DeleteDistributions(ctx, DistributionFilter{InvestorID: id})
			if err != nil {
				return err
			}
			res.DeletedDistributions = n
			return st.DeleteInvestor(ctx, id)
		})
		if err != nil {
			return nil, err
		}
		res.Deleted = true
		log.WarnContext(ctx, "investor deleted with dependent records",
			slog.Int("transactions", res.DeletedTransactions),
			slog.Int("distributions", res.DeletedDistributions))
	}

	s.recomputeShares(ctx)
	return res, nil
}

func (s *Service) GetInvestor(ctx context.Context, id InvestorID) (Investor, error) {
	return s.store.GetInvestor(ctx, id)
}

func (s *Service) ListInvestors(ctx context.Context, f InvestorFilter) ([]Investor, error) {
	return s.store.ListInvestors(ctx, f)
}

// InvestorProfits lists every distribution computed for an investor.
func (s *Service) InvestorProfits(ctx context.Context, id InvestorID) ([]Distribution, error) {
	if _, err := s.store.GetInvestor(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListDistributions(ctx, DistributionFilter{InvestorID: id})
}

type Balance struct {
	InvestorID         InvestorID
	Currency           generic.Currency
	ContributedCapital decimal.Decimal
	Deposits           decimal.Decimal
	Withdrawals        decimal.Decimal
	Profits            decimal.Decimal
	Fees               decimal.Decimal
	Transfers          decimal.Decimal
	Current            decimal.Decimal
}

// InvestorBalance is contributed capital plus non-contribution inflows
// (deposits, profit) minus outflows (withdrawals, fees, transfers).
// Contribution transactions are already reflected in the capital.
func (s *Service) InvestorBalance(ctx context.Context, id InvestorID) (*Balance, error) {
	inv, err := s.store.GetInvestor(ctx, id)
	if err != nil {
		return nil, err
	}
	txs, err := s.store.ListTransactions(ctx, TransactionFilter{InvestorID: id})
	if err != nil {
		return nil, err
	}

	b := &Balance{
		InvestorID:         id,
		Currency:           inv.Currency,
		ContributedCapital: inv.ContributedCapital,
		Deposits:           decimal.Zero,
		Withdrawals:        decimal.Zero,
		Profits:            decimal.Zero,
		Fees:               decimal.Zero,
		Transfers:          decimal.Zero,
	}
	for _, tx := range txs {
		if tx.IsContribution {
			continue
		}
		switch tx.Type {
		case TxDeposit:
			b.Deposits = b.Deposits.Add(tx.Amount)
		case TxWithdrawal:
			b.Withdrawals = b.Withdrawals.Add(tx.Amount)
		case TxProfit:
			b.Profits = b.Profits.Add(tx.Amount)
		case TxFee:
			b.Fees = b.Fees.Add(tx.Amount)
		case TxTransfer:
			b.Transfers = b.Transfers.Add(tx.Amount)
		}
	}
	b.Current = b.ContributedCapital.
		Add(b.Deposits).Add(b.Profits).
		Sub(b.Withdrawals).Sub(b.Fees).Sub(b.Transfers)
	return b, nil
}

func (s *Service) afterCapitalChange(ctx context.Context, id InvestorID) (Investor, error) {
	s.recomputeShares(ctx)
	return s.store.GetInvestor(ctx, id)
}

func (s *Service) recomputeShares(ctx context.Context) {
	if err := s.ledger.RecomputeSharePercentages(ctx); err != nil {
		s.logger("ledger").WarnContext(ctx, "share percentage recompute failed", slog.Any("error", err))
	}
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

type TransactionInput struct {
	InvestorID      InvestorID
	Type            TransactionType
	Amount          decimal.Decimal
	Currency        generic.Currency
	TransactionDate time.Time
	Reference       string
	Notes           string
	ProfitYear      int
	IsContribution  bool
}

// TransactionPatch touches metadata only; amounts are immutable.
type TransactionPatch struct {
	Reference *string
	Notes     *string
}

func validateTransaction(tx Transaction) error {
	if tx.InvestorID == "" {
		return generic.NewValidationError("investorId", "is required")
	}
	if !tx.Type.Valid() {
		return generic.NewValidationError("type", "must be one of deposit, withdrawal, profit, fee, transfer")
	}
	if err := generic.ValidateNonNegative("amount", tx.Amount); err != nil {
		return err
	}
	if !tx.Currency.Valid() {
		return generic.NewValidationError("currency", "must be one of IQD, USD")
	}
	if tx.TransactionDate.IsZero() {
		return generic.NewValidationError("transactionDate", "is required")
	}
	if tx.Type == TxProfit && tx.ProfitYear == 0 {
		return generic.NewValidationError("profitYear", "is required for profit transactions")
	}
	if tx.IsContribution && tx.Type != TxDeposit && tx.Type != TxWithdrawal {
		return generic.NewValidationError("isContribution", "only deposits and withdrawals can be contributions")
	}
	return nil
}

// CreateTransaction books a transaction. Contribution deposits and
// withdrawals also move the investor's contributed capital, atomically
// with the insert; capital never drops below zero.
func (s *Service) CreateTransaction(ctx context.Context, in TransactionInput, actor generic.Actor) (Transaction, error) {
	now := s.now()
	tx := Transaction{
		ID:              TransactionID(newID()),
		InvestorID:      in.InvestorID,
		Type:            in.Type,
		Amount:          in.Amount,
		Currency:        in.Currency,
		TransactionDate: in.TransactionDate,
		Reference:       in.Reference,
		Notes:           in.Notes,
		ReceiptNumber:   s.nextReceipt(),
		ProfitYear:      in.ProfitYear,
		IsContribution:  in.IsContribution,
		CreatedBy:       actor.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := validateTransaction(tx); err != nil {
		return Transaction{}, err
	}

	if !tx.IsContribution {
		if _, err := s.store.GetInvestor(ctx, tx.InvestorID); err != nil {
			return Transaction{}, err
		}
		if err := s.store.CreateTransaction(ctx, tx); err != nil {
			return Transaction{}, err
		}
		return tx, nil
	}

	err := s.store.WithTx(ctx, func(st Store) error {
		inv, err := st.GetInvestor(ctx, tx.InvestorID)
		if err != nil {
			return err
		}
		if tx.Type == TxDeposit {
			inv.ContributedCapital = inv.ContributedCapital.Add(tx.Amount)
		} else {
			inv.ContributedCapital = inv.ContributedCapital.Sub(tx.Amount)
		}
		if inv.ContributedCapital.IsNegative() {
			return generic.NewValidationError("amount", "withdrawal exceeds contributed capital")
		}
		inv.UpdatedAt = now
		if err := st.UpdateInvestor(ctx, inv); err != nil {
			return err
		}
		return st.CreateTransaction(ctx, tx)
	})
	if err != nil {
		return Transaction{}, err
	}

	s.logger("ledger").InfoContext(ctx, "contribution booked",
		slog.String("investor_id", string(tx.InvestorID)),
		slog.String("type", string(tx.Type)),
		slog.String("amount", tx.Amount.String()),
		slog.String("actor", actor.String()))
	s.recomputeShares(ctx)
	return tx, nil
}

func (s *Service) UpdateTransaction(ctx context.Context, id TransactionID, p TransactionPatch) (Transaction, error) {
	tx, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return Transaction{}, err
	}
	if p.Reference != nil {
		tx.Reference = *p.Reference
	}
	if p.Notes != nil {
		tx.Notes = *p.Notes
	}
	tx.UpdatedAt = s.now()
	if err := s.store.UpdateTransaction(ctx, tx); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

// DeleteTransaction removes the record only; contributed capital is not
// rewound.
func (s *Service) DeleteTransaction(ctx context.Context, id TransactionID) error {
	if _, err := s.store.GetTransaction(ctx, id); err != nil {
		return err
	}
	return s.store.DeleteTransaction(ctx, id)
}

func (s *Service) GetTransaction(ctx context.Context, id TransactionID) (Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

func (s *Service) ListTransactions(ctx context.Context, f TransactionFilter) ([]Transaction, error) {
	return s.store.ListTransactions(ctx, f)
}
