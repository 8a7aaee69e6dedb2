package profit

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/Abd-elrahmann/inestors-backend/generic"
)

// =============================================================================
// NOTIFICATIONS - fire-and-forget events for admins and investors
// =============================================================================

type EventType string

const (
	EventProfitCalculated      EventType = "profit_calculated"
	EventProfitApproved        EventType = "profit_approved"
	EventProfitDistributed     EventType = "profit_distributed"
	EventProfitRolledOver      EventType = "profit_rolled_over"
	EventYearClosed            EventType = "financial_year_closed"
	EventAutoRolloverCompleted EventType = "auto_rollover_completed"
	EventAutoRolloverFailed    EventType = "auto_rollover_failed"
)

type RecipientKind string

const (
	RecipientAdmins   RecipientKind = "admins"
	RecipientInvestor RecipientKind = "investor"
)

type Recipient struct {
	Kind       RecipientKind
	InvestorID InvestorID // set when Kind is RecipientInvestor
}

// Key is a stable string form, e.g. "admins" or "investor:<id>".
func (r Recipient) Key() string {
	if r.Kind == RecipientInvestor {
		return string(RecipientInvestor) + ":" + string(r.InvestorID)
	}
	return string(r.Kind)
}

type Payload struct {
	YearID     YearID
	Year       int
	PeriodName string
	Currency   generic.Currency
	Amount     decimal.Decimal // total for admins, per-investor for investors
	Count      int
	Message    string
	Actor      generic.Actor

	// PerInvestor carries each investor's amount for this event.
	PerInvestor map[InvestorID]decimal.Decimal
}

// Notifier delivers an event to a set of recipients.
type Notifier interface {
	Notify(ctx context.Context, event EventType, recipients []Recipient, payload Payload) error
}

// NopNotifier discards every event.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, EventType, []Recipient, Payload) error { return nil }

// recipientsFor addresses the admin group plus each distinct investor.
func recipientsFor(dists []Distribution) []Recipient {
	out := []Recipient{{Kind: RecipientAdmins}}
	seen := make(map[InvestorID]bool, len(dists))
	for _, d := range dists {
		if seen[d.InvestorID] {
			continue
		}
		seen[d.InvestorID] = true
		out = append(out, Recipient{Kind: RecipientInvestor, InvestorID: d.InvestorID})
	}
	return out
}

// notify never fails the calling operation.
func (s *Service) notify(ctx context.Context, event EventType, recipients []Recipient, p Payload) {
	if err := s.notifier.Notify(ctx, event, recipients, p); err != nil {
		s.logger("notify").ErrorContext(ctx, "notification dispatch failed",
			slog.String("event", string(event)),
			slog.Int("recipients", len(recipients)),
			slog.Any("error", &generic.ExternalServiceError{Service: "notifications", Err: err}),
		)
	}
}
