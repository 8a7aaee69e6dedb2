/*
Package notify persists profit events as per-recipient notification records.

PURPOSE:
  Implements profit.Notifier. Every event fans out into one Notification per
  recipient (the admin group, then each affected investor). Records expire
  after a TTL and are removed by the notification-cleanup job.

PRIORITY:
  admins     medium
  investors  high (the message concerns their own money)

SEE ALSO:
  - profit/notify.go: event types and the Notifier contract
  - store/sqlite, store/memory: Store implementations
*/
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Abd-elrahmann/inestors-backend/generic"
	"github.com/Abd-elrahmann/inestors-backend/profit"
)

// DefaultTTL keeps notifications for thirty days.
const DefaultTTL = 30 * 24 * time.Hour

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Data is the structured part of a notification, stored as JSON.
type Data struct {
	YearID     profit.YearID    `json:"financialYearId,omitempty"`
	Year       int              `json:"year,omitempty"`
	PeriodName string           `json:"periodName,omitempty"`
	Currency   generic.Currency `json:"currency,omitempty"`
	Amount     decimal.Decimal  `json:"amount"`
	Count      int              `json:"count,omitempty"`
}

type Notification struct {
	ID        string
	Recipient string // profit.Recipient.Key()
	Event     profit.EventType
	Priority  Priority
	Title     string
	Message   string
	Data      Data
	Read      bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Store persists notifications.
type Store interface {
	CreateNotifications(ctx context.Context, ns []Notification) error
	ListNotifications(ctx context.Context, recipient string, unreadOnly bool) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	DeleteExpiredNotifications(ctx context.Context, now time.Time) (int, error)
}

// =============================================================================
// SINK
// =============================================================================

type Options struct {
	TTL    time.Duration
	Clock  generic.Clock
	Logger *slog.Logger
}

// Sink is the store-backed profit.Notifier.
type Sink struct {
	store Store
	ttl   time.Duration
	clock generic.Clock
	log   *slog.Logger
}

var _ profit.Notifier = (*Sink)(nil)

func NewSink(store Store, opts Options) *Sink {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Clock == nil {
		opts.Clock = generic.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Sink{
		store: store,
		ttl:   opts.TTL,
		clock: opts.Clock,
		log:   opts.Logger.With(slog.String("component", "notify")),
	}
}

// Notify writes one record per recipient in a single batch.
func (s *Sink) Notify(ctx context.Context, event profit.EventType, recipients []profit.Recipient, p profit.Payload) error {
	if len(recipients) == 0 {
		return nil
	}
	now := s.clock.Now().UTC()
	ns := make([]Notification, 0, len(recipients))
	for _, r := range recipients {
		data := Data{
			YearID:     p.YearID,
			Year:       p.Year,
			PeriodName: p.PeriodName,
			Currency:   p.Currency,
			Amount:     p.Amount,
			Count:      p.Count,
		}
		priority := PriorityMedium
		if r.Kind == profit.RecipientInvestor {
			priority = PriorityHigh
			data.Amount = p.PerInvestor[r.InvestorID]
			data.Count = 0
		}
		ns = append(ns, Notification{
			ID:        uuid.NewString(),
			Recipient: r.Key(),
			Event:     event,
			Priority:  priority,
			Title:     Title(event),
			Message:   message(event, r, p, data.Amount),
			Data:      data,
			CreatedAt: now,
			ExpiresAt: now.Add(s.ttl),
		})
	}
	if err := s.store.CreateNotifications(ctx, ns); err != nil {
		return fmt.Errorf("store notifications: %w", err)
	}
	s.log.DebugContext(ctx, "notifications stored",
		slog.String("event", string(event)), slog.Int("count", len(ns)))
	return nil
}

func (s *Sink) List(ctx context.Context, recipient string, unreadOnly bool) ([]Notification, error) {
	if recipient == "" {
		return nil, generic.NewValidationError("recipient", "is required")
	}
	return s.store.ListNotifications(ctx, recipient, unreadOnly)
}

func (s *Sink) MarkRead(ctx context.Context, id string) error {
	return s.store.MarkNotificationRead(ctx, id)
}

// CleanupExpired deletes notifications whose expiry has passed.
func (s *Sink) CleanupExpired(ctx context.Context) (int, error) {
	n, err := s.store.DeleteExpiredNotifications(ctx, s.clock.Now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.InfoContext(ctx, "expired notifications removed", slog.Int("count", n))
	}
	return n, nil
}

// =============================================================================
// RENDERING
// =============================================================================

var titles = map[profit.EventType]string{
	profit.EventProfitCalculated:      "Profits calculated",
	profit.EventProfitApproved:        "Profits approved",
	profit.EventProfitDistributed:     "Profits distributed",
	profit.EventProfitRolledOver:      "Profits rolled over",
	profit.EventYearClosed:            "Financial year closed",
	profit.EventAutoRolloverCompleted: "Automatic rollover completed",
	profit.EventAutoRolloverFailed:    "Automatic rollover failed",
}

func Title(event profit.EventType) string {
	if t, ok := titles[event]; ok {
		return t
	}
	return string(event)
}

func message(event profit.EventType, r profit.Recipient, p profit.Payload, amount decimal.Decimal) string {
	if p.Message != "" && r.Kind == profit.RecipientAdmins {
		return p.Message
	}
	label := p.PeriodName
	if label == "" {
		label = fmt.Sprintf("FY %d", p.Year)
	}
	if r.Kind == profit.RecipientInvestor {
		switch event {
		case profit.EventYearClosed:
			return fmt.Sprintf("%s has been closed.", label)
		case profit.EventAutoRolloverFailed:
			return fmt.Sprintf("The automatic rollover for %s could not be completed.", label)
		}
		return fmt.Sprintf("%s: your share is %s %s.", label, amount.StringFixed(3), p.Currency)
	}
	return fmt.Sprintf("%s: %d distributions, total %s %s.", label, p.Count, amount.StringFixed(3), p.Currency)
}
