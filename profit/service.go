package profit

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Abd-elrahmann/inestors-backend/generic"
)

// Options configures a Service. Zero values select sensible defaults.
type Options struct {
	Clock    generic.Clock
	Notifier Notifier
	Logger   *slog.Logger
}

// Service is the single entry point for every profit operation. It holds
// no cached business state; every call reads the store fresh.
type Service struct {
	store    Store
	clock    generic.Clock
	notifier Notifier
	log      *slog.Logger
	ledger   *CapitalLedger

	receiptSeq atomic.Uint64
}

func NewService(store Store, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = generic.RealClock{}
	}
	if opts.Notifier == nil {
		opts.Notifier = NopNotifier{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		store:    store,
		clock:    opts.Clock,
		notifier: opts.Notifier,
		log:      opts.Logger,
		ledger:   NewCapitalLedger(store),
	}
}

// Ledger exposes the capital aggregate for read-only callers.
func (s *Service) Ledger() *CapitalLedger { return s.ledger }

func (s *Service) now() time.Time { return s.clock.Now().UTC() }

func (s *Service) logger(component string) *slog.Logger {
	return s.log.With(slog.String("component", component))
}

func newID() string { return uuid.NewString() }

// nextReceipt yields TRX-<unix-ms>-<n>, unique within the process.
func (s *Service) nextReceipt() string {
	return fmt.Sprintf("TRX-%d-%d", s.now().UnixMilli(), s.receiptSeq.Add(1))
}
