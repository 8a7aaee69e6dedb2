/*
Package generic provides the domain-agnostic building blocks of the profit engine.

PURPOSE:
  This package contains the primitives every bookkeeping component shares:
  decimal rounding rules, currencies, calendar-day arithmetic, periods and
  participation windows, the acting identity of a mutation, an injectable
  clock, and the error taxonomy. Nothing here knows about investors or
  financial years; the profit package builds on top of it.

KEY CONCEPTS IN THIS FILE (types.go):
  - Currency:   ISO-like code accepted by the ledger (IQD, USD)
  - Rounding:   profit (3dp), daily rate (6dp), share percentage (2dp)
  - Percentage: validated 0..100 value used by rollover
  - Actor:      who performed a mutation (admin user or the system)

DESIGN PRINCIPLES:
  1. Precision: all money uses decimal.Decimal, never float64
  2. Determinism: the same inputs always round to the same outputs
  3. Explicit identity: background jobs act as SystemActor, never as nil

SEE ALSO:
  - time.go:   calendar-day normalisation and inclusive day counts
  - period.go: Period and participation Window
  - errors.go: error taxonomy
*/
package generic

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CURRENCY
// =============================================================================

type Currency string

const (
	CurrencyIQD Currency = "IQD"
	CurrencyUSD Currency = "USD"
)

// ParseCurrency normalises a currency code and rejects unsupported ones.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", NewValidationError("currency", "must be one of IQD, USD")
	}
	return c, nil
}

func (c Currency) Valid() bool { return c == CurrencyIQD || c == CurrencyUSD }

func (c Currency) String() string { return string(c) }

// =============================================================================
// ROUNDING
// =============================================================================

const (
	ProfitPlaces = 3 // calculated profit per distribution
	RatePlaces   = 6 // persisted daily profit rate per unit of capital
	SharePlaces  = 2 // investor share percentage
)

var (
	hundred = decimal.NewFromInt(100)

	// ProfitTolerance is the accepted gap between distributed and nominal profit.
	ProfitTolerance = decimal.RequireFromString("0.01")
)

func RoundProfit(d decimal.Decimal) decimal.Decimal { return d.Round(ProfitPlaces) }
func RoundRate(d decimal.Decimal) decimal.Decimal   { return d.Round(RatePlaces) }
func RoundShare(d decimal.Decimal) decimal.Decimal  { return d.Round(SharePlaces) }

// SharePercentage returns part/total*100 rounded to two places.
// A zero or negative total yields zero.
func SharePercentage(part, total decimal.Decimal) decimal.Decimal {
	if !total.IsPositive() {
		return decimal.Zero
	}
	return RoundShare(part.Mul(hundred).Div(total))
}

// AllocateShares splits 100 across parts in proportion to their size,
// two decimal places each, handing the leftover cents to the largest
// remainders (ties go to the earlier part). The result sums to exactly 100
// whenever the total is positive; otherwise every share is zero.
func AllocateShares(parts []decimal.Decimal) []decimal.Decimal {
	shares := make([]decimal.Decimal, len(parts))
	total := decimal.Zero
	for _, p := range parts {
		total = total.Add(p)
	}
	if !total.IsPositive() {
		for i := range shares {
			shares[i] = decimal.Zero
		}
		return shares
	}

	remainders := make([]decimal.Decimal, len(parts))
	allocated := decimal.Zero
	for i, p := range parts {
		exact := p.Mul(hundred).Div(total)
		shares[i] = exact.Truncate(SharePlaces)
		remainders[i] = exact.Sub(shares[i])
		allocated = allocated.Add(shares[i])
	}

	order := make([]int, len(parts))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]].GreaterThan(remainders[order[b]])
	})

	cent := decimal.New(1, -SharePlaces)
	left := int(hundred.Sub(allocated).Div(cent).IntPart())
	for k := 0; k < left && k < len(order); k++ {
		shares[order[k]] = shares[order[k]].Add(cent)
	}
	return shares
}

// PercentOf returns amount*pct/100 without intermediate rounding.
func PercentOf(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred)
}

// ValidatePercentage checks that pct lies within [0, 100].
func ValidatePercentage(field string, pct decimal.Decimal) error {
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return NewValidationError(field, "must be between 0 and 100")
	}
	return nil
}

// ValidateNonNegative rejects negative amounts.
func ValidateNonNegative(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return NewValidationError(field, "cannot be negative")
	}
	return nil
}

// =============================================================================
// ACTOR - who performed a mutation
// =============================================================================

type ActorKind string

const (
	ActorAdmin  ActorKind = "admin"
	ActorSystem ActorKind = "system"
)

type Actor struct {
	ID   string
	Kind ActorKind
}

// SystemActor is the identity used by scheduled jobs.
var SystemActor = Actor{ID: "system", Kind: ActorSystem}

// AdminActor builds an admin identity; an empty id becomes "anonymous".
func AdminActor(id string) Actor {
	if strings.TrimSpace(id) == "" {
		id = "anonymous"
	}
	return Actor{ID: id, Kind: ActorAdmin}
}

func (a Actor) IsSystem() bool { return a.Kind == ActorSystem }

func (a Actor) String() string { return string(a.Kind) + ":" + a.ID }
