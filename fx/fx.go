/*
Package fx converts amounts between the supported currencies (IQD, USD).

PURPOSE:
  Provides the USD→IQD rate used for display and reporting. The rate comes
  from a remote FastForex-style API when a key is configured, is cached for
  a TTL, and falls back to a static configured rate whenever the remote
  call fails. A failure is logged, never returned.

KEY CONCEPTS:
  - Rate.Source:  remote, cache or static; callers can show provenance
  - Outbound calls go through a token-bucket limiter so a burst of
    conversions cannot exhaust the API quota.

WIRE FORMAT:
  GET {baseURL}/fetch-one?from=USD&to=IQD&api_key=KEY
  {"base":"USD","result":{"IQD":1310.5},"updated":"..."}
*/
package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/Abd-elrahmann/inestors-backend/generic"
)

const (
	DefaultBaseURL  = "https://api.fastforex.io"
	DefaultCacheTTL = time.Hour
)

// DefaultUSDToIQD is the static fallback rate.
var DefaultUSDToIQD = decimal.RequireFromString("1310.32")

type Source string

const (
	SourceRemote Source = "remote"
	SourceCache  Source = "cache"
	SourceStatic Source = "static"
)

// Rate is the price of one USD in IQD.
type Rate struct {
	From      generic.Currency
	To        generic.Currency
	Value     decimal.Decimal
	Source    Source
	FetchedAt time.Time
}

type Conversion struct {
	Amount    decimal.Decimal
	From      generic.Currency
	To        generic.Currency
	Converted decimal.Decimal
	Rate      Rate
}

type Options struct {
	BaseURL           string
	APIKey            string // empty: static rate only
	CacheTTL          time.Duration
	RequestsPerSecond float64
	StaticUSDToIQD    decimal.Decimal
	HTTPClient        *http.Client
	Clock             generic.Clock
	Logger            *slog.Logger
}

type Converter struct {
	baseURL string
	apiKey  string
	static  decimal.Decimal
	client  *http.Client
	cache   *cache.Cache
	limiter *rate.Limiter
	clock   generic.Clock
	log     *slog.Logger
}

const rateKey = "USD:IQD"

func New(opts Options) *Converter {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 1
	}
	if !opts.StaticUSDToIQD.IsPositive() {
		opts.StaticUSDToIQD = DefaultUSDToIQD
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.Clock == nil {
		opts.Clock = generic.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Converter{
		baseURL: opts.BaseURL,
		apiKey:  opts.APIKey,
		static:  opts.StaticUSDToIQD,
		client:  opts.HTTPClient,
		cache:   cache.New(opts.CacheTTL, 2*opts.CacheTTL),
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		clock:   opts.Clock,
		log:     opts.Logger.With(slog.String("component", "fx")),
	}
}

// LatestRate returns the USD→IQD rate: cached, fetched, or static.
func (c *Converter) LatestRate(ctx context.Context) Rate {
	if cached, ok := c.cache.Get(rateKey); ok {
		r := cached.(Rate)
		r.Source = SourceCache
		return r
	}
	if c.apiKey == "" {
		return c.staticRate()
	}

	if !c.limiter.Allow() {
		c.log.WarnContext(ctx, "fx rate limit reached, using static rate")
		return c.staticRate()
	}

	value, err := c.fetch(ctx)
	if err != nil {
		c.log.WarnContext(ctx, "fx lookup failed, using static rate",
			slog.Any("error", &generic.ExternalServiceError{Service: "fx", Err: err}))
		return c.staticRate()
	}

	r := Rate{
		From:      generic.CurrencyUSD,
		To:        generic.CurrencyIQD,
		Value:     value,
		Source:    SourceRemote,
		FetchedAt: c.clock.Now().UTC(),
	}
	c.cache.SetDefault(rateKey, r)
	return r
}

// Convert converts amount between IQD and USD, rounding to three places.
func (c *Converter) Convert(ctx context.Context, amount decimal.Decimal, from, to generic.Currency) (Conversion, error) {
	if !from.Valid() {
		return Conversion{}, generic.NewValidationError("from", "must be one of IQD, USD")
	}
	if !to.Valid() {
		return Conversion{}, generic.NewValidationError("to", "must be one of IQD, USD")
	}
	if err := generic.ValidateNonNegative("amount", amount); err != nil {
		return Conversion{}, err
	}

	out := Conversion{Amount: amount, From: from, To: to, Converted: amount}
	if from == to {
		return out, nil
	}

	r := c.LatestRate(ctx)
	out.Rate = r
	if from == generic.CurrencyUSD {
		out.Converted = generic.RoundProfit(amount.Mul(r.Value))
	} else {
		out.Converted = generic.RoundProfit(amount.DivRound(r.Value, 8))
	}
	return out, nil
}

func (c *Converter) staticRate() Rate {
	return Rate{
		From:      generic.CurrencyUSD,
		To:        generic.CurrencyIQD,
		Value:     c.static,
		Source:    SourceStatic,
		FetchedAt: c.clock.Now().UTC(),
	}
}

type fetchOneResponse struct {
	Base   string                     `json:"base"`
	Result map[string]decimal.Decimal `json:"result"`
	Error  string                     `json:"error"`
}

func (c *Converter) fetch(ctx context.Context) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("from", string(generic.CurrencyUSD))
	q.Set("to", string(generic.CurrencyIQD))
	q.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/fetch-one?"+q.Encode(), nil)
	if err != nil {
		return decimal.Zero, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("request rate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("rate api returned status %d", resp.StatusCode)
	}

	var body fetchOneResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("decode rate: %w", err)
	}
	if body.Error != "" {
		return decimal.Zero, fmt.Errorf("rate api: %s", body.Error)
	}
	value, ok := body.Result[string(generic.CurrencyIQD)]
	if !ok || !value.IsPositive() {
		return decimal.Zero, fmt.Errorf("rate api: no positive IQD rate in response")
	}
	return value, nil
}
