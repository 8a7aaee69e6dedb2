package fx

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abd-elrahmann/inestors-backend/generic"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func rateServer(t *testing.T, status int, body string, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/fetch-one", r.URL.Path)
		assert.Equal(t, "USD", r.URL.Query().Get("from"))
		assert.Equal(t, "IQD", r.URL.Query().Get("to"))
		assert.Equal(t, "secret", r.URL.Query().Get("api_key"))
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLatestRate_RemoteThenCache(t *testing.T) {
	// GIVEN: a healthy rate API
	var calls atomic.Int32
	srv := rateServer(t, http.StatusOK, `{"base":"USD","result":{"IQD":1320.5}}`, &calls)
	c := New(Options{BaseURL: srv.URL, APIKey: "secret", RequestsPerSecond: 100, Logger: quiet()})

	// WHEN: asking twice
	first := c.LatestRate(context.Background())
	second := c.LatestRate(context.Background())

	// THEN: one remote call, the second answer comes from cache
	assert.Equal(t, SourceRemote, first.Source)
	assert.Equal(t, "1320.5", first.Value.String())
	assert.Equal(t, SourceCache, second.Source)
	assert.Equal(t, "1320.5", second.Value.String())
	assert.Equal(t, int32(1), calls.Load())
}

func TestLatestRate_FallsBackToStatic(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
	}{
		"server error":  {http.StatusInternalServerError, `oops`},
		"malformed":     {http.StatusOK, `{not json`},
		"missing quote": {http.StatusOK, `{"result":{"EUR":0.9}}`},
		"api error":     {http.StatusOK, `{"error":"invalid key"}`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var calls atomic.Int32
			srv := rateServer(t, tc.status, tc.body, &calls)
			c := New(Options{BaseURL: srv.URL, APIKey: "secret", RequestsPerSecond: 100, Logger: quiet()})

			r := c.LatestRate(context.Background())
			assert.Equal(t, SourceStatic, r.Source)
			assert.True(t, r.Value.Equal(DefaultUSDToIQD))
		})
	}
}

func TestLatestRate_NoKeyMeansStatic(t *testing.T) {
	c := New(Options{StaticUSDToIQD: decimal.NewFromInt(1500), Logger: quiet()})

	r := c.LatestRate(context.Background())
	assert.Equal(t, SourceStatic, r.Source)
	assert.Equal(t, "1500", r.Value.String())
}

func TestLatestRate_RateLimited(t *testing.T) {
	// GIVEN: an API that always fails, so nothing is cached
	var calls atomic.Int32
	srv := rateServer(t, http.StatusBadGateway, ``, &calls)
	c := New(Options{BaseURL: srv.URL, APIKey: "secret", RequestsPerSecond: 0.001, Logger: quiet()})

	// WHEN: two lookups back to back
	c.LatestRate(context.Background())
	r := c.LatestRate(context.Background())

	// THEN: the second never reaches the server
	assert.Equal(t, SourceStatic, r.Source)
	assert.Equal(t, int32(1), calls.Load())
}

func TestConvert(t *testing.T) {
	c := New(Options{StaticUSDToIQD: decimal.NewFromInt(1310), Logger: quiet(),
		Clock: generic.FixedClock{T: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)}})
	ctx := context.Background()

	usd, err := c.Convert(ctx, decimal.NewFromInt(100), generic.CurrencyUSD, generic.CurrencyIQD)
	require.NoError(t, err)
	assert.Equal(t, "131000", usd.Converted.String())

	iqd, err := c.Convert(ctx, decimal.NewFromInt(131000), generic.CurrencyIQD, generic.CurrencyUSD)
	require.NoError(t, err)
	assert.Equal(t, "100", iqd.Converted.String())

	same, err := c.Convert(ctx, decimal.NewFromInt(7), generic.CurrencyIQD, generic.CurrencyIQD)
	require.NoError(t, err)
	assert.Equal(t, "7", same.Converted.String())

	_, err = c.Convert(ctx, decimal.NewFromInt(1), "EUR", generic.CurrencyUSD)
	assert.True(t, errors.Is(err, generic.ErrValidation))
	_, err = c.Convert(ctx, decimal.NewFromInt(-1), generic.CurrencyUSD, generic.CurrencyIQD)
	assert.True(t, errors.Is(err, generic.ErrValidation))
}
