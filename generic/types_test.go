package generic_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abd-elrahmann/inestors-backend/generic"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestSharePercentage_RoundsToTwoPlaces(t *testing.T) {
	assert.True(t, dec("33.33").Equal(generic.SharePercentage(dec("1"), dec("3"))))
	assert.True(t, dec("66.67").Equal(generic.SharePercentage(dec("2"), dec("3"))))
}

func TestSharePercentage_ZeroTotalIsZero(t *testing.T) {
	assert.True(t, generic.SharePercentage(dec("100"), decimal.Zero).IsZero())
}

func TestAllocateShares_SevenEqualPartsSumToHundred(t *testing.T) {
	// GIVEN: seven equal parts, where independent rounding would overshoot
	parts := make([]decimal.Decimal, 7)
	for i := range parts {
		parts[i] = dec("1000")
	}

	// WHEN: allocating
	shares := generic.AllocateShares(parts)

	// THEN: the leftover cents go to the first parts and the total is exact
	sum := decimal.Zero
	for i, s := range shares {
		want := "14.28"
		if i < 4 {
			want = "14.29"
		}
		assert.Equal(t, want, s.String(), "share %d", i)
		sum = sum.Add(s)
	}
	assert.True(t, sum.Equal(dec("100")), "sum %s", sum)
}

func TestAllocateShares_LargestRemainderWins(t *testing.T) {
	shares := generic.AllocateShares([]decimal.Decimal{dec("1"), dec("2")})
	assert.Equal(t, "33.33", shares[0].String())
	assert.Equal(t, "66.67", shares[1].String())

	shares = generic.AllocateShares([]decimal.Decimal{dec("1"), dec("1"), dec("1"), dec("1"), dec("1"), dec("1")})
	sum := decimal.Zero
	for _, s := range shares {
		sum = sum.Add(s)
	}
	assert.True(t, sum.Equal(dec("100")), "sum %s", sum)
}

func TestAllocateShares_ZeroTotalAllZero(t *testing.T) {
	shares := generic.AllocateShares([]decimal.Decimal{decimal.Zero, decimal.Zero})
	require.Len(t, shares, 2)
	for _, s := range shares {
		assert.True(t, s.IsZero())
	}
	assert.Empty(t, generic.AllocateShares(nil))
}

func TestRounding_ProfitAndRate(t *testing.T) {
	assert.Equal(t, "10000.001", generic.RoundProfit(dec("10000.0005")).String())
	assert.Equal(t, "0.000274", generic.RoundRate(dec("0.000273972602739726")).String())
}

func TestValidatePercentage_Bounds(t *testing.T) {
	require.NoError(t, generic.ValidatePercentage("p", decimal.Zero))
	require.NoError(t, generic.ValidatePercentage("p", dec("100")))
	assert.Error(t, generic.ValidatePercentage("p", dec("100.01")))
	assert.Error(t, generic.ValidatePercentage("p", dec("-1")))
}

func TestParseCurrency(t *testing.T) {
	c, err := generic.ParseCurrency(" usd ")
	require.NoError(t, err)
	assert.Equal(t, generic.CurrencyUSD, c)

	_, err = generic.ParseCurrency("EUR")
	assert.True(t, errors.Is(err, generic.ErrValidation))
}

func TestAdminActor_EmptyIDIsAnonymous(t *testing.T) {
	a := generic.AdminActor("")
	assert.Equal(t, "anonymous", a.ID)
	assert.False(t, a.IsSystem())
	assert.True(t, generic.SystemActor.IsSystem())
}

func TestErrors_UnwrapToSentinels(t *testing.T) {
	dup := &generic.DuplicateError{Kind: "investor", Key: "N-1"}
	assert.True(t, errors.Is(dup, generic.ErrDuplicate))
	assert.True(t, errors.Is(dup, generic.ErrValidation))

	assert.True(t, generic.IsNotFound(generic.NewNotFound("investor", "x")))
	assert.True(t, generic.IsInvalidState(generic.NewInvalidState("close", "closed", "already closed")))

	perr := generic.PersistenceError("insert investor", errors.New("disk full"))
	assert.True(t, errors.Is(perr, generic.ErrPersistence))
	assert.Nil(t, generic.PersistenceError("noop", nil))

	ext := &generic.ExternalServiceError{Service: "fx", Err: errors.New("timeout")}
	assert.True(t, errors.Is(ext, generic.ErrExternalService))
}
