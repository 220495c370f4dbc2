package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gagansidh-u/studio/internal/domain"
)

func TestMaxCoinsRedeemable(t *testing.T) {
	engine := NewEngine(80)

	tests := []struct {
		name     string
		amount   decimal.Decimal
		currency domain.Currency
		want     int64
	}{
		{name: "1000 INR", amount: decimal.NewFromInt(1000), currency: domain.INR, want: 100},
		{name: "500 INR", amount: decimal.NewFromInt(500), currency: domain.INR, want: 50},
		{name: "99 INR floors down", amount: decimal.NewFromInt(99), currency: domain.INR, want: 9},
		{name: "5 USD converts via rate", amount: decimal.NewFromInt(5), currency: domain.USD, want: 40},
		{name: "fractional USD floors", amount: decimal.RequireFromString("1.99"), currency: domain.USD, want: 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, engine.MaxCoinsRedeemable(tt.amount, tt.currency))
		})
	}
}

func TestQuoteINRWithCoins(t *testing.T) {
	engine := NewEngine(80)

	quote, err := engine.Quote(decimal.NewFromInt(1000), domain.INR, 10000, true)
	require.NoError(t, err)

	assert.Equal(t, int64(100), quote.CoinsToUse)
	assert.True(t, quote.Discount.Equal(decimal.NewFromInt(10)), "discount = %s", quote.Discount)
	assert.True(t, quote.FinalAmount.Equal(decimal.NewFromInt(990)), "final = %s", quote.FinalAmount)
	assert.Equal(t, int64(9), quote.CoinsEarned)
}

func TestQuoteCoinsLimitedByBalance(t *testing.T) {
	engine := NewEngine(80)

	quote, err := engine.Quote(decimal.NewFromInt(500), domain.INR, 500, true)
	require.NoError(t, err)

	// Cap is 50 coins even though 500 are available.
	assert.Equal(t, int64(50), quote.CoinsToUse)
	assert.True(t, quote.Discount.Equal(decimal.NewFromInt(5)))
	assert.True(t, quote.FinalAmount.Equal(decimal.NewFromInt(495)))
	assert.Equal(t, int64(4), quote.CoinsEarned)
}

func TestQuoteFewerCoinsThanCap(t *testing.T) {
	engine := NewEngine(80)

	quote, err := engine.Quote(decimal.NewFromInt(1000), domain.INR, 30, true)
	require.NoError(t, err)

	assert.Equal(t, int64(30), quote.CoinsToUse)
	assert.True(t, quote.Discount.Equal(decimal.NewFromInt(3)))
	assert.True(t, quote.FinalAmount.Equal(decimal.NewFromInt(997)))
	assert.Equal(t, int64(9), quote.CoinsEarned)
}

func TestQuoteWithoutCoins(t *testing.T) {
	engine := NewEngine(80)

	quote, err := engine.Quote(decimal.NewFromInt(500), domain.INR, 10000, false)
	require.NoError(t, err)

	assert.Equal(t, int64(0), quote.CoinsToUse)
	assert.True(t, quote.Discount.IsZero())
	assert.True(t, quote.FinalAmount.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, int64(5), quote.CoinsEarned)
}

func TestQuoteUSD(t *testing.T) {
	engine := NewEngine(80)

	quote, err := engine.Quote(decimal.NewFromInt(5), domain.USD, 10000, true)
	require.NoError(t, err)

	// 5 USD is 400 INR: 40 coins redeemable, 4 INR discount, 0.05 USD.
	assert.Equal(t, int64(40), quote.CoinsToUse)
	assert.True(t, quote.Discount.Equal(decimal.RequireFromString("0.05")), "discount = %s", quote.Discount)
	assert.True(t, quote.FinalAmount.Equal(decimal.RequireFromString("4.95")), "final = %s", quote.FinalAmount)
	// 4.95 USD settles as 396 INR, 1% floors to 3 coins.
	assert.Equal(t, int64(3), quote.CoinsEarned)
}

func TestQuoteNonPositiveAmount(t *testing.T) {
	engine := NewEngine(80)

	_, err := engine.Quote(decimal.Zero, domain.INR, 0, false)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = engine.Quote(decimal.NewFromInt(-10), domain.INR, 0, false)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestQuoteNegativeCoinBalanceTreatedAsZero(t *testing.T) {
	engine := NewEngine(80)

	quote, err := engine.Quote(decimal.NewFromInt(100), domain.INR, -5, true)
	require.NoError(t, err)

	assert.Equal(t, int64(0), quote.CoinsToUse)
	assert.True(t, quote.FinalAmount.Equal(decimal.NewFromInt(100)))
}
