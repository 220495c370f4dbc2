// Package pricing computes coin redemption, discounts and cashback for a
// purchase. Everything here is pure: same inputs, same outputs, no side
// effects.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/Gagansidh-u/studio/internal/domain"
)

// Coin and cashback logic always runs on INR values regardless of the
// purchase currency. 10 coins redeem for one rupee, and cashback accrues
// at 1% of the settled amount.
var (
	cashbackRate  = decimal.New(1, -2)
	coinsPerRupee = decimal.NewFromInt(10)
)

type Engine struct {
	inrPerUsd decimal.Decimal
}

// NewEngine takes the INR-per-USD conversion rate. The rate is a
// configuration value rather than a live feed; see config.Config.
func NewEngine(inrPerUsd int64) Engine {
	return Engine{inrPerUsd: decimal.NewFromInt(inrPerUsd)}
}

// Quote is the result of pricing a purchase: how many coins to redeem,
// the resulting discount, the payable amount and the coins earned once
// that amount settles. Amounts are in the purchase currency.
type Quote struct {
	OriginalAmount decimal.Decimal `json:"originalAmount"`
	Currency       domain.Currency `json:"currency"`
	CoinsToUse     int64           `json:"coinsToUse"`
	Discount       decimal.Decimal `json:"discount"`
	FinalAmount    decimal.Decimal `json:"finalAmount"`
	CoinsEarned    int64           `json:"coinsEarned"`
}

func (e Engine) toINR(amount decimal.Decimal, c domain.Currency) decimal.Decimal {
	if c == domain.USD {
		return amount.Mul(e.inrPerUsd)
	}
	return amount
}

// MaxCoinsRedeemable returns the largest number of coins that may be put
// toward a purchase of the given amount: the discount they fund is capped
// at 1% of the INR-normalized amount.
func (e Engine) MaxCoinsRedeemable(amount decimal.Decimal, c domain.Currency) int64 {
	amountINR := e.toINR(amount, c)
	return amountINR.Mul(cashbackRate).Mul(coinsPerRupee).Floor().IntPart()
}

// Quote prices a purchase. All intermediate coin and discount quantities
// truncate toward zero; the final amount is never negative.
func (e Engine) Quote(originalAmount decimal.Decimal, c domain.Currency, availableCoins int64, applyCoins bool) (Quote, error) {
	if !originalAmount.IsPositive() {
		return Quote{}, domain.ErrInvalidAmount
	}
	if availableCoins < 0 {
		availableCoins = 0
	}

	amountINR := e.toINR(originalAmount, c)

	var coinsToUse int64
	if applyCoins {
		coinsToUse = availableCoins
		if max := e.MaxCoinsRedeemable(originalAmount, c); coinsToUse > max {
			coinsToUse = max
		}
	}

	// The 1% cap already keeps the discount below the amount, but clamp
	// anyway so a payable amount can never go negative.
	if cap := amountINR.Mul(coinsPerRupee).Floor().IntPart(); coinsToUse > cap {
		coinsToUse = cap
	}

	discountINR := decimal.NewFromInt(coinsToUse / 10)
	discount := discountINR
	if c == domain.USD {
		discount = discountINR.Div(e.inrPerUsd)
	}

	finalAmount := originalAmount.Sub(discount)
	if finalAmount.IsNegative() {
		finalAmount = decimal.Zero
	}

	coinsEarned := e.toINR(finalAmount, c).Mul(cashbackRate).Floor().IntPart()

	return Quote{
		OriginalAmount: originalAmount,
		Currency:       c,
		CoinsToUse:     coinsToUse,
		Discount:       discount,
		FinalAmount:    finalAmount,
		CoinsEarned:    coinsEarned,
	}, nil
}
