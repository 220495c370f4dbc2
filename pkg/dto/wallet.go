package dto

import "github.com/shopspring/decimal"

/**
  {
      "userId": "b9a1...",
      "balance": 1000,
      "coins": 500,
      "currency": "INR"
  }
*/

type Wallet struct {
	UserID   string          `json:"userId"`
	Email    string          `json:"email,omitempty"`
	Name     string          `json:"name,omitempty"`
	Phone    string          `json:"phone,omitempty"`
	Balance  decimal.Decimal `json:"balance"`
	Coins    int64           `json:"coins"`
	Currency string          `json:"currency"`
	Wishlist []string        `json:"wishlist"`
}

type TopUp struct {
	Amount decimal.Decimal `json:"amount"`
}

type CurrencyChange struct {
	Currency string `json:"currency"`
}

type ProfileUpdate struct {
	Name  *string `json:"name,omitempty"`
	Phone *string `json:"phone,omitempty"`
}

type WishlistEdit struct {
	ItemID string `json:"itemId"`
}
