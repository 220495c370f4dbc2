package dto

import "github.com/shopspring/decimal"

type BeginPurchase struct {
	ItemID       string           `json:"itemId,omitempty"`
	Platform     string           `json:"platform,omitempty"`
	CustomAmount *decimal.Decimal `json:"customAmount,omitempty"`
	Currency     string           `json:"currency,omitempty"`
}

type ConfirmPurchase struct {
	RecipientEmail string `json:"recipientEmail"`
	ApplyCoins     bool   `json:"applyCoins"`
	PaymentMethod  string `json:"paymentMethod"`
}

// PaymentResult is the callback payload for a gateway checkout: exactly
// one of success, failure or dismissal.
type PaymentResult struct {
	Outcome    string `json:"outcome"`
	CardNumber string `json:"cardNumber,omitempty"`
	PaymentRef string `json:"paymentRef,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeDismiss = "dismiss"
)
