package dto

import "github.com/shopspring/decimal"

/**
  {
      "id": "5cf0...",
      "cardPlatform": "Amazon",
      "amount": 500,
      "finalAmount": 495,
      "status": "Pending",
      "purchaseDate": "2024-05-01T10:00:00Z"
  }
*/

type Order struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userId,omitempty"`
	CardPlatform   string          `json:"cardPlatform"`
	CardName       string          `json:"cardName"`
	Amount         decimal.Decimal `json:"amount"`
	FinalAmount    decimal.Decimal `json:"finalAmount"`
	Currency       string          `json:"currency"`
	CoinsUsed      int64           `json:"coinsUsed"`
	CoinsEarned    int64           `json:"coinsEarned"`
	PaymentMethod  string          `json:"paymentMethod"`
	PaymentID      string          `json:"paymentId"`
	RecipientEmail string          `json:"recipientEmail"`
	Status         string          `json:"status"`
	PurchaseDate   string          `json:"purchaseDate"`
}

type StatusChange struct {
	Status string `json:"status"`
}
