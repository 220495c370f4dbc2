package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Monetary amounts serialize as plain JSON numbers to stay compatible
// with the existing wallet and order documents.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

type Currency string

const (
	INR Currency = "INR"
	USD Currency = "USD"
)

func (c Currency) Valid() bool {
	return c == INR || c == USD
}

type PaymentMethod string

const (
	PaymentWallet  PaymentMethod = "wallet"
	PaymentGateway PaymentMethod = "razorpay"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "Pending"
	OrderProcessing OrderStatus = "Processing"
	OrderCompleted  OrderStatus = "Completed"
)

// CanTransitionTo reports whether an order status may move to the given
// status. Transitions only ever go forward, one step at a time.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	rank := map[OrderStatus]int{
		OrderPending:    0,
		OrderProcessing: 1,
		OrderCompleted:  2,
	}

	from, ok := rank[s]
	if !ok {
		return false
	}
	to, ok := rank[next]
	if !ok {
		return false
	}

	return to == from+1
}

// Wallet is the per-user ledger document. The json field names are the
// wire format shared with the existing wallet documents and must not
// change.
type Wallet struct {
	UserID    string          `json:"userId"`
	Email     string          `json:"email,omitempty"`
	Name      string          `json:"name,omitempty"`
	Phone     string          `json:"phone,omitempty"`
	Balance   decimal.Decimal `json:"balance"`
	Coins     int64           `json:"coins"`
	Currency  Currency        `json:"currency"`
	Wishlist  []string        `json:"wishlist,omitempty"`
	CreatedAt time.Time       `json:"creationTime"`
}

// Order is an append-only purchase record. Amount, currency and payment
// fields are immutable once written; only Status moves, and only forward.
type Order struct {
	ID             string          `json:"id,omitempty"`
	UserID         string          `json:"userId"`
	CardPlatform   string          `json:"cardPlatform"`
	CardName       string          `json:"cardName"`
	Amount         decimal.Decimal `json:"amount"`
	FinalAmount    decimal.Decimal `json:"finalAmount"`
	Currency       Currency        `json:"currency"`
	CoinsUsed      int64           `json:"coinsUsed"`
	CoinsEarned    int64           `json:"coinsEarned"`
	PaymentMethod  PaymentMethod   `json:"paymentMethod"`
	PaymentID      string          `json:"paymentId"`
	RecipientEmail string          `json:"recipientEmail"`
	Status         OrderStatus     `json:"status"`
	PurchaseDate   time.Time       `json:"purchaseDate"`
}

type Category string

const (
	CategoryGiftCard   Category = "Gift Card"
	CategoryMembership Category = "Membership"
)

type PlanType string

const (
	PlanMonthly PlanType = "Monthly"
	PlanAnnual  PlanType = "Annual"
)

// CatalogItem is a purchasable SKU. Items are loaded once at startup and
// never mutated.
type CatalogItem struct {
	ID           string          `json:"id"`
	Platform     string          `json:"platform"`
	Name         string          `json:"name"`
	Category     Category        `json:"category"`
	PlanType     PlanType        `json:"planType,omitempty"`
	PriceINR     decimal.Decimal `json:"value"`
	PriceUSD     decimal.Decimal `json:"valueUSD"`
	Features     []string        `json:"features,omitempty"`
	Popular      bool            `json:"popular,omitempty"`
	Instructions string          `json:"instructions,omitempty"`
}

// Price returns the item price in the requested currency.
func (i CatalogItem) Price(c Currency) decimal.Decimal {
	if c == USD {
		return i.PriceUSD
	}
	return i.PriceINR
}
