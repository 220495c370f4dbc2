package domain

import "errors"

var (
	ErrUserExists               = errors.New("user already exists")
	ErrIncorrectCredentials     = errors.New("incorrect credentials")
	ErrReauthenticationRequired = errors.New("reauthentication required")
	ErrIdentityNotFound         = errors.New("identity not found")

	ErrWalletNotFound         = errors.New("wallet not found")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrInsufficientCoins      = errors.New("insufficient coins")
	ErrWalletCurrencyMismatch = errors.New("wallet payments are only supported for INR purchases")

	ErrItemNotFound          = errors.New("catalog item not found")
	ErrInvalidCurrency       = errors.New("unsupported currency")
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrAmountNotMultiple     = errors.New("INR amount must be a multiple of 100")
	ErrInvalidRecipientEmail = errors.New("invalid recipient email")

	ErrPurchaseNotFound      = errors.New("purchase attempt not found")
	ErrInvalidPurchaseState  = errors.New("purchase attempt is not in a valid state for this operation")
	ErrPaymentFailed         = errors.New("payment failed")
	ErrPaymentCancelled      = errors.New("payment cancelled")
	ErrCheckoutNotFound      = errors.New("checkout not found")
	ErrInvalidCardNumber     = errors.New("invalid card number")
	ErrTransactionConflict   = errors.New("transaction conflict, please try again")
	ErrOrderNotFound         = errors.New("order not found")
	ErrInvalidStatusChange   = errors.New("invalid order status change")
)
