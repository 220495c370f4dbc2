package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Gagansidh-u/studio/internal/catalog"
	"github.com/Gagansidh-u/studio/internal/domain"
	"github.com/Gagansidh-u/studio/internal/gateway"
	"github.com/Gagansidh-u/studio/internal/pricing"
	"github.com/Gagansidh-u/studio/internal/store"
	"github.com/Gagansidh-u/studio/pkg/logger"
)

var recipientEmailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// inrStep is the granularity of custom INR gift-card amounts.
var inrStep = decimal.NewFromInt(100)

type AttemptState string

const (
	StateSelecting       AttemptState = "selecting"
	StateConfirming      AttemptState = "confirming"
	StateAwaitingPayment AttemptState = "awaiting_payment"
	StateSettling        AttemptState = "settling"
	StateDone            AttemptState = "done"
	StateFailed          AttemptState = "failed"
)

// PurchaseAttempt tracks one checkout flow from item selection to a
// written order. Attempts are in-memory only; a restart abandons them
// with no side effects because nothing is persisted before settlement.
type PurchaseAttempt struct {
	ID             string          `json:"id"`
	UserID         string          `json:"-"`
	State          AttemptState    `json:"state"`
	Platform       string          `json:"platform"`
	ItemName       string          `json:"itemName"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       domain.Currency `json:"currency"`
	RecipientEmail string          `json:"recipientEmail,omitempty"`
	ApplyCoins     bool            `json:"applyCoins"`
	Quote          pricing.Quote   `json:"quote"`
	CheckoutID     string          `json:"checkoutId,omitempty"`
	OrderID        string          `json:"orderId,omitempty"`
	FailureReason  string          `json:"failureReason,omitempty"`
}

type BeginPurchase struct {
	ItemID       string
	Platform     string
	CustomAmount decimal.Decimal
	Currency     domain.Currency
}

type ConfirmPurchase struct {
	RecipientEmail string
	ApplyCoins     bool
	Method         domain.PaymentMethod
}

type SettlementService struct {
	store   store.Store
	catalog *catalog.Catalog
	engine  pricing.Engine
	gw      gateway.Gateway

	mu       sync.Mutex
	attempts map[string]*PurchaseAttempt
}

func NewSettlementService(s store.Store, cat *catalog.Catalog, engine pricing.Engine, gw gateway.Gateway) *SettlementService {
	return &SettlementService{
		store:    s,
		catalog:  cat,
		engine:   engine,
		gw:       gw,
		attempts: make(map[string]*PurchaseAttempt),
	}
}

// Begin validates the selection and opens a purchase attempt. Either an
// item id or a platform plus custom amount must be given.
func (s *SettlementService) Begin(ctx context.Context, userID string, req BeginPurchase) (PurchaseAttempt, error) {
	currency := req.Currency
	if currency == "" {
		currency = domain.INR
	}
	if !currency.Valid() {
		return PurchaseAttempt{}, domain.ErrInvalidCurrency
	}

	attempt := PurchaseAttempt{
		ID:       uuid.NewString(),
		UserID:   userID,
		State:    StateConfirming,
		Currency: currency,
	}

	if req.ItemID != "" {
		item, err := s.catalog.ByID(req.ItemID)
		if err != nil {
			return PurchaseAttempt{}, err
		}
		attempt.Platform = item.Platform
		attempt.ItemName = item.Name
		attempt.Amount = item.Price(currency)
	} else {
		if len(s.catalog.ByPlatform(req.Platform)) == 0 {
			return PurchaseAttempt{}, domain.ErrItemNotFound
		}
		if !req.CustomAmount.IsPositive() {
			return PurchaseAttempt{}, domain.ErrInvalidAmount
		}
		if currency == domain.INR && !req.CustomAmount.Mod(inrStep).IsZero() {
			return PurchaseAttempt{}, domain.ErrAmountNotMultiple
		}
		attempt.Platform = req.Platform
		attempt.ItemName = fmt.Sprintf("%s Gift Card", req.Platform)
		attempt.Amount = req.CustomAmount
	}

	s.mu.Lock()
	s.attempts[attempt.ID] = &attempt
	s.mu.Unlock()

	return attempt, nil
}

func (s *SettlementService) Attempt(attemptID, userID string) (PurchaseAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempt, ok := s.attempts[attemptID]
	if !ok || attempt.UserID != userID {
		return PurchaseAttempt{}, domain.ErrPurchaseNotFound
	}
	return *attempt, nil
}

// Confirm fixes the recipient, coin usage and payment method, prices the
// purchase and either settles it from the wallet or opens a gateway
// checkout. The attempt is claimed (moved to settling) in the same
// critical section that validates its state, so two confirmations racing
// on one attempt can never both settle it. The quote taken here is what
// the gateway charges; balances and coins are re-validated against fresh
// reads inside the settling transaction, so a stale quote can fail
// settlement but never oversell.
func (s *SettlementService) Confirm(ctx context.Context, attemptID, userID string, req ConfirmPurchase) (PurchaseAttempt, error) {
	if !recipientEmailPattern.MatchString(req.RecipientEmail) {
		return PurchaseAttempt{}, domain.ErrInvalidRecipientEmail
	}
	if req.Method != domain.PaymentWallet && req.Method != domain.PaymentGateway {
		return PurchaseAttempt{}, fmt.Errorf("%w: unknown payment method %q", domain.ErrInvalidPurchaseState, req.Method)
	}

	s.mu.Lock()
	attempt, ok := s.attempts[attemptID]
	if !ok || attempt.UserID != userID {
		s.mu.Unlock()
		return PurchaseAttempt{}, domain.ErrPurchaseNotFound
	}
	if attempt.State != StateConfirming && attempt.State != StateSelecting {
		state := attempt.State
		s.mu.Unlock()
		return PurchaseAttempt{}, fmt.Errorf("%w: %s", domain.ErrInvalidPurchaseState, state)
	}
	prior := attempt.State
	attempt.State = StateSettling
	s.mu.Unlock()

	// Pre-settlement failures release the claim so the user can retry.
	abort := func() {
		s.mu.Lock()
		attempt.State = prior
		s.mu.Unlock()
	}

	wallet, err := s.wallet(ctx, userID)
	if err != nil {
		abort()
		return PurchaseAttempt{}, err
	}

	quote, err := s.engine.Quote(attempt.Amount, attempt.Currency, wallet.Coins, req.ApplyCoins)
	if err != nil {
		abort()
		return PurchaseAttempt{}, err
	}

	s.mu.Lock()
	attempt.RecipientEmail = req.RecipientEmail
	attempt.ApplyCoins = req.ApplyCoins
	attempt.Quote = quote
	attempt.FailureReason = ""
	s.mu.Unlock()

	switch req.Method {
	case domain.PaymentWallet:
		if attempt.Currency != domain.INR {
			abort()
			return PurchaseAttempt{}, domain.ErrWalletCurrencyMismatch
		}
		// Early check so an obviously underfunded wallet fails before
		// settlement; the transaction re-checks regardless.
		if wallet.Balance.LessThan(quote.FinalAmount) {
			abort()
			return PurchaseAttempt{}, domain.ErrInsufficientFunds
		}
		return s.settleAttempt(ctx, attempt, domain.PaymentWallet, fmt.Sprintf("wallet_%d", time.Now().UnixMilli()))

	default:
		// Coins can cover the whole amount; nothing to charge, settle
		// immediately without touching the gateway.
		if quote.FinalAmount.IsZero() {
			return s.settleAttempt(ctx, attempt, domain.PaymentWallet, fmt.Sprintf("coins_%d", time.Now().UnixMilli()))
		}
		return s.openCheckout(ctx, attempt, quote)
	}
}

func (s *SettlementService) openCheckout(ctx context.Context, attempt *PurchaseAttempt, quote pricing.Quote) (PurchaseAttempt, error) {
	attemptID := attempt.ID
	checkoutID, err := s.gw.Open(ctx, gateway.Checkout{
		Amount:   quote.FinalAmount,
		Currency: attempt.Currency,
		OnSuccess: func(paymentRef string) {
			s.onGatewaySuccess(attemptID, paymentRef)
		},
		OnFailure: func(reason string) {
			s.onGatewayFailure(attemptID, reason)
		},
		OnDismiss: func() {
			s.onGatewayDismiss(attemptID)
		},
	})
	if err != nil {
		s.mu.Lock()
		attempt.State = StateConfirming
		s.mu.Unlock()
		return PurchaseAttempt{}, fmt.Errorf("error opening checkout: %w", err)
	}

	s.mu.Lock()
	attempt.State = StateAwaitingPayment
	attempt.CheckoutID = checkoutID
	copied := *attempt
	s.mu.Unlock()

	return copied, nil
}

func (s *SettlementService) onGatewaySuccess(attemptID, paymentRef string) {
	s.mu.Lock()
	attempt, ok := s.attempts[attemptID]
	if !ok || attempt.State != StateAwaitingPayment {
		s.mu.Unlock()
		return
	}
	attempt.State = StateSettling
	s.mu.Unlock()

	if _, err := s.settleAttempt(context.Background(), attempt, domain.PaymentGateway, paymentRef); err != nil {
		logger.Log.Error("error settling paid purchase",
			logger.String("attempt_id", attemptID),
			logger.String("payment_ref", paymentRef),
			logger.Error(err))
	}
}

// onGatewayFailure returns the attempt to confirming. The wallet was not
// touched; the user may retry with the same or another method.
func (s *SettlementService) onGatewayFailure(attemptID, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempt, ok := s.attempts[attemptID]
	if !ok || attempt.State != StateAwaitingPayment {
		return
	}
	attempt.State = StateConfirming
	attempt.CheckoutID = ""
	attempt.FailureReason = reason

	logger.Log.Warn("gateway payment failed",
		logger.String("attempt_id", attemptID),
		logger.String("reason", reason))
}

// onGatewayDismiss resets the attempt to selection with zero side
// effects, as if checkout had never been opened.
func (s *SettlementService) onGatewayDismiss(attemptID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempt, ok := s.attempts[attemptID]
	if !ok || attempt.State != StateAwaitingPayment {
		return
	}
	attempt.State = StateSelecting
	attempt.CheckoutID = ""
	attempt.RecipientEmail = ""
	attempt.ApplyCoins = false
	attempt.Quote = pricing.Quote{}
	attempt.FailureReason = ""
}

// settleAttempt runs the settling transaction for an attempt that has
// already been claimed. Callers move the attempt to settling under the
// mutex before handing it over; anything else here means another
// settlement already took it.
func (s *SettlementService) settleAttempt(ctx context.Context, attempt *PurchaseAttempt, method domain.PaymentMethod, paymentID string) (PurchaseAttempt, error) {
	s.mu.Lock()
	if attempt.State != StateSettling {
		state := attempt.State
		s.mu.Unlock()
		return PurchaseAttempt{}, fmt.Errorf("%w: %s", domain.ErrInvalidPurchaseState, state)
	}
	snapshot := *attempt
	s.mu.Unlock()

	order, err := s.settle(ctx, snapshot, method, paymentID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		attempt.State = StateFailed
		attempt.FailureReason = err.Error()
		return *attempt, err
	}
	attempt.State = StateDone
	attempt.OrderID = order.ID
	return *attempt, nil
}

// settle writes the wallet debit and the order record in one atomic
// transaction. The wallet is re-read inside the transaction and the
// quote's preconditions re-validated against it, so concurrent
// settlements can never drive the balance or coins negative.
func (s *SettlementService) settle(ctx context.Context, attempt PurchaseAttempt, method domain.PaymentMethod, paymentID string) (domain.Order, error) {
	quote := attempt.Quote
	order := domain.Order{
		ID:             uuid.NewString(),
		UserID:         attempt.UserID,
		CardPlatform:   attempt.Platform,
		CardName:       attempt.ItemName,
		Amount:         quote.OriginalAmount,
		FinalAmount:    quote.FinalAmount,
		Currency:       attempt.Currency,
		CoinsUsed:      quote.CoinsToUse,
		CoinsEarned:    quote.CoinsEarned,
		PaymentMethod:  method,
		PaymentID:      paymentID,
		RecipientEmail: attempt.RecipientEmail,
		Status:         domain.OrderPending,
	}

	err := s.store.RunTransaction(ctx, func(txn store.Txn) error {
		doc, err := txn.Get(walletsCollection, attempt.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.ErrWalletNotFound
			}
			return err
		}

		var wallet domain.Wallet
		if err := doc.Decode(&wallet); err != nil {
			return err
		}

		if wallet.Coins < quote.CoinsToUse {
			return domain.ErrInsufficientCoins
		}

		balance := wallet.Balance
		if method == domain.PaymentWallet && quote.FinalAmount.IsPositive() {
			if attempt.Currency != domain.INR {
				return domain.ErrWalletCurrencyMismatch
			}
			if balance.LessThan(quote.FinalAmount) {
				return domain.ErrInsufficientFunds
			}
			balance = balance.Sub(quote.FinalAmount)
		}

		if err := txn.Update(walletsCollection, attempt.UserID, map[string]any{
			"balance": balance,
			"coins":   wallet.Coins - quote.CoinsToUse + quote.CoinsEarned,
		}); err != nil {
			return err
		}

		order.PurchaseDate = time.Now()
		return txn.Set(ordersCollection, order.ID, order)
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return domain.Order{}, domain.ErrTransactionConflict
		}
		return domain.Order{}, err
	}

	logger.Log.Info("purchase settled",
		logger.String("user_id", attempt.UserID),
		logger.String("order_id", order.ID),
		logger.String("platform", attempt.Platform),
		logger.String("final_amount", quote.FinalAmount.String()),
		logger.Int64("coins_used", quote.CoinsToUse),
		logger.Int64("coins_earned", quote.CoinsEarned))

	return order, nil
}

func (s *SettlementService) wallet(ctx context.Context, userID string) (domain.Wallet, error) {
	doc, err := s.store.Get(ctx, walletsCollection, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Wallet{}, domain.ErrWalletNotFound
		}
		return domain.Wallet{}, err
	}

	var wallet domain.Wallet
	if err := doc.Decode(&wallet); err != nil {
		return domain.Wallet{}, err
	}
	return wallet, nil
}
