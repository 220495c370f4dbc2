// Package gateway models the external checkout widget. Opening a
// checkout suspends the purchase until exactly one of the success,
// failure or dismiss callbacks fires.
package gateway

import (
	"context"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/theplant/luhn"
	"github.com/shopspring/decimal"

	"github.com/Gagansidh-u/studio/internal/domain"
	"github.com/Gagansidh-u/studio/pkg/logger"
)

// Checkout carries the amount to charge and the callbacks resolving the
// payment. OnSuccess receives the gateway's opaque payment reference.
type Checkout struct {
	Amount    decimal.Decimal
	Currency  domain.Currency
	OnSuccess func(paymentRef string)
	OnFailure func(reason string)
	OnDismiss func()
}

type Gateway interface {
	// Open registers the checkout and returns its id. The callbacks fire
	// later, from whatever delivers the gateway's verdict.
	Open(ctx context.Context, c Checkout) (string, error)
}

// Registry is the production Gateway: it holds pending checkouts keyed
// by id and resolves them from the payment callback endpoints. Each
// checkout resolves at most once.
type Registry struct {
	mu      sync.Mutex
	pending map[string]Checkout
}

func NewRegistry() *Registry {
	return &Registry{pending: make(map[string]Checkout)}
}

func (r *Registry) Open(_ context.Context, c Checkout) (string, error) {
	id := uuid.NewString()

	r.mu.Lock()
	r.pending[id] = c
	r.mu.Unlock()

	logger.Log.Info("checkout opened",
		logger.String("checkout_id", id),
		logger.String("amount", c.Amount.String()),
		logger.String("currency", string(c.Currency)))

	return id, nil
}

func (r *Registry) take(id string) (Checkout, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
	}
	return c, ok
}

// Succeed resolves a checkout as paid. The card number is Luhn-checked
// before the success callback fires; on a bad number the checkout stays
// pending so the payer can retry.
func (r *Registry) Succeed(id, cardNumber, paymentRef string) error {
	number, err := strconv.Atoi(cardNumber)
	if err != nil || !luhn.Valid(number) {
		logger.Log.Warn("card number failed Luhn check", logger.String("checkout_id", id))
		return domain.ErrInvalidCardNumber
	}

	c, ok := r.take(id)
	if !ok {
		return domain.ErrCheckoutNotFound
	}

	c.OnSuccess(paymentRef)
	return nil
}

func (r *Registry) Fail(id, reason string) error {
	c, ok := r.take(id)
	if !ok {
		return domain.ErrCheckoutNotFound
	}

	c.OnFailure(reason)
	return nil
}

// Dismiss cancels a checkout the payer closed without paying.
func (r *Registry) Dismiss(id string) error {
	c, ok := r.take(id)
	if !ok {
		return domain.ErrCheckoutNotFound
	}

	c.OnDismiss()
	return nil
}
