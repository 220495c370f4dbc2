package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gagansidh-u/studio/internal/catalog"
	"github.com/Gagansidh-u/studio/internal/domain"
	"github.com/Gagansidh-u/studio/internal/gateway"
	"github.com/Gagansidh-u/studio/internal/pricing"
	"github.com/Gagansidh-u/studio/internal/store"
	"github.com/Gagansidh-u/studio/internal/store/memstore"
)

const luhnValidCard = "4539148803436467"

func seedWallet(t *testing.T, m *memstore.Memstore, userID string, balance decimal.Decimal, coins int64) {
	t.Helper()
	require.NoError(t, m.Set(context.Background(), walletsCollection, userID, domain.Wallet{
		UserID:    userID,
		Email:     userID + "@example.com",
		Balance:   balance,
		Coins:     coins,
		Currency:  domain.INR,
		CreatedAt: time.Now(),
	}))
}

func newSettlement(m *memstore.Memstore) (*SettlementService, *gateway.Registry) {
	registry := gateway.NewRegistry()
	svc := NewSettlementService(m, catalog.New(), pricing.NewEngine(80), registry)
	return svc, registry
}

func readWallet(t *testing.T, m *memstore.Memstore, userID string) domain.Wallet {
	t.Helper()
	doc, err := m.Get(context.Background(), walletsCollection, userID)
	require.NoError(t, err)
	var wallet domain.Wallet
	require.NoError(t, doc.Decode(&wallet))
	return wallet
}

func TestWalletPurchaseSettles(t *testing.T) {
	m := memstore.New()
	svc, _ := newSettlement(m)
	ctx := context.Background()

	seedWallet(t, m, "u1", decimal.NewFromInt(1000), 500)

	attempt, err := svc.Begin(ctx, "u1", BeginPurchase{
		Platform:     "Amazon",
		CustomAmount: decimal.NewFromInt(500),
		Currency:     domain.INR,
	})
	require.NoError(t, err)
	assert.Equal(t, StateConfirming, attempt.State)

	attempt, err = svc.Confirm(ctx, attempt.ID, "u1", ConfirmPurchase{
		RecipientEmail: "friend@example.com",
		ApplyCoins:     true,
		Method:         domain.PaymentWallet,
	})
	require.NoError(t, err)
	assert.Equal(t, StateDone, attempt.State)
	require.NotEmpty(t, attempt.OrderID)

	// 500 coins are capped at 50, a 5 rupee discount: pay 495 of 1000,
	// spend 50 coins, earn back 4.
	wallet := readWallet(t, m, "u1")
	assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(505)), "balance = %s", wallet.Balance)
	assert.Equal(t, int64(454), wallet.Coins)

	doc, err := m.Get(ctx, ordersCollection, attempt.OrderID)
	require.NoError(t, err)
	var order domain.Order
	require.NoError(t, doc.Decode(&order))
	assert.Equal(t, "u1", order.UserID)
	assert.Equal(t, "Amazon", order.CardPlatform)
	assert.True(t, order.Amount.Equal(decimal.NewFromInt(500)))
	assert.True(t, order.FinalAmount.Equal(decimal.NewFromInt(495)))
	assert.Equal(t, int64(50), order.CoinsUsed)
	assert.Equal(t, int64(4), order.CoinsEarned)
	assert.Equal(t, domain.PaymentWallet, order.PaymentMethod)
	assert.Equal(t, "friend@example.com", order.RecipientEmail)
	assert.Equal(t, domain.OrderPending, order.Status)
}

func TestCatalogItemPurchase(t *testing.T) {
	m := memstore.New()
	svc, _ := newSettlement(m)
	ctx := context.Background()

	seedWallet(t, m, "u1", decimal.NewFromInt(1000), 0)

	attempt, err := svc.Begin(ctx, "u1", BeginPurchase{ItemID: "1", Currency: domain.INR})
	require.NoError(t, err)
	assert.Equal(t, "Amazon", attempt.Platform)
	assert.True(t, attempt.Amount.Equal(decimal.NewFromInt(100)))

	attempt, err = svc.Confirm(ctx, attempt.ID, "u1", ConfirmPurchase{
		RecipientEmail: "friend@example.com",
		Method:         domain.PaymentWallet,
	})
	require.NoError(t, err)
	assert.Equal(t, StateDone, attempt.State)

	wallet := readWallet(t, m, "u1")
	assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(900)))
	assert.Equal(t, int64(1), wallet.Coins)
}

func TestBeginValidation(t *testing.T) {
	m := memstore.New()
	svc, _ := newSettlement(m)
	ctx := context.Background()

	_, err := svc.Begin(ctx, "u1", BeginPurchase{ItemID: "no-such-item"})
	assert.ErrorIs(t, err, domain.ErrItemNotFound)

	_, err = svc.Begin(ctx, "u1", BeginPurchase{Platform: "NoSuchPlatform", CustomAmount: decimal.NewFromInt(100)})
	assert.ErrorIs(t, err, domain.ErrItemNotFound)

	_, err = svc.Begin(ctx, "u1", BeginPurchase{Platform: "Amazon", CustomAmount: decimal.Zero})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = svc.Begin(ctx, "u1", BeginPurchase{Platform: "Amazon", CustomAmount: decimal.NewFromInt(150)})
	assert.ErrorIs(t, err, domain.ErrAmountNotMultiple)

	_, err = svc.Begin(ctx, "u1", BeginPurchase{Platform: "Amazon", CustomAmount: decimal.NewFromInt(100), Currency: "EUR"})
	assert.ErrorIs(t, err, domain.ErrInvalidCurrency)

	// The multiple-of-100 rule is INR-only.
	_, err = svc.Begin(ctx, "u1", BeginPurchase{Platform: "Amazon", CustomAmount: decimal.RequireFromString("2.50"), Currency: domain.USD})
	assert.NoError(t, err)
}

func TestConfirmRejectsBadRecipient(t *testing.T) {
	m := memstore.New()
	svc, _ := newSettlement(m)
	ctx := context.Background()

	seedWallet(t, m, "u1", decimal.NewFromInt(1000), 0)

	attempt, err := svc.Begin(ctx, "u1", BeginPurchase{ItemID: "1"})
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, attempt.ID, "u1", ConfirmPurchase{
		RecipientEmail: "not-an-email",
		Method:         domain.PaymentWallet,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRecipientEmail)
}

func TestConfirmWrongUser(t *testing.T) {
	m := memstore.New()
	svc, _ := newSettlement(m)
	ctx := context.Background()

	seedWallet(t, m, "u1", decimal.NewFromInt(1000), 0)

	attempt, err := svc.Begin(ctx, "u1", BeginPurchase{ItemID: "1"})
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, attempt.ID, "someone-else", ConfirmPurchase{
		RecipientEmail: "friend@example.com",
		Method:         domain.PaymentWallet,
	})
	assert.ErrorIs(t, err, domain.ErrPurchaseNotFound)
}

func TestWalletPurchaseInsufficientFunds(t *testing.T) {
	m := memstore.New()
	svc, _ := newSettlement(m)
	ctx := context.Background()

	seedWallet(t, m, "u1", decimal.NewFromInt(100), 0)

	attempt, err := svc.Begin(ctx, "u1", BeginPurchase{
		Platform:     "Amazon",
		CustomAmount: decimal.NewFromInt(500),
		Currency:     domain.INR,
	})
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, attempt.ID, "u1", ConfirmPurchase{
		RecipientEmail: "friend@example.com",
		Method:         domain.PaymentWallet,
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	// Nothing moved and no order was written.
	wallet := readWallet(t, m, "u1")
	assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(100)))
	docs, err := m.List(ctx, ordersCollection)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestWalletPurchaseRejectsUSD(t *testing.T) {
	m := memstore.New()
	svc, _ := newSettlement(m)
	ctx := context.Background()

	seedWallet(t, m, "u1", decimal.NewFromInt(10000), 0)

	attempt, err := svc.Begin(ctx, "u1", BeginPurchase{ItemID: "1", Currency: domain.USD})
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, attempt.ID, "u1", ConfirmPurchase{
		RecipientEmail: "friend@example.com",
		Method:         domain.PaymentWallet,
	})
	assert.ErrorIs(t, err, domain.ErrWalletCurrencyMismatch)
}

func TestGatewayPurchaseSettlesOnSuccess(t *testing.T) {
	m := memstore.New()
	svc, registry := newSettlement(m)
	ctx := context.Background()

	seedWallet(t, m, "u1", decimal.NewFromInt(0), 500)

	attempt, err := svc.Begin(ctx, "u1", BeginPurchase{
		Platform:     "Steam",
		CustomAmount: decimal.NewFromInt(500),
		Currency:     domain.INR,
	})
	require.NoError(t, err)

	attempt, err = svc.Confirm(ctx, attempt.ID, "u1", ConfirmPurchase{
		RecipientEmail: "friend@example.com",
		ApplyCoins:     true,
		Method:         domain.PaymentGateway,
	})
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingPayment, attempt.State)
	require.NotEmpty(t, attempt.CheckoutID)

	require.NoError(t, registry.Succeed(attempt.CheckoutID, luhnValidCard, "pay_abc123"))

	attempt, err = svc.Attempt(attempt.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, StateDone, attempt.State)

	// Gateway purchases never touch the balance; coins still settle.
	wallet := readWallet(t, m, "u1")
	assert.True(t, wallet.Balance.IsZero())
	assert.Equal(t, int64(454), wallet.Coins)

	doc, err := m.Get(ctx, ordersCollection, attempt.OrderID)
	require.NoError(t, err)
	var order domain.Order
	require.NoError(t, doc.Decode(&order))
	assert.Equal(t, domain.PaymentGateway, order.PaymentMethod)
	assert.Equal(t, "pay_abc123", order.PaymentID)
}

func TestGatewayPurchaseRejectsBadCard(t *testing.T) {
	m := memstore.New()
	svc, registry := newSettlement(m)
	ctx := context.Background()

	seedWallet(t, m, "u1", decimal.NewFromInt(0), 0)

	attempt, err := svc.Begin(ctx, "u1", BeginPurchase{ItemID: "1"})
	require.NoError(t, err)

	attempt, err = svc.Confirm(ctx, attempt.ID, "u1", ConfirmPurchase{
		RecipientEmail: "friend@example.com",
		Method:         domain.PaymentGateway,
	})
	require.NoError(t, err)

	err = registry.Succeed(attempt.CheckoutID, "1234567890", "pay_abc")
	assert.ErrorIs(t, err, domain.ErrInvalidCardNumber)

	// Checkout stays open for a retry with a valid card.
	require.NoError(t, registry.Succeed(attempt.CheckoutID, luhnValidCard, "pay_abc"))

	attempt, err = svc.Attempt(attempt.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, StateDone, attempt.State)
}

func TestGatewayFailureReturnsToConfirming(t *testing.T) {
	m := memstore.New()
	svc, registry := newSettlement(m)
	ctx := context.Background()

	seedWallet(t, m, "u1", decimal.NewFromInt(0), 100)

	attempt, err := svc.Begin(ctx, "u1", BeginPurchase{ItemID: "1"})
	require.NoError(t, err)

	attempt, err = svc.Confirm(ctx, attempt.ID, "u1", ConfirmPurchase{
		RecipientEmail: "friend@example.com",
		ApplyCoins:     true,
		Method:         domain.PaymentGateway,
	})
	require.NoError(t, err)

	require.NoError(t, registry.Fail(attempt.CheckoutID, "card declined"))

	attempt, err = svc.Attempt(attempt.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, StateConfirming, attempt.State)
	assert.Equal(t, "card declined", attempt.FailureReason)

	// No wallet mutation, no order.
	wallet := readWallet(t, m, "u1")
	assert.Equal(t, int64(100), wallet.Coins)
	docs, err := m.List(ctx, ordersCollection)
	require.NoError(t, err)
	assert.Empty(t, docs)

	// The attempt can be confirmed again.
	attempt, err = svc.Confirm(ctx, attempt.ID, "u1", ConfirmPurchase{
		RecipientEmail: "friend@example.com",
		Method:         domain.PaymentGateway,
	})
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingPayment, attempt.State)
}

func TestGatewayDismissResetsToSelecting(t *testing.T) {
	m := memstore.New()
	svc, registry := newSettlement(m)
	ctx := context.Background()

	seedWallet(t, m, "u1", decimal.NewFromInt(0), 100)

	attempt, err := svc.Begin(ctx, "u1", BeginPurchase{ItemID: "1"})
	require.NoError(t, err)

	attempt, err = svc.Confirm(ctx, attempt.ID, "u1", ConfirmPurchase{
		RecipientEmail: "friend@example.com",
		ApplyCoins:     true,
		Method:         domain.PaymentGateway,
	})
	require.NoError(t, err)

	require.NoError(t, registry.Dismiss(attempt.CheckoutID))

	attempt, err = svc.Attempt(attempt.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, StateSelecting, attempt.State)
	assert.Empty(t, attempt.RecipientEmail)
	assert.Empty(t, attempt.CheckoutID)
	assert.False(t, attempt.ApplyCoins)

	wallet := readWallet(t, m, "u1")
	assert.Equal(t, int64(100), wallet.Coins)
}

func TestConcurrentWalletPurchasesNeverOverspend(t *testing.T) {
	m := memstore.New()
	svc, _ := newSettlement(m)
	ctx := context.Background()

	seedWallet(t, m, "u1", decimal.NewFromInt(500), 0)

	const buyers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			attempt, err := svc.Begin(ctx, "u1", BeginPurchase{
				Platform:     "Amazon",
				CustomAmount: decimal.NewFromInt(100),
				Currency:     domain.INR,
			})
			if err != nil {
				return
			}

			_, err = svc.Confirm(ctx, attempt.ID, "u1", ConfirmPurchase{
				RecipientEmail: "friend@example.com",
				Method:         domain.PaymentWallet,
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.LessOrEqual(t, succeeded, 5, "balance only covers five purchases")

	// Every settled purchase debited exactly once and earned one coin.
	wallet := readWallet(t, m, "u1")
	expected := decimal.NewFromInt(500 - int64(succeeded)*100)
	assert.True(t, wallet.Balance.Equal(expected), "balance = %s, succeeded = %d", wallet.Balance, succeeded)
	assert.False(t, wallet.Balance.IsNegative())
	assert.Equal(t, int64(succeeded), wallet.Coins)

	docs, err := m.List(ctx, ordersCollection)
	require.NoError(t, err)
	assert.Len(t, docs, succeeded)
}

// slowReads widens the window between the wallet read and the settling
// transaction so interleavings that are rare in production show up
// reliably under test.
type slowReads struct {
	*memstore.Memstore
	delay time.Duration
}

func (s slowReads) Get(ctx context.Context, collection, id string) (store.Doc, error) {
	time.Sleep(s.delay)
	return s.Memstore.Get(ctx, collection, id)
}

func TestConcurrentConfirmsSettleOnce(t *testing.T) {
	m := memstore.New()
	registry := gateway.NewRegistry()
	svc := NewSettlementService(slowReads{Memstore: m, delay: 20 * time.Millisecond}, catalog.New(), pricing.NewEngine(80), registry)
	ctx := context.Background()

	seedWallet(t, m, "u1", decimal.NewFromInt(1000), 0)

	attempt, err := svc.Begin(ctx, "u1", BeginPurchase{
		Platform:     "Amazon",
		CustomAmount: decimal.NewFromInt(100),
		Currency:     domain.INR,
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	settled, rejected := 0, 0

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := svc.Confirm(ctx, attempt.ID, "u1", ConfirmPurchase{
				RecipientEmail: "friend@example.com",
				Method:         domain.PaymentWallet,
			})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				settled++
			case errors.Is(err, domain.ErrInvalidPurchaseState):
				rejected++
			}
		}()
	}
	wg.Wait()

	// One confirmation claims the attempt, the other is turned away; the
	// wallet is debited exactly once.
	assert.Equal(t, 1, settled)
	assert.Equal(t, 1, rejected)

	wallet := readWallet(t, m, "u1")
	assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(900)), "balance = %s", wallet.Balance)

	docs, err := m.List(ctx, ordersCollection)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestStaleCoinQuoteFailsInSettlement(t *testing.T) {
	m := memstore.New()
	svc, registry := newSettlement(m)
	ctx := context.Background()

	seedWallet(t, m, "u1", decimal.NewFromInt(0), 10)

	confirm := func(t *testing.T) PurchaseAttempt {
		t.Helper()
		attempt, err := svc.Begin(ctx, "u1", BeginPurchase{
			Platform:     "Amazon",
			CustomAmount: decimal.NewFromInt(1000),
			Currency:     domain.INR,
		})
		require.NoError(t, err)

		attempt, err = svc.Confirm(ctx, attempt.ID, "u1", ConfirmPurchase{
			RecipientEmail: "friend@example.com",
			ApplyCoins:     true,
			Method:         domain.PaymentGateway,
		})
		require.NoError(t, err)
		require.Equal(t, StateAwaitingPayment, attempt.State)
		return attempt
	}

	// Both checkouts quote 10 coins against the same balance.
	first := confirm(t)
	second := confirm(t)

	require.NoError(t, registry.Succeed(first.CheckoutID, luhnValidCard, "pay_first"))
	require.NoError(t, registry.Succeed(second.CheckoutID, luhnValidCard, "pay_second"))

	first, err := svc.Attempt(first.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, StateDone, first.State)

	// The first settlement spent the coins the second quote relied on,
	// so the second is rejected inside its transaction.
	second, err = svc.Attempt(second.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, StateFailed, second.State)
	assert.Equal(t, domain.ErrInsufficientCoins.Error(), second.FailureReason)

	// 10 spent, 9 earned back on the settled purchase.
	wallet := readWallet(t, m, "u1")
	assert.Equal(t, int64(9), wallet.Coins)

	docs, err := m.List(ctx, ordersCollection)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestConcurrentPurchasesShareCoinBalance(t *testing.T) {
	m := memstore.New()
	svc, _ := newSettlement(m)
	ctx := context.Background()

	seedWallet(t, m, "u1", decimal.NewFromInt(10000), 50)

	const buyers = 10
	var wg sync.WaitGroup
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			attempt, err := svc.Begin(ctx, "u1", BeginPurchase{
				Platform:     "Amazon",
				CustomAmount: decimal.NewFromInt(1000),
				Currency:     domain.INR,
			})
			if err != nil {
				return
			}

			_, _ = svc.Confirm(ctx, attempt.ID, "u1", ConfirmPurchase{
				RecipientEmail: "friend@example.com",
				ApplyCoins:     true,
				Method:         domain.PaymentWallet,
			})
		}()
	}
	wg.Wait()

	docs, err := m.List(ctx, ordersCollection)
	require.NoError(t, err)

	spent := decimal.Zero
	coins := int64(50)
	for _, doc := range docs {
		var order domain.Order
		require.NoError(t, doc.Decode(&order))
		spent = spent.Add(order.FinalAmount)
		coins += order.CoinsEarned - order.CoinsUsed
	}

	// Whatever the interleaving, the order ledger and the wallet agree
	// and the coin balance never went negative.
	wallet := readWallet(t, m, "u1")
	assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(10000).Sub(spent)), "balance = %s", wallet.Balance)
	assert.Equal(t, coins, wallet.Coins)
	assert.GreaterOrEqual(t, wallet.Coins, int64(0))
}
