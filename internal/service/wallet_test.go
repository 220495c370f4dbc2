package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gagansidh-u/studio/internal/domain"
	"github.com/Gagansidh-u/studio/internal/gateway"
	"github.com/Gagansidh-u/studio/internal/identity"
	"github.com/Gagansidh-u/studio/internal/store"
	"github.com/Gagansidh-u/studio/internal/store/memstore"
)

func newWalletService(m *memstore.Memstore) (*WalletService, *gateway.Registry) {
	registry := gateway.NewRegistry()
	provider := identity.NewStoreProvider(m)
	return NewWalletService(m, provider, registry), registry
}

func TestEnsureWalletCreatesOnce(t *testing.T) {
	m := memstore.New()
	svc, _ := newWalletService(m)
	ctx := context.Background()

	id := identity.Identity{ID: "u1", Email: "u1@example.com", Name: "User One"}

	wallet, err := svc.EnsureWallet(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "u1", wallet.UserID)
	assert.Equal(t, "u1@example.com", wallet.Email)
	assert.True(t, wallet.Balance.IsZero())
	assert.Equal(t, int64(0), wallet.Coins)
	assert.Equal(t, domain.INR, wallet.Currency)

	// A second call returns the existing wallet untouched.
	require.NoError(t, m.Update(ctx, walletsCollection, "u1", map[string]any{"coins": 42}))
	wallet, err = svc.EnsureWallet(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(42), wallet.Coins)
}

func TestWalletNotFound(t *testing.T) {
	m := memstore.New()
	svc, _ := newWalletService(m)

	_, err := svc.Wallet(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)
}

func TestTopUpCreditsAfterPayment(t *testing.T) {
	m := memstore.New()
	svc, registry := newWalletService(m)
	ctx := context.Background()

	_, err := svc.EnsureWallet(ctx, identity.Identity{ID: "u1", Email: "u1@example.com"})
	require.NoError(t, err)

	checkoutID, err := svc.TopUp(ctx, "u1", decimal.NewFromInt(1000))
	require.NoError(t, err)
	require.NotEmpty(t, checkoutID)

	// Nothing is credited until the gateway confirms.
	wallet, err := svc.Wallet(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, wallet.Balance.IsZero())

	require.NoError(t, registry.Succeed(checkoutID, luhnValidCard, "pay_topup"))

	wallet, err = svc.Wallet(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(1000)), "balance = %s", wallet.Balance)
}

func TestTopUpDismissLeavesBalance(t *testing.T) {
	m := memstore.New()
	svc, registry := newWalletService(m)
	ctx := context.Background()

	_, err := svc.EnsureWallet(ctx, identity.Identity{ID: "u1"})
	require.NoError(t, err)

	checkoutID, err := svc.TopUp(ctx, "u1", decimal.NewFromInt(500))
	require.NoError(t, err)
	require.NoError(t, registry.Dismiss(checkoutID))

	wallet, err := svc.Wallet(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, wallet.Balance.IsZero())
}

func TestTopUpValidation(t *testing.T) {
	m := memstore.New()
	svc, _ := newWalletService(m)
	ctx := context.Background()

	_, err := svc.TopUp(ctx, "u1", decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = svc.TopUp(ctx, "missing", decimal.NewFromInt(100))
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)
}

func TestSetCurrency(t *testing.T) {
	m := memstore.New()
	svc, _ := newWalletService(m)
	ctx := context.Background()

	_, err := svc.EnsureWallet(ctx, identity.Identity{ID: "u1"})
	require.NoError(t, err)

	require.NoError(t, svc.SetCurrency(ctx, "u1", domain.USD))

	wallet, err := svc.Wallet(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.USD, wallet.Currency)

	assert.ErrorIs(t, svc.SetCurrency(ctx, "u1", "EUR"), domain.ErrInvalidCurrency)
}

func TestWishlistEditsConverge(t *testing.T) {
	m := memstore.New()
	svc, _ := newWalletService(m)
	ctx := context.Background()

	_, err := svc.EnsureWallet(ctx, identity.Identity{ID: "u1"})
	require.NoError(t, err)

	require.NoError(t, svc.AddToWishlist(ctx, "u1", "1"))
	require.NoError(t, svc.AddToWishlist(ctx, "u1", "2"))
	// Adding again is a no-op, not a duplicate.
	require.NoError(t, svc.AddToWishlist(ctx, "u1", "1"))

	wallet, err := svc.Wallet(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, wallet.Wishlist)

	require.NoError(t, svc.RemoveFromWishlist(ctx, "u1", "1"))
	// Removing an absent item is also a no-op.
	require.NoError(t, svc.RemoveFromWishlist(ctx, "u1", "99"))

	wallet, err = svc.Wallet(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, wallet.Wishlist)
}

func TestProfileUpdates(t *testing.T) {
	m := memstore.New()
	svc, _ := newWalletService(m)
	ctx := context.Background()

	_, err := svc.EnsureWallet(ctx, identity.Identity{ID: "u1", Name: "Old Name"})
	require.NoError(t, err)

	require.NoError(t, svc.UpdateName(ctx, "u1", "New Name"))
	require.NoError(t, svc.UpdatePhoneNumber(ctx, "u1", "+911234567890"))

	wallet, err := svc.Wallet(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "New Name", wallet.Name)
	assert.Equal(t, "+911234567890", wallet.Phone)
}

func TestChangePasswordRequiresCurrent(t *testing.T) {
	m := memstore.New()
	svc, _ := newWalletService(m)
	provider := identity.NewStoreProvider(m)
	ctx := context.Background()

	id, err := provider.SignUp(ctx, "u1@example.com", "old-password")
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, id.ID, "wrong", "new-password")
	assert.ErrorIs(t, err, domain.ErrReauthenticationRequired)

	require.NoError(t, svc.ChangePassword(ctx, id.ID, "old-password", "new-password"))

	_, err = provider.SignIn(ctx, "u1@example.com", "new-password")
	assert.NoError(t, err)
}

func TestDeleteAccount(t *testing.T) {
	m := memstore.New()
	svc, _ := newWalletService(m)
	provider := identity.NewStoreProvider(m)
	ctx := context.Background()

	id, err := provider.SignUp(ctx, "u1@example.com", "password")
	require.NoError(t, err)
	_, err = svc.EnsureWallet(ctx, id)
	require.NoError(t, err)

	err = svc.DeleteAccount(ctx, id.ID, "wrong")
	assert.ErrorIs(t, err, domain.ErrReauthenticationRequired)

	require.NoError(t, svc.DeleteAccount(ctx, id.ID, "password"))

	_, err = svc.Wallet(ctx, id.ID)
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)
	_, err = provider.SignIn(ctx, "u1@example.com", "password")
	assert.ErrorIs(t, err, domain.ErrIncorrectCredentials)
}

func TestWatchStreamsWalletChanges(t *testing.T) {
	m := memstore.New()
	svc, _ := newWalletService(m)
	ctx := context.Background()

	_, err := svc.EnsureWallet(ctx, identity.Identity{ID: "u1"})
	require.NoError(t, err)

	var coins []int64
	var deleted bool
	unsubscribe := svc.Watch("u1", func(wallet domain.Wallet, exists bool) {
		if !exists {
			deleted = true
			return
		}
		coins = append(coins, wallet.Coins)
	})
	defer unsubscribe()

	require.NoError(t, m.Update(ctx, walletsCollection, "u1", map[string]any{"coins": 10}))
	require.NoError(t, m.Update(ctx, walletsCollection, "u1", map[string]any{"coins": 20}))
	require.NoError(t, m.Delete(ctx, walletsCollection, "u1"))

	assert.Equal(t, []int64{10, 20}, coins)
	assert.True(t, deleted)
}

var _ store.Store = (*memstore.Memstore)(nil)
