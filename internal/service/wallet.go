package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Gagansidh-u/studio/internal/domain"
	"github.com/Gagansidh-u/studio/internal/gateway"
	"github.com/Gagansidh-u/studio/internal/identity"
	"github.com/Gagansidh-u/studio/internal/store"
	"github.com/Gagansidh-u/studio/pkg/logger"
)

const (
	walletsCollection = "wallets"
	ordersCollection  = "orders"
)

type WalletService struct {
	store    store.Store
	provider identity.Provider
	gw       gateway.Gateway
}

func NewWalletService(s store.Store, provider identity.Provider, gw gateway.Gateway) *WalletService {
	return &WalletService{
		store:    s,
		provider: provider,
		gw:       gw,
	}
}

// EnsureWallet creates the zero-state wallet on first sight of an
// authenticated identity. This is a check-then-create, not an atomic
// create-if-absent: two near-simultaneous first logins can both write the
// initial document. That is harmless while the initial state is all
// zeros, but don't make the default non-zero without revisiting this.
func (s *WalletService) EnsureWallet(ctx context.Context, id identity.Identity) (domain.Wallet, error) {
	wallet, err := s.Wallet(ctx, id.ID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, domain.ErrWalletNotFound) {
		return domain.Wallet{}, err
	}

	wallet = domain.Wallet{
		UserID:    id.ID,
		Email:     id.Email,
		Name:      id.Name,
		Balance:   decimal.Zero,
		Coins:     0,
		Currency:  domain.INR,
		CreatedAt: time.Now(),
	}

	if err := s.store.Set(ctx, walletsCollection, id.ID, wallet); err != nil {
		return domain.Wallet{}, fmt.Errorf("error creating wallet: %w", err)
	}

	return wallet, nil
}

func (s *WalletService) Wallet(ctx context.Context, userID string) (domain.Wallet, error) {
	doc, err := s.store.Get(ctx, walletsCollection, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Wallet{}, domain.ErrWalletNotFound
		}
		return domain.Wallet{}, fmt.Errorf("error fetching wallet: %w", err)
	}

	var wallet domain.Wallet
	if err := doc.Decode(&wallet); err != nil {
		return domain.Wallet{}, err
	}

	return wallet, nil
}

// TopUp opens a gateway checkout for the amount; the wallet is credited
// only once the gateway confirms payment. Returns the checkout id.
func (s *WalletService) TopUp(ctx context.Context, userID string, amount decimal.Decimal) (string, error) {
	if !amount.IsPositive() {
		return "", domain.ErrInvalidAmount
	}

	wallet, err := s.Wallet(ctx, userID)
	if err != nil {
		return "", err
	}

	checkoutID, err := s.gw.Open(ctx, gateway.Checkout{
		Amount:   amount,
		Currency: wallet.Currency,
		OnSuccess: func(paymentRef string) {
			if err := s.credit(context.Background(), userID, amount); err != nil {
				logger.Log.Error("error crediting wallet after top-up",
					logger.String("user_id", userID),
					logger.String("payment_ref", paymentRef),
					logger.Error(err))
				return
			}
			logger.Log.Info("wallet topped up",
				logger.String("user_id", userID),
				logger.String("amount", amount.String()),
				logger.String("payment_ref", paymentRef))
		},
		OnFailure: func(reason string) {
			logger.Log.Warn("top-up payment failed",
				logger.String("user_id", userID),
				logger.String("reason", reason))
		},
		OnDismiss: func() {
			logger.Log.Info("top-up checkout dismissed", logger.String("user_id", userID))
		},
	})
	if err != nil {
		return "", fmt.Errorf("error opening checkout: %w", err)
	}

	return checkoutID, nil
}

func (s *WalletService) credit(ctx context.Context, userID string, amount decimal.Decimal) error {
	return s.store.RunTransaction(ctx, func(txn store.Txn) error {
		doc, err := txn.Get(walletsCollection, userID)
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

		return txn.Update(walletsCollection, userID, map[string]any{
			"balance": wallet.Balance.Add(amount),
		})
	})
}

func (s *WalletService) SetCurrency(ctx context.Context, userID string, c domain.Currency) error {
	if !c.Valid() {
		return domain.ErrInvalidCurrency
	}
	return s.updateFields(ctx, userID, map[string]any{"currency": c})
}

func (s *WalletService) UpdateName(ctx context.Context, userID, name string) error {
	return s.updateFields(ctx, userID, map[string]any{"name": name})
}

func (s *WalletService) UpdatePhoneNumber(ctx context.Context, userID, phone string) error {
	return s.updateFields(ctx, userID, map[string]any{"phone": phone})
}

// AddToWishlist is idempotent: the write is a set union independent of
// the current value, so concurrent edits from two sessions converge.
func (s *WalletService) AddToWishlist(ctx context.Context, userID, itemID string) error {
	return s.updateFields(ctx, userID, map[string]any{
		"wishlist": store.ArrayUnion{Values: []string{itemID}},
	})
}

func (s *WalletService) RemoveFromWishlist(ctx context.Context, userID, itemID string) error {
	return s.updateFields(ctx, userID, map[string]any{
		"wishlist": store.ArrayRemove{Values: []string{itemID}},
	})
}

func (s *WalletService) updateFields(ctx context.Context, userID string, fields map[string]any) error {
	err := s.store.Update(ctx, walletsCollection, userID, fields)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.ErrWalletNotFound
		}
		return fmt.Errorf("error updating wallet: %w", err)
	}
	return nil
}

// ChangePassword requires the current password before applying the new
// one.
func (s *WalletService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if err := s.provider.Reauthenticate(ctx, userID, currentPassword); err != nil {
		return err
	}
	return s.provider.ChangePassword(ctx, userID, newPassword)
}

// DeleteAccount removes the wallet document first and the identity
// second. No transaction spans the two stores, so a crash in between
// leaves a deletable identity with no wallet rather than an orphaned
// wallet on a live account.
func (s *WalletService) DeleteAccount(ctx context.Context, userID, password string) error {
	if err := s.provider.Reauthenticate(ctx, userID, password); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, walletsCollection, userID); err != nil {
		return fmt.Errorf("error deleting wallet: %w", err)
	}

	if err := s.provider.DeleteIdentity(ctx, userID); err != nil {
		return fmt.Errorf("error deleting identity: %w", err)
	}

	logger.Log.Info("account deleted", logger.String("user_id", userID))
	return nil
}

// Watch subscribes to live changes of a user's wallet. Updates arrive in
// write order; exists is false once the wallet document is deleted.
func (s *WalletService) Watch(userID string, fn func(wallet domain.Wallet, exists bool)) func() {
	return s.store.Subscribe(walletsCollection, userID, func(doc store.Doc, exists bool) {
		if !exists {
			fn(domain.Wallet{UserID: userID}, false)
			return
		}

		var wallet domain.Wallet
		if err := doc.Decode(&wallet); err != nil {
			logger.Log.Error("error decoding wallet update",
				logger.String("user_id", userID),
				logger.Error(err))
			return
		}
		fn(wallet, true)
	})
}
