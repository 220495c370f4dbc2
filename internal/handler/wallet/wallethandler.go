package wallethandler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/Gagansidh-u/studio/internal/domain"
	"github.com/Gagansidh-u/studio/pkg/dto"
	"github.com/Gagansidh-u/studio/pkg/logger"
)

type walletService interface {
	Wallet(ctx context.Context, userID string) (domain.Wallet, error)
	TopUp(ctx context.Context, userID string, amount decimal.Decimal) (string, error)
	SetCurrency(ctx context.Context, userID string, c domain.Currency) error
	UpdateName(ctx context.Context, userID, name string) error
	UpdatePhoneNumber(ctx context.Context, userID, phone string) error
	AddToWishlist(ctx context.Context, userID, itemID string) error
	RemoveFromWishlist(ctx context.Context, userID, itemID string) error
}

type WalletHandler struct {
	walletService walletService
}

func New(svc walletService) *WalletHandler {
	return &WalletHandler{
		walletService: svc,
	}
}

func (h WalletHandler) Wallet(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("User-ID")

	wallet, err := h.walletService.Wallet(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrWalletNotFound) {
			http.Error(w, "wallet not found", http.StatusNotFound)
			return
		}

		logger.Log.Error("error while fetching wallet", logger.String("user_id", userID), logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := dto.Wallet{
		UserID:   wallet.UserID,
		Email:    wallet.Email,
		Name:     wallet.Name,
		Phone:    wallet.Phone,
		Balance:  wallet.Balance,
		Coins:    wallet.Coins,
		Currency: string(wallet.Currency),
		Wishlist: wallet.Wishlist,
	}
	if resp.Wishlist == nil {
		resp.Wishlist = []string{}
	}

	writeJSON(w, userID, resp)
}

func (h WalletHandler) TopUp(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("User-ID")

	var topUp dto.TopUp
	if err := json.NewDecoder(r.Body).Decode(&topUp); err != nil {
		logger.Log.Warn("error while decoding a top-up request")
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	checkoutID, err := h.walletService.TopUp(r.Context(), userID, topUp.Amount)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidAmount) {
			http.Error(w, "amount must be positive", http.StatusBadRequest)
			return
		} else if errors.Is(err, domain.ErrWalletNotFound) {
			http.Error(w, "wallet not found", http.StatusNotFound)
			return
		}

		logger.Log.Error("error while opening top-up checkout", logger.String("user_id", userID), logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(map[string]string{"checkoutId": checkoutID}); err != nil {
		logger.Log.Error("error while encoding top-up response", logger.String("user_id", userID), logger.Error(err))
	}
}

func (h WalletHandler) SetCurrency(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("User-ID")

	var change dto.CurrencyChange
	if err := json.NewDecoder(r.Body).Decode(&change); err != nil {
		logger.Log.Warn("error while decoding a currency change request")
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	err := h.walletService.SetCurrency(r.Context(), userID, domain.Currency(change.Currency))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCurrency) {
			http.Error(w, "unsupported currency", http.StatusBadRequest)
			return
		} else if errors.Is(err, domain.ErrWalletNotFound) {
			http.Error(w, "wallet not found", http.StatusNotFound)
			return
		}

		logger.Log.Error("error while changing currency", logger.String("user_id", userID), logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h WalletHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("User-ID")

	var update dto.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		logger.Log.Warn("error while decoding a profile update request")
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if update.Name != nil {
		if err := h.walletService.UpdateName(r.Context(), userID, *update.Name); err != nil {
			h.profileUpdateError(w, userID, err)
			return
		}
	}
	if update.Phone != nil {
		if err := h.walletService.UpdatePhoneNumber(r.Context(), userID, *update.Phone); err != nil {
			h.profileUpdateError(w, userID, err)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
}

func (h WalletHandler) profileUpdateError(w http.ResponseWriter, userID string, err error) {
	if errors.Is(err, domain.ErrWalletNotFound) {
		http.Error(w, "wallet not found", http.StatusNotFound)
		return
	}

	logger.Log.Error("error while updating profile", logger.String("user_id", userID), logger.Error(err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (h WalletHandler) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	h.editWishlist(w, r, h.walletService.AddToWishlist)
}

func (h WalletHandler) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	h.editWishlist(w, r, h.walletService.RemoveFromWishlist)
}

func (h WalletHandler) editWishlist(w http.ResponseWriter, r *http.Request, edit func(ctx context.Context, userID, itemID string) error) {
	userID := r.Header.Get("User-ID")

	var req dto.WishlistEdit
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Log.Warn("error while decoding a wishlist request")
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.ItemID == "" {
		http.Error(w, "itemId is required", http.StatusBadRequest)
		return
	}

	if err := edit(r.Context(), userID, req.ItemID); err != nil {
		if errors.Is(err, domain.ErrWalletNotFound) {
			http.Error(w, "wallet not found", http.StatusNotFound)
			return
		}

		logger.Log.Error("error while editing wishlist", logger.String("user_id", userID), logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, userID string, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Error("error while encoding response to JSON", logger.String("user_id", userID), logger.Error(err))
	}
}
