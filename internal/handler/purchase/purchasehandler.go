package purchasehandler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Gagansidh-u/studio/internal/domain"
	"github.com/Gagansidh-u/studio/internal/service"
	"github.com/Gagansidh-u/studio/pkg/dto"
	"github.com/Gagansidh-u/studio/pkg/logger"
)

type settlementService interface {
	Begin(ctx context.Context, userID string, req service.BeginPurchase) (service.PurchaseAttempt, error)
	Confirm(ctx context.Context, attemptID, userID string, req service.ConfirmPurchase) (service.PurchaseAttempt, error)
	Attempt(attemptID, userID string) (service.PurchaseAttempt, error)
}

type paymentGateway interface {
	Succeed(id, cardNumber, paymentRef string) error
	Fail(id, reason string) error
	Dismiss(id string) error
}

type PurchaseHandler struct {
	settlements settlementService
	gateway     paymentGateway
}

func New(settlements settlementService, gateway paymentGateway) *PurchaseHandler {
	return &PurchaseHandler{
		settlements: settlements,
		gateway:     gateway,
	}
}

func (h PurchaseHandler) Begin(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("User-ID")

	var req dto.BeginPurchase
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Log.Warn("error while decoding a purchase request")
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	begin := service.BeginPurchase{
		ItemID:   req.ItemID,
		Platform: req.Platform,
		Currency: domain.Currency(req.Currency),
	}
	if req.CustomAmount != nil {
		begin.CustomAmount = *req.CustomAmount
	} else {
		begin.CustomAmount = decimal.Zero
	}

	attempt, err := h.settlements.Begin(r.Context(), userID, begin)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrItemNotFound):
			http.Error(w, "unknown item or platform", http.StatusNotFound)
		case errors.Is(err, domain.ErrInvalidAmount):
			http.Error(w, "amount must be positive", http.StatusBadRequest)
		case errors.Is(err, domain.ErrAmountNotMultiple):
			http.Error(w, "INR amount must be a multiple of 100", http.StatusBadRequest)
		case errors.Is(err, domain.ErrInvalidCurrency):
			http.Error(w, "unsupported currency", http.StatusBadRequest)
		default:
			logger.Log.Error("error while opening purchase", logger.String("user_id", userID), logger.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	writeAttempt(w, userID, http.StatusCreated, attempt)
}

func (h PurchaseHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("User-ID")
	attemptID := chi.URLParam(r, "attemptID")

	var req dto.ConfirmPurchase
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Log.Warn("error while decoding a purchase confirmation")
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	attempt, err := h.settlements.Confirm(r.Context(), attemptID, userID, service.ConfirmPurchase{
		RecipientEmail: req.RecipientEmail,
		ApplyCoins:     req.ApplyCoins,
		Method:         domain.PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPurchaseNotFound):
			http.Error(w, "purchase not found", http.StatusNotFound)
		case errors.Is(err, domain.ErrInvalidRecipientEmail):
			http.Error(w, "invalid recipient email", http.StatusBadRequest)
		case errors.Is(err, domain.ErrInvalidPurchaseState):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, domain.ErrWalletCurrencyMismatch):
			http.Error(w, "wallet payments are only supported for INR purchases", http.StatusUnprocessableEntity)
		case errors.Is(err, domain.ErrInsufficientFunds):
			http.Error(w, "insufficient funds", http.StatusPaymentRequired)
		case errors.Is(err, domain.ErrInsufficientCoins):
			http.Error(w, "insufficient coins", http.StatusPaymentRequired)
		case errors.Is(err, domain.ErrWalletNotFound):
			http.Error(w, "wallet not found", http.StatusNotFound)
		case errors.Is(err, domain.ErrTransactionConflict):
			http.Error(w, "conflict, please retry", http.StatusConflict)
		default:
			logger.Log.Error("error while confirming purchase",
				logger.String("user_id", userID),
				logger.String("attempt_id", attemptID),
				logger.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	writeAttempt(w, userID, http.StatusOK, attempt)
}

func (h PurchaseHandler) Attempt(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("User-ID")
	attemptID := chi.URLParam(r, "attemptID")

	attempt, err := h.settlements.Attempt(attemptID, userID)
	if err != nil {
		http.Error(w, "purchase not found", http.StatusNotFound)
		return
	}

	writeAttempt(w, userID, http.StatusOK, attempt)
}

// Payment reports the outcome of a gateway checkout and drives the
// registered callbacks.
func (h PurchaseHandler) Payment(w http.ResponseWriter, r *http.Request) {
	checkoutID := chi.URLParam(r, "checkoutID")

	var result dto.PaymentResult
	if err := json.NewDecoder(r.Body).Decode(&result); err != nil {
		logger.Log.Warn("error while decoding a payment result")
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var err error
	switch result.Outcome {
	case dto.OutcomeSuccess:
		err = h.gateway.Succeed(checkoutID, result.CardNumber, result.PaymentRef)
	case dto.OutcomeFailure:
		err = h.gateway.Fail(checkoutID, result.Reason)
	case dto.OutcomeDismiss:
		err = h.gateway.Dismiss(checkoutID)
	default:
		http.Error(w, "unknown payment outcome", http.StatusBadRequest)
		return
	}

	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCheckoutNotFound):
			http.Error(w, "checkout not found", http.StatusNotFound)
		case errors.Is(err, domain.ErrInvalidCardNumber):
			http.Error(w, "invalid card number", http.StatusUnprocessableEntity)
		default:
			logger.Log.Error("error while processing payment result",
				logger.String("checkout_id", checkoutID),
				logger.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

func writeAttempt(w http.ResponseWriter, userID string, status int, attempt service.PurchaseAttempt) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(attempt); err != nil {
		logger.Log.Error("error while encoding purchase attempt to JSON", logger.String("user_id", userID), logger.Error(err))
	}
}
