package orderhandler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Gagansidh-u/studio/internal/domain"
	"github.com/Gagansidh-u/studio/pkg/dto"
	"github.com/Gagansidh-u/studio/pkg/logger"
)

type orderService interface {
	OrdersForUser(ctx context.Context, userID string) ([]domain.Order, error)
	AllOrders(ctx context.Context) ([]domain.Order, error)
	AdvanceStatus(ctx context.Context, orderID string, next domain.OrderStatus) error
}

type adminService interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

type OrderHandler struct {
	orderService orderService
	adminService adminService
}

func New(orders orderService, admins adminService) *OrderHandler {
	return &OrderHandler{
		orderService: orders,
		adminService: admins,
	}
}

func (h OrderHandler) Orders(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("User-ID")

	orders, err := h.orderService.OrdersForUser(r.Context(), userID)
	if err != nil {
		logger.Log.Error("error while fetching orders", logger.String("user_id", userID), logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.writeOrders(w, userID, orders, false)
}

// AllOrders is the admin listing across every user.
func (h OrderHandler) AllOrders(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("User-ID")

	if !h.requireAdmin(w, r, userID) {
		return
	}

	orders, err := h.orderService.AllOrders(r.Context())
	if err != nil {
		logger.Log.Error("error while fetching all orders", logger.String("user_id", userID), logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeOrders(w, userID, orders, true)
}

func (h OrderHandler) AdvanceStatus(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("User-ID")
	orderID := chi.URLParam(r, "orderID")

	if !h.requireAdmin(w, r, userID) {
		return
	}

	var change dto.StatusChange
	if err := json.NewDecoder(r.Body).Decode(&change); err != nil {
		logger.Log.Warn("error while decoding a status change request")
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	err := h.orderService.AdvanceStatus(r.Context(), orderID, domain.OrderStatus(change.Status))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrOrderNotFound):
			http.Error(w, "order not found", http.StatusNotFound)
		case errors.Is(err, domain.ErrInvalidStatusChange):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		case errors.Is(err, domain.ErrTransactionConflict):
			http.Error(w, "conflict, please retry", http.StatusConflict)
		default:
			logger.Log.Error("error while changing order status",
				logger.String("order_id", orderID),
				logger.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h OrderHandler) requireAdmin(w http.ResponseWriter, r *http.Request, userID string) bool {
	isAdmin, err := h.adminService.IsAdmin(r.Context(), userID)
	if err != nil {
		logger.Log.Error("error while checking admin access", logger.String("user_id", userID), logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return false
	}
	if !isAdmin {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return false
	}
	return true
}

func (h OrderHandler) writeOrders(w http.ResponseWriter, userID string, orders []domain.Order, includeUser bool) {
	dtos := make([]dto.Order, len(orders))
	for i, order := range orders {
		dtos[i] = dto.Order{
			ID:             order.ID,
			CardPlatform:   order.CardPlatform,
			CardName:       order.CardName,
			Amount:         order.Amount,
			FinalAmount:    order.FinalAmount,
			Currency:       string(order.Currency),
			CoinsUsed:      order.CoinsUsed,
			CoinsEarned:    order.CoinsEarned,
			PaymentMethod:  string(order.PaymentMethod),
			PaymentID:      order.PaymentID,
			RecipientEmail: order.RecipientEmail,
			Status:         string(order.Status),
			PurchaseDate:   order.PurchaseDate.Format(time.RFC3339),
		}
		if includeUser {
			dtos[i].UserID = order.UserID
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		logger.Log.Error("error while encoding orders to JSON", logger.String("user_id", userID), logger.Error(err))
	}
}
