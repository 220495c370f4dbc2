package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Gagansidh-u/studio/internal/domain"
	"github.com/Gagansidh-u/studio/internal/store"
)

type OrderService struct {
	store store.Store
}

func NewOrderService(s store.Store) *OrderService {
	return &OrderService{store: s}
}

// OrdersForUser returns the user's purchase history, most recent first.
func (s *OrderService) OrdersForUser(ctx context.Context, userID string) ([]domain.Order, error) {
	all, err := s.orders(ctx)
	if err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(all))
	for _, order := range all {
		if order.UserID == userID {
			orders = append(orders, order)
		}
	}

	sortOrders(orders)
	return orders, nil
}

// AllOrders returns every order across all users, most recent first.
func (s *OrderService) AllOrders(ctx context.Context) ([]domain.Order, error) {
	orders, err := s.orders(ctx)
	if err != nil {
		return nil, err
	}

	sortOrders(orders)
	return orders, nil
}

// AdvanceStatus moves an order to the next status. Only forward,
// single-step transitions are allowed; everything else on the order is
// immutable.
func (s *OrderService) AdvanceStatus(ctx context.Context, orderID string, next domain.OrderStatus) error {
	err := s.store.RunTransaction(ctx, func(txn store.Txn) error {
		doc, err := txn.Get(ordersCollection, orderID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.ErrOrderNotFound
			}
			return err
		}

		var order domain.Order
		if err := doc.Decode(&order); err != nil {
			return err
		}

		if !order.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s to %s", domain.ErrInvalidStatusChange, order.Status, next)
		}

		return txn.Update(ordersCollection, orderID, map[string]any{
			"status": next,
		})
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return domain.ErrTransactionConflict
		}
		return err
	}
	return nil
}

func (s *OrderService) orders(ctx context.Context) ([]domain.Order, error) {
	docs, err := s.store.List(ctx, ordersCollection)
	if err != nil {
		return nil, fmt.Errorf("error listing orders: %w", err)
	}

	orders := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		var order domain.Order
		if err := doc.Decode(&order); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// sortOrders orders newest first; ties on the purchase instant are
// broken by id so the ordering is stable across reads.
func sortOrders(orders []domain.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].PurchaseDate.Equal(orders[j].PurchaseDate) {
			return orders[i].PurchaseDate.After(orders[j].PurchaseDate)
		}
		return orders[i].ID > orders[j].ID
	})
}
