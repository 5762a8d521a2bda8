package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pallapay-bridge/internal/domain"
)

// Store is the order store the payment flows read and settle through.
type Store struct {
	db       *sql.DB
	orders   OrderRepo
	carts    CartRepo
	payments PaymentRepo
}

func NewStore(db *sql.DB, orders OrderRepo, carts CartRepo, payments PaymentRepo) *Store {
	return &Store{
		db:       db,
		orders:   orders,
		carts:    carts,
		payments: payments,
	}
}

func (s *Store) FindById(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.orders.FindById(ctx, id)
}

func (s *Store) FindStuckOrders(ctx context.Context, olderThan time.Duration, limit int) ([]domain.Order, error) {
	return s.orders.FindStuckOrders(ctx, olderThan, limit)
}

// Settle applies st in one transaction. When the order is no longer in one of
// st.From nothing is written and applied is false.
func (s *Store) Settle(ctx context.Context, st domain.Settlement) (applied bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	applied, err = s.orders.TransitionStatus(ctx, tx, st.OrderID, st.From, st.To)
	if err != nil {
		return false, fmt.Errorf("transition order: %w", err)
	}
	if !applied {
		return false, nil
	}

	if st.Note != "" {
		if err := s.orders.AddNote(ctx, tx, st.OrderID, st.Note); err != nil {
			return false, fmt.Errorf("add order note: %w", err)
		}
	}

	if st.EmptyCartFor != nil {
		if err := s.carts.EmptyCart(ctx, tx, *st.EmptyCartFor); err != nil {
			return false, fmt.Errorf("empty cart: %w", err)
		}
	}

	if st.Payment != nil {
		if err := s.payments.CreatePayment(ctx, tx, st.Payment); err != nil {
			return false, fmt.Errorf("record payment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// CreateOrder inserts order together with the cart items it was placed from.
func (s *Store) CreateOrder(ctx context.Context, order *domain.Order, items ...CartItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.orders.CreateOrder(ctx, tx, order); err != nil {
		return err
	}
	for i := range items {
		if err := s.carts.AddItem(ctx, tx, &items[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}
